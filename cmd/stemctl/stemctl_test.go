package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stem-service/ddd/application/dto"
	"stem-service/ddd/domain/gateway"
	"stem-service/ddd/domain/service"
)

func TestRenderTablePadsShortRows(t *testing.T) {
	out := renderTable([]string{"A", "B"}, [][]string{{"x"}, {"y", "z"}}, []columnAlignment{alignLeft, alignRight})
	assert.Contains(t, out, "A")
	assert.Contains(t, out, "z")
	assert.Equal(t, "", renderTable(nil, nil, nil))
}

func TestRenderReport(t *testing.T) {
	out := renderReport(&service.ReconcileReport{TracksCreated: 2, SamplesCreated: 5, Elapsed: 1500 * time.Millisecond})
	assert.Contains(t, out, "Tracks created")
	assert.Contains(t, out, "1.5s")
	for _, line := range strings.Split(out, "\n") {
		if strings.Contains(line, "Samples created") {
			assert.Contains(t, line, "5")
		}
	}
}

func TestRenderTracks(t *testing.T) {
	bpm := 120.0
	out := renderTracks([]*dto.TrackDto{
		{ID: 1, Name: "song", StemCount: 2, BPM: &bpm},
		{ID: 2, Name: "Artist - Title", StemCount: 4},
	})
	assert.Contains(t, out, "120.0")
	assert.Contains(t, out, "Artist - Title")
	assert.Contains(t, out, "-")
}

func TestFormatEvent(t *testing.T) {
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	line := formatEvent(gateway.JobEvent{
		Type: "updated", JobID: "abc", Status: "completed", Message: "Completed",
		AudioName: "song", Stems: map[string]string{"vocals": "/output/song/vocals.wav"}, At: at,
	})
	assert.True(t, strings.HasPrefix(line, "03:04:05"))
	assert.Contains(t, line, "abc")
	assert.Contains(t, line, "(song, 1 stems)")
}

func TestRootCommandListsSubcommands(t *testing.T) {
	cmd := newRootCommand()
	names := map[string]bool{}
	for _, c := range cmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"serve", "reconcile", "tracks", "events"} {
		assert.True(t, names[want], want)
	}
}

func TestWriteJSON(t *testing.T) {
	cmd := newRootCommand()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	require.NoError(t, writeJSON(cmd, map[string]int{"errors": 0}))
	assert.Contains(t, buf.String(), "\"errors\": 0")
}
