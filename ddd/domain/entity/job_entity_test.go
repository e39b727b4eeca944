package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stem-service/ddd/domain/vo"
)

func TestNewJobEntity(t *testing.T) {
	j := NewJobEntity()
	assert.NotEmpty(t, j.JobID())
	assert.Equal(t, vo.JobStatusPending, j.Status())
	assert.Equal(t, JobMessageInitializing, j.Message())
	assert.Empty(t, j.Stems())
	assert.Empty(t, j.AudioName())
}

func TestJobLifecycle(t *testing.T) {
	j := NewJobEntity()
	require.NoError(t, j.SetMessage(JobMessageUploading))
	require.NoError(t, j.StartProcessing(JobMessageSeparating))

	stems := map[string]string{"vocals": "/output/song/vocals.wav"}
	require.NoError(t, j.Complete(stems, "song"))
	stems["drums"] = "/output/song/drums.wav"

	assert.Equal(t, vo.JobStatusCompleted, j.Status())
	assert.Equal(t, JobMessageCompleted, j.Message())
	assert.Len(t, j.Stems(), 1)
	assert.NotNil(t, j.CompletedAt())

	assert.Error(t, j.Fail("late failure"))
	assert.Error(t, j.SetMessage("late message"))
	assert.Error(t, j.RequestCancel())
	assert.Equal(t, vo.JobStatusCompleted, j.Status())
}

func TestJobCannotSkipProcessing(t *testing.T) {
	j := NewJobEntity()
	assert.Error(t, j.Complete(nil, "song"))
	require.NoError(t, j.Fail("download failed"))
	assert.Equal(t, vo.JobStatusError, j.Status())
	assert.Equal(t, "download failed", j.Message())
}

func TestJobCloneIsIndependent(t *testing.T) {
	j := NewJobEntity()
	require.NoError(t, j.StartProcessing(JobMessageSeparating))
	require.NoError(t, j.Complete(map[string]string{"vocals": "a"}, "song"))

	c := j.Clone()
	c.stems["vocals"] = "b"
	assert.Equal(t, "a", j.Stems()["vocals"])
}
