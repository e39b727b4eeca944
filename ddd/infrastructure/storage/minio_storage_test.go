package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContentTypeFor(t *testing.T) {
	assert.Equal(t, "audio/wav", ContentTypeFor("song - vocals (1.00s-2.00s).wav"))
	assert.Equal(t, "audio/mpeg", ContentTypeFor("original.MP3"))
	assert.Equal(t, "application/octet-stream", ContentTypeFor("notes.txt"))
}
