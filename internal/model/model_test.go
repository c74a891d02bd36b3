package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNoteVisibility(t *testing.T) {
	note := Note{SharedWith: []string{"bob@example.com"}, Likes: []string{"u1"}}

	assert.False(t, note.IsPublic())
	assert.True(t, note.IsSharedWith("bob@example.com"))
	assert.False(t, note.IsSharedWith(""))
	assert.True(t, note.LikedBy("u1"))
	assert.False(t, note.LikedBy("u2"))

	note.SharedWith = []string{PublicShare}
	assert.True(t, note.IsPublic())
}

func TestIsValidTaskColor(t *testing.T) {
	for _, c := range TaskColors {
		assert.True(t, IsValidTaskColor(c), c)
	}
	assert.False(t, IsValidTaskColor("magenta"))
	assert.False(t, IsValidTaskColor(""))
}
