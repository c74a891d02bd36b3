package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sre-portfolio/notetrack/internal/model"
)

func TestFetchNoteCollections(t *testing.T) {
	ctx := context.Background()
	d := newDeps()
	alice := d.user(t, "Alice", "alice@example.com")
	bob := d.user(t, "Bob", "bob@example.com")

	_, err := d.notes.Create(ctx, alice, model.CreateNoteRequest{Title: "private"})
	require.NoError(t, err)
	_, err = d.notes.Create(ctx, alice, model.CreateNoteRequest{Title: "for bob", Shared: true, SharedWith: []string{"bob@example.com"}})
	require.NoError(t, err)
	public, err := d.notes.Create(ctx, alice, model.CreateNoteRequest{Title: "public"})
	require.NoError(t, err)
	_, err = d.notes.ShareWithAll(ctx, alice, public.ID, true)
	require.NoError(t, err)

	got, err := d.notes.Fetch(ctx, bob)
	require.NoError(t, err)
	assert.Empty(t, got.Notes)
	require.Len(t, got.SharedNotes, 1)
	assert.Equal(t, "for bob", got.SharedNotes[0].Title)
	assert.Equal(t, "Alice", got.SharedNotes[0].CreatorName)
	require.Len(t, got.PublicNotes, 1)
	assert.Equal(t, "public", got.PublicNotes[0].Title)

	got, err = d.notes.Fetch(ctx, alice)
	require.NoError(t, err)
	assert.Len(t, got.Notes, 3)
	assert.Empty(t, got.SharedNotes, "own notes are not listed as shared")

	_, err = d.notes.Fetch(ctx, nil)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestNoteOwnerOnlyWrites(t *testing.T) {
	ctx := context.Background()
	d := newDeps()
	alice := d.user(t, "Alice", "alice@example.com")
	bob := d.user(t, "Bob", "bob@example.com")

	note, err := d.notes.Create(ctx, alice, model.CreateNoteRequest{Title: "mine"})
	require.NoError(t, err)

	title := "stolen"
	_, err = d.notes.Update(ctx, bob, note.ID, model.UpdateNoteRequest{Title: &title})
	assert.ErrorIs(t, err, ErrNoteNotFound)
	_, err = d.notes.Share(ctx, bob, note.ID, []string{"eve@example.com"})
	assert.ErrorIs(t, err, ErrNoteNotFound)
	_, err = d.notes.ShareWithAll(ctx, bob, note.ID, true)
	assert.ErrorIs(t, err, ErrNoteNotFound)
	assert.ErrorIs(t, d.notes.Delete(ctx, bob, note.ID), ErrNoteNotFound)

	tags := []string{"x"}
	updated, err := d.notes.Update(ctx, alice, note.ID, model.UpdateNoteRequest{Tags: &tags})
	require.NoError(t, err)
	assert.Equal(t, "mine", updated.Title)
	assert.Equal(t, []string{"x"}, updated.Tags)

	require.NoError(t, d.notes.Delete(ctx, alice, note.ID))
	assert.ErrorIs(t, d.notes.Delete(ctx, alice, note.ID), ErrNoteNotFound)
}

func TestShareMergesRecipients(t *testing.T) {
	ctx := context.Background()
	d := newDeps()
	alice := d.user(t, "Alice", "alice@example.com")

	note, err := d.notes.Create(ctx, alice, model.CreateNoteRequest{Title: "n"})
	require.NoError(t, err)

	_, err = d.notes.Share(ctx, alice, note.ID, []string{"b@example.com", "c@example.com"})
	require.NoError(t, err)
	shared, err := d.notes.Share(ctx, alice, note.ID, []string{"c@example.com", "d@example.com"})
	require.NoError(t, err)

	assert.True(t, shared.Shared)
	assert.Equal(t, []string{"b@example.com", "c@example.com", "d@example.com"}, shared.SharedWith)

	_, err = d.notes.Share(ctx, alice, note.ID, nil)
	assert.ErrorIs(t, err, ErrInvalidInput)

	private, err := d.notes.ShareWithAll(ctx, alice, note.ID, false)
	require.NoError(t, err)
	assert.False(t, private.Shared)
	assert.Empty(t, private.SharedWith)
}

func TestLikeToggles(t *testing.T) {
	ctx := context.Background()
	d := newDeps()
	alice := d.user(t, "Alice", "alice@example.com")
	bob := d.user(t, "Bob", "bob@example.com")

	note, err := d.notes.Create(ctx, alice, model.CreateNoteRequest{Title: "n"})
	require.NoError(t, err)

	_, err = d.notes.Like(ctx, bob, note.ID)
	assert.ErrorIs(t, err, ErrNoteNotFound, "private notes are invisible to others")

	_, err = d.notes.ShareWithAll(ctx, alice, note.ID, true)
	require.NoError(t, err)

	liked, err := d.notes.Like(ctx, bob, note.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{bob.ID}, liked.Likes)
	assert.Equal(t, []string{"Bob"}, liked.LikedByNames)

	liked, err = d.notes.Like(ctx, alice, note.ID)
	require.NoError(t, err)
	assert.Len(t, liked.Likes, 2)

	unliked, err := d.notes.Like(ctx, bob, note.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{alice.ID}, unliked.Likes)
	assert.Equal(t, []string{"Alice"}, unliked.LikedByNames)
}

func TestExportFormat(t *testing.T) {
	d := newDeps()
	at := time.Date(2024, 3, 4, 12, 0, 0, 0, time.UTC)

	data, name, err := d.notes.Export(nil, at)
	require.NoError(t, err)
	assert.Equal(t, "notes_export_2024-03-04.json", name)
	assert.Equal(t, "[]", string(data))

	data, _, err = d.notes.Export([]model.Note{{ID: "1", Title: "t", Tags: []string{}}}, at)
	require.NoError(t, err)
	assert.Contains(t, string(data), "\n  {\n    \"id\": \"1\"")
}

func TestImport(t *testing.T) {
	ctx := context.Background()
	d := newDeps()
	alice := d.user(t, "Alice", "alice@example.com")

	doc := []map[string]interface{}{
		{"id": "keep-out", "owner": "someone", "title": "From file", "content": "body", "tags": []string{"a", "b"}, "shared": true, "sharedWith": []string{"*"}},
		{"content": 42, "tags": "not-a-list"},
	}
	data, err := json.Marshal(doc)
	require.NoError(t, err)

	created, err := d.notes.Import(ctx, alice, data)
	require.NoError(t, err)
	require.Len(t, created, 2)

	assert.NotEqual(t, "keep-out", created[0].ID)
	assert.Equal(t, alice.ID, created[0].Owner)
	assert.Equal(t, "From file", created[0].Title)
	assert.Equal(t, []string{"a", "b"}, created[0].Tags)
	assert.False(t, created[0].Shared)
	assert.Empty(t, created[0].SharedWith)

	assert.Equal(t, "Imported Note", created[1].Title)
	assert.Equal(t, "", created[1].Content)
	assert.Equal(t, []string{}, created[1].Tags)

	for _, bad := range []string{`{"title": "x"}`, `null`, `not json`} {
		_, err := d.notes.Import(ctx, alice, []byte(bad))
		assert.ErrorIs(t, err, ErrInvalidImport, bad)
	}

	empty, err := d.notes.Import(ctx, alice, []byte(`[]`))
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestImportDefaultsNonObjectElements(t *testing.T) {
	ctx := context.Background()
	d := newDeps()
	alice := d.user(t, "Alice", "alice@example.com")

	created, err := d.notes.Import(ctx, alice, []byte(`[1, "text", null, ["x"], {"title": "x"}]`))
	require.NoError(t, err)
	require.Len(t, created, 5)

	for _, note := range created[:4] {
		assert.Equal(t, "Imported Note", note.Title)
		assert.Equal(t, "", note.Content)
		assert.Equal(t, []string{}, note.Tags)
		assert.Equal(t, alice.ID, note.Owner)
	}
	assert.Equal(t, "x", created[4].Title)
}
