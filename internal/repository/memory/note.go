package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/sre-portfolio/notetrack/internal/model"
	"github.com/sre-portfolio/notetrack/internal/repository"
)

type NoteRepository struct {
	db *DB
}

func NewNoteRepository(db *DB) *NoteRepository {
	return &NoteRepository{db: db}
}

func cloneNote(n model.Note) model.Note {
	n.Tags = copyStrings(n.Tags)
	n.SharedWith = copyStrings(n.SharedWith)
	n.Likes = copyStrings(n.Likes)
	n.LikedByNames = copyStrings(n.LikedByNames)
	return n
}

func (r *NoteRepository) Create(ctx context.Context, note *model.Note) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	r.insert(note)
	return nil
}

func (r *NoteRepository) CreateMany(ctx context.Context, notes []model.Note) ([]model.Note, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	created := make([]model.Note, 0, len(notes))
	for i := range notes {
		note := notes[i]
		r.insert(&note)
		created = append(created, note)
	}
	return created, nil
}

// insert requires db.mu held for writing.
func (r *NoteRepository) insert(note *model.Note) {
	if note.ID == "" {
		note.ID = uuid.NewString()
	}
	now := r.db.now()
	note.CreatedAt = now
	note.UpdatedAt = now
	*note = cloneNote(*note)
	note.CreatorName = r.db.users[note.Owner].Name

	r.db.notes[note.ID] = cloneNote(*note)
	r.db.track(note.ID)
}

func (r *NoteRepository) GetByID(ctx context.Context, id string) (*model.Note, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	n, ok := r.db.notes[id]
	if !ok {
		return nil, repository.ErrNoteNotFound
	}
	note := r.view(n)
	return &note, nil
}

// view copies n and resolves the creator name; callers hold db.mu.
func (r *NoteRepository) view(n model.Note) model.Note {
	note := cloneNote(n)
	note.CreatorName = r.db.users[n.Owner].Name
	return note
}

func (r *NoteRepository) ListByOwner(ctx context.Context, owner string) ([]model.Note, error) {
	return r.filter(func(n model.Note) bool { return n.Owner == owner }), nil
}

func (r *NoteRepository) ListSharedWith(ctx context.Context, email, excludeOwner string) ([]model.Note, error) {
	if email == "" {
		return []model.Note{}, nil
	}
	return r.filter(func(n model.Note) bool {
		return n.Owner != excludeOwner && contains(n.SharedWith, email)
	}), nil
}

func (r *NoteRepository) ListPublic(ctx context.Context) ([]model.Note, error) {
	return r.filter(func(n model.Note) bool { return contains(n.SharedWith, model.PublicShare) }), nil
}

// filter returns matching notes, most recently updated first.
func (r *NoteRepository) filter(keep func(model.Note) bool) []model.Note {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	notes := []model.Note{}
	for _, n := range r.db.notes {
		if keep(n) {
			notes = append(notes, r.view(n))
		}
	}

	sort.Slice(notes, func(i, j int) bool {
		if !notes[i].UpdatedAt.Equal(notes[j].UpdatedAt) {
			return notes[i].UpdatedAt.After(notes[j].UpdatedAt)
		}
		return r.db.order[notes[i].ID] > r.db.order[notes[j].ID]
	})
	return notes
}

func (r *NoteRepository) Update(ctx context.Context, note *model.Note) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	existing, ok := r.db.notes[note.ID]
	if !ok || existing.Owner != note.Owner {
		return repository.ErrNoteNotFound
	}

	existing.Title = note.Title
	existing.Content = note.Content
	existing.Tags = copyStrings(note.Tags)
	existing.Shared = note.Shared
	existing.SharedWith = copyStrings(note.SharedWith)
	existing.UpdatedAt = r.db.now()
	r.db.notes[note.ID] = existing

	note.UpdatedAt = existing.UpdatedAt
	return nil
}

func (r *NoteRepository) UpdateLikes(ctx context.Context, id string, likes, likedByNames []string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	n, ok := r.db.notes[id]
	if !ok {
		return repository.ErrNoteNotFound
	}
	n.Likes = copyStrings(likes)
	n.LikedByNames = copyStrings(likedByNames)
	r.db.notes[id] = n
	return nil
}

func (r *NoteRepository) Delete(ctx context.Context, id, owner string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	n, ok := r.db.notes[id]
	if !ok || n.Owner != owner {
		return repository.ErrNoteNotFound
	}
	delete(r.db.notes, id)
	delete(r.db.order, id)
	return nil
}

func contains(list []string, value string) bool {
	for _, v := range list {
		if v == value {
			return true
		}
	}
	return false
}
