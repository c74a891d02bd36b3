package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/sre-portfolio/notetrack/internal/model"
)

const noteSelect = `
	SELECT n.id, n.owner, COALESCE(u.name, ''), n.title, n.content, n.tags,
		n.shared, n.shared_with, n.likes, n.liked_by_names, n.created_at, n.updated_at
	FROM notes n
	LEFT JOIN users u ON u.id = n.owner
`

type NoteRepository struct {
	db *sql.DB
}

func NewNoteRepository(db *sql.DB) *NoteRepository {
	return &NoteRepository{db: db}
}

func scanNote(row rowScanner) (*model.Note, error) {
	note := &model.Note{}
	err := row.Scan(
		&note.ID,
		&note.Owner,
		&note.CreatorName,
		&note.Title,
		&note.Content,
		pq.Array(&note.Tags),
		&note.Shared,
		pq.Array(&note.SharedWith),
		pq.Array(&note.Likes),
		pq.Array(&note.LikedByNames),
		&note.CreatedAt,
		&note.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	normalizeNote(note)
	return note, nil
}

func normalizeNote(note *model.Note) {
	if note.Tags == nil {
		note.Tags = []string{}
	}
	if note.SharedWith == nil {
		note.SharedWith = []string{}
	}
	if note.Likes == nil {
		note.Likes = []string{}
	}
	if note.LikedByNames == nil {
		note.LikedByNames = []string{}
	}
}

func (r *NoteRepository) Create(ctx context.Context, note *model.Note) error {
	return r.insert(ctx, conn(ctx, r.db), note)
}

// CreateMany inserts notes in order. Callers wanting all-or-nothing run it
// inside a transaction.
func (r *NoteRepository) CreateMany(ctx context.Context, notes []model.Note) ([]model.Note, error) {
	q := conn(ctx, r.db)
	created := make([]model.Note, 0, len(notes))
	for i := range notes {
		note := notes[i]
		if err := r.insert(ctx, q, &note); err != nil {
			return nil, err
		}
		created = append(created, note)
	}
	return created, nil
}

func (r *NoteRepository) insert(ctx context.Context, q querier, note *model.Note) error {
	query := `
		INSERT INTO notes (id, owner, title, content, tags, shared, shared_with, likes, liked_by_names, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
		RETURNING created_at, updated_at
	`

	if note.ID == "" {
		note.ID = uuid.NewString()
	}
	normalizeNote(note)

	return q.QueryRowContext(ctx, query,
		note.ID,
		note.Owner,
		note.Title,
		note.Content,
		pq.Array(note.Tags),
		note.Shared,
		pq.Array(note.SharedWith),
		pq.Array(note.Likes),
		pq.Array(note.LikedByNames),
	).Scan(&note.CreatedAt, &note.UpdatedAt)
}

func (r *NoteRepository) GetByID(ctx context.Context, id string) (*model.Note, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNoteNotFound
	}

	note, err := scanNote(conn(ctx, r.db).QueryRowContext(ctx, noteSelect+` WHERE n.id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoteNotFound
	}
	if err != nil {
		return nil, err
	}
	return note, nil
}

func (r *NoteRepository) ListByOwner(ctx context.Context, owner string) ([]model.Note, error) {
	return r.query(ctx, noteSelect+` WHERE n.owner = $1 ORDER BY n.updated_at DESC`, owner)
}

func (r *NoteRepository) ListSharedWith(ctx context.Context, email, excludeOwner string) ([]model.Note, error) {
	if email == "" {
		return []model.Note{}, nil
	}
	query := noteSelect + ` WHERE n.shared_with @> $1 AND n.owner <> $2 ORDER BY n.updated_at DESC`
	return r.query(ctx, query, pq.Array([]string{email}), excludeOwner)
}

func (r *NoteRepository) ListPublic(ctx context.Context) ([]model.Note, error) {
	query := noteSelect + ` WHERE n.shared_with @> $1 ORDER BY n.updated_at DESC`
	return r.query(ctx, query, pq.Array([]string{model.PublicShare}))
}

func (r *NoteRepository) query(ctx context.Context, query string, args ...interface{}) ([]model.Note, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	notes := []model.Note{}
	for rows.Next() {
		note, err := scanNote(rows)
		if err != nil {
			return nil, err
		}
		notes = append(notes, *note)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return notes, nil
}

func (r *NoteRepository) Update(ctx context.Context, note *model.Note) error {
	query := `
		UPDATE notes
		SET title = $1, content = $2, tags = $3, shared = $4, shared_with = $5, updated_at = NOW()
		WHERE id = $6 AND owner = $7
		RETURNING updated_at
	`

	normalizeNote(note)
	err := conn(ctx, r.db).QueryRowContext(ctx, query,
		note.Title,
		note.Content,
		pq.Array(note.Tags),
		note.Shared,
		pq.Array(note.SharedWith),
		note.ID,
		note.Owner,
	).Scan(&note.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return ErrNoteNotFound
	}
	return err
}

// UpdateLikes is not owner scoped: any user who can see a note may like it.
func (r *NoteRepository) UpdateLikes(ctx context.Context, id string, likes, likedByNames []string) error {
	query := `UPDATE notes SET likes = $1, liked_by_names = $2 WHERE id = $3`
	return execAffectingOne(ctx, conn(ctx, r.db), ErrNoteNotFound, query, pq.Array(likes), pq.Array(likedByNames), id)
}

func (r *NoteRepository) Delete(ctx context.Context, id, owner string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrNoteNotFound
	}

	query := `DELETE FROM notes WHERE id = $1 AND owner = $2`
	return execAffectingOne(ctx, conn(ctx, r.db), ErrNoteNotFound, query, id, owner)
}
