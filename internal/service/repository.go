package service

import (
	"context"
	"time"

	"github.com/sre-portfolio/notetrack/internal/model"
)

// The interfaces below are the storage boundary. Implementations return
// repository.ErrUserNotFound, ErrTaskNotFound, ErrEntryNotFound and
// ErrNoteNotFound for missing or foreign rows.

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByID(ctx context.Context, id string) (*model.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
}

type TaskRepository interface {
	Create(ctx context.Context, task *model.Task) error
	GetByID(ctx context.Context, id, owner string) (*model.Task, error)
	List(ctx context.Context, owner string) ([]model.Task, error)
	ListByStatus(ctx context.Context, owner string, status model.TaskStatus) ([]model.Task, error)
	// MaxPosition returns -1 when the owner has no tasks.
	MaxPosition(ctx context.Context, owner string) (int, error)
	Update(ctx context.Context, task *model.Task) error
	// UpdateDetails writes title, description, color and position only and
	// refreshes task with the stored row.
	UpdateDetails(ctx context.Context, task *model.Task) error
	UpdatePosition(ctx context.Context, id, owner string, position int) error
	Delete(ctx context.Context, id, owner string) error
}

type TimeEntryRepository interface {
	Open(ctx context.Context, taskID string, start time.Time) (*model.TaskTimeEntry, error)
	GetOpen(ctx context.Context, taskID string) (*model.TaskTimeEntry, error)
	Close(ctx context.Context, id string, end time.Time) error
	ListByTask(ctx context.Context, taskID string) ([]model.TaskTimeEntry, error)
}

type NoteRepository interface {
	Create(ctx context.Context, note *model.Note) error
	CreateMany(ctx context.Context, notes []model.Note) ([]model.Note, error)
	GetByID(ctx context.Context, id string) (*model.Note, error)
	ListByOwner(ctx context.Context, owner string) ([]model.Note, error)
	ListSharedWith(ctx context.Context, email, excludeOwner string) ([]model.Note, error)
	ListPublic(ctx context.Context) ([]model.Note, error)
	Update(ctx context.Context, note *model.Note) error
	UpdateLikes(ctx context.Context, id string, likes, likedByNames []string) error
	Delete(ctx context.Context, id, owner string) error
}

// TokenStore keeps refresh tokens.
type TokenStore interface {
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
}

// Transactor runs fn so that every repository call made with the ctx it
// receives commits or rolls back together.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}
