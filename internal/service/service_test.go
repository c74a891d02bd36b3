package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sre-portfolio/notetrack/internal/config"
	"github.com/sre-portfolio/notetrack/internal/model"
	"github.com/sre-portfolio/notetrack/internal/repository/memory"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

var testJWT = config.JWTConfig{
	Secret:           "test-secret",
	AccessExpiresIn:  time.Minute,
	RefreshExpiresIn: time.Hour,
}

type deps struct {
	db    *memory.DB
	clock *fakeClock
	tasks *TaskService
	notes *NoteService
	auth  *AuthService
}

func newDeps() *deps {
	clock := newFakeClock()
	db := memory.NewDB().WithClock(clock.Now)
	return &deps{
		db:    db,
		clock: clock,
		tasks: NewTaskService(memory.NewTaskRepository(db), memory.NewTimeEntryRepository(db), db).WithClock(clock.Now),
		notes: NewNoteService(memory.NewNoteRepository(db), db),
		auth:  NewAuthService(memory.NewUserRepository(db), memory.NewTokenStore(db), testJWT),
	}
}

func (d *deps) user(t *testing.T, name, email string) *model.User {
	t.Helper()
	u, err := d.auth.Register(context.Background(), model.RegisterRequest{Name: name, Email: email, Password: "password1"})
	require.NoError(t, err)
	return u
}

var errBackend = errors.New("backend unavailable")

// failingEntries fails Open once armed, to exercise rollback paths.
type failingEntries struct {
	TimeEntryRepository
	fail bool
}

func (f *failingEntries) Open(ctx context.Context, taskID string, start time.Time) (*model.TaskTimeEntry, error) {
	if f.fail {
		return nil, errBackend
	}
	return f.TimeEntryRepository.Open(ctx, taskID, start)
}

// gatedTasks parks the first GetByID made after arming until release is
// closed, holding a read open while other operations run.
type gatedTasks struct {
	TaskRepository
	armed   atomic.Bool
	once    sync.Once
	reached chan struct{}
	release chan struct{}
}

func newGatedTasks(repo TaskRepository) *gatedTasks {
	return &gatedTasks{
		TaskRepository: repo,
		reached:        make(chan struct{}),
		release:        make(chan struct{}),
	}
}

func (g *gatedTasks) GetByID(ctx context.Context, id, owner string) (*model.Task, error) {
	task, err := g.TaskRepository.GetByID(ctx, id, owner)
	if g.armed.Load() {
		g.once.Do(func() {
			close(g.reached)
			<-g.release
		})
	}
	return task, err
}
