package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sre-portfolio/notetrack/internal/config"
	"github.com/sre-portfolio/notetrack/internal/model"
	"github.com/sre-portfolio/notetrack/internal/repository/memory"
	"github.com/sre-portfolio/notetrack/internal/service"
	"github.com/sre-portfolio/notetrack/internal/tracking"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type fixture struct {
	clock *clock
	auth  *service.AuthService
	tasks *service.TaskService
	notes *service.NoteService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	c := &clock{t: time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)}
	db := memory.NewDB().WithClock(c.Now)

	return &fixture{
		clock: c,
		auth: service.NewAuthService(memory.NewUserRepository(db), memory.NewTokenStore(db), config.JWTConfig{
			Secret:           "test-secret",
			AccessExpiresIn:  time.Minute,
			RefreshExpiresIn: time.Hour,
		}),
		tasks: service.NewTaskService(memory.NewTaskRepository(db), memory.NewTimeEntryRepository(db), db).WithClock(c.Now),
		notes: service.NewNoteService(memory.NewNoteRepository(db), db),
	}
}

func (f *fixture) register(t *testing.T, name, email string) *model.User {
	t.Helper()
	user, err := f.auth.Register(context.Background(), model.RegisterRequest{Name: name, Email: email, Password: "password1"})
	require.NoError(t, err)
	return user
}

func (f *fixture) session(t *testing.T, user *model.User) *Session {
	t.Helper()
	s := NewSession(user.ID, f.auth, f.tasks, f.notes, SessionOptions{
		Aggregator: tracking.Aggregator{Location: time.UTC},
		Now:        f.clock.Now,
	})
	require.NoError(t, s.Init(context.Background()))
	return s
}

func TestSessionTrackingScenario(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := f.session(t, f.register(t, "Alice", "alice@example.com"))

	task, err := s.CreateTask(ctx, model.CreateTaskRequest{Title: "Write report"})
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, task.Status)
	assert.Zero(t, task.TotalTimeSeconds)

	_, _, err = s.StartTask(ctx, task.ID)
	require.NoError(t, err)
	f.clock.Advance(90 * time.Second)

	paused, err := s.PauseTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPaused, paused.Status)
	assert.Equal(t, int64(90), paused.TotalTimeSeconds)

	entries, err := s.TimeEntries(ctx, task.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.NotNil(t, entries[0].EndTime)
	assert.Equal(t, 90*time.Second, entries[0].EndTime.Sub(entries[0].StartTime))

	_, _, err = s.StartTask(ctx, task.ID)
	require.NoError(t, err)
	f.clock.Advance(30 * time.Second)

	completed, err := s.CompleteTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, completed.Status)
	assert.Equal(t, int64(120), completed.TotalTimeSeconds)
	assert.NotNil(t, completed.CompletedAt)

	entries, err = s.TimeEntries(ctx, task.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, 30*time.Second, entries[1].EndTime.Sub(entries[1].StartTime))

	cached, err := s.Task(task.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(120), cached.TotalTimeSeconds)
}

func TestSessionStartCascade(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := f.session(t, f.register(t, "Alice", "alice@example.com"))

	a, err := s.CreateTask(ctx, model.CreateTaskRequest{Title: "A"})
	require.NoError(t, err)
	b, err := s.CreateTask(ctx, model.CreateTaskRequest{Title: "B"})
	require.NoError(t, err)

	_, _, err = s.StartTask(ctx, a.ID)
	require.NoError(t, err)
	f.clock.Advance(45 * time.Second)

	started, paused, err := s.StartTask(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusActive, started.Status)
	require.Len(t, paused, 1)
	assert.Equal(t, a.ID, paused[0].ID)

	tasks, err := s.Tasks()
	require.NoError(t, err)

	active := 0
	for _, task := range tasks {
		if task.Status == model.StatusActive {
			active++
		}
		if task.ID == a.ID {
			assert.Equal(t, model.StatusPaused, task.Status)
			assert.Equal(t, int64(45), task.TotalTimeSeconds)
		}
	}
	assert.Equal(t, 1, active)
}

func TestSessionBackendFirst(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := f.session(t, f.register(t, "Alice", "alice@example.com"))

	task, err := s.CreateTask(ctx, model.CreateTaskRequest{Title: "A"})
	require.NoError(t, err)

	_, err = s.PauseTask(ctx, task.ID)
	assert.ErrorIs(t, err, service.ErrInvalidTransition)

	_, err = s.CreateTask(ctx, model.CreateTaskRequest{Title: "   "})
	assert.ErrorIs(t, err, service.ErrInvalidInput)

	tasks, err := s.Tasks()
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, model.StatusPending, tasks[0].Status)
}

func TestSessionReorderAndDelete(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := f.session(t, f.register(t, "Alice", "alice@example.com"))

	var ids []string
	for _, title := range []string{"one", "two", "three"} {
		task, err := s.CreateTask(ctx, model.CreateTaskRequest{Title: title})
		require.NoError(t, err)
		ids = append(ids, task.ID)
	}

	_, err := s.ReorderTasks(ctx, []string{ids[2], ids[0], ids[1]})
	require.NoError(t, err)

	tasks, err := s.Tasks()
	require.NoError(t, err)
	assert.Equal(t, []string{"three", "one", "two"}, []string{tasks[0].Title, tasks[1].Title, tasks[2].Title})

	require.NoError(t, s.DeleteTask(ctx, ids[0]))
	tasks, err = s.Tasks()
	require.NoError(t, err)
	assert.Len(t, tasks, 2)
}

func TestSessionMetricsUseCache(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := f.session(t, f.register(t, "Alice", "alice@example.com"))

	task, err := s.CreateTask(ctx, model.CreateTaskRequest{Title: "A"})
	require.NoError(t, err)
	_, _, err = s.StartTask(ctx, task.ID)
	require.NoError(t, err)
	f.clock.Advance(10 * time.Minute)
	_, err = s.PauseTask(ctx, task.ID)
	require.NoError(t, err)

	days, err := s.MetricsByDay()
	require.NoError(t, err)
	require.Len(t, days, 1)
	assert.Equal(t, "2024-03-04", days[0].Day)
	assert.Equal(t, int64(600), days[0].TotalSeconds)

	weeks, err := s.MetricsByWeek()
	require.NoError(t, err)
	require.Len(t, weeks, 1)
	assert.Equal(t, "2024-03-03", weeks[0].WeekStart)

	months, err := s.MetricsByMonth()
	require.NoError(t, err)
	require.Len(t, months, 1)
	assert.Equal(t, "2024-03", months[0].Month)
}

func TestSessionTeardown(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := f.session(t, f.register(t, "Alice", "alice@example.com"))

	_, err := s.CreateNote(ctx, model.CreateNoteRequest{Title: "n"})
	require.NoError(t, err)

	s.Teardown()

	_, err = s.Notes()
	assert.ErrorIs(t, err, service.ErrUnauthenticated)
	_, err = s.Tasks()
	assert.ErrorIs(t, err, service.ErrUnauthenticated)
	_, err = s.CreateTask(ctx, model.CreateTaskRequest{Title: "x"})
	assert.ErrorIs(t, err, service.ErrUnauthenticated)
	assert.ErrorIs(t, s.Init(ctx), service.ErrUnauthenticated)
}

func TestSessionInitUnknownUser(t *testing.T) {
	f := newFixture(t)
	s := NewSession("missing", f.auth, f.tasks, f.notes, SessionOptions{})
	assert.ErrorIs(t, s.Init(context.Background()), service.ErrUnauthenticated)
}

func TestSessionNotes(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := f.session(t, f.register(t, "Alice", "alice@example.com"))

	first, err := alice.CreateNote(ctx, model.CreateNoteRequest{Title: "first", Tags: []string{"go"}})
	require.NoError(t, err)
	f.clock.Advance(time.Second)
	second, err := alice.CreateNote(ctx, model.CreateNoteRequest{Title: "second", Content: "Go routines", Tags: []string{"go", "work"}})
	require.NoError(t, err)

	notes, err := alice.Notes()
	require.NoError(t, err)
	require.Len(t, notes, 2)
	assert.Equal(t, second.ID, notes[0].ID, "new notes are prepended")

	found, err := alice.SearchNotes("ROUTINES")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, second.ID, found[0].ID)

	tagged, err := alice.FilterNotesByTags([]string{"go", "work"})
	require.NoError(t, err)
	require.Len(t, tagged, 1)

	tags, err := alice.Tags()
	require.NoError(t, err)
	assert.Equal(t, []string{"go", "work"}, tags)

	_, err = alice.ShareNoteWithAll(ctx, first.ID, true)
	require.NoError(t, err)
	public, err := alice.PublicNotes()
	require.NoError(t, err)
	require.Len(t, public, 1)
	assert.Equal(t, first.ID, public[0].ID)

	bob := f.session(t, f.register(t, "Bob", "bob@example.com"))
	liked, err := bob.LikeNote(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Bob"}, liked.LikedByNames)

	bobPublic, err := bob.PublicNotes()
	require.NoError(t, err)
	require.Len(t, bobPublic, 1)
	assert.Equal(t, []string{"Bob"}, bobPublic[0].LikedByNames)

	_, err = alice.ShareNoteWithAll(ctx, first.ID, false)
	require.NoError(t, err)
	public, err = alice.PublicNotes()
	require.NoError(t, err)
	assert.Empty(t, public)

	require.NoError(t, alice.DeleteNote(ctx, second.ID))
	notes, err = alice.Notes()
	require.NoError(t, err)
	assert.Len(t, notes, 1)
}

func TestSessionRefreshNotesSeesOtherUsers(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := f.session(t, f.register(t, "Alice", "alice@example.com"))
	bob := f.session(t, f.register(t, "Bob", "bob@example.com"))

	note, err := bob.CreateNote(ctx, model.CreateNoteRequest{Title: "plan"})
	require.NoError(t, err)
	_, err = bob.ShareNote(ctx, note.ID, []string{"alice@example.com"})
	require.NoError(t, err)

	shared, err := alice.SharedNotes()
	require.NoError(t, err)
	assert.Empty(t, shared, "cached until refreshed")

	require.NoError(t, alice.RefreshNotes(ctx))
	shared, err = alice.SharedNotes()
	require.NoError(t, err)
	require.Len(t, shared, 1)
	assert.Equal(t, note.ID, shared[0].ID)

	_, err = bob.ShareNoteWithAll(ctx, note.ID, true)
	require.NoError(t, err)
	_, err = alice.LikeNote(ctx, note.ID)
	require.NoError(t, err)

	require.NoError(t, alice.RefreshNotes(ctx))
	public, err := alice.PublicNotes()
	require.NoError(t, err)
	require.Len(t, public, 1)
	assert.Equal(t, []string{"Alice"}, public[0].LikedByNames)

	require.NoError(t, bob.RefreshNotes(ctx))
	own, err := bob.Notes()
	require.NoError(t, err)
	require.Len(t, own, 1)
	assert.Equal(t, []string{"Alice"}, own[0].LikedByNames)

	bob.Teardown()
	assert.ErrorIs(t, bob.RefreshNotes(ctx), service.ErrUnauthenticated)
}

func TestSessionExportImport(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := f.session(t, f.register(t, "Alice", "alice@example.com"))

	_, err := s.CreateNote(ctx, model.CreateNoteRequest{Title: "keep", Tags: []string{"a"}})
	require.NoError(t, err)

	data, name, err := s.ExportNotes()
	require.NoError(t, err)
	assert.Equal(t, "notes_export_2024-03-04.json", name)

	imported, err := s.ImportNotes(ctx, data)
	require.NoError(t, err)
	require.Len(t, imported, 1)
	assert.Equal(t, "keep", imported[0].Title)

	notes, err := s.Notes()
	require.NoError(t, err)
	require.Len(t, notes, 2)
	assert.Equal(t, imported[0].ID, notes[0].ID)

	_, err = s.ImportNotes(ctx, []byte(`{"title": "not an array"}`))
	assert.ErrorIs(t, err, service.ErrInvalidImport)
}

func newManager(f *fixture, idle time.Duration) *Manager {
	return NewManager(f.auth, f.tasks, f.notes, ManagerOptions{
		Aggregator:  tracking.Aggregator{Location: time.UTC},
		IdleTimeout: idle,
		Logger:      zerolog.Nop(),
		Now:         f.clock.Now,
	})
}

func TestManagerOpenReusesSession(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	user := f.register(t, "Alice", "alice@example.com")
	m := newManager(f, time.Minute)
	defer m.Stop()

	s1, err := m.Open(ctx, user.ID)
	require.NoError(t, err)
	s2, err := m.Open(ctx, user.ID)
	require.NoError(t, err)
	assert.Same(t, s1, s2)
	assert.Equal(t, 1, m.Len())

	_, err = m.Open(ctx, "missing")
	assert.ErrorIs(t, err, service.ErrUnauthenticated)
	assert.Equal(t, 1, m.Len())
}

func TestManagerSignOutTearsDown(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	user := f.register(t, "Alice", "alice@example.com")
	m := newManager(f, time.Minute)
	defer m.Stop()

	s, err := m.Open(ctx, user.ID)
	require.NoError(t, err)

	require.NoError(t, f.auth.Logout(ctx, user.ID))

	require.Eventually(t, func() bool { return m.Len() == 0 }, time.Second, 10*time.Millisecond)
	assert.True(t, s.Closed())
}

func TestManagerSweep(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := f.register(t, "Alice", "alice@example.com")
	bob := f.register(t, "Bob", "bob@example.com")
	m := newManager(f, 10*time.Minute)
	defer m.Stop()

	stale, err := m.Open(ctx, alice.ID)
	require.NoError(t, err)

	f.clock.Advance(8 * time.Minute)
	_, err = m.Open(ctx, bob.ID)
	require.NoError(t, err)

	f.clock.Advance(5 * time.Minute)
	assert.Equal(t, 1, m.Sweep())
	assert.True(t, stale.Closed())
	assert.Equal(t, 1, m.Len())
}

// slowAuth holds CurrentUser until release is closed, keeping a session
// load in flight.
type slowAuth struct {
	*service.AuthService
	entered chan struct{}
	release chan struct{}
}

func (a *slowAuth) CurrentUser(ctx context.Context, userID string) (*model.User, error) {
	close(a.entered)
	<-a.release
	return a.AuthService.CurrentUser(ctx, userID)
}

func TestManagerSweepSparesSessionBeingOpened(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := f.register(t, "Alice", "alice@example.com")

	auth := &slowAuth{AuthService: f.auth, entered: make(chan struct{}), release: make(chan struct{})}
	m := NewManager(auth, f.tasks, f.notes, ManagerOptions{
		Aggregator:  tracking.Aggregator{Location: time.UTC},
		IdleTimeout: time.Minute,
		Logger:      zerolog.Nop(),
		Now:         f.clock.Now,
	})
	defer m.Stop()

	type opened struct {
		s   *Session
		err error
	}
	openCh := make(chan opened, 1)
	go func() {
		s, err := m.Open(ctx, alice.ID)
		openCh <- opened{s, err}
	}()
	<-auth.entered

	f.clock.Advance(2 * time.Minute)
	sweepCh := make(chan int, 1)
	go func() { sweepCh <- m.Sweep() }()
	time.Sleep(20 * time.Millisecond)
	close(auth.release)

	res := <-openCh
	require.NoError(t, res.err)
	assert.Equal(t, 0, <-sweepCh)

	_, err := res.s.Tasks()
	require.NoError(t, err)
	assert.False(t, res.s.Closed())
	assert.Equal(t, 1, m.Len())
}

func TestManagerStartSweeperRejectsBadSchedule(t *testing.T) {
	f := newFixture(t)
	m := newManager(f, time.Minute)
	defer m.Stop()

	assert.Error(t, m.StartSweeper("not a schedule"))
	assert.NoError(t, m.StartSweeper("@every 1h"))
}

func TestManagerSignInReloads(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := f.register(t, "Alice", "alice@example.com")
	m := newManager(f, time.Minute)
	defer m.Stop()

	s, err := m.Open(ctx, alice.ID)
	require.NoError(t, err)

	// Written behind the session's back, so the cache does not see it.
	_, err = f.tasks.Create(ctx, alice.ID, model.CreateTaskRequest{Title: "elsewhere"})
	require.NoError(t, err)

	tasks, err := s.Tasks()
	require.NoError(t, err)
	assert.Empty(t, tasks)

	_, err = f.auth.Login(ctx, model.LoginRequest{Email: "alice@example.com", Password: "password1"})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		reopened, err := m.Open(ctx, alice.ID)
		if err != nil {
			return false
		}
		tasks, err := reopened.Tasks()
		return err == nil && len(tasks) == 1
	}, time.Second, 10*time.Millisecond)
	assert.False(t, s.Closed())
}
