// Package store keeps a per-user, in-memory view of tasks and notes in
// front of the services. Every write goes to the backend first; the cached
// collections only change after it succeeds.
package store

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sre-portfolio/notetrack/internal/model"
	"github.com/sre-portfolio/notetrack/internal/query"
	"github.com/sre-portfolio/notetrack/internal/service"
	"github.com/sre-portfolio/notetrack/internal/tracking"
)

type UserSource interface {
	CurrentUser(ctx context.Context, userID string) (*model.User, error)
}

// TaskBackend is implemented by *service.TaskService.
type TaskBackend interface {
	List(ctx context.Context, userID string) ([]model.Task, error)
	Create(ctx context.Context, userID string, req model.CreateTaskRequest) (*model.Task, error)
	Update(ctx context.Context, id, userID string, req model.UpdateTaskRequest) (*model.Task, error)
	Delete(ctx context.Context, id, userID string) error
	Start(ctx context.Context, id, userID string) (*model.Task, []model.Task, error)
	Pause(ctx context.Context, id, userID string) (*model.Task, error)
	Complete(ctx context.Context, id, userID string) (*model.Task, error)
	Reorder(ctx context.Context, userID string, taskIDs []string) ([]model.Task, error)
	Entries(ctx context.Context, id, userID string) ([]model.TaskTimeEntry, error)
	Elapsed(ctx context.Context, id, userID string) (int64, error)
}

// NoteBackend is implemented by *service.NoteService.
type NoteBackend interface {
	Fetch(ctx context.Context, user *model.User) (*model.NoteCollections, error)
	Create(ctx context.Context, user *model.User, req model.CreateNoteRequest) (*model.Note, error)
	Update(ctx context.Context, user *model.User, id string, req model.UpdateNoteRequest) (*model.Note, error)
	Delete(ctx context.Context, user *model.User, id string) error
	Share(ctx context.Context, user *model.User, id string, emails []string) (*model.Note, error)
	ShareWithAll(ctx context.Context, user *model.User, id string, share bool) (*model.Note, error)
	Like(ctx context.Context, user *model.User, id string) (*model.Note, error)
	Export(notes []model.Note, at time.Time) ([]byte, string, error)
	Import(ctx context.Context, user *model.User, data []byte) ([]model.Note, error)
}

// Session is one user's cached state. Operations on a session run one at
// a time. After Teardown every operation fails with
// service.ErrUnauthenticated.
type Session struct {
	userID string
	users  UserSource
	tasks  TaskBackend
	notes  NoteBackend
	agg    tracking.Aggregator
	now    func() time.Time

	mu          sync.Mutex
	initialized bool
	stale       bool
	closed      bool

	// Unix nanoseconds; read by the manager without taking mu.
	lastUsed atomic.Int64

	user        *model.User
	taskList    []model.Task
	noteList    []model.Note
	sharedNotes []model.Note
	publicNotes []model.Note
}

type SessionOptions struct {
	Aggregator tracking.Aggregator
	Now        func() time.Time
}

func NewSession(userID string, users UserSource, tasks TaskBackend, notes NoteBackend, opts SessionOptions) *Session {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	s := &Session{
		userID: userID,
		users:  users,
		tasks:  tasks,
		notes:  notes,
		agg:    opts.Aggregator,
		now:    now,
	}
	s.touch()
	return s
}

func (s *Session) UserID() string {
	return s.userID
}

// Init resolves the session's user and loads their tasks and notes. It is
// a no-op on an initialized session unless Invalidate was called since.
func (s *Session) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return service.ErrUnauthenticated
	}
	if s.initialized && !s.stale {
		s.touch()
		return nil
	}
	return s.load(ctx)
}

// RefreshNotes reloads the note collections. Other users can share, publish
// or like notes at any time, so reads of those collections call it first.
func (s *Session) RefreshNotes(ctx context.Context) error {
	if err := s.begin(); err != nil {
		return err
	}
	defer s.mu.Unlock()

	collections, err := s.notes.Fetch(ctx, s.user)
	if err != nil {
		return err
	}
	s.noteList = collections.Notes
	s.sharedNotes = collections.SharedNotes
	s.publicNotes = collections.PublicNotes
	return nil
}

func (s *Session) load(ctx context.Context) error {
	user, err := s.users.CurrentUser(ctx, s.userID)
	if err != nil {
		return err
	}

	tasks, err := s.tasks.List(ctx, user.ID)
	if err != nil {
		return err
	}

	collections, err := s.notes.Fetch(ctx, user)
	if err != nil {
		return err
	}

	s.user = user
	s.taskList = tasks
	sortByPosition(s.taskList)
	s.noteList = collections.Notes
	s.sharedNotes = collections.SharedNotes
	s.publicNotes = collections.PublicNotes
	s.initialized = true
	s.stale = false
	s.touch()
	return nil
}

// Invalidate makes the next Init reload from the backend. Cached data keeps
// serving until then.
func (s *Session) Invalidate() {
	s.mu.Lock()
	s.stale = true
	s.mu.Unlock()
}

// Teardown drops every cached collection and closes the session.
func (s *Session) Teardown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.teardown()
}

// closeIfIdle tears the session down only if it has not been used since
// cutoff, checked under the session lock so a request that got in first
// keeps it alive.
func (s *Session) closeIfIdle(cutoff time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || !s.LastUsed().Before(cutoff) {
		return false
	}
	s.teardown()
	return true
}

func (s *Session) teardown() {
	s.closed = true
	s.initialized = false
	s.user = nil
	s.taskList = nil
	s.noteList = nil
	s.sharedNotes = nil
	s.publicNotes = nil
}

func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// LastUsed reports when the session last served an operation.
func (s *Session) LastUsed() time.Time {
	return time.Unix(0, s.lastUsed.Load())
}

func (s *Session) touch() {
	s.lastUsed.Store(s.now().UnixNano())
}

// begin locks the session for one operation. On success the caller
// owns the lock and must release it.
func (s *Session) begin() error {
	s.mu.Lock()
	if s.closed || !s.initialized {
		s.mu.Unlock()
		return service.ErrUnauthenticated
	}
	s.touch()
	return nil
}

func (s *Session) User() (*model.User, error) {
	if err := s.begin(); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()
	u := *s.user
	return &u, nil
}

func sortByPosition(tasks []model.Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		return tasks[i].Position < tasks[j].Position
	})
}

func (s *Session) replaceTask(task model.Task) {
	for i := range s.taskList {
		if s.taskList[i].ID == task.ID {
			s.taskList[i] = task
			return
		}
	}
	s.taskList = append(s.taskList, task)
}

func (s *Session) Tasks() ([]model.Task, error) {
	if err := s.begin(); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()
	return append([]model.Task{}, s.taskList...), nil
}

func (s *Session) Task(id string) (*model.Task, error) {
	if err := s.begin(); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()
	for _, t := range s.taskList {
		if t.ID == id {
			task := t
			return &task, nil
		}
	}
	return nil, service.ErrTaskNotFound
}

func (s *Session) CreateTask(ctx context.Context, req model.CreateTaskRequest) (*model.Task, error) {
	if err := s.begin(); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()

	task, err := s.tasks.Create(ctx, s.userID, req)
	if err != nil {
		return nil, err
	}

	s.taskList = append(s.taskList, *task)
	sortByPosition(s.taskList)
	return task, nil
}

func (s *Session) UpdateTask(ctx context.Context, id string, req model.UpdateTaskRequest) (*model.Task, error) {
	if err := s.begin(); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()

	task, err := s.tasks.Update(ctx, id, s.userID, req)
	if err != nil {
		return nil, err
	}

	s.replaceTask(*task)
	sortByPosition(s.taskList)
	return task, nil
}

func (s *Session) DeleteTask(ctx context.Context, id string) error {
	if err := s.begin(); err != nil {
		return err
	}
	defer s.mu.Unlock()

	if err := s.tasks.Delete(ctx, id, s.userID); err != nil {
		return err
	}

	kept := s.taskList[:0]
	for _, t := range s.taskList {
		if t.ID != id {
			kept = append(kept, t)
		}
	}
	s.taskList = kept
	return nil
}

// StartTask starts the task and pauses whatever else was active. The
// returned slice holds the tasks paused by the cascade.
func (s *Session) StartTask(ctx context.Context, id string) (*model.Task, []model.Task, error) {
	if err := s.begin(); err != nil {
		return nil, nil, err
	}
	defer s.mu.Unlock()

	started, paused, err := s.tasks.Start(ctx, id, s.userID)
	if err != nil {
		return nil, nil, err
	}

	for _, p := range paused {
		s.replaceTask(p)
	}
	s.replaceTask(*started)

	// Anything still cached as active lost the race to the backend's view.
	for i := range s.taskList {
		t := &s.taskList[i]
		if t.ID != started.ID && t.Status == model.StatusActive {
			t.Status = model.StatusPaused
		}
	}
	return started, paused, nil
}

func (s *Session) PauseTask(ctx context.Context, id string) (*model.Task, error) {
	if err := s.begin(); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()

	task, err := s.tasks.Pause(ctx, id, s.userID)
	if err != nil {
		return nil, err
	}
	s.replaceTask(*task)
	return task, nil
}

func (s *Session) CompleteTask(ctx context.Context, id string) (*model.Task, error) {
	if err := s.begin(); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()

	task, err := s.tasks.Complete(ctx, id, s.userID)
	if err != nil {
		return nil, err
	}
	s.replaceTask(*task)
	return task, nil
}

func (s *Session) ReorderTasks(ctx context.Context, taskIDs []string) ([]model.Task, error) {
	if err := s.begin(); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()

	ordered, err := s.tasks.Reorder(ctx, s.userID, taskIDs)
	if err != nil {
		return nil, err
	}

	s.taskList = append([]model.Task{}, ordered...)
	return ordered, nil
}

func (s *Session) TimeEntries(ctx context.Context, id string) ([]model.TaskTimeEntry, error) {
	if err := s.begin(); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()
	return s.tasks.Entries(ctx, id, s.userID)
}

func (s *Session) Elapsed(ctx context.Context, id string) (int64, error) {
	if err := s.begin(); err != nil {
		return 0, err
	}
	defer s.mu.Unlock()
	return s.tasks.Elapsed(ctx, id, s.userID)
}

// The metrics views are recomputed from the cached task list on every call.

func (s *Session) MetricsByDay() ([]model.TimeMetrics, error) {
	if err := s.begin(); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()
	return s.agg.ByDay(s.taskList), nil
}

func (s *Session) MetricsByWeek() ([]model.WeekMetrics, error) {
	if err := s.begin(); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()
	return s.agg.ByWeek(s.taskList), nil
}

func (s *Session) MetricsByMonth() ([]model.MonthMetrics, error) {
	if err := s.begin(); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()
	return s.agg.ByMonth(s.taskList), nil
}

func (s *Session) Notes() ([]model.Note, error) {
	if err := s.begin(); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()
	return append([]model.Note{}, s.noteList...), nil
}

func (s *Session) SharedNotes() ([]model.Note, error) {
	if err := s.begin(); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()
	return append([]model.Note{}, s.sharedNotes...), nil
}

func (s *Session) PublicNotes() ([]model.Note, error) {
	if err := s.begin(); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()
	return append([]model.Note{}, s.publicNotes...), nil
}

// SearchNotes matches the user's own notes against q.
func (s *Session) SearchNotes(q string) ([]model.Note, error) {
	notes, err := s.Notes()
	if err != nil {
		return nil, err
	}
	return query.Search(notes, q), nil
}

func (s *Session) FilterNotesByTags(tags []string) ([]model.Note, error) {
	notes, err := s.Notes()
	if err != nil {
		return nil, err
	}
	return query.FilterByTags(notes, tags), nil
}

// Tags lists the distinct tags used on the user's own notes.
func (s *Session) Tags() ([]string, error) {
	notes, err := s.Notes()
	if err != nil {
		return nil, err
	}
	return query.Tags(notes), nil
}

func (s *Session) CreateNote(ctx context.Context, req model.CreateNoteRequest) (*model.Note, error) {
	if err := s.begin(); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()

	note, err := s.notes.Create(ctx, s.user, req)
	if err != nil {
		return nil, err
	}

	s.noteList = append([]model.Note{*note}, s.noteList...)
	s.syncPublic(*note)
	return note, nil
}

func (s *Session) UpdateNote(ctx context.Context, id string, req model.UpdateNoteRequest) (*model.Note, error) {
	if err := s.begin(); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()

	note, err := s.notes.Update(ctx, s.user, id, req)
	if err != nil {
		return nil, err
	}
	s.applyNote(*note)
	return note, nil
}

func (s *Session) DeleteNote(ctx context.Context, id string) error {
	if err := s.begin(); err != nil {
		return err
	}
	defer s.mu.Unlock()

	if err := s.notes.Delete(ctx, s.user, id); err != nil {
		return err
	}

	s.noteList = removeNote(s.noteList, id)
	s.sharedNotes = removeNote(s.sharedNotes, id)
	s.publicNotes = removeNote(s.publicNotes, id)
	return nil
}

func (s *Session) ShareNote(ctx context.Context, id string, emails []string) (*model.Note, error) {
	if err := s.begin(); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()

	note, err := s.notes.Share(ctx, s.user, id, emails)
	if err != nil {
		return nil, err
	}
	s.applyNote(*note)
	return note, nil
}

func (s *Session) ShareNoteWithAll(ctx context.Context, id string, share bool) (*model.Note, error) {
	if err := s.begin(); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()

	note, err := s.notes.ShareWithAll(ctx, s.user, id, share)
	if err != nil {
		return nil, err
	}
	s.applyNote(*note)
	return note, nil
}

// LikeNote toggles the user's like and updates the note in every cached
// collection that holds it.
func (s *Session) LikeNote(ctx context.Context, id string) (*model.Note, error) {
	if err := s.begin(); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()

	note, err := s.notes.Like(ctx, s.user, id)
	if err != nil {
		return nil, err
	}

	replaceNote(s.noteList, *note)
	replaceNote(s.sharedNotes, *note)
	replaceNote(s.publicNotes, *note)
	return note, nil
}

// ExportNotes serializes the user's own notes.
func (s *Session) ExportNotes() ([]byte, string, error) {
	if err := s.begin(); err != nil {
		return nil, "", err
	}
	defer s.mu.Unlock()
	return s.notes.Export(s.noteList, s.now())
}

func (s *Session) ImportNotes(ctx context.Context, data []byte) ([]model.Note, error) {
	if err := s.begin(); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()

	created, err := s.notes.Import(ctx, s.user, data)
	if err != nil {
		return nil, err
	}

	s.noteList = append(append([]model.Note{}, created...), s.noteList...)
	return created, nil
}

// applyNote stores an owner edit in the cached collections.
func (s *Session) applyNote(note model.Note) {
	replaceNote(s.noteList, note)
	replaceNote(s.sharedNotes, note)
	s.syncPublic(note)
}

// syncPublic keeps the public collection in step with the note's visibility.
func (s *Session) syncPublic(note model.Note) {
	present := false
	for _, n := range s.publicNotes {
		if n.ID == note.ID {
			present = true
			break
		}
	}

	switch {
	case note.IsPublic() && present:
		replaceNote(s.publicNotes, note)
	case note.IsPublic():
		s.publicNotes = append([]model.Note{note}, s.publicNotes...)
	case present:
		s.publicNotes = removeNote(s.publicNotes, note.ID)
	}
}

func replaceNote(notes []model.Note, note model.Note) {
	for i := range notes {
		if notes[i].ID == note.ID {
			notes[i] = note
		}
	}
}

func removeNote(notes []model.Note, id string) []model.Note {
	kept := make([]model.Note, 0, len(notes))
	for _, n := range notes {
		if n.ID != id {
			kept = append(kept, n)
		}
	}
	return kept
}
