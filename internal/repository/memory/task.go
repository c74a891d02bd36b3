package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/sre-portfolio/notetrack/internal/model"
	"github.com/sre-portfolio/notetrack/internal/repository"
)

type TaskRepository struct {
	db *DB
}

func NewTaskRepository(db *DB) *TaskRepository {
	return &TaskRepository{db: db}
}

func cloneTask(t model.Task) model.Task {
	t.StartedAt = copyTime(t.StartedAt)
	t.PausedAt = copyTime(t.PausedAt)
	t.CompletedAt = copyTime(t.CompletedAt)
	return t
}

func (r *TaskRepository) Create(ctx context.Context, task *model.Task) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	if task.Status == "" {
		task.Status = model.StatusPending
	}
	now := r.db.now()
	task.CreatedAt = now
	task.UpdatedAt = now

	r.db.tasks[task.ID] = cloneTask(*task)
	r.db.track(task.ID)
	return nil
}

func (r *TaskRepository) GetByID(ctx context.Context, id, owner string) (*model.Task, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	t, ok := r.db.tasks[id]
	if !ok || t.Owner != owner {
		return nil, repository.ErrTaskNotFound
	}
	task := cloneTask(t)
	return &task, nil
}

func (r *TaskRepository) List(ctx context.Context, owner string) ([]model.Task, error) {
	return r.filter(owner, func(model.Task) bool { return true }), nil
}

func (r *TaskRepository) ListByStatus(ctx context.Context, owner string, status model.TaskStatus) ([]model.Task, error) {
	return r.filter(owner, func(t model.Task) bool { return t.Status == status }), nil
}

func (r *TaskRepository) filter(owner string, keep func(model.Task) bool) []model.Task {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	tasks := []model.Task{}
	for _, t := range r.db.tasks {
		if t.Owner == owner && keep(t) {
			tasks = append(tasks, cloneTask(t))
		}
	}

	sort.Slice(tasks, func(i, j int) bool {
		if tasks[i].Position != tasks[j].Position {
			return tasks[i].Position < tasks[j].Position
		}
		return r.db.order[tasks[i].ID] < r.db.order[tasks[j].ID]
	})
	return tasks
}

func (r *TaskRepository) MaxPosition(ctx context.Context, owner string) (int, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	max := -1
	for _, t := range r.db.tasks {
		if t.Owner == owner && t.Position > max {
			max = t.Position
		}
	}
	return max, nil
}

func (r *TaskRepository) Update(ctx context.Context, task *model.Task) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	existing, ok := r.db.tasks[task.ID]
	if !ok || existing.Owner != task.Owner {
		return repository.ErrTaskNotFound
	}

	task.CreatedAt = existing.CreatedAt
	task.UpdatedAt = r.db.now()
	r.db.tasks[task.ID] = cloneTask(*task)
	return nil
}

func (r *TaskRepository) UpdateDetails(ctx context.Context, task *model.Task) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	t, ok := r.db.tasks[task.ID]
	if !ok || t.Owner != task.Owner {
		return repository.ErrTaskNotFound
	}
	t.Title = task.Title
	t.Description = task.Description
	t.Color = task.Color
	t.Position = task.Position
	t.UpdatedAt = r.db.now()
	r.db.tasks[task.ID] = t

	*task = cloneTask(t)
	return nil
}

func (r *TaskRepository) UpdatePosition(ctx context.Context, id, owner string, position int) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	t, ok := r.db.tasks[id]
	if !ok || t.Owner != owner {
		return repository.ErrTaskNotFound
	}
	t.Position = position
	t.UpdatedAt = r.db.now()
	r.db.tasks[id] = t
	return nil
}

// Delete removes the task and its time entries.
func (r *TaskRepository) Delete(ctx context.Context, id, owner string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	t, ok := r.db.tasks[id]
	if !ok || t.Owner != owner {
		return repository.ErrTaskNotFound
	}

	delete(r.db.tasks, id)
	delete(r.db.order, id)
	for entryID, e := range r.db.entries {
		if e.TaskID == id {
			delete(r.db.entries, entryID)
			delete(r.db.order, entryID)
		}
	}
	return nil
}

type TimeEntryRepository struct {
	db *DB
}

func NewTimeEntryRepository(db *DB) *TimeEntryRepository {
	return &TimeEntryRepository{db: db}
}

func (r *TimeEntryRepository) Open(ctx context.Context, taskID string, start time.Time) (*model.TaskTimeEntry, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.tasks[taskID]; !ok {
		return nil, repository.ErrTaskNotFound
	}
	for _, e := range r.db.entries {
		if e.TaskID == taskID && e.IsOpen() {
			return nil, fmt.Errorf("task %s already has an open time entry", taskID)
		}
	}

	entry := model.TaskTimeEntry{
		ID:        uuid.NewString(),
		TaskID:    taskID,
		StartTime: start,
		CreatedAt: r.db.now(),
	}
	r.db.entries[entry.ID] = entry
	r.db.track(entry.ID)
	return &entry, nil
}

func (r *TimeEntryRepository) GetOpen(ctx context.Context, taskID string) (*model.TaskTimeEntry, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	for _, e := range r.db.entries {
		if e.TaskID == taskID && e.IsOpen() {
			entry := e
			return &entry, nil
		}
	}
	return nil, repository.ErrEntryNotFound
}

func (r *TimeEntryRepository) Close(ctx context.Context, id string, end time.Time) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	e, ok := r.db.entries[id]
	if !ok || !e.IsOpen() {
		return repository.ErrEntryNotFound
	}
	e.EndTime = &end
	r.db.entries[id] = e
	return nil
}

func (r *TimeEntryRepository) ListByTask(ctx context.Context, taskID string) ([]model.TaskTimeEntry, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	entries := []model.TaskTimeEntry{}
	for _, e := range r.db.entries {
		if e.TaskID == taskID {
			e.EndTime = copyTime(e.EndTime)
			entries = append(entries, e)
		}
	}

	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].StartTime.Equal(entries[j].StartTime) {
			return entries[i].StartTime.Before(entries[j].StartTime)
		}
		return r.db.order[entries[i].ID] < r.db.order[entries[j].ID]
	})
	return entries, nil
}
