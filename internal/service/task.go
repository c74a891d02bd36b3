package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sre-portfolio/notetrack/internal/model"
	"github.com/sre-portfolio/notetrack/internal/repository"
	"github.com/sre-portfolio/notetrack/internal/tracking"
)

// TaskService owns the task lifecycle and its time ledger. Lifecycle
// operations for one owner run one at a time inside a transaction, so two
// concurrent starts cannot both see "no other active task".
type TaskService struct {
	taskRepo  TaskRepository
	entryRepo TimeEntryRepository
	tx        Transactor
	now       func() time.Time

	locks sync.Map // owner -> *sync.Mutex
}

func NewTaskService(taskRepo TaskRepository, entryRepo TimeEntryRepository, tx Transactor) *TaskService {
	return &TaskService{
		taskRepo:  taskRepo,
		entryRepo: entryRepo,
		tx:        tx,
		now:       time.Now,
	}
}

// WithClock replaces the time source used for ledger timestamps.
func (s *TaskService) WithClock(now func() time.Time) *TaskService {
	s.now = now
	return s
}

func (s *TaskService) lockOwner(owner string) func() {
	v, _ := s.locks.LoadOrStore(owner, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

func (s *TaskService) List(ctx context.Context, userID string) ([]model.Task, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}
	return s.taskRepo.List(ctx, userID)
}

func (s *TaskService) GetByID(ctx context.Context, id, userID string) (*model.Task, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}
	return s.getTask(ctx, id, userID)
}

func (s *TaskService) getTask(ctx context.Context, id, userID string) (*model.Task, error) {
	task, err := s.taskRepo.GetByID(ctx, id, userID)
	if err != nil {
		if errors.Is(err, repository.ErrTaskNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}
	return task, nil
}

func (s *TaskService) Create(ctx context.Context, userID string, req model.CreateTaskRequest) (*model.Task, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: task title is required", ErrInvalidInput)
	}

	color := req.Color
	if color == "" {
		color = model.ColorGray
	}
	if !model.IsValidTaskColor(color) {
		return nil, fmt.Errorf("%w: unknown color %q", ErrInvalidInput, color)
	}

	unlock := s.lockOwner(userID)
	defer unlock()

	maxPosition, err := s.taskRepo.MaxPosition(ctx, userID)
	if err != nil {
		return nil, err
	}

	task := &model.Task{
		Owner:       userID,
		Title:       title,
		Description: req.Description,
		Status:      model.StatusPending,
		Position:    maxPosition + 1,
		Color:       color,
	}

	if err := s.taskRepo.Create(ctx, task); err != nil {
		return nil, err
	}

	return task, nil
}

// Update changes the descriptive fields of a task. Status and time
// tracking fields only move through Start, Pause and Complete.
func (s *TaskService) Update(ctx context.Context, id, userID string, req model.UpdateTaskRequest) (*model.Task, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}

	unlock := s.lockOwner(userID)
	defer unlock()

	var task *model.Task
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		task, err = s.getTask(ctx, id, userID)
		if err != nil {
			return err
		}

		if req.Title != nil {
			title := strings.TrimSpace(*req.Title)
			if title == "" {
				return fmt.Errorf("%w: task title is required", ErrInvalidInput)
			}
			task.Title = title
		}
		if req.Description != nil {
			task.Description = *req.Description
		}
		if req.Color != nil {
			if !model.IsValidTaskColor(*req.Color) {
				return fmt.Errorf("%w: unknown color %q", ErrInvalidInput, *req.Color)
			}
			task.Color = *req.Color
		}
		if req.Position != nil {
			task.Position = *req.Position
		}

		if err := s.taskRepo.UpdateDetails(ctx, task); err != nil {
			if errors.Is(err, repository.ErrTaskNotFound) {
				return ErrTaskNotFound
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return task, nil
}

// Delete removes the task. Its ledger entries go with it.
func (s *TaskService) Delete(ctx context.Context, id, userID string) error {
	if userID == "" {
		return ErrUnauthenticated
	}

	unlock := s.lockOwner(userID)
	defer unlock()

	if err := s.taskRepo.Delete(ctx, id, userID); err != nil {
		if errors.Is(err, repository.ErrTaskNotFound) {
			return ErrTaskNotFound
		}
		return err
	}
	return nil
}

// Start makes the task the owner's only active task. Every other active
// task is paused first, with its elapsed time accumulated. Starting a task
// that is already active only runs that cascade. The paused tasks are
// returned alongside the started one.
func (s *TaskService) Start(ctx context.Context, id, userID string) (*model.Task, []model.Task, error) {
	if userID == "" {
		return nil, nil, ErrUnauthenticated
	}

	unlock := s.lockOwner(userID)
	defer unlock()

	var (
		started *model.Task
		paused  []model.Task
		tracked int64
		opened  bool
	)

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		task, err := s.getTask(ctx, id, userID)
		if err != nil {
			return err
		}
		if !tracking.CanStart(task.Status) {
			return fmt.Errorf("%w: cannot start a %s task", ErrInvalidTransition, task.Status)
		}

		active, err := s.taskRepo.ListByStatus(ctx, userID, model.StatusActive)
		if err != nil {
			return err
		}

		for i := range active {
			other := active[i]
			if other.ID == task.ID {
				continue
			}
			secs, err := s.pause(ctx, &other)
			if err != nil {
				return fmt.Errorf("pause task %s: %w", other.ID, err)
			}
			tracked += secs
			paused = append(paused, other)
		}

		started = task
		if task.Status == model.StatusActive {
			return nil
		}

		now := s.now()
		if _, err := s.entryRepo.Open(ctx, task.ID, now); err != nil {
			return fmt.Errorf("open time entry: %w", err)
		}
		opened = true

		task.Status = model.StatusActive
		if task.StartedAt == nil {
			task.StartedAt = &now
		}
		task.PausedAt = nil

		return s.taskRepo.Update(ctx, task)
	})
	if err != nil {
		return nil, nil, err
	}

	taskTransitions.WithLabelValues("pause").Add(float64(len(paused)))
	trackedSeconds.Add(float64(tracked))
	if opened {
		taskTransitions.WithLabelValues("start").Inc()
	}

	return started, paused, nil
}

func (s *TaskService) Pause(ctx context.Context, id, userID string) (*model.Task, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}

	unlock := s.lockOwner(userID)
	defer unlock()

	var (
		task    *model.Task
		tracked int64
	)

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		task, err = s.getTask(ctx, id, userID)
		if err != nil {
			return err
		}
		if !tracking.CanPause(task.Status) {
			return fmt.Errorf("%w: cannot pause a %s task", ErrInvalidTransition, task.Status)
		}

		tracked, err = s.pause(ctx, task)
		return err
	})
	if err != nil {
		return nil, err
	}

	taskTransitions.WithLabelValues("pause").Inc()
	trackedSeconds.Add(float64(tracked))

	return task, nil
}

func (s *TaskService) Complete(ctx context.Context, id, userID string) (*model.Task, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}

	unlock := s.lockOwner(userID)
	defer unlock()

	var (
		task    *model.Task
		tracked int64
	)

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		task, err = s.getTask(ctx, id, userID)
		if err != nil {
			return err
		}
		if !tracking.CanComplete(task.Status) {
			return fmt.Errorf("%w: task is already completed", ErrInvalidTransition)
		}

		now := s.now()
		if task.Status == model.StatusActive {
			tracked, err = s.closeLedger(ctx, task, now)
			if err != nil {
				return err
			}
		}

		task.Status = model.StatusCompleted
		task.CompletedAt = &now

		return s.taskRepo.Update(ctx, task)
	})
	if err != nil {
		return nil, err
	}

	taskTransitions.WithLabelValues("complete").Inc()
	trackedSeconds.Add(float64(tracked))

	return task, nil
}

// pause closes the task's ledger and moves it to paused.
func (s *TaskService) pause(ctx context.Context, task *model.Task) (int64, error) {
	now := s.now()

	secs, err := s.closeLedger(ctx, task, now)
	if err != nil {
		return 0, err
	}

	task.Status = model.StatusPaused
	task.PausedAt = &now

	if err := s.taskRepo.Update(ctx, task); err != nil {
		return 0, err
	}
	return secs, nil
}

// closeLedger ends the open time entry, if any, and adds its span to the
// task's total.
func (s *TaskService) closeLedger(ctx context.Context, task *model.Task, now time.Time) (int64, error) {
	entry, err := s.entryRepo.GetOpen(ctx, task.ID)
	if errors.Is(err, repository.ErrEntryNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("fetch open time entry: %w", err)
	}

	if err := s.entryRepo.Close(ctx, entry.ID, now); err != nil {
		return 0, fmt.Errorf("close time entry: %w", err)
	}

	secs := tracking.ElapsedSeconds(entry.StartTime, now)
	task.TotalTimeSeconds += secs
	return secs, nil
}

// Reorder assigns position = index to the listed tasks. Tasks left out
// keep their relative order after the listed ones. The owner's tasks are
// returned in their new order.
func (s *TaskService) Reorder(ctx context.Context, userID string, taskIDs []string) ([]model.Task, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}
	if len(taskIDs) == 0 {
		return nil, fmt.Errorf("%w: no tasks to reorder", ErrInvalidInput)
	}

	unlock := s.lockOwner(userID)
	defer unlock()

	var ordered []model.Task

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		tasks, err := s.taskRepo.List(ctx, userID)
		if err != nil {
			return err
		}

		byID := make(map[string]int, len(tasks))
		for i, task := range tasks {
			byID[task.ID] = i
		}

		listed := make(map[string]bool, len(taskIDs))
		ordered = make([]model.Task, 0, len(tasks))
		for _, id := range taskIDs {
			i, ok := byID[id]
			if !ok {
				return ErrTaskNotFound
			}
			if listed[id] {
				return fmt.Errorf("%w: task %s listed twice", ErrInvalidInput, id)
			}
			listed[id] = true
			ordered = append(ordered, tasks[i])
		}
		for _, task := range tasks {
			if !listed[task.ID] {
				ordered = append(ordered, task)
			}
		}

		for position := range ordered {
			task := &ordered[position]
			if task.Position == position {
				continue
			}
			if err := s.taskRepo.UpdatePosition(ctx, task.ID, userID, position); err != nil {
				if errors.Is(err, repository.ErrTaskNotFound) {
					return ErrTaskNotFound
				}
				return err
			}
			task.Position = position
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return ordered, nil
}

// Entries lists the ledger of a task the user owns.
func (s *TaskService) Entries(ctx context.Context, id, userID string) ([]model.TaskTimeEntry, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}
	if _, err := s.getTask(ctx, id, userID); err != nil {
		return nil, err
	}
	return s.entryRepo.ListByTask(ctx, id)
}

// Elapsed is the task's tracked time including the running span of an
// active task.
func (s *TaskService) Elapsed(ctx context.Context, id, userID string) (int64, error) {
	if userID == "" {
		return 0, ErrUnauthenticated
	}

	task, err := s.getTask(ctx, id, userID)
	if err != nil {
		return 0, err
	}
	if task.Status != model.StatusActive {
		return task.TotalTimeSeconds, nil
	}

	open, err := s.entryRepo.GetOpen(ctx, task.ID)
	if err != nil && !errors.Is(err, repository.ErrEntryNotFound) {
		return 0, err
	}
	return tracking.LiveSeconds(*task, open, s.now()), nil
}
