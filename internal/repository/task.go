package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/sre-portfolio/notetrack/internal/model"
)

const taskColumns = `id, owner, title, description, status, position, color,
	started_at, paused_at, completed_at, total_time_seconds,
	active_time_accumulated_seconds, created_at, updated_at`

type TaskRepository struct {
	db *sql.DB
}

func NewTaskRepository(db *sql.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTask(row rowScanner) (*model.Task, error) {
	task := &model.Task{}
	err := row.Scan(
		&task.ID,
		&task.Owner,
		&task.Title,
		&task.Description,
		&task.Status,
		&task.Position,
		&task.Color,
		&task.StartedAt,
		&task.PausedAt,
		&task.CompletedAt,
		&task.TotalTimeSeconds,
		&task.ActiveTimeAccumulatedSeconds,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return task, nil
}

func (r *TaskRepository) Create(ctx context.Context, task *model.Task) error {
	query := `
		INSERT INTO tasks (id, owner, title, description, status, position, color,
			total_time_seconds, active_time_accumulated_seconds, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
		RETURNING created_at, updated_at
	`

	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	if task.Status == "" {
		task.Status = model.StatusPending
	}

	return conn(ctx, r.db).QueryRowContext(ctx, query,
		task.ID,
		task.Owner,
		task.Title,
		task.Description,
		task.Status,
		task.Position,
		task.Color,
		task.TotalTimeSeconds,
		task.ActiveTimeAccumulatedSeconds,
	).Scan(&task.CreatedAt, &task.UpdatedAt)
}

func (r *TaskRepository) GetByID(ctx context.Context, id, owner string) (*model.Task, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrTaskNotFound
	}

	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1 AND owner = $2`

	task, err := scanTask(conn(ctx, r.db).QueryRowContext(ctx, query, id, owner))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTaskNotFound
	}
	if err != nil {
		return nil, err
	}

	return task, nil
}

func (r *TaskRepository) List(ctx context.Context, owner string) ([]model.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE owner = $1 ORDER BY position ASC, created_at ASC`
	return r.query(ctx, query, owner)
}

func (r *TaskRepository) ListByStatus(ctx context.Context, owner string, status model.TaskStatus) ([]model.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE owner = $1 AND status = $2 ORDER BY position ASC`
	return r.query(ctx, query, owner, status)
}

func (r *TaskRepository) query(ctx context.Context, query string, args ...interface{}) ([]model.Task, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := []model.Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *task)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return tasks, nil
}

func (r *TaskRepository) MaxPosition(ctx context.Context, owner string) (int, error) {
	query := `SELECT COALESCE(MAX(position), -1) FROM tasks WHERE owner = $1`

	var position int
	if err := conn(ctx, r.db).QueryRowContext(ctx, query, owner).Scan(&position); err != nil {
		return 0, err
	}
	return position, nil
}

func (r *TaskRepository) Update(ctx context.Context, task *model.Task) error {
	query := `
		UPDATE tasks
		SET title = $1, description = $2, status = $3, position = $4, color = $5,
			started_at = $6, paused_at = $7, completed_at = $8,
			total_time_seconds = $9, active_time_accumulated_seconds = $10,
			updated_at = NOW()
		WHERE id = $11 AND owner = $12
		RETURNING updated_at
	`

	err := conn(ctx, r.db).QueryRowContext(ctx, query,
		task.Title,
		task.Description,
		task.Status,
		task.Position,
		task.Color,
		task.StartedAt,
		task.PausedAt,
		task.CompletedAt,
		task.TotalTimeSeconds,
		task.ActiveTimeAccumulatedSeconds,
		task.ID,
		task.Owner,
	).Scan(&task.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return ErrTaskNotFound
	}
	return err
}

// UpdateDetails leaves the lifecycle columns alone so an edit cannot undo a
// transition committed since the task was read.
func (r *TaskRepository) UpdateDetails(ctx context.Context, task *model.Task) error {
	query := `
		UPDATE tasks
		SET title = $1, description = $2, color = $3, position = $4, updated_at = NOW()
		WHERE id = $5 AND owner = $6
		RETURNING ` + taskColumns

	stored, err := scanTask(conn(ctx, r.db).QueryRowContext(ctx, query,
		task.Title,
		task.Description,
		task.Color,
		task.Position,
		task.ID,
		task.Owner,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return ErrTaskNotFound
	}
	if err != nil {
		return err
	}

	*task = *stored
	return nil
}

func (r *TaskRepository) UpdatePosition(ctx context.Context, id, owner string, position int) error {
	query := `
		UPDATE tasks
		SET position = $1, updated_at = NOW()
		WHERE id = $2 AND owner = $3
	`
	return execAffectingOne(ctx, conn(ctx, r.db), ErrTaskNotFound, query, position, id, owner)
}

func (r *TaskRepository) Delete(ctx context.Context, id, owner string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrTaskNotFound
	}

	query := `DELETE FROM tasks WHERE id = $1 AND owner = $2`
	return execAffectingOne(ctx, conn(ctx, r.db), ErrTaskNotFound, query, id, owner)
}

func execAffectingOne(ctx context.Context, q querier, notFound error, query string, args ...interface{}) error {
	result, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return notFound
	}

	return nil
}
