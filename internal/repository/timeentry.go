package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/sre-portfolio/notetrack/internal/model"
)

type TimeEntryRepository struct {
	db *sql.DB
}

func NewTimeEntryRepository(db *sql.DB) *TimeEntryRepository {
	return &TimeEntryRepository{db: db}
}

func (r *TimeEntryRepository) Open(ctx context.Context, taskID string, start time.Time) (*model.TaskTimeEntry, error) {
	query := `
		INSERT INTO task_time_entries (id, task_id, start_time, created_at)
		VALUES ($1, $2, $3, NOW())
		RETURNING created_at
	`

	entry := &model.TaskTimeEntry{
		ID:        uuid.NewString(),
		TaskID:    taskID,
		StartTime: start,
	}

	if err := conn(ctx, r.db).QueryRowContext(ctx, query, entry.ID, taskID, start).Scan(&entry.CreatedAt); err != nil {
		return nil, err
	}
	return entry, nil
}

func (r *TimeEntryRepository) GetOpen(ctx context.Context, taskID string) (*model.TaskTimeEntry, error) {
	query := `
		SELECT id, task_id, start_time, end_time, created_at
		FROM task_time_entries
		WHERE task_id = $1 AND end_time IS NULL
		ORDER BY start_time DESC
		LIMIT 1
	`

	entry := &model.TaskTimeEntry{}
	err := conn(ctx, r.db).QueryRowContext(ctx, query, taskID).Scan(
		&entry.ID,
		&entry.TaskID,
		&entry.StartTime,
		&entry.EndTime,
		&entry.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrEntryNotFound
	}
	if err != nil {
		return nil, err
	}
	return entry, nil
}

func (r *TimeEntryRepository) Close(ctx context.Context, id string, end time.Time) error {
	query := `UPDATE task_time_entries SET end_time = $1 WHERE id = $2 AND end_time IS NULL`
	return execAffectingOne(ctx, conn(ctx, r.db), ErrEntryNotFound, query, end, id)
}

func (r *TimeEntryRepository) ListByTask(ctx context.Context, taskID string) ([]model.TaskTimeEntry, error) {
	query := `
		SELECT id, task_id, start_time, end_time, created_at
		FROM task_time_entries
		WHERE task_id = $1
		ORDER BY start_time ASC
	`

	rows, err := conn(ctx, r.db).QueryContext(ctx, query, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []model.TaskTimeEntry{}
	for rows.Next() {
		var entry model.TaskTimeEntry
		if err := rows.Scan(&entry.ID, &entry.TaskID, &entry.StartTime, &entry.EndTime, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	return entries, rows.Err()
}
