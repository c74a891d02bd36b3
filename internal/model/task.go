package model

import "time"

type TaskStatus string

const (
	StatusPending   TaskStatus = "pending"
	StatusActive    TaskStatus = "active"
	StatusPaused    TaskStatus = "paused"
	StatusCompleted TaskStatus = "completed"
)

type TaskColor string

const (
	ColorGray   TaskColor = "gray"
	ColorRed    TaskColor = "red"
	ColorOrange TaskColor = "orange"
	ColorYellow TaskColor = "yellow"
	ColorGreen  TaskColor = "green"
	ColorBlue   TaskColor = "blue"
	ColorPurple TaskColor = "purple"
	ColorPink   TaskColor = "pink"
)

// TaskColors is the fixed palette a task may be tagged with.
var TaskColors = []TaskColor{
	ColorGray, ColorRed, ColorOrange, ColorYellow,
	ColorGreen, ColorBlue, ColorPurple, ColorPink,
}

func IsValidTaskColor(c TaskColor) bool {
	for _, color := range TaskColors {
		if color == c {
			return true
		}
	}
	return false
}

type Task struct {
	ID          string     `json:"id"`
	Owner       string     `json:"owner"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Status      TaskStatus `json:"status"`
	Position    int        `json:"position"`
	Color       TaskColor  `json:"color,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	StartedAt   *time.Time `json:"startedAt,omitempty"`
	PausedAt    *time.Time `json:"pausedAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`

	TotalTimeSeconds int64 `json:"totalTimeSeconds"`
	// Stored and returned as-is; transitions only maintain TotalTimeSeconds.
	ActiveTimeAccumulatedSeconds int64 `json:"activeTimeAccumulatedSeconds"`
}

// TaskTimeEntry is one start/end span in a task's time ledger.
// A nil EndTime marks the entry as open.
type TaskTimeEntry struct {
	ID        string     `json:"id"`
	TaskID    string     `json:"taskId"`
	StartTime time.Time  `json:"startTime"`
	EndTime   *time.Time `json:"endTime,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}

func (e TaskTimeEntry) IsOpen() bool {
	return e.EndTime == nil
}

type CreateTaskRequest struct {
	Title       string    `json:"title" binding:"required,max=200"`
	Description string    `json:"description"`
	Color       TaskColor `json:"color" binding:"omitempty,oneof=gray red orange yellow green blue purple pink"`
}

type UpdateTaskRequest struct {
	Title       *string    `json:"title" binding:"omitempty,max=200"`
	Description *string    `json:"description"`
	Color       *TaskColor `json:"color" binding:"omitempty,oneof=gray red orange yellow green blue purple pink"`
	Position    *int       `json:"position" binding:"omitempty,min=0"`
}

type ReorderTasksRequest struct {
	TaskIDs []string `json:"taskIds" binding:"required,min=1"`
}
