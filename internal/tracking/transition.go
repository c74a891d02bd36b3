package tracking

import (
	"time"

	"github.com/sre-portfolio/notetrack/internal/model"
)

func IsValidStatus(s model.TaskStatus) bool {
	switch s {
	case model.StatusPending, model.StatusActive, model.StatusPaused, model.StatusCompleted:
		return true
	}
	return false
}

// CanStart reports whether a task in status s may enter active.
// Starting an already active task is allowed and leaves the ledger alone.
func CanStart(s model.TaskStatus) bool {
	return IsValidStatus(s) && s != model.StatusCompleted
}

func CanPause(s model.TaskStatus) bool {
	return s == model.StatusActive
}

func CanComplete(s model.TaskStatus) bool {
	return IsValidStatus(s) && s != model.StatusCompleted
}

// ElapsedSeconds is the whole number of seconds between start and end,
// rounded down. Spans that end before they start count as zero.
func ElapsedSeconds(start, end time.Time) int64 {
	d := end.Sub(start)
	if d <= 0 {
		return 0
	}
	return int64(d / time.Second)
}

// LiveSeconds is the task's accumulated time plus the running span of its
// open ledger entry, if the task is active.
func LiveSeconds(task model.Task, open *model.TaskTimeEntry, now time.Time) int64 {
	total := task.TotalTimeSeconds
	if task.Status == model.StatusActive && open != nil && open.IsOpen() {
		total += ElapsedSeconds(open.StartTime, now)
	}
	return total
}
