package tracking

import "fmt"

// FormatSeconds renders a duration as H:MM:SS, or M:SS when under an hour.
// Zero and negative values render as 0:00.
func FormatSeconds(seconds int64) string {
	if seconds <= 0 {
		return "0:00"
	}

	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	remaining := seconds % 60

	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, remaining)
	}
	return fmt.Sprintf("%d:%02d", minutes, remaining)
}
