package model

// TimeMetrics holds the tracked tasks created on one calendar day.
type TimeMetrics struct {
	Day            string `json:"day"`
	TotalSeconds   int64  `json:"totalSeconds"`
	TotalFormatted string `json:"totalFormatted"`
	Tasks          []Task `json:"tasks"`
}

type WeekMetrics struct {
	WeekStart      string        `json:"weekStart"`
	WeekEnd        string        `json:"weekEnd"`
	TotalSeconds   int64         `json:"totalSeconds"`
	TotalFormatted string        `json:"totalFormatted"`
	Days           []TimeMetrics `json:"days"`
}

type MonthMetrics struct {
	Month          string        `json:"month"`
	TotalSeconds   int64         `json:"totalSeconds"`
	TotalFormatted string        `json:"totalFormatted"`
	Weeks          []WeekMetrics `json:"weeks"`
}
