package tracking

import (
	"time"

	"github.com/sre-portfolio/notetrack/internal/model"
)

const (
	DayLayout   = "2006-01-02"
	MonthLayout = "2006-01"
)

// Aggregator rolls tracked task time up into days, weeks and months.
//
// Tasks are grouped by the calendar day of CreatedAt, not by the days the
// time was logged: a task worked on across several days attributes all of
// its time to the day it was created. Groups come out in the order their
// first member appears in the input; nothing is sorted.
type Aggregator struct {
	// Location used to pick calendar days. Nil means time.Local.
	Location *time.Location
	// First day of the week. The zero value is Sunday.
	WeekStart time.Weekday
}

func (a Aggregator) location() *time.Location {
	if a.Location == nil {
		return time.Local
	}
	return a.Location
}

// ByDay groups tasks with tracked time by creation day.
func (a Aggregator) ByDay(tasks []model.Task) []model.TimeMetrics {
	days := []model.TimeMetrics{}
	index := make(map[string]int)

	for _, task := range tasks {
		if task.TotalTimeSeconds <= 0 {
			continue
		}

		day := task.CreatedAt.In(a.location()).Format(DayLayout)
		i, ok := index[day]
		if !ok {
			i = len(days)
			index[day] = i
			days = append(days, model.TimeMetrics{Day: day, Tasks: []model.Task{}})
		}

		days[i].Tasks = append(days[i].Tasks, task)
		days[i].TotalSeconds += task.TotalTimeSeconds
	}

	for i := range days {
		days[i].TotalFormatted = FormatSeconds(days[i].TotalSeconds)
	}
	return days
}

// ByWeek groups the daily metrics by the week containing each day.
func (a Aggregator) ByWeek(tasks []model.Task) []model.WeekMetrics {
	weeks := []model.WeekMetrics{}
	index := make(map[string]int)

	for _, day := range a.ByDay(tasks) {
		date, err := time.ParseInLocation(DayLayout, day.Day, a.location())
		if err != nil {
			continue
		}

		start := a.weekStart(date)
		key := start.Format(DayLayout)
		i, ok := index[key]
		if !ok {
			i = len(weeks)
			index[key] = i
			weeks = append(weeks, model.WeekMetrics{
				WeekStart: key,
				WeekEnd:   start.AddDate(0, 0, 6).Format(DayLayout),
				Days:      []model.TimeMetrics{},
			})
		}

		weeks[i].Days = append(weeks[i].Days, day)
		weeks[i].TotalSeconds += day.TotalSeconds
	}

	for i := range weeks {
		weeks[i].TotalFormatted = FormatSeconds(weeks[i].TotalSeconds)
	}
	return weeks
}

// ByMonth groups the weekly metrics by the month of each week's first day.
// A week that crosses a month boundary belongs entirely to the month it starts in.
func (a Aggregator) ByMonth(tasks []model.Task) []model.MonthMetrics {
	months := []model.MonthMetrics{}
	index := make(map[string]int)

	for _, week := range a.ByWeek(tasks) {
		start, err := time.ParseInLocation(DayLayout, week.WeekStart, a.location())
		if err != nil {
			continue
		}

		key := start.Format(MonthLayout)
		i, ok := index[key]
		if !ok {
			i = len(months)
			index[key] = i
			months = append(months, model.MonthMetrics{Month: key, Weeks: []model.WeekMetrics{}})
		}

		months[i].Weeks = append(months[i].Weeks, week)
		months[i].TotalSeconds += week.TotalSeconds
	}

	for i := range months {
		months[i].TotalFormatted = FormatSeconds(months[i].TotalSeconds)
	}
	return months
}

func (a Aggregator) weekStart(date time.Time) time.Time {
	offset := (int(date.Weekday()) - int(a.WeekStart) + 7) % 7
	return date.AddDate(0, 0, -offset)
}

func ByDay(tasks []model.Task) []model.TimeMetrics {
	return Aggregator{}.ByDay(tasks)
}

func ByWeek(tasks []model.Task) []model.WeekMetrics {
	return Aggregator{}.ByWeek(tasks)
}

func ByMonth(tasks []model.Task) []model.MonthMetrics {
	return Aggregator{}.ByMonth(tasks)
}
