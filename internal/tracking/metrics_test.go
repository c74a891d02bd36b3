package tracking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sre-portfolio/notetrack/internal/model"
)

func day(y int, m time.Month, d, h int) time.Time {
	return time.Date(y, m, d, h, 0, 0, 0, time.UTC)
}

func metricsFixture() []model.Task {
	return []model.Task{
		{ID: "a", CreatedAt: day(2024, 3, 5, 10), TotalTimeSeconds: 120},
		{ID: "b", CreatedAt: day(2024, 3, 4, 9), TotalTimeSeconds: 60},
		{ID: "c", CreatedAt: day(2024, 3, 5, 23), TotalTimeSeconds: 30},
		{ID: "untracked", CreatedAt: day(2024, 3, 5, 12), TotalTimeSeconds: 0},
		{ID: "d", CreatedAt: day(2024, 3, 12, 8), TotalTimeSeconds: 300},
		{ID: "e", CreatedAt: day(2024, 4, 2, 8), TotalTimeSeconds: 45},
		{ID: "f", CreatedAt: day(2024, 4, 8, 8), TotalTimeSeconds: 15},
	}
}

func TestByDayGroupsByCreationDay(t *testing.T) {
	agg := Aggregator{Location: time.UTC}
	days := agg.ByDay(metricsFixture())

	require.Len(t, days, 5)
	assert.Equal(t, "2024-03-05", days[0].Day)
	assert.Equal(t, int64(150), days[0].TotalSeconds)
	assert.Equal(t, "2:30", days[0].TotalFormatted)
	require.Len(t, days[0].Tasks, 2)
	assert.Equal(t, "a", days[0].Tasks[0].ID)
	assert.Equal(t, "c", days[0].Tasks[1].ID)

	assert.Equal(t, "2024-03-04", days[1].Day)
	assert.Equal(t, int64(60), days[1].TotalSeconds)

	for _, d := range days {
		for _, task := range d.Tasks {
			assert.NotEqual(t, "untracked", task.ID)
		}
	}
}

func TestByDayUsesLocation(t *testing.T) {
	tz := time.FixedZone("UTC-5", -5*60*60)
	tasks := []model.Task{{ID: "late", CreatedAt: day(2024, 3, 5, 2), TotalTimeSeconds: 10}}

	assert.Equal(t, "2024-03-05", Aggregator{Location: time.UTC}.ByDay(tasks)[0].Day)
	assert.Equal(t, "2024-03-04", Aggregator{Location: tz}.ByDay(tasks)[0].Day)
}

func TestByDayIsPure(t *testing.T) {
	agg := Aggregator{Location: time.UTC}
	tasks := metricsFixture()

	first := agg.ByDay(tasks)
	second := agg.ByDay(tasks)

	assert.Equal(t, first, second)
	assert.Equal(t, metricsFixture(), tasks)
}

func TestByDayEmpty(t *testing.T) {
	assert.Empty(t, ByDay(nil))
	assert.NotNil(t, ByDay(nil))
	assert.Empty(t, ByWeek([]model.Task{{ID: "x", TotalTimeSeconds: 0}}))
	assert.Empty(t, ByMonth(nil))
}

func TestByWeekSundayStart(t *testing.T) {
	agg := Aggregator{Location: time.UTC}
	weeks := agg.ByWeek(metricsFixture())

	require.Len(t, weeks, 4)
	assert.Equal(t, "2024-03-03", weeks[0].WeekStart)
	assert.Equal(t, "2024-03-09", weeks[0].WeekEnd)
	assert.Equal(t, int64(210), weeks[0].TotalSeconds)
	assert.Equal(t, "3:30", weeks[0].TotalFormatted)
	require.Len(t, weeks[0].Days, 2)

	assert.Equal(t, "2024-03-10", weeks[1].WeekStart)
	assert.Equal(t, "2024-03-31", weeks[2].WeekStart)
	assert.Equal(t, "2024-04-06", weeks[2].WeekEnd)
	assert.Equal(t, "2024-04-07", weeks[3].WeekStart)
}

func TestByWeekMondayStart(t *testing.T) {
	agg := Aggregator{Location: time.UTC, WeekStart: time.Monday}
	tasks := []model.Task{
		{ID: "sun", CreatedAt: day(2024, 3, 10, 9), TotalTimeSeconds: 10},
		{ID: "mon", CreatedAt: day(2024, 3, 11, 9), TotalTimeSeconds: 20},
	}

	weeks := agg.ByWeek(tasks)
	require.Len(t, weeks, 2)
	assert.Equal(t, "2024-03-04", weeks[0].WeekStart)
	assert.Equal(t, "2024-03-10", weeks[0].WeekEnd)
	assert.Equal(t, "2024-03-11", weeks[1].WeekStart)
}

func TestByMonthAttributesWeekToStartMonth(t *testing.T) {
	agg := Aggregator{Location: time.UTC}
	months := agg.ByMonth(metricsFixture())

	require.Len(t, months, 2)
	assert.Equal(t, "2024-03", months[0].Month)
	require.Len(t, months[0].Weeks, 3)
	// the week of 2024-03-31 holds an April day but starts in March
	assert.Equal(t, int64(210+300+45), months[0].TotalSeconds)

	assert.Equal(t, "2024-04", months[1].Month)
	assert.Equal(t, int64(15), months[1].TotalSeconds)
}

func TestRollUpConservation(t *testing.T) {
	agg := Aggregator{Location: time.UTC}
	tasks := metricsFixture()

	var tracked int64
	for _, task := range tasks {
		tracked += task.TotalTimeSeconds
	}

	var monthTotal int64
	for _, month := range agg.ByMonth(tasks) {
		var weekSum int64
		for _, week := range month.Weeks {
			var daySum int64
			for _, d := range week.Days {
				var taskSum int64
				for _, task := range d.Tasks {
					taskSum += task.TotalTimeSeconds
				}
				assert.Equal(t, d.TotalSeconds, taskSum)
				daySum += d.TotalSeconds
			}
			assert.Equal(t, week.TotalSeconds, daySum)
			weekSum += week.TotalSeconds
		}
		assert.Equal(t, month.TotalSeconds, weekSum)
		monthTotal += month.TotalSeconds
	}

	assert.Equal(t, tracked, monthTotal)
}

func TestRollUpFormatsTotals(t *testing.T) {
	tasks := []model.Task{{ID: "long", CreatedAt: day(2024, 3, 5, 10), TotalTimeSeconds: 3661}}
	agg := Aggregator{Location: time.UTC}

	months := agg.ByMonth(tasks)
	require.Len(t, months, 1)
	assert.Equal(t, "1:01:01", months[0].TotalFormatted)
	require.Len(t, months[0].Weeks, 1)
	assert.Equal(t, "1:01:01", months[0].Weeks[0].TotalFormatted)
	require.Len(t, months[0].Weeks[0].Days, 1)
	assert.Equal(t, "1:01:01", months[0].Weeks[0].Days[0].TotalFormatted)
}
