// Package report renders tracked time as a PDF document.
package report

import (
	"fmt"
	"time"

	"github.com/johnfercher/maroto/pkg/color"
	"github.com/johnfercher/maroto/pkg/consts"
	"github.com/johnfercher/maroto/pkg/pdf"
	"github.com/johnfercher/maroto/pkg/props"

	"github.com/sre-portfolio/notetrack/internal/model"
	"github.com/sre-portfolio/notetrack/internal/tracking"
)

var (
	headers   = []string{"Day", "Task", "Status", "Time"}
	gridSizes = []uint{2, 6, 2, 2}
	stripe    = color.Color{Red: 240, Green: 240, Blue: 240}
)

// FileName is the suggested download name for a report generated at t.
func FileName(t time.Time) string {
	return fmt.Sprintf("time_report_%s.pdf", t.UTC().Format(tracking.DayLayout))
}

// TimeReport lays out months as produced by tracking.Aggregator.ByMonth:
// one section per month, one table per week, one row per task.
func TimeReport(userName string, months []model.MonthMetrics, generatedAt time.Time) ([]byte, error) {
	m := pdf.NewMaroto(consts.Portrait, consts.A4)
	m.SetPageMargins(20, 10, 20)

	m.RegisterHeader(func() {
		m.Row(10, func() {
			m.Col(12, func() {
				m.Text("Time Report", props.Text{
					Top:   3,
					Style: consts.Bold,
					Align: consts.Center,
					Size:  16,
				})
			})
		})
		m.Row(8, func() {
			m.Col(12, func() {
				m.Text(fmt.Sprintf("%s, generated %s", userName, generatedAt.Format("2006-01-02 15:04")), props.Text{
					Align: consts.Center,
					Size:  10,
				})
			})
		})
	})

	if len(months) == 0 {
		m.Row(10, func() {
			m.Col(12, func() {
				m.Text("No tracked time yet.", props.Text{Top: 5, Size: 11})
			})
		})
	}

	var total int64
	for _, month := range months {
		total += month.TotalSeconds
		addMonth(m, month)
	}

	m.Row(20, func() {
		m.Col(12, func() {
			m.Text("Total: "+tracking.FormatSeconds(total), props.Text{
				Top:   10,
				Style: consts.Bold,
				Align: consts.Right,
				Size:  12,
			})
		})
	})

	buf, err := m.Output()
	if err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func addMonth(m pdf.Maroto, month model.MonthMetrics) {
	m.Row(12, func() {
		m.Col(8, func() {
			m.Text(month.Month, props.Text{Top: 5, Style: consts.Bold, Size: 14})
		})
		m.Col(4, func() {
			m.Text(tracking.FormatSeconds(month.TotalSeconds), props.Text{
				Top:   5,
				Style: consts.Bold,
				Align: consts.Right,
				Size:  12,
			})
		})
	})

	for _, week := range month.Weeks {
		m.Row(8, func() {
			m.Col(12, func() {
				m.Text(fmt.Sprintf("Week %s to %s", week.WeekStart, week.WeekEnd), props.Text{
					Top:   2,
					Style: consts.BoldItalic,
					Size:  11,
				})
			})
		})

		rows := [][]string{}
		for _, day := range week.Days {
			for _, task := range day.Tasks {
				rows = append(rows, []string{
					day.Day,
					task.Title,
					string(task.Status),
					tracking.FormatSeconds(task.TotalTimeSeconds),
				})
			}
		}

		m.TableList(headers, rows, props.TableList{
			HeaderProp: props.TableListContent{
				Size:      10,
				GridSizes: gridSizes,
			},
			ContentProp: props.TableListContent{
				Size:      9,
				GridSizes: gridSizes,
			},
			Align:                consts.Left,
			AlternatedBackground: &stripe,
			HeaderContentSpace:   1,
		})

		m.Row(7, func() {
			m.Col(12, func() {
				m.Text("Week total: "+tracking.FormatSeconds(week.TotalSeconds), props.Text{
					Style: consts.Bold,
					Align: consts.Right,
					Size:  10,
				})
			})
		})
	}
}
