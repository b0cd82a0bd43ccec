package views

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// StatusRow is one line of the `status` report.
type StatusRow struct {
	Name      string
	Schedule  string
	Done      int
	Total     int
	NextReset string
	Remaining string
	State     string
}

var statusHeaderStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
var statusCellStyle = lipgloss.NewStyle().Padding(0, 1)

func RenderStatusTable(rows []StatusRow) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("CHECKLIST", "SCHEDULE", "DONE", "NEXT RESET", "IN", "STATE").
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return statusHeaderStyle
			}
			return statusCellStyle
		})
	for _, r := range rows {
		schedule := r.Schedule
		if schedule == "" {
			schedule = "-"
		}
		next := r.NextReset
		if next == "" {
			next = "-"
		}
		t.Row(r.Name, schedule, fmt.Sprintf("%d/%d", r.Done, r.Total), next, r.Remaining, r.State)
	}
	return t.Render()
}
