package views

import (
	"fmt"
	"strings"
)

type TaskItemData struct {
	Label    string
	Done     bool
	Selected bool
}

type ChecklistPanelData struct {
	Name         string
	Schedule     string
	State        string
	Remaining    string
	Tasks        []TaskItemData
	Done         int
	Total        int
	ProgressView string
}

type OverviewRowData struct {
	Name      string
	Schedule  string
	Done      int
	Total     int
	Remaining string
	Overdue   bool
	Selected  bool
}

type PreviewPanelData struct {
	Checklist string
	Times     []string
	ErrorText string
}

type HelpPanelData struct {
	CurrentView string
	Bindings    []string
	HelpView    string
	Commands    string
}

func RenderChecklistPanel(data ChecklistPanelData) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("%s:\n", data.Name))
	schedule := data.Schedule
	if schedule == "" {
		schedule = "(no reset schedule)"
	}
	b.WriteString(fmt.Sprintf("schedule: %s\n", schedule))
	b.WriteString(fmt.Sprintf("resets in: %s\n", data.Remaining))
	b.WriteString(fmt.Sprintf("progress: %s %d/%d\n", data.ProgressView, data.Done, data.Total))
	b.WriteString("actions: [j/k]move [space]toggle [a]all [u]none [h/l]checklist\n\n")
	if len(data.Tasks) == 0 {
		b.WriteString("(no tasks)")
		return b.String()
	}
	for _, task := range data.Tasks {
		cursor := " "
		if task.Selected {
			cursor = cursorStyle.Render(">")
		}
		box := "[ ]"
		label := task.Label
		if task.Done {
			box = "[x]"
			label = doneStyle.Render(label)
		}
		b.WriteString(fmt.Sprintf("%s %s %s\n", cursor, box, label))
	}
	return strings.TrimSpace(b.String())
}

func RenderOverviewPanel(rows []OverviewRowData) string {
	var b strings.Builder
	b.WriteString("overview:\n")
	b.WriteString("actions: [j/k]select [enter]open\n\n")
	if len(rows) == 0 {
		b.WriteString("(no checklists configured)")
		return b.String()
	}
	for _, row := range rows {
		cursor := " "
		if row.Selected {
			cursor = ">"
		}
		remaining := row.Remaining
		if row.Overdue {
			remaining = dueStyle.Render(remaining + " due")
		}
		b.WriteString(fmt.Sprintf("%s %-16s %d/%d  %s", cursor, row.Name, row.Done, row.Total, remaining))
		if row.Schedule != "" {
			b.WriteString(fmt.Sprintf("  (%s)", row.Schedule))
		}
		b.WriteString("\n")
	}
	return strings.TrimSpace(b.String())
}

func RenderPreviewPanel(data PreviewPanelData) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("upcoming resets of %s:\n", data.Checklist))
	if data.ErrorText != "" {
		b.WriteString("error: " + data.ErrorText)
		return b.String()
	}
	for _, at := range data.Times {
		b.WriteString("- " + at + "\n")
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func RenderCommandPalette(active bool, input string) string {
	if !active {
		return ""
	}
	return fmt.Sprintf("command: /%s", input)
}

func RenderNotification(level string, body string) string {
	if strings.TrimSpace(body) == "" {
		return ""
	}
	return fmt.Sprintf("\nnotification: [%s] %s", strings.ToUpper(level), body)
}

func RenderHelpPanel(data HelpPanelData) string {
	out := fmt.Sprintf("help:\n%s view:\n%s\n%s",
		strings.ToLower(data.CurrentView),
		strings.Join(data.Bindings, "\n"),
		data.HelpView,
	)
	if data.Commands != "" {
		out += "\n\ncommands:\n" + data.Commands
	}
	return out
}
