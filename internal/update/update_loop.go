package update

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/makerio90/checklist/internal/model"
	"github.com/makerio90/checklist/internal/scheduler"
	"github.com/makerio90/checklist/internal/views"
)

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		refreshCmd(),
		waitForResetCmd(m.events),
		waitForFailureCmd(m.failed),
	)
}

func refreshCmd() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg { return RefreshMsg{At: t} })
}

func waitForResetCmd(ch <-chan scheduler.ResetEvent) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return nil
		}
		return ResetEventMsg{Event: ev}
	}
}

func waitForFailureCmd(ch <-chan error) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		return EngineFailedMsg{Err: <-ch}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch typed := msg.(type) {
	case tea.KeyMsg:
		if typed.String() == "ctrl+c" {
			m.Quitting = true
			return m, tea.Quit
		}
		if m.Palette.Active {
			return m.handlePaletteKey(typed), nil
		}

		switch typed.String() {
		case "/":
			return m.openPalette(), nil
		case m.Keys.Checklist:
			m.CurrentView = ViewChecklist
			return m, nil
		case m.Keys.Overview:
			m.CurrentView = ViewOverview
			return m, nil
		case m.Keys.Help:
			m.HelpVisible = !m.HelpVisible
			if m.HelpVisible {
				m.Status = StatusBar{Text: "help shown"}
			} else {
				m.Status = StatusBar{Text: "help hidden"}
			}
			return m, nil
		case m.Keys.Preview:
			return m.togglePreview(), nil
		case m.Keys.Quit:
			m.Quitting = true
			return m, tea.Quit
		}
		if m.CurrentView == ViewOverview {
			return m.handleOverviewKey(typed), nil
		}
		return m.handleChecklistKey(typed), nil
	case RefreshMsg:
		m.refresh()
		return m, refreshCmd()
	case SwitchViewMsg:
		if isKnownView(typed.View) {
			m.CurrentView = typed.View
		}
		return m, nil
	case SwitchChecklistMsg:
		next, ok := m.selectChecklist(typed.Name)
		if !ok {
			m.Status = StatusBar{Text: fmt.Sprintf("unknown checklist %q", typed.Name), IsError: true}
			return m, nil
		}
		return next, nil
	case SetStatusMsg:
		m.Status = StatusBar{Text: typed.Text, IsError: typed.IsError}
		m.notify("Status", typed.Text, levelFromError(typed.IsError))
		return m, nil
	case ClearStatusMsg:
		m.Status = StatusBar{}
		return m, nil
	case AppErrorMsg:
		m.LastError = typed.Err
		if typed.Err != nil {
			m.Status = StatusBar{Text: typed.Err.Error(), IsError: true}
			m.notify("Error", typed.Err.Error(), "error")
		}
		return m, nil
	case ResetEventMsg:
		ev := typed.Event
		m.LastReset = &ev
		m.refresh()
		body := fmt.Sprintf("%s was reset", ev.Checklist)
		if len(ev.Cleared) > 0 {
			body = fmt.Sprintf("%s was reset, cleared: %s", ev.Checklist, strings.Join(ev.Cleared, ", "))
		}
		m.Status = StatusBar{Text: body}
		m.notify("Checklist reset", body, "info")
		return m, waitForResetCmd(m.events)
	case EngineFailedMsg:
		m.LastError = typed.Err
		if typed.Err != nil {
			m.Status = StatusBar{Text: typed.Err.Error(), IsError: true}
		}
		m.Quitting = true
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) handleChecklistKey(msg tea.KeyMsg) Model {
	switch msg.String() {
	case "j", "down":
		return m.moveCursor(1)
	case "k", "up":
		return m.moveCursor(-1)
	case "l", "right", "tab":
		return m.cycleChecklist(1)
	case "h", "left", "shift+tab":
		return m.cycleChecklist(-1)
	case m.Keys.Toggle, "enter", "x":
		return m.toggleSelected()
	case m.Keys.CheckAll:
		return m.setAll(true)
	case m.Keys.ClearAll:
		return m.setAll(false)
	}
	return m
}

func (m Model) handleOverviewKey(msg tea.KeyMsg) Model {
	switch msg.String() {
	case "j", "down":
		return m.cycleChecklist(1)
	case "k", "up":
		return m.cycleChecklist(-1)
	case "enter":
		m.CurrentView = ViewChecklist
	}
	return m
}

func (m Model) View() string {
	if m.Quitting {
		return ""
	}
	status := ""
	if m.Status.Text != "" {
		if m.Status.IsError {
			status = fmt.Sprintf("status: error: %s", m.Status.Text)
		} else {
			status = fmt.Sprintf("status: %s", m.Status.Text)
		}
	}

	leftPane := ""
	switch m.CurrentView {
	case ViewOverview:
		leftPane = m.renderOverviewView()
	default:
		leftPane = m.renderChecklistView()
	}
	rightPane := strings.TrimSpace(strings.Join([]string{
		m.renderPreviewView(),
		views.RenderCommandPalette(m.Palette.Active, m.commandInput.Value()),
		m.renderHelpIfVisible(),
	}, "\n\n"))

	active := "-"
	if cl, ok := m.activeList(); ok {
		active = cl.Name
	}
	return views.RenderApp(views.AppData{
		Header:       fmt.Sprintf("checklist | view: %s | active: %s", m.CurrentView, active),
		LeftPane:     leftPane,
		RightPane:    rightPane,
		StatusLine:   status,
		Notification: m.renderNotificationsView(),
		Footer: fmt.Sprintf("keys: %s list | %s overview | space toggle | / cmd | %s preview | %s help | %s quit",
			m.Keys.Checklist, m.Keys.Overview, m.Keys.Preview, m.Keys.Help, m.Keys.Quit),
	})
}

func (m Model) renderChecklistView() string {
	cl, ok := m.activeList()
	if !ok {
		return "no checklists configured"
	}
	tasks := make([]views.TaskItemData, 0, len(cl.Tasks))
	for i, task := range cl.Tasks {
		tasks = append(tasks, views.TaskItemData{Label: task.Label, Done: task.Done, Selected: i == m.Cursor})
	}
	return views.RenderChecklistPanel(views.ChecklistPanelData{
		Name:         cl.Name,
		Schedule:     cl.Schedule,
		State:        string(cl.State),
		Remaining:    remainingText(cl),
		Tasks:        tasks,
		Done:         cl.Done,
		Total:        cl.Total,
		ProgressView: m.progressBar.ViewAs(progressRatio(cl.Done, cl.Total)),
	})
}

func (m Model) renderOverviewView() string {
	rows := make([]views.OverviewRowData, 0, len(m.Lists))
	for i, cl := range m.Lists {
		rows = append(rows, views.OverviewRowData{
			Name:      cl.Name,
			Schedule:  cl.Schedule,
			Done:      cl.Done,
			Total:     cl.Total,
			Remaining: remainingText(cl),
			Overdue:   cl.State == model.StateOverdue,
			Selected:  i == m.Active,
		})
	}
	return views.RenderOverviewPanel(rows)
}

func (m Model) renderPreviewView() string {
	if !m.Preview.Visible {
		return ""
	}
	times := make([]string, 0, len(m.Preview.Times))
	for _, at := range m.Preview.Times {
		times = append(times, at.In(m.loc).Format("Mon 2006-01-02 15:04 MST"))
	}
	return views.RenderPreviewPanel(views.PreviewPanelData{
		Checklist: m.Preview.Checklist,
		Times:     times,
		ErrorText: m.Preview.Err,
	})
}

func (m Model) renderNotificationsView() string {
	if len(m.Notifications) == 0 {
		return ""
	}
	last := m.Notifications[len(m.Notifications)-1]
	return strings.TrimSpace(views.RenderNotification(last.Level, last.Body))
}

func isKnownView(v View) bool {
	switch v {
	case ViewChecklist, ViewOverview:
		return true
	default:
		return false
	}
}
