package update

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/makerio90/checklist/internal/commands"
)

func (m Model) openPalette() Model {
	m.Palette.Active = true
	m.Palette.Input = ""
	m.commandInput.SetValue("")
	m.commandInput.Focus()
	m.Status = StatusBar{Text: "command palette active"}
	return m
}

func (m Model) closePalette() Model {
	m.Palette.Active = false
	m.Palette.Input = ""
	m.commandInput.SetValue("")
	m.commandInput.Blur()
	return m
}

func (m Model) handlePaletteKey(msg tea.KeyMsg) Model {
	switch msg.String() {
	case "esc":
		m = m.closePalette()
		m.Status = StatusBar{Text: "command palette closed"}
	case "enter":
		m.Palette.Input = m.commandInput.Value()
		m = m.executePaletteCommand()
	default:
		if msg.Type == tea.KeyRunes || msg.Type == tea.KeySpace {
			m.commandInput.SetValue(m.commandInput.Value() + string(msg.Runes))
			m.Palette.Input = m.commandInput.Value()
			return m
		}
		var cmd tea.Cmd
		m.commandInput, cmd = m.commandInput.Update(msg)
		_ = cmd
		m.Palette.Input = m.commandInput.Value()
	}
	return m
}

func (m Model) executePaletteCommand() Model {
	raw := strings.TrimSpace(m.Palette.Input)
	cmd, err := commands.Parse(raw)
	if err != nil {
		m.Status = StatusBar{Text: err.Error(), IsError: true}
		return m.closePalette()
	}

	res, err := commands.Execute(cmd, commands.Handlers{
		SetDone: func(a commands.TaskArgs, done bool) (commands.Result, error) {
			if a.All {
				m = m.setAll(done)
				return commands.Result{Message: m.Status.Text}, nil
			}
			text, err := m.setTask(a.Label, done)
			if err != nil {
				return commands.Result{}, &commands.CommandError{Code: commands.ErrCodeInvalidArgument, Message: err.Error()}
			}
			return commands.Result{Message: text}, nil
		},
		Toggle: func(a commands.TaskArgs) (commands.Result, error) {
			cl, ok := m.activeList()
			if !ok {
				return commands.Result{}, &commands.CommandError{Code: commands.ErrCodeInvalidArgument, Message: "no checklist selected"}
			}
			done, err := m.coll.Toggle(cl.Name, a.Label)
			if err != nil {
				return commands.Result{}, &commands.CommandError{Code: commands.ErrCodeInvalidArgument, Message: fmt.Sprintf("%s has no task %q", cl.Name, a.Label)}
			}
			return commands.Result{Message: taskStatusText(a.Label, done)}, nil
		},
		Goto: func(g commands.GotoArgs) (commands.Result, error) {
			next, ok := m.selectChecklist(g.Checklist)
			if !ok {
				return commands.Result{}, &commands.CommandError{Code: commands.ErrCodeInvalidArgument, Message: fmt.Sprintf("unknown checklist %q", g.Checklist)}
			}
			m = next
			m.CurrentView = ViewChecklist
			return commands.Result{Message: fmt.Sprintf("showing %s", g.Checklist)}, nil
		},
		Preview: func(p commands.PreviewArgs) (commands.Result, error) {
			m = m.showPreview(p.Count)
			if m.Preview.Err != "" {
				return commands.Result{}, &commands.CommandError{Code: commands.ErrCodeInvalidArgument, Message: m.Preview.Err}
			}
			return commands.Result{Message: fmt.Sprintf("next %d resets of %s", len(m.Preview.Times), m.Preview.Checklist)}, nil
		},
	})
	m.refresh()
	if err != nil {
		m.Status = StatusBar{Text: err.Error(), IsError: true}
		m.notify("Command Failed", err.Error(), "error")
	} else {
		m.Status = StatusBar{Text: res.Message}
		m.notify("Command", res.Message, "info")
	}
	return m.closePalette()
}
