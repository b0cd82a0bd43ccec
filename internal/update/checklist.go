package update

import (
	"errors"
	"fmt"

	"github.com/makerio90/checklist/internal/model"
)

const defaultPreviewCount = 5

func (m Model) moveCursor(delta int) Model {
	m.Cursor += delta
	m.clampCursor()
	return m
}

func (m Model) cycleChecklist(delta int) Model {
	if len(m.Lists) == 0 {
		return m
	}
	m.Active = (m.Active + delta + len(m.Lists)) % len(m.Lists)
	m.Cursor = 0
	m = m.syncPreview()
	return m
}

func (m Model) selectChecklist(name string) (Model, bool) {
	for i, v := range m.Lists {
		if v.Name == name {
			if i != m.Active {
				m.Active = i
				m.Cursor = 0
			}
			return m.syncPreview(), true
		}
	}
	return m, false
}

func (m Model) toggleSelected() Model {
	cl, ok := m.activeList()
	if !ok {
		return m
	}
	task, ok := m.selectedTask()
	if !ok {
		m.Status = StatusBar{Text: fmt.Sprintf("%s has no tasks", cl.Name), IsError: true}
		return m
	}
	done, err := m.coll.Toggle(cl.Name, task.Label)
	if err != nil {
		m.Status = StatusBar{Text: err.Error(), IsError: true}
		return m
	}
	m.refresh()
	m.Status = StatusBar{Text: taskStatusText(task.Label, done)}
	return m
}

func (m Model) setAll(done bool) Model {
	cl, ok := m.activeList()
	if !ok {
		return m
	}
	if err := m.coll.SetAll(cl.Name, done); err != nil {
		m.Status = StatusBar{Text: err.Error(), IsError: true}
		return m
	}
	m.refresh()
	verb := "unchecked"
	if done {
		verb = "checked"
	}
	m.Status = StatusBar{Text: fmt.Sprintf("%s every task in %s", verb, cl.Name)}
	return m
}

func (m Model) togglePreview() Model {
	if m.Preview.Visible {
		m.Preview = PreviewState{}
		return m
	}
	return m.showPreview(defaultPreviewCount)
}

func (m Model) showPreview(count int) Model {
	cl, ok := m.activeList()
	if !ok {
		return m
	}
	m.Preview = PreviewState{Visible: true, Checklist: cl.Name, Count: count}
	full, ok := m.coll.Get(cl.Name)
	if !ok {
		m.Preview.Err = fmt.Sprintf("unknown checklist %s", cl.Name)
		return m
	}
	if full.Schedule == nil {
		m.Preview.Err = "no reset schedule"
		return m
	}
	times, err := full.Schedule.Preview(m.clock.Now(), count)
	if err != nil {
		m.Preview.Err = err.Error()
		return m
	}
	m.Preview.Times = times
	return m
}

// syncPreview follows the active checklist while the preview is open.
func (m Model) syncPreview() Model {
	if !m.Preview.Visible {
		return m
	}
	cl, ok := m.activeList()
	if !ok || cl.Name == m.Preview.Checklist {
		return m
	}
	return m.showPreview(m.Preview.Count)
}

func (m Model) setTask(label string, done bool) (string, error) {
	cl, ok := m.activeList()
	if !ok {
		return "", errors.New("no checklist selected")
	}
	if err := m.coll.SetDone(cl.Name, label, done); err != nil {
		if errors.Is(err, model.ErrUnknownTask) {
			return "", fmt.Errorf("%s has no task %q", cl.Name, label)
		}
		return "", err
	}
	return taskStatusText(label, done), nil
}

func taskStatusText(label string, done bool) string {
	if done {
		return fmt.Sprintf("checked %s", label)
	}
	return fmt.Sprintf("unchecked %s", label)
}
