package update

import (
	"fmt"
	"os/exec"
	"runtime"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/jonboulle/clockwork"

	"github.com/makerio90/checklist/internal/model"
	"github.com/makerio90/checklist/internal/scheduler"
)

type View string

const (
	ViewChecklist View = "Checklist"
	ViewOverview  View = "Overview"
)

const (
	refreshInterval  = time.Second
	maxNotifications = 40
)

type StatusBar struct {
	Text    string
	IsError bool
}

type GlobalKeyMap struct {
	Checklist string
	Overview  string
	Toggle    string
	CheckAll  string
	ClearAll  string
	Preview   string
	Help      string
	Quit      string
}

type CommandPaletteState struct {
	Active bool
	Input  string
}

// PreviewState lists the upcoming resets of the active checklist.
type PreviewState struct {
	Visible   bool
	Checklist string
	Count     int
	Times     []time.Time
	Err       string
}

type Notification struct {
	Title string
	Body  string
	Level string
	At    time.Time
}

type DesktopNotifier interface {
	Send(Notification) error
}

type NoopDesktopNotifier struct{}

func (NoopDesktopNotifier) Send(Notification) error { return nil }

type ExecDesktopNotifier struct{}

func (ExecDesktopNotifier) Send(n Notification) error {
	switch runtime.GOOS {
	case "linux":
		return exec.Command("notify-send", n.Title, n.Body).Run()
	case "darwin":
		script := fmt.Sprintf(`display notification "%s" with title "%s"`, escapeAppleScript(n.Body), escapeAppleScript(n.Title))
		return exec.Command("osascript", "-e", script).Run()
	default:
		return nil
	}
}

// Model is the terminal UI. It never owns checklist state: every frame is
// drawn from a snapshot of the shared collection, and every edit goes
// through the collection so the engine sees it on its next pass.
type Model struct {
	CurrentView    View
	Lists          []model.ChecklistView
	Active         int
	Cursor         int
	Palette        CommandPaletteState
	Preview        PreviewState
	HelpVisible    bool
	Notifications  []Notification
	DesktopEnabled bool
	Status         StatusBar
	Keys           GlobalKeyMap
	Quitting       bool
	LastError      error
	LastReset      *scheduler.ResetEvent

	coll     *model.Collection
	events   <-chan scheduler.ResetEvent
	failed   <-chan error
	clock    clockwork.Clock
	loc      *time.Location
	notifier DesktopNotifier

	commandInput textinput.Model
	helpModel    help.Model
	progressBar  progress.Model
}

type Option func(*Model)

// WithEngine subscribes the UI to the engine's reset and failure channels.
func WithEngine(engine *scheduler.Engine) Option {
	return func(m *Model) {
		if engine != nil {
			m.events = engine.Events()
			m.failed = engine.Failed()
		}
	}
}

func WithClock(clock clockwork.Clock) Option {
	return func(m *Model) {
		if clock != nil {
			m.clock = clock
		}
	}
}

// WithLocation sets the zone reset instants are displayed in.
func WithLocation(loc *time.Location) Option {
	return func(m *Model) {
		if loc != nil {
			m.loc = loc
		}
	}
}

func WithDesktopNotifications(enabled bool, notifier DesktopNotifier) Option {
	return func(m *Model) {
		m.DesktopEnabled = enabled
		if notifier != nil {
			m.notifier = notifier
		}
	}
}

type SwitchViewMsg struct {
	View View
}

type SwitchChecklistMsg struct {
	Name string
}

type SetStatusMsg struct {
	Text    string
	IsError bool
}

type ClearStatusMsg struct{}

type AppErrorMsg struct {
	Err error
}

// RefreshMsg redraws countdowns once a second.
type RefreshMsg struct {
	At time.Time
}

type ResetEventMsg struct {
	Event scheduler.ResetEvent
}

// EngineFailedMsg ends the program: the engine can no longer persist.
type EngineFailedMsg struct {
	Err error
}

func NewModel(coll *model.Collection, opts ...Option) Model {
	m := Model{
		CurrentView: ViewChecklist,
		coll:        coll,
		clock:       clockwork.NewRealClock(),
		loc:         time.UTC,
		notifier:    NoopDesktopNotifier{},
		Keys: GlobalKeyMap{
			Checklist: "1",
			Overview:  "2",
			Toggle:    " ",
			CheckAll:  "a",
			ClearAll:  "u",
			Preview:   "p",
			Help:      "?",
			Quit:      "q",
		},
	}
	for _, opt := range opts {
		opt(&m)
	}
	m.initBubbleComponents()
	m.refresh()
	return m
}

func (m *Model) initBubbleComponents() {
	m.commandInput = textinput.New()
	m.commandInput.Prompt = "/"
	m.commandInput.CharLimit = 256
	m.commandInput.Width = 48

	m.helpModel = help.New()
	m.progressBar = progress.New(progress.WithDefaultGradient(), progress.WithWidth(24))
}

// refresh takes a new snapshot and keeps the selection in range. The
// active checklist is tracked by name so a reordered snapshot keeps it.
func (m *Model) refresh() {
	if m.coll == nil {
		return
	}
	activeName := ""
	if m.Active >= 0 && m.Active < len(m.Lists) {
		activeName = m.Lists[m.Active].Name
	}
	m.Lists = m.coll.Snapshot(m.clock.Now())
	m.Active = 0
	for i, v := range m.Lists {
		if v.Name == activeName {
			m.Active = i
			break
		}
	}
	m.clampCursor()
}

func (m *Model) clampCursor() {
	cl, ok := m.activeList()
	if !ok || len(cl.Tasks) == 0 {
		m.Cursor = 0
		return
	}
	if m.Cursor >= len(cl.Tasks) {
		m.Cursor = len(cl.Tasks) - 1
	}
	if m.Cursor < 0 {
		m.Cursor = 0
	}
}

func (m Model) activeList() (model.ChecklistView, bool) {
	if m.Active < 0 || m.Active >= len(m.Lists) {
		return model.ChecklistView{}, false
	}
	return m.Lists[m.Active], true
}

func (m Model) selectedTask() (model.TaskView, bool) {
	cl, ok := m.activeList()
	if !ok || m.Cursor < 0 || m.Cursor >= len(cl.Tasks) {
		return model.TaskView{}, false
	}
	return cl.Tasks[m.Cursor], true
}
