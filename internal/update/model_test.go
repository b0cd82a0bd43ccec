package update

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/jonboulle/clockwork"

	"github.com/makerio90/checklist/internal/model"
	"github.com/makerio90/checklist/internal/scheduler"
	"github.com/makerio90/checklist/internal/storage"
)

var testNow = time.Date(2024, 1, 2, 12, 0, 0, 0, time.UTC)

func newTestCollection(t *testing.T) *model.Collection {
	t.Helper()
	sched, err := model.ParseSchedule("0 0 * * *", time.UTC)
	if err != nil {
		t.Fatalf("parse schedule: %v", err)
	}
	next := time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)
	daily := model.RestoreChecklist(model.Definition{Name: "daily", Schedule: sched, Todo: []string{"a", "b"}},
		map[string]bool{"a": false, "b": false}, &next)
	oneoff, err := model.NewChecklist(model.Definition{Name: "oneoff", Todo: []string{"passport"}})
	if err != nil {
		t.Fatalf("new checklist: %v", err)
	}
	coll, err := model.NewCollection([]*model.Checklist{daily, oneoff})
	if err != nil {
		t.Fatalf("new collection: %v", err)
	}
	return coll
}

func newTestModel(t *testing.T, opts ...Option) (Model, *model.Collection, *clockwork.FakeClock) {
	t.Helper()
	clock := clockwork.NewFakeClockAt(testNow)
	coll := newTestCollection(t)
	m := NewModel(coll, append([]Option{WithClock(clock)}, opts...)...)
	return m, coll, clock
}

func press(t *testing.T, m Model, keys ...tea.KeyMsg) Model {
	t.Helper()
	for _, k := range keys {
		updated, _ := m.Update(k)
		m = updated.(Model)
	}
	return m
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

var (
	spaceKey = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	enterKey = tea.KeyMsg{Type: tea.KeyEnter}
)

func isDone(t *testing.T, coll *model.Collection, name, label string) bool {
	t.Helper()
	c, ok := coll.Get(name)
	if !ok {
		t.Fatalf("missing checklist %s", name)
	}
	return c.Tasks[label]
}

func TestNewModelDefaults(t *testing.T) {
	m, _, _ := newTestModel(t)
	if m.CurrentView != ViewChecklist {
		t.Fatalf("expected default view %q, got %q", ViewChecklist, m.CurrentView)
	}
	if len(m.Lists) != 2 || m.Lists[m.Active].Name != "daily" {
		t.Fatalf("unexpected snapshot: %+v", m.Lists)
	}
	if m.Keys.Quit != "q" {
		t.Fatalf("expected quit key q, got %q", m.Keys.Quit)
	}
}

func TestUpdateKeySwitchesView(t *testing.T) {
	m, _, _ := newTestModel(t)
	m = press(t, m, runes("2"))
	if m.CurrentView != ViewOverview {
		t.Fatalf("expected overview, got %q", m.CurrentView)
	}
	m = press(t, m, runes("1"))
	if m.CurrentView != ViewChecklist {
		t.Fatalf("expected checklist view, got %q", m.CurrentView)
	}

	updated, _ := m.Update(SwitchViewMsg{View: View("Unknown")})
	if updated.(Model).CurrentView != ViewChecklist {
		t.Fatal("expected view unchanged for unknown view")
	}
}

func TestSpaceTogglesSelectedTask(t *testing.T) {
	m, coll, _ := newTestModel(t)
	m = press(t, m, spaceKey)
	if !isDone(t, coll, "daily", "a") {
		t.Fatal("expected task a checked in the shared collection")
	}
	if m.Status.Text != "checked a" {
		t.Fatalf("unexpected status: %+v", m.Status)
	}
	if !m.Lists[0].Tasks[0].Done {
		t.Fatal("expected snapshot refreshed after toggle")
	}

	m = press(t, m, runes("j"), spaceKey, spaceKey)
	if isDone(t, coll, "daily", "b") {
		t.Fatal("expected task b toggled twice back to unchecked")
	}
}

func TestCursorClampsToTasks(t *testing.T) {
	m, _, _ := newTestModel(t)
	m = press(t, m, runes("j"), runes("j"), runes("j"))
	if m.Cursor != 1 {
		t.Fatalf("expected cursor clamped at 1, got %d", m.Cursor)
	}
	m = press(t, m, runes("k"), runes("k"))
	if m.Cursor != 0 {
		t.Fatalf("expected cursor clamped at 0, got %d", m.Cursor)
	}
}

func TestCycleChecklistWraps(t *testing.T) {
	m, _, _ := newTestModel(t)
	m = press(t, m, runes("j"), runes("l"))
	if m.Lists[m.Active].Name != "oneoff" || m.Cursor != 0 {
		t.Fatalf("expected oneoff with cursor reset, got %s cursor=%d", m.Lists[m.Active].Name, m.Cursor)
	}
	m = press(t, m, runes("l"))
	if m.Lists[m.Active].Name != "daily" {
		t.Fatalf("expected wrap to daily, got %s", m.Lists[m.Active].Name)
	}
	m = press(t, m, runes("h"))
	if m.Lists[m.Active].Name != "oneoff" {
		t.Fatalf("expected wrap back to oneoff, got %s", m.Lists[m.Active].Name)
	}
}

func TestCheckAllAndClearAll(t *testing.T) {
	m, coll, _ := newTestModel(t)
	m = press(t, m, runes("a"))
	if !isDone(t, coll, "daily", "a") || !isDone(t, coll, "daily", "b") {
		t.Fatal("expected every task checked")
	}
	if m.Lists[0].Done != 2 {
		t.Fatalf("expected 2 done in snapshot, got %d", m.Lists[0].Done)
	}
	c, _ := coll.Get("daily")
	if c.NextReset == nil {
		t.Fatal("check all must not touch the pending reset")
	}
	m = press(t, m, runes("u"))
	if isDone(t, coll, "daily", "a") || isDone(t, coll, "daily", "b") {
		t.Fatal("expected every task unchecked")
	}
	if !strings.Contains(m.Status.Text, "unchecked every task in daily") {
		t.Fatalf("unexpected status: %+v", m.Status)
	}
}

func TestPaletteChecksTaskByLabel(t *testing.T) {
	m, coll, _ := newTestModel(t)
	m = press(t, m, runes("/"))
	if !m.Palette.Active {
		t.Fatal("expected palette active")
	}
	m = press(t, m, runes("check b"), enterKey)
	if m.Palette.Active {
		t.Fatal("expected palette closed after enter")
	}
	if !isDone(t, coll, "daily", "b") {
		t.Fatal("expected task b checked")
	}
	if m.Status.IsError || m.Status.Text != "checked b" {
		t.Fatalf("unexpected status: %+v", m.Status)
	}
	if len(m.Notifications) == 0 || m.Notifications[len(m.Notifications)-1].Title != "Command" {
		t.Fatalf("expected command notification, got %+v", m.Notifications)
	}
}

func TestPaletteGotoAndErrors(t *testing.T) {
	m, _, _ := newTestModel(t)
	m.CurrentView = ViewOverview
	m = press(t, m, runes("/"), runes("goto oneoff"), enterKey)
	if m.Lists[m.Active].Name != "oneoff" || m.CurrentView != ViewChecklist {
		t.Fatalf("expected oneoff in checklist view, got %s %s", m.Lists[m.Active].Name, m.CurrentView)
	}

	m = press(t, m, runes("/"), runes("goto nowhere"), enterKey)
	if !m.Status.IsError || !strings.Contains(m.Status.Text, "nowhere") {
		t.Fatalf("expected unknown checklist error, got %+v", m.Status)
	}

	m = press(t, m, runes("/"), runes("uncheck ghost"), enterKey)
	if !m.Status.IsError || !strings.Contains(m.Status.Text, "ghost") {
		t.Fatalf("expected unknown task error, got %+v", m.Status)
	}

	m = press(t, m, runes("/"), runes("dance"), enterKey)
	if !m.Status.IsError || !strings.Contains(m.Status.Text, "unknown_command") {
		t.Fatalf("expected parse error, got %+v", m.Status)
	}
}

func TestPaletteEscapeCloses(t *testing.T) {
	m, _, _ := newTestModel(t)
	m = press(t, m, runes("/"), runes("chec"), tea.KeyMsg{Type: tea.KeyEsc})
	if m.Palette.Active || m.Palette.Input != "" {
		t.Fatalf("expected closed palette, got %+v", m.Palette)
	}
}

func TestPreviewListsUpcomingResets(t *testing.T) {
	m, _, _ := newTestModel(t)
	m = press(t, m, runes("/"), runes("preview 3"), enterKey)
	if !m.Preview.Visible || len(m.Preview.Times) != 3 {
		t.Fatalf("expected 3 preview times, got %+v", m.Preview)
	}
	want := time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)
	for i, at := range m.Preview.Times {
		if !at.Equal(want.AddDate(0, 0, i)) {
			t.Fatalf("preview[%d] = %s, want %s", i, at, want.AddDate(0, 0, i))
		}
	}

	m = press(t, m, runes("l"))
	if m.Preview.Checklist != "oneoff" || m.Preview.Err != "no reset schedule" {
		t.Fatalf("expected preview to follow selection, got %+v", m.Preview)
	}

	m = press(t, m, runes("p"))
	if m.Preview.Visible {
		t.Fatal("expected preview hidden")
	}
}

func TestPreviewUsesConfiguredLocation(t *testing.T) {
	m, _, _ := newTestModel(t)
	m = press(t, m, runes("p"))
	if out := m.View(); !strings.Contains(out, "Wed 2024-01-03 00:00 UTC") {
		t.Fatalf("expected UTC preview by default:\n%s", out)
	}

	tokyo := time.FixedZone("JST", 9*60*60)
	m, _, _ = newTestModel(t, WithLocation(tokyo))
	m = press(t, m, runes("p"))
	if out := m.View(); !strings.Contains(out, "Wed 2024-01-03 09:00 JST") {
		t.Fatalf("expected preview in JST:\n%s", out)
	}
}

func TestRefreshMsgUpdatesCountdown(t *testing.T) {
	m, _, clock := newTestModel(t)
	if m.Lists[0].ResetIn != 12*time.Hour {
		t.Fatalf("unexpected initial countdown: %s", m.Lists[0].ResetIn)
	}
	clock.Advance(time.Hour)
	updated, cmd := m.Update(RefreshMsg{At: clock.Now()})
	m = updated.(Model)
	if m.Lists[0].ResetIn != 11*time.Hour {
		t.Fatalf("expected 11h remaining, got %s", m.Lists[0].ResetIn)
	}
	if cmd == nil {
		t.Fatal("expected the refresh tick to be rescheduled")
	}
}

type recordingNotifier struct {
	sent []Notification
}

func (r *recordingNotifier) Send(n Notification) error {
	r.sent = append(r.sent, n)
	return nil
}

func TestResetEventNotifies(t *testing.T) {
	notifier := &recordingNotifier{}
	m, coll, _ := newTestModel(t, WithDesktopNotifications(true, notifier))
	if err := coll.SetAll("daily", true); err != nil {
		t.Fatalf("set all: %v", err)
	}
	_ = coll.Update(func(lists []*model.Checklist) error {
		lists[0].Reset()
		return nil
	})

	updated, _ := m.Update(ResetEventMsg{Event: scheduler.ResetEvent{Checklist: "daily", Cleared: []string{"a", "b"}}})
	m = updated.(Model)
	if m.LastReset == nil || m.LastReset.Checklist != "daily" {
		t.Fatalf("expected last reset recorded, got %+v", m.LastReset)
	}
	if m.Lists[0].Done != 0 || m.Lists[0].State != model.StateUncomputed {
		t.Fatalf("expected refreshed snapshot after reset, got %+v", m.Lists[0])
	}
	if len(notifier.sent) != 1 || !strings.Contains(notifier.sent[0].Body, "cleared: a, b") {
		t.Fatalf("expected desktop notification, got %+v", notifier.sent)
	}
}

func TestEngineFailedMsgQuits(t *testing.T) {
	m, _, _ := newTestModel(t)
	updated, cmd := m.Update(EngineFailedMsg{Err: errors.New("disk full")})
	next := updated.(Model)
	if !next.Quitting || next.LastError == nil {
		t.Fatalf("expected quitting with error, got %+v", next)
	}
	if cmd == nil {
		t.Fatal("expected quit command")
	}
}

func TestUpdateQuitKey(t *testing.T) {
	m, _, _ := newTestModel(t)
	updated, cmd := m.Update(runes("q"))
	if !updated.(Model).Quitting {
		t.Fatal("expected quitting flag true")
	}
	if cmd == nil {
		t.Fatal("expected quit command")
	}
}

func TestUpdateStatusAndError(t *testing.T) {
	m, _, _ := newTestModel(t)
	updated, _ := m.Update(SetStatusMsg{Text: "ready"})
	next := updated.(Model)
	if next.Status.Text != "ready" || next.Status.IsError {
		t.Fatalf("unexpected status: %+v", next.Status)
	}

	updated, _ = next.Update(AppErrorMsg{Err: errors.New("boom")})
	next = updated.(Model)
	if next.LastError == nil || !next.Status.IsError || next.Status.Text != "boom" {
		t.Fatalf("unexpected error status: %+v", next.Status)
	}

	updated, _ = next.Update(ClearStatusMsg{})
	next = updated.(Model)
	if next.Status.Text != "" || next.Status.IsError {
		t.Fatalf("expected cleared status, got: %+v", next.Status)
	}
}

func TestViewContainsCoreState(t *testing.T) {
	m, _, _ := newTestModel(t)
	m.Status = StatusBar{Text: "all good"}
	out := m.View()
	for _, want := range []string{"view: Checklist", "active: daily", "resets in: 12:00:00", "status: all good", "[ ] a"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output: %q", want, out)
		}
	}

	m.CurrentView = ViewOverview
	out = m.View()
	if !strings.Contains(out, "overview:") || !strings.Contains(out, "oneoff") || !strings.Contains(out, "never") {
		t.Fatalf("expected overview rows in output: %q", out)
	}
}

func TestWaitForResetCmdReceivesEngineEvents(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2024, 1, 3, 0, 0, 1, 0, time.UTC))
	coll := newTestCollection(t)
	store, err := storage.NewJSONStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	engine, err := scheduler.NewEngine(coll, store, scheduler.WithClock(clock))
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	if err := engine.Tick(context.Background()); err != nil {
		t.Fatalf("tick: %v", err)
	}

	m := NewModel(coll, WithClock(clock), WithEngine(engine))
	msg := waitForResetCmd(m.events)()
	ev, ok := msg.(ResetEventMsg)
	if !ok || ev.Event.Checklist != "daily" {
		t.Fatalf("expected reset event for daily, got %#v", msg)
	}
	if waitForResetCmd(nil) != nil {
		t.Fatal("expected nil command without an engine")
	}
}

func TestHelpPanelFollowsView(t *testing.T) {
	m, _, _ := newTestModel(t)
	m = press(t, m, runes("?"))
	if !m.HelpVisible {
		t.Fatal("expected help to be visible")
	}
	out := m.View()
	if !strings.Contains(out, "toggle task") {
		t.Fatalf("checklist help missing bindings:\n%s", out)
	}

	m = press(t, m, runes("2"))
	out = m.View()
	if !strings.Contains(out, "open checklist") {
		t.Fatalf("overview help missing bindings:\n%s", out)
	}
	if strings.Contains(out, "toggle task") {
		t.Fatalf("overview help should not list checklist keys:\n%s", out)
	}
}
