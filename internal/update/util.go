package update

import (
	"strings"

	"github.com/makerio90/checklist/internal/model"
)

func levelFromError(isErr bool) string {
	if isErr {
		return "error"
	}
	return "info"
}

func escapeAppleScript(s string) string {
	return strings.ReplaceAll(s, `"`, `\"`)
}

func (m *Model) notify(title, body, level string) {
	if strings.TrimSpace(body) == "" {
		return
	}
	n := Notification{
		Title: title,
		Body:  body,
		Level: level,
		At:    m.clock.Now().UTC(),
	}
	m.Notifications = append(m.Notifications, n)
	if len(m.Notifications) > maxNotifications {
		m.Notifications = m.Notifications[len(m.Notifications)-maxNotifications:]
	}
	if m.DesktopEnabled && m.notifier != nil {
		_ = m.notifier.Send(n)
	}
}

// remainingText is the countdown column: H:MM:SS when a reset is known,
// otherwise a word for the lifecycle state.
func remainingText(v model.ChecklistView) string {
	if v.HasReset {
		return model.FormatRemaining(v.ResetIn)
	}
	switch v.State {
	case model.StateUncomputed:
		return "pending"
	default:
		return "never"
	}
}

func progressRatio(done, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(done) / float64(total)
}
