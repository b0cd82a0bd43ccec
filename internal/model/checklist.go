package model

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"
	"unicode/utf8"
)

var (
	ErrInvalidName = errors.New("model: invalid checklist name")
	ErrInvalidTask = errors.New("model: invalid task label")
	ErrUnknownTask = errors.New("model: unknown task")
)

type LifecycleState string

const (
	StateNoSchedule    LifecycleState = "no-schedule"
	StateUncomputed    LifecycleState = "uncomputed"
	StateAwaitingReset LifecycleState = "awaiting-reset"
	StateOverdue       LifecycleState = "overdue"
)

// Definition is the configured shape of a checklist. It seeds fresh
// checklists and supplies the schedule and display order to restored ones.
type Definition struct {
	Name     string
	Schedule *Schedule
	Todo     []string
}

func (d Definition) Validate() error {
	if err := ValidateName(d.Name); err != nil {
		return err
	}
	seen := make(map[string]bool, len(d.Todo))
	for _, label := range d.Todo {
		if strings.TrimSpace(label) == "" {
			return fmt.Errorf("%w: empty label in %q", ErrInvalidTask, d.Name)
		}
		if !utf8.ValidString(label) {
			return fmt.Errorf("%w: label %q in %q is not valid UTF-8", ErrInvalidTask, label, d.Name)
		}
		if seen[label] {
			return fmt.Errorf("%w: duplicate label %q in %q", ErrInvalidTask, label, d.Name)
		}
		seen[label] = true
	}
	return nil
}

// ValidateName rejects names that cannot double as a file name.
func ValidateName(name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidName)
	}
	if trimmed != name {
		return fmt.Errorf("%w: %q has surrounding whitespace", ErrInvalidName, name)
	}
	if name == "." || name == ".." || strings.ContainsAny(name, `/\`) || name != filepath.Base(name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

type Checklist struct {
	Name string
	// Tasks maps each label to its done flag.
	Tasks map[string]bool
	// Order is the display order of Tasks; it is never persisted.
	Order     []string
	Schedule  *Schedule
	NextReset *time.Time
}

// NewChecklist builds a fresh checklist with every task unchecked.
func NewChecklist(def Definition) (*Checklist, error) {
	if err := def.Validate(); err != nil {
		return nil, err
	}
	tasks := make(map[string]bool, len(def.Todo))
	for _, label := range def.Todo {
		tasks[label] = false
	}
	return &Checklist{
		Name:     def.Name,
		Tasks:    tasks,
		Order:    append([]string(nil), def.Todo...),
		Schedule: def.Schedule,
	}, nil
}

// RestoreChecklist rebuilds a checklist from stored state. The stored task
// set wins over the configured one; configuration only contributes the
// schedule and the display order of labels it still shares with the store.
func RestoreChecklist(def Definition, tasks map[string]bool, nextReset *time.Time) *Checklist {
	restored := make(map[string]bool, len(tasks))
	for label, done := range tasks {
		restored[label] = done
	}
	c := &Checklist{
		Name:     def.Name,
		Tasks:    restored,
		Order:    displayOrder(def.Todo, restored),
		Schedule: def.Schedule,
	}
	if def.Schedule != nil && nextReset != nil {
		at := nextReset.UTC()
		c.NextReset = &at
	}
	return c
}

// TaskDrift reports configured labels missing from the stored set (added)
// and stored labels no longer configured (removed).
func TaskDrift(def Definition, stored map[string]bool) (added, removed []string) {
	configured := make(map[string]bool, len(def.Todo))
	for _, label := range def.Todo {
		configured[label] = true
		if _, ok := stored[label]; !ok {
			added = append(added, label)
		}
	}
	for label := range stored {
		if !configured[label] {
			removed = append(removed, label)
		}
	}
	sort.Strings(removed)
	return added, removed
}

func displayOrder(configured []string, tasks map[string]bool) []string {
	out := make([]string, 0, len(tasks))
	used := make(map[string]bool, len(tasks))
	for _, label := range configured {
		if _, ok := tasks[label]; ok && !used[label] {
			out = append(out, label)
			used[label] = true
		}
	}
	rest := make([]string, 0)
	for label := range tasks {
		if !used[label] {
			rest = append(rest, label)
		}
	}
	sort.Strings(rest)
	return append(out, rest...)
}

func (c *Checklist) Validate() error {
	if err := ValidateName(c.Name); err != nil {
		return err
	}
	if c.Tasks == nil {
		return fmt.Errorf("model: checklist %q has nil tasks", c.Name)
	}
	if c.Schedule == nil && c.NextReset != nil {
		return fmt.Errorf("model: checklist %q has next_reset without a schedule", c.Name)
	}
	return nil
}

func (c *Checklist) SetDone(label string, done bool) error {
	if _, ok := c.Tasks[label]; !ok {
		return fmt.Errorf("%w: %q in %q", ErrUnknownTask, label, c.Name)
	}
	c.Tasks[label] = done
	return nil
}

// Toggle flips one flag and returns its new value.
func (c *Checklist) Toggle(label string) (bool, error) {
	done, ok := c.Tasks[label]
	if !ok {
		return false, fmt.Errorf("%w: %q in %q", ErrUnknownTask, label, c.Name)
	}
	c.Tasks[label] = !done
	return !done, nil
}

// Reset clears every flag and consumes the pending reset instant.
func (c *Checklist) Reset() {
	for label := range c.Tasks {
		c.Tasks[label] = false
	}
	c.NextReset = nil
}

func (c *Checklist) State(now time.Time) LifecycleState {
	switch {
	case c.NextReset != nil && !now.Before(*c.NextReset):
		return StateOverdue
	case c.NextReset != nil:
		return StateAwaitingReset
	case c.Schedule != nil:
		return StateUncomputed
	default:
		return StateNoSchedule
	}
}

// ResetIn is the time left until the pending reset, clamped at zero. The
// bool is false when no reset instant is known.
func (c *Checklist) ResetIn(now time.Time) (time.Duration, bool) {
	if c.NextReset == nil {
		return 0, false
	}
	d := c.NextReset.Sub(now)
	if d < 0 {
		d = 0
	}
	return d, true
}

func (c *Checklist) Progress() (done, total int) {
	for _, v := range c.Tasks {
		if v {
			done++
		}
	}
	return done, len(c.Tasks)
}

func (c *Checklist) Clone() *Checklist {
	out := &Checklist{
		Name:     c.Name,
		Tasks:    make(map[string]bool, len(c.Tasks)),
		Order:    append([]string(nil), c.Order...),
		Schedule: c.Schedule,
	}
	for label, done := range c.Tasks {
		out.Tasks[label] = done
	}
	if c.NextReset != nil {
		at := *c.NextReset
		out.NextReset = &at
	}
	return out
}

// FormatRemaining renders d as hours:minutes:seconds, e.g. 26:04:09.
func FormatRemaining(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d / time.Second)
	return fmt.Sprintf("%d:%02d:%02d", total/3600, (total/60)%60, total%60)
}
