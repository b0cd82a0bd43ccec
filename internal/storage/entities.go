package storage

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// Record is the persisted state of one checklist. The schedule is not part
// of it; it comes from configuration on every start.
type Record struct {
	Name      string          `json:"name" yaml:"name"`
	NextReset *time.Time      `json:"next_reset" yaml:"next_reset"`
	Tasks     map[string]bool `json:"tasks" yaml:"tasks"`
}

func (r Record) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return errors.New("storage: record name is required")
	}
	if !utf8.ValidString(r.Name) {
		return fmt.Errorf("storage: record name %q is not valid UTF-8", r.Name)
	}
	if r.Tasks == nil {
		return errors.New("storage: record tasks are required")
	}
	// Both backends encode tasks as JSON, which would replace invalid bytes.
	for label := range r.Tasks {
		if !utf8.ValidString(label) {
			return fmt.Errorf("storage: task label %q in %q is not valid UTF-8", label, r.Name)
		}
	}
	return nil
}

// Clone copies the task map and the reset instant.
func (r Record) Clone() Record {
	out := Record{Name: r.Name, Tasks: make(map[string]bool, len(r.Tasks))}
	for label, done := range r.Tasks {
		out.Tasks[label] = done
	}
	if r.NextReset != nil {
		at := r.NextReset.UTC()
		out.NextReset = &at
	}
	return out
}
