package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/makerio90/checklist/internal/logfields"
	"github.com/makerio90/checklist/internal/model"
	"github.com/makerio90/checklist/internal/storage"
	"github.com/makerio90/checklist/internal/views"
)

const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
)

// StatusCmd reports progress without starting the engine or writing
// anything back to the store.
type StatusCmd struct {
	Format string `short:"f" help:"Output format (text|json|yaml)" enum:"text,json,yaml" default:"text"`
}

func (s *StatusCmd) Run(cli *CLI) error {
	cfg, logger, err := cli.loadConfig(os.Stderr)
	if err != nil {
		return err
	}
	sess, err := openSession(context.Background(), cfg, logger)
	if err != nil {
		return err
	}
	defer sess.Close()

	if recs, err := sess.store.List(context.Background()); err != nil {
		logger.Warn("Could not list stored checklists", logfields.Error(err))
	} else {
		for _, name := range unconfigured(recs, sess.coll.Names()) {
			logger.Warn("Stored checklist is not in the configuration", logfields.Checklist(name))
		}
	}

	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	return writeStatus(os.Stdout, s.Format, sess.coll.Snapshot(time.Now()), loc)
}

// unconfigured lists stored record names that no configured checklist uses.
func unconfigured(recs []storage.Record, names []string) []string {
	known := make(map[string]bool, len(names))
	for _, n := range names {
		known[n] = true
	}
	var out []string
	for _, r := range recs {
		if !known[r.Name] {
			out = append(out, r.Name)
		}
	}
	return out
}

type statusTask struct {
	Label string `json:"label" yaml:"label"`
	Done  bool   `json:"done" yaml:"done"`
}

type statusEntry struct {
	Name      string       `json:"name" yaml:"name"`
	Schedule  string       `json:"schedule,omitempty" yaml:"schedule,omitempty"`
	State     string       `json:"state" yaml:"state"`
	Done      int          `json:"done" yaml:"done"`
	Total     int          `json:"total" yaml:"total"`
	NextReset *time.Time   `json:"next_reset,omitempty" yaml:"next_reset,omitempty"`
	ResetIn   string       `json:"reset_in,omitempty" yaml:"reset_in,omitempty"`
	Tasks     []statusTask `json:"tasks" yaml:"tasks"`
}

func statusEntries(lists []model.ChecklistView) []statusEntry {
	out := make([]statusEntry, 0, len(lists))
	for _, v := range lists {
		e := statusEntry{
			Name:      v.Name,
			Schedule:  v.Schedule,
			State:     string(v.State),
			Done:      v.Done,
			Total:     v.Total,
			NextReset: v.NextReset,
			Tasks:     make([]statusTask, 0, len(v.Tasks)),
		}
		if v.HasReset {
			e.ResetIn = model.FormatRemaining(v.ResetIn)
		}
		for _, t := range v.Tasks {
			e.Tasks = append(e.Tasks, statusTask{Label: t.Label, Done: t.Done})
		}
		out = append(out, e)
	}
	return out
}

func writeStatus(w io.Writer, format string, lists []model.ChecklistView, loc *time.Location) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(statusEntries(lists))
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(statusEntries(lists)); err != nil {
			return err
		}
		return enc.Close()
	case formatText, "":
		rows := make([]views.StatusRow, 0, len(lists))
		for _, v := range lists {
			row := views.StatusRow{
				Name:      v.Name,
				Schedule:  v.Schedule,
				Done:      v.Done,
				Total:     v.Total,
				Remaining: "-",
				State:     string(v.State),
			}
			if v.NextReset != nil {
				row.NextReset = v.NextReset.In(loc).Format("2006-01-02 15:04 MST")
			}
			if v.HasReset {
				row.Remaining = model.FormatRemaining(v.ResetIn)
			}
			rows = append(rows, row)
		}
		_, err := fmt.Fprintln(w, views.RenderStatusTable(rows))
		return err
	}
	return fmt.Errorf("unknown status format %q", format)
}
