package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/makerio90/checklist/internal/commands"
	ckerrors "github.com/makerio90/checklist/internal/errors"
	"github.com/makerio90/checklist/internal/model"
)

// PreviewCmd prints upcoming instants of a schedule expression. It needs
// no configuration file.
type PreviewCmd struct {
	Expr     string `arg:"" help:"Schedule expression, e.g. \"0 0 * * *\" or @weekly"`
	Count    int    `short:"n" help:"Number of instants to list" default:"5"`
	Timezone string `name:"tz" help:"Zone the expression is evaluated in (UTC, Local or an IANA name)" default:"UTC"`
}

func (p *PreviewCmd) Run() error {
	return writePreview(os.Stdout, p.Expr, p.Count, p.Timezone, time.Now())
}

func writePreview(w io.Writer, expr string, count int, tz string, now time.Time) error {
	if count <= 0 || count > commands.MaxPreviewCount {
		return ckerrors.Config(fmt.Sprintf("count must be 1-%d, got %d", commands.MaxPreviewCount, count), nil)
	}
	loc, err := loadLocation(tz)
	if err != nil {
		return ckerrors.Config(fmt.Sprintf("unknown timezone %q", tz), err)
	}
	sched, err := model.ParseSchedule(expr, loc)
	if err != nil {
		return ckerrors.Config("invalid schedule", err)
	}
	times, err := sched.Preview(now, count)
	if err != nil {
		return ckerrors.Config("invalid schedule", err)
	}
	for i, t := range times {
		if _, err := fmt.Fprintf(w, "%2d. %s  (in %s)\n", i+1, t.In(loc).Format("Mon 2006-01-02 15:04 MST"), model.FormatRemaining(t.Sub(now))); err != nil {
			return err
		}
	}
	return nil
}

func loadLocation(name string) (*time.Location, error) {
	switch name {
	case "", "UTC":
		return time.UTC, nil
	case "Local":
		return time.Local, nil
	}
	return time.LoadLocation(name)
}
