package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/makerio90/checklist/internal/config"
	"github.com/makerio90/checklist/internal/logfields"
	"github.com/makerio90/checklist/internal/scheduler"
	"github.com/makerio90/checklist/internal/update"
)

// RunCmd opens the terminal UI. Logs go to log.file because the UI owns
// the terminal.
type RunCmd struct {
	NoAltScreen bool `name:"no-alt-screen" help:"Draw inline instead of on the alternate screen"`
}

func (r *RunCmd) Run(cli *CLI) error {
	cfg, err := config.Load(cli.Config)
	if err != nil {
		return err
	}
	logFile, err := openLogFile(cfg.LogFile())
	if err != nil {
		return err
	}
	defer logFile.Close()

	logger, err := cli.logger(cfg, logFile)
	if err != nil {
		return err
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sess, err := openSession(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer sess.Close()

	engine, err := sess.newEngine(ctx)
	if err != nil {
		return err
	}
	if err := engine.Start(); err != nil {
		return err
	}

	var notifier update.DesktopNotifier = update.NoopDesktopNotifier{}
	if cfg.UI.DesktopNotifications {
		notifier = update.ExecDesktopNotifier{}
	}
	ui := update.NewModel(sess.coll,
		update.WithEngine(engine),
		update.WithLocation(loc),
		update.WithDesktopNotifications(cfg.UI.DesktopNotifications, notifier),
	)
	opts := []tea.ProgramOption{}
	if !r.NoAltScreen {
		opts = append(opts, tea.WithAltScreen())
	}
	logger.Info("Starting terminal UI", logfields.Count(sess.coll.Len()), logfields.Path(logFile.Name()))
	_, runErr := tea.NewProgram(ui, opts...).Run()

	stopErr := engine.Stop()
	if runErr != nil {
		return fmt.Errorf("terminal UI failed: %w", runErr)
	}
	if err := engine.Err(); err != nil {
		return err
	}
	return stopErr
}

// HeadlessCmd runs the engine without a UI until SIGINT or SIGTERM.
type HeadlessCmd struct{}

func (h *HeadlessCmd) Run(cli *CLI) error {
	cfg, logger, err := cli.loadConfig(os.Stderr)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sess, err := openSession(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer sess.Close()

	engine, err := sess.newEngine(ctx)
	if err != nil {
		return err
	}
	if err := engine.Start(); err != nil {
		return err
	}
	go logResets(sess, engine.Events())

	var failErr error
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case failErr = <-engine.Failed():
	}
	stopErr := engine.Stop()
	if failErr != nil {
		return failErr
	}
	return stopErr
}

func logResets(sess *session, events <-chan scheduler.ResetEvent) {
	for ev := range events {
		sess.logger.Info("Checklist reset",
			logfields.Checklist(ev.Checklist),
			logfields.Count(len(ev.Cleared)))
	}
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return f, nil
}
