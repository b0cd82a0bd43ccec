package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/makerio90/checklist/internal/config"
	ckerrors "github.com/makerio90/checklist/internal/errors"
)

var version = "dev"

// CLI is the root command line. Commands receive it through kong bindings.
type CLI struct {
	Config   string           `short:"c" help:"Configuration file path" default:"${config_path}" type:"path"`
	LogLevel string           `name:"log-level" help:"Override log.level (debug|info|warn|error)"`
	Version  kong.VersionFlag `name:"version" help:"Show version and exit"`

	Run      RunCmd      `cmd:"" default:"1" help:"Open the terminal UI with the reset engine running (default)"`
	Headless HeadlessCmd `cmd:"" help:"Run only the reset engine until interrupted"`
	Status   StatusCmd   `cmd:"" help:"Print every checklist's progress and next reset"`
	Preview  PreviewCmd  `cmd:"" help:"List upcoming instants of a reset schedule"`
}

func main() {
	cli := &CLI{}
	ctx := kong.Parse(cli,
		kong.Name("checklist"),
		kong.Description("Recurring checklists that reset themselves on a schedule."),
		kong.UsageOnError(),
		kong.Vars{
			"version":     version,
			"config_path": config.DefaultConfigPath(),
		},
	)
	if err := ctx.Run(cli); err != nil {
		fmt.Fprintf(os.Stderr, "checklist failed: %v\n", err)
		os.Exit(ckerrors.ExitCode(err))
	}
}

// logger builds the text logger on w and installs it as the default.
func (c *CLI) logger(cfg *config.Config, w io.Writer) (*slog.Logger, error) {
	level, err := c.level(cfg)
	if err != nil {
		return nil, err
	}
	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger, nil
}

// loadConfig reads the configuration and logs to w.
func (c *CLI) loadConfig(w io.Writer) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(c.Config)
	if err != nil {
		return nil, nil, err
	}
	logger, err := c.logger(cfg, w)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

// level prefers --log-level over log.level.
func (c *CLI) level(cfg *config.Config) (slog.Level, error) {
	raw := cfg.Log.Level
	if strings.TrimSpace(c.LogLevel) != "" {
		raw = c.LogLevel
	}
	level, err := config.ParseLevel(raw)
	if err != nil {
		return slog.LevelInfo, ckerrors.Config(fmt.Sprintf("unknown log level %q", raw), err)
	}
	return level, nil
}
