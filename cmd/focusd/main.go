// focusd is a work/break interval tracking daemon. It serves a small HTTP
// API for creating and driving intervals through their lifecycle, keeps a
// per-day log of completed sessions, and optionally publishes lifecycle
// events to NATS.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/focusd/internal/config"
	derrors "git.home.luguber.info/inful/focusd/internal/foundation/errors"
	"git.home.luguber.info/inful/focusd/internal/version"
)

var CLI struct {
	Config  string `short:"c" help:"Configuration file path" default:"focusd.yaml"`
	Verbose bool   `short:"v" help:"Enable verbose logging"`

	Serve struct{} `cmd:"" help:"Run the focusd daemon"`

	Migrate struct{} `cmd:"" help:"Apply pending database migrations"`

	Init struct {
		Force bool `help:"Overwrite existing configuration file"`
	} `cmd:"" help:"Initialize a new configuration file"`

	Version struct{} `cmd:"" help:"Print version information"`
}

func main() {
	ctx := kong.Parse(&CLI)

	adapter := derrors.NewCLIErrorAdapter(CLI.Verbose, nil)

	var err error
	switch ctx.Command() {
	case "serve":
		err = runServe(CLI.Config, CLI.Verbose)
	case "migrate":
		err = runMigrate(CLI.Config, CLI.Verbose)
	case "init":
		err = runInit(CLI.Config, CLI.Init.Force)
	case "version":
		fmt.Printf("focusd %s (commit %s, built %s)\n", version.Version, version.GitCommit, version.BuildTime)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, adapter.FormatError(err))
		os.Exit(adapter.ExitCodeFor(err))
	}
}

// setupLogging installs the process-wide logger per the config, with the
// verbose flag forcing debug level. Returns the installed logger.
func setupLogging(cfg config.LoggingConfig, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Level {
	case config.LogLevelDebug:
		level = slog.LevelDebug
	case config.LogLevelWarn:
		level = slog.LevelWarn
	case config.LogLevelError:
		level = slog.LevelError
	}
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == config.LogFormatJSON {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

func runInit(configPath string, force bool) error {
	if err := config.Init(configPath, force); err != nil {
		return derrors.WrapError(err, derrors.CategoryConfig, "initialize configuration").Build()
	}
	fmt.Printf("Wrote %s\n", configPath)
	return nil
}
