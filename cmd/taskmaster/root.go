package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/fatih/color"
	"github.com/sandeepkv93/taskmaster/internal/clock"
	"github.com/sandeepkv93/taskmaster/internal/config"
	"github.com/sandeepkv93/taskmaster/internal/scheduler"
	"github.com/sandeepkv93/taskmaster/internal/service"
	"github.com/sandeepkv93/taskmaster/internal/storage"
	"github.com/spf13/cobra"
)

// app holds what every subcommand needs once config is loaded.
type app struct {
	cfg     *config.Config
	loc     *time.Location
	repo    *storage.SQLiteRepository
	svc     *service.Service
	logFile *os.File
}

type rootOptions struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:   "taskmaster",
		Short: "Recurring tasks, streaks and a daily plan",
		Long: `taskmaster keeps one-off and recurring tasks, tracks completion streaks,
ranks what to do next and lays today's work out on a timeline.

With no arguments it opens the interactive TUI.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd, opts)
		},
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default "+config.UserConfigPath()+")")

	root.AddCommand(
		newAddCmd(opts),
		newDoneCmd(opts),
		newUndoCmd(opts),
		newDeleteCmd(opts),
		newListCmd(opts),
		newNextCmd(opts),
		newPreviewCmd(opts),
		newPlanCmd(opts),
		newStatsCmd(opts),
		newChainsCmd(opts),
		newExportCmd(opts),
		newImportCmd(opts),
		newConfigCmd(opts),
		newTUICmd(opts),
	)
	return root
}

// openApp loads config, opens the database and builds the service. Logs go
// to log.file when set, otherwise to logOut unless log.quiet is on.
func openApp(opts *rootOptions, logOut io.Writer) (*app, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, loc: loc}
	var w io.Writer = logOut
	switch {
	case cfg.Log.Quiet:
		w = io.Discard
	case cfg.Log.File != "":
		f, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		a.logFile = f
		w = f
	}
	logger := log.New(w, "", log.LstdFlags)

	if err := os.MkdirAll(filepath.Dir(cfg.DB.Path), 0o755); err != nil {
		a.Close()
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	repo, err := storage.Open(cfg.DB.Driver, cfg.DB.Path)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.repo = repo
	a.svc = service.New(repo, clock.System{Location: loc}, loc,
		service.WithLogger(logger),
		service.WithPlannerOptions(
			scheduler.WithDefaultDuration(cfg.Plan.DefaultDuration),
			scheduler.WithBreak(cfg.Plan.Break),
		),
	)
	logger.Printf("[app] opened %s (%s)", cfg.DB.Path, cfg.DB.Driver)
	return a, nil
}

func (a *app) Close() {
	if a.repo != nil {
		_ = a.repo.Close()
	}
	if a.logFile != nil {
		_ = a.logFile.Close()
	}
}

// withApp opens the app for the duration of fn.
func withApp(cmd *cobra.Command, opts *rootOptions, fn func(*app) error) error {
	a, err := openApp(opts, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}

func printStatus(w io.Writer, symbol, message string, attr color.Attribute) {
	c := color.New(attr)
	fmt.Fprintf(w, "%s %s\n", c.Sprint(symbol), message)
}
