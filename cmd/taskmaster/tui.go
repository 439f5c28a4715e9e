package main

import (
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sandeepkv93/taskmaster/internal/scheduler"
	"github.com/sandeepkv93/taskmaster/internal/update"
	"github.com/spf13/cobra"
)

func newTUICmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Open the interactive planner",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd, root)
		},
	}
}

// runTUI keeps logs off the terminal while the alt screen is active; they
// only go to log.file when one is configured.
func runTUI(cmd *cobra.Command, root *rootOptions) error {
	a, err := openApp(root, io.Discard)
	if err != nil {
		return err
	}
	defer a.Close()

	wake := scheduler.NewEngine(a.cfg.TUI.WakeBuffer)
	wake.Start()
	defer wake.Stop()

	p := tea.NewProgram(update.NewModel(a.svc, wake), tea.WithAltScreen(), tea.WithContext(cmd.Context()))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running TUI: %w", err)
	}
	return nil
}
