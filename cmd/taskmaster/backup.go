package main

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/sandeepkv93/taskmaster/internal/backup"
	"github.com/spf13/cobra"
)

func newExportCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "export [file]",
		Short: "Write all tasks and completions to a JSON backup",
		Long:  "Write a JSON backup. Without a file name one is generated in the current directory; \"-\" writes to stdout.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, root, func(a *app) error {
				now := a.svc.Now()
				path := backup.FileName(now)
				if len(args) == 1 {
					path = args[0]
				}

				var w io.Writer = cmd.OutOrStdout()
				if path != "-" {
					f, err := os.Create(path)
					if err != nil {
						return fmt.Errorf("create backup: %w", err)
					}
					defer f.Close()
					w = f
				}
				res, err := backup.Export(cmd.Context(), a.repo, w, now)
				if err != nil {
					return err
				}
				if path != "-" {
					printStatus(cmd.OutOrStdout(), "✓", fmt.Sprintf("Exported %d tasks, %d completions to %s",
						res.Tasks, res.Completions, path), color.FgGreen)
				}
				return nil
			})
		},
	}
}

func newImportCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Replace all data with a JSON backup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, root, func(a *app) error {
				var r io.Reader = cmd.InOrStdin()
				if args[0] != "-" {
					f, err := os.Open(args[0])
					if err != nil {
						return fmt.Errorf("open backup: %w", err)
					}
					defer f.Close()
					r = f
				}
				res, err := backup.Import(cmd.Context(), a.repo, r)
				if err != nil {
					return err
				}
				printStatus(cmd.OutOrStdout(), "✓", fmt.Sprintf("Imported %d tasks, %d completions",
					res.Tasks, res.Completions), color.FgGreen)
				return nil
			})
		},
	}
}
