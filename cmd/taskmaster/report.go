package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/sandeepkv93/taskmaster/internal/views"
	"github.com/spf13/cobra"
)

const markdownWidth = 100

func newPlanCmd(root *rootOptions) *cobra.Command {
	var raw bool
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Lay out today's tasks on a timeline",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, root, func(a *app) error {
				plan, err := a.svc.Plan(cmd.Context())
				if err != nil {
					return err
				}
				md := views.PlanMarkdown(plan.Entries, plan.Summary, plan.Generated.In(a.loc))
				return writeMarkdown(cmd, md, raw)
			})
		},
	}
	cmd.Flags().BoolVar(&raw, "raw", false, "print markdown without terminal styling")
	return cmd
}

func newStatsCmd(root *rootOptions) *cobra.Command {
	var raw bool
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show completion statistics and streaks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, root, func(a *app) error {
				report, err := a.svc.Stats(cmd.Context())
				if err != nil {
					return err
				}
				if err := writeMarkdown(cmd, views.StatsMarkdown(report), raw); err != nil {
					return err
				}
				for _, t := range report.AtRisk {
					printStatus(cmd.OutOrStdout(), "!", fmt.Sprintf("%s: %d-day streak at risk", t.Title, t.CurrentStreak), color.FgRed)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&raw, "raw", false, "print markdown without terminal styling")
	return cmd
}

func writeMarkdown(cmd *cobra.Command, md string, raw bool) error {
	if !raw {
		md = views.RenderMarkdown(md, markdownWidth)
	}
	_, err := fmt.Fprintln(cmd.OutOrStdout(), md)
	return err
}
