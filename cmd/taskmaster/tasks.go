package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/sandeepkv93/taskmaster/internal/commands"
	"github.com/sandeepkv93/taskmaster/internal/model"
	"github.com/sandeepkv93/taskmaster/internal/service"
	"github.com/sandeepkv93/taskmaster/internal/storage"
	"github.com/sandeepkv93/taskmaster/internal/streak"
	"github.com/sandeepkv93/taskmaster/internal/views"
	"github.com/spf13/cobra"
)

type addOptions struct {
	description string
	priority    int
	due         string
	category    string
	every       string
	per         string
	at          string
	until       string
	timeOfDay   string
	estimate    time.Duration
	chainID     int64
	chainOrder  int
}

func newAddCmd(root *rootOptions) *cobra.Command {
	opts := &addOptions{}
	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Add a task",
		Long: `Add a one-off or recurring task.

Recurrence is one of:
  --every 2d      every N days/weeks/months after the last completion
  --per 3/week    N completions per calendar day/week/month
  --at 7          daily at a fixed hour`,
		Example: `  taskmaster add "Pay rent" --due 2026-03-01 -p 4
  taskmaster add "Meditate" --at 7 --estimate 15m
  taskmaster add "Gym" --per 3/week --tod evening`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, root, func(a *app) error {
				in, err := opts.input(strings.Join(args, " "), a)
				if err != nil {
					return err
				}
				task, err := a.svc.AddTask(cmd.Context(), in)
				if err != nil {
					return err
				}
				msg := fmt.Sprintf("Added #%d %s", task.ID, task.Title)
				if label := views.RecurrenceLabel(task.Recurrence); label != "" {
					msg += " (" + label + ")"
				}
				if task.HasDueDate() {
					msg += ", due " + views.FormatDue(task.DueAt, a.svc.Now())
				}
				printStatus(cmd.OutOrStdout(), "✓", msg, color.FgGreen)
				return nil
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.description, "desc", "", "description")
	f.IntVarP(&opts.priority, "priority", "p", 2, "priority 1 (low) to 4 (urgent)")
	f.StringVar(&opts.due, "due", "", "due date: today, tomorrow, +3d, +2h, 2006-01-02 or 2006-01-02T15:04")
	f.StringVarP(&opts.category, "category", "c", "", "category")
	f.StringVar(&opts.every, "every", "", "repeat every interval, e.g. day, 2d, 3w, 1m")
	f.StringVar(&opts.per, "per", "", "repeat N times per period, e.g. 3/week")
	f.StringVar(&opts.at, "at", "", "repeat daily at an hour, e.g. 7 or 07:00")
	f.StringVar(&opts.until, "until", "", "stop recurring after this date")
	f.StringVar(&opts.timeOfDay, "tod", "", "preferred time of day: morning, afternoon, evening, night")
	f.DurationVar(&opts.estimate, "estimate", 0, "estimated duration, e.g. 45m")
	f.Int64Var(&opts.chainID, "chain", 0, "chain id")
	f.IntVar(&opts.chainOrder, "order", 0, "position inside the chain")
	cmd.MarkFlagsMutuallyExclusive("every", "per", "at")
	return cmd
}

func (o *addOptions) input(title string, a *app) (service.TaskInput, error) {
	now := a.svc.Now()
	in := service.TaskInput{
		Title:       title,
		Description: o.description,
		Category:    o.category,
		Priority:    o.priority,
		Estimate:    o.estimate,
		ChainID:     o.chainID,
		ChainOrder:  o.chainOrder,
		Recurrence:  model.NoRecurrence(),
	}
	var err error
	if in.DueAt, err = commands.ParseDue(o.due, now, a.loc); err != nil {
		return in, err
	}
	if in.RecurrenceEnd, err = commands.ParseDue(o.until, now, a.loc); err != nil {
		return in, err
	}
	switch {
	case o.every != "":
		in.Recurrence, err = commands.ParseEvery(o.every)
	case o.per != "":
		in.Recurrence, err = commands.ParsePer(o.per)
	case o.at != "":
		in.Recurrence, err = commands.ParseAt(o.at)
	}
	if err != nil {
		return in, err
	}
	if o.timeOfDay != "" {
		if in.PreferredTimeOfDay, err = model.ParseTimeOfDay(o.timeOfDay); err != nil {
			return in, err
		}
	}
	return in, nil
}

func newDoneCmd(root *rootOptions) *cobra.Command {
	var minutes, difficulty int
	cmd := &cobra.Command{
		Use:   "done <id>",
		Short: "Complete a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withApp(cmd, root, func(a *app) error {
				res, err := a.svc.Complete(cmd.Context(), id, service.CompletionInput{Minutes: minutes, Difficulty: difficulty})
				if err != nil {
					return explain(err, id)
				}
				out := cmd.OutOrStdout()
				task := res.Task
				switch {
				case task.Recurrence.Kind() == model.RecurrenceXPerY && !task.Completed:
					printStatus(out, "✓", fmt.Sprintf("%s: %d/%d this %s", task.Title,
						task.CompletionsThisPeriod, task.Recurrence.Amount(), task.Recurrence.Unit()), color.FgGreen)
				default:
					printStatus(out, "✓", "Completed "+task.Title, color.FgGreen)
				}
				if task.IsRecurring() && task.CurrentStreak > 0 {
					printStatus(out, views.StreakBadge(task.CurrentStreak), fmt.Sprintf("streak %d (best %d)",
						task.CurrentStreak, task.LongestStreak), color.FgYellow)
				}
				if res.Milestone > 0 {
					printStatus(out, "★", fmt.Sprintf("%d-day streak milestone!", res.Milestone), color.FgMagenta)
				}
				if task.IsRecurring() && task.HasDueDate() && task.Completed {
					printStatus(out, "↻", "back "+views.FormatDue(task.DueAt, a.svc.Now()), color.FgCyan)
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&minutes, "minutes", "m", 0, "minutes spent")
	cmd.Flags().IntVarP(&difficulty, "difficulty", "d", 0, "difficulty 1-5")
	return cmd
}

func newUndoCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "undo <id>",
		Short: "Revert the latest completion of a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withApp(cmd, root, func(a *app) error {
				task, err := a.svc.Uncomplete(cmd.Context(), id)
				if err != nil {
					return explain(err, id)
				}
				printStatus(cmd.OutOrStdout(), "↺", "Reopened "+task.Title, color.FgYellow)
				return nil
			})
		},
	}
}

func newDeleteCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete a task and its history",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withApp(cmd, root, func(a *app) error {
				if err := a.svc.DeleteTask(cmd.Context(), id); err != nil {
					return explain(err, id)
				}
				printStatus(cmd.OutOrStdout(), "✗", fmt.Sprintf("Deleted #%d", id), color.FgRed)
				return nil
			})
		},
	}
}

func newListCmd(root *rootOptions) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List open tasks by priority score",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, root, func(a *app) error {
				ranked, err := a.svc.Ranked(cmd.Context())
				if err != nil {
					return err
				}
				var done []model.Task
				if all {
					tasks, err := a.svc.Tasks(cmd.Context())
					if err != nil {
						return err
					}
					for _, t := range tasks {
						if t.Completed {
							done = append(done, t)
						}
					}
				}
				if len(ranked) == 0 && len(done) == 0 {
					printStatus(cmd.OutOrStdout(), "·", "No open tasks", color.FgHiBlack)
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), views.RenderTaskList(ranked, done, a.svc.Now()))
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&all, "all", "a", false, "include completed tasks")
	return cmd
}

func newNextCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "next",
		Short: "Show the best task to do now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, root, func(a *app) error {
				task, ok, err := a.svc.Next(cmd.Context())
				if err != nil {
					return err
				}
				if !ok {
					printStatus(cmd.OutOrStdout(), "·", "Nothing to do", color.FgHiBlack)
					return nil
				}
				msg := fmt.Sprintf("#%d %s", task.ID, task.Title)
				if task.HasDueDate() {
					msg += " (due " + views.FormatDue(task.DueAt, a.svc.Now()) + ")"
				}
				if streak.IsAtRisk(task, a.svc.Now()) {
					msg += " streak at risk"
				}
				printStatus(cmd.OutOrStdout(), "→", msg, color.FgCyan)
				return nil
			})
		},
	}
}

func newPreviewCmd(root *rootOptions) *cobra.Command {
	var count int
	cmd := &cobra.Command{
		Use:   "preview <id>",
		Short: "Show the next due dates of a recurring task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withApp(cmd, root, func(a *app) error {
				dates, err := a.svc.Preview(cmd.Context(), id, count)
				if err != nil {
					return explain(err, id)
				}
				if len(dates) == 0 {
					printStatus(cmd.OutOrStdout(), "·", fmt.Sprintf("#%d does not recur", id), color.FgHiBlack)
					return nil
				}
				for _, d := range dates {
					fmt.Fprintln(cmd.OutOrStdout(), d.In(a.loc).Format("Mon 2006-01-02 15:04"))
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", 5, "number of occurrences")
	return cmd
}

func newChainsCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "chains",
		Short: "Show task chains and their progress",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, root, func(a *app) error {
				infos, err := a.svc.Chains(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), views.RenderChainsPanel(infos))
				return nil
			})
		},
	}
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(raw, "#"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid task id %q", raw)
	}
	return id, nil
}

// explain turns service errors into messages about task id.
func explain(err error, id int64) error {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return fmt.Errorf("task #%d not found", id)
	case errors.Is(err, service.ErrBlocked):
		return fmt.Errorf("task #%d is blocked by an earlier step of its chain", id)
	case errors.Is(err, service.ErrAlreadyCompleted):
		return fmt.Errorf("task #%d is already completed", id)
	case errors.Is(err, service.ErrNotCompleted):
		return fmt.Errorf("task #%d has nothing to undo", id)
	default:
		return err
	}
}
