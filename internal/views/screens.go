package views

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sandeepkv93/taskmaster/internal/chain"
	"github.com/sandeepkv93/taskmaster/internal/model"
	"github.com/sandeepkv93/taskmaster/internal/scheduler"
	"github.com/sandeepkv93/taskmaster/internal/scoring"
	"github.com/sandeepkv93/taskmaster/internal/stats"
	"github.com/sandeepkv93/taskmaster/internal/streak"
)

type TimelinePanelData struct {
	Entries    []scheduler.TimelineEntry
	Summary    scheduler.Summary
	SelectedID int64
	Now        time.Time
	// Blocked marks entries held back by an open chain step.
	Blocked func(model.Task) bool
}

type HelpPanelData struct {
	CurrentView string
	Bindings    []string
	HelpView    string
}

// StreakBadge shows one flame per streak level followed by the count.
func StreakBadge(current int) string {
	level := streak.Level(current)
	if level == 0 {
		return ""
	}
	return fmt.Sprintf("%s%d", strings.Repeat("🔥", level), current)
}

func PriorityLabel(p int) string {
	switch model.ClampPriority(p) {
	case 4:
		return "urgent"
	case 3:
		return "high"
	case 2:
		return "normal"
	default:
		return "low"
	}
}

func RecurrenceLabel(rec model.Recurrence) string {
	switch rec.Kind() {
	case model.RecurrenceEveryXY:
		if rec.Amount() == 1 {
			return "every " + rec.Unit().String()
		}
		return fmt.Sprintf("every %d %ss", rec.Amount(), rec.Unit())
	case model.RecurrenceXPerY:
		return fmt.Sprintf("%d× per %s", rec.Amount(), rec.Unit())
	case model.RecurrenceScheduled:
		return fmt.Sprintf("daily at %02d:00", rec.Hour())
	default:
		return ""
	}
}

func RenderTimelinePanel(data TimelinePanelData) string {
	var b strings.Builder
	b.WriteString("today:\n")
	if len(data.Entries) == 0 {
		b.WriteString(dimStyle.Render("(nothing planned, add a task with /add)"))
		return b.String()
	}
	for _, e := range data.Entries {
		cursor := " "
		if e.Task.ID == data.SelectedID {
			cursor = cursorStyle.Render(">")
		}
		slot := fmt.Sprintf("%s-%s", e.Start.Format("15:04"), e.End.Format("15:04"))
		line := fmt.Sprintf("%s %s %s", slot, checkbox(e.Completed), e.Task.Title)
		switch {
		case e.Completed:
			line = doneStyle.Render(line)
		case e.Task.IsOverdue(data.Now):
			line = dueStyle.Render(line + " (overdue)")
		case data.Blocked != nil && data.Blocked(e.Task):
			line = dimStyle.Render(line + " (blocked)")
		}
		if badge := StreakBadge(e.Task.CurrentStreak); badge != "" {
			line += " " + badge
		}
		b.WriteString(fmt.Sprintf("%s %s\n", cursor, line))
	}
	b.WriteString("\n" + SummaryLine(data.Summary))
	return strings.TrimSpace(b.String())
}

func SummaryLine(s scheduler.Summary) string {
	line := fmt.Sprintf("%d/%d done", s.Completed, s.Total)
	if s.Remaining > 0 {
		line += fmt.Sprintf(" | %s left", formatMinutes(s.RemainingDuration))
		if !s.FinishAt.IsZero() {
			line += " | finish ~" + s.FinishAt.Format("15:04")
		}
	}
	return line
}

// RenderTaskDetail describes one task; tasks is the snapshot used to draw
// its chain.
func RenderTaskDetail(task model.Task, tasks []model.Task, breakdown scoring.Breakdown, now time.Time) string {
	if task.ID == 0 {
		return "details:\n(no selection)"
	}
	var b strings.Builder
	b.WriteString("details:\n")
	fmt.Fprintf(&b, "#%d %s\n", task.ID, task.Title)
	if task.Description != "" {
		b.WriteString(task.Description + "\n")
	}
	fmt.Fprintf(&b, "priority: %s\n", PriorityLabel(task.Priority))
	if task.Category != "" {
		fmt.Fprintf(&b, "category: %s\n", task.Category)
	}
	if rec := RecurrenceLabel(task.Recurrence); rec != "" {
		fmt.Fprintf(&b, "repeats: %s", rec)
		if task.Recurrence.Kind() == model.RecurrenceXPerY {
			fmt.Fprintf(&b, " (%d/%d this %s)", task.CompletionsThisPeriod, task.Recurrence.Amount(), task.Recurrence.Unit())
		}
		b.WriteString("\n")
		fmt.Fprintf(&b, "streak: %d (best %d)", task.CurrentStreak, task.LongestStreak)
		if streak.IsAtRisk(task, now) {
			fmt.Fprintf(&b, " at risk, %d day(s) left", streak.DaysUntilExpire(task, now))
		}
		b.WriteString("\n")
	}
	if task.HasDueDate() {
		fmt.Fprintf(&b, "due: %s\n", FormatDue(task.DueAt, now))
	}
	if d := task.ExpectedDuration(); d > 0 {
		fmt.Fprintf(&b, "takes: ~%s\n", formatMinutes(d))
	}
	if task.PreferredTimeOfDay != model.TimeOfDayUnset {
		fmt.Fprintf(&b, "best in the %s\n", task.PreferredTimeOfDay)
	}
	if task.ChainID != 0 {
		fmt.Fprintf(&b, "chain: %s\n", chain.Visual(tasks, task.ChainID))
	}
	fmt.Fprintf(&b, "score: %s\n", breakdown)
	return strings.TrimSpace(b.String())
}

func RenderChainsPanel(infos []chain.Info) string {
	var b strings.Builder
	b.WriteString("chains:\n")
	if len(infos) == 0 {
		b.WriteString(dimStyle.Render("(no chains, use /add <title> chain:<id>/<order>)"))
		return b.String()
	}
	for _, info := range infos {
		fmt.Fprintf(&b, "chain %d  %3.0f%%\n  %s\n", info.ID, info.Progress(), chain.Visual(info.Tasks, info.ID))
	}
	return strings.TrimSpace(b.String())
}

func RenderHelpPanel(data HelpPanelData) string {
	return fmt.Sprintf("help:\n%s view:\n%s\n%s",
		strings.ToLower(data.CurrentView),
		strings.Join(data.Bindings, "\n"),
		data.HelpView,
	)
}

func RenderCommandPalette(active bool, inputView string) string {
	if !active {
		return ""
	}
	return "command:\n" + inputView
}

func RenderNotification(level string, body string) string {
	if strings.TrimSpace(body) == "" {
		return ""
	}
	return fmt.Sprintf("notification: [%s] %s", strings.ToUpper(level), body)
}

// RenderTaskList is the CLI listing: ranked open tasks first, then the
// completed ones.
func RenderTaskList(ranked []scoring.Scored, done []model.Task, now time.Time) string {
	var b strings.Builder
	for i, item := range ranked {
		t := item.Task
		line := fmt.Sprintf("%2d. #%-3d %-32s %5.1f  %-6s", i+1, t.ID, truncate(t.Title, 32), item.Score, PriorityLabel(t.Priority))
		if t.HasDueDate() {
			line += "  due " + FormatDue(t.DueAt, now)
		}
		if rec := RecurrenceLabel(t.Recurrence); rec != "" {
			line += "  " + dimStyle.Render(rec)
		}
		if badge := StreakBadge(t.CurrentStreak); badge != "" {
			line += " " + badge
		}
		if t.IsOverdue(now) {
			line = dueStyle.Render(line)
		}
		b.WriteString(line + "\n")
	}
	for _, t := range done {
		b.WriteString(doneStyle.Render(fmt.Sprintf("  ✓ #%-3d %s", t.ID, t.Title)) + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func PlanMarkdown(entries []scheduler.TimelineEntry, summary scheduler.Summary, generated time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Plan for %s\n\n", generated.Format("Monday, 02 Jan"))
	if len(entries) == 0 {
		b.WriteString("_Nothing planned for today._\n")
		return b.String()
	}
	b.WriteString("| Time | Task | Score |\n|---|---|---|\n")
	for _, e := range entries {
		title := e.Task.Title
		if e.Completed {
			title = "~~" + title + "~~"
		}
		fmt.Fprintf(&b, "| %s–%s | %s %s | %.1f |\n",
			e.Start.Format("15:04"), e.End.Format("15:04"), checkbox(e.Completed), escapeCell(title), e.Score)
	}
	fmt.Fprintf(&b, "\n**%s**\n", SummaryLine(summary))
	return b.String()
}

func StatsMarkdown(report stats.Report) string {
	var b strings.Builder
	o := report.Overview
	b.WriteString("# Statistics\n\n")
	fmt.Fprintf(&b, "- **Tasks:** %d/%d completed (%d%%)\n", o.Completed, o.Total, o.CompletionPercent())
	if o.Overdue > 0 {
		fmt.Fprintf(&b, "- **Overdue:** %d\n", o.Overdue)
	}
	fmt.Fprintf(&b, "- **Completions:** %d today, %d this week\n", o.Today, o.Week)
	if o.LongestStreak > 0 {
		fmt.Fprintf(&b, "- **Best streak:** %d days\n", o.LongestStreak)
	}
	if report.AverageTime > 0 {
		fmt.Fprintf(&b, "- **Average time:** %s\n", formatMinutes(report.AverageTime))
	}
	if report.AverageRating > 0 {
		fmt.Fprintf(&b, "- **Average difficulty:** %.1f/5\n", report.AverageRating)
	}
	if report.MostProductive != model.TimeOfDayUnset {
		fmt.Fprintf(&b, "- **Most productive:** %s\n", report.MostProductive)
	}

	if len(report.ByTimeOfDay) > 0 {
		b.WriteString("\n## Completions by time of day\n\n")
		for _, tod := range []model.TimeOfDay{model.TimeOfDayMorning, model.TimeOfDayAfternoon, model.TimeOfDayEvening, model.TimeOfDayNight} {
			fmt.Fprintf(&b, "- %s: %d\n", tod, report.ByTimeOfDay[tod])
		}
	}
	if len(report.TopStreaks) > 0 {
		b.WriteString("\n## Top streaks\n\n")
		for _, t := range report.TopStreaks {
			fmt.Fprintf(&b, "- %s %s (best %d)\n", escapeCell(t.Title), StreakBadge(t.CurrentStreak), t.LongestStreak)
		}
	}
	if len(report.AtRisk) > 0 {
		b.WriteString("\n## Streaks at risk\n\n")
		for _, t := range report.AtRisk {
			fmt.Fprintf(&b, "- %s: %d day streak\n", escapeCell(t.Title), t.CurrentStreak)
		}
	}
	if len(report.Categories) > 0 {
		b.WriteString("\n## Categories\n\n")
		names := make([]string, 0, len(report.Categories))
		for name := range report.Categories {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(&b, "- %s: %d\n", name, report.Categories[name])
		}
	}
	return b.String()
}

// FormatDue renders a due time relative to now: "15:04" today, "tomorrow
// 15:04", "Mon 15:04" within a week, a date otherwise.
func FormatDue(due, now time.Time) string {
	due = due.In(now.Location())
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	days := int(due.Sub(today) / model.Day)
	if due.Before(today) {
		days = -1
	}
	switch {
	case days == 0:
		return due.Format("15:04")
	case days == 1:
		return "tomorrow " + due.Format("15:04")
	case days > 1 && days < 7:
		return due.Format("Mon 15:04")
	default:
		return due.Format("2006-01-02 15:04")
	}
}

func checkbox(done bool) string {
	if done {
		return "✓"
	}
	return "☐"
}

func formatMinutes(d time.Duration) string {
	mins := int(d.Round(time.Minute) / time.Minute)
	if mins < 60 {
		return fmt.Sprintf("%dm", mins)
	}
	if mins%60 == 0 {
		return fmt.Sprintf("%dh", mins/60)
	}
	return fmt.Sprintf("%dh%02dm", mins/60, mins%60)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
