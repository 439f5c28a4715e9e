// Package stats derives completion analytics from tasks and the completion log.
package stats

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sandeepkv93/taskmaster/internal/model"
	"github.com/sandeepkv93/taskmaster/internal/streak"
)

const Uncategorized = "uncategorized"

type Overview struct {
	Total         int
	Completed     int
	Overdue       int
	Today         int
	Week          int
	LongestStreak int
}

func (o Overview) CompletionPercent() int {
	if o.Total == 0 {
		return 0
	}
	return o.Completed * 100 / o.Total
}

func (o Overview) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Tasks: %d/%d (%d%%)", o.Completed, o.Total, o.CompletionPercent())
	if o.Overdue > 0 {
		fmt.Fprintf(&b, " | Overdue: %d", o.Overdue)
	}
	fmt.Fprintf(&b, "\nToday: %d | Week: %d", o.Today, o.Week)
	if o.LongestStreak > 0 {
		fmt.Fprintf(&b, " | Best streak: %d days", o.LongestStreak)
	}
	return b.String()
}

// Compute builds the overview. Today and Week count completion events in
// the current calendar day and Monday-based week of loc.
func Compute(tasks []model.Task, events []model.CompletionEvent, now time.Time, loc *time.Location) Overview {
	if loc == nil {
		loc = time.Local
	}
	o := Overview{Total: len(tasks), LongestStreak: LongestStreakEver(tasks)}
	for _, task := range tasks {
		switch {
		case task.Completed:
			o.Completed++
		case task.IsOverdue(now):
			o.Overdue++
		}
	}

	day := dayStart(now, loc)
	week := day.AddDate(0, 0, -((int(day.Weekday()) + 6) % 7))
	o.Today = CountInRange(events, day, day.AddDate(0, 0, 1))
	o.Week = CountInRange(events, week, week.AddDate(0, 0, 7))
	return o
}

// CountInRange counts events with from <= CompletedAt < to.
func CountInRange(events []model.CompletionEvent, from, to time.Time) int {
	n := 0
	for _, e := range events {
		if !e.CompletedAt.Before(from) && e.CompletedAt.Before(to) {
			n++
		}
	}
	return n
}

// CompletionAverages returns the mean tracked time and mean rated
// difficulty. Untracked or unrated events are skipped; zero means no data.
func CompletionAverages(events []model.CompletionEvent) (time.Duration, float64) {
	var spent time.Duration
	var tracked, rated, difficulty int
	for _, e := range events {
		if e.TimeSpentMinutes > 0 {
			spent += e.TimeSpent()
			tracked++
		}
		if e.Rated() {
			difficulty += e.Difficulty
			rated++
		}
	}
	var avgTime time.Duration
	var avgDifficulty float64
	if tracked > 0 {
		avgTime = spent / time.Duration(tracked)
	}
	if rated > 0 {
		avgDifficulty = float64(difficulty) / float64(rated)
	}
	return avgTime, avgDifficulty
}

// ForTask keeps the events of a single task.
func ForTask(events []model.CompletionEvent, taskID int64) []model.CompletionEvent {
	out := make([]model.CompletionEvent, 0)
	for _, e := range events {
		if e.TaskID == taskID {
			out = append(out, e)
		}
	}
	return out
}

func ByHour(events []model.CompletionEvent) [24]int {
	var out [24]int
	for _, e := range events {
		if e.Hour >= 0 && e.Hour < 24 {
			out[e.Hour]++
		}
	}
	return out
}

func ByTimeOfDay(events []model.CompletionEvent) map[model.TimeOfDay]int {
	out := make(map[model.TimeOfDay]int, 4)
	for _, e := range events {
		out[model.TimeOfDayAt(e.Hour)]++
	}
	return out
}

var bucketOrder = []model.TimeOfDay{
	model.TimeOfDayMorning,
	model.TimeOfDayAfternoon,
	model.TimeOfDayEvening,
	model.TimeOfDayNight,
}

// MostProductive returns the bucket with the most completions. Ties go to
// the earlier bucket.
func MostProductive(events []model.CompletionEvent) (model.TimeOfDay, bool) {
	counts := ByTimeOfDay(events)
	best, bestCount := model.TimeOfDayUnset, 0
	for _, bucket := range bucketOrder {
		if counts[bucket] > bestCount {
			best, bestCount = bucket, counts[bucket]
		}
	}
	return best, bestCount > 0
}

// TodayStats counts tasks completed today and those still open in the
// day plan.
func TodayStats(tasks []model.Task, now time.Time, loc *time.Location) (completed, pending int) {
	if loc == nil {
		loc = time.Local
	}
	day := dayStart(now, loc)
	next := day.AddDate(0, 0, 1)
	for _, task := range tasks {
		if task.Completed {
			if !task.CompletedAt.Before(day) && task.CompletedAt.Before(next) {
				completed++
			}
			continue
		}
		if !task.HasDueDate() || task.DueAt.Before(next) {
			pending++
		}
	}
	return completed, pending
}

// TopStreaks returns up to n recurring tasks with an active streak, longest first.
func TopStreaks(tasks []model.Task, n int) []model.Task {
	out := make([]model.Task, 0)
	for _, task := range tasks {
		if task.IsRecurring() && task.CurrentStreak > 0 {
			out = append(out, task)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CurrentStreak > out[j].CurrentStreak
	})
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

func StreaksAtRisk(tasks []model.Task, now time.Time) []model.Task {
	out := make([]model.Task, 0)
	for _, task := range tasks {
		if streak.IsAtRisk(task, now) {
			out = append(out, task)
		}
	}
	return out
}

func LongestStreakEver(tasks []model.Task) int {
	best := 0
	for _, task := range tasks {
		if task.LongestStreak > best {
			best = task.LongestStreak
		}
	}
	return best
}

// CategoryDistribution counts tasks per category; blank categories are
// reported as Uncategorized.
func CategoryDistribution(tasks []model.Task) map[string]int {
	out := make(map[string]int)
	for _, task := range tasks {
		cat := strings.TrimSpace(task.Category)
		if cat == "" {
			cat = Uncategorized
		}
		out[cat]++
	}
	return out
}

func dayStart(ts time.Time, loc *time.Location) time.Time {
	local := ts.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}

// Report bundles everything the stats screen shows.
type Report struct {
	Overview       Overview
	AverageTime    time.Duration
	AverageRating  float64
	MostProductive model.TimeOfDay
	ByTimeOfDay    map[model.TimeOfDay]int
	TopStreaks     []model.Task
	AtRisk         []model.Task
	Categories     map[string]int
}

func BuildReport(tasks []model.Task, events []model.CompletionEvent, now time.Time, loc *time.Location) Report {
	avg, rating := CompletionAverages(events)
	best, _ := MostProductive(events)
	return Report{
		Overview:       Compute(tasks, events, now, loc),
		AverageTime:    avg,
		AverageRating:  rating,
		MostProductive: best,
		ByTimeOfDay:    ByTimeOfDay(events),
		TopStreaks:     TopStreaks(tasks, 5),
		AtRisk:         StreaksAtRisk(tasks, now),
		Categories:     CategoryDistribution(tasks),
	}
}
