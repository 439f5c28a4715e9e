// Package streak maintains consecutive-completion streaks of recurring tasks.
package streak

import (
	"sort"
	"time"

	"github.com/sandeepkv93/taskmaster/internal/model"
)

// Milestones are the streak lengths worth celebrating.
var Milestones = []int{10, 25, 50, 100, 250, 500, 1000}

type Tracker struct {
	loc *time.Location
}

// NewTracker truncates streak dates to day boundaries in loc (time.Local when nil).
func NewTracker(loc *time.Location) *Tracker {
	if loc == nil {
		loc = time.Local
	}
	return &Tracker{loc: loc}
}

// UpdateOnCompletion applies one completion at now to the streak counters.
// A completion within one calendar day of the last streak day extends the
// streak; XPerY tasks tolerate one missed day; anything else starts a new
// streak of length 1. Non-recurring tasks are returned unchanged.
func (tr *Tracker) UpdateOnCompletion(task model.Task, now time.Time) model.Task {
	if !task.IsRecurring() {
		return task
	}
	out := task
	today := tr.dayStart(now)
	if task.LastStreakDate.IsZero() {
		out.CurrentStreak = 1
	} else {
		days := tr.daysBetween(task.LastStreakDate, today)
		switch {
		case days <= 1:
			out.CurrentStreak++
		case days == 2 && GraceEligible(task):
			out.CurrentStreak++
		default:
			out.CurrentStreak = 1
		}
	}
	if out.CurrentStreak > out.LongestStreak {
		out.LongestStreak = out.CurrentStreak
	}
	out.LastStreakDate = today
	return out
}

// Reset breaks the current streak; the longest streak is a best-ever record
// and stays untouched.
func (tr *Tracker) Reset(task model.Task) model.Task {
	if !task.IsRecurring() {
		return task
	}
	out := task
	out.CurrentStreak = 0
	return out
}

// Expired reports whether the next completion could no longer extend the
// current streak.
func (tr *Tracker) Expired(task model.Task, now time.Time) bool {
	if !task.IsRecurring() || task.CurrentStreak == 0 || task.LastStreakDate.IsZero() {
		return false
	}
	allowed := 1
	if GraceEligible(task) {
		allowed = 2
	}
	return tr.daysBetween(task.LastStreakDate, tr.dayStart(now)) > allowed
}

// GraceEligible reports whether the task gets one extra day before its
// streak breaks. Only flexible XPerY recurrences qualify.
func GraceEligible(task model.Task) bool {
	return task.Recurrence.Kind() == model.RecurrenceXPerY
}

func IsAtRisk(task model.Task, now time.Time) bool {
	if !task.IsRecurring() || task.CurrentStreak == 0 {
		return false
	}
	return task.HasDueDate() && task.DueAt.Before(now) && !task.Completed
}

// DaysUntilExpire returns the whole days left before the streak is lost:
// 0 once a task is two or more days overdue, 1 while inside the grace day,
// the days until due otherwise, and -1 when there is no streak or due date.
func DaysUntilExpire(task model.Task, now time.Time) int {
	if !task.IsRecurring() || task.CurrentStreak == 0 || !task.HasDueDate() {
		return -1
	}
	if task.DueAt.Before(now) {
		if now.Sub(task.DueAt)/model.Day >= 2 {
			return 0
		}
		return 1
	}
	return int(task.DueAt.Sub(now) / model.Day)
}

// Level bands a streak: 0, 1-9, 10-24, 25-49, 50-99, 100+.
func Level(streak int) int {
	switch {
	case streak <= 0:
		return 0
	case streak < 10:
		return 1
	case streak < 25:
		return 2
	case streak < 50:
		return 3
	case streak < 100:
		return 4
	default:
		return 5
	}
}

func IsMilestone(prev, curr int) bool {
	return Milestone(prev, curr) > 0
}

// Milestone returns the first milestone in (prev, curr], or -1.
func Milestone(prev, curr int) int {
	for _, m := range Milestones {
		if prev < m && curr >= m {
			return m
		}
	}
	return -1
}

// FromHistory recomputes streak counters from completion times. Several
// completions on one day count once; current is the run ending on the most
// recent completion day.
func (tr *Tracker) FromHistory(completions []time.Time) (current, longest int) {
	if len(completions) == 0 {
		return 0, 0
	}
	seen := make(map[time.Time]bool, len(completions))
	days := make([]time.Time, 0, len(completions))
	for _, c := range completions {
		d := tr.dayStart(c)
		if seen[d] {
			continue
		}
		seen[d] = true
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	run := 1
	longest = 1
	for i := 1; i < len(days); i++ {
		if tr.daysBetween(days[i-1], days[i]) == 1 {
			run++
		} else {
			run = 1
		}
		if run > longest {
			longest = run
		}
	}
	return run, longest
}

// Replay rebuilds the streak counters of task from its completion times,
// applying each one in order as UpdateOnCompletion would, and breaks the
// result if it has lapsed by now.
func (tr *Tracker) Replay(task model.Task, completions []time.Time, now time.Time) model.Task {
	if !task.IsRecurring() {
		return task
	}
	ordered := append([]time.Time(nil), completions...)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Before(ordered[j]) })

	out := task
	out.CurrentStreak, out.LongestStreak, out.LastStreakDate = 0, 0, time.Time{}
	for _, at := range ordered {
		out = tr.UpdateOnCompletion(out, at)
	}
	if tr.Expired(out, now) {
		out = tr.Reset(out)
	}
	return out
}

func (tr *Tracker) dayStart(ts time.Time) time.Time {
	y, m, d := ts.In(tr.loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, tr.loc)
}

// daysBetween counts calendar days from a to b; negative gaps caused by a
// clock moved backwards clamp to 0.
func (tr *Tracker) daysBetween(a, b time.Time) int {
	ay, am, ad := a.In(tr.loc).Date()
	by, bm, bd := b.In(tr.loc).Date()
	from := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	to := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	days := int(to.Sub(from) / model.Day)
	if days < 0 {
		return 0
	}
	return days
}
