package scheduler

import (
	"time"

	"github.com/sandeepkv93/taskmaster/internal/model"
	"github.com/sandeepkv93/taskmaster/internal/scoring"
)

const (
	DefaultDuration = 30 * time.Minute
	DefaultBreak    = 15 * time.Minute
	todayWindow     = 24 * time.Hour
)

type TimelineEntry struct {
	Task      model.Task
	Score     float64
	Start     time.Time
	End       time.Time
	Completed bool
}

func (e TimelineEntry) Duration() time.Duration {
	return e.End.Sub(e.Start)
}

type Summary struct {
	Total             int
	Completed         int
	Remaining         int
	RemainingDuration time.Duration
	FinishAt          time.Time
}

// Planner turns scored tasks into a suggested day timeline.
type Planner struct {
	scorer          *scoring.Scorer
	loc             *time.Location
	defaultDuration time.Duration
	breakGap        time.Duration
}

type PlannerOption func(*Planner)

// WithDefaultDuration sets the slot length for tasks with no estimate.
func WithDefaultDuration(d time.Duration) PlannerOption {
	return func(p *Planner) {
		if d > 0 {
			p.defaultDuration = d
		}
	}
}

// WithBreak sets the gap inserted after every pending task.
func WithBreak(d time.Duration) PlannerOption {
	return func(p *Planner) {
		if d >= 0 {
			p.breakGap = d
		}
	}
}

func NewPlanner(loc *time.Location, opts ...PlannerOption) *Planner {
	if loc == nil {
		loc = time.Local
	}
	p := &Planner{
		scorer:          scoring.NewScorer(loc),
		loc:             loc,
		defaultDuration: DefaultDuration,
		breakGap:        DefaultBreak,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// TodayTasks keeps pending tasks with no due date, overdue, or due within
// the next 24h, plus tasks completed today.
func (p *Planner) TodayTasks(tasks []model.Task, now time.Time) []model.Task {
	out := make([]model.Task, 0, len(tasks))
	horizon := now.Add(todayWindow)
	for _, task := range tasks {
		if task.Completed {
			if !task.CompletedAt.IsZero() && sameDay(task.CompletedAt.In(p.loc), now.In(p.loc)) {
				out = append(out, task)
			}
			continue
		}
		if !task.HasDueDate() || !task.DueAt.After(horizon) {
			out = append(out, task)
		}
	}
	return out
}

// BuildTimeline orders tasks by score and lays pending ones out from the
// next full hour. Completed entries sit at their completion time.
func (p *Planner) BuildTimeline(tasks []model.Task, now time.Time) []TimelineEntry {
	local := now.In(p.loc)
	cursor := ceilHour(local)
	ranked := p.scorer.Rank(tasks, now)

	out := make([]TimelineEntry, 0, len(ranked))
	for _, r := range ranked {
		if r.Task.Completed {
			at := r.Task.CompletedAt
			if at.IsZero() {
				at = r.Task.LastCompletedAt
			}
			at = at.In(p.loc)
			out = append(out, TimelineEntry{Task: r.Task, Score: r.Score, Start: at, End: at, Completed: true})
			continue
		}

		start := cursor
		if slot, ok := p.preferredSlot(r.Task, local); ok && slot.After(start) {
			start = slot
		}
		end := start.Add(p.duration(r.Task))
		out = append(out, TimelineEntry{Task: r.Task, Score: r.Score, Start: start, End: end})
		cursor = end.Add(p.breakGap)
	}
	return out
}

// Plan filters to today's tasks and builds their timeline.
func (p *Planner) Plan(tasks []model.Task, now time.Time) []TimelineEntry {
	return p.BuildTimeline(p.TodayTasks(tasks, now), now)
}

func Summarize(entries []TimelineEntry) Summary {
	s := Summary{Total: len(entries)}
	for _, e := range entries {
		if e.Completed {
			s.Completed++
			continue
		}
		s.Remaining++
		s.RemainingDuration += e.Duration()
		if e.End.After(s.FinishAt) {
			s.FinishAt = e.End
		}
	}
	return s
}

func (p *Planner) duration(task model.Task) time.Duration {
	if d := task.ExpectedDuration(); d > 0 {
		return d
	}
	return p.defaultDuration
}

// preferredSlot is today's slot hour for the task, only while it is still ahead.
func (p *Planner) preferredSlot(task model.Task, now time.Time) (time.Time, bool) {
	hour, ok := task.PreferredTimeOfDay.SlotHour()
	if !ok {
		return time.Time{}, false
	}
	slot := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, p.loc)
	if slot.Before(now) {
		return time.Time{}, false
	}
	return slot, true
}

func ceilHour(t time.Time) time.Time {
	floor := time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, t.Location())
	if floor.Equal(t) {
		return floor
	}
	return floor.Add(time.Hour)
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
