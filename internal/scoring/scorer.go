// Package scoring ranks tasks by a composite urgency score in [0, 100].
package scoring

import (
	"fmt"
	"sort"
	"time"

	"github.com/sandeepkv93/taskmaster/internal/model"
	"github.com/sandeepkv93/taskmaster/internal/streak"
)

// Factor caps; they sum to 100.
const (
	WeightPriority       = 25.0
	WeightDueDate        = 30.0
	WeightStreak         = 20.0
	WeightTimePreference = 10.0
	WeightDifficulty     = 10.0
	WeightDuration       = 5.0

	maxOverdueDecayDays = 7
)

// Breakdown holds each factor's contribution to a score.
type Breakdown struct {
	Priority       float64
	DueDate        float64
	Streak         float64
	TimePreference float64
	Difficulty     float64
	Duration       float64
}

func (b Breakdown) Total() float64 {
	total := b.Priority + b.DueDate + b.Streak + b.TimePreference + b.Difficulty + b.Duration
	if total < 0 {
		return 0
	}
	if total > 100 {
		return 100
	}
	return total
}

func (b Breakdown) String() string {
	return fmt.Sprintf("P:%.1f D:%.1f S:%.1f T:%.1f Df:%.1f Du:%.1f = %.1f",
		b.Priority, b.DueDate, b.Streak, b.TimePreference, b.Difficulty, b.Duration, b.Total())
}

type Scored struct {
	Task      model.Task
	Score     float64
	Breakdown Breakdown
}

type Scorer struct {
	loc *time.Location
}

// NewScorer reads the hour of day in loc (time.Local when nil).
func NewScorer(loc *time.Location) *Scorer {
	if loc == nil {
		loc = time.Local
	}
	return &Scorer{loc: loc}
}

func (s *Scorer) Score(task model.Task, now time.Time) float64 {
	return s.Breakdown(task, now).Total()
}

func (s *Scorer) Breakdown(task model.Task, now time.Time) Breakdown {
	hour := now.In(s.loc).Hour()
	return Breakdown{
		Priority:       priorityScore(task),
		DueDate:        dueDateScore(task, now),
		Streak:         streakScore(task, now),
		TimePreference: timePreferenceScore(task, hour),
		Difficulty:     difficultyScore(task, hour),
		Duration:       durationScore(task),
	}
}

// Rank scores every task, completed ones included, and orders them by
// descending score. Equal scores keep their input order.
func (s *Scorer) Rank(tasks []model.Task, now time.Time) []Scored {
	out := make([]Scored, 0, len(tasks))
	for _, task := range tasks {
		b := s.Breakdown(task, now)
		out = append(out, Scored{Task: task, Score: b.Total(), Breakdown: b})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

// SortTasks drops completed tasks and returns the rest best-first.
func (s *Scorer) SortTasks(tasks []model.Task, now time.Time) []model.Task {
	pending := make([]model.Task, 0, len(tasks))
	for _, task := range tasks {
		if !task.Completed {
			pending = append(pending, task)
		}
	}
	ranked := s.Rank(pending, now)
	out := make([]model.Task, 0, len(ranked))
	for _, item := range ranked {
		out = append(out, item.Task)
	}
	return out
}

func (s *Scorer) NextTask(tasks []model.Task, now time.Time) (model.Task, bool) {
	return s.NextAvailableTask(tasks, now, nil)
}

// NextAvailableTask is NextTask skipping tasks for which blocked returns true.
func (s *Scorer) NextAvailableTask(tasks []model.Task, now time.Time, blocked func(model.Task) bool) (model.Task, bool) {
	for _, task := range s.SortTasks(tasks, now) {
		if blocked != nil && blocked(task) {
			continue
		}
		return task, true
	}
	return model.Task{}, false
}

func priorityScore(task model.Task) float64 {
	p := model.ClampPriority(task.Priority)
	return float64(p) / float64(model.MaxPriority) * WeightPriority
}

// dueDateScore: overdue 30 minus one point per whole day overdue (at most
// seven), today 25, tomorrow 20, within 3 days 15, within 7 days 10,
// later 5, no due date 2.
func dueDateScore(task model.Task, now time.Time) float64 {
	if !task.HasDueDate() {
		return 2
	}
	until := task.DueAt.Sub(now)
	days := int64(until / model.Day)
	if until < 0 {
		overdue := -days
		if overdue > maxOverdueDecayDays {
			overdue = maxOverdueDecayDays
		}
		return WeightDueDate - float64(overdue)
	}
	switch {
	case days == 0:
		return 25
	case days == 1:
		return 20
	case days <= 3:
		return 15
	case days <= 7:
		return 10
	default:
		return 5
	}
}

func streakScore(task model.Task, now time.Time) float64 {
	if !task.IsRecurring() {
		return 0
	}
	if task.CurrentStreak > 0 {
		if streak.IsAtRisk(task, now) {
			return WeightStreak
		}
		return WeightStreak * 0.75
	}
	return WeightStreak * 0.25
}

func timePreferenceScore(task model.Task, hour int) float64 {
	if task.PreferredTimeOfDay == model.TimeOfDayUnset {
		return WeightTimePreference * 0.5
	}
	if model.TimeOfDayAt(hour) == task.PreferredTimeOfDay {
		return WeightTimePreference
	}
	return 0
}

// difficultyScore favours hard tasks in the morning and easy ones later.
func difficultyScore(task model.Task, hour int) float64 {
	difficulty := model.ClampDifficulty(task.AverageDifficulty)
	if difficulty == 0 {
		return WeightDifficulty * 0.5
	}
	normalized := difficulty / model.MaxDifficulty
	if hour >= 5 && hour < 12 {
		return normalized * WeightDifficulty
	}
	return (1 - normalized) * WeightDifficulty
}

func durationScore(task model.Task) float64 {
	d := task.ExpectedDuration()
	switch {
	case d <= 0:
		return WeightDuration * 0.5
	case d <= 15*time.Minute:
		return WeightDuration
	case d <= time.Hour:
		return 3
	default:
		return 1
	}
}
