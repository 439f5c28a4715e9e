package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInvalidPriority   = errors.New("model: invalid task priority")
	ErrInvalidTimeOfDay  = errors.New("model: invalid time of day")
	ErrInvalidDifficulty = errors.New("model: invalid difficulty")
	ErrInvalidStreak     = errors.New("model: invalid streak counters")
)

const (
	MinPriority = 1
	MaxPriority = 4

	MaxDifficulty = 5.0
)

// ClampPriority pins p to [MinPriority, MaxPriority].
func ClampPriority(p int) int {
	if p < MinPriority {
		return MinPriority
	}
	if p > MaxPriority {
		return MaxPriority
	}
	return p
}

// ClampDifficulty pins d to [0, MaxDifficulty]; 0 means unrated.
func ClampDifficulty(d float64) float64 {
	if d < 0 {
		return 0
	}
	if d > MaxDifficulty {
		return MaxDifficulty
	}
	return d
}

type TimeOfDay string

const (
	TimeOfDayUnset     TimeOfDay = ""
	TimeOfDayMorning   TimeOfDay = "morning"
	TimeOfDayAfternoon TimeOfDay = "afternoon"
	TimeOfDayEvening   TimeOfDay = "evening"
	TimeOfDayNight     TimeOfDay = "night"
)

func (t TimeOfDay) IsValid() bool {
	switch t {
	case TimeOfDayUnset, TimeOfDayMorning, TimeOfDayAfternoon, TimeOfDayEvening, TimeOfDayNight:
		return true
	default:
		return false
	}
}

func ParseTimeOfDay(raw string) (TimeOfDay, error) {
	t := TimeOfDay(strings.ToLower(strings.TrimSpace(raw)))
	if !t.IsValid() {
		return TimeOfDayUnset, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, raw)
	}
	return t, nil
}

// TimeOfDayAt buckets an hour of day: morning [5,12), afternoon [12,18),
// evening [18,21), night otherwise.
func TimeOfDayAt(hour int) TimeOfDay {
	switch {
	case hour >= 5 && hour < 12:
		return TimeOfDayMorning
	case hour >= 12 && hour < 18:
		return TimeOfDayAfternoon
	case hour >= 18 && hour < 21:
		return TimeOfDayEvening
	default:
		return TimeOfDayNight
	}
}

// SlotHour is the suggested start hour for a preferred time of day.
func (t TimeOfDay) SlotHour() (int, bool) {
	switch t {
	case TimeOfDayMorning:
		return 9, true
	case TimeOfDayAfternoon:
		return 14, true
	case TimeOfDayEvening:
		return 18, true
	case TimeOfDayNight:
		return 21, true
	default:
		return 0, false
	}
}

// Task is the mutable task record. Zero time.Time values mean "unset".
type Task struct {
	ID          int64
	Title       string
	Description string
	Category    string
	Priority    int
	Completed   bool

	CreatedAt       time.Time
	DueAt           time.Time
	CompletedAt     time.Time
	LastCompletedAt time.Time
	OverdueSince    time.Time
	CompletionCount int

	Recurrence    Recurrence
	RecurrenceEnd time.Time

	// XPerY period tracking.
	CompletionsThisPeriod int
	CurrentPeriodStart    time.Time

	CurrentStreak  int
	LongestStreak  int
	LastStreakDate time.Time

	EstimatedDuration     time.Duration
	AverageCompletionTime time.Duration
	PreferredTimeOfDay    TimeOfDay
	AverageDifficulty     float64

	ChainID    int64
	ChainOrder int
}

// NewTask creates a task with every tracking field zeroed. Priority is clamped.
func NewTask(title, description string, priority int, dueAt, createdAt time.Time) (Task, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return Task{}, errors.New("model: task title is required")
	}
	if createdAt.IsZero() {
		return Task{}, errors.New("model: task created_at is required")
	}
	return Task{
		Title:       title,
		Description: strings.TrimSpace(description),
		Priority:    ClampPriority(priority),
		CreatedAt:   createdAt,
		DueAt:       dueAt,
	}, nil
}

func (t Task) IsRecurring() bool {
	return t.Recurrence.IsRecurring()
}

func (t Task) HasDueDate() bool {
	return !t.DueAt.IsZero()
}

func (t Task) IsOverdue(now time.Time) bool {
	return !t.Completed && t.HasDueDate() && now.After(t.DueAt)
}

// RecurrenceEnded reports whether the recurrence window closed before now.
func (t Task) RecurrenceEnded(now time.Time) bool {
	return !t.RecurrenceEnd.IsZero() && now.After(t.RecurrenceEnd)
}

// LastCompletedOrCreated anchors the next due date of a recurring task.
func (t Task) LastCompletedOrCreated() time.Time {
	if !t.LastCompletedAt.IsZero() {
		return t.LastCompletedAt
	}
	return t.CreatedAt
}

// ExpectedDuration prefers the user's estimate over the measured average.
// Zero means unknown.
func (t Task) ExpectedDuration() time.Duration {
	if t.EstimatedDuration > 0 {
		return t.EstimatedDuration
	}
	if t.AverageCompletionTime > 0 {
		return t.AverageCompletionTime
	}
	return 0
}

func (t Task) Validate() error {
	if strings.TrimSpace(t.Title) == "" {
		return errors.New("model: task title is required")
	}
	if t.CreatedAt.IsZero() {
		return errors.New("model: task created_at is required")
	}
	if t.Priority < MinPriority || t.Priority > MaxPriority {
		return fmt.Errorf("%w: %d", ErrInvalidPriority, t.Priority)
	}
	if t.AverageDifficulty < 0 || t.AverageDifficulty > MaxDifficulty {
		return fmt.Errorf("%w: %.2f", ErrInvalidDifficulty, t.AverageDifficulty)
	}
	if !t.PreferredTimeOfDay.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, t.PreferredTimeOfDay)
	}
	if t.EstimatedDuration < 0 || t.AverageCompletionTime < 0 {
		return errors.New("model: task durations must not be negative")
	}
	if t.CurrentStreak < 0 || t.LongestStreak < t.CurrentStreak {
		return fmt.Errorf("%w: current=%d longest=%d", ErrInvalidStreak, t.CurrentStreak, t.LongestStreak)
	}
	if t.CompletionsThisPeriod < 0 {
		return errors.New("model: completions_this_period must not be negative")
	}
	if t.Completed && !t.IsRecurring() && t.CompletedAt.IsZero() {
		return errors.New("model: completed_at is required when a one-off task is completed")
	}
	return nil
}
