package model

import (
	"errors"
	"time"
)

// CompletionEvent is an append-only record of one completion.
type CompletionEvent struct {
	ID               int64
	TaskID           int64
	CompletedAt      time.Time
	TimeSpentMinutes int
	Difficulty       int
	Hour             int
}

// NewCompletionEvent derives Hour from completedAt in loc and clamps the
// difficulty rating to 0..5 (0 = not rated).
func NewCompletionEvent(taskID int64, completedAt time.Time, minutes, difficulty int, loc *time.Location) (CompletionEvent, error) {
	if completedAt.IsZero() {
		return CompletionEvent{}, errors.New("model: completion time is required")
	}
	if minutes < 0 {
		return CompletionEvent{}, errors.New("model: time spent must not be negative")
	}
	if loc == nil {
		loc = completedAt.Location()
	}
	return CompletionEvent{
		TaskID:           taskID,
		CompletedAt:      completedAt,
		TimeSpentMinutes: minutes,
		Difficulty:       int(ClampDifficulty(float64(difficulty))),
		Hour:             completedAt.In(loc).Hour(),
	}, nil
}

func (e CompletionEvent) TimeSpent() time.Duration {
	return time.Duration(e.TimeSpentMinutes) * time.Minute
}

func (e CompletionEvent) Rated() bool {
	return e.Difficulty > 0
}
