package storage

import (
	"time"

	"github.com/sandeepkv93/taskmaster/internal/model"
)

type TaskListFilter struct {
	// Completed filters on the completed flag when set.
	Completed *bool
	Category  string
	ChainID   int64
	Limit     int
	Offset    int
}

type CompletionListFilter struct {
	TaskID int64
	// From and To bound CompletedAt as [From, To). Zero values are open.
	From  time.Time
	To    time.Time
	Limit int
}

// taskRow is the column form of model.Task. Times are stored as fixed-width
// UTC text so that string comparison orders them.
type taskRow struct {
	ID                    int64
	Title                 string
	Description           string
	Category              string
	Priority              int
	Completed             bool
	CreatedAt             string
	DueAt                 *string
	CompletedAt           *string
	LastCompletedAt       *string
	OverdueSince          *string
	CompletionCount       int
	RecurrenceKind        string
	RecurrenceAmount      int
	RecurrenceUnit        string
	RecurrenceHour        int
	RecurrenceEnd         *string
	CompletionsThisPeriod int
	CurrentPeriodStart    *string
	CurrentStreak         int
	LongestStreak         int
	LastStreakDate        *string
	EstimatedDurationMS   int64
	AverageCompletionMS   int64
	PreferredTimeOfDay    string
	AverageDifficulty     float64
	ChainID               int64
	ChainOrder            int
}

func toTaskRow(t model.Task) taskRow {
	kind, amount, unit, hour := t.Recurrence.Parts()
	return taskRow{
		ID:                    t.ID,
		Title:                 t.Title,
		Description:           t.Description,
		Category:              t.Category,
		Priority:              t.Priority,
		Completed:             t.Completed,
		CreatedAt:             formatTime(t.CreatedAt),
		DueAt:                 nullableTime(t.DueAt),
		CompletedAt:           nullableTime(t.CompletedAt),
		LastCompletedAt:       nullableTime(t.LastCompletedAt),
		OverdueSince:          nullableTime(t.OverdueSince),
		CompletionCount:       t.CompletionCount,
		RecurrenceKind:        kind,
		RecurrenceAmount:      amount,
		RecurrenceUnit:        unit,
		RecurrenceHour:        hour,
		RecurrenceEnd:         nullableTime(t.RecurrenceEnd),
		CompletionsThisPeriod: t.CompletionsThisPeriod,
		CurrentPeriodStart:    nullableTime(t.CurrentPeriodStart),
		CurrentStreak:         t.CurrentStreak,
		LongestStreak:         t.LongestStreak,
		LastStreakDate:        nullableTime(t.LastStreakDate),
		EstimatedDurationMS:   t.EstimatedDuration.Milliseconds(),
		AverageCompletionMS:   t.AverageCompletionTime.Milliseconds(),
		PreferredTimeOfDay:    string(t.PreferredTimeOfDay),
		AverageDifficulty:     t.AverageDifficulty,
		ChainID:               t.ChainID,
		ChainOrder:            t.ChainOrder,
	}
}

func (r taskRow) toModel() (model.Task, error) {
	rec, err := model.ParseRecurrence(r.RecurrenceKind, r.RecurrenceAmount, r.RecurrenceUnit, r.RecurrenceHour)
	if err != nil {
		return model.Task{}, err
	}
	tod, err := model.ParseTimeOfDay(r.PreferredTimeOfDay)
	if err != nil {
		return model.Task{}, err
	}
	out := model.Task{
		ID:                    r.ID,
		Title:                 r.Title,
		Description:           r.Description,
		Category:              r.Category,
		Priority:              r.Priority,
		Completed:             r.Completed,
		CompletionCount:       r.CompletionCount,
		Recurrence:            rec,
		CompletionsThisPeriod: r.CompletionsThisPeriod,
		CurrentStreak:         r.CurrentStreak,
		LongestStreak:         r.LongestStreak,
		EstimatedDuration:     time.Duration(r.EstimatedDurationMS) * time.Millisecond,
		AverageCompletionTime: time.Duration(r.AverageCompletionMS) * time.Millisecond,
		PreferredTimeOfDay:    tod,
		AverageDifficulty:     r.AverageDifficulty,
		ChainID:               r.ChainID,
		ChainOrder:            r.ChainOrder,
	}
	fields := []struct {
		raw *string
		dst *time.Time
	}{
		{&r.CreatedAt, &out.CreatedAt},
		{r.DueAt, &out.DueAt},
		{r.CompletedAt, &out.CompletedAt},
		{r.LastCompletedAt, &out.LastCompletedAt},
		{r.OverdueSince, &out.OverdueSince},
		{r.RecurrenceEnd, &out.RecurrenceEnd},
		{r.CurrentPeriodStart, &out.CurrentPeriodStart},
		{r.LastStreakDate, &out.LastStreakDate},
	}
	for _, f := range fields {
		tm, err := parseTime(f.raw)
		if err != nil {
			return model.Task{}, err
		}
		*f.dst = tm
	}
	return out, nil
}
