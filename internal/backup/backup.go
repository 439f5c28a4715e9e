// Package backup moves tasks and the completion log to and from a JSON
// document.
package backup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/sandeepkv93/taskmaster/internal/model"
	"github.com/sandeepkv93/taskmaster/internal/storage"
)

const Version = 1

var (
	ErrUnsupportedVersion = errors.New("backup: unsupported version")
	ErrInvalidDocument    = errors.New("backup: invalid document")
)

// Store is the slice of storage.Repository a backup needs.
type Store interface {
	ListTasks(ctx context.Context, filter storage.TaskListFilter) ([]model.Task, error)
	ListCompletions(ctx context.Context, filter storage.CompletionListFilter) ([]model.CompletionEvent, error)
	Restore(ctx context.Context, tasks []model.Task, completions []model.CompletionEvent) error
}

type Document struct {
	Version     int          `json:"version"`
	ExportedAt  string       `json:"exported_at"`
	Tasks       []Task       `json:"tasks"`
	Completions []Completion `json:"completions"`
}

type Recurrence struct {
	Kind   string `json:"kind"`
	Amount int    `json:"amount,omitempty"`
	Unit   string `json:"unit,omitempty"`
	Hour   int    `json:"hour,omitempty"`
}

type Task struct {
	ID                    int64      `json:"id"`
	Title                 string     `json:"title"`
	Description           string     `json:"description,omitempty"`
	Category              string     `json:"category,omitempty"`
	Priority              int        `json:"priority"`
	Completed             bool       `json:"completed"`
	CreatedAt             string     `json:"created_at"`
	DueAt                 string     `json:"due_at,omitempty"`
	CompletedAt           string     `json:"completed_at,omitempty"`
	LastCompletedAt       string     `json:"last_completed_at,omitempty"`
	OverdueSince          string     `json:"overdue_since,omitempty"`
	CompletionCount       int        `json:"completion_count"`
	Recurrence            Recurrence `json:"recurrence"`
	RecurrenceEnd         string     `json:"recurrence_end,omitempty"`
	CompletionsThisPeriod int        `json:"completions_this_period"`
	CurrentPeriodStart    string     `json:"current_period_start,omitempty"`
	CurrentStreak         int        `json:"current_streak"`
	LongestStreak         int        `json:"longest_streak"`
	LastStreakDate        string     `json:"last_streak_date,omitempty"`
	EstimatedDurationMS   int64      `json:"estimated_duration_ms"`
	AverageCompletionMS   int64      `json:"average_completion_ms"`
	PreferredTimeOfDay    string     `json:"preferred_time_of_day,omitempty"`
	AverageDifficulty     float64    `json:"average_difficulty"`
	ChainID               int64      `json:"chain_id,omitempty"`
	ChainOrder            int        `json:"chain_order,omitempty"`
}

type Completion struct {
	ID               int64  `json:"id"`
	TaskID           int64  `json:"task_id"`
	CompletedAt      string `json:"completed_at"`
	TimeSpentMinutes int    `json:"time_spent_minutes"`
	Difficulty       int    `json:"difficulty"`
	Hour             int    `json:"hour"`
}

type Result struct {
	Tasks       int
	Completions int
}

// FileName is the default name of a backup taken at ts.
func FileName(ts time.Time) string {
	return "taskmaster-backup-" + ts.Format("2006-01-02_15-04-05") + ".json"
}

// Export writes every task and completion in store to w.
func Export(ctx context.Context, store Store, w io.Writer, now time.Time) (Result, error) {
	tasks, err := store.ListTasks(ctx, storage.TaskListFilter{})
	if err != nil {
		return Result{}, fmt.Errorf("list tasks: %w", err)
	}
	completions, err := store.ListCompletions(ctx, storage.CompletionListFilter{})
	if err != nil {
		return Result{}, fmt.Errorf("list completions: %w", err)
	}
	doc := Encode(tasks, completions, now)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return Result{}, fmt.Errorf("encode backup: %w", err)
	}
	return Result{Tasks: len(doc.Tasks), Completions: len(doc.Completions)}, nil
}

// Import decodes r and replaces the contents of store with it. Nothing is
// written unless the whole document is valid.
func Import(ctx context.Context, store Store, r io.Reader) (Result, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	tasks, completions, err := Decode(doc)
	if err != nil {
		return Result{}, err
	}
	if err := store.Restore(ctx, tasks, completions); err != nil {
		return Result{}, fmt.Errorf("restore: %w", err)
	}
	return Result{Tasks: len(tasks), Completions: len(completions)}, nil
}

func Encode(tasks []model.Task, completions []model.CompletionEvent, now time.Time) Document {
	doc := Document{
		Version:     Version,
		ExportedAt:  formatTime(now),
		Tasks:       make([]Task, 0, len(tasks)),
		Completions: make([]Completion, 0, len(completions)),
	}
	for _, t := range tasks {
		doc.Tasks = append(doc.Tasks, encodeTask(t))
	}
	for _, c := range completions {
		doc.Completions = append(doc.Completions, Completion{
			ID:               c.ID,
			TaskID:           c.TaskID,
			CompletedAt:      formatTime(c.CompletedAt),
			TimeSpentMinutes: c.TimeSpentMinutes,
			Difficulty:       c.Difficulty,
			Hour:             c.Hour,
		})
	}
	return doc
}

// Decode validates doc and converts it back to model values.
func Decode(doc Document) ([]model.Task, []model.CompletionEvent, error) {
	if doc.Version != Version {
		return nil, nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, doc.Version)
	}
	ids := make(map[int64]bool, len(doc.Tasks))
	tasks := make([]model.Task, 0, len(doc.Tasks))
	for i, raw := range doc.Tasks {
		t, err := decodeTask(raw)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: task #%d: %v", ErrInvalidDocument, i, err)
		}
		if t.ID <= 0 || ids[t.ID] {
			return nil, nil, fmt.Errorf("%w: task #%d: missing or duplicate id %d", ErrInvalidDocument, i, t.ID)
		}
		ids[t.ID] = true
		tasks = append(tasks, t)
	}
	completions := make([]model.CompletionEvent, 0, len(doc.Completions))
	for i, raw := range doc.Completions {
		at, err := parseTime(raw.CompletedAt)
		if err != nil || at.IsZero() {
			return nil, nil, fmt.Errorf("%w: completion #%d: bad completed_at %q", ErrInvalidDocument, i, raw.CompletedAt)
		}
		if !ids[raw.TaskID] {
			return nil, nil, fmt.Errorf("%w: completion #%d: unknown task %d", ErrInvalidDocument, i, raw.TaskID)
		}
		if raw.TimeSpentMinutes < 0 || raw.Difficulty < 0 || raw.Difficulty > int(model.MaxDifficulty) || raw.Hour < 0 || raw.Hour > 23 {
			return nil, nil, fmt.Errorf("%w: completion #%d: field out of range", ErrInvalidDocument, i)
		}
		completions = append(completions, model.CompletionEvent{
			ID:               raw.ID,
			TaskID:           raw.TaskID,
			CompletedAt:      at,
			TimeSpentMinutes: raw.TimeSpentMinutes,
			Difficulty:       raw.Difficulty,
			Hour:             raw.Hour,
		})
	}
	return tasks, completions, nil
}

func encodeTask(t model.Task) Task {
	kind, amount, unit, hour := t.Recurrence.Parts()
	return Task{
		ID:                    t.ID,
		Title:                 t.Title,
		Description:           t.Description,
		Category:              t.Category,
		Priority:              t.Priority,
		Completed:             t.Completed,
		CreatedAt:             formatTime(t.CreatedAt),
		DueAt:                 formatTime(t.DueAt),
		CompletedAt:           formatTime(t.CompletedAt),
		LastCompletedAt:       formatTime(t.LastCompletedAt),
		OverdueSince:          formatTime(t.OverdueSince),
		CompletionCount:       t.CompletionCount,
		Recurrence:            Recurrence{Kind: kind, Amount: amount, Unit: unit, Hour: hour},
		RecurrenceEnd:         formatTime(t.RecurrenceEnd),
		CompletionsThisPeriod: t.CompletionsThisPeriod,
		CurrentPeriodStart:    formatTime(t.CurrentPeriodStart),
		CurrentStreak:         t.CurrentStreak,
		LongestStreak:         t.LongestStreak,
		LastStreakDate:        formatTime(t.LastStreakDate),
		EstimatedDurationMS:   t.EstimatedDuration.Milliseconds(),
		AverageCompletionMS:   t.AverageCompletionTime.Milliseconds(),
		PreferredTimeOfDay:    string(t.PreferredTimeOfDay),
		AverageDifficulty:     t.AverageDifficulty,
		ChainID:               t.ChainID,
		ChainOrder:            t.ChainOrder,
	}
}

func decodeTask(raw Task) (model.Task, error) {
	rec, err := model.ParseRecurrence(raw.Recurrence.Kind, raw.Recurrence.Amount, raw.Recurrence.Unit, raw.Recurrence.Hour)
	if err != nil {
		return model.Task{}, err
	}
	tod, err := model.ParseTimeOfDay(raw.PreferredTimeOfDay)
	if err != nil {
		return model.Task{}, err
	}
	out := model.Task{
		ID:                    raw.ID,
		Title:                 raw.Title,
		Description:           raw.Description,
		Category:              raw.Category,
		Priority:              raw.Priority,
		Completed:             raw.Completed,
		CompletionCount:       raw.CompletionCount,
		Recurrence:            rec,
		CompletionsThisPeriod: raw.CompletionsThisPeriod,
		CurrentStreak:         raw.CurrentStreak,
		LongestStreak:         raw.LongestStreak,
		EstimatedDuration:     time.Duration(raw.EstimatedDurationMS) * time.Millisecond,
		AverageCompletionTime: time.Duration(raw.AverageCompletionMS) * time.Millisecond,
		PreferredTimeOfDay:    tod,
		AverageDifficulty:     raw.AverageDifficulty,
		ChainID:               raw.ChainID,
		ChainOrder:            raw.ChainOrder,
	}
	fields := []struct {
		raw string
		dst *time.Time
	}{
		{raw.CreatedAt, &out.CreatedAt},
		{raw.DueAt, &out.DueAt},
		{raw.CompletedAt, &out.CompletedAt},
		{raw.LastCompletedAt, &out.LastCompletedAt},
		{raw.OverdueSince, &out.OverdueSince},
		{raw.RecurrenceEnd, &out.RecurrenceEnd},
		{raw.CurrentPeriodStart, &out.CurrentPeriodStart},
		{raw.LastStreakDate, &out.LastStreakDate},
	}
	for _, f := range fields {
		tm, err := parseTime(f.raw)
		if err != nil {
			return model.Task{}, err
		}
		*f.dst = tm
	}
	if err := out.Validate(); err != nil {
		return model.Task{}, err
	}
	return out, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339Nano)
}

func parseTime(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, raw)
}
