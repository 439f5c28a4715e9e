// Package recurrence decides when a recurring task is due again, how a
// completion changes its state, and when a finished task must reappear.
package recurrence

import (
	"time"

	"github.com/sandeepkv93/taskmaster/internal/model"
)

type Engine struct {
	loc *time.Location
}

// NewEngine evaluates calendar periods and scheduled hours in loc
// (time.Local when nil).
func NewEngine(loc *time.Location) *Engine {
	if loc == nil {
		loc = time.Local
	}
	return &Engine{loc: loc}
}

func (e *Engine) Location() *time.Location {
	return e.loc
}

// NextDueDate returns the zero time for non-recurring tasks.
func (e *Engine) NextDueDate(task model.Task, now time.Time) time.Time {
	rec := task.Recurrence
	switch rec.Kind() {
	case model.RecurrenceEveryXY:
		return task.LastCompletedOrCreated().Add(rec.Unit().Interval(rec.Amount()))
	case model.RecurrenceXPerY:
		return task.LastCompletedOrCreated().Add(rec.Unit().Interval(1) / time.Duration(rec.Amount()))
	case model.RecurrenceScheduled:
		return e.nextScheduled(now, rec.Hour())
	default:
		return time.Time{}
	}
}

// RecordCompletion returns the task state after a completion at now.
func (e *Engine) RecordCompletion(task model.Task, now time.Time) model.Task {
	out := task
	out.LastCompletedAt = now
	out.CompletionCount++
	out.OverdueSince = time.Time{}

	rec := task.Recurrence
	switch rec.Kind() {
	case model.RecurrenceEveryXY, model.RecurrenceScheduled:
		out.Completed = true
		out.CompletedAt = now
		out.DueAt = e.NextDueDate(out, now)
	case model.RecurrenceXPerY:
		if out.CurrentPeriodStart.IsZero() || !e.SamePeriod(out.CurrentPeriodStart, now, rec.Unit()) {
			out.CompletionsThisPeriod = 0
			out.CurrentPeriodStart = e.PeriodStart(now, rec.Unit())
		}
		out.CompletionsThisPeriod++
		out.Completed = out.CompletionsThisPeriod >= rec.Amount()
		if out.Completed {
			out.CompletedAt = now
		}
		out.DueAt = e.NextDueDate(out, now)
	default:
		out.Completed = true
		out.CompletedAt = now
	}
	return out
}

// ShouldReset reports whether a completed recurring task is due to
// reappear. XPerY tasks only reset when their calendar period rolls over,
// so a met quota stays completed for the rest of the period.
func (e *Engine) ShouldReset(task model.Task, now time.Time) bool {
	if !task.IsRecurring() || task.RecurrenceEnded(now) {
		return false
	}
	if task.Recurrence.Kind() == model.RecurrenceXPerY && !task.CurrentPeriodStart.IsZero() {
		return e.periodRolledOver(task, now)
	}
	if !task.Completed {
		return false
	}
	return !now.Before(e.reappearAt(task, now))
}

// Reset un-completes a recurring task and moves its due date forward.
// Non-recurring tasks are returned unchanged.
func (e *Engine) Reset(task model.Task, now time.Time) model.Task {
	if !task.IsRecurring() {
		return task
	}
	out := task
	if e.periodRolledOver(task, now) {
		out.CompletionsThisPeriod = 0
		out.CurrentPeriodStart = e.PeriodStart(now, task.Recurrence.Unit())
	}
	out.Completed = false
	out.CompletedAt = time.Time{}
	out.DueAt = e.reappearAt(out, now)
	out.OverdueSince = time.Time{}
	return out
}

// TasksNeedingReset scans a snapshot and returns the updated tasks keyed by
// id. Applying the result and scanning again yields an empty map.
func (e *Engine) TasksNeedingReset(tasks []model.Task, now time.Time) map[int64]model.Task {
	updates := make(map[int64]model.Task)
	for _, task := range tasks {
		if e.ShouldReset(task, now) {
			updates[task.ID] = e.Reset(task, now)
		}
	}
	return updates
}

// WakeAt is the earliest instant ShouldReset can turn true: the reappear
// time of a completed task or, for XPerY with progress, the next period start.
func (e *Engine) WakeAt(task model.Task, now time.Time) (time.Time, bool) {
	if !task.IsRecurring() || task.RecurrenceEnded(now) {
		return time.Time{}, false
	}
	if task.Recurrence.Kind() == model.RecurrenceXPerY && !task.CurrentPeriodStart.IsZero() {
		return e.nextPeriodStart(task.CurrentPeriodStart, task.Recurrence.Unit()), true
	}
	if !task.Completed {
		return time.Time{}, false
	}
	at := e.reappearAt(task, now)
	return at, !at.IsZero()
}

func (e *Engine) nextPeriodStart(ts time.Time, unit model.Unit) time.Time {
	start := e.PeriodStart(ts, unit)
	switch unit {
	case model.UnitWeek:
		return start.AddDate(0, 0, 7)
	case model.UnitMonth:
		return start.AddDate(0, 1, 0)
	default:
		return start.AddDate(0, 0, 1)
	}
}

// Preview lists the next count due dates assuming each occurrence is
// completed exactly when due.
func (e *Engine) Preview(task model.Task, now time.Time, count int) []time.Time {
	if count <= 0 || !task.IsRecurring() {
		return []time.Time{}
	}
	out := make([]time.Time, 0, count)
	cursor := task
	at := now
	for i := 0; i < count; i++ {
		next := e.NextDueDate(cursor, at)
		if !task.RecurrenceEnd.IsZero() && next.After(task.RecurrenceEnd) {
			break
		}
		out = append(out, next)
		cursor.LastCompletedAt = next
		at = next
	}
	return out
}

// PeriodStart truncates ts to the start of its day, ISO week (Monday) or month.
func (e *Engine) PeriodStart(ts time.Time, unit model.Unit) time.Time {
	local := ts.In(e.loc)
	y, m, d := local.Date()
	switch unit {
	case model.UnitWeek:
		offset := (int(local.Weekday()) + 6) % 7
		return time.Date(y, m, d-offset, 0, 0, 0, 0, e.loc)
	case model.UnitMonth:
		return time.Date(y, m, 1, 0, 0, 0, 0, e.loc)
	default:
		return time.Date(y, m, d, 0, 0, 0, 0, e.loc)
	}
}

func (e *Engine) SamePeriod(a, b time.Time, unit model.Unit) bool {
	return e.PeriodStart(a, unit).Equal(e.PeriodStart(b, unit))
}

func (e *Engine) periodRolledOver(task model.Task, now time.Time) bool {
	if task.Recurrence.Kind() != model.RecurrenceXPerY || task.CurrentPeriodStart.IsZero() {
		return false
	}
	if now.Before(task.CurrentPeriodStart) {
		return false
	}
	return !e.SamePeriod(task.CurrentPeriodStart, now, task.Recurrence.Unit())
}

// reappearAt is the instant a completed task becomes pending again. For
// Scheduled tasks it is anchored on the last completion instead of now,
// otherwise the next occurrence would always lie in the future.
func (e *Engine) reappearAt(task model.Task, now time.Time) time.Time {
	if task.Recurrence.Kind() == model.RecurrenceScheduled {
		return e.nextScheduled(task.LastCompletedOrCreated(), task.Recurrence.Hour())
	}
	return e.NextDueDate(task, now)
}

func (e *Engine) nextScheduled(from time.Time, hour int) time.Time {
	local := from.In(e.loc)
	y, m, d := local.Date()
	candidate := time.Date(y, m, d, hour, 0, 0, 0, e.loc)
	if !candidate.After(local) {
		candidate = time.Date(y, m, d+1, hour, 0, 0, 0, e.loc)
	}
	return candidate
}
