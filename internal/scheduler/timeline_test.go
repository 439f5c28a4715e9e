package scheduler

import (
	"testing"
	"time"

	"github.com/sandeepkv93/taskmaster/internal/model"
)

func at(hour, minute int) time.Time {
	return time.Date(2026, 3, 10, hour, minute, 0, 0, time.UTC)
}

func pending(id int64, priority int, estimate time.Duration) model.Task {
	return model.Task{
		ID:                id,
		Title:             "task",
		Priority:          priority,
		CreatedAt:         at(0, 0),
		EstimatedDuration: estimate,
	}
}

func TestBuildTimelineHonoursBreak(t *testing.T) {
	p := NewPlanner(time.UTC)
	tasks := []model.Task{pending(1, 4, 30*time.Minute), pending(2, 3, 30*time.Minute)}

	entries := p.BuildTimeline(tasks, at(8, 20))
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if !entries[0].Start.Equal(at(9, 0)) || !entries[0].End.Equal(at(9, 30)) {
		t.Fatalf("first entry = %s-%s", entries[0].Start, entries[0].End)
	}
	if !entries[1].Start.Equal(at(9, 45)) || !entries[1].End.Equal(at(10, 15)) {
		t.Fatalf("second entry = %s-%s", entries[1].Start, entries[1].End)
	}
}

func TestBuildTimelineCursorOnTheHour(t *testing.T) {
	p := NewPlanner(time.UTC)
	entries := p.BuildTimeline([]model.Task{pending(1, 2, 0)}, at(9, 0))
	if !entries[0].Start.Equal(at(9, 0)) || !entries[0].End.Equal(at(9, 30)) {
		t.Fatalf("expected default 30m slot at 09:00, got %s-%s", entries[0].Start, entries[0].End)
	}
}

func TestBuildTimelinePreferredSlot(t *testing.T) {
	p := NewPlanner(time.UTC)
	evening := pending(1, 4, time.Hour)
	evening.PreferredTimeOfDay = model.TimeOfDayEvening
	morning := pending(2, 1, 0)
	morning.PreferredTimeOfDay = model.TimeOfDayMorning

	entries := p.BuildTimeline([]model.Task{evening, morning}, at(10, 5))
	byID := map[int64]TimelineEntry{}
	for _, e := range entries {
		byID[e.Task.ID] = e
	}
	if got := byID[1].Start; !got.Equal(at(18, 0)) {
		t.Fatalf("evening task should start at 18:00, got %s", got)
	}
	// 09:00 already passed, so the morning task falls back to the cursor.
	if got := byID[2].Start; !got.Equal(at(19, 15)) {
		t.Fatalf("morning task should follow the cursor, got %s", got)
	}
}

func TestBuildTimelineCompletedEntries(t *testing.T) {
	p := NewPlanner(time.UTC)
	done := pending(1, 4, 20*time.Minute)
	done.Completed = true
	done.CompletedAt = at(7, 30)
	open := pending(2, 1, 20*time.Minute)

	entries := p.BuildTimeline([]model.Task{open, done}, at(8, 10))
	var completed, next TimelineEntry
	for _, e := range entries {
		if e.Completed {
			completed = e
		} else {
			next = e
		}
	}
	if !completed.Start.Equal(at(7, 30)) || !completed.End.Equal(at(7, 30)) {
		t.Fatalf("completed entry should sit at completion time, got %s-%s", completed.Start, completed.End)
	}
	if !next.Start.Equal(at(9, 0)) {
		t.Fatalf("completed task must not consume the cursor, got %s", next.Start)
	}

	s := Summarize(entries)
	if s.Total != 2 || s.Completed != 1 || s.Remaining != 1 {
		t.Fatalf("unexpected counts: %+v", s)
	}
	if s.RemainingDuration != 20*time.Minute || !s.FinishAt.Equal(at(9, 20)) {
		t.Fatalf("unexpected summary: %+v", s)
	}
}

func TestTodayTasksFilter(t *testing.T) {
	p := NewPlanner(time.UTC)
	now := at(12, 0)

	noDue := pending(1, 1, 0)
	overdue := pending(2, 1, 0)
	overdue.DueAt = at(8, 0)
	soon := pending(3, 1, 0)
	soon.DueAt = now.Add(23 * time.Hour)
	later := pending(4, 1, 0)
	later.DueAt = now.Add(48 * time.Hour)
	doneToday := pending(5, 1, 0)
	doneToday.Completed = true
	doneToday.CompletedAt = at(10, 0)
	doneYesterday := pending(6, 1, 0)
	doneYesterday.Completed = true
	doneYesterday.CompletedAt = at(10, 0).Add(-24 * time.Hour)

	got := p.TodayTasks([]model.Task{noDue, overdue, soon, later, doneToday, doneYesterday}, now)
	want := []int64{1, 2, 3, 5}
	if len(got) != len(want) {
		t.Fatalf("expected %d tasks, got %d", len(want), len(got))
	}
	for i, id := range want {
		if got[i].ID != id {
			t.Fatalf("position %d: got %d want %d", i, got[i].ID, id)
		}
	}
}

func TestPlannerOptions(t *testing.T) {
	p := NewPlanner(time.UTC, WithDefaultDuration(45*time.Minute), WithBreak(0))
	entries := p.Plan([]model.Task{pending(1, 4, 0), pending(2, 1, 0)}, at(9, 0))
	if !entries[0].End.Equal(at(9, 45)) || !entries[1].Start.Equal(at(9, 45)) {
		t.Fatalf("options not applied: %s %s", entries[0].End, entries[1].Start)
	}
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil)
	if s.Total != 0 || !s.FinishAt.IsZero() {
		t.Fatalf("unexpected empty summary: %+v", s)
	}
}
