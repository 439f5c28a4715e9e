package recurrence

import (
	"testing"
	"time"

	"github.com/sandeepkv93/taskmaster/internal/model"
)

// mustRecurrence takes a constructor result directly, as in
// mustRecurrence(model.EveryXY(2, model.UnitDay)).
func mustRecurrence(r model.Recurrence, err error) model.Recurrence {
	if err != nil {
		panic(err)
	}
	return r
}

func newTask(t *testing.T, created time.Time, rec model.Recurrence) model.Task {
	t.Helper()
	task, err := model.NewTask("Recurring", "", 2, time.Time{}, created)
	if err != nil {
		t.Fatalf("new task: %v", err)
	}
	task.ID = 1
	task.Recurrence = rec
	return task
}

func TestNextDueDate(t *testing.T) {
	engine := NewEngine(time.UTC)
	created := time.Date(2026, 2, 2, 8, 0, 0, 0, time.UTC)
	now := time.Date(2026, 2, 3, 10, 0, 0, 0, time.UTC)

	cases := []struct {
		name string
		rec  model.Recurrence
		want time.Time
	}{
		{"every 2 days", mustRecurrence(model.EveryXY(2, model.UnitDay)), created.Add(48 * time.Hour)},
		{"every week", mustRecurrence(model.EveryXY(1, model.UnitWeek)), created.Add(7 * 24 * time.Hour)},
		{"every month", mustRecurrence(model.EveryXY(1, model.UnitMonth)), created.Add(30 * 24 * time.Hour)},
		{"3 per week", mustRecurrence(model.XPerY(3, model.UnitWeek)), created.Add(56 * time.Hour)},
		{"scheduled later today", mustRecurrence(model.ScheduledAt(18)), time.Date(2026, 2, 3, 18, 0, 0, 0, time.UTC)},
		{"scheduled passed", mustRecurrence(model.ScheduledAt(7)), time.Date(2026, 2, 4, 7, 0, 0, 0, time.UTC)},
		{"scheduled exactly now", mustRecurrence(model.ScheduledAt(10)), time.Date(2026, 2, 4, 10, 0, 0, 0, time.UTC)},
		{"none", model.NoRecurrence(), time.Time{}},
	}
	for _, tc := range cases {
		task := newTask(t, created, tc.rec)
		if got := engine.NextDueDate(task, now); !got.Equal(tc.want) {
			t.Fatalf("%s: next due = %s, want %s", tc.name, got.Format(time.RFC3339), tc.want.Format(time.RFC3339))
		}
	}
}

func TestNextDueDateUsesLastCompletion(t *testing.T) {
	engine := NewEngine(time.UTC)
	created := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)
	task := newTask(t, created, mustRecurrence(model.EveryXY(1, model.UnitDay)))
	task.LastCompletedAt = time.Date(2026, 2, 5, 21, 0, 0, 0, time.UTC)
	got := engine.NextDueDate(task, task.LastCompletedAt)
	if got.Format("2006-01-02 15:04") != "2026-02-06 21:00" {
		t.Fatalf("unexpected next due: %s", got.Format(time.RFC3339))
	}
}

func TestEveryXYScenario(t *testing.T) {
	engine := NewEngine(time.UTC)
	created := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)
	task := newTask(t, created, mustRecurrence(model.EveryXY(2, model.UnitDay)))

	done := time.Date(2026, 2, 2, 9, 30, 0, 0, time.UTC)
	task = engine.RecordCompletion(task, done)
	if !task.Completed || !task.CompletedAt.Equal(done) || !task.LastCompletedAt.Equal(done) {
		t.Fatalf("unexpected state after completion: %+v", task)
	}
	if !task.DueAt.Equal(done.Add(2 * model.Day)) {
		t.Fatalf("due = %s, want %s", task.DueAt, done.Add(2*model.Day))
	}
	if task.CompletionCount != 1 {
		t.Fatalf("expected completion count 1, got %d", task.CompletionCount)
	}

	if engine.ShouldReset(task, task.DueAt.Add(-time.Minute)) {
		t.Fatal("task must stay completed before its due date")
	}
	if !engine.ShouldReset(task, task.DueAt) {
		t.Fatal("task should reset once now reaches the due date")
	}

	reset := engine.Reset(task, task.DueAt)
	if reset.Completed || !reset.CompletedAt.IsZero() {
		t.Fatalf("reset should un-complete the task: %+v", reset)
	}
	if !reset.DueAt.Equal(task.DueAt) {
		t.Fatalf("reset due = %s, want %s", reset.DueAt, task.DueAt)
	}
	if reset.LastCompletedAt != task.LastCompletedAt {
		t.Fatal("reset must keep the last completion")
	}
}

func TestXPerYScenario(t *testing.T) {
	engine := NewEngine(time.UTC)
	created := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)
	task := newTask(t, created, mustRecurrence(model.XPerY(3, model.UnitWeek)))

	// Monday 2026-02-09 starts the ISO week.
	monday := time.Date(2026, 2, 9, 7, 0, 0, 0, time.UTC)
	task = engine.RecordCompletion(task, monday)
	if task.CompletionsThisPeriod != 1 || task.Completed {
		t.Fatalf("after first completion: count=%d completed=%v", task.CompletionsThisPeriod, task.Completed)
	}
	if !task.CurrentPeriodStart.Equal(time.Date(2026, 2, 9, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected period start: %s", task.CurrentPeriodStart)
	}
	task = engine.RecordCompletion(task, monday.Add(2*model.Day))
	task = engine.RecordCompletion(task, monday.Add(4*model.Day))
	if task.CompletionsThisPeriod != 3 || !task.Completed {
		t.Fatalf("after third completion: count=%d completed=%v", task.CompletionsThisPeriod, task.Completed)
	}

	nextWeek := time.Date(2026, 2, 17, 9, 0, 0, 0, time.UTC)
	task = engine.RecordCompletion(task, nextWeek)
	if task.CompletionsThisPeriod != 1 {
		t.Fatalf("new period should restart counter at 1, got %d", task.CompletionsThisPeriod)
	}
	if task.Completed {
		t.Fatal("one completion of three must not complete the new period")
	}
	if !task.CurrentPeriodStart.Equal(time.Date(2026, 2, 16, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected period start: %s", task.CurrentPeriodStart)
	}
}

func TestXPerYPeriodBoundaryIsCalendarBased(t *testing.T) {
	engine := NewEngine(time.UTC)
	task := newTask(t, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), mustRecurrence(model.XPerY(2, model.UnitDay)))

	lateNight := time.Date(2026, 2, 9, 23, 50, 0, 0, time.UTC)
	task = engine.RecordCompletion(task, lateNight)
	// Twenty minutes later is a new calendar day even though far less than 24h passed.
	task = engine.RecordCompletion(task, lateNight.Add(20*time.Minute))
	if task.CompletionsThisPeriod != 1 || task.Completed {
		t.Fatalf("expected counter restart on new day, got count=%d completed=%v", task.CompletionsThisPeriod, task.Completed)
	}
}

func TestPeriodStartMonth(t *testing.T) {
	engine := NewEngine(time.UTC)
	got := engine.PeriodStart(time.Date(2026, 3, 31, 18, 0, 0, 0, time.UTC), model.UnitMonth)
	if got.Format("2006-01-02") != "2026-03-01" {
		t.Fatalf("unexpected month start: %s", got)
	}
	if engine.SamePeriod(time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC), time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC), model.UnitMonth) {
		t.Fatal("March and April must be different periods")
	}
	sunday := time.Date(2026, 2, 15, 12, 0, 0, 0, time.UTC)
	if engine.PeriodStart(sunday, model.UnitWeek).Format("2006-01-02") != "2026-02-09" {
		t.Fatalf("sunday should belong to the week starting monday 9th")
	}
}

func TestXPerYRolloverResetsPartialProgress(t *testing.T) {
	engine := NewEngine(time.UTC)
	task := newTask(t, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), mustRecurrence(model.XPerY(3, model.UnitWeek)))
	task = engine.RecordCompletion(task, time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC))

	nextWeek := time.Date(2026, 2, 16, 8, 0, 0, 0, time.UTC)
	if !engine.ShouldReset(task, nextWeek) {
		t.Fatal("expected period rollover to trigger a reset")
	}
	reset := engine.Reset(task, nextWeek)
	if reset.CompletionsThisPeriod != 0 || !reset.CurrentPeriodStart.Equal(time.Date(2026, 2, 16, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected counters after rollover: %+v", reset)
	}
	if engine.ShouldReset(reset, nextWeek) {
		t.Fatal("rollover reset must not repeat within the same period")
	}
}

func TestScheduledResetAnchorsOnCompletion(t *testing.T) {
	engine := NewEngine(time.UTC)
	task := newTask(t, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), mustRecurrence(model.ScheduledAt(8)))

	done := time.Date(2026, 2, 9, 8, 15, 0, 0, time.UTC)
	task = engine.RecordCompletion(task, done)
	if task.DueAt.Format("2006-01-02 15:04") != "2026-02-10 08:00" {
		t.Fatalf("unexpected scheduled due: %s", task.DueAt)
	}
	if engine.ShouldReset(task, time.Date(2026, 2, 10, 7, 59, 0, 0, time.UTC)) {
		t.Fatal("must not reset before the scheduled hour")
	}
	at := time.Date(2026, 2, 10, 8, 0, 0, 0, time.UTC)
	if !engine.ShouldReset(task, at) {
		t.Fatal("expected reset at the scheduled hour")
	}
	if got := engine.Reset(task, at); !got.DueAt.Equal(at) || got.Completed {
		t.Fatalf("unexpected reset: %+v", got)
	}
}

func TestNonRecurringCompletionAndResetNoop(t *testing.T) {
	engine := NewEngine(time.UTC)
	task := newTask(t, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), model.NoRecurrence())
	done := time.Date(2026, 2, 2, 10, 0, 0, 0, time.UTC)

	task = engine.RecordCompletion(task, done)
	if !task.Completed || !task.CompletedAt.Equal(done) {
		t.Fatalf("one-off task should be completed: %+v", task)
	}
	if !task.DueAt.IsZero() {
		t.Fatal("one-off completion must not invent a due date")
	}
	if engine.ShouldReset(task, done.Add(365*model.Day)) {
		t.Fatal("one-off tasks never reset")
	}
	if got := engine.Reset(task, done); got != task {
		t.Fatal("reset of a one-off task must be a no-op")
	}
}

func TestTasksNeedingResetIsIdempotent(t *testing.T) {
	engine := NewEngine(time.UTC)
	created := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	daily := newTask(t, created, mustRecurrence(model.EveryXY(1, model.UnitDay)))
	daily = engine.RecordCompletion(daily, time.Date(2026, 2, 2, 9, 0, 0, 0, time.UTC))
	weekly := newTask(t, created, mustRecurrence(model.EveryXY(1, model.UnitWeek)))
	weekly.ID = 2
	weekly = engine.RecordCompletion(weekly, time.Date(2026, 2, 2, 9, 0, 0, 0, time.UTC))
	oneOff := newTask(t, created, model.NoRecurrence())
	oneOff.ID = 3

	now := time.Date(2026, 2, 3, 12, 0, 0, 0, time.UTC)
	tasks := []model.Task{daily, weekly, oneOff}
	updates := engine.TasksNeedingReset(tasks, now)
	if len(updates) != 1 {
		t.Fatalf("expected exactly one update, got %d", len(updates))
	}
	if _, ok := updates[daily.ID]; !ok {
		t.Fatal("daily task should be reset")
	}

	for i, task := range tasks {
		if updated, ok := updates[task.ID]; ok {
			tasks[i] = updated
		}
	}
	if again := engine.TasksNeedingReset(tasks, now); len(again) != 0 {
		t.Fatalf("second scan should be empty, got %d updates", len(again))
	}
}

func TestRecurrenceEndStopsReset(t *testing.T) {
	engine := NewEngine(time.UTC)
	task := newTask(t, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), mustRecurrence(model.EveryXY(1, model.UnitDay)))
	task.RecurrenceEnd = time.Date(2026, 2, 3, 0, 0, 0, 0, time.UTC)
	task = engine.RecordCompletion(task, time.Date(2026, 2, 2, 9, 0, 0, 0, time.UTC))
	if engine.ShouldReset(task, time.Date(2026, 2, 4, 0, 0, 0, 0, time.UTC)) {
		t.Fatal("ended recurrence must not reset")
	}
}

func TestPreview(t *testing.T) {
	engine := NewEngine(time.UTC)
	task := newTask(t, time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC), mustRecurrence(model.EveryXY(3, model.UnitDay)))
	list := engine.Preview(task, task.CreatedAt, 3)
	want := []string{"2026-02-04 09:00", "2026-02-07 09:00", "2026-02-10 09:00"}
	if len(list) != len(want) {
		t.Fatalf("expected %d preview items, got %d", len(want), len(list))
	}
	for i := range list {
		if got := list[i].Format("2006-01-02 15:04"); got != want[i] {
			t.Fatalf("preview[%d] got %s want %s", i, got, want[i])
		}
	}
	if got := engine.Preview(newTask(t, task.CreatedAt, model.NoRecurrence()), task.CreatedAt, 3); len(got) != 0 {
		t.Fatalf("one-off preview should be empty, got %d", len(got))
	}
}

func TestClockSkewDoesNotRollPeriodBackwards(t *testing.T) {
	engine := NewEngine(time.UTC)
	task := newTask(t, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), mustRecurrence(model.XPerY(2, model.UnitWeek)))
	task = engine.RecordCompletion(task, time.Date(2026, 2, 18, 9, 0, 0, 0, time.UTC))
	earlier := time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)
	if engine.ShouldReset(task, earlier) {
		t.Fatal("a clock rolled back must not trigger a period reset")
	}
}

func TestWakeAtMatchesShouldReset(t *testing.T) {
	engine := NewEngine(time.UTC)
	created := time.Date(2026, 2, 2, 8, 0, 0, 0, time.UTC)
	done := time.Date(2026, 2, 4, 10, 0, 0, 0, time.UTC)

	cases := []struct {
		name string
		rec  model.Recurrence
		want time.Time
	}{
		{"every 2 days", mustRecurrence(model.EveryXY(2, model.UnitDay)), done.Add(48 * time.Hour)},
		{"once per week", mustRecurrence(model.XPerY(1, model.UnitWeek)), time.Date(2026, 2, 9, 0, 0, 0, 0, time.UTC)},
		{"daily at 7", mustRecurrence(model.ScheduledAt(7)), time.Date(2026, 2, 5, 7, 0, 0, 0, time.UTC)},
	}
	for _, tc := range cases {
		task := engine.RecordCompletion(newTask(t, created, tc.rec), done)
		if !task.Completed {
			t.Fatalf("%s: expected completed after recording", tc.name)
		}
		at, ok := engine.WakeAt(task, done)
		if !ok || !at.Equal(tc.want) {
			t.Fatalf("%s: wake at %s, want %s", tc.name, at, tc.want)
		}
		if engine.ShouldReset(task, at.Add(-time.Second)) {
			t.Fatalf("%s: reset before wake time", tc.name)
		}
		if !engine.ShouldReset(task, at) {
			t.Fatalf("%s: no reset at wake time", tc.name)
		}
	}

	if _, ok := engine.WakeAt(newTask(t, created, model.NoRecurrence()), done); ok {
		t.Fatal("one-off tasks never wake")
	}
}

func TestXPerYQuotaStaysMetUntilNextPeriod(t *testing.T) {
	engine := NewEngine(time.UTC)
	task := newTask(t, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), mustRecurrence(model.XPerY(3, model.UnitWeek)))

	monday := time.Date(2026, 2, 9, 8, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		task = engine.RecordCompletion(task, monday.Add(time.Duration(i)*time.Hour))
	}
	if !task.Completed || task.CompletionsThisPeriod != 3 {
		t.Fatalf("quota should be met: count=%d completed=%v", task.CompletionsThisPeriod, task.Completed)
	}

	for _, at := range []time.Time{
		time.Date(2026, 2, 11, 20, 0, 0, 0, time.UTC),
		time.Date(2026, 2, 15, 23, 59, 0, 0, time.UTC),
	} {
		if engine.ShouldReset(task, at) {
			t.Fatalf("met quota must not reopen inside the same week (%s)", at)
		}
	}
	if got := engine.TasksNeedingReset([]model.Task{task}, time.Date(2026, 2, 12, 9, 0, 0, 0, time.UTC)); len(got) != 0 {
		t.Fatalf("no reset expected mid-week, got %d", len(got))
	}

	wake, ok := engine.WakeAt(task, monday)
	if !ok || !wake.Equal(time.Date(2026, 2, 16, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("wake should be next monday, got %s ok=%v", wake, ok)
	}
	if !engine.ShouldReset(task, wake) {
		t.Fatal("new week should reopen the task")
	}
	reset := engine.Reset(task, wake)
	if reset.Completed || reset.CompletionsThisPeriod != 0 {
		t.Fatalf("unexpected state after rollover: count=%d completed=%v", reset.CompletionsThisPeriod, reset.Completed)
	}
	reset = engine.RecordCompletion(reset, wake.Add(time.Hour))
	if reset.CompletionsThisPeriod > reset.Recurrence.Amount() || reset.Completed {
		t.Fatalf("first completion of a new week: count=%d completed=%v", reset.CompletionsThisPeriod, reset.Completed)
	}
}

func TestWakeAtForPartialXPerY(t *testing.T) {
	engine := NewEngine(time.UTC)
	task := newTask(t, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), mustRecurrence(model.XPerY(3, model.UnitWeek)))
	task = engine.RecordCompletion(task, time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC))
	at, ok := engine.WakeAt(task, time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC))
	if !ok || !at.Equal(time.Date(2026, 2, 16, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("partial progress should wake at the next period, got %s ok=%v", at, ok)
	}
}
