package streak

import (
	"testing"
	"time"

	"github.com/sandeepkv93/taskmaster/internal/model"
)

func recurringTask(t *testing.T, rec model.Recurrence, err error) model.Task {
	t.Helper()
	if err != nil {
		t.Fatalf("build recurrence: %v", err)
	}
	task, err := model.NewTask("Meditate", "", 3, time.Time{}, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("new task: %v", err)
	}
	task.Recurrence = rec
	return task
}

func TestFirstCompletionStartsStreak(t *testing.T) {
	tr := NewTracker(time.UTC)
	rec, err := model.EveryXY(1, model.UnitDay)
	task := recurringTask(t, rec, err)
	task.LongestStreak = 4

	now := time.Date(2026, 2, 9, 18, 30, 0, 0, time.UTC)
	got := tr.UpdateOnCompletion(task, now)
	if got.CurrentStreak != 1 || got.LongestStreak != 4 {
		t.Fatalf("unexpected counters: current=%d longest=%d", got.CurrentStreak, got.LongestStreak)
	}
	if got.LastStreakDate.Format(time.RFC3339) != "2026-02-09T00:00:00Z" {
		t.Fatalf("streak date should be truncated to the day, got %s", got.LastStreakDate)
	}
}

func TestDailyCompletionsAreMonotonic(t *testing.T) {
	tr := NewTracker(time.UTC)
	rec, err := model.EveryXY(1, model.UnitDay)
	task := recurringTask(t, rec, err)

	start := time.Date(2026, 2, 1, 7, 0, 0, 0, time.UTC)
	prevLongest := 0
	for i := 0; i < 12; i++ {
		// vary the hour to make sure only the calendar day matters
		at := start.Add(time.Duration(i)*model.Day + time.Duration(i%3)*5*time.Hour)
		task = tr.UpdateOnCompletion(task, at)
		if task.CurrentStreak != i+1 {
			t.Fatalf("day %d: current streak = %d, want %d", i, task.CurrentStreak, i+1)
		}
		if task.LongestStreak < prevLongest || task.LongestStreak < task.CurrentStreak {
			t.Fatalf("day %d: longest=%d current=%d prev longest=%d", i, task.LongestStreak, task.CurrentStreak, prevLongest)
		}
		prevLongest = task.LongestStreak
	}
}

func TestGapResetsToOneNotZero(t *testing.T) {
	tr := NewTracker(time.UTC)
	rec, err := model.EveryXY(1, model.UnitDay)
	task := recurringTask(t, rec, err)
	day := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		task = tr.UpdateOnCompletion(task, day.Add(time.Duration(i)*model.Day))
	}
	task = tr.UpdateOnCompletion(task, day.Add(9*model.Day))
	if task.CurrentStreak != 1 {
		t.Fatalf("expected streak reset to 1, got %d", task.CurrentStreak)
	}
	if task.LongestStreak != 5 {
		t.Fatalf("longest streak must survive a reset, got %d", task.LongestStreak)
	}
}

func TestGracePeriodOnlyForXPerY(t *testing.T) {
	tr := NewTracker(time.UTC)
	last := time.Date(2026, 2, 9, 10, 0, 0, 0, time.UTC)
	twoDaysLater := last.Add(2 * model.Day)

	flexRec, err := model.XPerY(3, model.UnitWeek)
	flex := recurringTask(t, flexRec, err)
	flex.CurrentStreak, flex.LongestStreak = 4, 4
	flex.LastStreakDate = time.Date(2026, 2, 9, 0, 0, 0, 0, time.UTC)
	if got := tr.UpdateOnCompletion(flex, twoDaysLater); got.CurrentStreak != 5 {
		t.Fatalf("x_per_y should keep its streak within grace, got %d", got.CurrentStreak)
	}

	strictRec, err := model.EveryXY(1, model.UnitDay)
	strict := recurringTask(t, strictRec, err)
	strict.CurrentStreak, strict.LongestStreak = 4, 4
	strict.LastStreakDate = flex.LastStreakDate
	if got := tr.UpdateOnCompletion(strict, twoDaysLater); got.CurrentStreak != 1 {
		t.Fatalf("every_x_y should reset without grace, got %d", got.CurrentStreak)
	}

	schedRec, err := model.ScheduledAt(8)
	sched := recurringTask(t, schedRec, err)
	sched.CurrentStreak, sched.LongestStreak = 2, 2
	sched.LastStreakDate = flex.LastStreakDate
	if got := tr.UpdateOnCompletion(sched, twoDaysLater); got.CurrentStreak != 1 {
		t.Fatalf("scheduled should reset without grace, got %d", got.CurrentStreak)
	}

	if got := tr.UpdateOnCompletion(flex, last.Add(3*model.Day)); got.CurrentStreak != 1 {
		t.Fatalf("three days exceeds grace, got %d", got.CurrentStreak)
	}
}

func TestClockSkewClampsToZeroDays(t *testing.T) {
	tr := NewTracker(time.UTC)
	rec, err := model.EveryXY(1, model.UnitDay)
	task := recurringTask(t, rec, err)
	task.CurrentStreak, task.LongestStreak = 3, 3
	task.LastStreakDate = time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)

	got := tr.UpdateOnCompletion(task, time.Date(2026, 2, 7, 9, 0, 0, 0, time.UTC))
	if got.CurrentStreak != 4 || got.CurrentStreak < 0 {
		t.Fatalf("clock skew should count as zero days, got %d", got.CurrentStreak)
	}
}

func TestNonRecurringIsNoop(t *testing.T) {
	tr := NewTracker(time.UTC)
	task := recurringTask(t, model.NoRecurrence(), nil)
	if got := tr.UpdateOnCompletion(task, time.Now()); got != task {
		t.Fatal("update on a one-off task must return it unchanged")
	}
	task.CurrentStreak, task.LongestStreak = 2, 2
	if got := tr.Reset(task); got != task {
		t.Fatal("reset on a one-off task must return it unchanged")
	}
}

func TestResetKeepsLongest(t *testing.T) {
	tr := NewTracker(time.UTC)
	rec, err := model.EveryXY(1, model.UnitDay)
	task := recurringTask(t, rec, err)
	task.CurrentStreak, task.LongestStreak = 7, 12
	got := tr.Reset(task)
	if got.CurrentStreak != 0 || got.LongestStreak != 12 {
		t.Fatalf("unexpected counters after reset: %d/%d", got.CurrentStreak, got.LongestStreak)
	}
}

func TestIsAtRiskAndDaysUntilExpire(t *testing.T) {
	now := time.Date(2026, 2, 9, 12, 0, 0, 0, time.UTC)
	rec, err := model.EveryXY(1, model.UnitDay)
	task := recurringTask(t, rec, err)
	task.CurrentStreak, task.LongestStreak = 5, 5

	if IsAtRisk(task, now) || DaysUntilExpire(task, now) != -1 {
		t.Fatal("no due date means neither at risk nor expiring")
	}

	task.DueAt = now.Add(-3 * time.Hour)
	if !IsAtRisk(task, now) {
		t.Fatal("overdue task with a streak should be at risk")
	}
	if got := DaysUntilExpire(task, now); got != 1 {
		t.Fatalf("inside grace day, want 1, got %d", got)
	}

	task.DueAt = now.Add(-50 * time.Hour)
	if got := DaysUntilExpire(task, now); got != 0 {
		t.Fatalf("two days overdue, want 0, got %d", got)
	}

	task.DueAt = now.Add(3*model.Day + time.Hour)
	if IsAtRisk(task, now) {
		t.Fatal("future due date is not at risk")
	}
	if got := DaysUntilExpire(task, now); got != 3 {
		t.Fatalf("want 3 days until due, got %d", got)
	}

	task.DueAt = now.Add(-time.Hour)
	task.Completed = true
	if IsAtRisk(task, now) {
		t.Fatal("completed task is not at risk")
	}

	task.Completed = false
	task.CurrentStreak = 0
	if IsAtRisk(task, now) || DaysUntilExpire(task, now) != -1 {
		t.Fatal("no streak means nothing to lose")
	}
}

func TestLevelBoundaries(t *testing.T) {
	cases := []struct {
		streak int
		want   int
	}{
		{0, 0}, {1, 1}, {9, 1}, {10, 2}, {24, 2}, {25, 3}, {49, 3}, {50, 4}, {99, 4}, {100, 5}, {5000, 5},
	}
	for _, tc := range cases {
		if got := Level(tc.streak); got != tc.want {
			t.Fatalf("Level(%d) = %d, want %d", tc.streak, got, tc.want)
		}
	}
}

func TestMilestones(t *testing.T) {
	cases := []struct {
		prev, curr int
		want       int
	}{
		{9, 10, 10},
		{10, 11, -1},
		{8, 30, 10},
		{24, 25, 25},
		{99, 100, 100},
		{999, 1000, 1000},
		{1000, 1001, -1},
		{3, 3, -1},
	}
	for _, tc := range cases {
		if got := Milestone(tc.prev, tc.curr); got != tc.want {
			t.Fatalf("Milestone(%d,%d) = %d, want %d", tc.prev, tc.curr, got, tc.want)
		}
		if IsMilestone(tc.prev, tc.curr) != (tc.want > 0) {
			t.Fatalf("IsMilestone(%d,%d) disagrees with Milestone", tc.prev, tc.curr)
		}
	}
}

func TestFromHistory(t *testing.T) {
	tr := NewTracker(time.UTC)
	d := func(day, hour int) time.Time { return time.Date(2026, 2, day, hour, 0, 0, 0, time.UTC) }
	current, longest := tr.FromHistory([]time.Time{
		d(14, 9), d(1, 8), d(2, 20), d(3, 7), d(3, 22), d(4, 6), d(12, 9), d(13, 9),
	})
	if longest != 4 {
		t.Fatalf("longest = %d, want 4", longest)
	}
	if current != 3 {
		t.Fatalf("current = %d, want 3", current)
	}
	if c, l := tr.FromHistory(nil); c != 0 || l != 0 {
		t.Fatalf("empty history should be 0/0, got %d/%d", c, l)
	}
}

func TestExpired(t *testing.T) {
	tr := NewTracker(time.UTC)
	daily, err := model.EveryXY(1, model.UnitDay)
	task := recurringTask(t, daily, err)
	task.CurrentStreak, task.LongestStreak = 3, 3
	task.LastStreakDate = time.Date(2026, 2, 9, 0, 0, 0, 0, time.UTC)

	if tr.Expired(task, time.Date(2026, 2, 10, 23, 0, 0, 0, time.UTC)) {
		t.Fatal("one day later the streak can still continue")
	}
	if !tr.Expired(task, time.Date(2026, 2, 11, 0, 30, 0, 0, time.UTC)) {
		t.Fatal("two days later a daily streak is gone")
	}

	flex, err := model.XPerY(3, model.UnitWeek)
	xp := recurringTask(t, flex, err)
	xp.CurrentStreak, xp.LongestStreak = 3, 3
	xp.LastStreakDate = task.LastStreakDate
	if tr.Expired(xp, time.Date(2026, 2, 11, 9, 0, 0, 0, time.UTC)) {
		t.Fatal("grace day keeps an XPerY streak alive")
	}
	if !tr.Expired(xp, time.Date(2026, 2, 12, 9, 0, 0, 0, time.UTC)) {
		t.Fatal("three days later even an XPerY streak is gone")
	}

	task.CurrentStreak = 0
	if tr.Expired(task, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatal("no streak, nothing to expire")
	}
}

func TestReplay(t *testing.T) {
	tr := NewTracker(time.UTC)
	flexRec, err := model.XPerY(3, model.UnitWeek)
	task := recurringTask(t, flexRec, err)
	task.CurrentStreak, task.LongestStreak = 9, 9

	d := func(day int) time.Time { return time.Date(2026, 2, day, 9, 0, 0, 0, time.UTC) }
	// the gap from the 3rd to the 5th is covered by the grace day
	got := tr.Replay(task, []time.Time{d(5), d(1), d(2), d(3)}, d(6))
	if got.CurrentStreak != 4 || got.LongestStreak != 4 {
		t.Fatalf("replay = %d/%d, want 4/4", got.CurrentStreak, got.LongestStreak)
	}
	if !got.LastStreakDate.Equal(time.Date(2026, 2, 5, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected streak date: %s", got.LastStreakDate)
	}

	if got := tr.Replay(task, nil, d(6)); got.CurrentStreak != 0 || got.LongestStreak != 0 || !got.LastStreakDate.IsZero() {
		t.Fatalf("empty history should clear the streak: %+v", got)
	}
	if got := tr.Replay(task, []time.Time{d(1), d(2)}, d(20)); got.CurrentStreak != 0 || got.LongestStreak != 2 {
		t.Fatalf("lapsed replay = %d/%d, want 0/2", got.CurrentStreak, got.LongestStreak)
	}

	oneOff := recurringTask(t, model.NoRecurrence(), nil)
	oneOff.LongestStreak = 3
	if got := tr.Replay(oneOff, []time.Time{d(1)}, d(2)); got != oneOff {
		t.Fatal("replay on a one-off task must return it unchanged")
	}
}
