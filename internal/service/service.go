// Package service is the application layer: it reads tasks through the
// repository, applies the recurrence and streak rules with an injected clock
// and persists the results.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sort"
	"time"

	"github.com/sandeepkv93/taskmaster/internal/chain"
	"github.com/sandeepkv93/taskmaster/internal/clock"
	"github.com/sandeepkv93/taskmaster/internal/model"
	"github.com/sandeepkv93/taskmaster/internal/recurrence"
	"github.com/sandeepkv93/taskmaster/internal/scheduler"
	"github.com/sandeepkv93/taskmaster/internal/scoring"
	"github.com/sandeepkv93/taskmaster/internal/stats"
	"github.com/sandeepkv93/taskmaster/internal/storage"
	"github.com/sandeepkv93/taskmaster/internal/streak"
)

var (
	ErrAlreadyCompleted = errors.New("service: task already completed")
	ErrNotCompleted     = errors.New("service: task is not completed")
	ErrBlocked          = errors.New("service: task is blocked by an open chain step")
	ErrInvalidInput     = errors.New("service: invalid input")
)

type Service struct {
	repo    storage.Repository
	clock   clock.Clock
	loc     *time.Location
	engine  *recurrence.Engine
	streaks *streak.Tracker
	scorer  *scoring.Scorer
	planner *scheduler.Planner
	log     *log.Logger

	plannerOpts []scheduler.PlannerOption
}

type Option func(*Service)

// WithLogger routes service logs to l. Logs are discarded by default.
func WithLogger(l *log.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

func WithPlannerOptions(opts ...scheduler.PlannerOption) Option {
	return func(s *Service) {
		s.plannerOpts = append(s.plannerOpts, opts...)
	}
}

func New(repo storage.Repository, clk clock.Clock, loc *time.Location, opts ...Option) *Service {
	if loc == nil {
		loc = time.Local
	}
	if clk == nil {
		clk = clock.System{Location: loc}
	}
	s := &Service{
		repo:    repo,
		clock:   clk,
		loc:     loc,
		engine:  recurrence.NewEngine(loc),
		streaks: streak.NewTracker(loc),
		scorer:  scoring.NewScorer(loc),
		log:     log.New(io.Discard, "", 0),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.planner = scheduler.NewPlanner(loc, s.plannerOpts...)
	return s
}

func (s *Service) Now() time.Time {
	return s.clock.Now().In(s.loc)
}

func (s *Service) Location() *time.Location {
	return s.loc
}

type TaskInput struct {
	Title              string
	Description        string
	Category           string
	Priority           int
	DueAt              time.Time
	Recurrence         model.Recurrence
	RecurrenceEnd      time.Time
	Estimate           time.Duration
	PreferredTimeOfDay model.TimeOfDay
	ChainID            int64
	ChainOrder         int
}

// AddTask creates a task. Scheduled tasks without a due date are due at
// their next occurrence.
func (s *Service) AddTask(ctx context.Context, in TaskInput) (model.Task, error) {
	now := s.Now()
	task, err := model.NewTask(in.Title, in.Description, in.Priority, in.DueAt, now)
	if err != nil {
		return model.Task{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	task.Category = in.Category
	task.Recurrence = in.Recurrence
	task.RecurrenceEnd = in.RecurrenceEnd
	task.EstimatedDuration = in.Estimate
	task.PreferredTimeOfDay = in.PreferredTimeOfDay
	task.ChainID = in.ChainID
	task.ChainOrder = in.ChainOrder
	if !task.HasDueDate() && task.Recurrence.Kind() == model.RecurrenceScheduled {
		task.DueAt = s.engine.NextDueDate(task, now)
	}
	if err := task.Validate(); err != nil {
		return model.Task{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	created, err := s.repo.CreateTask(ctx, task)
	if err != nil {
		return model.Task{}, err
	}
	s.log.Printf("[service] created task %d %q (%s)", created.ID, created.Title, created.Recurrence)
	return created, nil
}

func (s *Service) DeleteTask(ctx context.Context, id int64) error {
	if err := s.repo.DeleteTask(ctx, id); err != nil {
		return err
	}
	s.log.Printf("[service] deleted task %d", id)
	return nil
}

// Tasks returns every task after applying pending resets. This is the only
// place recurring tasks reappear. Each change is written through UpdateTask;
// a row that changed since the snapshot is refreshed from its stored state
// instead of being overwritten.
func (s *Service) Tasks(ctx context.Context) ([]model.Task, error) {
	tasks, err := s.repo.ListTasks(ctx, storage.TaskListFilter{})
	if err != nil {
		return nil, err
	}
	now := s.Now()
	updates := s.Refresh(tasks, now)
	if len(updates) == 0 {
		return tasks, nil
	}

	snapshot := make(map[int64]model.Task, len(tasks))
	for _, task := range tasks {
		snapshot[task.ID] = task
	}
	ids := make([]int64, 0, len(updates))
	for id := range updates {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	saved := make(map[int64]model.Task, len(ids))
	gone := make(map[int64]bool)
	for _, id := range ids {
		want := updates[id]
		task, err := s.repo.UpdateTask(ctx, id, func(cur model.Task) (model.Task, error) {
			if cur == snapshot[id] {
				return want, nil
			}
			return s.refreshTask(cur, now), nil
		})
		switch {
		case errors.Is(err, storage.ErrNotFound):
			gone[id] = true
		case err != nil:
			return nil, fmt.Errorf("persist reset of task %d: %w", id, err)
		default:
			saved[id] = task
		}
	}

	out := make([]model.Task, 0, len(tasks))
	for _, task := range tasks {
		if gone[task.ID] {
			continue
		}
		if up, ok := saved[task.ID]; ok {
			task = up
		}
		out = append(out, task)
	}
	s.log.Printf("[service] refreshed %d task(s) on read", len(saved))
	return out, nil
}

// Refresh computes the read-time updates for a snapshot: recurring tasks
// that are due again, expired streaks, newly overdue tasks and finished
// cyclic chains. Running it again on the result yields nothing.
func (s *Service) Refresh(tasks []model.Task, now time.Time) map[int64]model.Task {
	updates := s.engine.TasksNeedingReset(tasks, now)
	current := make([]model.Task, len(tasks))
	for i, task := range tasks {
		if up, ok := updates[task.ID]; ok {
			task = up
		}
		if next, changed := s.expire(task, now); changed {
			task = next
			updates[task.ID] = task
		}
		current[i] = task
	}
	for _, info := range chain.All(current) {
		if !info.Cyclic || !info.Done() {
			continue
		}
		for _, reopened := range chain.ResetChain(current, info.ID) {
			updates[reopened.ID] = reopened
		}
	}
	return updates
}

// refreshTask applies the rules that need only the task itself.
func (s *Service) refreshTask(task model.Task, now time.Time) model.Task {
	if s.engine.ShouldReset(task, now) {
		task = s.engine.Reset(task, now)
	}
	task, _ = s.expire(task, now)
	return task
}

// expire breaks lapsed streaks and stamps newly overdue tasks.
func (s *Service) expire(task model.Task, now time.Time) (model.Task, bool) {
	changed := false
	if s.streaks.Expired(task, now) {
		task = s.streaks.Reset(task)
		changed = true
	}
	if task.IsOverdue(now) && task.OverdueSince.IsZero() {
		task.OverdueSince = task.DueAt
		changed = true
	}
	return task, changed
}

type CompletionInput struct {
	Minutes    int
	Difficulty int
}

type CompletionResult struct {
	Task  model.Task
	Event model.CompletionEvent
	// Milestone is the streak milestone reached by this completion, or -1.
	Milestone int
}

// Complete logs a completion and applies it: averages are refreshed from
// history, then the streak and the recurrence state are updated in one
// transaction.
func (s *Service) Complete(ctx context.Context, id int64, in CompletionInput) (CompletionResult, error) {
	tasks, err := s.Tasks(ctx)
	if err != nil {
		return CompletionResult{}, err
	}
	task, ok := find(tasks, id)
	if !ok {
		return CompletionResult{}, fmt.Errorf("task %d: %w", id, storage.ErrNotFound)
	}
	if task.Completed {
		return CompletionResult{}, fmt.Errorf("task %d: %w", id, ErrAlreadyCompleted)
	}
	if chain.IsBlocked(tasks, task) {
		return CompletionResult{}, fmt.Errorf("task %d: %w", id, ErrBlocked)
	}

	now := s.Now()
	event, err := model.NewCompletionEvent(id, now, in.Minutes, in.Difficulty, s.loc)
	if err != nil {
		return CompletionResult{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	history, err := s.repo.ListCompletions(ctx, storage.CompletionListFilter{TaskID: id})
	if err != nil {
		return CompletionResult{}, err
	}
	saved, err := s.repo.AddCompletion(ctx, event)
	if err != nil {
		return CompletionResult{}, err
	}

	prevStreak := 0
	updated, err := s.repo.UpdateTask(ctx, id, func(cur model.Task) (model.Task, error) {
		if cur.Completed {
			return cur, ErrAlreadyCompleted
		}
		prevStreak = cur.CurrentStreak
		return s.applyCompletion(cur, append(history, saved), now), nil
	})
	if err != nil {
		if _, rbErr := s.repo.DeleteLatestCompletion(ctx, id); rbErr != nil {
			s.log.Printf("[service] drop completion of task %d after failed update: %v", id, rbErr)
		}
		return CompletionResult{}, fmt.Errorf("task %d: %w", id, err)
	}

	milestone := streak.Milestone(prevStreak, updated.CurrentStreak)
	s.log.Printf("[service] completed task %d streak=%d completed=%t due=%s",
		id, updated.CurrentStreak, updated.Completed, formatLog(updated.DueAt))
	if milestone > 0 {
		s.log.Printf("[service] task %d reached a %d-day streak", id, milestone)
	}
	return CompletionResult{Task: updated, Event: saved, Milestone: milestone}, nil
}

func (s *Service) applyCompletion(task model.Task, history []model.CompletionEvent, now time.Time) model.Task {
	avgTime, avgDifficulty := stats.CompletionAverages(history)
	if avgTime > 0 {
		task.AverageCompletionTime = avgTime
	}
	if avgDifficulty > 0 {
		task.AverageDifficulty = model.ClampDifficulty(avgDifficulty)
	}
	task = s.streaks.UpdateOnCompletion(task, now)
	return s.engine.RecordCompletion(task, now)
}

// Uncomplete reverts the latest completion: the task is reopened, its
// counters step back and its streak is rebuilt from the remaining history.
func (s *Service) Uncomplete(ctx context.Context, id int64) (model.Task, error) {
	history, err := s.repo.ListCompletions(ctx, storage.CompletionListFilter{TaskID: id})
	if err != nil {
		return model.Task{}, err
	}
	remaining := make([]time.Time, 0, len(history))
	for i, event := range history {
		if i < len(history)-1 {
			remaining = append(remaining, event.CompletedAt)
		}
	}

	now := s.Now()
	updated, err := s.repo.UpdateTask(ctx, id, func(cur model.Task) (model.Task, error) {
		partial := cur.Recurrence.Kind() == model.RecurrenceXPerY && cur.CompletionsThisPeriod > 0
		if !cur.Completed && !partial {
			return cur, ErrNotCompleted
		}
		cur.Completed = false
		cur.CompletedAt = time.Time{}
		if cur.CompletionCount > 0 {
			cur.CompletionCount--
		}
		if cur.CompletionsThisPeriod > 0 {
			cur.CompletionsThisPeriod--
		}
		if len(history) > 0 {
			cur = s.streaks.Replay(cur, remaining, now)
		}
		return cur, nil
	})
	if err != nil {
		return model.Task{}, fmt.Errorf("task %d: %w", id, err)
	}
	if _, err := s.repo.DeleteLatestCompletion(ctx, id); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return model.Task{}, err
	}
	s.log.Printf("[service] reopened task %d streak=%d", id, updated.CurrentStreak)
	return updated, nil
}

// Ranked scores the open tasks, best first.
func (s *Service) Ranked(ctx context.Context) ([]scoring.Scored, error) {
	tasks, err := s.Tasks(ctx)
	if err != nil {
		return nil, err
	}
	open := make([]model.Task, 0, len(tasks))
	for _, task := range tasks {
		if !task.Completed {
			open = append(open, task)
		}
	}
	return s.scorer.Rank(open, s.Now()), nil
}

// Next picks the best open task that is not blocked by its chain.
func (s *Service) Next(ctx context.Context) (model.Task, bool, error) {
	tasks, err := s.Tasks(ctx)
	if err != nil {
		return model.Task{}, false, err
	}
	task, ok := s.scorer.NextAvailableTask(tasks, s.Now(), chain.Blocker(tasks))
	return task, ok, nil
}

type Plan struct {
	Generated time.Time
	Entries   []scheduler.TimelineEntry
	Summary   scheduler.Summary
}

func (s *Service) Plan(ctx context.Context) (Plan, error) {
	tasks, err := s.Tasks(ctx)
	if err != nil {
		return Plan{}, err
	}
	now := s.Now()
	entries := s.planner.Plan(tasks, now)
	return Plan{Generated: now, Entries: entries, Summary: scheduler.Summarize(entries)}, nil
}

func (s *Service) Stats(ctx context.Context) (stats.Report, error) {
	tasks, err := s.Tasks(ctx)
	if err != nil {
		return stats.Report{}, err
	}
	events, err := s.repo.ListCompletions(ctx, storage.CompletionListFilter{})
	if err != nil {
		return stats.Report{}, err
	}
	return stats.BuildReport(tasks, events, s.Now(), s.loc), nil
}

func (s *Service) Chains(ctx context.Context) ([]chain.Info, error) {
	tasks, err := s.Tasks(ctx)
	if err != nil {
		return nil, err
	}
	return chain.All(tasks), nil
}

// Preview lists the next n due dates of a recurring task.
func (s *Service) Preview(ctx context.Context, id int64, n int) ([]time.Time, error) {
	task, err := s.repo.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.engine.Preview(task, s.Now(), n), nil
}

// WakeEvents lists when the task set next needs a re-read: each completed
// recurring task at its reappear time, plus the coming local midnight.
func (s *Service) WakeEvents(tasks []model.Task, now time.Time) []scheduler.WakeEvent {
	out := make([]scheduler.WakeEvent, 0)
	for _, task := range tasks {
		at, ok := s.engine.WakeAt(task, now)
		if !ok {
			continue
		}
		out = append(out, scheduler.WakeEvent{TaskID: task.ID, Title: task.Title, Reason: scheduler.WakeReappear, At: at})
	}
	local := now.In(s.loc)
	midnight := time.Date(local.Year(), local.Month(), local.Day()+1, 0, 0, 0, 0, s.loc)
	out = append(out, scheduler.WakeEvent{Reason: scheduler.WakeRollover, At: midnight})
	return out
}

func find(tasks []model.Task, id int64) (model.Task, bool) {
	for _, task := range tasks {
		if task.ID == id {
			return task, true
		}
	}
	return model.Task{}, false
}

func formatLog(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format(time.RFC3339)
}
