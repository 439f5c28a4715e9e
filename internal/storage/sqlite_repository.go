package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"

	"github.com/sandeepkv93/taskmaster/internal/model"
)

const (
	// DriverCGO is mattn/go-sqlite3, DriverPure is modernc.org/sqlite.
	DriverCGO  = "sqlite3"
	DriverPure = "sqlite"

	sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"
)

const taskColumns = `id, title, description, category, priority, completed, created_at, due_at, completed_at,
	last_completed_at, overdue_since, completion_count, recurrence_kind, recurrence_amount, recurrence_unit,
	recurrence_hour, recurrence_end, completions_this_period, current_period_start, current_streak,
	longest_streak, last_streak_date, estimated_duration_ms, average_completion_ms, preferred_time_of_day,
	average_difficulty, chain_id, chain_order`

const completionColumns = `id, task_id, completed_at, time_spent_minutes, difficulty, hour`

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type SQLiteRepository struct {
	db *sql.DB
}

var _ Repository = (*SQLiteRepository)(nil)

func NewSQLiteRepository(db *sql.DB) (*SQLiteRepository, error) {
	if db == nil {
		return nil, errors.New("storage: nil db")
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}
	return &SQLiteRepository{db: db}, nil
}

// Open opens path with the named driver, pins the pool to one connection so
// connection-scoped pragmas hold, and migrates the schema.
func Open(driver, path string) (*SQLiteRepository, error) {
	switch driver {
	case "":
		driver = DriverCGO
	case DriverCGO, DriverPure:
	default:
		return nil, fmt.Errorf("storage: unsupported driver %q", driver)
	}
	db, err := sql.Open(driver, path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	repo, err := NewSQLiteRepository(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := MigrateUp(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

func (r *SQLiteRepository) CreateTask(ctx context.Context, in model.Task) (model.Task, error) {
	if err := in.Validate(); err != nil {
		return model.Task{}, fmt.Errorf("%w: %v", ErrInvalidTask, err)
	}
	row := toTaskRow(in)
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO tasks (`+strings.TrimPrefix(taskColumns, "id, ")+`)
		VALUES (`+placeholders(27)+`)`,
		taskArgs(row)[1:]...,
	)
	if err != nil {
		return model.Task{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Task{}, err
	}
	in.ID = id
	return in, nil
}

func (r *SQLiteRepository) GetTask(ctx context.Context, id int64) (model.Task, error) {
	return getTask(ctx, r.db, id)
}

func (r *SQLiteRepository) SaveTask(ctx context.Context, in model.Task) error {
	return saveTask(ctx, r.db, in)
}

func (r *SQLiteRepository) UpdateTask(ctx context.Context, id int64, fn MutateFunc) (model.Task, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Task{}, err
	}
	defer func() { _ = tx.Rollback() }()

	current, err := getTask(ctx, tx, id)
	if err != nil {
		return model.Task{}, err
	}
	next, err := fn(current)
	if err != nil {
		return model.Task{}, err
	}
	next.ID = id
	if err := saveTask(ctx, tx, next); err != nil {
		return model.Task{}, err
	}
	if err := tx.Commit(); err != nil {
		return model.Task{}, err
	}
	return next, nil
}

func (r *SQLiteRepository) DeleteTask(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

func (r *SQLiteRepository) ListTasks(ctx context.Context, filter TaskListFilter) ([]model.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks`
	clauses := make([]string, 0, 3)
	args := make([]any, 0, 5)
	if filter.Completed != nil {
		clauses = append(clauses, "completed = ?")
		args = append(args, boolInt(*filter.Completed))
	}
	if filter.Category != "" {
		clauses = append(clauses, "category = ?")
		args = append(args, filter.Category)
	}
	if filter.ChainID != 0 {
		clauses = append(clauses, "chain_id = ?")
		args = append(args, filter.ChainID)
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += ` ORDER BY id ASC`
	query += applyPagination(&args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Task, 0)
	for rows.Next() {
		task, scanErr := scanTask(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		out = append(out, task)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) AddCompletion(ctx context.Context, in model.CompletionEvent) (model.CompletionEvent, error) {
	if in.CompletedAt.IsZero() {
		return model.CompletionEvent{}, errors.New("storage: completion time is required")
	}
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO completions (task_id, completed_at, time_spent_minutes, difficulty, hour)
		VALUES (?, ?, ?, ?, ?)`,
		in.TaskID, formatTime(in.CompletedAt), in.TimeSpentMinutes, in.Difficulty, in.Hour,
	)
	if err != nil {
		return model.CompletionEvent{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.CompletionEvent{}, err
	}
	in.ID = id
	return in, nil
}

func (r *SQLiteRepository) ListCompletions(ctx context.Context, filter CompletionListFilter) ([]model.CompletionEvent, error) {
	query := `SELECT ` + completionColumns + ` FROM completions`
	clauses := make([]string, 0, 3)
	args := make([]any, 0, 4)
	if filter.TaskID != 0 {
		clauses = append(clauses, "task_id = ?")
		args = append(args, filter.TaskID)
	}
	if !filter.From.IsZero() {
		clauses = append(clauses, "completed_at >= ?")
		args = append(args, formatTime(filter.From))
	}
	if !filter.To.IsZero() {
		clauses = append(clauses, "completed_at < ?")
		args = append(args, formatTime(filter.To))
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += ` ORDER BY completed_at ASC, id ASC`
	query += applyPagination(&args, filter.Limit, 0)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.CompletionEvent, 0)
	for rows.Next() {
		item, scanErr := scanCompletion(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

// DeleteLatestCompletion removes and returns the newest event for taskID.
func (r *SQLiteRepository) DeleteLatestCompletion(ctx context.Context, taskID int64) (model.CompletionEvent, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return model.CompletionEvent{}, err
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx, `
		SELECT `+completionColumns+` FROM completions
		WHERE task_id = ? ORDER BY completed_at DESC, id DESC LIMIT 1`, taskID)
	item, err := scanCompletion(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.CompletionEvent{}, ErrNotFound
		}
		return model.CompletionEvent{}, err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM completions WHERE id = ?`, item.ID); err != nil {
		return model.CompletionEvent{}, err
	}
	return item, tx.Commit()
}

func (r *SQLiteRepository) Restore(ctx context.Context, tasks []model.Task, completions []model.CompletionEvent) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM completions`); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM tasks`); err != nil {
		return err
	}
	for _, task := range tasks {
		if err := task.Validate(); err != nil {
			return fmt.Errorf("%w: task %d: %v", ErrInvalidTask, task.ID, err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO tasks (`+taskColumns+`) VALUES (`+placeholders(28)+`)`,
			taskArgs(toTaskRow(task))...); err != nil {
			return fmt.Errorf("restore task %d: %w", task.ID, err)
		}
	}
	for _, c := range completions {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO completions (`+completionColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
			c.ID, c.TaskID, formatTime(c.CompletedAt), c.TimeSpentMinutes, c.Difficulty, c.Hour); err != nil {
			return fmt.Errorf("restore completion %d: %w", c.ID, err)
		}
	}
	return tx.Commit()
}

func getTask(ctx context.Context, q querier, id int64) (model.Task, error) {
	row := q.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	task, err := scanTask(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Task{}, ErrNotFound
		}
		return model.Task{}, err
	}
	return task, nil
}

func saveTask(ctx context.Context, q querier, in model.Task) error {
	if err := in.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidTask, err)
	}
	args := taskArgs(toTaskRow(in))
	args = append(args[1:], in.ID)
	res, err := q.ExecContext(ctx, `
		UPDATE tasks SET
			title = ?, description = ?, category = ?, priority = ?, completed = ?, created_at = ?,
			due_at = ?, completed_at = ?, last_completed_at = ?, overdue_since = ?, completion_count = ?,
			recurrence_kind = ?, recurrence_amount = ?, recurrence_unit = ?, recurrence_hour = ?,
			recurrence_end = ?, completions_this_period = ?, current_period_start = ?, current_streak = ?,
			longest_streak = ?, last_streak_date = ?, estimated_duration_ms = ?, average_completion_ms = ?,
			preferred_time_of_day = ?, average_difficulty = ?, chain_id = ?, chain_order = ?
		WHERE id = ?`,
		args...,
	)
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

// taskArgs lists column values in taskColumns order, id first.
func taskArgs(r taskRow) []any {
	return []any{
		r.ID, r.Title, r.Description, r.Category, r.Priority, boolInt(r.Completed), r.CreatedAt,
		r.DueAt, r.CompletedAt, r.LastCompletedAt, r.OverdueSince, r.CompletionCount,
		r.RecurrenceKind, r.RecurrenceAmount, r.RecurrenceUnit, r.RecurrenceHour,
		r.RecurrenceEnd, r.CompletionsThisPeriod, r.CurrentPeriodStart, r.CurrentStreak,
		r.LongestStreak, r.LastStreakDate, r.EstimatedDurationMS, r.AverageCompletionMS,
		r.PreferredTimeOfDay, r.AverageDifficulty, r.ChainID, r.ChainOrder,
	}
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func formatTime(v time.Time) string {
	return v.UTC().Format(sqliteTimeLayout)
}

func nullableTime(v time.Time) *string {
	if v.IsZero() {
		return nil
	}
	s := formatTime(v)
	return &s
}

func parseTime(v *string) (time.Time, error) {
	if v == nil || *v == "" {
		return time.Time{}, nil
	}
	return time.Parse(sqliteTimeLayout, *v)
}

func boolInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

func applyPagination(args *[]any, limit, offset int) string {
	sql := ""
	if limit > 0 {
		sql += " LIMIT ?"
		*args = append(*args, limit)
	} else if offset > 0 {
		sql += " LIMIT -1"
	}
	if offset > 0 {
		sql += " OFFSET ?"
		*args = append(*args, offset)
	}
	return sql
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTask(s scanner) (model.Task, error) {
	var row taskRow
	var completed int
	var due, done, last, overdue, end, period, streakDate sql.NullString
	if err := s.Scan(
		&row.ID, &row.Title, &row.Description, &row.Category, &row.Priority, &completed, &row.CreatedAt,
		&due, &done, &last, &overdue, &row.CompletionCount,
		&row.RecurrenceKind, &row.RecurrenceAmount, &row.RecurrenceUnit, &row.RecurrenceHour,
		&end, &row.CompletionsThisPeriod, &period, &row.CurrentStreak,
		&row.LongestStreak, &streakDate, &row.EstimatedDurationMS, &row.AverageCompletionMS,
		&row.PreferredTimeOfDay, &row.AverageDifficulty, &row.ChainID, &row.ChainOrder,
	); err != nil {
		return model.Task{}, err
	}
	row.Completed = completed == 1
	row.DueAt = fromNull(due)
	row.CompletedAt = fromNull(done)
	row.LastCompletedAt = fromNull(last)
	row.OverdueSince = fromNull(overdue)
	row.RecurrenceEnd = fromNull(end)
	row.CurrentPeriodStart = fromNull(period)
	row.LastStreakDate = fromNull(streakDate)
	task, err := row.toModel()
	if err != nil {
		return model.Task{}, fmt.Errorf("decode task %d: %w", row.ID, err)
	}
	return task, nil
}

func scanCompletion(s scanner) (model.CompletionEvent, error) {
	var out model.CompletionEvent
	var completed string
	if err := s.Scan(&out.ID, &out.TaskID, &completed, &out.TimeSpentMinutes, &out.Difficulty, &out.Hour); err != nil {
		return model.CompletionEvent{}, err
	}
	at, err := parseTime(&completed)
	if err != nil {
		return model.CompletionEvent{}, err
	}
	out.CompletedAt = at
	return out, nil
}

func fromNull(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func checkRowsAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
