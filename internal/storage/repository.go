package storage

import (
	"context"
	"errors"

	"github.com/sandeepkv93/taskmaster/internal/model"
)

var (
	ErrNotFound    = errors.New("storage: not found")
	ErrInvalidTask = errors.New("storage: invalid task")
)

// MutateFunc receives the stored task and returns its replacement.
type MutateFunc func(model.Task) (model.Task, error)

type Repository interface {
	CreateTask(ctx context.Context, in model.Task) (model.Task, error)
	GetTask(ctx context.Context, id int64) (model.Task, error)
	SaveTask(ctx context.Context, in model.Task) error
	// UpdateTask runs fn and writes its result inside one transaction.
	UpdateTask(ctx context.Context, id int64, fn MutateFunc) (model.Task, error)
	DeleteTask(ctx context.Context, id int64) error
	ListTasks(ctx context.Context, filter TaskListFilter) ([]model.Task, error)

	AddCompletion(ctx context.Context, in model.CompletionEvent) (model.CompletionEvent, error)
	ListCompletions(ctx context.Context, filter CompletionListFilter) ([]model.CompletionEvent, error)
	DeleteLatestCompletion(ctx context.Context, taskID int64) (model.CompletionEvent, error)

	// Restore replaces every task and completion, keeping their ids.
	Restore(ctx context.Context, tasks []model.Task, completions []model.CompletionEvent) error
}
