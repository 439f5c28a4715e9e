package commands

import "fmt"

type Result struct {
	Message string
	// Refresh asks the caller to re-read the task list.
	Refresh bool
}

type Handlers struct {
	Add     func(AddArgs) (Result, error)
	Done    func(DoneArgs) (Result, error)
	Undo    func(TargetArgs) (Result, error)
	Delete  func(TargetArgs) (Result, error)
	Next    func() (Result, error)
	Plan    func() (Result, error)
	Stats   func() (Result, error)
	Preview func(PreviewArgs) (Result, error)
}

func missing(t Type) error {
	return &CommandError{Code: ErrCodeHandlerMissing, Message: fmt.Sprintf("%s handler not configured", t)}
}

func Execute(cmd Command, handlers Handlers) (Result, error) {
	switch cmd.Type {
	case TypeAdd:
		if handlers.Add == nil {
			return Result{}, missing(cmd.Type)
		}
		return handlers.Add(*cmd.Add)
	case TypeDone:
		if handlers.Done == nil {
			return Result{}, missing(cmd.Type)
		}
		return handlers.Done(*cmd.Done)
	case TypeUndo:
		if handlers.Undo == nil {
			return Result{}, missing(cmd.Type)
		}
		return handlers.Undo(*cmd.Undo)
	case TypeDelete:
		if handlers.Delete == nil {
			return Result{}, missing(cmd.Type)
		}
		return handlers.Delete(*cmd.Delete)
	case TypePreview:
		if handlers.Preview == nil {
			return Result{}, missing(cmd.Type)
		}
		return handlers.Preview(*cmd.Preview)
	case TypeNext, TypePlan, TypeStats:
		fn := map[Type]func() (Result, error){
			TypeNext:  handlers.Next,
			TypePlan:  handlers.Plan,
			TypeStats: handlers.Stats,
		}[cmd.Type]
		if fn == nil {
			return Result{}, missing(cmd.Type)
		}
		return fn()
	default:
		return Result{}, &CommandError{Code: ErrCodeUnknownCommand, Message: fmt.Sprintf("unknown command type: %s", cmd.Type)}
	}
}
