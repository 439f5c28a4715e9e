package commands

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sandeepkv93/taskmaster/internal/model"
)

type Type string

const (
	TypeAdd     Type = "add"
	TypeDone    Type = "done"
	TypeUndo    Type = "undo"
	TypeDelete  Type = "delete"
	TypeNext    Type = "next"
	TypePlan    Type = "plan"
	TypeStats   Type = "stats"
	TypePreview Type = "preview"
)

type ErrorCode string

const (
	ErrCodeEmptyInput      ErrorCode = "empty_input"
	ErrCodeUnknownCommand  ErrorCode = "unknown_command"
	ErrCodeInvalidArgument ErrorCode = "invalid_argument"
	ErrCodeHandlerMissing  ErrorCode = "handler_missing"
)

type CommandError struct {
	Code    ErrorCode
	Message string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func invalid(format string, args ...any) error {
	return &CommandError{Code: ErrCodeInvalidArgument, Message: fmt.Sprintf(format, args...)}
}

// Target names a task by id, or the row selected in the TUI.
type Target struct {
	ID       int64
	Selected bool
}

func (t Target) String() string {
	if t.Selected {
		return "selected"
	}
	return "#" + strconv.FormatInt(t.ID, 10)
}

// AddArgs carries the title plus optional key:value options, e.g.
// "add stretch p:3 every:1d tod:morning est:15m".
type AddArgs struct {
	Title      string
	Priority   int
	Due        string
	Category   string
	Recurrence model.Recurrence
	TimeOfDay  model.TimeOfDay
	Estimate   time.Duration
	ChainID    int64
	ChainOrder int
}

type DoneArgs struct {
	Target     Target
	Minutes    int
	Difficulty int
}

type TargetArgs struct {
	Target Target
}

type PreviewArgs struct {
	Target Target
	Count  int
}

const defaultPreviewCount = 5

type Command struct {
	Type    Type
	Raw     string
	Add     *AddArgs
	Done    *DoneArgs
	Undo    *TargetArgs
	Delete  *TargetArgs
	Preview *PreviewArgs
}

func Parse(input string) (Command, error) {
	raw := strings.TrimSpace(input)
	if strings.HasPrefix(raw, "/") {
		raw = strings.TrimSpace(strings.TrimPrefix(raw, "/"))
	}
	if raw == "" {
		return Command{}, &CommandError{Code: ErrCodeEmptyInput, Message: "command is empty"}
	}

	parts := strings.Fields(raw)
	head := strings.ToLower(parts[0])
	args := parts[1:]

	switch Type(head) {
	case TypeAdd:
		return parseAdd(input, args)
	case TypeDone:
		return parseDone(input, args)
	case TypeUndo, TypeDelete:
		target, err := parseTarget(head, args)
		if err != nil {
			return Command{}, err
		}
		cmd := Command{Type: Type(head), Raw: input}
		if cmd.Type == TypeUndo {
			cmd.Undo = &TargetArgs{Target: target}
		} else {
			cmd.Delete = &TargetArgs{Target: target}
		}
		return cmd, nil
	case TypePreview:
		return parsePreview(input, args)
	case TypeNext, TypePlan, TypeStats:
		return Command{Type: Type(head), Raw: input}, nil
	default:
		return Command{}, &CommandError{Code: ErrCodeUnknownCommand, Message: fmt.Sprintf("unsupported command: %s", head)}
	}
}

func parseAdd(raw string, args []string) (Command, error) {
	out := AddArgs{Priority: 2}
	title := make([]string, 0, len(args))
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, ":")
		if !ok || value == "" {
			title = append(title, arg)
			continue
		}
		var err error
		switch strings.ToLower(key) {
		case "p":
			out.Priority, err = strconv.Atoi(value)
			if err == nil && (out.Priority < model.MinPriority || out.Priority > model.MaxPriority) {
				err = fmt.Errorf("priority must be %d-%d", model.MinPriority, model.MaxPriority)
			}
		case "due":
			out.Due = value
		case "cat":
			out.Category = value
		case "every":
			out.Recurrence, err = ParseEvery(value)
		case "per":
			out.Recurrence, err = ParsePer(value)
		case "at":
			out.Recurrence, err = ParseAt(value)
		case "tod":
			out.TimeOfDay, err = model.ParseTimeOfDay(value)
		case "est":
			out.Estimate, err = time.ParseDuration(value)
			if err == nil && out.Estimate < 0 {
				err = fmt.Errorf("estimate must not be negative")
			}
		case "chain":
			out.ChainID, out.ChainOrder, err = parseChain(value)
		default:
			title = append(title, arg)
			continue
		}
		if err != nil {
			return Command{}, invalid("%s: %v", arg, err)
		}
	}
	out.Title = strings.TrimSpace(strings.Join(title, " "))
	if out.Title == "" {
		return Command{}, invalid("add requires a title")
	}
	return Command{Type: TypeAdd, Raw: raw, Add: &out}, nil
}

func parseDone(raw string, args []string) (Command, error) {
	// Options may follow the target or stand alone for the selection.
	targetArgs, opts := args, []string(nil)
	if len(args) > 0 && strings.Contains(args[0], ":") {
		targetArgs, opts = nil, args
	} else if len(args) > 1 {
		targetArgs, opts = args[:1], args[1:]
	}
	target, err := parseTarget("done", targetArgs)
	if err != nil {
		return Command{}, err
	}
	out := DoneArgs{Target: target}
	for _, arg := range opts {
		key, value, _ := strings.Cut(arg, ":")
		n, convErr := strconv.Atoi(value)
		switch {
		case strings.EqualFold(key, "min") && convErr == nil && n >= 0:
			out.Minutes = n
		case strings.EqualFold(key, "diff") && convErr == nil && n >= 0 && n <= model.MaxDifficulty:
			out.Difficulty = n
		default:
			return Command{}, invalid("done: unexpected argument %q", arg)
		}
	}
	return Command{Type: TypeDone, Raw: raw, Done: &out}, nil
}

func parsePreview(raw string, args []string) (Command, error) {
	target, err := parseTarget("preview", args)
	if err != nil {
		return Command{}, err
	}
	out := PreviewArgs{Target: target, Count: defaultPreviewCount}
	if len(args) > 1 {
		n, err := strconv.Atoi(args[1])
		if err != nil || n <= 0 {
			return Command{}, invalid("preview count must be a positive number")
		}
		out.Count = n
	}
	return Command{Type: TypePreview, Raw: raw, Preview: &out}, nil
}

func parseTarget(cmd string, args []string) (Target, error) {
	if len(args) == 0 || strings.EqualFold(args[0], "selected") || args[0] == "." {
		return Target{Selected: true}, nil
	}
	id, err := strconv.ParseInt(strings.TrimPrefix(args[0], "#"), 10, 64)
	if err != nil || id <= 0 {
		return Target{}, invalid("%s requires a task id or \"selected\"", cmd)
	}
	return Target{ID: id}, nil
}

func parseChain(value string) (int64, int, error) {
	idPart, orderPart, _ := strings.Cut(value, "/")
	id, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil || id <= 0 {
		return 0, 0, fmt.Errorf("chain id must be positive")
	}
	order := 0
	if orderPart != "" {
		if order, err = strconv.Atoi(orderPart); err != nil {
			return 0, 0, fmt.Errorf("chain order must be a number")
		}
	}
	return id, order, nil
}
