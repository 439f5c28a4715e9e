package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInvalidRecurrence = errors.New("model: invalid recurrence")
	ErrInvalidUnit       = errors.New("model: invalid recurrence unit")
)

const Day = 24 * time.Hour

type Unit int

const (
	UnitDay Unit = iota + 1
	UnitWeek
	UnitMonth
)

func (u Unit) IsValid() bool {
	switch u {
	case UnitDay, UnitWeek, UnitMonth:
		return true
	default:
		return false
	}
}

func (u Unit) String() string {
	switch u {
	case UnitDay:
		return "day"
	case UnitWeek:
		return "week"
	case UnitMonth:
		return "month"
	default:
		return fmt.Sprintf("unit(%d)", int(u))
	}
}

func ParseUnit(raw string) (Unit, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "day", "days", "d":
		return UnitDay, nil
	case "week", "weeks", "w":
		return UnitWeek, nil
	case "month", "months", "m":
		return UnitMonth, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidUnit, raw)
	}
}

// Interval is the fixed-length span of n units. A month is always 30 days;
// calendar-accurate month arithmetic is intentionally not attempted.
func (u Unit) Interval(n int) time.Duration {
	switch u {
	case UnitDay:
		return time.Duration(n) * Day
	case UnitWeek:
		return time.Duration(n) * 7 * Day
	case UnitMonth:
		return time.Duration(n) * 30 * Day
	default:
		return 0
	}
}

type RecurrenceKind string

const (
	RecurrenceNone      RecurrenceKind = "none"
	RecurrenceEveryXY   RecurrenceKind = "every_x_y"
	RecurrenceXPerY     RecurrenceKind = "x_per_y"
	RecurrenceScheduled RecurrenceKind = "scheduled"
)

// Recurrence is one of None, EveryXY{amount, unit}, XPerY{amount, unit} or
// Scheduled{hour}. Fields are only reachable through the constructors, so a
// value that exists is always well formed. The zero value is None.
type Recurrence struct {
	kind   RecurrenceKind
	amount int
	unit   Unit
	hour   int
}

func NoRecurrence() Recurrence {
	return Recurrence{}
}

// EveryXY repeats amount units after each completion.
func EveryXY(amount int, unit Unit) (Recurrence, error) {
	if err := validateAmountUnit(amount, unit); err != nil {
		return Recurrence{}, err
	}
	return Recurrence{kind: RecurrenceEveryXY, amount: amount, unit: unit}, nil
}

// XPerY asks for amount completions within each calendar period of unit.
func XPerY(amount int, unit Unit) (Recurrence, error) {
	if err := validateAmountUnit(amount, unit); err != nil {
		return Recurrence{}, err
	}
	return Recurrence{kind: RecurrenceXPerY, amount: amount, unit: unit}, nil
}

// ScheduledAt repeats daily at the given hour of day.
func ScheduledAt(hour int) (Recurrence, error) {
	if hour < 0 || hour > 23 {
		return Recurrence{}, fmt.Errorf("%w: scheduled hour %d outside 0..23", ErrInvalidRecurrence, hour)
	}
	return Recurrence{kind: RecurrenceScheduled, hour: hour}, nil
}

// ParseRecurrence builds a Recurrence from its loose interchange form.
// Unknown kinds are rejected rather than coerced to None.
func ParseRecurrence(kind string, amount int, unit string, hour int) (Recurrence, error) {
	switch RecurrenceKind(strings.ToLower(strings.TrimSpace(kind))) {
	case "", RecurrenceNone, "once":
		return NoRecurrence(), nil
	case RecurrenceEveryXY:
		u, err := ParseUnit(unit)
		if err != nil {
			return Recurrence{}, err
		}
		return EveryXY(amount, u)
	case RecurrenceXPerY:
		u, err := ParseUnit(unit)
		if err != nil {
			return Recurrence{}, err
		}
		return XPerY(amount, u)
	case RecurrenceScheduled:
		return ScheduledAt(hour)
	default:
		return Recurrence{}, fmt.Errorf("%w: unknown kind %q", ErrInvalidRecurrence, kind)
	}
}

func validateAmountUnit(amount int, unit Unit) error {
	if amount <= 0 {
		return fmt.Errorf("%w: amount must be positive, got %d", ErrInvalidRecurrence, amount)
	}
	if !unit.IsValid() {
		return fmt.Errorf("%w: %s", ErrInvalidUnit, unit)
	}
	return nil
}

func (r Recurrence) Kind() RecurrenceKind {
	if r.kind == "" {
		return RecurrenceNone
	}
	return r.kind
}

func (r Recurrence) IsRecurring() bool {
	return r.Kind() != RecurrenceNone
}

// Amount is zero for None and Scheduled.
func (r Recurrence) Amount() int { return r.amount }

// Unit is zero for None and Scheduled.
func (r Recurrence) Unit() Unit { return r.unit }

// Hour is only meaningful for Scheduled.
func (r Recurrence) Hour() int { return r.hour }

func (r Recurrence) String() string {
	switch r.Kind() {
	case RecurrenceEveryXY:
		if r.amount == 1 {
			return "every " + r.unit.String()
		}
		return fmt.Sprintf("every %d %ss", r.amount, r.unit)
	case RecurrenceXPerY:
		return fmt.Sprintf("%d per %s", r.amount, r.unit)
	case RecurrenceScheduled:
		return fmt.Sprintf("daily at %02d:00", r.hour)
	default:
		return "once"
	}
}

// Parts is the inverse of ParseRecurrence. Unit is empty unless the kind
// carries one.
func (r Recurrence) Parts() (kind string, amount int, unit string, hour int) {
	kind = string(r.Kind())
	if r.unit.IsValid() {
		unit = r.unit.String()
	}
	return kind, r.amount, unit, r.hour
}
