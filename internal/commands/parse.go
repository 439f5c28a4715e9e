package commands

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sandeepkv93/taskmaster/internal/model"
)

// ParseEvery reads an EveryXY interval: "day", "week", "2d", "3w", "1m".
func ParseEvery(raw string) (model.Recurrence, error) {
	amount, unit, err := splitAmountUnit(raw)
	if err != nil {
		return model.Recurrence{}, err
	}
	return model.EveryXY(amount, unit)
}

// ParsePer reads an XPerY quota such as "3/week" or "2/d".
func ParsePer(raw string) (model.Recurrence, error) {
	countPart, unitPart, ok := strings.Cut(raw, "/")
	if !ok {
		return model.Recurrence{}, fmt.Errorf("expected <count>/<unit>, got %q", raw)
	}
	count, err := strconv.Atoi(countPart)
	if err != nil {
		return model.Recurrence{}, fmt.Errorf("invalid count %q", countPart)
	}
	unit, err := parseUnit(unitPart)
	if err != nil {
		return model.Recurrence{}, err
	}
	return model.XPerY(count, unit)
}

// ParseAt reads a daily Scheduled hour: "7", "07" or "7:00".
func ParseAt(raw string) (model.Recurrence, error) {
	hourPart, minutePart, hasMinutes := strings.Cut(raw, ":")
	if hasMinutes && minutePart != "00" {
		return model.Recurrence{}, fmt.Errorf("scheduled tasks run on the hour, got %q", raw)
	}
	hour, err := strconv.Atoi(hourPart)
	if err != nil {
		return model.Recurrence{}, fmt.Errorf("invalid hour %q", raw)
	}
	return model.ScheduledAt(hour)
}

// ParseDue resolves a due expression relative to now in loc: "today",
// "tomorrow", "+3d", "+2h", "2026-02-10" (end of that day) or
// "2026-02-10T15:00".
func ParseDue(raw string, now time.Time, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	local := now.In(loc)
	endOfDay := func(t time.Time) time.Time {
		y, m, d := t.Date()
		return time.Date(y, m, d, 23, 59, 0, 0, loc)
	}
	value := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case value == "":
		return time.Time{}, nil
	case value == "today":
		return endOfDay(local), nil
	case value == "tomorrow":
		return endOfDay(local.AddDate(0, 0, 1)), nil
	case strings.HasPrefix(value, "+"):
		rest := value[1:]
		if strings.HasSuffix(rest, "d") {
			n, err := strconv.Atoi(strings.TrimSuffix(rest, "d"))
			if err != nil || n < 0 {
				return time.Time{}, fmt.Errorf("invalid offset %q", raw)
			}
			return local.AddDate(0, 0, n), nil
		}
		d, err := time.ParseDuration(rest)
		if err != nil || d < 0 {
			return time.Time{}, fmt.Errorf("invalid offset %q", raw)
		}
		return local.Add(d), nil
	}
	if t, err := time.ParseInLocation("2006-01-02t15:04", value, loc); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation("2006-01-02", value, loc); err == nil {
		return endOfDay(t), nil
	}
	return time.Time{}, fmt.Errorf("unrecognised due date %q", raw)
}

func splitAmountUnit(raw string) (int, model.Unit, error) {
	value := strings.ToLower(strings.TrimSpace(raw))
	i := 0
	for i < len(value) && value[i] >= '0' && value[i] <= '9' {
		i++
	}
	amount := 1
	if i > 0 {
		n, err := strconv.Atoi(value[:i])
		if err != nil {
			return 0, 0, fmt.Errorf("invalid amount in %q", raw)
		}
		amount = n
	}
	unit, err := parseUnit(value[i:])
	if err != nil {
		return 0, 0, err
	}
	return amount, unit, nil
}

func parseUnit(raw string) (model.Unit, error) {
	value := strings.ToLower(strings.TrimSpace(raw))
	switch value {
	case "daily":
		value = "day"
	case "weekly":
		value = "week"
	case "monthly":
		value = "month"
	}
	return model.ParseUnit(value)
}
