package scheduler

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/whatsapp-summary-bot/internal/models"
)

// ParseRunAt parses a "HH:MM" run time
func ParseRunAt(runAt string) (hour, minute int, err error) {
	parts := strings.Split(runAt, ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid run time %q, want HH:MM", runAt)
	}

	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid hour in run time %q", runAt)
	}

	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid minute in run time %q", runAt)
	}

	return hour, minute, nil
}

// NextExecution computes the next occurrence of runAt ("HH:MM") in the
// given timezone, strictly after from. The arithmetic is done on the
// target timezone's wall clock, so the result lands on the configured
// local time across DST transitions.
func NextExecution(runAt, timezone string, from time.Time) (time.Time, error) {
	hour, minute, err := ParseRunAt(runAt)
	if err != nil {
		return time.Time{}, err
	}

	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to load timezone %s: %w", timezone, err)
	}

	local := from.In(loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), hour, minute, 0, 0, loc)

	// If the local occurrence is not strictly in the future, take
	// tomorrow's
	if !next.After(local) {
		next = next.AddDate(0, 0, 1)
	}

	return next, nil
}

// ExecutionWindow returns the UTC instant range covering the local
// calendar day of `at` in the given timezone, plus the day formatted as
// YYYY-MM-DD (the summary date key)
func ExecutionWindow(timezone string, at time.Time) (models.TimeRange, string, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return models.TimeRange{}, "", fmt.Errorf("failed to load timezone %s: %w", timezone, err)
	}

	local := at.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	end := start.AddDate(0, 0, 1)

	window := models.TimeRange{
		Start: start.UTC(),
		End:   end.UTC(),
	}
	return window, start.Format("2006-01-02"), nil
}
