package scheduler

import (
	"testing"
	"time"
)

func jerusalem(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Jerusalem")
	if err != nil {
		t.Fatalf("Failed to load timezone: %v", err)
	}
	return loc
}

func TestNextExecution_BeforeRunTimeSameDay(t *testing.T) {
	loc := jerusalem(t)
	from := time.Date(2024, 1, 15, 8, 0, 0, 0, loc) // 08:00 local

	next, err := NextExecution("09:00", "Asia/Jerusalem", from)
	if err != nil {
		t.Fatalf("NextExecution failed: %v", err)
	}

	want := time.Date(2024, 1, 15, 9, 0, 0, 0, loc)
	if !next.Equal(want) {
		t.Errorf("Expected same-day 09:00 local, got %v", next.In(loc))
	}
}

func TestNextExecution_AfterRunTimeNextDay(t *testing.T) {
	loc := jerusalem(t)
	from := time.Date(2024, 1, 15, 9, 30, 0, 0, loc) // 09:30 local

	next, err := NextExecution("09:00", "Asia/Jerusalem", from)
	if err != nil {
		t.Fatalf("NextExecution failed: %v", err)
	}

	want := time.Date(2024, 1, 16, 9, 0, 0, 0, loc)
	if !next.Equal(want) {
		t.Errorf("Expected next-day 09:00 local, got %v", next.In(loc))
	}
}

func TestNextExecution_ExactRunTimeAdvancesADay(t *testing.T) {
	loc := jerusalem(t)
	from := time.Date(2024, 1, 15, 9, 0, 0, 0, loc)

	next, err := NextExecution("09:00", "Asia/Jerusalem", from)
	if err != nil {
		t.Fatalf("NextExecution failed: %v", err)
	}

	// Not strictly after means tomorrow
	want := time.Date(2024, 1, 16, 9, 0, 0, 0, loc)
	if !next.Equal(want) {
		t.Errorf("Expected next-day 09:00 local for exact match, got %v", next.In(loc))
	}
}

func TestNextExecution_IdempotentReapplication(t *testing.T) {
	loc := jerusalem(t)
	from := time.Date(2024, 1, 15, 7, 45, 0, 0, loc)

	first, err := NextExecution("09:00", "Asia/Jerusalem", from)
	if err != nil {
		t.Fatalf("NextExecution failed: %v", err)
	}
	second, err := NextExecution("09:00", "Asia/Jerusalem", first)
	if err != nil {
		t.Fatalf("NextExecution failed: %v", err)
	}

	if !second.Equal(first.AddDate(0, 0, 1)) {
		t.Errorf("Expected exactly one local day later, got %v then %v",
			first.In(loc), second.In(loc))
	}
}

func TestNextExecution_PreservesLocalWallClockAcrossDST(t *testing.T) {
	loc := jerusalem(t)
	// Israel switches to IDT (UTC+2 -> UTC+3) on 2024-03-29
	from := time.Date(2024, 3, 28, 10, 0, 0, 0, loc)

	next, err := NextExecution("09:00", "Asia/Jerusalem", from)
	if err != nil {
		t.Fatalf("NextExecution failed: %v", err)
	}

	local := next.In(loc)
	if local.Hour() != 9 || local.Minute() != 0 {
		t.Errorf("Expected 09:00 local after DST transition, got %02d:%02d",
			local.Hour(), local.Minute())
	}
	if local.Day() != 29 || local.Month() != time.March {
		t.Errorf("Expected March 29, got %v", local)
	}
}

func TestNextExecution_InvalidInputs(t *testing.T) {
	if _, err := NextExecution("25:00", "UTC", time.Now()); err == nil {
		t.Error("Expected error for hour 25")
	}
	if _, err := NextExecution("09:99", "UTC", time.Now()); err == nil {
		t.Error("Expected error for minute 99")
	}
	if _, err := NextExecution("0900", "UTC", time.Now()); err == nil {
		t.Error("Expected error for missing colon")
	}
	if _, err := NextExecution("09:00", "Not/AZone", time.Now()); err == nil {
		t.Error("Expected error for unknown timezone")
	}
}

func TestExecutionWindow_CoversLocalDay(t *testing.T) {
	loc := jerusalem(t)
	// 2024-01-15 01:30 local is 2024-01-14 23:30 UTC
	at := time.Date(2024, 1, 14, 23, 30, 0, 0, time.UTC)

	window, summaryDate, err := ExecutionWindow("Asia/Jerusalem", at)
	if err != nil {
		t.Fatalf("ExecutionWindow failed: %v", err)
	}

	if summaryDate != "2024-01-15" {
		t.Errorf("Expected local summary date 2024-01-15, got %s", summaryDate)
	}

	wantStart := time.Date(2024, 1, 15, 0, 0, 0, 0, loc)
	if !window.Start.Equal(wantStart) {
		t.Errorf("Expected window start at local midnight, got %v", window.Start)
	}
	if !window.End.Equal(wantStart.AddDate(0, 0, 1)) {
		t.Errorf("Expected window end at next local midnight, got %v", window.End)
	}

	if !window.Contains(at) {
		t.Error("Expected the instant itself to fall inside its window")
	}
	if window.Contains(window.End) {
		t.Error("Window end must be exclusive")
	}
}
