package domain

import (
	"testing"
	"time"
)

func TestParseWeekday(t *testing.T) {
	cases := map[string]time.Weekday{
		"monday":    time.Monday,
		"Monday":    time.Monday,
		"MON":       time.Monday,
		" tue ":     time.Tuesday,
		"tues":      time.Tuesday,
		"wed":       time.Wednesday,
		"thurs":     time.Thursday,
		"FRIDAY":    time.Friday,
		"sat":       time.Saturday,
		"sun":       time.Sunday,
		"wednesday": time.Wednesday,
	}
	for input, want := range cases {
		got, err := ParseWeekday(input)
		if err != nil {
			t.Errorf("ParseWeekday(%q) returned error: %v", input, err)
			continue
		}
		if got != want {
			t.Errorf("ParseWeekday(%q) = %v, want %v", input, got, want)
		}
	}

	for _, bad := range []string{"", "funday", "mondays", "7"} {
		if _, err := ParseWeekday(bad); err == nil {
			t.Errorf("ParseWeekday(%q) should fail", bad)
		}
	}
}

func TestDateOnly(t *testing.T) {
	jakarta := time.FixedZone("WIB", 7*3600)
	in := time.Date(2025, 6, 2, 23, 30, 0, 0, jakarta) // 16:30 UTC same day
	got := DateOnly(in)
	want := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("DateOnly = %v, want %v", got, want)
	}
	if !DateOnly(got).Equal(got) {
		t.Error("DateOnly should be idempotent")
	}
}

func TestLastSessionEnd(t *testing.T) {
	end1 := time.Date(2025, 6, 2, 10, 30, 0, 0, time.UTC)
	end2 := time.Date(2025, 6, 9, 10, 30, 0, 0, time.UTC)
	sessions := []*PackageSession{
		{SessionStatus: SessionStatusBooked, EndTime: end1},
		{SessionStatus: SessionStatusBooked, EndTime: end2},
	}
	if got := LastSessionEnd(sessions); !got.Equal(end2) {
		t.Errorf("LastSessionEnd = %v, want %v", got, end2)
	}

	// A cancelled tail session no longer counts.
	sessions[1].SessionStatus = SessionStatusCancelled
	if got := LastSessionEnd(sessions); !got.Equal(end1) {
		t.Errorf("LastSessionEnd after cancel = %v, want %v", got, end1)
	}

	sessions[0].SessionStatus = SessionStatusCancelled
	if got := LastSessionEnd(sessions); !got.IsZero() {
		t.Errorf("LastSessionEnd over all-cancelled = %v, want zero", got)
	}
}

func TestBookedTotal(t *testing.T) {
	sessions := []*PackageSession{
		{SessionStatus: SessionStatusBooked, PricePerSession: 200000},
		{SessionStatus: SessionStatusCancelled, PricePerSession: 200000},
		{SessionStatus: SessionStatusBooked, PricePerSession: 300000},
	}
	if got := BookedTotal(sessions); got != 500000 {
		t.Errorf("BookedTotal = %d, want 500000", got)
	}
	if got := BookedTotal(nil); got != 0 {
		t.Errorf("BookedTotal(nil) = %d, want 0", got)
	}
}

func TestPackageTerminal(t *testing.T) {
	for status, want := range map[string]bool{
		BookingStatusPending:   false,
		BookingStatusConfirmed: false,
		BookingStatusCompleted: true,
		BookingStatusCancelled: true,
	} {
		p := &BookingPackage{BookingStatus: status}
		if p.Terminal() != want {
			t.Errorf("Terminal() for %s = %v, want %v", status, p.Terminal(), want)
		}
	}
}

func TestSessionStarted(t *testing.T) {
	start := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	s := &PackageSession{StartTime: start}

	if s.Started(start.Add(-time.Minute)) {
		t.Error("session should not have started before its start time")
	}
	if !s.Started(start) {
		t.Error("session starts exactly at its start time")
	}
	if !s.Started(start.Add(time.Hour)) {
		t.Error("session should have started after its start time")
	}
}

func TestErrorClasses(t *testing.T) {
	if !IsValidation(ErrInvalidWeekday) || IsValidation(ErrPackageNotPending) {
		t.Error("validation class misreported")
	}
	if !IsConflict(ErrPackageNotElapsed) || IsConflict(ErrFieldNotFound) {
		t.Error("conflict class misreported")
	}
	if !IsNotFound(ErrSessionNotFound) || IsNotFound(ErrSessionElapsed) {
		t.Error("not-found class misreported")
	}
}
