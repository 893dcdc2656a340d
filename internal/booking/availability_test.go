package booking

import (
	"testing"
	"time"

	"github.com/fieldbook-id/fieldbook/internal/domain"
)

func TestBuildAvailabilityIndexFilters(t *testing.T) {
	booked := schedule("sch-booked", date(2025, time.June, 2), "slot-a", 9, 0, 10, 30, 200000)
	booked.Status = domain.ScheduleStatusBooked
	foreign := schedule("sch-foreign", date(2025, time.June, 2), "slot-a", 9, 0, 10, 30, 200000)
	foreign.FieldID = "another-field"
	open := schedule("sch-open", date(2025, time.June, 9), "slot-a", 9, 0, 10, 30, 200000)

	ix := BuildAvailabilityIndex(testFieldID, []*domain.FieldSchedule{booked, foreign, open})

	if _, ok := ix.Match(date(2025, time.June, 2), "slot-a", ""); ok {
		t.Error("booked record matched as available")
	}
	if _, ok := ix.Match(date(2025, time.June, 9), "slot-a", ""); !ok {
		t.Error("available record did not match")
	}
	if _, ok := ix.Match(date(2025, time.June, 2), "slot-a", "sch-booked"); ok {
		t.Error("booked record matched via hint")
	}
}

func TestAvailableWeekdaysOrdered(t *testing.T) {
	ix := BuildAvailabilityIndex(testFieldID, monWedFixture())
	got := ix.AvailableWeekdays()
	want := []time.Weekday{time.Monday, time.Wednesday}
	if len(got) != len(want) {
		t.Fatalf("weekdays = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("weekdays = %v, want %v", got, want)
			break
		}
	}
}

func TestSlotOptionsDedupedAndSorted(t *testing.T) {
	recs := []*domain.FieldSchedule{
		schedule("sch-1", date(2025, time.June, 2), "slot-evening", 18, 0, 19, 30, 300000),
		schedule("sch-2", date(2025, time.June, 2), "slot-morning", 9, 0, 10, 30, 200000),
		schedule("sch-3", date(2025, time.June, 9), "slot-morning", 9, 0, 10, 30, 200000),
	}
	ix := BuildAvailabilityIndex(testFieldID, recs)

	opts := ix.SlotOptions(time.Monday)
	if len(opts) != 2 {
		t.Fatalf("options = %v, want 2 distinct slots", opts)
	}
	if opts[0].SlotID != "slot-morning" || opts[1].SlotID != "slot-evening" {
		t.Errorf("options not ordered by start time: %v", opts)
	}
}

func TestMatchHintPrecedence(t *testing.T) {
	monday := date(2025, time.June, 2)
	a := schedule("sch-a", monday, "slot-a", 9, 0, 10, 30, 200000)
	b := schedule("sch-b", monday, "slot-b", 18, 0, 19, 30, 300000)
	ix := BuildAvailabilityIndex(testFieldID, []*domain.FieldSchedule{a, b})

	tests := []struct {
		name   string
		slotID string
		hint   string
		wantID string
		wantOK bool
	}{
		{name: "no hint matches by date+slot", slotID: "slot-a", hint: "", wantID: "sch-a", wantOK: true},
		{name: "hint overrides slot id", slotID: "slot-a", hint: "sch-b", wantID: "sch-b", wantOK: true},
		{name: "hint on wrong date falls back", slotID: "slot-a", hint: "sch-other-week", wantID: "sch-a", wantOK: true},
		{name: "uncovered pair", slotID: "slot-c", hint: "", wantOK: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, ok := ix.Match(monday, tt.slotID, tt.hint)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && rec.ID != tt.wantID {
				t.Errorf("matched %q, want %q", rec.ID, tt.wantID)
			}
		})
	}
}

func TestMatchHintForOtherDateFallsBack(t *testing.T) {
	monday := date(2025, time.June, 2)
	nextMonday := date(2025, time.June, 9)
	recs := []*domain.FieldSchedule{
		schedule("sch-week1", monday, "slot-a", 9, 0, 10, 30, 200000),
		schedule("sch-week2", nextMonday, "slot-a", 9, 0, 10, 30, 200000),
	}
	ix := BuildAvailabilityIndex(testFieldID, recs)

	rec, ok := ix.Match(monday, "slot-a", "sch-week2")
	if !ok || rec.ID != "sch-week1" {
		t.Errorf("Match = %v/%v, want sch-week1 via date+slot fallback", rec, ok)
	}
}
