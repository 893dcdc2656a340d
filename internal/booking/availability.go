// Package booking holds the pure recurring-booking core: the availability
// index, the price resolver and the session generator. Everything here is
// deterministic and side-effect free; storage and lifecycle live in the
// service layer.
package booking

import (
	"sort"
	"time"

	"github.com/fieldbook-id/fieldbook/internal/domain"
)

type dateSlotKey struct {
	date   time.Time
	slotID string
}

// SlotOption is one representative bookable slot for a weekday, deduped by
// slot id across the dates of the range.
type SlotOption struct {
	SlotID    string    `json:"slotId"`
	StartTime time.Time `json:"startTime"`
	EndTime   time.Time `json:"endTime"`
	Price     int64     `json:"price,omitempty"`
}

// AvailabilityIndex is a read-only snapshot over the Available schedule
// records of one field within a date range. It is rebuilt per operation and
// never shared across requests.
type AvailabilityIndex struct {
	fieldID    string
	byID       map[string]*domain.FieldSchedule
	byDateSlot map[dateSlotKey]*domain.FieldSchedule
	byWeekday  map[time.Weekday][]*domain.FieldSchedule
	slotPrice  map[string]int64
}

// BuildAvailabilityIndex indexes the Available records among recs. Records
// whose status is already Booked do not participate in matching.
func BuildAvailabilityIndex(fieldID string, recs []*domain.FieldSchedule) *AvailabilityIndex {
	ix := &AvailabilityIndex{
		fieldID:    fieldID,
		byID:       make(map[string]*domain.FieldSchedule),
		byDateSlot: make(map[dateSlotKey]*domain.FieldSchedule),
		byWeekday:  make(map[time.Weekday][]*domain.FieldSchedule),
		slotPrice:  make(map[string]int64),
	}
	for _, rec := range recs {
		if rec.FieldID != fieldID || rec.Status != domain.ScheduleStatusAvailable {
			continue
		}
		date := domain.DateOnly(rec.Date)
		ix.byID[rec.ID] = rec
		ix.byDateSlot[dateSlotKey{date: date, slotID: rec.SlotID}] = rec
		wd := date.Weekday()
		ix.byWeekday[wd] = append(ix.byWeekday[wd], rec)
		if _, ok := ix.slotPrice[rec.SlotID]; !ok && rec.Price > 0 {
			ix.slotPrice[rec.SlotID] = rec.Price
		}
	}
	return ix
}

// AvailableWeekdays returns the weekdays with at least one record in the
// snapshot, ordered Sunday..Saturday.
func (ix *AvailabilityIndex) AvailableWeekdays() []time.Weekday {
	out := make([]time.Weekday, 0, len(ix.byWeekday))
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		if len(ix.byWeekday[wd]) > 0 {
			out = append(out, wd)
		}
	}
	return out
}

// SlotOptions returns the distinct slot choices offered on a weekday,
// ordered by start time of day ascending, one representative per slot id.
func (ix *AvailabilityIndex) SlotOptions(wd time.Weekday) []SlotOption {
	seen := make(map[string]bool)
	var out []SlotOption
	for _, rec := range ix.byWeekday[wd] {
		if seen[rec.SlotID] {
			continue
		}
		seen[rec.SlotID] = true
		out = append(out, SlotOption{
			SlotID:    rec.SlotID,
			StartTime: rec.StartTime,
			EndTime:   rec.EndTime,
			Price:     rec.Price,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		return clockMinutes(out[i].StartTime) < clockMinutes(out[j].StartTime)
	})
	return out
}

// Match resolves the schedule record for a (date, slotID) pair. An explicit
// scheduleIDHint wins when it resolves to a record on the requested date,
// and the hinted record's slot id is adopted; otherwise the unique record
// with matching slot id and date is used. A false result means the pair is
// uncovered.
func (ix *AvailabilityIndex) Match(date time.Time, slotID, scheduleIDHint string) (*domain.FieldSchedule, bool) {
	date = domain.DateOnly(date)
	if scheduleIDHint != "" {
		if rec, ok := ix.byID[scheduleIDHint]; ok && domain.DateOnly(rec.Date).Equal(date) {
			return rec, true
		}
	}
	rec, ok := ix.byDateSlot[dateSlotKey{date: date, slotID: slotID}]
	return rec, ok
}

// SlotPrice returns the first non-zero price embedded on any record of the
// slot, used as a pricing fallback behind the field rate table.
func (ix *AvailabilityIndex) SlotPrice(slotID string) (int64, bool) {
	p, ok := ix.slotPrice[slotID]
	return p, ok
}

func clockMinutes(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}
