package booking

import (
	"time"

	"github.com/fieldbook-id/fieldbook/internal/domain"
)

// Pattern is a declarative recurring-booking request: a date range, a
// weekday subset and one slot choice per chosen weekday.
type Pattern struct {
	FieldID       string
	StartDate     time.Time
	EndDate       time.Time
	Weekdays      []time.Weekday
	SlotByWeekday map[time.Weekday]string
}

// Validate checks the pattern's own shape, before any availability lookup.
func (p Pattern) Validate() error {
	if len(p.Weekdays) == 0 {
		return domain.ErrNoWeekdaySelected
	}
	if domain.DateOnly(p.StartDate).After(domain.DateOnly(p.EndDate)) {
		return domain.ErrInvalidDateRange
	}
	for _, wd := range p.Weekdays {
		if p.SlotByWeekday[wd] == "" {
			return domain.ErrMissingSlotChoice
		}
	}
	return nil
}

// CandidateSession is one generated occurrence, not yet persisted.
type CandidateSession struct {
	Date       time.Time `json:"date"`
	SlotID     string    `json:"slotId"`
	ScheduleID string    `json:"scheduleId"`
	StartTime  time.Time `json:"startTime"`
	EndTime    time.Time `json:"endTime"`
	Price      int64     `json:"pricePerSession"`
}

// GenerateResult carries the ordered candidate list plus the dates that
// matched the weekday pattern but had no availability record. Zero sessions
// is a value, not an error; callers decide whether that is reportable.
type GenerateResult struct {
	Sessions       []CandidateSession `json:"sessions"`
	UncoveredDates []time.Time        `json:"uncoveredDates,omitempty"`
	TotalPrice     int64              `json:"totalPrice"`
}

// GenerateSessions walks every calendar date of the range inclusive and
// emits one candidate per date whose weekday is selected and whose chosen
// slot has a matching schedule record. Output is ordered by date ascending
// and is deterministic for a given snapshot.
func GenerateSessions(p Pattern, index *AvailabilityIndex, prices *PriceResolver) GenerateResult {
	var result GenerateResult

	selected := make(map[time.Weekday]bool, len(p.Weekdays))
	for _, wd := range p.Weekdays {
		selected[wd] = true
	}

	start := domain.DateOnly(p.StartDate)
	end := domain.DateOnly(p.EndDate)
	for date := start; !date.After(end); date = date.AddDate(0, 0, 1) {
		if !selected[date.Weekday()] {
			continue
		}
		slotID := p.SlotByWeekday[date.Weekday()]
		rec, ok := index.Match(date, slotID, "")
		if !ok {
			result.UncoveredDates = append(result.UncoveredDates, date)
			continue
		}
		price := prices.Price(rec.SlotID)
		result.Sessions = append(result.Sessions, CandidateSession{
			Date:       date,
			SlotID:     rec.SlotID,
			ScheduleID: rec.ID,
			StartTime:  rec.StartTime,
			EndTime:    rec.EndTime,
			Price:      price,
		})
		result.TotalPrice += price
	}
	return result
}
