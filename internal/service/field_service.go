package service

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fieldbook-id/fieldbook/internal/booking"
	"github.com/fieldbook-id/fieldbook/internal/domain"
	"github.com/oklog/ulid/v2"
)

// FileStorage abstracts object storage for field photos.
type FileStorage interface {
	Upload(ctx context.Context, file []byte, filename string, contentType string) (string, error)
}

// FieldService manages fields, their rate tables and their schedule records.
type FieldService struct {
	fields    domain.FieldRepository
	schedules domain.FieldScheduleRepository
	files     FileStorage
}

func NewFieldService(
	fields domain.FieldRepository,
	schedules domain.FieldScheduleRepository,
	files FileStorage,
) *FieldService {
	return &FieldService{fields: fields, schedules: schedules, files: files}
}

func (s *FieldService) ListFields(ctx context.Context) ([]*domain.Field, error) {
	return s.fields.GetActive(ctx)
}

func (s *FieldService) GetField(ctx context.Context, id string) (*domain.Field, error) {
	return s.fields.GetByID(ctx, id)
}

func (s *FieldService) CreateField(ctx context.Context, field *domain.Field) error {
	field.IsActive = true
	return s.fields.Create(ctx, field)
}

func (s *FieldService) SetSlotRates(ctx context.Context, fieldID string, rates []domain.SlotRate) error {
	if _, err := s.fields.GetByID(ctx, fieldID); err != nil {
		return err
	}
	return s.fields.SetSlotRates(ctx, fieldID, rates)
}

// UploadPhoto stores a field photo and records its public URL.
func (s *FieldService) UploadPhoto(ctx context.Context, fieldID string, file []byte, filename, contentType string) (string, error) {
	if _, err := s.fields.GetByID(ctx, fieldID); err != nil {
		return "", err
	}
	key := fmt.Sprintf("fields/%s/%s%s", fieldID, ulid.Make().String(), filepath.Ext(filename))
	url, err := s.files.Upload(ctx, file, key, contentType)
	if err != nil {
		return "", fmt.Errorf("failed to upload field photo: %w", err)
	}
	if err := s.fields.SetPhotoURL(ctx, fieldID, url); err != nil {
		return "", fmt.Errorf("photo uploaded but field update failed: %w", err)
	}
	return url, nil
}

// WeekdayAvailability is the bookable slots of one weekday within a range,
// shaped for the recurring-booking picker.
type WeekdayAvailability struct {
	Weekday string               `json:"weekday"`
	Slots   []booking.SlotOption `json:"slots"`
}

// Availability summarizes the field's open schedule records between from and
// to, grouped by weekday with one representative per slot.
func (s *FieldService) Availability(ctx context.Context, fieldID string, from, to time.Time) ([]WeekdayAvailability, error) {
	if _, err := s.fields.GetByID(ctx, fieldID); err != nil {
		return nil, err
	}
	from, to = domain.DateOnly(from), domain.DateOnly(to)
	if from.After(to) {
		return nil, domain.ErrInvalidDateRange
	}
	recs, err := s.schedules.GetByFieldAndRange(ctx, fieldID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to load field availability: %w", err)
	}
	index := booking.BuildAvailabilityIndex(fieldID, recs)

	out := make([]WeekdayAvailability, 0, 7)
	for _, wd := range index.AvailableWeekdays() {
		out = append(out, WeekdayAvailability{
			Weekday: wd.String(),
			Slots:   index.SlotOptions(wd),
		})
	}
	return out, nil
}

// BulkScheduleRequest creates one Available schedule record per date in the
// range per slot. Slot times are clock strings ("09:00").
type BulkScheduleRequest struct {
	StartDate time.Time         `json:"startDate"`
	EndDate   time.Time         `json:"endDate"`
	Slots     []domain.SlotRate `json:"slots"`
	Weekdays  []string          `json:"weekdays,omitempty"` // empty means every day
}

// BulkCreateSchedules opens availability for a field across a date range.
func (s *FieldService) BulkCreateSchedules(ctx context.Context, fieldID string, req BulkScheduleRequest) ([]*domain.FieldSchedule, error) {
	if _, err := s.fields.GetByID(ctx, fieldID); err != nil {
		return nil, err
	}
	start, end := domain.DateOnly(req.StartDate), domain.DateOnly(req.EndDate)
	if start.After(end) {
		return nil, domain.ErrInvalidDateRange
	}

	wanted := make(map[time.Weekday]bool, len(req.Weekdays))
	for _, raw := range req.Weekdays {
		wd, err := domain.ParseWeekday(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", domain.ErrInvalidWeekday, raw)
		}
		wanted[wd] = true
	}

	var records []*domain.FieldSchedule
	for date := start; !date.After(end); date = date.AddDate(0, 0, 1) {
		if len(wanted) > 0 && !wanted[date.Weekday()] {
			continue
		}
		for _, slot := range req.Slots {
			startAt, err := atClock(date, slot.StartTime)
			if err != nil {
				return nil, fmt.Errorf("invalid slot start time %q: %w", slot.StartTime, err)
			}
			endAt, err := atClock(date, slot.EndTime)
			if err != nil {
				return nil, fmt.Errorf("invalid slot end time %q: %w", slot.EndTime, err)
			}
			records = append(records, &domain.FieldSchedule{
				FieldID:   fieldID,
				Date:      date,
				SlotID:    slot.SlotID,
				StartTime: startAt,
				EndTime:   endAt,
				Status:    domain.ScheduleStatusAvailable,
				Price:     slot.Price,
			})
		}
	}
	if len(records) == 0 {
		return records, nil
	}
	if err := s.schedules.CreateMany(ctx, records); err != nil {
		return nil, fmt.Errorf("failed to create schedule records: %w", err)
	}
	return records, nil
}

// atClock combines a calendar date with a "15:04" clock string.
func atClock(date time.Time, clock string) (time.Time, error) {
	t, err := time.Parse("15:04", clock)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(date.Year(), date.Month(), date.Day(), t.Hour(), t.Minute(), 0, 0, time.UTC), nil
}
