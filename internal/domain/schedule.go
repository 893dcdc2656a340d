package domain

import (
	"context"
	"time"
)

// Schedule status constants. The schedule store is owned externally; this
// service reads records for matching and writes only the status field.
const (
	ScheduleStatusAvailable = "Available"
	ScheduleStatusBooked    = "Booked"
)

// FieldSchedule is one availability record: whether a given field, date and
// slot is free or taken. Price is the rate embedded on the record, used as
// a pricing fallback when the field carries no rate table entry.
type FieldSchedule struct {
	ID        string    `bson:"_id,omitempty" json:"scheduleId"`
	FieldID   string    `bson:"field_id" json:"fieldId"`
	Date      time.Time `bson:"date" json:"date"`
	SlotID    string    `bson:"slot_id" json:"slotId"`
	StartTime time.Time `bson:"start_time" json:"startTime"`
	EndTime   time.Time `bson:"end_time" json:"endTime"`
	Status    string    `bson:"status" json:"status"`
	Price     int64     `bson:"price,omitempty" json:"price,omitempty"`
	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

// FieldScheduleRepository defines operations against the schedule store.
// UpdateStatus is keyed on the record id and unconditional: only one
// session ever owns a given schedule id at a time, so last-write-wins is
// safe even under violated caller serialization.
type FieldScheduleRepository interface {
	CreateMany(ctx context.Context, records []*FieldSchedule) error
	GetByID(ctx context.Context, id string) (*FieldSchedule, error)
	GetByFieldAndRange(ctx context.Context, fieldID string, from, to time.Time) ([]*FieldSchedule, error)
	UpdateStatus(ctx context.Context, id, status string) error
}
