package domain

import (
	"context"
	"time"
)

// SlotRate is one entry of a field's rate table: a named time-of-day
// interval with its own price. The rate table is the primary source of
// truth for session pricing.
type SlotRate struct {
	SlotID    string `bson:"slot_id" json:"slotId"`
	Label     string `bson:"label,omitempty" json:"label,omitempty"`
	StartTime string `bson:"start_time" json:"startTime"` // "09:00"
	EndTime   string `bson:"end_time" json:"endTime"`     // "10:30"
	Price     int64  `bson:"price" json:"price"`
}

// Field is a bookable facility resource.
type Field struct {
	ID        string     `bson:"_id,omitempty" json:"fieldId"`
	Name      string     `bson:"name" json:"name"`
	Location  string     `bson:"location,omitempty" json:"location,omitempty"`
	PhotoURL  string     `bson:"photo_url,omitempty" json:"photoUrl,omitempty"`
	SlotRates []SlotRate `bson:"slot_rates,omitempty" json:"slotRates,omitempty"`
	IsActive  bool       `bson:"is_active" json:"isActive"`
	CreatedAt time.Time  `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time  `bson:"updated_at" json:"updatedAt"`
}

// RateFor returns the rate-table price for a slot id, if present.
func (f *Field) RateFor(slotID string) (int64, bool) {
	for _, r := range f.SlotRates {
		if r.SlotID == slotID {
			return r.Price, true
		}
	}
	return 0, false
}

// FieldRepository defines storage operations for fields.
type FieldRepository interface {
	Create(ctx context.Context, field *Field) error
	GetByID(ctx context.Context, id string) (*Field, error)
	GetActive(ctx context.Context) ([]*Field, error)
	SetSlotRates(ctx context.Context, id string, rates []SlotRate) error
	SetPhotoURL(ctx context.Context, id, url string) error
}
