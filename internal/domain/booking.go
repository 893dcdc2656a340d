package domain

import (
	"context"
	"strings"
	"time"
)

// Booking status constants (package level)
const (
	BookingStatusPending   = "Pending"
	BookingStatusConfirmed = "Confirmed"
	BookingStatusCompleted = "Completed"
	BookingStatusCancelled = "Cancelled"
)

// Payment status constants
const (
	PaymentStatusUnpaid   = "Unpaid"
	PaymentStatusPaid     = "Paid"
	PaymentStatusRefunded = "Refunded"
	PaymentStatusFailed   = "Failed"
)

// Session status constants
const (
	SessionStatusBooked    = "Booked"
	SessionStatusCancelled = "Cancelled"
)

// BookingPackage is a recurring booking: a date range, a weekday subset and
// one slot choice per chosen weekday. Weekday keys are canonical names
// ("Monday".."Sunday"); ParseWeekday collapses aliases at the boundary.
type BookingPackage struct {
	ID            string            `bson:"_id,omitempty" json:"packageId"`
	FieldID       string            `bson:"field_id" json:"fieldId"`
	CustomerID    string            `bson:"customer_id" json:"customerId"`
	PackageName   string            `bson:"package_name,omitempty" json:"packageName,omitempty"`
	StartDate     time.Time         `bson:"start_date" json:"startDate"`
	EndDate       time.Time         `bson:"end_date" json:"endDate"`
	Weekdays      []string          `bson:"weekdays" json:"weekdays"`
	WeekdaySlots  map[string]string `bson:"weekday_slots" json:"weekdaySlots"`
	TotalPrice    int64             `bson:"total_price" json:"totalPrice"`
	BookingStatus string            `bson:"booking_status" json:"bookingStatus"`
	PaymentStatus string            `bson:"payment_status" json:"paymentStatus"`
	RefundQRURL   string            `bson:"refund_qr_url,omitempty" json:"refundQrUrl,omitempty"`
	RefundQRExpAt time.Time         `bson:"refund_qr_expires_at,omitempty" json:"refundQrExpiresAt,omitempty"`
	CreatedAt     time.Time         `bson:"created_at" json:"createdAt"`
	UpdatedAt     time.Time         `bson:"updated_at" json:"updatedAt"`
}

// Terminal reports whether the package can accept no further transitions.
func (p *BookingPackage) Terminal() bool {
	return p.BookingStatus == BookingStatusCompleted || p.BookingStatus == BookingStatusCancelled
}

// PackageSession is one concrete occurrence of a package on a specific
// date and slot. ScheduleID is a weak reference to the matched field
// schedule record; the session does not own it.
type PackageSession struct {
	ID              string    `bson:"_id,omitempty" json:"sessionId"`
	PackageID       string    `bson:"package_id" json:"packageId"`
	Date            time.Time `bson:"date" json:"date"`
	SlotID          string    `bson:"slot_id" json:"slotId"`
	ScheduleID      string    `bson:"schedule_id,omitempty" json:"scheduleId,omitempty"`
	StartTime       time.Time `bson:"start_time" json:"startTime"`
	EndTime         time.Time `bson:"end_time" json:"endTime"`
	PricePerSession int64     `bson:"price_per_session" json:"pricePerSession"`
	SessionStatus   string    `bson:"session_status" json:"sessionStatus"`
	CreatedAt       time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt       time.Time `bson:"updated_at" json:"updatedAt"`
}

// Started reports whether the session's start time has passed. A started
// session can no longer be cancelled.
func (s *PackageSession) Started(now time.Time) bool {
	return !now.Before(s.StartTime)
}

// LastSessionEnd returns the latest end time over non-cancelled sessions,
// or the zero time when none remain.
func LastSessionEnd(sessions []*PackageSession) time.Time {
	var last time.Time
	for _, s := range sessions {
		if s.SessionStatus == SessionStatusCancelled {
			continue
		}
		if s.EndTime.After(last) {
			last = s.EndTime
		}
	}
	return last
}

// BookedTotal sums price_per_session over sessions still in Booked state.
func BookedTotal(sessions []*PackageSession) int64 {
	var total int64
	for _, s := range sessions {
		if s.SessionStatus == SessionStatusBooked {
			total += s.PricePerSession
		}
	}
	return total
}

// SessionFailure names one session whose schedule reconciliation failed
// after retries. The package transition itself is not rolled back.
type SessionFailure struct {
	SessionID  string `json:"sessionId"`
	ScheduleID string `json:"scheduleId,omitempty"`
	Reason     string `json:"reason"`
}

// ParseWeekday collapses case-insensitive weekday aliases ("mon", "MONDAY")
// to a time.Weekday. Endpoints feeding the core go through this so the core
// never branches on name variants.
func ParseWeekday(s string) (time.Weekday, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sunday", "sun":
		return time.Sunday, nil
	case "monday", "mon":
		return time.Monday, nil
	case "tuesday", "tue", "tues":
		return time.Tuesday, nil
	case "wednesday", "wed":
		return time.Wednesday, nil
	case "thursday", "thu", "thur", "thurs":
		return time.Thursday, nil
	case "friday", "fri":
		return time.Friday, nil
	case "saturday", "sat":
		return time.Saturday, nil
	}
	return time.Sunday, ErrInvalidWeekday
}

// DateOnly truncates t to midnight UTC. All calendar dates in the booking
// core are stored this way so date equality is plain time equality.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// BookingPackageRepository defines storage operations for packages.
type BookingPackageRepository interface {
	Create(ctx context.Context, pkg *BookingPackage) error
	GetByID(ctx context.Context, id string) (*BookingPackage, error)
	GetByCustomer(ctx context.Context, customerID string) ([]*BookingPackage, error)
	ListByStatus(ctx context.Context, bookingStatus string) ([]*BookingPackage, error)
	UpdateStatus(ctx context.Context, id, bookingStatus, paymentStatus string) error
	UpdateTotalPrice(ctx context.Context, id string, total int64) error
	SetRefundQR(ctx context.Context, id, qrURL string, expiresAt time.Time) error
}

// PackageSessionRepository defines storage operations for sessions.
type PackageSessionRepository interface {
	CreateMany(ctx context.Context, sessions []*PackageSession) error
	GetByID(ctx context.Context, id string) (*PackageSession, error)
	GetByPackage(ctx context.Context, packageID string) ([]*PackageSession, error)
	UpdateStatus(ctx context.Context, id, status string) error
}
