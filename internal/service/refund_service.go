package service

import (
	"context"
	"fmt"
	"time"

	"github.com/fieldbook-id/fieldbook/internal/domain"
	"github.com/oklog/ulid/v2"
)

// RefundInstruction is what the customer needs to collect a refund: a QR
// payout link with its expiry, plus our reference for support lookups.
type RefundInstruction struct {
	Amount      int64     `json:"amount"`
	ReferenceID string    `json:"referenceId"`
	QRURL       string    `json:"qrUrl"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// RefundCoordinator issues refunds and releases schedule records freed by
// cancellations.
type RefundCoordinator interface {
	IssueRefund(ctx context.Context, pkg *domain.BookingPackage, amount int64) (*RefundInstruction, error)
	ReleaseSchedule(ctx context.Context, scheduleID string) error
}

// RefundService backs RefundCoordinator with the payment provider and the
// schedule store.
type RefundService struct {
	schedules domain.FieldScheduleRepository
	provider  PaymentProvider
}

func NewRefundService(schedules domain.FieldScheduleRepository, provider PaymentProvider) *RefundService {
	return &RefundService{schedules: schedules, provider: provider}
}

// IssueRefund creates a refund QR for the amount. Refunds are always the
// full per-session price of the cancelled sessions; no proration. A zero
// amount is a no-op.
func (s *RefundService) IssueRefund(ctx context.Context, pkg *domain.BookingPackage, amount int64) (*RefundInstruction, error) {
	if amount <= 0 {
		return nil, nil
	}
	referenceID := ulid.Make().String()
	resp, err := s.provider.CreateRefundQR(ctx, referenceID, amount, pkg.CustomerID)
	if err != nil {
		return nil, fmt.Errorf("refund provider error: %w", err)
	}
	return &RefundInstruction{
		Amount:      amount,
		ReferenceID: referenceID,
		QRURL:       resp.QRURL,
		ExpiresAt:   resp.ExpiresAt,
	}, nil
}

// ReleaseSchedule flips a schedule record back to Available. Callers treat
// a failure as reportable but never fatal; the record is re-released out of
// band.
func (s *RefundService) ReleaseSchedule(ctx context.Context, scheduleID string) error {
	if err := s.schedules.UpdateStatus(ctx, scheduleID, domain.ScheduleStatusAvailable); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrScheduleReleaseFailed, err)
	}
	return nil
}
