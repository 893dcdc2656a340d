package service

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/fieldbook-id/fieldbook/internal/booking"
	"github.com/fieldbook-id/fieldbook/internal/domain"
	"golang.org/x/sync/errgroup"
)

// BookingConfig tunes package reconciliation and pricing defaults.
type BookingConfig struct {
	// ReconcileStagger spaces the schedule writes of one confirmation apart,
	// and doubles as the backoff between retries of a single write.
	ReconcileStagger time.Duration
	// ReconcileRetries is the number of additional attempts per schedule
	// write after the first one fails.
	ReconcileRetries int
	// DefaultSlotPrice is the last resort when neither the field rate table
	// nor the schedule record carries a price.
	DefaultSlotPrice int64
}

type PackageService struct {
	packages  domain.BookingPackageRepository
	sessions  domain.PackageSessionRepository
	schedules domain.FieldScheduleRepository
	fields    domain.FieldRepository
	refunds   RefundCoordinator
	cfg       BookingConfig
	now       func() time.Time
}

func NewPackageService(
	packages domain.BookingPackageRepository,
	sessions domain.PackageSessionRepository,
	schedules domain.FieldScheduleRepository,
	fields domain.FieldRepository,
	refunds RefundCoordinator,
	cfg BookingConfig,
) *PackageService {
	if cfg.ReconcileStagger <= 0 {
		cfg.ReconcileStagger = 50 * time.Millisecond
	}
	if cfg.ReconcileRetries < 0 {
		cfg.ReconcileRetries = 0
	}
	return &PackageService{
		packages:  packages,
		sessions:  sessions,
		schedules: schedules,
		fields:    fields,
		refunds:   refunds,
		cfg:       cfg,
		now:       time.Now,
	}
}

// WithClock overrides the service clock. Tests only.
func (s *PackageService) WithClock(now func() time.Time) *PackageService {
	s.now = now
	return s
}

// QuoteRequest is a recurring booking pattern as it arrives from the
// transport layer: weekday names, not time.Weekday values.
type QuoteRequest struct {
	FieldID      string            `json:"fieldId"`
	PackageName  string            `json:"packageName"`
	StartDate    time.Time         `json:"startDate"`
	EndDate      time.Time         `json:"endDate"`
	Weekdays     []string          `json:"weekdays"`
	WeekdaySlots map[string]string `json:"weekdaySlots"`
}

// Quote is the dry-run result of a pattern: the sessions that would be
// created, the pattern dates with no availability, and the totals.
type Quote struct {
	FieldID        string                     `json:"fieldId"`
	Sessions       []booking.CandidateSession `json:"sessions"`
	UncoveredDates []time.Time                `json:"uncoveredDates,omitempty"`
	TotalPrice     int64                      `json:"totalPrice"`
	PriceStats     booking.PriceStats         `json:"priceStats"`
}

// pattern normalizes the request's weekday names and returns the core
// pattern plus the canonical name forms used for persistence.
func (r QuoteRequest) pattern() (booking.Pattern, []string, map[string]string, error) {
	p := booking.Pattern{
		FieldID:       r.FieldID,
		StartDate:     domain.DateOnly(r.StartDate),
		EndDate:       domain.DateOnly(r.EndDate),
		SlotByWeekday: make(map[time.Weekday]string, len(r.Weekdays)),
	}
	names := make([]string, 0, len(r.Weekdays))
	slots := make(map[string]string, len(r.Weekdays))
	seen := make(map[time.Weekday]bool, len(r.Weekdays))
	for _, raw := range r.Weekdays {
		wd, err := domain.ParseWeekday(raw)
		if err != nil {
			return booking.Pattern{}, nil, nil, fmt.Errorf("%w: %q", domain.ErrInvalidWeekday, raw)
		}
		if seen[wd] {
			continue
		}
		seen[wd] = true
		p.Weekdays = append(p.Weekdays, wd)
		names = append(names, wd.String())

		slotID, ok := r.WeekdaySlots[raw]
		if !ok {
			// The slot map may already use canonical names.
			slotID = r.WeekdaySlots[wd.String()]
		}
		p.SlotByWeekday[wd] = slotID
		slots[wd.String()] = slotID
	}
	if err := p.Validate(); err != nil {
		return booking.Pattern{}, nil, nil, err
	}
	return p, names, slots, nil
}

// buildIndex loads the field and its availability for the pattern range and
// assembles the matching index plus the price resolver over it.
func (s *PackageService) buildIndex(ctx context.Context, p booking.Pattern) (*booking.AvailabilityIndex, *booking.PriceResolver, error) {
	field, err := s.fields.GetByID(ctx, p.FieldID)
	if err != nil {
		return nil, nil, err
	}
	recs, err := s.schedules.GetByFieldAndRange(ctx, p.FieldID, p.StartDate, p.EndDate)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load field availability: %w", err)
	}
	index := booking.BuildAvailabilityIndex(p.FieldID, recs)
	return index, booking.NewPriceResolver(field, index, s.cfg.DefaultSlotPrice), nil
}

// Quote generates the sessions a pattern would produce without persisting
// anything. Zero sessions is a valid quote.
func (s *PackageService) Quote(ctx context.Context, req QuoteRequest) (*Quote, error) {
	p, _, slots, err := req.pattern()
	if err != nil {
		return nil, err
	}
	index, prices, err := s.buildIndex(ctx, p)
	if err != nil {
		return nil, err
	}
	result := booking.GenerateSessions(p, index, prices)

	selection := make(map[time.Weekday]string, len(slots))
	for name, slotID := range slots {
		wd, _ := domain.ParseWeekday(name)
		selection[wd] = slotID
	}
	return &Quote{
		FieldID:        p.FieldID,
		Sessions:       result.Sessions,
		UncoveredDates: result.UncoveredDates,
		TotalPrice:     result.TotalPrice,
		PriceStats:     prices.Stats(selection),
	}, nil
}

// PackageDetail is a package with its sessions loaded.
type PackageDetail struct {
	Package  *domain.BookingPackage   `json:"package"`
	Sessions []*domain.PackageSession `json:"sessions"`
}

// CreatePackage materializes a pattern: it persists the package in Pending
// state together with one Booked session per covered date. Schedule records
// are not touched here; that happens at confirmation.
func (s *PackageService) CreatePackage(ctx context.Context, customerID string, req QuoteRequest) (*PackageDetail, error) {
	p, names, slots, err := req.pattern()
	if err != nil {
		return nil, err
	}
	index, prices, err := s.buildIndex(ctx, p)
	if err != nil {
		return nil, err
	}
	result := booking.GenerateSessions(p, index, prices)
	if len(result.Sessions) == 0 {
		return nil, domain.ErrNoSessionsGenerated
	}

	now := s.now().UTC()
	pkg := &domain.BookingPackage{
		FieldID:       p.FieldID,
		CustomerID:    customerID,
		PackageName:   req.PackageName,
		StartDate:     p.StartDate,
		EndDate:       p.EndDate,
		Weekdays:      names,
		WeekdaySlots:  slots,
		TotalPrice:    result.TotalPrice,
		BookingStatus: domain.BookingStatusPending,
		PaymentStatus: domain.PaymentStatusUnpaid,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.packages.Create(ctx, pkg); err != nil {
		return nil, fmt.Errorf("failed to create package: %w", err)
	}

	sessions := make([]*domain.PackageSession, 0, len(result.Sessions))
	for _, c := range result.Sessions {
		sessions = append(sessions, &domain.PackageSession{
			PackageID:       pkg.ID,
			Date:            c.Date,
			SlotID:          c.SlotID,
			ScheduleID:      c.ScheduleID,
			StartTime:       c.StartTime,
			EndTime:         c.EndTime,
			PricePerSession: c.Price,
			SessionStatus:   domain.SessionStatusBooked,
			CreatedAt:       now,
			UpdatedAt:       now,
		})
	}
	if err := s.sessions.CreateMany(ctx, sessions); err != nil {
		return nil, fmt.Errorf("package created but session persistence failed: %w", err)
	}
	return &PackageDetail{Package: pkg, Sessions: sessions}, nil
}

// ConfirmResult reports a confirmation outcome. Failures lists the sessions
// whose schedule write did not land after retries; the package transition
// is never rolled back because of them.
type ConfirmResult struct {
	Package  *domain.BookingPackage  `json:"package"`
	Failures []domain.SessionFailure `json:"failures,omitempty"`
}

// ConfirmPackage marks a Pending package Confirmed/Paid and reconciles the
// schedule store: every session's matched record is flipped to Booked, one
// goroutine per session, staggered and with bounded retries. Reconciliation
// runs on a detached context so caller abandonment cannot strand schedule
// records mid-batch.
func (s *PackageService) ConfirmPackage(ctx context.Context, packageID, customerID string) (*ConfirmResult, error) {
	pkg, err := s.packages.GetByID(ctx, packageID)
	if err != nil {
		return nil, err
	}
	if customerID != "" && pkg.CustomerID != customerID {
		return nil, domain.ErrForbidden
	}
	if pkg.BookingStatus != domain.BookingStatusPending {
		return nil, domain.ErrPackageNotPending
	}
	sessions, err := s.sessions.GetByPackage(ctx, packageID)
	if err != nil {
		return nil, fmt.Errorf("failed to load package sessions: %w", err)
	}

	detached := context.WithoutCancel(ctx)
	var (
		g        errgroup.Group
		mu       sync.Mutex
		failures []domain.SessionFailure
	)
	for i, sess := range sessions {
		if sess.SessionStatus != domain.SessionStatusBooked {
			continue
		}
		delay := time.Duration(i) * s.cfg.ReconcileStagger
		sess := sess
		g.Go(func() error {
			time.Sleep(delay)
			if sess.ScheduleID == "" {
				mu.Lock()
				failures = append(failures, domain.SessionFailure{
					SessionID: sess.ID,
					Reason:    "session has no matched schedule record",
				})
				mu.Unlock()
				return nil
			}
			if err := s.bookSchedule(detached, sess.ScheduleID); err != nil {
				mu.Lock()
				failures = append(failures, domain.SessionFailure{
					SessionID:  sess.ID,
					ScheduleID: sess.ScheduleID,
					Reason:     err.Error(),
				})
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	if err := s.packages.UpdateStatus(detached, packageID, domain.BookingStatusConfirmed, domain.PaymentStatusPaid); err != nil {
		return nil, fmt.Errorf("failed to confirm package: %w", err)
	}
	pkg.BookingStatus = domain.BookingStatusConfirmed
	pkg.PaymentStatus = domain.PaymentStatusPaid

	if len(failures) > 0 {
		log.Printf("[Booking] package %s confirmed with %d/%d schedule writes failed", packageID, len(failures), len(sessions))
	}
	return &ConfirmResult{Package: pkg, Failures: failures}, nil
}

func (s *PackageService) bookSchedule(ctx context.Context, scheduleID string) error {
	var err error
	for attempt := 0; attempt <= s.cfg.ReconcileRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(s.cfg.ReconcileStagger)
		}
		if err = s.schedules.UpdateStatus(ctx, scheduleID, domain.ScheduleStatusBooked); err == nil {
			return nil
		}
	}
	return err
}

// CompletePackage closes a Confirmed package whose last non-cancelled
// session has finished.
func (s *PackageService) CompletePackage(ctx context.Context, packageID string) (*domain.BookingPackage, error) {
	pkg, err := s.packages.GetByID(ctx, packageID)
	if err != nil {
		return nil, err
	}
	if pkg.BookingStatus == domain.BookingStatusCancelled {
		return nil, domain.ErrPackageCancelled
	}
	if pkg.BookingStatus != domain.BookingStatusConfirmed {
		return nil, domain.ErrPackageNotConfirmed
	}
	sessions, err := s.sessions.GetByPackage(ctx, packageID)
	if err != nil {
		return nil, fmt.Errorf("failed to load package sessions: %w", err)
	}
	if last := domain.LastSessionEnd(sessions); !last.IsZero() && s.now().Before(last) {
		return nil, domain.ErrPackageNotElapsed
	}
	if err := s.packages.UpdateStatus(ctx, packageID, domain.BookingStatusCompleted, pkg.PaymentStatus); err != nil {
		return nil, fmt.Errorf("failed to complete package: %w", err)
	}
	pkg.BookingStatus = domain.BookingStatusCompleted
	return pkg, nil
}

// SweepCompletable completes every Confirmed package whose sessions have
// all finished. Run periodically; returns the number completed.
func (s *PackageService) SweepCompletable(ctx context.Context) (int, error) {
	confirmed, err := s.packages.ListByStatus(ctx, domain.BookingStatusConfirmed)
	if err != nil {
		return 0, fmt.Errorf("failed to list confirmed packages: %w", err)
	}
	completed := 0
	for _, pkg := range confirmed {
		if _, err := s.CompletePackage(ctx, pkg.ID); err != nil {
			if err == domain.ErrPackageNotElapsed {
				continue
			}
			log.Printf("[Booking] sweep: failed to complete package %s: %v", pkg.ID, err)
			continue
		}
		completed++
	}
	return completed, nil
}

// CancelSessionResult reports a single-session cancellation.
type CancelSessionResult struct {
	Session      *domain.PackageSession `json:"session"`
	NewTotal     int64                  `json:"newTotal"`
	RefundAmount int64                  `json:"refundAmount"`
	RefundQRURL  string                 `json:"refundQrUrl,omitempty"`
}

// CancelSession cancels one future session of a package the customer owns,
// recomputes the package total and, when the package is paid, issues a
// refund for that session's price. The matched schedule record is released
// best effort; a failed release never undoes the cancellation.
func (s *PackageService) CancelSession(ctx context.Context, sessionID, customerID string) (*CancelSessionResult, error) {
	sess, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	pkg, err := s.packages.GetByID(ctx, sess.PackageID)
	if err != nil {
		return nil, err
	}
	if customerID != "" && pkg.CustomerID != customerID {
		return nil, domain.ErrForbidden
	}
	if pkg.BookingStatus == domain.BookingStatusCancelled {
		return nil, domain.ErrPackageCancelled
	}
	if pkg.Terminal() {
		return nil, domain.ErrPackageTerminal
	}
	if sess.SessionStatus == domain.SessionStatusCancelled {
		return nil, domain.ErrSessionAlreadyCancelled
	}
	if sess.Started(s.now()) {
		return nil, domain.ErrSessionElapsed
	}

	if err := s.sessions.UpdateStatus(ctx, sessionID, domain.SessionStatusCancelled); err != nil {
		return nil, fmt.Errorf("failed to cancel session: %w", err)
	}
	sess.SessionStatus = domain.SessionStatusCancelled

	all, err := s.sessions.GetByPackage(ctx, pkg.ID)
	if err != nil {
		return nil, fmt.Errorf("session cancelled but total recompute failed: %w", err)
	}
	newTotal := domain.BookedTotal(all)
	if err := s.packages.UpdateTotalPrice(ctx, pkg.ID, newTotal); err != nil {
		return nil, fmt.Errorf("session cancelled but total update failed: %w", err)
	}

	result := &CancelSessionResult{Session: sess, NewTotal: newTotal}
	if pkg.PaymentStatus == domain.PaymentStatusPaid {
		instr, err := s.refunds.IssueRefund(ctx, pkg, sess.PricePerSession)
		if err != nil {
			return nil, fmt.Errorf("session cancelled but refund issuance failed: %w", err)
		}
		if instr != nil {
			result.RefundAmount = instr.Amount
			result.RefundQRURL = instr.QRURL
			if err := s.packages.SetRefundQR(ctx, pkg.ID, instr.QRURL, instr.ExpiresAt); err != nil {
				log.Printf("[Booking] failed to store refund QR for package %s: %v", pkg.ID, err)
			}
		}
	}

	if sess.ScheduleID != "" {
		if err := s.refunds.ReleaseSchedule(ctx, sess.ScheduleID); err != nil {
			log.Printf("[Booking] %v (schedule %s, session %s)", err, sess.ScheduleID, sessionID)
		}
	}
	return result, nil
}

// CancelPackageResult reports a whole-package cancellation.
type CancelPackageResult struct {
	Package           *domain.BookingPackage `json:"package"`
	CancelledSessions int                    `json:"cancelledSessions"`
	RefundAmount      int64                  `json:"refundAmount"`
	RefundQRURL       string                 `json:"refundQrUrl,omitempty"`
}

// CancelPackage cancels a Pending or Confirmed package: every future Booked
// session is cancelled and its schedule record released, and when the
// package is paid a single aggregate refund covers the cancelled sessions.
// Sessions that already started stay as they are.
func (s *PackageService) CancelPackage(ctx context.Context, packageID, customerID string) (*CancelPackageResult, error) {
	pkg, err := s.packages.GetByID(ctx, packageID)
	if err != nil {
		return nil, err
	}
	if customerID != "" && pkg.CustomerID != customerID {
		return nil, domain.ErrForbidden
	}
	if pkg.BookingStatus == domain.BookingStatusCancelled {
		return nil, domain.ErrPackageCancelled
	}
	if pkg.Terminal() {
		return nil, domain.ErrPackageTerminal
	}

	sessions, err := s.sessions.GetByPackage(ctx, packageID)
	if err != nil {
		return nil, fmt.Errorf("failed to load package sessions: %w", err)
	}

	now := s.now()
	var refundTotal int64
	cancelled := 0
	for _, sess := range sessions {
		if sess.SessionStatus != domain.SessionStatusBooked || sess.Started(now) {
			continue
		}
		if err := s.sessions.UpdateStatus(ctx, sess.ID, domain.SessionStatusCancelled); err != nil {
			return nil, fmt.Errorf("failed to cancel session %s: %w", sess.ID, err)
		}
		sess.SessionStatus = domain.SessionStatusCancelled
		cancelled++
		if pkg.PaymentStatus == domain.PaymentStatusPaid {
			refundTotal += sess.PricePerSession
		}
		if sess.ScheduleID != "" {
			if err := s.refunds.ReleaseSchedule(ctx, sess.ScheduleID); err != nil {
				log.Printf("[Booking] %v (schedule %s, session %s)", err, sess.ScheduleID, sess.ID)
			}
		}
	}

	if err := s.packages.UpdateTotalPrice(ctx, packageID, domain.BookedTotal(sessions)); err != nil {
		return nil, fmt.Errorf("sessions cancelled but total update failed: %w", err)
	}

	paymentStatus := pkg.PaymentStatus
	if refundTotal > 0 {
		paymentStatus = domain.PaymentStatusRefunded
	}
	if err := s.packages.UpdateStatus(ctx, packageID, domain.BookingStatusCancelled, paymentStatus); err != nil {
		return nil, fmt.Errorf("failed to cancel package: %w", err)
	}
	pkg.BookingStatus = domain.BookingStatusCancelled
	pkg.PaymentStatus = paymentStatus

	result := &CancelPackageResult{Package: pkg, CancelledSessions: cancelled, RefundAmount: refundTotal}
	if refundTotal > 0 {
		instr, err := s.refunds.IssueRefund(ctx, pkg, refundTotal)
		if err != nil {
			return nil, fmt.Errorf("package cancelled but refund issuance failed: %w", err)
		}
		if instr != nil {
			result.RefundQRURL = instr.QRURL
			if err := s.packages.SetRefundQR(ctx, packageID, instr.QRURL, instr.ExpiresAt); err != nil {
				log.Printf("[Booking] failed to store refund QR for package %s: %v", packageID, err)
			}
		}
	}
	return result, nil
}

// GetPackage loads a package with its sessions. A non-empty customerID
// enforces ownership; admins pass empty.
func (s *PackageService) GetPackage(ctx context.Context, packageID, customerID string) (*PackageDetail, error) {
	pkg, err := s.packages.GetByID(ctx, packageID)
	if err != nil {
		return nil, err
	}
	if customerID != "" && pkg.CustomerID != customerID {
		return nil, domain.ErrForbidden
	}
	sessions, err := s.sessions.GetByPackage(ctx, packageID)
	if err != nil {
		return nil, fmt.Errorf("failed to load package sessions: %w", err)
	}
	return &PackageDetail{Package: pkg, Sessions: sessions}, nil
}

// ListPackages returns the customer's packages, newest first per the
// repository's sort.
func (s *PackageService) ListPackages(ctx context.Context, customerID string) ([]*domain.BookingPackage, error) {
	return s.packages.GetByCustomer(ctx, customerID)
}
