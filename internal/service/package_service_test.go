package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/fieldbook-id/fieldbook/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---- in-memory fakes ----

type fakePackageRepo struct {
	mu       sync.Mutex
	packages map[string]*domain.BookingPackage
	seq      int
}

func newFakePackageRepo() *fakePackageRepo {
	return &fakePackageRepo{packages: make(map[string]*domain.BookingPackage)}
}

func (r *fakePackageRepo) Create(ctx context.Context, pkg *domain.BookingPackage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	pkg.ID = fmt.Sprintf("pkg-%d", r.seq)
	r.packages[pkg.ID] = pkg
	return nil
}

func (r *fakePackageRepo) GetByID(ctx context.Context, id string) (*domain.BookingPackage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	pkg, ok := r.packages[id]
	if !ok {
		return nil, domain.ErrPackageNotFound
	}
	cp := *pkg
	return &cp, nil
}

func (r *fakePackageRepo) GetByCustomer(ctx context.Context, customerID string) ([]*domain.BookingPackage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.BookingPackage
	for _, pkg := range r.packages {
		if pkg.CustomerID == customerID {
			cp := *pkg
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakePackageRepo) ListByStatus(ctx context.Context, bookingStatus string) ([]*domain.BookingPackage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.BookingPackage
	for _, pkg := range r.packages {
		if pkg.BookingStatus == bookingStatus {
			cp := *pkg
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakePackageRepo) UpdateStatus(ctx context.Context, id, bookingStatus, paymentStatus string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	pkg, ok := r.packages[id]
	if !ok {
		return domain.ErrPackageNotFound
	}
	pkg.BookingStatus = bookingStatus
	pkg.PaymentStatus = paymentStatus
	return nil
}

func (r *fakePackageRepo) UpdateTotalPrice(ctx context.Context, id string, total int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	pkg, ok := r.packages[id]
	if !ok {
		return domain.ErrPackageNotFound
	}
	pkg.TotalPrice = total
	return nil
}

func (r *fakePackageRepo) SetRefundQR(ctx context.Context, id, qrURL string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	pkg, ok := r.packages[id]
	if !ok {
		return domain.ErrPackageNotFound
	}
	pkg.RefundQRURL = qrURL
	pkg.RefundQRExpAt = expiresAt
	return nil
}

func (r *fakePackageRepo) put(pkg *domain.BookingPackage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.packages[pkg.ID] = pkg
}

type fakeSessionRepo struct {
	mu       sync.Mutex
	sessions map[string]*domain.PackageSession
	seq      int
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: make(map[string]*domain.PackageSession)}
}

func (r *fakeSessionRepo) CreateMany(ctx context.Context, sessions []*domain.PackageSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range sessions {
		r.seq++
		s.ID = fmt.Sprintf("sess-%d", r.seq)
		r.sessions[s.ID] = s
	}
	return nil
}

func (r *fakeSessionRepo) GetByID(ctx context.Context, id string) (*domain.PackageSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *fakeSessionRepo) GetByPackage(ctx context.Context, packageID string) ([]*domain.PackageSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.PackageSession
	for i := 1; i <= r.seq; i++ {
		s, ok := r.sessions[fmt.Sprintf("sess-%d", i)]
		if ok && s.PackageID == packageID {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeSessionRepo) UpdateStatus(ctx context.Context, id, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return domain.ErrSessionNotFound
	}
	s.SessionStatus = status
	return nil
}

func (r *fakeSessionRepo) put(s *domain.PackageSession) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	if s.ID == "" {
		s.ID = fmt.Sprintf("sess-%d", r.seq)
	}
	r.sessions[s.ID] = s
}

type fakeScheduleRepo struct {
	mu       sync.Mutex
	records  map[string]*domain.FieldSchedule
	failures map[string]int // remaining forced failures per schedule id
}

func newFakeScheduleRepo() *fakeScheduleRepo {
	return &fakeScheduleRepo{
		records:  make(map[string]*domain.FieldSchedule),
		failures: make(map[string]int),
	}
}

func (r *fakeScheduleRepo) put(rec *domain.FieldSchedule) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[rec.ID] = rec
}

func (r *fakeScheduleRepo) failNext(id string, times int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures[id] = times
}

func (r *fakeScheduleRepo) status(id string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.records[id].Status
}

func (r *fakeScheduleRepo) CreateMany(ctx context.Context, records []*domain.FieldSchedule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range records {
		r.records[rec.ID] = rec
	}
	return nil
}

func (r *fakeScheduleRepo) GetByID(ctx context.Context, id string) (*domain.FieldSchedule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok {
		return nil, domain.ErrScheduleNotFound
	}
	cp := *rec
	return &cp, nil
}

func (r *fakeScheduleRepo) GetByFieldAndRange(ctx context.Context, fieldID string, from, to time.Time) ([]*domain.FieldSchedule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.FieldSchedule
	for _, rec := range r.records {
		if rec.FieldID != fieldID {
			continue
		}
		if rec.Date.Before(from) || rec.Date.After(to) {
			continue
		}
		cp := *rec
		out = append(out, &cp)
	}
	return out, nil
}

func (r *fakeScheduleRepo) UpdateStatus(ctx context.Context, id, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if remaining := r.failures[id]; remaining > 0 {
		r.failures[id] = remaining - 1
		return fmt.Errorf("simulated write failure for %s", id)
	}
	rec, ok := r.records[id]
	if !ok {
		return domain.ErrScheduleNotFound
	}
	rec.Status = status
	return nil
}

type fakeFieldRepo struct {
	fields map[string]*domain.Field
}

func newFakeFieldRepo(fields ...*domain.Field) *fakeFieldRepo {
	r := &fakeFieldRepo{fields: make(map[string]*domain.Field)}
	for _, f := range fields {
		r.fields[f.ID] = f
	}
	return r
}

func (r *fakeFieldRepo) Create(ctx context.Context, field *domain.Field) error {
	r.fields[field.ID] = field
	return nil
}

func (r *fakeFieldRepo) GetByID(ctx context.Context, id string) (*domain.Field, error) {
	f, ok := r.fields[id]
	if !ok {
		return nil, domain.ErrFieldNotFound
	}
	return f, nil
}

func (r *fakeFieldRepo) GetActive(ctx context.Context) ([]*domain.Field, error) {
	var out []*domain.Field
	for _, f := range r.fields {
		if f.IsActive {
			out = append(out, f)
		}
	}
	return out, nil
}

func (r *fakeFieldRepo) SetSlotRates(ctx context.Context, id string, rates []domain.SlotRate) error {
	f, ok := r.fields[id]
	if !ok {
		return domain.ErrFieldNotFound
	}
	f.SlotRates = rates
	return nil
}

func (r *fakeFieldRepo) SetPhotoURL(ctx context.Context, id, url string) error {
	f, ok := r.fields[id]
	if !ok {
		return domain.ErrFieldNotFound
	}
	f.PhotoURL = url
	return nil
}

// fakeRefunds records refund issuance and delegates schedule releases to the
// schedule repo so tests can observe both.
type fakeRefunds struct {
	mu        sync.Mutex
	schedules domain.FieldScheduleRepository
	issued    []int64
	released  []string
}

func (f *fakeRefunds) IssueRefund(ctx context.Context, pkg *domain.BookingPackage, amount int64) (*RefundInstruction, error) {
	if amount <= 0 {
		return nil, nil
	}
	f.mu.Lock()
	f.issued = append(f.issued, amount)
	f.mu.Unlock()
	return &RefundInstruction{
		Amount:      amount,
		ReferenceID: "ref-test",
		QRURL:       fmt.Sprintf("https://qr.example/%d", amount),
		ExpiresAt:   time.Now().Add(24 * time.Hour),
	}, nil
}

func (f *fakeRefunds) ReleaseSchedule(ctx context.Context, scheduleID string) error {
	f.mu.Lock()
	f.released = append(f.released, scheduleID)
	f.mu.Unlock()
	if f.schedules != nil {
		return f.schedules.UpdateStatus(ctx, scheduleID, domain.ScheduleStatusAvailable)
	}
	return nil
}

// ---- fixtures ----

const (
	testFieldID    = "field-1"
	testCustomerID = "cust-1"
)

func testDate(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func at(date time.Time, hour, min int) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), hour, min, 0, 0, time.UTC)
}

func testField() *domain.Field {
	return &domain.Field{
		ID:       testFieldID,
		Name:     "Test Field",
		IsActive: true,
		SlotRates: []domain.SlotRate{
			{SlotID: "slot-a", StartTime: "09:00", EndTime: "10:30", Price: 200000},
		},
	}
}

func availableSchedule(id string, date time.Time) *domain.FieldSchedule {
	return &domain.FieldSchedule{
		ID:        id,
		FieldID:   testFieldID,
		Date:      date,
		SlotID:    "slot-a",
		StartTime: at(date, 9, 0),
		EndTime:   at(date, 10, 30),
		Status:    domain.ScheduleStatusAvailable,
		Price:     200000,
	}
}

type testEnv struct {
	packages  *fakePackageRepo
	sessions  *fakeSessionRepo
	schedules *fakeScheduleRepo
	fields    *fakeFieldRepo
	refunds   *fakeRefunds
	svc       *PackageService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		packages:  newFakePackageRepo(),
		sessions:  newFakeSessionRepo(),
		schedules: newFakeScheduleRepo(),
		fields:    newFakeFieldRepo(testField()),
	}
	env.refunds = &fakeRefunds{schedules: env.schedules}
	env.svc = NewPackageService(
		env.packages, env.sessions, env.schedules, env.fields, env.refunds,
		BookingConfig{ReconcileStagger: time.Millisecond, ReconcileRetries: 1},
	)
	return env
}

// mondayRequest covers 2025-06-02 and 2025-06-09, both Mondays.
func mondayRequest() QuoteRequest {
	return QuoteRequest{
		FieldID:      testFieldID,
		PackageName:  "Monday League",
		StartDate:    testDate(2025, 6, 2),
		EndDate:      testDate(2025, 6, 9),
		Weekdays:     []string{"monday"},
		WeekdaySlots: map[string]string{"monday": "slot-a"},
	}
}

func (env *testEnv) seedMondaySchedules() {
	env.schedules.put(availableSchedule("sch-1", testDate(2025, 6, 2)))
	env.schedules.put(availableSchedule("sch-2", testDate(2025, 6, 9)))
}

// ---- tests ----

func TestCreatePackage(t *testing.T) {
	env := newTestEnv(t)
	env.seedMondaySchedules()

	detail, err := env.svc.CreatePackage(context.Background(), testCustomerID, mondayRequest())
	require.NoError(t, err)

	pkg := detail.Package
	assert.NotEmpty(t, pkg.ID)
	assert.Equal(t, domain.BookingStatusPending, pkg.BookingStatus)
	assert.Equal(t, domain.PaymentStatusUnpaid, pkg.PaymentStatus)
	assert.Equal(t, int64(400000), pkg.TotalPrice)
	assert.Equal(t, []string{"Monday"}, pkg.Weekdays)
	assert.Equal(t, "slot-a", pkg.WeekdaySlots["Monday"])

	require.Len(t, detail.Sessions, 2)
	for _, sess := range detail.Sessions {
		assert.Equal(t, domain.SessionStatusBooked, sess.SessionStatus)
		assert.Equal(t, int64(200000), sess.PricePerSession)
		assert.NotEmpty(t, sess.ScheduleID)
	}
	// Creation must not touch the schedule store.
	assert.Equal(t, domain.ScheduleStatusAvailable, env.schedules.status("sch-1"))
	assert.Equal(t, domain.ScheduleStatusAvailable, env.schedules.status("sch-2"))
}

func TestCreatePackageNoCoverage(t *testing.T) {
	env := newTestEnv(t)
	// No schedule records at all.

	_, err := env.svc.CreatePackage(context.Background(), testCustomerID, mondayRequest())
	assert.ErrorIs(t, err, domain.ErrNoSessionsGenerated)
}

func TestCreatePackageInvalidWeekday(t *testing.T) {
	env := newTestEnv(t)
	req := mondayRequest()
	req.Weekdays = []string{"funday"}

	_, err := env.svc.CreatePackage(context.Background(), testCustomerID, req)
	assert.ErrorIs(t, err, domain.ErrInvalidWeekday)
}

func TestQuoteDoesNotPersist(t *testing.T) {
	env := newTestEnv(t)
	env.seedMondaySchedules()

	quote, err := env.svc.Quote(context.Background(), mondayRequest())
	require.NoError(t, err)
	assert.Len(t, quote.Sessions, 2)
	assert.Equal(t, int64(400000), quote.TotalPrice)
	assert.Empty(t, quote.UncoveredDates)

	assert.Empty(t, env.packages.packages)
	assert.Empty(t, env.sessions.sessions)
}

func TestQuoteReportsUncoveredDates(t *testing.T) {
	env := newTestEnv(t)
	env.schedules.put(availableSchedule("sch-1", testDate(2025, 6, 2)))
	// 2025-06-09 has no record.

	quote, err := env.svc.Quote(context.Background(), mondayRequest())
	require.NoError(t, err)
	assert.Len(t, quote.Sessions, 1)
	require.Len(t, quote.UncoveredDates, 1)
	assert.Equal(t, testDate(2025, 6, 9), quote.UncoveredDates[0])
}

func TestConfirmPackage(t *testing.T) {
	env := newTestEnv(t)
	env.seedMondaySchedules()
	detail, err := env.svc.CreatePackage(context.Background(), testCustomerID, mondayRequest())
	require.NoError(t, err)

	result, err := env.svc.ConfirmPackage(context.Background(), detail.Package.ID, testCustomerID)
	require.NoError(t, err)

	assert.Empty(t, result.Failures)
	assert.Equal(t, domain.BookingStatusConfirmed, result.Package.BookingStatus)
	assert.Equal(t, domain.PaymentStatusPaid, result.Package.PaymentStatus)
	assert.Equal(t, domain.ScheduleStatusBooked, env.schedules.status("sch-1"))
	assert.Equal(t, domain.ScheduleStatusBooked, env.schedules.status("sch-2"))
}

func TestConfirmPackageRetriesTransientFailure(t *testing.T) {
	env := newTestEnv(t)
	env.seedMondaySchedules()
	detail, err := env.svc.CreatePackage(context.Background(), testCustomerID, mondayRequest())
	require.NoError(t, err)

	// One failure, one retry configured: the write lands on attempt two.
	env.schedules.failNext("sch-1", 1)

	result, err := env.svc.ConfirmPackage(context.Background(), detail.Package.ID, testCustomerID)
	require.NoError(t, err)
	assert.Empty(t, result.Failures)
	assert.Equal(t, domain.ScheduleStatusBooked, env.schedules.status("sch-1"))
}

func TestConfirmPackagePartialFailure(t *testing.T) {
	env := newTestEnv(t)
	env.seedMondaySchedules()
	detail, err := env.svc.CreatePackage(context.Background(), testCustomerID, mondayRequest())
	require.NoError(t, err)

	// Exhaust the first attempt plus every retry.
	env.schedules.failNext("sch-1", 10)

	result, err := env.svc.ConfirmPackage(context.Background(), detail.Package.ID, testCustomerID)
	require.NoError(t, err)

	// The package is confirmed regardless; the failure is reported, not
	// rolled back.
	assert.Equal(t, domain.BookingStatusConfirmed, result.Package.BookingStatus)
	assert.Equal(t, domain.PaymentStatusPaid, result.Package.PaymentStatus)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, "sch-1", result.Failures[0].ScheduleID)
	assert.NotEmpty(t, result.Failures[0].Reason)

	assert.Equal(t, domain.ScheduleStatusAvailable, env.schedules.status("sch-1"))
	assert.Equal(t, domain.ScheduleStatusBooked, env.schedules.status("sch-2"))

	stored, err := env.packages.GetByID(context.Background(), detail.Package.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusConfirmed, stored.BookingStatus)
}

func TestConfirmPackageStateChecks(t *testing.T) {
	env := newTestEnv(t)
	env.seedMondaySchedules()
	detail, err := env.svc.CreatePackage(context.Background(), testCustomerID, mondayRequest())
	require.NoError(t, err)

	_, err = env.svc.ConfirmPackage(context.Background(), detail.Package.ID, "someone-else")
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = env.svc.ConfirmPackage(context.Background(), detail.Package.ID, testCustomerID)
	require.NoError(t, err)

	// A second confirm hits the state machine.
	_, err = env.svc.ConfirmPackage(context.Background(), detail.Package.ID, testCustomerID)
	assert.ErrorIs(t, err, domain.ErrPackageNotPending)

	_, err = env.svc.ConfirmPackage(context.Background(), "missing", testCustomerID)
	assert.ErrorIs(t, err, domain.ErrPackageNotFound)
}

func confirmedPackage(t *testing.T, env *testEnv) *PackageDetail {
	t.Helper()
	detail, err := env.svc.CreatePackage(context.Background(), testCustomerID, mondayRequest())
	require.NoError(t, err)
	_, err = env.svc.ConfirmPackage(context.Background(), detail.Package.ID, testCustomerID)
	require.NoError(t, err)
	out, err := env.svc.GetPackage(context.Background(), detail.Package.ID, testCustomerID)
	require.NoError(t, err)
	return out
}

func TestCancelSessionWithRefund(t *testing.T) {
	env := newTestEnv(t)
	env.seedMondaySchedules()
	env.svc.WithClock(func() time.Time { return testDate(2025, 6, 1) })
	detail := confirmedPackage(t, env)

	target := detail.Sessions[0]
	result, err := env.svc.CancelSession(context.Background(), target.ID, testCustomerID)
	require.NoError(t, err)

	assert.Equal(t, domain.SessionStatusCancelled, result.Session.SessionStatus)
	assert.Equal(t, int64(200000), result.NewTotal)
	assert.Equal(t, int64(200000), result.RefundAmount)
	assert.NotEmpty(t, result.RefundQRURL)

	assert.Equal(t, []int64{200000}, env.refunds.issued)
	assert.Equal(t, []string{target.ScheduleID}, env.refunds.released)
	assert.Equal(t, domain.ScheduleStatusAvailable, env.schedules.status(target.ScheduleID))

	stored, err := env.packages.GetByID(context.Background(), detail.Package.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(200000), stored.TotalPrice)
	assert.Equal(t, result.RefundQRURL, stored.RefundQRURL)
}

func TestCancelSessionUnpaidSkipsRefund(t *testing.T) {
	env := newTestEnv(t)
	env.seedMondaySchedules()
	env.svc.WithClock(func() time.Time { return testDate(2025, 6, 1) })
	detail, err := env.svc.CreatePackage(context.Background(), testCustomerID, mondayRequest())
	require.NoError(t, err)

	result, err := env.svc.CancelSession(context.Background(), detail.Sessions[0].ID, testCustomerID)
	require.NoError(t, err)
	assert.Zero(t, result.RefundAmount)
	assert.Empty(t, result.RefundQRURL)
	assert.Empty(t, env.refunds.issued)
}

func TestCancelSessionGuards(t *testing.T) {
	env := newTestEnv(t)
	env.seedMondaySchedules()
	env.svc.WithClock(func() time.Time { return testDate(2025, 6, 1) })
	detail := confirmedPackage(t, env)
	target := detail.Sessions[0]

	_, err := env.svc.CancelSession(context.Background(), target.ID, "someone-else")
	assert.ErrorIs(t, err, domain.ErrForbidden)

	// Started session cannot be cancelled.
	env.svc.WithClock(func() time.Time { return at(testDate(2025, 6, 2), 9, 15) })
	_, err = env.svc.CancelSession(context.Background(), target.ID, testCustomerID)
	assert.ErrorIs(t, err, domain.ErrSessionElapsed)

	env.svc.WithClock(func() time.Time { return testDate(2025, 6, 1) })
	_, err = env.svc.CancelSession(context.Background(), target.ID, testCustomerID)
	require.NoError(t, err)

	_, err = env.svc.CancelSession(context.Background(), target.ID, testCustomerID)
	assert.ErrorIs(t, err, domain.ErrSessionAlreadyCancelled)
}

func TestCancelPackageAggregatesRefund(t *testing.T) {
	env := newTestEnv(t)
	env.seedMondaySchedules()
	// Between the two sessions: the first has started, the second has not.
	env.svc.WithClock(func() time.Time { return at(testDate(2025, 6, 2), 11, 0) })
	detail := confirmedPackage(t, env)

	result, err := env.svc.CancelPackage(context.Background(), detail.Package.ID, testCustomerID)
	require.NoError(t, err)

	assert.Equal(t, 1, result.CancelledSessions)
	assert.Equal(t, int64(200000), result.RefundAmount)
	assert.Equal(t, domain.BookingStatusCancelled, result.Package.BookingStatus)
	assert.Equal(t, domain.PaymentStatusRefunded, result.Package.PaymentStatus)
	assert.Equal(t, []int64{200000}, env.refunds.issued)

	// The started session keeps its schedule record; the future one is freed.
	assert.Equal(t, domain.ScheduleStatusBooked, env.schedules.status("sch-1"))
	assert.Equal(t, domain.ScheduleStatusAvailable, env.schedules.status("sch-2"))

	// Cancelling twice is a conflict.
	_, err = env.svc.CancelPackage(context.Background(), detail.Package.ID, testCustomerID)
	assert.ErrorIs(t, err, domain.ErrPackageCancelled)
}

func TestCancelPendingPackageKeepsUnpaid(t *testing.T) {
	env := newTestEnv(t)
	env.seedMondaySchedules()
	env.svc.WithClock(func() time.Time { return testDate(2025, 6, 1) })
	detail, err := env.svc.CreatePackage(context.Background(), testCustomerID, mondayRequest())
	require.NoError(t, err)

	result, err := env.svc.CancelPackage(context.Background(), detail.Package.ID, testCustomerID)
	require.NoError(t, err)
	assert.Equal(t, 2, result.CancelledSessions)
	assert.Zero(t, result.RefundAmount)
	assert.Equal(t, domain.PaymentStatusUnpaid, result.Package.PaymentStatus)
	assert.Empty(t, env.refunds.issued)
}

func TestCompletePackage(t *testing.T) {
	env := newTestEnv(t)
	env.seedMondaySchedules()
	env.svc.WithClock(func() time.Time { return testDate(2025, 6, 1) })
	detail := confirmedPackage(t, env)

	// Last session ends 2025-06-09 10:30.
	_, err := env.svc.CompletePackage(context.Background(), detail.Package.ID)
	assert.ErrorIs(t, err, domain.ErrPackageNotElapsed)

	env.svc.WithClock(func() time.Time { return at(testDate(2025, 6, 9), 11, 0) })
	pkg, err := env.svc.CompletePackage(context.Background(), detail.Package.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusCompleted, pkg.BookingStatus)
	assert.Equal(t, domain.PaymentStatusPaid, pkg.PaymentStatus)

	_, err = env.svc.CompletePackage(context.Background(), detail.Package.ID)
	assert.ErrorIs(t, err, domain.ErrPackageNotConfirmed)
}

func TestCompletePackageIgnoresCancelledSessions(t *testing.T) {
	env := newTestEnv(t)
	env.seedMondaySchedules()
	env.svc.WithClock(func() time.Time { return testDate(2025, 6, 1) })
	detail := confirmedPackage(t, env)

	// Cancel the later session; the package is completable once the first
	// one has finished.
	var later *domain.PackageSession
	for _, sess := range detail.Sessions {
		if sess.Date.Equal(testDate(2025, 6, 9)) {
			later = sess
		}
	}
	require.NotNil(t, later)
	_, err := env.svc.CancelSession(context.Background(), later.ID, testCustomerID)
	require.NoError(t, err)

	env.svc.WithClock(func() time.Time { return at(testDate(2025, 6, 2), 11, 0) })
	pkg, err := env.svc.CompletePackage(context.Background(), detail.Package.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusCompleted, pkg.BookingStatus)
}

func TestCompletePendingPackageRejected(t *testing.T) {
	env := newTestEnv(t)
	env.seedMondaySchedules()
	detail, err := env.svc.CreatePackage(context.Background(), testCustomerID, mondayRequest())
	require.NoError(t, err)

	_, err = env.svc.CompletePackage(context.Background(), detail.Package.ID)
	assert.ErrorIs(t, err, domain.ErrPackageNotConfirmed)
}

func TestSweepCompletable(t *testing.T) {
	env := newTestEnv(t)
	env.seedMondaySchedules()
	env.svc.WithClock(func() time.Time { return testDate(2025, 6, 1) })
	elapsed := confirmedPackage(t, env)

	// A second confirmed package whose sessions run later.
	env.schedules.put(availableSchedule("sch-3", testDate(2025, 6, 16)))
	req := mondayRequest()
	req.StartDate = testDate(2025, 6, 16)
	req.EndDate = testDate(2025, 6, 16)
	pending, err := env.svc.CreatePackage(context.Background(), testCustomerID, req)
	require.NoError(t, err)
	_, err = env.svc.ConfirmPackage(context.Background(), pending.Package.ID, testCustomerID)
	require.NoError(t, err)

	env.svc.WithClock(func() time.Time { return at(testDate(2025, 6, 9), 11, 0) })
	completed, err := env.svc.SweepCompletable(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, completed)

	stored, err := env.packages.GetByID(context.Background(), elapsed.Package.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusCompleted, stored.BookingStatus)

	still, err := env.packages.GetByID(context.Background(), pending.Package.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusConfirmed, still.BookingStatus)
}

func TestGetPackageOwnership(t *testing.T) {
	env := newTestEnv(t)
	env.seedMondaySchedules()
	detail, err := env.svc.CreatePackage(context.Background(), testCustomerID, mondayRequest())
	require.NoError(t, err)

	_, err = env.svc.GetPackage(context.Background(), detail.Package.ID, "someone-else")
	assert.ErrorIs(t, err, domain.ErrForbidden)

	// Admins pass an empty customer id and bypass ownership.
	got, err := env.svc.GetPackage(context.Background(), detail.Package.ID, "")
	require.NoError(t, err)
	assert.Len(t, got.Sessions, 2)
}
