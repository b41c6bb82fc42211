package service

import (
	"context"
	"sync"
	"testing"
	"time"

	bookingerrors "courtside/internal/booking/errors"
	"courtside/pkg/clock"
	"courtside/pkg/config"
	mongotx "courtside/pkg/db/mongo"
	apperrors "courtside/pkg/errors"
	"courtside/pkg/logger"
	"courtside/pkg/model"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	testCourtID  = "65f1a2b3c4d5e6f7a8b9c0d1"
	testDate     = "2025-06-12" // a Thursday
	testSaturday = "2025-06-14"
)

// fakeLeaseRepo reproduces the conditional-upsert semantics of the
// claims collection in memory: a slot can be overwritten only by its
// current holder or after its expiry has passed.
type fakeLeaseRepo struct {
	mu     sync.Mutex
	claims map[string]model.SlotClaim
}

func newFakeLeaseRepo() *fakeLeaseRepo {
	return &fakeLeaseRepo{claims: make(map[string]model.SlotClaim)}
}

func (f *fakeLeaseRepo) AcquireSlot(ctx context.Context, claim *model.SlotClaim, now time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if existing, ok := f.claims[claim.ID]; ok {
		if existing.HolderID != claim.HolderID && existing.ExpiresAt.After(now) {
			return bookingerrors.ErrClaimConflict
		}
	}
	stored := *claim
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = now
	}
	f.claims[claim.ID] = stored
	return nil
}

func (f *fakeLeaseRepo) DeleteClaim(ctx context.Context, claimID, leaseID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if existing, ok := f.claims[claimID]; ok && existing.LeaseID == leaseID {
		delete(f.claims, claimID)
	}
	return nil
}

func (f *fakeLeaseRepo) ReleaseLease(ctx context.Context, leaseID, holderID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var deleted int64
	for id, c := range f.claims {
		if c.LeaseID == leaseID && c.HolderID == holderID {
			delete(f.claims, id)
			deleted++
		}
	}
	return deleted, nil
}

func (f *fakeLeaseRepo) FindByLease(ctx context.Context, leaseID string) ([]*model.SlotClaim, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.SlotClaim
	for _, c := range f.claims {
		if c.LeaseID == leaseID {
			claim := c
			out = append(out, &claim)
		}
	}
	return out, nil
}

func (f *fakeLeaseRepo) ActiveClaimsInRange(ctx context.Context, courtID string, from, to, now time.Time) ([]*model.SlotClaim, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.SlotClaim
	for _, c := range f.claims {
		if c.CourtID != courtID || !c.ExpiresAt.After(now) {
			continue
		}
		if c.SlotStart.Before(to) && c.SlotStart.Add(time.Hour).After(from) {
			claim := c
			out = append(out, &claim)
		}
	}
	return out, nil
}

func (f *fakeLeaseRepo) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var deleted int64
	for id, c := range f.claims {
		if !c.ExpiresAt.After(now) {
			delete(f.claims, id)
			deleted++
		}
	}
	return deleted, nil
}

func (f *fakeLeaseRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.claims)
}

type mockBookingRepo struct {
	createFunc              func(ctx context.Context, b *model.Booking) error
	findByIDFunc            func(ctx context.Context, id string) (*model.Booking, error)
	findBlockingInRangeFunc func(ctx context.Context, courtID string, from, to time.Time) ([]*model.Booking, error)
	updateStatusFunc        func(ctx context.Context, id, status, paymentStatus string, now time.Time) error
}

func (m *mockBookingRepo) Create(ctx context.Context, b *model.Booking) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, b)
	}
	return nil
}

func (m *mockBookingRepo) FindByID(ctx context.Context, id string) (*model.Booking, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return nil, bookingerrors.ErrNotFound
}

func (m *mockBookingRepo) FindBlockingInRange(ctx context.Context, courtID string, from, to time.Time) ([]*model.Booking, error) {
	if m.findBlockingInRangeFunc != nil {
		return m.findBlockingInRangeFunc(ctx, courtID, from, to)
	}
	return nil, nil
}

func (m *mockBookingRepo) FindByCustomer(ctx context.Context, customerID string, limit int, offset int64) ([]*model.Booking, error) {
	return nil, nil
}

func (m *mockBookingRepo) CountByCustomer(ctx context.Context, customerID string) (int64, error) {
	return 0, nil
}

func (m *mockBookingRepo) UpdateStatus(ctx context.Context, id, status, paymentStatus string, now time.Time) error {
	if m.updateStatusFunc != nil {
		return m.updateStatusFunc(ctx, id, status, paymentStatus, now)
	}
	return nil
}

func (m *mockBookingRepo) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return fn(mongo.SessionContext(nil))
}

type stubCatalog struct {
	court   *model.Court
	rules   []model.PricingRule
	holiday *model.Holiday
}

func (s *stubCatalog) GetCourt(ctx context.Context, id string) (*model.Court, error) {
	if s.court == nil {
		return nil, apperrors.NotFoundWithID("Court", id)
	}
	return s.court, nil
}

func (s *stubCatalog) ActiveRulesForCourt(ctx context.Context, courtID string) ([]model.PricingRule, error) {
	return s.rules, nil
}

func (s *stubCatalog) ActiveHolidayForDate(ctx context.Context, date string) (*model.Holiday, error) {
	return s.holiday, nil
}

func approvedCourt() *model.Court {
	return &model.Court{
		ID:             testCourtID,
		OwnerID:        "owner-1",
		Name:           "Center Court",
		BasePriceCents: 5000,
		OpenHour:       "08:00",
		CloseHour:      "22:00",
		Status:         model.CourtApproved,
		Active:         true,
	}
}

func testConfig() *config.Config {
	return &config.Config{
		Log:          logger.NewNop(),
		LeaseTTL:     5 * time.Minute,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}
}

func testWindow(start, end string) model.Window {
	return model.Window{CourtID: testCourtID, Date: testDate, Start: start, End: end}
}

type leaseFixture struct {
	leases      LeaseService
	leaseRepo   *fakeLeaseRepo
	bookingRepo *mockBookingRepo
	catalog     *stubCatalog
	clk         *clock.Frozen
	cfg         *config.Config
}

func newLeaseFixture() *leaseFixture {
	leaseRepo := newFakeLeaseRepo()
	bookingRepo := &mockBookingRepo{}
	catalog := &stubCatalog{court: approvedCourt()}
	clk := clock.NewFrozen(time.Date(2025, 6, 12, 9, 0, 0, 0, time.UTC))
	cfg := testConfig()

	return &leaseFixture{
		leases:      NewLeaseService(leaseRepo, bookingRepo, catalog, clk, cfg),
		leaseRepo:   leaseRepo,
		bookingRepo: bookingRepo,
		catalog:     catalog,
		clk:         clk,
		cfg:         cfg,
	}
}

func TestAcquireGrantsLease(t *testing.T) {
	f := newLeaseFixture()

	lease, err := f.leases.Acquire(context.Background(), testWindow("10:00", "12:00"), "customer-a")
	require.NoError(t, err)
	require.NotEmpty(t, lease.LeaseID)
	require.Equal(t, "customer-a", lease.HolderID)
	require.Equal(t, f.clk.Now().Add(f.cfg.LeaseTTL), lease.ExpiresAt)
	require.Equal(t, 2, f.leaseRepo.count())
}

func TestAcquireExcludesSecondHolder(t *testing.T) {
	f := newLeaseFixture()
	ctx := context.Background()

	_, err := f.leases.Acquire(ctx, testWindow("10:00", "12:00"), "customer-a")
	require.NoError(t, err)

	_, err = f.leases.Acquire(ctx, testWindow("10:00", "12:00"), "customer-b")
	require.True(t, apperrors.IsCode(err, apperrors.CodeSlotUnavailable))

	// Partial overlap is excluded too.
	_, err = f.leases.Acquire(ctx, testWindow("11:00", "13:00"), "customer-b")
	require.True(t, apperrors.IsCode(err, apperrors.CodeSlotUnavailable))

	// An adjacent window is free; ranges are half-open.
	_, err = f.leases.Acquire(ctx, testWindow("12:00", "14:00"), "customer-b")
	require.NoError(t, err)
}

func TestAcquireRefreshSameHolder(t *testing.T) {
	f := newLeaseFixture()
	ctx := context.Background()

	first, err := f.leases.Acquire(ctx, testWindow("10:00", "12:00"), "customer-a")
	require.NoError(t, err)

	f.clk.Advance(3 * time.Minute)

	second, err := f.leases.Acquire(ctx, testWindow("10:00", "12:00"), "customer-a")
	require.NoError(t, err)
	require.NotEqual(t, first.LeaseID, second.LeaseID)
	require.True(t, second.ExpiresAt.After(first.ExpiresAt))
	require.Equal(t, 2, f.leaseRepo.count())
}

func TestAcquireAfterExpiry(t *testing.T) {
	f := newLeaseFixture()
	ctx := context.Background()

	_, err := f.leases.Acquire(ctx, testWindow("10:00", "12:00"), "customer-a")
	require.NoError(t, err)

	f.clk.Advance(f.cfg.LeaseTTL + time.Second)

	lease, err := f.leases.Acquire(ctx, testWindow("10:00", "12:00"), "customer-b")
	require.NoError(t, err)
	require.Equal(t, "customer-b", lease.HolderID)
}

func TestAcquireRollsBackPartialWindow(t *testing.T) {
	f := newLeaseFixture()
	ctx := context.Background()

	// Another holder owns the middle slot only.
	_, err := f.leases.Acquire(ctx, testWindow("11:00", "12:00"), "customer-b")
	require.NoError(t, err)
	require.Equal(t, 1, f.leaseRepo.count())

	_, err = f.leases.Acquire(ctx, testWindow("10:00", "13:00"), "customer-a")
	require.True(t, apperrors.IsCode(err, apperrors.CodeSlotUnavailable))

	// The 10:00 slot claimed before the conflict was rolled back.
	require.Equal(t, 1, f.leaseRepo.count())
}

func TestAcquireRejectsBookedWindow(t *testing.T) {
	f := newLeaseFixture()
	booked := testWindow("10:00", "12:00")
	f.bookingRepo.findBlockingInRangeFunc = func(ctx context.Context, courtID string, from, to time.Time) ([]*model.Booking, error) {
		if booked.StartTime().Before(to) && booked.EndTime().After(from) {
			return []*model.Booking{{CourtID: courtID, Status: model.BookingConfirmed, StartAt: booked.StartTime(), EndAt: booked.EndTime()}}, nil
		}
		return nil, nil
	}

	_, err := f.leases.Acquire(context.Background(), testWindow("11:00", "13:00"), "customer-a")
	require.True(t, apperrors.IsCode(err, apperrors.CodeSlotUnavailable))

	_, err = f.leases.Acquire(context.Background(), testWindow("12:00", "14:00"), "customer-a")
	require.NoError(t, err)
}

func TestAcquireRejectsUnbookableCourt(t *testing.T) {
	f := newLeaseFixture()
	f.catalog.court.Status = model.CourtSuspended

	_, err := f.leases.Acquire(context.Background(), testWindow("10:00", "11:00"), "customer-a")
	require.True(t, apperrors.IsCode(err, apperrors.CodeInvalidCourtConfig))
}

func TestAcquireRejectsOutsideOpenHours(t *testing.T) {
	f := newLeaseFixture()

	_, err := f.leases.Acquire(context.Background(), testWindow("06:00", "08:00"), "customer-a")
	require.True(t, apperrors.IsCode(err, apperrors.CodeInvalidWindow))

	_, err = f.leases.Acquire(context.Background(), testWindow("21:00", "23:00"), "customer-a")
	require.True(t, apperrors.IsCode(err, apperrors.CodeInvalidWindow))
}

func TestAcquireRejectsMalformedWindow(t *testing.T) {
	f := newLeaseFixture()

	_, err := f.leases.Acquire(context.Background(), testWindow("10:30", "11:30"), "customer-a")
	require.True(t, apperrors.IsCode(err, apperrors.CodeInvalidWindow))

	_, err = f.leases.Acquire(context.Background(), testWindow("12:00", "10:00"), "customer-a")
	require.True(t, apperrors.IsCode(err, apperrors.CodeInvalidWindow))
}

func TestConcurrentAcquireSingleWinner(t *testing.T) {
	f := newLeaseFixture()
	w := testWindow("10:00", "12:00")

	const attempts = 20
	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := 0

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := f.leases.Acquire(context.Background(), w, "customer-"+string(rune('a'+n)))
			if err == nil {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	require.Equal(t, 1, winners)
	require.Equal(t, 2, f.leaseRepo.count())
}

func TestReleaseIsIdempotent(t *testing.T) {
	f := newLeaseFixture()
	ctx := context.Background()

	lease, err := f.leases.Acquire(ctx, testWindow("10:00", "12:00"), "customer-a")
	require.NoError(t, err)

	require.NoError(t, f.leases.Release(ctx, lease.LeaseID, "customer-a"))
	require.Equal(t, 0, f.leaseRepo.count())
	require.NoError(t, f.leases.Release(ctx, lease.LeaseID, "customer-a"))

	// The window is immediately re-acquirable.
	_, err = f.leases.Acquire(ctx, testWindow("10:00", "12:00"), "customer-b")
	require.NoError(t, err)
}

func TestIsHeldReflectsClaimsAndExpiry(t *testing.T) {
	f := newLeaseFixture()
	ctx := context.Background()
	w := testWindow("10:00", "12:00")

	held, err := f.leases.IsHeld(ctx, w, "")
	require.NoError(t, err)
	require.False(t, held)

	_, err = f.leases.Acquire(ctx, w, "customer-a")
	require.NoError(t, err)

	held, err = f.leases.IsHeld(ctx, w, "")
	require.NoError(t, err)
	require.True(t, held)

	// The holder's own claims are not contention from their side.
	held, err = f.leases.IsHeld(ctx, w, "customer-a")
	require.NoError(t, err)
	require.False(t, held)

	held, err = f.leases.IsHeld(ctx, w, "customer-b")
	require.NoError(t, err)
	require.True(t, held)

	f.clk.Advance(f.cfg.LeaseTTL + time.Second)

	held, err = f.leases.IsHeld(ctx, w, "")
	require.NoError(t, err)
	require.False(t, held)
}

func TestAvailabilityStatuses(t *testing.T) {
	f := newLeaseFixture()
	f.catalog.court.OpenHour = "08:00"
	f.catalog.court.CloseHour = "12:00"
	ctx := context.Background()

	booked := testWindow("08:00", "09:00")
	f.bookingRepo.findBlockingInRangeFunc = func(ctx context.Context, courtID string, from, to time.Time) ([]*model.Booking, error) {
		if booked.StartTime().Before(to) && booked.EndTime().After(from) {
			return []*model.Booking{{CourtID: courtID, Status: model.BookingConfirmed, StartAt: booked.StartTime(), EndAt: booked.EndTime()}}, nil
		}
		return nil, nil
	}

	_, err := f.leases.Acquire(ctx, testWindow("10:00", "11:00"), "customer-a")
	require.NoError(t, err)

	slots, err := f.leases.Availability(ctx, testCourtID, testDate)
	require.NoError(t, err)
	require.Len(t, slots, 4)
	require.Equal(t, []SlotStatus{
		{Start: "08:00", End: "09:00", Status: SlotBooked},
		{Start: "09:00", End: "10:00", Status: SlotFree},
		{Start: "10:00", End: "11:00", Status: SlotHeld},
		{Start: "11:00", End: "12:00", Status: SlotFree},
	}, slots)
}

func TestAvailabilityAfterLeaseExpiry(t *testing.T) {
	f := newLeaseFixture()
	f.catalog.court.OpenHour = "10:00"
	f.catalog.court.CloseHour = "12:00"
	ctx := context.Background()

	_, err := f.leases.Acquire(ctx, testWindow("10:00", "12:00"), "customer-a")
	require.NoError(t, err)

	f.clk.Advance(f.cfg.LeaseTTL + time.Second)

	slots, err := f.leases.Availability(ctx, testCourtID, testDate)
	require.NoError(t, err)
	for _, slot := range slots {
		require.Equal(t, SlotFree, slot.Status)
	}
}
