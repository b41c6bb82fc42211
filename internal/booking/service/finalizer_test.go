package service

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"courtside/internal/booking/validator"
	"courtside/internal/payment"
	"courtside/internal/pricing"
	apperrors "courtside/pkg/errors"
	"courtside/pkg/logger"
	"courtside/pkg/model"

	"github.com/stretchr/testify/require"
)

type fakeCharger struct {
	err      error
	requests []payment.ChargeRequest
}

func (f *fakeCharger) Charge(ctx context.Context, req payment.ChargeRequest) (*payment.ChargeResult, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	return &payment.ChargeResult{PaymentRef: "pay-123", Status: "succeeded"}, nil
}

type recordingDispatcher struct {
	mu     sync.Mutex
	events []string
}

func (r *recordingDispatcher) BookingEvent(eventType string, booking *model.Booking) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, eventType)
}

func (r *recordingDispatcher) recorded() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

type finalizerFixture struct {
	leaseFixture
	finalizer  FinalizerService
	charger    *fakeCharger
	dispatcher *recordingDispatcher
	stored     map[string]*model.Booking
}

func newFinalizerFixture() *finalizerFixture {
	lf := newLeaseFixture()
	charger := &fakeCharger{}
	dispatcher := &recordingDispatcher{}
	stored := make(map[string]*model.Booking)

	nextID := 0
	lf.bookingRepo.createFunc = func(ctx context.Context, b *model.Booking) error {
		nextID++
		b.ID = "65f1a2b3c4d5e6f7a8b9c0d" + string(rune('0'+nextID%10))
		copied := *b
		stored[b.ID] = &copied
		return nil
	}
	lf.bookingRepo.findByIDFunc = func(ctx context.Context, id string) (*model.Booking, error) {
		if b, ok := stored[id]; ok {
			copied := *b
			return &copied, nil
		}
		return nil, errors.New("not stored")
	}
	lf.bookingRepo.updateStatusFunc = func(ctx context.Context, id, status, paymentStatus string, now time.Time) error {
		b := stored[id]
		b.Status = status
		b.PaymentStatus = paymentStatus
		return nil
	}
	// Finalized bookings must block later acquires and finalizes.
	lf.bookingRepo.findBlockingInRangeFunc = func(ctx context.Context, courtID string, from, to time.Time) ([]*model.Booking, error) {
		var out []*model.Booking
		for _, b := range stored {
			if b.CourtID == courtID && b.BlocksWindow() && b.StartAt.Before(to) && b.EndAt.After(from) {
				out = append(out, b)
			}
		}
		return out, nil
	}

	// Quotes read through the rule cache, as in production wiring;
	// finalization resolves against the catalog directly.
	cachedSource := pricing.NewCachedSource(lf.catalog, time.Minute)
	quoteResolver := pricing.NewResolver(cachedSource, "USD", logger.NewNop())
	finalizeResolver := pricing.NewResolver(lf.catalog, "USD", logger.NewNop())
	finalizer := NewFinalizerService(
		lf.bookingRepo,
		lf.leaseRepo,
		lf.leases,
		quoteResolver,
		finalizeResolver,
		charger,
		dispatcher,
		validator.NewBookingValidator(logger.NewNop()),
		lf.clk,
		lf.cfg,
	)

	return &finalizerFixture{
		leaseFixture: *lf,
		finalizer:    finalizer,
		charger:      charger,
		dispatcher:   dispatcher,
		stored:       stored,
	}
}

func cardRequest(leaseID string) *FinalizeRequest {
	return &FinalizeRequest{
		LeaseID:       leaseID,
		CustomerID:    "customer-a",
		PaymentMethod: model.MethodCard,
		CardToken:     "tok-visa",
	}
}

func TestFinalizeCardSuccess(t *testing.T) {
	f := newFinalizerFixture()
	ctx := context.Background()

	hold, err := f.finalizer.Hold(ctx, testWindow("10:00", "12:00"), "customer-a")
	require.NoError(t, err)
	require.Equal(t, int64(10000), hold.Quote.TotalCents)

	booking, err := f.finalizer.Finalize(ctx, cardRequest(hold.Lease.LeaseID))
	require.NoError(t, err)
	require.Equal(t, model.BookingConfirmed, booking.Status)
	require.Equal(t, model.PaymentSucceeded, booking.PaymentStatus)
	require.Equal(t, "pay-123", booking.PaymentRef)
	require.Equal(t, int64(10000), booking.TotalCents)
	require.Equal(t, "USD", booking.Currency)
	require.Equal(t, 2, booking.Hours)

	// The charge used the server-resolved total.
	require.Len(t, f.charger.requests, 1)
	require.Equal(t, int64(10000), f.charger.requests[0].AmountCents)

	// Claims are gone, and the booking itself now blocks the window.
	require.Equal(t, 0, f.leaseRepo.count())
	_, err = f.leases.Acquire(ctx, testWindow("10:00", "12:00"), "customer-b")
	require.True(t, apperrors.IsCode(err, apperrors.CodeSlotUnavailable))

	require.Equal(t, []string{"booking.confirmed"}, f.dispatcher.recorded())
}

func TestFinalizeChargesReresolvedPrice(t *testing.T) {
	f := newFinalizerFixture()
	ctx := context.Background()

	hold, err := f.finalizer.Hold(ctx, testWindow("10:00", "12:00"), "customer-a")
	require.NoError(t, err)
	require.Equal(t, int64(10000), hold.Quote.TotalCents)

	// A rule activates between hold and finalize; the stored price must
	// reflect it regardless of what the customer was shown.
	f.catalog.rules = []model.PricingRule{
		{CourtID: testCourtID, Kind: model.RuleCustomDays, Multiplier: 2.0, DaysOfWeek: []int{4}, Active: true},
	}

	// The quote path still serves the price cached at hold time; the
	// finalize path must not.
	staleQuote, err := f.finalizer.Quote(ctx, testWindow("10:00", "12:00"))
	require.NoError(t, err)
	require.Equal(t, int64(10000), staleQuote.TotalCents)

	booking, err := f.finalizer.Finalize(ctx, cardRequest(hold.Lease.LeaseID))
	require.NoError(t, err)
	require.Equal(t, int64(20000), booking.TotalCents)
	require.Equal(t, int64(20000), f.charger.requests[0].AmountCents)
	require.Len(t, booking.AppliedRules, 1)
}

func TestFinalizePaymentFailureReleasesLease(t *testing.T) {
	f := newFinalizerFixture()
	f.charger.err = errors.New("card declined")
	ctx := context.Background()

	hold, err := f.finalizer.Hold(ctx, testWindow("10:00", "12:00"), "customer-a")
	require.NoError(t, err)

	_, err = f.finalizer.Finalize(ctx, cardRequest(hold.Lease.LeaseID))
	require.True(t, apperrors.IsCode(err, apperrors.CodePaymentFailed))

	// A failed charge frees the slot immediately: no booking, no claims,
	// no event.
	require.Equal(t, 0, f.leaseRepo.count())
	require.Empty(t, f.stored)
	require.Empty(t, f.dispatcher.recorded())

	// The window is open for anyone to hold again.
	f.charger.err = nil
	rehold, err := f.finalizer.Hold(ctx, testWindow("10:00", "12:00"), "customer-a")
	require.NoError(t, err)

	booking, err := f.finalizer.Finalize(ctx, cardRequest(rehold.Lease.LeaseID))
	require.NoError(t, err)
	require.Equal(t, model.BookingConfirmed, booking.Status)
}

func TestFinalizeConflictAfterChargeLogsPaymentRef(t *testing.T) {
	f := newFinalizerFixture()
	ctx := context.Background()

	var logs bytes.Buffer
	f.cfg.Log = logger.New(logger.Config{Level: logger.ERROR, Output: &logs})

	w := testWindow("10:00", "12:00")
	hold, err := f.finalizer.Hold(ctx, w, "customer-a")
	require.NoError(t, err)

	// Another instance books the window between the charge and the
	// insert; the conflict only surfaces inside the transaction.
	f.stored["65f1a2b3c4d5e6f7a8b9c0aa"] = &model.Booking{
		ID:      "65f1a2b3c4d5e6f7a8b9c0aa",
		CourtID: testCourtID,
		Status:  model.BookingConfirmed,
		StartAt: w.StartTime(),
		EndAt:   w.EndTime(),
	}

	_, err = f.finalizer.Finalize(ctx, cardRequest(hold.Lease.LeaseID))
	require.True(t, apperrors.IsCode(err, apperrors.CodeLeaseExpired))
	require.Len(t, f.charger.requests, 1)
	require.Equal(t, 0, f.leaseRepo.count())

	// The charge went through, so the refund trail must carry its
	// reference.
	require.Contains(t, logs.String(), "pay-123")
	require.Contains(t, logs.String(), "manual refund")
}

func TestFinalizeExpiredLease(t *testing.T) {
	f := newFinalizerFixture()
	ctx := context.Background()

	hold, err := f.finalizer.Hold(ctx, testWindow("10:00", "12:00"), "customer-a")
	require.NoError(t, err)

	f.clk.Advance(f.cfg.LeaseTTL + time.Second)

	_, err = f.finalizer.Finalize(ctx, cardRequest(hold.Lease.LeaseID))
	require.True(t, apperrors.IsCode(err, apperrors.CodeLeaseExpired))
	require.Empty(t, f.charger.requests)
}

func TestFinalizeRejectsWrongHolder(t *testing.T) {
	f := newFinalizerFixture()
	ctx := context.Background()

	hold, err := f.finalizer.Hold(ctx, testWindow("10:00", "12:00"), "customer-a")
	require.NoError(t, err)

	req := cardRequest(hold.Lease.LeaseID)
	req.CustomerID = "customer-b"

	_, err = f.finalizer.Finalize(ctx, req)
	require.True(t, apperrors.IsCode(err, apperrors.CodeLeaseExpired))
}

func TestFinalizeValidatesRequest(t *testing.T) {
	f := newFinalizerFixture()
	ctx := context.Background()

	hold, err := f.finalizer.Hold(ctx, testWindow("10:00", "12:00"), "customer-a")
	require.NoError(t, err)

	// Card method without a token.
	_, err = f.finalizer.Finalize(ctx, &FinalizeRequest{
		LeaseID:       hold.Lease.LeaseID,
		CustomerID:    "customer-a",
		PaymentMethod: model.MethodCard,
	})
	require.True(t, apperrors.IsCode(err, apperrors.CodeValidation))

	_, err = f.finalizer.Finalize(ctx, &FinalizeRequest{
		LeaseID:       hold.Lease.LeaseID,
		CustomerID:    "customer-a",
		PaymentMethod: "crypto",
	})
	require.True(t, apperrors.IsCode(err, apperrors.CodeValidation))
}

func TestBankTransferSettlement(t *testing.T) {
	f := newFinalizerFixture()
	ctx := context.Background()

	hold, err := f.finalizer.Hold(ctx, testWindow("10:00", "12:00"), "customer-a")
	require.NoError(t, err)

	booking, err := f.finalizer.Finalize(ctx, &FinalizeRequest{
		LeaseID:       hold.Lease.LeaseID,
		CustomerID:    "customer-a",
		PaymentMethod: model.MethodBankTransfer,
		ProofRef:      "transfer-receipt-1",
	})
	require.NoError(t, err)
	require.Equal(t, model.BookingPending, booking.Status)
	require.Equal(t, model.PaymentPending, booking.PaymentStatus)
	require.Equal(t, "transfer-receipt-1", booking.ProofRef)
	require.Empty(t, f.charger.requests)
	require.Equal(t, []string{"booking.requested"}, f.dispatcher.recorded())

	// Pending bookings already block the window.
	_, err = f.leases.Acquire(ctx, testWindow("10:00", "12:00"), "customer-b")
	require.True(t, apperrors.IsCode(err, apperrors.CodeSlotUnavailable))

	settled, err := f.finalizer.ConfirmPayment(ctx, booking.ID, true)
	require.NoError(t, err)
	require.Equal(t, model.BookingConfirmed, settled.Status)
	require.Equal(t, model.PaymentSucceeded, settled.PaymentStatus)
	require.Equal(t, []string{"booking.requested", "booking.confirmed"}, f.dispatcher.recorded())

	// Settling twice is rejected.
	_, err = f.finalizer.ConfirmPayment(ctx, booking.ID, true)
	require.True(t, apperrors.IsCode(err, apperrors.CodeConflict))
}

func TestBankTransferRejectionFreesWindow(t *testing.T) {
	f := newFinalizerFixture()
	ctx := context.Background()

	hold, err := f.finalizer.Hold(ctx, testWindow("10:00", "12:00"), "customer-a")
	require.NoError(t, err)

	booking, err := f.finalizer.Finalize(ctx, &FinalizeRequest{
		LeaseID:       hold.Lease.LeaseID,
		CustomerID:    "customer-a",
		PaymentMethod: model.MethodBankTransfer,
		ProofRef:      "transfer-receipt-2",
	})
	require.NoError(t, err)

	rejected, err := f.finalizer.ConfirmPayment(ctx, booking.ID, false)
	require.NoError(t, err)
	require.Equal(t, model.BookingCancelled, rejected.Status)
	require.Equal(t, model.PaymentFailed, rejected.PaymentStatus)

	// A cancelled booking no longer blocks the window.
	_, err = f.leases.Acquire(ctx, testWindow("10:00", "12:00"), "customer-b")
	require.NoError(t, err)
}

func TestTransitionTable(t *testing.T) {
	f := newFinalizerFixture()
	ctx := context.Background()

	hold, err := f.finalizer.Hold(ctx, testWindow("10:00", "12:00"), "customer-a")
	require.NoError(t, err)

	booking, err := f.finalizer.Finalize(ctx, cardRequest(hold.Lease.LeaseID))
	require.NoError(t, err)

	// confirmed -> pending is not in the table.
	_, err = f.finalizer.Transition(ctx, booking.ID, model.BookingPending)
	require.True(t, apperrors.IsCode(err, apperrors.CodeConflict))

	completed, err := f.finalizer.Transition(ctx, booking.ID, model.BookingCompleted)
	require.NoError(t, err)
	require.Equal(t, model.BookingCompleted, completed.Status)

	// completed is terminal.
	_, err = f.finalizer.Transition(ctx, booking.ID, model.BookingCancelled)
	require.True(t, apperrors.IsCode(err, apperrors.CodeConflict))
}

func TestCancelledBookingFreesWindow(t *testing.T) {
	f := newFinalizerFixture()
	ctx := context.Background()

	hold, err := f.finalizer.Hold(ctx, testWindow("10:00", "12:00"), "customer-a")
	require.NoError(t, err)

	booking, err := f.finalizer.Finalize(ctx, cardRequest(hold.Lease.LeaseID))
	require.NoError(t, err)

	_, err = f.leases.Acquire(ctx, testWindow("10:00", "12:00"), "customer-b")
	require.True(t, apperrors.IsCode(err, apperrors.CodeSlotUnavailable))

	_, err = f.finalizer.Transition(ctx, booking.ID, model.BookingCancelled)
	require.NoError(t, err)

	_, err = f.leases.Acquire(ctx, testWindow("10:00", "12:00"), "customer-b")
	require.NoError(t, err)
}
