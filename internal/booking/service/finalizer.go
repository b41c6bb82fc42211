package service

import (
	"context"
	"errors"
	"fmt"

	bookingerrors "courtside/internal/booking/errors"
	"courtside/internal/booking/repository"
	"courtside/internal/booking/validator"
	"courtside/internal/notification"
	"courtside/internal/payment"
	"courtside/internal/pricing"
	"courtside/pkg/clock"
	"courtside/pkg/config"
	apperrors "courtside/pkg/errors"
	"courtside/pkg/model"

	"go.mongodb.org/mongo-driver/mongo"
)

// FinalizeRequest turns a held lease into a durable booking.
type FinalizeRequest struct {
	LeaseID       string `json:"lease_id" validate:"required"`
	CustomerID    string `json:"customer_id" validate:"required"`
	PaymentMethod string `json:"payment_method" validate:"required,oneof=card bank_transfer"`
	CardToken     string `json:"card_token,omitempty" validate:"required_if=PaymentMethod card"`
	ProofRef      string `json:"proof_ref,omitempty" validate:"required_if=PaymentMethod bank_transfer"`
}

// HoldResult pairs the lease with the advisory quote shown to the
// customer while they pay.
type HoldResult struct {
	Lease *model.SlotLease `json:"lease"`
	Quote *pricing.Quote   `json:"quote"`
}

// FinalizerService drives the lease-to-booking pipeline. The price a
// booking stores is always re-resolved here, server side; quotes
// returned earlier are advisory only. Quoting may read through the
// rule cache, but finalization resolves against the uncached catalog
// so the charged amount never comes from rules cached at hold time.
type FinalizerService interface {
	Quote(ctx context.Context, w model.Window) (*pricing.Quote, error)
	Hold(ctx context.Context, w model.Window, holderID string) (*HoldResult, error)
	Finalize(ctx context.Context, req *FinalizeRequest) (*model.Booking, error)
	ConfirmPayment(ctx context.Context, bookingID string, approve bool) (*model.Booking, error)
	Transition(ctx context.Context, bookingID, toStatus string) (*model.Booking, error)
	GetByID(ctx context.Context, id string) (*model.Booking, error)
	ListByCustomer(ctx context.Context, customerID string, limit int, offset int64) ([]*model.Booking, int64, error)
}

type finalizerService struct {
	bookingRepo      repository.BookingRepository
	leaseRepo        repository.LeaseRepository
	leases           LeaseService
	quoteResolver    *pricing.Resolver
	finalizeResolver *pricing.Resolver
	charger          payment.Charger
	dispatcher       notification.Dispatcher
	validator        *validator.BookingValidator
	clk              clock.Clock
	cfg              *config.Config
}

func NewFinalizerService(
	bookingRepo repository.BookingRepository,
	leaseRepo repository.LeaseRepository,
	leases LeaseService,
	quoteResolver *pricing.Resolver,
	finalizeResolver *pricing.Resolver,
	charger payment.Charger,
	dispatcher notification.Dispatcher,
	bookingValidator *validator.BookingValidator,
	clk clock.Clock,
	cfg *config.Config,
) FinalizerService {
	return &finalizerService{
		bookingRepo:      bookingRepo,
		leaseRepo:        leaseRepo,
		leases:           leases,
		quoteResolver:    quoteResolver,
		finalizeResolver: finalizeResolver,
		charger:          charger,
		dispatcher:       dispatcher,
		validator:        bookingValidator,
		clk:              clk,
		cfg:              cfg,
	}
}

func (s *finalizerService) Quote(ctx context.Context, w model.Window) (*pricing.Quote, error) {
	return s.quoteResolver.QuoteWindow(ctx, w)
}

// Hold acquires a lease and quotes it in one step.
func (s *finalizerService) Hold(ctx context.Context, w model.Window, holderID string) (*HoldResult, error) {
	quote, err := s.quoteResolver.QuoteWindow(ctx, w)
	if err != nil {
		return nil, err
	}

	lease, err := s.leases.Acquire(ctx, w, holderID)
	if err != nil {
		return nil, err
	}

	return &HoldResult{Lease: lease, Quote: quote}, nil
}

// Finalize converts a live lease into a booking. Card payments are
// charged synchronously for the re-resolved total; bank transfers
// produce a pending booking awaiting the owner's confirmation. Either
// way the booking blocks the window from the moment it is written, and
// the lease claims are dropped.
//
// A failed card charge releases the lease: the customer is told to
// re-quote and re-hold before trying again.
func (s *finalizerService) Finalize(ctx context.Context, req *FinalizeRequest) (*model.Booking, error) {
	if err := s.validator.ValidateStruct(req); err != nil {
		s.cfg.Log.Warn("Finalize validation failed", "lease_id", req.LeaseID, "error", err)
		return nil, apperrors.Validation("Invalid finalize request", map[string]any{"error": err.Error()})
	}

	lease, err := s.loadLiveLease(ctx, req.LeaseID, req.CustomerID)
	if err != nil {
		return nil, err
	}

	w := lease.Window()
	quote, err := s.finalizeResolver.QuoteWindow(ctx, w)
	if err != nil {
		return nil, err
	}

	now := s.clk.Now()
	booking := &model.Booking{
		CourtID:        w.CourtID,
		CustomerID:     req.CustomerID,
		Date:           w.Date,
		Start:          w.Start,
		End:            w.End,
		Overnight:      w.Overnight,
		StartAt:        w.StartTime(),
		EndAt:          w.EndTime(),
		Hours:          quote.Hours,
		BasePriceCents: quote.BasePriceCents,
		Multiplier:     quote.Multiplier,
		TotalCents:     quote.TotalCents,
		Currency:       quote.Currency,
		AppliedRules:   quote.AppliedRules,
		PaymentMethod:  req.PaymentMethod,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	eventType := notification.EventBookingRequested
	switch req.PaymentMethod {
	case model.MethodCard:
		result, err := s.chargeCard(ctx, req, quote)
		if err != nil {
			s.releaseAfterFailure(ctx, lease, req.CustomerID)
			return nil, err
		}
		// The charge consumed real time; a lapsed lease here means the
		// slot may already belong to someone else.
		if lease.Expired(s.clk.Now()) {
			s.cfg.Log.Error("Lease expired during payment; charge requires manual refund",
				"lease_id", lease.LeaseID,
				"payment_ref", result.PaymentRef,
			)
			return nil, apperrors.LeaseExpired(lease.LeaseID)
		}
		booking.Status = model.BookingConfirmed
		booking.PaymentStatus = model.PaymentSucceeded
		booking.PaymentRef = result.PaymentRef
		eventType = notification.EventBookingConfirmed

	case model.MethodBankTransfer:
		booking.Status = model.BookingPending
		booking.PaymentStatus = model.PaymentPending
		booking.ProofRef = req.ProofRef

	default:
		return nil, apperrors.InvalidInput(fmt.Sprintf("Unsupported payment method: %s", req.PaymentMethod))
	}

	err = s.bookingRepo.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		blocking, err := s.bookingRepo.FindBlockingInRange(sessCtx, w.CourtID, w.StartTime(), w.EndTime())
		if err != nil {
			return apperrors.StoreUnavailable(err)
		}
		if len(blocking) > 0 {
			// Someone else booked the window, so the lease must have
			// lapsed mid-flow.
			return apperrors.LeaseExpired(lease.LeaseID)
		}
		if err := s.bookingRepo.Create(sessCtx, booking); err != nil {
			return apperrors.Internal("Failed to create booking", err)
		}
		return nil
	})
	if err != nil {
		if apperrors.IsCode(err, apperrors.CodeLeaseExpired) {
			s.releaseAfterFailure(ctx, lease, req.CustomerID)
		}
		if booking.PaymentRef != "" {
			// The card was already charged; the booking insert failing
			// means the money must be handed back by hand.
			s.cfg.Log.Error("Booking insert failed after successful charge; charge requires manual refund",
				"lease_id", req.LeaseID,
				"customer_id", req.CustomerID,
				"payment_ref", booking.PaymentRef,
				"error", err,
			)
		} else {
			s.cfg.Log.Error("Failed to finalize booking",
				"lease_id", req.LeaseID,
				"customer_id", req.CustomerID,
				"error", err,
			)
		}
		return nil, err
	}

	if releaseErr := s.leases.Release(ctx, lease.LeaseID, req.CustomerID); releaseErr != nil {
		// The booking already blocks the window; the claims will lapse
		// on their own.
		s.cfg.Log.Warn("Failed to release lease after finalization",
			"lease_id", lease.LeaseID,
			"error", releaseErr,
		)
	}

	s.dispatcher.BookingEvent(eventType, booking)
	s.cfg.Log.Info("Booking finalized",
		"booking_id", booking.ID,
		"court_id", booking.CourtID,
		"customer_id", booking.CustomerID,
		"status", booking.Status,
		"total_cents", booking.TotalCents,
		"payment_method", booking.PaymentMethod,
	)
	return booking, nil
}

// loadLiveLease reconstructs the lease from its claims and verifies it
// is complete, unexpired, and owned by the caller. A lease missing any
// of its claims has partially expired and been taken over; it cannot be
// finalized.
func (s *finalizerService) loadLiveLease(ctx context.Context, leaseID, customerID string) (*model.SlotLease, error) {
	if leaseID == "" {
		return nil, apperrors.InvalidInput("Lease ID cannot be empty")
	}
	if customerID == "" {
		return nil, apperrors.InvalidInput("Customer ID cannot be empty")
	}

	claims, err := s.leaseRepo.FindByLease(ctx, leaseID)
	if err != nil {
		return nil, apperrors.StoreUnavailable(err)
	}
	if len(claims) == 0 {
		return nil, apperrors.LeaseExpired(leaseID)
	}

	first := claims[0]
	if first.HolderID != customerID {
		// Do not reveal that the lease exists under another holder.
		return nil, apperrors.LeaseExpired(leaseID)
	}

	lease := &model.SlotLease{
		LeaseID:   first.LeaseID,
		CourtID:   first.CourtID,
		Date:      first.Date,
		Start:     first.Start,
		End:       first.End,
		HolderID:  first.HolderID,
		ExpiresAt: first.ExpiresAt,
		CreatedAt: first.CreatedAt,
	}

	now := s.clk.Now()
	if lease.Expired(now) {
		return nil, apperrors.LeaseExpired(leaseID)
	}
	if len(claims) != lease.Window().Hours() {
		return nil, apperrors.LeaseExpired(leaseID)
	}
	return lease, nil
}

// releaseAfterFailure drops the lease so an abandoned attempt frees the
// slot immediately instead of waiting out the TTL. Best effort; the
// claims lapse on their own if this fails.
func (s *finalizerService) releaseAfterFailure(ctx context.Context, lease *model.SlotLease, customerID string) {
	if err := s.leases.Release(ctx, lease.LeaseID, customerID); err != nil {
		s.cfg.Log.Warn("Failed to release lease after failed finalization",
			"lease_id", lease.LeaseID,
			"error", err,
		)
	}
}

func (s *finalizerService) chargeCard(ctx context.Context, req *FinalizeRequest, quote *pricing.Quote) (*payment.ChargeResult, error) {
	result, err := s.charger.Charge(ctx, payment.ChargeRequest{
		CustomerID:  req.CustomerID,
		AmountCents: quote.TotalCents,
		Currency:    quote.Currency,
		CardToken:   req.CardToken,
		Reference:   req.LeaseID,
	})
	if err != nil {
		s.cfg.Log.Warn("Card charge failed",
			"lease_id", req.LeaseID,
			"customer_id", req.CustomerID,
			"amount_cents", quote.TotalCents,
			"error", err,
		)
		return nil, apperrors.PaymentFailed(err)
	}
	return result, nil
}

// ConfirmPayment settles a bank-transfer booking: the court owner
// approves or rejects the submitted proof of payment.
func (s *finalizerService) ConfirmPayment(ctx context.Context, bookingID string, approve bool) (*model.Booking, error) {
	booking, err := s.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.PaymentMethod != model.MethodBankTransfer {
		return nil, apperrors.InvalidInput("Only bank transfer bookings require payment confirmation")
	}
	if booking.PaymentStatus != model.PaymentPending {
		return nil, apperrors.Conflict("Payment has already been settled for this booking")
	}

	status, paymentStatus := model.BookingConfirmed, model.PaymentSucceeded
	eventType := notification.EventBookingConfirmed
	if !approve {
		status, paymentStatus = model.BookingCancelled, model.PaymentFailed
		eventType = notification.EventBookingCancelled
	}

	if err := s.bookingRepo.UpdateStatus(ctx, bookingID, status, paymentStatus, s.clk.Now()); err != nil {
		return nil, apperrors.Internal("Failed to settle booking payment", err)
	}
	booking.Status = status
	booking.PaymentStatus = paymentStatus

	s.dispatcher.BookingEvent(eventType, booking)
	s.cfg.Log.Info("Bank transfer settled",
		"booking_id", bookingID,
		"approved", approve,
	)
	return booking, nil
}

// Transition applies an owner/admin status change, constrained to the
// transition table. Cancelling frees the window for new leases.
func (s *finalizerService) Transition(ctx context.Context, bookingID, toStatus string) (*model.Booking, error) {
	booking, err := s.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	if !model.ValidTransition(booking.Status, toStatus) {
		return nil, apperrors.Conflict(fmt.Sprintf(
			"Cannot transition booking from %s to %s", booking.Status, toStatus,
		))
	}

	if err := s.bookingRepo.UpdateStatus(ctx, bookingID, toStatus, booking.PaymentStatus, s.clk.Now()); err != nil {
		return nil, apperrors.Internal("Failed to update booking status", err)
	}
	booking.Status = toStatus

	switch toStatus {
	case model.BookingCancelled:
		s.dispatcher.BookingEvent(notification.EventBookingCancelled, booking)
	case model.BookingCompleted:
		s.dispatcher.BookingEvent(notification.EventBookingCompleted, booking)
	case model.BookingConfirmed:
		s.dispatcher.BookingEvent(notification.EventBookingConfirmed, booking)
	}

	s.cfg.Log.Info("Booking status changed", "booking_id", bookingID, "status", toStatus)
	return booking, nil
}

func (s *finalizerService) GetByID(ctx context.Context, id string) (*model.Booking, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Booking ID cannot be empty")
	}

	booking, err := s.bookingRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, bookingerrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Booking", id)
		}
		if errors.Is(err, bookingerrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid booking ID format")
		}
		return nil, apperrors.Internal("Failed to retrieve booking", err)
	}
	return booking, nil
}

func (s *finalizerService) ListByCustomer(ctx context.Context, customerID string, limit int, offset int64) ([]*model.Booking, int64, error) {
	if customerID == "" {
		return nil, 0, apperrors.InvalidInput("Customer ID cannot be empty")
	}

	count, err := s.bookingRepo.CountByCustomer(ctx, customerID)
	if err != nil {
		return nil, 0, apperrors.Internal("Failed to count bookings", err)
	}
	bookings, err := s.bookingRepo.FindByCustomer(ctx, customerID, limit, offset)
	if err != nil {
		return nil, 0, apperrors.Internal("Failed to retrieve bookings", err)
	}
	return bookings, count, nil
}
