package service

import (
	"context"
	"errors"
	"time"

	bookingerrors "courtside/internal/booking/errors"
	"courtside/internal/booking/repository"
	"courtside/internal/pricing"
	"courtside/pkg/clock"
	"courtside/pkg/config"
	apperrors "courtside/pkg/errors"
	"courtside/pkg/model"

	"github.com/google/uuid"
)

// SlotStatus describes one hour slot in an availability report.
type SlotStatus struct {
	Start  string `json:"start"`
	End    string `json:"end"`
	Status string `json:"status"`
}

const (
	SlotFree   = "free"
	SlotHeld   = "held"
	SlotBooked = "booked"
)

// LeaseService hands out time-boxed exclusive holds on booking windows.
// A lease is the only way into finalization: no booking is ever written
// for a window the customer does not currently hold.
type LeaseService interface {
	Acquire(ctx context.Context, w model.Window, holderID string) (*model.SlotLease, error)
	Release(ctx context.Context, leaseID, holderID string) error
	IsHeld(ctx context.Context, w model.Window, excludingHolder string) (bool, error)
	Availability(ctx context.Context, courtID, date string) ([]SlotStatus, error)
}

type leaseService struct {
	leaseRepo   repository.LeaseRepository
	bookingRepo repository.BookingRepository
	catalog     pricing.CatalogSource
	clk         clock.Clock
	cfg         *config.Config
}

func NewLeaseService(
	leaseRepo repository.LeaseRepository,
	bookingRepo repository.BookingRepository,
	catalog pricing.CatalogSource,
	clk clock.Clock,
	cfg *config.Config,
) LeaseService {
	return &leaseService{
		leaseRepo:   leaseRepo,
		bookingRepo: bookingRepo,
		catalog:     catalog,
		clk:         clk,
		cfg:         cfg,
	}
}

// Acquire claims every hour slot of the window, in ascending order, for
// a fresh lease. Re-acquiring slots the holder already owns succeeds
// and rebinds them to the new lease with a fresh expiry, so a refresh
// is just another Acquire. Losing any slot rolls back the ones already
// claimed in this call and reports the whole window unavailable.
func (s *leaseService) Acquire(ctx context.Context, w model.Window, holderID string) (*model.SlotLease, error) {
	if holderID == "" {
		return nil, apperrors.InvalidInput("Holder ID cannot be empty")
	}
	if err := w.Validate(); err != nil {
		return nil, apperrors.InvalidWindow(err.Error())
	}

	court, err := s.catalog.GetCourt(ctx, w.CourtID)
	if err != nil {
		return nil, err
	}
	if !court.Bookable() {
		return nil, apperrors.InvalidCourtConfiguration(w.CourtID, "court is not open for booking")
	}
	if !withinOpenHours(court, w) {
		return nil, apperrors.InvalidWindow("window is outside the court's opening hours")
	}

	blocking, err := s.bookingRepo.FindBlockingInRange(ctx, w.CourtID, w.StartTime(), w.EndTime())
	if err != nil {
		return nil, apperrors.StoreUnavailable(err)
	}
	if len(blocking) > 0 {
		return nil, apperrors.SlotUnavailable(w.CourtID, w.Date, w.Start, w.End)
	}

	now := s.clk.Now()
	lease := &model.SlotLease{
		LeaseID:   uuid.New().String(),
		CourtID:   w.CourtID,
		Date:      w.Date,
		Start:     w.Start,
		End:       w.End,
		HolderID:  holderID,
		ExpiresAt: now.Add(s.cfg.LeaseTTL),
		CreatedAt: now,
	}

	var acquired []string
	for _, slotStart := range w.SlotStarts() {
		claim := &model.SlotClaim{
			ID:        model.SlotClaimID(w.CourtID, slotStart),
			LeaseID:   lease.LeaseID,
			CourtID:   w.CourtID,
			SlotStart: slotStart,
			Date:      w.Date,
			Start:     w.Start,
			End:       w.End,
			HolderID:  holderID,
			ExpiresAt: lease.ExpiresAt,
		}

		err := s.leaseRepo.AcquireSlot(ctx, claim, now)
		if err == nil {
			acquired = append(acquired, claim.ID)
			continue
		}

		s.rollbackClaims(ctx, acquired, lease.LeaseID)
		if errors.Is(err, bookingerrors.ErrClaimConflict) {
			s.cfg.Log.Info("Slot hold lost to a competing claim",
				"court_id", w.CourtID,
				"slot_id", claim.ID,
				"holder_id", holderID,
			)
			return nil, apperrors.SlotUnavailable(w.CourtID, w.Date, w.Start, w.End)
		}
		s.cfg.Log.Error("Failed to acquire slot claim", "slot_id", claim.ID, "error", err)
		return nil, apperrors.StoreUnavailable(err)
	}

	s.cfg.Log.Info("Lease acquired",
		"lease_id", lease.LeaseID,
		"court_id", w.CourtID,
		"date", w.Date,
		"start", w.Start,
		"end", w.End,
		"holder_id", holderID,
		"expires_at", lease.ExpiresAt,
	)
	return lease, nil
}

func (s *leaseService) rollbackClaims(ctx context.Context, claimIDs []string, leaseID string) {
	for _, id := range claimIDs {
		if err := s.leaseRepo.DeleteClaim(ctx, id, leaseID); err != nil {
			s.cfg.Log.Warn("Failed to roll back slot claim", "slot_id", id, "error", err)
		}
	}
}

// Release drops every claim of the lease. Releasing an unknown or
// already-expired lease is not an error.
func (s *leaseService) Release(ctx context.Context, leaseID, holderID string) error {
	if leaseID == "" || holderID == "" {
		return apperrors.InvalidInput("Lease ID and holder ID are required")
	}

	deleted, err := s.leaseRepo.ReleaseLease(ctx, leaseID, holderID)
	if err != nil {
		s.cfg.Log.Error("Failed to release lease", "lease_id", leaseID, "error", err)
		return apperrors.StoreUnavailable(err)
	}

	s.cfg.Log.Info("Lease released", "lease_id", leaseID, "claims_removed", deleted)
	return nil
}

// IsHeld reports whether any part of the window is currently claimed or
// booked. Claims by excludingHolder do not count, so a holder can check
// a window without their own lease showing up as contention.
func (s *leaseService) IsHeld(ctx context.Context, w model.Window, excludingHolder string) (bool, error) {
	if err := w.Validate(); err != nil {
		return false, apperrors.InvalidWindow(err.Error())
	}

	blocking, err := s.bookingRepo.FindBlockingInRange(ctx, w.CourtID, w.StartTime(), w.EndTime())
	if err != nil {
		return false, apperrors.StoreUnavailable(err)
	}
	if len(blocking) > 0 {
		return true, nil
	}

	claims, err := s.leaseRepo.ActiveClaimsInRange(ctx, w.CourtID, w.StartTime(), w.EndTime(), s.clk.Now())
	if err != nil {
		return false, apperrors.StoreUnavailable(err)
	}
	for _, c := range claims {
		if excludingHolder == "" || c.HolderID != excludingHolder {
			return true, nil
		}
	}
	return false, nil
}

// Availability reports every hour slot of the court's opening hours on
// a date as free, held, or booked. Booked wins over held.
func (s *leaseService) Availability(ctx context.Context, courtID, date string) ([]SlotStatus, error) {
	court, err := s.catalog.GetCourt(ctx, courtID)
	if err != nil {
		return nil, err
	}

	day := model.Window{CourtID: courtID, Date: date, Start: court.OpenHour, End: court.CloseHour}
	if court.CloseHour <= court.OpenHour {
		day.Overnight = true
	}
	if err := day.Validate(); err != nil {
		return nil, apperrors.InvalidCourtConfiguration(courtID, err.Error())
	}

	now := s.clk.Now()
	from, to := day.StartTime(), day.EndTime()

	blocking, err := s.bookingRepo.FindBlockingInRange(ctx, courtID, from, to)
	if err != nil {
		return nil, apperrors.StoreUnavailable(err)
	}
	claims, err := s.leaseRepo.ActiveClaimsInRange(ctx, courtID, from, to, now)
	if err != nil {
		return nil, apperrors.StoreUnavailable(err)
	}

	claimed := make(map[string]bool, len(claims))
	for _, c := range claims {
		claimed[c.ID] = true
	}

	slots := make([]SlotStatus, 0, day.Hours())
	for _, slotStart := range day.SlotStarts() {
		slotEnd := slotStart.Add(time.Hour)
		status := SlotFree
		for _, b := range blocking {
			if slotStart.Before(b.EndAt) && slotEnd.After(b.StartAt) {
				status = SlotBooked
				break
			}
		}
		if status == SlotFree && claimed[model.SlotClaimID(courtID, slotStart)] {
			status = SlotHeld
		}
		slots = append(slots, SlotStatus{
			Start:  slotStart.Format(model.HourLayout),
			End:    slotEnd.Format(model.HourLayout),
			Status: status,
		})
	}
	return slots, nil
}

// withinOpenHours checks the window sits inside the court's opening
// hours. Courts whose open and close hours are equal operate 24h and
// accept any window, overnight included. Otherwise overnight courts
// (close before open) accept windows inside the wrapped range, and
// same-day courts accept same-day windows only.
func withinOpenHours(court *model.Court, w model.Window) bool {
	open, err := model.ParseHour(court.OpenHour)
	if err != nil {
		return false
	}
	closeAt, err := model.ParseHour(court.CloseHour)
	if err != nil {
		return false
	}
	if open == closeAt {
		return true
	}

	start, _ := model.ParseHour(w.Start)
	end, _ := model.ParseHour(w.End)

	if closeAt > open {
		if w.Overnight {
			return false
		}
		return start >= open && end <= closeAt
	}

	// Overnight court, e.g. 18:00-02:00. Normalize to minutes past open.
	const day = 24 * 60
	span := closeAt + day - open
	relStart := (start - open + day) % day
	relEnd := relStart + (end-start+day)%day
	return relEnd <= span
}
