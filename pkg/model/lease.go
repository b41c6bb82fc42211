package model

import (
	"fmt"
	"time"
)

// SlotLease is a time-boxed exclusive claim on a booking window, not yet
// a confirmed reservation. Leases are ephemeral: created on hold, gone on
// expiry (detected passively at read time) or on release/finalization.
type SlotLease struct {
	LeaseID   string    `json:"lease_id" bson:"lease_id"`
	CourtID   string    `json:"court_id" bson:"court_id"`
	Date      string    `json:"date" bson:"date"`
	Start     string    `json:"start" bson:"start"`
	End       string    `json:"end" bson:"end"`
	HolderID  string    `json:"holder_id" bson:"holder_id"`
	ExpiresAt time.Time `json:"expires_at" bson:"expires_at"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}

func (l *SlotLease) Window() Window {
	overnight := l.End <= l.Start
	return Window{CourtID: l.CourtID, Date: l.Date, Start: l.Start, End: l.End, Overnight: overnight}
}

// Expired compares against the supplied instant, never the wall clock
// directly, so expiry is deterministic under a frozen test clock.
func (l *SlotLease) Expired(now time.Time) bool {
	return !l.ExpiresAt.After(now)
}

// SlotClaim is the persisted unit of exclusion: one document per hour
// slot a lease covers. The deterministic _id makes the collection's
// unique index act as the exclusion constraint for concurrent acquires.
type SlotClaim struct {
	ID        string    `json:"id" bson:"_id"`
	LeaseID   string    `json:"lease_id" bson:"lease_id"`
	CourtID   string    `json:"court_id" bson:"court_id"`
	SlotStart time.Time `json:"slot_start" bson:"slot_start"`
	Date      string    `json:"date" bson:"date"`
	Start     string    `json:"start" bson:"start"`
	End       string    `json:"end" bson:"end"`
	HolderID  string    `json:"holder_id" bson:"holder_id"`
	ExpiresAt time.Time `json:"expires_at" bson:"expires_at"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}

// SlotClaimID builds the deterministic claim key for one hour slot.
func SlotClaimID(courtID string, slotStart time.Time) string {
	return fmt.Sprintf("%s|%d", courtID, slotStart.Unix())
}
