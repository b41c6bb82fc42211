package model

import "time"

const (
	BookingPending   = "pending"
	BookingConfirmed = "confirmed"
	BookingCancelled = "cancelled"
	BookingCompleted = "completed"

	PaymentPending   = "pending"
	PaymentSucceeded = "succeeded"
	PaymentFailed    = "failed"

	MethodCard         = "card"
	MethodBankTransfer = "bank_transfer"
)

// Booking is the durable record produced by finalizing a lease. It is
// never deleted, only status-transitioned. The resolved price fields are
// locked in at finalization and survive later rule or court edits.
type Booking struct {
	ID             string    `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	CourtID        string    `json:"court_id" bson:"court_id" validate:"required,mongodb"`
	CustomerID     string    `json:"customer_id" bson:"customer_id" validate:"required"`
	Date           string    `json:"date" bson:"date" validate:"required,datetime=2006-01-02"`
	Start          string    `json:"start" bson:"start" validate:"required,datetime=15:04"`
	End            string    `json:"end" bson:"end" validate:"required,datetime=15:04"`
	Overnight      bool      `json:"overnight,omitempty" bson:"overnight,omitempty"`
	StartAt        time.Time `json:"start_at" bson:"start_at"`
	EndAt          time.Time `json:"end_at" bson:"end_at"`
	Hours          int       `json:"hours" bson:"hours" validate:"required,min=1,max=24"`
	BasePriceCents int64     `json:"base_price_cents" bson:"base_price_cents" validate:"required,gt=0"`
	Multiplier     float64   `json:"multiplier" bson:"multiplier" validate:"required,gte=1"`
	TotalCents     int64     `json:"total_cents" bson:"total_cents" validate:"required,gt=0"`
	Currency       string    `json:"currency" bson:"currency" validate:"required,len=3"`
	AppliedRules   []string  `json:"applied_rules" bson:"applied_rules"`
	Status         string    `json:"status" bson:"status" validate:"required,oneof=pending confirmed cancelled completed"`
	PaymentStatus  string    `json:"payment_status" bson:"payment_status" validate:"required,oneof=pending succeeded failed"`
	PaymentMethod  string    `json:"payment_method" bson:"payment_method" validate:"required,oneof=card bank_transfer"`
	PaymentRef     string    `json:"payment_ref,omitempty" bson:"payment_ref,omitempty"`
	ProofRef       string    `json:"proof_ref,omitempty" bson:"proof_ref,omitempty"`
	CreatedAt      time.Time `json:"created_at" bson:"created_at" validate:"omitempty"`
	UpdatedAt      time.Time `json:"updated_at" bson:"updated_at" validate:"omitempty"`
}

func (b *Booking) Window() Window {
	return Window{CourtID: b.CourtID, Date: b.Date, Start: b.Start, End: b.End, Overnight: b.Overnight}
}

// BlocksWindow reports whether the booking still occupies its window.
// Cancelled bookings free the slot for new leases and bookings.
func (b *Booking) BlocksWindow() bool {
	return b.Status != BookingCancelled
}

// ValidTransition is the owner/admin status transition table. Every
// other combination is rejected.
func ValidTransition(from, to string) bool {
	switch from {
	case BookingPending:
		return to == BookingConfirmed || to == BookingCancelled
	case BookingConfirmed:
		return to == BookingCancelled || to == BookingCompleted
	}
	return false
}
