package model

import "time"

const (
	CourtPending   = "pending"
	CourtApproved  = "approved"
	CourtSuspended = "suspended"
)

// Court is a bookable facility. Administrative edits never retroactively
// change prices of finalized bookings: bookings store their resolved totals.
type Court struct {
	ID             string    `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	OwnerID        string    `json:"owner_id" bson:"owner_id" validate:"required"`
	Name           string    `json:"name" bson:"name" validate:"required,min=2,max=100"`
	BasePriceCents int64     `json:"base_price_cents" bson:"base_price_cents" validate:"required,gt=0"`
	OpenHour       string    `json:"open_hour" bson:"open_hour" validate:"required,datetime=15:04"`
	CloseHour      string    `json:"close_hour" bson:"close_hour" validate:"required,datetime=15:04"`
	Status         string    `json:"status" bson:"status" validate:"required,oneof=pending approved suspended"`
	Active         bool      `json:"active" bson:"active"`
	CreatedAt      time.Time `json:"created_at" bson:"created_at" validate:"omitempty"`
	UpdatedAt      time.Time `json:"updated_at" bson:"updated_at" validate:"omitempty"`
}

// Bookable reports whether the court can accept new leases and bookings.
func (c *Court) Bookable() bool {
	return c.Active && c.Status == CourtApproved
}

type CourtUpdate struct {
	Name           string `json:"name,omitempty" validate:"omitempty,min=2,max=100"`
	BasePriceCents *int64 `json:"base_price_cents,omitempty" validate:"omitempty,gt=0"`
	OpenHour       string `json:"open_hour,omitempty" validate:"omitempty,datetime=15:04"`
	CloseHour      string `json:"close_hour,omitempty" validate:"omitempty,datetime=15:04"`
	Status         string `json:"status,omitempty" validate:"omitempty,oneof=pending approved suspended"`
	Active         *bool  `json:"active,omitempty"`
}
