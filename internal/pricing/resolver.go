package pricing

import (
	"context"
	"math"

	apperrors "courtside/pkg/errors"
	"courtside/pkg/logger"
	"courtside/pkg/model"
)

// Quote is the authoritative price for a window plus the trail of rules
// that fired. Quotes computed at hold time are advisory; the price is
// locked in only when finalization re-resolves and writes the booking.
type Quote struct {
	CourtID        string   `json:"court_id"`
	Date           string   `json:"date"`
	Start          string   `json:"start"`
	End            string   `json:"end"`
	BasePriceCents int64    `json:"base_price_cents"`
	Hours          int      `json:"hours"`
	Multiplier     float64  `json:"multiplier"`
	TotalCents     int64    `json:"total_cents"`
	Currency       string   `json:"currency"`
	AppliedRules   []string `json:"applied_rules"`
}

// Resolve computes the price for a window from the court's base price,
// its active rules, and an optional active holiday. Pure: identical
// inputs always produce identical output, applied-rule trail included.
//
// Rules never stack; the single highest applicable multiplier wins, and
// the holiday can only raise the result further.
func Resolve(basePriceCents int64, rules []model.PricingRule, holiday *model.Holiday, w model.Window) (*Quote, error) {
	if err := w.Validate(); err != nil {
		return nil, apperrors.InvalidWindow(err.Error())
	}
	if basePriceCents <= 0 {
		return nil, apperrors.InvalidCourtConfiguration(w.CourtID, "court base price must be positive")
	}

	hours := w.Hours()
	multiplier := 1.0
	applied := []string{}

	for i := range rules {
		rule := &rules[i]
		if !rule.AppliesTo(w) {
			continue
		}
		applied = append(applied, rule.Describe())
		multiplier = combine(multiplier, rule.Multiplier)
	}

	if holiday != nil && holiday.Active && holiday.Date == w.Date {
		applied = append(applied, holiday.Describe())
		multiplier = combine(multiplier, holiday.Multiplier)
	}

	total := roundHalfUp(float64(basePriceCents) * float64(hours) * multiplier)

	return &Quote{
		CourtID:        w.CourtID,
		Date:           w.Date,
		Start:          w.Start,
		End:            w.End,
		BasePriceCents: basePriceCents,
		Hours:          hours,
		Multiplier:     multiplier,
		TotalCents:     total,
		AppliedRules:   applied,
	}, nil
}

// combine is the multiplier-combination policy: take the maximum.
// Deliberately not additive or multiplicative stacking.
func combine(current, candidate float64) float64 {
	return math.Max(current, candidate)
}

// roundHalfUp rounds to the smallest currency unit, halves away from zero.
func roundHalfUp(x float64) int64 {
	return int64(math.Floor(x + 0.5))
}

// CatalogSource supplies the current court, rule, and holiday records.
// The booking core only ever reads this surface.
type CatalogSource interface {
	GetCourt(ctx context.Context, id string) (*model.Court, error)
	ActiveRulesForCourt(ctx context.Context, courtID string) ([]model.PricingRule, error)
	ActiveHolidayForDate(ctx context.Context, date string) (*model.Holiday, error)
}

// Resolver resolves windows against the live catalog.
type Resolver struct {
	source   CatalogSource
	currency string
	log      *logger.Logger
}

func NewResolver(source CatalogSource, currency string, log *logger.Logger) *Resolver {
	return &Resolver{
		source:   source,
		currency: currency,
		log:      log,
	}
}

// QuoteWindow resolves the price of a window using the current rule
// set. It is called both at quote/hold time and again at finalization,
// so a stale client-side quote can never set the charged amount.
func (r *Resolver) QuoteWindow(ctx context.Context, w model.Window) (*Quote, error) {
	if err := w.Validate(); err != nil {
		return nil, apperrors.InvalidWindow(err.Error())
	}

	court, err := r.source.GetCourt(ctx, w.CourtID)
	if err != nil {
		return nil, err
	}
	if !court.Bookable() {
		return nil, apperrors.InvalidCourtConfiguration(w.CourtID, "court is not open for booking")
	}

	rules, err := r.source.ActiveRulesForCourt(ctx, w.CourtID)
	if err != nil {
		return nil, err
	}

	holiday, err := r.source.ActiveHolidayForDate(ctx, w.Date)
	if err != nil {
		return nil, err
	}

	quote, err := Resolve(court.BasePriceCents, rules, holiday, w)
	if err != nil {
		return nil, err
	}
	quote.Currency = r.currency

	r.log.Debug("Price resolved",
		"court_id", w.CourtID,
		"date", w.Date,
		"hours", quote.Hours,
		"multiplier", quote.Multiplier,
		"total_cents", quote.TotalCents,
		"applied_rules", len(quote.AppliedRules),
	)
	return quote, nil
}
