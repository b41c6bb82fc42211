package pricing

import (
	"context"
	"testing"

	apperrors "courtside/pkg/errors"
	"courtside/pkg/logger"
	"courtside/pkg/model"

	"github.com/stretchr/testify/require"
)

// 2025-06-14 is a Saturday, 2025-06-12 a Thursday.
const (
	saturday = "2025-06-14"
	thursday = "2025-06-12"
)

func window(courtID, date, start, end string) model.Window {
	return model.Window{CourtID: courtID, Date: date, Start: start, End: end}
}

func TestResolveNoRules(t *testing.T) {
	w := window("court-1", thursday, "10:00", "12:00")

	quote, err := Resolve(5000, nil, nil, w)
	require.NoError(t, err)
	require.Equal(t, 2, quote.Hours)
	require.Equal(t, 1.0, quote.Multiplier)
	require.Equal(t, int64(10000), quote.TotalCents)
	require.Empty(t, quote.AppliedRules)
}

func TestResolveHolidayOverride(t *testing.T) {
	w := window("court-1", thursday, "10:00", "11:00")
	holiday := &model.Holiday{Date: thursday, Name: "Founders Day", Multiplier: 2.0, Active: true}

	quote, err := Resolve(5000, nil, holiday, w)
	require.NoError(t, err)
	require.Equal(t, 2.0, quote.Multiplier)
	require.Equal(t, int64(10000), quote.TotalCents)
	require.Equal(t, []string{"holiday Founders Day x2.00"}, quote.AppliedRules)
}

func TestResolveSaturdayPeak(t *testing.T) {
	w := window("court-1", saturday, "18:00", "20:00")
	rules := []model.PricingRule{
		{CourtID: "court-1", Kind: model.RulePeakHours, Multiplier: 1.5, Start: "17:00", End: "21:00", Active: true},
	}

	quote, err := Resolve(2500, rules, nil, w)
	require.NoError(t, err)
	require.Equal(t, 1.5, quote.Multiplier)
	require.Equal(t, int64(7500), quote.TotalCents)
	require.Len(t, quote.AppliedRules, 1)
}

func TestResolveRulesDoNotStack(t *testing.T) {
	w := window("court-1", saturday, "18:00", "20:00")
	rules := []model.PricingRule{
		{CourtID: "court-1", Kind: model.RuleWeekend, Multiplier: 1.25, Active: true},
		{CourtID: "court-1", Kind: model.RulePeakHours, Multiplier: 1.5, Start: "17:00", End: "21:00", Active: true},
	}

	quote, err := Resolve(2500, rules, nil, w)
	require.NoError(t, err)
	require.Equal(t, 1.5, quote.Multiplier)
	require.Equal(t, int64(7500), quote.TotalCents)
	require.Len(t, quote.AppliedRules, 2)
}

func TestResolveHolidayBeatsRules(t *testing.T) {
	w := window("court-1", saturday, "18:00", "20:00")
	rules := []model.PricingRule{
		{CourtID: "court-1", Kind: model.RuleWeekend, Multiplier: 1.5, Active: true},
	}
	holiday := &model.Holiday{Date: saturday, Name: "New Year", Multiplier: 3.0, Active: true}

	quote, err := Resolve(2000, rules, holiday, w)
	require.NoError(t, err)
	require.Equal(t, 3.0, quote.Multiplier)
	require.Equal(t, int64(12000), quote.TotalCents)
}

func TestResolveHolidayNeverLowers(t *testing.T) {
	w := window("court-1", saturday, "18:00", "20:00")
	rules := []model.PricingRule{
		{CourtID: "court-1", Kind: model.RuleWeekend, Multiplier: 2.0, Active: true},
	}
	holiday := &model.Holiday{Date: saturday, Name: "Quiet Day", Multiplier: 1.1, Active: true}

	quote, err := Resolve(2000, rules, holiday, w)
	require.NoError(t, err)
	require.Equal(t, 2.0, quote.Multiplier)
}

func TestResolveSubUnitMultiplierNeverDiscounts(t *testing.T) {
	// Multipliers below 1.0 are storable but the resolution baseline is
	// 1.0, so they can never lower a price.
	w := window("court-1", saturday, "18:00", "20:00")
	rules := []model.PricingRule{
		{CourtID: "court-1", Kind: model.RuleWeekend, Multiplier: 0.5, Active: true},
	}

	quote, err := Resolve(5000, rules, nil, w)
	require.NoError(t, err)
	require.Equal(t, 1.0, quote.Multiplier)
	require.Equal(t, int64(10000), quote.TotalCents)
}

func TestResolveInactiveAndMismatchedRulesIgnored(t *testing.T) {
	w := window("court-1", thursday, "10:00", "12:00")
	rules := []model.PricingRule{
		{CourtID: "court-1", Kind: model.RuleWeekend, Multiplier: 1.5, Active: true},
		{CourtID: "court-1", Kind: model.RulePeakHours, Multiplier: 2.0, Start: "17:00", End: "21:00", Active: true},
		{CourtID: "court-1", Kind: model.RuleCustomDays, Multiplier: 1.8, DaysOfWeek: []int{4}, Active: false},
	}

	quote, err := Resolve(5000, rules, nil, w)
	require.NoError(t, err)
	require.Equal(t, 1.0, quote.Multiplier)
	require.Empty(t, quote.AppliedRules)
}

func TestResolveCustomDays(t *testing.T) {
	// Thursday is weekday 4.
	w := window("court-1", thursday, "10:00", "11:00")
	rules := []model.PricingRule{
		{CourtID: "court-1", Kind: model.RuleCustomDays, Multiplier: 1.3, DaysOfWeek: []int{4}, Active: true},
	}

	quote, err := Resolve(10000, rules, nil, w)
	require.NoError(t, err)
	require.Equal(t, 1.3, quote.Multiplier)
	require.Equal(t, int64(13000), quote.TotalCents)
}

func TestResolveOvernightSkipsPeak(t *testing.T) {
	w := model.Window{CourtID: "court-1", Date: saturday, Start: "23:00", End: "01:00", Overnight: true}
	rules := []model.PricingRule{
		{CourtID: "court-1", Kind: model.RulePeakHours, Multiplier: 2.0, Start: "00:00", End: "23:00", Active: true},
		{CourtID: "court-1", Kind: model.RuleWeekend, Multiplier: 1.5, Active: true},
	}

	quote, err := Resolve(4000, rules, nil, w)
	require.NoError(t, err)
	require.Equal(t, 2, quote.Hours)
	require.Equal(t, 1.5, quote.Multiplier)
	require.Equal(t, int64(12000), quote.TotalCents)
}

func TestResolveRoundsHalfUp(t *testing.T) {
	w := window("court-1", thursday, "10:00", "11:00")
	rules := []model.PricingRule{
		{CourtID: "court-1", Kind: model.RuleCustomDays, Multiplier: 1.15, DaysOfWeek: []int{4}, Active: true},
	}

	// 333 * 1.15 = 382.95, rounds to 383.
	quote, err := Resolve(333, rules, nil, w)
	require.NoError(t, err)
	require.Equal(t, int64(383), quote.TotalCents)
}

func TestResolveDeterministic(t *testing.T) {
	w := window("court-1", saturday, "09:00", "12:00")
	rules := []model.PricingRule{
		{CourtID: "court-1", Kind: model.RuleWeekend, Multiplier: 1.5, Active: true},
		{CourtID: "court-1", Kind: model.RulePeakHours, Multiplier: 1.2, Start: "08:00", End: "13:00", Active: true},
	}
	holiday := &model.Holiday{Date: saturday, Name: "Derby", Multiplier: 1.4, Active: true}

	first, err := Resolve(5000, rules, holiday, w)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := Resolve(5000, rules, holiday, w)
		require.NoError(t, err)
		require.Equal(t, first, again)
	}
}

func TestResolveRejectsBadInput(t *testing.T) {
	_, err := Resolve(5000, nil, nil, window("court-1", thursday, "10:30", "11:30"))
	require.True(t, apperrors.IsCode(err, apperrors.CodeInvalidWindow))

	_, err = Resolve(5000, nil, nil, window("court-1", thursday, "12:00", "10:00"))
	require.True(t, apperrors.IsCode(err, apperrors.CodeInvalidWindow))

	_, err = Resolve(0, nil, nil, window("court-1", thursday, "10:00", "11:00"))
	require.True(t, apperrors.IsCode(err, apperrors.CodeInvalidCourtConfig))
}

type stubSource struct {
	court   *model.Court
	rules   []model.PricingRule
	holiday *model.Holiday
	err     error
}

func (s *stubSource) GetCourt(ctx context.Context, id string) (*model.Court, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.court == nil {
		return nil, apperrors.NotFound("court")
	}
	return s.court, nil
}

func (s *stubSource) ActiveRulesForCourt(ctx context.Context, courtID string) ([]model.PricingRule, error) {
	return s.rules, s.err
}

func (s *stubSource) ActiveHolidayForDate(ctx context.Context, date string) (*model.Holiday, error) {
	return s.holiday, s.err
}

func TestQuoteWindowUsesCourtBasePrice(t *testing.T) {
	source := &stubSource{
		court: &model.Court{ID: "court-1", BasePriceCents: 5000, Status: model.CourtApproved, Active: true},
	}
	resolver := NewResolver(source, "USD", logger.NewNop())

	quote, err := resolver.QuoteWindow(context.Background(), window("court-1", thursday, "10:00", "12:00"))
	require.NoError(t, err)
	require.Equal(t, int64(10000), quote.TotalCents)
	require.Equal(t, "USD", quote.Currency)
}

func TestQuoteWindowRejectsUnbookableCourt(t *testing.T) {
	source := &stubSource{
		court: &model.Court{ID: "court-1", BasePriceCents: 5000, Status: model.CourtPending, Active: true},
	}
	resolver := NewResolver(source, "USD", logger.NewNop())

	_, err := resolver.QuoteWindow(context.Background(), window("court-1", thursday, "10:00", "12:00"))
	require.True(t, apperrors.IsCode(err, apperrors.CodeInvalidCourtConfig))
}
