package service

import (
	"context"
	"errors"

	catalogerrors "courtside/internal/catalog/errors"
	"courtside/internal/catalog/repository"
	"courtside/internal/catalog/validator"
	"courtside/pkg/config"
	apperrors "courtside/pkg/errors"
	"courtside/pkg/model"
)

// CatalogService manages courts, pricing rules, and holidays. It also
// serves as the read surface the pricing resolver consumes, so every
// price in the system is computed from the same records this service
// administers.
type CatalogService interface {
	CreateCourt(ctx context.Context, court *model.Court) error
	GetCourt(ctx context.Context, id string) (*model.Court, error)
	ListCourts(ctx context.Context, ownerID string, limit int, offset int64) ([]*model.Court, int64, error)
	UpdateCourt(ctx context.Context, id string, updates *model.CourtUpdate) (*model.Court, error)

	CreateRule(ctx context.Context, rule *model.PricingRule) error
	ListRules(ctx context.Context, courtID string) ([]*model.PricingRule, error)
	SetRuleActive(ctx context.Context, id string, active bool) error
	DeleteRule(ctx context.Context, id string) error

	CreateHoliday(ctx context.Context, holiday *model.Holiday) error
	ListHolidays(ctx context.Context, limit int, offset int64) ([]*model.Holiday, int64, error)
	DeleteHoliday(ctx context.Context, id string) error

	ActiveRulesForCourt(ctx context.Context, courtID string) ([]model.PricingRule, error)
	ActiveHolidayForDate(ctx context.Context, date string) (*model.Holiday, error)
}

type catalogService struct {
	courts    repository.CourtRepository
	rules     repository.RuleRepository
	holidays  repository.HolidayRepository
	validator *validator.CatalogValidator
	cfg       *config.Config
}

func NewCatalogService(
	courts repository.CourtRepository,
	rules repository.RuleRepository,
	holidays repository.HolidayRepository,
	catalogValidator *validator.CatalogValidator,
	cfg *config.Config,
) CatalogService {
	return &catalogService{
		courts:    courts,
		rules:     rules,
		holidays:  holidays,
		validator: catalogValidator,
		cfg:       cfg,
	}
}

func (s *catalogService) CreateCourt(ctx context.Context, court *model.Court) error {
	if court.Status == "" {
		court.Status = model.CourtPending
	}
	if err := s.validator.ValidateCourt(court); err != nil {
		s.cfg.Log.Warn("Court validation failed", "error", err)
		return apperrors.Validation("Court validation failed", map[string]any{"error": err.Error()})
	}

	if err := s.courts.Create(ctx, court); err != nil {
		s.cfg.Log.Error("Failed to create court", "error", err)
		return apperrors.Internal("Failed to create court", err)
	}

	s.cfg.Log.Info("Court created", "id", court.ID, "name", court.Name, "owner_id", court.OwnerID)
	return nil
}

func (s *catalogService) GetCourt(ctx context.Context, id string) (*model.Court, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Court ID cannot be empty")
	}

	court, err := s.courts.FindByID(ctx, id)
	if err != nil {
		return nil, translateLookupError(err, "Court", id)
	}
	return court, nil
}

// ListCourts lists all courts, or only those of one owner when ownerID
// is set.
func (s *catalogService) ListCourts(ctx context.Context, ownerID string, limit int, offset int64) ([]*model.Court, int64, error) {
	count, err := s.courts.Count(ctx, ownerID)
	if err != nil {
		return nil, 0, apperrors.Internal("Failed to count courts", err)
	}
	courts, err := s.courts.FindAll(ctx, ownerID, limit, offset)
	if err != nil {
		return nil, 0, apperrors.Internal("Failed to retrieve courts", err)
	}
	return courts, count, nil
}

func (s *catalogService) UpdateCourt(ctx context.Context, id string, updates *model.CourtUpdate) (*model.Court, error) {
	existing, err := s.GetCourt(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.validator.ValidateCourtUpdate(updates); err != nil {
		s.cfg.Log.Warn("Court update validation failed", "id", id, "error", err)
		return nil, apperrors.Validation("Invalid update input", map[string]any{"error": err.Error()})
	}

	merged := s.mergeCourtUpdates(existing, updates)
	if err := s.validator.ValidateCourt(merged); err != nil {
		return nil, apperrors.Validation("Court validation failed", map[string]any{"error": err.Error()})
	}

	if err := s.courts.Update(ctx, id, merged); err != nil {
		if errors.Is(err, catalogerrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Court", id)
		}
		s.cfg.Log.Error("Failed to update court", "id", id, "error", err)
		return nil, apperrors.Internal("Failed to update court", err)
	}

	s.cfg.Log.Info("Court updated", "id", id)
	return merged, nil
}

func (s *catalogService) mergeCourtUpdates(existing *model.Court, updates *model.CourtUpdate) *model.Court {
	merged := *existing

	if updates.Name != "" {
		merged.Name = updates.Name
	}
	if updates.BasePriceCents != nil {
		merged.BasePriceCents = *updates.BasePriceCents
	}
	if updates.OpenHour != "" {
		merged.OpenHour = updates.OpenHour
	}
	if updates.CloseHour != "" {
		merged.CloseHour = updates.CloseHour
	}
	if updates.Status != "" {
		merged.Status = updates.Status
	}
	if updates.Active != nil {
		merged.Active = *updates.Active
	}

	return &merged
}

func (s *catalogService) CreateRule(ctx context.Context, rule *model.PricingRule) error {
	if err := s.validator.ValidateRule(rule); err != nil {
		s.cfg.Log.Warn("Pricing rule validation failed", "court_id", rule.CourtID, "error", err)
		return apperrors.Validation("Pricing rule validation failed", map[string]any{"error": err.Error()})
	}

	if _, err := s.GetCourt(ctx, rule.CourtID); err != nil {
		return err
	}

	if err := s.rules.Create(ctx, rule); err != nil {
		s.cfg.Log.Error("Failed to create pricing rule", "court_id", rule.CourtID, "error", err)
		return apperrors.Internal("Failed to create pricing rule", err)
	}

	s.cfg.Log.Info("Pricing rule created",
		"id", rule.ID,
		"court_id", rule.CourtID,
		"kind", rule.Kind,
		"multiplier", rule.Multiplier,
	)
	return nil
}

func (s *catalogService) ListRules(ctx context.Context, courtID string) ([]*model.PricingRule, error) {
	if courtID == "" {
		return nil, apperrors.InvalidInput("Court ID cannot be empty")
	}

	rules, err := s.rules.FindByCourt(ctx, courtID, false)
	if err != nil {
		return nil, apperrors.Internal("Failed to retrieve pricing rules", err)
	}
	return rules, nil
}

func (s *catalogService) SetRuleActive(ctx context.Context, id string, active bool) error {
	if err := s.rules.SetActive(ctx, id, active); err != nil {
		return translateLookupError(err, "Pricing rule", id)
	}
	s.cfg.Log.Info("Pricing rule toggled", "id", id, "active", active)
	return nil
}

func (s *catalogService) DeleteRule(ctx context.Context, id string) error {
	if err := s.rules.Delete(ctx, id); err != nil {
		return translateLookupError(err, "Pricing rule", id)
	}
	s.cfg.Log.Info("Pricing rule deleted", "id", id)
	return nil
}

func (s *catalogService) CreateHoliday(ctx context.Context, holiday *model.Holiday) error {
	if err := s.validator.ValidateHoliday(holiday); err != nil {
		s.cfg.Log.Warn("Holiday validation failed", "date", holiday.Date, "error", err)
		return apperrors.Validation("Holiday validation failed", map[string]any{"error": err.Error()})
	}

	if err := s.holidays.Create(ctx, holiday); err != nil {
		s.cfg.Log.Error("Failed to create holiday", "date", holiday.Date, "error", err)
		return apperrors.Internal("Failed to create holiday", err)
	}

	s.cfg.Log.Info("Holiday created", "id", holiday.ID, "date", holiday.Date, "name", holiday.Name)
	return nil
}

func (s *catalogService) ListHolidays(ctx context.Context, limit int, offset int64) ([]*model.Holiday, int64, error) {
	count, err := s.holidays.Count(ctx)
	if err != nil {
		return nil, 0, apperrors.Internal("Failed to count holidays", err)
	}
	holidays, err := s.holidays.FindAll(ctx, limit, offset)
	if err != nil {
		return nil, 0, apperrors.Internal("Failed to retrieve holidays", err)
	}
	return holidays, count, nil
}

func (s *catalogService) DeleteHoliday(ctx context.Context, id string) error {
	if err := s.holidays.Delete(ctx, id); err != nil {
		return translateLookupError(err, "Holiday", id)
	}
	s.cfg.Log.Info("Holiday deleted", "id", id)
	return nil
}

// ActiveRulesForCourt is the resolver-facing read: active rules only,
// as values.
func (s *catalogService) ActiveRulesForCourt(ctx context.Context, courtID string) ([]model.PricingRule, error) {
	rules, err := s.rules.FindByCourt(ctx, courtID, true)
	if err != nil {
		return nil, apperrors.StoreUnavailable(err)
	}

	out := make([]model.PricingRule, 0, len(rules))
	for _, r := range rules {
		out = append(out, *r)
	}
	return out, nil
}

func (s *catalogService) ActiveHolidayForDate(ctx context.Context, date string) (*model.Holiday, error) {
	holiday, err := s.holidays.FindActiveByDate(ctx, date)
	if err != nil {
		return nil, apperrors.StoreUnavailable(err)
	}
	return holiday, nil
}

func translateLookupError(err error, resource, id string) error {
	if errors.Is(err, catalogerrors.ErrNotFound) {
		return apperrors.NotFoundWithID(resource, id)
	}
	if errors.Is(err, catalogerrors.ErrInvalidID) {
		return apperrors.InvalidInput("Invalid " + resource + " ID format")
	}
	return apperrors.Internal("Failed to access "+resource, err)
}
