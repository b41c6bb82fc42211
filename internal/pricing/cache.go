package pricing

import (
	"context"
	"time"

	"courtside/pkg/model"

	gocache "github.com/patrickmn/go-cache"
)

// CachedSource fronts a CatalogSource with a seconds-scale cache. It
// smooths repeated reads on the quote, hold, and availability paths.
// Finalization must not read through it: the finalizer resolves against
// the uncached catalog so a hold/finalize pair is never priced from
// rules cached at hold time.
type CachedSource struct {
	source CatalogSource
	cache  *gocache.Cache
}

func NewCachedSource(source CatalogSource, ttl time.Duration) *CachedSource {
	return &CachedSource{
		source: source,
		cache:  gocache.New(ttl, 2*ttl),
	}
}

func (c *CachedSource) GetCourt(ctx context.Context, id string) (*model.Court, error) {
	key := "court:" + id
	if cached, found := c.cache.Get(key); found {
		return cached.(*model.Court), nil
	}

	court, err := c.source.GetCourt(ctx, id)
	if err != nil {
		return nil, err
	}
	c.cache.Set(key, court, gocache.DefaultExpiration)
	return court, nil
}

func (c *CachedSource) ActiveRulesForCourt(ctx context.Context, courtID string) ([]model.PricingRule, error) {
	key := "rules:" + courtID
	if cached, found := c.cache.Get(key); found {
		return cached.([]model.PricingRule), nil
	}

	rules, err := c.source.ActiveRulesForCourt(ctx, courtID)
	if err != nil {
		return nil, err
	}
	c.cache.Set(key, rules, gocache.DefaultExpiration)
	return rules, nil
}

func (c *CachedSource) ActiveHolidayForDate(ctx context.Context, date string) (*model.Holiday, error) {
	key := "holiday:" + date
	if cached, found := c.cache.Get(key); found {
		if cached == nil {
			return nil, nil
		}
		return cached.(*model.Holiday), nil
	}

	holiday, err := c.source.ActiveHolidayForDate(ctx, date)
	if err != nil {
		return nil, err
	}
	// Absent holidays are cached too; most dates are not holidays.
	if holiday == nil {
		c.cache.Set(key, nil, gocache.DefaultExpiration)
		return nil, nil
	}
	c.cache.Set(key, holiday, gocache.DefaultExpiration)
	return holiday, nil
}
