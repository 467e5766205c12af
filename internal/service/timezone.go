package service

import (
	"context"
	"time"

	"github.com/rentwise/rentwise/internal/cache"
	"github.com/rentwise/rentwise/internal/types"
)

// TimezoneResolver returns the location an organization runs its business day in
type TimezoneResolver interface {
	// Resolve never fails. Organizations without a usable timezone get the
	// configured default.
	Resolve(ctx context.Context, orgID string) *time.Location
}

type timezoneResolver struct {
	ServiceParams
	fallback *time.Location
}

func NewTimezoneResolver(params ServiceParams) (TimezoneResolver, error) {
	fallback, err := types.LoadLocation(params.Config.RecurringBills.DefaultTimezone)
	if err != nil {
		return nil, err
	}
	return &timezoneResolver{
		ServiceParams: params,
		fallback:      fallback,
	}, nil
}

func (r *timezoneResolver) Resolve(ctx context.Context, orgID string) *time.Location {
	key := cache.GenerateKey(cache.PrefixOrganizationTimezone, orgID)
	if cached, found := r.Cache.Get(ctx, key); found {
		if loc, ok := cached.(*time.Location); ok {
			return loc
		}
	}

	loc := r.lookup(ctx, orgID)
	r.Cache.Set(ctx, key, loc, r.Config.RecurringBills.TimezoneCacheTTL)
	return loc
}

func (r *timezoneResolver) lookup(ctx context.Context, orgID string) *time.Location {
	name, err := r.OrganizationRepo.GetTimezone(ctx, orgID)
	if err != nil {
		r.Logger.Warnw("failed to read organization timezone, using default",
			"org_id", orgID,
			"default_timezone", r.fallback.String(),
			"error", err,
		)
		return r.fallback
	}
	if name == "" {
		return r.fallback
	}

	loc, err := types.LoadLocation(name)
	if err != nil {
		r.Logger.Warnw("organization has an unknown timezone, using default",
			"org_id", orgID,
			"timezone", name,
			"default_timezone", r.fallback.String(),
		)
		return r.fallback
	}
	return loc
}
