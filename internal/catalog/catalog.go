package catalog

import (
	"context"
	"time"

	"github.com/clubledger/clubledger/internal/cache"
	"github.com/clubledger/clubledger/internal/config"
	ierr "github.com/clubledger/clubledger/internal/errors"
	"github.com/samber/lo"
)

// DiscountType is an enumerable discount option offered by the front desk
type DiscountType struct {
	Code        string `json:"code"`
	Name        string `json:"name"`
	MaxPercent  int    `json:"max_percent"`
	RequiresPin bool   `json:"requires_pin"`
}

// MembershipTier is an enumerable guest membership level
type MembershipTier struct {
	Code            string `json:"code"`
	Name            string `json:"name"`
	DiscountPercent int    `json:"discount_percent"`
}

// Service supplies the read-only option sets the console renders: discount
// types and membership tiers. These are configuration, not invoice state,
// and never participate in the mutation protocol.
type Service interface {
	ListDiscountTypes(ctx context.Context) []DiscountType
	GetDiscountType(ctx context.Context, code string) (*DiscountType, error)
	ListMembershipTiers(ctx context.Context) []MembershipTier
}

type service struct {
	cfg   *config.Configuration
	cache cache.Cache
}

const (
	cacheKeyDiscountTypes   = "catalog:discount_types"
	cacheKeyMembershipTiers = "catalog:membership_tiers"
	cacheTTL                = 10 * time.Minute
)

// NewService creates a catalog service seeded from configuration
func NewService(cfg *config.Configuration, cache cache.Cache) Service {
	return &service{
		cfg:   cfg,
		cache: cache,
	}
}

func (s *service) ListDiscountTypes(ctx context.Context) []DiscountType {
	if cached, ok := s.cache.Get(ctx, cacheKeyDiscountTypes); ok {
		if result, ok := cached.([]DiscountType); ok {
			return result
		}
	}

	result := lo.Map(s.cfg.Catalog.DiscountTypes, func(dt config.DiscountTypeConfig, _ int) DiscountType {
		return DiscountType{
			Code:        dt.Code,
			Name:        dt.Name,
			MaxPercent:  dt.MaxPercent,
			RequiresPin: dt.RequiresPin,
		}
	})

	s.cache.Set(ctx, cacheKeyDiscountTypes, result, cacheTTL)
	return result
}

func (s *service) GetDiscountType(ctx context.Context, code string) (*DiscountType, error) {
	dt, found := lo.Find(s.ListDiscountTypes(ctx), func(dt DiscountType) bool {
		return dt.Code == code
	})
	if !found {
		return nil, ierr.NewError("unknown discount type").
			WithHintf("Discount type %s is not configured", code).
			Mark(ierr.ErrNotFound)
	}
	return &dt, nil
}

func (s *service) ListMembershipTiers(ctx context.Context) []MembershipTier {
	if cached, ok := s.cache.Get(ctx, cacheKeyMembershipTiers); ok {
		if result, ok := cached.([]MembershipTier); ok {
			return result
		}
	}

	result := lo.Map(s.cfg.Catalog.MembershipTiers, func(mt config.MembershipTierConfig, _ int) MembershipTier {
		return MembershipTier{
			Code:            mt.Code,
			Name:            mt.Name,
			DiscountPercent: mt.DiscountPercent,
		}
	})

	s.cache.Set(ctx, cacheKeyMembershipTiers, result, cacheTTL)
	return result
}
