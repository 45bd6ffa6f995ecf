package domain

import (
	"context"
	"errors"
	"strings"
)

// ErrGlobalRuleNotConfigured indicates the override chain was exhausted
// without a marketplace default. It marks a misconfigured system, not an
// invalid request.
var ErrGlobalRuleNotConfigured = errors.New("global commission rule is not configured")

// ResolveInput identifies the sale context one commission rate is resolved
// for. Empty ids skip their level of the chain; MembershipID is optional.
type ResolveInput struct {
	ProductID    string
	VendorID     string
	CategoryID   string
	MembershipID string
}

// RateResolver resolves the effective commission percentage for one sale.
type RateResolver interface {
	Resolve(ctx context.Context, input ResolveInput) (float64, error)
}

// Resolver walks the override chain product, vendor, category, global and
// stops at the first configured rule. A membership discount is subtracted
// from the base rate, clamped at zero.
type Resolver struct {
	rules RuleReader
}

// NewResolver returns a Resolver reading rules from the given store.
func NewResolver(rules RuleReader) *Resolver {
	return &Resolver{rules: rules}
}

// Resolve returns the effective commission percentage for the sale context.
// A missing rule at any non-global level is normal fallthrough; only a
// missing global default is an error.
func (r *Resolver) Resolve(ctx context.Context, input ResolveInput) (float64, error) {
	if r == nil || r.rules == nil {
		return 0, ErrStoreNotConfigured
	}

	base, err := r.resolveBase(ctx, input)
	if err != nil {
		return 0, err
	}

	membershipID := strings.TrimSpace(input.MembershipID)
	if membershipID == "" {
		return base, nil
	}

	discount, err := r.rules.GetMembershipDiscount(ctx, membershipID)
	if errors.Is(err, ErrNotFound) {
		return base, nil
	}
	if err != nil {
		return 0, err
	}

	effective := base - discount.Percentage
	if effective < 0 {
		effective = 0
	}
	return effective, nil
}

// resolveBase returns the first configured percentage along the chain.
// Levels whose id is absent from the input are skipped without a lookup.
func (r *Resolver) resolveBase(ctx context.Context, input ResolveInput) (float64, error) {
	chain := []Key{
		ProductKey(strings.TrimSpace(input.ProductID)),
		VendorKey(strings.TrimSpace(input.VendorID)),
		CategoryKey(strings.TrimSpace(input.CategoryID)),
		GlobalKey(),
	}

	for _, key := range chain {
		if key.Level != LevelGlobal && key.TargetID == "" {
			continue
		}

		rule, err := r.rules.GetRule(ctx, key)
		if err == nil {
			return rule.Percentage, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return 0, err
		}
		if key.Level == LevelGlobal {
			return 0, ErrGlobalRuleNotConfigured
		}
	}

	return 0, ErrGlobalRuleNotConfigured
}
