// Package domain implements marketplace commission behavior: layered rate
// resolution, bulk order calculation, windowed analytics, configuration
// validation, and the audited rule lifecycle. Persistence stays behind the
// interfaces declared here so the engine can wire any backing store.
package domain

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	// ErrNotFound indicates no rule or discount exists at the requested key.
	ErrNotFound = errors.New("commission record not found")
	// ErrConflict indicates a write collided with an existing record.
	ErrConflict = errors.New("commission record conflict")
	// ErrStoreNotConfigured indicates the service has no persistence wired.
	ErrStoreNotConfigured = errors.New("commission store is not configured")
	// ErrLevelInvalid indicates a level outside the override chain.
	ErrLevelInvalid = errors.New("commission level is invalid")
	// ErrTargetRequired indicates a product, vendor, or category key without
	// a target entity.
	ErrTargetRequired = errors.New("target id is required for this level")
	// ErrTargetForbidden indicates a global key carrying a target entity.
	ErrTargetForbidden = errors.New("global rules cannot target an entity")
	// ErrPercentageOutOfRange indicates a percentage outside [0, 100].
	ErrPercentageOutOfRange = errors.New("percentage must be between 0 and 100")
	// ErrMembershipIDRequired indicates a discount without a membership tier.
	ErrMembershipIDRequired = errors.New("membership id is required")
	// ErrActorIDRequired indicates a mutation without an acting admin.
	ErrActorIDRequired = errors.New("actor id is required")
	// ErrIDGeneratorExhausted indicates a fixed test ID sequence ran out.
	ErrIDGeneratorExhausted = errors.New("commission id generator exhausted")
)

// Level is one rung of the commission override chain. Resolution walks the
// rungs from most to least specific.
type Level string

const (
	LevelProduct  Level = "product"
	LevelVendor   Level = "vendor"
	LevelCategory Level = "category"
	LevelGlobal   Level = "global"
)

// Valid reports whether the level is one of the four chain rungs.
func (l Level) Valid() bool {
	switch l {
	case LevelProduct, LevelVendor, LevelCategory, LevelGlobal:
		return true
	default:
		return false
	}
}

// Key addresses one rule slot: a level plus the entity it targets. Global is
// the only level without a target, and each key holds at most one rule.
type Key struct {
	Level    Level
	TargetID string
}

// ProductKey addresses the rule for one product.
func ProductKey(productID string) Key {
	return Key{Level: LevelProduct, TargetID: productID}
}

// VendorKey addresses the rule for one vendor.
func VendorKey(vendorID string) Key {
	return Key{Level: LevelVendor, TargetID: vendorID}
}

// CategoryKey addresses the rule for one category.
func CategoryKey(categoryID string) Key {
	return Key{Level: LevelCategory, TargetID: categoryID}
}

// GlobalKey addresses the marketplace-wide default rule.
func GlobalKey() Key {
	return Key{Level: LevelGlobal}
}

// Validate rejects unknown levels, targetless non-global keys, and targeted
// global keys.
func (k Key) Validate() error {
	if !k.Level.Valid() {
		return ErrLevelInvalid
	}
	target := strings.TrimSpace(k.TargetID)
	if k.Level == LevelGlobal {
		if target != "" {
			return ErrTargetForbidden
		}
		return nil
	}
	if target == "" {
		return ErrTargetRequired
	}
	return nil
}

// Rule is one commission override. Percentage is the rate applied to a line
// item's gross, expressed in [0, 100].
type Rule struct {
	ID         string
	Key        Key
	Percentage float64
	Note       string
	CreatedBy  string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// MembershipDiscount reduces the resolved commission rate for vendors on one
// membership tier. The reduction is clamped so the effective rate never goes
// below zero.
type MembershipDiscount struct {
	ID           string
	MembershipID string
	Percentage   float64
	Note         string
	CreatedBy    string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func validatePercentage(pct float64) error {
	if pct < 0 || pct > 100 {
		return ErrPercentageOutOfRange
	}
	return nil
}

// RuleReader is the point lookup surface the resolver consumes.
type RuleReader interface {
	GetRule(ctx context.Context, key Key) (Rule, error)
	GetMembershipDiscount(ctx context.Context, membershipID string) (MembershipDiscount, error)
}

// RuleScanner is the full scan surface the configuration validator consumes.
type RuleScanner interface {
	ListRules(ctx context.Context) ([]Rule, error)
	ListMembershipDiscounts(ctx context.Context) ([]MembershipDiscount, error)
}

// RuleStore is the persistence boundary for the rule lifecycle. Mutating
// methods commit the supplied audit entry in the same transaction as the
// data change: either both land or neither does. Upserts that hit an
// existing key keep the stored ID, CreatedAt, and CreatedBy and return the
// record as stored.
type RuleStore interface {
	RuleReader
	RuleScanner
	UpsertRule(ctx context.Context, rule Rule, entry AuditEntry) (Rule, error)
	DeleteRule(ctx context.Context, key Key, entry AuditEntry) error
	UpsertMembershipDiscount(ctx context.Context, discount MembershipDiscount, entry AuditEntry) (MembershipDiscount, error)
	DeleteMembershipDiscount(ctx context.Context, membershipID string, entry AuditEntry) error
}
