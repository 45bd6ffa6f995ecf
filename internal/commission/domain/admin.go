package domain

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ledgerline/commission/internal/platform/id"
)

// UpsertRuleInput describes one rule create-or-update request.
type UpsertRuleInput struct {
	Level      Level
	TargetID   string
	Percentage float64
	Note       string
	ActorID    string
}

// DeleteRuleInput identifies one rule to remove.
type DeleteRuleInput struct {
	Level    Level
	TargetID string
	ActorID  string
}

// UpsertDiscountInput describes one membership discount create-or-update
// request.
type UpsertDiscountInput struct {
	MembershipID string
	Percentage   float64
	Note         string
	ActorID      string
}

// DeleteDiscountInput identifies one membership discount to remove.
type DeleteDiscountInput struct {
	MembershipID string
	ActorID      string
}

// Admin owns the audited rule and discount lifecycle. Every mutation writes
// an audit entry atomically with the data change; a failed audit write fails
// the whole operation.
type Admin struct {
	store RuleStore
	clock func() time.Time
	newID func() (string, error)
}

// NewAdmin returns an Admin backed by the given store. A nil clock defaults
// to time.Now and a nil id generator to id.NewID.
func NewAdmin(store RuleStore, clock func() time.Time, newID func() (string, error)) *Admin {
	if clock == nil {
		clock = time.Now
	}
	if newID == nil {
		newID = id.NewID
	}
	return &Admin{store: store, clock: clock, newID: newID}
}

// GetRule returns the rule stored at one key.
func (a *Admin) GetRule(ctx context.Context, key Key) (Rule, error) {
	if a == nil || a.store == nil {
		return Rule{}, ErrStoreNotConfigured
	}
	key.TargetID = strings.TrimSpace(key.TargetID)
	if err := key.Validate(); err != nil {
		return Rule{}, err
	}
	return a.store.GetRule(ctx, key)
}

// ListRules returns every stored rule.
func (a *Admin) ListRules(ctx context.Context) ([]Rule, error) {
	if a == nil || a.store == nil {
		return nil, ErrStoreNotConfigured
	}
	return a.store.ListRules(ctx)
}

// UpsertRule creates or updates the rule at (level, target). Updates keep
// the stored identity and creation metadata; only percentage, note, and
// UpdatedAt move.
func (a *Admin) UpsertRule(ctx context.Context, input UpsertRuleInput) (Rule, error) {
	if a == nil || a.store == nil {
		return Rule{}, ErrStoreNotConfigured
	}

	key := Key{Level: input.Level, TargetID: strings.TrimSpace(input.TargetID)}
	if err := key.Validate(); err != nil {
		return Rule{}, err
	}
	if err := validatePercentage(input.Percentage); err != nil {
		return Rule{}, err
	}
	actorID := strings.TrimSpace(input.ActorID)
	if actorID == "" {
		return Rule{}, ErrActorIDRequired
	}

	existing, err := a.store.GetRule(ctx, key)
	exists := err == nil
	if err != nil && !errors.Is(err, ErrNotFound) {
		return Rule{}, err
	}

	ruleID, err := a.newID()
	if err != nil {
		return Rule{}, err
	}
	now := a.clock().UTC()
	rule := Rule{
		ID:         ruleID,
		Key:        key,
		Percentage: input.Percentage,
		Note:       strings.TrimSpace(input.Note),
		CreatedBy:  actorID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	action := AuditActionCreate
	entityID := rule.ID
	description := fmt.Sprintf("created %s at %s%%", describeKey(key), formatPercent(rule.Percentage))
	if exists {
		action = AuditActionUpdate
		entityID = existing.ID
		description = fmt.Sprintf("updated %s from %s%% to %s%%",
			describeKey(key), formatPercent(existing.Percentage), formatPercent(rule.Percentage))
	}

	entry, err := a.newAuditEntry(actorID, action, AuditEntityRule, entityID, description)
	if err != nil {
		return Rule{}, err
	}
	return a.store.UpsertRule(ctx, rule, entry)
}

// DeleteRule removes the rule at (level, target). Deleting a key that never
// held a rule returns ErrNotFound and writes nothing.
func (a *Admin) DeleteRule(ctx context.Context, input DeleteRuleInput) error {
	if a == nil || a.store == nil {
		return ErrStoreNotConfigured
	}

	key := Key{Level: input.Level, TargetID: strings.TrimSpace(input.TargetID)}
	if err := key.Validate(); err != nil {
		return err
	}
	actorID := strings.TrimSpace(input.ActorID)
	if actorID == "" {
		return ErrActorIDRequired
	}

	existing, err := a.store.GetRule(ctx, key)
	if err != nil {
		return err
	}

	description := fmt.Sprintf("deleted %s, was %s%%", describeKey(key), formatPercent(existing.Percentage))
	entry, err := a.newAuditEntry(actorID, AuditActionDelete, AuditEntityRule, existing.ID, description)
	if err != nil {
		return err
	}
	return a.store.DeleteRule(ctx, key, entry)
}

// GetMembershipDiscount returns the discount stored for one membership tier.
func (a *Admin) GetMembershipDiscount(ctx context.Context, membershipID string) (MembershipDiscount, error) {
	if a == nil || a.store == nil {
		return MembershipDiscount{}, ErrStoreNotConfigured
	}
	membershipID = strings.TrimSpace(membershipID)
	if membershipID == "" {
		return MembershipDiscount{}, ErrMembershipIDRequired
	}
	return a.store.GetMembershipDiscount(ctx, membershipID)
}

// ListMembershipDiscounts returns every stored membership discount.
func (a *Admin) ListMembershipDiscounts(ctx context.Context) ([]MembershipDiscount, error) {
	if a == nil || a.store == nil {
		return nil, ErrStoreNotConfigured
	}
	return a.store.ListMembershipDiscounts(ctx)
}

// UpsertMembershipDiscount creates or updates the discount for one
// membership tier, mirroring the rule upsert semantics.
func (a *Admin) UpsertMembershipDiscount(ctx context.Context, input UpsertDiscountInput) (MembershipDiscount, error) {
	if a == nil || a.store == nil {
		return MembershipDiscount{}, ErrStoreNotConfigured
	}

	membershipID := strings.TrimSpace(input.MembershipID)
	if membershipID == "" {
		return MembershipDiscount{}, ErrMembershipIDRequired
	}
	if err := validatePercentage(input.Percentage); err != nil {
		return MembershipDiscount{}, err
	}
	actorID := strings.TrimSpace(input.ActorID)
	if actorID == "" {
		return MembershipDiscount{}, ErrActorIDRequired
	}

	existing, err := a.store.GetMembershipDiscount(ctx, membershipID)
	exists := err == nil
	if err != nil && !errors.Is(err, ErrNotFound) {
		return MembershipDiscount{}, err
	}

	discountID, err := a.newID()
	if err != nil {
		return MembershipDiscount{}, err
	}
	now := a.clock().UTC()
	discount := MembershipDiscount{
		ID:           discountID,
		MembershipID: membershipID,
		Percentage:   input.Percentage,
		Note:         strings.TrimSpace(input.Note),
		CreatedBy:    actorID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	action := AuditActionCreate
	entityID := discount.ID
	description := fmt.Sprintf("created %s membership discount at %s%%",
		membershipID, formatPercent(discount.Percentage))
	if exists {
		action = AuditActionUpdate
		entityID = existing.ID
		description = fmt.Sprintf("updated %s membership discount from %s%% to %s%%",
			membershipID, formatPercent(existing.Percentage), formatPercent(discount.Percentage))
	}

	entry, err := a.newAuditEntry(actorID, action, AuditEntityDiscount, entityID, description)
	if err != nil {
		return MembershipDiscount{}, err
	}
	return a.store.UpsertMembershipDiscount(ctx, discount, entry)
}

// DeleteMembershipDiscount removes the discount for one membership tier.
func (a *Admin) DeleteMembershipDiscount(ctx context.Context, input DeleteDiscountInput) error {
	if a == nil || a.store == nil {
		return ErrStoreNotConfigured
	}

	membershipID := strings.TrimSpace(input.MembershipID)
	if membershipID == "" {
		return ErrMembershipIDRequired
	}
	actorID := strings.TrimSpace(input.ActorID)
	if actorID == "" {
		return ErrActorIDRequired
	}

	existing, err := a.store.GetMembershipDiscount(ctx, membershipID)
	if err != nil {
		return err
	}

	description := fmt.Sprintf("deleted %s membership discount, was %s%%",
		membershipID, formatPercent(existing.Percentage))
	entry, err := a.newAuditEntry(actorID, AuditActionDelete, AuditEntityDiscount, existing.ID, description)
	if err != nil {
		return err
	}
	return a.store.DeleteMembershipDiscount(ctx, membershipID, entry)
}

func (a *Admin) newAuditEntry(actorID string, action AuditAction, entityType AuditEntityType, entityID, description string) (AuditEntry, error) {
	entryID, err := a.newID()
	if err != nil {
		return AuditEntry{}, err
	}
	return AuditEntry{
		ID:          entryID,
		ActorID:     actorID,
		Action:      action,
		EntityType:  entityType,
		EntityID:    entityID,
		Description: description,
		Timestamp:   a.clock().UTC(),
	}, nil
}

func describeKey(key Key) string {
	if key.Level == LevelGlobal {
		return "global rule"
	}
	return fmt.Sprintf("%s rule for %s", key.Level, key.TargetID)
}

func formatPercent(pct float64) string {
	return strconv.FormatFloat(pct, 'f', -1, 64)
}
