package app

import (
	"context"
	"errors"
	"time"

	"github.com/ledgerline/commission/internal/commission/domain"
	"github.com/ledgerline/commission/internal/commission/storage"
)

// ruleStoreAdapter implements domain.RuleStore over the storage records,
// translating storage sentinels into domain sentinels.
type ruleStoreAdapter struct {
	store storage.RuleStore
}

func newRuleStoreAdapter(store storage.RuleStore) *ruleStoreAdapter {
	return &ruleStoreAdapter{store: store}
}

func (a *ruleStoreAdapter) GetRule(ctx context.Context, key domain.Key) (domain.Rule, error) {
	if a == nil || a.store == nil {
		return domain.Rule{}, domain.ErrStoreNotConfigured
	}
	record, err := a.store.GetRule(ctx, string(key.Level), key.TargetID)
	if err != nil {
		return domain.Rule{}, mapStorageError(err)
	}
	return toDomainRule(record), nil
}

func (a *ruleStoreAdapter) ListRules(ctx context.Context) ([]domain.Rule, error) {
	if a == nil || a.store == nil {
		return nil, domain.ErrStoreNotConfigured
	}
	records, err := a.store.ListRules(ctx)
	if err != nil {
		return nil, mapStorageError(err)
	}
	rules := make([]domain.Rule, 0, len(records))
	for _, record := range records {
		rules = append(rules, toDomainRule(record))
	}
	return rules, nil
}

func (a *ruleStoreAdapter) UpsertRule(ctx context.Context, rule domain.Rule, entry domain.AuditEntry) (domain.Rule, error) {
	if a == nil || a.store == nil {
		return domain.Rule{}, domain.ErrStoreNotConfigured
	}
	stored, err := a.store.UpsertRule(ctx, toStorageRule(rule), toStorageAuditEntry(entry))
	if err != nil {
		return domain.Rule{}, mapStorageError(err)
	}
	return toDomainRule(stored), nil
}

func (a *ruleStoreAdapter) DeleteRule(ctx context.Context, key domain.Key, entry domain.AuditEntry) error {
	if a == nil || a.store == nil {
		return domain.ErrStoreNotConfigured
	}
	return mapStorageError(a.store.DeleteRule(ctx, string(key.Level), key.TargetID, toStorageAuditEntry(entry)))
}

func (a *ruleStoreAdapter) GetMembershipDiscount(ctx context.Context, membershipID string) (domain.MembershipDiscount, error) {
	if a == nil || a.store == nil {
		return domain.MembershipDiscount{}, domain.ErrStoreNotConfigured
	}
	record, err := a.store.GetMembershipDiscount(ctx, membershipID)
	if err != nil {
		return domain.MembershipDiscount{}, mapStorageError(err)
	}
	return toDomainDiscount(record), nil
}

func (a *ruleStoreAdapter) ListMembershipDiscounts(ctx context.Context) ([]domain.MembershipDiscount, error) {
	if a == nil || a.store == nil {
		return nil, domain.ErrStoreNotConfigured
	}
	records, err := a.store.ListMembershipDiscounts(ctx)
	if err != nil {
		return nil, mapStorageError(err)
	}
	discounts := make([]domain.MembershipDiscount, 0, len(records))
	for _, record := range records {
		discounts = append(discounts, toDomainDiscount(record))
	}
	return discounts, nil
}

func (a *ruleStoreAdapter) UpsertMembershipDiscount(ctx context.Context, discount domain.MembershipDiscount, entry domain.AuditEntry) (domain.MembershipDiscount, error) {
	if a == nil || a.store == nil {
		return domain.MembershipDiscount{}, domain.ErrStoreNotConfigured
	}
	stored, err := a.store.UpsertMembershipDiscount(ctx, toStorageDiscount(discount), toStorageAuditEntry(entry))
	if err != nil {
		return domain.MembershipDiscount{}, mapStorageError(err)
	}
	return toDomainDiscount(stored), nil
}

func (a *ruleStoreAdapter) DeleteMembershipDiscount(ctx context.Context, membershipID string, entry domain.AuditEntry) error {
	if a == nil || a.store == nil {
		return domain.ErrStoreNotConfigured
	}
	return mapStorageError(a.store.DeleteMembershipDiscount(ctx, membershipID, toStorageAuditEntry(entry)))
}

// lineItemSourceAdapter implements domain.LineItemSource over the order
// read model.
type lineItemSourceAdapter struct {
	store storage.LineItemStore
}

func newLineItemSourceAdapter(store storage.LineItemStore) *lineItemSourceAdapter {
	return &lineItemSourceAdapter{store: store}
}

func (a *lineItemSourceAdapter) ListLineItemsByOrderIDs(ctx context.Context, orderIDs []int64) ([]domain.LineItem, error) {
	if a == nil || a.store == nil {
		return nil, domain.ErrStoreNotConfigured
	}
	records, err := a.store.ListLineItemsByOrderIDs(ctx, orderIDs)
	if err != nil {
		return nil, mapStorageError(err)
	}
	return toDomainLineItems(records), nil
}

func (a *lineItemSourceAdapter) ListLineItemsInWindow(ctx context.Context, start time.Time, end time.Time, vendorID string) ([]domain.LineItem, error) {
	if a == nil || a.store == nil {
		return nil, domain.ErrStoreNotConfigured
	}
	records, err := a.store.ListLineItemsInWindow(ctx, start, end, vendorID)
	if err != nil {
		return nil, mapStorageError(err)
	}
	return toDomainLineItems(records), nil
}

func toDomainRule(record storage.RuleRecord) domain.Rule {
	return domain.Rule{
		ID: record.ID,
		Key: domain.Key{
			Level:    domain.Level(record.Level),
			TargetID: record.TargetID,
		},
		Percentage: record.Percentage,
		Note:       record.Note,
		CreatedBy:  record.CreatedBy,
		CreatedAt:  record.CreatedAt,
		UpdatedAt:  record.UpdatedAt,
	}
}

func toStorageRule(rule domain.Rule) storage.RuleRecord {
	return storage.RuleRecord{
		ID:         rule.ID,
		Level:      string(rule.Key.Level),
		TargetID:   rule.Key.TargetID,
		Percentage: rule.Percentage,
		Note:       rule.Note,
		CreatedBy:  rule.CreatedBy,
		CreatedAt:  rule.CreatedAt,
		UpdatedAt:  rule.UpdatedAt,
	}
}

func toDomainDiscount(record storage.MembershipDiscountRecord) domain.MembershipDiscount {
	return domain.MembershipDiscount{
		ID:           record.ID,
		MembershipID: record.MembershipID,
		Percentage:   record.Percentage,
		Note:         record.Note,
		CreatedBy:    record.CreatedBy,
		CreatedAt:    record.CreatedAt,
		UpdatedAt:    record.UpdatedAt,
	}
}

func toStorageDiscount(discount domain.MembershipDiscount) storage.MembershipDiscountRecord {
	return storage.MembershipDiscountRecord{
		ID:           discount.ID,
		MembershipID: discount.MembershipID,
		Percentage:   discount.Percentage,
		Note:         discount.Note,
		CreatedBy:    discount.CreatedBy,
		CreatedAt:    discount.CreatedAt,
		UpdatedAt:    discount.UpdatedAt,
	}
}

func toStorageAuditEntry(entry domain.AuditEntry) storage.AuditEntryRecord {
	return storage.AuditEntryRecord{
		ID:          entry.ID,
		ActorID:     entry.ActorID,
		Action:      string(entry.Action),
		EntityType:  string(entry.EntityType),
		EntityID:    entry.EntityID,
		Description: entry.Description,
		Timestamp:   entry.Timestamp,
	}
}

func toDomainAuditEntry(record storage.AuditEntryRecord) domain.AuditEntry {
	return domain.AuditEntry{
		ID:          record.ID,
		ActorID:     record.ActorID,
		Action:      domain.AuditAction(record.Action),
		EntityType:  domain.AuditEntityType(record.EntityType),
		EntityID:    record.EntityID,
		Description: record.Description,
		Timestamp:   record.Timestamp,
	}
}

func toDomainLineItems(records []storage.LineItemRecord) []domain.LineItem {
	items := make([]domain.LineItem, 0, len(records))
	for _, record := range records {
		items = append(items, domain.LineItem{
			OrderID:      record.OrderID,
			ItemID:       record.ItemID,
			ProductID:    record.ProductID,
			VendorID:     record.VendorID,
			CategoryID:   record.CategoryID,
			VendorName:   record.VendorName,
			CategoryName: record.CategoryName,
			Price:        record.Price,
			Quantity:     record.Quantity,
			OrderedAt:    record.OrderedAt,
		})
	}
	return items
}

func mapStorageError(err error) error {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return domain.ErrNotFound
	case errors.Is(err, storage.ErrConflict):
		return domain.ErrConflict
	default:
		return err
	}
}
