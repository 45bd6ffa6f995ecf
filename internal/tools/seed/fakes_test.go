package seed

import (
	"context"
	"fmt"

	"github.com/ledgerline/commission/internal/commission/domain"
	"github.com/ledgerline/commission/internal/commission/storage"
	apperrors "github.com/ledgerline/commission/internal/platform/errors"
)

// fakeRuleSeeder satisfies ruleSeeder with in-memory state so tests can
// observe which rules and discounts a run creates.
type fakeRuleSeeder struct {
	rules     map[string]domain.Rule
	discounts []domain.MembershipDiscount

	upsertedRules     []domain.UpsertRuleInput
	upsertedDiscounts []domain.UpsertDiscountInput
}

func ruleMapKey(level, targetID string) string {
	return level + "|" + targetID
}

func (f *fakeRuleSeeder) GetRule(_ context.Context, level, targetID string) (domain.Rule, error) {
	if rule, ok := f.rules[ruleMapKey(level, targetID)]; ok {
		return rule, nil
	}
	return domain.Rule{}, apperrors.New(apperrors.CodeRuleNotFound, "commission rule not found")
}

func (f *fakeRuleSeeder) UpsertRule(_ context.Context, input domain.UpsertRuleInput) (domain.Rule, error) {
	if f.rules == nil {
		f.rules = make(map[string]domain.Rule)
	}
	rule := domain.Rule{
		ID:         fmt.Sprintf("rule-%d", len(f.rules)+1),
		Key:        domain.Key{Level: input.Level, TargetID: input.TargetID},
		Percentage: input.Percentage,
		Note:       input.Note,
		CreatedBy:  input.ActorID,
	}
	f.rules[ruleMapKey(string(input.Level), input.TargetID)] = rule
	f.upsertedRules = append(f.upsertedRules, input)
	return rule, nil
}

func (f *fakeRuleSeeder) ListMembershipDiscounts(context.Context) ([]domain.MembershipDiscount, error) {
	return f.discounts, nil
}

func (f *fakeRuleSeeder) UpsertMembershipDiscount(_ context.Context, input domain.UpsertDiscountInput) (domain.MembershipDiscount, error) {
	discount := domain.MembershipDiscount{
		ID:           fmt.Sprintf("disc-%d", len(f.discounts)+1),
		MembershipID: input.MembershipID,
		Percentage:   input.Percentage,
		Note:         input.Note,
		CreatedBy:    input.ActorID,
	}
	f.discounts = append(f.discounts, discount)
	f.upsertedDiscounts = append(f.upsertedDiscounts, input)
	return discount, nil
}

// fakeOrderSeeder satisfies orderSeeder with in-memory fixture state.
type fakeOrderSeeder struct {
	vendors    []storage.VendorRecord
	categories []storage.CategoryRecord
	orders     map[int64][]storage.OrderItemRecord
}

func (f *fakeOrderSeeder) PutVendor(_ context.Context, record storage.VendorRecord) error {
	f.vendors = append(f.vendors, record)
	return nil
}

func (f *fakeOrderSeeder) PutCategory(_ context.Context, record storage.CategoryRecord) error {
	f.categories = append(f.categories, record)
	return nil
}

func (f *fakeOrderSeeder) PutOrder(_ context.Context, order storage.OrderRecord, items []storage.OrderItemRecord) error {
	if f.orders == nil {
		f.orders = make(map[int64][]storage.OrderItemRecord)
	}
	f.orders[order.OrderID] = items
	return nil
}

func (f *fakeOrderSeeder) ListLineItemsByOrderIDs(_ context.Context, orderIDs []int64) ([]storage.LineItemRecord, error) {
	var records []storage.LineItemRecord
	for _, id := range orderIDs {
		for _, item := range f.orders[id] {
			records = append(records, storage.LineItemRecord{
				OrderID:    item.OrderID,
				ItemID:     item.ItemID,
				ProductID:  item.ProductID,
				VendorID:   item.VendorID,
				CategoryID: item.CategoryID,
				Price:      item.Price,
				Quantity:   item.Quantity,
			})
		}
	}
	return records, nil
}
