package seed

import (
	"context"

	"github.com/ledgerline/commission/internal/commission/domain"
	"github.com/ledgerline/commission/internal/commission/storage"
)

// ruleSeeder is the engine surface the seeder drives. Tests inject fakes.
type ruleSeeder interface {
	GetRule(ctx context.Context, level string, targetID string) (domain.Rule, error)
	UpsertRule(ctx context.Context, input domain.UpsertRuleInput) (domain.Rule, error)
	ListMembershipDiscounts(ctx context.Context) ([]domain.MembershipDiscount, error)
	UpsertMembershipDiscount(ctx context.Context, input domain.UpsertDiscountInput) (domain.MembershipDiscount, error)
}

// orderSeeder extends the fixture writer with the lookup used to keep
// existing orders untouched across runs.
type orderSeeder interface {
	storage.OrderSeedStore
	ListLineItemsByOrderIDs(ctx context.Context, orderIDs []int64) ([]storage.LineItemRecord, error)
}
