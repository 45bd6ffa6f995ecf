package admincli

import (
	"context"

	"github.com/ledgerline/commission/internal/commission/app"
	"github.com/ledgerline/commission/internal/commission/domain"
)

// commissionEngine abstracts the engine surface so tests can inject fakes.
type commissionEngine interface {
	Resolve(ctx context.Context, input domain.ResolveInput) (float64, error)
	GetRule(ctx context.Context, level string, targetID string) (domain.Rule, error)
	ListRules(ctx context.Context) ([]domain.Rule, error)
	UpsertRule(ctx context.Context, input domain.UpsertRuleInput) (domain.Rule, error)
	DeleteRule(ctx context.Context, input domain.DeleteRuleInput) error
	ListMembershipDiscounts(ctx context.Context) ([]domain.MembershipDiscount, error)
	UpsertMembershipDiscount(ctx context.Context, input domain.UpsertDiscountInput) (domain.MembershipDiscount, error)
	DeleteMembershipDiscount(ctx context.Context, input domain.DeleteDiscountInput) error
	BulkCalculate(ctx context.Context, orderIDs []int64, batchSize int) (domain.BatchResult, error)
	Analytics(ctx context.Context, input domain.AnalyticsInput) (domain.AnalyticsResult, error)
	ValidateConfiguration(ctx context.Context) (domain.ValidationResult, error)
	AuditLog(ctx context.Context, query app.AuditQuery) ([]domain.AuditEntry, error)
}
