package admincli

import (
	"context"
	"fmt"

	"github.com/ledgerline/commission/internal/commission/app"
	"github.com/ledgerline/commission/internal/commission/domain"
)

// fakeEngine satisfies commissionEngine with injectable function fields for
// methods exercised by tests. Methods without an injectable field return
// "not implemented".
type fakeEngine struct {
	resolve        func(ctx context.Context, input domain.ResolveInput) (float64, error)
	getRule        func(ctx context.Context, level, targetID string) (domain.Rule, error)
	listRules      func(ctx context.Context) ([]domain.Rule, error)
	upsertRule     func(ctx context.Context, input domain.UpsertRuleInput) (domain.Rule, error)
	deleteRule     func(ctx context.Context, input domain.DeleteRuleInput) error
	listDiscounts  func(ctx context.Context) ([]domain.MembershipDiscount, error)
	upsertDiscount func(ctx context.Context, input domain.UpsertDiscountInput) (domain.MembershipDiscount, error)
	deleteDiscount func(ctx context.Context, input domain.DeleteDiscountInput) error
	bulkCalculate  func(ctx context.Context, orderIDs []int64, batchSize int) (domain.BatchResult, error)
	analytics      func(ctx context.Context, input domain.AnalyticsInput) (domain.AnalyticsResult, error)
	validate       func(ctx context.Context) (domain.ValidationResult, error)
	auditLog       func(ctx context.Context, query app.AuditQuery) ([]domain.AuditEntry, error)
}

func (f *fakeEngine) Resolve(ctx context.Context, input domain.ResolveInput) (float64, error) {
	if f.resolve == nil {
		return 0, fmt.Errorf("not implemented")
	}
	return f.resolve(ctx, input)
}

func (f *fakeEngine) GetRule(ctx context.Context, level, targetID string) (domain.Rule, error) {
	if f.getRule == nil {
		return domain.Rule{}, fmt.Errorf("not implemented")
	}
	return f.getRule(ctx, level, targetID)
}

func (f *fakeEngine) ListRules(ctx context.Context) ([]domain.Rule, error) {
	if f.listRules == nil {
		return nil, fmt.Errorf("not implemented")
	}
	return f.listRules(ctx)
}

func (f *fakeEngine) UpsertRule(ctx context.Context, input domain.UpsertRuleInput) (domain.Rule, error) {
	if f.upsertRule == nil {
		return domain.Rule{}, fmt.Errorf("not implemented")
	}
	return f.upsertRule(ctx, input)
}

func (f *fakeEngine) DeleteRule(ctx context.Context, input domain.DeleteRuleInput) error {
	if f.deleteRule == nil {
		return fmt.Errorf("not implemented")
	}
	return f.deleteRule(ctx, input)
}

func (f *fakeEngine) ListMembershipDiscounts(ctx context.Context) ([]domain.MembershipDiscount, error) {
	if f.listDiscounts == nil {
		return nil, fmt.Errorf("not implemented")
	}
	return f.listDiscounts(ctx)
}

func (f *fakeEngine) UpsertMembershipDiscount(ctx context.Context, input domain.UpsertDiscountInput) (domain.MembershipDiscount, error) {
	if f.upsertDiscount == nil {
		return domain.MembershipDiscount{}, fmt.Errorf("not implemented")
	}
	return f.upsertDiscount(ctx, input)
}

func (f *fakeEngine) DeleteMembershipDiscount(ctx context.Context, input domain.DeleteDiscountInput) error {
	if f.deleteDiscount == nil {
		return fmt.Errorf("not implemented")
	}
	return f.deleteDiscount(ctx, input)
}

func (f *fakeEngine) BulkCalculate(ctx context.Context, orderIDs []int64, batchSize int) (domain.BatchResult, error) {
	if f.bulkCalculate == nil {
		return domain.BatchResult{}, fmt.Errorf("not implemented")
	}
	return f.bulkCalculate(ctx, orderIDs, batchSize)
}

func (f *fakeEngine) Analytics(ctx context.Context, input domain.AnalyticsInput) (domain.AnalyticsResult, error) {
	if f.analytics == nil {
		return domain.AnalyticsResult{}, fmt.Errorf("not implemented")
	}
	return f.analytics(ctx, input)
}

func (f *fakeEngine) ValidateConfiguration(ctx context.Context) (domain.ValidationResult, error) {
	if f.validate == nil {
		return domain.ValidationResult{}, fmt.Errorf("not implemented")
	}
	return f.validate(ctx)
}

func (f *fakeEngine) AuditLog(ctx context.Context, query app.AuditQuery) ([]domain.AuditEntry, error) {
	if f.auditLog == nil {
		return nil, fmt.Errorf("not implemented")
	}
	return f.auditLog(ctx, query)
}
