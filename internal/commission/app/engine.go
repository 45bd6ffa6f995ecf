// Package app composes the commission engine: domain services wired over
// SQLite-backed stores, returning coded errors for the transport layer.
package app

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ledgerline/commission/internal/commission/auditfilter"
	"github.com/ledgerline/commission/internal/commission/domain"
	"github.com/ledgerline/commission/internal/commission/storage"
	apperrors "github.com/ledgerline/commission/internal/platform/errors"
)

const tracerName = "github.com/ledgerline/commission/internal/commission/app"

const (
	defaultAuditLimit = 50
	maxAuditLimit     = 500
)

// Options tunes optional Engine collaborators. Zero values select the
// production defaults: time.Now, random ids, warning threshold 50.
type Options struct {
	Clock             func() time.Time
	NewID             func() (string, error)
	HighRateThreshold float64
}

// AuditQuery selects audit trail entries. Filter is an AIP-160 expression
// over actor_id, action, entity_type, entity_id, and timestamp; Limit
// defaults to 50 and caps at 500.
type AuditQuery struct {
	Filter string
	Limit  int
}

// Engine is the operation surface of the commission service. Every method
// opens a telemetry span and maps domain and storage sentinels to coded
// errors.
type Engine struct {
	tracer    trace.Tracer
	resolver  *domain.Resolver
	admin     *domain.Admin
	batch     *domain.BatchProcessor
	analytics *domain.Aggregator
	validator *domain.Validator
	audit     storage.AuditLogStore
}

// New wires the domain services over the given stores.
func New(rules storage.RuleStore, items storage.LineItemStore, audit storage.AuditLogStore, opts Options) *Engine {
	ruleAdapter := newRuleStoreAdapter(rules)
	itemSource := newLineItemSourceAdapter(items)
	resolver := domain.NewResolver(ruleAdapter)
	return &Engine{
		tracer:    otel.Tracer(tracerName),
		resolver:  resolver,
		admin:     domain.NewAdmin(ruleAdapter, opts.Clock, opts.NewID),
		batch:     domain.NewBatchProcessor(resolver, itemSource, opts.Clock),
		analytics: domain.NewAggregator(resolver, itemSource),
		validator: domain.NewValidator(ruleAdapter, opts.HighRateThreshold),
		audit:     audit,
	}
}

// Resolve returns the effective commission percentage for one line item
// context.
func (e *Engine) Resolve(ctx context.Context, input domain.ResolveInput) (float64, error) {
	ctx, span := e.tracer.Start(ctx, "Engine.Resolve")
	defer span.End()

	pct, err := e.resolver.Resolve(ctx, input)
	if err != nil {
		return 0, spanErr(span, mapCommonError(err))
	}
	return pct, nil
}

// GetRule returns the rule stored at one (level, target) key.
func (e *Engine) GetRule(ctx context.Context, level string, targetID string) (domain.Rule, error) {
	ctx, span := e.tracer.Start(ctx, "Engine.GetRule")
	defer span.End()

	key := domain.Key{Level: domain.Level(level), TargetID: targetID}
	rule, err := e.admin.GetRule(ctx, key)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Rule{}, spanErr(span, apperrors.WrapWithMetadata(
				apperrors.CodeRuleNotFound,
				"commission rule not found",
				map[string]string{"level": level, "target_id": targetID},
				err,
			))
		}
		return domain.Rule{}, spanErr(span, mapRuleError(err))
	}
	return rule, nil
}

// ListRules returns every stored commission rule.
func (e *Engine) ListRules(ctx context.Context) ([]domain.Rule, error) {
	ctx, span := e.tracer.Start(ctx, "Engine.ListRules")
	defer span.End()

	rules, err := e.admin.ListRules(ctx)
	if err != nil {
		return nil, spanErr(span, mapRuleError(err))
	}
	return rules, nil
}

// UpsertRule creates or updates a rule and its audit entry atomically.
func (e *Engine) UpsertRule(ctx context.Context, input domain.UpsertRuleInput) (domain.Rule, error) {
	ctx, span := e.tracer.Start(ctx, "Engine.UpsertRule")
	defer span.End()

	rule, err := e.admin.UpsertRule(ctx, input)
	if err != nil {
		return domain.Rule{}, spanErr(span, mapRuleError(err))
	}
	return rule, nil
}

// DeleteRule removes a rule and writes its audit entry atomically.
func (e *Engine) DeleteRule(ctx context.Context, input domain.DeleteRuleInput) error {
	ctx, span := e.tracer.Start(ctx, "Engine.DeleteRule")
	defer span.End()

	if err := e.admin.DeleteRule(ctx, input); err != nil {
		return spanErr(span, mapRuleError(err))
	}
	return nil
}

// ListMembershipDiscounts returns every stored membership discount.
func (e *Engine) ListMembershipDiscounts(ctx context.Context) ([]domain.MembershipDiscount, error) {
	ctx, span := e.tracer.Start(ctx, "Engine.ListMembershipDiscounts")
	defer span.End()

	discounts, err := e.admin.ListMembershipDiscounts(ctx)
	if err != nil {
		return nil, spanErr(span, mapDiscountError(err))
	}
	return discounts, nil
}

// UpsertMembershipDiscount creates or updates a membership discount and its
// audit entry atomically.
func (e *Engine) UpsertMembershipDiscount(ctx context.Context, input domain.UpsertDiscountInput) (domain.MembershipDiscount, error) {
	ctx, span := e.tracer.Start(ctx, "Engine.UpsertMembershipDiscount")
	defer span.End()

	discount, err := e.admin.UpsertMembershipDiscount(ctx, input)
	if err != nil {
		return domain.MembershipDiscount{}, spanErr(span, mapDiscountError(err))
	}
	return discount, nil
}

// DeleteMembershipDiscount removes a membership discount and writes its
// audit entry atomically.
func (e *Engine) DeleteMembershipDiscount(ctx context.Context, input domain.DeleteDiscountInput) error {
	ctx, span := e.tracer.Start(ctx, "Engine.DeleteMembershipDiscount")
	defer span.End()

	if err := e.admin.DeleteMembershipDiscount(ctx, input); err != nil {
		return spanErr(span, mapDiscountError(err))
	}
	return nil
}

// BulkCalculate computes commissions for the given orders in bounded
// chunks. Per-item failures land in the result, not the error.
func (e *Engine) BulkCalculate(ctx context.Context, orderIDs []int64, batchSize int) (domain.BatchResult, error) {
	ctx, span := e.tracer.Start(ctx, "Engine.BulkCalculate")
	defer span.End()

	result, err := e.batch.BulkCalculate(ctx, orderIDs, batchSize)
	if err != nil {
		return domain.BatchResult{}, spanErr(span, mapCommonError(err))
	}
	return result, nil
}

// Analytics aggregates commission figures over an order window.
func (e *Engine) Analytics(ctx context.Context, input domain.AnalyticsInput) (domain.AnalyticsResult, error) {
	ctx, span := e.tracer.Start(ctx, "Engine.Analytics")
	defer span.End()

	result, err := e.analytics.Analytics(ctx, input)
	if err != nil {
		return domain.AnalyticsResult{}, spanErr(span, mapCommonError(err))
	}
	return result, nil
}

// ValidateConfiguration reports every configuration issue at once.
func (e *Engine) ValidateConfiguration(ctx context.Context) (domain.ValidationResult, error) {
	ctx, span := e.tracer.Start(ctx, "Engine.ValidateConfiguration")
	defer span.End()

	result, err := e.validator.Validate(ctx)
	if err != nil {
		return domain.ValidationResult{}, spanErr(span, mapCommonError(err))
	}
	return result, nil
}

// AuditLog returns audit trail entries matching the query, newest first.
func (e *Engine) AuditLog(ctx context.Context, query AuditQuery) ([]domain.AuditEntry, error) {
	ctx, span := e.tracer.Start(ctx, "Engine.AuditLog")
	defer span.End()

	if e.audit == nil {
		return nil, spanErr(span, mapCommonError(domain.ErrStoreNotConfigured))
	}

	limit := query.Limit
	if limit <= 0 {
		limit = defaultAuditLimit
	}
	limit = min(limit, maxAuditLimit)

	condition, err := auditfilter.ParseAuditFilter(query.Filter)
	if err != nil {
		return nil, spanErr(span, apperrors.Wrap(apperrors.CodeAuditFilterInvalid, "audit filter is invalid", err))
	}

	records, err := e.audit.ListAuditEntries(ctx, storage.AuditQuery{
		Where:  condition.Clause,
		Params: condition.Params,
		Limit:  limit,
	})
	if err != nil {
		return nil, spanErr(span, mapCommonError(err))
	}
	entries := make([]domain.AuditEntry, 0, len(records))
	for _, record := range records {
		entries = append(entries, toDomainAuditEntry(record))
	}
	return entries, nil
}

func spanErr(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(otelcodes.Error, string(apperrors.GetCode(err)))
	return err
}

func mapRuleError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrNotFound):
		return apperrors.Wrap(apperrors.CodeRuleNotFound, "commission rule not found", err)
	case errors.Is(err, domain.ErrPercentageOutOfRange):
		return apperrors.Wrap(apperrors.CodeRulePercentageOutOfRange, "commission percentage must be between 0 and 100", err)
	default:
		return mapCommonError(err)
	}
}

func mapDiscountError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrNotFound):
		return apperrors.Wrap(apperrors.CodeDiscountNotFound, "membership discount not found", err)
	case errors.Is(err, domain.ErrPercentageOutOfRange):
		return apperrors.Wrap(apperrors.CodeDiscountPercentageOutOfRange, "discount percentage must be between 0 and 100", err)
	default:
		return mapCommonError(err)
	}
}

func mapCommonError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrLevelInvalid):
		return apperrors.Wrap(apperrors.CodeRuleLevelInvalid, "commission rule level is invalid", err)
	case errors.Is(err, domain.ErrTargetRequired):
		return apperrors.Wrap(apperrors.CodeRuleTargetRequired, "target id is required for this level", err)
	case errors.Is(err, domain.ErrTargetForbidden):
		return apperrors.Wrap(apperrors.CodeRuleTargetForbidden, "global rules must not carry a target id", err)
	case errors.Is(err, domain.ErrMembershipIDRequired):
		return apperrors.Wrap(apperrors.CodeMembershipIDRequired, "membership id is required", err)
	case errors.Is(err, domain.ErrActorIDRequired):
		return apperrors.Wrap(apperrors.CodeActorIDRequired, "actor id is required for mutations", err)
	case errors.Is(err, domain.ErrGlobalRuleNotConfigured):
		return apperrors.Wrap(apperrors.CodeGlobalRuleNotConfigured, "no commission rule configured at any level", err)
	case errors.Is(err, domain.ErrBatchSizeOutOfRange):
		return apperrors.Wrap(apperrors.CodeBatchSizeOutOfRange, "batch size must be between 1 and 1000", err)
	case errors.Is(err, domain.ErrWindowInvalid):
		return apperrors.Wrap(apperrors.CodeAnalyticsWindowInvalid, "analytics window start must precede end", err)
	case errors.Is(err, domain.ErrWindowTooWide):
		return apperrors.Wrap(apperrors.CodeAnalyticsWindowTooWide, "analytics window must not exceed 365 days", err)
	case errors.Is(err, storage.ErrAuditWrite):
		return apperrors.Wrap(apperrors.CodeAuditWriteFailed, "audit write failed, mutation rolled back", err)
	case errors.Is(err, domain.ErrConflict):
		return apperrors.Wrap(apperrors.CodeConflict, "write conflicts with a stored record", err)
	default:
		return apperrors.Wrap(apperrors.CodeUnknown, err.Error(), err)
	}
}
