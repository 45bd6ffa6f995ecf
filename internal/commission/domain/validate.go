package domain

import (
	"context"
	"fmt"
)

// DefaultHighRateThreshold is the percentage at or above which a configured
// rate draws a warning.
const DefaultHighRateThreshold = 50.0

// IssueSeverity splits validation findings into blocking errors and
// advisory warnings.
type IssueSeverity string

const (
	SeverityError   IssueSeverity = "error"
	SeverityWarning IssueSeverity = "warning"
)

// Issue flags one configuration problem.
type Issue struct {
	Severity IssueSeverity
	Message  string
	Entity   AuditEntityType
	EntityID string
}

// ValidationResult is the outcome of a full configuration scan. IsValid is
// true exactly when no issue carries error severity; warnings alone leave
// the configuration valid.
type ValidationResult struct {
	IsValid bool
	Issues  []Issue
}

// Validator scans the stored configuration for structural and value
// problems. It is a read-only health check: rules that slipped past write
// validation, via migrations or manual edits, surface here.
type Validator struct {
	store     RuleScanner
	threshold float64
}

// NewValidator returns a Validator reading configuration from store. A
// threshold of zero or less falls back to DefaultHighRateThreshold.
func NewValidator(store RuleScanner, highRateThreshold float64) *Validator {
	if highRateThreshold <= 0 {
		highRateThreshold = DefaultHighRateThreshold
	}
	return &Validator{store: store, threshold: highRateThreshold}
}

// Validate runs every configuration check and collects all findings; an
// earlier failure never skips a later check.
func (v *Validator) Validate(ctx context.Context) (ValidationResult, error) {
	if v == nil || v.store == nil {
		return ValidationResult{}, ErrStoreNotConfigured
	}

	rules, err := v.store.ListRules(ctx)
	if err != nil {
		return ValidationResult{}, err
	}
	discounts, err := v.store.ListMembershipDiscounts(ctx)
	if err != nil {
		return ValidationResult{}, err
	}

	issues := []Issue{}

	var global *Rule
	for i := range rules {
		if rules[i].Key.Level == LevelGlobal {
			global = &rules[i]
			break
		}
	}
	switch {
	case global == nil:
		issues = append(issues, Issue{
			Severity: SeverityError,
			Message:  "global commission rule is not configured",
			Entity:   AuditEntityRule,
		})
	case global.Percentage < 0 || global.Percentage > 100:
		issues = append(issues, Issue{
			Severity: SeverityError,
			Message:  fmt.Sprintf("global commission rate %s%% is outside 0-100", formatPercent(global.Percentage)),
			Entity:   AuditEntityRule,
			EntityID: global.ID,
		})
	}

	for _, rule := range rules {
		issues = append(issues, checkRate(describeKey(rule.Key), rule.Percentage, AuditEntityRule, rule.ID, v.threshold)...)
	}
	for _, discount := range discounts {
		label := fmt.Sprintf("%s membership discount", discount.MembershipID)
		issues = append(issues, checkRate(label, discount.Percentage, AuditEntityDiscount, discount.ID, v.threshold)...)
	}

	result := ValidationResult{IsValid: true, Issues: issues}
	for _, issue := range issues {
		if issue.Severity == SeverityError {
			result.IsValid = false
			break
		}
	}
	return result, nil
}

// checkRate flags one stored percentage: an error when outside [0, 100], a
// warning when legal but at or above the threshold.
func checkRate(label string, pct float64, entity AuditEntityType, entityID string, threshold float64) []Issue {
	if pct < 0 || pct > 100 {
		return []Issue{{
			Severity: SeverityError,
			Message:  fmt.Sprintf("%s rate %s%% is outside 0-100", label, formatPercent(pct)),
			Entity:   entity,
			EntityID: entityID,
		}}
	}
	if pct >= threshold {
		return []Issue{{
			Severity: SeverityWarning,
			Message:  fmt.Sprintf("%s rate %s%% is unusually high", label, formatPercent(pct)),
			Entity:   entity,
			EntityID: entityID,
		}}
	}
	return nil
}
