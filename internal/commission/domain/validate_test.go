package domain

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestValidate_MissingGlobalIsError(t *testing.T) {
	t.Parallel()

	scanner := &fakeRuleScanner{rules: []Rule{
		{ID: "rule-1", Key: VendorKey("v-1"), Percentage: 10},
	}}
	validator := NewValidator(scanner, 0)

	result, err := validator.Validate(context.Background())
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if result.IsValid {
		t.Fatal("IsValid = true, want false")
	}
	if len(result.Issues) != 1 {
		t.Fatalf("issues = %+v, want 1", result.Issues)
	}
	issue := result.Issues[0]
	if issue.Severity != SeverityError {
		t.Fatalf("severity = %q, want error", issue.Severity)
	}
	if !strings.Contains(issue.Message, "global commission rule is not configured") {
		t.Fatalf("message = %q", issue.Message)
	}
}

func TestValidate_HighRateWarnsButConfigurationStaysValid(t *testing.T) {
	t.Parallel()

	scanner := &fakeRuleScanner{rules: []Rule{
		{ID: "rule-g", Key: GlobalKey(), Percentage: 15},
		{ID: "rule-v", Key: VendorKey("v-1"), Percentage: 60},
	}}
	validator := NewValidator(scanner, 0)

	result, err := validator.Validate(context.Background())
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !result.IsValid {
		t.Fatalf("IsValid = false, want true: %+v", result.Issues)
	}
	if len(result.Issues) != 1 {
		t.Fatalf("issues = %+v, want 1 warning", result.Issues)
	}
	issue := result.Issues[0]
	if issue.Severity != SeverityWarning || issue.EntityID != "rule-v" {
		t.Fatalf("unexpected issue: %+v", issue)
	}
	if !strings.Contains(issue.Message, "unusually high") {
		t.Fatalf("message = %q", issue.Message)
	}
}

func TestValidate_AllChecksRunWithoutShortCircuit(t *testing.T) {
	t.Parallel()

	scanner := &fakeRuleScanner{
		rules: []Rule{
			{ID: "rule-v", Key: VendorKey("v-1"), Percentage: 120},
		},
		discounts: []MembershipDiscount{
			{ID: "disc-1", MembershipID: "gold", Percentage: -5},
			{ID: "disc-2", MembershipID: "silver", Percentage: 55},
		},
	}
	validator := NewValidator(scanner, 0)

	result, err := validator.Validate(context.Background())
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if result.IsValid {
		t.Fatal("IsValid = true, want false")
	}
	if len(result.Issues) != 4 {
		t.Fatalf("issues = %+v, want 4", result.Issues)
	}

	var errorsSeen, warningsSeen int
	for _, issue := range result.Issues {
		switch issue.Severity {
		case SeverityError:
			errorsSeen++
		case SeverityWarning:
			warningsSeen++
		}
	}
	if errorsSeen != 3 || warningsSeen != 1 {
		t.Fatalf("errors/warnings = %d/%d, want 3/1: %+v", errorsSeen, warningsSeen, result.Issues)
	}
}

func TestValidate_GlobalOutOfRangeIsFlaggedTwice(t *testing.T) {
	t.Parallel()

	scanner := &fakeRuleScanner{rules: []Rule{
		{ID: "rule-g", Key: GlobalKey(), Percentage: 120},
	}}
	validator := NewValidator(scanner, 0)

	result, err := validator.Validate(context.Background())
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if result.IsValid {
		t.Fatal("IsValid = true, want false")
	}
	// The dedicated global check and the per-rule range check both fire.
	if len(result.Issues) != 2 {
		t.Fatalf("issues = %+v, want 2", result.Issues)
	}
	for _, issue := range result.Issues {
		if issue.Severity != SeverityError || issue.EntityID != "rule-g" {
			t.Fatalf("unexpected issue: %+v", issue)
		}
	}
}

func TestValidate_ThresholdIsConfigurable(t *testing.T) {
	t.Parallel()

	scanner := &fakeRuleScanner{rules: []Rule{
		{ID: "rule-g", Key: GlobalKey(), Percentage: 15},
		{ID: "rule-v", Key: VendorKey("v-1"), Percentage: 35},
	}}

	strict, err := NewValidator(scanner, 30).Validate(context.Background())
	if err != nil {
		t.Fatalf("validate strict: %v", err)
	}
	if len(strict.Issues) != 1 || strict.Issues[0].Severity != SeverityWarning {
		t.Fatalf("strict issues = %+v, want one warning", strict.Issues)
	}

	lax, err := NewValidator(scanner, 0).Validate(context.Background())
	if err != nil {
		t.Fatalf("validate default: %v", err)
	}
	if len(lax.Issues) != 0 {
		t.Fatalf("default issues = %+v, want none", lax.Issues)
	}
}

func TestValidate_ScanErrorPropagates(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	scanner := &fakeRuleScanner{rulesErr: boom}

	if _, err := NewValidator(scanner, 0).Validate(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
}

type fakeRuleScanner struct {
	rules        []Rule
	discounts    []MembershipDiscount
	rulesErr     error
	discountsErr error
}

func (f *fakeRuleScanner) ListRules(context.Context) ([]Rule, error) {
	if f.rulesErr != nil {
		return nil, f.rulesErr
	}
	return f.rules, nil
}

func (f *fakeRuleScanner) ListMembershipDiscounts(context.Context) ([]MembershipDiscount, error) {
	if f.discountsErr != nil {
		return nil, f.discountsErr
	}
	return f.discounts, nil
}
