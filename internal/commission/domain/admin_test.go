package domain

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestUpsertRule_CreatesRuleWithAuditEntry(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	store := newFakeAdminStore()
	admin := NewAdmin(store, fixedClock(now), sequentialIDGenerator("rule-1", "audit-1"))

	rule, err := admin.UpsertRule(context.Background(), UpsertRuleInput{
		Level:      LevelVendor,
		TargetID:   "v-1",
		Percentage: 12.5,
		Note:       "launch partner",
		ActorID:    "admin-7",
	})
	if err != nil {
		t.Fatalf("upsert rule: %v", err)
	}
	if rule.ID != "rule-1" {
		t.Fatalf("rule id = %q, want rule-1", rule.ID)
	}
	if rule.Percentage != 12.5 || rule.Note != "launch partner" || rule.CreatedBy != "admin-7" {
		t.Fatalf("unexpected rule: %+v", rule)
	}
	if !rule.CreatedAt.Equal(now) || !rule.UpdatedAt.Equal(now) {
		t.Fatalf("timestamps = %v / %v, want %v", rule.CreatedAt, rule.UpdatedAt, now)
	}

	if got := len(store.audit); got != 1 {
		t.Fatalf("audit entries = %d, want 1", got)
	}
	entry := store.audit[0]
	if entry.ID != "audit-1" || entry.ActorID != "admin-7" {
		t.Fatalf("unexpected audit identity: %+v", entry)
	}
	if entry.Action != AuditActionCreate || entry.EntityType != AuditEntityRule || entry.EntityID != "rule-1" {
		t.Fatalf("unexpected audit target: %+v", entry)
	}
	if entry.Description != "created vendor rule for v-1 at 12.5%" {
		t.Fatalf("description = %q", entry.Description)
	}
	if !entry.Timestamp.Equal(now) {
		t.Fatalf("audit timestamp = %v, want %v", entry.Timestamp, now)
	}
}

func TestUpsertRule_UpdateKeepsIdentityAndDescribesChange(t *testing.T) {
	t.Parallel()

	createdAt := time.Date(2026, 1, 2, 8, 0, 0, 0, time.UTC)
	now := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	store := newFakeAdminStore()
	store.rules[VendorKey("v-1")] = Rule{
		ID:         "rule-0",
		Key:        VendorKey("v-1"),
		Percentage: 12,
		CreatedBy:  "admin-1",
		CreatedAt:  createdAt,
		UpdatedAt:  createdAt,
	}

	admin := NewAdmin(store, fixedClock(now), sequentialIDGenerator("rule-new", "audit-1"))
	rule, err := admin.UpsertRule(context.Background(), UpsertRuleInput{
		Level:      LevelVendor,
		TargetID:   "v-1",
		Percentage: 10,
		ActorID:    "admin-7",
	})
	if err != nil {
		t.Fatalf("upsert rule: %v", err)
	}
	if rule.ID != "rule-0" {
		t.Fatalf("rule id = %q, want preserved rule-0", rule.ID)
	}
	if !rule.CreatedAt.Equal(createdAt) {
		t.Fatalf("created at = %v, want preserved %v", rule.CreatedAt, createdAt)
	}
	if rule.CreatedBy != "admin-1" {
		t.Fatalf("created by = %q, want preserved admin-1", rule.CreatedBy)
	}
	if !rule.UpdatedAt.Equal(now) {
		t.Fatalf("updated at = %v, want %v", rule.UpdatedAt, now)
	}
	if rule.Percentage != 10 {
		t.Fatalf("percentage = %v, want 10", rule.Percentage)
	}

	entry := store.audit[len(store.audit)-1]
	if entry.Action != AuditActionUpdate || entry.EntityID != "rule-0" {
		t.Fatalf("unexpected audit entry: %+v", entry)
	}
	if entry.Description != "updated vendor rule for v-1 from 12% to 10%" {
		t.Fatalf("description = %q", entry.Description)
	}
}

func TestUpsertRule_RejectsBadInputBeforeStore(t *testing.T) {
	t.Parallel()

	for name, tc := range map[string]struct {
		input   UpsertRuleInput
		wantErr error
	}{
		"unknown level": {
			input:   UpsertRuleInput{Level: "regional", TargetID: "r-1", Percentage: 10, ActorID: "a"},
			wantErr: ErrLevelInvalid,
		},
		"missing target": {
			input:   UpsertRuleInput{Level: LevelProduct, Percentage: 10, ActorID: "a"},
			wantErr: ErrTargetRequired,
		},
		"targeted global": {
			input:   UpsertRuleInput{Level: LevelGlobal, TargetID: "x", Percentage: 10, ActorID: "a"},
			wantErr: ErrTargetForbidden,
		},
		"percentage above range": {
			input:   UpsertRuleInput{Level: LevelGlobal, Percentage: 100.01, ActorID: "a"},
			wantErr: ErrPercentageOutOfRange,
		},
		"percentage below range": {
			input:   UpsertRuleInput{Level: LevelGlobal, Percentage: -0.5, ActorID: "a"},
			wantErr: ErrPercentageOutOfRange,
		},
		"missing actor": {
			input:   UpsertRuleInput{Level: LevelGlobal, Percentage: 10, ActorID: "  "},
			wantErr: ErrActorIDRequired,
		},
	} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			store := newFakeAdminStore()
			admin := NewAdmin(store, nil, nil)
			if _, err := admin.UpsertRule(context.Background(), tc.input); !errors.Is(err, tc.wantErr) {
				t.Fatalf("err = %v, want %v", err, tc.wantErr)
			}
			if store.calls != 0 {
				t.Fatalf("store calls = %d, want 0", store.calls)
			}
		})
	}
}

func TestUpsertRule_StoreFailureFailsWholeOperation(t *testing.T) {
	t.Parallel()

	boom := errors.New("audit write failed")
	store := newFakeAdminStore()
	store.upsertRuleErr = boom

	admin := NewAdmin(store, nil, sequentialIDGenerator("rule-1", "audit-1"))
	_, err := admin.UpsertRule(context.Background(), UpsertRuleInput{
		Level:      LevelGlobal,
		Percentage: 15,
		ActorID:    "admin-7",
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	if got := len(store.audit); got != 0 {
		t.Fatalf("audit entries = %d, want 0", got)
	}
}

func TestDeleteRule_RecordsFormerStateInAudit(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	store := newFakeAdminStore()
	store.rules[VendorKey("v-1")] = Rule{ID: "rule-0", Key: VendorKey("v-1"), Percentage: 10}

	admin := NewAdmin(store, fixedClock(now), sequentialIDGenerator("audit-1"))
	if err := admin.DeleteRule(context.Background(), DeleteRuleInput{
		Level:    LevelVendor,
		TargetID: "v-1",
		ActorID:  "admin-7",
	}); err != nil {
		t.Fatalf("delete rule: %v", err)
	}

	if _, ok := store.rules[VendorKey("v-1")]; ok {
		t.Fatal("rule still present after delete")
	}
	entry := store.audit[len(store.audit)-1]
	if entry.Action != AuditActionDelete || entry.EntityID != "rule-0" {
		t.Fatalf("unexpected audit entry: %+v", entry)
	}
	if entry.Description != "deleted vendor rule for v-1, was 10%" {
		t.Fatalf("description = %q", entry.Description)
	}
}

func TestDeleteRule_MissingKeyIsNotFoundWithoutAudit(t *testing.T) {
	t.Parallel()

	store := newFakeAdminStore()
	admin := NewAdmin(store, nil, sequentialIDGenerator("audit-1"))

	err := admin.DeleteRule(context.Background(), DeleteRuleInput{
		Level:    LevelProduct,
		TargetID: "p-404",
		ActorID:  "admin-7",
	})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if got := len(store.audit); got != 0 {
		t.Fatalf("audit entries = %d, want 0", got)
	}
}

func TestUpsertMembershipDiscount_CreateThenUpdate(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 14, 11, 0, 0, 0, time.UTC)
	store := newFakeAdminStore()
	admin := NewAdmin(store, fixedClock(now), sequentialIDGenerator("disc-1", "audit-1", "disc-2", "audit-2"))

	created, err := admin.UpsertMembershipDiscount(context.Background(), UpsertDiscountInput{
		MembershipID: "gold",
		Percentage:   2,
		ActorID:      "admin-7",
	})
	if err != nil {
		t.Fatalf("create discount: %v", err)
	}
	if created.ID != "disc-1" || created.Percentage != 2 {
		t.Fatalf("unexpected discount: %+v", created)
	}

	updated, err := admin.UpsertMembershipDiscount(context.Background(), UpsertDiscountInput{
		MembershipID: "gold",
		Percentage:   3,
		ActorID:      "admin-8",
	})
	if err != nil {
		t.Fatalf("update discount: %v", err)
	}
	if updated.ID != "disc-1" {
		t.Fatalf("discount id = %q, want preserved disc-1", updated.ID)
	}
	if updated.Percentage != 3 {
		t.Fatalf("percentage = %v, want 3", updated.Percentage)
	}

	if got := len(store.audit); got != 2 {
		t.Fatalf("audit entries = %d, want 2", got)
	}
	if store.audit[0].Action != AuditActionCreate || store.audit[1].Action != AuditActionUpdate {
		t.Fatalf("audit actions = %v / %v", store.audit[0].Action, store.audit[1].Action)
	}
	if !strings.Contains(store.audit[1].Description, "from 2% to 3%") {
		t.Fatalf("update description = %q", store.audit[1].Description)
	}
}

func TestDeleteMembershipDiscount_MissingTierIsNotFound(t *testing.T) {
	t.Parallel()

	store := newFakeAdminStore()
	admin := NewAdmin(store, nil, sequentialIDGenerator("audit-1"))

	err := admin.DeleteMembershipDiscount(context.Background(), DeleteDiscountInput{
		MembershipID: "bronze",
		ActorID:      "admin-7",
	})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestGetRule_ValidatesKey(t *testing.T) {
	t.Parallel()

	admin := NewAdmin(newFakeAdminStore(), nil, nil)
	if _, err := admin.GetRule(context.Background(), Key{Level: LevelVendor}); !errors.Is(err, ErrTargetRequired) {
		t.Fatalf("err = %v, want ErrTargetRequired", err)
	}
}

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

func sequentialIDGenerator(ids ...string) func() (string, error) {
	queue := append([]string(nil), ids...)
	index := 0
	return func() (string, error) {
		if index >= len(queue) {
			return "", ErrIDGeneratorExhausted
		}
		value := queue[index]
		index++
		return value, nil
	}
}

type fakeAdminStore struct {
	rules     map[Key]Rule
	discounts map[string]MembershipDiscount
	audit     []AuditEntry
	calls     int

	upsertRuleErr error
}

func newFakeAdminStore() *fakeAdminStore {
	return &fakeAdminStore{
		rules:     make(map[Key]Rule),
		discounts: make(map[string]MembershipDiscount),
	}
}

func (s *fakeAdminStore) GetRule(_ context.Context, key Key) (Rule, error) {
	s.calls++
	rule, ok := s.rules[key]
	if !ok {
		return Rule{}, ErrNotFound
	}
	return rule, nil
}

func (s *fakeAdminStore) ListRules(_ context.Context) ([]Rule, error) {
	s.calls++
	rules := make([]Rule, 0, len(s.rules))
	for _, rule := range s.rules {
		rules = append(rules, rule)
	}
	return rules, nil
}

func (s *fakeAdminStore) UpsertRule(_ context.Context, rule Rule, entry AuditEntry) (Rule, error) {
	s.calls++
	if s.upsertRuleErr != nil {
		return Rule{}, s.upsertRuleErr
	}
	if existing, ok := s.rules[rule.Key]; ok {
		rule.ID = existing.ID
		rule.CreatedAt = existing.CreatedAt
		rule.CreatedBy = existing.CreatedBy
	}
	s.rules[rule.Key] = rule
	s.audit = append(s.audit, entry)
	return rule, nil
}

func (s *fakeAdminStore) DeleteRule(_ context.Context, key Key, entry AuditEntry) error {
	s.calls++
	if _, ok := s.rules[key]; !ok {
		return ErrNotFound
	}
	delete(s.rules, key)
	s.audit = append(s.audit, entry)
	return nil
}

func (s *fakeAdminStore) GetMembershipDiscount(_ context.Context, membershipID string) (MembershipDiscount, error) {
	s.calls++
	discount, ok := s.discounts[membershipID]
	if !ok {
		return MembershipDiscount{}, ErrNotFound
	}
	return discount, nil
}

func (s *fakeAdminStore) ListMembershipDiscounts(_ context.Context) ([]MembershipDiscount, error) {
	s.calls++
	discounts := make([]MembershipDiscount, 0, len(s.discounts))
	for _, discount := range s.discounts {
		discounts = append(discounts, discount)
	}
	return discounts, nil
}

func (s *fakeAdminStore) UpsertMembershipDiscount(_ context.Context, discount MembershipDiscount, entry AuditEntry) (MembershipDiscount, error) {
	s.calls++
	if existing, ok := s.discounts[discount.MembershipID]; ok {
		discount.ID = existing.ID
		discount.CreatedAt = existing.CreatedAt
		discount.CreatedBy = existing.CreatedBy
	}
	s.discounts[discount.MembershipID] = discount
	s.audit = append(s.audit, entry)
	return discount, nil
}

func (s *fakeAdminStore) DeleteMembershipDiscount(_ context.Context, membershipID string, entry AuditEntry) error {
	s.calls++
	if _, ok := s.discounts[membershipID]; !ok {
		return ErrNotFound
	}
	delete(s.discounts, membershipID)
	s.audit = append(s.audit, entry)
	return nil
}
