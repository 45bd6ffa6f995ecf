// Package storage defines the persistence records and store contracts for
// the commission engine.
package storage

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound indicates a requested rule, discount, or order record is missing.
	ErrNotFound = errors.New("record not found")
	// ErrConflict indicates a requested write conflicts with uniqueness constraints.
	ErrConflict = errors.New("record conflict")
	// ErrAuditWrite indicates the audit entry could not be written. The
	// surrounding transaction rolls back the data change with it.
	ErrAuditWrite = errors.New("audit write failed")
)

// RuleRecord stores one commission override at a single level.
// Level is one of product, vendor, category, or global; TargetID is empty
// only for the global row.
type RuleRecord struct {
	ID         string
	Level      string
	TargetID   string
	Percentage float64
	Note       string
	CreatedBy  string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// MembershipDiscountRecord stores one membership-tier discount.
type MembershipDiscountRecord struct {
	ID           string
	MembershipID string
	Percentage   float64
	Note         string
	CreatedBy    string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// AuditEntryRecord stores one append-only audit trail entry.
type AuditEntryRecord struct {
	ID          string
	ActorID     string
	Action      string
	EntityType  string
	EntityID    string
	Description string
	Timestamp   time.Time
}

// AuditQuery selects audit entries with an optional pre-translated WHERE
// fragment. Where and Params come from the audit filter translator; entries
// return newest first.
type AuditQuery struct {
	Where  string
	Params []any
	Limit  int
}

// LineItemRecord is the joined order line item shape consumed by batch and
// analytics reads: item identifiers plus vendor/category display names.
type LineItemRecord struct {
	OrderID      int64
	ItemID       string
	ProductID    string
	VendorID     string
	CategoryID   string
	VendorName   string
	CategoryName string
	Price        float64
	Quantity     int64
	OrderedAt    time.Time
}

// VendorRecord stores one marketplace vendor in the order read model.
type VendorRecord struct {
	ID   string
	Name string
}

// CategoryRecord stores one product category in the order read model.
type CategoryRecord struct {
	ID   string
	Name string
}

// OrderRecord stores one order header in the order read model.
type OrderRecord struct {
	OrderID   int64
	OrderedAt time.Time
}

// OrderItemRecord stores one order line in the order read model.
type OrderItemRecord struct {
	OrderID    int64
	ItemID     string
	ProductID  string
	VendorID   string
	CategoryID string
	Price      float64
	Quantity   int64
}

// RuleStore persists commission rules and membership discounts. Mutating
// methods commit the supplied audit entry in the same transaction as the
// data change: either both rows land or neither does.
type RuleStore interface {
	GetRule(ctx context.Context, level string, targetID string) (RuleRecord, error)
	ListRules(ctx context.Context) ([]RuleRecord, error)
	UpsertRule(ctx context.Context, record RuleRecord, audit AuditEntryRecord) (RuleRecord, error)
	DeleteRule(ctx context.Context, level string, targetID string, audit AuditEntryRecord) error
	GetMembershipDiscount(ctx context.Context, membershipID string) (MembershipDiscountRecord, error)
	ListMembershipDiscounts(ctx context.Context) ([]MembershipDiscountRecord, error)
	UpsertMembershipDiscount(ctx context.Context, record MembershipDiscountRecord, audit AuditEntryRecord) (MembershipDiscountRecord, error)
	DeleteMembershipDiscount(ctx context.Context, membershipID string, audit AuditEntryRecord) error
}

// AuditLogStore appends to and reads the append-only audit trail. Rule and
// discount mutations write their entries inside the RuleStore transaction;
// AppendAuditEntry records standalone actions.
type AuditLogStore interface {
	AppendAuditEntry(ctx context.Context, record AuditEntryRecord) (AuditEntryRecord, error)
	ListAuditEntries(ctx context.Context, query AuditQuery) ([]AuditEntryRecord, error)
}

// LineItemStore reads joined order line items from the order read model.
type LineItemStore interface {
	ListLineItemsByOrderIDs(ctx context.Context, orderIDs []int64) ([]LineItemRecord, error)
	ListLineItemsInWindow(ctx context.Context, start time.Time, end time.Time, vendorID string) ([]LineItemRecord, error)
}

// OrderSeedStore writes demo fixtures into the order read model. Only the
// seed tool uses it; the engine treats the read model as externally owned.
type OrderSeedStore interface {
	PutVendor(ctx context.Context, record VendorRecord) error
	PutCategory(ctx context.Context, record CategoryRecord) error
	PutOrder(ctx context.Context, order OrderRecord, items []OrderItemRecord) error
}
