package domain

import (
	"context"
	"time"
)

// AuditAction identifies the kind of mutation an audit entry records.
type AuditAction string

const (
	AuditActionCreate AuditAction = "create"
	AuditActionUpdate AuditAction = "update"
	AuditActionDelete AuditAction = "delete"
)

// AuditEntityType identifies which record kind a mutation touched.
type AuditEntityType string

const (
	AuditEntityRule     AuditEntityType = "commission_rule"
	AuditEntityDiscount AuditEntityType = "membership_discount"
)

// AuditEntry records one admin mutation. Entries are written in the same
// transaction as the change they describe and are never updated afterwards.
type AuditEntry struct {
	ID          string
	ActorID     string
	Action      AuditAction
	EntityType  AuditEntityType
	EntityID    string
	Description string
	Timestamp   time.Time
}

// AuditQuery bounds one audit trail read. Where and Params carry an optional
// pre-translated SQL condition over the audit columns; Limit caps the page.
type AuditQuery struct {
	Where  string
	Params []any
	Limit  int
}

// AuditLog reads the audit trail, newest entries first.
type AuditLog interface {
	ListAuditEntries(ctx context.Context, query AuditQuery) ([]AuditEntry, error)
}
