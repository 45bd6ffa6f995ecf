// Package sqlite provides SQLite-backed persistence for commission
// configuration and the marketplace order read model.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/ledgerline/commission/internal/commission/storage"
	"github.com/ledgerline/commission/internal/commission/storage/sqlite/migrations"
	sqlitemigrate "github.com/ledgerline/commission/internal/platform/storage/sqlitemigrate"
	_ "modernc.org/sqlite"
)

// Store persists commission rules, membership discounts, and the audit
// trail. Every mutation commits its audit entry in the same transaction as
// the data change.
type Store struct {
	sqlDB *sql.DB
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens the commission configuration store at the provided path and
// applies pending migrations.
func Open(path string) (*Store, error) {
	sqlDB, err := openDB(path)
	if err != nil {
		return nil, err
	}
	if err := sqlitemigrate.ApplyMigrations(sqlDB, migrations.RulesFS, "rules"); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the underlying SQLite database.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func openDB(path string) (*sql.DB, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	return sqlDB, nil
}

// GetRule loads the rule stored at (level, targetID).
func (s *Store) GetRule(ctx context.Context, level string, targetID string) (storage.RuleRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.RuleRecord{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.RuleRecord{}, fmt.Errorf("storage is not configured")
	}
	level = strings.TrimSpace(level)
	targetID = strings.TrimSpace(targetID)
	if level == "" {
		return storage.RuleRecord{}, fmt.Errorf("rule level is required")
	}

	row := s.sqlDB.QueryRowContext(ctx, `
SELECT id, level, target_id, percentage, note, created_by, created_at, updated_at
FROM commission_rules
WHERE level = ? AND target_id = ?
`, level, targetID)
	record, err := scanRule(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.RuleRecord{}, storage.ErrNotFound
		}
		return storage.RuleRecord{}, fmt.Errorf("get rule: %w", err)
	}
	return record, nil
}

// ListRules returns every stored rule in stable (level, target) order.
func (s *Store) ListRules(ctx context.Context) ([]storage.RuleRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT id, level, target_id, percentage, note, created_by, created_at, updated_at
FROM commission_rules
ORDER BY level, target_id
`)
	if err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}
	defer rows.Close()

	records := make([]storage.RuleRecord, 0)
	for rows.Next() {
		record, err := scanRule(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan rule row: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rule rows: %w", err)
	}
	return records, nil
}

// UpsertRule writes one rule and its audit entry atomically. An existing
// (level, target) row keeps its id, created_at, and created_by; only
// percentage, note, and updated_at change.
func (s *Store) UpsertRule(ctx context.Context, record storage.RuleRecord, audit storage.AuditEntryRecord) (storage.RuleRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.RuleRecord{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.RuleRecord{}, fmt.Errorf("storage is not configured")
	}
	normalized, err := normalizeRuleRecord(record)
	if err != nil {
		return storage.RuleRecord{}, err
	}
	normalizedAudit, err := normalizeAuditRecord(audit)
	if err != nil {
		return storage.RuleRecord{}, err
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return storage.RuleRecord{}, fmt.Errorf("begin rule upsert: %w", err)
	}
	rollbackWith := func(cause error) error {
		if rollbackErr := tx.Rollback(); rollbackErr != nil {
			return fmt.Errorf("%w: rollback rule upsert: %v", cause, rollbackErr)
		}
		return cause
	}

	if _, err := tx.ExecContext(ctx, `
INSERT INTO commission_rules (
	id, level, target_id, percentage, note, created_by, created_at, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(level, target_id) DO UPDATE SET
	percentage = excluded.percentage,
	note = excluded.note,
	updated_at = excluded.updated_at
`,
		normalized.ID,
		normalized.Level,
		normalized.TargetID,
		normalized.Percentage,
		normalized.Note,
		normalized.CreatedBy,
		toMillis(normalized.CreatedAt),
		toMillis(normalized.UpdatedAt),
	); err != nil {
		if isUniqueConstraintError(err) {
			return storage.RuleRecord{}, rollbackWith(storage.ErrConflict)
		}
		return storage.RuleRecord{}, rollbackWith(fmt.Errorf("upsert rule: %w", err))
	}

	if err := insertAuditExec(ctx, tx, normalizedAudit); err != nil {
		return storage.RuleRecord{}, rollbackWith(err)
	}

	row := tx.QueryRowContext(ctx, `
SELECT id, level, target_id, percentage, note, created_by, created_at, updated_at
FROM commission_rules
WHERE level = ? AND target_id = ?
`, normalized.Level, normalized.TargetID)
	stored, err := scanRule(row.Scan)
	if err != nil {
		return storage.RuleRecord{}, rollbackWith(fmt.Errorf("read back rule: %w", err))
	}

	if err := tx.Commit(); err != nil {
		return storage.RuleRecord{}, fmt.Errorf("commit rule upsert: %w", err)
	}
	return stored, nil
}

// DeleteRule removes one rule and writes its audit entry atomically.
// Deleting an absent key returns storage.ErrNotFound and writes nothing.
func (s *Store) DeleteRule(ctx context.Context, level string, targetID string, audit storage.AuditEntryRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	level = strings.TrimSpace(level)
	targetID = strings.TrimSpace(targetID)
	if level == "" {
		return fmt.Errorf("rule level is required")
	}
	normalizedAudit, err := normalizeAuditRecord(audit)
	if err != nil {
		return err
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin rule delete: %w", err)
	}
	rollbackWith := func(cause error) error {
		if rollbackErr := tx.Rollback(); rollbackErr != nil {
			return fmt.Errorf("%w: rollback rule delete: %v", cause, rollbackErr)
		}
		return cause
	}

	result, err := tx.ExecContext(ctx, `
DELETE FROM commission_rules WHERE level = ? AND target_id = ?
`, level, targetID)
	if err != nil {
		return rollbackWith(fmt.Errorf("delete rule: %w", err))
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return rollbackWith(fmt.Errorf("delete rule rows affected: %w", err))
	}
	if affected == 0 {
		return rollbackWith(storage.ErrNotFound)
	}

	if err := insertAuditExec(ctx, tx, normalizedAudit); err != nil {
		return rollbackWith(err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit rule delete: %w", err)
	}
	return nil
}

// GetMembershipDiscount loads the discount stored for one membership tier.
func (s *Store) GetMembershipDiscount(ctx context.Context, membershipID string) (storage.MembershipDiscountRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.MembershipDiscountRecord{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.MembershipDiscountRecord{}, fmt.Errorf("storage is not configured")
	}
	membershipID = strings.TrimSpace(membershipID)
	if membershipID == "" {
		return storage.MembershipDiscountRecord{}, fmt.Errorf("membership id is required")
	}

	row := s.sqlDB.QueryRowContext(ctx, `
SELECT id, membership_id, percentage, note, created_by, created_at, updated_at
FROM membership_discounts
WHERE membership_id = ?
`, membershipID)
	record, err := scanDiscount(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.MembershipDiscountRecord{}, storage.ErrNotFound
		}
		return storage.MembershipDiscountRecord{}, fmt.Errorf("get membership discount: %w", err)
	}
	return record, nil
}

// ListMembershipDiscounts returns every stored discount ordered by tier.
func (s *Store) ListMembershipDiscounts(ctx context.Context) ([]storage.MembershipDiscountRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT id, membership_id, percentage, note, created_by, created_at, updated_at
FROM membership_discounts
ORDER BY membership_id
`)
	if err != nil {
		return nil, fmt.Errorf("list membership discounts: %w", err)
	}
	defer rows.Close()

	records := make([]storage.MembershipDiscountRecord, 0)
	for rows.Next() {
		record, err := scanDiscount(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan membership discount row: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate membership discount rows: %w", err)
	}
	return records, nil
}

// UpsertMembershipDiscount writes one discount and its audit entry
// atomically, mirroring UpsertRule semantics keyed on membership_id.
func (s *Store) UpsertMembershipDiscount(ctx context.Context, record storage.MembershipDiscountRecord, audit storage.AuditEntryRecord) (storage.MembershipDiscountRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.MembershipDiscountRecord{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.MembershipDiscountRecord{}, fmt.Errorf("storage is not configured")
	}
	normalized, err := normalizeDiscountRecord(record)
	if err != nil {
		return storage.MembershipDiscountRecord{}, err
	}
	normalizedAudit, err := normalizeAuditRecord(audit)
	if err != nil {
		return storage.MembershipDiscountRecord{}, err
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return storage.MembershipDiscountRecord{}, fmt.Errorf("begin discount upsert: %w", err)
	}
	rollbackWith := func(cause error) error {
		if rollbackErr := tx.Rollback(); rollbackErr != nil {
			return fmt.Errorf("%w: rollback discount upsert: %v", cause, rollbackErr)
		}
		return cause
	}

	if _, err := tx.ExecContext(ctx, `
INSERT INTO membership_discounts (
	id, membership_id, percentage, note, created_by, created_at, updated_at
) VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(membership_id) DO UPDATE SET
	percentage = excluded.percentage,
	note = excluded.note,
	updated_at = excluded.updated_at
`,
		normalized.ID,
		normalized.MembershipID,
		normalized.Percentage,
		normalized.Note,
		normalized.CreatedBy,
		toMillis(normalized.CreatedAt),
		toMillis(normalized.UpdatedAt),
	); err != nil {
		if isUniqueConstraintError(err) {
			return storage.MembershipDiscountRecord{}, rollbackWith(storage.ErrConflict)
		}
		return storage.MembershipDiscountRecord{}, rollbackWith(fmt.Errorf("upsert membership discount: %w", err))
	}

	if err := insertAuditExec(ctx, tx, normalizedAudit); err != nil {
		return storage.MembershipDiscountRecord{}, rollbackWith(err)
	}

	row := tx.QueryRowContext(ctx, `
SELECT id, membership_id, percentage, note, created_by, created_at, updated_at
FROM membership_discounts
WHERE membership_id = ?
`, normalized.MembershipID)
	stored, err := scanDiscount(row.Scan)
	if err != nil {
		return storage.MembershipDiscountRecord{}, rollbackWith(fmt.Errorf("read back membership discount: %w", err))
	}

	if err := tx.Commit(); err != nil {
		return storage.MembershipDiscountRecord{}, fmt.Errorf("commit discount upsert: %w", err)
	}
	return stored, nil
}

// DeleteMembershipDiscount removes one discount and writes its audit entry
// atomically.
func (s *Store) DeleteMembershipDiscount(ctx context.Context, membershipID string, audit storage.AuditEntryRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	membershipID = strings.TrimSpace(membershipID)
	if membershipID == "" {
		return fmt.Errorf("membership id is required")
	}
	normalizedAudit, err := normalizeAuditRecord(audit)
	if err != nil {
		return err
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin discount delete: %w", err)
	}
	rollbackWith := func(cause error) error {
		if rollbackErr := tx.Rollback(); rollbackErr != nil {
			return fmt.Errorf("%w: rollback discount delete: %v", cause, rollbackErr)
		}
		return cause
	}

	result, err := tx.ExecContext(ctx, `
DELETE FROM membership_discounts WHERE membership_id = ?
`, membershipID)
	if err != nil {
		return rollbackWith(fmt.Errorf("delete membership discount: %w", err))
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return rollbackWith(fmt.Errorf("delete membership discount rows affected: %w", err))
	}
	if affected == 0 {
		return rollbackWith(storage.ErrNotFound)
	}

	if err := insertAuditExec(ctx, tx, normalizedAudit); err != nil {
		return rollbackWith(err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit discount delete: %w", err)
	}
	return nil
}

// AppendAuditEntry records one standalone audit entry. Mutations write their
// entries inside their own transactions; this path covers actions with no
// data row of their own.
func (s *Store) AppendAuditEntry(ctx context.Context, record storage.AuditEntryRecord) (storage.AuditEntryRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.AuditEntryRecord{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.AuditEntryRecord{}, fmt.Errorf("storage is not configured")
	}
	normalized, err := normalizeAuditRecord(record)
	if err != nil {
		return storage.AuditEntryRecord{}, err
	}
	if err := insertAuditExec(ctx, s.sqlDB, normalized); err != nil {
		return storage.AuditEntryRecord{}, err
	}
	return normalized, nil
}

// ListAuditEntries reads the audit trail newest-first, optionally narrowed
// by a pre-translated WHERE condition.
func (s *Store) ListAuditEntries(ctx context.Context, query storage.AuditQuery) ([]storage.AuditEntryRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	if query.Limit <= 0 {
		return nil, fmt.Errorf("audit query limit must be greater than zero")
	}

	sqlQuery := `
SELECT id, actor_id, action, entity_type, entity_id, description, timestamp
FROM audit_log
`
	params := make([]any, 0, len(query.Params)+1)
	if strings.TrimSpace(query.Where) != "" {
		sqlQuery += "WHERE " + query.Where + "\n"
		params = append(params, query.Params...)
	}
	sqlQuery += "ORDER BY timestamp DESC, id DESC\nLIMIT ?"
	params = append(params, query.Limit)

	rows, err := s.sqlDB.QueryContext(ctx, sqlQuery, params...)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()

	records := make([]storage.AuditEntryRecord, 0, query.Limit)
	for rows.Next() {
		record, err := scanAuditEntry(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan audit row: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit rows: %w", err)
	}
	return records, nil
}

type scanner func(dest ...any) error

type sqlExecer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertAuditExec(ctx context.Context, execer sqlExecer, record storage.AuditEntryRecord) error {
	_, err := execer.ExecContext(ctx, `
INSERT INTO audit_log (
	id, actor_id, action, entity_type, entity_id, description, timestamp
) VALUES (?, ?, ?, ?, ?, ?, ?)
`,
		record.ID,
		record.ActorID,
		record.Action,
		record.EntityType,
		record.EntityID,
		record.Description,
		toMillis(record.Timestamp),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return storage.ErrConflict
		}
		return fmt.Errorf("%w: %v", storage.ErrAuditWrite, err)
	}
	return nil
}

func normalizeRuleRecord(record storage.RuleRecord) (storage.RuleRecord, error) {
	record.ID = strings.TrimSpace(record.ID)
	record.Level = strings.TrimSpace(record.Level)
	record.TargetID = strings.TrimSpace(record.TargetID)
	record.Note = strings.TrimSpace(record.Note)
	record.CreatedBy = strings.TrimSpace(record.CreatedBy)
	if record.ID == "" {
		return storage.RuleRecord{}, fmt.Errorf("rule id is required")
	}
	if record.Level == "" {
		return storage.RuleRecord{}, fmt.Errorf("rule level is required")
	}
	if record.CreatedBy == "" {
		return storage.RuleRecord{}, fmt.Errorf("rule created_by is required")
	}
	if record.CreatedAt.IsZero() {
		return storage.RuleRecord{}, fmt.Errorf("rule created_at is required")
	}
	if record.UpdatedAt.IsZero() {
		return storage.RuleRecord{}, fmt.Errorf("rule updated_at is required")
	}
	record.CreatedAt = record.CreatedAt.UTC()
	record.UpdatedAt = record.UpdatedAt.UTC()
	return record, nil
}

func normalizeDiscountRecord(record storage.MembershipDiscountRecord) (storage.MembershipDiscountRecord, error) {
	record.ID = strings.TrimSpace(record.ID)
	record.MembershipID = strings.TrimSpace(record.MembershipID)
	record.Note = strings.TrimSpace(record.Note)
	record.CreatedBy = strings.TrimSpace(record.CreatedBy)
	if record.ID == "" {
		return storage.MembershipDiscountRecord{}, fmt.Errorf("discount id is required")
	}
	if record.MembershipID == "" {
		return storage.MembershipDiscountRecord{}, fmt.Errorf("membership id is required")
	}
	if record.CreatedBy == "" {
		return storage.MembershipDiscountRecord{}, fmt.Errorf("discount created_by is required")
	}
	if record.CreatedAt.IsZero() {
		return storage.MembershipDiscountRecord{}, fmt.Errorf("discount created_at is required")
	}
	if record.UpdatedAt.IsZero() {
		return storage.MembershipDiscountRecord{}, fmt.Errorf("discount updated_at is required")
	}
	record.CreatedAt = record.CreatedAt.UTC()
	record.UpdatedAt = record.UpdatedAt.UTC()
	return record, nil
}

func normalizeAuditRecord(record storage.AuditEntryRecord) (storage.AuditEntryRecord, error) {
	record.ID = strings.TrimSpace(record.ID)
	record.ActorID = strings.TrimSpace(record.ActorID)
	record.Action = strings.TrimSpace(record.Action)
	record.EntityType = strings.TrimSpace(record.EntityType)
	record.EntityID = strings.TrimSpace(record.EntityID)
	record.Description = strings.TrimSpace(record.Description)
	if record.ID == "" {
		return storage.AuditEntryRecord{}, fmt.Errorf("audit id is required")
	}
	if record.ActorID == "" {
		return storage.AuditEntryRecord{}, fmt.Errorf("audit actor id is required")
	}
	if record.Action == "" {
		return storage.AuditEntryRecord{}, fmt.Errorf("audit action is required")
	}
	if record.EntityType == "" {
		return storage.AuditEntryRecord{}, fmt.Errorf("audit entity type is required")
	}
	if record.Timestamp.IsZero() {
		return storage.AuditEntryRecord{}, fmt.Errorf("audit timestamp is required")
	}
	record.Timestamp = record.Timestamp.UTC()
	return record, nil
}

func scanRule(scan scanner) (storage.RuleRecord, error) {
	var record storage.RuleRecord
	var createdAt int64
	var updatedAt int64
	if err := scan(
		&record.ID,
		&record.Level,
		&record.TargetID,
		&record.Percentage,
		&record.Note,
		&record.CreatedBy,
		&createdAt,
		&updatedAt,
	); err != nil {
		return storage.RuleRecord{}, err
	}
	record.CreatedAt = fromMillis(createdAt)
	record.UpdatedAt = fromMillis(updatedAt)
	return record, nil
}

func scanDiscount(scan scanner) (storage.MembershipDiscountRecord, error) {
	var record storage.MembershipDiscountRecord
	var createdAt int64
	var updatedAt int64
	if err := scan(
		&record.ID,
		&record.MembershipID,
		&record.Percentage,
		&record.Note,
		&record.CreatedBy,
		&createdAt,
		&updatedAt,
	); err != nil {
		return storage.MembershipDiscountRecord{}, err
	}
	record.CreatedAt = fromMillis(createdAt)
	record.UpdatedAt = fromMillis(updatedAt)
	return record, nil
}

func scanAuditEntry(scan scanner) (storage.AuditEntryRecord, error) {
	var record storage.AuditEntryRecord
	var timestamp int64
	if err := scan(
		&record.ID,
		&record.ActorID,
		&record.Action,
		&record.EntityType,
		&record.EntityID,
		&record.Description,
		&timestamp,
	); err != nil {
		return storage.AuditEntryRecord{}, err
	}
	record.Timestamp = fromMillis(timestamp)
	return record, nil
}

func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	value := strings.ToLower(err.Error())
	return strings.Contains(value, "unique constraint failed")
}
