package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/custodia-labs/chimp-sync/internal/core/domain"
	"github.com/custodia-labs/chimp-sync/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.SyncRecordStore = (*RecordStore)(nil)

const recordColumns = `id, entity_type, entity_id, email, product_id, operation_type, created_at`

// RecordStore implements driven.SyncRecordStore using PostgreSQL.
// The unique index on (entity_type, entity_id, email_key) backs the one-record-per-key rule.
type RecordStore struct {
	db *DB
}

// NewRecordStore creates a new RecordStore
func NewRecordStore(db *DB) *RecordStore {
	return &RecordStore{db: db}
}

// Get returns the record holding a key
func (s *RecordStore) Get(ctx context.Context, key domain.RecordKey) (*domain.SynchronizationRecord, error) {
	query := `SELECT ` + recordColumns + `
		FROM sync_records
		WHERE entity_type = $1 AND entity_id = $2 AND email_key = $3`

	record, err := scanRecord(s.db.QueryRowContext(ctx, query, string(key.EntityType), key.EntityID, key.EmailKey))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get record %s: %w", key, err)
	}
	return record, nil
}

// Insert stores a new record and assigns its ID
func (s *RecordStore) Insert(ctx context.Context, record *domain.SynchronizationRecord) error {
	key := record.Key()
	query := `
		INSERT INTO sync_records (entity_type, entity_id, email, email_key, product_id, operation_type, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`

	err := s.db.QueryRowContext(ctx, query,
		string(record.EntityType),
		record.EntityID,
		record.Email,
		key.EmailKey,
		record.ProductID,
		string(record.OperationType),
		record.CreatedAt,
	).Scan(&record.ID)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: record %s already exists", domain.ErrConflict, key)
	}
	if err != nil {
		return fmt.Errorf("insert record %s: %w", key, err)
	}
	return nil
}

// UpdateOperation rewrites the operation type of an existing record
func (s *RecordStore) UpdateOperation(ctx context.Context, id int64, op domain.OperationType) error {
	result, err := s.db.ExecContext(ctx, `UPDATE sync_records SET operation_type = $1 WHERE id = $2`, string(op), id)
	if err != nil {
		return fmt.Errorf("update record %d: %w", id, err)
	}
	return expectRow(result)
}

// Delete removes a single record. A record already cleared is not an error.
func (s *RecordStore) Delete(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sync_records WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete record %d: %w", id, err)
	}
	return nil
}

// ListByType returns records of one entity and operation type ordered by id
func (s *RecordStore) ListByType(ctx context.Context, entityType domain.EntityType, op domain.OperationType) ([]*domain.SynchronizationRecord, error) {
	query := `SELECT ` + recordColumns + `
		FROM sync_records
		WHERE entity_type = $1 AND operation_type = $2
		ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, string(entityType), string(op))
	if err != nil {
		return nil, fmt.Errorf("list %s %s records: %w", entityType, op, err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

// List returns every record ordered by id
func (s *RecordStore) List(ctx context.Context) ([]*domain.SynchronizationRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+recordColumns+` FROM sync_records ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

// DeleteByEntityType removes every record of one entity type
func (s *RecordStore) DeleteByEntityType(ctx context.Context, entityType domain.EntityType) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM sync_records WHERE entity_type = $1`, string(entityType))
	if err != nil {
		return 0, fmt.Errorf("delete %s records: %w", entityType, err)
	}
	return result.RowsAffected()
}

// DeleteAll empties the ledger
func (s *RecordStore) DeleteAll(ctx context.Context) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM sync_records`)
	if err != nil {
		return 0, fmt.Errorf("delete records: %w", err)
	}
	return result.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*domain.SynchronizationRecord, error) {
	var r domain.SynchronizationRecord
	var entityType, op string
	err := row.Scan(&r.ID, &entityType, &r.EntityID, &r.Email, &r.ProductID, &op, &r.CreatedAt)
	if err != nil {
		return nil, err
	}
	r.EntityType = domain.EntityType(entityType)
	r.OperationType = domain.OperationType(op)
	return &r, nil
}

func scanRecords(rows *sql.Rows) ([]*domain.SynchronizationRecord, error) {
	var records []*domain.SynchronizationRecord
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// expectRow maps a zero-row update to domain.ErrNotFound
func expectRow(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
