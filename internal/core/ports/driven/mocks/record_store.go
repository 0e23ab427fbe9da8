package mocks

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/chimp-sync/internal/core/domain"
	"github.com/custodia-labs/chimp-sync/internal/core/ports/driven"
)

var _ driven.SyncRecordStore = (*MockSyncRecordStore)(nil)

// MockSyncRecordStore is an in-memory ledger that enforces the key constraint
type MockSyncRecordStore struct {
	mu      sync.Mutex
	records map[int64]*domain.SynchronizationRecord
	nextID  int64

	// Optional hooks, called before the in-memory behavior
	GetFn    func(key domain.RecordKey) (*domain.SynchronizationRecord, error)
	InsertFn func(record *domain.SynchronizationRecord) error
	ListErr  error
}

// NewMockSyncRecordStore creates an empty ledger
func NewMockSyncRecordStore() *MockSyncRecordStore {
	return &MockSyncRecordStore{records: make(map[int64]*domain.SynchronizationRecord)}
}

func (m *MockSyncRecordStore) Get(ctx context.Context, key domain.RecordKey) (*domain.SynchronizationRecord, error) {
	if m.GetFn != nil {
		return m.GetFn(key)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.records {
		if r.Key() == key {
			cp := *r
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockSyncRecordStore) Insert(ctx context.Context, record *domain.SynchronizationRecord) error {
	if m.InsertFn != nil {
		if err := m.InsertFn(record); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := record.Key()
	for _, r := range m.records {
		if r.Key() == key {
			return domain.ErrConflict
		}
	}
	m.nextID++
	record.ID = m.nextID
	cp := *record
	m.records[record.ID] = &cp
	return nil
}

func (m *MockSyncRecordStore) UpdateOperation(ctx context.Context, id int64, op domain.OperationType) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[id]
	if !ok {
		return domain.ErrNotFound
	}
	r.OperationType = op
	return nil
}

func (m *MockSyncRecordStore) Delete(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, id)
	return nil
}

func (m *MockSyncRecordStore) ListByType(ctx context.Context, entityType domain.EntityType, op domain.OperationType) ([]*domain.SynchronizationRecord, error) {
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	var result []*domain.SynchronizationRecord
	for _, r := range m.snapshot() {
		if r.EntityType == entityType && r.OperationType == op {
			result = append(result, r)
		}
	}
	return result, nil
}

func (m *MockSyncRecordStore) List(ctx context.Context) ([]*domain.SynchronizationRecord, error) {
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	return m.snapshot(), nil
}

func (m *MockSyncRecordStore) DeleteByEntityType(ctx context.Context, entityType domain.EntityType) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, r := range m.records {
		if r.EntityType == entityType {
			delete(m.records, id)
			n++
		}
	}
	return n, nil
}

func (m *MockSyncRecordStore) DeleteAll(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := int64(len(m.records))
	m.records = make(map[int64]*domain.SynchronizationRecord)
	return n, nil
}

// Helper methods for testing

// Seed inserts records directly, bypassing the merge
func (m *MockSyncRecordStore) Seed(records ...*domain.SynchronizationRecord) {
	for _, r := range records {
		_ = m.Insert(context.Background(), r)
	}
}

// Count returns the number of stored records
func (m *MockSyncRecordStore) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

// snapshot returns copies of every record ordered by id
func (m *MockSyncRecordStore) snapshot() []*domain.SynchronizationRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]*domain.SynchronizationRecord, 0, len(m.records))
	for _, r := range m.records {
		cp := *r
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}
