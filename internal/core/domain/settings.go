package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Settings defaults
const (
	DefaultStoreIDMask          = "store-%d"
	DefaultBatchOperationNumber = 500
	MaxBatchOperationNumber     = 1000
	DefaultCurrencyCode         = "USD"
	DefaultSyncPeriodHours      = 12
)

// Settings holds the synchronization configuration edited by administrators
type Settings struct {
	APIKey string `json:"-"`

	// PassEcommerceData enables stores, customers, products, orders and carts
	PassEcommerceData bool `json:"pass_ecommerce_data"`

	// DefaultListID is the list used by every store without an override
	DefaultListID string `json:"default_list_id"`

	// StoreLists overrides the destination list per store id
	StoreLists map[int64]string `json:"store_lists,omitempty"`

	BatchOperationNumber int    `json:"batch_operation_number"`
	StoreIDMask          string `json:"store_id_mask"`
	CurrencyCode         string `json:"currency_code"`

	// Periodic synchronization
	AutoSynchronization    bool `json:"auto_synchronization"`
	SynchronizationPeriodH int  `json:"synchronization_period_hours"`

	UpdatedAt time.Time `json:"updated_at"`
}

// DefaultSettings returns the settings used before an administrator saves any
func DefaultSettings() *Settings {
	return &Settings{
		BatchOperationNumber:   DefaultBatchOperationNumber,
		StoreIDMask:            DefaultStoreIDMask,
		CurrencyCode:           DefaultCurrencyCode,
		SynchronizationPeriodH: DefaultSyncPeriodHours,
		StoreLists:             map[int64]string{},
	}
}

// HasAPIKey returns true once credentials are configured
func (s *Settings) HasAPIKey() bool {
	return strings.TrimSpace(s.APIKey) != ""
}

// IsConfigured returns true when a pass can be started
func (s *Settings) IsConfigured() bool {
	return s.HasAPIKey() && isListSelected(s.DefaultListID)
}

// ListFor returns the destination list of a store, empty when the store is not mapped
func (s *Settings) ListFor(storeID int64) string {
	if list, ok := s.StoreLists[storeID]; ok && isListSelected(list) {
		return list
	}
	if isListSelected(s.DefaultListID) {
		return s.DefaultListID
	}
	return ""
}

// StoresForList returns the ids of the given stores that are mapped to a list
func (s *Settings) StoresForList(listID string, stores []*Store) []int64 {
	var ids []int64
	for _, store := range stores {
		if list := s.ListFor(store.ID); list != "" && list == listID {
			ids = append(ids, store.ID)
		}
	}
	return ids
}

// Lists returns every distinct destination list in use
func (s *Settings) Lists() []string {
	seen := make(map[string]bool)
	var lists []string
	add := func(list string) {
		if isListSelected(list) && !seen[list] {
			seen[list] = true
			lists = append(lists, list)
		}
	}
	add(s.DefaultListID)
	for _, list := range s.StoreLists {
		add(list)
	}
	return lists
}

// RemoteStoreID formats a host store id with the configured mask
func (s *Settings) RemoteStoreID(storeID int64) string {
	mask := s.StoreIDMask
	if mask == "" {
		mask = DefaultStoreIDMask
	}
	return fmt.Sprintf(mask, storeID)
}

// BatchSize returns the effective maximum batch size
func (s *Settings) BatchSize() int {
	switch {
	case s.BatchOperationNumber <= 0:
		return DefaultBatchOperationNumber
	case s.BatchOperationNumber > MaxBatchOperationNumber:
		return MaxBatchOperationNumber
	default:
		return s.BatchOperationNumber
	}
}

// SynchronizationPeriod returns the schedule interval
func (s *Settings) SynchronizationPeriod() time.Duration {
	hours := s.SynchronizationPeriodH
	if hours <= 0 {
		hours = DefaultSyncPeriodHours
	}
	return time.Duration(hours) * time.Hour
}

// Validate checks the settings before they are saved
func (s *Settings) Validate() error {
	if s.BatchOperationNumber < 0 || s.BatchOperationNumber > MaxBatchOperationNumber {
		return fmt.Errorf("%w: batch operation number must be between 1 and %d", ErrInvalidInput, MaxBatchOperationNumber)
	}
	if s.StoreIDMask != "" && strings.Count(s.StoreIDMask, "%d") != 1 {
		return fmt.Errorf("%w: store id mask must contain exactly one %%d", ErrInvalidInput)
	}
	if s.SynchronizationPeriodH < 0 {
		return fmt.Errorf("%w: synchronization period must be positive", ErrInvalidInput)
	}
	return nil
}

// isListSelected treats empty and nil-uuid list ids as "no list"
func isListSelected(listID string) bool {
	listID = strings.TrimSpace(listID)
	return listID != "" && listID != uuid.Nil.String()
}
