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
var _ driven.SettingsStore = (*SettingsStore)(nil)

// SettingsStore implements driven.SettingsStore using PostgreSQL.
// The API key is sealed with the encryptor when one is configured.
type SettingsStore struct {
	db        *DB
	encryptor *SecretEncryptor
}

// NewSettingsStore creates a new SettingsStore. encryptor may be nil.
func NewSettingsStore(db *DB, encryptor *SecretEncryptor) *SettingsStore {
	return &SettingsStore{db: db, encryptor: encryptor}
}

// GetSettings returns the saved settings with their store list overrides
func (s *SettingsStore) GetSettings(ctx context.Context) (*domain.Settings, error) {
	query := `
		SELECT api_key, api_key_encrypted, pass_ecommerce_data, default_list_id,
			   batch_operation_number, store_id_mask, currency_code,
			   auto_synchronization, synchronization_period_hours, updated_at
		FROM sync_settings
		WHERE id = 1
	`

	settings := domain.DefaultSettings()
	var plainKey string
	var sealedKey []byte

	err := s.db.QueryRowContext(ctx, query).Scan(
		&plainKey,
		&sealedKey,
		&settings.PassEcommerceData,
		&settings.DefaultListID,
		&settings.BatchOperationNumber,
		&settings.StoreIDMask,
		&settings.CurrencyCode,
		&settings.AutoSynchronization,
		&settings.SynchronizationPeriodH,
		&settings.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get settings: %w", err)
	}

	settings.APIKey, err = s.openKey(plainKey, sealedKey)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT store_id, list_id FROM sync_store_lists ORDER BY store_id`)
	if err != nil {
		return nil, fmt.Errorf("get store lists: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var storeID int64
		var listID string
		if err := rows.Scan(&storeID, &listID); err != nil {
			return nil, fmt.Errorf("scan store list: %w", err)
		}
		settings.StoreLists[storeID] = listID
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get store lists: %w", err)
	}

	return settings, nil
}

// SaveSettings replaces the settings row and every store list override in one transaction
func (s *SettingsStore) SaveSettings(ctx context.Context, settings *domain.Settings) error {
	plainKey, sealedKey, err := s.sealKey(settings.APIKey)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO sync_settings (id, api_key, api_key_encrypted, pass_ecommerce_data, default_list_id,
								   batch_operation_number, store_id_mask, currency_code,
								   auto_synchronization, synchronization_period_hours, updated_at)
		VALUES (1, $1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			api_key = EXCLUDED.api_key,
			api_key_encrypted = EXCLUDED.api_key_encrypted,
			pass_ecommerce_data = EXCLUDED.pass_ecommerce_data,
			default_list_id = EXCLUDED.default_list_id,
			batch_operation_number = EXCLUDED.batch_operation_number,
			store_id_mask = EXCLUDED.store_id_mask,
			currency_code = EXCLUDED.currency_code,
			auto_synchronization = EXCLUDED.auto_synchronization,
			synchronization_period_hours = EXCLUDED.synchronization_period_hours,
			updated_at = EXCLUDED.updated_at
	`

	return s.db.Transaction(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, query,
			plainKey,
			sealedKey,
			settings.PassEcommerceData,
			settings.DefaultListID,
			settings.BatchOperationNumber,
			settings.StoreIDMask,
			settings.CurrencyCode,
			settings.AutoSynchronization,
			settings.SynchronizationPeriodH,
			settings.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("save settings: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM sync_store_lists`); err != nil {
			return fmt.Errorf("clear store lists: %w", err)
		}
		for storeID, listID := range settings.StoreLists {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO sync_store_lists (store_id, list_id) VALUES ($1, $2)`, storeID, listID); err != nil {
				return fmt.Errorf("save store list %d: %w", storeID, err)
			}
		}
		return nil
	})
}

// sealKey returns the column values for an API key
func (s *SettingsStore) sealKey(apiKey string) (string, []byte, error) {
	if s.encryptor == nil || apiKey == "" {
		return apiKey, nil, nil
	}
	sealed, err := s.encryptor.EncryptString(apiKey)
	if err != nil {
		return "", nil, fmt.Errorf("encrypt api key: %w", err)
	}
	return "", sealed, nil
}

// openKey prefers the sealed column and falls back to a plaintext key
func (s *SettingsStore) openKey(plainKey string, sealedKey []byte) (string, error) {
	if len(sealedKey) == 0 {
		return plainKey, nil
	}
	if s.encryptor == nil {
		return "", fmt.Errorf("api key is encrypted but no encryption key is configured")
	}
	key, err := s.encryptor.DecryptString(sealedKey)
	if err != nil {
		return "", fmt.Errorf("decrypt api key: %w", err)
	}
	return key, nil
}
