package postgres

import (
	"fmt"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(&pq.Error{Code: "23505"}))
	assert.True(t, isUniqueViolation(fmt.Errorf("insert: %w", &pq.Error{Code: "23505"})))
	assert.False(t, isUniqueViolation(&pq.Error{Code: "23503"}))
	assert.False(t, isUniqueViolation(nil))
}

func TestDecodeAddress(t *testing.T) {
	address, err := decodeAddress([]byte(`{"city":"Lyon","country_code":"FR"}`))
	require.NoError(t, err)
	require.NotNil(t, address)
	assert.Equal(t, "Lyon", address.City)
	assert.Equal(t, "FR", address.CountryCode)

	for _, empty := range [][]byte{nil, []byte("null")} {
		address, err := decodeAddress(empty)
		require.NoError(t, err)
		assert.Nil(t, address)
	}

	_, err = decodeAddress([]byte(`{`))
	assert.Error(t, err)
}

func TestCheckoutURL(t *testing.T) {
	assert.Equal(t, "https://shop.example.com/cart", checkoutURL("https://shop.example.com/"))
	assert.Equal(t, "https://shop.example.com/cart", checkoutURL("https://shop.example.com"))
	assert.Empty(t, checkoutURL(""))
}

func TestHashLockName(t *testing.T) {
	assert.Equal(t, hashLockName("synchronization"), hashLockName("synchronization"))
	assert.NotEqual(t, hashLockName("synchronization"), hashLockName("migration"))
}

func TestSettingsStore_KeySealing(t *testing.T) {
	encryptor, err := NewSecretEncryptor(testKey)
	require.NoError(t, err)
	store := NewSettingsStore(nil, encryptor)

	plain, sealed, err := store.sealKey("abc-us6")
	require.NoError(t, err)
	assert.Empty(t, plain)
	assert.NotEmpty(t, sealed)

	key, err := store.openKey(plain, sealed)
	require.NoError(t, err)
	assert.Equal(t, "abc-us6", key)

	// plaintext rows written before an encryption key was configured stay readable
	key, err = store.openKey("legacy-us1", nil)
	require.NoError(t, err)
	assert.Equal(t, "legacy-us1", key)

	_, err = NewSettingsStore(nil, nil).openKey("", sealed)
	assert.Error(t, err)
}

func TestSettingsStore_NoEncryptor(t *testing.T) {
	store := NewSettingsStore(nil, nil)
	plain, sealed, err := store.sealKey("abc-us6")
	require.NoError(t, err)
	assert.Equal(t, "abc-us6", plain)
	assert.Nil(t, sealed)
}

func TestNewEventOutbox_Defaults(t *testing.T) {
	outbox := NewEventOutbox(nil, OutboxConfig{})
	assert.Equal(t, defaultOutboxPoll, outbox.poll)
	assert.Equal(t, defaultOutboxClaim, outbox.claim)
	assert.NotNil(t, outbox.logger)
	assert.NoError(t, outbox.Close())

	outbox = NewEventOutbox(nil, OutboxConfig{PollInterval: time.Second, ClaimTimeout: time.Minute})
	assert.Equal(t, time.Second, outbox.poll)
	assert.Equal(t, time.Minute, outbox.claim)
}
