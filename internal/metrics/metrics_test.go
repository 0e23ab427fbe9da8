package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountersAreRegistered(t *testing.T) {
	before := testutil.ToFloat64(Webhooks.WithLabelValues("batch", "handled"))
	Webhooks.WithLabelValues("batch", "handled").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(Webhooks.WithLabelValues("batch", "handled")))

	LedgerChanges.WithLabelValues("product", "insert").Inc()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)

	assert.True(t, strings.Contains(string(body), "chimpsync_webhooks_total"))
	assert.True(t, strings.Contains(string(body), `chimpsync_ledger_changes_total{entity_type="product",outcome="insert"}`))
}
