package metrics

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, c *Collector) string {
	t.Helper()
	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(body)
}

func TestCollectorExportsRecordedValues(t *testing.T) {
	c, err := New()
	require.NoError(t, err)
	defer c.Shutdown(context.Background())

	ctx := context.Background()
	c.RecordIntent(ctx, "create_note", nil)
	c.RecordIntent(ctx, "create_note", errors.New("db"))
	c.RecordScan(ctx, ScanReport{Delivered: 2, Failed: 1, Duration: 30 * time.Millisecond})
	c.RecordSend(ctx, "message", time.Millisecond, nil)
	require.NoError(t, c.ObservePending(func() int { return 3 }))

	out := scrape(t, c)
	assert.Contains(t, out, "notekeeper_intents")
	assert.Contains(t, out, `intent="create_note"`)
	assert.Contains(t, out, `result="error"`)
	assert.Contains(t, out, "notekeeper_scheduler_scans")
	assert.Contains(t, out, `status="delivered"`)
	assert.Contains(t, out, `status="failed"`)
	assert.NotContains(t, out, `status="delete_failed"`)
	assert.Contains(t, out, "notekeeper_telegram_messages")
	assert.Contains(t, out, "notekeeper_dialog_pending")
}

func TestNilAndNoopCollectors(t *testing.T) {
	ctx := context.Background()
	for _, c := range []*Collector{nil, NewNoop()} {
		assert.NotPanics(t, func() {
			c.RecordIntent(ctx, "noop", nil)
			c.RecordScan(ctx, ScanReport{Delivered: 1})
			c.RecordSend(ctx, "message", 0, nil)
			assert.NoError(t, c.ObservePending(func() int { return 0 }))
			assert.NoError(t, c.Shutdown(ctx))
		})

		rec := httptest.NewRecorder()
		c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	}
}

func TestCollectorsAreIndependent(t *testing.T) {
	a, err := New()
	require.NoError(t, err)
	b, err := New()
	require.NoError(t, err)

	a.RecordIntent(context.Background(), "only_in_a", nil)

	assert.Contains(t, scrape(t, a), "only_in_a")
	assert.NotContains(t, scrape(t, b), "only_in_a")
}
