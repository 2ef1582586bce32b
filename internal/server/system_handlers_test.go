package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slippax/lotus-ge/internal/summaries"
)

type stubRelay struct {
	connected bool
}

func (s *stubRelay) IsConnected() bool {
	return s.connected
}

func TestHandleHealthWithoutDatabase(t *testing.T) {
	svc := testService(t, func(ctx context.Context, cat summaries.Category) (summaries.Document, error) {
		return summaries.Document{Items: []summaries.RawRecord{}}, nil
	})
	h := NewSystemHandlers(zerolog.New(nil).Level(zerolog.Disabled), svc, nil, nil, time.Now())

	rec := httptest.NewRecorder()
	h.HandleHealth(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "disabled", body["database"])
}

func TestHandleSystemStatus(t *testing.T) {
	svc := testService(t, func(ctx context.Context, cat summaries.Category) (summaries.Document, error) {
		return summaries.Document{Items: []summaries.RawRecord{}}, nil
	})

	// Populate one cache entry so an age is reported
	_, err := svc.Get(context.Background(), summaries.CategoryAlchemyFloors)
	require.NoError(t, err)

	relay := &stubRelay{connected: true}
	h := NewSystemHandlers(zerolog.New(nil).Level(zerolog.Disabled), svc, nil, relay, time.Now().Add(-time.Minute))

	rec := httptest.NewRecorder()
	h.HandleSystemStatus(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	system, ok := body["system"].(map[string]interface{})
	require.True(t, ok)
	assert.GreaterOrEqual(t, system["uptime_seconds"], float64(60))

	caches, ok := body["caches"].(map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, caches, "alchemy-floors")

	relayStatus, ok := body["relay"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, true, relayStatus["enabled"])
	assert.Equal(t, true, relayStatus["connected"])
}
