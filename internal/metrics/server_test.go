package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandlerServesMetricSurface(t *testing.T) {
	KillSwitchScore.Set(0.42)
	RecordDecision("stock", "buy", 12)

	handler := NewServer(0, zerolog.Nop()).Handler()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, "quantfuse_kill_switch_score")
	assert.Contains(t, body, "quantfuse_decisions_total")
}

func TestHandlerHealth(t *testing.T) {
	handler := NewServer(0, zerolog.Nop()).Handler()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}
