package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, Register(reg))

	// Registrar dos veces no es error.
	require.NoError(t, Register(reg))

	AuthAttempts.Inc()
	TokensIssued.WithLabelValues("access").Inc()

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "auth_attempts_total")
	assert.Contains(t, names, "auth_failures_total")
	assert.Contains(t, names, "auth_tokens_issued_total")
	assert.Contains(t, names, "auth_registrations_total")
}

func TestServer_Metrics(t *testing.T) {
	require.NoError(t, Register(nil))
	AuthAttempts.Inc()
	Registrations.Inc()

	srv := NewServer(":0")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "auth_attempts_total")
	assert.Contains(t, body, "auth_registrations_total")
}

func TestServer_Healthz(t *testing.T) {
	srv := NewServer(":0")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}
