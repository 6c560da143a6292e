package obs_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-pos/internal/common"
	"github.com/noah-isme/backend-pos/internal/obs"
)

func TestRequestLoggerIncludesTerminal(t *testing.T) {
	var buf bytes.Buffer
	logger := obs.RequestLogger{Logger: zerolog.New(&buf)}
	handler := common.TerminalMiddleware(logger.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/quotes", nil)
	req.Header.Set(common.TerminalHeader, "register-3")
	req.Header.Set("X-Forwarded-For", "10.0.0.7, 10.0.0.1")
	req = req.WithContext(obs.WithRoutePattern(req.Context(), "/api/v1/quotes"))
	handler.ServeHTTP(httptest.NewRecorder(), req)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "http_request", entry["message"])
	require.Equal(t, "register-3", entry["terminal_id"])
	require.Equal(t, "10.0.0.7", entry["client_ip"])
	require.Equal(t, "/api/v1/quotes", entry["route"])
	require.EqualValues(t, http.StatusCreated, entry["status"])
}
