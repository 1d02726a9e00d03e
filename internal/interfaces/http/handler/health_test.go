package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealthHandler(t *testing.T) {
	up := pingFunc(func(context.Context) error { return nil })
	down := pingFunc(func(context.Context) error { return errors.New("dial tcp: connection refused") })

	t.Run("healthy", func(t *testing.T) {
		r := newTestRouter()
		r.GET("/health", NewHealthHandler("1.2.3", map[string]Pinger{"database": up, "cache": up}).Health)

		w := doRequest(r, http.MethodGet, "/health", "")
		require.Equal(t, http.StatusOK, w.Code)

		var health HealthResponse
		require.NoError(t, json.Unmarshal(decode(t, w).Data, &health))
		assert.Equal(t, "ok", health.Status)
		assert.Equal(t, "1.2.3", health.Version)
		assert.Equal(t, map[string]string{"database": "up", "cache": "up"}, health.Checks)
	})

	t.Run("degraded", func(t *testing.T) {
		r := newTestRouter()
		r.GET("/health", NewHealthHandler("1.2.3", map[string]Pinger{"database": up, "cache": down}).Health)

		w := doRequest(r, http.MethodGet, "/health", "")
		require.Equal(t, http.StatusServiceUnavailable, w.Code)

		resp := decode(t, w)
		assert.False(t, resp.Success)
		var health HealthResponse
		require.NoError(t, json.Unmarshal(resp.Data, &health))
		assert.Equal(t, "down", health.Checks["cache"])
	})
}
