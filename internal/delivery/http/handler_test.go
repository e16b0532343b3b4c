package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vogiaan1904/ticketbottle-gateway/internal/gateway"
	"github.com/vogiaan1904/ticketbottle-gateway/pkg/logger"
	"github.com/vogiaan1904/ticketbottle-gateway/pkg/response"
)

type nopTransport struct{}

func (nopTransport) Ping() error  { return nil }
func (nopTransport) Close() error { return nil }

func newRouter(t *testing.T, checks map[string]HealthCheck) (http.Handler, *gateway.Registry, *gateway.TopicIndex) {
	t.Helper()

	l := logger.InitializeTestZapLogger()
	index := gateway.NewTopicIndex(0)
	reg := gateway.NewRegistry(index, l)
	h := NewHTTPHandler(reg, index, checks, "gw-1", l)

	ws := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	return NewRouter(h, ws, []string{"https://app.example"}, l), reg, index
}

func decodeResp(t *testing.T, rec *httptest.ResponseRecorder) response.Resp {
	t.Helper()
	var body response.Resp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestHealthCheck(t *testing.T) {
	router, _, _ := newRouter(t, map[string]HealthCheck{
		"cache": func(context.Context) error { return nil },
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	data := decodeResp(t, rec).Data.(map[string]any)
	assert.Equal(t, "healthy", data["status"])
	assert.Equal(t, "gw-1", data["instance"])
}

func TestHealthCheckUnhealthy(t *testing.T) {
	router, _, _ := newRouter(t, map[string]HealthCheck{
		"cache":    func(context.Context) error { return nil },
		"database": func(context.Context) error { return errors.New("connection refused") },
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, 1001, decodeResp(t, rec).ErrorCode)
}

func TestStats(t *testing.T) {
	router, reg, index := newRouter(t, nil)

	c := reg.Accept(nopTransport{}, 1)
	require.NoError(t, index.Subscribe(c, "a", "b"))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stats", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	data := decodeResp(t, rec).Data.(map[string]any)
	assert.EqualValues(t, 1, data["connections"])
	assert.EqualValues(t, 0, data["identified"])
	assert.EqualValues(t, 2, data["topics"])
}

func TestRouter(t *testing.T) {
	router, _, _ := newRouter(t, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ws", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/stats", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	req.Header.Set("Origin", "https://app.example")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, "https://app.example", rec.Header().Get("Access-Control-Allow-Origin"))
}
