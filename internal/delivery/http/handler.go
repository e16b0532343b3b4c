package http

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/rs/cors"
	"github.com/vogiaan1904/ticketbottle-gateway/internal/gateway"
	pkgErrors "github.com/vogiaan1904/ticketbottle-gateway/pkg/errors"
	"github.com/vogiaan1904/ticketbottle-gateway/pkg/logger"
	"github.com/vogiaan1904/ticketbottle-gateway/pkg/response"
)

const healthCheckTimeout = 2 * time.Second

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

var errUnhealthy = pkgErrors.NewHTTPError(1001, "Service unhealthy").WithStatus(http.StatusServiceUnavailable)

type HTTPHandler struct {
	reg        *gateway.Registry
	topics     *gateway.TopicIndex
	checks     map[string]HealthCheck
	instanceID string
	l          logger.Logger
}

func NewHTTPHandler(
	reg *gateway.Registry,
	topics *gateway.TopicIndex,
	checks map[string]HealthCheck,
	instanceID string,
	l logger.Logger,
) *HTTPHandler {
	return &HTTPHandler{
		reg:        reg,
		topics:     topics,
		checks:     checks,
		instanceID: instanceID,
		l:          l,
	}
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			h.l.Warnf(ctx, "http.HTTPHandler.HealthCheck: %s: %v", name, err)
			h.logEncode(ctx, response.Error(w, errUnhealthy))
			return
		}
	}

	h.logEncode(ctx, response.OK(w, map[string]any{
		"status":   "healthy",
		"service":  "chat-gateway",
		"instance": h.instanceID,
	}))
}

func (h *HTTPHandler) Stats(w http.ResponseWriter, r *http.Request) {
	h.logEncode(r.Context(), response.OK(w, map[string]any{
		"instance":    h.instanceID,
		"connections": h.reg.Count(),
		"identified":  h.reg.IdentifiedCount(),
		"topics":      h.topics.TopicCount(),
	}))
}

func (h *HTTPHandler) logEncode(ctx context.Context, err error) {
	if err != nil {
		h.l.Errorf(ctx, "http.HTTPHandler: encode response: %v", err)
	}
}

// NewRouter mounts the HTTP endpoints and the websocket upgrade handler.
func NewRouter(h *HTTPHandler, ws http.Handler, allowedOrigins []string, l logger.Logger) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", h.HealthCheck)
	mux.HandleFunc("GET /stats", h.Stats)
	mux.Handle("GET /ws", ws)

	c := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})

	return logger.HTTPMiddleware(l)(c.Handler(mux))
}
