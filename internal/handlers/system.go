package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/abrezinsky/avavote/internal/logger"
)

// handleHealth pings the store. It answers 503 while the store is
// unreachable so load balancers can route around the instance.
func (h *Handlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "ok", Backend: string(h.Store.Backend())}
	if err := h.Store.Ping(r.Context()); err != nil {
		h.Log.Warn("Health check failed", "error", err)
		resp.Status = "unavailable"
		resp.Error = ToAPIError(err).Message
		respondJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	respondOK(w, resp)
}

func (h *Handlers) handleGetLogLevel(w http.ResponseWriter, r *http.Request) {
	respondOK(w, h.logLevel())
}

// handleSetLogLevel changes the level and, optionally, request logging
func (h *Handlers) handleSetLogLevel(w http.ResponseWriter, r *http.Request) {
	var req LogLevelRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}

	switch strings.ToLower(req.Level) {
	case "":
	case "debug", "info", "warn", "warning", "error":
		h.Log.SetLevel(logger.ParseLevel(req.Level))
	default:
		h.respondError(w, r, BadRequest("level must be one of debug, info, warn, error"))
		return
	}

	if req.HTTPLogging != nil {
		if *req.HTTPLogging {
			h.Log.EnableHTTPLogging()
		} else {
			h.Log.DisableHTTPLogging()
		}
	}

	resp := h.logLevel()
	h.Log.Info("Logging changed", "level", resp.Level, "http_logging", resp.HTTPLogging)
	respondOK(w, resp)
}

func (h *Handlers) logLevel() LogLevelResponse {
	return LogLevelResponse{
		Level:       levelName(h.Log.GetLevel()),
		HTTPLogging: h.Log.IsHTTPLoggingEnabled(),
	}
}

func levelName(level slog.Level) string {
	return strings.ToLower(level.String())
}
