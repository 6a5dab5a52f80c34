package response

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/GregMSThompson/dashboard-backend/pkg/logger"
)

// ResponseHandler writes the JSON envelopes every endpoint answers with.
type ResponseHandler interface {
	WriteSuccess(w http.ResponseWriter, r *http.Request, status int, data any)
	WriteError(w http.ResponseWriter, r *http.Request, status int, code, message string)
	HandleError(w http.ResponseWriter, r *http.Request, err error)
}

type responseHandler struct {
	log *slog.Logger
}

func New(log *slog.Logger) *responseHandler {
	return &responseHandler{log: log}
}

// requestLog prefers the request scoped logger, which carries request_id and uid.
func (h *responseHandler) requestLog(r *http.Request) *slog.Logger {
	if log, ok := logger.Lookup(r.Context()); ok {
		return log
	}
	return h.log
}

func (h *responseHandler) writeJSON(w http.ResponseWriter, r *http.Request, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	// headers are gone by now, so an encode failure can only be logged
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.requestLog(r).Error("failed to encode response", "error", err, "status", status)
	}
}
