package response

import (
	"net/http"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// SuccessEnvelope wraps every successful payload. Data is always present and is
// null when there is nothing to return, e.g. no active layout yet.
type SuccessEnvelope struct {
	Success   bool   `json:"success"`
	Data      any    `json:"data"`
	RequestID string `json:"requestId,omitempty"`
}

func (h *responseHandler) WriteSuccess(w http.ResponseWriter, r *http.Request, status int, data any) {
	h.writeJSON(w, r, status, SuccessEnvelope{
		Success:   true,
		Data:      data,
		RequestID: chimiddleware.GetReqID(r.Context()),
	})
}
