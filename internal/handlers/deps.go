package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"firebase.google.com/go/v4/auth"
	"github.com/go-chi/chi/v5"

	"github.com/GregMSThompson/dashboard-backend/internal/errs"
	"github.com/GregMSThompson/dashboard-backend/internal/response"
)

type Deps struct {
	Log             *slog.Logger
	ResponseHandler response.ResponseHandler
	UserSvc         UserService
	PreferencesSvc  PreferencesService
	Firebase        *auth.Client
	// Identity authenticates the caller and puts the uid on the request context.
	Identity func(http.Handler) http.Handler
	// ProjectID labels Cloud trace ids in request logs.
	ProjectID string
}

// decodeJSON reads a JSON request body. Malformed bodies are the caller's fault and
// come back as validation errors.
func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errs.NewValidationError("request body is required")
		}
		return errs.NewValidationError("invalid request body: " + err.Error())
	}
	return nil
}

// pathParam returns a decoded chi URL parameter; layout names may contain escaped
// characters such as spaces or slashes.
func pathParam(r *http.Request, key string) string {
	raw := chi.URLParam(r, key)
	if v, err := url.PathUnescape(raw); err == nil {
		return v
	}
	return raw
}
