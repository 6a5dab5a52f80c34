package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/GregMSThompson/dashboard-backend/pkg/logger"
)

const cloudTraceHeader = "X-Cloud-Trace-Context"

type loggerMiddleware struct {
	Log       *slog.Logger
	ProjectID string
}

func NewLoggerMiddleware(log *slog.Logger, projectID string) *loggerMiddleware {
	return &loggerMiddleware{Log: log, ProjectID: projectID}
}

// LoggerMiddleware initializes a request-scoped logger with request context.
// This should be one of the first middlewares in the chain.
func (m *loggerMiddleware) LoggerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Extract request ID from Chi middleware (if present)
		requestID := chimiddleware.GetReqID(r.Context())

		attrs := []any{
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
		}
		if trace, span := m.cloudTrace(r.Header.Get(cloudTraceHeader)); trace != "" {
			attrs = append(attrs, logger.TraceKey, trace)
			if span != "" {
				attrs = append(attrs, logger.SpanIDKey, span)
			}
		}

		// Add logger to context
		ctx := logger.ToContext(r.Context(), m.Log.With(attrs...))

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// cloudTrace parses "TRACE_ID/SPAN_ID;o=OPTIONS" into the resource name Cloud
// Logging uses to group entries by request.
func (m *loggerMiddleware) cloudTrace(header string) (trace, span string) {
	if header == "" || m.ProjectID == "" {
		return "", ""
	}
	traceID, rest, _ := strings.Cut(header, "/")
	if traceID == "" {
		return "", ""
	}
	span, _, _ = strings.Cut(rest, ";")
	return fmt.Sprintf("projects/%s/traces/%s", m.ProjectID, traceID), span
}
