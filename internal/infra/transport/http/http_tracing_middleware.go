package http

import (
	"net/http"

	"github.com/google/uuid"

	context_ "github.com/mkrupp/fintrack/internal/infra/context"
	"github.com/mkrupp/fintrack/internal/util/encoding"
)

const TraceIDHeader = "X-Request-ID"

// TracingMiddleware adds the request's trace id to the context and echoes it in the response.
// It uses the X-Request-ID header if present, otherwise generates one from a UUIDv7.
func TracingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID := getTraceID(r)
		if traceID != "" {
			w.Header().Set(TraceIDHeader, traceID)
		}

		next.ServeHTTP(w, r.WithContext(context_.WithTraceID(r.Context(), traceID)))
	})
}

// NewTraceID returns a fresh, time ordered trace id.
func NewTraceID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return ""
	}

	return encoding.EncodeCrockfordB32LC(id[:])
}

func getTraceID(r *http.Request) string {
	if traceID := r.Header.Get(TraceIDHeader); traceID != "" {
		return traceID
	}

	return NewTraceID()
}
