package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/mkrupp/fintrack/internal/infra/logging"
)

var errPanic = errors.New("internal error")

// RescueingMiddleware recovers from panics in HTTP handlers, logs the panic with its
// stack trace and answers 500.
func RescueingMiddleware(next http.Handler, log logging.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func(ctx context.Context) {
			if p := recover(); p != nil {
				if p == http.ErrAbortHandler { //nolint:errorlint
					panic(p)
				}

				log.ErrorContext(ctx, "request panic", slog.Group("http",
					"uri", r.RequestURI,
					"method", r.Method,
				), slog.Group("error",
					"panic", p,
					"stack", string(debug.Stack()),
				))
				WriteError(w, errPanic)
			}
		}(r.Context())
		next.ServeHTTP(w, r)
	})
}
