// Package middleware wraps the dashboard's HTTP surface. Every route is a
// read-only view of one finished pipeline run.
package middleware

import (
	"fmt"
	"log/slog"
	"net/http"

	"retail-rfm/internal/errors"
	"retail-rfm/internal/observability"
)

const allowedMethods = "GET, HEAD, OPTIONS"

type Middleware func(http.Handler) http.Handler

func Chain(middlewares ...Middleware) Middleware {
	return func(h http.Handler) http.Handler {
		for i := len(middlewares) - 1; i >= 0; i-- {
			h = middlewares[i](h)
		}
		return h
	}
}

// ReadOnly rejects anything but GET, HEAD and OPTIONS before it reaches the
// router.
func ReadOnly(logger *slog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				next.ServeHTTP(w, r)
			default:
				w.Header().Set("Allow", allowedMethods)
				errors.WriteError(w, logger, errors.MethodNotAllowed(r.Method), observability.GetRequestID(r.Context()))
			}
		})
	}
}

// Recovery turns a handler panic into a 500 envelope. The panic value is
// carried as the error cause so it is logged once, by WriteError.
func Recovery(logger *slog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					appErr := errors.InternalWrap(fmt.Errorf("panic in %s %s: %v", r.Method, r.URL.Path, rec), "An unexpected error occurred")
					errors.WriteError(w, logger, appErr, observability.GetRequestID(r.Context()))
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
