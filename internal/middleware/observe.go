package middleware

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"retail-rfm/internal/observability"
)

func RequestID() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get("X-Request-ID")
			if requestID == "" {
				requestID = uuid.NewString()
			}

			w.Header().Set("X-Request-ID", requestID)
			ctx := observability.WithRequestID(r.Context(), requestID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Observe opens a span per request and logs it once on completion. runID
// reports the pipeline run being served so every request line can be tied to
// the report it read from.
func Observe(logger *slog.Logger, runID func() string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, span := observability.StartSpan(r.Context(), r.Method+" "+r.URL.Path)
			span.SetTag("http.method", r.Method)
			span.SetTag("http.path", r.URL.Path)
			span.SetTag("request_id", observability.GetRequestID(ctx))
			if runID != nil {
				span.SetTag("run_id", runID())
			}

			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			r = r.WithContext(ctx)
			next.ServeHTTP(rec, r)

			// The router records the matched pattern on the request.
			if r.Pattern != "" {
				span.Operation = r.Pattern
			}
			span.SetTag("http.status_code", strconv.Itoa(rec.status))
			// Failures are logged by the error writer; this is the access line.
			span.FinishAndLog(logger, "request completed", "bytes", rec.bytes)
		})
	}
}

// statusRecorder captures the status and size of a response. SSE handlers
// need Flush to reach the underlying writer.
type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int64
}

func (rw *statusRecorder) WriteHeader(statusCode int) {
	rw.status = statusCode
	rw.ResponseWriter.WriteHeader(statusCode)
}

func (rw *statusRecorder) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.bytes += int64(n)
	return n, err
}

func (rw *statusRecorder) Flush() {
	if flusher, ok := rw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func (rw *statusRecorder) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}
