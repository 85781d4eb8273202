package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/okian/drivescore/pkg/logger"
	"github.com/okian/drivescore/pkg/metrics"
)

// errorClasses maps error statuses to the error_type metric label.
var errorClasses = map[int]string{
	http.StatusBadRequest:            "client_error",
	http.StatusNotFound:              "not_found",
	http.StatusConflict:              "conflict",
	http.StatusRequestEntityTooLarge: "too_large",
	http.StatusInternalServerError:   "server_error",
	http.StatusServiceUnavailable:    "unavailable",
}

// MetricsMiddleware wraps an endpoint handler to record request count and
// latency, plus error metrics for 4xx and 5xx responses. Server errors are
// also logged to log; a nil log discards them.
func MetricsMiddleware(next http.HandlerFunc, endpoint string, log logger.Logger) http.HandlerFunc {
	if log == nil {
		log = logger.Discard()
	}
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		durationMs := float64(time.Since(start).Microseconds()) / 1000
		status := strconv.Itoa(rec.status)
		metrics.RecordHTTPRequest(endpoint, r.Method, status)
		metrics.RecordHTTPRequestDuration(endpoint, r.Method, status, durationMs)

		if rec.status < http.StatusBadRequest {
			return
		}
		class := errorClass(rec.status)
		metrics.RecordErrorByEndpoint(endpoint, r.Method, class)
		metrics.RecordErrorByType(class, errorSeverity(rec.status))
		metrics.RecordErrorLatency("http", class, durationMs)

		if rec.status >= http.StatusInternalServerError {
			log.Warn(r.Context(), "request failed",
				logger.String("endpoint", endpoint),
				logger.String("method", r.Method),
				logger.Int("status", rec.status),
				logger.Int("bytes", rec.bytes),
			)
		}
	}
}

// errorClass returns the error_type label for an error status.
func errorClass(status int) string {
	if c, ok := errorClasses[status]; ok {
		return c
	}
	if status >= http.StatusInternalServerError {
		return "server_error"
	}
	return "client_error"
}

// errorSeverity grades server errors above client errors.
func errorSeverity(status int) string {
	if status >= http.StatusInternalServerError {
		return "high"
	}
	return "medium"
}

// statusRecorder captures the status code and body size of a response.
type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (rw *statusRecorder) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *statusRecorder) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.bytes += n
	if err != nil {
		return n, fmt.Errorf("write response: %w", err)
	}
	return n, nil
}
