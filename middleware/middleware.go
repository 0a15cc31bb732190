// Package middleware holds the net/http middleware of the local web surface.
package middleware

import (
	"bufio"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/devmarvs/digibank/httpclient"
)

// Middleware wraps an http.Handler.
type Middleware = func(http.Handler) http.Handler

// RequestID ensures a request id header is present and carries the id in the
// request context, where outgoing service calls pick it up.
func RequestID() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := strings.TrimSpace(r.Header.Get(httpclient.RequestIDHeader))
			if requestID == "" {
				requestID = httpclient.NewRequestID()
				r.Header.Set(httpclient.RequestIDHeader, requestID)
			}
			w.Header().Set(httpclient.RequestIDHeader, requestID)
			next.ServeHTTP(w, r.WithContext(httpclient.WithRequestID(r.Context(), requestID)))
		})
	}
}

// PanicHandler answers a request whose handler panicked.
type PanicHandler func(w http.ResponseWriter, r *http.Request, err error)

// Recover converts panics into a call to onPanic. The default writes a bare 500.
func Recover(logger *slog.Logger, onPanic PanicHandler) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				err := fmt.Errorf("panic: %v", rec)
				logger.Error("handler panicked", "path", r.URL.Path, "error", err)
				if onPanic != nil {
					onPanic(w, r, err)
					return
				}
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// LoggerOptions configures access logging.
type LoggerOptions struct {
	Message   string
	SkipPaths []string
}

// DefaultLoggerOptions returns default logging options.
func DefaultLoggerOptions() LoggerOptions {
	return LoggerOptions{
		Message:   "request completed",
		SkipPaths: []string{"/metrics", "/healthz", "/readyz"},
	}
}

// Logger writes one access log record per request. Server errors log at
// error level.
func Logger(logger *slog.Logger, options LoggerOptions) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	if options.Message == "" {
		options.Message = "request completed"
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if shouldSkipPath(r.URL.Path, options.SkipPaths) {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			recorder := wrapRecorder(w)
			next.ServeHTTP(recorder, r)

			status := recorder.Status()
			attrs := []any{
				"method", r.Method,
				"path", r.URL.Path,
				"status", status,
				"bytes", recorder.Bytes(),
				"duration", time.Since(start),
				"request_id", httpclient.RequestIDFromContext(r.Context()),
			}
			if status >= http.StatusInternalServerError {
				logger.Error(options.Message, attrs...)
				return
			}
			logger.Info(options.Message, attrs...)
		})
	}
}

func shouldSkipPath(path string, skip []string) bool {
	for _, prefix := range skip {
		if path == prefix || strings.HasPrefix(path, strings.TrimSuffix(prefix, "/")+"/") {
			return true
		}
	}
	return false
}

// responseRecorder captures status and response size.
type responseRecorder struct {
	writer http.ResponseWriter
	status int
	bytes  int
}

// wrapRecorder reuses an outer recorder so nested middleware share one.
func wrapRecorder(w http.ResponseWriter) *responseRecorder {
	if recorder, ok := w.(*responseRecorder); ok {
		return recorder
	}
	return &responseRecorder{writer: w}
}

func (r *responseRecorder) Header() http.Header {
	return r.writer.Header()
}

func (r *responseRecorder) WriteHeader(status int) {
	if r.status == 0 {
		r.status = status
	}
	r.writer.WriteHeader(status)
}

func (r *responseRecorder) Write(p []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.writer.Write(p)
	r.bytes += n
	return n, err
}

func (r *responseRecorder) Status() int {
	if r.status == 0 {
		return http.StatusOK
	}
	return r.status
}

func (r *responseRecorder) Bytes() int {
	return r.bytes
}

func (r *responseRecorder) Flush() {
	if flusher, ok := r.writer.(http.Flusher); ok {
		flusher.Flush()
	}
}

func (r *responseRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := r.writer.(http.Hijacker)
	if !ok {
		return nil, nil, http.ErrNotSupported
	}
	return hijacker.Hijack()
}

func (r *responseRecorder) Unwrap() http.ResponseWriter {
	return r.writer
}
