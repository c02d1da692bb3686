package middleware

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/humanebio/storefront/pkg/auth"
	"github.com/humanebio/storefront/pkg/logger"
	"github.com/humanebio/storefront/pkg/reqid"
)

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Hijack lets the admin order feed upgrade to a websocket through the chain.
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("middleware: response writer does not support hijacking")
	}
	return h.Hijack()
}

// Logger logs each request with method, path, status, duration and IP, and
// injects a per-request logger tagged with the request_id from
// reqid.Middleware. Authenticate runs later in the chain, so the user id is
// read after the handler returns.
func Logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		reqLog := logger.L.With("request_id", reqid.FromCtx(r.Context()))
		r = r.WithContext(logger.InjectLogger(r.Context(), reqLog))

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		holder := &identityHolder{}
		next.ServeHTTP(rw, r.WithContext(withHolder(r.Context(), holder)))

		attrs := []any{
			"method", r.Method,
			"path", r.URL.Path,
			"status", rw.statusCode,
			"duration", time.Since(start).String(),
			"ip", clientIP(r),
		}
		if holder.id != nil {
			attrs = append(attrs, "user_id", holder.id.UserID)
		}
		reqLog.Info("request", attrs...)
	})
}

// identityHolder lets Authenticate report the resolved caller back to Logger,
// which sits earlier in the chain.
type identityHolder struct{ id *auth.Identity }
