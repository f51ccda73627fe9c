package middleware

import (
	"net/http"
	"time"

	pkgmw "github.com/coachkit/coachplane/pkg/middleware"
	"github.com/rs/zerolog/log"
)

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	bytes      int
}

func newResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.bytes += n
	return n, err
}

// SlowRequest is the duration above which a request is logged as slow.
const SlowRequest = 2 * time.Minute

// Logger returns structured request logging middleware. Probe requests
// are logged at debug level; requests carry the client and generation
// kind from the matched route.
func Logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := newResponseWriter(w)

		next.ServeHTTP(rw, r)

		duration := time.Since(start)

		event := log.Info()
		switch {
		case rw.statusCode >= 500:
			event = log.Error()
		case rw.statusCode >= 400, duration > SlowRequest:
			event = log.Warn()
		case isProbe(r.URL.Path):
			event = log.Debug()
		}

		if id := pkgmw.GetRequestID(r.Context()); id != "" {
			event = event.Str("request_id", id)
		}
		rt := matchedRoute(r)
		if rt.pattern != "" {
			event = event.Str("route", rt.pattern)
		}
		if rt.clientID != "" {
			event = event.Str("client_id", rt.clientID)
		}
		if rt.kind != "" {
			event = event.Str("generation_kind", rt.kind)
		}
		event.
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rw.statusCode).
			Int("bytes", rw.bytes).
			Dur("duration", duration).
			Bool("slow", duration > SlowRequest).
			Str("remote", r.RemoteAddr).
			Msg("request")
	})
}
