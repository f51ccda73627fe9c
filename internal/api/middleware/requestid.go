package middleware

import (
	"net/http"

	pkgmw "github.com/coachkit/coachplane/pkg/middleware"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// RequestID copies the chi request id into the shared request context and
// echoes it in the X-Request-Id response header. Mount it after
// chimw.RequestID.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := chimw.GetReqID(r.Context())
		if id == "" {
			next.ServeHTTP(w, r)
			return
		}
		w.Header().Set("X-Request-Id", id)
		next.ServeHTTP(w, r.WithContext(pkgmw.SetRequestID(r.Context(), id)))
	})
}
