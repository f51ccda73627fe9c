package middleware

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// route describes the matched API route. It is only complete after the
// router has served the request.
type route struct {
	pattern  string
	clientID string
	kind     string
}

func matchedRoute(r *http.Request) route {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return route{}
	}
	return route{
		pattern:  rctx.RoutePattern(),
		clientID: rctx.URLParam("clientId"),
		kind:     rctx.URLParam("kind"),
	}
}

// isProbe reports whether path is a health or version check.
func isProbe(path string) bool {
	return path == "/health" || path == "/version"
}
