package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/coachkit/coachplane/pkg/coacherr"
	"github.com/coachkit/coachplane/pkg/contracts"
	"github.com/coachkit/coachplane/pkg/models"
	pkgmw "github.com/coachkit/coachplane/pkg/middleware"
	"github.com/rs/zerolog/log"
)

// AuthMiddleware authenticates requests with the provider chain and stores
// the resulting Identity in the request context.
//
// Anonymous requests pass through unless requireAuth is set; the service
// layer turns them away before doing any work.
type AuthMiddleware struct {
	chain       contracts.AuthProviderChain
	requireAuth bool
}

// NewAuthMiddleware creates the auth middleware.
func NewAuthMiddleware(chain contracts.AuthProviderChain, requireAuth bool) *AuthMiddleware {
	return &AuthMiddleware{
		chain:       chain,
		requireAuth: requireAuth,
	}
}

// Handler returns the HTTP handler middleware that authenticates requests.
func (am *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isProbe(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		identity, err := am.chain.Authenticate(r.Context(), r)
		if err != nil {
			log.Debug().Err(err).Str("path", r.URL.Path).Msg("Authentication failed")
			unauthorized(w)
			return
		}
		if identity == nil && am.requireAuth {
			unauthorized(w)
			return
		}

		next.ServeHTTP(w, r.WithContext(pkgmw.SetIdentity(r.Context(), identity)))
	})
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="coachplane"`)
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(models.Fail[struct{}](coacherr.MsgNotAuthorized))
}
