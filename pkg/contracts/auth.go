// Package contracts defines the interfaces of the pluggable auth layer.
//
// The server ships an API key provider (operators, ADMIN) and a signed user
// token provider (coaches and clients). Other strategies plug into the same
// chain without touching handlers.
package contracts

import (
	"context"
	"net/http"
	"time"

	"github.com/coachkit/coachplane/pkg/models"
)

// ── Identity ────────────────────────────────────────────────

// Identity represents an authenticated user or operator.
// Produced by an AuthProvider, consumed by the service authorization guard.
type Identity struct {
	// Subject is the unique identifier. For coaches this is the coach id
	// that owns clients, exercise libraries and generation logs.
	Subject string `json:"subject"`

	// Email is the user's email address (may be empty for API keys).
	Email string `json:"email,omitempty"`

	// DisplayName is a human-readable name.
	DisplayName string `json:"display_name,omitempty"`

	// Provider identifies which auth provider authenticated this identity.
	// Values: "apikey", "user_token"
	Provider string `json:"provider"`

	// Role is the platform role: ADMIN, COACH or CLIENT.
	Role models.Role `json:"role"`

	// ExpiresAt is when this identity's token expires.
	ExpiresAt time.Time `json:"expires_at,omitempty"`
}

// IsStaff reports whether the identity may run coaching operations.
func (i *Identity) IsStaff() bool {
	return i != nil && (i.Role == models.RoleCoach || i.Role == models.RoleAdmin)
}

// ── AuthProvider ────────────────────────────────────────────

// AuthProvider authenticates an HTTP request and returns an Identity.
//
// The chain pattern:
//   - Return (*Identity, nil) → authenticated, stop chain
//   - Return (nil, nil) → this provider doesn't handle this request, try next
//   - Return (nil, error) → authentication was attempted but failed, reject
type AuthProvider interface {
	// Name returns the provider identifier.
	Name() string

	// Authenticate inspects the request and returns an Identity.
	Authenticate(ctx context.Context, r *http.Request) (*Identity, error)

	// Enabled returns whether this provider is configured and active.
	Enabled() bool
}

// ── AuthProviderChain ───────────────────────────────────────

// AuthProviderChain tries providers in priority order until one returns an Identity.
type AuthProviderChain interface {
	// Authenticate walks the chain of providers in order.
	// Returns the first successful Identity, or (nil, nil) if no provider matched.
	Authenticate(ctx context.Context, r *http.Request) (*Identity, error)

	// RegisterProvider adds a provider to the end of the chain.
	RegisterProvider(provider AuthProvider)
}
