package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/coachkit/coachplane/pkg/contracts"
	"github.com/coachkit/coachplane/pkg/models"
)

// UserTokenProvider validates HMAC-signed user tokens sent as
// "Authorization: Bearer <token>".
//
// Token format: base64(JSON payload) + "." + base64(HMAC-SHA256 signature)
// Payload: {"sub": "coach-42", "role": "COACH", "name": "...", "exp": 1234567890}
type UserTokenProvider struct {
	secret []byte
	now    func() time.Time
}

type userTokenPayload struct {
	Subject string      `json:"sub"`
	Role    models.Role `json:"role"`
	Name    string      `json:"name,omitempty"`
	Email   string      `json:"email,omitempty"`
	Exp     int64       `json:"exp"` // Unix timestamp
}

// NewUserTokenProvider creates a provider. An empty secret disables it.
func NewUserTokenProvider(secret string) *UserTokenProvider {
	return &UserTokenProvider{secret: []byte(secret), now: time.Now}
}

func (p *UserTokenProvider) Name() string  { return "user_token" }
func (p *UserTokenProvider) Enabled() bool { return len(p.secret) > 0 }

// Authenticate returns (nil, nil) when there is no bearer token.
func (p *UserTokenProvider) Authenticate(_ context.Context, r *http.Request) (*contracts.Identity, error) {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return nil, nil
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if token == "" {
		return nil, nil
	}

	payload, err := p.validateToken(token)
	if err != nil {
		return nil, fmt.Errorf("invalid user token: %w", err)
	}

	identity := &contracts.Identity{
		Subject:     payload.Subject,
		Email:       payload.Email,
		DisplayName: payload.Name,
		Provider:    "user_token",
		Role:        payload.Role,
	}
	if payload.Exp > 0 {
		identity.ExpiresAt = time.Unix(payload.Exp, 0)
	}
	return identity, nil
}

func (p *UserTokenProvider) validateToken(token string) (*userTokenPayload, error) {
	payloadB64, sigB64, ok := cutLast(token, ".")
	if !ok {
		return nil, errors.New("malformed token: expected payload.signature")
	}

	sig, err := base64.RawURLEncoding.DecodeString(sigB64)
	if err != nil {
		return nil, fmt.Errorf("invalid signature encoding: %w", err)
	}
	if !hmac.Equal(sig, sign(p.secret, payloadB64)) {
		return nil, errors.New("signature mismatch")
	}

	raw, err := base64.RawURLEncoding.DecodeString(payloadB64)
	if err != nil {
		return nil, fmt.Errorf("invalid payload encoding: %w", err)
	}
	var payload userTokenPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("invalid payload JSON: %w", err)
	}

	if payload.Exp > 0 && p.now().Unix() > payload.Exp {
		return nil, errors.New("token expired")
	}
	if payload.Subject == "" {
		return nil, errors.New("missing subject")
	}
	switch payload.Role {
	case models.RoleAdmin, models.RoleCoach, models.RoleClient:
	case "":
		payload.Role = models.RoleClient
	default:
		return nil, fmt.Errorf("unknown role %q", payload.Role)
	}
	return &payload, nil
}

func sign(secret []byte, payloadB64 string) []byte {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(payloadB64))
	return mac.Sum(nil)
}

func cutLast(s, sep string) (before, after string, found bool) {
	if i := strings.LastIndex(s, sep); i >= 0 {
		return s[:i], s[i+len(sep):], true
	}
	return s, "", false
}

// MintToken creates a signed user token. ttl <= 0 means no expiry.
// Used by the CLI and tests.
func MintToken(secret []byte, subject string, role models.Role, name string, ttl time.Duration) (string, error) {
	if len(secret) == 0 {
		return "", errors.New("token secret is empty")
	}
	payload := userTokenPayload{Subject: subject, Role: role, Name: name}
	if ttl > 0 {
		payload.Exp = time.Now().Add(ttl).Unix()
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	payloadB64 := base64.RawURLEncoding.EncodeToString(raw)
	return payloadB64 + "." + base64.RawURLEncoding.EncodeToString(sign(secret, payloadB64)), nil
}
