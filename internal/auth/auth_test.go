package auth

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coachkit/coachplane/pkg/models"
)

var secret = []byte("test-secret")

func TestUserToken_RoundTrip(t *testing.T) {
	token, err := MintToken(secret, "coach-1", models.RoleCoach, "Anna", time.Hour)
	if err != nil {
		t.Fatalf("MintToken() error = %v", err)
	}

	r := httptest.NewRequest("GET", "/", nil)
	r.Header.Set("Authorization", "Bearer "+token)

	id, err := NewUserTokenProvider(string(secret)).Authenticate(context.Background(), r)
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if id.Subject != "coach-1" || id.Role != models.RoleCoach || id.DisplayName != "Anna" {
		t.Errorf("Authenticate() = %+v", id)
	}
	if id.ExpiresAt.IsZero() {
		t.Error("ExpiresAt not set")
	}
}

func TestUserToken_Rejections(t *testing.T) {
	p := NewUserTokenProvider(string(secret))
	valid, _ := MintToken(secret, "coach-1", models.RoleCoach, "", time.Hour)
	foreign, _ := MintToken([]byte("other"), "coach-1", models.RoleAdmin, "", time.Hour)
	badRole, _ := MintToken(secret, "coach-1", models.Role("OWNER"), "", time.Hour)
	noSubject, _ := MintToken(secret, "", models.RoleCoach, "", time.Hour)

	expired := NewUserTokenProvider(string(secret))
	expired.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

	tests := []struct {
		name     string
		provider *UserTokenProvider
		token    string
	}{
		{"wrong secret", p, foreign},
		{"tampered", p, valid[:len(valid)-2] + "xx"},
		{"no signature", p, strings.Split(valid, ".")[0]},
		{"unknown role", p, badRole},
		{"missing subject", p, noSubject},
		{"expired", expired, valid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			r.Header.Set("Authorization", "Bearer "+tt.token)
			id, err := tt.provider.Authenticate(context.Background(), r)
			if err == nil {
				t.Errorf("Authenticate() = %+v, want error", id)
			}
		})
	}
}

func TestUserToken_EmptyRoleIsClient(t *testing.T) {
	token, _ := MintToken(secret, "c1", "", "", 0)
	r := httptest.NewRequest("GET", "/", nil)
	r.Header.Set("Authorization", "Bearer "+token)

	id, err := NewUserTokenProvider(string(secret)).Authenticate(context.Background(), r)
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if id.Role != models.RoleClient {
		t.Errorf("Role = %q, want %q", id.Role, models.RoleClient)
	}
}

func TestAPIKeyProvider(t *testing.T) {
	p := NewAPIKeyProvider([]string{" key-1 ", ""})
	if !p.Enabled() {
		t.Fatal("Enabled() = false, want true")
	}

	r := httptest.NewRequest("GET", "/", nil)
	if id, err := p.Authenticate(context.Background(), r); id != nil || err != nil {
		t.Errorf("no key: Authenticate() = %v, %v, want nil, nil", id, err)
	}

	r.Header.Set(APIKeyHeader, "key-1")
	id, err := p.Authenticate(context.Background(), r)
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if id.Role != models.RoleAdmin {
		t.Errorf("Role = %q, want ADMIN", id.Role)
	}

	r.Header.Set(APIKeyHeader, "key-2")
	if _, err := p.Authenticate(context.Background(), r); err == nil {
		t.Error("unknown key accepted")
	}

	p.RemoveKey("key-1")
	if p.Enabled() {
		t.Error("Enabled() = true after removing the last key")
	}
}

func TestProviderChain(t *testing.T) {
	chain := NewProviderChain()
	chain.RegisterProvider(NewAPIKeyProvider([]string{"key-1"}))
	chain.RegisterProvider(NewUserTokenProvider(string(secret)))
	chain.RegisterProvider(NewUserTokenProvider("")) // disabled, skipped

	if got := chain.ListProviders(); len(got) != 3 {
		t.Errorf("ListProviders() = %v", got)
	}

	anon := httptest.NewRequest("GET", "/", nil)
	if id, err := chain.Authenticate(context.Background(), anon); id != nil || err != nil {
		t.Errorf("anonymous: Authenticate() = %v, %v", id, err)
	}

	token, _ := MintToken(secret, "coach-1", models.RoleCoach, "", time.Hour)
	r := httptest.NewRequest("GET", "/", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	id, err := chain.Authenticate(context.Background(), r)
	if err != nil || id == nil || id.Provider != "user_token" {
		t.Errorf("token: Authenticate() = %v, %v", id, err)
	}

	r.Header.Set(APIKeyHeader, "bad")
	if _, err := chain.Authenticate(context.Background(), r); err == nil {
		t.Error("an invalid API key must reject even with a valid token")
	}
}
