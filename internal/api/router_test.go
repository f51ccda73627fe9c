package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coachkit/coachplane/internal/api/handlers"
	"github.com/coachkit/coachplane/internal/auth"
	"github.com/coachkit/coachplane/internal/config"
	"github.com/coachkit/coachplane/internal/inference"
	"github.com/coachkit/coachplane/internal/pipeline"
	"github.com/coachkit/coachplane/internal/service"
	"github.com/coachkit/coachplane/internal/store"
	"github.com/coachkit/coachplane/pkg/coacherr"
	"github.com/coachkit/coachplane/pkg/models"
)

const tokenSecret = "router-test-secret"

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func newTestRouter(t *testing.T) (http.Handler, *inference.FakeDriver) {
	t.Helper()
	s := store.NewMemoryStore("")
	t.Cleanup(func() { s.Close() })
	ctx := context.Background()
	if err := s.UpsertClient(ctx, &models.Client{ID: "c1", CoachID: "coach1", Name: "Jan"}); err != nil {
		t.Fatal(err)
	}

	fake := &inference.FakeDriver{Text: `{"overallAssessment":"Op schema"}`}
	svc := service.New(s, nil, inference.NewClient(fake, nil, inference.Options{MaxRetries: 0}), pipeline.Config{})

	chain := auth.NewProviderChain()
	chain.RegisterProvider(auth.NewAPIKeyProvider([]string{"ops-key"}))
	chain.RegisterProvider(auth.NewUserTokenProvider(tokenSecret))

	cfg := &config.Config{Version: "test"}
	cfg.Auth.RequireAuth = true
	return NewRouter(cfg, handlers.New(svc), chain), fake
}

func bearer(t *testing.T, subject string, role models.Role) string {
	t.Helper()
	token, err := auth.MintToken([]byte(tokenSecret), subject, role, "", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	return "Bearer " + token
}

func do(h http.Handler, method, path, authz, body string) (*httptest.ResponseRecorder, envelope) {
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, path, nil)
	} else {
		r = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	if authz != "" {
		r.Header.Set("Authorization", authz)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	var env envelope
	json.Unmarshal(w.Body.Bytes(), &env)
	return w, env
}

func TestPublicEndpoints(t *testing.T) {
	h, _ := newTestRouter(t)
	for _, path := range []string{"/health", "/version"} {
		w, _ := do(h, "GET", path, "", "")
		if w.Code != http.StatusOK {
			t.Errorf("GET %s = %d, want 200", path, w.Code)
		}
	}
}

func TestAuthentication(t *testing.T) {
	h, fake := newTestRouter(t)

	w, env := do(h, "POST", "/api/v1/clients/c1/generate/summary", "", "")
	if w.Code != http.StatusUnauthorized || env.Error != coacherr.MsgNotAuthorized {
		t.Errorf("anonymous = %d %q, want 401", w.Code, env.Error)
	}

	w, _ = do(h, "POST", "/api/v1/clients/c1/generate/summary", "Bearer forged.token", "")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("forged token = %d, want 401", w.Code)
	}
	if fake.Calls() != 0 {
		t.Errorf("inference calls = %d, want 0", fake.Calls())
	}
}

func TestClientRoleRejectedWith200(t *testing.T) {
	h, fake := newTestRouter(t)
	w, env := do(h, "POST", "/api/v1/clients/c1/generate/summary", bearer(t, "c1", models.RoleClient), "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if env.Success || env.Error != coacherr.MsgNotAuthorized {
		t.Errorf("response = %+v, want not authorized", env)
	}
	if fake.Calls() != 0 {
		t.Errorf("inference calls = %d, want 0", fake.Calls())
	}
}

func TestGenerateSummary(t *testing.T) {
	h, fake := newTestRouter(t)
	w, env := do(h, "POST", "/api/v1/clients/c1/generate/summary", bearer(t, "coach1", models.RoleCoach), "")
	if w.Code != http.StatusOK || !env.Success {
		t.Fatalf("generate = %d %+v", w.Code, env)
	}
	if fake.Calls() != 1 {
		t.Errorf("inference calls = %d, want 1", fake.Calls())
	}
	if w.Header().Get("X-Request-Id") == "" {
		t.Error("X-Request-Id header missing")
	}

	var gen models.Generation[models.ClientSummary]
	if err := json.Unmarshal(env.Data, &gen); err != nil {
		t.Fatal(err)
	}
	if gen.Result.OverallAssessment != "Op schema" || gen.LogID == "" {
		t.Errorf("generation = %+v", gen)
	}

	w, env = do(h, "GET", "/api/v1/clients/c1/generation-logs/"+gen.LogID, bearer(t, "coach1", models.RoleCoach), "")
	if w.Code != http.StatusOK || !env.Success {
		t.Errorf("get log = %d %+v", w.Code, env)
	}

	req := httptest.NewRequest("DELETE", "/api/v1/clients/c1/generation-logs/"+gen.LogID, nil)
	req.Header.Set(auth.APIKeyHeader, "ops-key")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"success":true`) {
		t.Errorf("delete = %d %s", rec.Code, rec.Body.String())
	}
}

func TestBadRequests(t *testing.T) {
	h, _ := newTestRouter(t)
	coach := bearer(t, "coach1", models.RoleCoach)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"unknown kind", "POST", "/api/v1/clients/c1/generate/horoscope", "", http.StatusNotFound},
		{"malformed apply body", "POST", "/api/v1/clients/c1/recommendations/apply", "{", http.StatusBadRequest},
		{"missing targets body", "PUT", "/api/v1/clients/c1/nutrition-targets", "", http.StatusBadRequest},
		{"malformed training options", "POST", "/api/v1/clients/c1/generate/training", "[1,", http.StatusBadRequest},
		{"bad limit", "GET", "/api/v1/clients/c1/generation-logs?limit=abc", "", http.StatusBadRequest},
		{"valid limit", "GET", "/api/v1/clients/c1/generation-logs?limit=5", "", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, _ := do(h, tt.method, tt.path, coach, tt.body)
			if w.Code != tt.want {
				t.Errorf("%s %s = %d, want %d", tt.method, tt.path, w.Code, tt.want)
			}
		})
	}
}

func TestServiceFailureIs200(t *testing.T) {
	h, _ := newTestRouter(t)
	w, env := do(h, "PUT", "/api/v1/clients/c1/nutrition-targets", bearer(t, "coach1", models.RoleCoach), `{"targets":{"dailyCalories":0}}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if env.Success || env.Error == "" {
		t.Errorf("response = %+v, want failure", env)
	}
}
