package inference

import (
	"context"
	"sync"

	"github.com/coachkit/coachplane/pkg/models"
)

// FakeDriver is an in-process driver for tests and local runs without
// provider credentials. It records every request.
type FakeDriver struct {
	// Name is returned by Kind; defaults to "fake".
	Name string

	// Handler produces the response for each call. When nil, Text is
	// returned for every call.
	Handler func(req *models.InferenceRequest) (*models.InferenceResponse, error)
	Text    string

	mu       sync.Mutex
	requests []models.InferenceRequest
}

func (f *FakeDriver) Kind() string {
	if f.Name == "" {
		return "fake"
	}
	return f.Name
}

func (f *FakeDriver) Complete(ctx context.Context, req *models.InferenceRequest) (*models.InferenceResponse, error) {
	f.mu.Lock()
	f.requests = append(f.requests, *req)
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.Handler != nil {
		return f.Handler(req)
	}
	return &models.InferenceResponse{Text: f.Text, TokensUsed: len(f.Text) / 4, Model: "fake-model"}, nil
}

// Calls returns the number of requests received.
func (f *FakeDriver) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

// Requests returns a copy of the received requests.
func (f *FakeDriver) Requests() []models.InferenceRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.InferenceRequest, len(f.requests))
	copy(out, f.requests)
	return out
}
