package inference

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/coachkit/coachplane/pkg/coacherr"
	"github.com/coachkit/coachplane/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastOptions() Options {
	return Options{
		Timeout:         200 * time.Millisecond,
		MaxRetries:      2,
		InitialInterval: time.Millisecond,
		MaxInterval:     5 * time.Millisecond,
	}
}

func request() *models.InferenceRequest {
	return &models.InferenceRequest{System: "sys", User: "user", MaxTokens: 100, Temperature: 0.3, JSON: true}
}

func TestInvoke_RetriesTransient(t *testing.T) {
	f := &FakeDriver{}
	f.Handler = func(req *models.InferenceRequest) (*models.InferenceResponse, error) {
		if f.Calls() < 3 {
			return nil, &ProviderError{Provider: "fake", StatusCode: 503, Err: errors.New("overloaded")}
		}
		return &models.InferenceResponse{Text: `{"ok":true}`, TokensUsed: 12, Model: "m"}, nil
	}

	resp, err := NewClient(f, nil, fastOptions()).Invoke(context.Background(), request())
	require.NoError(t, err)
	assert.Equal(t, 3, f.Calls())
	assert.Equal(t, `{"ok":true}`, resp.Text)
	assert.Equal(t, "fake", resp.Provider)
	assert.Equal(t, 12, resp.TokensUsed)
}

func TestInvoke_NoRetryOnClientError(t *testing.T) {
	f := &FakeDriver{Handler: func(*models.InferenceRequest) (*models.InferenceResponse, error) {
		return nil, &ProviderError{Provider: "fake", StatusCode: 400, Err: errors.New("bad request")}
	}}

	_, err := NewClient(f, nil, fastOptions()).Invoke(context.Background(), request())
	require.Error(t, err)
	assert.Equal(t, 1, f.Calls())

	var ie *coacherr.InferenceError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, "fake", ie.Provider)
}

func TestInvoke_RetriesExhausted(t *testing.T) {
	f := &FakeDriver{Handler: func(*models.InferenceRequest) (*models.InferenceResponse, error) {
		return nil, &ProviderError{Provider: "fake", StatusCode: 429, Err: errors.New("rate limited")}
	}}

	_, err := NewClient(f, nil, fastOptions()).Invoke(context.Background(), request())
	require.Error(t, err)
	assert.Equal(t, 3, f.Calls(), "one attempt plus two retries")
	assert.Equal(t, "inference", coacherr.Kind(err))
}

func TestInvoke_Fallback(t *testing.T) {
	primary := &FakeDriver{Name: "anthropic", Handler: func(*models.InferenceRequest) (*models.InferenceResponse, error) {
		return nil, &ProviderError{Provider: "anthropic", StatusCode: 401, Err: errors.New("invalid key")}
	}}
	fallback := &FakeDriver{Name: "openai", Text: `{"summary":"ok"}`}

	resp, err := NewClient(primary, fallback, fastOptions()).Invoke(context.Background(), request())
	require.NoError(t, err)
	assert.Equal(t, "openai", resp.Provider)
	assert.Equal(t, 1, primary.Calls())
	assert.Equal(t, 1, fallback.Calls())
	assert.Equal(t, "user", fallback.Requests()[0].User)
}

func TestInvoke_BothFail(t *testing.T) {
	fail := func(*models.InferenceRequest) (*models.InferenceResponse, error) {
		return nil, &ProviderError{Provider: "x", StatusCode: 400, Err: errors.New("nope")}
	}
	primary := &FakeDriver{Name: "anthropic", Handler: fail}
	fallback := &FakeDriver{Name: "openai", Handler: fail}

	_, err := NewClient(primary, fallback, fastOptions()).Invoke(context.Background(), request())
	var ie *coacherr.InferenceError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, "openai", ie.Provider)
	assert.Contains(t, err.Error(), "primary")
}

func TestInvoke_AttemptTimeout(t *testing.T) {
	f := &FakeDriver{}
	f.Handler = func(req *models.InferenceRequest) (*models.InferenceResponse, error) {
		time.Sleep(30 * time.Millisecond)
		return nil, context.DeadlineExceeded
	}
	opts := fastOptions()
	opts.Timeout = 10 * time.Millisecond
	opts.MaxRetries = 1

	_, err := NewClient(f, nil, opts).Invoke(context.Background(), request())
	require.Error(t, err)
	assert.Equal(t, 2, f.Calls())
	assert.Equal(t, "inference", coacherr.Kind(err))
}

func TestInvoke_CanceledContext(t *testing.T) {
	f := &FakeDriver{Text: "{}"}
	fallback := &FakeDriver{Text: "{}"}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewClient(f, fallback, fastOptions()).Invoke(ctx, request())
	require.Error(t, err)
	assert.Equal(t, 1, f.Calls())
	assert.Equal(t, 0, fallback.Calls())
}

func TestInvoke_NoProvider(t *testing.T) {
	_, err := NewClient(nil, nil, Options{}).Invoke(context.Background(), request())
	assert.Equal(t, "inference", coacherr.Kind(err))
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"deadline", context.DeadlineExceeded, true},
		{"canceled", context.Canceled, false},
		{"500", &ProviderError{StatusCode: 500, Err: errors.New("x")}, true},
		{"529", &ProviderError{StatusCode: 529, Err: errors.New("x")}, true},
		{"429", &ProviderError{StatusCode: 429, Err: errors.New("x")}, true},
		{"408", &ProviderError{StatusCode: 408, Err: errors.New("x")}, true},
		{"400", &ProviderError{StatusCode: 400, Err: errors.New("x")}, false},
		{"401", &ProviderError{StatusCode: 401, Err: errors.New("x")}, false},
		{"wrapped deadline", &ProviderError{Err: context.DeadlineExceeded}, true},
		{"plain", errors.New("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}
