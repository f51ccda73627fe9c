// Package inference invokes language models for structured generation.
//
// The Client wraps one primary driver and an optional fallback driver. Each
// attempt runs under its own timeout; transient failures (timeouts, network
// errors, HTTP 408/429/5xx) are retried with exponential backoff, anything
// else fails the driver immediately. When the primary driver is exhausted
// the fallback is tried under the same policy. Every failure that leaves the
// Client is a *coacherr.InferenceError.
package inference

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/coachkit/coachplane/pkg/coacherr"
	"github.com/coachkit/coachplane/pkg/contracts"
	"github.com/coachkit/coachplane/pkg/models"
	"github.com/rs/zerolog/log"
)

// Options tunes the retry policy.
type Options struct {
	Timeout         time.Duration // per attempt
	MaxRetries      int           // extra attempts per driver
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultOptions are used for zero fields.
var DefaultOptions = Options{
	Timeout:         90 * time.Second,
	MaxRetries:      2,
	InitialInterval: time.Second,
	MaxInterval:     10 * time.Second,
}

// Client calls the configured drivers.
type Client struct {
	primary  contracts.InferenceDriver
	fallback contracts.InferenceDriver
	opts     Options
}

// NewClient creates an inference client. fallback may be nil.
func NewClient(primary, fallback contracts.InferenceDriver, opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultOptions.Timeout
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.InitialInterval <= 0 {
		opts.InitialInterval = DefaultOptions.InitialInterval
	}
	if opts.MaxInterval <= 0 {
		opts.MaxInterval = DefaultOptions.MaxInterval
	}
	return &Client{primary: primary, fallback: fallback, opts: opts}
}

// Invoke sends req to the primary driver, then to the fallback.
func (c *Client) Invoke(ctx context.Context, req *models.InferenceRequest) (*models.InferenceResponse, error) {
	if c.primary == nil {
		return nil, coacherr.Inference("none", errors.New("no inference provider configured"))
	}

	resp, err := c.invokeDriver(ctx, c.primary, req)
	if err == nil {
		return resp, nil
	}
	if c.fallback == nil || ctx.Err() != nil {
		return nil, coacherr.Inference(c.primary.Kind(), err)
	}

	log.Warn().
		Str("provider", c.primary.Kind()).
		Str("fallback", c.fallback.Kind()).
		Err(err).
		Msg("Primary inference provider failed, trying fallback")

	resp, fbErr := c.invokeDriver(ctx, c.fallback, req)
	if fbErr != nil {
		return nil, coacherr.Inference(c.fallback.Kind(), fmt.Errorf("primary: %v; fallback: %w", err, fbErr))
	}
	return resp, nil
}

func (c *Client) invokeDriver(ctx context.Context, d contracts.InferenceDriver, req *models.InferenceRequest) (*models.InferenceResponse, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.opts.InitialInterval
	b.MaxInterval = c.opts.MaxInterval
	b.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(c.opts.MaxRetries)), ctx)

	var resp *models.InferenceResponse
	attempt := 0
	op := func() error {
		attempt++
		attemptCtx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
		defer cancel()

		start := time.Now()
		r, err := d.Complete(attemptCtx, req)
		if err != nil {
			if ctx.Err() != nil || !IsTransient(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		r.Provider = d.Kind()
		r.Latency = time.Since(start)
		resp = r
		return nil
	}
	notify := func(err error, wait time.Duration) {
		log.Warn().
			Str("provider", d.Kind()).
			Int("attempt", attempt).
			Dur("retry_in", wait).
			Err(err).
			Msg("Transient inference failure, retrying")
	}

	if err := backoff.RetryNotify(op, policy, notify); err != nil {
		return nil, err
	}

	log.Debug().
		Str("provider", resp.Provider).
		Str("model", resp.Model).
		Int("tokens", resp.TokensUsed).
		Dur("latency", resp.Latency).
		Int("attempts", attempt).
		Msg("Inference call completed")
	return resp, nil
}

// ── Error classification ────────────────────────────────────

// ProviderError is a driver failure with the HTTP status the provider
// returned, if any.
type ProviderError struct {
	Provider   string
	StatusCode int
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: HTTP %d: %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// IsTransient reports whether a failed call may succeed when retried.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return false
	}

	var pe *ProviderError
	if errors.As(err, &pe) && pe.StatusCode != 0 {
		switch {
		case pe.StatusCode == 408, pe.StatusCode == 429:
			return true
		case pe.StatusCode >= 500:
			return true
		default:
			return false
		}
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}
