// Package clientctx builds the read-only client snapshot a generation
// works from.
package clientctx

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/coachkit/coachplane/internal/store"
	"github.com/coachkit/coachplane/pkg/coacherr"
	"github.com/coachkit/coachplane/pkg/models"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// History limits, newest first.
const (
	MaxCheckIns    = 8
	MaxWorkoutLogs = 20
	MaxEvents      = 10
)

// Builder assembles ClientContexts from the store.
type Builder struct {
	store store.Store
}

// NewBuilder creates a context builder.
func NewBuilder(s store.Store) *Builder {
	return &Builder{store: s}
}

// Build loads everything known about clientID. A client owned by another
// coach is reported as not found unless admin is set. Optional records
// (intake, nutrition target, active program) are left nil when absent.
func (b *Builder) Build(ctx context.Context, clientID, coachID string, admin bool) (*models.ClientContext, error) {
	client, err := b.Client(ctx, clientID, coachID, admin)
	if err != nil {
		return nil, err
	}
	return b.Load(ctx, client)
}

// Load fetches the records of an already authorized client concurrently.
func (b *Builder) Load(ctx context.Context, client *models.Client) (*models.ClientContext, error) {
	clientID := client.ID
	cc := &models.ClientContext{Client: *client, BuiltAt: time.Now().UTC()}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		in, err := b.store.GetIntake(gctx, clientID)
		if err != nil && !store.IsNotFound(err) {
			return fmt.Errorf("intake: %w", err)
		}
		cc.Intake = in
		return nil
	})
	g.Go(func() (err error) {
		cc.CheckIns, err = b.store.ListCheckIns(gctx, clientID, MaxCheckIns)
		if err != nil {
			return fmt.Errorf("check-ins: %w", err)
		}
		return nil
	})
	g.Go(func() (err error) {
		cc.WorkoutLogs, err = b.store.ListWorkoutLogs(gctx, clientID, MaxWorkoutLogs)
		if err != nil {
			return fmt.Errorf("workout logs: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		t, err := b.store.GetNutritionTarget(gctx, clientID)
		if err != nil && !store.IsNotFound(err) {
			return fmt.Errorf("nutrition target: %w", err)
		}
		cc.NutritionTarget = t
		return nil
	})
	g.Go(func() (err error) {
		cc.Events, err = b.store.ListCoachingEvents(gctx, clientID, MaxEvents)
		if err != nil {
			return fmt.Errorf("coaching events: %w", err)
		}
		return nil
	})
	g.Go(func() (err error) {
		cc.Supplements, err = b.store.ListSupplements(gctx, clientID, true)
		if err != nil {
			return fmt.Errorf("supplements: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		p, err := b.store.GetActiveTrainingProgram(gctx, clientID)
		if err != nil && !store.IsNotFound(err) {
			return fmt.Errorf("active program: %w", err)
		}
		cc.ActiveProgram = p
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Str("client_id", clientID).Msg("Failed to build client context")
		return nil, coacherr.DataFetch(coacherr.MsgDataFetch, err)
	}
	return cc, nil
}

// Client loads a client and checks coach ownership.
func (b *Builder) Client(ctx context.Context, clientID, coachID string, admin bool) (*models.Client, error) {
	if clientID == "" {
		return nil, coacherr.DataFetch(coacherr.MsgClientNotFound, errors.New("empty client id"))
	}
	client, err := b.store.GetClient(ctx, clientID)
	if err != nil {
		if store.IsNotFound(err) {
			return nil, coacherr.DataFetch(coacherr.MsgClientNotFound, err)
		}
		return nil, coacherr.DataFetch(coacherr.MsgDataFetch, err)
	}
	if !admin && client.CoachID != coachID {
		return nil, coacherr.DataFetch(coacherr.MsgClientNotFound,
			fmt.Errorf("client %s is not coached by %s", clientID, coachID))
	}
	return client, nil
}

// RequireIntake fails when the client has not submitted an intake form.
// Generations that depend on it call this before spending inference budget.
func RequireIntake(cc *models.ClientContext) error {
	if cc.Intake == nil {
		return coacherr.DataFetch(coacherr.MsgIntakeMissing,
			fmt.Errorf("client %s has no intake form", cc.Client.ID))
	}
	return nil
}
