package pipeline

import (
	"context"

	"github.com/coachkit/coachplane/pkg/coacherr"
	"github.com/coachkit/coachplane/pkg/models"
	"github.com/rs/zerolog/log"
)

// Loggable is a generation that can be written to the generation log.
type Loggable interface {
	LogEntry(clientID, coachID string) (*models.GenerationLog, error)
	SetLogID(id string)
}

// Recorder persists a successful generation. It returns the log id.
type Recorder func(ctx context.Context, gen Loggable) (string, error)

// InitialPlan runs the onboarding phases in order: intake analysis always,
// then training, nutrition and supplements as selected. A failed phase is
// reported in its step and never stops later phases. The plan itself
// always succeeds; tokens are summed over successful phases.
//
// record, when set, is called for every successful phase.
func (g *Generator) InitialPlan(ctx context.Context, s Subject, opts models.PlanOptions, record Recorder) *models.InitialPlan {
	ctx, span := tracer.Start(ctx, "initial plan")
	defer span.End()

	type phase struct {
		kind models.GenerationType
		run  func() (Loggable, int, error)
	}
	phases := []phase{{models.GenerationIntakeAnalysis, func() (Loggable, int, error) {
		gen, err := g.IntakeAnalysis(ctx, s)
		return tokens(gen, err)
	}}}
	if opts.Training {
		phases = append(phases, phase{models.GenerationTraining, func() (Loggable, int, error) {
			gen, err := g.TrainingProgram(ctx, s, opts.TrainingOptions)
			return tokens(gen, err)
		}})
	}
	if opts.Nutrition {
		phases = append(phases, phase{models.GenerationNutrition, func() (Loggable, int, error) {
			gen, err := g.Nutrition(ctx, s)
			return tokens(gen, err)
		}})
	}
	if opts.Supplements {
		phases = append(phases, phase{models.GenerationSupplements, func() (Loggable, int, error) {
			gen, err := g.SupplementAnalysis(ctx, s)
			return tokens(gen, err)
		}})
	}

	plan := &models.InitialPlan{Steps: make([]models.PlanStep, 0, len(phases))}
	for _, ph := range phases {
		step := models.PlanStep{Phase: ph.kind}
		gen, used, err := ph.run()
		if err != nil {
			step.Error = coacherr.Message(err)
			log.Warn().
				Err(err).
				Str("client_id", s.ClientID).
				Str("phase", string(ph.kind)).
				Msg("Initial plan phase failed")
		} else {
			step.Success = true
			step.Data = gen
			step.TokensUsed = used
			plan.TotalTokens += used
			if record != nil {
				if id, err := record(ctx, gen); err != nil {
					log.Warn().Err(err).Str("phase", string(ph.kind)).Msg("Failed to record initial plan phase")
				} else {
					gen.SetLogID(id)
				}
			}
		}
		plan.Steps = append(plan.Steps, step)
	}
	return plan
}

// tokens adapts a typed generation result to a phase result.
func tokens[T any](gen *models.Generation[T], err error) (Loggable, int, error) {
	if err != nil {
		return nil, 0, err
	}
	return gen, gen.TokensUsed, nil
}
