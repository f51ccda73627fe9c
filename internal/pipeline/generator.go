// Package pipeline runs the generation operations.
//
// Every operation follows the same stages: load the client context and
// retrieve evidence concurrently, screen client text, assemble the prompt,
// invoke the model, validate and repair the output, then apply the
// deterministic corrections for its type. Nothing is written to the store
// here; persisting a result is the caller's decision.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/coachkit/coachplane/internal/clientctx"
	"github.com/coachkit/coachplane/internal/guardrails"
	"github.com/coachkit/coachplane/internal/nutrition"
	"github.com/coachkit/coachplane/internal/output"
	"github.com/coachkit/coachplane/internal/prompt"
	"github.com/coachkit/coachplane/internal/resolver"
	"github.com/coachkit/coachplane/pkg/coacherr"
	"github.com/coachkit/coachplane/pkg/contracts"
	"github.com/coachkit/coachplane/pkg/models"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"
)

var tracer = otel.Tracer("coachplane/pipeline")

// Invoker is the inference client as seen by the pipeline.
type Invoker interface {
	Invoke(ctx context.Context, req *models.InferenceRequest) (*models.InferenceResponse, error)
}

// Subject identifies whose client a generation runs for.
type Subject struct {
	ClientID string
	CoachID  string
	Admin    bool
}

// Config tunes the generator.
type Config struct {
	Temperature    float64
	EvidenceBudget int
}

// Generator runs generation operations.
type Generator struct {
	contexts  *clientctx.Builder
	knowledge contracts.KnowledgeRetriever
	exercises *resolver.Resolver
	inference Invoker
	cfg       Config
}

// NewGenerator creates a generator. knowledge may be nil.
func NewGenerator(contexts *clientctx.Builder, knowledge contracts.KnowledgeRetriever, exercises *resolver.Resolver, inference Invoker, cfg Config) *Generator {
	if cfg.Temperature <= 0 {
		cfg.Temperature = prompt.DefaultTemperature
	}
	if knowledge == nil {
		knowledge = noEvidence{}
	}
	return &Generator{
		contexts:  contexts,
		knowledge: knowledge,
		exercises: exercises,
		inference: inference,
		cfg:       cfg,
	}
}

type noEvidence struct{}

func (noEvidence) Retrieve(context.Context, string, int) string { return "" }

// ── Operations ──────────────────────────────────────────────

// TrainingProgram generates a training program. Unknown exercise ids are
// kept and reported as warnings.
func (g *Generator) TrainingProgram(ctx context.Context, s Subject, opts models.TrainingOptions) (*models.Generation[models.TrainingProgram], error) {
	return run(ctx, g, s, operation[models.TrainingProgram]{
		kind:          models.GenerationTraining,
		requireIntake: true,
		library:       true,
		decode:        output.TrainingProgram,
		title:         func(p *models.TrainingProgram) string { return p.Name },
		correct: func(_ *models.ClientContext, lib resolver.Library, p *models.TrainingProgram) []string {
			return resolver.ResolveExercises(p, lib)
		},
	}, prompt.Options{Training: opts})
}

// Nutrition generates nutrition targets, raised to the body-weight floors.
func (g *Generator) Nutrition(ctx context.Context, s Subject) (*models.Generation[models.NutritionResult], error) {
	return run(ctx, g, s, operation[models.NutritionResult]{
		kind:          models.GenerationNutrition,
		requireIntake: true,
		decode:        output.Nutrition,
		title:         func(*models.NutritionResult) string { return "Voedingsdoelen" },
		correct: func(cc *models.ClientContext, _ resolver.Library, n *models.NutritionResult) []string {
			var warnings []string
			n.Targets, warnings = nutrition.Correct(n.Targets, cc.CurrentWeightKg(), cc.GoalText())
			return warnings
		},
	}, prompt.Options{})
}

// WeeklyReview reviews the client's recent week.
func (g *Generator) WeeklyReview(ctx context.Context, s Subject) (*models.Generation[models.WeeklyReview], error) {
	return run(ctx, g, s, operation[models.WeeklyReview]{
		kind:   models.GenerationWeeklyReview,
		decode: output.WeeklyReview,
		title:  func(*models.WeeklyReview) string { return "Weekreview" },
	}, prompt.Options{})
}

// SupplementAnalysis analyses supplement options.
func (g *Generator) SupplementAnalysis(ctx context.Context, s Subject) (*models.Generation[models.SupplementAnalysis], error) {
	return run(ctx, g, s, operation[models.SupplementAnalysis]{
		kind:   models.GenerationSupplements,
		decode: output.SupplementAnalysis,
		title:  func(*models.SupplementAnalysis) string { return "Supplementanalyse" },
	}, prompt.Options{})
}

// ClientSummary summarises the client's status for the coach.
func (g *Generator) ClientSummary(ctx context.Context, s Subject) (*models.Generation[models.ClientSummary], error) {
	return run(ctx, g, s, operation[models.ClientSummary]{
		kind:   models.GenerationClientSummary,
		decode: output.ClientSummary,
		title:  func(*models.ClientSummary) string { return "Clientoverzicht" },
	}, prompt.Options{})
}

// IntakeAnalysis analyses the intake form.
func (g *Generator) IntakeAnalysis(ctx context.Context, s Subject) (*models.Generation[models.IntakeAnalysis], error) {
	return run(ctx, g, s, operation[models.IntakeAnalysis]{
		kind:          models.GenerationIntakeAnalysis,
		requireIntake: true,
		decode:        output.IntakeAnalysis,
		title:         func(*models.IntakeAnalysis) string { return "Intake-analyse" },
	}, prompt.Options{})
}

// ── Stages ──────────────────────────────────────────────────

// operation describes one generation type.
type operation[T any] struct {
	kind          models.GenerationType
	requireIntake bool
	library       bool
	decode        func(raw string) (*T, error)
	title         func(*T) string
	// correct applies deterministic fixes in place and returns warnings.
	correct func(cc *models.ClientContext, lib resolver.Library, result *T) []string
}

func run[T any](ctx context.Context, g *Generator, s Subject, op operation[T], opts prompt.Options) (gen *models.Generation[T], err error) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "generate "+string(op.kind))
	span.SetAttributes(
		attribute.String("client.id", s.ClientID),
		attribute.String("generation.type", string(op.kind)),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	client, err := g.contexts.Client(ctx, s.ClientID, s.CoachID, s.Admin)
	if err != nil {
		return nil, err
	}

	// context, evidence and library are independent reads
	var (
		cc       *models.ClientContext
		evidence string
		lib      resolver.Library
	)
	stageCtx, stage := tracer.Start(ctx, "context")
	eg, egctx := errgroup.WithContext(stageCtx)
	eg.Go(func() (err error) {
		cc, err = g.contexts.Load(egctx, client)
		return err
	})
	eg.Go(func() error {
		query := prompt.RetrievalQuery(op.kind, &models.ClientContext{Client: *client})
		evidence = g.knowledge.Retrieve(egctx, query, g.cfg.EvidenceBudget)
		return nil
	})
	if op.library {
		eg.Go(func() (err error) {
			lib, err = g.loadLibrary(egctx, client.CoachID)
			return err
		})
	}
	err = eg.Wait()
	stage.End()
	if err != nil {
		return nil, err
	}

	if op.requireIntake {
		if err := clientctx.RequireIntake(cc); err != nil {
			return nil, err
		}
	}

	screened, warnings := guardrails.Screen(cc)
	p, err := prompt.Build(op.kind, screened, evidence, lib.Entries(), opts)
	if err != nil {
		return nil, fmt.Errorf("build prompt: %w", err)
	}

	infCtx, infSpan := tracer.Start(ctx, "inference")
	resp, err := g.inference.Invoke(infCtx, &models.InferenceRequest{
		System:      p.System,
		User:        p.User,
		MaxTokens:   p.MaxTokens,
		Temperature: g.cfg.Temperature,
		JSON:        true,
	})
	infSpan.End()
	if err != nil {
		log.Error().Err(err).Str("client_id", s.ClientID).Str("generation_type", string(op.kind)).Msg("Inference failed")
		return nil, err
	}

	_, valSpan := tracer.Start(ctx, "validate")
	result, err := op.decode(resp.Text)
	valSpan.End()
	if err != nil {
		log.Warn().
			Err(err).
			Str("client_id", s.ClientID).
			Str("generation_type", string(op.kind)).
			Str("model", resp.Model).
			Int("response_chars", len(resp.Text)).
			Msg("Model output failed validation")
		return nil, err
	}

	if op.correct != nil {
		warnings = append(warnings, op.correct(cc, lib, result)...)
	}
	if warnings == nil {
		warnings = []string{}
	}

	gen = &models.Generation[T]{
		Type:       op.kind,
		Title:      op.title(result),
		Result:     *result,
		Warnings:   warnings,
		TokensUsed: resp.TokensUsed,
		Model:      resp.Model,
		RAGUsed:    evidence != "",
	}

	span.SetAttributes(
		attribute.Int("tokens", gen.TokensUsed),
		attribute.Bool("rag.used", gen.RAGUsed),
		attribute.Int("warnings", len(warnings)),
	)
	log.Info().
		Str("client_id", s.ClientID).
		Str("generation_type", string(op.kind)).
		Str("provider", resp.Provider).
		Str("model", resp.Model).
		Int("tokens", gen.TokensUsed).
		Bool("rag_used", gen.RAGUsed).
		Int("warnings", len(warnings)).
		Dur("elapsed", time.Since(start)).
		Msg("Generation completed")
	return gen, nil
}

func (g *Generator) loadLibrary(ctx context.Context, coachID string) (resolver.Library, error) {
	if g.exercises == nil {
		return resolver.Library{}, nil
	}
	lib, err := g.exercises.Library(ctx, coachID)
	if err != nil {
		return nil, coacherr.DataFetch(coacherr.MsgDataFetch, err)
	}
	return lib, nil
}
