// Package contracts defines the service interfaces of the coaching control plane.
//
// Handlers and the pipeline depend on these interfaces, so swapping an
// inference provider, a knowledge source or the store is a single line
// change in the wiring code (pkg/server).
package contracts

import (
	"context"

	"github.com/coachkit/coachplane/internal/store"
	"github.com/coachkit/coachplane/pkg/models"
)

// Store is a type alias for the internal Store interface.
type Store = store.Store

// ErrNotFound is a type alias for the internal ErrNotFound error.
type ErrNotFound = store.ErrNotFound

// ── Inference Driver ────────────────────────────────────────

// InferenceDriver is one language-model provider integration.
// Ships: Anthropic and OpenAI (or any OpenAI-compatible endpoint).
//
// Drivers are registered with the inference client, which adds timeouts,
// retries and provider fallback around Complete.
type InferenceDriver interface {
	// Kind returns the provider identifier (e.g. "anthropic", "openai").
	Kind() string

	// Complete sends one request and returns the raw text and usage.
	Complete(ctx context.Context, req *models.InferenceRequest) (*models.InferenceResponse, error)
}

// ── Knowledge Retriever ─────────────────────────────────────

// KnowledgeRetriever returns ranked evidence text for a query.
// It never fails: any error is reported as empty text.
type KnowledgeRetriever interface {
	Retrieve(ctx context.Context, query string, budget int) string
}

// ── Coaching Service ────────────────────────────────────────

// CoachingService is the authorized entry point surface consumed by the
// HTTP handlers. Every method authorizes the identity first and reports
// failure inside the Response, never as a Go error.
type CoachingService interface {
	GenerateTrainingProgram(ctx context.Context, id *Identity, clientID string, opts models.TrainingOptions) models.Response[models.Generation[models.TrainingProgram]]
	GenerateNutrition(ctx context.Context, id *Identity, clientID string) models.Response[models.Generation[models.NutritionResult]]
	GenerateWeeklyReview(ctx context.Context, id *Identity, clientID string) models.Response[models.Generation[models.WeeklyReview]]
	GenerateSupplementAnalysis(ctx context.Context, id *Identity, clientID string) models.Response[models.Generation[models.SupplementAnalysis]]
	GenerateClientSummary(ctx context.Context, id *Identity, clientID string) models.Response[models.Generation[models.ClientSummary]]
	GenerateIntakeAnalysis(ctx context.Context, id *Identity, clientID string) models.Response[models.Generation[models.IntakeAnalysis]]
	GenerateInitialPlan(ctx context.Context, id *Identity, clientID string, opts models.PlanOptions) models.Response[models.InitialPlan]

	ApplyRecommendation(ctx context.Context, id *Identity, clientID string, rec models.ActionableRecommendation, generationLogID string) models.Response[models.AppliedRecommendation]
	SaveTrainingProgram(ctx context.Context, id *Identity, clientID string, program models.TrainingProgram, generationLogID string) models.Response[models.SavedTrainingProgram]
	SaveNutritionTargets(ctx context.Context, id *Identity, clientID string, targets models.NutritionTargets, source models.Source) models.Response[models.SavedNutritionTargets]

	ListGenerationLogs(ctx context.Context, id *Identity, clientID string, filter models.GenerationLogFilter) models.Response[[]models.GenerationLog]
	GetGenerationLog(ctx context.Context, id *Identity, clientID, logID string) models.Response[models.GenerationLog]
	DeleteGenerationLog(ctx context.Context, id *Identity, clientID, logID string) models.Response[models.DeletedGenerationLog]
}
