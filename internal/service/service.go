// Package service implements the authorized entry points of the coaching
// control plane.
//
// Every method checks the caller's role before anything else: a CLIENT or
// anonymous identity is turned away before the store or the inference
// provider is touched. Failures are reported inside models.Response with a
// short Dutch message; the underlying cause is only logged.
package service

import (
	"context"
	"time"

	"github.com/coachkit/coachplane/internal/clientctx"
	"github.com/coachkit/coachplane/internal/pipeline"
	"github.com/coachkit/coachplane/internal/recommend"
	"github.com/coachkit/coachplane/internal/resolver"
	"github.com/coachkit/coachplane/internal/store"
	"github.com/coachkit/coachplane/pkg/coacherr"
	"github.com/coachkit/coachplane/pkg/contracts"
	"github.com/coachkit/coachplane/pkg/models"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// DefaultLogLimit caps ListGenerationLogs when the caller sets no limit.
const DefaultLogLimit = 50

// Service is the CoachingService implementation.
type Service struct {
	store     store.Store
	contexts  *clientctx.Builder
	exercises *resolver.Resolver
	generator *pipeline.Generator
	applier   *recommend.Applier
}

// New wires a service over s. knowledge may be nil.
func New(s store.Store, knowledge contracts.KnowledgeRetriever, inference pipeline.Invoker, cfg pipeline.Config) *Service {
	contexts := clientctx.NewBuilder(s)
	exercises := resolver.NewResolver(s)
	return &Service{
		store:     s,
		contexts:  contexts,
		exercises: exercises,
		generator: pipeline.NewGenerator(contexts, knowledge, exercises, inference, cfg),
		applier:   recommend.NewApplier(s),
	}
}

var _ contracts.CoachingService = (*Service)(nil)

// authorize admits coaches and admins. It never touches the store.
func authorize(id *contracts.Identity, clientID string) (pipeline.Subject, error) {
	if !id.IsStaff() {
		return pipeline.Subject{}, coacherr.NotAuthorized("role not permitted")
	}
	return pipeline.Subject{
		ClientID: clientID,
		CoachID:  id.Subject,
		Admin:    id.Role == models.RoleAdmin,
	}, nil
}

func fail[T any](op string, s pipeline.Subject, err error) models.Response[T] {
	ev := log.Warn()
	if coacherr.Message(err) == coacherr.MsgUnexpected {
		ev = log.Error()
	}
	ev.Err(err).
		Str("operation", op).
		Str("client_id", s.ClientID).
		Str("coach_id", s.CoachID).
		Str("error_kind", coacherr.Kind(err)).
		Msg("Coaching operation failed")
	return models.Fail[T](coacherr.Message(err))
}

// ── Generation ──────────────────────────────────────────────

func generate[T any](ctx context.Context, svc *Service, op string, id *contracts.Identity, clientID string, run func(pipeline.Subject) (*models.Generation[T], error)) models.Response[models.Generation[T]] {
	subj, err := authorize(id, clientID)
	if err != nil {
		return fail[models.Generation[T]](op, subj, err)
	}
	gen, err := run(subj)
	if err != nil {
		return fail[models.Generation[T]](op, subj, err)
	}
	if logID, err := svc.record(ctx, subj, gen); err == nil {
		gen.SetLogID(logID)
	}
	return models.OK(*gen)
}

// record appends gen to the generation log. A failed write is logged and
// does not fail the generation.
func (svc *Service) record(ctx context.Context, s pipeline.Subject, gen pipeline.Loggable) (string, error) {
	entry, err := gen.LogEntry(s.ClientID, s.CoachID)
	if err != nil {
		log.Warn().Err(err).Str("client_id", s.ClientID).Msg("Failed to encode generation log")
		return "", err
	}
	entry.ID = uuid.NewString()
	entry.CreatedAt = time.Now().UTC()
	if err := svc.store.CreateGenerationLog(ctx, entry); err != nil {
		log.Warn().
			Err(err).
			Str("client_id", s.ClientID).
			Str("generation_type", string(entry.GenerationType)).
			Msg("Failed to write generation log")
		return "", err
	}
	return entry.ID, nil
}

func (svc *Service) GenerateTrainingProgram(ctx context.Context, id *contracts.Identity, clientID string, opts models.TrainingOptions) models.Response[models.Generation[models.TrainingProgram]] {
	return generate(ctx, svc, "generate_training_program", id, clientID, func(s pipeline.Subject) (*models.Generation[models.TrainingProgram], error) {
		return svc.generator.TrainingProgram(ctx, s, opts)
	})
}

func (svc *Service) GenerateNutrition(ctx context.Context, id *contracts.Identity, clientID string) models.Response[models.Generation[models.NutritionResult]] {
	return generate(ctx, svc, "generate_nutrition", id, clientID, func(s pipeline.Subject) (*models.Generation[models.NutritionResult], error) {
		return svc.generator.Nutrition(ctx, s)
	})
}

func (svc *Service) GenerateWeeklyReview(ctx context.Context, id *contracts.Identity, clientID string) models.Response[models.Generation[models.WeeklyReview]] {
	return generate(ctx, svc, "generate_weekly_review", id, clientID, func(s pipeline.Subject) (*models.Generation[models.WeeklyReview], error) {
		return svc.generator.WeeklyReview(ctx, s)
	})
}

func (svc *Service) GenerateSupplementAnalysis(ctx context.Context, id *contracts.Identity, clientID string) models.Response[models.Generation[models.SupplementAnalysis]] {
	return generate(ctx, svc, "generate_supplement_analysis", id, clientID, func(s pipeline.Subject) (*models.Generation[models.SupplementAnalysis], error) {
		return svc.generator.SupplementAnalysis(ctx, s)
	})
}

func (svc *Service) GenerateClientSummary(ctx context.Context, id *contracts.Identity, clientID string) models.Response[models.Generation[models.ClientSummary]] {
	return generate(ctx, svc, "generate_client_summary", id, clientID, func(s pipeline.Subject) (*models.Generation[models.ClientSummary], error) {
		return svc.generator.ClientSummary(ctx, s)
	})
}

func (svc *Service) GenerateIntakeAnalysis(ctx context.Context, id *contracts.Identity, clientID string) models.Response[models.Generation[models.IntakeAnalysis]] {
	return generate(ctx, svc, "generate_intake_analysis", id, clientID, func(s pipeline.Subject) (*models.Generation[models.IntakeAnalysis], error) {
		return svc.generator.IntakeAnalysis(ctx, s)
	})
}

// GenerateInitialPlan always succeeds once authorized; phase failures are
// reported per step.
func (svc *Service) GenerateInitialPlan(ctx context.Context, id *contracts.Identity, clientID string, opts models.PlanOptions) models.Response[models.InitialPlan] {
	subj, err := authorize(id, clientID)
	if err != nil {
		return fail[models.InitialPlan]("generate_initial_plan", subj, err)
	}
	plan := svc.generator.InitialPlan(ctx, subj, opts, func(ctx context.Context, gen pipeline.Loggable) (string, error) {
		return svc.record(ctx, subj, gen)
	})
	return models.OK(*plan)
}

// ── Commit ──────────────────────────────────────────────────

func (svc *Service) ApplyRecommendation(ctx context.Context, id *contracts.Identity, clientID string, rec models.ActionableRecommendation, generationLogID string) models.Response[models.AppliedRecommendation] {
	const op = "apply_recommendation"
	subj, err := authorize(id, clientID)
	if err != nil {
		return fail[models.AppliedRecommendation](op, subj, err)
	}
	cc, err := svc.contexts.Build(ctx, subj.ClientID, subj.CoachID, subj.Admin)
	if err != nil {
		return fail[models.AppliedRecommendation](op, subj, err)
	}
	applied, err := svc.applier.Apply(ctx, cc, subj.CoachID, rec, generationLogID)
	if err != nil {
		return fail[models.AppliedRecommendation](op, subj, err)
	}
	return models.OK(*applied)
}

func (svc *Service) SaveTrainingProgram(ctx context.Context, id *contracts.Identity, clientID string, program models.TrainingProgram, generationLogID string) models.Response[models.SavedTrainingProgram] {
	const op = "save_training_program"
	subj, err := authorize(id, clientID)
	if err != nil {
		return fail[models.SavedTrainingProgram](op, subj, err)
	}
	cc, err := svc.contexts.Build(ctx, subj.ClientID, subj.CoachID, subj.Admin)
	if err != nil {
		return fail[models.SavedTrainingProgram](op, subj, err)
	}
	// references resolve against the library of the coach owning the client
	lib, err := svc.exercises.Library(ctx, cc.Client.CoachID)
	if err != nil {
		return fail[models.SavedTrainingProgram](op, subj, coacherr.DataFetch(coacherr.MsgDataFetch, err))
	}
	saved, err := svc.applier.SaveTrainingProgram(ctx, cc, subj.CoachID, program, lib, generationLogID)
	if err != nil {
		return fail[models.SavedTrainingProgram](op, subj, err)
	}
	return models.OK(*saved)
}

func (svc *Service) SaveNutritionTargets(ctx context.Context, id *contracts.Identity, clientID string, targets models.NutritionTargets, source models.Source) models.Response[models.SavedNutritionTargets] {
	const op = "save_nutrition_targets"
	subj, err := authorize(id, clientID)
	if err != nil {
		return fail[models.SavedNutritionTargets](op, subj, err)
	}
	cc, err := svc.contexts.Build(ctx, subj.ClientID, subj.CoachID, subj.Admin)
	if err != nil {
		return fail[models.SavedNutritionTargets](op, subj, err)
	}
	saved, err := svc.applier.SaveNutritionTargets(ctx, cc, subj.CoachID, targets, source)
	if err != nil {
		return fail[models.SavedNutritionTargets](op, subj, err)
	}
	return models.OK(*saved)
}

// ── Generation Logs ─────────────────────────────────────────

func (svc *Service) ListGenerationLogs(ctx context.Context, id *contracts.Identity, clientID string, filter models.GenerationLogFilter) models.Response[[]models.GenerationLog] {
	const op = "list_generation_logs"
	subj, err := authorize(id, clientID)
	if err != nil {
		return fail[[]models.GenerationLog](op, subj, err)
	}
	if _, err := svc.contexts.Client(ctx, subj.ClientID, subj.CoachID, subj.Admin); err != nil {
		return fail[[]models.GenerationLog](op, subj, err)
	}
	if filter.Limit <= 0 {
		filter.Limit = DefaultLogLimit
	}
	logs, err := svc.store.ListGenerationLogs(ctx, subj.ClientID, filter)
	if err != nil {
		return fail[[]models.GenerationLog](op, subj, coacherr.DataFetch(coacherr.MsgDataFetch, err))
	}
	if logs == nil {
		logs = []models.GenerationLog{}
	}
	return models.OK(logs)
}

func (svc *Service) GetGenerationLog(ctx context.Context, id *contracts.Identity, clientID, logID string) models.Response[models.GenerationLog] {
	const op = "get_generation_log"
	subj, err := authorize(id, clientID)
	if err != nil {
		return fail[models.GenerationLog](op, subj, err)
	}
	if _, err := svc.contexts.Client(ctx, subj.ClientID, subj.CoachID, subj.Admin); err != nil {
		return fail[models.GenerationLog](op, subj, err)
	}
	gl, err := svc.store.GetGenerationLog(ctx, subj.ClientID, logID)
	if err != nil {
		return fail[models.GenerationLog](op, subj, logFetchError(err))
	}
	return models.OK(*gl)
}

// DeleteGenerationLog is restricted to administrators.
func (svc *Service) DeleteGenerationLog(ctx context.Context, id *contracts.Identity, clientID, logID string) models.Response[models.DeletedGenerationLog] {
	const op = "delete_generation_log"
	subj, err := authorize(id, clientID)
	if err == nil && !subj.Admin {
		err = coacherr.NotAuthorized("generation log deletion requires ADMIN")
	}
	if err != nil {
		return fail[models.DeletedGenerationLog](op, subj, err)
	}
	if err := svc.store.DeleteGenerationLog(ctx, subj.ClientID, logID); err != nil {
		return fail[models.DeletedGenerationLog](op, subj, logFetchError(err))
	}
	log.Info().
		Str("client_id", subj.ClientID).
		Str("log_id", logID).
		Str("admin", subj.CoachID).
		Msg("Generation log deleted")
	return models.OK(models.DeletedGenerationLog{ID: logID})
}

func logFetchError(err error) error {
	if store.IsNotFound(err) {
		return coacherr.DataFetch(coacherr.MsgLogNotFound, err)
	}
	return coacherr.DataFetch(coacherr.MsgDataFetch, err)
}
