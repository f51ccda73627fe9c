package service

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/coachkit/coachplane/internal/pipeline"
	"github.com/coachkit/coachplane/internal/store"
	"github.com/coachkit/coachplane/pkg/coacherr"
	"github.com/coachkit/coachplane/pkg/contracts"
	"github.com/coachkit/coachplane/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingInvoker struct {
	mu    sync.Mutex
	calls int
	text  string
}

func (c *countingInvoker) Invoke(_ context.Context, req *models.InferenceRequest) (*models.InferenceResponse, error) {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()

	text := c.text
	if text == "" {
		switch {
		case strings.Contains(req.System, `"primaryGoals"`):
			text = `{"summary":"Klaar om te starten"}`
		case strings.Contains(req.System, `"dailyCalories"`):
			text = `{"targets":{"dailyCalories":2200,"dailyProteinGrams":150,"dailyCarbsGrams":220,"dailyFatGrams":60}}`
		default:
			text = `{"overallAssessment":"Op schema"}`
		}
	}
	return &models.InferenceResponse{Text: text, TokensUsed: 50, Model: "test-model"}, nil
}

// untouchableStore fails the test on any call.
type untouchableStore struct {
	store.Store
	t *testing.T
}

func (u untouchableStore) GetClient(context.Context, string) (*models.Client, error) {
	u.t.Fatal("store must not be called")
	return nil, nil
}

var (
	coach  = &contracts.Identity{Subject: "coach1", Role: models.RoleCoach, Provider: "user_token"}
	other  = &contracts.Identity{Subject: "coach2", Role: models.RoleCoach, Provider: "user_token"}
	admin  = &contracts.Identity{Subject: "ops", Role: models.RoleAdmin, Provider: "apikey"}
	client = &contracts.Identity{Subject: "c1", Role: models.RoleClient, Provider: "user_token"}
)

func newService(t *testing.T) (*Service, *store.MemoryStore, *countingInvoker) {
	t.Helper()
	ctx := context.Background()
	s := store.NewMemoryStore("")
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.UpsertClient(ctx, &models.Client{ID: "c1", CoachID: "coach1", Name: "Jan", WeightKg: 126, Goal: "afvallen"}))
	require.NoError(t, s.UpsertIntake(ctx, &models.IntakeForm{ClientID: "c1", Goals: "afvallen"}))
	require.NoError(t, s.UpsertExercise(ctx, &models.ExerciseLibraryEntry{ID: "squat", CoachID: "coach1", Name: "Squat"}))

	inv := &countingInvoker{}
	return New(s, nil, inv, pipeline.Config{}), s, inv
}

func TestUnauthorizedCallersTouchNothing(t *testing.T) {
	inv := &countingInvoker{}
	svc := New(untouchableStore{t: t}, nil, inv, pipeline.Config{})
	ctx := context.Background()

	for _, id := range []*contracts.Identity{nil, client} {
		r := svc.GenerateClientSummary(ctx, id, "c1")
		assert.False(t, r.Success)
		assert.Nil(t, r.Data)
		assert.Equal(t, coacherr.MsgNotAuthorized, r.Error)
		assert.Equal(t, coacherr.MsgNotAuthorized, svc.GenerateTrainingProgram(ctx, id, "c1", models.TrainingOptions{}).Error)
		assert.Equal(t, coacherr.MsgNotAuthorized, svc.GenerateNutrition(ctx, id, "c1").Error)
		assert.Equal(t, coacherr.MsgNotAuthorized, svc.GenerateWeeklyReview(ctx, id, "c1").Error)
		assert.Equal(t, coacherr.MsgNotAuthorized, svc.GenerateSupplementAnalysis(ctx, id, "c1").Error)
		assert.Equal(t, coacherr.MsgNotAuthorized, svc.GenerateIntakeAnalysis(ctx, id, "c1").Error)
		assert.Equal(t, coacherr.MsgNotAuthorized, svc.GenerateInitialPlan(ctx, id, "c1", models.PlanOptions{Training: true}).Error)
		assert.Equal(t, coacherr.MsgNotAuthorized, svc.ApplyRecommendation(ctx, id, "c1", models.ActionableRecommendation{}, "").Error)
		assert.Equal(t, coacherr.MsgNotAuthorized, svc.SaveTrainingProgram(ctx, id, "c1", models.TrainingProgram{}, "").Error)
		assert.Equal(t, coacherr.MsgNotAuthorized, svc.SaveNutritionTargets(ctx, id, "c1", models.NutritionTargets{}, "").Error)
		assert.Equal(t, coacherr.MsgNotAuthorized, svc.ListGenerationLogs(ctx, id, "c1", models.GenerationLogFilter{}).Error)
		assert.Equal(t, coacherr.MsgNotAuthorized, svc.GetGenerationLog(ctx, id, "c1", "x").Error)
		assert.Equal(t, coacherr.MsgNotAuthorized, svc.DeleteGenerationLog(ctx, id, "c1", "x").Error)
	}
	assert.Equal(t, 0, inv.calls)
}

func TestGenerateWritesLog(t *testing.T) {
	svc, s, _ := newService(t)
	ctx := context.Background()

	r := svc.GenerateNutrition(ctx, coach, "c1")
	require.True(t, r.Success, r.Error)
	require.NotEmpty(t, r.Data.LogID)
	assert.Equal(t, 2797, r.Data.Result.Targets.DailyCalories)

	gl, err := s.GetGenerationLog(ctx, "c1", r.Data.LogID)
	require.NoError(t, err)
	assert.Equal(t, models.GenerationNutrition, gl.GenerationType)
	assert.Equal(t, "coach1", gl.CoachID)
	assert.Equal(t, 50, gl.TokensUsed)
	assert.Contains(t, string(gl.Result), `"dailyCalories":2797`)
}

func TestGenerateForeignClient(t *testing.T) {
	svc, s, inv := newService(t)
	r := svc.GenerateClientSummary(context.Background(), other, "c1")
	assert.False(t, r.Success)
	assert.Equal(t, coacherr.MsgClientNotFound, r.Error)
	assert.Equal(t, 0, inv.calls)

	logs, err := s.ListGenerationLogs(context.Background(), "c1", models.GenerationLogFilter{})
	require.NoError(t, err)
	assert.Empty(t, logs)
}

func TestGenerateFailureHidesCause(t *testing.T) {
	svc, _, inv := newService(t)
	inv.text = "geen json"
	r := svc.GenerateClientSummary(context.Background(), coach, "c1")
	assert.False(t, r.Success)
	assert.Nil(t, r.Data)
	assert.Equal(t, coacherr.MsgOutputFormat, r.Error)
}

func TestInitialPlanLogsEachPhase(t *testing.T) {
	svc, s, _ := newService(t)
	ctx := context.Background()

	r := svc.GenerateInitialPlan(ctx, coach, "c1", models.PlanOptions{Nutrition: true})
	require.True(t, r.Success)
	require.Len(t, r.Data.Steps, 2)
	assert.Equal(t, 100, r.Data.TotalTokens)

	logs, err := s.ListGenerationLogs(ctx, "c1", models.GenerationLogFilter{})
	require.NoError(t, err)
	assert.Len(t, logs, 2)
}

func TestApplyRecommendation(t *testing.T) {
	svc, s, _ := newService(t)
	ctx := context.Background()
	rec := models.ActionableRecommendation{
		ProposalType: models.ProposalSupplementAdd,
		Proposal:     models.SupplementAdd{SupplementName: "Creatine", SupplementDosage: "5 g"},
		CanApply:     true,
	}

	r := svc.ApplyRecommendation(ctx, coach, "c1", rec, "log-1")
	require.True(t, r.Success, r.Error)
	assert.NotEmpty(t, r.Data.EventID)

	again := svc.ApplyRecommendation(ctx, coach, "c1", rec, "log-1")
	assert.False(t, again.Success)
	assert.Contains(t, again.Error, "Creatine")

	active, err := s.ListSupplements(ctx, "c1", true)
	require.NoError(t, err)
	assert.Len(t, active, 1)

	advisory := models.ActionableRecommendation{ProposalType: "training_change", Proposal: models.AdvisoryProposal{Kind: "training_change"}}
	assert.Equal(t, coacherr.MsgNotApplicable, svc.ApplyRecommendation(ctx, coach, "c1", advisory, "").Error)
}

func TestSaveTrainingProgram(t *testing.T) {
	svc, s, _ := newService(t)
	ctx := context.Background()
	program := models.TrainingProgram{
		Name: "Basis",
		Blocks: []models.TrainingBlock{{Name: "Blok 1", Days: []models.TrainingDay{{
			Name:      "Dag A",
			Exercises: []models.ProgramExercise{{ExerciseID: "squat", ExerciseName: "Squat"}},
		}}}},
	}

	r := svc.SaveTrainingProgram(ctx, coach, "c1", program, "")
	require.True(t, r.Success, r.Error)
	active, err := s.GetActiveTrainingProgram(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "Basis", active.Program.Name)

	program.Blocks[0].Days[0].Exercises[0].ExerciseID = "ghost"
	r = svc.SaveTrainingProgram(ctx, coach, "c1", program, "")
	assert.False(t, r.Success)
	assert.Contains(t, r.Error, "ghost")
}

func TestSaveNutritionTargets(t *testing.T) {
	svc, _, _ := newService(t)
	r := svc.SaveNutritionTargets(context.Background(), admin, "c1", models.NutritionTargets{
		DailyCalories: 2200, DailyProteinGrams: 150, DailyCarbsGrams: 220, DailyFatGrams: 60,
	}, "")
	require.True(t, r.Success, r.Error)
	assert.Equal(t, 2797, r.Data.Target.DailyCalories)
	assert.Equal(t, models.SourceManual, r.Data.Target.Source)
	assert.Len(t, r.Data.Warnings, 3)
}

func TestGenerationLogs(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	gen := svc.GenerateClientSummary(ctx, coach, "c1")
	require.True(t, gen.Success)
	logID := gen.Data.LogID

	list := svc.ListGenerationLogs(ctx, coach, "c1", models.GenerationLogFilter{Type: models.GenerationClientSummary})
	require.True(t, list.Success)
	assert.Len(t, *list.Data, 1)

	got := svc.GetGenerationLog(ctx, coach, "c1", logID)
	require.True(t, got.Success)
	assert.Equal(t, logID, got.Data.ID)

	assert.Equal(t, coacherr.MsgClientNotFound, svc.GetGenerationLog(ctx, other, "c1", logID).Error)
	assert.Equal(t, coacherr.MsgLogNotFound, svc.GetGenerationLog(ctx, coach, "c1", "missing").Error)

	denied := svc.DeleteGenerationLog(ctx, coach, "c1", logID)
	assert.Equal(t, coacherr.MsgNotAuthorized, denied.Error)

	deleted := svc.DeleteGenerationLog(ctx, admin, "c1", logID)
	require.True(t, deleted.Success)
	assert.Equal(t, logID, deleted.Data.ID)
	assert.Equal(t, coacherr.MsgLogNotFound, svc.DeleteGenerationLog(ctx, admin, "c1", logID).Error)
}
