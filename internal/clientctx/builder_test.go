package clientctx

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/coachkit/coachplane/internal/store"
	"github.com/coachkit/coachplane/pkg/coacherr"
	"github.com/coachkit/coachplane/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seed(t *testing.T) *store.MemoryStore {
	t.Helper()
	ctx := context.Background()
	s := store.NewMemoryStore("")
	t.Cleanup(func() { s.Close() })

	require.NoError(t, s.UpsertClient(ctx, &models.Client{ID: "c1", CoachID: "coach1", Name: "Jan", WeightKg: 90}))
	base := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 12; i++ {
		require.NoError(t, s.CreateCheckIn(ctx, &models.CheckIn{ClientID: "c1", Date: base.AddDate(0, 0, 7*i)}))
	}
	for i := 0; i < 25; i++ {
		require.NoError(t, s.CreateWorkoutLog(ctx, &models.WorkoutLog{ClientID: "c1", Date: base.AddDate(0, 0, i), Completed: i%2 == 0}))
	}
	for i := 0; i < 15; i++ {
		require.NoError(t, s.CreateCoachingEvent(ctx, &models.CoachingEvent{ClientID: "c1", Kind: models.EventNote, Summary: fmt.Sprintf("notitie %d", i)}))
	}
	require.NoError(t, s.CreateSupplement(ctx, &models.ClientSupplement{ClientID: "c1", Name: "Creatine", Active: true}))
	old := &models.ClientSupplement{ClientID: "c1", Name: "Magnesium", Active: true}
	require.NoError(t, s.CreateSupplement(ctx, old))
	require.NoError(t, s.DeactivateSupplement(ctx, "c1", old.ID))
	return s
}

func TestBuild(t *testing.T) {
	s := seed(t)
	cc, err := NewBuilder(s).Build(context.Background(), "c1", "coach1", false)
	require.NoError(t, err)

	assert.Equal(t, "Jan", cc.Client.Name)
	assert.Nil(t, cc.Intake)
	assert.Nil(t, cc.NutritionTarget)
	assert.Nil(t, cc.ActiveProgram)
	assert.Len(t, cc.CheckIns, MaxCheckIns)
	assert.Len(t, cc.WorkoutLogs, MaxWorkoutLogs)
	assert.Len(t, cc.Events, MaxEvents)
	assert.True(t, cc.CheckIns[0].Date.After(cc.CheckIns[1].Date), "check-ins newest first")
	assert.Equal(t, "notitie 14", cc.Events[0].Summary)
	require.Len(t, cc.Supplements, 1, "only active supplements")
	assert.Equal(t, "Creatine", cc.Supplements[0].Name)
	assert.False(t, cc.BuiltAt.IsZero())
}

func TestBuild_OptionalRecords(t *testing.T) {
	s := seed(t)
	ctx := context.Background()
	require.NoError(t, s.UpsertIntake(ctx, &models.IntakeForm{ClientID: "c1", Goals: "sterker"}))
	require.NoError(t, s.UpsertNutritionTarget(ctx, &models.NutritionTarget{ClientID: "c1", DailyCalories: 2500}))
	require.NoError(t, s.SaveTrainingProgram(ctx, &models.SavedTrainingProgram{ClientID: "c1", Program: models.TrainingProgram{Name: "Basis"}}))

	cc, err := NewBuilder(s).Build(ctx, "c1", "coach1", false)
	require.NoError(t, err)
	require.NotNil(t, cc.Intake)
	require.NotNil(t, cc.NutritionTarget)
	require.NotNil(t, cc.ActiveProgram)
	assert.Equal(t, "Basis", cc.ActiveProgram.Program.Name)
	assert.NoError(t, RequireIntake(cc))
}

func TestBuild_Ownership(t *testing.T) {
	s := seed(t)
	b := NewBuilder(s)

	_, err := b.Build(context.Background(), "c1", "coach2", false)
	require.Error(t, err)
	assert.Equal(t, coacherr.MsgClientNotFound, coacherr.Message(err))

	cc, err := b.Build(context.Background(), "c1", "admin", true)
	require.NoError(t, err)
	assert.Equal(t, "c1", cc.Client.ID)
}

func TestBuild_MissingClient(t *testing.T) {
	_, err := NewBuilder(seed(t)).Build(context.Background(), "nope", "coach1", false)
	assert.Equal(t, "data_fetch", coacherr.Kind(err))
	assert.Equal(t, coacherr.MsgClientNotFound, coacherr.Message(err))
}

type failingStore struct {
	*store.MemoryStore
}

func (failingStore) ListWorkoutLogs(context.Context, string, int) ([]models.WorkoutLog, error) {
	return nil, errors.New("connection reset")
}

func TestBuild_StoreFailure(t *testing.T) {
	_, err := NewBuilder(failingStore{seed(t)}).Build(context.Background(), "c1", "coach1", false)
	require.Error(t, err)
	assert.Equal(t, coacherr.MsgDataFetch, coacherr.Message(err))
	assert.NotContains(t, coacherr.Message(err), "connection reset")
}

func TestRequireIntake(t *testing.T) {
	err := RequireIntake(&models.ClientContext{Client: models.Client{ID: "c1"}})
	assert.Equal(t, coacherr.MsgIntakeMissing, coacherr.Message(err))
}
