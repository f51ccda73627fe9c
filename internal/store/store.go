// Package store provides the storage interface and implementations for the
// coaching control plane. MemoryStore backs local development and tests;
// PostgresStore backs production.
package store

import (
	"context"
	"errors"

	"github.com/coachkit/coachplane/pkg/models"
)

// Store is the primary storage interface for the control plane.
// All pipeline and service code depends on this interface, making it easy
// to swap between in-memory (tests) and PostgreSQL (production).
//
// Every client-owned record is addressed by client id; callers are
// responsible for checking coach ownership before touching it.
type Store interface {
	ClientStore
	IntakeStore
	CheckInStore
	WorkoutLogStore
	NutritionStore
	CoachingEventStore
	ExerciseStore
	SupplementStore
	TrainingProgramStore
	GenerationLogStore

	// Ping checks if the database is reachable.
	Ping(ctx context.Context) error

	// Close releases all resources held by the store.
	Close() error

	// Migrate runs database migrations.
	Migrate(ctx context.Context) error
}

// ── Client Store ────────────────────────────────────────────

type ClientStore interface {
	GetClient(ctx context.Context, id string) (*models.Client, error)
	ListClients(ctx context.Context, coachID string) ([]models.Client, error)
	UpsertClient(ctx context.Context, client *models.Client) error
}

// ── Intake Store ────────────────────────────────────────────

type IntakeStore interface {
	GetIntake(ctx context.Context, clientID string) (*models.IntakeForm, error)
	UpsertIntake(ctx context.Context, intake *models.IntakeForm) error
}

// ── Check-in & Workout Log Stores ───────────────────────────

// CheckInStore lists newest first.
type CheckInStore interface {
	ListCheckIns(ctx context.Context, clientID string, limit int) ([]models.CheckIn, error)
	CreateCheckIn(ctx context.Context, checkIn *models.CheckIn) error
}

// WorkoutLogStore lists newest first.
type WorkoutLogStore interface {
	ListWorkoutLogs(ctx context.Context, clientID string, limit int) ([]models.WorkoutLog, error)
	CreateWorkoutLog(ctx context.Context, log *models.WorkoutLog) error
}

// ── Nutrition Store ─────────────────────────────────────────

// NutritionStore holds one current target per client.
// GetNutritionTarget returns *ErrNotFound when none is set.
type NutritionStore interface {
	GetNutritionTarget(ctx context.Context, clientID string) (*models.NutritionTarget, error)
	UpsertNutritionTarget(ctx context.Context, target *models.NutritionTarget) error
}

// ── Coaching Event Store (audit) ────────────────────────────

type CoachingEventStore interface {
	CreateCoachingEvent(ctx context.Context, event *models.CoachingEvent) error
	ListCoachingEvents(ctx context.Context, clientID string, limit int) ([]models.CoachingEvent, error)
}

// ── Exercise Library Store ──────────────────────────────────

// ExerciseStore is read-only for the pipeline. UpsertExercise exists for
// seeding and tests.
type ExerciseStore interface {
	ListExercises(ctx context.Context, coachID string) ([]models.ExerciseLibraryEntry, error)
	UpsertExercise(ctx context.Context, entry *models.ExerciseLibraryEntry) error
}

// ── Supplement Store ────────────────────────────────────────

type SupplementStore interface {
	ListSupplements(ctx context.Context, clientID string, activeOnly bool) ([]models.ClientSupplement, error)
	CreateSupplement(ctx context.Context, supplement *models.ClientSupplement) error
	DeactivateSupplement(ctx context.Context, clientID, id string) error
}

// ── Training Program Store ──────────────────────────────────

type TrainingProgramStore interface {
	// GetActiveTrainingProgram returns *ErrNotFound when the client has none.
	GetActiveTrainingProgram(ctx context.Context, clientID string) (*models.SavedTrainingProgram, error)

	// SaveTrainingProgram deactivates the current active program of the
	// client and stores program as the new active one.
	SaveTrainingProgram(ctx context.Context, program *models.SavedTrainingProgram) error
}

// ── Generation Log Store ────────────────────────────────────

// GenerationLogStore is append-only. Deletion is an administrative action.
type GenerationLogStore interface {
	CreateGenerationLog(ctx context.Context, log *models.GenerationLog) error
	GetGenerationLog(ctx context.Context, clientID, id string) (*models.GenerationLog, error)
	ListGenerationLogs(ctx context.Context, clientID string, filter models.GenerationLogFilter) ([]models.GenerationLog, error)
	DeleteGenerationLog(ctx context.Context, clientID, id string) error
}

// ── Errors ──────────────────────────────────────────────────

// ErrNotFound is returned when a requested entity does not exist.
type ErrNotFound struct {
	Entity string
	Key    string
}

func (e *ErrNotFound) Error() string {
	return e.Entity + " not found: " + e.Key
}

// IsNotFound reports whether err is an *ErrNotFound.
func IsNotFound(err error) bool {
	var nf *ErrNotFound
	return errors.As(err, &nf)
}
