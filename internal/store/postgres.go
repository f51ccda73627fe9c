package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/coachkit/coachplane/pkg/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// PostgresStore implements Store on PostgreSQL via pgxpool.
// Nested documents (intake answers, programs, audit details, generation
// results) are kept in JSONB columns.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects, pings and migrates.
func NewPostgresStore(ctx context.Context, connURL string, maxConns int) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(connURL)
	if err != nil {
		return nil, fmt.Errorf("postgres config: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = int32(maxConns)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}

	s := &PostgresStore{pool: pool}
	if err := s.Migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres migrate: %w", err)
	}

	log.Info().Int32("max_conns", cfg.MaxConns).Msg("Postgres store initialized")
	return s, nil
}

func (s *PostgresStore) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// Migrate bootstraps the schema. It is idempotent.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	const ddl = `
		CREATE TABLE IF NOT EXISTS cp_clients (
			id               TEXT PRIMARY KEY,
			coach_id         TEXT NOT NULL,
			name             TEXT NOT NULL,
			email            TEXT NOT NULL DEFAULT '',
			gender           TEXT NOT NULL DEFAULT '',
			birth_date       TIMESTAMPTZ,
			height_cm        DOUBLE PRECISION NOT NULL DEFAULT 0,
			weight_kg        DOUBLE PRECISION NOT NULL DEFAULT 0,
			goal             TEXT NOT NULL DEFAULT '',
			activity_level   TEXT NOT NULL DEFAULT '',
			experience_level TEXT NOT NULL DEFAULT '',
			notes            TEXT NOT NULL DEFAULT '',
			created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_cp_clients_coach ON cp_clients (coach_id);

		CREATE TABLE IF NOT EXISTS cp_intakes (
			client_id    TEXT PRIMARY KEY,
			data         JSONB NOT NULL,
			submitted_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS cp_check_ins (
			id                  TEXT PRIMARY KEY,
			client_id           TEXT NOT NULL,
			date                TIMESTAMPTZ NOT NULL,
			weight_kg           DOUBLE PRECISION,
			energy              INT NOT NULL DEFAULT 0,
			sleep_quality       INT NOT NULL DEFAULT 0,
			stress              INT NOT NULL DEFAULT 0,
			training_adherence  INT NOT NULL DEFAULT 0,
			nutrition_adherence INT NOT NULL DEFAULT 0,
			notes               TEXT NOT NULL DEFAULT ''
		);
		CREATE INDEX IF NOT EXISTS idx_cp_check_ins_client ON cp_check_ins (client_id, date DESC);

		CREATE TABLE IF NOT EXISTS cp_workout_logs (
			id               TEXT PRIMARY KEY,
			client_id        TEXT NOT NULL,
			date             TIMESTAMPTZ NOT NULL,
			program_name     TEXT NOT NULL DEFAULT '',
			day_name         TEXT NOT NULL DEFAULT '',
			completed        BOOLEAN NOT NULL DEFAULT FALSE,
			duration_minutes INT NOT NULL DEFAULT 0,
			average_rpe      DOUBLE PRECISION,
			notes            TEXT NOT NULL DEFAULT ''
		);
		CREATE INDEX IF NOT EXISTS idx_cp_workout_logs_client ON cp_workout_logs (client_id, date DESC);

		CREATE TABLE IF NOT EXISTS cp_nutrition_targets (
			client_id      TEXT PRIMARY KEY,
			daily_calories INT NOT NULL,
			daily_protein  INT NOT NULL,
			daily_carbs    INT NOT NULL,
			daily_fat      INT NOT NULL,
			rationale      TEXT NOT NULL DEFAULT '',
			source         TEXT NOT NULL DEFAULT 'manual',
			updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS cp_coaching_events (
			id                TEXT PRIMARY KEY,
			client_id         TEXT NOT NULL,
			coach_id          TEXT NOT NULL,
			kind              TEXT NOT NULL,
			summary           TEXT NOT NULL DEFAULT '',
			details           JSONB NOT NULL DEFAULT '{}',
			generation_log_id TEXT NOT NULL DEFAULT '',
			created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_cp_events_client ON cp_coaching_events (client_id, created_at DESC);

		CREATE TABLE IF NOT EXISTS cp_exercises (
			id         TEXT NOT NULL,
			coach_id   TEXT NOT NULL,
			name       TEXT NOT NULL,
			category   TEXT NOT NULL DEFAULT '',
			attributes JSONB NOT NULL DEFAULT '{}',
			PRIMARY KEY (coach_id, id)
		);

		CREATE TABLE IF NOT EXISTS cp_supplements (
			id         TEXT PRIMARY KEY,
			client_id  TEXT NOT NULL,
			name       TEXT NOT NULL,
			dosage     TEXT NOT NULL DEFAULT '',
			timing     TEXT NOT NULL DEFAULT '',
			source     TEXT NOT NULL DEFAULT 'manual',
			active     BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_cp_supplements_client ON cp_supplements (client_id);

		CREATE TABLE IF NOT EXISTS cp_training_programs (
			id                TEXT PRIMARY KEY,
			client_id         TEXT NOT NULL,
			coach_id          TEXT NOT NULL,
			program           JSONB NOT NULL,
			active            BOOLEAN NOT NULL DEFAULT TRUE,
			generation_log_id TEXT NOT NULL DEFAULT '',
			created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_cp_programs_client ON cp_training_programs (client_id, active);

		CREATE TABLE IF NOT EXISTS cp_generation_logs (
			id              TEXT PRIMARY KEY,
			client_id       TEXT NOT NULL,
			coach_id        TEXT NOT NULL,
			generation_type TEXT NOT NULL,
			title           TEXT NOT NULL DEFAULT '',
			result          JSONB NOT NULL,
			model           TEXT NOT NULL DEFAULT '',
			tokens_used     INT NOT NULL DEFAULT 0,
			rag_used        BOOLEAN NOT NULL DEFAULT FALSE,
			created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_cp_generation_logs_client ON cp_generation_logs (client_id, created_at DESC);
	`
	_, err := s.pool.Exec(ctx, ddl)
	return err
}

// notFound maps pgx.ErrNoRows to *ErrNotFound.
func notFound(err error, entity, key string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return &ErrNotFound{Entity: entity, Key: key}
	}
	return err
}

func limitArg(limit int) interface{} {
	if limit <= 0 {
		return nil // LIMIT NULL = no limit
	}
	return limit
}

func nowIfZero(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t
}

// ── Client Store ────────────────────────────────────────────

const clientColumns = `id, coach_id, name, email, gender, birth_date, height_cm, weight_kg,
	goal, activity_level, experience_level, notes, created_at`

func scanClient(row pgx.Row) (*models.Client, error) {
	var c models.Client
	var birth *time.Time
	if err := row.Scan(&c.ID, &c.CoachID, &c.Name, &c.Email, &c.Gender, &birth, &c.HeightCm, &c.WeightKg,
		&c.Goal, &c.ActivityLevel, &c.ExperienceLevel, &c.Notes, &c.CreatedAt); err != nil {
		return nil, err
	}
	if birth != nil {
		c.BirthDate = *birth
	}
	return &c, nil
}

func (s *PostgresStore) GetClient(ctx context.Context, id string) (*models.Client, error) {
	c, err := scanClient(s.pool.QueryRow(ctx, `SELECT `+clientColumns+` FROM cp_clients WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, "client", id)
	}
	return c, nil
}

func (s *PostgresStore) ListClients(ctx context.Context, coachID string) ([]models.Client, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+clientColumns+` FROM cp_clients
		WHERE ($1 = '' OR coach_id = $1) ORDER BY name`, coachID)
	if err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	defer rows.Close()

	var out []models.Client
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, fmt.Errorf("scan client: %w", err)
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func (s *PostgresStore) UpsertClient(ctx context.Context, c *models.Client) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	c.CreatedAt = nowIfZero(c.CreatedAt)
	var birth *time.Time
	if !c.BirthDate.IsZero() {
		birth = &c.BirthDate
	}
	_, err := s.pool.Exec(ctx, `INSERT INTO cp_clients (`+clientColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE SET
			coach_id = EXCLUDED.coach_id, name = EXCLUDED.name, email = EXCLUDED.email,
			gender = EXCLUDED.gender, birth_date = EXCLUDED.birth_date,
			height_cm = EXCLUDED.height_cm, weight_kg = EXCLUDED.weight_kg,
			goal = EXCLUDED.goal, activity_level = EXCLUDED.activity_level,
			experience_level = EXCLUDED.experience_level, notes = EXCLUDED.notes`,
		c.ID, c.CoachID, c.Name, c.Email, c.Gender, birth, c.HeightCm, c.WeightKg,
		c.Goal, c.ActivityLevel, c.ExperienceLevel, c.Notes, c.CreatedAt)
	return err
}

// ── Intake Store ────────────────────────────────────────────

func (s *PostgresStore) GetIntake(ctx context.Context, clientID string) (*models.IntakeForm, error) {
	var in models.IntakeForm
	err := s.pool.QueryRow(ctx, `SELECT data FROM cp_intakes WHERE client_id = $1`, clientID).Scan(&in)
	if err != nil {
		return nil, notFound(err, "intake", clientID)
	}
	in.ClientID = clientID
	return &in, nil
}

func (s *PostgresStore) UpsertIntake(ctx context.Context, in *models.IntakeForm) error {
	in.SubmittedAt = nowIfZero(in.SubmittedAt)
	_, err := s.pool.Exec(ctx, `INSERT INTO cp_intakes (client_id, data, submitted_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (client_id) DO UPDATE SET data = EXCLUDED.data, submitted_at = EXCLUDED.submitted_at`,
		in.ClientID, in, in.SubmittedAt)
	return err
}

// ── Check-ins & Workout Logs ────────────────────────────────

func (s *PostgresStore) ListCheckIns(ctx context.Context, clientID string, limit int) ([]models.CheckIn, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, client_id, date, weight_kg, energy, sleep_quality, stress,
			training_adherence, nutrition_adherence, notes
		FROM cp_check_ins WHERE client_id = $1 ORDER BY date DESC LIMIT $2`, clientID, limitArg(limit))
	if err != nil {
		return nil, fmt.Errorf("list check-ins: %w", err)
	}
	defer rows.Close()

	var out []models.CheckIn
	for rows.Next() {
		var ci models.CheckIn
		if err := rows.Scan(&ci.ID, &ci.ClientID, &ci.Date, &ci.WeightKg, &ci.Energy, &ci.SleepQuality, &ci.Stress,
			&ci.TrainingAdherence, &ci.NutritionAdherence, &ci.Notes); err != nil {
			return nil, fmt.Errorf("scan check-in: %w", err)
		}
		out = append(out, ci)
	}
	return out, rows.Err()
}

func (s *PostgresStore) CreateCheckIn(ctx context.Context, ci *models.CheckIn) error {
	if ci.ID == "" {
		ci.ID = uuid.NewString()
	}
	_, err := s.pool.Exec(ctx, `INSERT INTO cp_check_ins (id, client_id, date, weight_kg, energy, sleep_quality,
			stress, training_adherence, nutrition_adherence, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		ci.ID, ci.ClientID, ci.Date, ci.WeightKg, ci.Energy, ci.SleepQuality,
		ci.Stress, ci.TrainingAdherence, ci.NutritionAdherence, ci.Notes)
	return err
}

func (s *PostgresStore) ListWorkoutLogs(ctx context.Context, clientID string, limit int) ([]models.WorkoutLog, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, client_id, date, program_name, day_name, completed,
			duration_minutes, average_rpe, notes
		FROM cp_workout_logs WHERE client_id = $1 ORDER BY date DESC LIMIT $2`, clientID, limitArg(limit))
	if err != nil {
		return nil, fmt.Errorf("list workout logs: %w", err)
	}
	defer rows.Close()

	var out []models.WorkoutLog
	for rows.Next() {
		var wl models.WorkoutLog
		if err := rows.Scan(&wl.ID, &wl.ClientID, &wl.Date, &wl.ProgramName, &wl.DayName, &wl.Completed,
			&wl.DurationMinutes, &wl.AverageRPE, &wl.Notes); err != nil {
			return nil, fmt.Errorf("scan workout log: %w", err)
		}
		out = append(out, wl)
	}
	return out, rows.Err()
}

func (s *PostgresStore) CreateWorkoutLog(ctx context.Context, wl *models.WorkoutLog) error {
	if wl.ID == "" {
		wl.ID = uuid.NewString()
	}
	_, err := s.pool.Exec(ctx, `INSERT INTO cp_workout_logs (id, client_id, date, program_name, day_name,
			completed, duration_minutes, average_rpe, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		wl.ID, wl.ClientID, wl.Date, wl.ProgramName, wl.DayName,
		wl.Completed, wl.DurationMinutes, wl.AverageRPE, wl.Notes)
	return err
}

// ── Nutrition Store ─────────────────────────────────────────

func (s *PostgresStore) GetNutritionTarget(ctx context.Context, clientID string) (*models.NutritionTarget, error) {
	var t models.NutritionTarget
	var source string
	err := s.pool.QueryRow(ctx, `SELECT client_id, daily_calories, daily_protein, daily_carbs, daily_fat,
			rationale, source, updated_at
		FROM cp_nutrition_targets WHERE client_id = $1`, clientID).
		Scan(&t.ClientID, &t.DailyCalories, &t.DailyProteinGrams, &t.DailyCarbsGrams, &t.DailyFatGrams,
			&t.Rationale, &source, &t.UpdatedAt)
	if err != nil {
		return nil, notFound(err, "nutrition target", clientID)
	}
	t.Source = models.Source(source)
	return &t, nil
}

// UpsertNutritionTarget is a single statement, so concurrent writers for
// the same client resolve to last-write-wins without partial rows.
func (s *PostgresStore) UpsertNutritionTarget(ctx context.Context, t *models.NutritionTarget) error {
	t.UpdatedAt = nowIfZero(t.UpdatedAt)
	_, err := s.pool.Exec(ctx, `INSERT INTO cp_nutrition_targets (client_id, daily_calories, daily_protein,
			daily_carbs, daily_fat, rationale, source, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (client_id) DO UPDATE SET
			daily_calories = EXCLUDED.daily_calories, daily_protein = EXCLUDED.daily_protein,
			daily_carbs = EXCLUDED.daily_carbs, daily_fat = EXCLUDED.daily_fat,
			rationale = EXCLUDED.rationale, source = EXCLUDED.source, updated_at = EXCLUDED.updated_at`,
		t.ClientID, t.DailyCalories, t.DailyProteinGrams, t.DailyCarbsGrams, t.DailyFatGrams,
		t.Rationale, string(t.Source), t.UpdatedAt)
	return err
}

// ── Coaching Events ─────────────────────────────────────────

func (s *PostgresStore) CreateCoachingEvent(ctx context.Context, e *models.CoachingEvent) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	e.CreatedAt = nowIfZero(e.CreatedAt)
	details := e.Details
	if details == nil {
		details = map[string]interface{}{}
	}
	_, err := s.pool.Exec(ctx, `INSERT INTO cp_coaching_events (id, client_id, coach_id, kind, summary,
			details, generation_log_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		e.ID, e.ClientID, e.CoachID, string(e.Kind), e.Summary, details, e.GenerationLogID, e.CreatedAt)
	return err
}

func (s *PostgresStore) ListCoachingEvents(ctx context.Context, clientID string, limit int) ([]models.CoachingEvent, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, client_id, coach_id, kind, summary, details,
			generation_log_id, created_at
		FROM cp_coaching_events WHERE client_id = $1 ORDER BY created_at DESC LIMIT $2`,
		clientID, limitArg(limit))
	if err != nil {
		return nil, fmt.Errorf("list coaching events: %w", err)
	}
	defer rows.Close()

	var out []models.CoachingEvent
	for rows.Next() {
		var e models.CoachingEvent
		var kind string
		if err := rows.Scan(&e.ID, &e.ClientID, &e.CoachID, &kind, &e.Summary, &e.Details,
			&e.GenerationLogID, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan coaching event: %w", err)
		}
		e.Kind = models.CoachingEventKind(kind)
		out = append(out, e)
	}
	return out, rows.Err()
}

// ── Exercise Library ────────────────────────────────────────

func (s *PostgresStore) ListExercises(ctx context.Context, coachID string) ([]models.ExerciseLibraryEntry, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, coach_id, name, category, attributes
		FROM cp_exercises WHERE coach_id = $1 ORDER BY name`, coachID)
	if err != nil {
		return nil, fmt.Errorf("list exercises: %w", err)
	}
	defer rows.Close()

	var out []models.ExerciseLibraryEntry
	for rows.Next() {
		var e models.ExerciseLibraryEntry
		if err := rows.Scan(&e.ID, &e.CoachID, &e.Name, &e.Category, &e.Attributes); err != nil {
			return nil, fmt.Errorf("scan exercise: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *PostgresStore) UpsertExercise(ctx context.Context, e *models.ExerciseLibraryEntry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	attrs := e.Attributes
	if attrs == nil {
		attrs = map[string]string{}
	}
	_, err := s.pool.Exec(ctx, `INSERT INTO cp_exercises (id, coach_id, name, category, attributes)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (coach_id, id) DO UPDATE SET
			name = EXCLUDED.name, category = EXCLUDED.category, attributes = EXCLUDED.attributes`,
		e.ID, e.CoachID, e.Name, e.Category, attrs)
	return err
}

// ── Supplements ─────────────────────────────────────────────

func (s *PostgresStore) ListSupplements(ctx context.Context, clientID string, activeOnly bool) ([]models.ClientSupplement, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, client_id, name, dosage, timing, source, active, created_at
		FROM cp_supplements WHERE client_id = $1 AND (NOT $2 OR active) ORDER BY created_at`,
		clientID, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("list supplements: %w", err)
	}
	defer rows.Close()

	var out []models.ClientSupplement
	for rows.Next() {
		var sp models.ClientSupplement
		var source string
		if err := rows.Scan(&sp.ID, &sp.ClientID, &sp.Name, &sp.Dosage, &sp.Timing, &source, &sp.Active, &sp.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan supplement: %w", err)
		}
		sp.Source = models.Source(source)
		out = append(out, sp)
	}
	return out, rows.Err()
}

func (s *PostgresStore) CreateSupplement(ctx context.Context, sp *models.ClientSupplement) error {
	if sp.ID == "" {
		sp.ID = uuid.NewString()
	}
	sp.CreatedAt = nowIfZero(sp.CreatedAt)
	_, err := s.pool.Exec(ctx, `INSERT INTO cp_supplements (id, client_id, name, dosage, timing, source, active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		sp.ID, sp.ClientID, sp.Name, sp.Dosage, sp.Timing, string(sp.Source), sp.Active, sp.CreatedAt)
	return err
}

func (s *PostgresStore) DeactivateSupplement(ctx context.Context, clientID, id string) error {
	tag, err := s.pool.Exec(ctx, `UPDATE cp_supplements SET active = FALSE WHERE client_id = $1 AND id = $2`, clientID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return &ErrNotFound{Entity: "supplement", Key: id}
	}
	return nil
}

// ── Training Programs ───────────────────────────────────────

func (s *PostgresStore) GetActiveTrainingProgram(ctx context.Context, clientID string) (*models.SavedTrainingProgram, error) {
	var p models.SavedTrainingProgram
	err := s.pool.QueryRow(ctx, `SELECT id, client_id, coach_id, program, active, generation_log_id, created_at
		FROM cp_training_programs WHERE client_id = $1 AND active ORDER BY created_at DESC LIMIT 1`, clientID).
		Scan(&p.ID, &p.ClientID, &p.CoachID, &p.Program, &p.Active, &p.GenerationLogID, &p.CreatedAt)
	if err != nil {
		return nil, notFound(err, "training program", clientID)
	}
	return &p, nil
}

// SaveTrainingProgram swaps the active program inside one transaction.
func (s *PostgresStore) SaveTrainingProgram(ctx context.Context, p *models.SavedTrainingProgram) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	p.CreatedAt = nowIfZero(p.CreatedAt)
	p.Active = true

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `UPDATE cp_training_programs SET active = FALSE WHERE client_id = $1 AND active`, p.ClientID); err != nil {
		return fmt.Errorf("deactivate programs: %w", err)
	}
	if _, err := tx.Exec(ctx, `INSERT INTO cp_training_programs (id, client_id, coach_id, program, active,
			generation_log_id, created_at)
		VALUES ($1, $2, $3, $4, TRUE, $5, $6)`,
		p.ID, p.ClientID, p.CoachID, p.Program, p.GenerationLogID, p.CreatedAt); err != nil {
		return fmt.Errorf("insert program: %w", err)
	}
	return tx.Commit(ctx)
}

// ── Generation Logs ─────────────────────────────────────────

const generationLogColumns = `id, client_id, coach_id, generation_type, title, result, model,
	tokens_used, rag_used, created_at`

func scanGenerationLog(row pgx.Row) (*models.GenerationLog, error) {
	var gl models.GenerationLog
	var genType string
	if err := row.Scan(&gl.ID, &gl.ClientID, &gl.CoachID, &genType, &gl.Title, &gl.Result, &gl.Model,
		&gl.TokensUsed, &gl.RAGUsed, &gl.CreatedAt); err != nil {
		return nil, err
	}
	gl.GenerationType = models.GenerationType(genType)
	return &gl, nil
}

func (s *PostgresStore) CreateGenerationLog(ctx context.Context, gl *models.GenerationLog) error {
	if gl.ID == "" {
		gl.ID = uuid.NewString()
	}
	gl.CreatedAt = nowIfZero(gl.CreatedAt)
	_, err := s.pool.Exec(ctx, `INSERT INTO cp_generation_logs (`+generationLogColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		gl.ID, gl.ClientID, gl.CoachID, string(gl.GenerationType), gl.Title, []byte(gl.Result), gl.Model,
		gl.TokensUsed, gl.RAGUsed, gl.CreatedAt)
	return err
}

func (s *PostgresStore) GetGenerationLog(ctx context.Context, clientID, id string) (*models.GenerationLog, error) {
	gl, err := scanGenerationLog(s.pool.QueryRow(ctx, `SELECT `+generationLogColumns+`
		FROM cp_generation_logs WHERE client_id = $1 AND id = $2`, clientID, id))
	if err != nil {
		return nil, notFound(err, "generation log", id)
	}
	return gl, nil
}

func (s *PostgresStore) ListGenerationLogs(ctx context.Context, clientID string, filter models.GenerationLogFilter) ([]models.GenerationLog, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+generationLogColumns+`
		FROM cp_generation_logs
		WHERE client_id = $1 AND ($2 = '' OR generation_type = $2)
		ORDER BY created_at DESC LIMIT $3`, clientID, string(filter.Type), limitArg(filter.Limit))
	if err != nil {
		return nil, fmt.Errorf("list generation logs: %w", err)
	}
	defer rows.Close()

	var out []models.GenerationLog
	for rows.Next() {
		gl, err := scanGenerationLog(rows)
		if err != nil {
			return nil, fmt.Errorf("scan generation log: %w", err)
		}
		out = append(out, *gl)
	}
	return out, rows.Err()
}

func (s *PostgresStore) DeleteGenerationLog(ctx context.Context, clientID, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM cp_generation_logs WHERE client_id = $1 AND id = $2`, clientID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return &ErrNotFound{Entity: "generation log", Key: id}
	}
	return nil
}

// Compile-time check that PostgresStore implements Store.
var _ Store = (*PostgresStore)(nil)
