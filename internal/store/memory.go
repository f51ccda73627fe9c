// Package store provides the in-memory Store implementation.
// Used when PostgreSQL is not configured (local dev, tests).
// Supports file-based snapshot persistence so data survives restarts.
package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/coachkit/coachplane/pkg/models"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// snapshot is the JSON-serializable shape written to disk.
// Per-client maps are keyed by client id; exercises by coach_id:id.
type snapshot struct {
	Clients        map[string]*models.Client               `json:"clients"`
	Intakes        map[string]*models.IntakeForm           `json:"intakes"`
	CheckIns       map[string][]*models.CheckIn            `json:"check_ins"`
	WorkoutLogs    map[string][]*models.WorkoutLog         `json:"workout_logs"`
	Nutrition      map[string]*models.NutritionTarget      `json:"nutrition"`
	Events         map[string][]*models.CoachingEvent      `json:"events"`
	Exercises      map[string]*models.ExerciseLibraryEntry `json:"exercises"`
	Supplements    map[string]*models.ClientSupplement     `json:"supplements"`
	Programs       map[string]*models.SavedTrainingProgram `json:"programs"`
	GenerationLogs map[string]*models.GenerationLog        `json:"generation_logs"`
}

// MemoryStore implements Store with in-memory maps.
type MemoryStore struct {
	mu             sync.RWMutex
	clients        map[string]*models.Client
	intakes        map[string]*models.IntakeForm
	checkIns       map[string][]*models.CheckIn
	workoutLogs    map[string][]*models.WorkoutLog
	nutrition      map[string]*models.NutritionTarget
	events         map[string][]*models.CoachingEvent
	exercises      map[string]*models.ExerciseLibraryEntry
	supplements    map[string]*models.ClientSupplement
	programs       map[string]*models.SavedTrainingProgram
	generationLogs map[string]*models.GenerationLog

	// Persistence
	snapshotPath string        // empty = no persistence
	saveMu       sync.Mutex    // guards file writes
	saveCh       chan struct{} // debounce channel
	doneCh       chan struct{} // signals background goroutines to stop
}

// NewMemoryStore creates a new in-memory store. When dataDir is non-empty,
// data is persisted to dataDir/data.json and reloaded on start.
func NewMemoryStore(dataDir string) *MemoryStore {
	m := &MemoryStore{
		clients:        make(map[string]*models.Client),
		intakes:        make(map[string]*models.IntakeForm),
		checkIns:       make(map[string][]*models.CheckIn),
		workoutLogs:    make(map[string][]*models.WorkoutLog),
		nutrition:      make(map[string]*models.NutritionTarget),
		events:         make(map[string][]*models.CoachingEvent),
		exercises:      make(map[string]*models.ExerciseLibraryEntry),
		supplements:    make(map[string]*models.ClientSupplement),
		programs:       make(map[string]*models.SavedTrainingProgram),
		generationLogs: make(map[string]*models.GenerationLog),
		saveCh:         make(chan struct{}, 1),
		doneCh:         make(chan struct{}),
	}

	if dataDir != "" {
		m.snapshotPath = filepath.Join(dataDir, "data.json")
		if err := os.MkdirAll(dataDir, 0755); err != nil {
			log.Warn().Err(err).Str("dir", dataDir).Msg("Cannot create data dir, persistence disabled")
			m.snapshotPath = ""
		}
	}

	if m.snapshotPath != "" {
		m.loadSnapshot()
		go m.saveLoop()
	}

	log.Info().Str("snapshot", m.snapshotPath).Msg("Memory store configured")
	return m
}

// requestSave signals the background goroutine to persist data.
// Non-blocking: coalesces multiple rapid writes into one disk flush.
func (m *MemoryStore) requestSave() {
	if m.snapshotPath == "" {
		return
	}
	select {
	case m.saveCh <- struct{}{}:
	default:
		// Already pending
	}
}

// saveLoop debounces save requests (max 1 write per 500ms).
func (m *MemoryStore) saveLoop() {
	for {
		select {
		case <-m.doneCh:
			return
		case <-m.saveCh:
			time.Sleep(500 * time.Millisecond)
			m.saveSnapshot()
		}
	}
}

// saveSnapshot persists all data to disk as JSON.
func (m *MemoryStore) saveSnapshot() {
	m.mu.RLock()
	snap := snapshot{
		Clients:        m.clients,
		Intakes:        m.intakes,
		CheckIns:       m.checkIns,
		WorkoutLogs:    m.workoutLogs,
		Nutrition:      m.nutrition,
		Events:         m.events,
		Exercises:      m.exercises,
		Supplements:    m.supplements,
		Programs:       m.programs,
		GenerationLogs: m.generationLogs,
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	m.mu.RUnlock()

	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal snapshot")
		return
	}

	m.saveMu.Lock()
	defer m.saveMu.Unlock()

	// Write to temp file then rename for atomicity
	tmp := m.snapshotPath + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		log.Error().Err(err).Str("path", tmp).Msg("Failed to write snapshot tmp")
		return
	}
	if err := os.Rename(tmp, m.snapshotPath); err != nil {
		log.Error().Err(err).Str("path", m.snapshotPath).Msg("Failed to rename snapshot")
		return
	}

	log.Debug().Str("path", m.snapshotPath).Msg("Snapshot saved")
}

// loadSnapshot reads data from disk on startup.
func (m *MemoryStore) loadSnapshot() {
	data, err := os.ReadFile(m.snapshotPath)
	if err != nil {
		if os.IsNotExist(err) {
			log.Info().Str("path", m.snapshotPath).Msg("No snapshot file found, starting fresh")
			return
		}
		log.Warn().Err(err).Str("path", m.snapshotPath).Msg("Failed to read snapshot")
		return
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		log.Error().Err(err).Str("path", m.snapshotPath).Msg("Failed to parse snapshot, starting fresh")
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if snap.Clients != nil {
		m.clients = snap.Clients
	}
	if snap.Intakes != nil {
		m.intakes = snap.Intakes
	}
	if snap.CheckIns != nil {
		m.checkIns = snap.CheckIns
	}
	if snap.WorkoutLogs != nil {
		m.workoutLogs = snap.WorkoutLogs
	}
	if snap.Nutrition != nil {
		m.nutrition = snap.Nutrition
	}
	if snap.Events != nil {
		m.events = snap.Events
	}
	if snap.Exercises != nil {
		m.exercises = snap.Exercises
	}
	if snap.Supplements != nil {
		m.supplements = snap.Supplements
	}
	if snap.Programs != nil {
		m.programs = snap.Programs
	}
	if snap.GenerationLogs != nil {
		m.generationLogs = snap.GenerationLogs
	}

	log.Info().
		Int("clients", len(m.clients)).
		Int("exercises", len(m.exercises)).
		Int("generation_logs", len(m.generationLogs)).
		Str("path", m.snapshotPath).
		Msg("Snapshot loaded")
}

func (m *MemoryStore) Ping(_ context.Context) error { return nil }

// Close stops the save loop and forces a final snapshot write.
// Safe to call multiple times (second call is a no-op).
func (m *MemoryStore) Close() error {
	select {
	case <-m.doneCh:
		return nil
	default:
		close(m.doneCh)
	}

	if m.snapshotPath != "" {
		log.Info().Msg("Flushing final snapshot before shutdown...")
		m.saveSnapshot()
	}
	return nil
}

func (m *MemoryStore) Migrate(_ context.Context) error { return nil }

func key(parts ...string) string {
	return strings.Join(parts, ":")
}

// ── Client Store ────────────────────────────────────────────

func (m *MemoryStore) GetClient(_ context.Context, id string) (*models.Client, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.clients[id]
	if !ok {
		return nil, &ErrNotFound{Entity: "client", Key: id}
	}
	copy := *c
	return &copy, nil
}

func (m *MemoryStore) ListClients(_ context.Context, coachID string) ([]models.Client, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.Client
	for _, c := range m.clients {
		if coachID == "" || c.CoachID == coachID {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *MemoryStore) UpsertClient(_ context.Context, client *models.Client) error {
	m.mu.Lock()
	copy := *client
	if copy.ID == "" {
		copy.ID = uuid.NewString()
		client.ID = copy.ID
	}
	if copy.CreatedAt.IsZero() {
		copy.CreatedAt = time.Now().UTC()
	}
	m.clients[copy.ID] = &copy
	m.mu.Unlock()
	m.requestSave()
	return nil
}

// ── Intake Store ────────────────────────────────────────────

func (m *MemoryStore) GetIntake(_ context.Context, clientID string) (*models.IntakeForm, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	in, ok := m.intakes[clientID]
	if !ok {
		return nil, &ErrNotFound{Entity: "intake", Key: clientID}
	}
	copy := *in
	return &copy, nil
}

func (m *MemoryStore) UpsertIntake(_ context.Context, intake *models.IntakeForm) error {
	m.mu.Lock()
	copy := *intake
	if copy.SubmittedAt.IsZero() {
		copy.SubmittedAt = time.Now().UTC()
	}
	m.intakes[copy.ClientID] = &copy
	m.mu.Unlock()
	m.requestSave()
	return nil
}

// ── Check-ins & Workout Logs ────────────────────────────────

func (m *MemoryStore) ListCheckIns(_ context.Context, clientID string, limit int) ([]models.CheckIn, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.CheckIn, 0, len(m.checkIns[clientID]))
	for _, ci := range m.checkIns[clientID] {
		out = append(out, *ci)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return limitSlice(out, limit), nil
}

func (m *MemoryStore) CreateCheckIn(_ context.Context, checkIn *models.CheckIn) error {
	m.mu.Lock()
	copy := *checkIn
	if copy.ID == "" {
		copy.ID = uuid.NewString()
		checkIn.ID = copy.ID
	}
	m.checkIns[copy.ClientID] = append(m.checkIns[copy.ClientID], &copy)
	m.mu.Unlock()
	m.requestSave()
	return nil
}

func (m *MemoryStore) ListWorkoutLogs(_ context.Context, clientID string, limit int) ([]models.WorkoutLog, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.WorkoutLog, 0, len(m.workoutLogs[clientID]))
	for _, wl := range m.workoutLogs[clientID] {
		out = append(out, *wl)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return limitSlice(out, limit), nil
}

func (m *MemoryStore) CreateWorkoutLog(_ context.Context, wl *models.WorkoutLog) error {
	m.mu.Lock()
	copy := *wl
	if copy.ID == "" {
		copy.ID = uuid.NewString()
		wl.ID = copy.ID
	}
	m.workoutLogs[copy.ClientID] = append(m.workoutLogs[copy.ClientID], &copy)
	m.mu.Unlock()
	m.requestSave()
	return nil
}

// ── Nutrition Store ─────────────────────────────────────────

func (m *MemoryStore) GetNutritionTarget(_ context.Context, clientID string) (*models.NutritionTarget, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.nutrition[clientID]
	if !ok {
		return nil, &ErrNotFound{Entity: "nutrition target", Key: clientID}
	}
	copy := *t
	return &copy, nil
}

func (m *MemoryStore) UpsertNutritionTarget(_ context.Context, target *models.NutritionTarget) error {
	m.mu.Lock()
	copy := *target
	if copy.UpdatedAt.IsZero() {
		copy.UpdatedAt = time.Now().UTC()
	}
	m.nutrition[copy.ClientID] = &copy
	m.mu.Unlock()
	m.requestSave()
	return nil
}

// ── Coaching Events ─────────────────────────────────────────

func (m *MemoryStore) CreateCoachingEvent(_ context.Context, event *models.CoachingEvent) error {
	m.mu.Lock()
	copy := *event
	if copy.ID == "" {
		copy.ID = uuid.NewString()
		event.ID = copy.ID
	}
	if copy.CreatedAt.IsZero() {
		copy.CreatedAt = time.Now().UTC()
		event.CreatedAt = copy.CreatedAt
	}
	m.events[copy.ClientID] = append(m.events[copy.ClientID], &copy)
	m.mu.Unlock()
	m.requestSave()
	return nil
}

func (m *MemoryStore) ListCoachingEvents(_ context.Context, clientID string, limit int) ([]models.CoachingEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	src := m.events[clientID]
	out := make([]models.CoachingEvent, 0, len(src))
	// append-only, so reverse insertion order is newest first
	for i := len(src) - 1; i >= 0; i-- {
		out = append(out, *src[i])
	}
	return limitSlice(out, limit), nil
}

// ── Exercise Library ────────────────────────────────────────

func (m *MemoryStore) ListExercises(_ context.Context, coachID string) ([]models.ExerciseLibraryEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.ExerciseLibraryEntry
	for _, e := range m.exercises {
		if e.CoachID == coachID {
			out = append(out, *e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *MemoryStore) UpsertExercise(_ context.Context, entry *models.ExerciseLibraryEntry) error {
	m.mu.Lock()
	copy := *entry
	if copy.ID == "" {
		copy.ID = uuid.NewString()
		entry.ID = copy.ID
	}
	m.exercises[key(copy.CoachID, copy.ID)] = &copy
	m.mu.Unlock()
	m.requestSave()
	return nil
}

// ── Supplements ─────────────────────────────────────────────

func (m *MemoryStore) ListSupplements(_ context.Context, clientID string, activeOnly bool) ([]models.ClientSupplement, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.ClientSupplement
	for _, s := range m.supplements {
		if s.ClientID != clientID || (activeOnly && !s.Active) {
			continue
		}
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *MemoryStore) CreateSupplement(_ context.Context, supplement *models.ClientSupplement) error {
	m.mu.Lock()
	copy := *supplement
	if copy.ID == "" {
		copy.ID = uuid.NewString()
		supplement.ID = copy.ID
	}
	if copy.CreatedAt.IsZero() {
		copy.CreatedAt = time.Now().UTC()
		supplement.CreatedAt = copy.CreatedAt
	}
	m.supplements[copy.ID] = &copy
	m.mu.Unlock()
	m.requestSave()
	return nil
}

func (m *MemoryStore) DeactivateSupplement(_ context.Context, clientID, id string) error {
	m.mu.Lock()
	s, ok := m.supplements[id]
	if !ok || s.ClientID != clientID {
		m.mu.Unlock()
		return &ErrNotFound{Entity: "supplement", Key: id}
	}
	s.Active = false
	m.mu.Unlock()
	m.requestSave()
	return nil
}

// ── Training Programs ───────────────────────────────────────

func (m *MemoryStore) GetActiveTrainingProgram(_ context.Context, clientID string) (*models.SavedTrainingProgram, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.programs {
		if p.ClientID == clientID && p.Active {
			copy := *p
			return &copy, nil
		}
	}
	return nil, &ErrNotFound{Entity: "training program", Key: clientID}
}

func (m *MemoryStore) SaveTrainingProgram(_ context.Context, program *models.SavedTrainingProgram) error {
	m.mu.Lock()
	for _, p := range m.programs {
		if p.ClientID == program.ClientID {
			p.Active = false
		}
	}
	copy := *program
	if copy.ID == "" {
		copy.ID = uuid.NewString()
		program.ID = copy.ID
	}
	if copy.CreatedAt.IsZero() {
		copy.CreatedAt = time.Now().UTC()
		program.CreatedAt = copy.CreatedAt
	}
	copy.Active = true
	program.Active = true
	m.programs[copy.ID] = &copy
	m.mu.Unlock()
	m.requestSave()
	return nil
}

// ── Generation Logs ─────────────────────────────────────────

func (m *MemoryStore) CreateGenerationLog(_ context.Context, gl *models.GenerationLog) error {
	m.mu.Lock()
	copy := *gl
	if copy.ID == "" {
		copy.ID = uuid.NewString()
		gl.ID = copy.ID
	}
	if copy.CreatedAt.IsZero() {
		copy.CreatedAt = time.Now().UTC()
		gl.CreatedAt = copy.CreatedAt
	}
	m.generationLogs[copy.ID] = &copy
	m.mu.Unlock()
	m.requestSave()
	return nil
}

func (m *MemoryStore) GetGenerationLog(_ context.Context, clientID, id string) (*models.GenerationLog, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	gl, ok := m.generationLogs[id]
	if !ok || gl.ClientID != clientID {
		return nil, &ErrNotFound{Entity: "generation log", Key: id}
	}
	copy := *gl
	return &copy, nil
}

func (m *MemoryStore) ListGenerationLogs(_ context.Context, clientID string, filter models.GenerationLogFilter) ([]models.GenerationLog, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.GenerationLog
	for _, gl := range m.generationLogs {
		if gl.ClientID != clientID {
			continue
		}
		if filter.Type != "" && gl.GenerationType != filter.Type {
			continue
		}
		out = append(out, *gl)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return limitSlice(out, filter.Limit), nil
}

func (m *MemoryStore) DeleteGenerationLog(_ context.Context, clientID, id string) error {
	m.mu.Lock()
	gl, ok := m.generationLogs[id]
	if !ok || gl.ClientID != clientID {
		m.mu.Unlock()
		return &ErrNotFound{Entity: "generation log", Key: id}
	}
	delete(m.generationLogs, id)
	m.mu.Unlock()
	m.requestSave()
	return nil
}

// limitSlice truncates s to limit items; limit <= 0 means no limit.
func limitSlice[T any](s []T, limit int) []T {
	if limit > 0 && len(s) > limit {
		return s[:limit]
	}
	return s
}

// Compile-time check that MemoryStore implements Store.
var _ Store = (*MemoryStore)(nil)
