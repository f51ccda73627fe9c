package models

import (
	"encoding/json"
	"strings"
	"time"
)

// ── Response Envelope ────────────────────────────────────────

// Response is the tagged result every service entry point returns.
// Callers branch on Success; Error is a short user-facing sentence.
type Response[T any] struct {
	Success bool   `json:"success"`
	Data    *T     `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// OK wraps data in a successful Response.
func OK[T any](data T) Response[T] {
	return Response[T]{Success: true, Data: &data}
}

// Fail builds a failed Response with the given message.
func Fail[T any](message string) Response[T] {
	return Response[T]{Success: false, Error: message}
}

// ── Roles ────────────────────────────────────────────────────

// Role is the platform role carried by an authenticated identity.
type Role string

const (
	RoleAdmin  Role = "ADMIN"
	RoleCoach  Role = "COACH"
	RoleClient Role = "CLIENT"
)

// Source marks who produced a stored value.
type Source string

const (
	SourceManual Source = "manual"
	SourceAI     Source = "ai"
)

// ── Client Record ────────────────────────────────────────────

// Client is a coached person. Owned by exactly one coach.
type Client struct {
	ID              string    `json:"id"`
	CoachID         string    `json:"coachId"`
	Name            string    `json:"name"`
	Email           string    `json:"email,omitempty"`
	Gender          string    `json:"gender,omitempty"`
	BirthDate       time.Time `json:"birthDate,omitempty"`
	HeightCm        float64   `json:"heightCm,omitempty"`
	WeightKg        float64   `json:"weightKg,omitempty"`
	Goal            string    `json:"goal,omitempty"`
	ActivityLevel   string    `json:"activityLevel,omitempty"`
	ExperienceLevel string    `json:"experienceLevel,omitempty"`
	Notes           string    `json:"notes,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
}

// Age returns the client's age in whole years at the given moment,
// or 0 when the birth date is unknown.
func (c *Client) Age(now time.Time) int {
	if c.BirthDate.IsZero() {
		return 0
	}
	age := now.Year() - c.BirthDate.Year()
	if now.YearDay() < c.BirthDate.YearDay() {
		age--
	}
	return age
}

// IntakeForm holds the answers a client gave during onboarding.
type IntakeForm struct {
	ClientID            string            `json:"clientId"`
	Goals               string            `json:"goals"`
	TrainingDaysPerWeek int               `json:"trainingDaysPerWeek,omitempty"`
	SessionMinutes      int               `json:"sessionMinutes,omitempty"`
	Equipment           []string          `json:"equipment,omitempty"`
	TrainingHistory     string            `json:"trainingHistory,omitempty"`
	Injuries            []string          `json:"injuries,omitempty"`
	MedicalConditions   []string          `json:"medicalConditions,omitempty"`
	Medications         []string          `json:"medications,omitempty"`
	DietaryPreferences  []string          `json:"dietaryPreferences,omitempty"`
	Allergies           []string          `json:"allergies,omitempty"`
	SleepHours          float64           `json:"sleepHours,omitempty"`
	StressLevel         int               `json:"stressLevel,omitempty"` // 1-10
	Occupation          string            `json:"occupation,omitempty"`
	Extra               map[string]string `json:"extra,omitempty"`
	SubmittedAt         time.Time         `json:"submittedAt"`
}

// CheckIn is a periodic self-report from the client.
type CheckIn struct {
	ID                 string    `json:"id"`
	ClientID           string    `json:"clientId"`
	Date               time.Time `json:"date"`
	WeightKg           *float64  `json:"weightKg,omitempty"`
	Energy             int       `json:"energy,omitempty"`       // 1-10
	SleepQuality       int       `json:"sleepQuality,omitempty"` // 1-10
	Stress             int       `json:"stress,omitempty"`       // 1-10
	TrainingAdherence  int       `json:"trainingAdherence,omitempty"`
	NutritionAdherence int       `json:"nutritionAdherence,omitempty"`
	Notes              string    `json:"notes,omitempty"`
}

// WorkoutLog records one completed (or skipped) training session.
type WorkoutLog struct {
	ID              string    `json:"id"`
	ClientID        string    `json:"clientId"`
	Date            time.Time `json:"date"`
	ProgramName     string    `json:"programName,omitempty"`
	DayName         string    `json:"dayName,omitempty"`
	Completed       bool      `json:"completed"`
	DurationMinutes int       `json:"durationMinutes,omitempty"`
	AverageRPE      *float64  `json:"averageRpe,omitempty"`
	Notes           string    `json:"notes,omitempty"`
}

// NutritionTarget is the client's current daily macro target.
type NutritionTarget struct {
	ClientID          string    `json:"clientId"`
	DailyCalories     int       `json:"dailyCalories"`
	DailyProteinGrams int       `json:"dailyProteinGrams"`
	DailyCarbsGrams   int       `json:"dailyCarbsGrams"`
	DailyFatGrams     int       `json:"dailyFatGrams"`
	Rationale         string    `json:"rationale,omitempty"`
	Source            Source    `json:"source"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// ClientSupplement is a supplement row attached to a client.
type ClientSupplement struct {
	ID        string    `json:"id"`
	ClientID  string    `json:"clientId"`
	Name      string    `json:"name"`
	Dosage    string    `json:"dosage"`
	Timing    string    `json:"timing,omitempty"`
	Source    Source    `json:"source"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"createdAt"`
}

// ExerciseLibraryEntry is one exercise in a coach's library.
// The pipeline only ever reads these.
type ExerciseLibraryEntry struct {
	ID         string            `json:"id"`
	CoachID    string            `json:"coachId"`
	Name       string            `json:"name"`
	Category   string            `json:"category,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// SavedTrainingProgram is a committed training program.
type SavedTrainingProgram struct {
	ID              string          `json:"id"`
	ClientID        string          `json:"clientId"`
	CoachID         string          `json:"coachId"`
	Program         TrainingProgram `json:"program"`
	Active          bool            `json:"active"`
	GenerationLogID string          `json:"generationLogId,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
}

// ── Coaching Events (audit) ─────────────────────────────────

// CoachingEventKind classifies audit entries in a client's history.
type CoachingEventKind string

const (
	EventNutritionAdjusted CoachingEventKind = "nutrition_adjusted"
	EventNutritionSaved    CoachingEventKind = "nutrition_saved"
	EventSupplementAdded   CoachingEventKind = "supplement_added"
	EventSupplementRemoved CoachingEventKind = "supplement_removed"
	EventProgramSaved      CoachingEventKind = "program_saved"
	EventNote              CoachingEventKind = "note"
)

// CoachingEvent is an append-only audit record of a change to a client.
type CoachingEvent struct {
	ID              string                 `json:"id"`
	ClientID        string                 `json:"clientId"`
	CoachID         string                 `json:"coachId"`
	Kind            CoachingEventKind      `json:"kind"`
	Summary         string                 `json:"summary"`
	Details         map[string]interface{} `json:"details,omitempty"`
	GenerationLogID string                 `json:"generationLogId,omitempty"`
	CreatedAt       time.Time              `json:"createdAt"`
}

// ── Client Context ──────────────────────────────────────────

// ClientContext is the read-only snapshot a single generation works from.
// It is built fresh for every call and never shared.
type ClientContext struct {
	Client          Client                `json:"client"`
	Intake          *IntakeForm           `json:"intake,omitempty"`
	CheckIns        []CheckIn             `json:"checkIns"`
	WorkoutLogs     []WorkoutLog          `json:"workoutLogs"`
	NutritionTarget *NutritionTarget      `json:"nutritionTarget,omitempty"`
	Events          []CoachingEvent       `json:"events"`
	Supplements     []ClientSupplement    `json:"supplements"`
	ActiveProgram   *SavedTrainingProgram `json:"activeProgram,omitempty"`
	BuiltAt         time.Time             `json:"builtAt"`
}

// CurrentWeightKg returns the most recent recorded body weight: the latest
// check-in weight if any, otherwise the profile weight. Zero means unknown.
func (c *ClientContext) CurrentWeightKg() float64 {
	for _, ci := range c.CheckIns {
		if ci.WeightKg != nil && *ci.WeightKg > 0 {
			return *ci.WeightKg
		}
	}
	return c.Client.WeightKg
}

// GoalText is the client's profile goal followed by the intake goals.
func (c *ClientContext) GoalText() string {
	goal := c.Client.Goal
	if c.Intake != nil && c.Intake.Goals != "" {
		goal = strings.TrimSpace(goal + " " + c.Intake.Goals)
	}
	return goal
}

// ── Generation ──────────────────────────────────────────────

// GenerationType identifies which artifact a pipeline run produces.
type GenerationType string

const (
	GenerationTraining       GenerationType = "training_program"
	GenerationNutrition      GenerationType = "nutrition"
	GenerationWeeklyReview   GenerationType = "weekly_review"
	GenerationSupplements    GenerationType = "supplement_analysis"
	GenerationClientSummary  GenerationType = "client_summary"
	GenerationIntakeAnalysis GenerationType = "intake_analysis"
)

// Generation is a validated pipeline result plus its metadata.
type Generation[T any] struct {
	Type       GenerationType `json:"generationType"`
	Title      string         `json:"title,omitempty"`
	Result     T              `json:"result"`
	Warnings   []string       `json:"warnings"`
	TokensUsed int            `json:"tokensUsed"`
	Model      string         `json:"model"`
	RAGUsed    bool           `json:"ragUsed"`
	LogID      string         `json:"logId,omitempty"`
}

// LogEntry renders g as a generation log for clientID, without id.
func (g *Generation[T]) LogEntry(clientID, coachID string) (*GenerationLog, error) {
	result, err := json.Marshal(g.Result)
	if err != nil {
		return nil, err
	}
	return &GenerationLog{
		ClientID:       clientID,
		CoachID:        coachID,
		GenerationType: g.Type,
		Title:          g.Title,
		Result:         result,
		Model:          g.Model,
		TokensUsed:     g.TokensUsed,
		RAGUsed:        g.RAGUsed,
	}, nil
}

// SetLogID records the id of the log entry written for g.
func (g *Generation[T]) SetLogID(id string) { g.LogID = id }

// GenerationLog is the append-only audit record of a generation.
type GenerationLog struct {
	ID             string          `json:"id"`
	ClientID       string          `json:"clientId"`
	CoachID        string          `json:"coachId"`
	GenerationType GenerationType  `json:"generationType"`
	Title          string          `json:"title,omitempty"`
	Result         json.RawMessage `json:"result"`
	Model          string          `json:"model"`
	TokensUsed     int             `json:"tokensUsed"`
	RAGUsed        bool            `json:"ragUsed"`
	CreatedAt      time.Time       `json:"createdAt"`
}

// GenerationLogFilter narrows ListGenerationLogs.
type GenerationLogFilter struct {
	Type  GenerationType
	Limit int
}

// TrainingOptions tunes a training program generation.
type TrainingOptions struct {
	DurationWeeks int    `json:"durationWeeks,omitempty"`
	DaysPerWeek   int    `json:"daysPerWeek,omitempty"`
	Focus         string `json:"focus,omitempty"`
	Notes         string `json:"notes,omitempty"`
}

// ── Training Program ────────────────────────────────────────

// ExerciseSection places an exercise within a training day.
type ExerciseSection string

const (
	SectionWarmUp   ExerciseSection = "warm_up"
	SectionWorkout  ExerciseSection = "workout"
	SectionCoolDown ExerciseSection = "cool_down"
)

type TrainingProgram struct {
	Name                   string          `json:"name"`
	Description            string          `json:"description"`
	Blocks                 []TrainingBlock `json:"blocks"`
	PeriodizationRationale string          `json:"periodizationRationale"`
	ProgressionStrategy    string          `json:"progressionStrategy"`
	CoachNotes             string          `json:"coachNotes"`
}

type TrainingBlock struct {
	Name          string        `json:"name"`
	DurationWeeks int           `json:"durationWeeks"`
	Days          []TrainingDay `json:"days"`
}

type TrainingDay struct {
	Name      string            `json:"name"`
	IsRestDay bool              `json:"isRestDay"`
	DayOfWeek *int              `json:"dayOfWeek,omitempty"`
	Exercises []ProgramExercise `json:"exercises"`
}

type ProgramExercise struct {
	ExerciseID    string          `json:"exerciseId"`
	ExerciseName  string          `json:"exerciseName"`
	Section       ExerciseSection `json:"section"`
	Sets          int             `json:"sets"`
	Reps          string          `json:"reps"`
	RestSeconds   int             `json:"restSeconds"`
	Notes         string          `json:"notes"`
	PrescribedRPE *float64        `json:"prescribedRpe,omitempty"`
	PrescribedRIR *int            `json:"prescribedRir,omitempty"`
	Tempo         string          `json:"tempo,omitempty"`
}

// ── Nutrition ───────────────────────────────────────────────

type NutritionTargets struct {
	DailyCalories     int    `json:"dailyCalories"`
	DailyProteinGrams int    `json:"dailyProteinGrams"`
	DailyCarbsGrams   int    `json:"dailyCarbsGrams"`
	DailyFatGrams     int    `json:"dailyFatGrams"`
	Rationale         string `json:"rationale"`
}

type NutritionResult struct {
	Targets               NutritionTargets `json:"targets"`
	GeneralAdvice         string           `json:"generalAdvice"`
	TimingRecommendations string           `json:"timingRecommendations"`
	SupplementAdvice      string           `json:"supplementAdvice"`
	Warnings              []string         `json:"warnings"`
}

// ── Weekly Review ───────────────────────────────────────────

// Severity grades a flagged concern.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

type WeeklyReview struct {
	Summary                   string                     `json:"summary"`
	ComplianceAnalysis        ComplianceAnalysis         `json:"complianceAnalysis"`
	ProgressAnalysis          string                     `json:"progressAnalysis"`
	FlaggedConcerns           []FlaggedConcern           `json:"flaggedConcerns"`
	Recommendations           []Recommendation           `json:"recommendations"`
	ActionableRecommendations []ActionableRecommendation `json:"actionableRecommendations"`
}

type ComplianceAnalysis struct {
	Training  string `json:"training"`
	Nutrition string `json:"nutrition"`
	CheckIns  string `json:"checkIns"`
}

type FlaggedConcern struct {
	Severity    Severity `json:"severity"`
	Area        string   `json:"area"`
	Description string   `json:"description"`
}

type Recommendation struct {
	Area      string `json:"area"`
	Action    string `json:"action"`
	Rationale string `json:"rationale"`
}

// ── Supplements ─────────────────────────────────────────────

// EvidenceLevel grades the research behind a supplement.
type EvidenceLevel string

const (
	EvidenceStrong   EvidenceLevel = "strong"
	EvidenceModerate EvidenceLevel = "moderate"
	EvidenceLimited  EvidenceLevel = "limited"
)

type SupplementAnalysis struct {
	Recommendations   []SupplementRecommendation `json:"recommendations"`
	MedicalDisclaimer string                     `json:"medicalDisclaimer"`
	GeneralNotes      string                     `json:"generalNotes"`
}

type SupplementRecommendation struct {
	Name          string        `json:"name"`
	Dosage        string        `json:"dosage"`
	Timing        string        `json:"timing"`
	Frequency     string        `json:"frequency"`
	Rationale     string        `json:"rationale"`
	EvidenceLevel EvidenceLevel `json:"evidenceLevel"`
	Interactions  string        `json:"interactions,omitempty"`
}

// ── Client Summary ──────────────────────────────────────────

// Urgency grades a priority action.
type Urgency string

const (
	UrgencyHigh   Urgency = "high"
	UrgencyMedium Urgency = "medium"
	UrgencyLow    Urgency = "low"
)

type ClientSummary struct {
	OverallAssessment  string           `json:"overallAssessment"`
	TrainingStatus     TrainingStatus   `json:"trainingStatus"`
	NutritionStatus    NutritionStatus  `json:"nutritionStatus"`
	SupplementStatus   string           `json:"supplementStatus,omitempty"`
	ProgressHighlights []string         `json:"progressHighlights"`
	PriorityActions    []PriorityAction `json:"priorityActions"`
}

type TrainingStatus struct {
	CurrentProgram string `json:"currentProgram,omitempty"`
	Adherence      string `json:"adherence"`
	KeyInsight     string `json:"keyInsight"`
}

type NutritionStatus struct {
	CurrentTargets string `json:"currentTargets,omitempty"`
	Adherence      string `json:"adherence"`
	KeyInsight     string `json:"keyInsight"`
}

type PriorityAction struct {
	Area    string  `json:"area"`
	Action  string  `json:"action"`
	Urgency Urgency `json:"urgency"`
}

// ── Intake Analysis ─────────────────────────────────────────

type IntakeAnalysis struct {
	Summary                 string   `json:"summary"`
	PrimaryGoals            []string `json:"primaryGoals"`
	RiskFactors             []string `json:"riskFactors"`
	TrainingConsiderations  string   `json:"trainingConsiderations"`
	NutritionConsiderations string   `json:"nutritionConsiderations"`
	RecommendedFocus        string   `json:"recommendedFocus"`
}

// ── Initial Plan ────────────────────────────────────────────

// PlanOptions selects the optional phases of an initial coaching plan.
// Intake analysis always runs.
type PlanOptions struct {
	Training        bool            `json:"training"`
	Nutrition       bool            `json:"nutrition"`
	Supplements     bool            `json:"supplements"`
	TrainingOptions TrainingOptions `json:"trainingOptions,omitempty"`
}

// PlanStep is the isolated outcome of one initial-plan phase.
type PlanStep struct {
	Phase      GenerationType `json:"phase"`
	Success    bool           `json:"success"`
	Data       interface{}    `json:"data,omitempty"`
	Error      string         `json:"error,omitempty"`
	TokensUsed int            `json:"tokensUsed"`
}

type InitialPlan struct {
	Steps       []PlanStep `json:"steps"`
	TotalTokens int        `json:"totalTokens"`
}

// ── Inference ───────────────────────────────────────────────

// InferenceRequest is one structured-output call to a language model.
type InferenceRequest struct {
	System      string  `json:"system"`
	User        string  `json:"user"`
	MaxTokens   int     `json:"maxTokens"`
	Temperature float64 `json:"temperature"`
	JSON        bool    `json:"json"`
}

// InferenceResponse is the raw model output plus usage.
type InferenceResponse struct {
	Text       string        `json:"text"`
	TokensUsed int           `json:"tokensUsed"`
	Model      string        `json:"model"`
	Provider   string        `json:"provider"`
	Latency    time.Duration `json:"latency"`
}

// ── Commit Results ──────────────────────────────────────────

// AppliedRecommendation reports the mutation an applied proposal made.
type AppliedRecommendation struct {
	ProposalType ProposalType      `json:"proposalType"`
	EventID      string            `json:"eventId"`
	Nutrition    *NutritionTarget  `json:"nutrition,omitempty"`
	Supplement   *ClientSupplement `json:"supplement,omitempty"`
	Warnings     []string          `json:"warnings"`
}

// SavedNutritionTargets is the stored target after domain correction.
type SavedNutritionTargets struct {
	Target   NutritionTarget `json:"target"`
	Warnings []string        `json:"warnings"`
}

// DeletedGenerationLog confirms an administrative log deletion.
type DeletedGenerationLog struct {
	ID string `json:"id"`
}
