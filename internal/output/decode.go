package output

import (
	"github.com/coachkit/coachplane/pkg/coacherr"
	"github.com/coachkit/coachplane/pkg/models"
)

// List bounds enforced on every decoded result.
const (
	MaxRecommendations           = 5
	MaxActionableRecommendations = 3
	MaxPriorityActions           = 5
	MaxSupplementRecommendations = 7
	MaxProgressHighlights        = 5
	MaxPrimaryGoals              = 5
	MaxRiskFactors               = 5
)

func missing(kind, field string) error {
	return coacherr.OutputFormat(kind+": missing required field "+field, nil)
}

// ── Training Program ────────────────────────────────────────

// TrainingProgram decodes a training program. It requires a name and at
// least one block.
func TrainingProgram(raw string) (*models.TrainingProgram, error) {
	m, err := Parse(raw)
	if err != nil {
		return nil, err
	}

	p := &models.TrainingProgram{
		Name:                   text(m, "name"),
		Description:            text(m, "description"),
		PeriodizationRationale: text(m, "periodizationRationale"),
		ProgressionStrategy:    text(m, "progressionStrategy"),
		CoachNotes:             text(m, "coachNotes"),
	}
	if p.Name == "" {
		return nil, missing("training", "name")
	}

	blocks, _ := objects(m, "blocks")
	for _, b := range blocks {
		p.Blocks = append(p.Blocks, trainingBlock(b))
	}
	if len(p.Blocks) == 0 {
		return nil, missing("training", "blocks")
	}
	return p, nil
}

func trainingBlock(b map[string]interface{}) models.TrainingBlock {
	block := models.TrainingBlock{
		Name:          text(b, "name"),
		DurationWeeks: integer(b, "durationWeeks"),
		Days:          []models.TrainingDay{},
	}
	days, _ := objects(b, "days")
	for _, d := range days {
		day := models.TrainingDay{
			Name:      text(d, "name"),
			IsRestDay: boolean(d, "isRestDay"),
			DayOfWeek: optInt(d, "dayOfWeek"),
			Exercises: []models.ProgramExercise{},
		}
		exercises, _ := objects(d, "exercises")
		for _, e := range exercises {
			day.Exercises = append(day.Exercises, models.ProgramExercise{
				ExerciseID:    text(e, "exerciseId"),
				ExerciseName:  text(e, "exerciseName"),
				Section:       section(text(e, "section")),
				Sets:          integer(e, "sets"),
				Reps:          text(e, "reps"),
				RestSeconds:   integer(e, "restSeconds"),
				Notes:         text(e, "notes"),
				PrescribedRPE: optFloat(e, "prescribedRpe"),
				PrescribedRIR: optInt(e, "prescribedRir"),
				Tempo:         text(e, "tempo"),
			})
		}
		block.Days = append(block.Days, day)
	}
	return block
}

// ── Nutrition ───────────────────────────────────────────────

// Nutrition decodes a nutrition plan. It requires targets.dailyCalories.
// The macros are returned as the model stated them; the caller applies the
// domain floors.
func Nutrition(raw string) (*models.NutritionResult, error) {
	m, err := Parse(raw)
	if err != nil {
		return nil, err
	}

	targets := object(m, "targets")
	calories, ok := models.FloatField(targets, "dailyCalories")
	if !ok || calories <= 0 {
		return nil, missing("nutrition", "targets.dailyCalories")
	}

	return &models.NutritionResult{
		Targets: models.NutritionTargets{
			DailyCalories:     integer(targets, "dailyCalories"),
			DailyProteinGrams: integer(targets, "dailyProteinGrams"),
			DailyCarbsGrams:   integer(targets, "dailyCarbsGrams"),
			DailyFatGrams:     integer(targets, "dailyFatGrams"),
			Rationale:         text(targets, "rationale"),
		},
		GeneralAdvice:         text(m, "generalAdvice"),
		TimingRecommendations: text(m, "timingRecommendations"),
		SupplementAdvice:      text(m, "supplementAdvice"),
		Warnings:              textList(m, "warnings"),
	}, nil
}

// ── Weekly Review ───────────────────────────────────────────

// WeeklyReview decodes a weekly review. It requires a summary. canApply on
// actionable recommendations is derived from the proposal type.
func WeeklyReview(raw string) (*models.WeeklyReview, error) {
	m, err := Parse(raw)
	if err != nil {
		return nil, err
	}

	r := &models.WeeklyReview{
		Summary:                   text(m, "summary"),
		ProgressAnalysis:          text(m, "progressAnalysis"),
		FlaggedConcerns:           []models.FlaggedConcern{},
		Recommendations:           []models.Recommendation{},
		ActionableRecommendations: []models.ActionableRecommendation{},
	}
	if r.Summary == "" {
		return nil, missing("weekly review", "summary")
	}

	compliance := object(m, "complianceAnalysis")
	r.ComplianceAnalysis = models.ComplianceAnalysis{
		Training:  text(compliance, "training"),
		Nutrition: text(compliance, "nutrition"),
		CheckIns:  text(compliance, "checkIns"),
	}

	concerns, _ := objects(m, "flaggedConcerns")
	for _, c := range concerns {
		r.FlaggedConcerns = append(r.FlaggedConcerns, models.FlaggedConcern{
			Severity:    severity(text(c, "severity")),
			Area:        text(c, "area"),
			Description: text(c, "description"),
		})
	}

	recs, _ := objects(m, "recommendations")
	for _, rec := range truncate(recs, MaxRecommendations) {
		r.Recommendations = append(r.Recommendations, models.Recommendation{
			Area:      text(rec, "area"),
			Action:    text(rec, "action"),
			Rationale: text(rec, "rationale"),
		})
	}

	actionable, _ := objects(m, "actionableRecommendations")
	for _, a := range truncate(actionable, MaxActionableRecommendations) {
		r.ActionableRecommendations = append(r.ActionableRecommendations, actionableRecommendation(a))
	}
	return r, nil
}

func actionableRecommendation(a map[string]interface{}) models.ActionableRecommendation {
	pt := models.ProposalType(normKey(text(a, "proposalType")))
	return models.ActionableRecommendation{
		Area:         text(a, "area"),
		Action:       text(a, "action"),
		Rationale:    text(a, "rationale"),
		ProposalType: pt,
		Proposal:     models.ProposalFromMap(pt, object(a, "proposal")),
		CanApply:     models.CanApplyProposal(pt),
	}
}

// ── Supplements ─────────────────────────────────────────────

// SupplementAnalysis decodes a supplement plan. The recommendations array
// must be present, even if empty.
func SupplementAnalysis(raw string) (*models.SupplementAnalysis, error) {
	m, err := Parse(raw)
	if err != nil {
		return nil, err
	}

	items, ok := objects(m, "recommendations")
	if !ok {
		return nil, missing("supplements", "recommendations")
	}

	a := &models.SupplementAnalysis{
		Recommendations:   []models.SupplementRecommendation{},
		MedicalDisclaimer: text(m, "medicalDisclaimer"),
		GeneralNotes:      text(m, "generalNotes"),
	}
	for _, item := range items {
		name := text(item, "name")
		if name == "" {
			continue
		}
		a.Recommendations = append(a.Recommendations, models.SupplementRecommendation{
			Name:          name,
			Dosage:        text(item, "dosage"),
			Timing:        text(item, "timing"),
			Frequency:     text(item, "frequency"),
			Rationale:     text(item, "rationale"),
			EvidenceLevel: evidence(text(item, "evidenceLevel")),
			Interactions:  text(item, "interactions"),
		})
	}
	a.Recommendations = truncate(a.Recommendations, MaxSupplementRecommendations)
	return a, nil
}

// ── Client Summary ──────────────────────────────────────────

// ClientSummary decodes a client summary. It requires overallAssessment.
func ClientSummary(raw string) (*models.ClientSummary, error) {
	m, err := Parse(raw)
	if err != nil {
		return nil, err
	}

	s := &models.ClientSummary{
		OverallAssessment:  text(m, "overallAssessment"),
		SupplementStatus:   text(m, "supplementStatus"),
		ProgressHighlights: truncate(textList(m, "progressHighlights"), MaxProgressHighlights),
		PriorityActions:    []models.PriorityAction{},
	}
	if s.OverallAssessment == "" {
		return nil, missing("client summary", "overallAssessment")
	}

	training := object(m, "trainingStatus")
	s.TrainingStatus = models.TrainingStatus{
		CurrentProgram: text(training, "currentProgram"),
		Adherence:      text(training, "adherence"),
		KeyInsight:     text(training, "keyInsight"),
	}
	nutrition := object(m, "nutritionStatus")
	s.NutritionStatus = models.NutritionStatus{
		CurrentTargets: text(nutrition, "currentTargets"),
		Adherence:      text(nutrition, "adherence"),
		KeyInsight:     text(nutrition, "keyInsight"),
	}

	actions, _ := objects(m, "priorityActions")
	for _, a := range truncate(actions, MaxPriorityActions) {
		s.PriorityActions = append(s.PriorityActions, models.PriorityAction{
			Area:    text(a, "area"),
			Action:  text(a, "action"),
			Urgency: urgency(text(a, "urgency")),
		})
	}
	return s, nil
}

// ── Intake Analysis ─────────────────────────────────────────

// IntakeAnalysis decodes an intake analysis. It requires a summary.
func IntakeAnalysis(raw string) (*models.IntakeAnalysis, error) {
	m, err := Parse(raw)
	if err != nil {
		return nil, err
	}

	a := &models.IntakeAnalysis{
		Summary:                 text(m, "summary"),
		PrimaryGoals:            truncate(textList(m, "primaryGoals"), MaxPrimaryGoals),
		RiskFactors:             truncate(textList(m, "riskFactors"), MaxRiskFactors),
		TrainingConsiderations:  text(m, "trainingConsiderations"),
		NutritionConsiderations: text(m, "nutritionConsiderations"),
		RecommendedFocus:        text(m, "recommendedFocus"),
	}
	if a.Summary == "" {
		return nil, missing("intake analysis", "summary")
	}
	return a, nil
}
