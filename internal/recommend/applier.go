// Package recommend commits AI proposals and coach-approved results as
// audited state changes.
//
// Only the proposal types listed in models.CanApplyProposal can be applied,
// and each one maps to exactly one store mutation plus one coaching event.
// Every mutation for a client runs under that client's lock, so two
// concurrent applies never interleave their read-check-write steps.
package recommend

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/coachkit/coachplane/internal/nutrition"
	"github.com/coachkit/coachplane/internal/resolver"
	"github.com/coachkit/coachplane/internal/store"
	"github.com/coachkit/coachplane/pkg/coacherr"
	"github.com/coachkit/coachplane/pkg/models"
	"github.com/rs/zerolog/log"
)

// Applier applies recommendations and commit steps.
type Applier struct {
	store store.Store
	locks keyedMutex
	now   func() time.Time
}

// NewApplier creates an applier.
func NewApplier(s store.Store) *Applier {
	return &Applier{store: s, now: func() time.Time { return time.Now().UTC() }}
}

// Apply commits rec for the client in cc. generationLogID links the audit
// event to the generation that produced the proposal and may be empty.
func (a *Applier) Apply(ctx context.Context, cc *models.ClientContext, coachID string, rec models.ActionableRecommendation, generationLogID string) (*models.AppliedRecommendation, error) {
	if !models.CanApplyProposal(rec.ProposalType) || rec.Proposal == nil || rec.Proposal.Type() != rec.ProposalType {
		return nil, coacherr.Invalid(coacherr.MsgNotApplicable)
	}

	unlock := a.locks.Lock(cc.Client.ID)
	defer unlock()

	var (
		applied *models.AppliedRecommendation
		err     error
	)
	switch p := rec.Proposal.(type) {
	case models.NutritionAdjust:
		applied, err = a.adjustNutrition(ctx, cc, coachID, p, rec.Rationale, generationLogID)
	case models.SupplementAdd:
		applied, err = a.addSupplement(ctx, cc.Client.ID, coachID, p, generationLogID)
	case models.SupplementRemove:
		applied, err = a.removeSupplement(ctx, cc.Client.ID, coachID, p, generationLogID)
	default:
		return nil, coacherr.Invalid(coacherr.MsgNotApplicable)
	}
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("client_id", cc.Client.ID).
		Str("proposal_type", string(rec.ProposalType)).
		Str("event_id", applied.EventID).
		Str("generation_log_id", generationLogID).
		Msg("Recommendation applied")
	return applied, nil
}

func (a *Applier) adjustNutrition(ctx context.Context, cc *models.ClientContext, coachID string, p models.NutritionAdjust, rationale, logID string) (*models.AppliedRecommendation, error) {
	fields := map[string]*int{
		"newCalories": p.NewCalories,
		"newProtein":  p.NewProtein,
		"newCarbs":    p.NewCarbs,
		"newFat":      p.NewFat,
	}
	var missing, invalid []string
	for field, v := range fields {
		switch {
		case v == nil:
			missing = append(missing, field)
		case *v < 0, field == "newCalories" && *v == 0:
			invalid = append(invalid, field)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, coacherr.Invalid("Het voedingsvoorstel is onvolledig", missing...)
	}
	if len(invalid) > 0 {
		sort.Strings(invalid)
		return nil, coacherr.Invalid("Het voedingsvoorstel bevat ongeldige waarden", invalid...)
	}

	targets := models.NutritionTargets{
		DailyCalories:     *p.NewCalories,
		DailyProteinGrams: *p.NewProtein,
		DailyCarbsGrams:   *p.NewCarbs,
		DailyFatGrams:     *p.NewFat,
		Rationale:         rationale,
	}
	previous, err := a.currentTarget(ctx, cc.Client.ID)
	if err != nil {
		return nil, err
	}
	target, warnings, err := a.storeTargets(ctx, cc, targets, models.SourceAI)
	if err != nil {
		return nil, err
	}

	event := &models.CoachingEvent{
		ClientID:        cc.Client.ID,
		CoachID:         coachID,
		Kind:            models.EventNutritionAdjusted,
		Summary:         targetSummary("Voedingsdoelen aangepast", target),
		Details:         nutritionDetails(previous, target, warnings),
		GenerationLogID: logID,
	}
	if err := a.recordEvent(ctx, event); err != nil {
		return nil, err
	}
	return &models.AppliedRecommendation{
		ProposalType: models.ProposalNutritionAdjust,
		EventID:      event.ID,
		Nutrition:    target,
		Warnings:     nonNil(warnings),
	}, nil
}

func (a *Applier) addSupplement(ctx context.Context, clientID, coachID string, p models.SupplementAdd, logID string) (*models.AppliedRecommendation, error) {
	name := strings.TrimSpace(p.SupplementName)
	dosage := strings.TrimSpace(p.SupplementDosage)
	var missing []string
	if name == "" {
		missing = append(missing, "supplementName")
	}
	if dosage == "" {
		missing = append(missing, "supplementDosage")
	}
	if len(missing) > 0 {
		return nil, coacherr.Invalid("Het supplementvoorstel is onvolledig", missing...)
	}

	active, err := a.store.ListSupplements(ctx, clientID, true)
	if err != nil {
		return nil, coacherr.DataFetch(coacherr.MsgDataFetch, err)
	}
	if findByName(active, name) != nil {
		return nil, coacherr.Invalid(fmt.Sprintf("%s is al een actief supplement", name))
	}

	supplement := &models.ClientSupplement{
		ClientID:  clientID,
		Name:      name,
		Dosage:    dosage,
		Timing:    strings.TrimSpace(p.SupplementTiming),
		Source:    models.SourceAI,
		Active:    true,
		CreatedAt: a.now(),
	}
	if err := a.store.CreateSupplement(ctx, supplement); err != nil {
		return nil, fmt.Errorf("create supplement: %w", err)
	}

	event := &models.CoachingEvent{
		ClientID:        clientID,
		CoachID:         coachID,
		Kind:            models.EventSupplementAdded,
		Summary:         fmt.Sprintf("Supplement toegevoegd: %s (%s)", name, dosage),
		Details:         map[string]interface{}{"supplementId": supplement.ID, "name": name, "dosage": dosage, "timing": supplement.Timing},
		GenerationLogID: logID,
	}
	if err := a.recordEvent(ctx, event); err != nil {
		return nil, err
	}
	return &models.AppliedRecommendation{
		ProposalType: models.ProposalSupplementAdd,
		EventID:      event.ID,
		Supplement:   supplement,
		Warnings:     []string{},
	}, nil
}

func (a *Applier) removeSupplement(ctx context.Context, clientID, coachID string, p models.SupplementRemove, logID string) (*models.AppliedRecommendation, error) {
	name := strings.TrimSpace(p.SupplementName)
	if name == "" {
		return nil, coacherr.Invalid("Het supplementvoorstel is onvolledig", "supplementName")
	}

	active, err := a.store.ListSupplements(ctx, clientID, true)
	if err != nil {
		return nil, coacherr.DataFetch(coacherr.MsgDataFetch, err)
	}
	match := findByName(active, name)
	if match == nil {
		return nil, coacherr.Invalid(fmt.Sprintf("%s is geen actief supplement", name))
	}
	if err := a.store.DeactivateSupplement(ctx, clientID, match.ID); err != nil {
		return nil, fmt.Errorf("deactivate supplement: %w", err)
	}
	match.Active = false

	event := &models.CoachingEvent{
		ClientID:        clientID,
		CoachID:         coachID,
		Kind:            models.EventSupplementRemoved,
		Summary:         fmt.Sprintf("Supplement gestopt: %s", match.Name),
		Details:         map[string]interface{}{"supplementId": match.ID, "name": match.Name},
		GenerationLogID: logID,
	}
	if err := a.recordEvent(ctx, event); err != nil {
		return nil, err
	}
	return &models.AppliedRecommendation{
		ProposalType: models.ProposalSupplementRemove,
		EventID:      event.ID,
		Supplement:   match,
		Warnings:     []string{},
	}, nil
}

// ── Commit Steps ────────────────────────────────────────────

// SaveNutritionTargets stores coach-approved targets after domain
// correction.
func (a *Applier) SaveNutritionTargets(ctx context.Context, cc *models.ClientContext, coachID string, targets models.NutritionTargets, source models.Source) (*models.SavedNutritionTargets, error) {
	if targets.DailyCalories <= 0 {
		return nil, coacherr.Invalid("Calorieën moeten groter dan 0 zijn", "dailyCalories")
	}
	var negative []string
	if targets.DailyProteinGrams < 0 {
		negative = append(negative, "dailyProteinGrams")
	}
	if targets.DailyCarbsGrams < 0 {
		negative = append(negative, "dailyCarbsGrams")
	}
	if targets.DailyFatGrams < 0 {
		negative = append(negative, "dailyFatGrams")
	}
	if len(negative) > 0 {
		return nil, coacherr.Invalid("Macro's mogen niet negatief zijn", negative...)
	}
	if source == "" {
		source = models.SourceManual
	}

	unlock := a.locks.Lock(cc.Client.ID)
	defer unlock()

	previous, err := a.currentTarget(ctx, cc.Client.ID)
	if err != nil {
		return nil, err
	}
	target, warnings, err := a.storeTargets(ctx, cc, targets, source)
	if err != nil {
		return nil, err
	}
	event := &models.CoachingEvent{
		ClientID: cc.Client.ID,
		CoachID:  coachID,
		Kind:     models.EventNutritionSaved,
		Summary:  targetSummary("Voedingsdoelen opgeslagen", target),
		Details:  nutritionDetails(previous, target, warnings),
	}
	if err := a.recordEvent(ctx, event); err != nil {
		return nil, err
	}
	return &models.SavedNutritionTargets{Target: *target, Warnings: nonNil(warnings)}, nil
}

// SaveTrainingProgram stores program as the client's active program. Every
// exercise id must exist in lib; unresolved ids are listed in the error and
// nothing is written.
func (a *Applier) SaveTrainingProgram(ctx context.Context, cc *models.ClientContext, coachID string, program models.TrainingProgram, lib resolver.Library, generationLogID string) (*models.SavedTrainingProgram, error) {
	var missing []string
	if strings.TrimSpace(program.Name) == "" {
		missing = append(missing, "name")
	}
	if len(program.Blocks) == 0 {
		missing = append(missing, "blocks")
	}
	if len(missing) > 0 {
		return nil, coacherr.Invalid("Een programma heeft een naam en minstens één blok nodig", missing...)
	}
	if unresolved := resolver.Unresolved(&program, lib); len(unresolved) > 0 {
		return nil, coacherr.Invalid("Het programma bevat oefeningen die niet in de bibliotheek staan", unresolved...)
	}

	unlock := a.locks.Lock(cc.Client.ID)
	defer unlock()

	saved := &models.SavedTrainingProgram{
		ClientID:        cc.Client.ID,
		CoachID:         coachID,
		Program:         program,
		GenerationLogID: generationLogID,
		CreatedAt:       a.now(),
	}
	if err := a.store.SaveTrainingProgram(ctx, saved); err != nil {
		return nil, fmt.Errorf("save training program: %w", err)
	}

	event := &models.CoachingEvent{
		ClientID:        cc.Client.ID,
		CoachID:         coachID,
		Kind:            models.EventProgramSaved,
		Summary:         fmt.Sprintf("Trainingsprogramma opgeslagen: %s", program.Name),
		Details:         map[string]interface{}{"programId": saved.ID, "blocks": len(program.Blocks)},
		GenerationLogID: generationLogID,
	}
	if err := a.recordEvent(ctx, event); err != nil {
		return nil, err
	}
	return saved, nil
}

// ── Helpers ─────────────────────────────────────────────────

// storeTargets corrects and upserts targets. Callers hold the client lock.
func (a *Applier) storeTargets(ctx context.Context, cc *models.ClientContext, targets models.NutritionTargets, source models.Source) (*models.NutritionTarget, []string, error) {
	corrected, warnings := nutrition.Correct(targets, cc.CurrentWeightKg(), cc.GoalText())
	target := &models.NutritionTarget{
		ClientID:          cc.Client.ID,
		DailyCalories:     corrected.DailyCalories,
		DailyProteinGrams: corrected.DailyProteinGrams,
		DailyCarbsGrams:   corrected.DailyCarbsGrams,
		DailyFatGrams:     corrected.DailyFatGrams,
		Rationale:         corrected.Rationale,
		Source:            source,
		UpdatedAt:         a.now(),
	}
	if err := a.store.UpsertNutritionTarget(ctx, target); err != nil {
		return nil, nil, fmt.Errorf("upsert nutrition target: %w", err)
	}
	return target, warnings, nil
}

// currentTarget re-reads the stored target under the client lock; the
// context snapshot may be stale by then.
func (a *Applier) currentTarget(ctx context.Context, clientID string) (*models.NutritionTarget, error) {
	t, err := a.store.GetNutritionTarget(ctx, clientID)
	if err != nil {
		if store.IsNotFound(err) {
			return nil, nil
		}
		return nil, coacherr.DataFetch(coacherr.MsgDataFetch, err)
	}
	return t, nil
}

func (a *Applier) recordEvent(ctx context.Context, event *models.CoachingEvent) error {
	event.CreatedAt = a.now()
	if err := a.store.CreateCoachingEvent(ctx, event); err != nil {
		return fmt.Errorf("record coaching event: %w", err)
	}
	return nil
}

func targetSummary(prefix string, t *models.NutritionTarget) string {
	return fmt.Sprintf("%s: %d kcal (eiwit %d g, koolhydraten %d g, vet %d g)",
		prefix, t.DailyCalories, t.DailyProteinGrams, t.DailyCarbsGrams, t.DailyFatGrams)
}

func nutritionDetails(previous, current *models.NutritionTarget, warnings []string) map[string]interface{} {
	d := map[string]interface{}{
		"dailyCalories":     current.DailyCalories,
		"dailyProteinGrams": current.DailyProteinGrams,
		"dailyCarbsGrams":   current.DailyCarbsGrams,
		"dailyFatGrams":     current.DailyFatGrams,
		"source":            string(current.Source),
	}
	if previous != nil {
		d["previous"] = map[string]interface{}{
			"dailyCalories":     previous.DailyCalories,
			"dailyProteinGrams": previous.DailyProteinGrams,
			"dailyCarbsGrams":   previous.DailyCarbsGrams,
			"dailyFatGrams":     previous.DailyFatGrams,
		}
	}
	if len(warnings) > 0 {
		d["corrections"] = warnings
	}
	return d
}

func findByName(supplements []models.ClientSupplement, name string) *models.ClientSupplement {
	for i := range supplements {
		if strings.EqualFold(strings.TrimSpace(supplements[i].Name), name) {
			s := supplements[i]
			return &s
		}
	}
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
