// Package prompt assembles the instruction and user message for each
// generation type. Everything here is a pure function of its inputs.
package prompt

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/coachkit/coachplane/internal/nutrition"
	"github.com/coachkit/coachplane/pkg/models"
)

// DefaultTemperature biases the model toward deterministic structured output.
const DefaultTemperature = 0.3

// MaxTokens is the output budget per generation type.
var MaxTokens = map[models.GenerationType]int{
	models.GenerationTraining:       6000,
	models.GenerationNutrition:      3000,
	models.GenerationWeeklyReview:   3000,
	models.GenerationSupplements:    2500,
	models.GenerationClientSummary:  2500,
	models.GenerationIntakeAnalysis: 2500,
}

// Prompt is an assembled model request.
type Prompt struct {
	System    string
	User      string
	MaxTokens int
}

// Options carries per-call inputs beyond the client context.
type Options struct {
	Training models.TrainingOptions
	// Now dates the rendered context; zero means time.Now.
	Now time.Time
}

// Build assembles the prompt for kind. library is only rendered for
// training programs; evidence is omitted when empty.
func Build(kind models.GenerationType, cc *models.ClientContext, evidence string, library []models.ExerciseLibraryEntry, opts Options) (Prompt, error) {
	task, ok := tasks[kind]
	if !ok {
		return Prompt{}, fmt.Errorf("unknown generation type %q", kind)
	}
	if cc == nil {
		return Prompt{}, fmt.Errorf("client context is required")
	}
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}

	system := strings.Join([]string{baseRules, task, shapes[kind]}, "\n\n")

	var b strings.Builder
	if cautions := Cautions(cc); len(cautions) > 0 {
		b.WriteString("LET OP:\n")
		for _, c := range cautions {
			b.WriteString("- ")
			b.WriteString(c)
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	renderClient(&b, cc, now)

	if kind == models.GenerationTraining {
		renderTrainingOptions(&b, opts.Training)
		renderLibrary(&b, library)
	}

	if evidence = strings.TrimSpace(evidence); evidence != "" {
		b.WriteString("## Kennisbank\n")
		b.WriteString("Gebruik deze richtlijnen waar ze van toepassing zijn:\n")
		b.WriteString(evidence)
		b.WriteString("\n\n")
	}

	b.WriteString(closing(kind))

	return Prompt{System: system, User: b.String(), MaxTokens: MaxTokens[kind]}, nil
}

// Cautions lists the safety-relevant facts the model must respect. The
// domain corrector only fixes numbers, so qualitative risks are stated
// explicitly in the prompt.
func Cautions(cc *models.ClientContext) []string {
	var out []string
	if in := cc.Intake; in != nil {
		if len(in.Medications) > 0 {
			out = append(out, "Medicatie: "+strings.Join(in.Medications, ", ")+". Controleer interacties met voeding en supplementen.")
		}
		if len(in.MedicalConditions) > 0 {
			out = append(out, "Medische aandoeningen: "+strings.Join(in.MedicalConditions, ", ")+".")
		}
		if len(in.Injuries) > 0 {
			out = append(out, "Blessures: "+strings.Join(in.Injuries, ", ")+". Vermijd belasting die klachten kan verergeren.")
		}
		if len(in.Allergies) > 0 {
			out = append(out, "Allergieën: "+strings.Join(in.Allergies, ", ")+".")
		}
	}
	if w := cc.CurrentWeightKg(); w > 0 && nutrition.IsWeightLossGoal(cc.GoalText()) {
		minProtein, _ := nutrition.Floors(w, true)
		out = append(out, fmt.Sprintf("Afvaldoel: eiwit minimaal %d g per dag.", minProtein))
	}
	return out
}

// RetrievalQuery is the knowledge-base query for a generation.
func RetrievalQuery(kind models.GenerationType, cc *models.ClientContext) string {
	parts := []string{cc.GoalText()}
	switch kind {
	case models.GenerationTraining:
		parts = append(parts, "training programma periodisering", cc.Client.ExperienceLevel)
	case models.GenerationNutrition:
		parts = append(parts, "voeding eiwit calorieën macro's")
	case models.GenerationWeeklyReview:
		parts = append(parts, "voortgang herstel slaap")
	case models.GenerationSupplements:
		parts = append(parts, "supplementen bewijs dosering")
		if cc.Intake != nil {
			parts = append(parts, cc.Intake.Medications...)
		}
	case models.GenerationClientSummary:
		parts = append(parts, "voortgang")
	case models.GenerationIntakeAnalysis:
		parts = append(parts, "intake risicofactoren")
	}
	return strings.Join(nonEmpty(parts), " ")
}

func closing(kind models.GenerationType) string {
	switch kind {
	case models.GenerationTraining:
		return "Stel nu het trainingsprogramma op als JSON-object."
	case models.GenerationNutrition:
		return "Bepaal nu de voedingsdoelen als JSON-object."
	case models.GenerationWeeklyReview:
		return "Schrijf nu de weekreview als JSON-object."
	case models.GenerationSupplements:
		return "Geef nu de supplementanalyse als JSON-object."
	case models.GenerationClientSummary:
		return "Schrijf nu het clientoverzicht als JSON-object."
	default:
		return "Geef nu de intake-analyse als JSON-object."
	}
}

// ── Rendering ───────────────────────────────────────────────

func renderClient(b *strings.Builder, cc *models.ClientContext, now time.Time) {
	c := cc.Client
	b.WriteString("## Client\n")
	line(b, "Naam", c.Name)
	if age := c.Age(now); age > 0 {
		line(b, "Leeftijd", fmt.Sprintf("%d jaar", age))
	}
	line(b, "Geslacht", c.Gender)
	if c.HeightCm > 0 {
		line(b, "Lengte", fmt.Sprintf("%.0f cm", c.HeightCm))
	}
	if w := cc.CurrentWeightKg(); w > 0 {
		line(b, "Gewicht", fmt.Sprintf("%.1f kg", w))
	} else {
		line(b, "Gewicht", "onbekend")
	}
	line(b, "Doel", c.Goal)
	line(b, "Activiteitsniveau", c.ActivityLevel)
	line(b, "Ervaring", c.ExperienceLevel)
	line(b, "Notities coach", c.Notes)
	b.WriteString("\n")

	if in := cc.Intake; in != nil {
		b.WriteString("## Intake\n")
		line(b, "Doelen", in.Goals)
		if in.TrainingDaysPerWeek > 0 {
			line(b, "Trainingsdagen per week", fmt.Sprintf("%d", in.TrainingDaysPerWeek))
		}
		if in.SessionMinutes > 0 {
			line(b, "Sessieduur", fmt.Sprintf("%d minuten", in.SessionMinutes))
		}
		line(b, "Materiaal", strings.Join(in.Equipment, ", "))
		line(b, "Trainingsgeschiedenis", in.TrainingHistory)
		line(b, "Voedingsvoorkeuren", strings.Join(in.DietaryPreferences, ", "))
		if in.SleepHours > 0 {
			line(b, "Slaap", fmt.Sprintf("%.1f uur", in.SleepHours))
		}
		if in.StressLevel > 0 {
			line(b, "Stress", fmt.Sprintf("%d/10", in.StressLevel))
		}
		line(b, "Beroep", in.Occupation)
		keys := make([]string, 0, len(in.Extra))
		for k := range in.Extra {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			line(b, k, in.Extra[k])
		}
		b.WriteString("\n")
	}

	if len(cc.CheckIns) > 0 {
		b.WriteString("## Recente check-ins (nieuwste eerst)\n")
		for _, ci := range cc.CheckIns {
			fields := []string{ci.Date.Format("2006-01-02")}
			if ci.WeightKg != nil {
				fields = append(fields, fmt.Sprintf("gewicht %.1f kg", *ci.WeightKg))
			}
			fields = appendScore(fields, "energie", ci.Energy)
			fields = appendScore(fields, "slaap", ci.SleepQuality)
			fields = appendScore(fields, "stress", ci.Stress)
			fields = appendScore(fields, "training", ci.TrainingAdherence)
			fields = appendScore(fields, "voeding", ci.NutritionAdherence)
			if ci.Notes != "" {
				fields = append(fields, fmt.Sprintf("notitie: %q", ci.Notes))
			}
			b.WriteString("- " + strings.Join(fields, ", ") + "\n")
		}
		b.WriteString("\n")
	}

	if len(cc.WorkoutLogs) > 0 {
		done := 0
		for _, wl := range cc.WorkoutLogs {
			if wl.Completed {
				done++
			}
		}
		fmt.Fprintf(b, "## Trainingslogs (%d van %d voltooid)\n", done, len(cc.WorkoutLogs))
		for _, wl := range cc.WorkoutLogs {
			status := "overgeslagen"
			if wl.Completed {
				status = "voltooid"
			}
			fields := []string{wl.Date.Format("2006-01-02"), strings.TrimSpace(wl.ProgramName + " " + wl.DayName), status}
			if wl.DurationMinutes > 0 {
				fields = append(fields, fmt.Sprintf("%d min", wl.DurationMinutes))
			}
			if wl.AverageRPE != nil {
				fields = append(fields, fmt.Sprintf("RPE %.1f", *wl.AverageRPE))
			}
			if wl.Notes != "" {
				fields = append(fields, fmt.Sprintf("notitie: %q", wl.Notes))
			}
			b.WriteString("- " + strings.Join(nonEmpty(fields), ", ") + "\n")
		}
		b.WriteString("\n")
	}

	if t := cc.NutritionTarget; t != nil {
		b.WriteString("## Huidige voedingsdoelen\n")
		fmt.Fprintf(b, "%d kcal, eiwit %d g, koolhydraten %d g, vet %d g (bron: %s)\n\n",
			t.DailyCalories, t.DailyProteinGrams, t.DailyCarbsGrams, t.DailyFatGrams, t.Source)
	}

	if len(cc.Supplements) > 0 {
		b.WriteString("## Actieve supplementen\n")
		for _, s := range cc.Supplements {
			b.WriteString("- " + strings.Join(nonEmpty([]string{s.Name, s.Dosage, s.Timing}), ", ") + "\n")
		}
		b.WriteString("\n")
	}

	if p := cc.ActiveProgram; p != nil {
		b.WriteString("## Huidig trainingsprogramma\n")
		fmt.Fprintf(b, "%s (%d blokken, sinds %s)\n\n", p.Program.Name, len(p.Program.Blocks), p.CreatedAt.Format("2006-01-02"))
	}

	if len(cc.Events) > 0 {
		b.WriteString("## Coachinggeschiedenis\n")
		for _, e := range cc.Events {
			fmt.Fprintf(b, "- %s %s: %s\n", e.CreatedAt.Format("2006-01-02"), e.Kind, e.Summary)
		}
		b.WriteString("\n")
	}
}

func renderTrainingOptions(b *strings.Builder, o models.TrainingOptions) {
	if o == (models.TrainingOptions{}) {
		return
	}
	b.WriteString("## Wensen van de coach\n")
	if o.DurationWeeks > 0 {
		line(b, "Duur", fmt.Sprintf("%d weken", o.DurationWeeks))
	}
	if o.DaysPerWeek > 0 {
		line(b, "Trainingsdagen per week", fmt.Sprintf("%d", o.DaysPerWeek))
	}
	line(b, "Focus", o.Focus)
	line(b, "Opmerkingen", o.Notes)
	b.WriteString("\n")
}

func renderLibrary(b *strings.Builder, library []models.ExerciseLibraryEntry) {
	b.WriteString("## Oefeningenbibliotheek (id | naam | categorie)\n")
	if len(library) == 0 {
		b.WriteString("(leeg: gebruik beschrijvende ids en meld dit in coachNotes)\n\n")
		return
	}
	for _, e := range library {
		fmt.Fprintf(b, "%s | %s | %s\n", e.ID, e.Name, e.Category)
	}
	b.WriteString("\n")
}

func line(b *strings.Builder, label, value string) {
	if value = strings.TrimSpace(value); value == "" {
		return
	}
	b.WriteString(label)
	b.WriteString(": ")
	b.WriteString(value)
	b.WriteString("\n")
}

func appendScore(fields []string, label string, v int) []string {
	if v <= 0 {
		return fields
	}
	return append(fields, fmt.Sprintf("%s %d/10", label, v))
}

func nonEmpty(in []string) []string {
	out := in[:0:0]
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
