// Package nutrition enforces deterministic safety floors on nutrition
// targets, whatever produced them.
//
// The floors are body-weight based:
//
//	protein ≥ round(W × 1.6) g   (round(W × 2.0) g under a weight-loss goal)
//	fat     ≥ round(W × 0.8) g
//
// When a macro is raised, calories are recomputed from the macros and only
// ever increased.
package nutrition

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/coachkit/coachplane/pkg/models"
)

const (
	ProteinPerKg        = 1.6
	ProteinPerKgFatLoss = 2.0
	FatPerKg            = 0.8
	KcalPerGramProtein  = 4
	KcalPerGramCarbs    = 4
	KcalPerGramFat      = 9
)

var (
	weightLossGoal = regexp.MustCompile(`(?i)\b(afvallen|afslanken|gewichtsverlies|vetverlies|weight\s*loss|fat\s*loss|los(?:e|ing)\s+(?:weight|fat|body\s*fat|\d+\s*(?:kg|kilo|lbs?|pounds))|cut|cutting)\b`)
	negation       = regexp.MustCompile(`(?i)\b(niet|geen|nooit|zonder|not|no|never|without|don[’']?t|doesn[’']?t)\b`)
)

// negationWindow is how many words before a goal keyword are checked for
// a negation.
const negationWindow = 4

// IsWeightLossGoal reports whether a free-text goal asks for weight loss.
// A keyword negated within its own clause ("spiermassa opbouwen, niet
// afvallen") does not count.
func IsWeightLossGoal(goal string) bool {
	for _, loc := range weightLossGoal.FindAllStringIndex(goal, -1) {
		if !negated(goal[:loc[0]]) {
			return true
		}
	}
	return false
}

func negated(before string) bool {
	if i := strings.LastIndexAny(before, ",.;:!?\n"); i >= 0 {
		before = before[i+1:]
	}
	words := strings.Fields(before)
	if len(words) > negationWindow {
		words = words[len(words)-negationWindow:]
	}
	return negation.MatchString(strings.Join(words, " "))
}

// Floors returns the minimum protein and fat grams for a body weight.
func Floors(weightKg float64, weightLoss bool) (minProtein, minFat int) {
	perKg := ProteinPerKg
	if weightLoss {
		perKg = ProteinPerKgFatLoss
	}
	return int(math.Round(weightKg * perKg)), int(math.Round(weightKg * FatPerKg))
}

// Calories returns the energy of the given macros in kcal.
func Calories(protein, carbs, fat int) int {
	return protein*KcalPerGramProtein + carbs*KcalPerGramCarbs + fat*KcalPerGramFat
}

// Correct applies the floors to t and returns the corrected targets plus one
// Dutch warning per change. A weight of zero or less means unknown: no floor
// is applied and a single warning says so.
func Correct(t models.NutritionTargets, weightKg float64, goal string) (models.NutritionTargets, []string) {
	if weightKg <= 0 {
		return t, []string{"Lichaamsgewicht onbekend: minimale eiwit- en vetinname niet gecontroleerd"}
	}

	var warnings []string
	weightLoss := IsWeightLossGoal(goal)
	minProtein, minFat := Floors(weightKg, weightLoss)
	raised := false

	if t.DailyProteinGrams < minProtein {
		perKg := ProteinPerKg
		reason := ""
		if weightLoss {
			perKg = ProteinPerKgFatLoss
			reason = " bij een afvaldoel"
		}
		warnings = append(warnings, fmt.Sprintf(
			"Eiwit verhoogd van %d g naar %d g (minimaal %.1f g/kg × %s kg%s)",
			t.DailyProteinGrams, minProtein, perKg, formatKg(weightKg), reason))
		t.DailyProteinGrams = minProtein
		raised = true
	}

	if t.DailyFatGrams < minFat {
		warnings = append(warnings, fmt.Sprintf(
			"Vet verhoogd van %d g naar %d g (minimaal %.1f g/kg × %s kg)",
			t.DailyFatGrams, minFat, FatPerKg, formatKg(weightKg)))
		t.DailyFatGrams = minFat
		raised = true
	}

	if raised {
		recomputed := Calories(t.DailyProteinGrams, t.DailyCarbsGrams, t.DailyFatGrams)
		if recomputed > t.DailyCalories {
			warnings = append(warnings, fmt.Sprintf(
				"Calorieën verhoogd van %d naar %d kcal (eiwit×4 + koolhydraten×4 + vet×9)",
				t.DailyCalories, recomputed))
			t.DailyCalories = recomputed
		}
	}

	return t, warnings
}

func formatKg(w float64) string {
	if w == math.Trunc(w) {
		return fmt.Sprintf("%.0f", w)
	}
	return fmt.Sprintf("%.1f", w)
}
