package nutrition

import (
	"testing"

	"github.com/coachkit/coachplane/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCorrect_WeightLossScenario(t *testing.T) {
	in := models.NutritionTargets{
		DailyCalories:     2200,
		DailyProteinGrams: 180,
		DailyCarbsGrams:   220,
		DailyFatGrams:     90,
	}

	got, warnings := Correct(in, 126, "afvallen")

	assert.Equal(t, 252, got.DailyProteinGrams)
	assert.Equal(t, 101, got.DailyFatGrams)
	assert.Equal(t, 220, got.DailyCarbsGrams)
	// 252×4 + 220×4 + 101×9
	assert.Equal(t, 2797, got.DailyCalories)

	require.Len(t, warnings, 3)
	assert.Contains(t, warnings[0], "2.0 g/kg")
	assert.Contains(t, warnings[0], "180")
	assert.Contains(t, warnings[0], "252")
	assert.Contains(t, warnings[1], "0.8 g/kg")
	assert.Contains(t, warnings[1], "101")
	assert.Contains(t, warnings[2], "2797")
}

func TestCorrect_Floors(t *testing.T) {
	tests := []struct {
		name        string
		weight      float64
		goal        string
		in          models.NutritionTargets
		wantProtein int
		wantFat     int
	}{
		{"maintenance uses 1.6", 80, "spiermassa opbouwen", models.NutritionTargets{DailyCalories: 2500, DailyProteinGrams: 100, DailyCarbsGrams: 300, DailyFatGrams: 50}, 128, 64},
		{"fat loss in English uses 2.0", 80, "Fat loss before summer", models.NutritionTargets{DailyCalories: 2000, DailyProteinGrams: 100, DailyCarbsGrams: 200, DailyFatGrams: 70}, 160, 70},
		{"above floors untouched", 70, "afvallen", models.NutritionTargets{DailyCalories: 2100, DailyProteinGrams: 150, DailyCarbsGrams: 200, DailyFatGrams: 70}, 150, 70},
		{"fractional weight rounds", 62.5, "", models.NutritionTargets{DailyCalories: 1800, DailyProteinGrams: 0, DailyCarbsGrams: 200, DailyFatGrams: 0}, 100, 50},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := Correct(tt.in, tt.weight, tt.goal)
			assert.Equal(t, tt.wantProtein, got.DailyProteinGrams)
			assert.Equal(t, tt.wantFat, got.DailyFatGrams)
		})
	}
}

func TestCorrect_CaloriesOnlyIncrease(t *testing.T) {
	// Protein raised, but the stated calories already exceed the macro sum.
	in := models.NutritionTargets{DailyCalories: 4000, DailyProteinGrams: 100, DailyCarbsGrams: 300, DailyFatGrams: 80}

	got, warnings := Correct(in, 80, "")

	assert.Equal(t, 128, got.DailyProteinGrams)
	assert.Equal(t, 4000, got.DailyCalories)
	assert.Len(t, warnings, 1)
}

func TestCorrect_NoChangeNoCalorieRecompute(t *testing.T) {
	// Calories below the macro sum but no macro raised: left alone.
	in := models.NutritionTargets{DailyCalories: 1000, DailyProteinGrams: 200, DailyCarbsGrams: 200, DailyFatGrams: 80}

	got, warnings := Correct(in, 80, "")

	assert.Equal(t, in, got)
	assert.Empty(t, warnings)
}

func TestCorrect_RaisedCaloriesCoverMacros(t *testing.T) {
	for _, w := range []float64{50, 73.4, 95, 126, 150} {
		in := models.NutritionTargets{DailyCalories: 1200, DailyProteinGrams: 60, DailyCarbsGrams: 150, DailyFatGrams: 30}
		got, _ := Correct(in, w, "lose weight")

		minP, minF := Floors(w, true)
		assert.GreaterOrEqual(t, got.DailyProteinGrams, minP)
		assert.GreaterOrEqual(t, got.DailyFatGrams, minF)
		assert.GreaterOrEqual(t, got.DailyCalories, Calories(got.DailyProteinGrams, got.DailyCarbsGrams, got.DailyFatGrams))
	}
}

func TestCorrect_UnknownWeight(t *testing.T) {
	in := models.NutritionTargets{DailyCalories: 1500, DailyProteinGrams: 50, DailyCarbsGrams: 150, DailyFatGrams: 20}

	got, warnings := Correct(in, 0, "afvallen")

	assert.Equal(t, in, got)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "onbekend")
}

func TestIsWeightLossGoal(t *testing.T) {
	tests := []struct {
		goal string
		want bool
	}{
		{"afvallen", true},
		{"Ik wil 10 kg afvallen", true},
		{"vetverlies en kracht", true},
		{"Weight loss", true},
		{"cut phase", true},
		{"spiermassa opbouwen", false},
		{"spiermassa opbouwen, niet afvallen", false},
		{"Ik wil niet afvallen", false},
		{"I don't want to lose strength, build muscle", false},
		{"lose strength", false},
		{"lose weight before summer", true},
		{"losing 10 kg", true},
		{"kracht behouden, wel afvallen", true},
		{"niet meer dan 5 kg afvallen", true},
		{"close the gap", false},
		{"execute a marathon", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsWeightLossGoal(tt.goal); got != tt.want {
			t.Errorf("IsWeightLossGoal(%q) = %v, want %v", tt.goal, got, tt.want)
		}
	}
}
