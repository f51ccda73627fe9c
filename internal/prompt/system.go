package prompt

import (
	"fmt"

	"github.com/coachkit/coachplane/internal/nutrition"
	"github.com/coachkit/coachplane/internal/output"
	"github.com/coachkit/coachplane/pkg/models"
)

// baseRules apply to every generation type.
const baseRules = `Je bent een ervaren personal coach en sportdiëtist die werkt voor een online coachingplatform.
Je schrijft voor de coach, niet rechtstreeks voor de client.

Regels:
- Antwoord uitsluitend met één geldig JSON-object. Geen markdown, geen uitleg buiten het JSON-object.
- Alle tekstvelden schrijf je in het Nederlands.
- Baseer je uitsluitend op de aangeleverde clientgegevens. Verzin geen metingen, blessures of voorgeschiedenis.
- Houd rekening met alles onder "LET OP". Medicatie, aandoeningen, blessures en allergieën gaan voor op het doel van de client.
- Als informatie ontbreekt, benoem dat in de tekst in plaats van het in te vullen.`

var nutritionRules = fmt.Sprintf(`Voedingsregels:
- Eiwit minimaal %.1f g per kg lichaamsgewicht, minimaal %.1f g per kg bij een afvaldoel.
- Vet minimaal %.1f g per kg lichaamsgewicht.
- Calorieën moeten passen bij de macro's: eiwit %d kcal/g, koolhydraten %d kcal/g, vet %d kcal/g.`,
	nutrition.ProteinPerKg, nutrition.ProteinPerKgFatLoss, nutrition.FatPerKg,
	nutrition.KcalPerGramProtein, nutrition.KcalPerGramCarbs, nutrition.KcalPerGramFat)

const trainingShape = `Gevraagde JSON-structuur:
{
  "name": "naam van het programma",
  "description": "korte omschrijving",
  "blocks": [
    {
      "name": "naam van het blok",
      "durationWeeks": 4,
      "days": [
        {
          "name": "Dag A",
          "isRestDay": false,
          "dayOfWeek": 1,
          "exercises": [
            {
              "exerciseId": "id uit de oefeningenbibliotheek",
              "exerciseName": "naam uit de oefeningenbibliotheek",
              "section": "warm_up | workout | cool_down",
              "sets": 3,
              "reps": "8-10",
              "restSeconds": 90,
              "notes": "",
              "prescribedRpe": 7.5,
              "prescribedRir": 2,
              "tempo": "3-1-1-0"
            }
          ]
        }
      ]
    }
  ],
  "periodizationRationale": "",
  "progressionStrategy": "",
  "coachNotes": ""
}

Trainingsregels:
- Gebruik alleen oefeningen uit de oefeningenbibliotheek. Neem het id exact over.
- Als een geschikte oefening ontbreekt, kies de dichtstbijzijnde uit de bibliotheek en licht dat toe in coachNotes.
- section is altijd warm_up, workout of cool_down.
- Een rustdag heeft isRestDay true en geen oefeningen.
- prescribedRpe (1-10) en prescribedRir (0-5) zijn optioneel.`

const nutritionShape = `Gevraagde JSON-structuur:
{
  "targets": {
    "dailyCalories": 2400,
    "dailyProteinGrams": 180,
    "dailyCarbsGrams": 250,
    "dailyFatGrams": 75,
    "rationale": "onderbouwing van de doelen"
  },
  "generalAdvice": "",
  "timingRecommendations": "",
  "supplementAdvice": "",
  "warnings": ["aandachtspunten voor de coach"]
}`

var weeklyReviewShape = fmt.Sprintf(`Gevraagde JSON-structuur:
{
  "summary": "samenvatting van de afgelopen week",
  "complianceAnalysis": {"training": "", "nutrition": "", "checkIns": ""},
  "progressAnalysis": "",
  "flaggedConcerns": [{"severity": "info | warning | critical", "area": "", "description": ""}],
  "recommendations": [{"area": "", "action": "", "rationale": ""}],
  "actionableRecommendations": [
    {
      "area": "",
      "action": "",
      "rationale": "",
      "proposalType": "nutrition_adjust | supplement_add | supplement_remove | training_change | other",
      "proposal": {}
    }
  ]
}

Reviewregels:
- Maximaal %d recommendations en maximaal %d actionableRecommendations.
- proposal bij nutrition_adjust: {"newCalories": 0, "newProtein": 0, "newCarbs": 0, "newFat": 0}, alle vier verplicht.
- proposal bij supplement_add: {"supplementName": "", "supplementDosage": "", "supplementTiming": ""}.
- proposal bij supplement_remove: {"supplementName": ""} met de naam van een actief supplement.
- Andere proposalTypes zijn toegestaan maar worden alleen als advies getoond.`,
	output.MaxRecommendations, output.MaxActionableRecommendations)

var supplementShape = fmt.Sprintf(`Gevraagde JSON-structuur:
{
  "recommendations": [
    {
      "name": "",
      "dosage": "",
      "timing": "",
      "frequency": "",
      "rationale": "",
      "evidenceLevel": "strong | moderate | limited",
      "interactions": "mogelijke interacties met medicatie"
    }
  ],
  "medicalDisclaimer": "",
  "generalNotes": ""
}

Supplementregels:
- Maximaal %d aanbevelingen. Een lege lijst is toegestaan.
- Beoordeel elk supplement op interacties met de genoemde medicatie en aandoeningen.
- medicalDisclaimer is altijd ingevuld.`, output.MaxSupplementRecommendations)

var summaryShape = fmt.Sprintf(`Gevraagde JSON-structuur:
{
  "overallAssessment": "",
  "trainingStatus": {"currentProgram": "", "adherence": "", "keyInsight": ""},
  "nutritionStatus": {"currentTargets": "", "adherence": "", "keyInsight": ""},
  "supplementStatus": "",
  "progressHighlights": [""],
  "priorityActions": [{"area": "", "action": "", "urgency": "high | medium | low"}]
}

Regels:
- Maximaal %d progressHighlights en maximaal %d priorityActions.`,
	output.MaxProgressHighlights, output.MaxPriorityActions)

var intakeShape = fmt.Sprintf(`Gevraagde JSON-structuur:
{
  "summary": "",
  "primaryGoals": [""],
  "riskFactors": [""],
  "trainingConsiderations": "",
  "nutritionConsiderations": "",
  "recommendedFocus": ""
}

Regels:
- Maximaal %d primaryGoals en maximaal %d riskFactors.`,
	output.MaxPrimaryGoals, output.MaxRiskFactors)

var tasks = map[models.GenerationType]string{
	models.GenerationTraining:       "Taak: stel een geperiodiseerd trainingsprogramma op voor deze client.",
	models.GenerationNutrition:      "Taak: bepaal dagelijkse voedingsdoelen en voedingsadvies voor deze client.",
	models.GenerationWeeklyReview:   "Taak: beoordeel de afgelopen week van deze client op basis van check-ins en trainingslogs.",
	models.GenerationSupplements:    "Taak: analyseer welke supplementen zinvol zijn voor deze client.",
	models.GenerationClientSummary:  "Taak: schrijf een overzicht van de huidige status van deze client voor de coach.",
	models.GenerationIntakeAnalysis: "Taak: analyseer het intakeformulier van deze nieuwe client.",
}

var shapes = map[models.GenerationType]string{
	models.GenerationTraining:       trainingShape,
	models.GenerationNutrition:      nutritionShape + "\n\n" + nutritionRules,
	models.GenerationWeeklyReview:   weeklyReviewShape + "\n\n" + nutritionRules,
	models.GenerationSupplements:    supplementShape,
	models.GenerationClientSummary:  summaryShape,
	models.GenerationIntakeAnalysis: intakeShape,
}
