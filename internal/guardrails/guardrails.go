// Package guardrails screens client-authored free text before it is
// embedded in a prompt.
//
// Two checks run on every free-text field of the client context:
//   - pii: email addresses, phone numbers, IBANs and card numbers are
//     replaced by a placeholder; the model never needs them
//   - prompt_injection: heuristic instruction-override phrases are cut out
//     and reported as a warning for the coach
package guardrails

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/coachkit/coachplane/pkg/models"
)

// ── PII Redaction ───────────────────────────────────────────

var piiPatterns = []struct {
	kind        string
	re          *regexp.Regexp
	placeholder string
}{
	{"email", regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`), "[e-mailadres]"},
	{"iban", regexp.MustCompile(`\b[A-Z]{2}\d{2}\s?[A-Z]{4}\s?(?:\d\s?){9}\d\b`), "[rekeningnummer]"},
	{"credit_card", regexp.MustCompile(`\b(?:\d{4}[-\s]?){3}\d{4}\b`), "[kaartnummer]"},
	{"phone", regexp.MustCompile(`(?:\+31|\b0031|\b0)[\s-]?(?:\d[\s-]?){8}\d\b`), "[telefoonnummer]"},
}

// RedactPII replaces personal identifiers in text and returns the kinds
// that were found.
func RedactPII(text string) (string, []string) {
	var kinds []string
	for _, p := range piiPatterns {
		if p.re.MatchString(text) {
			text = p.re.ReplaceAllString(text, p.placeholder)
			kinds = append(kinds, p.kind)
		}
	}
	return text, kinds
}

// ── Prompt Injection Detection ──────────────────────────────

var injectionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)ignore\s+(all\s+)?(previous|prior|above)\s+(instructions?|prompts?|rules?|directions?)`),
	regexp.MustCompile(`(?i)disregard\s+(all\s+)?(previous|prior|above)\s+(instructions?|prompts?|rules?)`),
	regexp.MustCompile(`(?i)forget\s+(all\s+)?(previous|prior|above|your)\s+(instructions?|prompts?|rules?|context)`),
	regexp.MustCompile(`(?i)you\s+are\s+now\s+(a|an|my)\s+`),
	regexp.MustCompile(`(?i)new\s+instructions?:\s*`),
	regexp.MustCompile(`(?i)system\s*:\s*you\s+are`),
	regexp.MustCompile(`(?i)\bjailbreak\b`),
	regexp.MustCompile(`(?i)negeer\s+(alle\s+)?(vorige|eerdere|bovenstaande)\s+(instructies|opdrachten|regels)`),
	regexp.MustCompile(`(?i)vergeet\s+(alle\s+|je\s+)?(vorige\s+|eerdere\s+)?(instructies|regels|opdrachten)`),
	regexp.MustCompile(`(?i)je\s+bent\s+nu\s+(een|mijn)\s+`),
	regexp.MustCompile(`(?i)nieuwe\s+instructies?:\s*`),
	regexp.MustCompile(`(?i)(reveal|toon|herhaal)\s+(your|the|je|de)\s+(system\s*)?(prompt|instructions?|instructies|systeemprompt)`),
}

const injectionPlaceholder = "[verwijderd]"

// StripInjection removes instruction-override phrases and reports whether
// any were found.
func StripInjection(text string) (string, bool) {
	found := false
	for _, re := range injectionPatterns {
		if re.MatchString(text) {
			text = re.ReplaceAllString(text, injectionPlaceholder)
			found = true
		}
	}
	return text, found
}

// ── Client Context Screening ────────────────────────────────

// screener accumulates findings per field while rewriting text.
type screener struct {
	pii       map[string]bool
	injection []string
}

func (s *screener) text(field, value string) string {
	if value == "" {
		return value
	}
	value, kinds := RedactPII(value)
	for _, k := range kinds {
		s.pii[k] = true
	}
	value, injected := StripInjection(value)
	if injected {
		s.injection = append(s.injection, field)
	}
	return value
}

func (s *screener) list(field string, values []string) []string {
	if len(values) == 0 {
		return values
	}
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = s.text(field, v)
	}
	return out
}

// Screen returns a copy of cc with every client-authored free-text field
// screened, plus warnings for the coach. cc itself is not modified.
func Screen(cc *models.ClientContext) (*models.ClientContext, []string) {
	s := &screener{pii: map[string]bool{}}
	out := *cc

	out.Client.Goal = s.text("doel", cc.Client.Goal)
	out.Client.Notes = s.text("notities", cc.Client.Notes)

	if cc.Intake != nil {
		in := *cc.Intake
		in.Goals = s.text("intake doelen", in.Goals)
		in.TrainingHistory = s.text("trainingsgeschiedenis", in.TrainingHistory)
		in.Occupation = s.text("beroep", in.Occupation)
		in.Equipment = s.list("materiaal", in.Equipment)
		in.Injuries = s.list("blessures", in.Injuries)
		in.MedicalConditions = s.list("aandoeningen", in.MedicalConditions)
		in.Medications = s.list("medicatie", in.Medications)
		in.DietaryPreferences = s.list("voedingsvoorkeuren", in.DietaryPreferences)
		in.Allergies = s.list("allergieën", in.Allergies)
		if len(in.Extra) > 0 {
			extra := make(map[string]string, len(in.Extra))
			for k, v := range in.Extra {
				extra[k] = s.text("intake "+k, v)
			}
			in.Extra = extra
		}
		out.Intake = &in
	}

	if len(cc.CheckIns) > 0 {
		out.CheckIns = make([]models.CheckIn, len(cc.CheckIns))
		for i, ci := range cc.CheckIns {
			ci.Notes = s.text("check-in "+ci.Date.Format("2006-01-02"), ci.Notes)
			out.CheckIns[i] = ci
		}
	}
	if len(cc.WorkoutLogs) > 0 {
		out.WorkoutLogs = make([]models.WorkoutLog, len(cc.WorkoutLogs))
		for i, wl := range cc.WorkoutLogs {
			wl.Notes = s.text("trainingslog "+wl.Date.Format("2006-01-02"), wl.Notes)
			out.WorkoutLogs[i] = wl
		}
	}

	var warnings []string
	if len(s.injection) > 0 {
		warnings = append(warnings, fmt.Sprintf("Mogelijke promptinjectie verwijderd uit: %s", strings.Join(dedupe(s.injection), ", ")))
	}
	if len(s.pii) > 0 {
		kinds := make([]string, 0, len(s.pii))
		for k := range s.pii {
			kinds = append(kinds, k)
		}
		sort.Strings(kinds)
		warnings = append(warnings, fmt.Sprintf("Persoonsgegevens afgeschermd voor de AI (%s)", strings.Join(kinds, ", ")))
	}
	return &out, warnings
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := in[:0:0]
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
