package models

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// ── Actionable Recommendations ──────────────────────────────

// ProposalType discriminates the payload of an actionable recommendation.
type ProposalType string

const (
	ProposalNutritionAdjust  ProposalType = "nutrition_adjust"
	ProposalSupplementAdd    ProposalType = "supplement_add"
	ProposalSupplementRemove ProposalType = "supplement_remove"
)

// CanApplyProposal reports whether a proposal type may be applied
// automatically. The set is closed: a new type only becomes applicable
// when it is added here and handled by the recommendation applier.
func CanApplyProposal(t ProposalType) bool {
	switch t {
	case ProposalNutritionAdjust, ProposalSupplementAdd, ProposalSupplementRemove:
		return true
	default:
		return false
	}
}

// Proposal is the payload of an actionable recommendation. The concrete
// types below are the only implementations.
type Proposal interface {
	Type() ProposalType
	isProposal()
}

// NutritionAdjust proposes new daily macro targets. A nil field was absent
// from the proposal; zero is a valid value (no carbs on a keto plan).
type NutritionAdjust struct {
	NewCalories *int `json:"newCalories"`
	NewProtein  *int `json:"newProtein"`
	NewCarbs    *int `json:"newCarbs"`
	NewFat      *int `json:"newFat"`
}

// SupplementAdd proposes adding an active supplement.
type SupplementAdd struct {
	SupplementName   string `json:"supplementName"`
	SupplementDosage string `json:"supplementDosage"`
	SupplementTiming string `json:"supplementTiming"`
}

// SupplementRemove proposes deactivating a supplement by name.
type SupplementRemove struct {
	SupplementName string `json:"supplementName"`
}

// AdvisoryProposal carries any other proposal type verbatim. It is never
// applicable.
type AdvisoryProposal struct {
	Kind   ProposalType           `json:"-"`
	Fields map[string]interface{} `json:"-"`
}

func (NutritionAdjust) Type() ProposalType  { return ProposalNutritionAdjust }
func (SupplementAdd) Type() ProposalType    { return ProposalSupplementAdd }
func (SupplementRemove) Type() ProposalType { return ProposalSupplementRemove }
func (a AdvisoryProposal) Type() ProposalType {
	return a.Kind
}

func (NutritionAdjust) isProposal()  {}
func (SupplementAdd) isProposal()    {}
func (SupplementRemove) isProposal() {}
func (AdvisoryProposal) isProposal() {}

// MarshalJSON emits the raw fields of an advisory proposal.
func (a AdvisoryProposal) MarshalJSON() ([]byte, error) {
	if a.Fields == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(a.Fields)
}

// ProposalFromMap builds the concrete proposal for t from loosely typed
// fields. Missing or malformed fields are left at their zero value, or nil
// for the nutrition numbers; the applier decides whether that is acceptable.
func ProposalFromMap(t ProposalType, m map[string]interface{}) Proposal {
	switch t {
	case ProposalNutritionAdjust:
		return NutritionAdjust{
			NewCalories: OptionalIntField(m, "newCalories"),
			NewProtein:  OptionalIntField(m, "newProtein"),
			NewCarbs:    OptionalIntField(m, "newCarbs"),
			NewFat:      OptionalIntField(m, "newFat"),
		}
	case ProposalSupplementAdd:
		return SupplementAdd{
			SupplementName:   StringField(m, "supplementName"),
			SupplementDosage: StringField(m, "supplementDosage"),
			SupplementTiming: StringField(m, "supplementTiming"),
		}
	case ProposalSupplementRemove:
		return SupplementRemove{SupplementName: StringField(m, "supplementName")}
	default:
		if m == nil {
			m = map[string]interface{}{}
		}
		return AdvisoryProposal{Kind: t, Fields: m}
	}
}

// ActionableRecommendation is a review recommendation with a structured
// proposal. CanApply is always derived from ProposalType.
type ActionableRecommendation struct {
	Area         string       `json:"area"`
	Action       string       `json:"action"`
	Rationale    string       `json:"rationale"`
	ProposalType ProposalType `json:"proposalType"`
	Proposal     Proposal     `json:"proposal"`
	CanApply     bool         `json:"canApply"`
}

type actionableRecommendationJSON struct {
	Area         string                 `json:"area"`
	Action       string                 `json:"action"`
	Rationale    string                 `json:"rationale"`
	ProposalType ProposalType           `json:"proposalType"`
	Proposal     map[string]interface{} `json:"proposal"`
}

// UnmarshalJSON decodes the proposal according to proposalType and
// ignores any supplied canApply value.
func (r *ActionableRecommendation) UnmarshalJSON(data []byte) error {
	var raw actionableRecommendationJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	pt := ProposalType(strings.TrimSpace(string(raw.ProposalType)))
	*r = ActionableRecommendation{
		Area:         raw.Area,
		Action:       raw.Action,
		Rationale:    raw.Rationale,
		ProposalType: pt,
		Proposal:     ProposalFromMap(pt, raw.Proposal),
		CanApply:     CanApplyProposal(pt),
	}
	return nil
}

// ── Loose field helpers ─────────────────────────────────────
// LLM output and client payloads are not strict about number types.

// StringField returns m[key] as a trimmed string.
func StringField(m map[string]interface{}, key string) string {
	switch v := m[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}

// FloatField returns m[key] as a number. Numeric strings such as "180"
// or "180 g" are accepted.
func FloatField(m map[string]interface{}, key string) (float64, bool) {
	return NumberValue(m[key])
}

// IntField returns m[key] rounded to the nearest integer, or 0.
func IntField(m map[string]interface{}, key string) int {
	f, ok := FloatField(m, key)
	if !ok {
		return 0
	}
	return int(math.Round(f))
}

// OptionalIntField is IntField that tells an absent or non-numeric value
// (nil) apart from zero.
func OptionalIntField(m map[string]interface{}, key string) *int {
	f, ok := FloatField(m, key)
	if !ok {
		return nil
	}
	n := int(math.Round(f))
	return &n
}

// NumberValue coerces a decoded JSON value into a float64.
func NumberValue(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		s := strings.TrimSpace(n)
		end := 0
		for end < len(s) && (s[end] == '.' || s[end] == '-' || (s[end] >= '0' && s[end] <= '9')) {
			end++
		}
		if end == 0 {
			return 0, false
		}
		f, err := strconv.ParseFloat(s[:end], 64)
		return f, err == nil
	default:
		return 0, false
	}
}
