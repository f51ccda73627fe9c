package output

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/coachkit/coachplane/pkg/models"
)

// text returns m[key] as a string. Models regularly return a list or an
// object where prose was asked for: lists are joined by newlines and objects
// are rendered as "key: value" pairs.
func text(m map[string]interface{}, key string) string {
	return stringify(m[key])
}

func stringify(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		if t == math.Trunc(t) {
			return fmt.Sprintf("%.0f", t)
		}
		return fmt.Sprintf("%g", t)
	case bool:
		if t {
			return "true"
		}
		return "false"
	case []interface{}:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			if s := stringify(item); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, "\n")
	case map[string]interface{}:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, k+": "+stringify(t[k]))
		}
		return strings.Join(parts, ", ")
	default:
		b, _ := json.Marshal(t)
		return string(b)
	}
}

// textList returns m[key] as a list of non-empty strings. A single string
// becomes a one-item list.
func textList(m map[string]interface{}, key string) []string {
	switch v := m[key].(type) {
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s := stringify(item); s != "" {
				out = append(out, s)
			}
		}
		return out
	case string:
		if s := strings.TrimSpace(v); s != "" {
			return []string{s}
		}
	}
	return []string{}
}

func object(m map[string]interface{}, key string) map[string]interface{} {
	if v, ok := m[key].(map[string]interface{}); ok {
		return v
	}
	return map[string]interface{}{}
}

// objects returns the object items of the array at m[key], skipping
// anything that is not an object.
func objects(m map[string]interface{}, key string) ([]map[string]interface{}, bool) {
	arr, ok := m[key].([]interface{})
	if !ok {
		return nil, false
	}
	out := make([]map[string]interface{}, 0, len(arr))
	for _, item := range arr {
		if obj, ok := item.(map[string]interface{}); ok {
			out = append(out, obj)
		}
	}
	return out, true
}

func integer(m map[string]interface{}, key string) int {
	return models.IntField(m, key)
}

func optInt(m map[string]interface{}, key string) *int {
	f, ok := models.FloatField(m, key)
	if !ok {
		return nil
	}
	n := int(math.Round(f))
	return &n
}

func optFloat(m map[string]interface{}, key string) *float64 {
	f, ok := models.FloatField(m, key)
	if !ok {
		return nil
	}
	return &f
}

func boolean(m map[string]interface{}, key string) bool {
	switch v := m[key].(type) {
	case bool:
		return v
	case string:
		s := strings.ToLower(strings.TrimSpace(v))
		return s == "true" || s == "ja" || s == "yes"
	}
	return false
}

func truncate[T any](items []T, limit int) []T {
	if len(items) > limit {
		return items[:limit]
	}
	return items
}

// ── Enumerations ────────────────────────────────────────────

func normKey(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer("-", "_", " ", "_").Replace(s)
}

func section(s string) models.ExerciseSection {
	switch normKey(s) {
	case "warm_up", "warmup", "warming_up", "opwarming":
		return models.SectionWarmUp
	case "cool_down", "cooldown", "afkoeling":
		return models.SectionCoolDown
	default:
		return models.SectionWorkout
	}
}

func severity(s string) models.Severity {
	switch normKey(s) {
	case "critical", "kritiek", "kritisch", "high", "hoog":
		return models.SeverityCritical
	case "warning", "waarschuwing", "medium", "gemiddeld":
		return models.SeverityWarning
	default:
		return models.SeverityInfo
	}
}

func evidence(s string) models.EvidenceLevel {
	switch normKey(s) {
	case "strong", "sterk":
		return models.EvidenceStrong
	case "moderate", "matig", "gemiddeld":
		return models.EvidenceModerate
	default:
		return models.EvidenceLimited
	}
}

func urgency(s string) models.Urgency {
	switch normKey(s) {
	case "high", "hoog":
		return models.UrgencyHigh
	case "low", "laag":
		return models.UrgencyLow
	default:
		return models.UrgencyMedium
	}
}
