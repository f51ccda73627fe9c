// Package output turns raw model text into validated, typed generation
// results.
//
// Decoding is two-phase. Parse produces an untyped map, falling back to
// fenced or embedded JSON objects when the text is not a bare object. The
// per-type decoders then walk that map field by field, check the required
// fields, normalise enumerations and enforce list bounds. Nothing here ever
// guesses a result from unparseable text.
package output

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/coachkit/coachplane/pkg/coacherr"
)

var (
	// fencedObjectPattern matches an object inside one markdown code block: ```json { ... } ```
	fencedObjectPattern = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*\\n?(\\{.*?\\})\\s*```")
	// trailingCommaPattern matches trailing commas before ] or }.
	trailingCommaPattern = regexp.MustCompile(`,\s*([}\]])`)
)

// Parse decodes raw into a JSON object. When raw is not a bare object it
// tries each fenced code block in order, then the largest brace-delimited
// fragment, after removing line comments and trailing commas. The first
// candidate that decodes wins.
func Parse(raw string) (map[string]interface{}, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, coacherr.OutputFormat("empty response", nil)
	}

	var m map[string]interface{}
	firstErr := json.Unmarshal([]byte(trimmed), &m)
	if firstErr == nil && m != nil {
		return m, nil
	}

	fragments := extractFragments(trimmed)
	if len(fragments) == 0 {
		return nil, coacherr.OutputFormat("no JSON object in response", firstErr)
	}
	var lastErr error
	for _, fragment := range fragments {
		m = nil
		if lastErr = json.Unmarshal([]byte(cleanJSON(fragment)), &m); lastErr == nil && m != nil {
			return m, nil
		}
	}
	return nil, coacherr.OutputFormat("embedded JSON fragment did not parse", lastErr)
}

// extractFragments returns the fenced objects in order of appearance,
// followed by the text between the first '{' and the last '}'.
func extractFragments(s string) []string {
	var out []string
	for _, matches := range fencedObjectPattern.FindAllStringSubmatch(s, -1) {
		out = append(out, matches[1])
	}
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		out = append(out, s[start:end+1])
	}
	return out
}

// cleanJSON removes line comments and trailing commas, the two artifacts
// models most often add to otherwise valid JSON.
func cleanJSON(raw string) string {
	lines := strings.Split(raw, "\n")
	for i, line := range lines {
		lines[i] = stripLineComment(line)
	}
	return trailingCommaPattern.ReplaceAllString(strings.Join(lines, "\n"), "$1")
}

// stripLineComment removes a // comment from a JSON line, respecting
// string values such as URLs.
func stripLineComment(line string) string {
	if !strings.Contains(line, "//") {
		return line
	}
	inString := false
	escaped := false
	for i := 0; i < len(line); i++ {
		ch := line[i]
		if escaped {
			escaped = false
			continue
		}
		if ch == '\\' && inString {
			escaped = true
			continue
		}
		if ch == '"' {
			inString = !inString
			continue
		}
		if !inString && ch == '/' && i+1 < len(line) && line[i+1] == '/' {
			return strings.TrimRight(line[:i], " \t")
		}
	}
	return line
}
