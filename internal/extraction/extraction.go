// Package extraction recovers JSON objects from free-form generative output.
//
// Extraction runs in tiers: formatting cleanup, a strict parse of the whole
// text, a brace-depth scan for the first embedded object that parses, and
// finally a guaranteed {error, raw} mapping. Nothing here returns an error.
package extraction

import (
	"encoding/json"
	"regexp"
	"strings"
)

// ParseFailedMessage is the error value of the fallback mapping
const ParseFailedMessage = "Second-pass parsing failed"

// AssignmentsKey wraps the per-member mapping in assignment responses
const AssignmentsKey = "assignments"

// Stage reports which tier produced a Result
type Stage int

const (
	StageStrict Stage = iota + 1
	StageLenient
	StageFallback
)

func (s Stage) String() string {
	switch s {
	case StageStrict:
		return "strict"
	case StageLenient:
		return "lenient"
	case StageFallback:
		return "fallback"
	}
	return "unknown"
}

// Result is the outcome of Extract. Value is never nil.
type Result struct {
	Value map[string]interface{}
	Stage Stage
}

var (
	fenceMarker = regexp.MustCompile("```(?:[A-Za-z][A-Za-z0-9_+-]*[ \t]*(?:\r?\n|$))?")
	fencedBlock = regexp.MustCompile("```[\\s\\S]*?```")
	backticks   = regexp.MustCompile("`+")
	emphasisRun = regexp.MustCompile(`\*{2,}`)
	disclaimer  = regexp.MustCompile(`(?i)disclaimer:[^\n]*`)
)

// StripFormatting removes fence markers (keeping what they enclose) and
// runs of emphasis asterisks.
func StripFormatting(text string) string {
	return strings.TrimSpace(emphasisRun.ReplaceAllString(fenceMarker.ReplaceAllString(text, ""), ""))
}

// candidates returns the fence-stripped text, followed by the fully stripped
// text when emphasis removal changes it. Parsing tries them in that order so
// asterisks inside JSON strings survive whenever the object parses without
// their removal.
func candidates(text string) []string {
	fenced := strings.TrimSpace(fenceMarker.ReplaceAllString(text, ""))
	plain := strings.TrimSpace(emphasisRun.ReplaceAllString(fenced, ""))
	if plain == fenced {
		return []string{fenced}
	}
	return []string{fenced, plain}
}

// CleanAnswer prepares a conversational answer for display: disclaimer lines,
// whole fenced blocks, stray backticks and emphasis runs are removed. Single
// asterisks survive so bullet lists stay intact.
func CleanAnswer(text string) string {
	cleaned := disclaimer.ReplaceAllString(text, "")
	cleaned = fencedBlock.ReplaceAllString(cleaned, "")
	cleaned = backticks.ReplaceAllString(cleaned, "")
	cleaned = emphasisRun.ReplaceAllString(cleaned, "")
	return strings.TrimSpace(cleaned)
}

// ParseObject parses text as a single JSON object
func ParseObject(text string) (map[string]interface{}, bool) {
	var m map[string]interface{}
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &m); err != nil || m == nil {
		return nil, false
	}
	return m, true
}

// ExtractObject returns the first brace-balanced span of text that parses as
// a JSON object. Braces inside JSON strings do not count towards depth, and
// spans that fail to parse are skipped. Spans found while scanning from one
// brace are remembered, so nested or unclosed braces are not rescanned.
func ExtractObject(text string) (map[string]interface{}, bool) {
	spans := make(map[int]int)
	for start := strings.IndexByte(text, '{'); start >= 0; start = nextBrace(text, start) {
		end, ok := matchingBrace(text, start, spans)
		if !ok {
			continue
		}
		if m, ok := ParseObject(text[start : end+1]); ok {
			return m, true
		}
	}
	return nil, false
}

func nextBrace(text string, after int) int {
	next := strings.IndexByte(text[after+1:], '{')
	if next < 0 {
		return -1
	}
	return after + 1 + next
}

// matchingBrace finds the brace closing the one at start. Every brace opened
// during the scan is recorded in spans with its closing index, or -1 when it
// is never closed.
func matchingBrace(text string, start int, spans map[int]int) (int, bool) {
	if end, ok := spans[start]; ok {
		return end, end >= 0
	}

	var open []int
	inString, escaped := false, false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			open = append(open, i)
		case '}':
			p := open[len(open)-1]
			open = open[:len(open)-1]
			spans[p] = i
			if len(open) == 0 {
				return i, true
			}
		}
	}
	for _, p := range open {
		spans[p] = -1
	}
	return -1, false
}

// Extract runs every tier against text
func Extract(text string) Result {
	texts := candidates(text)
	for _, cleaned := range texts {
		if m, ok := ParseObject(cleaned); ok {
			return Result{Value: m, Stage: StageStrict}
		}
	}
	for _, cleaned := range texts {
		if m, ok := ExtractObject(cleaned); ok {
			return Result{Value: m, Stage: StageLenient}
		}
	}
	return Result{Value: ErrorShape(text), Stage: StageFallback}
}
// Analysis returns the structured analysis recovered from text, or the
// error-shape mapping.
func Analysis(text string) map[string]interface{} {
	return Extract(text).Value
}

// ErrorShape builds the fallback mapping for unparseable output
func ErrorShape(raw string) map[string]interface{} {
	return map[string]interface{}{
		"error": ParseFailedMessage,
		"raw":   raw,
	}
}

// IsErrorShape reports whether m is a fallback mapping
func IsErrorShape(m map[string]interface{}) bool {
	msg, ok := m["error"].(string)
	_, hasRaw := m["raw"]
	return ok && hasRaw && msg == ParseFailedMessage
}

// Assignments returns the per-member entries under the assignments key. The
// strict tier is tried first, then the lenient one; when neither yields the
// key the result is an empty mapping.
func Assignments(text string) map[string]interface{} {
	texts := candidates(text)
	for _, cleaned := range texts {
		if m, ok := ParseObject(cleaned); ok {
			if entries, ok := unwrapAssignments(m); ok {
				return entries
			}
		}
	}
	for _, cleaned := range texts {
		if m, ok := ExtractObject(cleaned); ok {
			if entries, ok := unwrapAssignments(m); ok {
				return entries
			}
		}
	}
	return map[string]interface{}{}
}

func unwrapAssignments(m map[string]interface{}) (map[string]interface{}, bool) {
	raw, ok := m[AssignmentsKey]
	if !ok {
		return nil, false
	}
	entries, ok := raw.(map[string]interface{})
	if !ok {
		return nil, false
	}
	return entries, true
}
