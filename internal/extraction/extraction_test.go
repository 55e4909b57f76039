package extraction

import (
	"strings"
	"testing"
)

func TestExtractStrictParseOfPlainJSON(t *testing.T) {
	t.Parallel()

	res := Extract(`{"suggestedTime":"10 weeks","suggestedBudget":5000}`)
	if res.Stage != StageStrict {
		t.Fatalf("expected strict stage, got %s", res.Stage)
	}
	if res.Value["suggestedTime"] != "10 weeks" {
		t.Fatalf("unexpected value: %v", res.Value)
	}
	if res.Value["suggestedBudget"] != float64(5000) {
		t.Fatalf("unexpected budget: %v", res.Value["suggestedBudget"])
	}
}

func TestExtractFencedJSONParsesStrictly(t *testing.T) {
	t.Parallel()

	for _, input := range []string{
		"```json\n{\"phases\":[\"design\",\"build\"]}\n```",
		"```\n{\"phases\":[\"design\",\"build\"]}\n```",
		"```JSON\r\n{\"phases\":[\"design\",\"build\"]}\r\n```\n",
	} {
		res := Extract(input)
		if res.Stage != StageStrict {
			t.Fatalf("expected strict stage for %q, got %s", input, res.Stage)
		}
		phases, ok := res.Value["phases"].([]interface{})
		if !ok || len(phases) != 2 {
			t.Fatalf("unexpected phases for %q: %v", input, res.Value)
		}
	}
}

func TestExtractRecoversObjectFromProse(t *testing.T) {
	t.Parallel()

	input := "Sure! Here is the analysis you asked for:\n{\"riskAssessment\":\"low\"}\nLet me know if you need more."
	res := Extract(input)
	if res.Stage != StageLenient {
		t.Fatalf("expected lenient stage, got %s", res.Stage)
	}
	if res.Value["riskAssessment"] != "low" {
		t.Fatalf("unexpected value: %v", res.Value)
	}
}

func TestExtractSkipsStrayBracesInNarrative(t *testing.T) {
	t.Parallel()

	input := "Use a {placeholder} style. {\"sdlcMethodology\":\"Scrum\",\"note\":\"braces } in { strings\"} trailing }"
	res := Extract(input)
	if res.Stage != StageLenient {
		t.Fatalf("expected lenient stage, got %s", res.Stage)
	}
	if res.Value["sdlcMethodology"] != "Scrum" {
		t.Fatalf("unexpected value: %v", res.Value)
	}
	if res.Value["note"] != "braces } in { strings" {
		t.Fatalf("string braces were mangled: %v", res.Value["note"])
	}
}

func TestExtractFencedBlockInsideProse(t *testing.T) {
	t.Parallel()

	input := "Sure! ```json\n{\"suggestedTime\":\"10 weeks\",\"suggestedBudget\":5000}\n```"
	got := Analysis(input)
	if len(got) != 2 || got["suggestedTime"] != "10 weeks" || got["suggestedBudget"] != float64(5000) {
		t.Fatalf("unexpected analysis: %v", got)
	}
}

func TestAnalysisFallsBackToErrorShape(t *testing.T) {
	t.Parallel()

	for _, input := range []string{
		"",
		"no structure here at all",
		"{broken: json",
		"[1, 2, 3]",
		"null",
	} {
		got := Analysis(input)
		if got == nil {
			t.Fatalf("nil result for %q", input)
		}
		if !IsErrorShape(got) {
			t.Fatalf("expected error shape for %q, got %v", input, got)
		}
		if got["raw"] != input {
			t.Fatalf("expected raw to carry the response, got %v", got["raw"])
		}
	}
}

func TestStripFormattingKeepsPunctuation(t *testing.T) {
	t.Parallel()

	got := StripFormatting("**Budget**: $5,000 (approx.) * single star - dash")
	want := "Budget: $5,000 (approx.) * single star - dash"
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestCleanAnswer(t *testing.T) {
	t.Parallel()

	input := "**Summary**\n* first point\n```go\nfmt.Println(1)\n```\nUse `make build`.\nDisclaimer: I am not a lawyer.\n"
	got := CleanAnswer(input)
	want := "Summary\n* first point\n\nUse make build."
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestAssignmentsUnwrapsKey(t *testing.T) {
	t.Parallel()

	input := "Here you go:\n```json\n{\"assignments\":{\"a@x.com\":{\"teamMemberName\":\"A\",\"role\":\"Dev\",\"tasks\":[]}}}\n```"
	got := Assignments(input)
	entry, ok := got["a@x.com"].(map[string]interface{})
	if !ok {
		t.Fatalf("missing entry: %v", got)
	}
	if entry["teamMemberName"] != "A" {
		t.Fatalf("unexpected entry: %v", entry)
	}
}

func TestAssignmentsWithoutKeyIsEmpty(t *testing.T) {
	t.Parallel()

	for _, input := range []string{
		`{"a@x.com":{"teamMemberName":"A"}}`,
		"nothing useful",
		`{"assignments":["not","a","mapping"]}`,
	} {
		got := Assignments(input)
		if got == nil || len(got) != 0 {
			t.Fatalf("expected empty mapping for %q, got %v", input, got)
		}
	}
}

func TestExtractKeepsAsterisksInsideStrings(t *testing.T) {
	t.Parallel()

	res := Extract(`{"advancedIdeas":"cost grows as 2**n with team size"}`)
	if res.Stage != StageStrict {
		t.Fatalf("expected strict stage, got %s", res.Stage)
	}
	if res.Value["advancedIdeas"] != "cost grows as 2**n with team size" {
		t.Fatalf("string value was rewritten: %v", res.Value["advancedIdeas"])
	}

	res = Extract("Here you go:\n{\"potentialPitfalls\":\"**scope creep**\"}")
	if res.Stage != StageLenient {
		t.Fatalf("expected lenient stage, got %s", res.Stage)
	}
	if res.Value["potentialPitfalls"] != "**scope creep**" {
		t.Fatalf("string value was rewritten: %v", res.Value["potentialPitfalls"])
	}
}

func TestExtractStripsEmphasisAroundObject(t *testing.T) {
	t.Parallel()

	res := Extract(`**{"suggestedTime":"6 weeks"}**`)
	if res.Stage != StageStrict {
		t.Fatalf("expected strict stage, got %s", res.Stage)
	}
	if res.Value["suggestedTime"] != "6 weeks" {
		t.Fatalf("unexpected value: %v", res.Value)
	}
}

func TestExtractObjectAfterUnclosedBraces(t *testing.T) {
	t.Parallel()

	m, ok := ExtractObject("{ {\"a\":1}")
	if !ok || m["a"] != float64(1) {
		t.Fatalf("expected nested object, got %v (ok=%v)", m, ok)
	}

	input := strings.Repeat("{", 20000) + `{"ok":true}`
	m, ok = ExtractObject(input)
	if !ok || m["ok"] != true {
		t.Fatalf("expected trailing object, got %v (ok=%v)", m, ok)
	}

	if _, ok := ExtractObject(strings.Repeat("{ ", 20000)); ok {
		t.Fatal("expected no object in unbalanced text")
	}
}

func TestAssignmentsKeepAsterisksInDescriptions(t *testing.T) {
	t.Parallel()

	got := Assignments(`{"assignments":{"a@x.com":{"tasks":[{"description":"Tune **kwargs handling"}]}}}`)
	entry, ok := got["a@x.com"].(map[string]interface{})
	if !ok {
		t.Fatalf("missing entry: %v", got)
	}
	task := entry["tasks"].([]interface{})[0].(map[string]interface{})
	if task["description"] != "Tune **kwargs handling" {
		t.Fatalf("description was rewritten: %v", task["description"])
	}
}
