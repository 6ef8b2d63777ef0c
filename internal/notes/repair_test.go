package notes

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestRepairJSON_PassesThroughValidObject(t *testing.T) {
	input := `{"title":"Topic","subtopics":[]}`
	got := RepairJSON(input)
	if got != input {
		t.Fatalf("expected %q, got %q", input, got)
	}
}

func TestRepairJSON_StripsCodeFences(t *testing.T) {
	input := "```json\n{\"title\":\"Topic\"}\n```"
	got := RepairJSON(input)
	want := `{"title":"Topic"}`
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestRepairJSON_ExtractsArraySpanFromProse(t *testing.T) {
	input := "Here are the topics you asked for:\n[{\"mainTopic\":\"Go\",\"subtopics\":[\"goroutines\"]}]\nLet me know if you need more."
	got := RepairJSON(input)
	want := `[{"mainTopic":"Go","subtopics":["goroutines"]}]`
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestRepairJSON_PrefersObjectWhenItOpensFirst(t *testing.T) {
	input := `note: {"title":"T","subtopics":["a"]} trailing prose`
	got := RepairJSON(input)
	want := `{"title":"T","subtopics":["a"]}`
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestRepairJSON_RemovesTrailingCommas(t *testing.T) {
	input := `{"title":"T","subtopics":["a","b",],}`
	got := RepairJSON(input)
	if !json.Valid([]byte(got)) {
		t.Fatalf("expected parseable output, got %q", got)
	}
	var payload struct {
		Subtopics []string `json:"subtopics"`
	}
	if err := json.Unmarshal([]byte(got), &payload); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(payload.Subtopics) != 2 {
		t.Fatalf("expected 2 subtopics, got %d", len(payload.Subtopics))
	}
}

func TestRepairJSON_InsertsCommasBetweenConcatenatedObjects(t *testing.T) {
	input := `[{"mainTopic":"A","subtopics":[]} {"mainTopic":"B","subtopics":[]}]`
	got := RepairJSON(input)
	if !json.Valid([]byte(got)) {
		t.Fatalf("expected parseable output, got %q", got)
	}
	var topics []TopicStructure
	if err := json.Unmarshal([]byte(got), &topics); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(topics) != 2 || topics[1].MainTopic != "B" {
		t.Fatalf("unexpected topics: %+v", topics)
	}
}

func TestRepairJSON_StripsComments(t *testing.T) {
	input := "{\"title\":\"T\", // model note\n\"content\":\"body\" /* block */}"
	got := RepairJSON(input)
	if !json.Valid([]byte(got)) {
		t.Fatalf("expected parseable output, got %q", got)
	}
	if strings.Contains(got, "model note") || strings.Contains(got, "block") {
		t.Fatalf("comments not removed: %q", got)
	}
}

func TestRepairJSON_BlankInputYieldsEmptyObject(t *testing.T) {
	if got := RepairJSON("   \n"); got != "{}" {
		t.Fatalf("expected {}, got %q", got)
	}
}

func TestRepairJSON_NoContainerReturnsTrimmedInput(t *testing.T) {
	input := "  the model refused to answer  "
	got := RepairJSON(input)
	if got != "the model refused to answer" {
		t.Fatalf("expected trimmed passthrough, got %q", got)
	}
}

func TestRepairJSON_TruncatedPayloadDoesNotPanic(t *testing.T) {
	input := `{"title":"T","subtopics":[{"title":"a","content":"cut off mid`
	got := RepairJSON(input)
	if got == "" {
		t.Fatalf("expected non-empty output")
	}
}

// Known-bad corpus: every entry must come out parseable.
func TestRepairJSON_MalformedCorpusParses(t *testing.T) {
	corpus := []string{
		"```json\n[{\"mainTopic\":\"A\",\"subtopics\":[\"x\",]}]\n```",
		`{"title":"T","subtopics":[{"title":"s","description":"d","content":"c",}],}`,
		"[{\"mainTopic\":\"A\",\"subtopics\":[]}\n{\"mainTopic\":\"B\",\"subtopics\":[]}]",
		"{\"title\":\"T\", // inline\n\"subtopics\":[]}",
		"Sure! Here is the JSON:\n\n{\"title\":\"T\",\"subtopics\":[]}",
		"```\n[{\"mainTopic\":\"only\",\"subtopics\":[\"one\"]}]\n```",
	}
	for i, raw := range corpus {
		got := RepairJSON(raw)
		if !json.Valid([]byte(got)) {
			t.Fatalf("corpus[%d] not parseable after repair: %q", i, got)
		}
	}
}
