package notes

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestGenerateNotesSuccess(t *testing.T) {
	backend := &fakeBackend{respond: func(call int, model, prompt string) (string, error) {
		if strings.Contains(prompt, "STEP 1") {
			return `[{"mainTopic":"Spring Boot","subtopics":["DI"]}]`, nil
		}
		return `{"title":"Spring Boot","subtopics":[{"title":"DI","description":"d","content":"c"}]}`, nil
	}}
	g := NewGenerator(backend, testOptions(), nil, testLogger())

	resp := g.GenerateNotes(context.Background(), "Spring Boot basics. Dependency injection.", "English")
	if resp.Status != StatusSuccess {
		t.Fatalf("expected success, got %q (%+v)", resp.Status, resp)
	}
	if len(resp.Topics) != 1 || resp.Topics[0].Title != "Spring Boot" {
		t.Fatalf("unexpected topics: %+v", resp.Topics)
	}
	if len(resp.Topics[0].Subtopics) != 1 || resp.Topics[0].Subtopics[0].Title != "DI" {
		t.Fatalf("unexpected subtopics: %+v", resp.Topics[0].Subtopics)
	}
}

func TestGenerateNotesFallsBackToSimpleNotes(t *testing.T) {
	var simpleCalls int
	backend := &fakeBackend{respond: func(call int, model, prompt string) (string, error) {
		if strings.Contains(prompt, "STEP 1") {
			return "", errors.New("backend down")
		}
		simpleCalls++
		return "## Notes\n- point one", nil
	}}
	g := NewGenerator(backend, testOptions(), nil, testLogger())

	resp := g.GenerateNotes(context.Background(), "transcript", "English")
	if resp.Status != StatusFallback {
		t.Fatalf("expected fallback, got %q", resp.Status)
	}
	if simpleCalls != 1 {
		t.Fatalf("expected exactly one simple-notes call, got %d", simpleCalls)
	}
	if len(resp.Topics) != 1 || resp.Topics[0].Title != fallbackTitle {
		t.Fatalf("unexpected topics: %+v", resp.Topics)
	}
	sub := resp.Topics[0].Subtopics[0]
	if sub.Title != "Summary" || !strings.Contains(sub.Content, "point one") {
		t.Fatalf("unexpected fallback subtopic: %+v", sub)
	}
}

func TestGenerateNotesEmergencyFallback(t *testing.T) {
	backend := &fakeBackend{respond: func(call int, model, prompt string) (string, error) {
		return "", errors.New("backend down")
	}}
	g := NewGenerator(backend, testOptions(), nil, testLogger())

	transcript := strings.Repeat("a", 6000)
	resp := g.GenerateNotes(context.Background(), transcript, "English")
	if resp.Status != StatusEmergencyFallback {
		t.Fatalf("expected emergency_fallback, got %q", resp.Status)
	}

	// 3 extraction attempts + 1 simple-notes attempt; the terminal tier
	// must not touch the backend.
	if backend.callCount() != 4 {
		t.Fatalf("expected 4 backend calls, got %d", backend.callCount())
	}

	sub := resp.Topics[0].Subtopics[0]
	if sub.Title != "Transcript" || sub.Description != emergencyDescription {
		t.Fatalf("unexpected emergency subtopic: %+v", sub)
	}
	if utf8.RuneCountInString(sub.Content) != emergencyTranscriptLimit {
		t.Fatalf("expected transcript truncated to %d runes, got %d", emergencyTranscriptLimit, utf8.RuneCountInString(sub.Content))
	}
	if sub.Content != transcript[:emergencyTranscriptLimit] {
		t.Fatalf("emergency content is not a transcript prefix")
	}
}

// staticCorrector satisfies Corrector for pipeline tests.
type staticCorrector struct{ out string }

func (c staticCorrector) Correct(ctx context.Context, text, language string) string {
	if c.out == "" {
		return text
	}
	return c.out
}

func TestGenerateNotesAppliesCorrector(t *testing.T) {
	var sawCorrected bool
	backend := &fakeBackend{respond: func(call int, model, prompt string) (string, error) {
		if strings.Contains(prompt, "corrected transcript") {
			sawCorrected = true
		}
		if strings.Contains(prompt, "STEP 1") {
			return `[{"mainTopic":"T","subtopics":["s"]}]`, nil
		}
		return `{"title":"T","subtopics":[{"title":"s","content":"c"}]}`, nil
	}}
	g := NewGenerator(backend, testOptions(), nil, testLogger())
	g.SetCorrector(staticCorrector{out: "corrected transcript"})

	resp := g.GenerateNotes(context.Background(), "raw transcrpt", "English")
	if resp.Status != StatusSuccess {
		t.Fatalf("expected success, got %q", resp.Status)
	}
	if !sawCorrected {
		t.Fatalf("expected corrected transcript in prompts")
	}
}
