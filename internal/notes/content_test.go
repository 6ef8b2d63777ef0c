package notes

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestGenerateContentMapsStructuredResponse(t *testing.T) {
	backend := &fakeBackend{respond: func(call int, model, prompt string) (string, error) {
		return `{"title":"Spring Boot","subtopics":[{"title":"DI","description":"d","content":"c"}]}`, nil
	}}
	g := NewGenerator(backend, testOptions(), nil, testLogger())

	topic := TopicStructure{MainTopic: "Spring Boot", Subtopics: []string{"DI"}}
	got := g.GenerateContent(context.Background(), topic, "transcript", "English")
	if got.Title != "Spring Boot" || len(got.Subtopics) != 1 || got.Subtopics[0].Title != "DI" {
		t.Fatalf("unexpected content: %+v", got)
	}
	if got.Subtopics[0].Images == nil || got.Subtopics[0].Tables == nil {
		t.Fatalf("expected non-nil image/table slices")
	}
}

func TestGenerateContentRetriesThenSalvagesPlainText(t *testing.T) {
	backend := &fakeBackend{respond: func(call int, model, prompt string) (string, error) {
		return "The model rambles here instead of returning JSON.", nil
	}}
	g := NewGenerator(backend, testOptions(), nil, testLogger())

	topic := TopicStructure{MainTopic: "Kafka", Subtopics: []string{"Partitions", "Consumers"}}
	got := g.GenerateContent(context.Background(), topic, "transcript", "English")
	if backend.callCount() != 2 {
		t.Fatalf("expected 2 attempts, got %d", backend.callCount())
	}
	if len(got.Subtopics) != 2 {
		t.Fatalf("expected one subtopic per expected title, got %+v", got.Subtopics)
	}
	if got.Subtopics[0].Description != plainTextDescription {
		t.Fatalf("expected plain-text salvage, got %+v", got.Subtopics[0])
	}
	if !strings.Contains(got.Subtopics[0].Content, "rambles") {
		t.Fatalf("salvaged content lost the response text: %q", got.Subtopics[0].Content)
	}
}

func TestGenerateContentPlaceholderWhenNoSignal(t *testing.T) {
	backend := &fakeBackend{respond: func(call int, model, prompt string) (string, error) {
		return "", errors.New("backend down")
	}}
	g := NewGenerator(backend, testOptions(), nil, testLogger())

	topic := TopicStructure{MainTopic: "Redis", Subtopics: []string{"Streams"}}
	got := g.GenerateContent(context.Background(), topic, "transcript", "English")
	if backend.callCount() != 2 {
		t.Fatalf("expected 2 attempts, got %d", backend.callCount())
	}
	if len(got.Subtopics) != 1 || got.Subtopics[0].Title != "Streams" {
		t.Fatalf("unexpected placeholder: %+v", got)
	}
	if got.Subtopics[0].Description != placeholderDescription || got.Subtopics[0].Content != placeholderContent {
		t.Fatalf("expected placeholder copy, got %+v", got.Subtopics[0])
	}
}

func TestPlaceholderContentWithoutSubtopics(t *testing.T) {
	got := PlaceholderContent(TopicStructure{MainTopic: "Orphan"})
	if len(got.Subtopics) != 1 || got.Subtopics[0].Title != "Summary" {
		t.Fatalf("expected single summary subtopic, got %+v", got)
	}
	if got.Subtopics[0].Description != unavailableDescription {
		t.Fatalf("unexpected description: %q", got.Subtopics[0].Description)
	}
}
