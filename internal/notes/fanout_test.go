package notes

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestGenerateAllPreservesOrder(t *testing.T) {
	backend := &fakeBackend{respond: func(call int, model, prompt string) (string, error) {
		// Echo the topic name back so slots are distinguishable.
		for i := 0; i < 8; i++ {
			name := fmt.Sprintf("Topic %d", i)
			if strings.Contains(prompt, `"`+name+`"`) {
				return fmt.Sprintf(`{"title":"%s","subtopics":[{"title":"s","content":"c"}]}`, name), nil
			}
		}
		return "", fmt.Errorf("unknown topic in prompt")
	}}
	g := NewGenerator(backend, testOptions(), nil, testLogger())

	topics := make([]TopicStructure, 8)
	for i := range topics {
		topics[i] = TopicStructure{MainTopic: fmt.Sprintf("Topic %d", i), Subtopics: []string{"s"}}
	}

	results := g.GenerateAll(context.Background(), topics, "transcript", "English")
	if len(results) != len(topics) {
		t.Fatalf("expected %d results, got %d", len(topics), len(results))
	}
	for i, res := range results {
		if res.Title != topics[i].MainTopic {
			t.Fatalf("slot %d holds %q, want %q", i, res.Title, topics[i].MainTopic)
		}
	}
}

func TestGenerateAllTimedOutSlotGetsPlaceholder(t *testing.T) {
	stuck := "Topic 1"
	backend := &fakeBackend{respond: func(call int, model, prompt string) (string, error) {
		return "", nil // unused; blockingBackend wraps this
	}}
	blocking := &blockingBackend{inner: backend, stuckTopic: stuck}

	opts := testOptions()
	opts.TopicTimeout = 50 * time.Millisecond
	g := NewGenerator(blocking, opts, nil, testLogger())

	topics := []TopicStructure{
		{MainTopic: "Topic 0", Subtopics: []string{"a"}},
		{MainTopic: stuck, Subtopics: []string{"b"}},
		{MainTopic: "Topic 2", Subtopics: []string{"c"}},
	}

	results := g.GenerateAll(context.Background(), topics, "transcript", "English")
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if results[0].Title != "Topic 0" || results[2].Title != "Topic 2" {
		t.Fatalf("healthy slots lost their order: %+v", results)
	}
	if results[1].Subtopics[0].Description != placeholderDescription {
		t.Fatalf("expected placeholder in stuck slot, got %+v", results[1])
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	g.Shutdown(shutdownCtx)
}

// blockingBackend hangs until context cancellation for one topic and answers
// immediately for every other.
type blockingBackend struct {
	inner      *fakeBackend
	stuckTopic string
}

func (b *blockingBackend) Generate(ctx context.Context, model, prompt string) (string, error) {
	if strings.Contains(prompt, `"`+b.stuckTopic+`"`) {
		<-ctx.Done()
		return "", ctx.Err()
	}
	for i := 0; i < 8; i++ {
		name := fmt.Sprintf("Topic %d", i)
		if strings.Contains(prompt, `"`+name+`"`) {
			return fmt.Sprintf(`{"title":"%s","subtopics":[{"title":"s","content":"c"}]}`, name), nil
		}
	}
	return "", fmt.Errorf("unknown topic in prompt")
}
