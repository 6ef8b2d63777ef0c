package notes

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Sentinel errors surfaced between pipeline stages. Neither crosses the
// GenerateNotes boundary; the cascade absorbs both.
var (
	ErrNoTopics      = errors.New("no topics extracted")
	ErrEmptyResponse = errors.New("empty backend response")
)

// ExtractTopics asks the backend to decompose a transcript into an ordered
// list of (main topic, subtopics) pairs. It retries on empty responses and
// unusable payloads with a fixed inter-attempt delay, a deliberate throttle
// for a transiently overloaded backend. Exhausting every attempt returns
// ErrNoTopics, which sends the cascade to the next tier.
func (g *Generator) ExtractTopics(ctx context.Context, transcript, language string) ([]TopicStructure, error) {
	prompt := TopicExtractionPrompt(transcript, language)

	for attempt := 1; attempt <= g.opts.TopicAttempts; attempt++ {
		if attempt > 1 {
			g.telemetry.RecordRetry("topics")
			select {
			case <-time.After(g.opts.TopicBackoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		raw, err := g.backend.Generate(ctx, g.opts.TopicModel, prompt)
		g.telemetry.RecordBackendCall("topics", g.opts.TopicModel, len(prompt), len(raw), err)
		if err != nil {
			g.logger.Printf("topic extraction attempt %d/%d failed: %v", attempt, g.opts.TopicAttempts, err)
			continue
		}
		if strings.TrimSpace(raw) == "" {
			g.logger.Printf("topic extraction attempt %d/%d returned empty response", attempt, g.opts.TopicAttempts)
			continue
		}

		topics := MapTopicList(RepairJSON(raw))
		if len(topics) == 0 {
			g.logger.Printf("topic extraction attempt %d/%d yielded no usable topics", attempt, g.opts.TopicAttempts)
			continue
		}

		g.logger.Printf("extracted %d topics", len(topics))
		return topics, nil
	}

	return nil, ErrNoTopics
}
