package notes

import (
	"context"
	"strings"
)

// Placeholder text used when every generation attempt for a topic produced
// no usable signal. Distinct from plain-text salvage, which carries whatever
// the model did say.
const (
	placeholderDescription = "Content generation in progress"
	placeholderContent     = "Detailed content will be added here."

	unavailableDescription = "Content not available"
	unavailableContent     = "Unable to generate content at this time."
)

// GenerateContent produces detailed content for one extracted topic. It
// never fails: structured mapping is tried first, then plain-text salvage of
// a non-empty response, and after exhausting every attempt a placeholder is
// returned so the batch keeps its slot.
func (g *Generator) GenerateContent(ctx context.Context, topic TopicStructure, transcript, language string) TopicContent {
	prompt := ContentGenerationPrompt(topic, transcript, language)

	var lastResponse string
	for attempt := 1; attempt <= g.opts.ContentAttempts; attempt++ {
		if attempt > 1 {
			g.telemetry.RecordRetry("content")
		}

		raw, err := g.backend.Generate(ctx, g.opts.ContentModel, prompt)
		g.telemetry.RecordBackendCall("content", g.opts.ContentModel, len(prompt), len(raw), err)
		if err != nil {
			g.logger.Printf("content attempt %d/%d for %q failed: %v", attempt, g.opts.ContentAttempts, topic.MainTopic, err)
			continue
		}
		if strings.TrimSpace(raw) == "" {
			g.logger.Printf("content attempt %d/%d for %q returned empty response", attempt, g.opts.ContentAttempts, topic.MainTopic)
			continue
		}
		lastResponse = raw

		if mapped := MapTopicContent(RepairJSON(raw), topic); mapped != nil && len(mapped.Subtopics) > 0 {
			return *mapped
		}
		g.logger.Printf("content attempt %d/%d for %q was not mappable", attempt, g.opts.ContentAttempts, topic.MainTopic)
	}

	if strings.TrimSpace(lastResponse) != "" {
		return ContentFromPlainText(lastResponse, topic)
	}
	return PlaceholderContent(topic)
}

// PlaceholderContent builds the synthetic content used when a topic's
// generation attempts are exhausted or its task timed out. One subtopic per
// expected title, or a single summary when the topic names none.
func PlaceholderContent(topic TopicStructure) TopicContent {
	if len(topic.Subtopics) == 0 {
		return TopicContent{
			Title: topic.MainTopic,
			Subtopics: []SubtopicContent{{
				Title:       "Summary",
				Description: unavailableDescription,
				Content:     unavailableContent,
				Images:      []ImagePlaceholder{},
				Tables:      []TableData{},
			}},
		}
	}

	subs := make([]SubtopicContent, 0, len(topic.Subtopics))
	for _, title := range topic.Subtopics {
		subs = append(subs, SubtopicContent{
			Title:       title,
			Description: placeholderDescription,
			Content:     placeholderContent,
			Images:      []ImagePlaceholder{},
			Tables:      []TableData{},
		})
	}
	return TopicContent{Title: topic.MainTopic, Subtopics: subs}
}
