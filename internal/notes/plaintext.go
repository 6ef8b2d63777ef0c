package notes

import (
	"strings"
	"unicode/utf8"
)

// Descriptions attached to subtopics built from raw model text.
const (
	plainTextDescription    = "Content extracted from video transcript"
	plainSummaryDescription = "Generated content from video transcript"

	// plainTextLimit bounds salvaged text when it is used as per-subtopic
	// filler. Tier 2 of the cascade keeps raw text whole instead; here the
	// same blob would be repeated once per expected subtopic.
	plainTextLimit = 500
)

// ContentFromPlainText builds a minimal valid TopicContent straight from an
// unstructured model response. It is the last structural line of defense for
// a topic and can neither fail nor return nil: one subtopic per expected
// title when the source names subtopics, otherwise a single summary.
func ContentFromPlainText(raw string, source TopicStructure) TopicContent {
	cleaned := fencedJSONMarker.ReplaceAllString(raw, "")
	cleaned = fencedMarker.ReplaceAllString(cleaned, "")
	cleaned = strings.TrimSpace(cleaned)
	if utf8.RuneCountInString(cleaned) > plainTextLimit {
		cleaned = truncateRunes(cleaned, plainTextLimit) + "..."
	}

	var subs []SubtopicContent
	if len(source.Subtopics) > 0 {
		subs = make([]SubtopicContent, 0, len(source.Subtopics))
		for _, title := range source.Subtopics {
			subs = append(subs, SubtopicContent{
				Title:       title,
				Description: plainTextDescription,
				Content:     cleaned,
				Images:      []ImagePlaceholder{},
				Tables:      []TableData{},
			})
		}
	} else {
		subs = []SubtopicContent{{
			Title:       "Summary",
			Description: plainSummaryDescription,
			Content:     cleaned,
			Images:      []ImagePlaceholder{},
			Tables:      []TableData{},
		}}
	}

	return TopicContent{Title: source.MainTopic, Subtopics: subs}
}

// truncateRunes cuts s to at most limit runes without splitting a
// multi-byte character. No marker is appended.
func truncateRunes(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == limit {
			return s[:i]
		}
		count++
	}
	return s
}
