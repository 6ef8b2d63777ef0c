package notes

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Field aliases accepted when a model drifts from the requested schema, in
// priority order. The first present alias wins.
var (
	subtopicsAliases = []string{"subtopics", "subTopics", "topics", "sections", "content", "items"}
	titleAliases     = []string{"title", "mainTopic", "topic", "name", "heading"}
)

// topicPayload mirrors the schema the content prompt asks for. Subtopic
// fields carry one struct member per accepted alias so a single unmarshal
// collects whichever names the model chose.
type topicPayload struct {
	Title     string            `json:"title"`
	Subtopics []subtopicPayload `json:"subtopics"`
}

type subtopicPayload struct {
	Title          string             `json:"title"`
	Name           string             `json:"name"`
	Heading        string             `json:"heading"`
	Description    string             `json:"description"`
	Summary        string             `json:"summary"`
	Overview       string             `json:"overview"`
	Content        string             `json:"content"`
	Text           string             `json:"text"`
	Body           string             `json:"body"`
	Details        string             `json:"details"`
	Images         []ImagePlaceholder `json:"images"`
	ImagePositions []ImagePlaceholder `json:"imagePositions"`
	Tables         []TableData        `json:"tables"`
	TablePositions []TableData        `json:"tablePositions"`
}

// MapTopicContent maps a repaired JSON candidate onto a TopicContent for the
// given source topic. It tries the expected schema first and falls back to
// alias resolution over the raw tree when the subtopic list comes up empty.
// It returns nil only when no subtopic can be recovered at all; the caller
// then salvages the response as plain text.
func MapTopicContent(candidate string, source TopicStructure) *TopicContent {
	var direct topicPayload
	if err := json.Unmarshal([]byte(candidate), &direct); err == nil && len(direct.Subtopics) > 0 {
		return assembleTopicContent(direct.Title, source, direct.Subtopics)
	}

	var tree map[string]json.RawMessage
	if err := json.Unmarshal([]byte(candidate), &tree); err != nil {
		return nil
	}

	subs := subtopicsFromTree(tree)
	if len(subs) == 0 {
		return nil
	}
	return assembleTopicContent(stringFromTree(tree, titleAliases), source, subs)
}

// MapTopicList parses a topic-extraction response: a top-level array of
// (mainTopic, subtopics) pairs. Malformed or empty entries are dropped
// rather than failing the batch; a parse failure of the array itself yields
// nil so the extraction stage retries.
func MapTopicList(candidate string) []TopicStructure {
	var raw []json.RawMessage
	if err := json.Unmarshal([]byte(candidate), &raw); err != nil {
		return nil
	}

	out := make([]TopicStructure, 0, len(raw))
	for _, entry := range raw {
		var ts TopicStructure
		if err := json.Unmarshal(entry, &ts); err != nil {
			continue
		}
		if strings.TrimSpace(ts.MainTopic) == "" {
			continue
		}
		if ts.Subtopics == nil {
			ts.Subtopics = []string{}
		}
		out = append(out, ts)
	}
	return out
}

// subtopicsFromTree probes the alias list for the first array-valued field
// whose elements decode into at least one subtopic. Elements that do not
// decode are skipped, not fatal.
func subtopicsFromTree(tree map[string]json.RawMessage) []subtopicPayload {
	for _, key := range subtopicsAliases {
		raw, ok := tree[key]
		if !ok {
			continue
		}
		var elements []json.RawMessage
		if err := json.Unmarshal(raw, &elements); err != nil {
			continue
		}
		subs := make([]subtopicPayload, 0, len(elements))
		for _, el := range elements {
			var sub subtopicPayload
			if err := json.Unmarshal(el, &sub); err != nil {
				continue
			}
			subs = append(subs, sub)
		}
		if len(subs) > 0 {
			return subs
		}
	}
	return nil
}

func stringFromTree(tree map[string]json.RawMessage, aliases []string) string {
	for _, key := range aliases {
		raw, ok := tree[key]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			continue
		}
		if strings.TrimSpace(s) != "" {
			return s
		}
	}
	return ""
}

// assembleTopicContent normalizes decoded subtopics into the output shape:
// every field defaulted, image and table slices never nil, placeholder
// markers forced on images.
func assembleTopicContent(title string, source TopicStructure, subs []subtopicPayload) *TopicContent {
	if strings.TrimSpace(title) == "" {
		title = source.MainTopic
	}

	out := make([]SubtopicContent, 0, len(subs))
	for i, sub := range subs {
		out = append(out, SubtopicContent{
			Title:       firstNonBlank(fmt.Sprintf("Subtopic %d", i+1), sub.Title, sub.Name, sub.Heading),
			Description: firstNonBlank("", sub.Description, sub.Summary, sub.Overview),
			Content:     firstNonBlank("", sub.Content, sub.Text, sub.Body, sub.Details),
			Images:      normalizeImages(pickImages(sub)),
			Tables:      normalizeTables(pickTables(sub)),
		})
	}
	return &TopicContent{Title: title, Subtopics: out}
}

func pickImages(sub subtopicPayload) []ImagePlaceholder {
	if len(sub.Images) > 0 {
		return sub.Images
	}
	return sub.ImagePositions
}

func pickTables(sub subtopicPayload) []TableData {
	if len(sub.Tables) > 0 {
		return sub.Tables
	}
	return sub.TablePositions
}

func normalizeImages(images []ImagePlaceholder) []ImagePlaceholder {
	out := make([]ImagePlaceholder, 0, len(images))
	for _, img := range images {
		img.ImageURL = ""
		img.Placeholder = true
		out = append(out, img)
	}
	return out
}

func normalizeTables(tables []TableData) []TableData {
	out := make([]TableData, 0, len(tables))
	for _, tbl := range tables {
		if tbl.Headers == nil {
			tbl.Headers = []string{}
		}
		if tbl.Rows == nil {
			tbl.Rows = [][]string{}
		}
		out = append(out, tbl)
	}
	return out
}

func firstNonBlank(fallback string, candidates ...string) string {
	for _, c := range candidates {
		if strings.TrimSpace(c) != "" {
			return c
		}
	}
	return fallback
}
