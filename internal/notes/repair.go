package notes

import (
	"regexp"
	"strings"
)

// Repair rules are ordered: span extraction first, then comma fixes, then
// comment stripping, then a final trailing-comma sweep. Each rule is a plain
// regexp over the candidate string; none of them understands JSON string
// escaping, which is acceptable for model output that is already broken.
var (
	fencedJSONMarker = regexp.MustCompile("```json\\s*")
	fencedMarker     = regexp.MustCompile("```\\s*")
	objTrailingComma = regexp.MustCompile(`,\s*}`)
	arrTrailingComma = regexp.MustCompile(`,\s*]`)
	adjacentObjects  = regexp.MustCompile(`}\s*{`)
	adjacentArrays   = regexp.MustCompile(`]\s*\[`)
	lineComment      = regexp.MustCompile(`//.*`)
	blockComment     = regexp.MustCompile(`/\*.*?\*/`)
	trailingComma    = regexp.MustCompile(`,\s*([}\]])`)
)

// RepairJSON isolates the JSON payload embedded in a model response and fixes
// the malformations local models produce most often: markdown fences, prose
// around the payload, trailing commas, concatenated objects or arrays, and
// embedded comments. It never fails; when no JSON container can be found it
// returns the trimmed input so the caller's parse step decides what to do.
func RepairJSON(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return "{}"
	}

	cleaned := fencedJSONMarker.ReplaceAllString(raw, "")
	cleaned = fencedMarker.ReplaceAllString(cleaned, "")
	cleaned = strings.TrimSpace(cleaned)

	extracted, ok := extractContainer(cleaned)
	if !ok {
		return cleaned
	}

	extracted = objTrailingComma.ReplaceAllString(extracted, "}")
	extracted = arrTrailingComma.ReplaceAllString(extracted, "]")
	extracted = adjacentObjects.ReplaceAllString(extracted, "},{")
	extracted = adjacentArrays.ReplaceAllString(extracted, "],[")
	extracted = lineComment.ReplaceAllString(extracted, "")
	extracted = blockComment.ReplaceAllString(extracted, "")
	extracted = trailingComma.ReplaceAllString(extracted, "${1}")

	return strings.TrimSpace(extracted)
}

// extractContainer picks the outermost JSON span. The object span wins unless
// an array opens strictly earlier, which is the common shape when a model
// wraps an array answer in explanatory prose.
func extractContainer(s string) (string, bool) {
	objStart := strings.IndexByte(s, '{')
	objEnd := strings.LastIndexByte(s, '}')
	arrStart := strings.IndexByte(s, '[')
	arrEnd := strings.LastIndexByte(s, ']')

	switch {
	case objStart != -1 && objEnd > objStart && (arrStart == -1 || objStart < arrStart):
		return s[objStart : objEnd+1], true
	case arrStart != -1 && arrEnd > arrStart:
		return s[arrStart : arrEnd+1], true
	default:
		return "", false
	}
}
