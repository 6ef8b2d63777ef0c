package transcript

import (
	"regexp"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

// MinUsableLength is the shortest transcript worth feeding to the pipeline.
// Anything shorter is treated as missing so acquisition falls through to
// speech-to-text.
const MinUsableLength = 100

// Subtitle cleanup patterns: WEBVTT headers, cue timestamps in both VTT and
// SRT shapes, inline timing tags, and any leftover markup tags.
var (
	webvttHeader   = regexp.MustCompile(`(?m)^WEBVTT.*\n`)
	kindHeader     = regexp.MustCompile(`(?m)^Kind:.*\n`)
	languageHeader = regexp.MustCompile(`(?m)^Language:.*\n`)
	vttTimestamp   = regexp.MustCompile(`\d{2}:\d{2}:\d{2}\.\d{3} --> \d{2}:\d{2}:\d{2}\.\d{3}`)
	inlineTiming   = regexp.MustCompile(`<\d{2}:\d{2}:\d{2}\.\d{3}>`)
	srtCue         = regexp.MustCompile(`\d+\n\d{2}:\d{2}:\d{2},\d{3} --> \d{2}:\d{2}:\d{2},\d{3}`)
	markupTag      = regexp.MustCompile(`<[^>]+>`)
	blankRuns      = regexp.MustCompile(`\n{3,}`)
)

var (
	strictPolicyOnce sync.Once
	strictPolicy     *bluemonday.Policy
)

func strictHTMLPolicy() *bluemonday.Policy {
	strictPolicyOnce.Do(func() {
		strictPolicy = bluemonday.StrictPolicy()
	})
	return strictPolicy
}

// CleanCaptions strips subtitle-format scaffolding from downloaded captions
// and collapses the result to readable prose.
func CleanCaptions(raw string) string {
	s := webvttHeader.ReplaceAllString(raw, "")
	s = kindHeader.ReplaceAllString(s, "")
	s = languageHeader.ReplaceAllString(s, "")
	s = vttTimestamp.ReplaceAllString(s, "")
	s = inlineTiming.ReplaceAllString(s, "")
	s = srtCue.ReplaceAllString(s, "")
	s = markupTag.ReplaceAllString(s, "")
	s = blankRuns.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// CleanHTML strips every HTML element from article text, leaving plain prose.
func CleanHTML(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	return strings.TrimSpace(strictHTMLPolicy().Sanitize(raw))
}

// Usable reports whether a cleaned transcript is long enough to work with.
func Usable(s string) bool {
	return len(strings.TrimSpace(s)) >= MinUsableLength
}
