package spell

import (
	"context"
	"fmt"
	"log"
	"strings"
)

const correctionTemplate = `You are a careful editor specialized in fixing spelling mistakes while preserving technical terms, code tokens, acronyms, names, and context.
INSTRUCTIONS:
- Correct obvious spelling mistakes, repeated letters, missing letters, and simple OCR errors.
- Preserve technical words, code snippets, commands, package names, class names, acronyms, and URLs exactly as they appear unless they are clearly misspelled.
- Maintain original sentence meaning and punctuation where possible.
- Output only the corrected transcript (plain text), no explanations, no JSON, no extra commentary.
LANGUAGE: %s

TRANSCRIPT:
%s`

// Generator is the backend slice the corrector needs.
type Generator interface {
	Generate(ctx context.Context, model, prompt string) (string, error)
}

// Corrector performs context-aware spell correction over a transcript via
// the generation backend. It honors the collaborator contract: it never
// fails, returning the original text on any backend problem or empty reply.
type Corrector struct {
	backend Generator
	model   string
	logger  *log.Logger
}

// New creates a Corrector using the given model.
func New(backend Generator, model string, logger *log.Logger) *Corrector {
	if logger == nil {
		logger = log.New(log.Writer(), "[SPELL] ", log.LstdFlags)
	}
	return &Corrector{backend: backend, model: model, logger: logger}
}

// Correct returns the corrected transcript, or the input unchanged when the
// backend errors or replies blank.
func (c *Corrector) Correct(ctx context.Context, text, language string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}

	lang := language
	if strings.TrimSpace(lang) == "" {
		lang = "English"
	}

	resp, err := c.backend.Generate(ctx, c.model, fmt.Sprintf(correctionTemplate, lang, text))
	if err != nil {
		c.logger.Printf("spell correction failed, keeping original transcript: %v", err)
		return text
	}
	if strings.TrimSpace(resp) == "" {
		c.logger.Printf("spell correction returned empty, keeping original transcript")
		return text
	}
	return strings.TrimSpace(resp)
}
