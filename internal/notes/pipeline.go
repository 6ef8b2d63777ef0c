package notes

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/mohammad-safakhou/notesmith/internal/telemetry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Backend is the text-generation service boundary. A blank response is a
// retryable condition handled by the stages, not an error.
type Backend interface {
	Generate(ctx context.Context, model, prompt string) (string, error)
}

// Corrector is the optional spell-correction collaborator. Implementations
// never fail; on any internal problem they return the input unchanged.
type Corrector interface {
	Correct(ctx context.Context, text, language string) string
}

// Fixed copy used by the fallback tiers.
const (
	fallbackTitle = "Video Notes"

	simpleNotesDescription = "Generated notes from video transcript"
	emergencyDescription   = "Raw transcript from video"

	// emergencyTranscriptLimit bounds the transcript echoed by the last
	// tier, in runes.
	emergencyTranscriptLimit = 5000
)

var pipelineTracer trace.Tracer = otel.Tracer("notesmith/internal/notes")

// Options carries the pipeline tuning knobs, normally filled from config.
type Options struct {
	TopicModel   string
	ContentModel string
	SimpleModel  string

	TopicAttempts   int
	TopicBackoff    time.Duration
	ContentAttempts int

	Workers       int
	TopicTimeout  time.Duration
	ShutdownGrace time.Duration
}

// DefaultOptions returns the tuning the service ships with.
func DefaultOptions() Options {
	return Options{
		TopicModel:      "llama3",
		ContentModel:    "llama3",
		SimpleModel:     "llama3",
		TopicAttempts:   3,
		TopicBackoff:    2 * time.Second,
		ContentAttempts: 2,
		Workers:         5,
		TopicTimeout:    5 * time.Minute,
		ShutdownGrace:   60 * time.Second,
	}
}

// Generator runs the note-synthesis pipeline: topic extraction, concurrent
// per-topic content generation, and the tiered fallback cascade. It owns the
// worker pool; construct one per process and Shutdown it on teardown.
type Generator struct {
	backend   Backend
	corrector Corrector
	telemetry *telemetry.Telemetry
	logger    *log.Logger
	opts      Options

	semaphore chan struct{}
	inflight  sync.WaitGroup
}

// NewGenerator creates a Generator. telemetry may be nil; corrector is wired
// separately via SetCorrector because it depends on the same backend.
func NewGenerator(backend Backend, opts Options, tele *telemetry.Telemetry, logger *log.Logger) *Generator {
	if opts.TopicAttempts < 1 {
		opts.TopicAttempts = 1
	}
	if opts.ContentAttempts < 1 {
		opts.ContentAttempts = 1
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.TopicTimeout <= 0 {
		opts.TopicTimeout = 5 * time.Minute
	}
	if logger == nil {
		logger = log.New(log.Writer(), "[PIPELINE] ", log.LstdFlags)
	}
	return &Generator{
		backend:   backend,
		telemetry: tele,
		logger:    logger,
		opts:      opts,
		semaphore: make(chan struct{}, opts.Workers),
	}
}

// SetCorrector wires the optional spell-correction collaborator.
func (g *Generator) SetCorrector(c Corrector) {
	g.corrector = c
}

// GenerateNotes is the pipeline entry point. It never returns an error: each
// tier of the cascade absorbs the failures of the tier above it, and the
// terminal tier performs no I/O at all. The response status records how far
// the cascade degraded.
func (g *Generator) GenerateNotes(ctx context.Context, transcript, language string) NotesResponse {
	start := time.Now()
	ctx, span := pipelineTracer.Start(ctx, "notes.generate",
		trace.WithAttributes(attribute.Int("transcript_length", len(transcript))))
	defer span.End()

	if g.corrector != nil {
		transcript = g.corrector.Correct(ctx, transcript, language)
	}

	resp := g.tierOne(ctx, transcript, language)
	span.SetAttributes(attribute.String("status", resp.Status))
	g.telemetry.RecordGeneration(resp.Status, time.Since(start))
	return resp
}

// tierOne runs structured generation: extraction then fan-out. Any
// extraction failure hands the run to tier two.
func (g *Generator) tierOne(ctx context.Context, transcript, language string) NotesResponse {
	topics, err := g.ExtractTopics(ctx, transcript, language)
	if err != nil || len(topics) == 0 {
		g.logger.Printf("structured generation unavailable (%v), degrading to simple notes", err)
		g.telemetry.RecordTier(StatusFallback)
		return g.tierTwo(ctx, transcript, language)
	}

	return NotesResponse{
		Topics:   g.GenerateAll(ctx, topics, transcript, language),
		Language: language,
		Status:   StatusSuccess,
	}
}

// tierTwo issues a single unstructured-notes call and wraps the raw text as
// one topic. A backend failure here hands the run to the terminal tier.
func (g *Generator) tierTwo(ctx context.Context, transcript, language string) NotesResponse {
	prompt := SimpleNotesPrompt(transcript, language)
	raw, err := g.backend.Generate(ctx, g.opts.SimpleModel, prompt)
	g.telemetry.RecordBackendCall("simple", g.opts.SimpleModel, len(prompt), len(raw), err)
	if err != nil || strings.TrimSpace(raw) == "" {
		g.logger.Printf("simple notes generation failed (%v), degrading to transcript echo", err)
		g.telemetry.RecordTier(StatusEmergencyFallback)
		return g.tierThree(transcript, language)
	}

	return NotesResponse{
		Topics: []TopicContent{{
			Title: fallbackTitle,
			Subtopics: []SubtopicContent{{
				Title:       "Summary",
				Description: simpleNotesDescription,
				Content:     strings.TrimSpace(raw),
				Images:      []ImagePlaceholder{},
				Tables:      []TableData{},
			}},
		}},
		Language: language,
		Status:   StatusFallback,
	}
}

// tierThree echoes a bounded prefix of the transcript. It performs no I/O
// and cannot fail.
func (g *Generator) tierThree(transcript, language string) NotesResponse {
	content := transcript
	if utf8.RuneCountInString(content) > emergencyTranscriptLimit {
		content = truncateRunes(content, emergencyTranscriptLimit)
	}

	return NotesResponse{
		Topics: []TopicContent{{
			Title: fallbackTitle,
			Subtopics: []SubtopicContent{{
				Title:       "Transcript",
				Description: emergencyDescription,
				Content:     content,
				Images:      []ImagePlaceholder{},
				Tables:      []TableData{},
			}},
		}},
		Language: language,
		Status:   StatusEmergencyFallback,
	}
}

// Shutdown drains in-flight content tasks, waiting up to the configured
// grace period before giving up on stragglers.
func (g *Generator) Shutdown(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		g.inflight.Wait()
		close(done)
	}()

	grace := g.opts.ShutdownGrace
	if grace <= 0 {
		grace = 60 * time.Second
	}
	select {
	case <-done:
	case <-time.After(grace):
		g.logger.Printf("shutdown grace period elapsed with tasks still in flight")
	case <-ctx.Done():
	}
}
