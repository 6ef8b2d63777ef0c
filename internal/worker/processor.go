package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/mohammad-safakhou/notesmith/internal/notes"
	"github.com/mohammad-safakhou/notesmith/internal/queue/streams"
	"github.com/mohammad-safakhou/notesmith/internal/store"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// StoreAPI captures the store methods the worker needs.
type StoreAPI interface {
	MarkJobRunning(ctx context.Context, id string) error
	FinishJob(ctx context.Context, id, status, errMsg, noteID string) error
	SaveNote(ctx context.Context, videoURL, language, status string, topics []byte) (string, error)
}

// NotesGenerator is the pipeline entry point the worker drives.
type NotesGenerator interface {
	GenerateNotes(ctx context.Context, transcript, language string) notes.NotesResponse
}

// TranscriptAcquirer fetches a transcript for a video URL.
type TranscriptAcquirer interface {
	Acquire(ctx context.Context, videoURL string) (string, error)
}

// TranscriptCache is the optional transcript/notes cache.
type TranscriptCache interface {
	GetTranscript(ctx context.Context, videoURL string) (string, bool, error)
	SetTranscript(ctx context.Context, videoURL, transcript string) error
	SetNotes(ctx context.Context, videoURL, language string, resp notes.NotesResponse) error
}

// Indexer adds finished notes to the search index.
type Indexer interface {
	IndexNotes(id, videoURL string, resp notes.NotesResponse) error
}

// MessageSource abstracts the Redis Streams consumer for tests.
type MessageSource interface {
	Read(ctx context.Context, stream string, opts ...streams.ConsumerOption) ([]streams.Message, error)
	Ack(ctx context.Context, stream string, ids ...string) error
}

// JobPayload mirrors the JSON payload published to the notes stream. A
// non-empty Transcript skips acquisition (the HTTP layer accepts inline
// transcripts).
type JobPayload struct {
	JobID      string `json:"job_id"`
	VideoURL   string `json:"video_url"`
	Language   string `json:"language"`
	Transcript string `json:"transcript,omitempty"`
}

// Processor consumes notes.enqueued events, runs the generation pipeline and
// persists the outcome. It acks every message it decodes; a failed job is
// recorded on the job row, not redelivered.
type Processor struct {
	logger      *log.Logger
	store       StoreAPI
	generator   NotesGenerator
	transcripts TranscriptAcquirer
	cache       TranscriptCache
	index       Indexer
	source      MessageSource
	stream      string
	tracer      trace.Tracer

	jobCounter otelmetric.Int64Counter
}

// NewProcessor constructs a Processor. cache and index may be nil.
func NewProcessor(logger *log.Logger, st StoreAPI, gen NotesGenerator, tr TranscriptAcquirer, cache TranscriptCache, idx Indexer, source MessageSource, stream string) *Processor {
	if logger == nil {
		logger = log.New(log.Writer(), "[WORKER] ", log.LstdFlags)
	}
	p := &Processor{
		logger:      logger,
		store:       st,
		generator:   gen,
		transcripts: tr,
		cache:       cache,
		index:       idx,
		source:      source,
		stream:      stream,
		tracer:      otel.Tracer("notesmith/internal/worker"),
	}
	meter := otel.Meter("worker")
	var err error
	p.jobCounter, err = meter.Int64Counter("worker_jobs_processed")
	if err != nil {
		logger.Printf("warn: create job counter failed: %v", err)
	}
	return p
}

// Start blocks, continuously consuming the notes stream until the context is
// cancelled.
func (p *Processor) Start(ctx context.Context) error {
	p.logger.Printf("worker processor starting; consuming stream %s", p.stream)

	for {
		select {
		case <-ctx.Done():
			p.logger.Printf("worker processor stopping: %v", ctx.Err())
			return nil
		default:
		}

		msgs, err := p.source.Read(ctx, p.stream, streams.WithBlock(5*time.Second), streams.WithCount(16))
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			p.logger.Printf("error reading stream: %v", err)
			time.Sleep(time.Second)
			continue
		}

		for _, msg := range msgs {
			if err := p.handleMessage(ctx, msg); err != nil {
				p.logger.Printf("error handling message %s: %v", msg.ID, err)
			}
			if err := p.source.Ack(ctx, p.stream, msg.ID); err != nil {
				p.logger.Printf("error acking message %s: %v", msg.ID, err)
			}
		}
	}
}

func (p *Processor) handleMessage(ctx context.Context, msg streams.Message) error {
	if msg.Envelope.EventType != streams.EventNotesEnqueued {
		return fmt.Errorf("unexpected event type %q", msg.Envelope.EventType)
	}

	var payload JobPayload
	if err := json.Unmarshal(msg.Envelope.Data, &payload); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	if payload.JobID == "" {
		return fmt.Errorf("payload missing job_id")
	}

	ctx, span := p.tracer.Start(ctx, "worker.process_job",
		trace.WithAttributes(attribute.String("job_id", payload.JobID)))
	defer span.End()

	if err := p.store.MarkJobRunning(ctx, payload.JobID); err != nil {
		return err
	}

	noteID, err := p.runJob(ctx, payload)
	status := store.JobStatusSucceeded
	errMsg := ""
	if err != nil {
		status = store.JobStatusFailed
		errMsg = err.Error()
		p.logger.Printf("job %s failed: %v", payload.JobID, err)
	}
	if p.jobCounter != nil {
		p.jobCounter.Add(ctx, 1, otelmetric.WithAttributes(attribute.String("status", status)))
	}
	return p.store.FinishJob(ctx, payload.JobID, status, errMsg, noteID)
}

// runJob acquires the transcript, runs the pipeline and persists the result,
// returning the saved note id.
func (p *Processor) runJob(ctx context.Context, payload JobPayload) (string, error) {
	transcript := payload.Transcript
	if transcript == "" {
		var err error
		transcript, err = p.acquireTranscript(ctx, payload.VideoURL)
		if err != nil {
			return "", err
		}
	}

	resp := p.generator.GenerateNotes(ctx, transcript, payload.Language)
	resp.VideoURL = payload.VideoURL

	topics, err := json.Marshal(resp.Topics)
	if err != nil {
		return "", fmt.Errorf("encode topics: %w", err)
	}
	noteID, err := p.store.SaveNote(ctx, payload.VideoURL, resp.Language, resp.Status, topics)
	if err != nil {
		return "", err
	}

	if p.index != nil {
		if err := p.index.IndexNotes(noteID, payload.VideoURL, resp); err != nil {
			p.logger.Printf("warn: indexing note %s failed: %v", noteID, err)
		}
	}
	if p.cache != nil && payload.VideoURL != "" {
		if err := p.cache.SetNotes(ctx, payload.VideoURL, resp.Language, resp); err != nil {
			p.logger.Printf("warn: caching notes for %s failed: %v", payload.VideoURL, err)
		}
	}
	return noteID, nil
}

func (p *Processor) acquireTranscript(ctx context.Context, videoURL string) (string, error) {
	if videoURL == "" {
		return "", fmt.Errorf("job has neither transcript nor video url")
	}

	if p.cache != nil {
		if cached, ok, err := p.cache.GetTranscript(ctx, videoURL); err != nil {
			p.logger.Printf("warn: transcript cache lookup failed: %v", err)
		} else if ok {
			return cached, nil
		}
	}

	transcript, err := p.transcripts.Acquire(ctx, videoURL)
	if err != nil {
		return "", fmt.Errorf("acquire transcript: %w", err)
	}

	if p.cache != nil {
		if err := p.cache.SetTranscript(ctx, videoURL, transcript); err != nil {
			p.logger.Printf("warn: caching transcript failed: %v", err)
		}
	}
	return transcript, nil
}
