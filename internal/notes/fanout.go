package notes

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// GenerateAll dispatches one content-generation task per extracted topic over
// the bounded worker pool and collects exactly one result per input topic,
// indexed by input position. Order of the returned slice always matches the
// input order; completion order is irrelevant. A task that times out or whose
// slot cannot be filled gets placeholder content instead of aborting the
// batch, and a late completion is discarded.
func (g *Generator) GenerateAll(ctx context.Context, topics []TopicStructure, transcript, language string) []TopicContent {
	results := make([]TopicContent, len(topics))

	var wg sync.WaitGroup
	for i, topic := range topics {
		wg.Add(1)
		go func(i int, topic TopicStructure) {
			defer wg.Done()
			results[i] = g.generateWithTimeout(ctx, topic, transcript, language)
		}(i, topic)
	}
	wg.Wait()

	return results
}

// generateWithTimeout runs one content task under a semaphore slot and a
// per-task deadline. The inner goroutine writes to a buffered channel so a
// late result is dropped without leaking the goroutine; cancelling taskCtx
// also abandons the in-flight backend call.
func (g *Generator) generateWithTimeout(ctx context.Context, topic TopicStructure, transcript, language string) TopicContent {
	select {
	case g.semaphore <- struct{}{}:
	case <-ctx.Done():
		return PlaceholderContent(topic)
	}

	taskCtx, cancel := context.WithTimeout(ctx, g.opts.TopicTimeout)
	defer cancel()

	taskCtx, span := pipelineTracer.Start(taskCtx, "notes.generate_content",
		trace.WithAttributes(attribute.String("topic", topic.MainTopic)))
	defer span.End()

	done := make(chan TopicContent, 1)
	g.inflight.Add(1)
	go func() {
		defer g.inflight.Done()
		defer func() { <-g.semaphore }()
		done <- g.GenerateContent(taskCtx, topic, transcript, language)
	}()

	select {
	case tc := <-done:
		return tc
	case <-taskCtx.Done():
		g.logger.Printf("content generation for %q timed out, using placeholder", topic.MainTopic)
		return PlaceholderContent(topic)
	}
}
