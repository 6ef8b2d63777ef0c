package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/mohammad-safakhou/notesmith/internal/cache"
	"github.com/mohammad-safakhou/notesmith/internal/notes"
	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	tcRedis "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestCacheRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	redisC, err := tcRedis.RunContainer(ctx, testcontainers.WithWaitStrategy(wait.ForListeningPort("6379/tcp")))
	if err != nil {
		t.Fatalf("redis container: %v", err)
	}
	defer func() { _ = redisC.Terminate(ctx) }()

	host, err := redisC.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := redisC.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{Addr: host + ":" + port.Port()})
	defer rdb.Close()

	c := cache.New(rdb, time.Minute)
	videoURL := "https://youtube.com/watch?v=abc123"

	if _, ok, err := c.GetTranscript(ctx, videoURL); err != nil || ok {
		t.Fatalf("expected clean miss, got ok=%v err=%v", ok, err)
	}
	if err := c.SetTranscript(ctx, videoURL, "a transcript"); err != nil {
		t.Fatalf("SetTranscript: %v", err)
	}
	got, ok, err := c.GetTranscript(ctx, videoURL)
	if err != nil || !ok || got != "a transcript" {
		t.Fatalf("expected cached transcript, got %q ok=%v err=%v", got, ok, err)
	}

	resp := notes.NotesResponse{
		Topics: []notes.TopicContent{{
			Title: "T",
			Subtopics: []notes.SubtopicContent{{
				Title:  "s",
				Images: []notes.ImagePlaceholder{},
				Tables: []notes.TableData{},
			}},
		}},
		Language: "English",
		Status:   notes.StatusSuccess,
	}
	if err := c.SetNotes(ctx, videoURL, "English", resp); err != nil {
		t.Fatalf("SetNotes: %v", err)
	}
	cached, ok, err := c.GetNotes(ctx, videoURL, "English")
	if err != nil || !ok {
		t.Fatalf("expected cached notes, got ok=%v err=%v", ok, err)
	}
	if cached.Status != notes.StatusSuccess || len(cached.Topics) != 1 {
		t.Fatalf("cached notes corrupted: %+v", cached)
	}

	// Different language is a distinct cache entry.
	if _, ok, _ := c.GetNotes(ctx, videoURL, "Spanish"); ok {
		t.Fatalf("expected miss for other language")
	}
}
