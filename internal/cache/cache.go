package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mohammad-safakhou/notesmith/internal/notes"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "notesmith"

// Cache stores acquired transcripts and finished note documents in Redis so
// repeat requests for the same video skip the expensive work. Misses are
// reported as (zero, false, nil); only transport failures surface as errors.
type Cache struct {
	rdb *redis.Client
	ttl time.Duration
}

// New creates a cache around an existing Redis client.
func New(rdb *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Cache{rdb: rdb, ttl: ttl}
}

func transcriptKey(videoURL string) string {
	sum := sha256.Sum256([]byte(videoURL))
	return fmt.Sprintf("%s:transcript:%s", keyPrefix, hex.EncodeToString(sum[:]))
}

func notesKey(videoURL, language string) string {
	sum := sha256.Sum256([]byte(videoURL + "|" + strings.ToLower(language)))
	return fmt.Sprintf("%s:notes:%s", keyPrefix, hex.EncodeToString(sum[:]))
}

// GetTranscript returns a cached transcript for the video URL.
func (c *Cache) GetTranscript(ctx context.Context, videoURL string) (string, bool, error) {
	val, err := c.rdb.Get(ctx, transcriptKey(videoURL)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("get transcript: %w", err)
	}
	return val, true, nil
}

// SetTranscript stores a transcript with the cache TTL.
func (c *Cache) SetTranscript(ctx context.Context, videoURL, transcript string) error {
	if err := c.rdb.Set(ctx, transcriptKey(videoURL), transcript, c.ttl).Err(); err != nil {
		return fmt.Errorf("set transcript: %w", err)
	}
	return nil
}

// GetNotes returns a cached notes response for (video URL, language).
func (c *Cache) GetNotes(ctx context.Context, videoURL, language string) (notes.NotesResponse, bool, error) {
	raw, err := c.rdb.Get(ctx, notesKey(videoURL, language)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return notes.NotesResponse{}, false, nil
		}
		return notes.NotesResponse{}, false, fmt.Errorf("get notes: %w", err)
	}

	var resp notes.NotesResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return notes.NotesResponse{}, false, fmt.Errorf("decode cached notes: %w", err)
	}
	return resp, true, nil
}

// SetNotes stores a finished notes response with the cache TTL.
func (c *Cache) SetNotes(ctx context.Context, videoURL, language string, resp notes.NotesResponse) error {
	raw, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("encode notes: %w", err)
	}
	if err := c.rdb.Set(ctx, notesKey(videoURL, language), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("set notes: %w", err)
	}
	return nil
}
