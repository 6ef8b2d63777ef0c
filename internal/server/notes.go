package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/mohammad-safakhou/notesmith/internal/notes"
	"github.com/mohammad-safakhou/notesmith/internal/queue/streams"
	"github.com/mohammad-safakhou/notesmith/internal/store"
	"github.com/mohammad-safakhou/notesmith/internal/worker"
)

// Generator is the pipeline slice the HTTP layer drives.
type Generator interface {
	GenerateNotes(ctx context.Context, transcript, language string) notes.NotesResponse
}

// TranscriptSource acquires a transcript for a video URL.
type TranscriptSource interface {
	Acquire(ctx context.Context, videoURL string) (string, error)
}

// NotesCache is the optional transcript/notes cache.
type NotesCache interface {
	GetTranscript(ctx context.Context, videoURL string) (string, bool, error)
	SetTranscript(ctx context.Context, videoURL, transcript string) error
	GetNotes(ctx context.Context, videoURL, language string) (notes.NotesResponse, bool, error)
	SetNotes(ctx context.Context, videoURL, language string, resp notes.NotesResponse) error
}

// Indexer adds finished notes to the search index.
type Indexer interface {
	IndexNotes(id, videoURL string, resp notes.NotesResponse) error
}

// Enqueuer publishes job payloads onto the notes stream.
type Enqueuer interface {
	PublishRaw(ctx context.Context, stream, eventType, version string, payload interface{}, opts ...streams.PublishOption) (string, error)
}

// NotesHandler serves synchronous and asynchronous note generation plus
// retrieval of persisted documents.
type NotesHandler struct {
	Store       *store.Store
	Generator   Generator
	Transcripts TranscriptSource
	Cache       NotesCache
	Index       Indexer
	Publisher   Enqueuer
	Stream      string
	MaxLen      int64
	Logger      *log.Logger
}

type generateRequest struct {
	VideoURL   string `json:"video_url"`
	Transcript string `json:"transcript"`
	Language   string `json:"language"`
}

type generateResponse struct {
	ID    string              `json:"id,omitempty"`
	Notes notes.NotesResponse `json:"notes"`
}

// Register mounts the notes routes on the API group.
func (h *NotesHandler) Register(g *echo.Group) {
	g.POST("/notes", h.generate)
	g.POST("/notes/async", h.enqueue)
	g.GET("/notes", h.list)
	g.GET("/notes/:id", h.get)
}

// generate runs the pipeline synchronously and persists the result. A
// transcript acquisition failure is the one case the cascade cannot absorb,
// reported as status "error" with a 500.
func (h *NotesHandler) generate(c echo.Context) error {
	var req generateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	req.Language = normalizeLanguage(req.Language)
	if strings.TrimSpace(req.VideoURL) == "" && strings.TrimSpace(req.Transcript) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "video_url or transcript is required")
	}

	ctx := c.Request().Context()

	if h.Cache != nil && req.VideoURL != "" {
		if cached, ok, err := h.Cache.GetNotes(ctx, req.VideoURL, req.Language); err != nil {
			h.Logger.Printf("warn: notes cache lookup failed: %v", err)
		} else if ok {
			return c.JSON(http.StatusOK, generateResponse{Notes: cached})
		}
	}

	transcript := req.Transcript
	if strings.TrimSpace(transcript) == "" {
		var err error
		transcript, err = h.acquireTranscript(ctx, req.VideoURL)
		if err != nil {
			h.Logger.Printf("transcript acquisition failed for %s: %v", req.VideoURL, err)
			return c.JSON(http.StatusInternalServerError, errorNotes(req.Language, err))
		}
	}

	resp := h.Generator.GenerateNotes(ctx, transcript, req.Language)
	resp.VideoURL = req.VideoURL

	topics, err := json.Marshal(resp.Topics)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "encode topics")
	}
	id, err := h.Store.SaveNote(ctx, req.VideoURL, resp.Language, resp.Status, topics)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	if h.Index != nil {
		if err := h.Index.IndexNotes(id, req.VideoURL, resp); err != nil {
			h.Logger.Printf("warn: indexing note %s failed: %v", id, err)
		}
	}
	if h.Cache != nil && req.VideoURL != "" {
		if err := h.Cache.SetNotes(ctx, req.VideoURL, resp.Language, resp); err != nil {
			h.Logger.Printf("warn: caching notes for %s failed: %v", req.VideoURL, err)
		}
	}

	return c.JSON(http.StatusCreated, generateResponse{ID: id, Notes: resp})
}

// enqueue records a pending job and publishes it for the worker pool.
func (h *NotesHandler) enqueue(c echo.Context) error {
	var req generateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	req.Language = normalizeLanguage(req.Language)
	if strings.TrimSpace(req.VideoURL) == "" && strings.TrimSpace(req.Transcript) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "video_url or transcript is required")
	}

	ctx := c.Request().Context()
	jobID, err := h.Store.CreateJob(ctx, req.VideoURL, req.Language)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	payload := worker.JobPayload{
		JobID:      jobID,
		VideoURL:   req.VideoURL,
		Language:   req.Language,
		Transcript: req.Transcript,
	}
	if _, err := h.Publisher.PublishRaw(ctx, h.Stream, streams.EventNotesEnqueued, "v1", payload, streams.WithMaxLenApprox(h.MaxLen)); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusAccepted, map[string]string{"job_id": jobID})
}

func (h *NotesHandler) get(c echo.Context) error {
	rec, err := h.Store.GetNote(c.Request().Context(), c.Param("id"))
	if errors.Is(err, store.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "note not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	var topics []notes.TopicContent
	if len(rec.Topics) > 0 {
		if err := json.Unmarshal(rec.Topics, &topics); err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "decode stored topics")
		}
	}
	return c.JSON(http.StatusOK, generateResponse{
		ID: rec.ID,
		Notes: notes.NotesResponse{
			Topics:   topics,
			VideoURL: rec.VideoURL,
			Language: rec.Language,
			Status:   rec.Status,
		},
	})
}

func (h *NotesHandler) list(c echo.Context) error {
	limit := 50
	if raw := c.QueryParam("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}
	recs, err := h.Store.ListNotes(c.Request().Context(), limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	type item struct {
		ID        string `json:"id"`
		VideoURL  string `json:"video_url"`
		Language  string `json:"language"`
		Status    string `json:"status"`
		CreatedAt string `json:"created_at"`
	}
	out := make([]item, 0, len(recs))
	for _, rec := range recs {
		out = append(out, item{
			ID:        rec.ID,
			VideoURL:  rec.VideoURL,
			Language:  rec.Language,
			Status:    rec.Status,
			CreatedAt: rec.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"notes": out})
}

func (h *NotesHandler) acquireTranscript(ctx context.Context, videoURL string) (string, error) {
	if h.Cache != nil {
		if cached, ok, err := h.Cache.GetTranscript(ctx, videoURL); err != nil {
			h.Logger.Printf("warn: transcript cache lookup failed: %v", err)
		} else if ok {
			return cached, nil
		}
	}

	transcript, err := h.Transcripts.Acquire(ctx, videoURL)
	if err != nil {
		return "", err
	}

	if h.Cache != nil {
		if err := h.Cache.SetTranscript(ctx, videoURL, transcript); err != nil {
			h.Logger.Printf("warn: caching transcript failed: %v", err)
		}
	}
	return transcript, nil
}

// errorNotes is the response for failures upstream of the pipeline, which the
// cascade never sees and therefore cannot absorb.
func errorNotes(language string, err error) notes.NotesResponse {
	return notes.NotesResponse{
		Topics: []notes.TopicContent{{
			Title: "Video Notes",
			Subtopics: []notes.SubtopicContent{{
				Title:       "Summary",
				Description: "Content not available",
				Content:     "Unable to generate content at this time.",
				Images:      []notes.ImagePlaceholder{},
				Tables:      []notes.TableData{},
			}},
		}},
		Language: language,
		Status:   notes.StatusError,
		Error:    err.Error(),
	}
}

func normalizeLanguage(lang string) string {
	if strings.TrimSpace(lang) == "" {
		return "English"
	}
	return lang
}
