package server

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/mohammad-safakhou/notesmith/internal/notes"
	"github.com/mohammad-safakhou/notesmith/internal/search"
)

func TestSearchEndpoint(t *testing.T) {
	idx, err := search.Open("")
	if err != nil {
		t.Fatalf("open index: %v", err)
	}
	defer idx.Close()

	err = idx.IndexNotes("note-1", "https://youtube.com/watch?v=x", notes.NotesResponse{
		Topics: []notes.TopicContent{{
			Title: "Goroutines",
			Subtopics: []notes.SubtopicContent{{
				Title:       "Channels",
				Description: "Communicating between goroutines",
				Content:     "Channels carry typed values between concurrent functions.",
			}},
		}},
		Language: "English",
		Status:   notes.StatusSuccess,
	})
	if err != nil {
		t.Fatalf("index notes: %v", err)
	}

	h := &SearchHandler{Index: idx}
	rec := doJSON(t, h.search, http.MethodGet, "/api/v1/search?q=channels", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Query string       `json:"query"`
		Hits  []search.Hit `json:"hits"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Hits) != 1 || resp.Hits[0].ID != "note-1" {
		t.Fatalf("expected note-1 hit, got %+v", resp.Hits)
	}
}

func TestSearchRequiresQuery(t *testing.T) {
	idx, err := search.Open("")
	if err != nil {
		t.Fatalf("open index: %v", err)
	}
	defer idx.Close()

	h := &SearchHandler{Index: idx}
	rec := doJSON(t, h.search, http.MethodGet, "/api/v1/search", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}
