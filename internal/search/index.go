package search

import (
	"fmt"
	"os"
	"strings"

	"github.com/blevesearch/bleve"
	"github.com/mohammad-safakhou/notesmith/internal/notes"
)

// Document is the flattened form of a note document stored in the index.
type Document struct {
	VideoURL string `json:"video_url"`
	Language string `json:"language"`
	Status   string `json:"status"`
	Title    string `json:"title"`
	Body     string `json:"body"`
}

// Hit is one search result.
type Hit struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"`
	Title string  `json:"title"`
}

// Index wraps a bleve full-text index over generated note documents.
type Index struct {
	idx bleve.Index
}

// Open opens the index at path, creating it when absent. An empty path
// builds a memory-only index, which tests use.
func Open(path string) (*Index, error) {
	mapping := bleve.NewIndexMapping()
	if path == "" {
		idx, err := bleve.NewMemOnly(mapping)
		if err != nil {
			return nil, fmt.Errorf("open mem index: %w", err)
		}
		return &Index{idx: idx}, nil
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		idx, err := bleve.New(path, mapping)
		if err != nil {
			return nil, fmt.Errorf("create index: %w", err)
		}
		return &Index{idx: idx}, nil
	}

	idx, err := bleve.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}
	return &Index{idx: idx}, nil
}

// IndexNotes flattens a notes response into one searchable document.
func (i *Index) IndexNotes(id, videoURL string, resp notes.NotesResponse) error {
	var titles, bodies []string
	for _, topic := range resp.Topics {
		titles = append(titles, topic.Title)
		for _, sub := range topic.Subtopics {
			titles = append(titles, sub.Title)
			bodies = append(bodies, sub.Description, sub.Content)
		}
	}

	doc := Document{
		VideoURL: videoURL,
		Language: resp.Language,
		Status:   resp.Status,
		Title:    strings.Join(titles, " · "),
		Body:     strings.Join(bodies, "\n"),
	}
	if err := i.idx.Index(id, doc); err != nil {
		return fmt.Errorf("index notes: %w", err)
	}
	return nil
}

// DocCount reports the number of indexed note documents.
func (i *Index) DocCount() (uint64, error) {
	return i.idx.DocCount()
}

// Delete removes a document from the index.
func (i *Index) Delete(id string) error {
	if err := i.idx.Delete(id); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return nil
}

// Search runs a match query over titles and bodies and returns up to limit
// hits ordered by score.
func (i *Index) Search(q string, limit int) ([]Hit, error) {
	if limit <= 0 {
		limit = 10
	}
	req := bleve.NewSearchRequestOptions(bleve.NewMatchQuery(q), limit, 0, false)
	req.Fields = []string{"title"}

	res, err := i.idx.Search(req)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	hits := make([]Hit, 0, len(res.Hits))
	for _, h := range res.Hits {
		hit := Hit{ID: h.ID, Score: h.Score}
		if title, ok := h.Fields["title"].(string); ok {
			hit.Title = title
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

// Close releases the underlying index.
func (i *Index) Close() error {
	return i.idx.Close()
}
