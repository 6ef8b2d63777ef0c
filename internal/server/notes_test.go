package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"
	"github.com/mohammad-safakhou/notesmith/internal/notes"
	"github.com/mohammad-safakhou/notesmith/internal/queue/streams"
	"github.com/mohammad-safakhou/notesmith/internal/store"
)

type stubGenerator struct {
	status string
	calls  int
}

func (s *stubGenerator) GenerateNotes(ctx context.Context, transcript, language string) notes.NotesResponse {
	s.calls++
	return notes.NotesResponse{
		Topics: []notes.TopicContent{{
			Title:     "Dependency Injection",
			Subtopics: []notes.SubtopicContent{},
		}},
		Language: language,
		Status:   s.status,
	}
}

type stubTranscripts struct {
	transcript string
	err        error
	calls      int
}

func (s *stubTranscripts) Acquire(ctx context.Context, videoURL string) (string, error) {
	s.calls++
	return s.transcript, s.err
}

type stubPublisher struct {
	stream    string
	eventType string
	payloads  []interface{}
	err       error
}

func (s *stubPublisher) PublishRaw(ctx context.Context, stream, eventType, version string, payload interface{}, opts ...streams.PublishOption) (string, error) {
	s.stream = stream
	s.eventType = eventType
	s.payloads = append(s.payloads, payload)
	return "1-0", s.err
}

func mockStore(t *testing.T) (*store.Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return &store.Store{DB: db}, mock
}

func doJSON(t *testing.T, h echo.HandlerFunc, method, target, body string, pathParams ...string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	for i := 0; i+1 < len(pathParams); i += 2 {
		c.SetParamNames(pathParams[i])
		c.SetParamValues(pathParams[i+1])
	}
	if err := h(c); err != nil {
		e.HTTPErrorHandler(err, c)
	}
	return rec
}

func testLogger() *log.Logger {
	return log.New(log.Writer(), "[TEST] ", log.LstdFlags)
}

func TestGenerateInlineTranscript(t *testing.T) {
	st, mock := mockStore(t)
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO notes (video_url, language, status, topics) VALUES ($1,$2,$3,$4) RETURNING id`)).
		WithArgs("", "English", notes.StatusSuccess, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("note-1"))

	gen := &stubGenerator{status: notes.StatusSuccess}
	tr := &stubTranscripts{err: errors.New("should not be called")}
	h := &NotesHandler{Store: st, Generator: gen, Transcripts: tr, Logger: testLogger()}

	rec := doJSON(t, h.generate, http.MethodPost, "/api/v1/notes", `{"transcript":"Spring Boot dependency injection explained in depth."}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if tr.calls != 0 {
		t.Fatalf("acquirer must not run when transcript is inline")
	}

	var resp generateResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.ID != "note-1" || resp.Notes.Status != notes.StatusSuccess {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("store expectations: %v", err)
	}
}

func TestGenerateAcquisitionFailure(t *testing.T) {
	st, _ := mockStore(t)
	gen := &stubGenerator{status: notes.StatusSuccess}
	tr := &stubTranscripts{err: errors.New("no captions available")}
	h := &NotesHandler{Store: st, Generator: gen, Transcripts: tr, Logger: testLogger()}

	rec := doJSON(t, h.generate, http.MethodPost, "/api/v1/notes", `{"video_url":"https://youtube.com/watch?v=x"}`)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if gen.calls != 0 {
		t.Fatalf("pipeline must not run without a transcript")
	}

	var resp notes.NotesResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != notes.StatusError {
		t.Fatalf("expected status error, got %q", resp.Status)
	}
	if len(resp.Topics) != 1 || resp.Topics[0].Subtopics[0].Content != "Unable to generate content at this time." {
		t.Fatalf("unexpected error body: %+v", resp.Topics)
	}
}

func TestGenerateRejectsEmptyRequest(t *testing.T) {
	st, _ := mockStore(t)
	h := &NotesHandler{Store: st, Generator: &stubGenerator{}, Transcripts: &stubTranscripts{}, Logger: testLogger()}

	rec := doJSON(t, h.generate, http.MethodPost, "/api/v1/notes", `{}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestEnqueuePublishesJob(t *testing.T) {
	st, mock := mockStore(t)
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO jobs (video_url, language, status) VALUES ($1,$2,$3) RETURNING id`)).
		WithArgs("https://youtube.com/watch?v=x", "English", store.JobStatusPending).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("job-1"))

	pub := &stubPublisher{}
	h := &NotesHandler{Store: st, Publisher: pub, Stream: "notes.enqueued", Logger: testLogger()}

	rec := doJSON(t, h.enqueue, http.MethodPost, "/api/v1/notes/async", `{"video_url":"https://youtube.com/watch?v=x"}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["job_id"] != "job-1" {
		t.Fatalf("expected job id in response, got %+v", resp)
	}
	if pub.stream != "notes.enqueued" || pub.eventType != streams.EventNotesEnqueued {
		t.Fatalf("published to wrong stream/event: %q %q", pub.stream, pub.eventType)
	}
	if len(pub.payloads) != 1 {
		t.Fatalf("expected one published payload, got %d", len(pub.payloads))
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("store expectations: %v", err)
	}
}

func TestGetNoteNotFound(t *testing.T) {
	st, mock := mockStore(t)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, video_url, language, status, topics, created_at FROM notes WHERE id=$1`)).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id", "video_url", "language", "status", "topics", "created_at"}))

	h := &NotesHandler{Store: st, Logger: testLogger()}
	rec := doJSON(t, h.get, http.MethodGet, "/api/v1/notes/missing", "", "id", "missing")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
