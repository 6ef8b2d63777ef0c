package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	_ "github.com/lib/pq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelmetric "go.opentelemetry.io/otel/metric"
)

// Store persists finished note documents and generation jobs in Postgres.
type Store struct {
	DB *sql.DB
}

// Job statuses persisted for async generation.
const (
	JobStatusPending   = "pending"
	JobStatusRunning   = "running"
	JobStatusSucceeded = "succeeded"
	JobStatusFailed    = "failed"
)

// ErrNotFound indicates the requested row does not exist.
var ErrNotFound = errors.New("not found")

// NoteRecord is a persisted note document. Topics holds the generated
// []TopicContent as JSON.
type NoteRecord struct {
	ID        string
	VideoURL  string
	Language  string
	Status    string
	Topics    []byte
	CreatedAt time.Time
}

// JobRecord tracks one async generation request through its lifecycle.
type JobRecord struct {
	ID        string
	VideoURL  string
	Language  string
	Status    string
	Error     string
	NoteID    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

var (
	metricsOnce    sync.Once
	noteCounter    otelmetric.Int64Counter
	jobCounter     otelmetric.Int64Counter
	metricsInitErr error
)

func initStoreMetrics() {
	meter := otel.Meter("store")
	var err error
	noteCounter, err = meter.Int64Counter("notes_saved_total")
	if err != nil {
		metricsInitErr = err
		return
	}
	jobCounter, err = meter.Int64Counter("jobs_finished_total")
	if err != nil {
		metricsInitErr = err
	}
}

// New constructs the Store from DATABASE_URL or POSTGRES_* environment
// variables.
func New(ctx context.Context) (*Store, error) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		host := getenvDefault("POSTGRES_HOST", "localhost")
		port := getenvDefault("POSTGRES_PORT", "5432")
		user := os.Getenv("POSTGRES_USER")
		pass := os.Getenv("POSTGRES_PASSWORD")
		db := os.Getenv("POSTGRES_DB")
		ssl := getenvDefault("POSTGRES_SSLMODE", "disable")
		dsn = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", user, pass, host, port, db, ssl)
	}
	return NewWithDSN(ctx, dsn)
}

// NewWithDSN constructs the Store using an explicit Postgres DSN. Schema is
// owned by migrations, not the store.
func NewWithDSN(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	metricsOnce.Do(initStoreMetrics)
	return &Store{DB: db}, nil
}

func getenvDefault(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

// Note operations

// SaveNote inserts a finished note document and returns its id.
func (s *Store) SaveNote(ctx context.Context, videoURL, language, status string, topics []byte) (string, error) {
	var id string
	err := s.DB.QueryRowContext(ctx, `INSERT INTO notes (video_url, language, status, topics) VALUES ($1,$2,$3,$4) RETURNING id`,
		videoURL, language, status, topics).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("save note: %w", err)
	}
	if noteCounter != nil {
		noteCounter.Add(ctx, 1, otelmetric.WithAttributes(attribute.String("status", status)))
	}
	return id, nil
}

// GetNote fetches one note document by id.
func (s *Store) GetNote(ctx context.Context, id string) (NoteRecord, error) {
	var rec NoteRecord
	err := s.DB.QueryRowContext(ctx, `SELECT id, video_url, language, status, topics, created_at FROM notes WHERE id=$1`, id).
		Scan(&rec.ID, &rec.VideoURL, &rec.Language, &rec.Status, &rec.Topics, &rec.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return NoteRecord{}, ErrNotFound
	}
	if err != nil {
		return NoteRecord{}, fmt.Errorf("get note: %w", err)
	}
	return rec, nil
}

// ListNotes returns the newest note documents, topics omitted to keep the
// listing light.
func (s *Store) ListNotes(ctx context.Context, limit int) ([]NoteRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.DB.QueryContext(ctx, `SELECT id, video_url, language, status, created_at FROM notes ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	defer rows.Close()

	var out []NoteRecord
	for rows.Next() {
		var rec NoteRecord
		if err := rows.Scan(&rec.ID, &rec.VideoURL, &rec.Language, &rec.Status, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan note: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Job operations

// CreateJob inserts a pending generation job and returns its id.
func (s *Store) CreateJob(ctx context.Context, videoURL, language string) (string, error) {
	var id string
	err := s.DB.QueryRowContext(ctx, `INSERT INTO jobs (video_url, language, status) VALUES ($1,$2,$3) RETURNING id`,
		videoURL, language, JobStatusPending).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("create job: %w", err)
	}
	return id, nil
}

// MarkJobRunning transitions a job to running.
func (s *Store) MarkJobRunning(ctx context.Context, id string) error {
	_, err := s.DB.ExecContext(ctx, `UPDATE jobs SET status=$1, updated_at=NOW() WHERE id=$2`, JobStatusRunning, id)
	if err != nil {
		return fmt.Errorf("mark job running: %w", err)
	}
	return nil
}

// FinishJob records a job's terminal status with an optional error message
// and the id of the note it produced.
func (s *Store) FinishJob(ctx context.Context, id, status, errMsg, noteID string) error {
	_, err := s.DB.ExecContext(ctx, `UPDATE jobs SET status=$1, error=NULLIF($2,''), note_id=NULLIF($3,'')::uuid, updated_at=NOW() WHERE id=$4`,
		status, errMsg, noteID, id)
	if err != nil {
		return fmt.Errorf("finish job: %w", err)
	}
	if jobCounter != nil {
		jobCounter.Add(ctx, 1, otelmetric.WithAttributes(attribute.String("status", status)))
	}
	return nil
}

// GetJob fetches one job by id.
func (s *Store) GetJob(ctx context.Context, id string) (JobRecord, error) {
	var rec JobRecord
	var errMsg, noteID sql.NullString
	err := s.DB.QueryRowContext(ctx, `SELECT id, video_url, language, status, error, note_id, created_at, updated_at FROM jobs WHERE id=$1`, id).
		Scan(&rec.ID, &rec.VideoURL, &rec.Language, &rec.Status, &errMsg, &noteID, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return JobRecord{}, ErrNotFound
	}
	if err != nil {
		return JobRecord{}, fmt.Errorf("get job: %w", err)
	}
	rec.Error = errMsg.String
	rec.NoteID = noteID.String
	return rec, nil
}

// PruneJobs deletes terminal jobs older than the cutoff, returning the
// number removed.
func (s *Store) PruneJobs(ctx context.Context, olderThan time.Time) (int64, error) {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM jobs WHERE status IN ($1,$2) AND updated_at < $3`,
		JobStatusSucceeded, JobStatusFailed, olderThan)
	if err != nil {
		return 0, fmt.Errorf("prune jobs: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune jobs affected: %w", err)
	}
	return n, nil
}
