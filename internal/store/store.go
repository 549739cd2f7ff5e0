// Package store persists finished recording artifacts in a local
// SQLite database.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"github.com/sayback/sayback/internal/record"
)

// ErrNotFound means no recording exists under the requested ID.
var ErrNotFound = errors.New("store: recording not found")

// Recording is a persisted artifact plus its identity.
type Recording struct {
	ID        string
	CreatedAt time.Time
	MIMEType  string
	Duration  time.Duration
	Audio     []byte
}

// Store wraps a SQLite-backed recording archive.
type Store struct {
	db    *sql.DB
	log   zerolog.Logger
	clock func() time.Time
}

// Open initializes the store at path, creating directories and schema
// as needed.
func Open(ctx context.Context, path string, log zerolog.Logger) (*Store, error) {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	s := &Store{db: db, log: log, clock: time.Now}
	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initSchema(ctx context.Context) error {
	ddl := `
CREATE TABLE IF NOT EXISTS recordings (
    id TEXT PRIMARY KEY,
    created_at TIMESTAMP NOT NULL,
    mime_type TEXT NOT NULL,
    duration_ms INTEGER NOT NULL,
    audio BLOB NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_recordings_created ON recordings(created_at);
`
	_, err := s.db.ExecContext(ctx, ddl)
	return err
}

// Save persists an artifact under a fresh ID and returns the stored
// recording.
func (s *Store) Save(ctx context.Context, a record.Artifact) (Recording, error) {
	audio := a.EncodedAudio
	if audio == nil {
		audio = []byte{}
	}
	rec := Recording{
		ID:        uuid.NewString(),
		CreatedAt: s.clock().UTC(),
		MIMEType:  a.MIMEType,
		Duration:  a.Duration,
		Audio:     audio,
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO recordings (id, created_at, mime_type, duration_ms, audio) VALUES (?, ?, ?, ?, ?)`,
		rec.ID, rec.CreatedAt, rec.MIMEType, rec.Duration.Milliseconds(), rec.Audio,
	)
	if err != nil {
		return Recording{}, fmt.Errorf("insert recording: %w", err)
	}

	s.log.Debug().Str("id", rec.ID).Int("bytes", len(rec.Audio)).Msg("recording saved")
	return rec, nil
}

// Get loads one recording, audio included.
func (s *Store) Get(ctx context.Context, id string) (Recording, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, created_at, mime_type, duration_ms, audio FROM recordings WHERE id = ?`, id)

	var rec Recording
	var durationMS int64
	if err := row.Scan(&rec.ID, &rec.CreatedAt, &rec.MIMEType, &durationMS, &rec.Audio); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Recording{}, ErrNotFound
		}
		return Recording{}, fmt.Errorf("load recording: %w", err)
	}
	rec.Duration = time.Duration(durationMS) * time.Millisecond
	return rec, nil
}

// List returns all recordings newest first, without audio payloads.
func (s *Store) List(ctx context.Context) ([]Recording, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, created_at, mime_type, duration_ms FROM recordings ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list recordings: %w", err)
	}
	defer rows.Close()

	var out []Recording
	for rows.Next() {
		var rec Recording
		var durationMS int64
		if err := rows.Scan(&rec.ID, &rec.CreatedAt, &rec.MIMEType, &durationMS); err != nil {
			return nil, fmt.Errorf("scan recording: %w", err)
		}
		rec.Duration = time.Duration(durationMS) * time.Millisecond
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Delete removes a recording. Deleting an unknown ID is not an error.
func (s *Store) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM recordings WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete recording: %w", err)
	}
	return nil
}

// Close releases underlying resources.
func (s *Store) Close() error {
	return s.db.Close()
}
