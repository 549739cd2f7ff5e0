package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/sayback/sayback/internal/record"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "recordings.db"), zerolog.Nop())
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveAndGetRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := record.Artifact{
		EncodedAudio: []byte("encoded audio bytes"),
		MIMEType:     "audio/wav",
		Duration:     1500 * time.Millisecond,
	}

	saved, err := s.Save(ctx, a)
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if saved.ID == "" {
		t.Fatal("saved recording has no ID")
	}

	got, err := s.Get(ctx, saved.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if string(got.Audio) != string(a.EncodedAudio) {
		t.Errorf("audio mismatch: %q", got.Audio)
	}
	if got.MIMEType != a.MIMEType {
		t.Errorf("mime mismatch: %q", got.MIMEType)
	}
	if got.Duration != a.Duration {
		t.Errorf("duration mismatch: %v", got.Duration)
	}
}

func TestGetUnknownID(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Get(context.Background(), "no-such-id")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestListNewestFirstWithoutAudio(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	now := time.Now().UTC()
	s.clock = func() time.Time { return now }
	first, err := s.Save(ctx, record.Artifact{EncodedAudio: []byte("one"), MIMEType: "audio/wav"})
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}

	s.clock = func() time.Time { return now.Add(time.Second) }
	second, err := s.Save(ctx, record.Artifact{EncodedAudio: []byte("two"), MIMEType: "audio/wav"})
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}

	list, err := s.List(ctx)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 recordings, got %d", len(list))
	}
	if list[0].ID != second.ID || list[1].ID != first.ID {
		t.Error("expected newest recording first")
	}
	if list[0].Audio != nil {
		t.Error("list should not carry audio payloads")
	}
}

func TestDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	saved, err := s.Save(ctx, record.Artifact{EncodedAudio: []byte("x"), MIMEType: "audio/pcm"})
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}

	if err := s.Delete(ctx, saved.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := s.Get(ctx, saved.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}

	// Unknown IDs delete cleanly.
	if err := s.Delete(ctx, "no-such-id"); err != nil {
		t.Errorf("deleting unknown id should not error: %v", err)
	}
}
