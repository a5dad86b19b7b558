package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/eldtechnologies/talkbridge/internal/models"
)

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "nested", "transcripts.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func entry(session, original string, at time.Time) models.TranscriptEntry {
	return models.NewTranscriptEntry(session, models.Message{
		SenderRole:     models.RoleCreator,
		OriginalText:   original,
		TranslatedText: original + " (translated)",
		Timestamp:      at,
	})
}

func TestSQLiteSaveAndList(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	// inserted out of order; listing sorts by time
	for _, e := range []models.TranscriptEntry{
		entry("ABC123", "second", base.Add(time.Minute)),
		entry("ABC123", "first", base),
		entry("ZZZ999", "other session", base),
	} {
		if err := s.SaveMessage(ctx, e); err != nil {
			t.Fatalf("SaveMessage: %v", err)
		}
	}

	got, err := s.ListMessages(ctx, "ABC123")
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(got))
	}
	if got[0].OriginalText != "first" || got[1].OriginalText != "second" {
		t.Errorf("unexpected order: %q, %q", got[0].OriginalText, got[1].OriginalText)
	}
	if got[0].ID == "" || got[0].SenderRole != models.RoleCreator {
		t.Errorf("entry not fully stored: %+v", got[0])
	}
	if !got[0].Timestamp.Equal(base) {
		t.Errorf("timestamp = %v, want %v", got[0].Timestamp, base)
	}
}

func TestSQLiteSaveIsIdempotentByFingerprint(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()
	e := entry("ABC123", "hola", time.Now())

	for i := 0; i < 3; i++ {
		if err := s.SaveMessage(ctx, e); err != nil {
			t.Fatalf("SaveMessage: %v", err)
		}
	}

	got, err := s.ListMessages(ctx, "ABC123")
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("expected 1 entry after repeated saves, got %d", len(got))
	}
}

func TestSQLiteListEmptySession(t *testing.T) {
	s := newTestSQLite(t)
	got, err := s.ListMessages(context.Background(), "NOPE00")
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no entries, got %d", len(got))
	}
	if err := s.Ping(context.Background()); err != nil {
		t.Errorf("Ping: %v", err)
	}
}

func TestOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "open.db")
	a, err := Open(context.Background(), "sqlite://"+path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer a.Close()
	if _, ok := a.(*SQLiteStore); !ok {
		t.Errorf("expected *SQLiteStore, got %T", a)
	}

	if _, err := Open(context.Background(), "mongodb://localhost"); err == nil {
		t.Error("expected error for unsupported scheme")
	}
}

func TestSQLitePath(t *testing.T) {
	tests := map[string]string{
		"sqlite://./data/t.db": "./data/t.db",
		"sqlite:///var/t.db":   "/var/t.db",
		"sqlite:t.db":          "t.db",
	}
	for in, want := range tests {
		if got := sqlitePath(in); got != want {
			t.Errorf("sqlitePath(%q) = %q, want %q", in, got, want)
		}
	}
}
