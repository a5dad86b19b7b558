package store

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/eldtechnologies/talkbridge/internal/ids"
	"github.com/eldtechnologies/talkbridge/internal/metrics"
	"github.com/eldtechnologies/talkbridge/internal/models"
)

// SQLiteStore archives transcripts in a local SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens the database, creating it if needed.
// If dbPath is empty, defaults to "./data/talkbridge.db"
func NewSQLiteStore(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	if dbPath == "" {
		dbPath = "./data/talkbridge.db"
	}

	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL")
	if err != nil {
		return nil, err
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

// initSchema creates tables if they don't exist.
func (s *SQLiteStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS transcript_messages (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		fingerprint TEXT NOT NULL,
		sender_role TEXT NOT NULL,
		original_text TEXT NOT NULL DEFAULT '',
		translated_text TEXT NOT NULL DEFAULT '',
		audio_url TEXT NOT NULL DEFAULT '',
		sent_at DATETIME NOT NULL,
		UNIQUE (session_id, fingerprint)
	);

	CREATE INDEX IF NOT EXISTS idx_transcript_session_sent ON transcript_messages(session_id, sent_at);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// SaveMessage inserts an entry unless its fingerprint is already archived.
func (s *SQLiteStore) SaveMessage(ctx context.Context, entry models.TranscriptEntry) error {
	start := time.Now()
	defer func() { metrics.ArchiveLatency.WithLabelValues("sqlite").Observe(time.Since(start).Seconds()) }()

	if entry.ID == "" {
		entry.ID = ids.NewULID()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO transcript_messages
			(id, session_id, fingerprint, sender_role, original_text, translated_text, audio_url, sent_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, entry.ID, entry.SessionID, entry.Fingerprint, string(entry.SenderRole),
		entry.OriginalText, entry.TranslatedText, entry.AudioURL, entry.Timestamp.UTC())
	return err
}

// ListMessages returns a session's entries, oldest first.
func (s *SQLiteStore) ListMessages(ctx context.Context, sessionID string) ([]models.TranscriptEntry, error) {
	start := time.Now()
	defer func() { metrics.ArchiveLatency.WithLabelValues("sqlite").Observe(time.Since(start).Seconds()) }()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, fingerprint, sender_role, original_text, translated_text, audio_url, sent_at
		FROM transcript_messages
		WHERE session_id = ?
		ORDER BY sent_at ASC, id ASC
	`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.TranscriptEntry
	for rows.Next() {
		var e models.TranscriptEntry
		var role string
		if err := rows.Scan(
			&e.ID,
			&e.SessionID,
			&e.Fingerprint,
			&role,
			&e.OriginalText,
			&e.TranslatedText,
			&e.AudioURL,
			&e.Timestamp,
		); err != nil {
			return nil, err
		}
		e.SenderRole = models.Role(role)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
