package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eldtechnologies/talkbridge/internal/ids"
	"github.com/eldtechnologies/talkbridge/internal/metrics"
	"github.com/eldtechnologies/talkbridge/internal/models"
)

// PostgresStore archives transcripts in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL store with a connection pool.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	store := &PostgresStore{pool: pool}
	if err := store.initSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return store, nil
}

func (s *PostgresStore) initSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS transcript_messages (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			fingerprint TEXT NOT NULL,
			sender_role TEXT NOT NULL,
			original_text TEXT NOT NULL DEFAULT '',
			translated_text TEXT NOT NULL DEFAULT '',
			audio_url TEXT NOT NULL DEFAULT '',
			sent_at TIMESTAMPTZ NOT NULL,
			UNIQUE (session_id, fingerprint)
		);
		CREATE INDEX IF NOT EXISTS idx_transcript_session_sent ON transcript_messages(session_id, sent_at);
	`)
	return err
}

// Close closes the database connection pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// Ping checks the database connection.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// SaveMessage inserts an entry unless its fingerprint is already archived.
func (s *PostgresStore) SaveMessage(ctx context.Context, entry models.TranscriptEntry) error {
	start := time.Now()
	defer func() { metrics.ArchiveLatency.WithLabelValues("postgres").Observe(time.Since(start).Seconds()) }()

	if entry.ID == "" {
		entry.ID = ids.NewULID()
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO transcript_messages
			(id, session_id, fingerprint, sender_role, original_text, translated_text, audio_url, sent_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (session_id, fingerprint) DO NOTHING
	`, entry.ID, entry.SessionID, entry.Fingerprint, string(entry.SenderRole),
		entry.OriginalText, entry.TranslatedText, entry.AudioURL, entry.Timestamp)
	return err
}

// ListMessages returns a session's entries, oldest first.
func (s *PostgresStore) ListMessages(ctx context.Context, sessionID string) ([]models.TranscriptEntry, error) {
	start := time.Now()
	defer func() { metrics.ArchiveLatency.WithLabelValues("postgres").Observe(time.Since(start).Seconds()) }()

	rows, err := s.pool.Query(ctx, `
		SELECT id, session_id, fingerprint, sender_role, original_text, translated_text, audio_url, sent_at
		FROM transcript_messages
		WHERE session_id = $1
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
