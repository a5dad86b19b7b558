// Package store archives conversation transcripts. Archiving is optional;
// the client keeps no local state unless TRANSCRIPT_URL selects a backend.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/eldtechnologies/talkbridge/internal/config"
	"github.com/eldtechnologies/talkbridge/internal/models"
)

// Archive stores transcript entries per session.
// SQLiteStore, PostgresStore and RedisStore implement this interface.
type Archive interface {
	// Connection management
	Close() error
	Ping(ctx context.Context) error

	// SaveMessage stores an entry. Saving an entry whose fingerprint is
	// already archived for the session is a no-op.
	SaveMessage(ctx context.Context, entry models.TranscriptEntry) error

	// ListMessages returns a session's entries, oldest first.
	ListMessages(ctx context.Context, sessionID string) ([]models.TranscriptEntry, error)
}

var ErrUnknownBackend = errors.New("unknown transcript backend")

// Open connects the backend selected by the URL scheme.
func Open(ctx context.Context, rawURL string) (Archive, error) {
	scheme, err := config.TranscriptScheme(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnknownBackend, err)
	}

	switch scheme {
	case "sqlite":
		return NewSQLiteStore(ctx, sqlitePath(rawURL))
	case "postgres":
		return NewPostgresStore(ctx, rawURL)
	case "redis", "rediss":
		return NewRedisStore(ctx, rawURL)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownBackend, scheme)
}

// sqlitePath turns sqlite://./data/x.db or sqlite:///abs/x.db into a file path.
func sqlitePath(rawURL string) string {
	return strings.TrimPrefix(strings.TrimPrefix(rawURL, "sqlite:"), "//")
}
