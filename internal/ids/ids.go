// Package ids generates identifiers used on the client side.
package ids

import (
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// NewUUIDv7 generates a time-ordered UUID v7.
func NewUUIDv7() uuid.UUID {
	return uuid.Must(uuid.NewV7())
}

// NewLocalID returns an identifier for a message in the local thread.
func NewLocalID() string {
	return NewUUIDv7().String()
}

// NewULID returns a lexically sortable ID for archive rows.
func NewULID() string {
	return ulid.Make().String()
}
