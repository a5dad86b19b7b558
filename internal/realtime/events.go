package realtime

import (
	"encoding/json"
	"errors"

	"github.com/eldtechnologies/talkbridge/internal/models"
)

// ErrReconnectFailed is reported once the reconnection attempts run out.
var ErrReconnectFailed = errors.New("realtime: reconnection attempts exhausted")

// Event is one item of the channel's ordered event stream.
type Event interface {
	event()
}

// NewMessage carries a message relayed from the peer.
type NewMessage struct {
	Message models.MessagePayload
}

// UserJoined announces that the peer has joined the session.
type UserJoined struct {
	User models.UserJoinedPayload
}

// ConnectionChanged reports a transport connect or disconnect.
type ConnectionChanged struct {
	Connected bool
}

// ConnectionError reports a server error event or a terminal transport failure.
type ConnectionError struct {
	Err     error
	Payload json.RawMessage
}

func (NewMessage) event()        {}
func (UserJoined) event()        {}
func (ConnectionChanged) event() {}
func (ConnectionError) event()   {}
