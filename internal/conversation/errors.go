package conversation

import (
	"errors"

	"github.com/eldtechnologies/talkbridge/clients/go/talkbridge"
	"github.com/eldtechnologies/talkbridge/internal/realtime"
	"github.com/eldtechnologies/talkbridge/internal/recorder"
)

var (
	ErrNoSession      = errors.New("no active session")
	ErrPeerNotJoined  = errors.New("the other participant has not joined yet")
	ErrBusy           = errors.New("a message is still being processed")
	ErrNoAudio        = errors.New("no audio captured")
	ErrTooShort       = errors.New("utterance too short")
	ErrUnknownMessage = errors.New("message not found")
	ErrNoAudioURL     = errors.New("message has no audio")
)

const (
	msgCommunication = "Error communicating with the server"
	msgTranslation   = "Translation failed"
)

var recorderErrors = []error{
	recorder.ErrPermissionDenied,
	recorder.ErrDeviceNotFound,
	recorder.ErrDeviceBusy,
	recorder.ErrUnsupported,
	recorder.ErrNoSupportedFormat,
	recorder.ErrRecordingFailed,
	recorder.ErrPlayback,
}

// UserMessage maps any controller error to the text shown to the user.
// Server-side failures carry the server's own message.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	if apiErr, ok := talkbridge.AsAPIError(err); ok {
		if apiErr.Message == "" {
			return msgTranslation
		}
		return apiErr.Message
	}
	if talkbridge.IsCommunication(err) {
		return msgCommunication
	}
	for _, target := range recorderErrors {
		if errors.Is(err, target) {
			return recorder.UserMessage(err)
		}
	}

	switch {
	case errors.Is(err, ErrNoAudio):
		return "No audio was recorded. Hold the button for at least 2 seconds while you speak."
	case errors.Is(err, ErrTooShort):
		return "Audio too short. Speak for at least 2 seconds."
	case errors.Is(err, ErrPeerNotJoined):
		return "Waiting for the other user to join."
	case errors.Is(err, ErrBusy):
		return "Still processing the previous message."
	case errors.Is(err, ErrNoSession):
		return "No active session. Create or join one first."
	case errors.Is(err, ErrNoAudioURL):
		return "This message has no audio."
	case errors.Is(err, realtime.ErrReconnectFailed):
		return "Lost connection to the server."
	default:
		return err.Error()
	}
}
