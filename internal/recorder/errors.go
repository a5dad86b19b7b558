package recorder

import "errors"

var (
	// Capability errors, returned by Device.Acquire.
	ErrPermissionDenied = errors.New("microphone permission denied")
	ErrDeviceNotFound   = errors.New("no microphone found")
	ErrDeviceBusy       = errors.New("microphone is in use by another application")
	ErrUnsupported      = errors.New("audio capture is not supported on this platform")

	ErrAlreadyRecording  = errors.New("already recording")
	ErrNoSupportedFormat = errors.New("no supported audio format found")
	ErrRecordingFailed   = errors.New("recording failed")
	ErrPlayback          = errors.New("audio playback failed")
)

// UserMessage maps a recorder error to the text shown to the user.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrPermissionDenied):
		return "Microphone permission denied. Please allow microphone access."
	case errors.Is(err, ErrDeviceNotFound):
		return "No microphone was found. Please connect a microphone."
	case errors.Is(err, ErrDeviceBusy):
		return "The microphone is being used by another application."
	case errors.Is(err, ErrUnsupported):
		return "Audio recording is not supported on this system."
	case errors.Is(err, ErrNoSupportedFormat):
		return "No supported audio format was found."
	case errors.Is(err, ErrPlayback):
		return "Could not play audio."
	case errors.Is(err, ErrRecordingFailed):
		return "Could not stop the recording."
	default:
		return "Could not access the microphone: " + err.Error()
	}
}
