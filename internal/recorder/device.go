package recorder

import "context"

// PreferredFormats lists capture encodings in descending preference.
var PreferredFormats = []string{
	"audio/webm;codecs=opus",
	"audio/webm",
	"audio/ogg;codecs=opus",
	"audio/wav",
}

// Device grants access to a microphone.
type Device interface {
	// Acquire opens the microphone. Failures should wrap one of the
	// capability errors so callers can tell them apart.
	Acquire(ctx context.Context) (Input, error)
}

// Input is an acquired microphone.
type Input interface {
	// Supports reports whether the input can encode the given MIME type.
	Supports(mimeType string) bool
	// Record starts a capture. Encoded data is passed to sink as it is
	// produced; sink may be called from any goroutine until Stop returns.
	Record(mimeType string, sink func(chunk []byte)) (Capture, error)
	// Close releases the microphone.
	Close() error
}

// Capture is one in-flight recording.
type Capture interface {
	// Stop ends the capture and returns once every chunk has reached the sink.
	Stop(ctx context.Context) error
	// Active reports whether the capture is still producing data.
	Active() bool
}

// Player plays an audio reference to completion.
type Player interface {
	Play(ctx context.Context, url string) error
}

// Audio is one finished capture.
type Audio struct {
	Data     []byte
	MimeType string
}

// Size returns the encoded size in bytes.
func (a Audio) Size() int {
	return len(a.Data)
}

// Empty reports whether nothing was captured.
func (a Audio) Empty() bool {
	return len(a.Data) == 0
}
