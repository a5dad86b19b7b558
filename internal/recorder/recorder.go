// Package recorder captures press-to-talk utterances from a microphone
// and plays back translated audio.
package recorder

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/eldtechnologies/talkbridge/internal/models"
)

const releaseStopTimeout = 5 * time.Second

// buffer collects the chunks of a single capture.
type buffer struct {
	mu     sync.Mutex
	chunks [][]byte
	size   int
}

func (b *buffer) write(chunk []byte) {
	if len(chunk) == 0 {
		return
	}
	c := make([]byte, len(chunk))
	copy(c, chunk)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.chunks = append(b.chunks, c)
	b.size += len(c)
}

func (b *buffer) bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]byte, 0, b.size)
	for _, c := range b.chunks {
		out = append(out, c...)
	}
	return out
}

// Recorder owns the microphone and produces one Audio per Start/Stop pair.
type Recorder struct {
	device Device
	player Player
	logger zerolog.Logger

	mu       sync.Mutex
	input    Input
	capture  Capture
	buf      *buffer
	format   string
	stopping bool
	playing  int // playbacks in flight
	state    models.RecordingState
}

// New creates a recorder over the given device and player.
func New(device Device, player Player, logger zerolog.Logger) *Recorder {
	return &Recorder{
		device: device,
		player: player,
		logger: logger.With().Str("component", "recorder").Logger(),
		state:  models.StateIdle,
	}
}

// State returns what the audio subsystem is doing.
func (r *Recorder) State() models.RecordingState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Acquire opens the microphone. It is a no-op if already acquired.
func (r *Recorder) Acquire(ctx context.Context) error {
	r.mu.Lock()
	acquired := r.input != nil
	r.mu.Unlock()
	if acquired {
		return nil
	}

	in, err := r.device.Acquire(ctx)
	if err != nil {
		r.logger.Error().Err(err).Msg("microphone acquisition failed")
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.input != nil {
		// lost a race with a concurrent Acquire
		_ = in.Close()
		return nil
	}
	r.input = in
	return nil
}

// Start begins a new capture, acquiring the microphone first if needed.
// A capture already in progress yields ErrAlreadyRecording and is left
// untouched.
func (r *Recorder) Start(ctx context.Context) error {
	if r.busy() {
		r.logger.Warn().Msg("already recording")
		return ErrAlreadyRecording
	}

	if err := r.Acquire(ctx); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.capture != nil || r.stopping {
		r.logger.Warn().Msg("already recording")
		return ErrAlreadyRecording
	}
	if r.input == nil {
		return fmt.Errorf("%w: microphone released during start", ErrRecordingFailed)
	}

	format := ""
	for _, f := range PreferredFormats {
		if r.input.Supports(f) {
			format = f
			break
		}
	}
	if format == "" {
		return ErrNoSupportedFormat
	}

	// fresh buffer per capture
	buf := &buffer{}
	r.buf = buf

	capture, err := r.input.Record(format, buf.write)
	if err != nil {
		r.buf = nil
		return fmt.Errorf("%w: %v", ErrRecordingFailed, err)
	}

	r.capture = capture
	r.format = format
	r.state = models.StateRecording
	r.logger.Debug().Str("format", format).Msg("recording started")
	return nil
}

// settle derives state from what is running. A capture outranks playback.
// Must be called with r.mu held.
func (r *Recorder) settle() {
	switch {
	case r.capture != nil || r.stopping:
		r.state = models.StateRecording
	case r.playing > 0:
		r.state = models.StatePlaying
	default:
		r.state = models.StateIdle
	}
}

func (r *Recorder) busy() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.capture != nil || r.stopping
}

// Stop ends the current capture and returns everything recorded since
// Start. It never fails for lack of data: a recorder that was never
// started, or captured nothing, returns an empty Audio.
func (r *Recorder) Stop(ctx context.Context) (Audio, error) {
	r.mu.Lock()
	if r.stopping {
		// another Stop owns this capture and its buffer
		r.mu.Unlock()
		r.logger.Debug().Msg("stop already in progress")
		return Audio{}, nil
	}
	capture, buf, format := r.capture, r.buf, r.format

	if capture == nil || !capture.Active() {
		if capture != nil {
			r.logger.Warn().Msg("capture already inactive")
		}
		r.capture, r.buf = nil, nil
		r.settle()
		r.mu.Unlock()
		return collect(buf, format), nil
	}

	r.stopping = true
	r.mu.Unlock()

	err := capture.Stop(ctx)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopping = false
	r.capture, r.buf = nil, nil
	r.settle()

	if err != nil {
		r.logger.Error().Err(err).Msg("stopping capture failed")
		return Audio{}, fmt.Errorf("%w: %v", ErrRecordingFailed, err)
	}

	audio := collect(buf, format)
	r.logger.Debug().Int("bytes", audio.Size()).Msg("recording stopped")
	return audio, nil
}

func collect(buf *buffer, format string) Audio {
	if buf == nil {
		return Audio{}
	}
	if format == "" {
		format = "audio/webm"
	}
	return Audio{Data: buf.bytes(), MimeType: format}
}

// Playback plays url to completion.
func (r *Recorder) Playback(ctx context.Context, url string) error {
	r.mu.Lock()
	if r.capture != nil || r.stopping {
		r.mu.Unlock()
		return fmt.Errorf("%w: capture in progress", ErrPlayback)
	}
	r.playing++
	r.settle()
	r.mu.Unlock()

	err := r.player.Play(ctx, url)

	r.mu.Lock()
	r.playing--
	r.settle()
	r.mu.Unlock()

	if err != nil {
		r.logger.Error().Err(err).Str("url", url).Msg("playback failed")
		return fmt.Errorf("%w: %v", ErrPlayback, err)
	}
	return nil
}

// Release stops any capture, closes the microphone and resets state. It
// is safe to call repeatedly and from any state.
func (r *Recorder) Release() {
	r.mu.Lock()
	capture, input := r.capture, r.input
	r.capture, r.input, r.buf = nil, nil, nil
	r.format = ""
	r.settle()
	r.mu.Unlock()

	if capture != nil && capture.Active() {
		ctx, cancel := context.WithTimeout(context.Background(), releaseStopTimeout)
		if err := capture.Stop(ctx); err != nil {
			r.logger.Warn().Err(err).Msg("error stopping capture during release")
		}
		cancel()
	}
	if input != nil {
		if err := input.Close(); err != nil {
			r.logger.Warn().Err(err).Msg("error closing microphone")
		}
		r.logger.Debug().Msg("microphone released")
	}
}
