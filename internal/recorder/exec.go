package recorder

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

const (
	readChunkSize = 4096
	probeDuration = "0.1"
)

// encoderArgs maps a capture MIME type to the ffmpeg encoder that
// produces it and the output arguments to use.
var encoderArgs = map[string]struct {
	encoder string
	args    []string
}{
	"audio/webm;codecs=opus": {"libopus", []string{"-c:a", "libopus", "-b:a", "128k", "-f", "webm"}},
	"audio/webm":             {"libvorbis", []string{"-c:a", "libvorbis", "-b:a", "128k", "-f", "webm"}},
	"audio/ogg;codecs=opus":  {"libopus", []string{"-c:a", "libopus", "-b:a", "128k", "-f", "ogg"}},
	"audio/wav":              {"pcm_s16le", []string{"-c:a", "pcm_s16le", "-f", "wav"}},
}

// CommandDevice captures audio by piping an ffmpeg process.
type CommandDevice struct {
	Command     string // ffmpeg binary
	InputFormat string // e.g. pulse, alsa, avfoundation
	Input       string // e.g. default, hw:0
	Logger      zerolog.Logger
}

// Acquire verifies that ffmpeg can open the configured input.
func (d *CommandDevice) Acquire(ctx context.Context) (Input, error) {
	bin, err := exec.LookPath(d.Command)
	if err != nil {
		return nil, fmt.Errorf("%w: %s not found", ErrUnsupported, d.Command)
	}

	encoders, err := exec.CommandContext(ctx, bin, "-hide_banner", "-encoders").Output()
	if err != nil {
		return nil, fmt.Errorf("%w: listing encoders: %v", ErrUnsupported, err)
	}

	var stderr bytes.Buffer
	probe := exec.CommandContext(ctx, bin, "-hide_banner", "-loglevel", "error",
		"-f", d.InputFormat, "-i", d.Input, "-t", probeDuration, "-f", "null", "-")
	probe.Stderr = &stderr
	if err := probe.Run(); err != nil {
		return nil, classifyCaptureError(stderr.String(), err)
	}

	return &commandInput{dev: d, bin: bin, encoders: string(encoders)}, nil
}

// classifyCaptureError maps ffmpeg diagnostics onto capability errors.
func classifyCaptureError(stderr string, err error) error {
	msg := strings.ToLower(stderr)
	detail := strings.TrimSpace(stderr)
	if detail == "" {
		detail = err.Error()
	}

	switch {
	case strings.Contains(msg, "permission denied"), strings.Contains(msg, "access denied"),
		strings.Contains(msg, "not authorized"):
		return fmt.Errorf("%w: %s", ErrPermissionDenied, detail)
	case strings.Contains(msg, "device or resource busy"), strings.Contains(msg, "resource temporarily unavailable"):
		return fmt.Errorf("%w: %s", ErrDeviceBusy, detail)
	case strings.Contains(msg, "unknown input format"):
		return fmt.Errorf("%w: %s", ErrUnsupported, detail)
	case strings.Contains(msg, "no such file or directory"), strings.Contains(msg, "no such device"),
		strings.Contains(msg, "no such entity"), strings.Contains(msg, "cannot open audio device"),
		strings.Contains(msg, "connection refused"):
		return fmt.Errorf("%w: %s", ErrDeviceNotFound, detail)
	default:
		return fmt.Errorf("open microphone: %s", detail)
	}
}

type commandInput struct {
	dev      *CommandDevice
	bin      string
	encoders string
}

func (in *commandInput) Supports(mimeType string) bool {
	enc, ok := encoderArgs[mimeType]
	if !ok {
		return false
	}
	return strings.Contains(in.encoders, " "+enc.encoder+" ")
}

func (in *commandInput) Record(mimeType string, sink func(chunk []byte)) (Capture, error) {
	enc, ok := encoderArgs[mimeType]
	if !ok {
		return nil, fmt.Errorf("unknown format %q", mimeType)
	}

	// stdin stays open: Stop sends the quit key through it.
	args := []string{"-hide_banner", "-loglevel", "error",
		"-f", in.dev.InputFormat, "-i", in.dev.Input, "-ac", "1", "-ar", "48000"}
	args = append(args, enc.args...)
	args = append(args, "pipe:1")

	cmd := exec.Command(in.bin, args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return nil, err
	}

	c := &commandCapture{cmd: cmd, stdin: stdin, stderr: &stderr, done: make(chan struct{}), logger: in.dev.Logger}
	c.active.Store(true)
	c.wg.Add(1)
	go c.pump(stdout, sink)
	go c.wait()
	return c, nil
}

func (in *commandInput) Close() error {
	return nil
}

type commandCapture struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stderr *bytes.Buffer
	logger zerolog.Logger

	wg      sync.WaitGroup
	done    chan struct{}
	waitErr error
	active  atomic.Bool
	once    sync.Once
}

func (c *commandCapture) pump(stdout io.Reader, sink func([]byte)) {
	defer c.wg.Done()
	buf := make([]byte, readChunkSize)
	for {
		n, err := stdout.Read(buf)
		if n > 0 {
			sink(buf[:n])
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				c.logger.Debug().Err(err).Msg("capture pipe closed")
			}
			return
		}
	}
}

func (c *commandCapture) wait() {
	// Wait must not run before the pipe is drained.
	c.wg.Wait()
	c.waitErr = c.cmd.Wait()
	c.active.Store(false)
	close(c.done)
}

func (c *commandCapture) Active() bool {
	return c.active.Load()
}

// Stop asks ffmpeg to finish the container with the quit key and waits
// for the output to drain, killing the process if ctx expires first.
func (c *commandCapture) Stop(ctx context.Context) error {
	c.once.Do(func() {
		_, _ = io.WriteString(c.stdin, "q")
		_ = c.stdin.Close()
	})

	select {
	case <-c.done:
	case <-ctx.Done():
		_ = c.cmd.Process.Kill()
		<-c.done
		return ctx.Err()
	}

	if c.waitErr != nil {
		var exitErr *exec.ExitError
		// ffmpeg exits 255 when interrupted mid-write; the output is still valid.
		if errors.As(c.waitErr, &exitErr) && exitErr.ExitCode() == 255 {
			return nil
		}
		return fmt.Errorf("%v: %s", c.waitErr, strings.TrimSpace(c.stderr.String()))
	}
	return nil
}

// CommandPlayer plays audio URLs with ffplay or a compatible player.
type CommandPlayer struct {
	Command string
	Timeout time.Duration
}

// Play runs the player until the audio ends.
func (p *CommandPlayer) Play(ctx context.Context, url string) error {
	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}

	out, err := exec.CommandContext(ctx, p.Command, "-nodisp", "-autoexit", "-loglevel", "error", url).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: %v: %s", p.Command, err, strings.TrimSpace(string(out)))
	}
	return nil
}
