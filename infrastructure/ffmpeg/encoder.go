package ffmpeg

import (
	"context"
	"fmt"
	"strings"
	"time"

	"video2audio/domain/audio"
)

// Encoder implements audio.Encoder using ffmpeg
type Encoder struct {
	ffmpegPath string
	runner     CommandRunner
	timeout    time.Duration
}

// EncoderOption is a functional option for configuring Encoder
type EncoderOption func(*Encoder)

// WithFFmpegPath sets a custom ffmpeg executable path
func WithFFmpegPath(path string) EncoderOption {
	return func(e *Encoder) {
		if path != "" {
			e.ffmpegPath = path
		}
	}
}

// WithCommandRunner sets a custom command runner (for testing)
func WithCommandRunner(runner CommandRunner) EncoderOption {
	return func(e *Encoder) {
		e.runner = runner
	}
}

// WithTimeout bounds each encoder run; zero disables the bound
func WithTimeout(d time.Duration) EncoderOption {
	return func(e *Encoder) {
		e.timeout = d
	}
}

// NewEncoder creates a new FFmpeg-based encoder
func NewEncoder(opts ...EncoderOption) *Encoder {
	e := &Encoder{
		ffmpegPath: "ffmpeg",
		runner:     &ExecCommandRunner{},
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Path returns the ffmpeg binary the encoder invokes
func (e *Encoder) Path() string {
	return e.ffmpegPath
}

// Run implements audio.Encoder
func (e *Encoder) Run(ctx context.Context, inv audio.Invocation) error {
	ctx, cancel := withTimeout(ctx, e.timeout)
	defer cancel()

	binary := inv.Binary
	if binary == "" {
		binary = e.ffmpegPath
	}

	res, err := e.runner.Run(ctx, binary, inv.Args...)
	if err != nil {
		return &audio.CommandExecutionError{
			Command:  binary,
			ExitCode: res.ExitCode,
			Stderr:   tail(string(res.Stderr), 40),
			Err:      err,
		}
	}
	return nil
}

// VerifyInstalled checks that ffmpeg is available
func (e *Encoder) VerifyInstalled(ctx context.Context) error {
	if _, err := e.runner.Run(ctx, e.ffmpegPath, "-version"); err != nil {
		return fmt.Errorf("ffmpeg not found or not executable: %w", err)
	}
	return nil
}

// tail keeps the last n lines of ffmpeg's diagnostic output
func tail(s string, n int) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	if len(lines) <= n {
		return strings.Join(lines, "\n")
	}
	return strings.Join(lines[len(lines)-n:], "\n")
}

// Ensure Encoder implements audio.Encoder
var _ audio.Encoder = (*Encoder)(nil)
