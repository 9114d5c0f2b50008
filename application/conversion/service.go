package conversion

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"video2audio/domain/audio"
	"video2audio/infrastructure/ffmpeg"
)

var (
	// ErrSourceMissing is returned when the input file does not exist
	ErrSourceMissing = errors.New("source file does not exist")

	// ErrOutputExists is returned when overwriting is disabled and the artifact already exists
	ErrOutputExists = errors.New("output file already exists")

	// ErrArtifactNotWritten is returned when the encoder exited cleanly but left no fresh artifact
	ErrArtifactNotWritten = errors.New("encoder did not write the output file")
)

// ConvertInput represents the input for a single conversion
type ConvertInput struct {
	SourcePath string
	OutputPath string
	Settings   audio.Settings
}

// ConvertResult contains the result of a conversion
type ConvertResult struct {
	SourcePath string
	OutputPath string
	Resolved   audio.TranscodeSettings
	Command    audio.Invocation
	StartedAt  time.Time
	Duration   time.Duration
}

// Service coordinates probe, resolve, build and encode for one file
type Service struct {
	prober     audio.Prober
	encoder    audio.Encoder
	checker    audio.ArtifactChecker
	ffmpegPath string
	logger     *zap.Logger
	now        func() time.Time
}

// Option is a functional option for configuring Service
type Option func(*Service)

// WithFFmpegPath sets the binary placed in built invocations
func WithFFmpegPath(path string) Option {
	return func(s *Service) {
		if path != "" {
			s.ffmpegPath = path
		}
	}
}

// WithLogger sets the structured logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides time.Now (for testing)
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates a new conversion service
func NewService(prober audio.Prober, encoder audio.Encoder, checker audio.ArtifactChecker, opts ...Option) *Service {
	s := &Service{
		prober:     prober,
		encoder:    encoder,
		checker:    checker,
		ffmpegPath: "ffmpeg",
		logger:     zap.NewNop(),
		now:        time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// OutputPath returns where the artifact for source lands inside outputDir
func OutputPath(outputDir, source string, settings audio.Settings) string {
	return filepath.Join(outputDir, settings.OutputName(source))
}

// Convert runs one conversion to completion.
// It succeeds only if the encoder exits cleanly and the artifact was written during this run.
func (s *Service) Convert(ctx context.Context, input ConvertInput) (*ConvertResult, error) {
	if !s.checker.Exists(input.SourcePath) {
		return nil, fmt.Errorf("%w: %s", ErrSourceMissing, input.SourcePath)
	}
	if !input.Settings.Overwrite && s.checker.Exists(input.OutputPath) {
		return nil, fmt.Errorf("%w: %s", ErrOutputExists, input.OutputPath)
	}

	// Filesystem mtimes can be coarser than the wall clock, so the start is truncated to the
	// second. An artifact left by an earlier run within that same second still counts as fresh.
	started := s.now().Truncate(time.Second)

	resolved, err := s.Resolve(ctx, input.SourcePath, input.Settings)
	if err != nil {
		return nil, err
	}

	inv := ffmpeg.BuildCommand(s.ffmpegPath, input.SourcePath, input.OutputPath, resolved, ffmpeg.BuildOptions{
		Loudnorm:  input.Settings.Loudnorm,
		Overwrite: input.Settings.Overwrite,
	})

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.logger.Debug("running encoder",
		zap.String("file", input.SourcePath),
		zap.String("command", inv.String()))

	if err := s.encoder.Run(ctx, inv); err != nil {
		return nil, err
	}

	if !s.checker.FreshSince(input.OutputPath, started) {
		return nil, fmt.Errorf("%w: %s", ErrArtifactNotWritten, input.OutputPath)
	}

	return &ConvertResult{
		SourcePath: input.SourcePath,
		OutputPath: input.OutputPath,
		Resolved:   resolved,
		Command:    inv,
		StartedAt:  started,
		Duration:   s.now().Sub(started),
	}, nil
}

// Resolve computes the transcode settings for source, probing it first when settings.Auto is set
func (s *Service) Resolve(ctx context.Context, source string, settings audio.Settings) (audio.TranscodeSettings, error) {
	codec := settings.Codec.String()
	if !settings.Auto {
		return audio.ResolveWithoutProbe(codec, settings.Overrides()), nil
	}

	info, err := s.prober.Probe(ctx, source)
	if err != nil {
		return audio.TranscodeSettings{}, err
	}
	s.logger.Debug("probed source",
		zap.String("file", source),
		zap.Int("bitrate", info.Bitrate),
		zap.Int("sample_rate", info.SampleRate),
		zap.Int("channels", info.Channels))

	return audio.Resolve(codec, info, settings.Overrides()), nil
}
