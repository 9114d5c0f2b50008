package ffmpeg

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"video2audio/domain/audio"
)

// Prober implements audio.Prober using ffprobe
type Prober struct {
	ffprobePath string
	runner      CommandRunner
	timeout     time.Duration
}

// ProberOption is a functional option for configuring Prober
type ProberOption func(*Prober)

// WithFFprobePath sets a custom ffprobe executable path
func WithFFprobePath(path string) ProberOption {
	return func(p *Prober) {
		if path != "" {
			p.ffprobePath = path
		}
	}
}

// WithProberCommandRunner sets a custom command runner (for testing)
func WithProberCommandRunner(runner CommandRunner) ProberOption {
	return func(p *Prober) {
		p.runner = runner
	}
}

// WithProbeTimeout bounds each probe; zero disables the bound
func WithProbeTimeout(d time.Duration) ProberOption {
	return func(p *Prober) {
		p.timeout = d
	}
}

// NewProber creates a new ffprobe-based prober
func NewProber(opts ...ProberOption) *Prober {
	p := &Prober{
		ffprobePath: "ffprobe",
		runner:      &ExecCommandRunner{},
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// probeOutput mirrors the subset of ffprobe's JSON writer we request
type probeOutput struct {
	Streams []struct {
		BitRate    string `json:"bit_rate"`
		SampleRate string `json:"sample_rate"`
		Channels   int    `json:"channels"`
	} `json:"streams"`
}

// ProbeArgs returns the ffprobe arguments used to inspect the first audio stream
func ProbeArgs(path string) []string {
	return []string{
		"-v", "error",
		"-select_streams", "a:0",
		"-show_entries", "stream=bit_rate,sample_rate,channels",
		"-of", "json",
		path,
	}
}

// Probe implements audio.Prober.
// Missing fields fall back to unknown bitrate, 44100 Hz and stereo.
func (p *Prober) Probe(ctx context.Context, path string) (audio.AudioStreamInfo, error) {
	ctx, cancel := withTimeout(ctx, p.timeout)
	defer cancel()

	res, err := p.runner.Run(ctx, p.ffprobePath, ProbeArgs(path)...)
	if err != nil {
		return audio.AudioStreamInfo{}, &audio.ProbeError{Path: path, Stderr: string(res.Stderr), Err: err}
	}

	info, err := parseProbeOutput(res.Stdout)
	if err != nil {
		return audio.AudioStreamInfo{}, &audio.ProbeError{Path: path, Stderr: string(res.Stderr), Err: err}
	}
	return info, nil
}

func parseProbeOutput(data []byte) (audio.AudioStreamInfo, error) {
	info := audio.AudioStreamInfo{
		SampleRate: audio.FallbackSampleRate,
		Channels:   audio.FallbackChannels,
	}

	var out probeOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return audio.AudioStreamInfo{}, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}
	if len(out.Streams) == 0 {
		return info, nil
	}

	stream := out.Streams[0]
	if v, ok, err := parseNumeric(stream.BitRate); err != nil {
		return audio.AudioStreamInfo{}, fmt.Errorf("invalid bit_rate: %w", err)
	} else if ok {
		info.Bitrate = v
	}
	if v, ok, err := parseNumeric(stream.SampleRate); err != nil {
		return audio.AudioStreamInfo{}, fmt.Errorf("invalid sample_rate: %w", err)
	} else if ok && v > 0 {
		info.SampleRate = v
	}
	if stream.Channels > 0 {
		info.Channels = stream.Channels
	}
	return info, nil
}

// parseNumeric reads one of ffprobe's string-encoded numbers; "N/A" and "" mean absent
func parseNumeric(s string) (int, bool, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "N/A" {
		return 0, false, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, false, err
	}
	return v, true, nil
}

// Ensure Prober implements audio.Prober
var _ audio.Prober = (*Prober)(nil)
