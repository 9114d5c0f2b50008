package audio

import (
	"fmt"
	"path/filepath"
	"strings"
)

// AudioStreamInfo holds probed facts about the first audio stream of an input
type AudioStreamInfo struct {
	Bitrate    int // bits per second, 0 when unknown
	SampleRate int
	Channels   int
}

// Probe fallbacks used when ffprobe omits a field
const (
	FallbackSampleRate = 44100
	FallbackChannels   = 2
)

// Overrides are caller-supplied values; the zero value of a field means "not supplied"
type Overrides struct {
	Bitrate    string
	SampleRate int
	Channels   int
}

// TranscodeSettings are fully resolved parameters ready for the command builder.
// Empty Bitrate and zero SampleRate/Channels mean the flag is omitted.
type TranscodeSettings struct {
	Codec      Codec
	Bitrate    string
	SampleRate int
	Channels   int
	Lossless   bool
}

// Settings is the effective, process-wide conversion configuration set by the front ends
type Settings struct {
	Codec      Codec
	Bitrate    string
	SampleRate int
	Channels   int
	Auto       bool // probe the source to pick missing values
	Loudnorm   bool
	Overwrite  bool
}

// DefaultSettings returns the settings used before any update
func DefaultSettings() Settings {
	return Settings{
		Codec:     MP3,
		Auto:      true,
		Overwrite: true,
	}
}

// Overrides extracts the caller-supplied parameter overrides
func (s Settings) Overrides() Overrides {
	return Overrides{
		Bitrate:    s.Bitrate,
		SampleRate: s.SampleRate,
		Channels:   s.Channels,
	}
}

// OutputName returns the artifact file name for a source file converted with these settings
func (s Settings) OutputName(source string) string {
	base := filepath.Base(source)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return stem + "." + s.Codec.Profile().Extension
}

// SettingsUpdate is the settings payload accepted from the front ends
type SettingsUpdate struct {
	Codec      string `json:"codec" yaml:"codec"`
	Bitrate    string `json:"bitrate,omitempty" yaml:"bitrate,omitempty"`
	SampleRate int    `json:"samplerate,omitempty" yaml:"samplerate,omitempty"`
	Channels   int    `json:"channels,omitempty" yaml:"channels,omitempty"`
}

// Apply returns base with the update applied. Unknown codecs become MP3.
func (u SettingsUpdate) Apply(base Settings) Settings {
	base.Codec = ParseCodec(u.Codec)
	base.Bitrate = strings.TrimSpace(u.Bitrate)
	base.SampleRate = u.SampleRate
	base.Channels = u.Channels
	return base
}

// FormatBitrate renders bits per second as an ffmpeg kilobit token, e.g. 192000 -> "192k"
func FormatBitrate(bps int) string {
	return fmt.Sprintf("%dk", bps/1000)
}
