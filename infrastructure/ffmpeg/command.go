package ffmpeg

import (
	"strconv"

	"video2audio/domain/audio"
)

// Loudness normalization targets (EBU R128)
const (
	LoudnessIntegrated = -16.0 // LUFS
	LoudnessTruePeak   = -1.5  // dBTP
	LoudnessRange      = 11.0  // LU
)

// loudnormFilter is the audio filter inserted when normalization is requested
var loudnormFilter = "loudnorm=I=" + formatFloat(LoudnessIntegrated) +
	":TP=" + formatFloat(LoudnessTruePeak) +
	":LRA=" + formatFloat(LoudnessRange)

// BuildOptions are the invocation switches that are not part of the resolved settings
type BuildOptions struct {
	Loudnorm  bool
	Overwrite bool
}

// BuildCommand turns resolved settings into an audio-only ffmpeg invocation.
// The result depends only on its arguments.
func BuildCommand(binary, inputPath, outputPath string, s audio.TranscodeSettings, opts BuildOptions) audio.Invocation {
	args := make([]string, 0, 20)
	if opts.Overwrite {
		args = append(args, "-y")
	}
	args = append(args,
		"-i", inputPath,
		"-vn",
		"-map_metadata", "0",
	)

	if opts.Loudnorm {
		args = append(args, "-af", loudnormFilter)
	}
	if s.SampleRate > 0 {
		args = append(args, "-ar", strconv.Itoa(s.SampleRate))
	}
	if s.Channels > 0 {
		args = append(args, "-ac", strconv.Itoa(s.Channels))
	}

	profile := s.Codec.Profile()
	if !profile.Lossless && s.Bitrate != "" {
		args = append(args, "-b:a", s.Bitrate)
	}

	args = append(args, "-f", profile.Container, outputPath)

	return audio.Invocation{Binary: binary, Args: args}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
