package audio

import "strings"

// Codec identifies a supported output codec
type Codec int

// Supported codecs. The zero value is MP3 so an unset Codec behaves like the fallback.
const (
	MP3 Codec = iota
	AAC
	WAV
	FLAC
	codecCount
)

var codecNames = [codecCount]string{
	MP3:  "mp3",
	AAC:  "aac",
	WAV:  "wav",
	FLAC: "flac",
}

// String returns the logical codec identifier
func (c Codec) String() string {
	if c < 0 || c >= codecCount {
		return codecNames[MP3]
	}
	return codecNames[c]
}

// ParseCodec maps a codec identifier to a Codec.
// Unknown identifiers fall back to MP3; callers must not assume the requested codec was honored.
func ParseCodec(id string) Codec {
	id = strings.ToLower(strings.TrimSpace(id))
	for c, name := range codecNames {
		if name == id {
			return Codec(c)
		}
	}
	return MP3
}

// IsKnownCodec reports whether id names a supported codec without falling back
func IsKnownCodec(id string) bool {
	id = strings.ToLower(strings.TrimSpace(id))
	for _, name := range codecNames {
		if name == id {
			return true
		}
	}
	return false
}

// CodecProfile holds the static capabilities of one codec
type CodecProfile struct {
	Codec                Codec
	MaxBitrate           int // bits per second, 0 when the codec has no bitrate concept
	DefaultBitrate       int // bits per second, 0 when the codec has no bitrate concept
	DefaultSampleRate    int
	SupportedSampleRates []int
	DefaultChannels      int
	SupportedChannels    []int
	Lossless             bool
	Container            string // ffmpeg muxer name passed to -f
	Extension            string // output file extension without the dot
}

// SupportsSampleRate reports whether rate is in the profile's supported set
func (p CodecProfile) SupportsSampleRate(rate int) bool {
	return containsInt(p.SupportedSampleRates, rate)
}

// SupportsChannels reports whether channels is in the profile's supported set
func (p CodecProfile) SupportsChannels(channels int) bool {
	return containsInt(p.SupportedChannels, channels)
}

// MaxLossySampleRate is the ceiling applied to lossy codecs after table validation
const MaxLossySampleRate = 48000

var (
	lossySampleRates    = []int{8000, 11025, 12000, 16000, 22050, 24000, 32000, 44100, 48000}
	aacSampleRates      = []int{8000, 11025, 12000, 16000, 22050, 24000, 32000, 44100, 48000, 64000, 88200, 96000}
	losslessSampleRates = []int{8000, 11025, 16000, 22050, 32000, 44100, 48000, 88200, 96000, 176400, 192000}
)

// profiles is indexed by Codec; adding a codec without a profile fails to compile
var profiles = [codecCount]CodecProfile{
	MP3: {
		Codec:                MP3,
		MaxBitrate:           320_000,
		DefaultBitrate:       192_000,
		DefaultSampleRate:    44100,
		SupportedSampleRates: lossySampleRates,
		DefaultChannels:      2,
		SupportedChannels:    []int{1, 2},
		Container:            "mp3",
		Extension:            "mp3",
	},
	AAC: {
		Codec:                AAC,
		MaxBitrate:           256_000,
		DefaultBitrate:       128_000,
		DefaultSampleRate:    44100,
		SupportedSampleRates: aacSampleRates,
		DefaultChannels:      2,
		SupportedChannels:    []int{1, 2, 3, 4, 5, 6},
		Container:            "ipod",
		Extension:            "m4a",
	},
	WAV: {
		Codec:                WAV,
		DefaultSampleRate:    44100,
		SupportedSampleRates: losslessSampleRates,
		DefaultChannels:      2,
		SupportedChannels:    []int{1, 2, 3, 4, 5, 6, 7, 8},
		Lossless:             true,
		Container:            "wav",
		Extension:            "wav",
	},
	FLAC: {
		Codec:                FLAC,
		DefaultSampleRate:    44100,
		SupportedSampleRates: losslessSampleRates,
		DefaultChannels:      2,
		SupportedChannels:    []int{1, 2, 3, 4, 5, 6, 7, 8},
		Lossless:             true,
		Container:            "flac",
		Extension:            "flac",
	},
}

// Profile returns the capability profile for c
func (c Codec) Profile() CodecProfile {
	if c < 0 || c >= codecCount {
		return profiles[MP3]
	}
	return profiles[c]
}

// ProfileFor returns the profile matching id, or the MP3 profile when id is unrecognized
func ProfileFor(id string) CodecProfile {
	return ParseCodec(id).Profile()
}

// Profiles returns every profile in declaration order
func Profiles() []CodecProfile {
	out := make([]CodecProfile, 0, codecCount)
	for _, p := range profiles {
		out = append(out, p)
	}
	return out
}

func containsInt(values []int, v int) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
