package audio

// Resolve computes the final parameters for codecID from probed stream facts and caller overrides.
// Unknown codec ids resolve as MP3.
func Resolve(codecID string, probed AudioStreamInfo, overrides Overrides) TranscodeSettings {
	return resolve(ProfileFor(codecID), &probed, overrides)
}

// ResolveWithoutProbe applies the same policy when no probe was run.
// Values that were not overridden stay unset so the encoder keeps the source's own.
func ResolveWithoutProbe(codecID string, overrides Overrides) TranscodeSettings {
	return resolve(ProfileFor(codecID), nil, overrides)
}

func resolve(p CodecProfile, probed *AudioStreamInfo, overrides Overrides) TranscodeSettings {
	s := TranscodeSettings{
		Codec:    p.Codec,
		Lossless: p.Lossless,
	}

	if !p.Lossless {
		switch {
		case overrides.Bitrate != "":
			s.Bitrate = overrides.Bitrate
		case probed != nil:
			s.Bitrate = chooseBitrate(p, probed.Bitrate)
		}
	}

	var probedRate, probedChannels int
	if probed != nil {
		probedRate, probedChannels = probed.SampleRate, probed.Channels
	}
	s.SampleRate = chooseValue(overrides.SampleRate, probedRate, probed != nil, p.DefaultSampleRate, p.SupportsSampleRate)
	s.Channels = chooseValue(overrides.Channels, probedChannels, probed != nil, p.DefaultChannels, p.SupportsChannels)

	// Lossy clamp is applied last and wins over the table.
	if !p.Lossless && s.SampleRate > MaxLossySampleRate {
		s.SampleRate = MaxLossySampleRate
	}

	return s
}

// chooseBitrate picks a bitrate from a probed value: unknown or low sources get the codec
// default, anything else is capped at the codec maximum.
func chooseBitrate(p CodecProfile, probed int) string {
	if probed <= 0 {
		if p.DefaultBitrate == 0 {
			return ""
		}
		return FormatBitrate(p.DefaultBitrate)
	}
	if p.DefaultBitrate > 0 && probed < p.DefaultBitrate {
		return FormatBitrate(p.DefaultBitrate)
	}
	if p.MaxBitrate > 0 {
		return FormatBitrate(min(probed, p.MaxBitrate))
	}
	return ""
}

// chooseValue validates an override, then a probed value, against the supported set.
// A zero override means "not supplied"; without a probe the value stays unset.
func chooseValue(override, probed int, haveProbe bool, def int, supported func(int) bool) int {
	if override != 0 {
		if supported(override) {
			return override
		}
		return def
	}
	if !haveProbe {
		return 0
	}
	if supported(probed) {
		return probed
	}
	return def
}
