package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"video2audio/application/conversion"
	"video2audio/domain/audio"
	"video2audio/infrastructure/ffmpeg"
	"video2audio/infrastructure/filesystem"

	"github.com/spf13/cobra"
)

var (
	convertCodec       string
	convertBitrate     string
	convertSampleRate  int
	convertChannels    int
	convertLoudnorm    bool
	convertAuto        bool
	convertNoOverwrite bool
)

var convertCmd = &cobra.Command{
	Use:   "convert INPUT OUTPUT",
	Short: "Convert a video file to audio",
	Long: `Extract the audio track of INPUT into OUTPUT using ffmpeg.

Flags that are not given fall back to the audio section of the config file.
With --auto the source is probed and bitrate, sample rate and channels are
picked from what the source carries, capped to what the codec supports.

Example:
  video2audio convert talk.mp4 talk.mp3
  video2audio convert talk.mp4 talk.m4a --codec aac --bitrate 128k --channels 1
  video2audio convert talk.mp4 talk.flac --codec flac --auto --loudnorm`,
	Args: cobra.ExactArgs(2),
	RunE: runConvert,
}

func init() {
	rootCmd.AddCommand(convertCmd)
	convertCmd.Flags().StringVar(&convertCodec, "codec", "mp3", "Audio codec: mp3, aac, wav or flac")
	convertCmd.Flags().StringVar(&convertBitrate, "bitrate", "", "Audio bitrate (e.g. 192k)")
	convertCmd.Flags().IntVar(&convertSampleRate, "samplerate", 0, "Sample rate in Hz (e.g. 44100)")
	convertCmd.Flags().IntVar(&convertChannels, "channels", 0, "Number of channels (1=mono, 2=stereo)")
	convertCmd.Flags().BoolVar(&convertLoudnorm, "loudnorm", false, "Apply EBU R128 loudness normalization")
	convertCmd.Flags().BoolVar(&convertAuto, "auto", false, "Probe the source to pick bitrate, sample rate and channels")
	convertCmd.Flags().BoolVar(&convertNoOverwrite, "no-overwrite", false, "Fail if OUTPUT already exists")
}

func runConvert(cmd *cobra.Command, args []string) error {
	c, err := requireConfig()
	if err != nil {
		return err
	}

	if cmd.Flags().Changed("codec") && !audio.IsKnownCodec(convertCodec) {
		fmt.Fprintf(os.Stderr, "Unknown codec %q, using %s\n", convertCodec, audio.MP3)
	}
	settings := convertSettings(c.AudioSettings(), cmd)

	encoder := ffmpeg.NewEncoder(
		ffmpeg.WithFFmpegPath(c.FFmpeg.FFmpegPath),
		ffmpeg.WithTimeout(c.FFmpeg.Timeout),
	)
	prober := ffmpeg.NewProber(
		ffmpeg.WithFFprobePath(c.FFmpeg.FFprobePath),
		ffmpeg.WithProbeTimeout(c.FFmpeg.Timeout),
	)

	return RunConvertWithDependencies(
		cmd.Context(),
		prober,
		encoder,
		filesystem.NewChecker(),
		c.FFmpeg.FFmpegPath,
		conversion.ConvertInput{
			SourcePath: args[0],
			OutputPath: args[1],
			Settings:   settings,
		},
		os.Stdout,
	)
}

// convertSettings overlays the flags the user actually set on the configured settings
func convertSettings(base audio.Settings, cmd *cobra.Command) audio.Settings {
	flags := cmd.Flags()
	update := audio.SettingsUpdate{
		Codec:      base.Codec.String(),
		Bitrate:    base.Bitrate,
		SampleRate: base.SampleRate,
		Channels:   base.Channels,
	}
	if flags.Changed("codec") {
		update.Codec = convertCodec
	}
	if flags.Changed("bitrate") {
		update.Bitrate = convertBitrate
	}
	if flags.Changed("samplerate") {
		update.SampleRate = convertSampleRate
	}
	if flags.Changed("channels") {
		update.Channels = convertChannels
	}

	s := update.Apply(base)
	if flags.Changed("auto") {
		s.Auto = convertAuto
	}
	if flags.Changed("loudnorm") {
		s.Loudnorm = convertLoudnorm
	}
	if convertNoOverwrite {
		s.Overwrite = false
	}
	return s
}

// RunConvertWithDependencies runs the convert command with injected dependencies (for testing)
func RunConvertWithDependencies(
	ctx context.Context,
	prober audio.Prober,
	encoder audio.Encoder,
	checker audio.ArtifactChecker,
	ffmpegPath string,
	input conversion.ConvertInput,
	output io.Writer,
) error {
	// Verify ffmpeg is available if encoder supports it
	if verifiable, ok := encoder.(interface{ VerifyInstalled(context.Context) error }); ok {
		verifyCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := verifiable.VerifyInstalled(verifyCtx); err != nil {
			return fmt.Errorf("ffmpeg verification failed: %w", err)
		}
	}

	service := conversion.NewService(prober, encoder, checker, conversion.WithFFmpegPath(ffmpegPath))

	fmt.Fprintf(output, "Converting %s to %s...\n", input.SourcePath, input.Settings.Codec)

	result, err := service.Convert(ctx, input)
	if err != nil {
		return fmt.Errorf("conversion failed: %w", err)
	}

	fmt.Fprintf(output, "Converted %s -> %s\n", result.SourcePath, result.OutputPath)
	fmt.Fprintf(output, "  Codec: %s\n", result.Resolved.Codec)
	if result.Resolved.Bitrate != "" {
		fmt.Fprintf(output, "  Bitrate: %s\n", result.Resolved.Bitrate)
	}
	if result.Resolved.SampleRate > 0 {
		fmt.Fprintf(output, "  Sample rate: %d Hz\n", result.Resolved.SampleRate)
	}
	if result.Resolved.Channels > 0 {
		fmt.Fprintf(output, "  Channels: %d\n", result.Resolved.Channels)
	}
	fmt.Fprintf(output, "  Took: %s\n", result.Duration.Round(time.Millisecond))
	return nil
}
