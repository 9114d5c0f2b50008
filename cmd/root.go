package cmd

import (
	"fmt"
	"os"

	"video2audio/infrastructure/config"
	"video2audio/infrastructure/logging"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	cfgFile string
	envFile string
	cfg     *config.Config
	cfgErr  error
)

var rootCmd = &cobra.Command{
	Use:   "video2audio",
	Short: "Extract audio tracks from video files",
	Long: `video2audio converts video files into audio files with ffmpeg.

  - Convert a single file from the command line
  - Serve a web front end that queues uploads and converts them in batches
  - Publish finished audio to Google Drive with sharing

Example:
  video2audio convert talk.mp4 talk.mp3 --codec mp3 --bitrate 192k
  video2audio serve`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "env file with VIDEO2AUDIO_* overrides")
}

func initConfig() {
	if cfgFile == "" {
		cfgFile = "config/config.yaml"
	}

	if err := config.LoadDotEnv(envFile); err != nil {
		cfgErr = err
		return
	}

	// A missing file yields defaults; only unreadable or malformed files are errors
	cfg, cfgErr = config.Load(cfgFile)
}

// GetConfig returns the loaded configuration
func GetConfig() *config.Config {
	return cfg
}

// requireConfig returns the loaded configuration or the reason it could not be loaded
func requireConfig() (*config.Config, error) {
	if cfgErr != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", cfgErr)
	}
	if cfg == nil {
		return config.Default(), nil
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration in %s: %w", cfgFile, err)
	}
	return cfg, nil
}

// newLogger builds the application logger from the logging section
func newLogger(c *config.Config) (*zap.Logger, error) {
	logger, err := logging.New(logging.Options{
		Level:     c.Logging.Level,
		Directory: c.Logging.Directory,
		Debug:     c.Logging.Debug,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return logger, nil
}
