package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"video2audio/domain/audio"
)

// Environment variables that override the config file
const (
	EnvFFmpegPath  = "VIDEO2AUDIO_FFMPEG"
	EnvFFprobePath = "VIDEO2AUDIO_FFPROBE"
	EnvAddress     = "VIDEO2AUDIO_ADDR"
	EnvLogLevel    = "VIDEO2AUDIO_LOG_LEVEL"
)

// Config represents the complete application configuration
type Config struct {
	Paths   PathsConfig   `yaml:"paths"`
	FFmpeg  FFmpegConfig  `yaml:"ffmpeg"`
	Audio   AudioConfig   `yaml:"audio"`
	Server  ServerConfig  `yaml:"server"`
	Workers WorkersConfig `yaml:"workers"`
	Logging LoggingConfig `yaml:"logging"`
	Google  GoogleConfig  `yaml:"google"`
}

// PathsConfig contains the storage directories
type PathsConfig struct {
	UploadsDirectory    string `yaml:"uploads_directory"`
	ProcessingDirectory string `yaml:"processing_directory"`
	ProcessedDirectory  string `yaml:"processed_directory"`
}

// FFmpegConfig locates the external tools
type FFmpegConfig struct {
	FFmpegPath  string        `yaml:"ffmpeg_path"`
	FFprobePath string        `yaml:"ffprobe_path"`
	Timeout     time.Duration `yaml:"timeout"` // per invocation, 0 = none
}

// AudioConfig contains the initial conversion settings
type AudioConfig struct {
	Codec      string `yaml:"codec"`
	Bitrate    string `yaml:"bitrate"`
	SampleRate int    `yaml:"samplerate"`
	Channels   int    `yaml:"channels"`
	Auto       *bool  `yaml:"auto"`
	Loudnorm   bool   `yaml:"loudnorm"`
	Overwrite  *bool  `yaml:"overwrite"`
}

// ServerConfig contains web front end settings
type ServerConfig struct {
	Address     string `yaml:"address"`
	MaxUploadMB int    `yaml:"max_upload_mb"`
}

// WorkersConfig bounds background conversion
type WorkersConfig struct {
	MaxConcurrent int `yaml:"max_concurrent"`
}

// LoggingConfig contains logger settings
type LoggingConfig struct {
	Level     string `yaml:"level"`
	Directory string `yaml:"directory"`
	Debug     bool   `yaml:"debug"`
}

// GoogleConfig contains Google API settings
type GoogleConfig struct {
	CredentialsFile string `yaml:"credentials_file"`
	TokenFile       string `yaml:"token_file"`
	FolderID        string `yaml:"folder_id"`
}

// Default returns a configuration with every default filled in
func Default() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills zero values with their defaults
func (c *Config) ApplyDefaults() {
	if c.Paths.UploadsDirectory == "" {
		c.Paths.UploadsDirectory = "uploads"
	}
	if c.Paths.ProcessingDirectory == "" {
		c.Paths.ProcessingDirectory = "processing"
	}
	if c.Paths.ProcessedDirectory == "" {
		c.Paths.ProcessedDirectory = "processed"
	}
	if c.FFmpeg.FFmpegPath == "" {
		c.FFmpeg.FFmpegPath = "ffmpeg"
	}
	if c.FFmpeg.FFprobePath == "" {
		c.FFmpeg.FFprobePath = "ffprobe"
	}
	if c.Audio.Codec == "" {
		c.Audio.Codec = audio.MP3.String()
	}
	if c.Audio.Auto == nil {
		c.Audio.Auto = boolPtr(true)
	}
	if c.Audio.Overwrite == nil {
		c.Audio.Overwrite = boolPtr(true)
	}
	if c.Server.Address == "" {
		c.Server.Address = ":5000"
	}
	if c.Server.MaxUploadMB <= 0 {
		c.Server.MaxUploadMB = 2048
	}
	if c.Workers.MaxConcurrent <= 0 {
		c.Workers.MaxConcurrent = 2
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Google.CredentialsFile == "" {
		c.Google.CredentialsFile = "credentials.json"
	}
	if c.Google.TokenFile == "" {
		c.Google.TokenFile = "token.json"
	}
}

// Validate reports settings that cannot be used as given
func (c *Config) Validate() error {
	var errs []error
	if !audio.IsKnownCodec(c.Audio.Codec) {
		errs = append(errs, fmt.Errorf("unknown audio codec %q", c.Audio.Codec))
	}
	if c.Audio.SampleRate < 0 {
		errs = append(errs, fmt.Errorf("samplerate must not be negative"))
	}
	if c.Audio.Channels < 0 {
		errs = append(errs, fmt.Errorf("channels must not be negative"))
	}
	if c.FFmpeg.Timeout < 0 {
		errs = append(errs, fmt.Errorf("ffmpeg timeout must not be negative"))
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("unknown log level %q", c.Logging.Level))
	}
	return errors.Join(errs...)
}

// AudioSettings converts the audio section into the initial conversion settings
func (c *Config) AudioSettings() audio.Settings {
	s := audio.SettingsUpdate{
		Codec:      c.Audio.Codec,
		Bitrate:    c.Audio.Bitrate,
		SampleRate: c.Audio.SampleRate,
		Channels:   c.Audio.Channels,
	}.Apply(audio.DefaultSettings())
	if c.Audio.Auto != nil {
		s.Auto = *c.Audio.Auto
	}
	if c.Audio.Overwrite != nil {
		s.Overwrite = *c.Audio.Overwrite
	}
	s.Loudnorm = c.Audio.Loudnorm
	return s
}

// Load reads and parses the configuration from the specified YAML file.
// A missing file yields the defaults. Environment overrides are applied last.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.ApplyDefaults()
	cfg.ApplyEnv()
	return &cfg, nil
}

// LoadDotEnv loads variables from a .env file into the process environment.
// Variables already set are kept. A missing file is not an error.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load env file: %w", err)
	}
	return nil
}

// ApplyEnv overrides config values from the environment
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvFFmpegPath); v != "" {
		c.FFmpeg.FFmpegPath = v
	}
	if v := os.Getenv(EnvFFprobePath); v != "" {
		c.FFmpeg.FFprobePath = v
	}
	if v := os.Getenv(EnvAddress); v != "" {
		c.Server.Address = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Logging.Level = v
	}
}

// Save writes the configuration to the specified YAML file
func Save(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

func boolPtr(b bool) *bool {
	return &b
}
