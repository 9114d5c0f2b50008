package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"video2audio/domain/audio"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "config.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Paths.UploadsDirectory != "uploads" || cfg.Paths.ProcessedDirectory != "processed" {
		t.Errorf("unexpected paths: %+v", cfg.Paths)
	}
	if cfg.Server.Address != ":5000" {
		t.Errorf("Server.Address = %q, want :5000", cfg.Server.Address)
	}
	if cfg.Workers.MaxConcurrent != 2 {
		t.Errorf("Workers.MaxConcurrent = %d, want 2", cfg.Workers.MaxConcurrent)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}

	s := cfg.AudioSettings()
	if s != audio.DefaultSettings() {
		t.Errorf("AudioSettings() = %+v, want defaults", s)
	}
}

func TestLoad_ParsesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
paths:
  uploads_directory: /data/in
  processed_directory: /data/out
ffmpeg:
  ffmpeg_path: /opt/ffmpeg
  timeout: 90s
audio:
  codec: flac
  samplerate: 96000
  auto: false
  loudnorm: true
workers:
  max_concurrent: 4
google:
  folder_id: abc123
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Paths.UploadsDirectory != "/data/in" || cfg.Paths.ProcessingDirectory != "processing" {
		t.Errorf("unexpected paths: %+v", cfg.Paths)
	}
	if cfg.FFmpeg.FFmpegPath != "/opt/ffmpeg" || cfg.FFmpeg.FFprobePath != "ffprobe" {
		t.Errorf("unexpected ffmpeg: %+v", cfg.FFmpeg)
	}
	if cfg.FFmpeg.Timeout != 90*time.Second {
		t.Errorf("Timeout = %v, want 90s", cfg.FFmpeg.Timeout)
	}
	if cfg.Workers.MaxConcurrent != 4 {
		t.Errorf("MaxConcurrent = %d", cfg.Workers.MaxConcurrent)
	}
	if cfg.Google.FolderID != "abc123" || cfg.Google.TokenFile != "token.json" {
		t.Errorf("unexpected google: %+v", cfg.Google)
	}

	s := cfg.AudioSettings()
	want := audio.Settings{Codec: audio.FLAC, SampleRate: 96000, Auto: false, Loudnorm: true, Overwrite: true}
	if s != want {
		t.Errorf("AudioSettings() = %+v, want %+v", s, want)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("paths: [unterminated"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := Load(path)
	if err == nil || !contains(err.Error(), "failed to parse config file") {
		t.Errorf("Load() error = %v", err)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv(EnvFFmpegPath, "/env/ffmpeg")
	t.Setenv(EnvFFprobePath, "/env/ffprobe")
	t.Setenv(EnvAddress, "127.0.0.1:8080")
	t.Setenv(EnvLogLevel, "debug")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.FFmpeg.FFmpegPath != "/env/ffmpeg" || cfg.FFmpeg.FFprobePath != "/env/ffprobe" {
		t.Errorf("unexpected ffmpeg: %+v", cfg.FFmpeg)
	}
	if cfg.Server.Address != "127.0.0.1:8080" {
		t.Errorf("Server.Address = %q", cfg.Server.Address)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q", cfg.Logging.Level)
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	if err := LoadDotEnv(filepath.Join(dir, ".env")); err != nil {
		t.Errorf("missing .env should not fail: %v", err)
	}

	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte(EnvAddress+"=:9999\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv(EnvAddress, "")
	os.Unsetenv(EnvAddress)

	if err := LoadDotEnv(path); err != nil {
		t.Fatalf("LoadDotEnv() error = %v", err)
	}
	if got := os.Getenv(EnvAddress); got != ":9999" {
		t.Errorf("%s = %q, want :9999", EnvAddress, got)
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Audio.Codec = "opus"
	cfg.Audio.Channels = -1
	cfg.Logging.Level = "verbose"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{`unknown audio codec "opus"`, "channels must not be negative", `unknown log level "verbose"`} {
		if !contains(err.Error(), want) {
			t.Errorf("Validate() error %q missing %q", err.Error(), want)
		}
	}
}

func TestSave_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := Default()
	cfg.Audio.Codec = "aac"
	cfg.Google.FolderID = "folder"

	if err := Save(cfg, path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Audio.Codec != "aac" || loaded.Google.FolderID != "folder" {
		t.Errorf("loaded = %+v", loaded)
	}
}

func contains(s, substr string) bool {
	for i := 0; i <= len(s)-len(substr); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}
