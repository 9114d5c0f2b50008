package conversion

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"video2audio/domain/audio"
	"video2audio/infrastructure/filesystem"
)

// --- Mock implementations for testing ---

// mockProber implements audio.Prober for testing
type mockProber struct {
	info       audio.AudioStreamInfo
	shouldFail bool
	failError  error
	calls      int
}

func (m *mockProber) Probe(ctx context.Context, path string) (audio.AudioStreamInfo, error) {
	m.calls++
	if m.shouldFail {
		return audio.AudioStreamInfo{}, m.failError
	}
	return m.info, nil
}

// mockEncoder implements audio.Encoder for testing; it writes the last argument unless told not to
type mockEncoder struct {
	shouldFail bool
	failError  error
	skipWrite  bool
	runs       []audio.Invocation
}

func (m *mockEncoder) Run(ctx context.Context, inv audio.Invocation) error {
	m.runs = append(m.runs, inv)
	if m.shouldFail {
		return m.failError
	}
	if m.skipWrite {
		return nil
	}
	return os.WriteFile(inv.Args[len(inv.Args)-1], []byte("audio"), 0644)
}

func writeSource(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("video"), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func hasArg(args []string, flag string) bool {
	for _, a := range args {
		if a == flag {
			return true
		}
	}
	return false
}

func argAfter(args []string, flag string) string {
	for i, a := range args {
		if a == flag && i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}

func TestService_ConvertAutoProbes(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "talk.mp4")
	prober := &mockProber{info: audio.AudioStreamInfo{Bitrate: 64000, SampleRate: 96000, Channels: 6}}
	encoder := &mockEncoder{}
	svc := NewService(prober, encoder, filesystem.NewChecker(), WithFFmpegPath("/opt/ffmpeg"))

	settings := audio.DefaultSettings()
	out := OutputPath(dir, src, settings)
	res, err := svc.Convert(context.Background(), ConvertInput{SourcePath: src, OutputPath: out, Settings: settings})
	if err != nil {
		t.Fatalf("Convert() error = %v", err)
	}

	if prober.calls != 1 {
		t.Errorf("prober calls = %d, want 1", prober.calls)
	}
	want := audio.TranscodeSettings{Codec: audio.MP3, Bitrate: "192k", SampleRate: 44100, Channels: 2}
	if res.Resolved != want {
		t.Errorf("Resolved = %+v, want %+v", res.Resolved, want)
	}
	if res.OutputPath != filepath.Join(dir, "talk.mp3") {
		t.Errorf("OutputPath = %q", res.OutputPath)
	}
	if res.Command.Binary != "/opt/ffmpeg" {
		t.Errorf("Binary = %q", res.Command.Binary)
	}
	if argAfter(res.Command.Args, "-b:a") != "192k" || !hasArg(res.Command.Args, "-y") {
		t.Errorf("Args = %v", res.Command.Args)
	}
}

func TestService_ConvertWithoutAutoSkipsProbe(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "talk.mp4")
	prober := &mockProber{shouldFail: true, failError: errors.New("should not be called")}
	encoder := &mockEncoder{}
	svc := NewService(prober, encoder, filesystem.NewChecker())

	settings := audio.Settings{Codec: audio.FLAC, Bitrate: "320k", Overwrite: true}
	out := OutputPath(dir, src, settings)
	res, err := svc.Convert(context.Background(), ConvertInput{SourcePath: src, OutputPath: out, Settings: settings})
	if err != nil {
		t.Fatalf("Convert() error = %v", err)
	}
	if prober.calls != 0 {
		t.Errorf("prober calls = %d, want 0", prober.calls)
	}
	if hasArg(res.Command.Args, "-b:a") || hasArg(res.Command.Args, "-ar") || hasArg(res.Command.Args, "-ac") {
		t.Errorf("expected no format flags, got %v", res.Command.Args)
	}
	if argAfter(res.Command.Args, "-f") != "flac" {
		t.Errorf("container = %q, want flac", argAfter(res.Command.Args, "-f"))
	}
}

func TestService_ConvertFailures(t *testing.T) {
	encodeErr := &audio.CommandExecutionError{Command: "ffmpeg", ExitCode: 1, Stderr: "Invalid data"}
	probeErr := &audio.ProbeError{Path: "talk.mp4", Err: errors.New("exit status 1")}

	tests := []struct {
		name    string
		prober  *mockProber
		encoder *mockEncoder
		missing bool
		wantErr error
	}{
		{name: "missing source", prober: &mockProber{}, encoder: &mockEncoder{}, missing: true, wantErr: ErrSourceMissing},
		{name: "probe failure", prober: &mockProber{shouldFail: true, failError: probeErr}, encoder: &mockEncoder{}, wantErr: audio.ErrProbeFailed},
		{name: "encoder failure", prober: &mockProber{}, encoder: &mockEncoder{shouldFail: true, failError: encodeErr}, wantErr: audio.ErrCommandFailed},
		{name: "no artifact written", prober: &mockProber{}, encoder: &mockEncoder{skipWrite: true}, wantErr: ErrArtifactNotWritten},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			src := filepath.Join(dir, "talk.mp4")
			if !tt.missing {
				writeSource(t, dir, "talk.mp4")
			}
			svc := NewService(tt.prober, tt.encoder, filesystem.NewChecker())

			_, err := svc.Convert(context.Background(), ConvertInput{
				SourcePath: src,
				OutputPath: filepath.Join(dir, "talk.mp3"),
				Settings:   audio.DefaultSettings(),
			})
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Convert() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestService_ConvertStaleArtifactIsNotSuccess(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "talk.mp4")
	out := filepath.Join(dir, "talk.mp3")
	if err := os.WriteFile(out, []byte("old"), 0644); err != nil {
		t.Fatal(err)
	}
	old := time.Now().Add(-time.Hour)
	if err := os.Chtimes(out, old, old); err != nil {
		t.Fatal(err)
	}

	svc := NewService(&mockProber{}, &mockEncoder{skipWrite: true}, filesystem.NewChecker())
	_, err := svc.Convert(context.Background(), ConvertInput{SourcePath: src, OutputPath: out, Settings: audio.DefaultSettings()})
	if !errors.Is(err, ErrArtifactNotWritten) {
		t.Errorf("Convert() error = %v, want ErrArtifactNotWritten", err)
	}
}

func TestService_ConvertRefusesOverwrite(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "talk.mp4")
	out := writeSource(t, dir, "talk.mp3")
	encoder := &mockEncoder{}

	settings := audio.DefaultSettings()
	settings.Overwrite = false
	svc := NewService(&mockProber{}, encoder, filesystem.NewChecker())

	_, err := svc.Convert(context.Background(), ConvertInput{SourcePath: src, OutputPath: out, Settings: settings})
	if !errors.Is(err, ErrOutputExists) {
		t.Errorf("Convert() error = %v, want ErrOutputExists", err)
	}
	if len(encoder.runs) != 0 {
		t.Error("encoder must not run when the output exists")
	}
}

func TestService_ConvertCancelledBeforeEncode(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "talk.mp4")
	encoder := &mockEncoder{}
	svc := NewService(&mockProber{}, encoder, filesystem.NewChecker())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	settings := audio.DefaultSettings()
	settings.Auto = false
	_, err := svc.Convert(ctx, ConvertInput{SourcePath: src, OutputPath: filepath.Join(dir, "talk.mp3"), Settings: settings})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Convert() error = %v, want context.Canceled", err)
	}
	if len(encoder.runs) != 0 {
		t.Error("encoder must not run after cancellation")
	}
}

func TestOutputPath(t *testing.T) {
	got := OutputPath("processed", "uploads/clip.final.mov", audio.Settings{Codec: audio.AAC})
	if want := filepath.Join("processed", "clip.final.m4a"); got != want {
		t.Errorf("OutputPath() = %q, want %q", got, want)
	}
}

func TestService_ConvertFreshnessIsSecondGranular(t *testing.T) {
	dir := t.TempDir()
	src := writeSource(t, dir, "talk.mp4")
	out := filepath.Join(dir, "talk.mp3")

	second := time.Now().Add(-time.Hour).Truncate(time.Second)
	clock := func() time.Time { return second.Add(700 * time.Millisecond) }

	tests := []struct {
		name    string
		mtime   time.Time
		wantErr error
	}{
		{name: "written earlier in the start second counts as fresh", mtime: second},
		{name: "written in the previous second is stale", mtime: second.Add(-time.Millisecond), wantErr: ErrArtifactNotWritten},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := os.WriteFile(out, []byte("old"), 0644); err != nil {
				t.Fatal(err)
			}
			if err := os.Chtimes(out, tt.mtime, tt.mtime); err != nil {
				t.Fatal(err)
			}

			svc := NewService(&mockProber{}, &mockEncoder{skipWrite: true}, filesystem.NewChecker(), WithClock(clock))
			_, err := svc.Convert(context.Background(), ConvertInput{SourcePath: src, OutputPath: out, Settings: audio.DefaultSettings()})
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Convert() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
