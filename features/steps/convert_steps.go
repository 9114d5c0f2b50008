//go:build integration

package steps

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"video2audio/application/conversion"
	"video2audio/cmd"
	"video2audio/domain/audio"

	"github.com/cucumber/godog"
)

// mockProber returns canned stream facts
type mockProber struct {
	info   audio.AudioStreamInfo
	err    error
	probed []string
}

func (m *mockProber) Probe(ctx context.Context, path string) (audio.AudioStreamInfo, error) {
	m.probed = append(m.probed, path)
	if m.err != nil {
		return audio.AudioStreamInfo{}, m.err
	}
	return m.info, nil
}

// mockEncoder records invocations and writes the artifact into the file checker
type mockEncoder struct {
	calls       []audio.Invocation
	fileChecker *mockFileChecker
	writeOutput bool
	failError   error
}

func (m *mockEncoder) Run(ctx context.Context, inv audio.Invocation) error {
	m.calls = append(m.calls, inv)
	if m.failError != nil {
		return m.failError
	}
	if m.writeOutput && len(inv.Args) > 0 {
		out := inv.Args[len(inv.Args)-1]
		m.fileChecker.existingFiles[out] = true
		m.fileChecker.freshFiles[out] = true
	}
	return nil
}

// mockFileChecker simulates file existence and freshness
type mockFileChecker struct {
	existingFiles map[string]bool
	freshFiles    map[string]bool
}

func newMockFileChecker() *mockFileChecker {
	return &mockFileChecker{
		existingFiles: make(map[string]bool),
		freshFiles:    make(map[string]bool),
	}
}

func (m *mockFileChecker) Exists(path string) bool {
	return m.existingFiles[path]
}

func (m *mockFileChecker) FreshSince(path string, since time.Time) bool {
	return m.existingFiles[path] && m.freshFiles[path]
}

// convertContext holds test state for convert scenarios
type convertContext struct {
	sourcePath  string
	settings    audio.Settings
	prober      *mockProber
	encoder     *mockEncoder
	fileChecker *mockFileChecker
	output      *bytes.Buffer
	err         error
}

// SharedConvertContext is reset before each scenario via Before hook
var SharedConvertContext *convertContext

func getConvertContext() *convertContext {
	return SharedConvertContext
}

func InitializeConvertScenario(ctx *godog.ScenarioContext) {
	ctx.Before(func(c context.Context, sc *godog.Scenario) (context.Context, error) {
		checker := newMockFileChecker()
		SharedConvertContext = &convertContext{
			settings:    audio.DefaultSettings(),
			prober:      &mockProber{info: audio.AudioStreamInfo{SampleRate: 44100, Channels: 2}},
			encoder:     &mockEncoder{fileChecker: checker, writeOutput: true},
			fileChecker: checker,
			output:      &bytes.Buffer{},
		}
		return c, nil
	})

	ctx.After(func(c context.Context, sc *godog.Scenario, err error) (context.Context, error) {
		SharedConvertContext = nil
		return c, nil
	})

	ctx.Step(`^a source video at "([^"]*)"$`, aSourceVideoAt)
	ctx.Step(`^no source video exists at "([^"]*)"$`, noSourceVideoExistsAt)
	ctx.Step(`^the source audio stream has bitrate (\d+), sample rate (\d+) and (\d+) channels$`, theSourceAudioStreamHas)
	ctx.Step(`^the source cannot be probed$`, theSourceCannotBeProbed)
	ctx.Step(`^the codec is "([^"]*)"$`, theCodecIs)
	ctx.Step(`^the bitrate override is "([^"]*)"$`, theBitrateOverrideIs)
	ctx.Step(`^the sample rate override is (\d+)$`, theSampleRateOverrideIs)
	ctx.Step(`^the channels override is (\d+)$`, theChannelsOverrideIs)
	ctx.Step(`^probing is disabled$`, probingIsDisabled)
	ctx.Step(`^loudness normalization is enabled$`, loudnessNormalizationIsEnabled)
	ctx.Step(`^overwriting is disabled$`, overwritingIsDisabled)
	ctx.Step(`^an output file already exists at "([^"]*)"$`, anOutputFileAlreadyExistsAt)
	ctx.Step(`^ffmpeg exits with code (\d+)$`, ffmpegExitsWithCode)
	ctx.Step(`^ffmpeg exits cleanly without writing output$`, ffmpegExitsCleanlyWithoutWritingOutput)
	ctx.Step(`^I convert it to "([^"]*)"$`, iConvertItTo)
	ctx.Step(`^I attempt to convert it to "([^"]*)"$`, iAttemptToConvertItTo)
	ctx.Step(`^ffmpeg should have been called with arguments:$`, ffmpegShouldHaveBeenCalledWithArguments)
	ctx.Step(`^ffmpeg should not have been called with "([^"]*)"$`, ffmpegShouldNotHaveBeenCalledWith)
	ctx.Step(`^ffmpeg should not have been called$`, ffmpegShouldNotHaveBeenCalled)
	ctx.Step(`^the source should not have been probed$`, theSourceShouldNotHaveBeenProbed)
	ctx.Step(`^the conversion should fail with "([^"]*)"$`, theConversionShouldFailWith)
	ctx.Step(`^the output should mention "([^"]*)"$`, theOutputShouldMention)
}

func aSourceVideoAt(path string) error {
	c := getConvertContext()
	c.sourcePath = path
	c.fileChecker.existingFiles[path] = true
	return nil
}

func noSourceVideoExistsAt(path string) error {
	c := getConvertContext()
	c.sourcePath = path
	c.fileChecker.existingFiles[path] = false
	return nil
}

func theSourceAudioStreamHas(bitrate, sampleRate, channels int) error {
	c := getConvertContext()
	c.prober.info = audio.AudioStreamInfo{Bitrate: bitrate, SampleRate: sampleRate, Channels: channels}
	return nil
}

func theSourceCannotBeProbed() error {
	c := getConvertContext()
	c.prober.err = &audio.ProbeError{Path: c.sourcePath, Stderr: "moov atom not found", Err: errors.New("exit status 1")}
	return nil
}

func theCodecIs(codec string) error {
	c := getConvertContext()
	c.settings.Codec = audio.ParseCodec(codec)
	return nil
}

func theBitrateOverrideIs(bitrate string) error {
	getConvertContext().settings.Bitrate = bitrate
	return nil
}

func theSampleRateOverrideIs(rate int) error {
	getConvertContext().settings.SampleRate = rate
	return nil
}

func theChannelsOverrideIs(channels int) error {
	getConvertContext().settings.Channels = channels
	return nil
}

func probingIsDisabled() error {
	getConvertContext().settings.Auto = false
	return nil
}

func loudnessNormalizationIsEnabled() error {
	getConvertContext().settings.Loudnorm = true
	return nil
}

func overwritingIsDisabled() error {
	getConvertContext().settings.Overwrite = false
	return nil
}

func anOutputFileAlreadyExistsAt(path string) error {
	getConvertContext().fileChecker.existingFiles[path] = true
	return nil
}

func ffmpegExitsWithCode(code int) error {
	c := getConvertContext()
	c.encoder.failError = &audio.CommandExecutionError{
		Command:  "ffmpeg",
		ExitCode: code,
		Stderr:   "Invalid data found when processing input",
		Err:      errors.New("exit status " + strconv.Itoa(code)),
	}
	return nil
}

func ffmpegExitsCleanlyWithoutWritingOutput() error {
	getConvertContext().encoder.writeOutput = false
	return nil
}

func runConvert(outputPath string) error {
	c := getConvertContext()
	return cmd.RunConvertWithDependencies(
		context.Background(),
		c.prober,
		c.encoder,
		c.fileChecker,
		"ffmpeg",
		conversion.ConvertInput{
			SourcePath: c.sourcePath,
			OutputPath: outputPath,
			Settings:   c.settings,
		},
		c.output,
	)
}

func iConvertItTo(outputPath string) error {
	c := getConvertContext()
	c.err = runConvert(outputPath)
	if c.err != nil {
		return fmt.Errorf("unexpected error: %v", c.err)
	}
	return nil
}

func iAttemptToConvertItTo(outputPath string) error {
	c := getConvertContext()
	c.err = runConvert(outputPath)
	return nil
}

func ffmpegShouldHaveBeenCalledWithArguments(table *godog.Table) error {
	c := getConvertContext()
	if len(c.encoder.calls) == 0 {
		return fmt.Errorf("ffmpeg was not called")
	}

	var expected []string
	for i, row := range table.Rows {
		if i == 0 {
			continue // Skip header row
		}
		expected = append(expected, row.Cells[0].Value)
	}

	got := c.encoder.calls[0].Args
	if strings.Join(got, " ") != strings.Join(expected, " ") {
		return fmt.Errorf("expected ffmpeg arguments %v, got %v", expected, got)
	}
	return nil
}

func ffmpegShouldNotHaveBeenCalledWith(flag string) error {
	c := getConvertContext()
	for _, call := range c.encoder.calls {
		for _, arg := range call.Args {
			if arg == flag {
				return fmt.Errorf("unexpected argument %q in ffmpeg call: %v", flag, call.Args)
			}
		}
	}
	return nil
}

func ffmpegShouldNotHaveBeenCalled() error {
	c := getConvertContext()
	if len(c.encoder.calls) > 0 {
		return fmt.Errorf("expected no ffmpeg call, got %d", len(c.encoder.calls))
	}
	return nil
}

func theSourceShouldNotHaveBeenProbed() error {
	c := getConvertContext()
	if len(c.prober.probed) > 0 {
		return fmt.Errorf("expected no probe, got %v", c.prober.probed)
	}
	return nil
}

func theConversionShouldFailWith(fragment string) error {
	c := getConvertContext()
	if c.err == nil {
		return fmt.Errorf("expected an error but got none")
	}
	if !strings.Contains(c.err.Error(), fragment) {
		return fmt.Errorf("expected error containing %q, got: %v", fragment, c.err)
	}
	return nil
}

func theOutputShouldMention(fragment string) error {
	c := getConvertContext()
	if !strings.Contains(c.output.String(), fragment) {
		return fmt.Errorf("expected output to mention %q, got:\n%s", fragment, c.output.String())
	}
	return nil
}
