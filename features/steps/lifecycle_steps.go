//go:build integration

package steps

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"video2audio/application/conversion"
	"video2audio/application/lifecycle"
	"video2audio/domain/audio"

	"github.com/cucumber/godog"
)

// scriptedConverter succeeds unless a file is marked to fail; it can hold the first file until released
type scriptedConverter struct {
	mu          sync.Mutex
	fileChecker *mockFileChecker
	failing     map[string]bool
	hold        chan struct{}
	started     chan struct{}
}

func (s *scriptedConverter) Convert(ctx context.Context, input conversion.ConvertInput) (*conversion.ConvertResult, error) {
	s.mu.Lock()
	hold, started := s.hold, s.started
	s.hold, s.started = nil, nil
	s.mu.Unlock()

	if hold != nil {
		close(started)
		select {
		case <-hold:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	name := filepath.Base(input.SourcePath)
	if s.failing[name] {
		return nil, &audio.CommandExecutionError{Command: "ffmpeg", ExitCode: 1, Stderr: "Invalid data found when processing input"}
	}

	s.mu.Lock()
	s.fileChecker.existingFiles[input.OutputPath] = true
	s.mu.Unlock()

	return &conversion.ConvertResult{
		SourcePath: input.SourcePath,
		OutputPath: input.OutputPath,
		Resolved:   audio.ResolveWithoutProbe(input.Settings.Codec.String(), input.Settings.Overrides()),
	}, nil
}

// syncChecker guards the shared mock checker; the manager reads it from batch goroutines
type syncChecker struct {
	mu      *sync.Mutex
	checker *mockFileChecker
}

func (c syncChecker) Exists(path string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.checker.Exists(path)
}

func (c syncChecker) FreshSince(path string, since time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.checker.FreshSince(path, since)
}

type lifecycleContext struct {
	converter *scriptedConverter
	manager   *lifecycle.Manager
	batch     *lifecycle.Batch
	hold      chan struct{}
	started   chan struct{}
	err       error
}

var SharedLifecycleContext *lifecycleContext

func getLifecycleContext() *lifecycleContext {
	return SharedLifecycleContext
}

func InitializeLifecycleScenario(ctx *godog.ScenarioContext) {
	ctx.Before(func(c context.Context, sc *godog.Scenario) (context.Context, error) {
		converter := &scriptedConverter{
			fileChecker: newMockFileChecker(),
			failing:     make(map[string]bool),
		}
		checker := syncChecker{mu: &converter.mu, checker: converter.fileChecker}
		SharedLifecycleContext = &lifecycleContext{
			converter: converter,
			manager:   lifecycle.NewManager(converter, checker, "uploads", "processed", lifecycle.WithMaxConcurrent(1)),
		}
		return c, nil
	})

	ctx.After(func(c context.Context, sc *godog.Scenario, err error) (context.Context, error) {
		l := getLifecycleContext()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = l.manager.Shutdown(shutdownCtx)
		SharedLifecycleContext = nil
		return c, nil
	})

	ctx.Step(`^"([^"]*)" has been uploaded$`, hasBeenUploaded)
	ctx.Step(`^the conversion of "([^"]*)" will fail$`, theConversionOfWillFail)
	ctx.Step(`^the first conversion is held$`, theFirstConversionIsHeld)
	ctx.Step(`^the output codec is set to "([^"]*)"$`, theOutputCodecIsSetTo)
	ctx.Step(`^I start processing "([^"]*)"$`, iStartProcessing)
	ctx.Step(`^the held conversion has started$`, theHeldConversionHasStarted)
	ctx.Step(`^I change the output codec to "([^"]*)"$`, theOutputCodecIsSetTo)
	ctx.Step(`^the held conversion is released$`, theHeldConversionIsReleased)
	ctx.Step(`^the batch finishes$`, theBatchFinishes)
	ctx.Step(`^I clear "([^"]*)"$`, iClear)
	ctx.Step(`^the pending list should be "([^"]*)"$`, bucketShouldBe("pending"))
	ctx.Step(`^the active list should be "([^"]*)"$`, bucketShouldBe("active"))
	ctx.Step(`^the completed list should be "([^"]*)"$`, bucketShouldBe("completed"))
	ctx.Step(`^the failed list should be "([^"]*)"$`, bucketShouldBe("failed"))
	ctx.Step(`^the processed outputs should be "([^"]*)"$`, theProcessedOutputsShouldBe)
	ctx.Step(`^clearing should fail with "([^"]*)"$`, clearingShouldFailWith)
}

func hasBeenUploaded(name string) error {
	l := getLifecycleContext()
	l.converter.mu.Lock()
	l.converter.fileChecker.existingFiles[filepath.Join("uploads", name)] = true
	l.converter.mu.Unlock()
	l.manager.Accept(name)
	return nil
}

func theConversionOfWillFail(name string) error {
	getLifecycleContext().converter.failing[name] = true
	return nil
}

func theFirstConversionIsHeld() error {
	c := getLifecycleContext().converter
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hold = make(chan struct{})
	c.started = make(chan struct{})
	return nil
}

func theOutputCodecIsSetTo(codec string) error {
	l := getLifecycleContext()
	s := l.manager.Settings()
	s.Codec = audio.ParseCodec(codec)
	l.manager.UpdateSettings(s)
	return nil
}

func iStartProcessing(list string) error {
	l := getLifecycleContext()
	l.converter.mu.Lock()
	hold, started := l.converter.hold, l.converter.started
	l.converter.mu.Unlock()

	l.hold, l.started = hold, started
	l.batch = l.manager.Submit(splitList(list))
	return nil
}

func theHeldConversionHasStarted() error {
	l := getLifecycleContext()
	if l.started == nil {
		return fmt.Errorf("no conversion was held")
	}
	select {
	case <-l.started:
		return nil
	case <-time.After(5 * time.Second):
		return fmt.Errorf("held conversion never started")
	}
}

func theHeldConversionIsReleased() error {
	close(getLifecycleContext().hold)
	return nil
}

func theBatchFinishes() error {
	l := getLifecycleContext()
	if l.batch == nil {
		return fmt.Errorf("no batch was submitted")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := l.batch.Wait(ctx); err != nil {
		return fmt.Errorf("batch did not finish: %w", err)
	}
	return nil
}

func iClear(name string) error {
	l := getLifecycleContext()
	l.err = l.manager.Clear(name)
	return nil
}

func bucketShouldBe(bucket string) func(string) error {
	return func(list string) error {
		snap := getLifecycleContext().manager.Snapshot()
		var got []string
		switch bucket {
		case "pending":
			got = snap.Pending
		case "active":
			got = snap.Active
		case "completed":
			got = snap.Completed
		case "failed":
			got = snap.Failed
		}
		want := splitList(list)
		if !slices.Equal(got, want) {
			return fmt.Errorf("expected %s list %v, got %v", bucket, want, got)
		}
		return nil
	}
}

func theProcessedOutputsShouldBe(list string) error {
	got := getLifecycleContext().manager.CompletedOutputs()
	want := splitList(list)
	if !slices.Equal(got, want) {
		return fmt.Errorf("expected processed outputs %v, got %v", want, got)
	}
	return nil
}

func clearingShouldFailWith(fragment string) error {
	l := getLifecycleContext()
	if l.err == nil {
		return fmt.Errorf("expected clearing to fail")
	}
	if !strings.Contains(l.err.Error(), fragment) {
		return fmt.Errorf("expected error containing %q, got: %v", fragment, l.err)
	}
	return nil
}

// splitList parses a comma separated list; an empty string is an empty list
func splitList(list string) []string {
	out := []string{}
	for _, item := range strings.Split(list, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
