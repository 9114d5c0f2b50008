package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	"video2audio/application/conversion"
	"video2audio/domain/audio"
	"video2audio/domain/job"
	"video2audio/infrastructure/filesystem"
)

// --- Mock implementations for testing ---

// fakeChecker implements audio.ArtifactChecker over an in-memory set
type fakeChecker struct {
	mu    sync.Mutex
	files map[string]bool
}

func newFakeChecker() *fakeChecker {
	return &fakeChecker{files: make(map[string]bool)}
}

func (c *fakeChecker) add(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.files[path] = true
}

func (c *fakeChecker) Exists(path string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.files[path]
}

func (c *fakeChecker) FreshSince(path string, since time.Time) bool {
	return c.Exists(path)
}

// mockConverter implements Converter; successful conversions register their output with checker
type mockConverter struct {
	checker   *fakeChecker
	failFiles map[string]error
	skipWrite bool

	gate    chan struct{} // when set, each conversion waits for one receive
	started chan string   // when set, receives each file name as conversion begins

	mu         sync.Mutex
	inputs     []conversion.ConvertInput
	running    int
	maxRunning int
}

func (m *mockConverter) Convert(ctx context.Context, input conversion.ConvertInput) (*conversion.ConvertResult, error) {
	name := filepath.Base(input.SourcePath)

	m.mu.Lock()
	m.inputs = append(m.inputs, input)
	m.running++
	m.maxRunning = max(m.maxRunning, m.running)
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		m.running--
		m.mu.Unlock()
	}()

	if m.started != nil {
		m.started <- name
	}
	if m.gate != nil {
		select {
		case <-m.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if err := m.failFiles[name]; err != nil {
		return nil, err
	}
	if !m.skipWrite {
		m.checker.add(input.OutputPath)
	}
	return &conversion.ConvertResult{
		SourcePath: input.SourcePath,
		OutputPath: input.OutputPath,
		Resolved:   audio.ResolveWithoutProbe(input.Settings.Codec.String(), input.Settings.Overrides()),
	}, nil
}

func (m *mockConverter) recorded() []conversion.ConvertInput {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.inputs)
}

func newTestManager(conv *mockConverter, opts ...Option) *Manager {
	return NewManager(conv, conv.checker, "uploads", "processed", opts...)
}

func waitBatch(t *testing.T, b *Batch) []job.Result {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	results, err := b.Wait(ctx)
	if err != nil {
		t.Fatalf("batch %s did not finish: %v", b.ID(), err)
	}
	return results
}

func receive(t *testing.T, ch <-chan string) string {
	t.Helper()
	select {
	case name := <-ch:
		return name
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for conversion to start")
		return ""
	}
}

func TestManager_AcceptAndSubmit(t *testing.T) {
	conv := &mockConverter{checker: newFakeChecker()}
	m := newTestManager(conv)

	if !m.Accept("a.mp4") || !m.Accept("b.mp4") || !m.Accept("c.mp4") {
		t.Fatal("expected new names to be accepted")
	}
	if m.Accept("a.mp4") {
		t.Error("duplicate name must be ignored")
	}

	b := m.Submit([]string{"c.mp4", "a.mp4", "unknown.mp4"})
	if got := b.Names(); !slices.Equal(got, []string{"c.mp4", "a.mp4"}) {
		t.Errorf("batch names = %v, want [c.mp4 a.mp4]", got)
	}
	if got := m.Pending(); !slices.Equal(got, []string{"b.mp4"}) {
		t.Errorf("Pending() = %v, want [b.mp4]", got)
	}

	results := waitBatch(t, b)
	if len(results) != 2 || !results[0].OK() || !results[1].OK() {
		t.Fatalf("results = %+v", results)
	}
	if results[0].Filename != "c.mp4" || results[1].Filename != "a.mp4" {
		t.Errorf("results out of submission order: %+v", results)
	}
	if got := m.Completed(); !slices.Equal(got, []string{"c.mp4", "a.mp4"}) {
		t.Errorf("Completed() = %v", got)
	}
	if got := m.CompletedOutputs(); !slices.Equal(got, []string{"c.mp3", "a.mp3"}) {
		t.Errorf("CompletedOutputs() = %v", got)
	}
	if len(m.Active()) != 0 {
		t.Errorf("Active() = %v, want empty", m.Active())
	}

	inputs := conv.recorded()
	if inputs[0].SourcePath != filepath.Join("uploads", "c.mp4") || inputs[0].OutputPath != filepath.Join("processed", "c.mp3") {
		t.Errorf("unexpected paths: %+v", inputs[0])
	}

	j, ok := m.Job("a.mp4")
	if !ok || j.State != job.StateCompleted || j.Output != "a.mp3" || j.BatchID != b.ID() {
		t.Errorf("Job(a.mp4) = %+v, %v", j, ok)
	}
	if j.StartedAt.IsZero() || j.FinishedAt.Before(j.StartedAt) {
		t.Errorf("unexpected timestamps: %+v", j)
	}
}

func TestManager_SubmitIgnoresNonPending(t *testing.T) {
	conv := &mockConverter{checker: newFakeChecker()}
	m := newTestManager(conv)

	b := m.Submit([]string{"ghost.mp4"})
	select {
	case <-b.Done():
	default:
		t.Fatal("empty batch should be done immediately")
	}
	if len(b.Results()) != 0 || len(conv.recorded()) != 0 {
		t.Error("empty batch must not convert anything")
	}

	m.Accept("a.mp4")
	waitBatch(t, m.Submit([]string{"a.mp4"}))
	again := m.Submit([]string{"a.mp4"})
	if len(again.Names()) != 0 {
		t.Errorf("completed name resubmitted: %v", again.Names())
	}
}

func TestManager_FailureMovesToFailedAndBatchContinues(t *testing.T) {
	conv := &mockConverter{
		checker: newFakeChecker(),
		failFiles: map[string]error{
			"bad.mp4": &audio.CommandExecutionError{Command: "ffmpeg", ExitCode: 1, Stderr: "Invalid data"},
		},
	}
	m := newTestManager(conv)
	m.Accept("bad.mp4")
	m.Accept("good.mp4")

	results := waitBatch(t, m.Submit([]string{"bad.mp4", "good.mp4"}))
	if results[0].OK() || !errors.Is(results[0].Err, audio.ErrCommandFailed) {
		t.Errorf("bad.mp4 result = %+v", results[0])
	}
	if !results[1].OK() {
		t.Errorf("good.mp4 result = %+v", results[1])
	}

	snap := m.Snapshot()
	if !slices.Equal(snap.Failed, []string{"bad.mp4"}) || !slices.Equal(snap.Completed, []string{"good.mp4"}) {
		t.Errorf("Snapshot() = %+v", snap)
	}
	j, _ := m.Job("bad.mp4")
	if j.State != job.StateFailed || !errors.Is(j.Err, audio.ErrCommandFailed) {
		t.Errorf("Job(bad.mp4) = %+v", j)
	}

	// a failed upload can be queued again
	if !m.Accept("bad.mp4") {
		t.Error("expected failed name to be re-accepted")
	}
	if got := m.Failed(); len(got) != 0 {
		t.Errorf("Failed() = %v after re-accept", got)
	}
	if got := m.Pending(); !slices.Equal(got, []string{"bad.mp4"}) {
		t.Errorf("Pending() = %v", got)
	}
}

func TestManager_SuccessWithoutArtifactFails(t *testing.T) {
	conv := &mockConverter{checker: newFakeChecker(), skipWrite: true}
	m := newTestManager(conv)
	m.Accept("a.mp4")

	results := waitBatch(t, m.Submit([]string{"a.mp4"}))
	if !errors.Is(results[0].Err, ErrArtifactMissing) {
		t.Errorf("Err = %v, want ErrArtifactMissing", results[0].Err)
	}
	if len(m.Completed()) != 0 || !slices.Equal(m.Failed(), []string{"a.mp4"}) {
		t.Errorf("Snapshot() = %+v", m.Snapshot())
	}
}

// recordingEncoder implements audio.Encoder and writes the output unless told otherwise
type recordingEncoder struct {
	mu        sync.Mutex
	runs      []audio.Invocation
	skipWrite bool
}

func (e *recordingEncoder) Run(ctx context.Context, inv audio.Invocation) error {
	e.mu.Lock()
	e.runs = append(e.runs, inv)
	e.mu.Unlock()
	if e.skipWrite {
		return nil
	}
	return os.WriteFile(inv.Args[len(inv.Args)-1], []byte("RIFF"), 0644)
}

// staticProber implements audio.Prober with a fixed answer
type staticProber struct {
	info audio.AudioStreamInfo
}

func (p staticProber) Probe(ctx context.Context, path string) (audio.AudioStreamInfo, error) {
	return p.info, nil
}

func newFileManager(t *testing.T, enc *recordingEncoder) (*Manager, string, string) {
	t.Helper()
	root := t.TempDir()
	uploads := filepath.Join(root, "uploads")
	processed := filepath.Join(root, "processed")
	for _, dir := range []string{uploads, processed} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			t.Fatal(err)
		}
	}

	checker := filesystem.NewChecker()
	prober := staticProber{info: audio.AudioStreamInfo{Bitrate: 1411000, SampleRate: 48000, Channels: 2}}
	svc := conversion.NewService(prober, enc, checker)
	return NewManager(svc, checker, uploads, processed), uploads, processed
}

func TestManager_WavEndToEnd(t *testing.T) {
	enc := &recordingEncoder{}
	m, uploads, processed := newFileManager(t, enc)
	if err := os.WriteFile(filepath.Join(uploads, "a.mp4"), []byte("video"), 0644); err != nil {
		t.Fatal(err)
	}

	m.UpdateSettings(audio.SettingsUpdate{Codec: "wav", Bitrate: "320k"}.Apply(m.Settings()))
	m.Accept("a.mp4")

	b := m.Submit([]string{"a.mp4"})
	if got := m.Pending(); len(got) != 0 {
		t.Errorf("Pending() = %v after submit", got)
	}
	results := waitBatch(t, b)

	if !results[0].OK() {
		t.Fatalf("result = %+v", results[0])
	}
	if got := m.Completed(); !slices.Equal(got, []string{"a.mp4"}) {
		t.Errorf("Completed() = %v", got)
	}
	if _, err := os.Stat(filepath.Join(processed, "a.wav")); err != nil {
		t.Errorf("artifact missing: %v", err)
	}
	if !results[0].Settings.Lossless || results[0].Settings.Bitrate != "" {
		t.Errorf("resolved = %+v", results[0].Settings)
	}

	if len(enc.runs) != 1 {
		t.Fatalf("encoder runs = %d, want 1", len(enc.runs))
	}
	for _, arg := range enc.runs[0].Args {
		if arg == "-b:a" {
			t.Errorf("bitrate flag in wav invocation: %v", enc.runs[0].Args)
		}
	}
}

func TestManager_StaleArtifactIsNotCompleted(t *testing.T) {
	enc := &recordingEncoder{skipWrite: true}
	m, uploads, processed := newFileManager(t, enc)
	if err := os.WriteFile(filepath.Join(uploads, "a.mp4"), []byte("video"), 0644); err != nil {
		t.Fatal(err)
	}
	stalePath := filepath.Join(processed, "a.mp3")
	if err := os.WriteFile(stalePath, []byte("old"), 0644); err != nil {
		t.Fatal(err)
	}
	old := time.Now().Add(-24 * time.Hour)
	if err := os.Chtimes(stalePath, old, old); err != nil {
		t.Fatal(err)
	}

	m.Accept("a.mp4")
	results := waitBatch(t, m.Submit([]string{"a.mp4"}))

	if !errors.Is(results[0].Err, conversion.ErrArtifactNotWritten) {
		t.Errorf("Err = %v, want ErrArtifactNotWritten", results[0].Err)
	}
	if len(m.Completed()) != 0 {
		t.Errorf("stale artifact reported as completed: %v", m.Completed())
	}
}

func TestManager_CancelSkipsRemainingFiles(t *testing.T) {
	conv := &mockConverter{
		checker: newFakeChecker(),
		gate:    make(chan struct{}),
		started: make(chan string, 4),
	}
	m := newTestManager(conv)
	m.Accept("a.mp4")
	m.Accept("b.mp4")

	b := m.Submit([]string{"a.mp4", "b.mp4"})
	receive(t, conv.started)
	b.Cancel()

	results := waitBatch(t, b)
	if len(results) != 2 {
		t.Fatalf("results = %+v", results)
	}
	for _, r := range results {
		if !errors.Is(r.Err, context.Canceled) {
			t.Errorf("%s: Err = %v, want context.Canceled", r.Filename, r.Err)
		}
	}
	if n := len(conv.recorded()); n != 1 {
		t.Errorf("conversions started = %d, want 1", n)
	}
	if got := m.Failed(); !slices.Equal(got, []string{"a.mp4", "b.mp4"}) {
		t.Errorf("Failed() = %v", got)
	}
}

func TestManager_SettingsAreReadAtResolveTime(t *testing.T) {
	conv := &mockConverter{
		checker: newFakeChecker(),
		gate:    make(chan struct{}),
		started: make(chan string, 4),
	}
	m := newTestManager(conv)
	m.Accept("a.mp4")
	m.Accept("b.mp4")

	b := m.Submit([]string{"a.mp4", "b.mp4"})
	if got := receive(t, conv.started); got != "a.mp4" {
		t.Fatalf("first conversion = %s", got)
	}

	// b.mp4 is already active but has not been resolved yet
	m.UpdateSettings(audio.Settings{Codec: audio.FLAC, Auto: true, Overwrite: true})
	conv.gate <- struct{}{}
	receive(t, conv.started)
	conv.gate <- struct{}{}

	results := waitBatch(t, b)
	inputs := conv.recorded()
	if inputs[0].Settings.Codec != audio.MP3 {
		t.Errorf("a.mp4 codec = %v, want mp3", inputs[0].Settings.Codec)
	}
	if inputs[1].Settings.Codec != audio.FLAC {
		t.Errorf("b.mp4 codec = %v, want flac", inputs[1].Settings.Codec)
	}
	if results[1].OutputPath != filepath.Join("processed", "b.flac") {
		t.Errorf("b.mp4 output = %q", results[1].OutputPath)
	}
	if got := m.CompletedOutputs(); !slices.Equal(got, []string{"a.mp3", "b.flac"}) {
		t.Errorf("CompletedOutputs() = %v", got)
	}
}

func TestManager_ConcurrentBatchesAreBounded(t *testing.T) {
	conv := &mockConverter{
		checker: newFakeChecker(),
		gate:    make(chan struct{}),
		started: make(chan string, 4),
	}
	m := newTestManager(conv, WithMaxConcurrent(1))
	m.Accept("a.mp4")
	m.Accept("b.mp4")

	first := m.Submit([]string{"a.mp4"})
	second := m.Submit([]string{"b.mp4"})
	receive(t, conv.started)

	select {
	case name := <-conv.started:
		t.Fatalf("%s started while the only slot was taken", name)
	case <-time.After(50 * time.Millisecond):
	}
	if got := m.Active(); len(got) != 2 {
		t.Errorf("Active() = %v, want both names", got)
	}

	conv.gate <- struct{}{}
	receive(t, conv.started)
	conv.gate <- struct{}{}

	waitBatch(t, first)
	waitBatch(t, second)
	if conv.maxRunning != 1 {
		t.Errorf("max concurrent conversions = %d, want 1", conv.maxRunning)
	}
}

func TestManager_BucketMembershipIsExclusive(t *testing.T) {
	conv := &mockConverter{
		checker:   newFakeChecker(),
		failFiles: map[string]error{"f3.mp4": errors.New("boom"), "f7.mp4": errors.New("boom")},
	}
	m := newTestManager(conv, WithMaxConcurrent(3))

	stop := make(chan struct{})
	violations := make(chan string, 1)
	go func() {
		for {
			select {
			case <-stop:
				return
			default:
			}
			snap := m.Snapshot()
			seen := make(map[string]int)
			for _, bucket := range [][]string{snap.Pending, snap.Active, snap.Completed, snap.Failed} {
				for _, name := range bucket {
					seen[name]++
					if seen[name] > 1 {
						select {
						case violations <- name:
						default:
						}
						return
					}
				}
			}
		}
	}()

	var wg sync.WaitGroup
	batches := make(chan *Batch, 10)
	for i := 0; i < 10; i++ {
		name := fmt.Sprintf("f%d.mp4", i)
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Accept(name)
			batches <- m.Submit([]string{name})
			m.Accept(name)
		}()
	}
	wg.Wait()
	close(batches)
	for b := range batches {
		waitBatch(t, b)
	}
	close(stop)

	select {
	case name := <-violations:
		t.Fatalf("%s observed in more than one bucket", name)
	default:
	}

	snap := m.Snapshot()
	if len(snap.Completed)+len(snap.Failed)+len(snap.Pending) != 10 {
		t.Errorf("Snapshot() = %+v", snap)
	}
}

func TestManager_Clear(t *testing.T) {
	conv := &mockConverter{
		checker: newFakeChecker(),
		gate:    make(chan struct{}),
		started: make(chan string, 2),
	}
	m := newTestManager(conv)
	m.Accept("a.mp4")
	m.Accept("b.mp4")

	if err := m.Clear("b.mp4"); err != nil {
		t.Fatalf("Clear(pending) error = %v", err)
	}
	if err := m.Clear("b.mp4"); !errors.Is(err, ErrUnknownJob) {
		t.Errorf("Clear(unknown) error = %v", err)
	}

	b := m.Submit([]string{"a.mp4"})
	receive(t, conv.started)
	if err := m.Clear("a.mp4"); !errors.Is(err, ErrJobActive) {
		t.Errorf("Clear(active) error = %v", err)
	}
	conv.gate <- struct{}{}
	waitBatch(t, b)

	if err := m.Clear("a.mp4"); err != nil {
		t.Fatalf("Clear(completed) error = %v", err)
	}
	if _, ok := m.Job("a.mp4"); ok {
		t.Error("cleared job still tracked")
	}
	snap := m.Snapshot()
	if len(snap.Pending)+len(snap.Active)+len(snap.Completed)+len(snap.Failed) != 0 {
		t.Errorf("Snapshot() = %+v", snap)
	}
}

func TestManager_Events(t *testing.T) {
	conv := &mockConverter{
		checker:   newFakeChecker(),
		failFiles: map[string]error{"b.mp4": errors.New("boom")},
	}
	m := newTestManager(conv)
	m.Accept("a.mp4")
	m.Accept("b.mp4")
	waitBatch(t, m.Submit([]string{"a.mp4", "b.mp4"}))

	var types []job.EventType
	for _, e := range m.Events(2) {
		types = append(types, e.Type)
	}
	want := []job.EventType{
		job.EventSubmitted, job.EventSubmitted,
		job.EventStarted, job.EventCompleted,
		job.EventStarted, job.EventFailed,
	}
	if !slices.Equal(types, want) {
		t.Errorf("event types = %v, want %v", types, want)
	}

	events := m.Events(0)
	last := events[len(events)-1]
	if last.Filename != "b.mp4" || last.Message != "boom" || last.BatchID == "" {
		t.Errorf("last event = %+v", last)
	}
}

func TestManager_ShutdownCancelsWaitingBatches(t *testing.T) {
	conv := &mockConverter{
		checker: newFakeChecker(),
		gate:    make(chan struct{}),
		started: make(chan string, 2),
	}
	m := newTestManager(conv, WithMaxConcurrent(1))
	m.Accept("a.mp4")
	m.Accept("b.mp4")

	first := m.Submit([]string{"a.mp4"})
	second := m.Submit([]string{"b.mp4"})
	receive(t, conv.started)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := m.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}

	for _, b := range []*Batch{first, second} {
		results := b.Results()
		if len(results) != 1 || !errors.Is(results[0].Err, context.Canceled) {
			t.Errorf("batch results = %+v", results)
		}
	}
	if n := len(conv.recorded()); n != 1 {
		t.Errorf("conversions started = %d, want 1", n)
	}
}

func TestEventBus(t *testing.T) {
	bus := NewEventBus(2)
	bus.Publish(job.Event{Message: "1"})
	bus.Publish(job.Event{Message: "2"})
	bus.Publish(job.Event{Message: "3"})

	events := bus.Since(0)
	if len(events) != 2 {
		t.Fatalf("len = %d, want 2", len(events))
	}
	if events[0].Message != "2" || events[1].Message != "3" {
		t.Fatalf("unexpected events: %+v", events)
	}
	if got := bus.Since(2); len(got) != 1 || got[0].Seq != 3 {
		t.Errorf("Since(2) = %+v", got)
	}
	if bus.LastSeq() != 3 {
		t.Errorf("LastSeq() = %d, want 3", bus.LastSeq())
	}
}

func TestManager_ReacceptCompletedConvertsAgain(t *testing.T) {
	conv := &mockConverter{checker: newFakeChecker()}
	m := newTestManager(conv)

	m.Accept("a.mp4")
	waitBatch(t, m.Submit([]string{"a.mp4"}))

	if !m.Accept("a.mp4") {
		t.Fatal("expected completed name to be re-accepted")
	}
	snap := m.Snapshot()
	if !slices.Equal(snap.Pending, []string{"a.mp4"}) || len(snap.Completed) != 0 {
		t.Errorf("Snapshot() = %+v after re-accept", snap)
	}
	if j, _ := m.Job("a.mp4"); j.State != job.StatePending || j.Output != "" || j.BatchID != "" {
		t.Errorf("Job(a.mp4) = %+v, want a fresh pending job", j)
	}

	b := m.Submit([]string{"a.mp4"})
	if got := b.Names(); !slices.Equal(got, []string{"a.mp4"}) {
		t.Fatalf("second batch names = %v", got)
	}
	waitBatch(t, b)

	if n := len(conv.recorded()); n != 2 {
		t.Errorf("conversions run = %d, want 2", n)
	}
	if got := m.Completed(); !slices.Equal(got, []string{"a.mp4"}) {
		t.Errorf("Completed() = %v", got)
	}
}

func TestManager_ReacceptActiveIsIgnored(t *testing.T) {
	conv := &mockConverter{
		checker: newFakeChecker(),
		gate:    make(chan struct{}),
		started: make(chan string, 1),
	}
	m := newTestManager(conv)
	m.Accept("a.mp4")

	b := m.Submit([]string{"a.mp4"})
	receive(t, conv.started)
	if m.Accept("a.mp4") {
		t.Error("active name must not be re-accepted")
	}
	if got := m.Pending(); len(got) != 0 {
		t.Errorf("Pending() = %v", got)
	}
	conv.gate <- struct{}{}
	waitBatch(t, b)
}

func TestManager_SharedArtifact(t *testing.T) {
	conv := &mockConverter{checker: newFakeChecker()}
	m := newTestManager(conv)
	m.Accept("a.mp4")
	m.Accept("a.mkv")
	m.Accept("b.mp4")
	waitBatch(t, m.Submit([]string{"a.mp4", "a.mkv", "b.mp4"}))

	if got := m.CompletedOutputs(); !slices.Equal(got, []string{"a.mp3", "b.mp3"}) {
		t.Errorf("CompletedOutputs() = %v, want [a.mp3 b.mp3]", got)
	}
	if !m.OutputClaimed("a.mp3", "a.mp4") {
		t.Error("a.mkv still owns a.mp3")
	}
	if m.OutputClaimed("b.mp3", "b.mp4") {
		t.Error("b.mp3 has no other owner")
	}

	if err := m.Clear("a.mkv"); err != nil {
		t.Fatal(err)
	}
	if m.OutputClaimed("a.mp3", "a.mp4") {
		t.Error("a.mp3 has no other owner once a.mkv is cleared")
	}
}

func TestManager_OutputClaimedByActiveJob(t *testing.T) {
	conv := &mockConverter{
		checker: newFakeChecker(),
		gate:    make(chan struct{}),
		started: make(chan string, 1),
	}
	m := newTestManager(conv)
	m.Accept("a.mkv")

	b := m.Submit([]string{"a.mkv"})
	receive(t, conv.started)
	if !m.OutputClaimed("a.mp3", "a.mp4") {
		t.Error("active a.mkv is about to write a.mp3")
	}
	conv.gate <- struct{}{}
	waitBatch(t, b)
}

func TestManager_SubmitAfterShutdown(t *testing.T) {
	conv := &mockConverter{checker: newFakeChecker()}
	m := newTestManager(conv)
	m.Accept("a.mp4")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := m.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}

	b := m.Submit([]string{"a.mp4"})
	select {
	case <-b.Done():
	default:
		t.Fatal("batch submitted after shutdown should be done immediately")
	}
	if len(b.Names()) != 0 || len(conv.recorded()) != 0 {
		t.Errorf("batch after shutdown converted %v", b.Names())
	}
	if got := m.Pending(); !slices.Equal(got, []string{"a.mp4"}) {
		t.Errorf("Pending() = %v, want a.mp4 left pending", got)
	}
}
