package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"video2audio/application/conversion"
	"video2audio/domain/audio"
	"video2audio/domain/job"
)

var (
	// ErrUnknownJob is returned for names the manager does not track
	ErrUnknownJob = errors.New("unknown job")

	// ErrJobActive is returned when clearing a job that is still being converted
	ErrJobActive = errors.New("job is active")

	// ErrArtifactMissing is recorded when a conversion reported success but no artifact exists
	ErrArtifactMissing = errors.New("output artifact missing")
)

// Converter runs one file conversion
type Converter interface {
	Convert(ctx context.Context, input conversion.ConvertInput) (*conversion.ConvertResult, error)
}

// Manager owns the pending, active, completed and failed buckets and the effective settings.
// A file name is in at most one bucket at any time.
type Manager struct {
	converter  Converter
	checker    audio.ArtifactChecker
	uploadsDir string
	outputDir  string
	logger     *zap.Logger
	events     *EventBus
	now        func() time.Time

	maxConcurrent int64
	sem           *semaphore.Weighted

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu        sync.Mutex
	closed    bool
	settings  audio.Settings
	jobs      map[string]*job.MediaJob
	pending   []string
	active    []string
	completed []string
	failed    []string
}

// Option is a functional option for configuring Manager
type Option func(*Manager)

// WithLogger sets the structured logger
func WithLogger(logger *zap.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithMaxConcurrent bounds how many batches convert at once
func WithMaxConcurrent(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.maxConcurrent = int64(n)
		}
	}
}

// WithSettings sets the initial effective settings
func WithSettings(s audio.Settings) Option {
	return func(m *Manager) {
		m.settings = s
	}
}

// WithEventHistory sets how many events are retained for Events
func WithEventHistory(n int) Option {
	return func(m *Manager) {
		m.events = NewEventBus(n)
	}
}

// WithClock overrides time.Now (for testing)
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// NewManager creates a manager reading sources from uploadsDir and writing artifacts to outputDir
func NewManager(converter Converter, checker audio.ArtifactChecker, uploadsDir, outputDir string, opts ...Option) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		converter:     converter,
		checker:       checker,
		uploadsDir:    uploadsDir,
		outputDir:     outputDir,
		logger:        zap.NewNop(),
		events:        NewEventBus(0),
		now:           time.Now,
		maxConcurrent: 2,
		ctx:           ctx,
		cancel:        cancel,
		settings:      audio.DefaultSettings(),
		jobs:          make(map[string]*job.MediaJob),
	}

	for _, opt := range opts {
		opt(m)
	}
	m.sem = semaphore.NewWeighted(m.maxConcurrent)

	return m
}

// Accept registers an uploaded file in Pending.
// Names already pending or active are ignored; a completed or failed name is queued again.
func (m *Manager) Accept(name string) bool {
	m.mu.Lock()
	j, ok := m.jobs[name]
	switch {
	case !ok:
		m.jobs[name] = &job.MediaJob{Filename: name, State: job.StatePending}
	case j.State == job.StateFailed:
		m.failed = remove(m.failed, name)
		*j = job.MediaJob{Filename: name, State: job.StatePending}
	case j.State == job.StateCompleted:
		m.completed = remove(m.completed, name)
		*j = job.MediaJob{Filename: name, State: job.StatePending}
	default:
		m.mu.Unlock()
		return false
	}
	m.pending = append(m.pending, name)
	m.mu.Unlock()

	m.events.Publish(job.Event{Type: job.EventAccepted, Filename: name})
	return true
}

// Submit moves the named pending files to Active and schedules their conversion as one batch.
// Names not in Pending are ignored. The returned batch may be empty, and always is after Shutdown.
func (m *Manager) Submit(names []string) *Batch {
	id := uuid.NewString()

	m.mu.Lock()
	moved := make([]string, 0, len(names))
	if m.closed {
		names = nil
	}
	for _, name := range names {
		j, ok := m.jobs[name]
		if !ok || j.State != job.StatePending {
			continue
		}
		m.pending = remove(m.pending, name)
		m.active = append(m.active, name)
		j.State = job.StateActive
		j.BatchID = id
		moved = append(moved, name)
	}
	// ordered before Shutdown's Wait by mu
	if len(moved) > 0 {
		m.wg.Add(1)
	}
	m.mu.Unlock()

	b := newBatch(m.ctx, id, moved)
	if len(moved) == 0 {
		b.cancel()
		close(b.done)
		return b
	}

	for _, name := range moved {
		m.events.Publish(job.Event{Type: job.EventSubmitted, Filename: name, BatchID: id})
	}
	m.logger.Info("batch submitted", zap.String("batch", id), zap.Strings("files", moved))

	go m.run(b)

	return b
}

// run processes a batch sequentially once a worker slot is free
func (m *Manager) run(b *Batch) {
	defer m.wg.Done()
	defer close(b.done)
	defer b.cancel()

	if err := m.sem.Acquire(b.ctx, 1); err != nil {
		for _, name := range b.names {
			m.finish(b, name, "", audio.TranscodeSettings{}, err)
		}
		return
	}
	defer m.sem.Release(1)

	for _, name := range b.names {
		m.process(b, name)
	}
}

func (m *Manager) process(b *Batch, name string) {
	if err := b.ctx.Err(); err != nil {
		m.finish(b, name, "", audio.TranscodeSettings{}, err)
		return
	}

	// settings are read when the file is resolved, not when the batch was submitted
	settings := m.Settings()
	output := conversion.OutputPath(m.outputDir, name, settings)

	m.mu.Lock()
	if j, ok := m.jobs[name]; ok {
		j.StartedAt = m.now()
	}
	m.mu.Unlock()
	m.events.Publish(job.Event{Type: job.EventStarted, Filename: name, BatchID: b.id})

	res, err := m.converter.Convert(b.ctx, conversion.ConvertInput{
		SourcePath: filepath.Join(m.uploadsDir, name),
		OutputPath: output,
		Settings:   settings,
	})

	var resolved audio.TranscodeSettings
	if res != nil {
		resolved = res.Resolved
		output = res.OutputPath
	}
	m.finish(b, name, output, resolved, err)
}

// finish removes name from Active and records its outcome
func (m *Manager) finish(b *Batch, name, output string, resolved audio.TranscodeSettings, err error) {
	if err == nil && !m.checker.Exists(output) {
		err = fmt.Errorf("%w: %s", ErrArtifactMissing, output)
	}

	m.mu.Lock()
	j, ok := m.jobs[name]
	if ok && j.State == job.StateActive && j.BatchID == b.id {
		m.active = remove(m.active, name)
		j.FinishedAt = m.now()
		if output != "" {
			j.Output = filepath.Base(output)
		}
		if err == nil {
			j.State = job.StateCompleted
			j.Err = nil
			if !slices.Contains(m.completed, name) {
				m.completed = append(m.completed, name)
			}
		} else {
			j.State = job.StateFailed
			j.Err = err
			m.failed = append(m.failed, name)
		}
	}
	m.mu.Unlock()

	b.record(job.Result{
		BatchID:    b.id,
		Filename:   name,
		OutputPath: output,
		Settings:   resolved,
		Err:        err,
	})

	if err != nil {
		m.logger.Error("conversion failed",
			zap.String("file", name),
			zap.String("batch", b.id),
			zap.Error(err))
		m.events.Publish(job.Event{Type: job.EventFailed, Filename: name, BatchID: b.id, Message: err.Error()})
		return
	}

	m.logger.Info("conversion completed",
		zap.String("file", name),
		zap.String("batch", b.id),
		zap.String("output", output))
	m.events.Publish(job.Event{Type: job.EventCompleted, Filename: name, BatchID: b.id, Output: filepath.Base(output)})
}

// UpdateSettings replaces the effective settings.
// Every file resolved afterwards uses them, including files already active.
func (m *Manager) UpdateSettings(s audio.Settings) {
	m.mu.Lock()
	m.settings = s
	m.mu.Unlock()

	m.events.Publish(job.Event{Type: job.EventSettings, Message: s.Codec.String()})
	m.logger.Info("settings updated",
		zap.String("codec", s.Codec.String()),
		zap.String("bitrate", s.Bitrate),
		zap.Int("sample_rate", s.SampleRate),
		zap.Int("channels", s.Channels))
}

// Settings returns the effective settings
func (m *Manager) Settings() audio.Settings {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.settings
}

// Pending returns the pending file names in queue order
func (m *Manager) Pending() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.pending)
}

// Active returns the file names currently scheduled or converting
func (m *Manager) Active() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.active)
}

// Completed returns the file names that converted successfully, in completion order
func (m *Manager) Completed() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.completed)
}

// Failed returns the file names whose conversion failed, in failure order
func (m *Manager) Failed() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.failed)
}

// Buckets is a consistent view of every bucket taken under one lock
type Buckets struct {
	Pending   []string `json:"pending"`
	Active    []string `json:"active"`
	Completed []string `json:"completed"`
	Failed    []string `json:"failed"`
}

// Snapshot returns all buckets at a single instant
func (m *Manager) Snapshot() Buckets {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Buckets{
		Pending:   slices.Clone(m.pending),
		Active:    slices.Clone(m.active),
		Completed: slices.Clone(m.completed),
		Failed:    slices.Clone(m.failed),
	}
}

// CompletedOutputs returns the artifact names of completed files, in completion order.
// Sources sharing a stem (a.mp4, a.mkv) share an artifact, which is listed once.
func (m *Manager) CompletedOutputs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.completed))
	for _, name := range m.completed {
		if output := m.jobs[name].Output; !slices.Contains(out, output) {
			out = append(out, output)
		}
	}
	return out
}

// OutputClaimed reports whether a job other than except owns the artifact named output:
// a completed job that wrote it, or an active job that will write it under the current settings.
func (m *Manager) OutputClaimed(output, except string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for name, j := range m.jobs {
		if name == except {
			continue
		}
		switch j.State {
		case job.StateCompleted:
			if j.Output == output {
				return true
			}
		case job.StateActive:
			if m.settings.OutputName(name) == output {
				return true
			}
		}
	}
	return false
}

// Job returns a copy of the tracked job for name
func (m *Manager) Job(name string) (job.MediaJob, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[name]
	if !ok {
		return job.MediaJob{}, false
	}
	return *j, true
}

// Clear forgets name entirely. Active jobs cannot be cleared.
func (m *Manager) Clear(name string) error {
	m.mu.Lock()
	j, ok := m.jobs[name]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}
	switch j.State {
	case job.StateActive:
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrJobActive, name)
	case job.StatePending:
		m.pending = remove(m.pending, name)
	case job.StateCompleted:
		m.completed = remove(m.completed, name)
	case job.StateFailed:
		m.failed = remove(m.failed, name)
	}
	delete(m.jobs, name)
	m.mu.Unlock()

	m.events.Publish(job.Event{Type: job.EventCleared, Filename: name})
	return nil
}

// Events returns lifecycle events newer than seq
func (m *Manager) Events(since int64) []job.Event {
	return m.events.Since(since)
}

// Shutdown cancels every batch and waits for them to record their outcomes.
// Later submissions are refused.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	m.cancel()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func remove(names []string, name string) []string {
	if i := slices.Index(names, name); i >= 0 {
		return slices.Delete(names, i, i+1)
	}
	return names
}
