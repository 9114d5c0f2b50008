package lifecycle

import (
	"context"
	"sync"

	"video2audio/domain/job"
)

// Batch is the handle for one submitted group of files
type Batch struct {
	id     string
	names  []string
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	mu      sync.Mutex
	results []job.Result
}

func newBatch(parent context.Context, id string, names []string) *Batch {
	ctx, cancel := context.WithCancel(parent)
	return &Batch{
		id:     id,
		names:  names,
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

// ID returns the batch identifier
func (b *Batch) ID() string {
	return b.id
}

// Names returns the files this batch moved to Active, in processing order
func (b *Batch) Names() []string {
	return append([]string(nil), b.names...)
}

// Done is closed once every file in the batch has an outcome
func (b *Batch) Done() <-chan struct{} {
	return b.done
}

// Cancel stops the batch before its next external execution.
// Files not yet started are marked failed with context.Canceled.
func (b *Batch) Cancel() {
	b.cancel()
}

// Results returns the outcomes recorded so far
func (b *Batch) Results() []job.Result {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]job.Result(nil), b.results...)
}

// Wait blocks until the batch finishes or ctx is done
func (b *Batch) Wait(ctx context.Context) ([]job.Result, error) {
	select {
	case <-b.done:
		return b.Results(), nil
	case <-ctx.Done():
		return b.Results(), ctx.Err()
	}
}

func (b *Batch) record(r job.Result) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.results = append(b.results, r)
}
