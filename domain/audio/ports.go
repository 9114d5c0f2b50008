package audio

import (
	"context"
	"strings"
	"time"
)

// Prober inspects a media file's first audio stream without decoding it
type Prober interface {
	Probe(ctx context.Context, path string) (AudioStreamInfo, error)
}

// Invocation is an ordered argument list for an external tool
type Invocation struct {
	Binary string
	Args   []string
}

// String renders the invocation as a shell-like line for logs
func (i Invocation) String() string {
	parts := make([]string, 0, len(i.Args)+1)
	parts = append(parts, i.Binary)
	for _, arg := range i.Args {
		if arg == "" || strings.ContainsAny(arg, " \t\"'") {
			arg = `"` + strings.ReplaceAll(arg, `"`, `\"`) + `"`
		}
		parts = append(parts, arg)
	}
	return strings.Join(parts, " ")
}

// Encoder runs an encoder invocation to completion
type Encoder interface {
	Run(ctx context.Context, inv Invocation) error
}

// ArtifactChecker reports on output artifacts in storage
type ArtifactChecker interface {
	// Exists returns true if the file exists
	Exists(path string) bool

	// FreshSince returns true if the file exists and was modified at or after since
	FreshSince(path string, since time.Time) bool
}
