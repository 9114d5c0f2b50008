package filesystem

import (
	"os"
	"time"

	"video2audio/domain/audio"
)

// Checker implements audio.ArtifactChecker using the os package
type Checker struct{}

// NewChecker creates a new filesystem checker
func NewChecker() *Checker {
	return &Checker{}
}

// Exists returns true if the file exists
func (c *Checker) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// FreshSince returns true if path is a regular file last modified at or after since.
// Artifacts left over from an earlier run fail this check.
func (c *Checker) FreshSince(path string, since time.Time) bool {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return false
	}
	return !info.ModTime().Before(since)
}

// Ensure Checker implements audio.ArtifactChecker
var _ audio.ArtifactChecker = (*Checker)(nil)
