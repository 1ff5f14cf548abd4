// Package storage defines the read-only evidence file-system abstraction.
package storage

import (
	"io"
	"time"
)

// Entry describes a regular file found under the evidence root.
type Entry struct {
	Path    string // relative to root, slash separated
	Abs     string
	Name    string
	Size    int64
	ModTime time.Time
}

// Provider is the interface for evidence file access. Evidence is never
// modified, so the interface is read-only.
type Provider interface {
	// Root returns the absolute evidence root.
	Root() string
	// Glob returns files directly inside dir whose extension matches one of
	// exts (case-insensitive), sorted by name. A missing dir yields no entries.
	Glob(dir string, exts ...string) ([]Entry, error)
	// Find walks dir recursively and returns files matching exts, sorted by path.
	Find(dir string, exts ...string) ([]Entry, error)
	// Read returns the raw bytes of the file at path (relative to root).
	Read(path string) ([]byte, error)
	// Open opens the file at path (relative to root) for streaming.
	Open(path string) (io.ReadCloser, error)
}
