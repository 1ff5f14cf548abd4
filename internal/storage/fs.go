package storage

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ErrNotDir is returned by NewFS when root exists but is not a directory.
var ErrNotDir = errors.New("storage: root is not a directory")

// FS implements Provider backed by the local file system.
type FS struct {
	root string // absolute path to the evidence directory
}

// NewFS creates a new FS provider rooted at the given directory.
// The directory must already exist; a missing root wraps fs.ErrNotExist.
func NewFS(root string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotDir, abs)
	}
	return &FS{root: abs}, nil
}

// Root returns the absolute evidence root.
func (f *FS) Root() string { return f.root }

// safePath resolves a relative path against the root and rejects
// any result that escapes it (directory traversal).
func (f *FS) safePath(rel string) (string, error) {
	if rel == "" {
		return f.root, nil
	}
	cleaned := filepath.Clean(filepath.FromSlash(rel))
	if filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("storage: absolute paths not allowed: %s", rel)
	}
	abs, err := filepath.Abs(filepath.Join(f.root, cleaned))
	if err != nil {
		return "", fmt.Errorf("storage: resolve path: %w", err)
	}
	if !strings.HasPrefix(abs, f.root+string(os.PathSeparator)) && abs != f.root {
		return "", fmt.Errorf("storage: path escapes evidence root: %s", rel)
	}
	return abs, nil
}

// Glob lists regular files directly inside dir.
func (f *FS) Glob(dir string, exts ...string) ([]Entry, error) {
	base, err := f.safePath(dir)
	if err != nil {
		return nil, err
	}
	des, err := os.ReadDir(base)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage: read dir %s: %w", dir, err)
	}

	var out []Entry
	for _, d := range des {
		if !d.Type().IsRegular() || !HasExt(d.Name(), exts...) {
			continue
		}
		e, err := f.entry(filepath.Join(base, d.Name()), d)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Find walks dir recursively. Unreadable subdirectories are skipped.
func (f *FS) Find(dir string, exts ...string) ([]Entry, error) {
	base, err := f.safePath(dir)
	if err != nil {
		return nil, err
	}
	var out []Entry
	err = filepath.WalkDir(base, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if p == base {
				return walkErr
			}
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || !HasExt(d.Name(), exts...) {
			return nil
		}
		e, err := f.entry(p, d)
		if err != nil {
			return nil
		}
		out = append(out, e)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("storage: walk %s: %w", dir, err)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

// Read returns the raw bytes of an evidence file.
func (f *FS) Read(path string) ([]byte, error) {
	abs, err := f.safePath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", path, err)
	}
	return data, nil
}

// Open opens an evidence file for streaming. The caller closes it.
func (f *FS) Open(path string) (io.ReadCloser, error) {
	abs, err := f.safePath(path)
	if err != nil {
		return nil, err
	}
	fh, err := os.Open(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: open %s: %w", path, err)
	}
	return fh, nil
}

func (f *FS) entry(abs string, d fs.DirEntry) (Entry, error) {
	info, err := d.Info()
	if err != nil {
		return Entry{}, fmt.Errorf("storage: stat %s: %w", abs, err)
	}
	rel, err := filepath.Rel(f.root, abs)
	if err != nil {
		return Entry{}, fmt.Errorf("storage: rel %s: %w", abs, err)
	}
	return Entry{
		Path:    filepath.ToSlash(rel),
		Abs:     abs,
		Name:    d.Name(),
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}, nil
}

// HasExt reports whether name ends in one of exts, ignoring case.
// No exts matches every name.
func HasExt(name string, exts ...string) bool {
	if len(exts) == 0 {
		return true
	}
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range exts {
		if ext == strings.ToLower(e) {
			return true
		}
	}
	return false
}

// Stem returns the file name without its extension.
func Stem(name string) string {
	base := filepath.Base(name)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
