// Package watch reports file changes under a case directory.
package watch

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/perthro/internal/catalog"
	"github.com/starford/perthro/internal/sse"
	"github.com/starford/perthro/internal/storage"
)

// DefaultDebounce coalesces bursts of writes to the same file.
const DefaultDebounce = 200 * time.Millisecond

// Callback is called once per settled change. evidence is true for files
// that feed the indicator catalog; rel is slash-separated and relative to
// the watched root.
type Callback func(evidence bool, kind, rel string)

// Watcher watches a case directory recursively.
type Watcher struct {
	root     string
	exts     []string
	debounce time.Duration
	logger   *slog.Logger
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the coalescing window.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l
		}
	}
}

// New creates a watcher for root. exts are the artifact extensions that
// produce artifact events.
func New(root string, exts []string, opts ...Option) *Watcher {
	w := &Watcher{
		root:     root,
		exts:     exts,
		debounce: DefaultDebounce,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Classify reports whether rel is evidence, an artifact, or neither.
// Evidence lives directly inside anomalies/, ioc/ or reports/.
func (w *Watcher) Classify(rel string) (evidence, relevant bool) {
	rel = filepath.ToSlash(rel)
	top, rest, nested := strings.Cut(rel, "/")
	if nested && !strings.Contains(rest, "/") {
		switch top {
		case catalog.AnomaliesDir, catalog.IOCDir:
			if storage.HasExt(rel, ".txt") {
				return true, true
			}
		case catalog.ReportsDir:
			if storage.HasExt(rel, ".pdf") {
				return true, true
			}
		}
	}
	return false, storage.HasExt(rel, w.exts...)
}

// PublishTo adapts a broker into a Callback.
func PublishTo(b *sse.Broker) Callback {
	return func(evidence bool, kind, rel string) {
		b.PublishChange(evidence, kind, rel)
	}
}

// Run processes change events until ctx is cancelled. New directories
// created at runtime are added to the watch list and their files reported.
func (w *Watcher) Run(ctx context.Context, cb Callback) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	if err := addDirsRecursive(fw, w.root); err != nil {
		return err
	}

	w.logger.Info("watcher: started", slog.String("root", w.root))

	p := &pending{kinds: map[string]string{}}
	var flushTimer *time.Timer
	var flushCh <-chan time.Time

	schedule := func() {
		if flushTimer == nil {
			flushTimer = time.NewTimer(w.debounce)
			flushCh = flushTimer.C
		} else {
			flushTimer.Reset(w.debounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if flushTimer != nil {
				flushTimer.Stop()
			}
			w.logger.Info("watcher: stopped")
			return nil

		case <-flushCh:
			for rel, kind := range p.drain() {
				evidence, _ := w.Classify(rel)
				w.logger.Debug("watcher: change",
					slog.String("path", rel),
					slog.String("op", kind),
					slog.Bool("evidence", evidence))
				if cb != nil {
					cb(evidence, kind, rel)
				}
			}

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(fw, ev.Name); addErr != nil {
						w.logger.Warn("watcher: add new dir failed",
							slog.String("path", ev.Name),
							slog.String("error", addErr.Error()))
					} else {
						w.logger.Debug("watcher: watching new dir", slog.String("path", ev.Name))
					}
					for _, rel := range w.filesIn(ev.Name) {
						p.add(rel, sse.KindCreated)
					}
					schedule()
					continue
				}
			}

			rel, relErr := filepath.Rel(w.root, ev.Name)
			if relErr != nil {
				continue
			}
			rel = filepath.ToSlash(rel)
			if _, relevant := w.Classify(rel); !relevant {
				continue
			}

			switch {
			case ev.Op&fsnotify.Create != 0:
				p.add(rel, sse.KindCreated)
			case ev.Op&fsnotify.Write != 0:
				p.add(rel, sse.KindUpdated)
			case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				// Rename fires on the old path only; the new path arrives as Create.
				p.add(rel, sse.KindDeleted)
			default:
				continue
			}
			schedule()

		case watchErr, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// filesIn lists relevant files already present in a newly created directory.
func (w *Watcher) filesIn(dir string) []string {
	var out []string
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(w.root, path)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if _, relevant := w.Classify(rel); relevant {
			out = append(out, rel)
		}
		return nil
	})
	return out
}

// pending holds the settled kind per path until the next flush.
type pending struct {
	kinds map[string]string
}

// add merges kind into the pending state: a write after a create stays a
// create, and a create after a delete becomes an update.
func (p *pending) add(rel, kind string) {
	prev, ok := p.kinds[rel]
	switch {
	case !ok:
		p.kinds[rel] = kind
	case prev == sse.KindCreated && kind == sse.KindUpdated:
	case prev == sse.KindDeleted && kind == sse.KindCreated:
		p.kinds[rel] = sse.KindUpdated
	default:
		p.kinds[rel] = kind
	}
}

func (p *pending) drain() map[string]string {
	out := p.kinds
	p.kinds = map[string]string{}
	return out
}

// addDirsRecursive adds root and all its subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}
