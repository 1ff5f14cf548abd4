// Package search scans artifact files (delimited tables, JSON documents,
// plain text and optionally spreadsheets) for a batch of indicator queries.
package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/starford/perthro/internal/apperr"
	"github.com/starford/perthro/internal/models"
	"github.com/starford/perthro/internal/storage"
)

// DefaultMaxResults caps matches per (query, artifact) pair when unset.
const DefaultMaxResults = 50

// Artifact extensions.
const (
	ExtCSV  = ".csv"
	ExtJSON = ".json"
	ExtTXT  = ".txt"
	ExtXLSX = ".xlsx"
)

// Config controls engine-wide behavior.
type Config struct {
	Workers       int  // concurrent files; default 4
	Spreadsheets  bool // also search .xlsx workbooks
	RecordMatches bool // JSON matches return matching top-level records
}

// Options are per-call search parameters.
type Options struct {
	// NameFilter restricts the search to files whose base name is listed.
	NameFilter []string
	// MaxResults caps matches per pair; <= 0 means DefaultMaxResults.
	MaxResults int
}

// Engine runs searches. It holds no state between calls.
type Engine struct {
	cfg     Config
	openers map[string]opener
	logger  *slog.Logger
}

// New creates an Engine.
func New(cfg Config, logger *slog.Logger) *Engine {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{
		cfg: cfg,
		openers: map[string]opener{
			ExtCSV:  openCSV,
			ExtJSON: func(path string) (document, error) { return openJSON(path, cfg.RecordMatches) },
			ExtTXT:  openText,
		},
		logger: logger,
	}
	if cfg.Spreadsheets {
		e.openers[ExtXLSX] = openXLSX
	}
	return e
}

// Extensions returns the artifact extensions this engine searches, sorted.
func (e *Engine) Extensions() []string {
	exts := make([]string, 0, len(e.openers))
	for ext := range e.openers {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// Search tests every query against every artifact under root. Pairs without
// matches are omitted; pairs that fail carry an error instead of matches.
// Only a missing root or a cancelled ctx fails the call as a whole.
func (e *Engine) Search(ctx context.Context, root string, queries []models.Query, opts Options) ([]models.MatchRecord, error) {
	store, err := storage.NewFS(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", apperr.ErrBaseDirNotFound, root)
	}

	limit := opts.MaxResults
	if limit <= 0 {
		limit = DefaultMaxResults
	}

	active := make([]models.Query, 0, len(queries))
	for _, q := range queries {
		if strings.TrimSpace(q.Query) == "" {
			continue
		}
		active = append(active, q)
	}

	files, err := e.discover(store, opts.NameFilter)
	if err != nil {
		return nil, fmt.Errorf("search: discover artifacts: %w", err)
	}
	if len(active) == 0 || len(files) == 0 {
		return []models.MatchRecord{}, nil
	}

	pool, err := ants.NewPool(e.cfg.Workers)
	if err != nil {
		return nil, fmt.Errorf("search: worker pool: %w", err)
	}
	defer pool.Release()

	c := newCollector()
	var wg sync.WaitGroup
	for fi, f := range files {
		artifact := filepath.Join(root, filepath.FromSlash(f.Path))
		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()
			e.scanFile(ctx, c, fi, f, artifact, active, limit)
		})
		if submitErr != nil {
			wg.Done()
			for qi, q := range active {
				c.add(qi, fi, pairError(q, artifact, submitErr))
			}
		}
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	out := c.results()
	e.logger.Info("search finished",
		slog.String("root", root),
		slog.Int("queries", len(active)),
		slog.Int("artifacts", len(files)),
		slog.Int("records", len(out)))
	return out, nil
}

// discover lists candidate artifacts recursively, honoring the name filter.
func (e *Engine) discover(store storage.Provider, filter []string) ([]storage.Entry, error) {
	files, err := store.Find("", e.Extensions()...)
	if err != nil {
		return nil, err
	}
	if len(filter) == 0 {
		return files, nil
	}
	allowed := make(map[string]struct{}, len(filter))
	for _, name := range filter {
		allowed[name] = struct{}{}
	}
	kept := files[:0]
	for _, f := range files {
		if _, ok := allowed[f.Name]; ok {
			kept = append(kept, f)
		}
	}
	return kept, nil
}

// scanFile opens one artifact, runs every query against it and closes it.
// A load failure becomes an error record for each query.
func (e *Engine) scanFile(ctx context.Context, c *collector, fi int, f storage.Entry, artifact string, queries []models.Query, limit int) {
	doc, err := e.open(f)
	if err != nil {
		e.logger.Warn("artifact unreadable", slog.String("path", artifact), slog.String("error", err.Error()))
		for qi, q := range queries {
			c.add(qi, fi, pairError(q, artifact, err))
		}
		return
	}
	defer doc.Close()

	for qi, q := range queries {
		if ctx.Err() != nil {
			return
		}
		matches, err := safeMatch(doc, q.Query, limit)
		if err != nil {
			e.logger.Warn("artifact scan failed",
				slog.String("path", artifact),
				slog.String("query", q.Query),
				slog.String("error", err.Error()))
			c.add(qi, fi, pairError(q, artifact, err))
			continue
		}
		if len(matches) == 0 {
			continue
		}
		c.add(qi, fi, models.MatchRecord{
			AnomalyID: q.ID,
			Query:     q.Query,
			Artifact:  artifact,
			Matches:   matches,
		})
	}
}

func (e *Engine) open(f storage.Entry) (doc document, err error) {
	defer func() {
		if r := recover(); r != nil {
			doc, err = nil, fmt.Errorf("panic while loading: %v", r)
		}
	}()
	op, ok := e.openers[strings.ToLower(filepath.Ext(f.Name))]
	if !ok {
		return nil, errUnsupported
	}
	return op(f.Abs)
}

func safeMatch(doc document, query string, limit int) (matches []any, err error) {
	defer func() {
		if r := recover(); r != nil {
			matches, err = nil, fmt.Errorf("panic while matching: %v", r)
		}
	}()
	return doc.Match(query, limit)
}

var errUnsupported = errors.New("unsupported artifact type")

func pairError(q models.Query, artifact string, err error) models.MatchRecord {
	return models.MatchRecord{
		AnomalyID: q.ID,
		Query:     q.Query,
		Artifact:  artifact,
		Error:     err.Error(),
	}
}

// collector gathers records from concurrent file jobs.
type collector struct {
	mu      sync.Mutex
	entries []collected
}

type collected struct {
	query, file int
	rec         models.MatchRecord
}

func newCollector() *collector {
	return &collector{entries: make([]collected, 0)}
}

func (c *collector) add(query, file int, rec models.MatchRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, collected{query: query, file: file, rec: rec})
}

// results orders records query-major then by artifact path.
func (c *collector) results() []models.MatchRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	sort.Slice(c.entries, func(i, j int) bool {
		a, b := c.entries[i], c.entries[j]
		if a.query != b.query {
			return a.query < b.query
		}
		return a.file < b.file
	})
	out := make([]models.MatchRecord, len(c.entries))
	for i, en := range c.entries {
		out[i] = en.rec
	}
	return out
}
