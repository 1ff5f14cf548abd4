// Package investigation exposes the three case operations (list indicators,
// search indicators, list artifacts) with structured success/error results.
package investigation

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/starford/perthro/internal/apperr"
	"github.com/starford/perthro/internal/artifacts"
	"github.com/starford/perthro/internal/catalog"
	"github.com/starford/perthro/internal/classify"
	"github.com/starford/perthro/internal/models"
	"github.com/starford/perthro/internal/search"
)

// IndicatorsResult is the response of ListIndicators.
type IndicatorsResult struct {
	Success   bool                     `json:"success"`
	Error     string                   `json:"error,omitempty"`
	Anomalies []models.ListedIndicator `json:"anomalies"`
	Errors    []models.SourceError     `json:"errors,omitempty"`

	err error
}

// Err returns the failure behind Success=false, if any.
func (r IndicatorsResult) Err() error { return r.err }

// SearchRequest is the input of Search.
type SearchRequest struct {
	BaseDir       string         `json:"base_dir"`
	Anomalies     models.Queries `json:"anomalies"`
	ArtifactTypes []string       `json:"artifact_types,omitempty"`
	MaxResults    int            `json:"max_results,omitempty"`
}

// SearchResult is the response of Search.
type SearchResult struct {
	Success bool                 `json:"success"`
	Error   string               `json:"error,omitempty"`
	RunID   string               `json:"run_id,omitempty"`
	Results []models.MatchRecord `json:"results"`

	err error
}

// Err returns the failure behind Success=false, if any.
func (r SearchResult) Err() error { return r.err }

// ArtifactsResult is the response of ListArtifacts.
type ArtifactsResult struct {
	Success   bool                  `json:"success"`
	Error     string                `json:"error,omitempty"`
	Artifacts []models.ArtifactInfo `json:"artifacts"`

	err error
}

// Err returns the failure behind Success=false, if any.
func (r ArtifactsResult) Err() error { return r.err }

// Service coordinates the catalog builder and the search engine.
type Service struct {
	catalog *catalog.Builder
	engine  *search.Engine
	baseDir string
	maxRes  int
	logger  *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithDefaultBaseDir is used when a request leaves base_dir empty.
func WithDefaultBaseDir(dir string) Option {
	return func(s *Service) { s.baseDir = dir }
}

// WithDefaultMaxResults is used when a request leaves max_results unset.
func WithDefaultMaxResults(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxRes = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewService creates a new investigation service.
func NewService(b *catalog.Builder, e *search.Engine, opts ...Option) *Service {
	s := &Service{
		catalog: b,
		engine:  e,
		baseDir: ".",
		maxRes:  search.DefaultMaxResults,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// BaseDir resolves an optional request directory against the default.
func (s *Service) BaseDir(dir string) string {
	if strings.TrimSpace(dir) == "" {
		return s.baseDir
	}
	return dir
}

// Extensions returns the artifact extensions currently searched.
func (s *Service) Extensions() []string {
	return s.engine.Extensions()
}

// ListIndicators builds the catalog of baseDir and flattens it.
func (s *Service) ListIndicators(ctx context.Context, baseDir string) IndicatorsResult {
	dir := s.BaseDir(baseDir)
	if err := checkDir(dir); err != nil {
		return IndicatorsResult{Error: err.Error(), Anomalies: []models.ListedIndicator{}, err: err}
	}
	c, err := s.catalog.Build(ctx, dir)
	if err != nil {
		s.logger.Error("list indicators failed", slog.String("base_dir", dir), slog.String("error", err.Error()))
		return IndicatorsResult{Error: err.Error(), Anomalies: []models.ListedIndicator{}, err: err}
	}
	return IndicatorsResult{Success: true, Anomalies: c.Flatten(), Errors: c.Errors}
}

// Search runs the query batch of req against the artifacts of its base dir.
func (s *Service) Search(ctx context.Context, req SearchRequest) SearchResult {
	runID := uuid.NewString()
	dir := s.BaseDir(req.BaseDir)
	logger := s.logger.With(slog.String("run_id", runID))

	if err := checkDir(dir); err != nil {
		return SearchResult{Error: err.Error(), RunID: runID, Results: []models.MatchRecord{}, err: err}
	}
	maxRes := req.MaxResults
	if maxRes <= 0 {
		maxRes = s.maxRes
	}

	logger.Info("search started",
		slog.String("base_dir", dir),
		slog.Int("queries", len(req.Anomalies)),
		slog.Int("max_results", maxRes))

	results, err := s.engine.Search(ctx, dir, req.Anomalies, search.Options{
		NameFilter: req.ArtifactTypes,
		MaxResults: maxRes,
	})
	if err != nil {
		logger.Error("search failed", slog.String("error", err.Error()))
		return SearchResult{Error: err.Error(), RunID: runID, Results: []models.MatchRecord{}, err: err}
	}

	failed := 0
	for _, r := range results {
		if r.Error != "" {
			failed++
		}
	}
	logger.Info("search completed", slog.Int("records", len(results)), slog.Int("failed_pairs", failed))
	return SearchResult{Success: true, RunID: runID, Results: results}
}

// ListArtifacts lists the searchable files under baseDir.
func (s *Service) ListArtifacts(ctx context.Context, baseDir string, checksums bool) ArtifactsResult {
	dir := s.BaseDir(baseDir)
	items, err := artifacts.List(ctx, dir, s.engine.Extensions(), checksums)
	if err != nil {
		return ArtifactsResult{Error: err.Error(), Artifacts: []models.ArtifactInfo{}, err: err}
	}
	return ArtifactsResult{Success: true, Artifacts: items}
}

// Classify runs the indicator classifier over free text.
func (s *Service) Classify(text string) classify.Result {
	return classify.Text(text)
}

// checkDir returns ErrBaseDirNotFound unless dir is an existing directory.
func checkDir(dir string) error {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("%w: %s", apperr.ErrBaseDirNotFound, dir)
	}
	return nil
}
