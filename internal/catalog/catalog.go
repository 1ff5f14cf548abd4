// Package catalog aggregates every indicator of an investigation directory:
// manual notes, raw IOC lists, and report-derived indicators.
package catalog

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/starford/perthro/internal/models"
	"github.com/starford/perthro/internal/reports"
	"github.com/starford/perthro/internal/storage"
)

// Investigation directory layout.
const (
	AnomaliesDir = "anomalies"
	IOCDir       = "ioc"
	ReportsDir   = "reports"
)

// Group labels used when the catalog is flattened.
const (
	GroupManual = "manual"
	GroupIOC    = "ioc"
	GroupReport = "report"
)

// ReportSource extracts indicators from a reports folder.
type ReportSource interface {
	Extract(ctx context.Context, folder string) reports.Output
}

// Catalog is the full set of indicators found under a base directory.
type Catalog struct {
	Manual  []models.Indicator   `json:"manual"`
	IOC     []models.Indicator   `json:"ioc"`
	Reports reports.Output       `json:"reports"`
	Errors  []models.SourceError `json:"errors"`
}

// Builder assembles catalogs.
type Builder struct {
	reports ReportSource
	logger  *slog.Logger
}

// NewBuilder returns a Builder that mines reports through rs.
func NewBuilder(rs ReportSource, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{reports: rs, logger: logger}
}

// Build reads baseDir. Missing subdirectories contribute nothing; unreadable
// files are recorded in Catalog.Errors. The caller checks that baseDir exists.
func (b *Builder) Build(ctx context.Context, baseDir string) (*Catalog, error) {
	store, err := storage.NewFS(baseDir)
	if err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}

	c := &Catalog{Errors: []models.SourceError{}}
	c.Manual = b.manualNotes(store, baseDir, c)
	c.IOC = b.iocLines(store, baseDir, c)
	c.Reports = b.reports.Extract(ctx, filepath.Join(baseDir, ReportsDir))
	c.Errors = append(c.Errors, c.Reports.Errors...)

	b.logger.Info("catalog built",
		slog.String("base_dir", baseDir),
		slog.Int("manual", len(c.Manual)),
		slog.Int("ioc", len(c.IOC)),
		slog.Int("report_file", len(c.Reports.File)),
		slog.Int("report_network", len(c.Reports.Network)),
		slog.Int("report_hash", len(c.Reports.Hash)),
		slog.Int("errors", len(c.Errors)))
	return c, nil
}

// manualNotes yields one indicator per non-empty note file; the whole
// trimmed file is the query.
func (b *Builder) manualNotes(store storage.Provider, baseDir string, c *Catalog) []models.Indicator {
	out := []models.Indicator{}
	files, err := store.Glob(AnomaliesDir, ".txt")
	if err != nil {
		c.addError(filepath.Join(baseDir, AnomaliesDir), err)
		return out
	}
	for _, f := range files {
		source := filepath.Join(baseDir, filepath.FromSlash(f.Path))
		data, err := store.Read(f.Path)
		if err != nil {
			b.logger.Warn("manual note unreadable", slog.String("path", source), slog.String("error", err.Error()))
			c.addError(source, err)
			continue
		}
		text := strings.TrimSpace(string(data))
		if text == "" {
			continue
		}
		out = append(out, models.Indicator{
			ID:     storage.Stem(f.Name),
			Source: source,
			Scope:  models.ScopeGlobal,
			Type:   models.TypeManual,
			Query:  text,
		})
	}
	return out
}

// iocLines yields one indicator per non-empty line. Line numbers are
// 1-based and count blank lines.
func (b *Builder) iocLines(store storage.Provider, baseDir string, c *Catalog) []models.Indicator {
	out := []models.Indicator{}
	files, err := store.Glob(IOCDir, ".txt")
	if err != nil {
		c.addError(filepath.Join(baseDir, IOCDir), err)
		return out
	}
	for _, f := range files {
		source := filepath.Join(baseDir, filepath.FromSlash(f.Path))
		data, err := store.Read(f.Path)
		if err != nil {
			b.logger.Warn("ioc list unreadable", slog.String("path", source), slog.String("error", err.Error()))
			c.addError(source, err)
			continue
		}
		stem := storage.Stem(f.Name)
		sc := bufio.NewScanner(bytes.NewReader(data))
		sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for n := 1; sc.Scan(); n++ {
			line := strings.TrimSpace(sc.Text())
			if line == "" {
				continue
			}
			out = append(out, models.Indicator{
				ID:     fmt.Sprintf("%s_%d", stem, n),
				Source: source,
				Scope:  models.ScopeGlobal,
				Type:   models.TypeIOC,
				Query:  line,
			})
		}
		if err := sc.Err(); err != nil {
			c.addError(source, err)
		}
	}
	return out
}

func (c *Catalog) addError(source string, err error) {
	c.Errors = append(c.Errors, models.SourceError{Source: source, Error: err.Error()})
}

// Flatten concatenates the groups in fixed order (manual, ioc, report file,
// report network, report hash), re-indexing ids sequentially per group.
func (c *Catalog) Flatten() []models.ListedIndicator {
	out := make([]models.ListedIndicator, 0,
		len(c.Manual)+len(c.IOC)+len(c.Reports.File)+len(c.Reports.Network)+len(c.Reports.Hash))
	groups := []struct {
		prefix string
		group  string
		items  []models.Indicator
	}{
		{"manual", GroupManual, c.Manual},
		{"ioc", GroupIOC, c.IOC},
		{"report_file", GroupReport, c.Reports.File},
		{"report_net", GroupReport, c.Reports.Network},
		{"report_hash", GroupReport, c.Reports.Hash},
	}
	for _, g := range groups {
		for i, ind := range g.items {
			out = append(out, models.ListedIndicator{
				ID:       fmt.Sprintf("%s_%d", g.prefix, i),
				Query:    ind.Query,
				Source:   g.group,
				Type:     ind.Type,
				Origin:   ind.Source,
				SourceID: ind.ID,
			})
		}
	}
	return out
}

// Queries converts the flattened catalog to search queries.
func (c *Catalog) Queries() []models.Query {
	flat := c.Flatten()
	out := make([]models.Query, len(flat))
	for i, ind := range flat {
		out[i] = models.Query{ID: ind.ID, Query: ind.Query}
	}
	return out
}
