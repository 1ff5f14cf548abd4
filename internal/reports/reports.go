// Package reports mines PDF incident reports for classified indicators.
package reports

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/starford/perthro/internal/checksum"
	"github.com/starford/perthro/internal/classify"
	"github.com/starford/perthro/internal/models"
	"github.com/starford/perthro/internal/storage"
)

// ErrNotPDF is recorded for report files whose content is not a PDF.
var ErrNotPDF = errors.New("not a PDF document")

// TextExtractor returns best-effort text for a PDF; empty means no content.
type TextExtractor interface {
	Extract(ctx context.Context, path string) string
}

// Output groups report-derived indicators by category.
type Output struct {
	File    []models.Indicator   `json:"file"`
	Network []models.Indicator   `json:"network"`
	Hash    []models.Indicator   `json:"hash"`
	Errors  []models.SourceError `json:"errors"`
}

// Extractor composes a TextExtractor with the indicator classifier.
type Extractor struct {
	text    TextExtractor
	workers int
	logger  *slog.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithWorkers bounds how many reports are extracted at once. Default 4.
func WithWorkers(n int) Option {
	return func(e *Extractor) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Extractor) {
		if l != nil {
			e.logger = l
		}
	}
}

// New returns an Extractor that reads text through text.
func New(text TextExtractor, opts ...Option) *Extractor {
	e := &Extractor{text: text, workers: 4, logger: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// fileResult is what one report contributes; results are kept per index so
// the merged output follows file name order.
type fileResult struct {
	indicators map[classify.Category][]models.Indicator
	err        *models.SourceError
}

// Extract processes every .pdf directly inside folder. A missing folder
// yields empty collections. Per-file failures land in Output.Errors.
func (e *Extractor) Extract(ctx context.Context, folder string) Output {
	out := Output{
		File:    []models.Indicator{},
		Network: []models.Indicator{},
		Hash:    []models.Indicator{},
		Errors:  []models.SourceError{},
	}

	store, err := storage.NewFS(folder)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			out.Errors = append(out.Errors, models.SourceError{Source: folder, Error: err.Error()})
		}
		return out
	}
	files, err := store.Glob("", ".pdf")
	if err != nil {
		out.Errors = append(out.Errors, models.SourceError{Source: folder, Error: err.Error()})
		return out
	}

	results := make([]fileResult, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i, f := range files {
		source := filepath.Join(folder, f.Name)
		g.Go(func() error {
			results[i] = e.extractFile(gctx, store, f, source)
			return nil
		})
	}
	_ = g.Wait()

	for _, r := range results {
		if r.err != nil {
			out.Errors = append(out.Errors, *r.err)
			continue
		}
		out.File = append(out.File, r.indicators[classify.CategoryFile]...)
		out.Network = append(out.Network, r.indicators[classify.CategoryNetwork]...)
		out.Hash = append(out.Hash, r.indicators[classify.CategoryHash]...)
	}
	return out
}

var typeByCategory = map[classify.Category]models.IndicatorType{
	classify.CategoryFile:    models.TypeReportFile,
	classify.CategoryNetwork: models.TypeReportNetwork,
	classify.CategoryHash:    models.TypeReportHash,
}

func (e *Extractor) extractFile(ctx context.Context, store storage.Provider, f storage.Entry, source string) (res fileResult) {
	defer func() {
		if r := recover(); r != nil {
			res = failed(source, fmt.Errorf("panic: %v", r))
		}
	}()

	if err := ctx.Err(); err != nil {
		return failed(source, err)
	}
	if err := sniffPDF(store, f.Path); err != nil {
		e.logger.Warn("report skipped", slog.String("path", source), slog.String("error", err.Error()))
		return failed(source, err)
	}

	text := e.text.Extract(ctx, f.Abs)
	if strings.TrimSpace(text) == "" {
		e.logger.Debug("report has no extractable text", slog.String("path", source))
		return fileResult{}
	}

	classified := classify.Text(text)
	stem := storage.Stem(f.Name)
	res.indicators = make(map[classify.Category][]models.Indicator, len(typeByCategory))
	for cat, typ := range typeByCategory {
		for _, v := range classified.Values(cat) {
			res.indicators[cat] = append(res.indicators[cat], models.Indicator{
				ID:     stem + "_" + v,
				Source: source,
				Scope:  models.ScopeGlobal,
				Type:   typ,
				Query:  v,
			})
		}
	}

	sum, err := checksum.File(f.Abs)
	if err != nil {
		sum = "unavailable"
	}
	e.logger.Info("report processed",
		slog.String("path", source),
		slog.String("sha256", sum),
		slog.Int("file_iocs", len(classified.File)),
		slog.Int("network_iocs", len(classified.Network)),
		slog.Int("hash_iocs", len(classified.Hash)))
	return res
}

// sniffPDF rejects files whose leading bytes do not carry the PDF signature.
func sniffPDF(store storage.Provider, path string) error {
	rc, err := store.Open(path)
	if err != nil {
		return err
	}
	defer rc.Close()

	head := make([]byte, 512)
	n, err := io.ReadFull(rc, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return fmt.Errorf("reports: read %s: %w", path, err)
	}
	if detected := http.DetectContentType(head[:n]); detected != "application/pdf" {
		return fmt.Errorf("%w (detected: %s)", ErrNotPDF, detected)
	}
	return nil
}

func failed(source string, err error) fileResult {
	return fileResult{err: &models.SourceError{Source: source, Error: err.Error()}}
}
