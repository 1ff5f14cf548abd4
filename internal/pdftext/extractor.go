// Package pdftext extracts plain text from PDF reports through a chain of
// progressively more expensive strategies: the embedded text layer, poppler's
// pdftotext, and finally per-page OCR.
package pdftext

import (
	"context"
	"log/slog"
	"strings"
	"time"
)

// Config controls the external tools used by the fallback stages.
type Config struct {
	Pdftotext string        // binary name or path; default "pdftotext"
	Pdftoppm  string        // binary name or path; default "pdftoppm"
	Tesseract string        // binary name or path; default "tesseract"
	Language  string        // tesseract language; default "eng"
	DPI       int           // rasterization DPI; default 300
	MaxPages  int           // 0 = no limit
	Timeout   time.Duration // per external command; 0 = none
}

func (c Config) withDefaults() Config {
	if c.Pdftotext == "" {
		c.Pdftotext = "pdftotext"
	}
	if c.Pdftoppm == "" {
		c.Pdftoppm = "pdftoppm"
	}
	if c.Tesseract == "" {
		c.Tesseract = "tesseract"
	}
	if c.Language == "" {
		c.Language = "eng"
	}
	if c.DPI <= 0 {
		c.DPI = 300
	}
	return c
}

// Stage names.
const (
	StageTextLayer = "text-layer"
	StagePoppler   = "pdftotext"
	StageOCR       = "ocr"
)

// Stage is one independently fallible extraction strategy.
type Stage struct {
	Name string
	Run  func(ctx context.Context, path string) (string, error)
}

// Extractor returns best-effort text for a PDF file.
type Extractor struct {
	cfg    Config
	tools  Tools
	runner Runner
	logger *slog.Logger
	stages []Stage
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithRunner replaces the command runner used by the external stages.
func WithRunner(r Runner) Option {
	return func(e *Extractor) {
		if r != nil {
			e.runner = r
		}
	}
}

// WithLogger sets the logger. Default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Extractor) {
		if l != nil {
			e.logger = l
		}
	}
}

// New builds an Extractor. tools decides which fallback stages exist: the
// pdftotext stage needs Tools.Pdftotext and the OCR stage needs
// Tools.OCRAvailable.
func New(cfg Config, tools Tools, opts ...Option) *Extractor {
	e := &Extractor{
		cfg:    cfg.withDefaults(),
		tools:  tools,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.runner == nil {
		e.runner = execRunner{logger: e.logger}
	}

	e.stages = []Stage{{Name: StageTextLayer, Run: textLayer}}
	if tools.Pdftotext != "" {
		e.stages = append(e.stages, Stage{Name: StagePoppler, Run: e.poppler})
	}
	if tools.OCRAvailable() {
		e.stages = append(e.stages, Stage{Name: StageOCR, Run: e.ocr})
	}
	return e
}

// Stages returns the names of the configured stages in evaluation order.
func (e *Extractor) Stages() []string {
	names := make([]string, len(e.stages))
	for i, s := range e.stages {
		names[i] = s.Name
	}
	return names
}

// OCRAvailable reports whether the OCR stage is part of the chain.
func (e *Extractor) OCRAvailable() bool {
	return e.tools.OCRAvailable()
}

// Extract returns the text of the first stage that yields non-blank output.
// It never fails: an empty string means no extractable content.
func (e *Extractor) Extract(ctx context.Context, path string) string {
	return FirstNonEmpty(ctx, e.stages, path, e.logger)
}

// FirstNonEmpty runs stages in order and returns the first result that is
// non-blank after trimming. Stage errors are logged and skipped.
func FirstNonEmpty(ctx context.Context, stages []Stage, path string, logger *slog.Logger) string {
	for _, s := range stages {
		if ctx.Err() != nil {
			return ""
		}
		text, err := s.Run(ctx, path)
		if err != nil {
			logger.Debug("pdftext: stage failed",
				slog.String("stage", s.Name),
				slog.String("path", path),
				slog.String("error", err.Error()))
			continue
		}
		if strings.TrimSpace(text) == "" {
			logger.Debug("pdftext: stage empty", slog.String("stage", s.Name), slog.String("path", path))
			continue
		}
		logger.Debug("pdftext: extracted",
			slog.String("stage", s.Name),
			slog.String("path", path),
			slog.Int("bytes", len(text)))
		return text
	}
	return ""
}

func (e *Extractor) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.cfg.Timeout > 0 {
		return context.WithTimeout(ctx, e.cfg.Timeout)
	}
	return context.WithCancel(ctx)
}
