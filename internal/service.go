package internal

import (
	"log/slog"

	"github.com/starford/perthro/internal/catalog"
	"github.com/starford/perthro/internal/investigation"
	"github.com/starford/perthro/internal/logging"
	"github.com/starford/perthro/internal/pdftext"
	"github.com/starford/perthro/internal/reports"
	"github.com/starford/perthro/internal/search"
)

// NewService wires the extraction chain, catalog builder and search engine
// described by cfg. External tools are resolved once here.
func NewService(cfg *Config) *investigation.Service {
	extractionCfg := cfg.Extraction.PDFText()
	tools := pdftext.DetectTools(extractionCfg, nil)

	logger := logging.New("extraction")
	logger.Info("extraction tools resolved",
		slog.String("pdftotext", tools.Pdftotext),
		slog.String("pdftoppm", tools.Pdftoppm),
		slog.String("tesseract", tools.Tesseract),
		slog.Bool("ocr", tools.OCRAvailable()))

	extractor := pdftext.New(extractionCfg, tools, pdftext.WithLogger(logger))
	reportExtractor := reports.New(extractor,
		reports.WithWorkers(cfg.Extraction.Workers),
		reports.WithLogger(logging.New("reports")))
	builder := catalog.NewBuilder(reportExtractor, logging.New("catalog"))
	engine := search.New(cfg.Search.Engine(), logging.New("search"))

	return investigation.NewService(builder, engine,
		investigation.WithDefaultBaseDir(cfg.Case.BaseDir),
		investigation.WithDefaultMaxResults(cfg.Search.MaxResults),
		investigation.WithLogger(logging.New("investigation")))
}
