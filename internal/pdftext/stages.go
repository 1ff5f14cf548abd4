package pdftext

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/ledongthuc/pdf"
)

// textLayer reads the embedded text layer. The pdf package panics on some
// malformed inputs, so panics are turned into errors.
func textLayer(_ context.Context, path string) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("pdftext: text layer panic: %v", r)
		}
	}()

	f, r, err := pdf.Open(path)
	if f != nil {
		defer f.Close()
	}
	if err != nil {
		return "", fmt.Errorf("pdftext: open %s: %w", path, err)
	}

	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("pdftext: read text layer: %w", err)
	}
	data, err := io.ReadAll(plain)
	if err != nil {
		return "", fmt.Errorf("pdftext: read text layer: %w", err)
	}
	return string(data), nil
}

// poppler shells out to pdftotext, keeping the physical layout.
func (e *Extractor) poppler(ctx context.Context, path string) (string, error) {
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	args := []string{"-layout", "-enc", "UTF-8", "-eol", "unix"}
	if e.cfg.MaxPages > 0 {
		args = append(args, "-l", strconv.Itoa(e.cfg.MaxPages))
	}
	args = append(args, path, "-")

	stdout, stderr, err := e.runner.Run(ctx, e.tools.Pdftotext, args...)
	if err != nil {
		return "", fmt.Errorf("pdftext: pdftotext: %w: %s", err, strings.TrimSpace(string(stderr)))
	}
	return strings.ReplaceAll(string(stdout), "\f", "\n"), nil
}

// ocr rasterizes every page into a temporary directory and runs tesseract on
// each image in page order. Any page failure fails the stage.
func (e *Extractor) ocr(ctx context.Context, path string) (string, error) {
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	tmp, err := os.MkdirTemp("", "pdftext-ocr-*")
	if err != nil {
		return "", fmt.Errorf("pdftext: temp dir: %w", err)
	}
	defer os.RemoveAll(tmp)

	prefix := filepath.Join(tmp, "page")
	args := []string{"-r", strconv.Itoa(e.cfg.DPI), "-png"}
	if e.cfg.MaxPages > 0 {
		args = append(args, "-l", strconv.Itoa(e.cfg.MaxPages))
	}
	args = append(args, path, prefix)

	if _, stderr, err := e.runner.Run(ctx, e.tools.Pdftoppm, args...); err != nil {
		return "", fmt.Errorf("pdftext: pdftoppm: %w: %s", err, strings.TrimSpace(string(stderr)))
	}

	// pdftoppm zero-pads page numbers, so lexical order is page order.
	images, err := filepath.Glob(prefix + "-*.png")
	if err != nil {
		return "", fmt.Errorf("pdftext: list pages: %w", err)
	}
	if len(images) == 0 {
		return "", fmt.Errorf("pdftext: pdftoppm produced no pages")
	}
	sort.Strings(images)

	var b strings.Builder
	for i, img := range images {
		stdout, stderr, err := e.runner.Run(ctx, e.tools.Tesseract, img, "stdout", "-l", e.cfg.Language)
		if err != nil {
			return "", fmt.Errorf("pdftext: tesseract page %d: %w: %s", i+1, err, strings.TrimSpace(string(stderr)))
		}
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.Write(stdout)
	}
	return Normalize(b.String()), nil
}
