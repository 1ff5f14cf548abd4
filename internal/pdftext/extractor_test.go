package pdftext

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/perthro/internal/testutil"
)

// stubRunner dispatches by command name and records every invocation.
type stubRunner struct {
	mu       sync.Mutex
	calls    []string
	handlers map[string]func(args []string) ([]byte, error)
}

func (s *stubRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	s.mu.Lock()
	s.calls = append(s.calls, name)
	s.mu.Unlock()

	h, ok := s.handlers[name]
	if !ok {
		return nil, []byte("not stubbed"), errors.New("exit status 127")
	}
	out, err := h(args)
	return out, nil, err
}

func (s *stubRunner) called(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.calls {
		if c == name {
			return true
		}
	}
	return false
}

var allTools = Tools{Pdftotext: "pdftotext", Pdftoppm: "pdftoppm", Tesseract: "tesseract"}

func TestExtract_TextLayerSkipsFallbacks(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WritePDF(t, dir, "report.pdf", "beacon to evil.example.com dropped payload.exe")

	r := &stubRunner{handlers: map[string]func([]string) ([]byte, error){
		"tesseract": func([]string) ([]byte, error) {
			t.Error("tesseract must not run when a text layer exists")
			return nil, nil
		},
	}}
	e := New(Config{}, allTools, WithRunner(r))

	got := e.Extract(context.Background(), path)
	assert.Contains(t, got, "evil.example.com")
	assert.Contains(t, got, "payload.exe")
	assert.Empty(t, r.calls)
}

func TestExtract_PopplerFallback(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteFile(t, dir, "broken.pdf", []byte("%PDF-1.4\ngarbage"))

	r := &stubRunner{handlers: map[string]func([]string) ([]byte, error){
		"pdftotext": func(args []string) ([]byte, error) {
			assert.Equal(t, "-", args[len(args)-1])
			assert.Equal(t, path, args[len(args)-2])
			return []byte("c2.example.net\f"), nil
		},
	}}
	e := New(Config{}, allTools, WithRunner(r))

	got := e.Extract(context.Background(), path)
	assert.Equal(t, "c2.example.net\n", got)
	assert.False(t, r.called("tesseract"))
}

func TestExtract_OCRForImageOnlyPages(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WritePDF(t, dir, "scan.pdf", "")

	r := &stubRunner{handlers: map[string]func([]string) ([]byte, error){
		"pdftotext": func([]string) ([]byte, error) { return []byte("\f"), nil },
		"pdftoppm": func(args []string) ([]byte, error) {
			prefix := args[len(args)-1]
			for _, page := range []string{"-1.png", "-2.png"} {
				if err := os.WriteFile(prefix+page, []byte("png"), 0o644); err != nil {
					return nil, err
				}
			}
			return nil, nil
		},
		"tesseract": func(args []string) ([]byte, error) {
			switch filepath.Base(args[0]) {
			case "page-1.png":
				return []byte("Beacon   to\r\nevil.example.com\n\n\n\n"), nil
			default:
				return []byte("hash d41d8cd98f00b204e9800998ecf8427e"), nil
			}
		},
	}}
	e := New(Config{DPI: 200}, allTools, WithRunner(r))

	got := e.Extract(context.Background(), path)
	assert.Equal(t, "Beacon to\nevil.example.com\n\nhash d41d8cd98f00b204e9800998ecf8427e", got)
}

func TestExtract_OCRUnavailable(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WritePDF(t, dir, "scan.pdf", "")

	r := &stubRunner{handlers: map[string]func([]string) ([]byte, error){
		"pdftotext": func([]string) ([]byte, error) { return nil, nil },
	}}
	e := New(Config{}, Tools{Pdftotext: "pdftotext"}, WithRunner(r))

	require.False(t, e.OCRAvailable())
	assert.Equal(t, []string{StageTextLayer, StagePoppler}, e.Stages())
	assert.Equal(t, "", e.Extract(context.Background(), path))
	assert.False(t, r.called("pdftoppm"))
}

func TestExtract_OCRFailureYieldsEmpty(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WritePDF(t, dir, "scan.pdf", "")

	r := &stubRunner{handlers: map[string]func([]string) ([]byte, error){
		"pdftoppm": func(args []string) ([]byte, error) {
			return nil, os.WriteFile(args[len(args)-1]+"-1.png", []byte("png"), 0o644)
		},
		"tesseract": func([]string) ([]byte, error) { return nil, errors.New("exit status 1") },
	}}
	e := New(Config{}, Tools{Pdftoppm: "pdftoppm", Tesseract: "tesseract"}, WithRunner(r))

	assert.Equal(t, "", e.Extract(context.Background(), path))
}

func TestExtract_NotAPDF(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteFile(t, dir, "fake.pdf", []byte("just some text"))

	e := New(Config{}, Tools{})
	assert.Equal(t, "", e.Extract(context.Background(), path))
}

func TestFirstNonEmpty_Order(t *testing.T) {
	var ran []string
	stage := func(name, out string, err error) Stage {
		return Stage{Name: name, Run: func(context.Context, string) (string, error) {
			ran = append(ran, name)
			return out, err
		}}
	}
	stages := []Stage{
		stage("fails", "ignored", errors.New("boom")),
		stage("blank", "  \n\t", nil),
		stage("wins", "text", nil),
		stage("never", "other", nil),
	}
	got := FirstNonEmpty(context.Background(), stages, "x.pdf", discardLogger())
	assert.Equal(t, "text", got)
	assert.Equal(t, []string{"fails", "blank", "wins"}, ran)
}

func TestFirstNonEmpty_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	stages := []Stage{{Name: "s", Run: func(context.Context, string) (string, error) {
		t.Error("stage must not run after cancellation")
		return "text", nil
	}}}
	assert.Equal(t, "", FirstNonEmpty(ctx, stages, "x.pdf", discardLogger()))
}

func TestDetectTools(t *testing.T) {
	lookPath := func(name string) (string, error) {
		if name == "tesseract" {
			return "", errors.New("not found")
		}
		return "/usr/bin/" + name, nil
	}
	tools := DetectTools(Config{}, lookPath)
	assert.Equal(t, "/usr/bin/pdftotext", tools.Pdftotext)
	assert.Equal(t, "/usr/bin/pdftoppm", tools.Pdftoppm)
	assert.Empty(t, tools.Tesseract)
	assert.False(t, tools.OCRAvailable())
}

func TestNormalize(t *testing.T) {
	in := "  line\tone  \r\n\n\n\nline two\f"
	assert.Equal(t, "line one\n\nline two", Normalize(in))
	assert.True(t, strings.Contains(Normalize("10.0.0.5"), "10.0.0.5"))
}
