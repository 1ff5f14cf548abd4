package internal

import (
	"strings"
	"testing"
)

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled mode should pass: %v", err)
	}
	if cfg.AuthEnabled() {
		t.Error("disabled mode should not be enabled")
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{Mode: "", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfig_TokenModeValid(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: "mysecret"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("token mode with token should pass: %v", err)
	}
	if !cfg.AuthEnabled() {
		t.Error("token mode should be enabled")
	}
}

func TestAuthConfig_TokenModeEmptyToken(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: ""}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("token mode with empty token should fail")
	}
	if !strings.Contains(err.Error(), "token is empty") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAuthConfig_InvalidMode(t *testing.T) {
	cfg := AuthConfig{Mode: "magic", Token: "x"}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}

func TestFullConfig_AuthValidationCalled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Auth.Mode = "token"
	cfg.Auth.Token = ""
	err := cfg.Validate()
	if err == nil {
		t.Fatal("full config validate should catch auth error")
	}
}

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should be valid: %v", err)
	}
	if cfg.Search.MaxResults != 50 {
		t.Errorf("max_results = %d, want 50", cfg.Search.MaxResults)
	}
	if cfg.Search.Spreadsheets || cfg.Search.RecordMatches {
		t.Error("optional search features should be off by default")
	}
}

func TestApplicationConfig_LogFormat(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.App.LogFormat = ""
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty log format should default: %v", err)
	}
	if cfg.App.LogFormat != "json" {
		t.Errorf("log_format = %q, want json", cfg.App.LogFormat)
	}

	cfg.App.LogFormat = "xml"
	if err := cfg.Validate(); err == nil {
		t.Fatal("unknown log format should fail validation")
	}
}

func TestSearchConfig_NegativeRejected(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Search.MaxResults = -1
	err := cfg.Validate()
	if err == nil {
		t.Fatal("negative max_results should fail validation")
	}
	if !strings.HasPrefix(err.Error(), "search:") {
		t.Errorf("error should name the section: %v", err)
	}
}

func TestExtractionConfig_PDFText(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Extraction.Tesseract = "/opt/tess"
	cfg.Extraction.MaxPages = 3

	got := cfg.Extraction.PDFText()
	if got.Tesseract != "/opt/tess" || got.MaxPages != 3 || got.DPI != 300 || got.Language != "eng" {
		t.Errorf("unexpected extractor config: %+v", got)
	}
}

func TestSearchConfig_Engine(t *testing.T) {
	cfg := SearchConfig{Workers: 8, Spreadsheets: true}
	got := cfg.Engine()
	if got.Workers != 8 || !got.Spreadsheets || got.RecordMatches {
		t.Errorf("unexpected engine config: %+v", got)
	}
}
