package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/perthro/internal/logging"
	"github.com/starford/perthro/internal/pdftext"
	"github.com/starford/perthro/internal/search"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App        ApplicationConfig `yaml:"app"`
	Case       CaseConfig        `yaml:"case"`
	Extraction ExtractionConfig  `yaml:"extraction"`
	Search     SearchConfig      `yaml:"search"`
	Auth       AuthConfig        `yaml:"auth"`
	Watch      WatchConfig       `yaml:"watch"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return fmt.Errorf("app: %w", err)
	}
	if err := c.Extraction.Validate(); err != nil {
		return fmt.Errorf("extraction: %w", err)
	}
	if err := c.Search.Validate(); err != nil {
		return fmt.Errorf("search: %w", err)
	}
	if err := c.Watch.Validate(); err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	return c.Auth.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel  slog.Level `yaml:"log_level"`
	LogFormat string     `yaml:"log_format"`
	HTTP      HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	if c.LogFormat == "" {
		c.LogFormat = logging.FormatJSON
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.LogFormat, validation.In(logging.FormatJSON, logging.FormatText)),
	); err != nil {
		return err
	}
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// CaseConfig holds the default case directory. Requests may name another.
type CaseConfig struct {
	BaseDir string `yaml:"base_dir"`
}

// ExtractionConfig configures the PDF text extraction fallbacks.
type ExtractionConfig struct {
	Pdftotext string        `yaml:"pdftotext"`
	Pdftoppm  string        `yaml:"pdftoppm"`
	Tesseract string        `yaml:"tesseract"`
	Language  string        `yaml:"language"`
	DPI       int           `yaml:"dpi"`
	MaxPages  int           `yaml:"max_pages"`
	Timeout   time.Duration `yaml:"timeout"`
	Workers   int           `yaml:"workers"`
}

// Validate validates the extraction configuration.
func (c *ExtractionConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.DPI, validation.Min(0), validation.Max(1200)),
		validation.Field(&c.MaxPages, validation.Min(0)),
		validation.Field(&c.Timeout, validation.Min(time.Duration(0))),
		validation.Field(&c.Workers, validation.Min(0)),
	)
}

// PDFText converts the section into the extractor configuration.
func (c *ExtractionConfig) PDFText() pdftext.Config {
	return pdftext.Config{
		Pdftotext: c.Pdftotext,
		Pdftoppm:  c.Pdftoppm,
		Tesseract: c.Tesseract,
		Language:  c.Language,
		DPI:       c.DPI,
		MaxPages:  c.MaxPages,
		Timeout:   c.Timeout,
	}
}

// SearchConfig configures the artifact search engine.
type SearchConfig struct {
	MaxResults    int  `yaml:"max_results"`
	Workers       int  `yaml:"workers"`
	Spreadsheets  bool `yaml:"spreadsheets"`
	RecordMatches bool `yaml:"record_matches"`
}

// Validate validates the search configuration.
func (c *SearchConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.MaxResults, validation.Min(0)),
		validation.Field(&c.Workers, validation.Min(0), validation.Max(256)),
	)
}

// Engine converts the section into the engine configuration.
func (c *SearchConfig) Engine() search.Config {
	return search.Config{
		Workers:       c.Workers,
		Spreadsheets:  c.Spreadsheets,
		RecordMatches: c.RecordMatches,
	}
}

// WatchConfig controls the case directory watcher in serve mode.
type WatchConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Debounce time.Duration `yaml:"debounce"`
	Throttle time.Duration `yaml:"throttle"`
}

// Validate validates the watch configuration.
func (c *WatchConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Debounce, validation.Min(time.Duration(0))),
		validation.Field(&c.Throttle, validation.Min(time.Duration(0))),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for a local workstation.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel:  slog.LevelInfo,
			LogFormat: logging.FormatJSON,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Case: CaseConfig{
			BaseDir: ".",
		},
		Extraction: ExtractionConfig{
			Language: "eng",
			DPI:      300,
			Timeout:  2 * time.Minute,
			Workers:  4,
		},
		Search: SearchConfig{
			MaxResults: search.DefaultMaxResults,
			Workers:    4,
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Watch: WatchConfig{
			Enabled:  true,
			Debounce: 200 * time.Millisecond,
			Throttle: 2 * time.Second,
		},
	}
}
