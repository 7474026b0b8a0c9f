// Package config loads runtime settings for the filing pipeline.
//
// Settings come from config/app.yaml, then environment variables (a .env file
// in the working directory is loaded first), then built-in defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

const (
	DefaultPath       = "config/app.yaml"
	DefaultModelsPath = "config/models.yaml"

	// DefaultYearCutoff excludes filing folders whose two-digit year is >= 25.
	DefaultYearCutoff = 25

	// YearCutoffAuto derives the cutoff from the current date.
	YearCutoffAuto = "auto"
)

// Index backends.
const (
	BackendFile     = "file"
	BackendBadger   = "badger"
	BackendPostgres = "postgres"
)

// Config holds all pipeline settings.
type Config struct {
	DataDir     string `yaml:"data_dir"`
	SECDir      string `yaml:"sec_dir"`       // downloaded filings: <sec_dir>/<SYMBOL>/<type>/<id>/
	IndexDir    string `yaml:"index_dir"`     // persisted semantic indexes
	SideFileDir string `yaml:"side_file_dir"` // extracted section text files
	PromptsDir  string `yaml:"prompts_dir"`   // optional prompt overrides
	DatabaseURL string `yaml:"database_url"`  // required by the postgres backend

	// IndexBackend is "file", "badger" or "postgres". Empty selects postgres
	// when DatabaseURL is set and file otherwise.
	IndexBackend string `yaml:"index_backend"`
	BadgerDir    string `yaml:"badger_dir"` // defaults to <index_dir>/badger

	FilingType          string `yaml:"filing_type"`
	NumYears            int    `yaml:"num_years"`
	YearCutoff          string `yaml:"year_cutoff"` // "25" or "auto"
	BuildWorkers        int    `yaml:"build_workers"`
	QueryTimeoutSeconds int    `yaml:"query_timeout_seconds"`

	SEC    SECConfig    `yaml:"sec"`
	Gemini GeminiConfig `yaml:"gemini"`
}

// SECConfig controls the EDGAR downloader.
type SECConfig struct {
	UserAgent         string  `yaml:"user_agent"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	DownloadLimit     int     `yaml:"download_limit"` // 0 = every listed filing
}

// GeminiConfig selects the models used for embeddings and completions.
type GeminiConfig struct {
	APIKey          string `yaml:"-"` // env only
	CompletionModel string `yaml:"completion_model"`
	EmbeddingModel  string `yaml:"embedding_model"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		DataDir:             "data",
		SideFileDir:         os.TempDir(),
		PromptsDir:          "resources",
		FilingType:          "10-K",
		NumYears:            3,
		YearCutoff:          strconv.Itoa(DefaultYearCutoff),
		BuildWorkers:        4,
		QueryTimeoutSeconds: 300,
		SEC: SECConfig{
			UserAgent:         "FilingAnalyst/1.0 (contact@example.com)",
			RequestsPerSecond: 8,
		},
		Gemini: GeminiConfig{
			CompletionModel: "gemini-2.0-flash",
			EmbeddingModel:  "text-embedding-004",
		},
	}
}

// Load reads the YAML file at path (a missing file is not an error), applies
// environment overrides and fills derived defaults.
func Load(path string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse %s: %w", path, err)
			}
		case os.IsNotExist(err):
			// defaults only
		default:
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	cfg.fillDerived()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	setString := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setString(&c.DataDir, "FILINGS_DATA_DIR")
	setString(&c.SECDir, "FILINGS_SEC_DIR")
	setString(&c.IndexDir, "FILINGS_INDEX_DIR")
	setString(&c.SideFileDir, "FILINGS_SIDE_DIR")
	setString(&c.PromptsDir, "FILINGS_PROMPTS_DIR")
	setString(&c.DatabaseURL, "DATABASE_URL")
	setString(&c.IndexBackend, "FILINGS_INDEX_BACKEND")
	setString(&c.YearCutoff, "FILING_YEAR_CUTOFF")
	setString(&c.SEC.UserAgent, "SEC_USER_AGENT")
	setString(&c.Gemini.APIKey, "GEMINI_API_KEY")
	setString(&c.Gemini.CompletionModel, "GEMINI_COMPLETION_MODEL")
	setString(&c.Gemini.EmbeddingModel, "GEMINI_EMBEDDING_MODEL")
}

func (c *Config) fillDerived() {
	if c.SECDir == "" {
		c.SECDir = filepath.Join(c.DataDir, "sec-edgar-filings")
	}
	if c.IndexDir == "" {
		c.IndexDir = filepath.Join(c.DataDir, "embeddings")
	}
	if c.BadgerDir == "" {
		c.BadgerDir = filepath.Join(c.IndexDir, "badger")
	}
	if c.IndexBackend == "" {
		c.IndexBackend = BackendFile
		if c.DatabaseURL != "" {
			c.IndexBackend = BackendPostgres
		}
	}
	if c.BuildWorkers <= 0 {
		c.BuildWorkers = 1
	}
}

// Validate checks settings that would otherwise fail deep inside a run.
func (c *Config) Validate() error {
	if c.NumYears <= 0 {
		return fmt.Errorf("num_years must be positive, got %d", c.NumYears)
	}
	if _, err := c.Cutoff(time.Now()); err != nil {
		return err
	}
	if c.SEC.RequestsPerSecond <= 0 {
		return fmt.Errorf("sec.requests_per_second must be positive")
	}
	switch c.IndexBackend {
	case "", BackendFile, BackendBadger:
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("index_backend %q requires database_url", c.IndexBackend)
		}
	default:
		return fmt.Errorf("unknown index_backend %q", c.IndexBackend)
	}
	return nil
}

// Cutoff resolves the two-digit year cutoff for filing folders.
// "auto" admits every two-digit year up to and including the current one.
func (c *Config) Cutoff(now time.Time) (int, error) {
	v := strings.TrimSpace(strings.ToLower(c.YearCutoff))
	if v == "" {
		return DefaultYearCutoff, nil
	}
	if v == YearCutoffAuto {
		return CutoffFromClock(now), nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 || n > 100 {
		return 0, fmt.Errorf("year_cutoff must be 1..100 or %q, got %q", YearCutoffAuto, c.YearCutoff)
	}
	return n, nil
}

// CutoffFromClock returns the exclusive two-digit year bound for now.
func CutoffFromClock(now time.Time) int {
	return now.Year()%100 + 1
}

// QueryTimeout is the per-request deadline for retrieval and synthesis.
func (c *Config) QueryTimeout() time.Duration {
	if c.QueryTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(c.QueryTimeoutSeconds) * time.Second
}

// LoadYAML decodes an auxiliary YAML file such as config/models.yaml.
// A missing file leaves out untouched.
func LoadYAML(path string, out interface{}) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}
