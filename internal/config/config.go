// Package config holds the pipeline configuration. Everything the stages
// and the cache need (paths, column names, thresholds) travels through an
// explicit Config value rather than package-level state, so tests and
// concurrent tooling can run with independent settings.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-playground/validator/v10"
)

// Defaults preserved from the source survey pipeline. The quarantine
// threshold and compensation ceiling have no stated justification beyond
// "what the survey team always used"; keep them overridable but do not
// change the defaults.
const (
	DefaultSamplePct               = 0.05
	DefaultMinPerStratum           = 1
	DefaultSeed                    = 42
	DefaultQuarantineNullThreshold = 0.5
	DefaultCompCeiling             = 10_000_000
)

// Stage directory names, in execution order.
var StageNames = []string{"01_sample", "02_validate", "03_transform", "04_enrich"}

// Config carries all pipeline settings.
type Config struct {
	DataDir   string `validate:"required"`
	InputPath string

	SamplePct     float64 `validate:"gt=0,lte=1"`
	MinPerStratum int     `validate:"gte=1"`
	Seed          int64
	SkipCache     bool

	RoleColumn          string   `validate:"required"`
	YearColumn          string   `validate:"required"`
	IDColumn            string   `validate:"required"`
	CountryColumn       string   `validate:"required"`
	ExperienceColumn    string   `validate:"required"`
	CompYearlyColumn    string   `validate:"required"`
	CompensationColumns []string `validate:"required,min=1"`
	KeyColumns          []string `validate:"required,min=1"`
	RequiredColumns     []string

	QuarantineNullThreshold float64 `validate:"gte=0,lte=1"`
	CompCeiling             float64 `validate:"gt=0"`

	CacheDBName    string `validate:"required"`
	TrackingDBName string `validate:"required"`
}

// Default returns the configuration matching the survey pipeline's
// built-in behavior.
func Default() *Config {
	return &Config{
		DataDir:                 "data",
		SamplePct:               DefaultSamplePct,
		MinPerStratum:           DefaultMinPerStratum,
		Seed:                    DefaultSeed,
		RoleColumn:              "DevType",
		YearColumn:              "survey_year",
		IDColumn:                "ResponseId",
		CountryColumn:           "Country",
		ExperienceColumn:        "WorkExp",
		CompYearlyColumn:        "ConvertedCompYearly",
		CompensationColumns:     []string{"CompTotal", "ConvertedCompYearly"},
		KeyColumns:              []string{"ResponseId", "DevType", "survey_year"},
		RequiredColumns:         []string{"ResponseId", "Country"},
		QuarantineNullThreshold: DefaultQuarantineNullThreshold,
		CompCeiling:             DefaultCompCeiling,
		CacheDBName:             "survey_cache.db",
		TrackingDBName:          "runs.db",
	}
}

// Load builds a Config from defaults plus environment overrides and
// validates it. Callers are expected to have run godotenv.Load() already
// (both binaries do this in main).
func Load() (*Config, error) {
	cfg := Default()

	if v := os.Getenv("PIPELINE_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("PIPELINE_SAMPLE_PCT"); v != "" {
		pct, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid PIPELINE_SAMPLE_PCT %q: %w", v, err)
		}
		cfg.SamplePct = pct / 100.0
	}
	if v := os.Getenv("PIPELINE_SEED"); v != "" {
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid PIPELINE_SEED %q: %w", v, err)
		}
		cfg.Seed = seed
	}
	if v := os.Getenv("PIPELINE_CACHE_DB"); v != "" {
		cfg.CacheDBName = v
	}
	if v := os.Getenv("PIPELINE_TRACKING_DB"); v != "" {
		cfg.TrackingDBName = v
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration using struct tags.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid pipeline config: %w", err)
	}
	return nil
}

// CacheDir is where the cache database lives.
func (c *Config) CacheDir() string {
	return filepath.Join(c.DataDir, "cache")
}

// CachePath is the cache database file.
func (c *Config) CachePath() string {
	return filepath.Join(c.CacheDir(), c.CacheDBName)
}

// TrackingDBPath is the run-tracking database file.
func (c *Config) TrackingDBPath() string {
	return filepath.Join(c.CacheDir(), c.TrackingDBName)
}

// StageDir is the root of the per-stage intermediate outputs.
func (c *Config) StageDir() string {
	return filepath.Join(c.DataDir, "stages")
}

// EnsureDirs creates the data, cache and stage directories.
func (c *Config) EnsureDirs() error {
	dirs := []string{c.DataDir, c.CacheDir(), c.StageDir()}
	for _, stage := range StageNames {
		dirs = append(dirs, filepath.Join(c.StageDir(), stage))
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}
