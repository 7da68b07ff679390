// Package config loads runtime settings for the scan annotation server.
//
// Settings are layered: built-in defaults, then an optional YAML file, then
// SCAN_MCP_* environment variables (a .env file in the working directory is
// read into the environment first). Command-line flags are applied on top by
// the caller before Validate.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/apex/log"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/ironsheep/scan-annotate-mcp/internal/analysis"
	"github.com/ironsheep/scan-annotate-mcp/internal/annotate"
	"github.com/ironsheep/scan-annotate-mcp/internal/imaging"
)

// EnvPrefix is prepended to every environment variable the config reads.
const EnvPrefix = "SCAN_MCP_"

// Config holds all runtime settings.
type Config struct {
	// OutputDir receives annotated artifacts and staged uploads.
	OutputDir string `yaml:"output_dir"`

	// ArtifactPrefix is prepended to the source base name of each artifact.
	ArtifactPrefix string `yaml:"artifact_prefix"`

	ConfidenceMin float64 `yaml:"confidence_min"`
	ConfidenceMax float64 `yaml:"confidence_max"`

	// Seed fixes the random source. Zero seeds from the clock.
	Seed uint64 `yaml:"seed"`

	// MaxImageBytes rejects larger source files. Zero disables the limit.
	MaxImageBytes int64 `yaml:"max_image_bytes"`

	// BatchWorkers bounds parallel analyses in a batch.
	BatchWorkers int `yaml:"batch_workers"`

	LogLevel string `yaml:"log_level"`

	Palette annotate.Palette `yaml:"palette"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		OutputDir:      "uploads",
		ArtifactPrefix: annotate.DefaultPrefix,
		ConfidenceMin:  analysis.DefaultConfidenceMin,
		ConfidenceMax:  analysis.DefaultConfidenceMax,
		MaxImageBytes:  imaging.DefaultMaxBytes,
		BatchWorkers:   4,
		LogLevel:       "info",
		Palette:        annotate.DefaultPalette,
	}
}

// Load builds a Config from defaults, the YAML file at path and the
// environment. An empty path falls back to $SCAN_MCP_CONFIG; when that is
// unset too, no file is read.
func Load(path string) (*Config, error) {
	if err := LoadDotEnv(".env"); err != nil {
		return nil, err
	}

	if path == "" {
		path = os.Getenv(EnvPrefix + "CONFIG")
	}

	cfg := Default()
	if path != "" {
		if err := cfg.readFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDotEnv reads the given .env files into the process environment.
// Missing files are skipped and variables already set are kept.
func LoadDotEnv(files ...string) error {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return nil
}

func (c *Config) readFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	c.OutputDir = getEnv("OUTPUT_DIR", c.OutputDir)
	c.ArtifactPrefix = getEnv("ARTIFACT_PREFIX", c.ArtifactPrefix)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)

	var err error
	if c.ConfidenceMin, err = getEnvFloat("CONFIDENCE_MIN", c.ConfidenceMin); err != nil {
		return err
	}
	if c.ConfidenceMax, err = getEnvFloat("CONFIDENCE_MAX", c.ConfidenceMax); err != nil {
		return err
	}
	if v := os.Getenv(EnvPrefix + "SEED"); v != "" {
		if c.Seed, err = strconv.ParseUint(v, 10, 64); err != nil {
			return fmt.Errorf("invalid %sSEED: %w", EnvPrefix, err)
		}
	}
	if v := os.Getenv(EnvPrefix + "MAX_IMAGE_BYTES"); v != "" {
		if c.MaxImageBytes, err = strconv.ParseInt(v, 10, 64); err != nil {
			return fmt.Errorf("invalid %sMAX_IMAGE_BYTES: %w", EnvPrefix, err)
		}
	}
	if v := os.Getenv(EnvPrefix + "BATCH_WORKERS"); v != "" {
		if c.BatchWorkers, err = strconv.Atoi(v); err != nil {
			return fmt.Errorf("invalid %sBATCH_WORKERS: %w", EnvPrefix, err)
		}
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(EnvPrefix + key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) (float64, error) {
	value := os.Getenv(EnvPrefix + key)
	if value == "" {
		return defaultValue, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s%s: %w", EnvPrefix, key, err)
	}
	return f, nil
}

// Validate rejects settings the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.OutputDir == "" {
		return errors.New("output_dir must not be empty")
	}
	if c.ArtifactPrefix == "" {
		return errors.New("artifact_prefix must not be empty")
	}
	if c.ConfidenceMin < 0 || c.ConfidenceMax > 1 || c.ConfidenceMin >= c.ConfidenceMax {
		return fmt.Errorf("confidence range [%g, %g) must satisfy 0 <= min < max <= 1",
			c.ConfidenceMin, c.ConfidenceMax)
	}
	if c.MaxImageBytes < 0 {
		return fmt.Errorf("max_image_bytes must not be negative, got %d", c.MaxImageBytes)
	}
	if c.BatchWorkers < 1 {
		return fmt.Errorf("batch_workers must be at least 1, got %d", c.BatchWorkers)
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	if _, err := annotate.NewRenderer(annotate.WithPalette(c.Palette)); err != nil {
		return err
	}
	return nil
}

// Level returns the parsed log level, defaulting to info.
func (c *Config) Level() log.Level {
	lvl, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return log.InfoLevel
	}
	return lvl
}
