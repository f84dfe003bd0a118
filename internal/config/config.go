// Package config loads and validates the application configuration.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

var envKeyReplacer = strings.NewReplacer(".", "_")

// ErrInvalidConfig marks configuration errors that must abort startup.
var ErrInvalidConfig = errors.New("invalid configuration")

// Enrichment modes.
const (
	EnrichmentLive     = "live"
	EnrichmentDeferred = "deferred"
)

// Lookup modes.
const (
	LookupMock = "mock"
	LookupHTTP = "http"
)

// Config is the complete runtime configuration.
type Config struct {
	Camera struct {
		URL     string        `mapstructure:"url"`
		Backoff time.Duration `mapstructure:"backoff"`
	} `mapstructure:"camera"`

	Detection struct {
		ModelPath           string  `mapstructure:"model_path"`
		InputSize           int     `mapstructure:"input_size"`
		ConfidenceThreshold float64 `mapstructure:"confidence_threshold"`
		MinAspectRatio      float64 `mapstructure:"min_aspect_ratio"`
		MaxAspectRatio      float64 `mapstructure:"max_aspect_ratio"`
	} `mapstructure:"detection"`

	OCR struct {
		Language string `mapstructure:"language"`
	} `mapstructure:"ocr"`

	Plate struct {
		MaxLength          int      `mapstructure:"max_length"`
		QuantizationFactor int      `mapstructure:"quantization_factor"`
		HistorySize        int      `mapstructure:"history_size"`
		AllowBharatSeries  bool     `mapstructure:"allow_bharat_series"`
		RegionCodes        []string `mapstructure:"region_codes"`
	} `mapstructure:"plate"`

	Enrichment struct {
		Mode string `mapstructure:"mode"`
	} `mapstructure:"enrichment"`

	Lookup struct {
		Mode    string        `mapstructure:"mode"`
		BaseURL string        `mapstructure:"base_url"`
		Timeout time.Duration `mapstructure:"timeout"`
	} `mapstructure:"lookup"`

	Live struct {
		Interval time.Duration `mapstructure:"interval"`
	} `mapstructure:"live"`

	Batch struct {
		Pause time.Duration `mapstructure:"pause"`
	} `mapstructure:"batch"`

	Output struct {
		SnapshotDir     string `mapstructure:"snapshot_dir"`
		BasicLogFile    string `mapstructure:"basic_log_file"`
		EnrichedLogFile string `mapstructure:"enriched_log_file"`
	} `mapstructure:"output"`

	Log struct {
		Format string `mapstructure:"format"`
		Level  string `mapstructure:"level"`
	} `mapstructure:"log"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("camera.backoff", 3*time.Second)
	v.SetDefault("detection.input_size", 640)
	v.SetDefault("detection.confidence_threshold", 0.5)
	v.SetDefault("detection.min_aspect_ratio", 1.5)
	v.SetDefault("detection.max_aspect_ratio", 5.5)
	v.SetDefault("ocr.language", "eng")
	v.SetDefault("plate.max_length", 10)
	v.SetDefault("plate.quantization_factor", 20)
	v.SetDefault("plate.history_size", 10)
	v.SetDefault("plate.allow_bharat_series", false)
	v.SetDefault("enrichment.mode", EnrichmentLive)
	v.SetDefault("lookup.mode", LookupMock)
	v.SetDefault("lookup.timeout", 5*time.Second)
	v.SetDefault("live.interval", 200*time.Millisecond)
	v.SetDefault("batch.pause", 500*time.Millisecond)
	v.SetDefault("output.snapshot_dir", "captures")
	v.SetDefault("output.basic_log_file", "detections.xlsx")
	v.SetDefault("output.enriched_log_file", "enriched_detections.xlsx")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.level", "info")
}

// Load reads the configuration from the given file (or platewatch.yaml in
// the working directory when path is empty), applies defaults and
// PLATEWATCH_* environment overrides, and validates the result.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("PLATEWATCH")
	v.SetEnvKeyReplacer(envKeyReplacer)
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("platewatch")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
			// No file is fine, env vars and defaults still apply.
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the pipeline must not start with.
func (c *Config) Validate() error {
	if c.Camera.URL == "" {
		return fmt.Errorf("%w: camera.url is required", ErrInvalidConfig)
	}
	if c.Detection.ModelPath == "" {
		return fmt.Errorf("%w: detection.model_path is required", ErrInvalidConfig)
	}
	if c.Detection.ConfidenceThreshold < 0 || c.Detection.ConfidenceThreshold > 1 {
		return fmt.Errorf("%w: detection.confidence_threshold must be in [0, 1]", ErrInvalidConfig)
	}
	if c.Detection.MinAspectRatio <= 0 || c.Detection.MaxAspectRatio <= c.Detection.MinAspectRatio {
		return fmt.Errorf("%w: aspect ratio band must satisfy 0 < min < max", ErrInvalidConfig)
	}
	if c.Detection.InputSize <= 0 {
		return fmt.Errorf("%w: detection.input_size must be positive", ErrInvalidConfig)
	}
	if c.Enrichment.Mode != EnrichmentLive && c.Enrichment.Mode != EnrichmentDeferred {
		return fmt.Errorf("%w: enrichment.mode must be %q or %q", ErrInvalidConfig, EnrichmentLive, EnrichmentDeferred)
	}
	switch c.Lookup.Mode {
	case LookupMock:
	case LookupHTTP:
		if c.Lookup.BaseURL == "" {
			return fmt.Errorf("%w: lookup.base_url is required in http mode", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: lookup.mode must be %q or %q", ErrInvalidConfig, LookupMock, LookupHTTP)
	}
	if c.Live.Interval <= 0 {
		return fmt.Errorf("%w: live.interval must be positive", ErrInvalidConfig)
	}
	if c.Log.Format != "json" && c.Log.Format != "kv" {
		return fmt.Errorf("%w: log.format must be 'json' or 'kv'", ErrInvalidConfig)
	}
	return nil
}
