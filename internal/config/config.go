package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/netsentry/kpi-rca/internal/models"
)

// Config captures the settings required to run one analysis batch.
type Config struct {
	Detection   DetectionConfig   `yaml:"detection"`
	Correlation CorrelationConfig `yaml:"correlation"`
	Reasoning   ReasoningConfig   `yaml:"reasoning"`
	Cache       CacheConfig       `yaml:"cache"`
	Server      ServerConfig      `yaml:"server"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// DetectionConfig controls baseline computation and interval filtering.
// NodeOverrides lets individual nodes deviate from the batch-wide defaults;
// the default is always passed explicitly into detection, never read from a
// global.
type DetectionConfig struct {
	MedianPercentage   float64                           `yaml:"medianPercentage"`
	StaticThreshold    float64                           `yaml:"staticThreshold"`
	MinDurationMinutes float64                           `yaml:"minDurationMinutes"`
	NodeOverrides      map[string]models.ThresholdConfig `yaml:"nodeOverrides"`
}

// Defaults returns the batch-wide threshold configuration.
func (d DetectionConfig) Defaults() models.ThresholdConfig {
	return models.ThresholdConfig{
		MedianPercentage: d.MedianPercentage,
		StaticThreshold:  d.StaticThreshold,
	}
}

// ForNode resolves the threshold configuration for one node, falling back to
// the batch-wide defaults for unset fields.
func (d DetectionConfig) ForNode(node string) models.ThresholdConfig {
	cfg := d.Defaults()
	override, ok := d.NodeOverrides[node]
	if !ok {
		return cfg
	}
	if override.MedianPercentage > 0 {
		cfg.MedianPercentage = override.MedianPercentage
	}
	if override.StaticThreshold > 0 {
		cfg.StaticThreshold = override.StaticThreshold
	}
	return cfg
}

// CorrelationConfig bounds the event search window around each interval.
type CorrelationConfig struct {
	MinutesBefore float64 `yaml:"minutesBefore"`
	MinutesAfter  float64 `yaml:"minutesAfter"`
}

// ReasoningConfig configures the external causal-reasoning service.
type ReasoningConfig struct {
	Enabled     bool          `yaml:"enabled"`
	Model       string        `yaml:"model"`
	BaseURL     string        `yaml:"baseURL"`
	APIKey      string        `yaml:"apiKey"`
	Timeout     time.Duration `yaml:"timeout"`
	MaxAttempts int           `yaml:"maxAttempts"`
}

// CacheConfig controls Redis-backed caching of reasoning verdicts.
type CacheConfig struct {
	Enabled    bool          `yaml:"enabled"`
	Addr       string        `yaml:"addr"`
	Password   string        `yaml:"password"`
	DB         int           `yaml:"db"`
	VerdictTTL time.Duration `yaml:"verdictTTL"`
}

// ServerConfig controls the optional read-only results listener. An empty
// address disables it.
type ServerConfig struct {
	Address         string        `yaml:"address"`
	GracefulTimeout time.Duration `yaml:"gracefulTimeout"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// Load initialises Config from a YAML file and optional environment overrides.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("KPI_RCA_CONFIG")
	}

	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found: %w", path, err)
			}
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	return &cfg, nil
}

func defaultConfig() Config {
	return Config{
		Detection: DetectionConfig{
			MedianPercentage:   90,
			StaticThreshold:    95.0,
			MinDurationMinutes: 5,
		},
		Correlation: CorrelationConfig{
			MinutesBefore: 30,
			MinutesAfter:  30,
		},
		Reasoning: ReasoningConfig{
			Enabled:     true,
			Model:       "gpt-4o-mini",
			BaseURL:     "https://api.openai.com/v1",
			Timeout:     60 * time.Second,
			MaxAttempts: 3,
		},
		Cache: CacheConfig{
			Enabled:    false,
			VerdictTTL: 24 * time.Hour,
		},
		Server: ServerConfig{
			Address:         "",
			GracefulTimeout: 10 * time.Second,
		},
		Logging: LoggingConfig{Level: "info", JSON: false},
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("KPI_RCA_SERVER_ADDRESS"); v != "" {
		cfg.Server.Address = v
	}
	if v := os.Getenv("KPI_RCA_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("KPI_RCA_LOG_FORMAT"); v == "json" {
		cfg.Logging.JSON = true
	}
	if v := os.Getenv("KPI_RCA_MEDIAN_PERCENTAGE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Detection.MedianPercentage = f
		}
	}
	if v := os.Getenv("KPI_RCA_STATIC_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Detection.StaticThreshold = f
		}
	}
	if v := os.Getenv("KPI_RCA_MIN_DURATION_MINUTES"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Detection.MinDurationMinutes = f
		}
	}
	if v := os.Getenv("KPI_RCA_REASONING_ENABLED"); v != "" {
		cfg.Reasoning.Enabled = strings.EqualFold(v, "true") || v == "1"
	}
	if v := os.Getenv("KPI_RCA_REASONING_MODEL"); v != "" {
		cfg.Reasoning.Model = v
	}
	if v := os.Getenv("KPI_RCA_REASONING_BASE_URL"); v != "" {
		cfg.Reasoning.BaseURL = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" && cfg.Reasoning.APIKey == "" {
		cfg.Reasoning.APIKey = v
	}
	if v := os.Getenv("KPI_RCA_REASONING_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Reasoning.Timeout = d
		}
	}
	if v := os.Getenv("KPI_RCA_CACHE_ENABLED"); v != "" {
		cfg.Cache.Enabled = strings.EqualFold(v, "true") || v == "1"
	}
	if v := os.Getenv("KPI_RCA_CACHE_ADDR"); v != "" {
		cfg.Cache.Addr = v
	}
	if v := os.Getenv("KPI_RCA_CACHE_PASSWORD"); v != "" {
		cfg.Cache.Password = v
	}
	if v := os.Getenv("KPI_RCA_CACHE_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			cfg.Cache.DB = db
		}
	}
	if v := os.Getenv("KPI_RCA_CACHE_VERDICT_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Cache.VerdictTTL = d
		}
	}
}
