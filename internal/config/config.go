package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/LoremIpsumMaestro/supply-chain-specialist-sub001/internal/anomaly"
	"github.com/LoremIpsumMaestro/supply-chain-specialist-sub001/internal/common"
	"github.com/LoremIpsumMaestro/supply-chain-specialist-sub001/internal/processing"
	"github.com/LoremIpsumMaestro/supply-chain-specialist-sub001/internal/retrieval"
	"github.com/LoremIpsumMaestro/supply-chain-specialist-sub001/internal/service"
	"github.com/LoremIpsumMaestro/supply-chain-specialist-sub001/internal/temporal"
)

// DefaultDatabasePath is where the database lives unless configured otherwise.
const DefaultDatabasePath = "~/.local/share/scs/scs.db"

// Config is the typed application configuration.
type Config struct {
	Logging    LoggingConfig
	Database   DatabaseConfig
	Retrieval  RetrievalConfig
	Anomaly    AnomalyConfig
	Temporal   TemporalConfig
	Processing ProcessingConfig
}

// LoggingConfig controls the global logger.
type LoggingConfig struct {
	Level  string
	Format string
}

// DatabaseConfig locates the SQLite database.
type DatabaseConfig struct {
	Path string
}

// TemporalConfig tunes trend classification.
type TemporalConfig struct {
	FlatBandPct float64
}

// AnomalyConfig tunes the lead-time rule.
type AnomalyConfig struct {
	LeadTimeMaxDays    float64
	LeadTimeStdDevs    float64
	LeadTimeMinSamples int
}

// RetrievalConfig configures the fragment retrieval service. An empty endpoint disables
// retrieval.
type RetrievalConfig struct {
	Endpoint          string
	Timeout           time.Duration
	TopK              int
	RequestsPerSecond float64
	Burst             int
	MaxAttempts       int
	RetryDelay        time.Duration
}

// ProcessingConfig controls background detection.
type ProcessingConfig struct {
	Concurrency int
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("database.path", DefaultDatabasePath)
	v.SetDefault("temporal.flat_band_pct", temporal.DefaultFlatBandPct)
	v.SetDefault("anomaly.lead_time_max_days", anomaly.DefaultLeadTimeMaxDays)
	v.SetDefault("anomaly.lead_time_stddev", anomaly.DefaultLeadTimeStdDevs)
	v.SetDefault("anomaly.lead_time_min_samples", anomaly.DefaultLeadTimeMinSamples)
	v.SetDefault("retrieval.endpoint", "")
	v.SetDefault("retrieval.timeout", retrieval.DefaultTimeout)
	v.SetDefault("retrieval.top_k", retrieval.DefaultTopK)
	v.SetDefault("retrieval.requests_per_second", retrieval.DefaultRequestsPerSecond)
	v.SetDefault("retrieval.burst", 0)
	v.SetDefault("retrieval.max_attempts", 2)
	v.SetDefault("retrieval.retry_delay", 200*time.Millisecond)
	v.SetDefault("processing.concurrency", processing.DefaultConcurrency)
}

// Load builds a validated Config from v. Defaults are registered first, so an empty
// viper yields the documented defaults.
func Load(v *viper.Viper) (*Config, error) {
	if v == nil {
		return nil, fmt.Errorf("%w: viper instance is required", common.ErrMissingConfig)
	}
	SetDefaults(v)

	cfg := &Config{
		Logging: LoggingConfig{
			Level:  v.GetString("logging.level"),
			Format: v.GetString("logging.format"),
		},
		Database: DatabaseConfig{
			Path: ExpandPath(v.GetString("database.path")),
		},
		Temporal: TemporalConfig{
			FlatBandPct: v.GetFloat64("temporal.flat_band_pct"),
		},
		Anomaly: AnomalyConfig{
			LeadTimeMaxDays:    v.GetFloat64("anomaly.lead_time_max_days"),
			LeadTimeStdDevs:    v.GetFloat64("anomaly.lead_time_stddev"),
			LeadTimeMinSamples: v.GetInt("anomaly.lead_time_min_samples"),
		},
		Retrieval: RetrievalConfig{
			Endpoint:          v.GetString("retrieval.endpoint"),
			Timeout:           v.GetDuration("retrieval.timeout"),
			TopK:              v.GetInt("retrieval.top_k"),
			RequestsPerSecond: v.GetFloat64("retrieval.requests_per_second"),
			Burst:             v.GetInt("retrieval.burst"),
			MaxAttempts:       v.GetInt("retrieval.max_attempts"),
			RetryDelay:        v.GetDuration("retrieval.retry_delay"),
		},
		Processing: ProcessingConfig{
			Concurrency: v.GetInt("processing.concurrency"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values no component can run with.
func (c *Config) Validate() error {
	if _, err := common.ParseLevel(c.Logging.Level); err != nil {
		return err
	}
	switch c.Logging.Format {
	case "console", "text", "json":
	default:
		return fmt.Errorf("%w: invalid log format %q", common.ErrInvalidConfig, c.Logging.Format)
	}

	if c.Database.Path == "" {
		return fmt.Errorf("%w: database.path is required", common.ErrMissingConfig)
	}
	if c.Temporal.FlatBandPct < 0 {
		return invalid("temporal.flat_band_pct", c.Temporal.FlatBandPct)
	}
	if c.Anomaly.LeadTimeMaxDays <= 0 {
		return invalid("anomaly.lead_time_max_days", c.Anomaly.LeadTimeMaxDays)
	}
	if c.Anomaly.LeadTimeStdDevs <= 0 {
		return invalid("anomaly.lead_time_stddev", c.Anomaly.LeadTimeStdDevs)
	}
	if c.Anomaly.LeadTimeMinSamples < 2 {
		return invalid("anomaly.lead_time_min_samples", c.Anomaly.LeadTimeMinSamples)
	}
	if c.Retrieval.Timeout <= 0 {
		return invalid("retrieval.timeout", c.Retrieval.Timeout)
	}
	if c.Retrieval.TopK <= 0 {
		return invalid("retrieval.top_k", c.Retrieval.TopK)
	}
	if c.Retrieval.RequestsPerSecond <= 0 {
		return invalid("retrieval.requests_per_second", c.Retrieval.RequestsPerSecond)
	}
	if c.Retrieval.Burst < 0 {
		return invalid("retrieval.burst", c.Retrieval.Burst)
	}
	if c.Retrieval.MaxAttempts < 1 {
		return invalid("retrieval.max_attempts", c.Retrieval.MaxAttempts)
	}
	if c.Retrieval.RetryDelay < 0 {
		return invalid("retrieval.retry_delay", c.Retrieval.RetryDelay)
	}
	if c.Processing.Concurrency < 1 {
		return invalid("processing.concurrency", c.Processing.Concurrency)
	}
	return nil
}

func invalid(key string, value any) error {
	return fmt.Errorf("%w: %s out of range: %v", common.ErrInvalidConfig, key, value)
}

// LogFormat maps the configured format onto the logger's format names.
func (c *Config) LogFormat() string {
	if c.Logging.Format == "json" {
		return "json"
	}
	return "text"
}

// TemporalEngine returns the trend engine configuration.
func (c *Config) TemporalEngine() temporal.Config {
	return temporal.Config{FlatBandPct: c.Temporal.FlatBandPct}
}

// Detector returns the anomaly detector configuration with the default keyword sets.
func (c *Config) Detector() anomaly.Config {
	cfg := anomaly.DefaultConfig()
	cfg.LeadTimeMaxDays = c.Anomaly.LeadTimeMaxDays
	cfg.LeadTimeStdDevs = c.Anomaly.LeadTimeStdDevs
	cfg.LeadTimeMinSamples = c.Anomaly.LeadTimeMinSamples
	return cfg
}

// HTTPGateway returns the retrieval client configuration.
func (c *Config) HTTPGateway() retrieval.HTTPConfig {
	return retrieval.HTTPConfig{
		Endpoint:          c.Retrieval.Endpoint,
		Timeout:           c.Retrieval.Timeout,
		TopK:              c.Retrieval.TopK,
		RequestsPerSecond: c.Retrieval.RequestsPerSecond,
		Burst:             c.Retrieval.Burst,
	}
}

// RetrievalRetry returns the retry policy of retrieval calls.
func (c *Config) RetrievalRetry() service.RetryOptions {
	return service.RetryOptions{
		MaxAttempts:  c.Retrieval.MaxAttempts,
		InitialDelay: c.Retrieval.RetryDelay,
		MaxDelay:     c.Retrieval.Timeout,
		Multiplier:   2,
	}
}
