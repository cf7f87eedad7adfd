// Package config loads and validates pipeline configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all configuration knobs loaded via Viper. It is threaded
// explicitly into each component; no package reads viper at call time.
type Config struct {
	Sources   SourcesConfig   `mapstructure:"sources"`
	Output    OutputConfig    `mapstructure:"output"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Scraper   ScraperConfig   `mapstructure:"scraper"`
	Generator GeneratorConfig `mapstructure:"generator"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

// SourcesConfig locates the source list file.
type SourcesConfig struct {
	File string `mapstructure:"file"`
}

// OutputConfig sets persistence targets.
type OutputConfig struct {
	DBPath  string `mapstructure:"db_path"`
	CSVPath string `mapstructure:"csv_path"`
}

// HTTPConfig configures fetch timeout and retry behavior.
type HTTPConfig struct {
	TimeoutSeconds    int    `mapstructure:"timeout_seconds"`
	MaxRetries        int    `mapstructure:"max_retries"`
	RetryDelaySeconds int    `mapstructure:"retry_delay_seconds"`
	UserAgent         string `mapstructure:"user_agent"`
}

// ScraperConfig governs worker fan-out.
type ScraperConfig struct {
	Workers int `mapstructure:"workers"`
}

// GeneratorConfig bounds generation requests.
type GeneratorConfig struct {
	MaxCount int `mapstructure:"max_count"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// MetricsConfig controls the optional Prometheus exposition server.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// Load builds a Config from disk/environment. An empty path skips the
// config file and uses defaults plus QUOTEGRAB_* environment variables.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("QUOTEGRAB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("sources.file", "sources.txt")
	v.SetDefault("output.db_path", "quotes.db")
	v.SetDefault("output.csv_path", "quotes.csv")
	v.SetDefault("http.timeout_seconds", 10)
	v.SetDefault("http.max_retries", 3)
	v.SetDefault("http.retry_delay_seconds", 3)
	v.SetDefault("http.user_agent",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36")
	v.SetDefault("scraper.workers", 4)
	v.SetDefault("generator.max_count", 10_000_000)
	v.SetDefault("logging.development", false)
	v.SetDefault("metrics.addr", "")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Sources.File == "" {
		return fmt.Errorf("sources.file must be set")
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be > 0")
	}
	if c.HTTP.MaxRetries <= 0 {
		return fmt.Errorf("http.max_retries must be > 0")
	}
	if c.Scraper.Workers <= 0 {
		return fmt.Errorf("scraper.workers must be > 0")
	}
	if c.Generator.MaxCount <= 0 {
		return fmt.Errorf("generator.max_count must be > 0")
	}
	return nil
}

// Timeout converts the HTTP timeout config into a duration.
func (c HTTPConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// RetryDelay converts the retry delay config into a duration.
func (c HTTPConfig) RetryDelay() time.Duration {
	return time.Duration(c.RetryDelaySeconds) * time.Second
}
