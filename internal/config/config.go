package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nickborgers/monorepo/web-vitals-monitor/internal/models"
)

// Config represents the complete application configuration
type Config struct {
	General       GeneralConfig       `yaml:"general"`
	Sites         SitesConfig         `yaml:"sites"`
	Browser       BrowserConfig       `yaml:"browser"`
	Vitals        VitalsConfig        `yaml:"vitals"`
	Logging       LoggingConfig       `yaml:"logging"`
	Elasticsearch ElasticsearchConfig `yaml:"elasticsearch"`
	SNMP          SNMPConfig          `yaml:"snmp"`
	Prometheus    PrometheusConfig    `yaml:"prometheus"`
	Advanced      AdvancedConfig      `yaml:"advanced"`
}

// GeneralConfig contains general application settings
type GeneralConfig struct {
	InterTestDelay time.Duration `yaml:"inter_test_delay"`
	GlobalTimeout  time.Duration `yaml:"global_timeout"`
	CacheSize      int           `yaml:"cache_size"`
}

// SitesConfig contains the list of sites to monitor
type SitesConfig struct {
	List []models.SiteDefinition `yaml:"list"`
}

// BrowserConfig contains browser-specific settings
type BrowserConfig struct {
	Headless      bool   `yaml:"headless"`
	UserAgent     string `yaml:"user_agent"`
	WindowWidth   int    `yaml:"window_width"`
	WindowHeight  int    `yaml:"window_height"`
	DisableImages bool   `yaml:"disable_images"`
	ClearCookies  bool   `yaml:"clear_cookies"`
}

// VitalsConfig controls what is measured on every page life
type VitalsConfig struct {
	// Metrics to measure: any of TTFB, FCP, LCP, CLS
	Metrics []string `yaml:"metrics"`

	// ReportAllChanges reports every LCP/CLS refinement, not only final values
	ReportAllChanges bool `yaml:"report_all_changes"`

	// BFCacheProbe navigates away and back after the settle window to
	// measure a back/forward cache restore
	BFCacheProbe    bool   `yaml:"bfcache_probe"`
	BFCacheProbeURL string `yaml:"bfcache_probe_url"`

	// SettleTime is how long a loaded page is observed before it is finalized
	SettleTime time.Duration `yaml:"settle_time"`

	// PollInterval is how often in-page events are drained
	PollInterval time.Duration `yaml:"poll_interval"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ElasticsearchConfig contains Elasticsearch output settings
type ElasticsearchConfig struct {
	Enabled       bool          `yaml:"enabled"`
	Endpoint      string        `yaml:"endpoint"`
	IndexPattern  string        `yaml:"index_pattern"`
	Username      string        `yaml:"username"`
	Password      string        `yaml:"password"`
	APIKey        string        `yaml:"api_key"`
	BulkSize      int           `yaml:"bulk_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
	MaxRetries    int           `yaml:"max_retries"`
	RetryBackoff  time.Duration `yaml:"retry_backoff"`
	TLSSkipVerify bool          `yaml:"tls_skip_verify"`
}

// SNMPConfig contains SNMP agent settings
type SNMPConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Port          int    `yaml:"port"`
	Community     string `yaml:"community"`
	ListenAddress string `yaml:"listen_address"`
	EnterpriseOID string `yaml:"enterprise_oid"`
	APIPort       int    `yaml:"api_port"`
}

// PrometheusConfig contains Prometheus exporter settings
type PrometheusConfig struct {
	Enabled          bool      `yaml:"enabled"`
	Port             int       `yaml:"port"`
	Path             string    `yaml:"path"`
	ListenAddress    string    `yaml:"listen_address"`
	IncludeGoMetrics bool      `yaml:"include_go_metrics"`
	LatencyBuckets   []float64 `yaml:"latency_buckets"`
}

// AdvancedConfig contains advanced settings
type AdvancedConfig struct {
	HealthCheckEnabled       bool          `yaml:"health_check_enabled"`
	HealthCheckPort          int           `yaml:"health_check_port"`
	HealthCheckPath          string        `yaml:"health_check_path"`
	HealthCheckListenAddress string        `yaml:"health_check_listen_address"`
	ShutdownTimeout          time.Duration `yaml:"shutdown_timeout"`
}

// Load loads configuration from file and environment variables
func Load(configFile string) (*Config, error) {
	// Start with defaults
	cfg := DefaultConfig()

	if configFile != "" {
		if err := loadFromYAML(configFile, cfg); err != nil {
			return nil, err
		}
	}

	// Override with environment variables
	if err := LoadFromEnv(cfg); err != nil {
		return nil, err
	}

	// Load default sites if none configured
	if len(cfg.Sites.List) == 0 {
		cfg.Sites.List = DefaultSites()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFromYAML overlays the file onto cfg; keys absent from the file keep their defaults
func loadFromYAML(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// Validate checks the configuration and reports every problem found
func (c *Config) Validate() error {
	var errs []error

	if len(c.Sites.List) == 0 {
		errs = append(errs, errors.New("no sites configured"))
	}
	for i, site := range c.Sites.List {
		if site.URL == "" {
			errs = append(errs, fmt.Errorf("site %d: url is required", i))
		}
	}

	if c.General.InterTestDelay <= 0 {
		errs = append(errs, errors.New("general.inter_test_delay must be positive"))
	}

	if _, err := c.Vitals.MetricNames(); err != nil {
		errs = append(errs, err)
	}
	if c.Vitals.PollInterval <= 0 {
		errs = append(errs, errors.New("vitals.poll_interval must be positive"))
	}
	if c.Vitals.SettleTime < 0 {
		errs = append(errs, errors.New("vitals.settle_time must not be negative"))
	}
	if c.Vitals.BFCacheProbe && c.Vitals.BFCacheProbeURL == "" {
		errs = append(errs, errors.New("vitals.bfcache_probe_url is required when the bfcache probe is enabled"))
	}

	switch c.Logging.Format {
	case "json", "text", "beacon":
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q (want json, text or beacon)", c.Logging.Format))
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("unknown log level %q", c.Logging.Level))
	}

	if c.Elasticsearch.Enabled && c.Elasticsearch.Endpoint == "" {
		errs = append(errs, errors.New("elasticsearch.endpoint is required when elasticsearch is enabled"))
	}

	return errors.Join(errs...)
}

// MetricNames returns the configured metrics; the engine's defaults when none are set
func (v VitalsConfig) MetricNames() ([]models.MetricName, error) {
	names := make([]models.MetricName, 0, len(v.Metrics))
	for _, m := range v.Metrics {
		name := models.MetricName(strings.ToUpper(strings.TrimSpace(m)))
		switch name {
		case models.MetricTTFB, models.MetricFCP, models.MetricLCP, models.MetricCLS:
			names = append(names, name)
		default:
			return nil, fmt.Errorf("vitals.metrics: %q cannot be measured", m)
		}
	}
	return names, nil
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		General: GeneralConfig{
			InterTestDelay: 2 * time.Second,
			GlobalTimeout:  30 * time.Second,
			CacheSize:      100,
		},
		Browser: BrowserConfig{
			Headless:     true,
			UserAgent:    "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			WindowWidth:  1920,
			WindowHeight: 1080,
			ClearCookies: true,
		},
		Vitals: VitalsConfig{
			Metrics:         []string{"TTFB", "FCP", "LCP", "CLS"},
			BFCacheProbeURL: "about:blank",
			SettleTime:      3 * time.Second,
			PollInterval:    250 * time.Millisecond,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Elasticsearch: ElasticsearchConfig{
			Enabled:       false,
			IndexPattern:  "web-vitals-%{+yyyy.MM.dd}",
			BulkSize:      50,
			FlushInterval: 10 * time.Second,
			MaxRetries:    3,
			RetryBackoff:  1 * time.Second,
		},
		SNMP: SNMPConfig{
			Enabled:       true,
			Port:          161,
			Community:     "public",
			ListenAddress: "0.0.0.0",
			EnterpriseOID: ".1.3.6.1.4.1.99999",
			APIPort:       8161,
		},
		Prometheus: PrometheusConfig{
			Enabled:          true,
			Port:             9090,
			Path:             "/metrics",
			ListenAddress:    "0.0.0.0",
			IncludeGoMetrics: true,
			LatencyBuckets:   []float64{100, 250, 500, 800, 1000, 1800, 2500, 3000, 4000, 6000, 10000},
		},
		Advanced: AdvancedConfig{
			HealthCheckEnabled:       true,
			HealthCheckPort:          8080,
			HealthCheckPath:          "/health",
			HealthCheckListenAddress: "0.0.0.0",
			ShutdownTimeout:          30 * time.Second,
		},
	}
}
