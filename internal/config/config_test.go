package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nickborgers/monorepo/web-vitals-monitor/internal/models"
)

const sampleYAML = `
general:
  inter_test_delay: 10s
sites:
  list:
    - url: https://example.com
      name: example
      category: test
      timeout_seconds: 20
      bfcache_probe: false
vitals:
  metrics: [TTFB, LCP]
  report_all_changes: true
  settle_time: 1500ms
logging:
  format: text
  level: debug
prometheus:
  port: 9100
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadYAML(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, 10*time.Second, cfg.General.InterTestDelay)
	assert.Equal(t, 30*time.Second, cfg.General.GlobalTimeout, "defaults kept for absent keys")

	require.Len(t, cfg.Sites.List, 1)
	site := cfg.Sites.List[0]
	assert.Equal(t, "example", site.Name)
	assert.Equal(t, 20, site.TimeoutSeconds)
	require.NotNil(t, site.BFCacheProbe)
	assert.False(t, site.ProbeBFCache(true))

	names, err := cfg.Vitals.MetricNames()
	require.NoError(t, err)
	assert.Equal(t, []models.MetricName{models.MetricTTFB, models.MetricLCP}, names)
	assert.True(t, cfg.Vitals.ReportAllChanges)
	assert.Equal(t, 1500*time.Millisecond, cfg.Vitals.SettleTime)
	assert.Equal(t, 250*time.Millisecond, cfg.Vitals.PollInterval)

	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Equal(t, 9100, cfg.Prometheus.Port)
	assert.Equal(t, "/metrics", cfg.Prometheus.Path)
}

func TestLoadEnvOverridesYAML(t *testing.T) {
	t.Setenv("LOG_FORMAT", "beacon")
	t.Setenv("PROM_PORT", "9200")

	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "beacon", cfg.Logging.Format)
	assert.Equal(t, 9200, cfg.Prometheus.Port)
}

func TestLoadWithoutFileUsesDefaultSites(t *testing.T) {
	os.Unsetenv("SITES")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultSites(), cfg.Sites.List)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = Load(writeConfig(t, "general: [unterminated"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"no sites", func(c *Config) { c.Sites.List = nil }, "no sites configured"},
		{"site without url", func(c *Config) { c.Sites.List = []models.SiteDefinition{{Name: "x"}} }, "site 0: url is required"},
		{"unmeasured metric", func(c *Config) { c.Vitals.Metrics = []string{"INP"} }, "cannot be measured"},
		{"poll interval", func(c *Config) { c.Vitals.PollInterval = 0 }, "poll_interval"},
		{"zero inter test delay", func(c *Config) { c.General.InterTestDelay = 0 }, "inter_test_delay"},
		{"negative inter test delay", func(c *Config) { c.General.InterTestDelay = -time.Second }, "inter_test_delay"},
		{"log format", func(c *Config) { c.Logging.Format = "xml" }, "unknown log format"},
		{"log level", func(c *Config) { c.Logging.Level = "verbose" }, "unknown log level"},
		{"elasticsearch endpoint", func(c *Config) { c.Elasticsearch.Enabled = true }, "elasticsearch.endpoint"},
		{"probe url", func(c *Config) { c.Vitals.BFCacheProbe = true; c.Vitals.BFCacheProbeURL = "" }, "bfcache_probe_url"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Sites.List = DefaultSites()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateReportsAllProblems(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Logging.Format = "xml"
	cfg.Vitals.PollInterval = 0

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no sites configured")
	assert.Contains(t, err.Error(), "unknown log format")
	assert.Contains(t, err.Error(), "poll_interval")
}
