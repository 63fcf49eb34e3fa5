package config

import (
	"os"
	"testing"
	"time"
)

// TestParseSimpleSiteList tests parsing of the SITES list
func TestParseSimpleSiteList(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantURLs  []string
		wantNames []string
	}{
		{
			name:      "bare domains",
			input:     "google.com,github.com,example.org",
			wantURLs:  []string{"https://google.com", "https://github.com", "https://example.org"},
			wantNames: []string{"google", "github", "example"},
		},
		{
			name:      "full URLs keep scheme and path",
			input:     "https://www.google.com,http://example.com/api/status",
			wantURLs:  []string{"https://www.google.com", "http://example.com/api/status"},
			wantNames: []string{"google", "example"},
		},
		{
			name:      "whitespace and empty elements",
			input:     " google.com , ,github.com,",
			wantURLs:  []string{"https://google.com", "https://github.com"},
			wantNames: []string{"google", "github"},
		},
		{
			name:      "subdomains use the first label",
			input:     "api.github.com,status.example.com",
			wantURLs:  []string{"https://api.github.com", "https://status.example.com"},
			wantNames: []string{"api", "status"},
		},
		{
			name:      "host with port",
			input:     "localhost:3000",
			wantURLs:  []string{"https://localhost:3000"},
			wantNames: []string{"localhost"},
		},
		{
			name:      "named entries",
			input:     "docs=https://example.com/docs?lang=en,shop=shop.example.com",
			wantURLs:  []string{"https://example.com/docs?lang=en", "https://shop.example.com"},
			wantNames: []string{"docs", "shop"},
		},
		{
			name:  "empty string",
			input: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sites, err := ParseSimpleSiteList(tt.input)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}

			if len(sites) != len(tt.wantURLs) {
				t.Fatalf("Expected %d sites, got %d", len(tt.wantURLs), len(sites))
			}

			for i, site := range sites {
				if site.URL != tt.wantURLs[i] {
					t.Errorf("Site %d: expected URL '%s', got '%s'", i, tt.wantURLs[i], site.URL)
				}
				if site.Name != tt.wantNames[i] {
					t.Errorf("Site %d: expected name '%s', got '%s'", i, tt.wantNames[i], site.Name)
				}
				if site.TimeoutSeconds != 30 {
					t.Errorf("Site %d: expected default timeout 30s, got %d", i, site.TimeoutSeconds)
				}
				if !site.WaitForNetworkIdle {
					t.Errorf("Site %d: expected WaitForNetworkIdle true", i)
				}
			}
		})
	}
}

// TestParseSimpleSiteList_Invalid tests that malformed URLs are rejected
func TestParseSimpleSiteList_Invalid(t *testing.T) {
	if _, err := ParseSimpleSiteList("https://exa mple.com/%zz"); err == nil {
		t.Fatal("Expected error for malformed URL, got nil")
	}
}

// TestLoadFromEnv_ListenAddresses tests the listen address overrides
func TestLoadFromEnv_ListenAddresses(t *testing.T) {
	t.Setenv("HEALTH_CHECK_LISTEN_ADDRESS", "::1")
	t.Setenv("PROM_LISTEN_ADDRESS", "127.0.0.1")
	t.Setenv("SNMP_LISTEN_ADDRESS", "192.168.1.100")

	cfg := DefaultConfig()
	if err := LoadFromEnv(cfg); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if cfg.Advanced.HealthCheckListenAddress != "::1" {
		t.Errorf("Expected HealthCheckListenAddress '::1', got '%s'", cfg.Advanced.HealthCheckListenAddress)
	}
	if cfg.Prometheus.ListenAddress != "127.0.0.1" {
		t.Errorf("Expected Prometheus ListenAddress '127.0.0.1', got '%s'", cfg.Prometheus.ListenAddress)
	}
	if cfg.SNMP.ListenAddress != "192.168.1.100" {
		t.Errorf("Expected SNMP ListenAddress '192.168.1.100', got '%s'", cfg.SNMP.ListenAddress)
	}
}

// TestLoadFromEnv_NotSet tests that defaults survive when nothing is set
func TestLoadFromEnv_NotSet(t *testing.T) {
	os.Unsetenv("HEALTH_CHECK_LISTEN_ADDRESS")
	os.Unsetenv("VITALS_POLL_INTERVAL")

	cfg := DefaultConfig()
	if err := LoadFromEnv(cfg); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if cfg.Advanced.HealthCheckListenAddress != "0.0.0.0" {
		t.Errorf("Expected default HealthCheckListenAddress '0.0.0.0', got '%s'", cfg.Advanced.HealthCheckListenAddress)
	}
	if cfg.Vitals.PollInterval != 250*time.Millisecond {
		t.Errorf("Expected default PollInterval 250ms, got %v", cfg.Vitals.PollInterval)
	}
}

// TestLoadFromEnv_Vitals tests the measurement overrides
func TestLoadFromEnv_Vitals(t *testing.T) {
	t.Setenv("VITALS_METRICS", "lcp, cls")
	t.Setenv("VITALS_REPORT_ALL_CHANGES", "true")
	t.Setenv("VITALS_BFCACHE_PROBE", "1")
	t.Setenv("VITALS_SETTLE_TIME", "5s")

	cfg := DefaultConfig()
	if err := LoadFromEnv(cfg); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if len(cfg.Vitals.Metrics) != 2 || cfg.Vitals.Metrics[0] != "lcp" || cfg.Vitals.Metrics[1] != "cls" {
		t.Errorf("Expected metrics [lcp cls], got %v", cfg.Vitals.Metrics)
	}
	if !cfg.Vitals.ReportAllChanges {
		t.Error("Expected ReportAllChanges to be true")
	}
	if !cfg.Vitals.BFCacheProbe {
		t.Error("Expected BFCacheProbe to be true")
	}
	if cfg.Vitals.SettleTime != 5*time.Second {
		t.Errorf("Expected SettleTime 5s, got %v", cfg.Vitals.SettleTime)
	}
}

// TestLoadFromEnv_InvalidDuration tests error handling for invalid durations
func TestLoadFromEnv_InvalidDuration(t *testing.T) {
	for _, key := range []string{"INTER_TEST_DELAY", "VITALS_SETTLE_TIME", "VITALS_POLL_INTERVAL"} {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, "invalid")

			cfg := DefaultConfig()
			if err := LoadFromEnv(cfg); err == nil {
				t.Fatalf("Expected error for invalid %s, got nil", key)
			}
		})
	}
}

// TestLoadFromEnv_Sites tests loading sites from environment
func TestLoadFromEnv_Sites(t *testing.T) {
	t.Setenv("SITES", "google.com,github.com,example.com")

	cfg := DefaultConfig()
	if err := LoadFromEnv(cfg); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if len(cfg.Sites.List) != 3 {
		t.Errorf("Expected 3 sites, got %d", len(cfg.Sites.List))
	}

	if cfg.Sites.List[0].Name != "google" {
		t.Errorf("Expected first site name 'google', got '%s'", cfg.Sites.List[0].Name)
	}
}
