package models

import (
	"net/url"
	"strings"
	"time"
)

// SiteDefinition represents a page to measure
type SiteDefinition struct {
	// URL is the full URL to load (e.g., "https://www.google.com")
	URL string `yaml:"url" json:"url"`

	// Name is a short, human-readable identifier (e.g., "google")
	Name string `yaml:"name" json:"name"`

	// Category groups sites by type (e.g., "search", "social", "infrastructure")
	Category string `yaml:"category" json:"category"`

	// TimeoutSeconds is the maximum time to spend on one page life of this site
	TimeoutSeconds int `yaml:"timeout_seconds" json:"timeout_seconds"`

	// WaitForNetworkIdle waits for the body to be ready before the settle window starts
	WaitForNetworkIdle bool `yaml:"wait_for_network_idle" json:"wait_for_network_idle"`

	// BFCacheProbe overrides the global back/forward cache probe setting for this site
	BFCacheProbe *bool `yaml:"bfcache_probe" json:"bfcache_probe,omitempty"`
}

// GetTimeout returns the timeout duration for this site
func (s *SiteDefinition) GetTimeout() time.Duration {
	if s.TimeoutSeconds <= 0 {
		return 30 * time.Second // Default timeout
	}
	return time.Duration(s.TimeoutSeconds) * time.Second
}

// GetName returns the site name, deriving it from the URL host if not set
func (s *SiteDefinition) GetName() string {
	if s.Name != "" {
		return s.Name
	}

	u, err := url.Parse(s.URL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}

	name := strings.TrimPrefix(u.Hostname(), "www.")
	if idx := strings.Index(name, "."); idx > 0 {
		name = name[:idx]
	}
	return name
}

// ProbeBFCache reports whether the back/forward cache probe should run for this site
func (s *SiteDefinition) ProbeBFCache(global bool) bool {
	if s.BFCacheProbe != nil {
		return *s.BFCacheProbe
	}
	return global
}
