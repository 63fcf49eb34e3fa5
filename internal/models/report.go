package models

import (
	"fmt"
	"net/url"
	"time"

	"github.com/go-playground/form/v4"
)

// Report is one metric report enriched with where and how it was measured
type Report struct {
	// Timestamp when the report was delivered
	Timestamp time.Time `json:"@timestamp"`

	// ReportID is a unique identifier for this report
	ReportID string `json:"report_id"`

	// PageID identifies the page life (one navigation) that produced the report
	PageID string `json:"page_id"`

	// Site information
	Site SiteInfo `json:"site"`

	// Metric is the delivered metric, attribution included
	Metric Metric `json:"metric"`

	// Metadata about the measuring environment
	Metadata ReportMetadata `json:"metadata,omitempty"`
}

// SiteInfo contains information about the measured site
type SiteInfo struct {
	URL      string `json:"url"`
	Name     string `json:"name"`
	Category string `json:"category,omitempty"`
}

// ReportMetadata contains information about the measuring environment
type ReportMetadata struct {
	// Hostname of the monitor instance
	Hostname string `json:"hostname,omitempty"`

	// Version of the monitor software
	Version string `json:"version,omitempty"`

	// UserAgent is the browser user agent string
	UserAgent string `json:"user_agent,omitempty"`

	// Browser and BrowserVersion are parsed from UserAgent
	Browser        string `json:"browser,omitempty"`
	BrowserVersion string `json:"browser_version,omitempty"`
}

// Beacon is the flat record form of a Metric, as a collector endpoint would receive it
type Beacon struct {
	Name           string            `form:"name"`
	Value          float64           `form:"value"`
	Delta          float64           `form:"delta"`
	ID             string            `form:"id"`
	Rating         string            `form:"rating"`
	NavigationType string            `form:"navigationType"`
	Entries        int               `form:"entries"`
	Attribution    map[string]string `form:"attribution,omitempty"`
}

var beaconEncoder = form.NewEncoder()

// Beacon flattens the metric for transport
func (m Metric) Beacon() Beacon {
	return Beacon{
		Name:           string(m.Name),
		Value:          m.Value,
		Delta:          m.Delta,
		ID:             m.ID,
		Rating:         string(m.Rating),
		NavigationType: string(m.NavigationType),
		Entries:        len(m.Entries),
		Attribution:    flattenAttribution(m.Attribution),
	}
}

// Values encodes the beacon as url.Values
func (b Beacon) Values() (url.Values, error) {
	values, err := beaconEncoder.Encode(&b)
	if err != nil {
		return nil, fmt.Errorf("failed to encode beacon: %w", err)
	}
	return values, nil
}
