package models

import "time"

// PageRun summarizes one page life measured by the browser controller
type PageRun struct {
	// PageID identifies the page life; every Report it produced carries it
	PageID string `json:"page_id"`

	Site      SiteInfo      `json:"site"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`

	// Reports is the number of metric reports delivered
	Reports int `json:"reports"`

	// Restored is true when the bfcache probe restored the page
	Restored bool `json:"restored"`

	// Error is set when the page could not be loaded
	Error *ErrorInfo `json:"error,omitempty"`
}

// ErrorInfo contains details about a failed page load
type ErrorInfo struct {
	// ErrorType categorizes the error (dns, timeout, tls, connection_refused, unknown)
	ErrorType string `json:"error_type"`

	// ErrorMessage is the detailed error message
	ErrorMessage string `json:"error_message"`
}

// Succeeded reports whether the page loaded
func (r *PageRun) Succeeded() bool {
	return r.Error == nil
}
