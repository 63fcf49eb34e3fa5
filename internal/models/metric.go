package models

// MetricName is one of the fixed set of reported metrics
type MetricName string

const (
	MetricTTFB MetricName = "TTFB"
	MetricFCP  MetricName = "FCP"
	MetricLCP  MetricName = "LCP"
	MetricCLS  MetricName = "CLS"
	MetricINP  MetricName = "INP"
)

// NavigationType classifies which lifecycle produced a measurement
type NavigationType string

const (
	NavigationNavigate         NavigationType = "navigate"
	NavigationReload           NavigationType = "reload"
	NavigationBackForward      NavigationType = "back_forward"
	NavigationBackForwardCache NavigationType = "back_forward_cache"
	NavigationPrerender        NavigationType = "prerender"
	NavigationRestore          NavigationType = "restore"
	NavigationUnknown          NavigationType = "unknown"
)

// Rating buckets a metric value against its thresholds
type Rating string

const (
	RatingGood             Rating = "good"
	RatingNeedsImprovement Rating = "needs-improvement"
	RatingPoor             Rating = "poor"
)

// LoadState is the document loading phase at a given timestamp
type LoadState string

const (
	LoadStateLoading          LoadState = "loading"
	LoadStateDomInteractive   LoadState = "dom-interactive"
	LoadStateDomContentLoaded LoadState = "dom-content-loaded"
	LoadStateLoaded           LoadState = "loaded"
)

// Metric is one report of a metric. It is rebuilt for every reporting cycle.
type Metric struct {
	Name           MetricName     `json:"name"`
	Value          float64        `json:"value"`
	Rating         Rating         `json:"rating"`
	Delta          float64        `json:"delta"`
	ID             string         `json:"id"`
	NavigationType NavigationType `json:"navigation_type"`
	Entries        []Entry        `json:"entries"`
	Attribution    Attribution    `json:"attribution"`
}

// Unit returns the unit of the metric value
func (m MetricName) Unit() string {
	if m == MetricCLS {
		return ""
	}
	return "ms"
}
