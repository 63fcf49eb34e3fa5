package models

import (
	"sort"
	"strconv"
)

// Attribution explains why a metric has its value.
// Implementations are pure derivations of the metric they belong to.
type Attribution interface {
	// Components returns the numeric sub-intervals keyed by wire name
	Components() map[string]float64

	// Labels returns the descriptive fields keyed by wire name
	Labels() map[string]string
}

// TTFBAttribution splits TTFB into the connection phases before the first byte.
// WaitingTime + DNSTime + ConnectionTime + RequestTime == value.
type TTFBAttribution struct {
	WaitingTime    float64 `json:"waiting_time"`
	DNSTime        float64 `json:"dns_time"`
	ConnectionTime float64 `json:"connection_time"`
	RequestTime    float64 `json:"request_time"`

	NavigationEntry *NavigationEntry `json:"navigation_entry,omitempty"`
}

func (a *TTFBAttribution) Components() map[string]float64 {
	return map[string]float64{
		"waitingTime":    a.WaitingTime,
		"dnsTime":        a.DNSTime,
		"connectionTime": a.ConnectionTime,
		"requestTime":    a.RequestTime,
	}
}

func (a *TTFBAttribution) Labels() map[string]string { return map[string]string{} }

// FCPAttribution splits FCP into server time and client render time
type FCPAttribution struct {
	TimeToFirstByte float64   `json:"time_to_first_byte"`
	RenderDelay     float64   `json:"render_delay"`
	LoadState       LoadState `json:"load_state"`

	FCPEntry *PaintEntry `json:"fcp_entry,omitempty"`

	// NavigationEntry is nil when the metric was produced by a bfcache restore
	NavigationEntry *NavigationEntry `json:"navigation_entry,omitempty"`
}

func (a *FCPAttribution) Components() map[string]float64 {
	return map[string]float64{
		"timeToFirstByte": a.TimeToFirstByte,
		"renderDelay":     a.RenderDelay,
	}
}

func (a *FCPAttribution) Labels() map[string]string {
	return map[string]string{"loadState": string(a.LoadState)}
}

// LCPAttribution splits LCP into the four sub-parts of the largest element's load.
// TimeToFirstByte + ResourceLoadDelay + ResourceLoadDuration + ElementRenderDelay == value.
type LCPAttribution struct {
	Element              string  `json:"element,omitempty"`
	URL                  string  `json:"url,omitempty"`
	TimeToFirstByte      float64 `json:"time_to_first_byte"`
	ResourceLoadDelay    float64 `json:"resource_load_delay"`
	ResourceLoadDuration float64 `json:"resource_load_duration"`
	ElementRenderDelay   float64 `json:"element_render_delay"`

	LCPEntry        *LargestContentfulPaintEntry `json:"lcp_entry,omitempty"`
	NavigationEntry *NavigationEntry             `json:"navigation_entry,omitempty"`
}

func (a *LCPAttribution) Components() map[string]float64 {
	return map[string]float64{
		"timeToFirstByte":      a.TimeToFirstByte,
		"resourceLoadDelay":    a.ResourceLoadDelay,
		"resourceLoadDuration": a.ResourceLoadDuration,
		"elementRenderDelay":   a.ElementRenderDelay,
	}
}

func (a *LCPAttribution) Labels() map[string]string {
	labels := map[string]string{}
	if a.Element != "" {
		labels["element"] = a.Element
	}
	if a.URL != "" {
		labels["url"] = a.URL
	}
	return labels
}

// CLSAttribution points at the single largest layout shift of the reported session window
type CLSAttribution struct {
	LargestShiftTarget string    `json:"largest_shift_target,omitempty"`
	LargestShiftTime   float64   `json:"largest_shift_time"`
	LargestShiftValue  float64   `json:"largest_shift_value"`
	LoadState          LoadState `json:"load_state,omitempty"`

	LargestShiftEntry *LayoutShiftEntry `json:"largest_shift_entry,omitempty"`
}

func (a *CLSAttribution) Components() map[string]float64 {
	return map[string]float64{
		"largestShiftTime":  a.LargestShiftTime,
		"largestShiftValue": a.LargestShiftValue,
	}
}

func (a *CLSAttribution) Labels() map[string]string {
	labels := map[string]string{}
	if a.LargestShiftTarget != "" {
		labels["largestShiftTarget"] = a.LargestShiftTarget
	}
	if a.LoadState != "" {
		labels["loadState"] = string(a.LoadState)
	}
	return labels
}

// ComponentNames returns the component keys of a in sorted order
func ComponentNames(a Attribution) []string {
	if a == nil {
		return nil
	}
	components := a.Components()
	names := make([]string, 0, len(components))
	for k := range components {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// flattenAttribution merges components and labels into one string map
func flattenAttribution(a Attribution) map[string]string {
	if a == nil {
		return nil
	}
	flat := a.Labels()
	for k, v := range a.Components() {
		flat[k] = strconv.FormatFloat(v, 'f', -1, 64)
	}
	return flat
}
