package vitals

import (
	"math"

	"github.com/nickborgers/monorepo/web-vitals-monitor/internal/models"
)

// AttributionInput is everything attribution is derived from
type AttributionInput struct {
	Entries []models.Entry

	// Navigation is nil for metrics produced by a bfcache restore
	Navigation      *models.NavigationEntry
	ActivationStart float64
	Value           float64
}

// Attribute derives the attribution of a metric value. It is a pure function
// of its input. Every returned sub-interval is non-negative and the
// components of TTFB, FCP and LCP sum to the value.
func Attribute(name models.MetricName, in AttributionInput) models.Attribution {
	switch name {
	case models.MetricTTFB:
		return attributeTTFB(in)
	case models.MetricFCP:
		return attributeFCP(in)
	case models.MetricLCP:
		return attributeLCP(in)
	case models.MetricCLS:
		return attributeCLS(in)
	default:
		return nil
	}
}

func attributeTTFB(in AttributionInput) *models.TTFBAttribution {
	var nav *models.NavigationEntry
	for _, e := range in.Entries {
		if n, ok := e.(*models.NavigationEntry); ok {
			nav = n
			break
		}
	}
	if nav == nil {
		return &models.TTFBAttribution{}
	}

	value := math.Max(0, in.Value)
	act := in.ActivationStart

	// each phase starts no earlier than the previous one and no later than the first byte
	dnsStart := clamp(Shift(nav.DomainLookupStart, act), 0, value)
	connectStart := clamp(Shift(nav.ConnectStart, act), dnsStart, value)
	requestStart := clamp(Shift(nav.RequestStart, act), connectStart, value)

	return &models.TTFBAttribution{
		WaitingTime:     dnsStart,
		DNSTime:         connectStart - dnsStart,
		ConnectionTime:  requestStart - connectStart,
		RequestTime:     value - requestStart,
		NavigationEntry: nav,
	}
}

func attributeFCP(in AttributionInput) *models.FCPAttribution {
	var fcp *models.PaintEntry
	for _, e := range in.Entries {
		if p, ok := e.(*models.PaintEntry); ok && p.Name == models.FirstContentfulPaint {
			fcp = p
			break
		}
	}

	value := math.Max(0, in.Value)
	ttfb := 0.0
	if in.Navigation != nil {
		ttfb = clamp(Shift(in.Navigation.ResponseStart, in.ActivationStart), 0, value)
	}

	loadState := models.LoadStateLoaded
	if fcp != nil {
		loadState = LoadStateAt(in.Navigation, fcp.StartTime)
	}

	return &models.FCPAttribution{
		TimeToFirstByte: ttfb,
		RenderDelay:     value - ttfb,
		LoadState:       loadState,
		FCPEntry:        fcp,
		NavigationEntry: in.Navigation,
	}
}

func attributeLCP(in AttributionInput) *models.LCPAttribution {
	var lcp *models.LargestContentfulPaintEntry
	for _, e := range in.Entries {
		if l, ok := e.(*models.LargestContentfulPaintEntry); ok {
			lcp = l
		}
	}

	value := math.Max(0, in.Value)
	if lcp == nil {
		return &models.LCPAttribution{ElementRenderDelay: value, NavigationEntry: in.Navigation}
	}

	act := in.ActivationStart
	ttfb := 0.0
	if in.Navigation != nil {
		ttfb = clamp(Shift(in.Navigation.ResponseStart, act), 0, value)
	}

	requestStart, responseEnd := ttfb, ttfb
	if res := lcp.Resource; res != nil {
		start := res.RequestStart
		if start == 0 {
			start = res.StartTime
		}
		requestStart = clamp(Shift(start, act), ttfb, value)
		responseEnd = clamp(Shift(res.ResponseEnd, act), requestStart, value)
	}

	return &models.LCPAttribution{
		Element:              lcp.Element,
		URL:                  lcp.URL,
		TimeToFirstByte:      ttfb,
		ResourceLoadDelay:    requestStart - ttfb,
		ResourceLoadDuration: responseEnd - requestStart,
		ElementRenderDelay:   value - responseEnd,
		LCPEntry:             lcp,
		NavigationEntry:      in.Navigation,
	}
}

func attributeCLS(in AttributionInput) *models.CLSAttribution {
	var largest *models.LayoutShiftEntry
	for _, e := range in.Entries {
		if s, ok := e.(*models.LayoutShiftEntry); ok {
			if largest == nil || s.Value > largest.Value {
				largest = s
			}
		}
	}
	if largest == nil {
		return &models.CLSAttribution{}
	}

	var target string
	for _, src := range largest.Sources {
		if src.Node != "" {
			target = src.Node
			break
		}
	}

	return &models.CLSAttribution{
		LargestShiftTarget: target,
		LargestShiftTime:   largest.StartTime,
		LargestShiftValue:  largest.Value,
		LoadState:          LoadStateAt(in.Navigation, largest.StartTime),
		LargestShiftEntry:  largest,
	}
}
