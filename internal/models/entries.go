package models

// EntryType identifies a kind of browser performance entry
type EntryType string

const (
	EntryTypeNavigation             EntryType = "navigation"
	EntryTypePaint                  EntryType = "paint"
	EntryTypeLargestContentfulPaint EntryType = "largest-contentful-paint"
	EntryTypeLayoutShift            EntryType = "layout-shift"
)

// Paint entry names
const (
	FirstPaint           = "first-paint"
	FirstContentfulPaint = "first-contentful-paint"
)

// Entry is a raw performance entry as delivered by the browser.
// All timestamps are milliseconds relative to the page's time origin.
type Entry interface {
	Type() EntryType
	Time() float64
}

// NavigationEntry mirrors PerformanceNavigationTiming (Navigation Timing Level 2)
type NavigationEntry struct {
	Name      string  `json:"name" mapstructure:"name"`
	StartTime float64 `json:"start_time" mapstructure:"startTime"`
	Duration  float64 `json:"duration" mapstructure:"duration"`

	// NavType is the raw navigation type: navigate, reload, back_forward or prerender
	NavType string `json:"type" mapstructure:"type"`

	// ActivationStart is the time a prerendered page was activated, 0 otherwise
	ActivationStart float64 `json:"activation_start" mapstructure:"activationStart"`

	DomainLookupStart          float64 `json:"domain_lookup_start" mapstructure:"domainLookupStart"`
	DomainLookupEnd            float64 `json:"domain_lookup_end" mapstructure:"domainLookupEnd"`
	ConnectStart               float64 `json:"connect_start" mapstructure:"connectStart"`
	ConnectEnd                 float64 `json:"connect_end" mapstructure:"connectEnd"`
	SecureConnectionStart      float64 `json:"secure_connection_start" mapstructure:"secureConnectionStart"`
	RequestStart               float64 `json:"request_start" mapstructure:"requestStart"`
	ResponseStart              float64 `json:"response_start" mapstructure:"responseStart"`
	ResponseEnd                float64 `json:"response_end" mapstructure:"responseEnd"`
	DomInteractive             float64 `json:"dom_interactive" mapstructure:"domInteractive"`
	DomContentLoadedEventStart float64 `json:"dom_content_loaded_event_start" mapstructure:"domContentLoadedEventStart"`
	DomContentLoadedEventEnd   float64 `json:"dom_content_loaded_event_end" mapstructure:"domContentLoadedEventEnd"`
	LoadEventStart             float64 `json:"load_event_start" mapstructure:"loadEventStart"`
	LoadEventEnd               float64 `json:"load_event_end" mapstructure:"loadEventEnd"`
	TransferSize               int64   `json:"transfer_size" mapstructure:"transferSize"`

	// WasDiscarded is document.wasDiscarded at the time the entry was read
	WasDiscarded bool `json:"was_discarded,omitempty" mapstructure:"wasDiscarded"`
}

func (e *NavigationEntry) Type() EntryType { return EntryTypeNavigation }
func (e *NavigationEntry) Time() float64   { return e.StartTime }

// PaintEntry mirrors PerformancePaintTiming
type PaintEntry struct {
	Name      string  `json:"name" mapstructure:"name"`
	StartTime float64 `json:"start_time" mapstructure:"startTime"`
}

func (e *PaintEntry) Type() EntryType { return EntryTypePaint }
func (e *PaintEntry) Time() float64   { return e.StartTime }

// ResourceTiming is the subset of PerformanceResourceTiming needed for LCP attribution
type ResourceTiming struct {
	Name         string  `json:"name" mapstructure:"name"`
	StartTime    float64 `json:"start_time" mapstructure:"startTime"`
	RequestStart float64 `json:"request_start" mapstructure:"requestStart"`
	ResponseEnd  float64 `json:"response_end" mapstructure:"responseEnd"`
}

// LargestContentfulPaintEntry mirrors LargestContentfulPaint
type LargestContentfulPaintEntry struct {
	StartTime  float64 `json:"start_time" mapstructure:"startTime"`
	RenderTime float64 `json:"render_time" mapstructure:"renderTime"`
	LoadTime   float64 `json:"load_time" mapstructure:"loadTime"`
	Size       int64   `json:"size" mapstructure:"size"`
	ID         string  `json:"id,omitempty" mapstructure:"id"`
	URL        string  `json:"url,omitempty" mapstructure:"url"`

	// Element is a CSS selector for the element, computed in the page
	Element string `json:"element,omitempty" mapstructure:"element"`

	// Resource is the resource timing of URL, when the page had one
	Resource *ResourceTiming `json:"resource,omitempty" mapstructure:"resource"`
}

func (e *LargestContentfulPaintEntry) Type() EntryType { return EntryTypeLargestContentfulPaint }
func (e *LargestContentfulPaintEntry) Time() float64   { return e.StartTime }

// LayoutShiftSource identifies one element moved by a layout shift
type LayoutShiftSource struct {
	Node string `json:"node,omitempty" mapstructure:"node"`
}

// LayoutShiftEntry mirrors LayoutShift
type LayoutShiftEntry struct {
	StartTime      float64             `json:"start_time" mapstructure:"startTime"`
	Value          float64             `json:"value" mapstructure:"value"`
	HadRecentInput bool                `json:"had_recent_input" mapstructure:"hadRecentInput"`
	Sources        []LayoutShiftSource `json:"sources,omitempty" mapstructure:"sources"`
}

func (e *LayoutShiftEntry) Type() EntryType { return EntryTypeLayoutShift }
func (e *LayoutShiftEntry) Time() float64   { return e.StartTime }
