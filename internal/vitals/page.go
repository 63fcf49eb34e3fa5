package vitals

import (
	"fmt"
	"log/slog"

	"github.com/nickborgers/monorepo/web-vitals-monitor/internal/models"
)

// DefaultMetrics are the metrics measured when Options.Metrics is empty
var DefaultMetrics = []models.MetricName{
	models.MetricTTFB,
	models.MetricFCP,
	models.MetricLCP,
	models.MetricCLS,
}

// Options configures a Page
type Options struct {
	// Metrics to record, DefaultMetrics when empty
	Metrics []models.MetricName

	// ReportAllChanges delivers every value change instead of only final values
	ReportAllChanges bool

	// NewID mints metric ids, NewMetricID when nil
	NewID func() string

	Logger       *slog.Logger
	OnTransition TransitionFunc
}

// Page measures the metrics of one page life, bfcache restores included
type Page struct {
	observer  *LifecycleObserver
	recorders []*Recorder
	started   bool
}

// NewPage creates the lifecycle observer and one recorder per metric.
// Observation begins with Start.
func NewPage(env Environment, report ReportFunc, opts Options) (*Page, error) {
	if env.Entries == nil || env.Visibility == nil || env.Navigation == nil {
		return nil, fmt.Errorf("incomplete environment: entries, visibility and navigation sources are required")
	}
	if report == nil {
		return nil, fmt.Errorf("report callback is required")
	}
	if len(opts.Metrics) == 0 {
		opts.Metrics = DefaultMetrics
	}
	if opts.NewID == nil {
		opts.NewID = NewMetricID
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	kinds := make([]kind, 0, len(opts.Metrics))
	seen := make(map[models.MetricName]bool)
	for _, name := range opts.Metrics {
		if seen[name] {
			return nil, fmt.Errorf("metric %s listed twice", name)
		}
		seen[name] = true

		k, err := kindFor(name)
		if err != nil {
			return nil, err
		}
		kinds = append(kinds, k)
	}

	p := &Page{
		observer: NewLifecycleObserver(env.Visibility, env.Restores, env.Activation),
	}
	for i, name := range opts.Metrics {
		p.recorders = append(p.recorders, newRecorder(name, kinds[i], env, p.observer, report, opts))
	}
	return p, nil
}

func kindFor(name models.MetricName) (kind, error) {
	switch name {
	case models.MetricTTFB:
		return ttfbKind{}, nil
	case models.MetricFCP:
		return fcpKind{}, nil
	case models.MetricLCP:
		return lcpKind{}, nil
	case models.MetricCLS:
		return &clsKind{}, nil
	default:
		return nil, fmt.Errorf("metric %s is not measured", name)
	}
}

// Start arms every recorder, after activation for prerendered pages
func (p *Page) Start() {
	if p.started {
		return
	}
	p.started = true
	p.observer.WhenActivated(func() {
		for _, r := range p.recorders {
			r.start()
		}
	})
}

// Finalize flushes metrics that are reported on hide, as page teardown would
func (p *Page) Finalize() {
	p.observer.Finalize()
}

// Observer returns the page's lifecycle observer
func (p *Page) Observer() *LifecycleObserver {
	return p.observer
}

// Recorder returns the recorder of name, or nil
func (p *Page) Recorder(name models.MetricName) *Recorder {
	for _, r := range p.recorders {
		if r.name == name {
			return r
		}
	}
	return nil
}
