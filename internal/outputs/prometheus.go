package outputs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nickborgers/monorepo/web-vitals-monitor/internal/config"
	"github.com/nickborgers/monorepo/web-vitals-monitor/internal/metrics"
	"github.com/nickborgers/monorepo/web-vitals-monitor/internal/models"
	"github.com/nickborgers/monorepo/web-vitals-monitor/internal/vitals"
)

var clsBuckets = []float64{0.01, 0.05, 0.1, 0.15, 0.25, 0.5, 1}

// PrometheusOutput exposes metrics via HTTP endpoint
type PrometheusOutput struct {
	config   *config.PrometheusConfig
	registry *prometheus.Registry
	handler  http.Handler
	server   *http.Server
	logger   *slog.Logger

	reportsTotal  *prometheus.CounterVec
	metricValue   *prometheus.GaugeVec
	metricDelta   *prometheus.GaugeVec
	durationHist  *prometheus.HistogramVec
	clsHist       *prometheus.HistogramVec
	attributionMs *prometheus.GaugeVec
	lastReport    *prometheus.GaugeVec
}

// NewPrometheusOutput creates a new Prometheus exporter and starts serving it.
// stats may be nil, in which case no p75 gauges are exported.
func NewPrometheusOutput(cfg *config.PrometheusConfig, stats *metrics.Collector, logger *slog.Logger) (*PrometheusOutput, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	p := newPrometheusOutput(cfg, stats, logger)

	mux := http.NewServeMux()
	mux.Handle(cfg.Path, p.handler)

	addr := fmt.Sprintf("%s:%d", cfg.ListenAddress, cfg.Port)
	p.server = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		p.logger.Info("starting Prometheus exporter", "addr", addr, "path", cfg.Path)
		if err := p.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			p.logger.Error("Prometheus server error", "error", err)
		}
	}()

	return p, nil
}

func newPrometheusOutput(cfg *config.PrometheusConfig, stats *metrics.Collector, logger *slog.Logger) *PrometheusOutput {
	if logger == nil {
		logger = slog.Default()
	}

	p := &PrometheusOutput{
		config:   cfg,
		registry: prometheus.NewRegistry(),
		logger:   logger,
	}

	buckets := cfg.LatencyBuckets
	if len(buckets) == 0 {
		buckets = []float64{100, 250, 500, 1000, 1800, 2500, 3000, 4000, 5000, 10000}
	}

	p.reportsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "web_vitals_reports_total",
			Help: "Total number of metric reports delivered",
		},
		[]string{"site", "metric", "rating"},
	)

	p.metricValue = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "web_vitals_value",
			Help: "Value of the most recent report (milliseconds, unitless for CLS)",
		},
		[]string{"site", "metric", "navigation_type"},
	)

	p.metricDelta = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "web_vitals_delta",
			Help: "Delta of the most recent report against the previous report of the same metric instance",
		},
		[]string{"site", "metric"},
	)

	p.durationHist = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "web_vitals_duration_histogram_ms",
			Help:    "Histogram of timing metric values in milliseconds",
			Buckets: buckets,
		},
		[]string{"site", "metric"},
	)

	p.clsHist = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "web_vitals_cls_histogram",
			Help:    "Histogram of cumulative layout shift values",
			Buckets: clsBuckets,
		},
		[]string{"site"},
	)

	p.attributionMs = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "web_vitals_attribution_ms",
			Help: "Attribution sub-parts of the most recent timing report in milliseconds",
		},
		[]string{"site", "metric", "component"},
	)

	p.lastReport = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "web_vitals_last_report_timestamp_seconds",
			Help: "Unix timestamp of the last report",
		},
		[]string{"site", "metric"},
	)

	p.registry.MustRegister(
		p.reportsTotal,
		p.metricValue,
		p.metricDelta,
		p.durationHist,
		p.clsHist,
		p.attributionMs,
		p.lastReport,
	)
	if stats != nil {
		p.registry.MustRegister(newP75Collector(stats))
	}
	if cfg.IncludeGoMetrics {
		p.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	p.handler = promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
	return p
}

// Write updates Prometheus metrics with the report
func (p *PrometheusOutput) Write(report *models.Report) error {
	if p == nil {
		return nil
	}

	site := report.Site.Name
	if site == "" {
		site = report.Site.URL
	}
	m := report.Metric
	name := string(m.Name)

	p.reportsTotal.WithLabelValues(site, name, string(m.Rating)).Inc()
	p.metricValue.WithLabelValues(site, name, string(m.NavigationType)).Set(m.Value)
	p.metricDelta.WithLabelValues(site, name).Set(m.Delta)
	p.lastReport.WithLabelValues(site, name).Set(float64(report.Timestamp.Unix()))

	if m.Name == models.MetricCLS {
		p.clsHist.WithLabelValues(site).Observe(m.Value)
		return nil
	}

	p.durationHist.WithLabelValues(site, name).Observe(m.Value)
	if m.Attribution != nil {
		components := m.Attribution.Components()
		for _, component := range models.ComponentNames(m.Attribution) {
			p.attributionMs.WithLabelValues(site, name, component).Set(components[component])
		}
	}

	return nil
}

// Name returns the output module name
func (p *PrometheusOutput) Name() string {
	return "prometheus"
}

// Close shuts down the HTTP server
func (p *PrometheusOutput) Close() error {
	if p == nil || p.server == nil {
		return nil
	}

	p.logger.Info("shutting down Prometheus exporter")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return p.server.Shutdown(ctx)
}

// p75Collector exports the collector's per site and metric p75 at scrape time
type p75Collector struct {
	stats     *metrics.Collector
	p75       *prometheus.Desc
	count     *prometheus.Desc
	threshold *prometheus.Desc
}

func newP75Collector(stats *metrics.Collector) *p75Collector {
	return &p75Collector{
		stats: stats,
		p75: prometheus.NewDesc(
			"web_vitals_p75",
			"75th percentile of all reports since start",
			[]string{"site", "metric", "rating"}, nil,
		),
		count: prometheus.NewDesc(
			"web_vitals_p75_samples",
			"Number of reports the p75 is computed over",
			[]string{"site", "metric"}, nil,
		),
		threshold: prometheus.NewDesc(
			"web_vitals_threshold",
			"Upper bound of the good and needs-improvement ratings of a reported metric",
			[]string{"metric", "rating"}, nil,
		),
	}
}

func (c *p75Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.p75
	ch <- c.count
	ch <- c.threshold
}

func (c *p75Collector) Collect(ch chan<- prometheus.Metric) {
	seen := make(map[models.MetricName]bool)
	for _, s := range c.stats.Snapshot() {
		ch <- prometheus.MustNewConstMetric(c.p75, prometheus.GaugeValue, s.P75, s.Site, string(s.Metric), string(s.Rating))
		ch <- prometheus.MustNewConstMetric(c.count, prometheus.GaugeValue, float64(s.Count), s.Site, string(s.Metric))

		if seen[s.Metric] {
			continue
		}
		seen[s.Metric] = true
		if t, ok := vitals.ThresholdsFor(s.Metric); ok {
			ch <- prometheus.MustNewConstMetric(c.threshold, prometheus.GaugeValue, t.Good, string(s.Metric), string(models.RatingGood))
			ch <- prometheus.MustNewConstMetric(c.threshold, prometheus.GaugeValue, t.Poor, string(s.Metric), string(models.RatingNeedsImprovement))
		}
	}
}
