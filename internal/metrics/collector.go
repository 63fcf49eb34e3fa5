package metrics

import (
	"math"
	"sort"
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"

	"github.com/nickborgers/monorepo/web-vitals-monitor/internal/models"
	"github.com/nickborgers/monorepo/web-vitals-monitor/internal/vitals"
)

const (
	// Histograms hold integers: ms metrics keep tenths of a millisecond,
	// CLS keeps four decimal places.
	msScale  = 10
	clsScale = 10000

	histogramMin     = 1
	histogramMax     = 600_000 * msScale
	histogramSigFigs = 3
)

// MetricStats summarizes the reports of one metric on one site
type MetricStats struct {
	Site   string            `json:"site"`
	Metric models.MetricName `json:"metric"`
	Count  int64             `json:"count"`
	P75    float64           `json:"p75"`
	Min    float64           `json:"min"`
	Max    float64           `json:"max"`
	Mean   float64           `json:"mean"`

	// Rating of P75, the value the metric is judged by
	Rating models.Rating `json:"rating"`

	Last       float64       `json:"last"`
	LastRating models.Rating `json:"last_rating"`
	LastReport time.Time     `json:"last_report"`

	Good             int64 `json:"good"`
	NeedsImprovement int64 `json:"needs_improvement"`
	Poor             int64 `json:"poor"`
}

type seriesKey struct {
	site   string
	metric models.MetricName
}

type series struct {
	hist  *hdrhistogram.Histogram
	stats MetricStats
}

// Collector aggregates reports per site and metric and keeps the most recent
// ones. It is an Output so it sees every dispatched report.
type Collector struct {
	cache  *ReportsCache
	series map[seriesKey]*series
	mu     sync.Mutex
}

// NewCollector creates a new metrics collector
func NewCollector(cacheSize int) *Collector {
	return &Collector{
		cache:  NewReportsCache(cacheSize),
		series: make(map[seriesKey]*series),
	}
}

// Name returns the output name
func (c *Collector) Name() string {
	return "collector"
}

// Write records a report
func (c *Collector) Write(report *models.Report) error {
	c.cache.Add(report)

	m := report.Metric
	key := seriesKey{site: report.Site.Name, metric: m.Name}

	// HDR histogram RecordValue is not thread-safe
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.series[key]
	if !ok {
		s = &series{
			hist:  hdrhistogram.New(histogramMin, histogramMax, histogramSigFigs),
			stats: MetricStats{Site: key.site, Metric: key.metric},
		}
		c.series[key] = s
	}

	if err := s.hist.RecordValue(toHistogram(m.Name, m.Value)); err != nil {
		return err
	}

	s.stats.Last = m.Value
	s.stats.LastRating = m.Rating
	s.stats.LastReport = report.Timestamp
	switch m.Rating {
	case models.RatingGood:
		s.stats.Good++
	case models.RatingNeedsImprovement:
		s.stats.NeedsImprovement++
	case models.RatingPoor:
		s.stats.Poor++
	}
	return nil
}

// Close is a no-op; the collector is in-memory
func (c *Collector) Close() error {
	return nil
}

// Stats returns the summary of one site and metric
func (c *Collector) Stats(site string, metric models.MetricName) (MetricStats, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.series[seriesKey{site: site, metric: metric}]
	if !ok {
		return MetricStats{}, false
	}
	return s.summary(), true
}

// Snapshot returns every summary, ordered by site then metric
func (c *Collector) Snapshot() []MetricStats {
	c.mu.Lock()
	out := make([]MetricStats, 0, len(c.series))
	for _, s := range c.series {
		out = append(out, s.summary())
	}
	c.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Site != out[j].Site {
			return out[i].Site < out[j].Site
		}
		return out[i].Metric < out[j].Metric
	})
	return out
}

// GetRecentReports returns the N most recent reports
func (c *Collector) GetRecentReports(n int) []*models.Report {
	return c.cache.GetLast(n)
}

// Cache returns the collector's report cache
func (c *Collector) Cache() *ReportsCache {
	return c.cache
}

func (s *series) summary() MetricStats {
	st := s.stats
	name := st.Metric
	st.Count = s.hist.TotalCount()
	st.P75 = fromHistogram(name, s.hist.ValueAtQuantile(75))
	st.Min = fromHistogram(name, s.hist.Min())
	st.Max = fromHistogram(name, s.hist.Max())
	st.Mean = s.hist.Mean() / scale(name)
	st.Rating = vitals.Rate(name, st.P75)
	return st
}

func scale(name models.MetricName) float64 {
	if name == models.MetricCLS {
		return clsScale
	}
	return msScale
}

func toHistogram(name models.MetricName, v float64) int64 {
	return int64(math.Round(math.Min(math.Max(0, v)*scale(name), histogramMax)))
}

func fromHistogram(name models.MetricName, v int64) float64 {
	return float64(v) / scale(name)
}
