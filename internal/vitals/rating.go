package vitals

import "github.com/nickborgers/monorepo/web-vitals-monitor/internal/models"

// Thresholds are the inclusive upper bounds of the good and
// needs-improvement buckets.
type Thresholds struct {
	Good float64
	Poor float64
}

var thresholds = map[models.MetricName]Thresholds{
	models.MetricTTFB: {Good: 800, Poor: 1800},
	models.MetricFCP:  {Good: 1800, Poor: 3000},
	models.MetricLCP:  {Good: 2500, Poor: 4000},
	models.MetricCLS:  {Good: 0.1, Poor: 0.25},
	models.MetricINP:  {Good: 200, Poor: 500},
}

// ThresholdsFor returns the rating thresholds of a metric
func ThresholdsFor(name models.MetricName) (Thresholds, bool) {
	t, ok := thresholds[name]
	return t, ok
}

// Rate buckets value against the thresholds of name
func Rate(name models.MetricName, value float64) models.Rating {
	t, ok := thresholds[name]
	if !ok {
		return ""
	}
	switch {
	case value > t.Poor:
		return models.RatingPoor
	case value > t.Good:
		return models.RatingNeedsImprovement
	default:
		return models.RatingGood
	}
}
