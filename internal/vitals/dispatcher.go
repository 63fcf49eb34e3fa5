package vitals

import (
	"github.com/nickborgers/monorepo/web-vitals-monitor/internal/models"
)

// ReportFunc receives delivered metrics
type ReportFunc func(models.Metric)

// ReportDispatcher decides when a metric is delivered and finishes it on the
// way out: delta, rating and attribution are computed here. One dispatcher
// serves one recorder.
type ReportDispatcher struct {
	report           ReportFunc
	reportAllChanges bool

	id        string
	prevValue float64
	reported  bool
}

// NewReportDispatcher creates a dispatcher delivering to report
func NewReportDispatcher(report ReportFunc, reportAllChanges bool) *ReportDispatcher {
	return &ReportDispatcher{
		report:           report,
		reportAllChanges: reportAllChanges,
	}
}

// Dispatch delivers m when force is set (or all changes are reported) and
// its (id, value) pair has not been delivered yet. nav is the navigation
// entry attribution is computed against. It reports whether m was delivered.
func (d *ReportDispatcher) Dispatch(m models.Metric, nav *models.NavigationEntry, force bool) bool {
	if m.Value < 0 {
		return false
	}
	if !force && !d.reportAllChanges {
		return false
	}

	if m.ID != d.id {
		d.id = m.ID
		d.prevValue = 0
		d.reported = false
	}

	delta := m.Value - d.prevValue
	if d.reported && delta == 0 {
		return false
	}
	d.prevValue = m.Value
	d.reported = true

	entries := make([]models.Entry, len(m.Entries))
	copy(entries, m.Entries)

	m.Entries = entries
	m.Delta = delta
	m.Rating = Rate(m.Name, m.Value)
	m.Attribution = Attribute(m.Name, AttributionInput{
		Entries:         entries,
		Navigation:      nav,
		ActivationStart: ActivationStart(nav),
		Value:           m.Value,
	})

	d.report(m)
	return true
}
