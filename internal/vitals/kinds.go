package vitals

import (
	"github.com/nickborgers/monorepo/web-vitals-monitor/internal/models"
)

const (
	// A CLS session window closes after this much time without a shift...
	sessionGap = 1000.0
	// ...or once it spans this long
	sessionMaxDuration = 5000.0
)

// ttfbKind reports time to first byte as soon as the navigation entry has it
type ttfbKind struct{}

func (ttfbKind) entryType() models.EntryType { return models.EntryTypeNavigation }
func (ttfbKind) hiddenGated() bool           { return false }

func (ttfbKind) handleEntries(r *Recorder, entries []models.Entry) {
	if r.state != StateArmed {
		return
	}

	var nav *models.NavigationEntry
	for _, e := range entries {
		if n, ok := e.(*models.NavigationEntry); ok {
			nav = n
			break
		}
	}
	if nav == nil || nav.ResponseStart <= 0 {
		return
	}

	r.nav = nav
	r.stop()
	r.measure(Shift(nav.ResponseStart, ActivationStart(nav)), []models.Entry{nav})
	r.report(true)
}

func (ttfbKind) handleHidden(*Recorder) {}

func (ttfbKind) handleRestore(r *Recorder) {
	r.measure(0, []models.Entry{})
	r.report(true)
}

// fcpKind reports the first contentful paint once
type fcpKind struct{}

func (fcpKind) entryType() models.EntryType { return models.EntryTypePaint }
func (fcpKind) hiddenGated() bool           { return true }

func (fcpKind) handleEntries(r *Recorder, entries []models.Entry) {
	if r.state != StateArmed {
		return
	}

	// entries may arrive out of order within a batch
	var fcp *models.PaintEntry
	for _, e := range entries {
		p, ok := e.(*models.PaintEntry)
		if !ok || p.Name != models.FirstContentfulPaint {
			continue
		}
		if fcp == nil || p.StartTime < fcp.StartTime {
			fcp = p
		}
	}
	if fcp == nil {
		return
	}

	r.stop()
	if fcp.StartTime >= r.observer.FirstHiddenTime() {
		r.logger.Debug("paint after page was hidden, ignoring", "metric", r.name, "start_time", fcp.StartTime)
		return
	}

	r.measure(Shift(fcp.StartTime, r.activationStart()), []models.Entry{fcp})
	r.report(true)
}

func (fcpKind) handleHidden(*Recorder) {}

func (fcpKind) handleRestore(r *Recorder) {
	r.measure(0, []models.Entry{})
	r.report(true)
}

// lcpKind tracks the latest largest-contentful-paint candidate until the page
// is hidden or torn down
type lcpKind struct{}

func (lcpKind) entryType() models.EntryType { return models.EntryTypeLargestContentfulPaint }
func (lcpKind) hiddenGated() bool           { return true }

func (lcpKind) handleEntries(r *Recorder, entries []models.Entry) {
	var candidates []*models.LargestContentfulPaintEntry
	for _, e := range entries {
		if l, ok := e.(*models.LargestContentfulPaintEntry); ok {
			candidates = append(candidates, l)
		}
	}
	if len(candidates) == 0 {
		return
	}
	if !r.reportAllChanges {
		candidates = candidates[len(candidates)-1:]
	}

	for _, c := range candidates {
		if c.StartTime >= r.observer.FirstHiddenTime() {
			continue
		}
		r.measure(Shift(c.StartTime, r.activationStart()), []models.Entry{c})
		r.report(false)
	}
}

func (lcpKind) handleHidden(r *Recorder) {
	r.stop()
	r.report(true)
}

func (lcpKind) handleRestore(r *Recorder) {
	r.measure(0, []models.Entry{})
	r.report(true)
}

// clsKind accumulates layout shifts into session windows and reports the
// largest window seen
type clsKind struct {
	sessionValue   float64
	sessionEntries []*models.LayoutShiftEntry
}

func (*clsKind) entryType() models.EntryType { return models.EntryTypeLayoutShift }
func (*clsKind) hiddenGated() bool           { return false }

func (k *clsKind) handleEntries(r *Recorder, entries []models.Entry) {
	changed := false
	for _, e := range entries {
		shift, ok := e.(*models.LayoutShiftEntry)
		if !ok || shift.HadRecentInput {
			continue
		}

		if n := len(k.sessionEntries); n > 0 &&
			shift.StartTime-k.sessionEntries[n-1].StartTime < sessionGap &&
			shift.StartTime-k.sessionEntries[0].StartTime < sessionMaxDuration {
			k.sessionValue += shift.Value
			k.sessionEntries = append(k.sessionEntries, shift)
		} else {
			k.sessionValue = shift.Value
			k.sessionEntries = []*models.LayoutShiftEntry{shift}
		}

		if k.sessionValue > r.metric.Value {
			window := make([]models.Entry, len(k.sessionEntries))
			for i, s := range k.sessionEntries {
				window[i] = s
			}
			r.measure(k.sessionValue, window)
			changed = true
		}
	}

	if changed {
		r.report(false)
	}
}

func (*clsKind) handleHidden(r *Recorder) {
	if r.state == StateArmed {
		r.measure(r.metric.Value, []models.Entry{})
	}
	r.report(true)
}

func (k *clsKind) handleRestore(r *Recorder) {
	k.sessionValue = 0
	k.sessionEntries = nil
	if r.reportAllChanges {
		r.measure(0, []models.Entry{})
		r.report(false)
	}
}
