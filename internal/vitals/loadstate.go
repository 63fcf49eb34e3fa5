package vitals

import "github.com/nickborgers/monorepo/web-vitals-monitor/internal/models"

// LoadStateAt returns the document loading phase at a raw (unshifted)
// timestamp. Milestones that have not happened yet are 0 in nav.
func LoadStateAt(nav *models.NavigationEntry, timestamp float64) models.LoadState {
	if nav == nil {
		return models.LoadStateLoaded
	}
	switch {
	case nav.DomInteractive == 0 || timestamp < nav.DomInteractive:
		return models.LoadStateLoading
	case nav.DomContentLoadedEventStart == 0 || timestamp < nav.DomContentLoadedEventStart:
		return models.LoadStateDomInteractive
	case nav.LoadEventStart == 0 || timestamp < nav.LoadEventStart:
		return models.LoadStateDomContentLoaded
	default:
		return models.LoadStateLoaded
	}
}
