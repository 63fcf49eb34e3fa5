package vitals

import (
	"math"

	"github.com/nickborgers/monorepo/web-vitals-monitor/internal/models"
)

// ActivationStart returns the activation offset of a prerendered navigation,
// or 0 when the page was not prerendered or there is no navigation entry.
func ActivationStart(nav *models.NavigationEntry) float64 {
	if nav == nil || nav.ActivationStart <= 0 {
		return 0
	}
	return nav.ActivationStart
}

// Shift makes a raw entry timestamp relative to activation, clamped at zero.
func Shift(timestamp, activationStart float64) float64 {
	return math.Max(0, timestamp-activationStart)
}

// clamp bounds x to [lo, hi]; hi wins when lo > hi
func clamp(x, lo, hi float64) float64 {
	return math.Min(math.Max(x, lo), hi)
}

// navigationTypeOf classifies the initial navigation of a page
func navigationTypeOf(nav *models.NavigationEntry, prerendering bool) models.NavigationType {
	if nav == nil {
		return models.NavigationUnknown
	}
	if prerendering || ActivationStart(nav) > 0 {
		return models.NavigationPrerender
	}
	if nav.WasDiscarded {
		return models.NavigationRestore
	}

	switch nav.NavType {
	case "navigate", "":
		return models.NavigationNavigate
	case "reload":
		return models.NavigationReload
	case "back_forward":
		return models.NavigationBackForward
	case "prerender":
		return models.NavigationPrerender
	default:
		return models.NavigationUnknown
	}
}
