package vitals

import "github.com/nickborgers/monorepo/web-vitals-monitor/internal/models"

// VisibilityState is document.visibilityState
type VisibilityState string

const (
	Visible VisibilityState = "visible"
	Hidden  VisibilityState = "hidden"
)

// EntrySource subscribes to buffered performance entries of one type.
//
// ok is false when the entry type is unsupported; onEntries is then never
// invoked. onEntries is never invoked before Subscribe returns.
type EntrySource interface {
	Subscribe(entryType models.EntryType, onEntries func([]models.Entry)) (unsubscribe func(), ok bool)
}

// Visibility reports the document visibility state and its changes
type Visibility interface {
	CurrentVisibility() VisibilityState
	OnVisibilityChange(cb func(state VisibilityState, timestamp float64))
}

// RestoreSource signals restorations from the back/forward cache
type RestoreSource interface {
	OnPageRestoredFromCache(cb func(restoreTimestamp float64))
}

// NavigationSource returns the page's navigation entry, or nil when there is none
type NavigationSource interface {
	NavigationEntry() *models.NavigationEntry
}

// ActivationSource is implemented by environments that can prerender pages
type ActivationSource interface {
	Prerendering() bool
	OnActivated(cb func())
}

// Environment bundles the browser primitives one page is measured with.
// Activation is optional.
type Environment struct {
	Entries    EntrySource
	Visibility Visibility
	Restores   RestoreSource
	Navigation NavigationSource
	Activation ActivationSource
}
