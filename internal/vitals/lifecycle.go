package vitals

import "math"

// RestoreEvent describes one back/forward cache restoration
type RestoreEvent struct {
	Timestamp float64

	// Segment is the lifecycle segment that begins with this restore, starting at 1
	Segment int
}

// LifecycleObserver turns raw visibility and restore signals into the
// lifecycle events recorders depend on. OnHidden handlers fire at most once
// per segment; a restore starts a new segment.
type LifecycleObserver struct {
	visibility Visibility
	activation ActivationSource

	firstHiddenTime float64
	hiddenFired     bool
	segment         int

	hiddenHandlers  []func()
	restoreHandlers []func(RestoreEvent)
}

// NewLifecycleObserver subscribes to visibility changes and, when restores is
// non-nil, to bfcache restorations. activation may be nil.
func NewLifecycleObserver(visibility Visibility, restores RestoreSource, activation ActivationSource) *LifecycleObserver {
	o := &LifecycleObserver{
		visibility: visibility,
		activation: activation,
	}
	o.firstHiddenTime = o.initialHiddenTime()

	visibility.OnVisibilityChange(o.handleVisibility)
	if restores != nil {
		restores.OnPageRestoredFromCache(o.handleRestore)
	}
	return o
}

// FirstHiddenTime is 0 when the page was hidden when observation began,
// the time of the first hidden transition otherwise, and +Inf until then.
func (o *LifecycleObserver) FirstHiddenTime() float64 {
	return o.firstHiddenTime
}

// Hidden reports whether the document is currently hidden
func (o *LifecycleObserver) Hidden() bool {
	return o.visibility.CurrentVisibility() == Hidden
}

// Segment is the number of restores observed so far
func (o *LifecycleObserver) Segment() int {
	return o.segment
}

// OnHidden registers cb for the first hidden transition of every segment
func (o *LifecycleObserver) OnHidden(cb func()) {
	o.hiddenHandlers = append(o.hiddenHandlers, cb)
}

// OnRestore registers cb for bfcache restores. The observer has already
// reset its own state when cb runs.
func (o *LifecycleObserver) OnRestore(cb func(RestoreEvent)) {
	o.restoreHandlers = append(o.restoreHandlers, cb)
}

// WhenActivated runs cb immediately, or once a prerendered page is activated
func (o *LifecycleObserver) WhenActivated(cb func()) {
	if o.activation != nil && o.activation.Prerendering() {
		o.activation.OnActivated(cb)
		return
	}
	cb()
}

// Finalize treats page teardown like pagehide: hidden handlers that have not
// fired in this segment fire now.
func (o *LifecycleObserver) Finalize() {
	o.fireHidden()
}

func (o *LifecycleObserver) initialHiddenTime() float64 {
	prerendering := o.activation != nil && o.activation.Prerendering()
	if o.visibility.CurrentVisibility() == Hidden && !prerendering {
		return 0
	}
	return math.Inf(1)
}

func (o *LifecycleObserver) handleVisibility(state VisibilityState, timestamp float64) {
	if state != Hidden {
		return
	}
	if timestamp < o.firstHiddenTime {
		o.firstHiddenTime = timestamp
	}
	o.fireHidden()
}

func (o *LifecycleObserver) fireHidden() {
	if o.hiddenFired {
		return
	}
	o.hiddenFired = true
	for _, h := range o.hiddenHandlers {
		h()
	}
}

func (o *LifecycleObserver) handleRestore(timestamp float64) {
	o.segment++
	o.hiddenFired = false
	o.firstHiddenTime = o.initialHiddenTime()

	ev := RestoreEvent{Timestamp: timestamp, Segment: o.segment}
	for _, h := range o.restoreHandlers {
		h(ev)
	}
}
