// Package vitals measures user-centric page metrics (TTFB, FCP, LCP, CLS)
// across the page lifecycle.
//
// A Page owns one LifecycleObserver and one Recorder per metric kind. The
// observer turns visibility and back/forward cache signals into discrete
// hidden/restore events; each Recorder is a small state machine
// (Idle, Armed, Measured, Reported or Superseded) that collects qualifying
// performance entries, computes the page-relative value and hands it to its
// ReportDispatcher, which attaches attribution and invokes the callback at
// most once per measurement cycle.
//
// The package is single-threaded: all methods must be called from the
// goroutine that delivers browser events. The browser side is abstracted
// behind EntrySource, Visibility, RestoreSource and NavigationSource.
package vitals
