package vitals

import (
	"fmt"

	"github.com/nickborgers/monorepo/web-vitals-monitor/internal/models"
)

type fakeSubscription struct {
	cb     func([]models.Entry)
	active bool
}

// fakeEnv is an in-memory browser: tests push entries and lifecycle signals by hand
type fakeEnv struct {
	visibility   VisibilityState
	nav          *models.NavigationEntry
	unsupported  map[models.EntryType]bool
	subs         map[models.EntryType][]*fakeSubscription
	visCallbacks []func(VisibilityState, float64)
	restoreCbs   []func(float64)

	prerendering bool
	activatedCbs []func()
}

func newFakeEnv(nav *models.NavigationEntry) *fakeEnv {
	return &fakeEnv{
		visibility:  Visible,
		nav:         nav,
		unsupported: map[models.EntryType]bool{},
		subs:        map[models.EntryType][]*fakeSubscription{},
	}
}

func (f *fakeEnv) environment() Environment {
	return Environment{
		Entries:    f,
		Visibility: f,
		Restores:   f,
		Navigation: f,
		Activation: f,
	}
}

func (f *fakeEnv) Subscribe(t models.EntryType, cb func([]models.Entry)) (func(), bool) {
	if f.unsupported[t] {
		return nil, false
	}
	s := &fakeSubscription{cb: cb, active: true}
	f.subs[t] = append(f.subs[t], s)
	return func() { s.active = false }, true
}

func (f *fakeEnv) emit(t models.EntryType, entries ...models.Entry) {
	for _, s := range f.subs[t] {
		if s.active {
			s.cb(entries)
		}
	}
}

func (f *fakeEnv) activeSubscriptions(t models.EntryType) int {
	n := 0
	for _, s := range f.subs[t] {
		if s.active {
			n++
		}
	}
	return n
}

func (f *fakeEnv) CurrentVisibility() VisibilityState { return f.visibility }

func (f *fakeEnv) OnVisibilityChange(cb func(VisibilityState, float64)) {
	f.visCallbacks = append(f.visCallbacks, cb)
}

func (f *fakeEnv) setVisibility(state VisibilityState, ts float64) {
	f.visibility = state
	for _, cb := range f.visCallbacks {
		cb(state, ts)
	}
}

func (f *fakeEnv) OnPageRestoredFromCache(cb func(float64)) {
	f.restoreCbs = append(f.restoreCbs, cb)
}

func (f *fakeEnv) restore(ts float64) {
	f.visibility = Visible
	for _, cb := range f.restoreCbs {
		cb(ts)
	}
}

func (f *fakeEnv) NavigationEntry() *models.NavigationEntry { return f.nav }

func (f *fakeEnv) Prerendering() bool { return f.prerendering }

func (f *fakeEnv) OnActivated(cb func()) {
	f.activatedCbs = append(f.activatedCbs, cb)
}

func (f *fakeEnv) activate() {
	f.prerendering = false
	for _, cb := range f.activatedCbs {
		cb()
	}
}

// sink collects delivered metrics
type sink struct {
	metrics []models.Metric
}

func (s *sink) report(m models.Metric) {
	s.metrics = append(s.metrics, m)
}

func (s *sink) byName(name models.MetricName) []models.Metric {
	var out []models.Metric
	for _, m := range s.metrics {
		if m.Name == name {
			out = append(out, m)
		}
	}
	return out
}

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("v5-1700000000000-%013d", 1_000_000_000_000+n)
	}
}
