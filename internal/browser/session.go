package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/chromedp/chromedp"

	"github.com/nickborgers/monorepo/web-vitals-monitor/internal/models"
	"github.com/nickborgers/monorepo/web-vitals-monitor/internal/vitals"
)

var (
	// ErrProbeMissing means the document has no probe, e.g. it failed to load
	ErrProbeMissing = errors.New("vitals probe not present in page")

	// ErrDocumentReplaced means the measured document is gone and a new one
	// (with a fresh probe) took its place
	ErrDocumentReplaced = errors.New("measured document was replaced")
)

type subscription struct {
	onEntries func([]models.Entry)
	active    bool

	// batches delivered before the subscription, replayed once
	backlog [][]models.Entry
}

// Session connects one in-page probe to the vitals engine. It implements the
// engine's browser primitives; events are delivered on the goroutine that
// calls Pump, in the order the page queued them.
type Session struct {
	logger *slog.Logger

	instance   string
	supported  map[models.EntryType]bool
	subs       map[models.EntryType][]*subscription
	buffered   map[models.EntryType][][]models.Entry
	replays    []*subscription
	visibility vitals.VisibilityState
	nav        *models.NavigationEntry

	prerendering bool

	visibilityCbs []func(vitals.VisibilityState, float64)
	restoreCbs    []func(float64)
	activatedCbs  []func()

	restores int
}

// newSession builds a session from the probe's init snapshot
func newSession(init probeInit, logger *slog.Logger) (*Session, error) {
	if init.Instance == "" {
		return nil, ErrProbeMissing
	}

	nav, err := decodeNavigation(init.Navigation)
	if err != nil {
		return nil, err
	}

	s := &Session{
		logger:       logger,
		instance:     init.Instance,
		supported:    make(map[models.EntryType]bool),
		subs:         make(map[models.EntryType][]*subscription),
		buffered:     make(map[models.EntryType][][]models.Entry),
		visibility:   vitals.VisibilityState(init.Visibility),
		nav:          nav,
		prerendering: init.Prerendering,
	}
	if s.visibility == "" {
		s.visibility = vitals.Visible
	}
	for _, t := range init.Supported {
		s.supported[models.EntryType(t)] = true
	}
	return s, nil
}

// Attach reads the probe of the current document
func Attach(ctx context.Context, logger *slog.Logger) (*Session, error) {
	var init probeInit
	if err := chromedp.Run(ctx, chromedp.Evaluate(initExpression, &init)); err != nil {
		return nil, fmt.Errorf("failed to attach to probe: %w", err)
	}
	return newSession(init, logger)
}

// Environment exposes the session as the engine's browser primitives
func (s *Session) Environment() vitals.Environment {
	return vitals.Environment{
		Entries:    s,
		Visibility: s,
		Restores:   s,
		Navigation: s,
		Activation: s,
	}
}

// Pump drains the probe queue and delivers every event in order
func (s *Session) Pump(ctx context.Context) error {
	var drained *probeDrain
	if err := chromedp.Run(ctx, chromedp.Evaluate(drainExpression, &drained)); err != nil {
		return fmt.Errorf("failed to drain probe: %w", err)
	}
	if drained == nil {
		return ErrProbeMissing
	}
	return s.apply(*drained)
}

// apply delivers one drained batch
func (s *Session) apply(drained probeDrain) error {
	if drained.Instance != s.instance {
		return ErrDocumentReplaced
	}

	if nav, err := decodeNavigation(drained.Navigation); err != nil {
		s.logger.Warn("ignoring navigation entry", "error", err)
	} else if nav != nil {
		s.nav = nav
	}

	s.replay()
	for _, raw := range drained.Events {
		ev, err := decodeEvent(raw)
		if err != nil {
			s.logger.Warn("dropping probe event", "error", err)
			continue
		}
		if err := s.deliver(ev); err != nil {
			s.logger.Warn("dropping probe event", "type", ev.Type, "error", err)
		}
		// recorders armed by this event see what was observed before them
		s.replay()
	}
	return nil
}

// replay hands buffered entries to subscriptions made since the last event,
// the way a buffered PerformanceObserver does
func (s *Session) replay() {
	for len(s.replays) > 0 {
		sub := s.replays[0]
		s.replays = s.replays[1:]
		for _, entries := range sub.backlog {
			if !sub.active {
				break
			}
			sub.onEntries(entries)
		}
		sub.backlog = nil
	}
}

func (s *Session) deliver(ev probeEvent) error {
	switch ev.Type {
	case eventEntries:
		entryType := models.EntryType(ev.EntryType)
		entries, err := decodeEntries(entryType, ev.Entries)
		if err != nil {
			return err
		}
		if entryType == models.EntryTypeNavigation && s.nav != nil {
			// the observed copy is stale for prerendered pages: activationStart
			// is only set once the page is activated
			entries = []models.Entry{s.nav}
		}
		s.buffered[entryType] = append(s.buffered[entryType], entries)
		for _, sub := range s.subs[entryType] {
			// an earlier subscriber may unsubscribe a later one
			if sub.active {
				sub.onEntries(entries)
			}
		}

	case eventVisibility:
		state := vitals.VisibilityState(ev.State)
		if state != vitals.Visible && state != vitals.Hidden {
			return fmt.Errorf("unknown visibility state %q", ev.State)
		}
		s.visibility = state
		for _, cb := range s.visibilityCbs {
			cb(state, ev.Time)
		}

	case eventRestore:
		s.restores++
		s.visibility = vitals.Visible
		for _, cb := range s.restoreCbs {
			cb(ev.Time)
		}

	case eventActivated:
		if !s.prerendering {
			return nil
		}
		s.prerendering = false
		for _, cb := range s.activatedCbs {
			cb()
		}

	default:
		return fmt.Errorf("unknown event type %q", ev.Type)
	}
	return nil
}

// Restores returns the number of bfcache restores seen
func (s *Session) Restores() int {
	return s.restores
}

func (s *Session) Subscribe(entryType models.EntryType, onEntries func([]models.Entry)) (func(), bool) {
	if !s.supported[entryType] {
		return nil, false
	}
	sub := &subscription{onEntries: onEntries, active: true}
	if backlog := s.buffered[entryType]; len(backlog) > 0 {
		sub.backlog = append([][]models.Entry(nil), backlog...)
		s.replays = append(s.replays, sub)
	}
	s.subs[entryType] = append(s.subs[entryType], sub)
	return func() { sub.active = false }, true
}

func (s *Session) CurrentVisibility() vitals.VisibilityState {
	return s.visibility
}

func (s *Session) OnVisibilityChange(cb func(vitals.VisibilityState, float64)) {
	s.visibilityCbs = append(s.visibilityCbs, cb)
}

func (s *Session) OnPageRestoredFromCache(cb func(float64)) {
	s.restoreCbs = append(s.restoreCbs, cb)
}

func (s *Session) NavigationEntry() *models.NavigationEntry {
	return s.nav
}

func (s *Session) Prerendering() bool {
	return s.prerendering
}

func (s *Session) OnActivated(cb func()) {
	s.activatedCbs = append(s.activatedCbs, cb)
}
