package vitals

import (
	"log/slog"

	"github.com/nickborgers/monorepo/web-vitals-monitor/internal/models"
)

// State is the lifecycle state of a Recorder
type State int

const (
	StateIdle State = iota
	StateArmed
	StateMeasured
	StateReported
	StateSuperseded
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateArmed:
		return "armed"
	case StateMeasured:
		return "measured"
	case StateReported:
		return "reported"
	case StateSuperseded:
		return "superseded"
	default:
		return "unknown"
	}
}

// TransitionFunc observes recorder state transitions
type TransitionFunc func(name models.MetricName, from, to State)

// kind holds the metric-specific rules of a recorder
type kind interface {
	entryType() models.EntryType

	// hiddenGated kinds produce nothing when the page starts hidden
	hiddenGated() bool

	handleEntries(r *Recorder, entries []models.Entry)
	handleHidden(r *Recorder)
	handleRestore(r *Recorder)
}

// Recorder measures one metric over the life of a page
type Recorder struct {
	name       models.MetricName
	kind       kind
	entries    EntrySource
	navigation NavigationSource
	activation ActivationSource
	observer   *LifecycleObserver
	dispatcher *ReportDispatcher
	newID      func() string
	logger     *slog.Logger
	onChange   TransitionFunc

	reportAllChanges bool

	state       State
	metric      models.Metric
	nav         *models.NavigationEntry
	restored    bool
	done        bool
	unsubscribe func()
}

func newRecorder(name models.MetricName, k kind, env Environment, observer *LifecycleObserver, report ReportFunc, opts Options) *Recorder {
	r := &Recorder{
		name:             name,
		kind:             k,
		entries:          env.Entries,
		navigation:       env.Navigation,
		activation:       env.Activation,
		observer:         observer,
		dispatcher:       NewReportDispatcher(report, opts.ReportAllChanges),
		newID:            opts.NewID,
		logger:           opts.Logger,
		onChange:         opts.OnTransition,
		reportAllChanges: opts.ReportAllChanges,
	}
	observer.OnHidden(r.hidden)
	observer.OnRestore(r.restore)
	return r
}

// Name returns the metric this recorder measures
func (r *Recorder) Name() models.MetricName { return r.name }

// State returns the current state
func (r *Recorder) State() State { return r.state }

// Metric returns the metric of the current measurement cycle
func (r *Recorder) Metric() models.Metric { return r.metric }

// start subscribes to the kind's entries. Unsupported entry types leave the
// recorder Idle for the rest of the page life.
func (r *Recorder) start() {
	if r.state != StateIdle {
		return
	}

	unsubscribe, ok := r.entries.Subscribe(r.kind.entryType(), r.handleEntries)
	if !ok {
		r.logger.Debug("entry type not supported", "metric", r.name, "entry_type", r.kind.entryType())
		return
	}
	r.unsubscribe = unsubscribe

	r.nav = r.navigation.NavigationEntry()
	r.metric = r.newMetric(r.initialNavigationType())
	r.transition(StateArmed)

	if r.kind.hiddenGated() && r.observer.Hidden() {
		r.logger.Debug("page hidden at start, no report", "metric", r.name)
		r.stop()
	}
}

func (r *Recorder) handleEntries(entries []models.Entry) {
	if r.state == StateIdle || r.done {
		return
	}
	r.kind.handleEntries(r, entries)
}

func (r *Recorder) hidden() {
	if r.state == StateIdle || r.done {
		return
	}
	r.kind.handleHidden(r)
}

// restore begins a new measurement cycle for the restored page
func (r *Recorder) restore(ev RestoreEvent) {
	if r.state == StateIdle {
		return
	}
	r.logger.Debug("page restored from bfcache", "metric", r.name, "segment", ev.Segment)

	r.restored = true
	r.done = false
	r.nav = nil
	r.metric = r.newMetric(models.NavigationBackForwardCache)
	r.transition(StateArmed)
	r.kind.handleRestore(r)
}

// measure records a candidate value for the current cycle
func (r *Recorder) measure(value float64, entries []models.Entry) {
	if r.state == StateMeasured {
		r.transition(StateSuperseded)
	}
	r.metric.Value = value
	r.metric.Entries = entries
	r.transition(StateMeasured)
}

// report hands the current value to the dispatcher
func (r *Recorder) report(force bool) {
	if r.state != StateMeasured && r.state != StateReported {
		return
	}
	if r.dispatcher.Dispatch(r.metric, r.attributionNav(), force) {
		r.transition(StateReported)
	}
}

// stop ends entry observation for the current segment
func (r *Recorder) stop() {
	r.done = true
	if r.unsubscribe != nil {
		r.unsubscribe()
		r.unsubscribe = nil
	}
}

func (r *Recorder) activationStart() float64 {
	if r.restored {
		return 0
	}
	return ActivationStart(r.nav)
}

// attributionNav re-reads the navigation entry so later milestones are visible
func (r *Recorder) attributionNav() *models.NavigationEntry {
	if r.restored {
		return nil
	}
	if nav := r.navigation.NavigationEntry(); nav != nil {
		r.nav = nav
	}
	return r.nav
}

func (r *Recorder) initialNavigationType() models.NavigationType {
	prerendering := r.activation != nil && r.activation.Prerendering()
	return navigationTypeOf(r.nav, prerendering)
}

func (r *Recorder) newMetric(navType models.NavigationType) models.Metric {
	return models.Metric{
		Name:           r.name,
		Value:          0,
		ID:             r.newID(),
		NavigationType: navType,
		Entries:        []models.Entry{},
	}
}

func (r *Recorder) transition(to State) {
	from := r.state
	r.state = to
	r.logger.Debug("recorder transition", "metric", r.name, "from", from.String(), "to", to.String())
	if r.onChange != nil {
		r.onChange(r.name, from, to)
	}
}
