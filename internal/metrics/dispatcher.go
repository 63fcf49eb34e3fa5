package metrics

import (
	"log/slog"
	"sync"

	"github.com/nickborgers/monorepo/web-vitals-monitor/internal/models"
)

// Dispatcher distributes metric reports to all output modules
type Dispatcher struct {
	outputs []Output
	logger  *slog.Logger
	mu      sync.RWMutex
}

// Output is an interface for report output modules
type Output interface {
	// Write sends a report to the output
	Write(report *models.Report) error

	// Name returns the output module name
	Name() string
}

// NewDispatcher creates a new report dispatcher
func NewDispatcher(logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		outputs: make([]Output, 0),
		logger:  logger,
	}
}

// RegisterOutput adds an output module to the dispatcher
func (d *Dispatcher) RegisterOutput(output Output) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.outputs = append(d.outputs, output)
}

// Outputs returns the names of the registered outputs
func (d *Dispatcher) Outputs() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	names := make([]string, 0, len(d.outputs))
	for _, o := range d.outputs {
		names = append(names, o.Name())
	}
	return names
}

// Dispatch sends a report to all registered outputs
// Outputs are called in parallel; a failing output does not block the others
func (d *Dispatcher) Dispatch(report *models.Report) {
	d.mu.RLock()
	outputs := make([]Output, len(d.outputs))
	copy(outputs, d.outputs)
	d.mu.RUnlock()

	var wg sync.WaitGroup
	for _, output := range outputs {
		wg.Add(1)
		go func(o Output) {
			defer wg.Done()
			if err := o.Write(report); err != nil {
				d.logger.Error("Output failed",
					"output", o.Name(),
					"metric", report.Metric.Name,
					"site", report.Site.Name,
					"error", err,
				)
			}
		}(output)
	}

	wg.Wait()
}
