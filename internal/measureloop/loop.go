package measureloop

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nickborgers/monorepo/web-vitals-monitor/internal/browser"
	"github.com/nickborgers/monorepo/web-vitals-monitor/internal/config"
	"github.com/nickborgers/monorepo/web-vitals-monitor/internal/health"
	"github.com/nickborgers/monorepo/web-vitals-monitor/internal/metrics"
	"github.com/nickborgers/monorepo/web-vitals-monitor/internal/models"
)

// maxConsecutiveChromeFailures is how many browser launches may fail in a row
// before the loop gives up so the process can be restarted
const maxConsecutiveChromeFailures = 5

// ErrChromeUnavailable is returned once Chrome failed to start too many times in a row
var ErrChromeUnavailable = errors.New("chrome failed to start repeatedly")

// MeasureLoop measures sites one page life at a time and dispatches the reports
type MeasureLoop struct {
	config     *config.Config
	iterator   *SiteIterator
	browser    browser.Controller
	dispatcher *metrics.Dispatcher
	health     *health.HealthServer
	logger     *slog.Logger
	stopChan   chan struct{}

	consecutiveChromeFailures int
}

// NewMeasureLoop creates a new measurement loop. hs may be nil.
func NewMeasureLoop(cfg *config.Config, ctrl browser.Controller, dispatcher *metrics.Dispatcher, hs *health.HealthServer, logger *slog.Logger) *MeasureLoop {
	if logger == nil {
		logger = slog.Default()
	}
	return &MeasureLoop{
		config:     cfg,
		iterator:   NewSiteIterator(cfg.Sites.List),
		browser:    ctrl,
		dispatcher: dispatcher,
		health:     hs,
		logger:     logger,
		stopChan:   make(chan struct{}),
	}
}

// Run measures sites serially until the context is cancelled, Stop is called
// or Chrome cannot be started anymore
func (l *MeasureLoop) Run(ctx context.Context) error {
	l.logger.Info("Starting measurement loop",
		"sites", l.iterator.Count(),
		"inter_test_delay", l.config.General.InterTestDelay,
	)

	ticker := time.NewTicker(l.config.General.InterTestDelay)
	defer ticker.Stop()

	if err := l.measure(ctx, l.iterator.Next()); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			l.logger.Info("Measurement loop stopped by context")
			return ctx.Err()

		case <-l.stopChan:
			l.logger.Info("Measurement loop stopped by Stop() call")
			return nil

		case <-ticker.C:
			if err := l.measure(ctx, l.iterator.Next()); err != nil {
				return err
			}
		}
	}
}

// RunOnce measures every site once and returns the page runs in site order.
// Sites whose browser could not be started have no run.
func (l *MeasureLoop) RunOnce(ctx context.Context) ([]*models.PageRun, error) {
	var runs []*models.PageRun
	for _, site := range l.iterator.Cycle() {
		if err := ctx.Err(); err != nil {
			return runs, err
		}

		run, err := l.measureSite(ctx, site)
		if err != nil {
			return runs, err
		}
		if run != nil {
			runs = append(runs, run)
		}
	}
	return runs, nil
}

func (l *MeasureLoop) measure(ctx context.Context, site models.SiteDefinition) error {
	_, err := l.measureSite(ctx, site)
	return err
}

// measureSite runs one page life. A nil run with a nil error means the
// browser did not start but the loop may continue.
func (l *MeasureLoop) measureSite(ctx context.Context, site models.SiteDefinition) (*models.PageRun, error) {
	l.logger.Debug("Measuring site", "site", site.GetName(), "url", site.URL)

	run, err := l.browser.MeasureSite(ctx, site, func(report *models.Report) {
		l.dispatcher.Dispatch(report)
		l.health.RecordReport()
	})
	if err != nil {
		if !errors.Is(err, browser.ErrChromeStartupFailure) {
			l.logger.Error("Failed to measure site", "site", site.GetName(), "error", err)
			return nil, nil
		}

		l.consecutiveChromeFailures++
		l.logger.Warn("Chrome failed to start",
			"consecutive_failures", l.consecutiveChromeFailures,
			"max_allowed", maxConsecutiveChromeFailures,
		)
		if l.consecutiveChromeFailures >= maxConsecutiveChromeFailures {
			return nil, fmt.Errorf("%w: %d consecutive failures", ErrChromeUnavailable, l.consecutiveChromeFailures)
		}
		return nil, nil
	}

	l.consecutiveChromeFailures = 0
	l.health.RecordPage(run)

	if run.Succeeded() {
		l.logger.Info("Page measured",
			"site", run.Site.Name,
			"reports", run.Reports,
			"restored", run.Restored,
			"duration", run.Duration,
		)
	} else {
		l.logger.Warn("Page load failed",
			"site", run.Site.Name,
			"error_type", run.Error.ErrorType,
			"error", run.Error.ErrorMessage,
		)
	}

	return run, nil
}

// Stop gracefully stops the loop
func (l *MeasureLoop) Stop() error {
	close(l.stopChan)
	return nil
}
