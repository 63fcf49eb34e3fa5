package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
	"github.com/mssola/useragent"

	"github.com/nickborgers/monorepo/web-vitals-monitor/internal/config"
	"github.com/nickborgers/monorepo/web-vitals-monitor/internal/models"
	"github.com/nickborgers/monorepo/web-vitals-monitor/internal/vitals"
)

// ErrChromeStartupFailure indicates Chrome failed to start (not a problem with the measured site)
var ErrChromeStartupFailure = errors.New("chrome failed to start")

// ControllerImpl is the concrete implementation of the browser controller
type ControllerImpl struct {
	config        *config.Config
	allocatorOpts []chromedp.ExecAllocatorOption
	metrics       []models.MetricName
	metadata      models.ReportMetadata
	logger        *slog.Logger
}

// NewControllerImpl creates a new browser controller with chromedp
func NewControllerImpl(cfg *config.Config, version string, logger *slog.Logger) (*ControllerImpl, error) {
	metrics, err := cfg.Vitals.MetricNames()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	// Get hostname for metadata
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}

	ua := useragent.New(cfg.Browser.UserAgent)
	browserName, browserVersion := ua.Browser()

	return &ControllerImpl{
		config:        cfg,
		allocatorOpts: allocatorOptions(&cfg.Browser),
		metrics:       metrics,
		metadata: models.ReportMetadata{
			Hostname:       hostname,
			Version:        version,
			UserAgent:      cfg.Browser.UserAgent,
			Browser:        browserName,
			BrowserVersion: browserVersion,
		},
		logger: logger,
	}, nil
}

// allocatorOptions builds the Chrome flags used for every page.
// A fresh allocator is created per page so that DNS, TCP and TLS are
// repeated on every navigation and TTFB attribution sees every phase.
func allocatorOptions(cfg *config.BrowserConfig) []chromedp.ExecAllocatorOption {
	opts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.DisableGPU,
		chromedp.NoSandbox, // Required for Docker
		chromedp.UserAgent(cfg.UserAgent),
		chromedp.WindowSize(cfg.WindowWidth, cfg.WindowHeight),
		chromedp.Flag("log-level", "3"), // Suppress Chrome warnings
		// Disable caches so every page life starts cold
		chromedp.Flag("disable-cache", "true"),
		chromedp.Flag("disable-application-cache", "true"),
		chromedp.Flag("disable-offline-load-stale-cache", "true"),
		chromedp.Flag("disk-cache-size", "0"),
		chromedp.Flag("media-cache-size", "0"),
		// Force fresh DNS, TCP, and TLS on every page
		chromedp.Flag("disable-http2", "true"),
		chromedp.Flag("disable-quic", "true"),
		chromedp.Flag("disable-features", "TLSSessionResumption"),
	}

	if cfg.Headless {
		opts = append(opts, chromedp.Headless)
	}

	if cfg.DisableImages {
		opts = append(opts, chromedp.Flag("blink-settings", "imagesEnabled=false"))
	}

	return opts
}

// MeasureSite navigates to a site and measures one page life
func (c *ControllerImpl) MeasureSite(ctx context.Context, site models.SiteDefinition, report ReportFunc) (*models.PageRun, error) {
	// Create a fresh allocator context for this page
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, c.allocatorOpts...)
	defer cancelAlloc()

	taskCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	// Apply site-specific timeout
	taskCtx, cancelTimeout := context.WithTimeout(taskCtx, site.GetTimeout())
	defer cancelTimeout()

	run := &models.PageRun{
		PageID: uuid.New().String(),
		Site: models.SiteInfo{
			URL:      site.URL,
			Name:     site.GetName(),
			Category: site.Category,
		},
		StartedAt: time.Now(),
	}
	logger := c.logger.With("site", run.Site.Name, "page_id", run.PageID)

	// Starting the browser and installing the probe happen before the first navigation
	err := chromedp.Run(taskCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		_, err := page.AddScriptToEvaluateOnNewDocument(probeScript).Do(ctx)
		return err
	}))
	if err != nil {
		if isChromeStartupFailure(err) {
			return nil, ErrChromeStartupFailure
		}
		return c.failed(run, err), nil
	}

	chromedp.ListenTarget(taskCtx, func(ev interface{}) {
		if e, ok := ev.(*page.EventBackForwardCacheNotUsed); ok {
			reasons := make([]string, 0, len(e.NotRestoredExplanations))
			for _, r := range e.NotRestoredExplanations {
				reasons = append(reasons, r.Reason.String())
			}
			logger.Info("Back/forward cache not used", "reasons", reasons)
		}
	})

	actions := []chromedp.Action{chromedp.Navigate(site.URL)}
	if site.WaitForNetworkIdle {
		actions = append(actions, chromedp.WaitReady("body", chromedp.ByQuery))
	}
	if err := chromedp.Run(taskCtx, actions...); err != nil {
		return c.failed(run, err), nil
	}

	session, err := Attach(taskCtx, logger)
	if err != nil {
		return c.failed(run, err), nil
	}

	vp, err := vitals.NewPage(session.Environment(), func(m models.Metric) {
		run.Reports++
		report(c.newReport(run, m))
	}, vitals.Options{
		Metrics:          c.metrics,
		ReportAllChanges: c.config.Vitals.ReportAllChanges,
		Logger:           logger,
	})
	if err != nil {
		return nil, err
	}
	vp.Start()

	if err := c.observe(taskCtx, session, c.config.Vitals.SettleTime); err != nil {
		logger.Warn("Observation ended early", "error", err)
	} else if site.ProbeBFCache(c.config.Vitals.BFCacheProbe) {
		restored, err := c.probeBFCache(taskCtx, session, logger)
		if err != nil {
			logger.Warn("Back/forward cache probe failed", "error", err)
		}
		run.Restored = restored
	}

	// Page teardown: flush what is reported on hide
	vp.Finalize()
	run.Duration = time.Since(run.StartedAt)

	return run, nil
}

// Close shuts down the browser controller
// Each MeasureSite call creates and disposes of its own browser instance,
// so there's no persistent browser to shut down
func (c *ControllerImpl) Close() error {
	return nil
}

// observe pumps probe events for the settle window
func (c *ControllerImpl) observe(ctx context.Context, s *Session, settle time.Duration) error {
	ticker := time.NewTicker(c.config.Vitals.PollInterval)
	defer ticker.Stop()

	deadline := time.NewTimer(settle)
	defer deadline.Stop()

	for {
		if err := s.Pump(ctx); err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			return s.Pump(ctx)
		case <-ticker.C:
		}
	}
}

// probeBFCache navigates away and back, then observes the restored page.
// It reports whether the page came back from the back/forward cache.
func (c *ControllerImpl) probeBFCache(ctx context.Context, s *Session, logger *slog.Logger) (bool, error) {
	awayURL := c.config.Vitals.BFCacheProbeURL

	err := chromedp.Run(ctx,
		chromedp.Navigate(awayURL),
		chromedp.ActionFunc(func(ctx context.Context) error {
			current, entries, err := page.GetNavigationHistory().Do(ctx)
			if err != nil {
				return err
			}
			if current < 1 {
				return errors.New("no history entry to go back to")
			}
			return page.NavigateToHistoryEntry(entries[current-1].ID).Do(ctx)
		}),
	)
	if err != nil {
		return false, fmt.Errorf("history navigation failed: %w", err)
	}

	if err := c.waitForReturn(ctx, awayURL); err != nil {
		return false, err
	}

	err = c.observe(ctx, s, c.config.Vitals.SettleTime)
	switch {
	case errors.Is(err, ErrDocumentReplaced), errors.Is(err, ErrProbeMissing):
		logger.Info("Page was reloaded instead of restored")
		return false, nil
	case err != nil:
		return s.Restores() > 0, err
	}
	return s.Restores() > 0, nil
}

// waitForReturn polls until the browser has left awayURL
func (c *ControllerImpl) waitForReturn(ctx context.Context, awayURL string) error {
	ticker := time.NewTicker(c.config.Vitals.PollInterval)
	defer ticker.Stop()

	for {
		var location string
		if err := chromedp.Run(ctx, chromedp.Location(&location)); err != nil {
			return fmt.Errorf("failed to read location: %w", err)
		}
		if location != awayURL {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (c *ControllerImpl) newReport(run *models.PageRun, m models.Metric) *models.Report {
	return &models.Report{
		Timestamp: time.Now(),
		ReportID:  uuid.New().String(),
		PageID:    run.PageID,
		Site:      run.Site,
		Metric:    m,
		Metadata:  c.metadata,
	}
}

// failed records a page load failure on run
func (c *ControllerImpl) failed(run *models.PageRun, err error) *models.PageRun {
	run.Error = &models.ErrorInfo{
		ErrorType:    categorizeError(err),
		ErrorMessage: err.Error(),
	}
	run.Duration = time.Since(run.StartedAt)
	return run
}

// isChromeStartupFailure detects if Chrome failed to start (not a site issue)
func isChromeStartupFailure(err error) bool {
	errStr := strings.ToLower(err.Error())

	// Chrome startup failures typically contain these phrases
	return strings.Contains(errStr, "chrome failed to start") ||
		strings.Contains(errStr, "failed to start chrome") ||
		strings.Contains(errStr, "failed to allocate") ||
		strings.Contains(errStr, "cannot start chrome") ||
		strings.Contains(errStr, "executable file not found")
}

// categorizeError determines the error type
func categorizeError(err error) string {
	errStr := strings.ToLower(err.Error())

	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return "timeout"
	case errors.Is(err, ErrProbeMissing):
		return "probe"
	case strings.Contains(errStr, "err_name_not_resolved"), strings.Contains(errStr, "no such host"), strings.Contains(errStr, "dns"):
		return "dns"
	case strings.Contains(errStr, "err_connection_refused"), strings.Contains(errStr, "connection refused"):
		return "connection_refused"
	case strings.Contains(errStr, "err_cert"), strings.Contains(errStr, "err_ssl"), strings.Contains(errStr, "tls"):
		return "tls"
	case strings.Contains(errStr, "err_timed_out"), strings.Contains(errStr, "timeout"), strings.Contains(errStr, "deadline exceeded"):
		return "timeout"
	default:
		return "unknown"
	}
}
