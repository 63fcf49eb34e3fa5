package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/nickborgers/monorepo/web-vitals-monitor/internal/browser"
	"github.com/nickborgers/monorepo/web-vitals-monitor/internal/config"
	"github.com/nickborgers/monorepo/web-vitals-monitor/internal/health"
	"github.com/nickborgers/monorepo/web-vitals-monitor/internal/measureloop"
	"github.com/nickborgers/monorepo/web-vitals-monitor/internal/metrics"
	"github.com/nickborgers/monorepo/web-vitals-monitor/internal/outputs"
)

var version = "1.0.0"

var (
	configFile string
	once       bool
	siteList   string
	logFormat  string
)

var rootCmd = &cobra.Command{
	Use:     "vitals-monitor",
	Short:   "Measure Core Web Vitals of real pages in a headless browser",
	Version: version,
	Long: `Web Vitals Monitor loads a list of sites one at a time in a fresh headless
Chrome, measures TTFB, FCP, LCP and CLS the way a real user's browser reports
them, and ships every report to stdout, Prometheus, Elasticsearch and SNMP.

Configuration comes from a YAML file (--config or CONFIG_FILE) with
environment variables taking precedence.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if configFile == "" {
			configFile = os.Getenv("CONFIG_FILE")
		}

		cfg, err := config.Load(configFile)
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		if err := applyFlags(cfg, siteList, logFormat); err != nil {
			return err
		}

		return run(cmd.Context(), cfg)
	},
}

func init() {
	rootCmd.Flags().StringVar(&configFile, "config", "", "Path to the YAML configuration file")
	rootCmd.Flags().BoolVar(&once, "once", false, "Measure every site once, print a summary and exit")
	rootCmd.Flags().StringVar(&siteList, "sites", "", "Comma separated sites to measure (url or name=url), replacing the configured list")
	rootCmd.Flags().StringVar(&logFormat, "log-format", "", "Report format on stdout: json, text or beacon")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// applyFlags lets command line flags override the loaded configuration
func applyFlags(cfg *config.Config, sites, format string) error {
	if sites != "" {
		list, err := config.ParseSimpleSiteList(sites)
		if err != nil {
			return fmt.Errorf("invalid --sites: %w", err)
		}
		cfg.Sites.List = list
	}
	if format != "" {
		cfg.Logging.Format = format
	}
	return cfg.Validate()
}

// newLogger builds the process logger. Reports go to stdout, so it writes to stderr.
func newLogger(cfg *config.LoggingConfig, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: outputs.ParseLogLevel(cfg.Level)}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

type closer interface {
	Close() error
}

func run(ctx context.Context, cfg *config.Config) error {
	logger := newLogger(&cfg.Logging, os.Stderr)
	slog.SetDefault(logger)

	printBanner(os.Stderr)
	logger.Info("Loaded configuration",
		"sites", len(cfg.Sites.List),
		"inter_test_delay", cfg.General.InterTestDelay,
		"metrics", cfg.Vitals.Metrics,
		"bfcache_probe", cfg.Vitals.BFCacheProbe,
	)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	browserCtrl, err := browser.NewController(cfg, version, logger)
	if err != nil {
		return fmt.Errorf("failed to create browser controller: %w", err)
	}
	logger.Info("✓ Browser controller initialized")

	dispatcher := metrics.NewDispatcher(logger)
	stats := metrics.NewCollector(cfg.General.CacheSize)
	dispatcher.RegisterOutput(stats)

	reportLogger, err := outputs.NewLogger(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to create report logger: %w", err)
	}
	dispatcher.RegisterOutput(reportLogger)
	logger.Info("✓ Report logger enabled", "format", cfg.Logging.Format)

	// Closed in reverse order of creation
	var closers []struct {
		name string
		c    closer
	}
	register := func(name string, c closer) {
		closers = append(closers, struct {
			name string
			c    closer
		}{name, c})
	}
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i].c.Close(); err != nil {
				logger.Warn("Error closing "+closers[i].name, "error", err)
			} else {
				logger.Info("✓ " + closers[i].name + " closed")
			}
		}
	}()
	register("Browser", browserCtrl)

	esOutput, err := outputs.NewElasticsearchOutput(&cfg.Elasticsearch, logger)
	if err != nil {
		return fmt.Errorf("failed to create Elasticsearch output: %w", err)
	}
	if esOutput != nil {
		dispatcher.RegisterOutput(esOutput)
		register("Elasticsearch output", esOutput)
		logger.Info("✓ Elasticsearch output enabled", "endpoint", cfg.Elasticsearch.Endpoint)
	}

	promOutput, err := outputs.NewPrometheusOutput(&cfg.Prometheus, stats, logger)
	if err != nil {
		return fmt.Errorf("failed to create Prometheus output: %w", err)
	}
	if promOutput != nil {
		dispatcher.RegisterOutput(promOutput)
		register("Prometheus exporter", promOutput)
		logger.Info("✓ Prometheus exporter enabled")
	}

	snmpAgent, err := outputs.NewSNMPAgent(&cfg.SNMP, stats, logger)
	if err != nil {
		return fmt.Errorf("failed to create SNMP agent: %w", err)
	}
	if snmpAgent != nil {
		register("SNMP agent", snmpAgent)
		logger.Info("✓ SNMP agent enabled")
	}

	healthServer, err := health.NewHealthServer(&health.Config{
		Enabled:       cfg.Advanced.HealthCheckEnabled && !once,
		Port:          cfg.Advanced.HealthCheckPort,
		Path:          cfg.Advanced.HealthCheckPath,
		ListenAddress: cfg.Advanced.HealthCheckListenAddress,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to create health check server: %w", err)
	}
	if healthServer != nil {
		register("Health check server", healthServer)
		logger.Info("✓ Health check endpoint enabled")
	}

	loop := measureloop.NewMeasureLoop(cfg, browserCtrl, dispatcher, healthServer, logger)
	logger.Info("✓ Measurement loop initialized", "outputs", dispatcher.Outputs())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	if once {
		go func() {
			select {
			case <-sigChan:
				cancel()
			case <-ctx.Done():
			}
		}()

		runs, err := loop.RunOnce(ctx)
		printSummary(os.Stdout, stats.Snapshot())
		if err != nil {
			return err
		}

		failed := 0
		for _, r := range runs {
			if !r.Succeeded() {
				failed++
			}
		}
		if len(runs) == 0 || failed == len(runs) {
			return errors.New("no site could be measured")
		}
		return nil
	}

	loopDone := make(chan error, 1)
	go func() {
		loopDone <- loop.Run(ctx)
	}()

	logger.Info("Web Vitals Monitor started. Press Ctrl+C to stop.")

	var loopErr error
	select {
	case <-sigChan:
		logger.Info("Received shutdown signal")
	case loopErr = <-loopDone:
		if errors.Is(loopErr, measureloop.ErrChromeUnavailable) {
			fmt.Fprintf(os.Stderr, "FATAL: %v - container needs restart\n", loopErr)
			return loopErr
		}
		if loopErr != nil {
			logger.Error("Measurement loop exited with error", "error", loopErr)
		}
	}

	logger.Info("Shutting down gracefully")
	cancel()

	if loopErr == nil {
		select {
		case <-loopDone:
			logger.Info("✓ Measurement loop stopped")
		case <-time.After(cfg.Advanced.ShutdownTimeout):
			logger.Warn("⚠ Shutdown timeout exceeded")
		}
	}

	return nil
}

// printSummary writes the p75 of every site and metric as a table
func printSummary(w io.Writer, snapshot []metrics.MetricStats) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SITE\tMETRIC\tP75\tRATING\tREPORTS")
	for _, s := range snapshot {
		p75 := fmt.Sprintf("%.3f", s.P75)
		if unit := s.Metric.Unit(); unit != "" {
			p75 = fmt.Sprintf("%.0f %s", s.P75, unit)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\n", s.Site, s.Metric, p75, s.Rating, s.Count)
	}
	tw.Flush()
}

func printBanner(w io.Writer) {
	fmt.Fprintln(w, "╔════════════════════════════════════════════════════════════════╗")
	fmt.Fprintln(w, "║  Web Vitals Monitor                                            ║")
	fmt.Fprintf(w, "║  Version: %-52s ║\n", version)
	fmt.Fprintln(w, "║  Core Web Vitals from a real browser's perspective             ║")
	fmt.Fprintln(w, "╚════════════════════════════════════════════════════════════════╝")
	fmt.Fprintln(w)
}
