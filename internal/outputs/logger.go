package outputs

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/nickborgers/monorepo/web-vitals-monitor/internal/config"
	"github.com/nickborgers/monorepo/web-vitals-monitor/internal/models"
)

// Logger writes every report to stdout as a JSON line, a structured text
// record or a beacon query string
type Logger struct {
	config *config.LoggingConfig
	out    io.Writer
	logger *slog.Logger
	mu     sync.Mutex

	colored bool
	good    *color.Color
	ni      *color.Color
	poor    *color.Color
}

// NewLogger creates a logger output writing to stdout
func NewLogger(cfg *config.LoggingConfig) (*Logger, error) {
	return newLogger(cfg, os.Stdout)
}

func newLogger(cfg *config.LoggingConfig, out io.Writer) (*Logger, error) {
	switch cfg.Format {
	case "json", "text", "beacon":
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}

	l := &Logger{
		config: cfg,
		out:    out,
		good:   color.New(color.FgGreen, color.Bold),
		ni:     color.New(color.FgYellow, color.Bold),
		poor:   color.New(color.FgRed, color.Bold),
	}
	l.setColor(isTerminal(out))

	// Reports are data, so the process log level does not filter them
	if cfg.Format == "text" {
		l.logger = slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	}

	return l, nil
}

func (l *Logger) setColor(on bool) {
	l.colored = on
	for _, c := range []*color.Color{l.good, l.ni, l.poor} {
		if on {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
}

// Write outputs one report
func (l *Logger) Write(report *models.Report) error {
	switch l.config.Format {
	case "json":
		data, err := json.Marshal(report)
		if err != nil {
			return err
		}
		return l.writeLine(data)

	case "beacon":
		values, err := report.Metric.Beacon().Values()
		if err != nil {
			return err
		}
		return l.writeLine([]byte(values.Encode()))
	}

	m := report.Metric
	attrs := []any{
		"site", report.Site.Name,
		"metric", string(m.Name),
		"value", formatValue(m.Name, m.Value),
		"delta", formatValue(m.Name, m.Delta),
		"rating", string(m.Rating),
		"navigation_type", string(m.NavigationType),
		"id", m.ID,
	}
	if m.Attribution != nil {
		components := m.Attribution.Components()
		for _, k := range models.ComponentNames(m.Attribution) {
			attrs = append(attrs, k, formatValue(m.Name, components[k]))
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	// the text handler escapes control characters, so color stays outside the record
	if c := l.ratingColor(m.Rating); l.colored && c != nil {
		if _, err := c.Fprint(l.out, "● "); err != nil {
			return err
		}
	}
	l.logger.Info("web_vital", attrs...)
	return nil
}

// Name returns the output module name
func (l *Logger) Name() string {
	return "logger"
}

func (l *Logger) writeLine(data []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, err := l.out.Write(append(data, '\n')); err != nil {
		return err
	}
	return nil
}

func (l *Logger) ratingColor(r models.Rating) *color.Color {
	switch r {
	case models.RatingGood:
		return l.good
	case models.RatingNeedsImprovement:
		return l.ni
	case models.RatingPoor:
		return l.poor
	}
	return nil
}

// formatValue renders milliseconds with one decimal and CLS with four
func formatValue(name models.MetricName, v float64) string {
	if name == models.MetricCLS {
		return strconv.FormatFloat(v, 'f', 4, 64)
	}
	return strconv.FormatFloat(v, 'f', 1, 64)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// ParseLogLevel converts string to slog.Level
func ParseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
