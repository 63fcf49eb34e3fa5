package browser

import (
	"context"
	"log/slog"

	"github.com/nickborgers/monorepo/web-vitals-monitor/internal/config"
	"github.com/nickborgers/monorepo/web-vitals-monitor/internal/models"
)

// ReportFunc receives every metric report of a measured page
type ReportFunc func(*models.Report)

// Controller is the interface for browser automation
type Controller interface {
	// MeasureSite loads the site in a fresh browser and measures one page
	// life. Page load failures are described by the returned PageRun;
	// the error is reserved for failures unrelated to the site.
	MeasureSite(ctx context.Context, site models.SiteDefinition, report ReportFunc) (*models.PageRun, error)
	Close() error
}

// NewController creates a new browser controller
func NewController(cfg *config.Config, version string, logger *slog.Logger) (Controller, error) {
	return NewControllerImpl(cfg, version, logger)
}
