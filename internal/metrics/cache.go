package metrics

import (
	"sync"

	"github.com/nickborgers/monorepo/web-vitals-monitor/internal/models"
)

// ReportsCache stores recent reports in memory (ephemeral)
// It backs the SNMP API and resets on container restart
type ReportsCache struct {
	maxSize int
	reports []*models.Report
	mu      sync.RWMutex
}

// NewReportsCache creates a new reports cache with the specified size
func NewReportsCache(maxSize int) *ReportsCache {
	if maxSize <= 0 {
		maxSize = 1
	}
	return &ReportsCache{
		maxSize: maxSize,
		reports: make([]*models.Report, 0, maxSize),
	}
}

// Add adds a report to the cache, evicting the oldest when full
func (c *ReportsCache) Add(report *models.Report) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.reports = append(c.reports, report)
	if len(c.reports) > c.maxSize {
		c.reports = c.reports[len(c.reports)-c.maxSize:]
	}
}

// GetLast returns the N most recent reports, oldest first
func (c *ReportsCache) GetLast(n int) []*models.Report {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if n > len(c.reports) {
		n = len(c.reports)
	}
	if n < 0 {
		n = 0
	}

	// Copy to avoid races with Add
	reports := make([]*models.Report, n)
	copy(reports, c.reports[len(c.reports)-n:])
	return reports
}

// Count returns the current number of cached reports
func (c *ReportsCache) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.reports)
}

// Clear empties the cache
func (c *ReportsCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reports = make([]*models.Report, 0, c.maxSize)
}
