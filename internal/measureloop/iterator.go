package measureloop

import (
	"sync"

	"github.com/nickborgers/monorepo/web-vitals-monitor/internal/models"
)

// SiteIterator hands out sites round-robin so every site gets the same share
// of page lives over time
type SiteIterator struct {
	sites   []models.SiteDefinition
	current int
	mu      sync.Mutex
}

// NewSiteIterator creates a new site iterator
func NewSiteIterator(sites []models.SiteDefinition) *SiteIterator {
	return &SiteIterator{sites: sites}
}

// Next returns the next site to measure. It returns the zero site when none are configured.
func (i *SiteIterator) Next() models.SiteDefinition {
	i.mu.Lock()
	defer i.mu.Unlock()

	if len(i.sites) == 0 {
		return models.SiteDefinition{}
	}

	site := i.sites[i.current]
	i.current = (i.current + 1) % len(i.sites)
	return site
}

// Cycle returns one full round of sites starting at the current position,
// without advancing it
func (i *SiteIterator) Cycle() []models.SiteDefinition {
	i.mu.Lock()
	defer i.mu.Unlock()

	round := make([]models.SiteDefinition, 0, len(i.sites))
	for n := 0; n < len(i.sites); n++ {
		round = append(round, i.sites[(i.current+n)%len(i.sites)])
	}
	return round
}

// Count returns the total number of sites
func (i *SiteIterator) Count() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return len(i.sites)
}

// Reset resets the iterator to the first site
func (i *SiteIterator) Reset() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.current = 0
}
