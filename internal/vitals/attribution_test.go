package vitals

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nickborgers/monorepo/web-vitals-monitor/internal/models"
)

func sum(components map[string]float64) float64 {
	total := 0.0
	for _, v := range components {
		total += v
	}
	return total
}

func TestAttributeLCPWithResource(t *testing.T) {
	nav := &models.NavigationEntry{ResponseStart: 100}
	lcp := &models.LargestContentfulPaintEntry{
		StartTime: 1000,
		Element:   "img",
		URL:       "https://example.com/hero.jpg",
		Resource:  &models.ResourceTiming{StartTime: 250, RequestStart: 300, ResponseEnd: 700},
	}

	attr := Attribute(models.MetricLCP, AttributionInput{
		Entries:    []models.Entry{lcp},
		Navigation: nav,
		Value:      1000,
	}).(*models.LCPAttribution)

	assert.Equal(t, 100.0, attr.TimeToFirstByte)
	assert.Equal(t, 200.0, attr.ResourceLoadDelay)
	assert.Equal(t, 400.0, attr.ResourceLoadDuration)
	assert.Equal(t, 300.0, attr.ElementRenderDelay)
	assert.Equal(t, 1000.0, sum(attr.Components()))
	assert.Equal(t, "https://example.com/hero.jpg", attr.Labels()["url"])
}

func TestAttributeLCPWithoutResource(t *testing.T) {
	nav := &models.NavigationEntry{ResponseStart: 100}
	lcp := &models.LargestContentfulPaintEntry{StartTime: 400, Element: "p"}

	attr := Attribute(models.MetricLCP, AttributionInput{
		Entries:    []models.Entry{lcp},
		Navigation: nav,
		Value:      400,
	}).(*models.LCPAttribution)

	assert.Equal(t, 100.0, attr.TimeToFirstByte)
	assert.Zero(t, attr.ResourceLoadDelay)
	assert.Zero(t, attr.ResourceLoadDuration)
	assert.Equal(t, 300.0, attr.ElementRenderDelay)
}

func TestAttributeLCPResourceBeforeActivation(t *testing.T) {
	// the resource was fetched while prerendering
	nav := &models.NavigationEntry{ActivationStart: 500, ResponseStart: 100}
	lcp := &models.LargestContentfulPaintEntry{
		StartTime: 600,
		Resource:  &models.ResourceTiming{RequestStart: 200, ResponseEnd: 400},
	}

	attr := Attribute(models.MetricLCP, AttributionInput{
		Entries:         []models.Entry{lcp},
		Navigation:      nav,
		ActivationStart: 500,
		Value:           100,
	}).(*models.LCPAttribution)

	for k, v := range attr.Components() {
		assert.GreaterOrEqual(t, v, 0.0, k)
	}
	assert.Equal(t, 100.0, attr.ElementRenderDelay)
	assert.Equal(t, 100.0, sum(attr.Components()))
}

func TestAttributeTTFBComponentsNeverNegative(t *testing.T) {
	tests := []struct {
		name  string
		nav   *models.NavigationEntry
		act   float64
		value float64
	}{
		{"ordered", &models.NavigationEntry{DomainLookupStart: 1, ConnectStart: 2, RequestStart: 3, ResponseStart: 9}, 0, 9},
		{"reused connection", &models.NavigationEntry{DomainLookupStart: 5, ConnectStart: 0, RequestStart: 6, ResponseStart: 10}, 0, 10},
		{"activation after request", &models.NavigationEntry{DomainLookupStart: 5, ConnectStart: 6, RequestStart: 7, ResponseStart: 50}, 20, 30},
		{"request after first byte", &models.NavigationEntry{DomainLookupStart: 1, ConnectStart: 2, RequestStart: 30, ResponseStart: 20}, 0, 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			attr := Attribute(models.MetricTTFB, AttributionInput{
				Entries:         []models.Entry{tt.nav},
				Navigation:      tt.nav,
				ActivationStart: tt.act,
				Value:           tt.value,
			})
			for k, v := range attr.Components() {
				assert.GreaterOrEqual(t, v, 0.0, k)
			}
			assert.InDelta(t, tt.value, sum(attr.Components()), 1e-9)
		})
	}
}

func TestAttributeTTFBWithoutNavigationEntry(t *testing.T) {
	attr := Attribute(models.MetricTTFB, AttributionInput{Value: 0})
	require.NotNil(t, attr)
	assert.Zero(t, sum(attr.Components()))
}

func TestAttributeFCPRenderDelay(t *testing.T) {
	nav := &models.NavigationEntry{ResponseStart: 80, DomInteractive: 100, DomContentLoadedEventStart: 150}
	fcp := &models.PaintEntry{Name: models.FirstContentfulPaint, StartTime: 120}

	attr := Attribute(models.MetricFCP, AttributionInput{
		Entries:    []models.Entry{fcp},
		Navigation: nav,
		Value:      120,
	}).(*models.FCPAttribution)

	assert.Equal(t, 80.0, attr.TimeToFirstByte)
	assert.Equal(t, 40.0, attr.RenderDelay)
	assert.Equal(t, models.LoadStateDomInteractive, attr.LoadState)
	assert.Same(t, fcp, attr.FCPEntry)
}

func TestAttributeUnknownMetric(t *testing.T) {
	assert.Nil(t, Attribute(models.MetricINP, AttributionInput{}))
}

func TestLoadStateAt(t *testing.T) {
	nav := &models.NavigationEntry{DomInteractive: 100, DomContentLoadedEventStart: 200, LoadEventStart: 300}
	partial := &models.NavigationEntry{DomInteractive: 100}

	tests := []struct {
		name string
		nav  *models.NavigationEntry
		ts   float64
		want models.LoadState
	}{
		{"no entry", nil, 50, models.LoadStateLoaded},
		{"before interactive", nav, 50, models.LoadStateLoading},
		{"at interactive", nav, 100, models.LoadStateDomInteractive},
		{"before content loaded", nav, 199, models.LoadStateDomInteractive},
		{"content loaded", nav, 250, models.LoadStateDomContentLoaded},
		{"loaded", nav, 300, models.LoadStateLoaded},
		{"content loaded pending", partial, 150, models.LoadStateDomInteractive},
		{"nothing yet", &models.NavigationEntry{}, 10, models.LoadStateLoading},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, LoadStateAt(tt.nav, tt.ts))
		})
	}
}

func TestShift(t *testing.T) {
	assert.Equal(t, 5.0, Shift(15, 10))
	assert.Equal(t, 0.0, Shift(5, 10))
	assert.Equal(t, 0.0, ActivationStart(nil))
	assert.Equal(t, 0.0, ActivationStart(&models.NavigationEntry{ActivationStart: -1}))
	assert.Equal(t, 7.0, ActivationStart(&models.NavigationEntry{ActivationStart: 7}))
}

// TestAttributeTTFBClampsPhasesInOrder covers navigation timings that are out
// of order or past the first byte: each phase start is held between the
// previous phase start and the value, so no component goes negative.
func TestAttributeTTFBClampsPhasesInOrder(t *testing.T) {
	tests := []struct {
		name string
		nav  models.NavigationEntry
		want models.TTFBAttribution
	}{
		{
			name: "request starts after first byte",
			nav:  models.NavigationEntry{DomainLookupStart: 10, ConnectStart: 20, RequestStart: 80, ResponseStart: 50},
			want: models.TTFBAttribution{WaitingTime: 10, DNSTime: 10, ConnectionTime: 30, RequestTime: 0},
		},
		{
			name: "connect reported before dns",
			nav:  models.NavigationEntry{DomainLookupStart: 30, ConnectStart: 10, RequestStart: 40, ResponseStart: 50},
			want: models.TTFBAttribution{WaitingTime: 30, DNSTime: 0, ConnectionTime: 10, RequestTime: 10},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nav := tt.nav
			attr := Attribute(models.MetricTTFB, AttributionInput{
				Entries:    []models.Entry{&nav},
				Navigation: &nav,
				Value:      nav.ResponseStart,
			}).(*models.TTFBAttribution)

			assert.Equal(t, tt.want.WaitingTime, attr.WaitingTime)
			assert.Equal(t, tt.want.DNSTime, attr.DNSTime)
			assert.Equal(t, tt.want.ConnectionTime, attr.ConnectionTime)
			assert.Equal(t, tt.want.RequestTime, attr.RequestTime)
			assert.Equal(t, nav.ResponseStart, sum(attr.Components()))
		})
	}
}
