package browser

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nickborgers/monorepo/web-vitals-monitor/internal/models"
	"github.com/nickborgers/monorepo/web-vitals-monitor/internal/vitals"
)

// rawNavigation is a navigation entry as the probe serializes it (PerformanceNavigationTiming.toJSON)
func rawNavigation() map[string]interface{} {
	return map[string]interface{}{
		"name":                       "https://example.com/",
		"entryType":                  "navigation",
		"startTime":                  0.0,
		"duration":                   950.5,
		"type":                       "navigate",
		"initiatorType":              "navigation",
		"activationStart":            0.0,
		"domainLookupStart":          10.0,
		"connectStart":               12.0,
		"requestStart":               15.0,
		"responseStart":              50.0,
		"domInteractive":             300.0,
		"domContentLoadedEventStart": 400.0,
		"loadEventStart":             900.0,
		"transferSize":               12345.0,
		"serverTiming":               []interface{}{},
		"wasDiscarded":               false,
	}
}

func testSession(t *testing.T) *Session {
	t.Helper()
	s, err := newSession(probeInit{
		Instance:   "abc",
		Supported:  []string{"navigation", "paint", "largest-contentful-paint", "layout-shift"},
		Visibility: "visible",
		Navigation: rawNavigation(),
	}, slog.Default())
	require.NoError(t, err)
	return s
}

func TestDecodeNavigation(t *testing.T) {
	nav, err := decodeNavigation(rawNavigation())
	require.NoError(t, err)

	assert.Equal(t, "navigate", nav.NavType)
	assert.Equal(t, 10.0, nav.DomainLookupStart)
	assert.Equal(t, 50.0, nav.ResponseStart)
	assert.Equal(t, int64(12345), nav.TransferSize)
	assert.Equal(t, 900.0, nav.LoadEventStart)

	nav, err = decodeNavigation(nil)
	assert.NoError(t, err)
	assert.Nil(t, nav)
}

func TestDecodeEntries(t *testing.T) {
	lcp, err := decodeEntries(models.EntryTypeLargestContentfulPaint, []map[string]interface{}{{
		"startTime": 812.3,
		"size":      50000.0,
		"url":       "https://example.com/hero.jpg",
		"element":   "img.hero",
		"resource": map[string]interface{}{
			"name": "https://example.com/hero.jpg", "startTime": 200.0, "requestStart": 210.0, "responseEnd": 600.0,
		},
	}, {
		"startTime": 900.0,
		"element":   "h1",
		"resource":  nil,
	}})
	require.NoError(t, err)
	require.Len(t, lcp, 2)

	first := lcp[0].(*models.LargestContentfulPaintEntry)
	assert.Equal(t, 812.3, first.Time())
	assert.Equal(t, int64(50000), first.Size)
	require.NotNil(t, first.Resource)
	assert.Equal(t, 600.0, first.Resource.ResponseEnd)
	assert.Nil(t, lcp[1].(*models.LargestContentfulPaintEntry).Resource)

	shifts, err := decodeEntries(models.EntryTypeLayoutShift, []map[string]interface{}{{
		"startTime":      120.0,
		"value":          0.03,
		"hadRecentInput": true,
		"sources":        []interface{}{map[string]interface{}{"node": "div#ad"}},
	}})
	require.NoError(t, err)
	shift := shifts[0].(*models.LayoutShiftEntry)
	assert.True(t, shift.HadRecentInput)
	assert.Equal(t, "div#ad", shift.Sources[0].Node)

	_, err = decodeEntries(models.EntryType("event"), []map[string]interface{}{{}})
	assert.Error(t, err)
}

func TestNewSessionWithoutProbe(t *testing.T) {
	_, err := newSession(probeInit{}, slog.Default())
	assert.ErrorIs(t, err, ErrProbeMissing)
}

func TestSessionSubscribe(t *testing.T) {
	s, err := newSession(probeInit{Instance: "abc", Supported: []string{"paint"}}, slog.Default())
	require.NoError(t, err)

	_, ok := s.Subscribe(models.EntryTypeLayoutShift, func([]models.Entry) {})
	assert.False(t, ok, "unsupported entry type")

	var got []models.Entry
	unsubscribe, ok := s.Subscribe(models.EntryTypePaint, func(e []models.Entry) { got = append(got, e...) })
	require.True(t, ok)
	assert.Equal(t, vitals.Visible, s.CurrentVisibility())

	batch := probeDrain{Instance: "abc", Events: []map[string]interface{}{{
		"type":      "entries",
		"entryType": "paint",
		"entries":   []interface{}{map[string]interface{}{"name": "first-contentful-paint", "startTime": 120.0}},
	}}}
	require.NoError(t, s.apply(batch))
	require.Len(t, got, 1)
	assert.Equal(t, 120.0, got[0].Time())

	unsubscribe()
	require.NoError(t, s.apply(batch))
	assert.Len(t, got, 1)
}

func TestSessionDeliversInOrder(t *testing.T) {
	s := testSession(t)

	var log []string
	s.OnVisibilityChange(func(state vitals.VisibilityState, ts float64) {
		log = append(log, string(state))
	})
	s.OnPageRestoredFromCache(func(ts float64) {
		assert.Equal(t, vitals.Visible, s.CurrentVisibility())
		log = append(log, "restore")
	})
	s.Subscribe(models.EntryTypeLayoutShift, func([]models.Entry) {
		log = append(log, "shift")
	})

	err := s.apply(probeDrain{Instance: "abc", Events: []map[string]interface{}{
		{"type": "entries", "entryType": "layout-shift", "entries": []interface{}{map[string]interface{}{"startTime": 10.0, "value": 0.1}}},
		{"type": "visibility", "state": "hidden", "time": 2000.0},
		{"type": "restore", "time": 5000.0},
		{"type": "bogus"},
		{"type": "visibility", "state": "prerender"},
		{"type": "entries", "entryType": "layout-shift", "entries": []interface{}{map[string]interface{}{"startTime": 5100.0, "value": 0.2}}},
	}})
	require.NoError(t, err)

	assert.Equal(t, []string{"shift", "hidden", "restore", "shift"}, log)
	assert.Equal(t, 1, s.Restores())
}

func TestSessionDocumentReplaced(t *testing.T) {
	s := testSession(t)
	assert.ErrorIs(t, s.apply(probeDrain{Instance: "other"}), ErrDocumentReplaced)
}

func TestSessionRefreshesNavigation(t *testing.T) {
	s := testSession(t)

	nav := rawNavigation()
	nav["loadEventStart"] = 1200.0
	require.NoError(t, s.apply(probeDrain{Instance: "abc", Navigation: nav}))
	assert.Equal(t, 1200.0, s.NavigationEntry().LoadEventStart)

	// a batch without a navigation entry keeps the last one
	require.NoError(t, s.apply(probeDrain{Instance: "abc"}))
	assert.Equal(t, 1200.0, s.NavigationEntry().LoadEventStart)
}

func TestSessionActivation(t *testing.T) {
	s, err := newSession(probeInit{Instance: "abc", Prerendering: true, Visibility: "hidden"}, slog.Default())
	require.NoError(t, err)
	assert.True(t, s.Prerendering())

	activated := 0
	s.OnActivated(func() { activated++ })

	activate := probeDrain{Instance: "abc", Events: []map[string]interface{}{{"type": "activated"}}}
	require.NoError(t, s.apply(activate))
	require.NoError(t, s.apply(activate))

	assert.False(t, s.Prerendering())
	assert.Equal(t, 1, activated)
}

// TestSessionDrivesPage runs the engine over a session fed with probe batches
func TestSessionDrivesPage(t *testing.T) {
	s := testSession(t)

	var reports []models.Metric
	p, err := vitals.NewPage(s.Environment(), func(m models.Metric) { reports = append(reports, m) }, vitals.Options{})
	require.NoError(t, err)
	p.Start()

	require.NoError(t, s.apply(probeDrain{Instance: "abc", Events: []map[string]interface{}{
		{"type": "entries", "entryType": "navigation", "entries": []interface{}{rawNavigation()}},
		{"type": "entries", "entryType": "paint", "entries": []interface{}{
			map[string]interface{}{"name": "first-paint", "startTime": 100.0},
			map[string]interface{}{"name": "first-contentful-paint", "startTime": 120.0},
		}},
		{"type": "entries", "entryType": "largest-contentful-paint", "entries": []interface{}{
			map[string]interface{}{"startTime": 450.0, "element": "img"},
		}},
		{"type": "visibility", "state": "hidden", "time": 3000.0},
		{"type": "restore", "time": 6000.0},
	}}))

	byName := map[models.MetricName][]models.Metric{}
	for _, m := range reports {
		byName[m.Name] = append(byName[m.Name], m)
	}

	require.Len(t, byName[models.MetricTTFB], 2)
	assert.Equal(t, 50.0, byName[models.MetricTTFB][0].Value)
	attr := byName[models.MetricTTFB][0].Attribution.(*models.TTFBAttribution)
	assert.Equal(t, 35.0, attr.RequestTime)

	require.Len(t, byName[models.MetricFCP], 2)
	assert.Equal(t, 120.0, byName[models.MetricFCP][0].Value)
	assert.Equal(t, models.NavigationBackForwardCache, byName[models.MetricFCP][1].NavigationType)

	require.Len(t, byName[models.MetricLCP], 2)
	assert.Equal(t, 450.0, byName[models.MetricLCP][0].Value)

	require.Len(t, byName[models.MetricCLS], 1)
	assert.Equal(t, 0.0, byName[models.MetricCLS][0].Value)
}

func TestSessionReplaysEntriesToLateSubscribers(t *testing.T) {
	s := testSession(t)

	paint := []interface{}{map[string]interface{}{"name": "first-contentful-paint", "startTime": 120.0}}
	require.NoError(t, s.apply(probeDrain{Instance: "abc", Events: []map[string]interface{}{
		{"type": "entries", "entryType": "paint", "entries": paint},
	}}))

	var got []models.Entry
	_, ok := s.Subscribe(models.EntryTypePaint, func(e []models.Entry) { got = append(got, e...) })
	require.True(t, ok)
	assert.Empty(t, got, "replay waits for the next batch")

	require.NoError(t, s.apply(probeDrain{Instance: "abc", Events: []map[string]interface{}{
		{"type": "entries", "entryType": "paint", "entries": []interface{}{
			map[string]interface{}{"name": "first-paint", "startTime": 300.0},
		}},
	}}))
	require.Len(t, got, 2)
	assert.Equal(t, 120.0, got[0].Time())
	assert.Equal(t, 300.0, got[1].Time())
}

// TestSessionPrerenderedPage activates a prerendered page in the same batch
// that carries its navigation and paint entries
func TestSessionPrerenderedPage(t *testing.T) {
	s, err := newSession(probeInit{
		Instance:     "abc",
		Supported:    []string{"navigation", "paint", "largest-contentful-paint", "layout-shift"},
		Visibility:   "visible",
		Prerendering: true,
		Navigation:   rawNavigation(),
	}, slog.Default())
	require.NoError(t, err)

	var reports []models.Metric
	p, err := vitals.NewPage(s.Environment(), func(m models.Metric) { reports = append(reports, m) }, vitals.Options{})
	require.NoError(t, err)
	p.Start()

	activatedNav := rawNavigation()
	activatedNav["activationStart"] = 30.0

	require.NoError(t, s.apply(probeDrain{Instance: "abc", Navigation: activatedNav, Events: []map[string]interface{}{
		// observed while prerendering, before activationStart was known
		{"type": "entries", "entryType": "navigation", "entries": []interface{}{rawNavigation()}},
		{"type": "entries", "entryType": "paint", "entries": []interface{}{
			map[string]interface{}{"name": "first-contentful-paint", "startTime": 120.0},
		}},
		{"type": "activated"},
	}}))

	byName := map[models.MetricName][]models.Metric{}
	for _, m := range reports {
		byName[m.Name] = append(byName[m.Name], m)
	}

	require.Len(t, byName[models.MetricTTFB], 1)
	assert.Equal(t, 20.0, byName[models.MetricTTFB][0].Value)
	assert.Equal(t, models.NavigationPrerender, byName[models.MetricTTFB][0].NavigationType)

	require.Len(t, byName[models.MetricFCP], 1)
	assert.Equal(t, 90.0, byName[models.MetricFCP][0].Value)
}
