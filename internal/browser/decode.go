package browser

import (
	"fmt"

	"github.com/mitchellh/mapstructure"

	"github.com/nickborgers/monorepo/web-vitals-monitor/internal/models"
)

// Probe event types
const (
	eventEntries    = "entries"
	eventVisibility = "visibility"
	eventRestore    = "restore"
	eventActivated  = "activated"
)

// probeInit is what the probe reports when the session attaches
type probeInit struct {
	Instance     string                 `json:"instance"`
	Supported    []string               `json:"supported"`
	Visibility   string                 `json:"visibility"`
	Prerendering bool                   `json:"prerendering"`
	Navigation   map[string]interface{} `json:"navigation"`
}

// probeDrain is one drained batch of queued events
type probeDrain struct {
	Instance   string                   `json:"instance"`
	Events     []map[string]interface{} `json:"events"`
	Navigation map[string]interface{}   `json:"navigation"`
}

// probeEvent is a queued event after decoding the envelope
type probeEvent struct {
	Type      string                   `mapstructure:"type"`
	EntryType string                   `mapstructure:"entryType"`
	Entries   []map[string]interface{} `mapstructure:"entries"`
	State     string                   `mapstructure:"state"`
	Time      float64                  `mapstructure:"time"`
}

func decode(input interface{}, out interface{}) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	return dec.Decode(input)
}

func decodeEvent(raw map[string]interface{}) (probeEvent, error) {
	var ev probeEvent
	if err := decode(raw, &ev); err != nil {
		return ev, fmt.Errorf("failed to decode probe event: %w", err)
	}
	if ev.Type == "" {
		return ev, fmt.Errorf("probe event without type")
	}
	return ev, nil
}

// decodeNavigation returns nil for a missing entry
func decodeNavigation(raw map[string]interface{}) (*models.NavigationEntry, error) {
	if raw == nil {
		return nil, nil
	}
	nav := &models.NavigationEntry{}
	if err := decode(raw, nav); err != nil {
		return nil, fmt.Errorf("failed to decode navigation entry: %w", err)
	}
	return nav, nil
}

// decodeEntries converts raw entries of one type into their typed form
func decodeEntries(entryType models.EntryType, raw []map[string]interface{}) ([]models.Entry, error) {
	entries := make([]models.Entry, 0, len(raw))
	for _, r := range raw {
		var entry models.Entry
		switch entryType {
		case models.EntryTypeNavigation:
			entry = &models.NavigationEntry{}
		case models.EntryTypePaint:
			entry = &models.PaintEntry{}
		case models.EntryTypeLargestContentfulPaint:
			entry = &models.LargestContentfulPaintEntry{}
		case models.EntryTypeLayoutShift:
			entry = &models.LayoutShiftEntry{}
		default:
			return nil, fmt.Errorf("unknown entry type %q", entryType)
		}

		if err := decode(r, entry); err != nil {
			return nil, fmt.Errorf("failed to decode %s entry: %w", entryType, err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
