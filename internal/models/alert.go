package models

import (
	"fmt"

	json "github.com/goccy/go-json"

	"github.com/rocketsafe/rocketsafe/internal/errors"
)

// AlertRecord is one historical rocket-warning event from the upstream feed.
// The feed serializes records as 4-tuples:
//
//	[warningSeconds, warningLevelSeconds, [cityNames...], timestampSeconds]
//
// The tuple layout is decoded once at the feed boundary; everything past that
// point works with named fields.
type AlertRecord struct {
	WarningSeconds      int      `json:"warning_seconds"`
	WarningLevelSeconds int      `json:"warning_level_seconds"`
	LocationNames       []string `json:"location_names"`
	Timestamp           int64    `json:"timestamp"`
}

// UnmarshalJSON decodes the upstream tuple form.
func (a *AlertRecord) UnmarshalJSON(data []byte) error {
	var parts []json.RawMessage
	if err := json.Unmarshal(data, &parts); err != nil {
		return fmt.Errorf("alert record is not an array: %w", err)
	}
	if len(parts) < 4 {
		return fmt.Errorf("alert record has %d fields, want 4", len(parts))
	}
	if err := json.Unmarshal(parts[0], &a.WarningSeconds); err != nil {
		return fmt.Errorf("alert warning seconds: %w", err)
	}
	if err := json.Unmarshal(parts[1], &a.WarningLevelSeconds); err != nil {
		return fmt.Errorf("alert warning level: %w", err)
	}
	if err := json.Unmarshal(parts[2], &a.LocationNames); err != nil {
		return fmt.Errorf("alert location names: %w", err)
	}
	if err := json.Unmarshal(parts[3], &a.Timestamp); err != nil {
		return fmt.Errorf("alert timestamp: %w", err)
	}
	return nil
}

// MarshalJSON re-encodes the record in the upstream tuple form so cached and
// re-served feeds stay byte-compatible with the original API.
func (a AlertRecord) MarshalJSON() ([]byte, error) {
	names := a.LocationNames
	if names == nil {
		names = []string{}
	}
	return json.Marshal([]interface{}{a.WarningSeconds, a.WarningLevelSeconds, names, a.Timestamp})
}

// Validate rejects records that cannot participate in risk computation.
func (a AlertRecord) Validate() error {
	if a.Timestamp <= 0 {
		return errors.ValidationError{Field: "timestamp", Message: "must be a positive epoch-seconds value"}
	}
	if a.WarningSeconds < 0 {
		return errors.ValidationError{Field: "warning_seconds", Message: "must be non-negative"}
	}
	if len(a.LocationNames) == 0 {
		return errors.ValidationError{Field: "location_names", Message: "must contain at least one name"}
	}
	return nil
}

// TimeWindow is a relative lookback period scoping which alerts count.
type TimeWindow string

const (
	Window24h   TimeWindow = "24h"
	WindowWeek  TimeWindow = "week"
	WindowMonth TimeWindow = "month"
	WindowAll   TimeWindow = "all"
)

const (
	secondsPerDay = 24 * 60 * 60

	// The month window is a fixed 30-day rolling period, not calendar-aware.
	window24hSeconds   int64 = secondsPerDay
	windowWeekSeconds  int64 = 7 * secondsPerDay
	windowMonthSeconds int64 = 30 * secondsPerDay
)

// ParseTimeWindow maps a query-string value to a TimeWindow.
func ParseTimeWindow(s string) (TimeWindow, error) {
	switch TimeWindow(s) {
	case Window24h, WindowWeek, WindowMonth, WindowAll:
		return TimeWindow(s), nil
	case "":
		return WindowAll, nil
	}
	return "", fmt.Errorf("unknown time window %q", s)
}

// Seconds returns the window length in seconds. The second return is false
// for WindowAll, which has no cutoff.
func (w TimeWindow) Seconds() (int64, bool) {
	switch w {
	case Window24h:
		return window24hSeconds, true
	case WindowWeek:
		return windowWeekSeconds, true
	case WindowMonth:
		return windowMonthSeconds, true
	default:
		return 0, false
	}
}

// Filter returns the records whose timestamp falls within the window relative
// to now (epoch seconds). WindowAll returns the input slice unchanged; callers
// must treat the result as read-only either way.
func (w TimeWindow) Filter(records []AlertRecord, now int64) []AlertRecord {
	windowSeconds, bounded := w.Seconds()
	if !bounded {
		return records
	}

	cutoff := now - windowSeconds
	filtered := make([]AlertRecord, 0, len(records))
	for _, rec := range records {
		if rec.Timestamp >= cutoff {
			filtered = append(filtered, rec)
		}
	}
	return filtered
}

// FrequencyTable maps a polygon id to its alert count under one time window.
// It always carries an entry for every known polygon, zero counts included.
type FrequencyTable map[string]int
