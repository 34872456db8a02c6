package risk

// Tier is an ordinal risk classification derived from alert counts. The
// string values and the threshold boundaries below are contracts with the
// map UI (polygon colors, safety messaging) and must not drift.
type Tier string

const (
	TierSafe     Tier = "safe"
	TierNone     Tier = "none"
	TierLow      Tier = "low"
	TierModerate Tier = "moderate"
	TierHigh     Tier = "high"
	TierVeryHigh Tier = "very-high"
)

// ClassifyCount maps a historical alert count for an area to a tier.
//
//	0       none
//	1-10    low
//	11-50   moderate
//	51-150  high
//	>150    very-high
func ClassifyCount(alertCount int) Tier {
	switch {
	case alertCount <= 0:
		return TierNone
	case alertCount <= 10:
		return TierLow
	case alertCount <= 50:
		return TierModerate
	case alertCount <= 150:
		return TierHigh
	default:
		return TierVeryHigh
	}
}

// ClassifyLive maps a live safety check to a tier. recentCount is the number
// of alerts within the last 3 hours inside the 20 km radius; historicalCount
// is the all-time count inside the same radius.
//
//	recent 0, historical <= 10   safe
//	recent 0, historical  > 10   low
//	recent 1-2                   moderate
//	recent 3-4                   high
//	recent >= 5                  very-high
func ClassifyLive(recentCount, historicalCount int) Tier {
	switch {
	case recentCount >= 5:
		return TierVeryHigh
	case recentCount >= 3:
		return TierHigh
	case recentCount >= 1:
		return TierModerate
	case historicalCount > 10:
		return TierLow
	default:
		return TierSafe
	}
}

// CountColor returns the polygon fill color for a historical-count tier.
func CountColor(t Tier) string {
	switch t {
	case TierLow:
		return "#90EE90"
	case TierModerate:
		return "#ffcc00"
	case TierHigh:
		return "#ff6600"
	case TierVeryHigh:
		return "#ff0000"
	default:
		return "#e8f4fd"
	}
}

// LiveColor returns the badge color for a live safety-check tier.
func LiveColor(t Tier) string {
	switch t {
	case TierLow:
		return "#65a30d"
	case TierModerate:
		return "#d97706"
	case TierHigh:
		return "#ea580c"
	case TierVeryHigh:
		return "#dc2626"
	default:
		return "#16a34a"
	}
}
