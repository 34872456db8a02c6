package models

import "time"

// LocationCheck is a logged safety-check event. Written by the API layer on
// every /safety-check call, read back by the dashboard analytics.
type LocationCheck struct {
	ID               string    `json:"id"`
	Latitude         float64   `json:"latitude"`
	Longitude        float64   `json:"longitude"`
	RiskTier         string    `json:"risk_tier"`
	RecentAlerts     int       `json:"recent_alerts"`
	HistoricalAlerts int       `json:"historical_alerts"`
	UserAgent        string    `json:"user_agent,omitempty"`
	IP               string    `json:"ip,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// SelectedLocation is the registry entry a user picked from search results.
type SelectedLocation struct {
	Name      string  `json:"name"`
	NameEn    string  `json:"name_en"`
	NameHe    string  `json:"name_he"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// SearchLog is a logged search-query event. QueryLower is the grouping key
// for analytics; Query keeps the original casing for display.
type SearchLog struct {
	ID           string            `json:"id"`
	Query        string            `json:"query"`
	QueryLower   string            `json:"query_lower"`
	ResultsCount int               `json:"results_count"`
	Selected     *SelectedLocation `json:"selected_location,omitempty"`
	Language     string            `json:"language"`
	UserAgent    string            `json:"user_agent,omitempty"`
	IP           string            `json:"ip,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
}
