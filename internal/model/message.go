// Package model defines shared wire structures for the feed server.
package model

import "time"

// FeedRecord is the compact JSON view of one decoded sample, broadcast to
// websocket clients as it arrives. Spectral arrays are deliberately left
// out of the live feed; clients query the series API for the full content.
type FeedRecord struct {
	BuoyID            string    `json:"buoy_id"`
	Datetime          time.Time `json:"datetime"`
	SensorType        int       `json:"sensor_type"`
	SignificantHeight float64   `json:"significant_height"`
	PeakPeriod        float64   `json:"peak_period"`
	PeakDirection     float64   `json:"peak_direction"`
	Latitude          float64   `json:"latitude"`
	Longitude         float64   `json:"longitude"`
	Voltage           float64   `json:"voltage"`
	ClockSubstituted  bool      `json:"clock_substituted,omitempty"`
}

// PullStatus summarizes one poll cycle for the status API.
type PullStatus struct {
	BuoyID    string    `json:"buoy_id"`
	PulledAt  time.Time `json:"pulled_at"`
	NewCount  int       `json:"new_count"`
	ErrCount  int       `json:"err_count"`
	LastError string    `json:"last_error,omitempty"`
}
