// Package types contains common types used across the application
package types

// Entry is one annotated leaderboard row as the chart renderer draws it.
type Entry struct {
	Rank        int     `json:"rank"`
	Name        string  `json:"name"`
	DisplayName string  `json:"display_name"`
	Sales       float64 `json:"sales"`
	Target      float64 `json:"target"`
	Percent     float64 `json:"percent"`
	IconURL     string  `json:"icon_url,omitempty"`
}
