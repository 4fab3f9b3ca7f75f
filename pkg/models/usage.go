package models

import "time"

// UsageRow represents a single row of a tracker export
type UsageRow struct {
	Date    time.Time `json:"date"`
	OrgCode string    `json:"org_code"`
	UserID  string    `json:"user_id"`
	Count   int       `json:"count"`
	Source  string    `json:"source"` // file the row was read from
	Line    int       `json:"line"`
}

// UserUsage holds one user's daily counts across a report date range
type UserUsage struct {
	OrgCode string         `json:"org_code"`
	UserID  string         `json:"user_id"`
	Counts  map[string]int `json:"counts"` // keyed by YYYY-MM-DD
}

// Total returns the sum of all daily counts
func (u *UserUsage) Total() int {
	total := 0
	for _, c := range u.Counts {
		total += c
	}
	return total
}
