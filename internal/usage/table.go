package usage

import (
	"fmt"
	"sort"

	"github.com/jgoulah/usagereport/pkg/models"
)

// OrgCodePolicy decides which org code a user keeps when rows disagree
type OrgCodePolicy string

const (
	OrgCodeFirst  OrgCodePolicy = "first"
	OrgCodeLast   OrgCodePolicy = "last"
	OrgCodeReject OrgCodePolicy = "reject"
)

// DuplicatePolicy decides how repeated (user_id, date) rows combine
type DuplicatePolicy string

const (
	DuplicateOverwrite DuplicatePolicy = "overwrite"
	DuplicateSum       DuplicatePolicy = "sum"
)

// Policy groups the merge rules applied by a Table
type Policy struct {
	OrgCode    OrgCodePolicy
	Duplicates DuplicatePolicy
}

// ParseOrgCodePolicy validates an org code policy name; empty means first.
func ParseOrgCodePolicy(s string) (OrgCodePolicy, error) {
	switch OrgCodePolicy(s) {
	case "":
		return OrgCodeFirst, nil
	case OrgCodeFirst, OrgCodeLast, OrgCodeReject:
		return OrgCodePolicy(s), nil
	}
	return "", fmt.Errorf("unknown org code policy %q (available: first, last, reject)", s)
}

// ParseDuplicatePolicy validates a duplicate policy name; empty means overwrite.
func ParseDuplicatePolicy(s string) (DuplicatePolicy, error) {
	switch DuplicatePolicy(s) {
	case "":
		return DuplicateOverwrite, nil
	case DuplicateOverwrite, DuplicateSum:
		return DuplicatePolicy(s), nil
	}
	return "", fmt.Errorf("unknown duplicate policy %q (available: overwrite, sum)", s)
}

// Table maps user ids to their dense daily counts over a DateRange.
type Table struct {
	dates   DateRange
	keys    []string
	policy  Policy
	records map[string]*models.UserUsage
}

// NewTable creates an empty table for the given range
func NewTable(dates DateRange, policy Policy) *Table {
	return &Table{
		dates:   dates,
		keys:    dates.Dates(),
		policy:  policy,
		records: make(map[string]*models.UserUsage),
	}
}

// newUserUsage builds a fresh record with every date defaulted to zero
func newUserUsage(userID, orgCode string, keys []string) *models.UserUsage {
	counts := make(map[string]int, len(keys))
	for _, k := range keys {
		counts[k] = 0
	}
	return &models.UserUsage{
		OrgCode: orgCode,
		UserID:  userID,
		Counts:  counts,
	}
}

// Add merges one row into the table. The table is left unchanged when the
// row is rejected.
func (t *Table) Add(row models.UsageRow) error {
	if !t.dates.Contains(row.Date) {
		return &DateOutOfRangeError{
			File:  row.Source,
			Line:  row.Line,
			Date:  row.Date.Format(DateLayout),
			Range: t.dates,
		}
	}

	rec, ok := t.records[row.UserID]
	if !ok {
		rec = newUserUsage(row.UserID, row.OrgCode, t.keys)
		t.records[row.UserID] = rec
	} else if rec.OrgCode != row.OrgCode {
		switch t.policy.OrgCode {
		case OrgCodeReject:
			return &OrgConflictError{
				File:     row.Source,
				Line:     row.Line,
				UserID:   row.UserID,
				Existing: rec.OrgCode,
				Got:      row.OrgCode,
			}
		case OrgCodeLast:
			rec.OrgCode = row.OrgCode
		}
	}

	key := row.Date.Format(DateLayout)
	if t.policy.Duplicates == DuplicateSum {
		rec.Counts[key] += row.Count
	} else {
		rec.Counts[key] = row.Count
	}
	return nil
}

// Get returns the record for a user id
func (t *Table) Get(userID string) (*models.UserUsage, bool) {
	rec, ok := t.records[userID]
	return rec, ok
}

// Len returns the number of users in the table
func (t *Table) Len() int {
	return len(t.records)
}

// Range returns the table's date range
func (t *Table) Range() DateRange {
	return t.dates
}

// Dates returns the date column names in ascending order
func (t *Table) Dates() []string {
	out := make([]string, len(t.keys))
	copy(out, t.keys)
	return out
}

// Records returns all records sorted by user id
func (t *Table) Records() []*models.UserUsage {
	out := make([]*models.UserUsage, 0, len(t.records))
	for _, rec := range t.records {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}
