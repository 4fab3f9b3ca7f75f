package usage

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
)

// ReadReportFile reads an emitted report from path
func ReadReportFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &FileError{Path: path, Err: err}
	}
	defer f.Close()

	return ReadReport(f)
}

// ReadReport parses a report written by WriteCSV back into a Table. The date
// columns must be consecutive days.
func ReadReport(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading report header: %w", err)
	}
	if len(header) < 3 || header[0] != "org_code" || header[1] != "user_id" {
		return nil, fmt.Errorf("not a usage report: header %v", header)
	}

	dr, err := ParseDateRange(header[2], header[len(header)-1])
	if err != nil {
		return nil, fmt.Errorf("report date columns: %w", err)
	}
	dates := dr.Dates()
	if len(dates) != len(header)-2 {
		return nil, fmt.Errorf("report has %d date columns, range %s has %d days", len(header)-2, dr, len(dates))
	}
	for i, d := range dates {
		if header[i+2] != d {
			return nil, fmt.Errorf("report column %d is %q, want %q", i+2, header[i+2], d)
		}
	}

	t := NewTable(dr, Policy{OrgCode: OrgCodeReject, Duplicates: DuplicateOverwrite})
	for {
		fields, err := cr.Read()
		if err == io.EOF {
			return t, nil
		}
		if err != nil {
			return nil, fmt.Errorf("reading report: %w", err)
		}

		line, _ := cr.FieldPos(0)
		userID := fields[1]
		if _, dup := t.records[userID]; dup {
			return nil, fmt.Errorf("line %d: duplicate user %s", line, userID)
		}

		rec := newUserUsage(userID, fields[0], t.keys)
		for i, d := range dates {
			n, err := strconv.Atoi(fields[i+2])
			if err != nil {
				return nil, &MalformedRowError{Line: line, Reason: "invalid count for " + d, Err: err}
			}
			rec.Counts[d] = n
		}
		t.records[userID] = rec
	}
}

// DailyTotals sums every user's count per date, aligned with t.Dates()
func DailyTotals(t *Table) []int {
	totals := make([]int, len(t.keys))
	for _, rec := range t.records {
		for i, d := range t.keys {
			totals[i] += rec.Counts[d]
		}
	}
	return totals
}
