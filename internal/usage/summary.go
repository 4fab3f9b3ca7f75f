package usage

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
	"github.com/google/uuid"
)

// Summary describes one reconciliation run
type Summary struct {
	RunID        string      `json:"run_id"`
	GeneratedAt  time.Time   `json:"generated_at"`
	StartDate    string      `json:"start_date"`
	EndDate      string      `json:"end_date"`
	Output       string      `json:"output"`
	SplitBy      string      `json:"split_by"`
	Users        int         `json:"users"`
	RowsRead     int         `json:"rows_read"`
	RowsAccepted int         `json:"rows_accepted"`
	RowsSkipped  int         `json:"rows_skipped"`
	Files        []FileStats `json:"files"`
	FailedFiles  []string    `json:"failed_files,omitempty"`
	Outputs      []string    `json:"outputs"`
}

// NewSummary collects the outcome of a run
func NewSummary(res *Result, out OutputType, split SplitMode, outputs []string) *Summary {
	r := res.Combined.Range()
	s := &Summary{
		RunID:        uuid.NewString(),
		GeneratedAt:  time.Now().UTC(),
		StartDate:    r.Start.Format(DateLayout),
		EndDate:      r.End.Format(DateLayout),
		Output:       out.String(),
		SplitBy:      string(split),
		Users:        res.Combined.Len(),
		RowsRead:     res.Report.RowsRead,
		RowsAccepted: res.Report.RowsAccepted,
		RowsSkipped:  len(res.Report.Skipped),
		Files:        res.Report.Files,
		Outputs:      outputs,
	}
	for _, fe := range res.Report.Failed {
		s.FailedFiles = append(s.FailedFiles, fe.Path)
	}
	return s
}

// WriteSummary writes the run summary as JSON next to the reports and
// returns its path.
func (e *Emitter) WriteSummary(s *Summary) (string, error) {
	path := filepath.Join(e.Dir, fmt.Sprintf("%s_summary_%s_%s.json", e.Prefix, s.StartDate, s.EndDate))

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating summary: %w", err)
	}
	if err := json.MarshalWrite(f, s, jsontext.WithIndent("  ")); err != nil {
		f.Close()
		return "", fmt.Errorf("encoding summary: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("closing summary: %w", err)
	}
	return path, nil
}

// ReadSummary loads a summary written by WriteSummary
func ReadSummary(path string) (*Summary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading summary: %w", err)
	}
	var s Summary
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing summary: %w", err)
	}
	return &s, nil
}
