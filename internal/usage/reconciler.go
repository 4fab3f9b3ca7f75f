package usage

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/jgoulah/usagereport/pkg/models"
)

// SplitMode selects how the separate output groups rows
type SplitMode string

const (
	SplitByCategory SplitMode = "category"
	SplitByFile     SplitMode = "file"
	SplitByOrg      SplitMode = "org"
)

// ParseSplitMode validates a split mode name; empty means category.
func ParseSplitMode(s string) (SplitMode, error) {
	switch SplitMode(s) {
	case "":
		return SplitByCategory, nil
	case SplitByCategory, SplitByFile, SplitByOrg:
		return SplitMode(s), nil
	}
	return "", fmt.Errorf("unknown split mode %q (available: category, file, org)", s)
}

// Options configures a reconciliation run
type Options struct {
	Range   DateRange
	Policy  Policy
	SplitBy SplitMode
	Strict  bool // abort on the first rejected row
}

// FileStats records what happened to one input file
type FileStats struct {
	Path     string `json:"path"`
	Category string `json:"category"`
	Rows     int    `json:"rows"`
	Accepted int    `json:"accepted"`
	Skipped  int    `json:"skipped"`
	Error    string `json:"error,omitempty"`
}

// Report collects per-row and per-file outcomes of a run
type Report struct {
	Files        []FileStats
	RowsRead     int
	RowsAccepted int
	Skipped      []error
	Failed       []*FileError
}

// Result is the output of a run: the combined table plus its subsets
type Result struct {
	Combined   *Table
	Categories map[string]*Table
	Groups     map[string]*Table
	Report     *Report
}

// Category returns the table for a tracker category, empty if it had no rows
func (r *Result) Category(name string) *Table {
	if t, ok := r.Categories[name]; ok {
		return t
	}
	return NewTable(r.Combined.Range(), r.Combined.policy)
}

// Reconciler builds usage tables from tracker exports
type Reconciler struct {
	opts   Options
	logger zerolog.Logger
	open   opener
}

// New creates a reconciler for one run
func New(opts Options, logger zerolog.Logger) *Reconciler {
	if opts.SplitBy == "" {
		opts.SplitBy = SplitByCategory
	}
	return &Reconciler{opts: opts, logger: logger, open: openFile}
}

// BuildTable reads every source and returns the combined usage table.
func (r *Reconciler) BuildTable(sources []Source) (*Table, *Report, error) {
	res, err := r.Run(sources)
	if err != nil {
		return nil, nil, err
	}
	return res.Combined, res.Report, nil
}

// Run reads every source once, filling the combined, per-category and
// per-group tables. Rejected rows are skipped and recorded unless the run is
// strict; unreadable files are recorded and the remaining files still run.
// A file's rows reach the tables only once the whole file has been read, so a
// file that fails part way through contributes nothing.
func (r *Reconciler) Run(sources []Source) (*Result, error) {
	if len(sources) == 0 {
		return nil, &EmptyInputError{}
	}

	res := &Result{
		Combined:   NewTable(r.opts.Range, r.opts.Policy),
		Categories: make(map[string]*Table),
		Groups:     make(map[string]*Table),
		Report:     &Report{},
	}

	for _, src := range sources {
		stats := FileStats{Path: src.Path, Category: src.Category}
		log := r.logger.With().Str("file", src.Path).Str("category", src.Category).Logger()
		log.Info().Msg("Reading input file")

		var pending []pendingRow
		err := readFile(r.open, src.Path, func(row models.UsageRow, rowErr error) error {
			pending = append(pending, pendingRow{row: row, err: rowErr})
			return nil
		})
		stats.Rows = len(pending)
		res.Report.RowsRead += stats.Rows

		if err != nil {
			var fe *FileError
			if !errors.As(err, &fe) {
				fe = &FileError{Path: src.Path, Err: err}
			}
			stats.Error = fe.Err.Error()
			res.Report.Failed = append(res.Report.Failed, fe)
			res.Report.Files = append(res.Report.Files, stats)
			log.Error().Err(fe.Err).Int("discarded", len(pending)).Msg("Skipping unreadable file")
			continue
		}

		for _, p := range pending {
			rowErr := p.err
			if rowErr == nil {
				rowErr = res.Combined.Add(p.row)
			}
			if rowErr != nil {
				stats.Skipped++
				res.Report.Skipped = append(res.Report.Skipped, rowErr)
				log.Warn().Err(rowErr).Str("user_id", p.row.UserID).Msg("Skipping row")
				if r.opts.Strict {
					return nil, rowErr
				}
				continue
			}
			stats.Accepted++
			r.addSubsets(res, src, p.row)
		}

		res.Report.RowsAccepted += stats.Accepted
		res.Report.Files = append(res.Report.Files, stats)
		log.Info().Int("rows", stats.Rows).Int("skipped", stats.Skipped).Msg("Finished input file")
	}

	if len(res.Report.Failed) == len(sources) {
		return nil, fmt.Errorf("%w: all %d files failed", ErrNoReadableInput, len(sources))
	}

	return res, nil
}

// pendingRow is a parsed row held back until its file has been read in full
type pendingRow struct {
	row models.UsageRow
	err error
}

func (r *Reconciler) addSubsets(res *Result, src Source, row models.UsageRow) {
	cat := subsetTable(res.Categories, src.Category, r.opts)
	if err := cat.Add(row); err != nil {
		r.logger.Error().Err(err).Str("category", src.Category).Msg("Category table rejected accepted row")
	}

	var group string
	switch r.opts.SplitBy {
	case SplitByFile:
		group = src.Name()
	case SplitByOrg:
		group = row.OrgCode
		if group == "" {
			group = "unknown"
		}
	default:
		group = src.Category
	}

	if r.opts.SplitBy == SplitByCategory {
		res.Groups[group] = cat
		return
	}
	if err := subsetTable(res.Groups, group, r.opts).Add(row); err != nil {
		r.logger.Error().Err(err).Str("group", group).Msg("Group table rejected accepted row")
	}
}

func subsetTable(tables map[string]*Table, key string, opts Options) *Table {
	t, ok := tables[key]
	if !ok {
		t = NewTable(opts.Range, opts.Policy)
		tables[key] = t
	}
	return t
}
