package usage

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

// OutputType selects which reports a run writes
type OutputType int

const (
	OutputCombined OutputType = iota + 1
	OutputSeparate
	OutputBoth
	OutputOldOnly
	OutputNewOnly
)

var outputNames = map[OutputType]string{
	OutputCombined: "combined",
	OutputSeparate: "separate",
	OutputBoth:     "both",
	OutputOldOnly:  "old_only",
	OutputNewOnly:  "new_only",
}

// OutputTypeNames lists the accepted output names in declaration order
func OutputTypeNames() []string {
	return []string{"combined", "separate", "both", "old_only", "new_only"}
}

// ParseOutputType parses an output name, ignoring case
func ParseOutputType(s string) (OutputType, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for t, name := range outputNames {
		if name == s {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown output type %q (available: %s)", s, strings.Join(OutputTypeNames(), ", "))
}

func (o OutputType) String() string {
	if name, ok := outputNames[o]; ok {
		return name
	}
	return "OutputType(" + strconv.Itoa(int(o)) + ")"
}

// ReportHeader returns the column names for a report over the given dates
func ReportHeader(dates []string) []string {
	return append([]string{"org_code", "user_id"}, dates...)
}

// WriteCSV writes a table as a dense report: one row per user sorted by
// user id, one column per date.
func WriteCSV(w io.Writer, t *Table) error {
	cw := csv.NewWriter(w)
	dates := t.Dates()

	if err := cw.Write(ReportHeader(dates)); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	row := make([]string, len(dates)+2)
	for _, rec := range t.Records() {
		row[0] = rec.OrgCode
		row[1] = rec.UserID
		for i, d := range dates {
			row[i+2] = strconv.Itoa(rec.Counts[d])
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing row for %s: %w", rec.UserID, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// Emitter writes report files into a directory
type Emitter struct {
	Dir    string
	Prefix string
	logger zerolog.Logger
}

// NewEmitter creates an emitter writing to dir with the given file prefix
func NewEmitter(dir, prefix string, logger zerolog.Logger) *Emitter {
	if prefix == "" {
		prefix = "usage_report"
	}
	return &Emitter{Dir: dir, Prefix: prefix, logger: logger}
}

// Path returns the output path for a named report over r
func (e *Emitter) Path(name string, r DateRange) string {
	file := fmt.Sprintf("%s_%s_%s_%s.csv", e.Prefix, sanitize(name),
		r.Start.Format(DateLayout), r.End.Format(DateLayout))
	return filepath.Join(e.Dir, file)
}

// Emit writes the reports selected by out and returns the paths written.
// Group names that map to a file already written in this call get a numeric
// suffix, so no report overwrites another.
func (e *Emitter) Emit(res *Result, out OutputType) ([]string, error) {
	if err := os.MkdirAll(e.Dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	var paths []string
	// lower-cased: some filesystems ignore case
	used := make(map[string]bool)
	write := func(name string, t *Table) error {
		path := e.Path(name, t.Range())
		for i := 2; used[strings.ToLower(path)]; i++ {
			path = e.Path(fmt.Sprintf("%s-%d", name, i), t.Range())
		}
		if path != e.Path(name, t.Range()) {
			e.logger.Warn().Str("report", name).Str("path", path).Msg("Report name collides with another report, renamed")
		}
		used[strings.ToLower(path)] = true
		if t.Len() == 0 {
			e.logger.Warn().Str("report", name).Msg("Report has no rows")
		}
		if err := e.writeFile(path, t); err != nil {
			return err
		}
		e.logger.Info().Str("path", path).Int("users", t.Len()).Msg("Wrote report")
		paths = append(paths, path)
		return nil
	}

	if out == OutputCombined || out == OutputBoth {
		if err := write("combined", res.Combined); err != nil {
			return paths, err
		}
	}

	if out == OutputSeparate || out == OutputBoth {
		names := make([]string, 0, len(res.Groups))
		for name := range res.Groups {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			if err := write(name, res.Groups[name]); err != nil {
				return paths, err
			}
		}
	}

	switch out {
	case OutputOldOnly:
		if err := write(CategoryOld, res.Category(CategoryOld)); err != nil {
			return paths, err
		}
	case OutputNewOnly:
		if err := write(CategoryNew, res.Category(CategoryNew)); err != nil {
			return paths, err
		}
	}

	return paths, nil
}

func (e *Emitter) writeFile(path string, t *Table) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := WriteCSV(f, t); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}

// sanitize keeps group names usable as file name fragments
func sanitize(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, name)
}
