package usage

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/jgoulah/usagereport/pkg/models"
)

// InputHeader is the only header accepted on tracker exports
var InputHeader = []string{"date", "org_code", "user_id", "count"}

// RowFunc receives each data row of an export. Exactly one of row and rowErr
// is meaningful; rowErr is a row-level error for rows that failed to parse.
// Returning an error stops the read.
type RowFunc func(row models.UsageRow, rowErr error) error

// ReadFile opens path and streams its rows to fn. Failures to open the file or
// read its header come back as *FileError.
func ReadFile(path string, fn RowFunc) error {
	return readFile(openFile, path, fn)
}

// opener opens an input file for reading
type opener func(path string) (io.ReadCloser, error)

func openFile(path string) (io.ReadCloser, error) {
	return os.Open(path)
}

func readFile(open opener, path string, fn RowFunc) error {
	f, err := open(path)
	if err != nil {
		return &FileError{Path: path, Err: err}
	}
	defer f.Close()

	return ReadRows(f, path, fn)
}

// ReadRows parses a tracker export from r, checking the header first.
func ReadRows(r io.Reader, source string, fn RowFunc) error {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return &FileError{Path: source, Err: errors.New("file is empty")}
	}
	if err != nil {
		return &FileError{Path: source, Err: fmt.Errorf("reading header: %w", err)}
	}
	if err := checkHeader(header, InputHeader); err != nil {
		return &FileError{Path: source, Err: err}
	}

	for {
		fields, err := cr.Read()
		if err == io.EOF {
			return nil
		}

		var row models.UsageRow
		var rowErr error
		if err != nil {
			var pe *csv.ParseError
			if !errors.As(err, &pe) {
				return &FileError{Path: source, Err: err}
			}
			rowErr = &MalformedRowError{File: source, Line: pe.Line, Reason: "invalid csv", Err: pe.Err}
		} else {
			line, _ := cr.FieldPos(0)
			row, rowErr = parseRow(fields, source, line)
		}

		if err := fn(row, rowErr); err != nil {
			return err
		}
	}
}

func parseRow(fields []string, source string, line int) (models.UsageRow, error) {
	if len(fields) != len(InputHeader) {
		return models.UsageRow{}, &MalformedRowError{
			File:   source,
			Line:   line,
			Reason: fmt.Sprintf("expected %d columns, got %d", len(InputHeader), len(fields)),
		}
	}

	dateStr := strings.TrimSpace(fields[0])
	date, err := ParseDate(dateStr)
	if err != nil {
		return models.UsageRow{}, &MalformedRowError{File: source, Line: line, Reason: "invalid date " + strconv.Quote(dateStr), Err: err}
	}

	userID := strings.TrimSpace(fields[2])
	if userID == "" {
		return models.UsageRow{}, &MalformedRowError{File: source, Line: line, Reason: "empty user_id"}
	}

	countStr := strings.TrimSpace(fields[3])
	count, err := strconv.Atoi(countStr)
	if err != nil {
		return models.UsageRow{}, &MalformedRowError{File: source, Line: line, Reason: "invalid count " + strconv.Quote(countStr), Err: err}
	}
	if count < 0 {
		return models.UsageRow{}, &MalformedRowError{File: source, Line: line, Reason: "negative count " + countStr}
	}

	return models.UsageRow{
		Date:    date,
		OrgCode: strings.TrimSpace(fields[1]),
		UserID:  userID,
		Count:   count,
		Source:  source,
		Line:    line,
	}, nil
}

// checkHeader compares a header row against the expected column names,
// ignoring case, surrounding space and a UTF-8 byte order mark.
func checkHeader(got, want []string) error {
	if len(got) != len(want) {
		return fmt.Errorf("unexpected header %v (want %v)", got, want)
	}
	for i := range want {
		name := strings.TrimPrefix(got[i], "\ufeff")
		if !strings.EqualFold(strings.TrimSpace(name), want[i]) {
			return fmt.Errorf("unexpected header %v (want %v)", got, want)
		}
	}
	return nil
}
