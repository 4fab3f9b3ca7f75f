package usage

import (
	"errors"
	"fmt"
)

// Sentinel errors for errors.Is checks
var (
	// ErrMalformedRow indicates a row that could not be parsed
	ErrMalformedRow = errors.New("malformed row")

	// ErrDateOutOfRange indicates a row dated outside the report range
	ErrDateOutOfRange = errors.New("date out of range")

	// ErrOrgConflict indicates a user seen under more than one org code
	ErrOrgConflict = errors.New("org code conflict")

	// ErrEmptyInput indicates that no input files matched
	ErrEmptyInput = errors.New("no input files")

	// ErrFileIO indicates an unreadable or invalid input file
	ErrFileIO = errors.New("file error")

	// ErrNoReadableInput is returned when every input file failed
	ErrNoReadableInput = errors.New("no input file could be read")
)

// MalformedRowError represents a row with the wrong arity, count or date
type MalformedRowError struct {
	File   string
	Line   int
	Reason string
	Err    error
}

// Error implements the error interface
func (e *MalformedRowError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s:%d: malformed row: %s: %v", e.File, e.Line, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s:%d: malformed row: %s", e.File, e.Line, e.Reason)
}

// Unwrap implements errors.Unwrap
func (e *MalformedRowError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *MalformedRowError) Is(target error) bool {
	return target == ErrMalformedRow
}

// DateOutOfRangeError represents a row whose date falls outside the range
type DateOutOfRangeError struct {
	File  string
	Line  int
	Date  string
	Range DateRange
}

// Error implements the error interface
func (e *DateOutOfRangeError) Error() string {
	return fmt.Sprintf("%s:%d: date %s outside range %s", e.File, e.Line, e.Date, e.Range)
}

// Is implements errors.Is support
func (e *DateOutOfRangeError) Is(target error) bool {
	return target == ErrDateOutOfRange
}

// OrgConflictError represents a row that disagrees with a user's org code
type OrgConflictError struct {
	File     string
	Line     int
	UserID   string
	Existing string
	Got      string
}

// Error implements the error interface
func (e *OrgConflictError) Error() string {
	return fmt.Sprintf("%s:%d: user %s has org code %s, row has %s", e.File, e.Line, e.UserID, e.Existing, e.Got)
}

// Is implements errors.Is support
func (e *OrgConflictError) Is(target error) bool {
	return target == ErrOrgConflict
}

// EmptyInputError is returned when discovery finds no matching files
type EmptyInputError struct {
	Dir     string
	Pattern string
}

// Error implements the error interface
func (e *EmptyInputError) Error() string {
	if e.Dir == "" && e.Pattern == "" {
		return ErrEmptyInput.Error()
	}
	return fmt.Sprintf("no .csv files containing %q found in %s", e.Pattern, e.Dir)
}

// Is implements errors.Is support
func (e *EmptyInputError) Is(target error) bool {
	return target == ErrEmptyInput
}

// FileError wraps a failure to read one input file
type FileError struct {
	Path string
	Err  error
}

// Error implements the error interface
func (e *FileError) Error() string {
	return fmt.Sprintf("reading %s: %v", e.Path, e.Err)
}

// Unwrap implements errors.Unwrap
func (e *FileError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *FileError) Is(target error) bool {
	return target == ErrFileIO
}

// IsRowError reports whether err rejects a single row rather than a file or run.
func IsRowError(err error) bool {
	return errors.Is(err, ErrMalformedRow) || errors.Is(err, ErrDateOutOfRange) || errors.Is(err, ErrOrgConflict)
}
