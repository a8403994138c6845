package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrMismatchedColumnCount means the body rows disagree in length or do
	// not match the total span of the day headers.
	ErrMismatchedColumnCount = errors.New("mismatched column count")

	// ErrOutOfRange means a header's span runs past the last body column.
	ErrOutOfRange = errors.New("header span out of range")

	// ErrAmbiguousMonthBoundary means the day-of-month went backwards, so the
	// table crosses into a month the caller did not name.
	ErrAmbiguousMonthBoundary = errors.New("ambiguous month boundary")

	// ErrInvalidDayLabel means a header label is not "<weekday> <day>",
	// names a day the month does not have, or names the wrong weekday.
	ErrInvalidDayLabel = errors.New("invalid day label")

	// ErrCorruptDataset means a stored dataset exists but cannot be read back.
	ErrCorruptDataset = errors.New("corrupt dataset")
)

// DecodeError reports why a forecast table could not be aligned.
type DecodeError struct {
	Mountain string
	Header   int // index into ForecastTable.Days, -1 when not header-specific
	Err      error
	Detail   string
}

func (e *DecodeError) Error() string {
	msg := "decode " + e.Mountain + ": " + e.Err.Error()
	if e.Header >= 0 {
		msg += fmt.Sprintf(" (header %d)", e.Header)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *DecodeError) Unwrap() error { return e.Err }

// MergeError reports a stored dataset that cannot take part in a merge.
type MergeError struct {
	Source string // file path or table name
	Cause  error
}

func (e *MergeError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("%s: %s", ErrCorruptDataset, e.Source)
	}
	return fmt.Sprintf("%s: %s: %v", ErrCorruptDataset, e.Source, e.Cause)
}

// Unwrap exposes both ErrCorruptDataset and the underlying cause.
func (e *MergeError) Unwrap() []error {
	if e.Cause == nil {
		return []error{ErrCorruptDataset}
	}
	return []error{ErrCorruptDataset, e.Cause}
}

func decodeErr(mountain string, header int, err error, format string, args ...any) error {
	return &DecodeError{
		Mountain: mountain,
		Header:   header,
		Err:      err,
		Detail:   fmt.Sprintf(format, args...),
	}
}
