package parser

import "errors"

var (
	// ErrMissingTimezone is returned when a local timestamp has to be
	// normalized but no input timezone was configured.
	ErrMissingTimezone = errors.New("no input timezone configured")
	// ErrMissingDateTime indicates a header without usable date/time fields.
	ErrMissingDateTime = errors.New("header is missing date/time info")
	// ErrMissingLocation indicates a header without lat/lon or easting/northing.
	ErrMissingLocation = errors.New("header is missing location info")
	// ErrMissingID indicates no override and no pit id in the header.
	ErrMissingID = errors.New("header is missing an id")
	// ErrEmptyFile is returned for a file without any lines.
	ErrEmptyFile = errors.New("file is empty")
	// ErrSplitLinesWithoutIndicator is returned when split header lines are
	// allowed but the file does not start with the header indicator.
	ErrSplitLinesWithoutIndicator = errors.New("cannot allow split header lines without a header indicator")
)
