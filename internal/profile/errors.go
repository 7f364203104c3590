package profile

import "errors"

var (
	// ErrVariableNotFound means no column of the body resolves to the
	// requested variable.
	ErrVariableNotFound = errors.New("variable not found in columns")
	// ErrMissingDepth means a non-empty body has no depth column.
	ErrMissingDepth = errors.New("expected a depth column")
	// ErrUnknownDepthFormat is returned for a depth convention other than
	// snow_height or surface_datum.
	ErrUnknownDepthFormat = errors.New("invalid depth format")
	// ErrDuplicateColumn is returned when two columns of a body share a name.
	ErrDuplicateColumn = errors.New("duplicate column name")
)
