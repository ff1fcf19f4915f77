package templates

import "errors"

var (
	ErrNotFound     = errors.New("template not found")
	ErrInvalidInput = errors.New("invalid input")
	// ErrStoreInconsistency means a record and its stored bytes disagree, or the
	// backing infrastructure is missing.
	ErrStoreInconsistency = errors.New("store inconsistency")
)
