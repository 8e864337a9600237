package collection

import "errors"

var (
	// ErrInvalidKey indicates an empty or zero-value key.
	ErrInvalidKey = errors.New("collection: invalid key")
	// ErrEmptySource indicates a merge source that yielded no entries.
	ErrEmptySource = errors.New("collection: empty merge source")
	// ErrNotCallable indicates a nil predicate or transform function.
	ErrNotCallable = errors.New("collection: function is not callable")
	// ErrEmptyCollection indicates a reduce without a seed over an empty collection.
	ErrEmptyCollection = errors.New("collection: reduce of empty collection with no initial value")
	// ErrUnsupportedSource indicates a merge source of an unknown shape.
	ErrUnsupportedSource = errors.New("collection: unsupported merge source")
)
