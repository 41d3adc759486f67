package vssindex

import "errors"

// Sentinel error kinds per spec.md §7's taxonomy. Every returned error
// wraps one of these, checkable with errors.Is; none of them is
// recoverable inside a search once a build has succeeded.
var (
	// ErrUnknownMetric covers an unrecognized similarity metric name.
	ErrUnknownMetric = errors.New("vssindex: unknown similarity metric")
	// ErrUnknownVariant covers an unrecognized index variant name.
	ErrUnknownVariant = errors.New("vssindex: unknown index variant")
	// ErrDimMismatch names a dataset whose vectors don't match the
	// configured dimensionality. No function in this package returns it;
	// dataset.ReadFvecs reports such a mismatch with its own error, which
	// does not wrap this value.
	ErrDimMismatch = errors.New("vssindex: dimension mismatch")
	// ErrInvariant covers a caller-supplied parameter that violates a
	// documented invariant: M<2 for the graph variants, or a sequence graph
	// requested under maxsim. Search does not validate k, and Build does
	// not validate the dimensionality.
	ErrInvariant = errors.New("vssindex: invariant violation")
	// ErrNotBuilt covers a Search call before a successful Build.
	ErrNotBuilt = errors.New("vssindex: index not built")
)
