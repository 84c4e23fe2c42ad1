package insight

import "errors"

var (
	// ErrSourceUnavailable means the section store could not produce a snapshot.
	ErrSourceUnavailable = errors.New("section source unavailable")

	// ErrVectorize means a query could not be turned into scores.
	ErrVectorize = errors.New("query vectorization failed")
)
