package types

import "errors"

// Error taxonomy for the indexing and query pipeline. Callers classify
// failures with errors.Is. Per-file and per-strategy errors are absorbed
// and recorded by the coordinator; only configuration-level failures
// propagate.
var (
	// ErrIO indicates a file or directory could not be read or stat'd.
	ErrIO = errors.New("io error")

	// ErrParse indicates content could not be structurally projected.
	// Extraction falls back to a raw-content chunk.
	ErrParse = errors.New("parse error")

	// ErrVectorize indicates embedding generation failed. The chunk is
	// kept with a nil embedding.
	ErrVectorize = errors.New("vectorize error")

	// ErrWatch indicates the change-notification subsystem is unavailable.
	// Full-scan indexing remains available.
	ErrWatch = errors.New("watch error")

	// ErrSearch indicates a retrieval strategy failed. The remaining
	// strategies still contribute results.
	ErrSearch = errors.New("search error")
)
