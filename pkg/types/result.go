package types

import "time"

// IndexingError records one per-file failure with enough context to
// identify the offending path.
type IndexingError struct {
	Path    string
	Message string
}

// IndexingResult summarizes one IndexAll pass.
type IndexingResult struct {
	RunID          string
	TotalFiles     int
	ProcessedCount int
	FailedCount    int
	Chunks         []*KnowledgeChunk
	Duration       time.Duration
	Errors         []IndexingError
}
