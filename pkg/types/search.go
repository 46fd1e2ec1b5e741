package types

import "time"

// DateRange bounds a filter on chunk modification time. Zero values leave
// the corresponding side unbounded.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// SearchFilters narrow the chunk set before any retrieval strategy runs.
// All three strategies apply the same filters.
type SearchFilters struct {
	Category  Category
	Kind      string   // Extension filter, e.g. ".md"
	Tags      []string // Match if the chunk carries any of these tags
	DateRange *DateRange
}

// SearchQuery is the externally supplied query.
type SearchQuery struct {
	Text    string
	Filters *SearchFilters
	Limit   int // Defaults to 10
	Offset  int
}

// SearchResult is one ranked hit.
type SearchResult struct {
	ChunkID    string
	Content    string
	Metadata   ChunkMetadata
	Score      float64
	Highlights []string
	Category   Category
	Tags       []string
}

// SearchResponse wraps one page of results. The shape is always well
// formed: a total failure yields empty results and an error note, never a
// missing response.
type SearchResponse struct {
	Results     []SearchResult
	Total       int // Total ranked hits before pagination
	Query       string
	Duration    time.Duration
	Suggestions []string
	Error       string // Non-empty only when the search failed outright
}

// Matches reports whether a chunk passes the filters.
func (f *SearchFilters) Matches(c *KnowledgeChunk) bool {
	if f == nil {
		return true
	}
	if f.Category != "" && c.Category != f.Category {
		return false
	}
	if f.Kind != "" && c.Metadata.Kind != f.Kind {
		return false
	}
	if len(f.Tags) > 0 {
		found := false
		for _, want := range f.Tags {
			for _, have := range c.Tags {
				if want == have {
					found = true
					break
				}
			}
			if found {
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.DateRange != nil {
		if !f.DateRange.Start.IsZero() && c.Metadata.ModTime.Before(f.DateRange.Start) {
			return false
		}
		if !f.DateRange.End.IsZero() && c.Metadata.ModTime.After(f.DateRange.End) {
			return false
		}
	}
	return true
}
