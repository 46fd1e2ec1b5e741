package searcher

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/dshills/kbgraph-mcp/internal/embedder"
	"github.com/dshills/kbgraph-mcp/internal/storage"
	"github.com/dshills/kbgraph-mcp/pkg/types"
)

// Rank fusion weights and post-fusion boosts.
const (
	keywordWeight  = 0.40
	semanticWeight = 0.35
	headerWeight   = 0.25

	exactMatchBoost = 1.5
	recencyBoost    = 1.2
	categoryBoost   = 1.1

	recencyWindow  = 30 * 24 * time.Hour
	maxSuggestions = 5
	defaultLimit   = 10
)

// ChunkSource supplies the chunk set to search over.
type ChunkSource interface {
	Snapshot() []*types.KnowledgeChunk
}

// Engine fuses keyword, semantic, and header retrieval over the live
// chunk set. Search never returns a Go error; total failures surface in
// the response's Error field so callers always get a well-formed page.
type Engine struct {
	chunks    ChunkSource
	embedder  embedder.Embedder
	artifacts storage.Store
	cache     *lru.Cache[string, *types.SearchResponse]
}

// New creates an Engine with a response cache of the given size.
func New(chunks ChunkSource, emb embedder.Embedder, artifacts storage.Store, cacheSize int) *Engine {
	if cacheSize <= 0 {
		cacheSize = 128
	}
	cache, err := lru.New[string, *types.SearchResponse](cacheSize)
	if err != nil {
		cache, _ = lru.New[string, *types.SearchResponse](128)
	}

	return &Engine{
		chunks:    chunks,
		embedder:  emb,
		artifacts: artifacts,
		cache:     cache,
	}
}

// Search runs one fused query. Ranking happens over the full filtered set;
// Offset and Limit slice the ranked list afterward, so Total is stable
// across pages of the same query.
func (e *Engine) Search(ctx context.Context, query types.SearchQuery) *types.SearchResponse {
	start := time.Now()

	if query.Limit <= 0 {
		query.Limit = defaultLimit
	}
	if query.Offset < 0 {
		query.Offset = 0
	}

	key := cacheKey(query)
	if cached, ok := e.cache.Get(key); ok {
		return copyResponse(cached)
	}

	resp := func() (r *types.SearchResponse) {
		defer func() {
			if p := recover(); p != nil {
				r = &types.SearchResponse{Query: query.Text, Error: fmt.Sprintf("%v: %v", types.ErrSearch, p)}
			}
		}()
		return e.search(ctx, query)
	}()
	resp.Duration = time.Since(start)

	e.audit(ctx, query.Text, resp)

	if resp.Error == "" {
		e.cache.Add(key, copyResponse(resp))
	}
	return resp
}

func (e *Engine) search(ctx context.Context, query types.SearchQuery) *types.SearchResponse {
	resp := &types.SearchResponse{Query: query.Text}

	tokens := tokenize(query.Text)

	var filtered []*types.KnowledgeChunk
	for _, chunk := range e.chunks.Snapshot() {
		if query.Filters.Matches(chunk) {
			filtered = append(filtered, chunk)
		}
	}
	if len(filtered) == 0 {
		return resp
	}

	byID := make(map[string]*types.KnowledgeChunk, len(filtered))
	for _, chunk := range filtered {
		byID[chunk.ID] = chunk
	}

	// The three strategies are independent; run them concurrently and
	// fuse afterward.
	type strategyOut struct {
		name string
		hits map[string]strategyHit
	}
	outs := make(chan strategyOut, 3)

	go func() { outs <- strategyOut{"keyword", keywordScores(tokens, filtered)} }()
	go func() { outs <- strategyOut{"semantic", semanticScores(ctx, e.embedder, query.Text, tokens, filtered)} }()
	go func() { outs <- strategyOut{"header", headerScores(tokens, filtered)} }()

	hits := make(map[string]map[string]strategyHit, 3)
	for i := 0; i < 3; i++ {
		out := <-outs
		hits[out.name] = out.hits
	}

	ranked := e.fuse(tokens, hits, byID)
	resp.Total = len(ranked)

	// Paginate after ranking.
	startIdx := query.Offset
	if startIdx > len(ranked) {
		startIdx = len(ranked)
	}
	endIdx := startIdx + query.Limit
	if endIdx > len(ranked) {
		endIdx = len(ranked)
	}
	resp.Results = ranked[startIdx:endIdx]

	resp.Suggestions = suggestions(query.Text, resp.Results)
	return resp
}

// fuse combines the per-strategy scores, applies the boosts, and returns
// the full ranked list.
func (e *Engine) fuse(tokens []string, hits map[string]map[string]strategyHit, byID map[string]*types.KnowledgeChunk) []types.SearchResult {
	seen := make(map[string]struct{})
	for _, strategyHits := range hits {
		for id := range strategyHits {
			seen[id] = struct{}{}
		}
	}

	now := time.Now()

	results := make([]types.SearchResult, 0, len(seen))
	for id := range seen {
		chunk := byID[id]

		var score float64
		var highlights []string

		if hit, ok := hits["keyword"][id]; ok {
			score += hit.score * keywordWeight
			highlights = append(highlights, hit.highlights...)
		}
		if hit, ok := hits["semantic"][id]; ok {
			score += hit.score * semanticWeight
			highlights = append(highlights, hit.highlights...)
		}
		if hit, ok := hits["header"][id]; ok {
			score += hit.score * headerWeight
			highlights = append(highlights, hit.highlights...)
		}

		if containsAnyToken(strings.ToLower(chunk.Content), tokens) {
			score *= exactMatchBoost
		}
		if !chunk.Metadata.ModTime.IsZero() && now.Sub(chunk.Metadata.ModTime) < recencyWindow {
			score *= recencyBoost
		}
		if categoryMatches(tokens, chunk.Category) {
			score *= categoryBoost
		}

		results = append(results, types.SearchResult{
			ChunkID:    id,
			Content:    chunk.Content,
			Metadata:   chunk.Metadata,
			Score:      score,
			Highlights: dedupeStrings(highlights),
			Category:   chunk.Category,
			Tags:       append([]string(nil), chunk.Tags...),
		})
	}

	// Ties break on path so pages are stable across identical queries.
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Metadata.Path < results[j].Metadata.Path
	})

	return results
}

// containsAnyToken reports whether any query token appears verbatim in
// the lowered content.
func containsAnyToken(lowerContent string, tokens []string) bool {
	for _, tok := range tokens {
		if strings.Contains(lowerContent, tok) {
			return true
		}
	}
	return false
}

// categoryMatches reports whether any query token names the chunk's
// category.
func categoryMatches(tokens []string, category types.Category) bool {
	if category == "" {
		return false
	}
	cat := strings.ToLower(string(category))
	for _, tok := range tokens {
		if strings.Contains(cat, tok) {
			return true
		}
	}
	return false
}

// suggestions tallies tags across the returned page and emits refined
// queries for tags shared by more than one result.
func suggestions(queryText string, page []types.SearchResult) []string {
	queryText = strings.TrimSpace(queryText)
	if queryText == "" || len(page) == 0 {
		return nil
	}

	lowerQuery := strings.ToLower(queryText)
	counts := make(map[string]int)
	for _, result := range page {
		for _, tag := range result.Tags {
			// A tag the user already typed refines nothing.
			if strings.Contains(lowerQuery, strings.ToLower(tag)) {
				continue
			}
			counts[tag]++
		}
	}

	tags := make([]string, 0, len(counts))
	for tag, count := range counts {
		// A tag carried by a single result narrows to what the caller
		// already has.
		if count > 1 {
			tags = append(tags, tag)
		}
	}
	if len(tags) == 0 {
		return nil
	}
	sort.Slice(tags, func(i, j int) bool {
		if counts[tags[i]] != counts[tags[j]] {
			return counts[tags[i]] > counts[tags[j]]
		}
		return tags[i] < tags[j]
	})

	if len(tags) > maxSuggestions {
		tags = tags[:maxSuggestions]
	}

	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		out = append(out, fmt.Sprintf("%s %s", queryText, tag))
	}
	return out
}

// audit appends a query log row; audit failures are logged, never fatal.
func (e *Engine) audit(ctx context.Context, queryText string, resp *types.SearchResponse) {
	rec := &storage.QueryAudit{
		Timestamp:   time.Now(),
		QueryText:   queryText,
		ResultCount: len(resp.Results),
		DurationMs:  resp.Duration.Milliseconds(),
		Failed:      resp.Error != "",
	}
	if err := e.artifacts.AppendQueryAudit(ctx, rec); err != nil {
		log.Printf("searcher: query audit: %v", err)
	}
}

// cacheKey folds the query shape, filters included, into one string.
func cacheKey(query types.SearchQuery) string {
	var b strings.Builder
	fmt.Fprintf(&b, "q=%s|l=%d|o=%d", strings.ToLower(strings.TrimSpace(query.Text)), query.Limit, query.Offset)

	if f := query.Filters; f != nil {
		fmt.Fprintf(&b, "|c=%s|k=%s", f.Category, f.Kind)
		if len(f.Tags) > 0 {
			tags := append([]string(nil), f.Tags...)
			sort.Strings(tags)
			fmt.Fprintf(&b, "|t=%s", strings.Join(tags, ","))
		}
		if f.DateRange != nil {
			fmt.Fprintf(&b, "|d=%d-%d", f.DateRange.Start.UnixNano(), f.DateRange.End.UnixNano())
		}
	}
	return b.String()
}

func copyResponse(resp *types.SearchResponse) *types.SearchResponse {
	dup := *resp
	dup.Results = append([]types.SearchResult(nil), resp.Results...)
	dup.Suggestions = append([]string(nil), resp.Suggestions...)
	return &dup
}

func dedupeStrings(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := in[:0]
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
