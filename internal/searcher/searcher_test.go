package searcher

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/kbgraph-mcp/internal/embedder"
	"github.com/dshills/kbgraph-mcp/internal/storage"
	"github.com/dshills/kbgraph-mcp/pkg/types"
)

type fakeSource struct {
	chunks []*types.KnowledgeChunk
}

func (f *fakeSource) Snapshot() []*types.KnowledgeChunk {
	return f.chunks
}

func embedChunk(t *testing.T, emb embedder.Embedder, chunk *types.KnowledgeChunk) {
	t.Helper()
	vec, err := emb.GenerateEmbedding(context.Background(), embedder.EmbeddingRequest{Text: chunk.Content})
	require.NoError(t, err)
	chunk.Embedding = vec.Vector
}

func docChunk(t *testing.T, emb embedder.Embedder, path, content string, category types.Category, tags ...string) *types.KnowledgeChunk {
	t.Helper()
	chunk := &types.KnowledgeChunk{
		ID:      types.ChunkID(path),
		Content: content,
		Metadata: types.ChunkMetadata{
			Path:    path,
			Name:    path,
			Kind:    ".md",
			ModTime: time.Now(),
		},
		Category: category,
		Tags:     tags,
	}
	embedChunk(t, emb, chunk)
	return chunk
}

func newTestEngine(t *testing.T, chunks ...*types.KnowledgeChunk) (*Engine, embedder.Embedder) {
	t.Helper()
	emb := embedder.NewHashProvider(nil)
	engine := New(&fakeSource{chunks: chunks}, emb, storage.Discard(), 16)
	return engine, emb
}

func TestSearchRanksKeywordMatchFirst(t *testing.T) {
	emb := embedder.NewHashProvider(nil)
	a := docChunk(t, emb, "a.md", "# Setup Guide\n\nThe database requires running migrations before use.", types.CategoryDocumentation, "kind:md")
	b := docChunk(t, emb, "b.md", "# Helpers\n\nSmall utility notes.", types.CategoryDocumentation, "kind:md")

	engine := New(&fakeSource{chunks: []*types.KnowledgeChunk{a, b}}, emb, storage.Discard(), 16)

	resp := engine.Search(context.Background(), types.SearchQuery{Text: "database"})
	require.Empty(t, resp.Error)
	require.NotEmpty(t, resp.Results)
	assert.Equal(t, a.ID, resp.Results[0].ChunkID)
	assert.Equal(t, "database", resp.Query)
	assert.GreaterOrEqual(t, resp.Total, 1)
}

func TestSearchEmptyQuery(t *testing.T) {
	engine, _ := newTestEngine(t)

	resp := engine.Search(context.Background(), types.SearchQuery{Text: ""})
	assert.Empty(t, resp.Error)
	assert.Empty(t, resp.Results)
	assert.Zero(t, resp.Total)
}

func TestSearchShortTokensDropped(t *testing.T) {
	assert.Empty(t, tokenize("a an of"))
	assert.Equal(t, []string{"database"}, tokenize("database of"))
}

func TestSearchPaginationPartitionsRanking(t *testing.T) {
	emb := embedder.NewHashProvider(nil)
	var chunks []*types.KnowledgeChunk
	for i := 0; i < 4; i++ {
		chunks = append(chunks, docChunk(t, emb,
			fmt.Sprintf("f%d.md", i),
			fmt.Sprintf("# File %d\n\ndatabase notes entry %d", i, i),
			types.CategoryDocumentation, "kind:md"))
	}
	engine := New(&fakeSource{chunks: chunks}, emb, storage.Discard(), 16)
	ctx := context.Background()

	full := engine.Search(ctx, types.SearchQuery{Text: "database", Limit: 10})
	require.Empty(t, full.Error)
	require.Equal(t, 4, full.Total)
	require.Len(t, full.Results, 4)

	// Pages partition the ranked list and Total stays stable.
	var paged []types.SearchResult
	for offset := 0; offset < 4; offset += 2 {
		page := engine.Search(ctx, types.SearchQuery{Text: "database", Limit: 2, Offset: offset})
		assert.Equal(t, 4, page.Total)
		paged = append(paged, page.Results...)
	}
	require.Len(t, paged, 4)
	for i := range full.Results {
		assert.Equal(t, full.Results[i].ChunkID, paged[i].ChunkID)
	}

	// Offset past the end yields an empty page, not an error.
	past := engine.Search(ctx, types.SearchQuery{Text: "database", Limit: 2, Offset: 100})
	assert.Empty(t, past.Error)
	assert.Empty(t, past.Results)
	assert.Equal(t, 4, past.Total)
}

func TestSearchCategoryFilter(t *testing.T) {
	emb := embedder.NewHashProvider(nil)
	doc := docChunk(t, emb, "guide.md", "database guide", types.CategoryDocumentation, "kind:md")
	code := docChunk(t, emb, "db.ts", "database client", types.CategoryCode, "kind:ts")

	engine := New(&fakeSource{chunks: []*types.KnowledgeChunk{doc, code}}, emb, storage.Discard(), 16)

	resp := engine.Search(context.Background(), types.SearchQuery{
		Text:    "database",
		Filters: &types.SearchFilters{Category: types.CategoryDocumentation},
	})
	require.Empty(t, resp.Error)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, doc.ID, resp.Results[0].ChunkID)
}

func TestSearchKeywordHighlights(t *testing.T) {
	emb := embedder.NewHashProvider(nil)
	chunk := docChunk(t, emb, "a.md", "# Title\nThe database line here.\nUnrelated line.", types.CategoryDocumentation, "kind:md")

	engine := New(&fakeSource{chunks: []*types.KnowledgeChunk{chunk}}, emb, storage.Discard(), 16)

	resp := engine.Search(context.Background(), types.SearchQuery{Text: "database"})
	require.NotEmpty(t, resp.Results)

	var found bool
	for _, h := range resp.Results[0].Highlights {
		if h == "The database line here." {
			found = true
		}
	}
	assert.True(t, found, "expected the matching line among highlights: %v", resp.Results[0].Highlights)
}

func TestSearchHeaderMatch(t *testing.T) {
	emb := embedder.NewHashProvider(nil)
	chunk := docChunk(t, emb, "deployment.md", "nothing relevant inside", types.CategoryDocumentation, "kind:md")

	engine := New(&fakeSource{chunks: []*types.KnowledgeChunk{chunk}}, emb, storage.Discard(), 16)

	resp := engine.Search(context.Background(), types.SearchQuery{Text: "deployment"})
	require.NotEmpty(t, resp.Results)
	assert.Contains(t, resp.Results[0].Highlights, "File: deployment.md")
}

func TestSearchSuggestions(t *testing.T) {
	emb := embedder.NewHashProvider(nil)
	a := docChunk(t, emb, "a.md", "database setup", types.CategoryDocumentation, "kind:md", "todo")
	b := docChunk(t, emb, "b.md", "database teardown", types.CategoryDocumentation, "kind:md")

	engine := New(&fakeSource{chunks: []*types.KnowledgeChunk{a, b}}, emb, storage.Discard(), 16)

	resp := engine.Search(context.Background(), types.SearchQuery{Text: "database"})
	require.Len(t, resp.Results, 2)
	assert.Contains(t, resp.Suggestions, "database kind:md")
	// A tag carried by only one result is not suggested.
	assert.NotContains(t, resp.Suggestions, "database todo")
	assert.LessOrEqual(t, len(resp.Suggestions), maxSuggestions)
}

func TestSearchSuggestionsSingleResult(t *testing.T) {
	emb := embedder.NewHashProvider(nil)
	chunk := docChunk(t, emb, "a.md", "database setup", types.CategoryDocumentation, "kind:md", "todo")

	engine := New(&fakeSource{chunks: []*types.KnowledgeChunk{chunk}}, emb, storage.Discard(), 16)

	resp := engine.Search(context.Background(), types.SearchQuery{Text: "database"})
	require.NotEmpty(t, resp.Results)
	assert.Empty(t, resp.Suggestions)
}

func TestSearchSuggestionsUsePageResults(t *testing.T) {
	mk := func(path, content string, tags ...string) *types.KnowledgeChunk {
		return &types.KnowledgeChunk{
			ID:       types.ChunkID(path),
			Content:  content,
			Metadata: types.ChunkMetadata{Path: path, Name: path, Kind: ".md"},
			Category: types.CategoryDocumentation,
			Tags:     tags,
		}
	}
	a := mk("a.md", "database database database", "kind:md")
	b := mk("b.md", "database notes", "kind:md", "legacy")
	c := mk("c.md", "database extra", "kind:md", "legacy")

	engine, _ := newTestEngine(t, a, b, c)
	ctx := context.Background()

	full := engine.Search(ctx, types.SearchQuery{Text: "database", Limit: 10})
	assert.Contains(t, full.Suggestions, "database legacy")

	// Tags of results beyond the requested page do not drive suggestions.
	page := engine.Search(ctx, types.SearchQuery{Text: "database", Limit: 1})
	require.Len(t, page.Results, 1)
	assert.Equal(t, a.ID, page.Results[0].ChunkID)
	assert.NotContains(t, page.Suggestions, "database legacy")
}

func TestFuseAnyTokenExactBoost(t *testing.T) {
	chunk := &types.KnowledgeChunk{
		ID:       "c1",
		Content:  "the database layer",
		Metadata: types.ChunkMetadata{Path: "db.md", Name: "db.md"},
	}
	engine, _ := newTestEngine(t, chunk)

	hits := map[string]map[string]strategyHit{
		"keyword": {chunk.ID: {score: 1.0}},
	}
	byID := map[string]*types.KnowledgeChunk{chunk.ID: chunk}

	// One verbatim token is enough even when the full phrase is absent.
	ranked := engine.fuse(tokenize("database flux"), hits, byID)
	require.Len(t, ranked, 1)
	assert.InDelta(t, keywordWeight*exactMatchBoost, ranked[0].Score, 1e-9)

	ranked = engine.fuse(tokenize("flux capacitor"), hits, byID)
	require.Len(t, ranked, 1)
	assert.InDelta(t, keywordWeight, ranked[0].Score, 1e-9)
}

func TestCategoryMatchesUsesTokenizedQuery(t *testing.T) {
	// Tokens of one or two characters never reach the matcher.
	assert.False(t, categoryMatches(tokenize("on"), types.CategoryDocumentation))
	assert.True(t, categoryMatches(tokenize("documentation index"), types.CategoryDocumentation))
	assert.False(t, categoryMatches(nil, types.CategoryDocumentation))
}

func TestSearchResponseCache(t *testing.T) {
	emb := embedder.NewHashProvider(nil)
	source := &fakeSource{chunks: []*types.KnowledgeChunk{
		docChunk(t, emb, "a.md", "database setup", types.CategoryDocumentation, "kind:md"),
	}}
	engine := New(source, emb, storage.Discard(), 16)
	ctx := context.Background()

	first := engine.Search(ctx, types.SearchQuery{Text: "database"})
	require.Equal(t, 1, first.Total)

	// A repeated query is served from cache even after the chunk set moved.
	source.chunks = nil
	second := engine.Search(ctx, types.SearchQuery{Text: "database"})
	assert.Equal(t, first.Total, second.Total)
	require.Len(t, second.Results, 1)
	assert.Equal(t, first.Results[0].ChunkID, second.Results[0].ChunkID)
}

type panicSource struct{}

func (panicSource) Snapshot() []*types.KnowledgeChunk {
	panic("snapshot blew up")
}

func TestSearchAbsorbsPanic(t *testing.T) {
	emb := embedder.NewHashProvider(nil)
	engine := New(panicSource{}, emb, storage.Discard(), 16)

	resp := engine.Search(context.Background(), types.SearchQuery{Text: "database"})
	require.NotNil(t, resp)
	assert.Contains(t, resp.Error, types.ErrSearch.Error())
	assert.Empty(t, resp.Results)
}

func TestSearchRecencyBoost(t *testing.T) {
	emb := embedder.NewHashProvider(nil)
	fresh := docChunk(t, emb, "fresh.md", "database entry", types.CategoryDocumentation, "kind:md")
	stale := docChunk(t, emb, "stale.md", "database entry", types.CategoryDocumentation, "kind:md")
	stale.Metadata.ModTime = time.Now().Add(-90 * 24 * time.Hour)

	engine := New(&fakeSource{chunks: []*types.KnowledgeChunk{stale, fresh}}, emb, storage.Discard(), 16)

	resp := engine.Search(context.Background(), types.SearchQuery{Text: "database"})
	require.Len(t, resp.Results, 2)
	assert.Equal(t, fresh.ID, resp.Results[0].ChunkID)
	assert.Greater(t, resp.Results[0].Score, resp.Results[1].Score)
}
