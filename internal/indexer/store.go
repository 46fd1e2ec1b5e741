package indexer

import (
	"sort"
	"sync"

	"github.com/dshills/kbgraph-mcp/pkg/types"
)

// ChunkStore is the in-memory chunk set. A full pass swaps the whole map
// via Replace; watch-mode updates merge single chunks via Put. Readers get
// deep copies, so a snapshot taken mid-update stays consistent.
type ChunkStore struct {
	mu     sync.RWMutex
	chunks map[string]*types.KnowledgeChunk
}

// NewChunkStore creates an empty store.
func NewChunkStore() *ChunkStore {
	return &ChunkStore{chunks: make(map[string]*types.KnowledgeChunk)}
}

// Replace swaps in a new chunk set. Later chunks win on id collision.
func (s *ChunkStore) Replace(chunks []*types.KnowledgeChunk) {
	next := make(map[string]*types.KnowledgeChunk, len(chunks))
	for _, c := range chunks {
		next[c.ID] = c
	}

	s.mu.Lock()
	s.chunks = next
	s.mu.Unlock()
}

// Put merges one chunk, inserting or overwriting by id.
func (s *ChunkStore) Put(chunk *types.KnowledgeChunk) {
	s.mu.Lock()
	s.chunks[chunk.ID] = chunk
	s.mu.Unlock()
}

// Get returns a copy of the chunk with the given id.
func (s *ChunkStore) Get(id string) (*types.KnowledgeChunk, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	chunk, ok := s.chunks[id]
	if !ok {
		return nil, false
	}
	return chunk.Clone(), true
}

// Snapshot returns copies of all chunks, ordered by path.
func (s *ChunkStore) Snapshot() []*types.KnowledgeChunk {
	s.mu.RLock()
	out := make([]*types.KnowledgeChunk, 0, len(s.chunks))
	for _, c := range s.chunks {
		out = append(out, c.Clone())
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].Metadata.Path < out[j].Metadata.Path
	})
	return out
}

// Len returns the number of stored chunks.
func (s *ChunkStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks)
}
