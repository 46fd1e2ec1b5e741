// Package types provides shared type definitions for the kbgraph MCP server.
//
// This package defines the domain types used across the indexing pipeline:
// knowledge chunks, graph nodes and edges, clusters, and search
// requests/responses.
//
// # Core Types
//
// KnowledgeChunk is the atomic unit of knowledge, one per source file:
//
//	chunk := &types.KnowledgeChunk{
//	    ID:       types.ChunkID("docs/setup.md"),
//	    Content:  projected,
//	    Category: types.CategoryDocumentation,
//	    Tags:     []string{"kind:.md"},
//	}
//
// GraphNode and GraphEdge describe the knowledge graph built over the chunk
// set; Cluster groups embedding-bearing nodes.
//
// # Identity
//
// Chunk ids are derived deterministically from the slash-normalized relative
// path via ChunkID, so re-indexing an unchanged tree reproduces the same ids
// and a watch-mode update replaces rather than duplicates.
//
// # Errors
//
// The package-level sentinels (ErrIO, ErrParse, ErrVectorize, ErrWatch,
// ErrSearch) form the pipeline's error taxonomy; wrap them with %w and
// classify with errors.Is.
package types
