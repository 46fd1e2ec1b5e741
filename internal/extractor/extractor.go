package extractor

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/dshills/kbgraph-mcp/internal/embedder"
	"github.com/dshills/kbgraph-mcp/pkg/types"
)

// contentTypes maps known extensions to MIME types. Unknown extensions map
// to plain text.
var contentTypes = map[string]string{
	".md":   "text/markdown",
	".txt":  "text/plain",
	".html": "text/html",
	".css":  "text/css",
	".js":   "application/javascript",
	".jsx":  "application/javascript",
	".ts":   "application/typescript",
	".tsx":  "application/typescript",
	".go":   "text/x-go",
	".py":   "text/x-python",
	".sh":   "application/x-sh",
	".sql":  "application/sql",
	".json": "application/json",
	".yaml": "application/yaml",
	".yml":  "application/yaml",
	".toml": "application/toml",
	".xml":  "application/xml",
	".csv":  "text/csv",
}

const fallbackContentType = "text/plain"

// Extractor converts one file into a KnowledgeChunk. The vectorizer is
// injected and replaceable without touching anything else.
type Extractor struct {
	embedder embedder.Embedder
}

// New creates an Extractor backed by the given vectorizer.
func New(emb embedder.Embedder) *Extractor {
	return &Extractor{embedder: emb}
}

// Extract reads the file at path and produces its chunk. An unreadable
// file fails with ErrIO; a projection failure falls back to the raw
// content; a vectorizer failure leaves the embedding nil. Extraction is
// never aborted by embedding failure.
func (e *Extractor) Extract(ctx context.Context, root, path string) (*types.KnowledgeChunk, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: stat %s: %v", types.ErrIO, path, err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", types.ErrIO, path, err)
	}

	relPath := path
	if root != "" {
		if rel, relErr := filepath.Rel(root, path); relErr == nil {
			relPath = rel
		}
	}
	relPath = filepath.ToSlash(relPath)

	kind := strings.ToLower(filepath.Ext(path))
	contentType, ok := contentTypes[kind]
	if !ok {
		contentType = fallbackContentType
	}

	content := projectContent(kind, string(raw))

	chunk := &types.KnowledgeChunk{
		ID:      types.ChunkID(relPath),
		Content: content,
		Metadata: types.ChunkMetadata{
			Path:        relPath,
			Name:        filepath.Base(path),
			Kind:        kind,
			SizeBytes:   info.Size(),
			ModTime:     info.ModTime(),
			ContentType: contentType,
		},
		Category: Classify(relPath, content, kind),
		Tags:     ExtractTags(content, kind),
	}

	emb, err := e.embedder.GenerateEmbedding(ctx, embedder.EmbeddingRequest{Text: content})
	if err != nil {
		// The chunk survives with a nil embedding; it is excluded from
		// semantic search and clustering only.
		log.Printf("extractor: %v: %s: %v", types.ErrVectorize, relPath, err)
	} else {
		chunk.Embedding = emb.Vector
	}

	chunk.NormalizeTags()
	return chunk, nil
}
