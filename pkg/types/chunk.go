package types

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"path/filepath"
	"sort"
	"time"
)

// Category is the closed classification vocabulary for knowledge chunks.
// The classifier applies path heuristics first, content heuristics second,
// and the extension fallback last.
type Category string

const (
	CategoryUIComponents  Category = "ui-components"
	CategoryAPIRoutes     Category = "api-routes"
	CategoryServices      Category = "services"
	CategoryDataModels    Category = "data-models"
	CategoryDocumentation Category = "documentation"
	CategoryDatabase      Category = "database"
	CategoryConfiguration Category = "configuration"
	CategoryCode          Category = "code"
	CategoryOther         Category = "other"
)

// FileDescriptor identifies a candidate file produced by the scanner.
// Descriptors are ephemeral and never outlive a single indexing pass.
type FileDescriptor struct {
	Path      string
	SizeBytes int64
	ModTime   time.Time
	Kind      string // Lowercased extension including the dot, e.g. ".md"
}

// ChunkMetadata carries the file-level facts recorded on every chunk.
type ChunkMetadata struct {
	Path        string // Slash-normalized, relative to the indexed root
	Name        string // Base name including extension
	Kind        string // Lowercased extension including the dot
	SizeBytes   int64
	ModTime     time.Time
	ContentType string // MIME type from the extension table
}

// KnowledgeChunk is the atomic unit of knowledge: the structural, taggable,
// embeddable representation of one source file.
type KnowledgeChunk struct {
	ID        string
	Content   string // Structural projection of the file, not raw bytes
	Metadata  ChunkMetadata
	Embedding []float32 // Nil when vectorization failed
	Tags      []string  // Sorted, de-duplicated; always contains kind:<ext>
	Category  Category
}

// ChunkID derives the chunk identifier from the slash-normalized relative
// path. Path-derived ids make re-indexing a file replace its chunk instead
// of duplicating it.
func ChunkID(relPath string) string {
	sum := sha256.Sum256([]byte(filepath.ToSlash(relPath)))
	return hex.EncodeToString(sum[:8])
}

// Validate checks the chunk invariants: exactly one category and a
// non-empty tag set. A nil embedding is legal.
func (c *KnowledgeChunk) Validate() error {
	if c.ID == "" {
		return errors.New("chunk id is required")
	}
	if c.Category == "" {
		return errors.New("chunk category is required")
	}
	if len(c.Tags) == 0 {
		return errors.New("chunk tag set cannot be empty")
	}
	if c.Metadata.Path == "" {
		return errors.New("chunk path is required")
	}
	return nil
}

// HasEmbedding reports whether the chunk can participate in similarity
// edges and semantic search.
func (c *KnowledgeChunk) HasEmbedding() bool {
	return len(c.Embedding) > 0
}

// Clone returns a deep copy so read-only consumers cannot mutate the
// coordinator's chunk set in place.
func (c *KnowledgeChunk) Clone() *KnowledgeChunk {
	dup := *c
	if c.Embedding != nil {
		dup.Embedding = make([]float32, len(c.Embedding))
		copy(dup.Embedding, c.Embedding)
	}
	if c.Tags != nil {
		dup.Tags = make([]string, len(c.Tags))
		copy(dup.Tags, c.Tags)
	}
	return &dup
}

// NormalizeTags sorts the tag set and collapses duplicates.
func (c *KnowledgeChunk) NormalizeTags() {
	if len(c.Tags) < 2 {
		return
	}
	seen := make(map[string]struct{}, len(c.Tags))
	out := c.Tags[:0]
	for _, t := range c.Tags {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	c.Tags = out
	sort.Strings(c.Tags)
}
