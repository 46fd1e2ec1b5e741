package searcher

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/dshills/kbgraph-mcp/internal/embedder"
	"github.com/dshills/kbgraph-mcp/pkg/types"
)

// Per-strategy scoring constants.
const (
	keywordOccurrenceScore = 0.1
	semanticFloor          = 0.3
	headerNameWeight       = 2.0
	headerPathWeight       = 1.0

	maxKeywordHighlights  = 3
	maxSemanticHighlights = 2
)

// strategyHit is one chunk's score and highlights under a single strategy.
type strategyHit struct {
	score      float64
	highlights []string
}

// tokenize lowercases, splits on whitespace, and drops tokens of one or
// two characters.
func tokenize(text string) []string {
	var tokens []string
	for _, tok := range strings.Fields(strings.ToLower(text)) {
		if len(tok) > 2 {
			tokens = append(tokens, tok)
		}
	}
	return tokens
}

// keywordScores counts token occurrences in chunk content. Each occurrence
// is worth a fixed increment; highlights are the first lines containing
// any token.
func keywordScores(tokens []string, chunks []*types.KnowledgeChunk) map[string]strategyHit {
	hits := make(map[string]strategyHit)
	if len(tokens) == 0 {
		return hits
	}

	for _, chunk := range chunks {
		content := strings.ToLower(chunk.Content)

		occurrences := 0
		for _, tok := range tokens {
			occurrences += strings.Count(content, tok)
		}
		if occurrences == 0 {
			continue
		}

		hits[chunk.ID] = strategyHit{
			score:      float64(occurrences) * keywordOccurrenceScore,
			highlights: keywordHighlights(tokens, chunk.Content),
		}
	}
	return hits
}

// keywordHighlights returns up to three content lines containing a token.
func keywordHighlights(tokens []string, content string) []string {
	var lines []string
	for _, line := range strings.Split(content, "\n") {
		lower := strings.ToLower(line)
		for _, tok := range tokens {
			if strings.Contains(lower, tok) {
				trimmed := strings.TrimSpace(line)
				if trimmed != "" {
					lines = append(lines, trimmed)
				}
				break
			}
		}
		if len(lines) >= maxKeywordHighlights {
			break
		}
	}
	return lines
}

// semanticScores embeds the query once and scores chunks by cosine
// similarity, keeping only those at or above the floor. An embedding
// failure degrades search to the other two strategies.
func semanticScores(ctx context.Context, emb embedder.Embedder, queryText string, tokens []string, chunks []*types.KnowledgeChunk) map[string]strategyHit {
	hits := make(map[string]strategyHit)
	if strings.TrimSpace(queryText) == "" {
		return hits
	}

	resp, err := emb.GenerateEmbedding(ctx, embedder.EmbeddingRequest{Text: queryText})
	if err != nil {
		log.Printf("searcher: %v: query embedding: %v", types.ErrSearch, err)
		return hits
	}

	for _, chunk := range chunks {
		if !chunk.HasEmbedding() {
			continue
		}
		sim := embedder.Cosine(resp.Vector, chunk.Embedding)
		if sim < semanticFloor {
			continue
		}
		hits[chunk.ID] = strategyHit{
			score:      sim,
			highlights: semanticHighlights(tokens, chunk.Content),
		}
	}
	return hits
}

// semanticHighlights returns up to two sentences mentioning a token,
// falling back to the opening sentence.
func semanticHighlights(tokens []string, content string) []string {
	sentences := splitSentences(content)
	if len(sentences) == 0 {
		return nil
	}

	var picked []string
	for _, sentence := range sentences {
		lower := strings.ToLower(sentence)
		for _, tok := range tokens {
			if strings.Contains(lower, tok) {
				picked = append(picked, sentence)
				break
			}
		}
		if len(picked) >= maxSemanticHighlights {
			break
		}
	}

	if len(picked) == 0 {
		picked = sentences[:1]
	}
	return picked
}

// splitSentences is a crude period/newline splitter, good enough for
// highlight snippets.
func splitSentences(content string) []string {
	var sentences []string
	for _, part := range strings.FieldsFunc(content, func(r rune) bool {
		return r == '.' || r == '\n'
	}) {
		part = strings.TrimSpace(part)
		if part != "" {
			sentences = append(sentences, part)
		}
	}
	return sentences
}

// headerScores matches tokens against file names and paths. Name matches
// weigh double path matches; the highlight identifies the file.
func headerScores(tokens []string, chunks []*types.KnowledgeChunk) map[string]strategyHit {
	hits := make(map[string]strategyHit)
	if len(tokens) == 0 {
		return hits
	}

	for _, chunk := range chunks {
		name := strings.ToLower(chunk.Metadata.Name)
		path := strings.ToLower(chunk.Metadata.Path)

		score := 0.0
		for _, tok := range tokens {
			if strings.Contains(name, tok) {
				score += headerNameWeight
			}
			if strings.Contains(path, tok) {
				score += headerPathWeight
			}
		}
		if score == 0 {
			continue
		}

		hits[chunk.ID] = strategyHit{
			score:      score,
			highlights: []string{fmt.Sprintf("File: %s", chunk.Metadata.Name)},
		}
	}
	return hits
}
