package graph

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/dshills/kbgraph-mcp/internal/embedder"
	"github.com/dshills/kbgraph-mcp/pkg/types"
)

// Edge strengths for the inferred relation kinds. Similarity edges carry
// the cosine score itself.
const (
	importStrength = 0.9
	dependStrength = 0.7
)

// namePatterns holds the per-node compiled patterns used when scanning
// other nodes' content for references to this node.
type namePatterns struct {
	imports []*regexp.Regexp
	depends []*regexp.Regexp
}

// compilePatterns builds the reference patterns for a node name. Import
// detection matches module-style specifiers ending in the extension-less
// name; dependency detection matches bare mentions of the file name.
func compilePatterns(name string) *namePatterns {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	baseQ := regexp.QuoteMeta(base)
	nameQ := regexp.QuoteMeta(name)

	return &namePatterns{
		imports: []*regexp.Regexp{
			regexp.MustCompile(`(?i)import\s+.*from\s+['"][^'"]*` + baseQ + `['"]`),
			regexp.MustCompile(`(?i)require\s*\(\s*['"][^'"]*` + baseQ + `['"]`),
			regexp.MustCompile(`(?i)import\s+['"][^'"]*` + baseQ + `['"]`),
		},
		depends: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b` + nameQ + `\b`),
			regexp.MustCompile(`(?i)\bnew\s+` + baseQ + `\b`),
			regexp.MustCompile(`(?i)\b` + baseQ + `\.[A-Za-z]`),
		},
	}
}

// buildConnections runs pairwise inference over every node. Reference
// matching is directional; similarity is checked once per pair. Caller
// holds the lock.
func (g *Graph) buildConnections() {
	for i := 0; i < len(g.order); i++ {
		for j := i + 1; j < len(g.order); j++ {
			a := g.nodes[g.order[i]]
			b := g.nodes[g.order[j]]

			g.inferEdges(a, b)
			g.inferEdges(b, a)
			g.inferSimilar(a, b)
		}
	}
}

// inferEdges scans from's content for references to to, adding imports
// and depends_on edges. Caller holds the lock.
func (g *Graph) inferEdges(from, to *types.GraphNode) {
	content := g.contents[from.ID]
	if content == "" {
		return
	}

	pats := g.patterns[to.ID]
	if pats == nil {
		pats = compilePatterns(to.Name)
		g.patterns[to.ID] = pats
	}

	for _, re := range pats.imports {
		if re.MatchString(content) {
			g.addEdge(from.ID, to.ID, types.EdgeImports, importStrength)
			break
		}
	}

	for _, re := range pats.depends {
		if re.MatchString(content) {
			g.addEdge(from.ID, to.ID, types.EdgeDependsOn, dependStrength)
			break
		}
	}
}

// inferSimilar adds a similar_to edge when both nodes carry embeddings and
// their cosine similarity clears the threshold. Caller holds the lock.
func (g *Graph) inferSimilar(a, b *types.GraphNode) {
	if len(a.Embedding) == 0 || len(b.Embedding) == 0 {
		return
	}

	sim := embedder.Cosine(a.Embedding, b.Embedding)
	if sim > similarityThreshold {
		g.addEdge(a.ID, b.ID, types.EdgeSimilarTo, sim)
	}
}

// addEdge records one typed edge and links both connection lists. Repeat
// detections of the same (source, target, type) are idempotent. Caller
// holds the lock.
func (g *Graph) addEdge(source, target string, edgeType types.EdgeType, strength float64) {
	key := fmt.Sprintf("%s|%s|%s", source, target, edgeType)
	if _, exists := g.edges[key]; exists {
		return
	}

	g.edges[key] = &types.GraphEdge{
		Source:   source,
		Target:   target,
		Type:     edgeType,
		Strength: strength,
		Created:  time.Now(),
	}

	g.connect(source, target)
	g.connect(target, source)
}

// connect appends to a node's connection list, skipping duplicates.
func (g *Graph) connect(id, other string) {
	node, ok := g.nodes[id]
	if !ok {
		return
	}
	for _, c := range node.Connections {
		if c == other {
			return
		}
	}
	node.Connections = append(node.Connections, other)
}

// Edges returns copies of the current edge set.
func (g *Graph) Edges() []*types.GraphEdge {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]*types.GraphEdge, 0, len(g.edges))
	for _, e := range g.edges {
		dup := *e
		out = append(out, &dup)
	}
	return out
}
