package graph

import (
	"log"
	"sort"
	"strings"
	"sync"

	"github.com/dshills/kbgraph-mcp/pkg/types"
)

// similarityThreshold is the cosine floor for similar_to edges.
const similarityThreshold = 0.7

// Graph cross-references chunks: one node per chunk, inferred edges, and
// embedding clusters. It is a read-only consumer of the chunk set and is
// rebuilt wholesale by Build; watch-mode updates go through UpdateNode.
type Graph struct {
	mu       sync.RWMutex
	nodes    map[string]*types.GraphNode
	edges    map[string]*types.GraphEdge
	clusters map[string]*types.Cluster
	contents map[string]string        // Chunk content kept for edge inference
	patterns map[string]*namePatterns // Compiled reference patterns per node
	order    []string                 // Node ids in insertion order, for deterministic scans
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{
		nodes:    make(map[string]*types.GraphNode),
		edges:    make(map[string]*types.GraphEdge),
		clusters: make(map[string]*types.Cluster),
		contents: make(map[string]string),
		patterns: make(map[string]*namePatterns),
	}
}

// Build performs a full rebuild from the chunk set. A failure during
// inference is caught and logged, leaving an empty or partial graph;
// Build never panics out to the caller.
func (g *Graph) Build(chunks []*types.KnowledgeChunk) {
	g.mu.Lock()
	defer g.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			log.Printf("graph: build failed: %v", r)
		}
	}()

	g.nodes = make(map[string]*types.GraphNode, len(chunks))
	g.edges = make(map[string]*types.GraphEdge)
	g.clusters = make(map[string]*types.Cluster)
	g.contents = make(map[string]string, len(chunks))
	g.patterns = make(map[string]*namePatterns, len(chunks))
	g.order = g.order[:0]

	// Sorted input keeps edge and cluster construction reproducible.
	sorted := make([]*types.KnowledgeChunk, len(chunks))
	copy(sorted, chunks)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Metadata.Path < sorted[j].Metadata.Path
	})

	for _, chunk := range sorted {
		g.addNode(chunk)
	}

	g.buildConnections()
	g.performClustering()
}

// addNode creates the 1:1 node for a chunk. Caller holds the lock.
func (g *Graph) addNode(chunk *types.KnowledgeChunk) {
	node := &types.GraphNode{
		ID:          chunk.ID,
		Type:        determineNodeType(chunk),
		Name:        chunk.Metadata.Name,
		Path:        chunk.Metadata.Path,
		Embedding:   chunk.Embedding,
		Connections: []string{},
	}

	g.nodes[chunk.ID] = node
	g.contents[chunk.ID] = chunk.Content
	g.order = append(g.order, chunk.ID)
}

// determineNodeType applies the mutually exclusive typing rules in
// reference order, defaulting to script.
func determineNodeType(chunk *types.KnowledgeChunk) types.NodeType {
	path := strings.ToLower(chunk.Metadata.Path)
	content := strings.ToLower(chunk.Content)

	switch {
	case strings.Contains(path, "components") || strings.Contains(content, "react") || strings.Contains(content, "usestate"):
		return types.NodeComponent
	case strings.Contains(path, "routes") || strings.Contains(content, "router.get") || strings.Contains(content, "router.post"):
		return types.NodeRoute
	case strings.Contains(path, "services") || strings.Contains(content, "service") || strings.Contains(content, "class "):
		return types.NodeService
	case strings.Contains(path, "models") || strings.Contains(content, "create table") || strings.Contains(content, "database"):
		return types.NodeModel
	case strings.Contains(path, "scripts") || strings.Contains(content, "function") || strings.Contains(content, "async"):
		return types.NodeScript
	case strings.Contains(path, "docs") || strings.HasSuffix(path, ".md"):
		return types.NodeDoc
	default:
		return types.NodeScript
	}
}

// UpdateNode merges one re-extracted chunk into the live graph: the node
// is re-typed, its old edges dropped, and only its pairings recomputed.
// Cluster assignments are left to the next full build.
func (g *Graph) UpdateNode(chunk *types.KnowledgeChunk) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.nodes[chunk.ID]; exists {
		g.removeEdgesTouching(chunk.ID)
		delete(g.patterns, chunk.ID)
	} else {
		g.order = append(g.order, chunk.ID)
	}

	node := &types.GraphNode{
		ID:          chunk.ID,
		Type:        determineNodeType(chunk),
		Name:        chunk.Metadata.Name,
		Path:        chunk.Metadata.Path,
		Embedding:   chunk.Embedding,
		Connections: []string{},
	}
	g.nodes[chunk.ID] = node
	g.contents[chunk.ID] = chunk.Content

	for _, otherID := range g.order {
		if otherID == chunk.ID {
			continue
		}
		other, ok := g.nodes[otherID]
		if !ok {
			continue
		}
		g.inferEdges(node, other)
		g.inferEdges(other, node)
		g.inferSimilar(node, other)
	}
}

// removeEdgesTouching drops every edge with the given endpoint and scrubs
// the neighbors' connection lists. Caller holds the lock.
func (g *Graph) removeEdgesTouching(id string) {
	for key, edge := range g.edges {
		if edge.Source != id && edge.Target != id {
			continue
		}
		delete(g.edges, key)

		other := edge.Source
		if other == id {
			other = edge.Target
		}
		if neighbor, ok := g.nodes[other]; ok {
			neighbor.Connections = removeString(neighbor.Connections, id)
		}
	}
}

// FindRelated walks connections breadth-first up to maxDepth hops and
// returns the de-duplicated set of reached nodes, start node included.
func (g *Graph) FindRelated(nodeID string, maxDepth int) []*types.GraphNode {
	g.mu.RLock()
	defer g.mu.RUnlock()

	type item struct {
		id    string
		depth int
	}

	related := make(map[string]struct{})
	var ordered []string
	queue := []item{{id: nodeID, depth: 0}}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		if cur.depth > maxDepth {
			continue
		}
		if _, seen := related[cur.id]; seen {
			continue
		}
		node, ok := g.nodes[cur.id]
		if !ok {
			continue
		}

		related[cur.id] = struct{}{}
		ordered = append(ordered, cur.id)

		for _, conn := range node.Connections {
			queue = append(queue, item{id: conn, depth: cur.depth + 1})
		}
	}

	results := make([]*types.GraphNode, 0, len(ordered))
	for _, id := range ordered {
		results = append(results, copyNode(g.nodes[id]))
	}
	return results
}

// Node returns a copy of one node, or nil when absent.
func (g *Graph) Node(id string) *types.GraphNode {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return copyNode(g.nodes[id])
}

// Clusters returns copies of the current clusters.
func (g *Graph) Clusters() []*types.Cluster {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]*types.Cluster, 0, len(g.clusters))
	for _, c := range g.clusters {
		dup := *c
		dup.Nodes = append([]string(nil), c.Nodes...)
		out = append(out, &dup)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Stats computes graph-level statistics on demand; nothing is cached
// beyond the current build.
func (g *Graph) Stats() types.GraphStats {
	g.mu.RLock()
	defer g.mu.RUnlock()

	stats := types.GraphStats{
		Nodes:     len(g.nodes),
		Edges:     len(g.edges),
		Clusters:  len(g.clusters),
		NodeTypes: make(map[types.NodeType]int),
	}

	total := 0
	for _, node := range g.nodes {
		stats.NodeTypes[node.Type]++
		total += len(node.Connections)
	}
	if len(g.nodes) > 0 {
		stats.AverageConnections = float64(total) / float64(len(g.nodes))
	}

	return stats
}

func copyNode(n *types.GraphNode) *types.GraphNode {
	if n == nil {
		return nil
	}
	dup := *n
	dup.Connections = append([]string(nil), n.Connections...)
	return &dup
}

func removeString(list []string, s string) []string {
	out := list[:0]
	for _, v := range list {
		if v != s {
			out = append(out, v)
		}
	}
	return out
}
