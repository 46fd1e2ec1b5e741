package types

import "time"

// NodeType classifies a graph node. Types are mutually exclusive; the
// classifier returns the first matching rule and defaults to NodeScript.
type NodeType string

const (
	NodeComponent NodeType = "component"
	NodeScript    NodeType = "script"
	NodeDoc       NodeType = "doc"
	NodeRoute     NodeType = "route"
	NodeService   NodeType = "service"
	NodeModel     NodeType = "model"
)

// EdgeType classifies an inferred relationship between two nodes.
type EdgeType string

const (
	EdgeImports    EdgeType = "imports"
	EdgeReferences EdgeType = "references"
	EdgeDependsOn  EdgeType = "depends_on"
	EdgeSimilarTo  EdgeType = "similar_to"
	EdgeExtends    EdgeType = "extends"
)

// GraphNode wraps one knowledge chunk inside the graph. Nodes are created
// 1:1 with chunks on build and rebuilt wholesale; there is no incremental
// node deletion.
type GraphNode struct {
	ID          string
	Type        NodeType
	Name        string
	Path        string
	Embedding   []float32
	Connections []string // Node ids reachable by any edge type
	Cluster     string   // Empty when the node has no embedding or clustering skipped it
}

// GraphEdge records a directional source/target pair, though both
// endpoints' connection lists are updated, so edges are undirected in
// effect. Multiple edge types may coexist between the same pair.
type GraphEdge struct {
	Source   string
	Target   string
	Type     EdgeType
	Strength float64 // In [0,1]
	Created  time.Time
}

// Cluster groups embedding-bearing nodes produced by centroid refinement.
type Cluster struct {
	ID          string
	Name        string
	Nodes       []string
	Centroid    []float32
	Category    string
	Description string
}

// GraphStats summarizes a built graph. Computed on demand, never cached
// beyond the current build.
type GraphStats struct {
	Nodes              int
	Edges              int
	Clusters           int
	NodeTypes          map[NodeType]int
	AverageConnections float64
}
