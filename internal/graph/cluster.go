package graph

import (
	"fmt"
	"hash/fnv"
	"math/rand"
	"sort"
	"strings"

	"github.com/dshills/kbgraph-mcp/internal/embedder"
	"github.com/dshills/kbgraph-mcp/pkg/types"
)

const (
	clusterCount      = 5
	clusterIterations = 10
)

// performClustering groups embedding-bearing nodes with k-means. Nodes
// without embeddings are left out and keep an empty Cluster field. The
// centroid seed folds the member ids, so the same chunk set clusters the
// same way. Caller holds the lock.
func (g *Graph) performClustering() {
	var members []*types.GraphNode
	for _, id := range g.order {
		node := g.nodes[id]
		if node != nil && len(node.Embedding) > 0 {
			members = append(members, node)
		}
	}
	if len(members) == 0 {
		return
	}

	k := clusterCount
	if len(members) < k {
		k = len(members)
	}

	dim := len(members[0].Embedding)
	rng := rand.New(rand.NewSource(clusterSeed(members)))

	// Seed centroids from distinct member embeddings.
	centroids := make([][]float32, k)
	for i, idx := range rng.Perm(len(members))[:k] {
		centroids[i] = append([]float32(nil), members[idx].Embedding...)
	}

	assignments := make([]int, len(members))
	for iter := 0; iter < clusterIterations; iter++ {
		for i, node := range members {
			assignments[i] = nearestCentroid(node.Embedding, centroids)
		}
		recomputeCentroids(centroids, members, assignments, dim)
	}

	for ci := 0; ci < k; ci++ {
		var ids []string
		var nodes []*types.GraphNode
		for i, node := range members {
			if assignments[i] == ci {
				ids = append(ids, node.ID)
				nodes = append(nodes, node)
			}
		}
		if len(ids) == 0 {
			continue
		}

		id := fmt.Sprintf("cluster-%d", ci)
		cluster := &types.Cluster{
			ID:          id,
			Name:        clusterName(nodes),
			Nodes:       ids,
			Centroid:    centroids[ci],
			Category:    string(dominantType(nodes)),
			Description: clusterDescription(nodes),
		}
		g.clusters[id] = cluster

		for _, node := range nodes {
			node.Cluster = id
		}
	}
}

// clusterSeed folds member ids into a deterministic rng seed.
func clusterSeed(members []*types.GraphNode) int64 {
	h := fnv.New64a()
	for _, node := range members {
		_, _ = h.Write([]byte(node.ID))
	}
	return int64(h.Sum64())
}

func nearestCentroid(embedding []float32, centroids [][]float32) int {
	best := 0
	bestDist := embedder.Euclidean(embedding, centroids[0])
	for i := 1; i < len(centroids); i++ {
		if d := embedder.Euclidean(embedding, centroids[i]); d < bestDist {
			best = i
			bestDist = d
		}
	}
	return best
}

// recomputeCentroids replaces each centroid with the mean of its assigned
// embeddings. Centroids with no members are left where they are.
func recomputeCentroids(centroids [][]float32, members []*types.GraphNode, assignments []int, dim int) {
	sums := make([][]float64, len(centroids))
	counts := make([]int, len(centroids))
	for i := range sums {
		sums[i] = make([]float64, dim)
	}

	for i, node := range members {
		ci := assignments[i]
		counts[ci]++
		for d := 0; d < dim && d < len(node.Embedding); d++ {
			sums[ci][d] += float64(node.Embedding[d])
		}
	}

	for ci := range centroids {
		if counts[ci] == 0 {
			continue
		}
		mean := make([]float32, dim)
		for d := 0; d < dim; d++ {
			mean[d] = float32(sums[ci][d] / float64(counts[ci]))
		}
		centroids[ci] = mean
	}
}

// dominantType returns the most common node type among cluster members,
// breaking ties alphabetically.
func dominantType(nodes []*types.GraphNode) types.NodeType {
	counts := make(map[types.NodeType]int)
	for _, node := range nodes {
		counts[node.Type]++
	}

	var typesSeen []types.NodeType
	for t := range counts {
		typesSeen = append(typesSeen, t)
	}
	sort.Slice(typesSeen, func(i, j int) bool { return typesSeen[i] < typesSeen[j] })

	best := typesSeen[0]
	for _, t := range typesSeen[1:] {
		if counts[t] > counts[best] {
			best = t
		}
	}
	return best
}

func clusterName(nodes []*types.GraphNode) string {
	dom := string(dominantType(nodes))
	return fmt.Sprintf("%s%s cluster (%d nodes)", strings.ToUpper(dom[:1]), dom[1:], len(nodes))
}

func clusterDescription(nodes []*types.GraphNode) string {
	seen := make(map[types.NodeType]struct{})
	var kinds []string
	for _, node := range nodes {
		if _, ok := seen[node.Type]; ok {
			continue
		}
		seen[node.Type] = struct{}{}
		kinds = append(kinds, string(node.Type))
	}
	sort.Strings(kinds)
	return fmt.Sprintf("%d nodes spanning types: %s", len(nodes), strings.Join(kinds, ", "))
}
