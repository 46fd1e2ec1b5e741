package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// indexTreeTool returns the tool definition for index_tree
func indexTreeTool() mcp.Tool {
	return mcp.Tool{
		Name:        "index_tree",
		Description: "Run a full indexing pass over the configured root directory",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}

// searchKnowledgeTool returns the tool definition for search_knowledge
func searchKnowledgeTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search_knowledge",
		Description: "Search the knowledge base with fused keyword, semantic, and file-name matching",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Search query (natural language or keywords)",
				},
				"category": map[string]interface{}{
					"type":        "string",
					"description": "Restrict results to one category",
					"enum": []string{
						"ui-components", "api-routes", "services", "data-models",
						"documentation", "database", "configuration", "code", "other",
					},
				},
				"kind": map[string]interface{}{
					"type":        "string",
					"description": "Restrict results to one file extension (e.g. '.md')",
				},
				"tags": map[string]interface{}{
					"type":        "array",
					"description": "Match chunks carrying any of these tags",
					"items": map[string]interface{}{
						"type": "string",
					},
				},
				"modified_after": map[string]interface{}{
					"type":        "string",
					"description": "RFC3339 lower bound on file modification time",
				},
				"modified_before": map[string]interface{}{
					"type":        "string",
					"description": "RFC3339 upper bound on file modification time",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of results to return (1-100)",
					"default":     10,
					"minimum":     1,
					"maximum":     100,
				},
				"offset": map[string]interface{}{
					"type":        "integer",
					"description": "Ranked results to skip before the page starts",
					"default":     0,
					"minimum":     0,
				},
			},
			Required: []string{"query"},
		},
	}
}

// findRelatedTool returns the tool definition for find_related
func findRelatedTool() mcp.Tool {
	return mcp.Tool{
		Name:        "find_related",
		Description: "Walk the knowledge graph outward from one file and return the connected nodes",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "File path relative to the indexed root; either this or id is required",
				},
				"id": map[string]interface{}{
					"type":        "string",
					"description": "Chunk id; either this or path is required",
				},
				"depth": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum hops to traverse",
					"default":     2,
					"minimum":     0,
					"maximum":     10,
				},
			},
		},
	}
}

// getStatusTool returns the tool definition for get_status
func getStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_status",
		Description: "Report chunk count, graph statistics, embedding provider, and the last indexing run",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}
