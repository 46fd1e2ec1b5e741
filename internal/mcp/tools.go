package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dshills/kbgraph-mcp/internal/storage"
	"github.com/dshills/kbgraph-mcp/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams = -32602 // Invalid method parameters
	ErrorCodeInternalError = -32603 // Internal JSON-RPC error
	ErrorCodeNotIndexed    = -32001 // Requested file is not in the index
	ErrorCodeEmptyQuery    = -32004 // Query parameter is empty
)

// handleIndexTree handles the index_tree tool invocation
func (s *Server) handleIndexTree(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := s.coordinator.IndexAll(ctx)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "indexing failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"run_id":      result.RunID,
		"total_files": result.TotalFiles,
		"processed":   result.ProcessedCount,
		"failed":      result.FailedCount,
		"duration_ms": result.Duration.Milliseconds(),
	}

	if len(result.Errors) > 0 {
		// Include the first few failures; the full manifest is in the
		// artifact store.
		failures := make([]map[string]interface{}, 0, len(result.Errors))
		for i, e := range result.Errors {
			if i == 5 {
				break
			}
			failures = append(failures, map[string]interface{}{
				"path":    e.Path,
				"message": e.Message,
			})
		}
		response["errors"] = failures
		response["error_count"] = len(result.Errors)
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleSearchKnowledge handles the search_knowledge tool invocation
func (s *Server) handleSearchKnowledge(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := toolArgs(request)

	queryText, ok := args["query"].(string)
	if !ok || strings.TrimSpace(queryText) == "" {
		return nil, newMCPError(ErrorCodeEmptyQuery, "query parameter is required and cannot be empty", map[string]interface{}{
			"param":  "query",
			"reason": "missing or empty",
		})
	}

	limit := getIntDefault(args, "limit", 0)
	if limit < 0 || limit > 100 {
		return nil, newMCPError(ErrorCodeInvalidParams, "limit must be between 1 and 100", map[string]interface{}{
			"param": "limit",
			"value": limit,
		})
	}

	offset := getIntDefault(args, "offset", 0)
	if offset < 0 {
		return nil, newMCPError(ErrorCodeInvalidParams, "offset cannot be negative", map[string]interface{}{
			"param": "offset",
			"value": offset,
		})
	}

	filters := &types.SearchFilters{
		Category: types.Category(getStringDefault(args, "category", "")),
		Kind:     strings.ToLower(getStringDefault(args, "kind", "")),
		Tags:     getStringSlice(args, "tags"),
	}

	dateRange, err := parseDateRange(args)
	if err != nil {
		return nil, err
	}
	filters.DateRange = dateRange

	resp := s.engine.Search(ctx, types.SearchQuery{
		Text:    queryText,
		Filters: filters,
		Limit:   limit,
		Offset:  offset,
	})

	results := make([]map[string]interface{}, 0, len(resp.Results))
	for _, r := range resp.Results {
		results = append(results, map[string]interface{}{
			"chunk_id":   r.ChunkID,
			"path":       r.Metadata.Path,
			"name":       r.Metadata.Name,
			"score":      r.Score,
			"category":   string(r.Category),
			"tags":       r.Tags,
			"highlights": r.Highlights,
		})
	}

	response := map[string]interface{}{
		"results":     results,
		"total":       resp.Total,
		"query":       resp.Query,
		"duration_ms": resp.Duration.Milliseconds(),
	}
	if len(resp.Suggestions) > 0 {
		response["suggestions"] = resp.Suggestions
	}
	if resp.Error != "" {
		response["error"] = resp.Error
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleFindRelated handles the find_related tool invocation
func (s *Server) handleFindRelated(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := toolArgs(request)

	id := getStringDefault(args, "id", "")
	if id == "" {
		path := getStringDefault(args, "path", "")
		if path == "" {
			return nil, newMCPError(ErrorCodeInvalidParams, "either path or id is required", map[string]interface{}{
				"param":  "path",
				"reason": "missing",
			})
		}
		id = types.ChunkID(filepath.ToSlash(path))
	}

	if s.coordinator.Graph().Node(id) == nil {
		return nil, newMCPError(ErrorCodeNotIndexed, "no indexed file for the given path or id", map[string]interface{}{
			"id": id,
		})
	}

	depth := getIntDefault(args, "depth", 2)
	if depth < 0 || depth > 10 {
		return nil, newMCPError(ErrorCodeInvalidParams, "depth must be between 0 and 10", map[string]interface{}{
			"param": "depth",
			"value": depth,
		})
	}

	related := s.coordinator.Graph().FindRelated(id, depth)
	nodes := make([]map[string]interface{}, 0, len(related))
	for _, node := range related {
		entry := map[string]interface{}{
			"id":   node.ID,
			"type": string(node.Type),
			"name": node.Name,
			"path": node.Path,
		}
		if node.Cluster != "" {
			entry["cluster"] = node.Cluster
		}
		if len(node.Connections) > 0 {
			entry["connections"] = node.Connections
		}
		nodes = append(nodes, entry)
	}

	response := map[string]interface{}{
		"start": id,
		"depth": depth,
		"nodes": nodes,
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleGetStatus handles the get_status tool invocation
func (s *Server) handleGetStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stats := s.coordinator.Graph().Stats()

	nodeTypes := make(map[string]interface{}, len(stats.NodeTypes))
	for t, n := range stats.NodeTypes {
		nodeTypes[string(t)] = n
	}

	response := map[string]interface{}{
		"chunks": s.coordinator.Chunks().Len(),
		"graph": map[string]interface{}{
			"nodes":               stats.Nodes,
			"edges":               stats.Edges,
			"clusters":            stats.Clusters,
			"node_types":          nodeTypes,
			"average_connections": stats.AverageConnections,
		},
		"embedding": map[string]interface{}{
			"provider":  s.embedder.Provider(),
			"model":     s.embedder.Model(),
			"dimension": s.embedder.Dimension(),
		},
		"sqlite_build_mode": storage.BuildMode,
	}

	run, err := s.artifacts.LastRun(ctx)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, newMCPError(ErrorCodeInternalError, "failed to read last run", map[string]interface{}{
			"error": err.Error(),
		})
	}
	if run != nil {
		response["last_run"] = map[string]interface{}{
			"run_id":      run.ID,
			"started_at":  run.StartedAt.UTC().Format(time.RFC3339),
			"total_files": run.TotalFiles,
			"processed":   run.Processed,
			"failed":      run.Failed,
			"duration_ms": run.DurationMs,
		}
	}

	// The persisted snapshot shows the graph shape of the last run even
	// when the process restarted without reindexing.
	if snap, snapErr := s.artifacts.LatestGraphSnapshot(ctx); snapErr == nil {
		response["graph_snapshot_at"] = snap.UpdatedAt.UTC().Format(time.RFC3339)
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// Helper functions

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// toolArgs returns the request arguments, tolerating tools called with no
// arguments at all.
func toolArgs(request mcp.CallToolRequest) map[string]interface{} {
	if args, ok := request.Params.Arguments.(map[string]interface{}); ok {
		return args
	}
	return map[string]interface{}{}
}

// parseDateRange builds the optional modification-time filter.
func parseDateRange(args map[string]interface{}) (*types.DateRange, error) {
	after := getStringDefault(args, "modified_after", "")
	before := getStringDefault(args, "modified_before", "")
	if after == "" && before == "" {
		return nil, nil
	}

	dr := &types.DateRange{}
	if after != "" {
		t, err := time.Parse(time.RFC3339, after)
		if err != nil {
			return nil, newMCPError(ErrorCodeInvalidParams, "invalid modified_after", map[string]interface{}{
				"param":  "modified_after",
				"reason": err.Error(),
			})
		}
		dr.Start = t
	}
	if before != "" {
		t, err := time.Parse(time.RFC3339, before)
		if err != nil {
			return nil, newMCPError(ErrorCodeInvalidParams, "invalid modified_before", map[string]interface{}{
				"param":  "modified_before",
				"reason": err.Error(),
			})
		}
		dr.End = t
	}
	return dr, nil
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}

// getStringSlice extracts a string array parameter
func getStringSlice(args map[string]interface{}, key string) []string {
	raw, ok := args[key].([]interface{})
	if !ok {
		return nil
	}
	var out []string
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
