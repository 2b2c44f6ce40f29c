package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	web "github.com/leonardcser/querycache/internal/web"
)

const defaultSearchLimit = 10

// WebSearchHandler returns the MCP tool handler for the "web-search" tool.
func WebSearchHandler(searcher *web.Searcher) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		q, err := req.RequireString("query")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		limit := req.GetInt("limit", defaultSearchLimit)
		results, err := searcher.Search(ctx, q, limit)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(formatSearchResults(results)), nil
	}
}

// formatSearchResults renders an ordered list, one block per result with the
// URL on its own line.
func formatSearchResults(results []web.SearchResult) string {
	if len(results) == 0 {
		return "No results."
	}
	var sb strings.Builder
	for i, r := range results {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		fmt.Fprintf(&sb, "%d. %s\n   %s", i+1, r.Title, r.Link)
		if r.Description != "" {
			sb.WriteString("\n   ")
			sb.WriteString(r.Description)
		}
	}
	return sb.String()
}
