package tools

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	web "github.com/leonardcser/querycache/internal/web"
)

func TestFormatPage(t *testing.T) {
	p := &web.Page{
		Title:       "T",
		Description: "D",
		Text:        "Body text.",
		Links:       []string{"https://a", "https://b"},
	}

	want := "# T\n\nD\n\nBody text.\n\n## Links\n- https://a\n- https://b\n"
	assert.Equal(t, want, formatPage(p))
}

func TestFormatPageTextOnly(t *testing.T) {
	p := &web.Page{Text: "plain"}
	assert.Equal(t, "plain", formatPage(p))
}

func TestWebFetchHandler(t *testing.T) {
	page := web.Page{URL: "https://example.com", Title: "Example", Text: "content"}
	b, err := json.Marshal(page)
	require.NoError(t, err)

	store := &stubStore{data: map[string][]byte{"https://example.com": b}}
	handler := WebFetchHandler(web.NewFetcher(store))

	req := mcp.CallToolRequest{}
	req.Params.Arguments = map[string]any{"url": "https://example.com"}

	res, err := handler(context.Background(), req)
	require.NoError(t, err)
	require.False(t, res.IsError)

	tc, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	assert.Contains(t, tc.Text, "# Example")
	assert.Contains(t, tc.Text, "content")
}

func TestWebFetchHandlerBadURL(t *testing.T) {
	store := &stubStore{data: map[string][]byte{}}
	handler := WebFetchHandler(web.NewFetcher(store))

	req := mcp.CallToolRequest{}
	req.Params.Arguments = map[string]any{"url": "notaurl"}

	res, err := handler(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, res.IsError)
}
