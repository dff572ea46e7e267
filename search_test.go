package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func connectTestClient(t *testing.T, defaults RequestConfig) *mcp.ClientSession {
	t.Helper()
	ctx := context.Background()

	server := newServer(defaults, zerolog.Nop())
	serverTransport, clientTransport := mcp.NewInMemoryTransports()

	serverSession, err := server.Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = serverSession.Close() })

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "0.0.1"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = session.Close() })
	return session
}

func textContents(t *testing.T, res *mcp.CallToolResult) []string {
	t.Helper()
	var texts []string
	for _, c := range res.Content {
		tc, ok := c.(*mcp.TextContent)
		require.True(t, ok, "unexpected content type %T", c)
		texts = append(texts, tc.Text)
	}
	return texts
}

func TestWebSearchToolListed(t *testing.T) {
	session := connectTestClient(t, defaultRequestConfig())

	res, err := session.ListTools(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, res.Tools, 1)
	assert.Equal(t, toolName, res.Tools[0].Name)
}

func TestWebSearchToolReturnsTexts(t *testing.T) {
	var gotBody []byte
	var gotKey string
	body := "data: " + `{"result":{"content":[{"type":"text","text":"one"},{"type":"text","text":"two"}]}}` + "\n\n"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody = readAll(r)
		gotKey = r.URL.Query().Get(apiKeyParam)
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()

	defaults := defaultRequestConfig()
	defaults.Endpoint = srv.URL
	defaults.APIKey = "bridge-key"
	session := connectTestClient(t, defaults)

	res, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      toolName,
		Arguments: map[string]any{"query": "golang", "numResults": 2},
	})
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Equal(t, []string{"one", "two"}, textContents(t, res))

	assert.Equal(t, "bridge-key", gotKey)
	assert.Equal(t, "golang", gjson.GetBytes(gotBody, "params.arguments.query").String())
	assert.Equal(t, int64(2), gjson.GetBytes(gotBody, "params.arguments.numResults").Int())
	assert.Equal(t, defaultType, gjson.GetBytes(gotBody, "params.arguments.type").String())
	assert.Equal(t, defaultLivecrawl, gjson.GetBytes(gotBody, "params.arguments.livecrawl").String())
}

func TestWebSearchToolErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("slow") != "" {
			select {
			case <-r.Context().Done():
			case <-time.After(5 * time.Second):
			}
			return
		}
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	tests := []struct {
		name     string
		endpoint string
		args     map[string]any
		want     string
	}{
		{"blank query", srv.URL, map[string]any{"query": "  "}, "query is required"},
		{"negative results", srv.URL, map[string]any{"query": "go", "numResults": -1}, "numResults must be a positive integer"},
		{"http error", srv.URL, map[string]any{"query": "go"}, "HTTP Error: 429 Too Many Requests"},
		{"timeout", srv.URL + "?slow=1", map[string]any{"query": "go"}, "Request timed out after 50ms"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defaults := defaultRequestConfig()
			defaults.Endpoint = tt.endpoint
			defaults.Timeout = 50 * time.Millisecond
			session := connectTestClient(t, defaults)

			res, err := session.CallTool(context.Background(), &mcp.CallToolParams{
				Name:      toolName,
				Arguments: tt.args,
			})
			require.NoError(t, err)
			assert.True(t, res.IsError)
			texts := textContents(t, res)
			require.Len(t, texts, 1)
			assert.Contains(t, texts[0], tt.want)
		})
	}
}

func TestWebSearchRequestConfig(t *testing.T) {
	tool := &webSearchTool{defaults: defaultRequestConfig()}

	cfg, err := tool.requestConfig(WebSearchArgs{Query: " go ", Type: "fast", NumResults: 8, Livecrawl: "always"})
	require.NoError(t, err)
	assert.Equal(t, "go", cfg.Query)
	assert.Equal(t, "fast", cfg.Type)
	assert.Equal(t, 8, cfg.NumResults)
	assert.Equal(t, "always", cfg.Livecrawl)

	cfg, err = tool.requestConfig(WebSearchArgs{Query: "go"})
	require.NoError(t, err)
	assert.Equal(t, defaultType, cfg.Type)
	assert.Equal(t, defaultNumResults, cfg.NumResults)
	assert.Equal(t, defaultLivecrawl, cfg.Livecrawl)
}
