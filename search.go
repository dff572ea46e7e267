package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"
)

// WebSearchArgs defines the input schema for the web_search_exa tool.
type WebSearchArgs struct {
	Query      string `json:"query" jsonschema:"Web search query"`
	Type       string `json:"type,omitempty" jsonschema:"Search type (e.g. auto, fast, deep)"`
	NumResults int    `json:"numResults,omitempty" jsonschema:"Number of results to return"`
	Livecrawl  string `json:"livecrawl,omitempty" jsonschema:"Live crawl mode (e.g. fallback, preferred)"`
}

// webSearchTool forwards tool calls to the remote endpoint using defaults for
// any argument the caller leaves out.
type webSearchTool struct {
	defaults RequestConfig
	logger   zerolog.Logger
}

func newServer(defaults RequestConfig, logger zerolog.Logger) *mcp.Server {
	server := mcp.NewServer(
		&mcp.Implementation{
			Name:    "exa-search",
			Title:   "Exa Web Search",
			Version: version,
		},
		nil,
	)
	registerWebSearch(server, &webSearchTool{defaults: defaults, logger: logger})
	return server
}

// serveMCP runs the MCP server on stdio until the client disconnects.
func serveMCP(ctx context.Context, defaults RequestConfig) error {
	logger := zerolog.Ctx(ctx).With().Str("component", "mcp").Logger()
	logger.Debug().Str("endpoint", redactURL(defaults.Endpoint)).Msg("Starting MCP server on stdio")
	return newServer(defaults, logger).Run(ctx, &mcp.StdioTransport{})
}

func registerWebSearch(server *mcp.Server, tool *webSearchTool) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        toolName,
		Description: "Search the web with Exa and return the text of the results",
	}, tool.handle)
}

func (t *webSearchTool) handle(ctx context.Context, req *mcp.CallToolRequest, args WebSearchArgs) (*mcp.CallToolResult, any, error) {
	ctx = t.logger.WithContext(ctx)

	cfg, err := t.requestConfig(args)
	if err != nil {
		return errorResult(err.Error()), nil, nil
	}

	requestURL, err := appendAPIKey(cfg.Endpoint, cfg.APIKey)
	if err != nil {
		return errorResult(fmt.Sprintf("Invalid endpoint URL: %s", cfg.Endpoint)), nil, nil
	}

	body, err := queryEndpoint(ctx, httpClient, requestURL, cfg)
	if err != nil {
		var timeoutErr *TimeoutError
		if errors.As(err, &timeoutErr) {
			return errorResult(timeoutErr.Error()), nil, nil
		}
		return errorResult(fmt.Sprintf("Error searching for %q: %v", cfg.Query, err)), nil, nil
	}

	texts := parseResponseBody(body)
	content := make([]mcp.Content, 0, len(texts))
	for _, text := range texts {
		content = append(content, &mcp.TextContent{Text: text})
	}
	return &mcp.CallToolResult{Content: content}, nil, nil
}

func (t *webSearchTool) requestConfig(args WebSearchArgs) (RequestConfig, error) {
	cfg := t.defaults
	cfg.Query = strings.TrimSpace(args.Query)
	if cfg.Query == "" {
		return cfg, errors.New("query is required")
	}
	if args.Type != "" {
		cfg.Type = args.Type
	}
	if args.Livecrawl != "" {
		cfg.Livecrawl = args.Livecrawl
	}
	if args.NumResults < 0 {
		return cfg, errors.New("numResults must be a positive integer")
	}
	if args.NumResults > 0 {
		cfg.NumResults = args.NumResults
	}
	return cfg, nil
}

func errorResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: msg},
		},
		IsError: true,
	}
}
