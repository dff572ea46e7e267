package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"
)

const (
	toolName    = "web_search_exa"
	apiKeyParam = "exaApiKey"
)

// browserHeaders are sent verbatim with every request. Accept-Encoding is set
// explicitly, so the transport leaves decompression to decodeBody.
var browserHeaders = map[string]string{
	"sec-ch-ua-platform": `"macOS"`,
	"sec-ch-ua":          `"Not=A?Brand";v="24", "Chromium";v="140"`,
	"sec-ch-ua-mobile":   "?0",
	"x-title":            "Cherry Studio",
	"user-agent":         "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) CherryStudio/1.7.17 Chrome/140.0.7339.249 Electron/38.7.0 Safari/537.36",
	"accept":             "application/json, text/event-stream",
	"http-referer":       "https://cherry-ai.com",
	"content-type":       "application/json",
	"sec-fetch-site":     "cross-site",
	"sec-fetch-mode":     "cors",
	"sec-fetch-dest":     "empty",
	"accept-encoding":    "gzip, deflate, br, zstd",
	"accept-language":    "zh-CN",
	"priority":           "u=1, i",
}

var httpClient = &http.Client{}

// SearchArguments are the arguments of the web_search_exa tool call.
type SearchArguments struct {
	Query      string `json:"query"`
	Type       string `json:"type"`
	NumResults int    `json:"numResults"`
	Livecrawl  string `json:"livecrawl"`
}

type rpcRequest struct {
	JSONRPC string              `json:"jsonrpc"`
	ID      int                 `json:"id"`
	Method  string              `json:"method"`
	Params  *mcp.CallToolParams `json:"params"`
}

// buildRequestBody encodes the JSON-RPC tools/call request for cfg.
func buildRequestBody(cfg RequestConfig) ([]byte, error) {
	return json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "tools/call",
		Params: &mcp.CallToolParams{
			Name: toolName,
			Arguments: SearchArguments{
				Query:      cfg.Query,
				Type:       cfg.Type,
				NumResults: cfg.NumResults,
				Livecrawl:  cfg.Livecrawl,
			},
		},
	})
}

// parseEndpoint accepts absolute http(s) URLs only.
func parseEndpoint(endpoint string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(endpoint))
	if err != nil {
		return nil, err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return nil, errors.New("missing host")
	}
	return u, nil
}

// appendAPIKey adds the exaApiKey query parameter unless apiKey is empty or
// the endpoint already carries one.
func appendAPIKey(endpoint, apiKey string) (string, error) {
	u, err := parseEndpoint(endpoint)
	if err != nil {
		return "", err
	}
	if apiKey == "" {
		return u.String(), nil
	}
	q := u.Query()
	if !q.Has(apiKeyParam) {
		q.Set(apiKeyParam, apiKey)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

// redactURL hides the API key in a request URL so it can be logged.
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	q := u.Query()
	if q.Has(apiKeyParam) {
		q.Set(apiKeyParam, "REDACTED")
		u.RawQuery = q.Encode()
	}
	return u.String()
}

// queryEndpoint posts the search request to requestURL and returns the fully
// buffered, decoded response body.
func queryEndpoint(ctx context.Context, client *http.Client, requestURL string, cfg RequestConfig) (string, error) {
	log := zerolog.Ctx(ctx)

	payload, err := buildRequestBody(cfg)
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, requestURL, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	for k, v := range browserHeaders {
		req.Header.Set(k, v)
	}

	log.Debug().Str("url", redactURL(requestURL)).Dur("timeout", cfg.Timeout).Msg("Sending search request")

	resp, err := client.Do(req)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", &TimeoutError{Timeout: cfg.Timeout}
		}
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			urlErr.URL = redactURL(urlErr.URL)
		}
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	encoding := resp.Header.Get("Content-Encoding")
	log.Debug().
		Int("status", resp.StatusCode).
		Str("content_type", resp.Header.Get("Content-Type")).
		Str("content_encoding", encoding).
		Msg("Received response")

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", &TimeoutError{Timeout: cfg.Timeout}
		}
		return "", fmt.Errorf("read response: %w", err)
	}
	data, decodeErr := decodeBody(encoding, bytes.NewReader(raw))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if decodeErr != nil {
			data = raw
		}
		return "", &HTTPError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       string(data),
		}
	}
	if decodeErr != nil {
		return "", fmt.Errorf("decode response: %w", decodeErr)
	}
	return string(data), nil
}

// decodeBody reads body, undoing a single Content-Encoding. Unknown encodings
// are passed through untouched.
func decodeBody(encoding string, body io.Reader) ([]byte, error) {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "gzip", "x-gzip":
		zr, err := gzip.NewReader(body)
		if err != nil {
			return nil, fmt.Errorf("gzip: %w", err)
		}
		defer zr.Close()
		return io.ReadAll(zr)
	case "deflate":
		zr, err := zlib.NewReader(body)
		if err != nil {
			return nil, fmt.Errorf("deflate: %w", err)
		}
		defer zr.Close()
		return io.ReadAll(zr)
	case "br":
		return io.ReadAll(brotli.NewReader(body))
	case "zstd":
		zr, err := zstd.NewReader(body)
		if err != nil {
			return nil, fmt.Errorf("zstd: %w", err)
		}
		defer zr.Close()
		return io.ReadAll(zr)
	default:
		return io.ReadAll(body)
	}
}
