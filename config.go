package main

import (
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	defaultEndpoint   = "https://mcp.exa.ai/mcp"
	defaultType       = "auto"
	defaultNumResults = 5
	defaultLivecrawl  = "fallback"
	defaultTimeoutMS  = 30000

	envPrefix = "EXA_SEARCH"
)

// RequestConfig holds everything needed for a single search call.
type RequestConfig struct {
	Query      string
	Type       string
	NumResults int
	Livecrawl  string
	Endpoint   string
	APIKey     string
	Timeout    time.Duration
	Raw        bool
}

func defaultRequestConfig() RequestConfig {
	return RequestConfig{
		Type:       defaultType,
		NumResults: defaultNumResults,
		Livecrawl:  defaultLivecrawl,
		Endpoint:   defaultEndpoint,
		Timeout:    defaultTimeoutMS * time.Millisecond,
	}
}

// registerFlags declares the search flags on fs. Numeric flags are strings so
// that malformed numbers surface as validation errors rather than usage errors.
func registerFlags(fs *pflag.FlagSet) {
	fs.String("type", defaultType, "Search type")
	fs.String("num-results", strconv.Itoa(defaultNumResults), "Number of results")
	fs.String("livecrawl", defaultLivecrawl, "livecrawl mode")
	fs.String("exa-api-key", "", "Optional Exa API key")
	fs.String("endpoint", defaultEndpoint, "MCP endpoint")
	fs.String("timeout", strconv.Itoa(defaultTimeoutMS), "Request timeout in milliseconds")
	fs.Bool("raw", false, "Print the raw response body")
	fs.Bool("verbose", false, "Log request details to stderr")
	fs.Bool("serve", false, "Run as an MCP server on stdio")
}

// newViper binds every flag except the API key to a fresh viper instance so
// that EXA_SEARCH_<FLAG> environment variables override flag defaults.
func newViper(fs *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	for _, name := range []string{"type", "num-results", "livecrawl", "endpoint", "timeout", "raw", "verbose"} {
		if err := v.BindPFlag(name, fs.Lookup(name)); err != nil {
			return nil, err
		}
	}
	return v, nil
}

// loadRequestConfig builds and validates the configuration for a single
// search. The API key is left for the caller to resolve.
func loadRequestConfig(v *viper.Viper, query string) (RequestConfig, error) {
	cfg := defaultRequestConfig()
	cfg.Query = strings.TrimSpace(query)
	if cfg.Query == "" {
		return cfg, validationError{msg: "Query cannot be empty"}
	}
	if err := applyOptions(v, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// applyOptions copies flag and environment values into cfg, validating the
// numeric options and the endpoint.
func applyOptions(v *viper.Viper, cfg *RequestConfig) error {
	cfg.Type = v.GetString("type")
	cfg.Livecrawl = v.GetString("livecrawl")
	cfg.Endpoint = v.GetString("endpoint")
	cfg.Raw = v.GetBool("raw")

	numResults, err := parsePositiveInt(v.GetString("num-results"))
	if err != nil {
		return validationError{msg: "--num-results must be a positive integer"}
	}
	cfg.NumResults = numResults

	timeoutMS, err := parsePositiveInt(v.GetString("timeout"))
	if err != nil {
		return validationError{msg: "--timeout must be a positive integer"}
	}
	cfg.Timeout = time.Duration(timeoutMS) * time.Millisecond

	if _, err := parseEndpoint(cfg.Endpoint); err != nil {
		return validationError{msg: "Invalid endpoint URL: " + cfg.Endpoint}
	}
	return nil
}

func parsePositiveInt(raw string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, strconv.ErrRange
	}
	return n, nil
}
