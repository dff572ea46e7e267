package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const (
	exitOK         = 0
	exitFailure    = 1
	exitUsageError = 2
)

// run executes the CLI with args (without the program name) and returns the
// process exit status.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		printUsage(stderr)
		return exitUsageError
	}

	cmd := newRootCommand(stdout, stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	if help, _ := cmd.Flags().GetBool("help"); help && err == nil {
		return exitUsageError
	}
	return reportError(stderr, err)
}

// printUsage displays usage information.
func printUsage(w io.Writer) {
	fmt.Fprintf(w, `Usage: exa-search "query" [options]
       exa-search --serve

Options:
  --type <value>          Search type (default: %s)
  --num-results <number>  Number of results (default: %d)
  --livecrawl <value>     livecrawl mode (default: %s)
  --exa-api-key <key>     Optional Exa API key
  --endpoint <url>        MCP endpoint (default: %s)
  --timeout <ms>          Request timeout (default: %d)
  --raw                   Print raw text/event-stream response
  --verbose               Log request details to stderr
  --serve                 Run as an MCP server on stdio

Environment:
  EXA_API_KEY             API key; falls back to .env in the current
                          directory, then next to the executable
  EXA_SEARCH_<OPTION>     Overrides an option default, e.g. EXA_SEARCH_TIMEOUT
`, defaultType, defaultNumResults, defaultLivecrawl, defaultEndpoint, defaultTimeoutMS)
}

// reportError prints err the way the user expects to see it and maps it to
// an exit status.
func reportError(stderr io.Writer, err error) int {
	if err == nil {
		return exitOK
	}

	var usageErr usageError
	var validationErr validationError
	var timeoutErr *TimeoutError
	switch {
	case errors.As(err, &usageErr):
		if usageErr.msg != "" {
			fmt.Fprintln(stderr, usageErr.msg)
		}
		printUsage(stderr)
		return exitUsageError
	case errors.As(err, &validationErr):
		fmt.Fprintln(stderr, validationErr.msg)
	case errors.As(err, &timeoutErr):
		fmt.Fprintln(stderr, timeoutErr.Error())
	default:
		fmt.Fprintf(stderr, "Error: %v\n", err)
	}
	return exitFailure
}

func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "exa-search <query>",
		Short:         "Search the web through the Exa MCP endpoint",
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd, args, stdout, stderr)
		},
	}
	cmd.SetOut(stderr)
	cmd.SetErr(stderr)
	cmd.SetHelpFunc(func(*cobra.Command, []string) {
		printUsage(stderr)
	})
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError{msg: err.Error()}
	})
	registerFlags(cmd.Flags())
	return cmd
}

// runSearch handles a single search invocation, or starts the MCP server
// when --serve is given.
func runSearch(cmd *cobra.Command, args []string, stdout, stderr io.Writer) error {
	flags := cmd.Flags()
	v, err := newViper(flags)
	if err != nil {
		return fmt.Errorf("bind flags: %w", err)
	}

	logger := newLogger(stderr, v.GetBool("verbose"))
	ctx := logger.WithContext(cmd.Context())

	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}
	root := projectRoot(cwd)

	if serve, _ := flags.GetBool("serve"); serve {
		if len(args) > 0 {
			return usageError{msg: "Unknown arg: " + args[0]}
		}
		defaults := defaultRequestConfig()
		if err := applyOptions(v, &defaults); err != nil {
			return err
		}
		defaults.APIKey = apiKeyFromFlagOrEnv(ctx, flags, cwd, root)
		return serveMCP(ctx, defaults)
	}

	if len(args) > 1 {
		return usageError{msg: "Unknown arg: " + args[1]}
	}
	query := ""
	if len(args) == 1 {
		query = args[0]
	}

	cfg, err := loadRequestConfig(v, query)
	if err != nil {
		return err
	}

	cfg.APIKey = apiKeyFromFlagOrEnv(ctx, flags, cwd, root)

	requestURL, err := appendAPIKey(cfg.Endpoint, cfg.APIKey)
	if err != nil {
		return validationError{msg: "Invalid endpoint URL: " + cfg.Endpoint}
	}

	body, err := queryEndpoint(ctx, httpClient, requestURL, cfg)
	if err != nil {
		return err
	}

	if cfg.Raw {
		fmt.Fprintln(stdout, body)
		return nil
	}

	texts := parseResponseBody(body)
	logger.Debug().Int("texts", len(texts)).Msg("Parsed response")
	fmt.Fprintln(stdout, strings.Join(texts, "\n\n"))
	return nil
}

// apiKeyFromFlagOrEnv returns --exa-api-key verbatim when it was given, even
// if empty, and otherwise resolves the key from the environment and .env files.
func apiKeyFromFlagOrEnv(ctx context.Context, flags *pflag.FlagSet, cwd, root string) string {
	log := zerolog.Ctx(ctx)
	if flags.Changed("exa-api-key") {
		key, _ := flags.GetString("exa-api-key")
		log.Debug().Msg("Using API key from --exa-api-key")
		return key
	}
	key := resolveAPIKey(os.Getenv, cwd, root)
	log.Debug().Bool("found", key != "").Str("project_root", root).Msg("Resolved API key")
	return key
}
