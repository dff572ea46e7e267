package main

import (
	"os"
	"path/filepath"
	"strings"
)

const (
	apiKeyEnv   = "EXA_API_KEY"
	envFileName = ".env"
)

// decodeEnvValue decodes the raw right-hand side of a dotenv assignment.
// Double-quoted values get escape processing, single-quoted values are taken
// literally and unquoted values lose a trailing " #" comment.
func decodeEnvValue(raw string) string {
	if raw == "" {
		return ""
	}

	if len(raw) >= 2 && strings.HasPrefix(raw, `"`) && strings.HasSuffix(raw, `"`) {
		value := raw[1 : len(raw)-1]
		// Sequential on purpose: backslashes are unescaped last.
		value = strings.ReplaceAll(value, `\n`, "\n")
		value = strings.ReplaceAll(value, `\r`, "\r")
		value = strings.ReplaceAll(value, `\t`, "\t")
		value = strings.ReplaceAll(value, `\"`, `"`)
		value = strings.ReplaceAll(value, `\\`, `\`)
		return value
	}

	if len(raw) >= 2 && strings.HasPrefix(raw, "'") && strings.HasSuffix(raw, "'") {
		return raw[1 : len(raw)-1]
	}

	if idx := strings.Index(raw, " #"); idx != -1 {
		raw = raw[:idx]
	}
	return strings.TrimSpace(raw)
}

// readKeyFromEnvFile returns the decoded value of the first assignment to key
// in the dotenv file at path. Unreadable files yield an empty string.
func readKeyFromEnvFile(path, key string) string {
	content, err := os.ReadFile(path)
	if err != nil {
		return ""
	}

	text := strings.TrimPrefix(string(content), "\uFEFF")
	for _, rawLine := range strings.Split(text, "\n") {
		line := strings.TrimSpace(rawLine)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "export ") {
			line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
		}

		idx := strings.Index(line, "=")
		if idx <= 0 {
			continue
		}
		if strings.TrimSpace(line[:idx]) != key {
			continue
		}
		return decodeEnvValue(strings.TrimSpace(line[idx+1:]))
	}

	return ""
}

// resolveAPIKey looks up EXA_API_KEY in the process environment first, then
// in <cwd>/.env and <projectRoot>/.env. The first non-empty value wins.
func resolveAPIKey(getenv func(string) string, cwd, projectRoot string) string {
	lookups := []func() string{
		func() string { return getenv(apiKeyEnv) },
	}
	for _, candidate := range envCandidates(cwd, projectRoot) {
		lookups = append(lookups, func() string {
			return readKeyFromEnvFile(candidate, apiKeyEnv)
		})
	}

	for _, lookup := range lookups {
		if value := strings.TrimSpace(lookup()); value != "" {
			return value
		}
	}
	return ""
}

// envCandidates returns the absolute .env paths under dirs in order, each
// path at most once.
func envCandidates(dirs ...string) []string {
	candidates := make([]string, 0, len(dirs))
	visited := make(map[string]struct{}, len(dirs))
	for _, dir := range dirs {
		candidate, err := filepath.Abs(filepath.Join(dir, envFileName))
		if err != nil {
			continue
		}
		if _, seen := visited[candidate]; seen {
			continue
		}
		visited[candidate] = struct{}{}
		candidates = append(candidates, candidate)
	}
	return candidates
}

// projectRoot is the directory holding the running executable, falling back
// to the working directory when it cannot be determined.
func projectRoot(cwd string) string {
	exe, err := os.Executable()
	if err != nil {
		return cwd
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Dir(exe)
}
