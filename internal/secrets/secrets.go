// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads provider API keys from a directory of plain-text
// files. Each file is one secret: the filename is the key name and the
// trimmed contents are the value.
//
// Key files: openai-api-key, deepseek-api-key, groq-api-key,
// anthropic-api-key, gemini-api-key.
package secrets

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Secrets maps key file names to their values.
type Secrets map[string]string

// Load reads all files in dir. A missing directory is not an error and
// yields an empty set; unreadable files are logged and skipped.
func Load(dir string) (Secrets, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return Secrets{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	s := make(Secrets)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			slog.Warn("could not read secret", "name", name, "error", err)
			continue
		}

		if value := strings.TrimSpace(string(data)); value != "" {
			s[name] = value
		}
	}
	return s, nil
}

// Names returns the loaded key names, sorted.
func (s Secrets) Names() []string {
	names := make([]string, 0, len(s))
	for k := range s {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

var providerKeys = map[string]struct{ file, env string }{
	"openai":    {"openai-api-key", "OPENAI_API_KEY"},
	"deepseek":  {"deepseek-api-key", "DEEPSEEK_API_KEY"},
	"groq":      {"groq-api-key", "GROQ_API_KEY"},
	"claude":    {"anthropic-api-key", "ANTHROPIC_API_KEY"},
	"anthropic": {"anthropic-api-key", "ANTHROPIC_API_KEY"},
	"gemini":    {"gemini-api-key", "GEMINI_API_KEY"},
}

// KeyFor returns the API key for provider: the key file if loaded, else
// the vendor's conventional environment variable. Providers without a key
// (local, mock) and unknown names return "".
func (s Secrets) KeyFor(provider string) string {
	p := strings.ToLower(strings.TrimSpace(provider))
	if p == "" {
		p = "openai"
	}
	k, ok := providerKeys[p]
	if !ok {
		return ""
	}
	if v := s[k.file]; v != "" {
		return v
	}
	return strings.TrimSpace(os.Getenv(k.env))
}
