// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets reads NCBI credentials from a directory of plain-text files.
// The filename is the key and the trimmed contents are the value.
//
// Recognised keys: ncbi-api-key, ncbi-email.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/pmc-fetch/pkg/types"
)

// Key file names.
const (
	KeyNCBIAPIKey = "ncbi-api-key"
	KeyNCBIEmail  = "ncbi-email"
)

// DefaultDir is the secrets directory relative to the working directory.
const DefaultDir = ".secrets"

// Set holds the values read from a secrets directory.
type Set map[string]string

// Load reads every regular, non-hidden file in dir. A missing directory
// yields an empty Set. Files that cannot be read are logged and skipped.
func Load(dir string, log *zap.Logger) (Set, error) {
	if log == nil {
		log = zap.NewNop()
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return Set{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	set := make(Set)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			log.Warn("unreadable secret", zap.String("key", name), zap.Error(err))
			continue
		}
		if v := strings.TrimSpace(string(data)); v != "" {
			set[name] = v
		}
	}
	return set, nil
}

// ApplyTo fills the search credentials that are not already configured.
// Explicit configuration wins over the secrets directory.
func (s Set) ApplyTo(cfg *types.SearchConfig) {
	if cfg.APIKey == "" {
		cfg.APIKey = s[KeyNCBIAPIKey]
	}
	if cfg.Email == "" {
		cfg.Email = s[KeyNCBIEmail]
	}
}
