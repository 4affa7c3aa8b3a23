// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/spf13/viper"

	"github.com/pdiddy/pmc-fetch/pkg/types"
)

type pathRunner struct{ bins map[string]bool }

func (r pathRunner) LookPath(file string) (string, error) {
	if r.bins[file] {
		return "/usr/bin/" + file, nil
	}
	return "", errors.New("not found")
}

func (r pathRunner) Run(context.Context, string, []string, io.Reader, io.Writer) error { return nil }

func TestPromptTerm(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"cystic fibrosis\n", "cystic fibrosis"},
		{"  asthma  \r\n", "asthma"},
		{"no newline", "no newline"},
		{"", ""},
	}
	for _, tt := range tests {
		var out bytes.Buffer
		got, err := promptTerm(strings.NewReader(tt.in), &out)
		if err != nil {
			t.Fatalf("promptTerm(%q): %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("promptTerm(%q) = %q, want %q", tt.in, got, tt.want)
		}
		if out.String() != "Enter search term: " {
			t.Errorf("prompt = %q", out.String())
		}
	}
}

func TestNewFetcher(t *testing.T) {
	withAWS := pathRunner{bins: map[string]bool{"aws": true, "pdftotext": true}}
	tests := []struct {
		name     string
		strategy string
		mode     types.MirrorMode
		backend  types.ExtractorBackend
		runner   pathRunner
		want     string
		wantErr  bool
	}{
		{"mirror cli", strategyMirror, types.MirrorCLI, "", withAWS, "mirror-cli", false},
		{"mirror cli without aws", strategyMirror, types.MirrorCLI, "", pathRunner{}, "", true},
		{"mirror https", strategyMirror, types.MirrorHTTPS, "", pathRunner{}, "mirror-https", false},
		{"mirror unknown mode", strategyMirror, "ftp", "", withAWS, "", true},
		{"scrape pdfcpu", strategyScrape, "", types.ExtractorPDFCPU, pathRunner{}, "scrape", false},
		{"scrape pdftotext", strategyScrape, "", types.ExtractorPdftotext, withAWS, "scrape", false},
		{"scrape pdftotext missing", strategyScrape, "", types.ExtractorPdftotext, pathRunner{}, "", true},
		{"unknown strategy", "ftp", "", "", withAWS, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := types.PipelineConfig{
				Mirror: types.MirrorConfig{Mode: tt.mode},
				Scrape: types.ScrapeConfig{Extractor: tt.backend},
			}
			f, err := newFetcher(tt.strategy, cfg, tt.runner)
			if (err != nil) != tt.wantErr {
				t.Fatalf("newFetcher() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && f.Name() != tt.want {
				t.Errorf("Name() = %q, want %q", f.Name(), tt.want)
			}
		})
	}
}

func TestFetchStrategyFromConfig(t *testing.T) {
	t.Cleanup(func() { viper.Set("fetch.strategy", nil) })

	if err := bindFlags(fetchCmd, fetchFlagKeys); err != nil {
		t.Fatalf("bindFlags: %v", err)
	}
	if got := fetchStrategy(); got != strategyScrape {
		t.Errorf("default strategy = %q, want %q", got, strategyScrape)
	}

	viper.Set("fetch.strategy", strategyMirror)
	if got := fetchStrategy(); got != strategyMirror {
		t.Errorf("configured strategy = %q, want %q", got, strategyMirror)
	}
}

func TestManifestEnabled(t *testing.T) {
	t.Cleanup(func() { viper.Set("output.manifest", nil) })

	if !manifestEnabled(strategyScrape) {
		t.Error("scrape should write a manifest by default")
	}
	if manifestEnabled(strategyMirror) {
		t.Error("mirror should not write a manifest by default")
	}

	viper.Set("output.manifest", true)
	if !manifestEnabled(strategyMirror) {
		t.Error("explicit setting should enable the mirror manifest")
	}
}

func TestLoadConfigRateFollowsAPIKey(t *testing.T) {
	t.Cleanup(func() { loadedSecrets = nil })

	loadedSecrets = nil
	if got := loadConfig().Search.RequestsPerSecond; got != rateWithoutKey {
		t.Errorf("rate without key = %v, want %v", got, rateWithoutKey)
	}

	loadedSecrets = map[string]string{"ncbi-api-key": "k"}
	cfg := loadConfig()
	if cfg.Search.APIKey != "k" {
		t.Errorf("APIKey = %q", cfg.Search.APIKey)
	}
	if cfg.Search.RequestsPerSecond != rateWithKey {
		t.Errorf("rate with key = %v, want %v", cfg.Search.RequestsPerSecond, rateWithKey)
	}
}
