// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/pmc-fetch/internal/mirror"
	"github.com/pdiddy/pmc-fetch/internal/scrape"
	"github.com/pdiddy/pmc-fetch/internal/search"
	"github.com/pdiddy/pmc-fetch/pkg/types"
)

const (
	defaultTimeout  = 60 * time.Second
	defaultToolName = "pmc-fetch"

	// NCBI allows 3 requests per second without an API key and 10 with one.
	rateWithoutKey = 3
	rateWithKey    = 10
)

func setDefaults() {
	viper.SetDefault("fetch.strategy", strategyScrape)

	viper.SetDefault("search.endpoint", search.DefaultEndpoint)
	viper.SetDefault("search.database", "pmc")
	viper.SetDefault("search.variant", string(types.VariantHistory))
	viper.SetDefault("search.max_results", search.DefaultMaxResults)
	viper.SetDefault("search.tool", defaultToolName)
	viper.SetDefault("search.timeout", defaultTimeout)

	viper.SetDefault("mirror.mode", string(types.MirrorCLI))
	viper.SetDefault("mirror.bucket", mirror.DefaultBucket)
	viper.SetDefault("mirror.prefix", mirror.DefaultPrefix)
	viper.SetDefault("mirror.key_prefix", mirror.DefaultKeyPrefix)
	viper.SetDefault("mirror.extension", mirror.DefaultExtension)
	viper.SetDefault("mirror.aws_binary", mirror.DefaultAWSBinary)
	viper.SetDefault("mirror.timeout", defaultTimeout)
	viper.SetDefault("mirror.requests_per_second", rateWithKey)

	viper.SetDefault("scrape.article_base", scrape.DefaultArticleBase)
	viper.SetDefault("scrape.pdf_base", scrape.DefaultPDFBase)
	viper.SetDefault("scrape.pdf_marker", scrape.DefaultPDFMarker)
	viper.SetDefault("scrape.user_agent", scrape.DefaultUserAgent)
	viper.SetDefault("scrape.extractor", string(types.ExtractorPDFCPU))
	viper.SetDefault("scrape.timeout", defaultTimeout)
	viper.SetDefault("scrape.requests_per_second", rateWithoutKey)

	viper.SetDefault("output.manifest_format", string(types.ManifestCSV))

	viper.SetDefault("log.level", "info")
}

// loadConfig assembles the pipeline configuration from viper. Credentials
// missing from the configuration are taken from the secrets directory.
func loadConfig() types.PipelineConfig {
	cfg := types.PipelineConfig{
		Search: types.SearchConfig{
			HTTPConfig: types.HTTPConfig{
				Timeout:           viper.GetDuration("search.timeout"),
				UserAgent:         viper.GetString("search.user_agent"),
				RequestsPerSecond: viper.GetFloat64("search.requests_per_second"),
			},
			Endpoint:   viper.GetString("search.endpoint"),
			Database:   viper.GetString("search.database"),
			Variant:    types.SearchVariant(viper.GetString("search.variant")),
			MaxResults: viper.GetInt("search.max_results"),
			APIKey:     viper.GetString("search.api_key"),
			Email:      viper.GetString("search.email"),
			Tool:       viper.GetString("search.tool"),
		},
		Mirror: types.MirrorConfig{
			HTTPConfig: types.HTTPConfig{
				Timeout:           viper.GetDuration("mirror.timeout"),
				UserAgent:         viper.GetString("mirror.user_agent"),
				RequestsPerSecond: viper.GetFloat64("mirror.requests_per_second"),
			},
			Mode:      types.MirrorMode(viper.GetString("mirror.mode")),
			Bucket:    viper.GetString("mirror.bucket"),
			Prefix:    viper.GetString("mirror.prefix"),
			KeyPrefix: viper.GetString("mirror.key_prefix"),
			Extension: viper.GetString("mirror.extension"),
			AWSBinary: viper.GetString("mirror.aws_binary"),
			Endpoint:  viper.GetString("mirror.endpoint"),
		},
		Scrape: types.ScrapeConfig{
			HTTPConfig: types.HTTPConfig{
				Timeout:           viper.GetDuration("scrape.timeout"),
				UserAgent:         viper.GetString("scrape.user_agent"),
				RequestsPerSecond: viper.GetFloat64("scrape.requests_per_second"),
			},
			ArticleBase: viper.GetString("scrape.article_base"),
			PDFBase:     viper.GetString("scrape.pdf_base"),
			PDFMarker:   viper.GetString("scrape.pdf_marker"),
			Extractor:   types.ExtractorBackend(viper.GetString("scrape.extractor")),
		},
		Output: types.OutputConfig{
			Dir:            viper.GetString("output.dir"),
			Manifest:       viper.GetBool("output.manifest"),
			ManifestFormat: types.ManifestFormat(viper.GetString("output.manifest_format")),
			HistoryDB:      viper.GetString("output.history_db"),
		},
		Log: types.LogConfig{
			Level: viper.GetString("log.level"),
			File:  viper.GetString("log.file"),
		},
	}

	loadedSecrets.ApplyTo(&cfg.Search)
	if cfg.Search.UserAgent == "" {
		cfg.Search.UserAgent = defaultToolName + "/" + version
	}
	if cfg.Mirror.UserAgent == "" {
		cfg.Mirror.UserAgent = defaultToolName + "/" + version
	}
	if cfg.Search.RequestsPerSecond <= 0 {
		cfg.Search.RequestsPerSecond = rateWithoutKey
		if cfg.Search.APIKey != "" {
			cfg.Search.RequestsPerSecond = rateWithKey
		}
	}
	return cfg
}

// manifestEnabled reports whether to write the manifest for strategy. An
// explicit setting wins; otherwise only the scrape strategy writes one.
func manifestEnabled(strategy string) bool {
	if viper.IsSet("output.manifest") {
		return viper.GetBool("output.manifest")
	}
	return strategy == strategyScrape
}

// bindFlags binds cmd's flags to viper keys. It runs in PreRunE so that
// commands sharing a key each bind their own flag.
func bindFlags(cmd *cobra.Command, keys map[string]string) error {
	for flag, key := range keys {
		f := cmd.Flags().Lookup(flag)
		if f == nil {
			return fmt.Errorf("unknown flag %q", flag)
		}
		if err := viper.BindPFlag(key, f); err != nil {
			return fmt.Errorf("binding --%s: %w", flag, err)
		}
	}
	return nil
}
