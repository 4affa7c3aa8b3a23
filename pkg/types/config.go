package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests.
	UserAgent string `json:"user_agent" yaml:"user_agent"`

	// RequestsPerSecond paces outgoing requests. Zero disables pacing.
	RequestsPerSecond float64 `json:"requests_per_second" yaml:"requests_per_second"`
}

// SearchVariant selects how the esearch request is phrased.
type SearchVariant string

const (
	// VariantHistory searches the title field and asks the server to keep
	// the result set on its history server (usehistory=y).
	VariantHistory SearchVariant = "history"

	// VariantTitle quotes the term with a [Title] qualifier and requests
	// an XML response without history.
	VariantTitle SearchVariant = "title"
)

// SearchConfig holds settings for the search stage.
type SearchConfig struct {
	HTTPConfig `yaml:",inline"`

	// Endpoint is the esearch URL.
	Endpoint string `json:"endpoint" yaml:"endpoint"`

	// Database is the E-utilities database selector (default "pmc").
	Database string `json:"database" yaml:"database"`

	// Variant selects the request phrasing: history or title.
	Variant SearchVariant `json:"variant" yaml:"variant"`

	// MaxResults is the default result cap when the query carries none (default 20).
	MaxResults int `json:"max_results" yaml:"max_results"`

	// APIKey is an optional NCBI API key for the higher rate limit.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// Email is sent as the E-utilities email parameter when set.
	Email string `json:"email,omitempty" yaml:"email,omitempty"`

	// Tool is sent as the E-utilities tool parameter when set.
	Tool string `json:"tool,omitempty" yaml:"tool,omitempty"`
}

// MirrorMode selects how objects are copied from the open-access mirror.
type MirrorMode string

const (
	MirrorCLI   MirrorMode = "cli"
	MirrorHTTPS MirrorMode = "https"
)

// MirrorConfig holds settings for the object-storage strategy.
type MirrorConfig struct {
	HTTPConfig `yaml:",inline"`

	// Mode selects the copy mechanism: the AWS CLI or plain HTTPS.
	Mode MirrorMode `json:"mode" yaml:"mode"`

	// Bucket is the public bucket name (default "pmc-oa-opendata").
	Bucket string `json:"bucket" yaml:"bucket"`

	// Prefix is the key path inside the bucket (default "oa_noncomm/txt/all").
	Prefix string `json:"prefix" yaml:"prefix"`

	// KeyPrefix is prepended to the record id in the object name (default "PMC").
	KeyPrefix string `json:"key_prefix" yaml:"key_prefix"`

	// Extension is appended to the object name (default ".txt").
	Extension string `json:"extension" yaml:"extension"`

	// AWSBinary is the AWS CLI executable (default "aws").
	AWSBinary string `json:"aws_binary" yaml:"aws_binary"`

	// Endpoint overrides the HTTPS base URL of the bucket.
	Endpoint string `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
}

// ExtractorBackend identifies the PDF text extraction tool.
type ExtractorBackend string

const (
	ExtractorPDFCPU    ExtractorBackend = "pdfcpu"
	ExtractorPdftotext ExtractorBackend = "pdftotext"
)

// ScrapeConfig holds settings for the scrape-and-convert strategy.
type ScrapeConfig struct {
	HTTPConfig `yaml:",inline"`

	// ArticleBase is the article page URL prefix; "PMC<id>/" is appended.
	ArticleBase string `json:"article_base" yaml:"article_base"`

	// PDFBase is the base against which relative PDF hrefs are resolved;
	// "PMC<id>/" is appended.
	PDFBase string `json:"pdf_base" yaml:"pdf_base"`

	// PDFMarker is the substring an anchor href must contain to be taken
	// as the PDF link (default "pdf").
	PDFMarker string `json:"pdf_marker" yaml:"pdf_marker"`

	// Extractor selects the PDF text backend.
	Extractor ExtractorBackend `json:"extractor" yaml:"extractor"`
}

// ManifestFormat selects the manifest file format.
type ManifestFormat string

const (
	ManifestCSV  ManifestFormat = "csv"
	ManifestXLSX ManifestFormat = "xlsx"
	ManifestYAML ManifestFormat = "yaml"
)

// OutputConfig holds settings for persisted output.
type OutputConfig struct {
	// Dir is the output directory. Empty derives a name from the search term.
	Dir string `json:"dir" yaml:"dir"`

	// Manifest enables the end-of-run manifest.
	Manifest bool `json:"manifest" yaml:"manifest"`

	// ManifestFormat selects csv, xlsx, or yaml.
	ManifestFormat ManifestFormat `json:"manifest_format" yaml:"manifest_format"`

	// HistoryDB is the SQLite run-history path. Empty disables history.
	HistoryDB string `json:"history_db,omitempty" yaml:"history_db,omitempty"`
}

// LogConfig holds structured logging settings.
type LogConfig struct {
	// Level is the minimum level: debug, info, warn, or error.
	Level string `json:"level" yaml:"level"`

	// File enables a rotated JSON log file at this path.
	File string `json:"file,omitempty" yaml:"file,omitempty"`
}

// PipelineConfig groups all stage configurations for one run.
type PipelineConfig struct {
	Search SearchConfig `json:"search" yaml:"search"`
	Mirror MirrorConfig `json:"mirror" yaml:"mirror"`
	Scrape ScrapeConfig `json:"scrape" yaml:"scrape"`
	Output OutputConfig `json:"output" yaml:"output"`
	Log    LogConfig    `json:"log" yaml:"log"`
}
