// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the pmc-fetch pipeline:
// the search query, record identifiers, fetched documents, per-item fetch
// results, and stage configuration.
package types

// RecordID is the opaque identifier the literature database assigns to one
// article (a numeric PMC accession such as "7654321"). The search stage
// preserves the order in which the server returns ids.
type RecordID string

// String returns the identifier as a plain string.
func (id RecordID) String() string { return string(id) }

// SearchQuery is a validated search request. It is created by the query
// builder and not modified afterwards.
type SearchQuery struct {
	// Raw is the trimmed term as supplied by the user.
	Raw string `json:"raw" yaml:"raw"`

	// Encoded is the percent-encoded form of Raw, safe to place in a URL
	// query string. It contains no raw space or quote characters.
	Encoded string `json:"encoded" yaml:"encoded"`

	// Limit caps the number of record ids the search stage returns.
	Limit int `json:"limit" yaml:"limit"`
}
