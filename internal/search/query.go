// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"errors"
	"net/url"
	"strings"
	"unicode"

	"github.com/pdiddy/pmc-fetch/pkg/types"
)

// DefaultMaxResults caps the result list when neither the query nor the
// configuration sets a limit.
const DefaultMaxResults = 20

// ErrEmptyTerm is returned by BuildQuery for a term that is blank after trimming.
var ErrEmptyTerm = errors.New("search term is empty")

// BuildQuery validates term and returns a SearchQuery carrying the
// percent-encoded term and the result limit. A limit of zero or less selects
// DefaultMaxResults.
func BuildQuery(term string, limit int) (types.SearchQuery, error) {
	raw := strings.TrimSpace(term)
	if raw == "" {
		return types.SearchQuery{}, ErrEmptyTerm
	}
	if limit <= 0 {
		limit = DefaultMaxResults
	}
	return types.SearchQuery{
		Raw:     raw,
		Encoded: encodeTerm(raw),
		Limit:   limit,
	}, nil
}

// encodeTerm percent-encodes s for a query string value. Spaces become %20
// rather than '+', so the encoded term reads the same in either position.
func encodeTerm(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

const fallbackOutputDir = "pmc-fetch-output"

// DefaultOutputDir derives a directory name from the query's raw term:
// whitespace runs become underscores and anything other than letters,
// digits, '-', '_' and '.' is dropped.
func DefaultOutputDir(q types.SearchQuery) string {
	joined := strings.Join(strings.Fields(q.Raw), "_")
	var b strings.Builder
	for _, r := range joined {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_' || r == '.' {
			b.WriteRune(r)
		}
	}
	name := strings.Trim(b.String(), ".")
	if name == "" {
		return fallbackOutputDir
	}
	return name
}
