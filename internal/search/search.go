// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package search builds PMC search queries and resolves them into record ids
// through the NCBI E-utilities esearch endpoint.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/pdiddy/pmc-fetch/internal/httputil"
	"github.com/pdiddy/pmc-fetch/pkg/types"
)

// DefaultEndpoint is the production esearch URL.
const DefaultEndpoint = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils/esearch.fcgi"

// RequestError reports a search request that did not produce a usable
// response: either the transport failed (StatusCode is zero) or the server
// answered with a non-200 status.
type RequestError struct {
	StatusCode int
	URL        string
	Err        error
}

func (e *RequestError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("search request failed: HTTP %d from %s", e.StatusCode, e.URL)
	}
	return fmt.Sprintf("search request failed: %v", e.Err)
}

func (e *RequestError) Unwrap() error { return e.Err }

// ParseError reports a search response body that could not be interpreted.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing search response: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Result holds the ids returned for a query, in server order, together with
// the server-side bookkeeping the response carried.
type Result struct {
	IDs      []types.RecordID `json:"ids"`
	Count    int              `json:"count"`
	WebEnv   string           `json:"web_env,omitempty"`
	QueryKey string           `json:"query_key,omitempty"`
}

// Client queries the esearch endpoint.
type Client struct {
	HTTP   *httputil.Client
	Config types.SearchConfig
}

// NewClient returns a Client that issues requests through hc.
func NewClient(hc *httputil.Client, cfg types.SearchConfig) *Client {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Database == "" {
		cfg.Database = "pmc"
	}
	if cfg.Variant == "" {
		cfg.Variant = types.VariantHistory
	}
	return &Client{HTTP: hc, Config: cfg}
}

// Search sends one GET for q and returns at most the query's limit of ids.
// Transport failures and non-200 statuses yield a *RequestError; an
// unreadable body yields a *ParseError. A response without ids is an empty
// Result, not an error.
func (c *Client) Search(ctx context.Context, q types.SearchQuery) (Result, error) {
	reqURL, err := c.RequestURL(q)
	if err != nil {
		return Result{}, err
	}

	body, err := c.HTTP.Get(ctx, reqURL, "application/xml")
	if err != nil {
		var se *httputil.StatusError
		if errors.As(err, &se) {
			return Result{}, &RequestError{StatusCode: se.StatusCode, URL: reqURL, Err: err}
		}
		return Result{}, &RequestError{URL: reqURL, Err: err}
	}

	res, err := parseResponse(body)
	if err != nil {
		return Result{}, err
	}

	limit := q.Limit
	if limit <= 0 {
		limit = c.Config.MaxResults
	}
	if limit <= 0 {
		limit = DefaultMaxResults
	}
	if len(res.IDs) > limit {
		res.IDs = res.IDs[:limit]
	}
	return res, nil
}

// RequestURL renders the esearch URL for q under the configured variant.
func (c *Client) RequestURL(q types.SearchQuery) (string, error) {
	if q.Encoded == "" {
		return "", ErrEmptyTerm
	}
	limit := q.Limit
	if limit <= 0 {
		limit = c.Config.MaxResults
	}
	if limit <= 0 {
		limit = DefaultMaxResults
	}

	db := url.QueryEscape(c.Config.Database)
	var params string
	switch c.Config.Variant {
	case types.VariantHistory:
		params = fmt.Sprintf("db=%s&term=%s&field=title&usehistory=y&retmax=%d", db, q.Encoded, limit)
	case types.VariantTitle:
		params = fmt.Sprintf("db=%s&term=%%22%s%%22%%5BTitle%%5D&retmax=%d&retmode=xml", db, q.Encoded, limit)
	default:
		return "", fmt.Errorf("unknown search variant %q", c.Config.Variant)
	}

	if c.Config.APIKey != "" {
		params += "&api_key=" + url.QueryEscape(c.Config.APIKey)
	}
	if c.Config.Email != "" {
		params += "&email=" + url.QueryEscape(c.Config.Email)
	}
	if c.Config.Tool != "" {
		params += "&tool=" + url.QueryEscape(c.Config.Tool)
	}

	sep := "?"
	if strings.Contains(c.Config.Endpoint, "?") {
		sep = "&"
	}
	return c.Config.Endpoint + sep + params, nil
}

// eSearchResult captures the top-level fields of an esearch response. The
// <Id> elements are collected separately by a tree walk.
type eSearchResult struct {
	XMLName  xml.Name `xml:"eSearchResult"`
	Count    int      `xml:"Count"`
	WebEnv   string   `xml:"WebEnv"`
	QueryKey string   `xml:"QueryKey"`
	Error    string   `xml:"ERROR"`
}

func parseResponse(body []byte) (Result, error) {
	var head eSearchResult
	if err := xml.Unmarshal(body, &head); err != nil {
		return Result{}, &ParseError{Err: err}
	}
	if msg := strings.TrimSpace(head.Error); msg != "" {
		return Result{}, &ParseError{Err: fmt.Errorf("server reported: %s", msg)}
	}

	ids, err := collectElements(body, "Id")
	if err != nil {
		return Result{}, &ParseError{Err: err}
	}

	res := Result{
		Count:    head.Count,
		WebEnv:   strings.TrimSpace(head.WebEnv),
		QueryKey: strings.TrimSpace(head.QueryKey),
	}
	for _, id := range ids {
		if id == "" {
			continue
		}
		if !isAccession(id) {
			return Result{}, &ParseError{Err: fmt.Errorf("invalid record id %q", id)}
		}
		res.IDs = append(res.IDs, types.RecordID(id))
	}
	return res, nil
}

// isAccession reports whether id is a numeric PMC accession. Ids become file
// names, so anything else is refused.
func isAccession(id string) bool {
	for i := 0; i < len(id); i++ {
		if id[i] < '0' || id[i] > '9' {
			return false
		}
	}
	return id != ""
}

// collectElements walks the whole XML tree and returns the trimmed text of
// every element with the given local name, in document order.
func collectElements(body []byte, name string) ([]string, error) {
	dec := xml.NewDecoder(bytes.NewReader(body))
	var out []string
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != name {
			continue
		}
		var text string
		if err := dec.DecodeElement(&text, &start); err != nil {
			return nil, err
		}
		out = append(out, strings.TrimSpace(text))
	}
}

// FormatTable writes the ids one per line with a trailing count to w.
func FormatTable(res Result, w io.Writer) {
	if len(res.IDs) == 0 {
		fmt.Fprintln(w, "No records found.")
		return
	}
	fmt.Fprintf(w, "%-4s  %s\n", "Rank", "Record")
	fmt.Fprintln(w, strings.Repeat("-", 24))
	for i, id := range res.IDs {
		fmt.Fprintf(w, "%-4d  PMC%s\n", i+1, id)
	}
	fmt.Fprintf(w, "\n%d of %d records\n", len(res.IDs), res.Count)
}

// FormatJSON writes the result as indented JSON to w.
func FormatJSON(res Result, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}
