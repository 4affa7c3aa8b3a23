// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package scrape fetches PMC articles by reading the article page, following
// its PDF link, and extracting the PDF's text in memory.
package scrape

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/pdiddy/pmc-fetch/internal/convert"
	"github.com/pdiddy/pmc-fetch/internal/httputil"
	"github.com/pdiddy/pmc-fetch/pkg/types"
)

// Defaults for the PMC article site.
const (
	DefaultArticleBase = "https://www.ncbi.nlm.nih.gov/pmc/articles/"
	DefaultPDFBase     = "https://pmc.ncbi.nlm.nih.gov/articles/"
	DefaultPDFMarker   = "pdf"

	// DefaultUserAgent is a browser-like agent; the article site refuses
	// obvious bots.
	DefaultUserAgent = "Mozilla/5.0"
)

// ErrNoPDFLink is returned by FindPDFLink when no anchor qualifies.
var ErrNoPDFLink = errors.New("no PDF link found")

// Fetcher implements the scrape-and-convert strategy.
type Fetcher struct {
	cfg       types.ScrapeConfig
	client    *httputil.Client
	extractor convert.Extractor
}

// NewFetcher returns a Fetcher using client for both the article page and
// the PDF, and ex for text extraction. Unset config fields take the PMC
// defaults.
func NewFetcher(cfg types.ScrapeConfig, client *httputil.Client, ex convert.Extractor) *Fetcher {
	if cfg.ArticleBase == "" {
		cfg.ArticleBase = DefaultArticleBase
	}
	if cfg.PDFBase == "" {
		cfg.PDFBase = DefaultPDFBase
	}
	if cfg.PDFMarker == "" {
		cfg.PDFMarker = DefaultPDFMarker
	}
	return &Fetcher{cfg: cfg, client: client, extractor: ex}
}

func (f *Fetcher) Name() string { return "scrape" }

// FileName returns "PMC_<id>.txt".
func (f *Fetcher) FileName(id types.RecordID) string {
	return "PMC_" + string(id) + ".txt"
}

// ArticleURL returns the article page URL for id.
func (f *Fetcher) ArticleURL(id types.RecordID) string {
	return withSlash(f.cfg.ArticleBase) + "PMC" + string(id) + "/"
}

// Fetch runs the four item steps: article page, PDF link, PDF bytes, text.
// The first failing step decides the item's failure kind.
func (f *Fetcher) Fetch(ctx context.Context, id types.RecordID) (types.Document, error) {
	var doc types.Document

	page, err := f.client.Get(ctx, f.ArticleURL(id), "text/html")
	if err != nil {
		return doc, httpFailure(fmt.Errorf("article page: %w", err))
	}

	base := withSlash(f.cfg.PDFBase) + "PMC" + string(id) + "/"
	pdfURL, err := FindPDFLink(page, base, f.cfg.PDFMarker)
	if err != nil {
		if errors.Is(err, ErrNoPDFLink) {
			return doc, types.Fail(types.FailureNoPDFLink, err)
		}
		return doc, types.Fail(types.FailureNetwork, fmt.Errorf("parsing article page: %w", err))
	}
	doc.SourceURL = pdfURL

	pdf, err := f.client.Get(ctx, pdfURL, "application/pdf")
	if err != nil {
		return doc, httpFailure(fmt.Errorf("PDF download: %w", err))
	}

	pages, err := f.extractor.Extract(ctx, pdf)
	if err != nil {
		return doc, types.Fail(types.FailureMalformedPDF, err)
	}
	text := convert.Join(pages)
	if strings.TrimSpace(text) == "" {
		return doc, types.Fail(types.FailureEmptyDocument, errors.New("PDF contains no extractable text"))
	}
	doc.Text = []byte(text)
	return doc, nil
}

// FindPDFLink parses an HTML page and returns the first anchor href that
// contains marker, resolved against base. Absolute hrefs are kept as is.
// Only the first matching anchor is considered: if its href is not a valid
// URL the result is ErrNoPDFLink, not a later anchor.
func FindPDFLink(page []byte, base, marker string) (string, error) {
	root, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return "", err
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parsing base URL: %w", err)
	}

	var (
		link   string
		badRef error
	)
	root.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		if !strings.Contains(href, marker) {
			return true
		}
		ref, err := url.Parse(strings.TrimSpace(href))
		if err != nil {
			badRef = fmt.Errorf("%w: href %q: %v", ErrNoPDFLink, href, err)
			return false
		}
		link = baseURL.ResolveReference(ref).String()
		return false
	})
	if badRef != nil {
		return "", badRef
	}
	if link == "" {
		return "", ErrNoPDFLink
	}
	return link, nil
}

func httpFailure(err error) error {
	var se *httputil.StatusError
	if errors.As(err, &se) {
		return types.Fail(types.FailureHTTPStatus, err)
	}
	return types.Fail(types.FailureNetwork, err)
}

func withSlash(s string) string {
	if strings.HasSuffix(s, "/") {
		return s
	}
	return s + "/"
}
