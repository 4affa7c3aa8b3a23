// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/pdiddy/pmc-fetch/internal/command"
)

const binPdftotext = "pdftotext"

// PdftotextExtractor pipes the PDF through poppler's pdftotext binary.
// pdftotext separates pages with a form feed.
type PdftotextExtractor struct {
	runner command.Runner
}

// NewPdftotextExtractor verifies that pdftotext is on PATH.
func NewPdftotextExtractor(runner command.Runner) (*PdftotextExtractor, error) {
	if err := command.Require(runner, binPdftotext); err != nil {
		return nil, err
	}
	return &PdftotextExtractor{runner: runner}, nil
}

// Extract runs pdftotext over pdf and splits its output into pages.
func (p *PdftotextExtractor) Extract(ctx context.Context, pdf []byte) ([]string, error) {
	var out bytes.Buffer
	args := []string{"-layout", "-enc", "UTF-8", "-", "-"}
	if err := p.runner.Run(ctx, binPdftotext, args, bytes.NewReader(pdf), &out); err != nil {
		return nil, fmt.Errorf("pdftotext: %w", err)
	}

	pages := strings.Split(out.String(), "\f")
	// Output ends with a form feed after the last page.
	if n := len(pages); n > 0 && strings.TrimSpace(pages[n-1]) == "" {
		pages = pages[:n-1]
	}
	return pages, nil
}
