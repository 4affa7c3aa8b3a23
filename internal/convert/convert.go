// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package convert extracts plain text from PDF documents held in memory,
// page by page, with pluggable backends.
package convert

import (
	"context"
	"fmt"
	"strings"

	"github.com/pdiddy/pmc-fetch/internal/command"
	"github.com/pdiddy/pmc-fetch/pkg/types"
)

// Extractor turns PDF bytes into the text of each page, in page order.
// Different backends (pdfcpu, pdftotext) implement this interface.
type Extractor interface {
	Extract(ctx context.Context, pdf []byte) ([]string, error)
}

// New returns the extractor for backend. The pdftotext backend runs through
// runner; a nil runner selects command.Default.
func New(backend types.ExtractorBackend, runner command.Runner) (Extractor, error) {
	if runner == nil {
		runner = command.Default
	}
	switch backend {
	case "", types.ExtractorPDFCPU:
		return PDFCPUExtractor{}, nil
	case types.ExtractorPdftotext:
		p, err := NewPdftotextExtractor(runner)
		if err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unknown extractor backend %q", backend)
	}
}

// Join concatenates page texts into one document, each page ending in a
// newline.
func Join(pages []string) string {
	var b strings.Builder
	for _, p := range pages {
		b.WriteString(p)
		if p != "" && !strings.HasSuffix(p, "\n") {
			b.WriteByte('\n')
		}
	}
	return b.String()
}
