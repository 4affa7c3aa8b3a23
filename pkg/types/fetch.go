// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "fmt"

// ItemStatus is the terminal state of one record id in a fetch run. Every id
// starts pending and ends either fetched or skipped; there is no way back.
type ItemStatus string

const (
	StatusPending ItemStatus = "pending"
	StatusFetched ItemStatus = "fetched"
	StatusSkipped ItemStatus = "skipped"
)

// FailureKind names why an item was skipped.
type FailureKind string

const (
	FailureNone          FailureKind = ""
	FailureNetwork       FailureKind = "network"
	FailureHTTPStatus    FailureKind = "http_status"
	FailureNoPDFLink     FailureKind = "no_pdf_link"
	FailureMalformedPDF  FailureKind = "malformed_pdf"
	FailureEmptyDocument FailureKind = "empty_document"
	FailureCopyFailed    FailureKind = "copy_failed"
	FailureWriteFailed   FailureKind = "write_failed"
)

// FetchError is the error a fetch strategy returns for a single item. Kind
// classifies the failure; Err carries the underlying cause.
type FetchError struct {
	Kind FailureKind
	Err  error
}

func (e *FetchError) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Fail wraps err as a FetchError of the given kind.
func Fail(kind FailureKind, err error) error {
	return &FetchError{Kind: kind, Err: err}
}

// Document is the full text a fetch strategy produced for one record.
type Document struct {
	// SourceURL is where the text (or the PDF it was extracted from) came from.
	SourceURL string

	// Text is the document body written to the output file.
	Text []byte
}

// FetchResult records the outcome of one attempted fetch. The pipeline
// creates exactly one per id and never updates it.
type FetchResult struct {
	ID        RecordID    `json:"id" yaml:"id"`
	SourceURL string      `json:"source_url" yaml:"source_url"`
	LocalPath string      `json:"local_path,omitempty" yaml:"local_path,omitempty"`
	Success   bool        `json:"success" yaml:"success"`
	Failure   FailureKind `json:"failure,omitempty" yaml:"failure,omitempty"`
	Err       string      `json:"error,omitempty" yaml:"error,omitempty"`
}

// Status returns the terminal state the result represents.
func (r FetchResult) Status() ItemStatus {
	if r.Success {
		return StatusFetched
	}
	return StatusSkipped
}
