// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package mirror fetches article text from the PMC open-access object-storage
// mirror, either through the AWS CLI or over the bucket's public HTTPS
// endpoint. Both paths are unauthenticated.
package mirror

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/pdiddy/pmc-fetch/internal/command"
	"github.com/pdiddy/pmc-fetch/internal/httputil"
	"github.com/pdiddy/pmc-fetch/pkg/types"
)

// Defaults for the PMC open-access non-commercial plain-text collection.
const (
	DefaultBucket    = "pmc-oa-opendata"
	DefaultPrefix    = "oa_noncomm/txt/all"
	DefaultKeyPrefix = "PMC"
	DefaultExtension = ".txt"
	DefaultAWSBinary = "aws"
)

// Layout maps record ids to object keys in the mirror bucket.
type Layout struct {
	Bucket    string
	Prefix    string
	KeyPrefix string
	Extension string
}

// LayoutFrom fills unset fields of cfg with the PMC defaults.
func LayoutFrom(cfg types.MirrorConfig) Layout {
	l := Layout{
		Bucket:    cfg.Bucket,
		Prefix:    cfg.Prefix,
		KeyPrefix: cfg.KeyPrefix,
		Extension: cfg.Extension,
	}
	if l.Bucket == "" {
		l.Bucket = DefaultBucket
	}
	if l.Prefix == "" {
		l.Prefix = DefaultPrefix
	}
	if l.KeyPrefix == "" {
		l.KeyPrefix = DefaultKeyPrefix
	}
	if l.Extension == "" {
		l.Extension = DefaultExtension
	}
	return l
}

// ObjectName returns "<KeyPrefix><id><Extension>", e.g. "PMC7654321.txt".
// It doubles as the local file name.
func (l Layout) ObjectName(id types.RecordID) string {
	return l.KeyPrefix + string(id) + l.Extension
}

// Key returns the full object key inside the bucket.
func (l Layout) Key(id types.RecordID) string {
	prefix := strings.Trim(l.Prefix, "/")
	if prefix == "" {
		return l.ObjectName(id)
	}
	return prefix + "/" + l.ObjectName(id)
}

// S3URI returns the s3:// URI of the object for id.
func (l Layout) S3URI(id types.RecordID) string {
	return "s3://" + l.Bucket + "/" + l.Key(id)
}

// HTTPSURL returns the public HTTPS URL of the object for id. A non-empty
// endpoint replaces the default virtual-hosted bucket URL.
func (l Layout) HTTPSURL(endpoint string, id types.RecordID) string {
	base := "https://" + l.Bucket + ".s3.amazonaws.com"
	if endpoint != "" {
		base = strings.TrimRight(endpoint, "/")
	}
	return base + "/" + l.Key(id)
}

// CLIFetcher copies objects with `aws s3 cp <uri> - --no-sign-request`,
// streaming the object to stdout so nothing touches disk until the whole
// object has arrived.
type CLIFetcher struct {
	Layout Layout
	Binary string
	runner command.Runner
}

// NewCLIFetcher returns a CLIFetcher that runs through runner. A nil runner
// selects command.Default. It fails when the AWS CLI is not on PATH.
func NewCLIFetcher(cfg types.MirrorConfig, runner command.Runner) (*CLIFetcher, error) {
	if runner == nil {
		runner = command.Default
	}
	bin := cfg.AWSBinary
	if bin == "" {
		bin = DefaultAWSBinary
	}
	if err := command.Require(runner, bin); err != nil {
		return nil, err
	}
	return &CLIFetcher{Layout: LayoutFrom(cfg), Binary: bin, runner: runner}, nil
}

func (f *CLIFetcher) Name() string { return "mirror-cli" }

func (f *CLIFetcher) FileName(id types.RecordID) string { return f.Layout.ObjectName(id) }

// Fetch copies the object for id. A non-zero exit of the copy command is a
// copy_failed item failure.
func (f *CLIFetcher) Fetch(ctx context.Context, id types.RecordID) (types.Document, error) {
	uri := f.Layout.S3URI(id)
	doc := types.Document{SourceURL: uri}

	var out bytes.Buffer
	args := []string{"s3", "cp", uri, "-", "--no-sign-request", "--quiet"}
	if err := f.runner.Run(ctx, f.Binary, args, nil, &out); err != nil {
		var ee *command.ExitError
		if errors.As(err, &ee) {
			return doc, types.Fail(types.FailureCopyFailed, err)
		}
		return doc, types.Fail(types.FailureCopyFailed, fmt.Errorf("copying %s: %w", uri, err))
	}
	doc.Text = out.Bytes()
	return doc, nil
}

// HTTPFetcher downloads objects from the bucket's public HTTPS endpoint.
type HTTPFetcher struct {
	Layout   Layout
	Endpoint string
	client   *httputil.Client
}

// NewHTTPFetcher returns an HTTPFetcher that issues requests through client.
func NewHTTPFetcher(cfg types.MirrorConfig, client *httputil.Client) *HTTPFetcher {
	return &HTTPFetcher{Layout: LayoutFrom(cfg), Endpoint: cfg.Endpoint, client: client}
}

func (f *HTTPFetcher) Name() string { return "mirror-https" }

func (f *HTTPFetcher) FileName(id types.RecordID) string { return f.Layout.ObjectName(id) }

// Fetch downloads the object for id.
func (f *HTTPFetcher) Fetch(ctx context.Context, id types.RecordID) (types.Document, error) {
	url := f.Layout.HTTPSURL(f.Endpoint, id)
	doc := types.Document{SourceURL: url}

	body, err := f.client.Get(ctx, url, "text/plain")
	if err != nil {
		var se *httputil.StatusError
		if errors.As(err, &se) {
			return doc, types.Fail(types.FailureHTTPStatus, err)
		}
		return doc, types.Fail(types.FailureNetwork, err)
	}
	doc.Text = body
	return doc, nil
}
