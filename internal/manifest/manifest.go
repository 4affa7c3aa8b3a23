// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package manifest writes the end-of-run list of fetched records.
package manifest

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/pmc-fetch/pkg/types"
)

// BaseName is the manifest file name without extension.
const BaseName = "downloaded_articles"

// Header lists the manifest columns in order.
var Header = []string{"id", "source_url", "output_path"}

const sheetName = "Articles"

// Row is one manifest entry.
type Row struct {
	ID         string `yaml:"id"`
	SourceURL  string `yaml:"source_url"`
	OutputPath string `yaml:"output_path"`
}

func (r Row) fields() []string { return []string{r.ID, r.SourceURL, r.OutputPath} }

// Rows converts the successful results into manifest rows, in order.
func Rows(results []types.FetchResult) []Row {
	var rows []Row
	for _, r := range results {
		if !r.Success {
			continue
		}
		rows = append(rows, Row{ID: r.ID.String(), SourceURL: r.SourceURL, OutputPath: r.LocalPath})
	}
	return rows
}

// FileName returns the manifest file name for format.
func FileName(format types.ManifestFormat) string {
	if format == "" {
		format = types.ManifestCSV
	}
	return BaseName + "." + string(format)
}

// Write records every successful result in dir and returns the file path.
// When no result succeeded no file is created and the path is empty.
func Write(results []types.FetchResult, dir string, format types.ManifestFormat) (string, error) {
	rows := Rows(results)
	if len(rows) == 0 {
		return "", nil
	}
	path := filepath.Join(dir, FileName(format))

	var err error
	switch format {
	case "", types.ManifestCSV:
		err = writeCSV(path, rows)
	case types.ManifestXLSX:
		err = writeXLSX(path, rows)
	case types.ManifestYAML:
		err = writeYAML(path, rows)
	default:
		return "", fmt.Errorf("unknown manifest format %q", format)
	}
	if err != nil {
		return "", fmt.Errorf("writing manifest %s: %w", path, err)
	}
	return path, nil
}

func writeCSV(path string, rows []Row) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)
	w.Write(Header)
	for _, r := range rows {
		w.Write(r.fields())
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func writeXLSX(path string, rows []Row) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return err
	}
	for i, vals := range append([][]string{Header}, fieldsOf(rows)...) {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheetName, cell, &vals); err != nil {
			return err
		}
	}
	return f.SaveAs(path)
}

func writeYAML(path string, rows []Row) error {
	data, err := yaml.Marshal(rows)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func fieldsOf(rows []Row) [][]string {
	out := make([][]string, len(rows))
	for i, r := range rows {
		out[i] = r.fields()
	}
	return out
}
