// SPDX-FileCopyrightText: 2026 Deutsche Telekom AG
// SPDX-License-Identifier: Apache-2.0

package recipients

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/telekom/bulkmail/pkg/metrics"
)

// Column is the header that must be present in every recipient file.
const Column = "email"

// ErrMissingColumn is returned when the parsed table has no "email" column.
var ErrMissingColumn = errors.New("file must contain a column named 'email'")

type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// missingValues are the cell texts spreadsheet tools read as "no value".
var missingValues = map[string]struct{}{
	"#N/A": {}, "#N/A N/A": {}, "#NA": {}, "-1.#IND": {}, "-1.#QNAN": {},
	"-NaN": {}, "-nan": {}, "1.#IND": {}, "1.#QNAN": {}, "<NA>": {},
	"N/A": {}, "NA": {}, "NULL": {}, "NaN": {}, "None": {},
	"n/a": {}, "nan": {}, "null": {},
}

// List is an ordered set of recipient addresses. No address occurs twice and
// none is empty.
type List []string

// FormatFromName picks the parser for an uploaded file name. Only ".csv" files
// are read as text; anything else is handed to the spreadsheet reader.
func FormatFromName(name string) Format {
	if strings.EqualFold(filepath.Ext(name), ".csv") {
		return FormatCSV
	}
	return FormatXLSX
}

// LoadFile opens path and loads it with the format derived from its name.
func LoadFile(path string) (List, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return Load(f, FormatFromName(path))
}

// Load parses r as a table and returns the unique non-empty values of its
// "email" column in first-seen order. Empty cells and placeholders such as
// "N/A" or "null" are skipped. The values are not checked for address syntax.
func Load(r io.Reader, format Format) (List, error) {
	var (
		rows [][]string
		err  error
	)
	switch format {
	case FormatCSV:
		rows, err = readCSV(r)
	case FormatXLSX:
		rows, err = readXLSX(r)
	default:
		return nil, fmt.Errorf("unsupported recipient file format %q", format)
	}
	if err != nil {
		return nil, err
	}

	list, err := extract(rows)
	if err != nil {
		return nil, err
	}
	metrics.RecipientsLoaded.WithLabelValues(string(format)).Add(float64(len(list)))
	return list, nil
}

func extract(rows [][]string) (List, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: file is empty", ErrMissingColumn)
	}
	header := rows[0]
	col := -1
	for i, name := range header {
		if name == Column {
			col = i
			break
		}
	}
	if col < 0 {
		return nil, fmt.Errorf("%w (found: %s)", ErrMissingColumn, strings.Join(header, ", "))
	}

	seen := make(map[string]struct{}, len(rows))
	list := make(List, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if col >= len(row) {
			continue
		}
		addr := row[col]
		if isMissing(addr) {
			continue
		}
		if _, dup := seen[addr]; dup {
			continue
		}
		seen[addr] = struct{}{}
		list = append(list, addr)
	}
	return list, nil
}

func isMissing(v string) bool {
	if v == "" {
		return true
	}
	_, ok := missingValues[v]
	return ok
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

func readCSV(r io.Reader) ([][]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}
	cr := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, utf8BOM)))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse csv: %w", err)
	}
	return rows, nil
}

func readXLSX(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open spreadsheet: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}
	return rows, nil
}
