// Copyright Doodle Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package extractor

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"
)

// Sheet is one worksheet, rows in order, cells as displayed text.
type Sheet struct {
	Name string
	Rows [][]string
}

// zipMagic starts every OOXML package. Both extensions are accepted with
// either container, since spreadsheet tools save .xls files as OOXML too.
var zipMagic = []byte("PK\x03\x04")

// extractSpreadsheet reads a workbook and renders each sheet as a labeled
// CSV block in workbook order.
func extractSpreadsheet(content []byte) (string, error) {
	var (
		sheets []Sheet
		err    error
	)
	if bytes.HasPrefix(content, zipMagic) {
		sheets, err = readXLSX(content)
	} else {
		sheets, err = readXLS(content)
	}
	if err != nil {
		return "", err
	}
	return renderWorkbook(sheets)
}

// renderWorkbook emits "Sheet: <name>\n<csv>\n\n" for every sheet.
func renderWorkbook(sheets []Sheet) (string, error) {
	var sb strings.Builder
	for _, s := range sheets {
		body, err := sheetCSV(s.Rows)
		if err != nil {
			return "", fmt.Errorf("sheet %q: %w", s.Name, err)
		}
		sb.WriteString("Sheet: ")
		sb.WriteString(s.Name)
		sb.WriteString("\n")
		sb.WriteString(body)
		sb.WriteString("\n\n")
	}
	return sb.String(), nil
}

// sheetCSV writes rows as comma-separated lines without a trailing newline.
// Short rows are padded to the widest row so every line has the same number
// of fields.
func sheetCSV(rows [][]string) (string, error) {
	width := 0
	for _, row := range rows {
		if len(row) > width {
			width = len(row)
		}
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	for _, row := range rows {
		record := make([]string, width)
		copy(record, row)
		if err := w.Write(record); err != nil {
			return "", err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}
