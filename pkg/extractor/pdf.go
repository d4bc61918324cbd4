// Copyright Doodle Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package extractor

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// extractPDF reads every page in document order and renders it with
// joinPages. A page that fails to decode fails the whole document.
func extractPDF(content []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("open PDF: %w", err)
	}

	numPages := reader.NumPage()
	pages := make([][]string, 0, numPages)
	for i := 1; i <= numPages; i++ {
		items, err := pageItems(reader.Page(i))
		if err != nil {
			return "", fmt.Errorf("page %d: %w", i, err)
		}
		pages = append(pages, items)
	}

	return joinPages(pages), nil
}

// pageItems returns the text runs of a page, one per visual row. A page
// without a content stream yields no rows but is still a page.
func pageItems(page pdf.Page) ([]string, error) {
	rows, err := page.GetTextByRow()
	if err != nil {
		return nil, err
	}

	items := make([]string, 0, len(rows))
	for _, row := range rows {
		var sb strings.Builder
		for _, t := range row.Content {
			sb.WriteString(t.S)
		}
		items = append(items, sb.String())
	}
	return items, nil
}

// joinPages joins the items of each page with single spaces and terminates
// every page with a newline. Empty pages still contribute their newline.
func joinPages(pages [][]string) string {
	var sb strings.Builder
	for _, items := range pages {
		sb.WriteString(strings.Join(items, " "))
		sb.WriteString("\n")
	}
	return sb.String()
}
