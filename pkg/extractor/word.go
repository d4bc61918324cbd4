// Copyright Doodle Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package extractor

import (
	"bytes"
	"fmt"
	"strings"

	"code.sajari.com/docconv/v2"
)

// extractWord returns the raw text stream of a Word document with all
// formatting discarded. Paragraphs are separated by a blank line and the
// text ends with one. Only the OOXML container is understood; a legacy
// binary .doc fails to open and surfaces as a read error.
func extractWord(content []byte) (string, error) {
	text, _, err := docconv.ConvertDocx(bytes.NewReader(content))
	if err != nil {
		return "", fmt.Errorf("read Word document: %w", err)
	}
	return trimParagraphs(text), nil
}

// trimParagraphs drops the blank lines docconv puts around the header,
// body and footer sections.
func trimParagraphs(text string) string {
	text = strings.Trim(text, "\r\n")
	if text == "" {
		return ""
	}
	return text + "\n\n"
}
