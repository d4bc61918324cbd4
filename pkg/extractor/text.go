// Copyright Doodle Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package extractor

import (
	"fmt"

	"golang.org/x/text/encoding/unicode"
)

// extractText decodes content as UTF-8. A leading byte order mark is dropped
// and ill-formed sequences become U+FFFD; RTF control words are kept as-is.
func extractText(content []byte) (string, error) {
	out, err := unicode.UTF8BOM.NewDecoder().Bytes(content)
	if err != nil {
		return "", fmt.Errorf("decode utf-8: %w", err)
	}
	return string(out), nil
}
