// Copyright Doodle Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package extractor

import "strings"

// Format is the document family selected for an uploaded file.
type Format int

const (
	FormatUnknown Format = iota
	FormatText
	FormatPDF
	FormatWord
	FormatSpreadsheet
	FormatPresentation
)

// String returns the lowercase name used in API responses.
func (f Format) String() string {
	switch f {
	case FormatText:
		return "text"
	case FormatPDF:
		return "pdf"
	case FormatWord:
		return "word"
	case FormatSpreadsheet:
		return "spreadsheet"
	case FormatPresentation:
		return "presentation"
	default:
		return "unknown"
	}
}

// formatsByExtension is the complete dispatch table. Anything missing here
// is FormatUnknown.
var formatsByExtension = map[string]Format{
	"txt":  FormatText,
	"md":   FormatText,
	"rtf":  FormatText,
	"pdf":  FormatPDF,
	"doc":  FormatWord,
	"docx": FormatWord,
	"xls":  FormatSpreadsheet,
	"xlsx": FormatSpreadsheet,
	"ppt":  FormatPresentation,
	"pptx": FormatPresentation,
}

// Extension returns the lowercased text after the final "." in filename, or
// "" when there is none.
func Extension(filename string) string {
	i := strings.LastIndexByte(filename, '.')
	if i < 0 {
		return ""
	}
	return strings.ToLower(filename[i+1:])
}

// FormatFromFilename picks the format from the filename extension alone.
// File content is never inspected, so a renamed file goes to the wrong
// converter.
func FormatFromFilename(filename string) Format {
	ext := Extension(filename)
	if ext == "" {
		return FormatUnknown
	}
	return formatsByExtension[ext]
}
