// Copyright Doodle Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package extractor

import "testing"

func TestFormatFromFilename(t *testing.T) {
	tests := []struct {
		filename string
		wantExt  string
		want     Format
	}{
		{"notes.txt", "txt", FormatText},
		{"REPORT.PDF", "pdf", FormatPDF},
		{"report.pdf", "pdf", FormatPDF},
		{"my.thesis.final.docx", "docx", FormatWord},
		{".md", "md", FormatText},
		{"budget.XLSX", "xlsx", FormatSpreadsheet},
		{"deck.pptx", "pptx", FormatPresentation},
		{"noextension", "", FormatUnknown},
		{"trailingdot.", "", FormatUnknown},
		{"weird.zzz", "zzz", FormatUnknown},
		{"txt", "", FormatUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			if got := Extension(tt.filename); got != tt.wantExt {
				t.Errorf("Extension(%q) = %q, want %q", tt.filename, got, tt.wantExt)
			}
			if got := FormatFromFilename(tt.filename); got != tt.want {
				t.Errorf("FormatFromFilename(%q) = %v, want %v", tt.filename, got, tt.want)
			}
		})
	}
}

func TestFormatString(t *testing.T) {
	if FormatSpreadsheet.String() != "spreadsheet" {
		t.Errorf("got %q", FormatSpreadsheet.String())
	}
	if Format(99).String() != "unknown" {
		t.Errorf("got %q", Format(99).String())
	}
}
