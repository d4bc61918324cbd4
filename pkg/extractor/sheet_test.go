// Copyright Doodle Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package extractor

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"
)

// buildWorkbook writes an xlsx with the given sheets, in order.
func buildWorkbook(t *testing.T, sheets []Sheet) []byte {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	for i, s := range sheets {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", s.Name); err != nil {
				t.Fatalf("SetSheetName: %v", err)
			}
		} else if _, err := f.NewSheet(s.Name); err != nil {
			t.Fatalf("NewSheet: %v", err)
		}
		for r, row := range s.Rows {
			cell, err := excelize.CoordinatesToCellName(1, r+1)
			if err != nil {
				t.Fatal(err)
			}
			values := make([]interface{}, len(row))
			for c, v := range row {
				values[c] = v
			}
			if err := f.SetSheetRow(s.Name, cell, &values); err != nil {
				t.Fatalf("SetSheetRow: %v", err)
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("WriteToBuffer: %v", err)
	}
	return buf.Bytes()
}

func TestExtractText_BudgetScenario(t *testing.T) {
	content := buildWorkbook(t, []Sheet{
		{Name: "Q1", Rows: [][]string{{"A", "B"}, {"1", "2"}}},
	})

	got, err := ExtractText(content, "budget.xlsx")
	if err != nil {
		t.Fatalf("ExtractText() error = %v", err)
	}
	want := "Sheet: Q1\nA,B\n1,2\n\n"
	if got != want {
		t.Errorf("ExtractText() = %q, want %q", got, want)
	}
}

func TestExtractText_SheetsInWorkbookOrder(t *testing.T) {
	content := buildWorkbook(t, []Sheet{
		{Name: "S1", Rows: [][]string{{"x"}}},
		{Name: "S2", Rows: [][]string{{"y", "z"}}},
	})

	got, err := ExtractText(content, "two.XLSX")
	if err != nil {
		t.Fatalf("ExtractText() error = %v", err)
	}
	want := "Sheet: S1\nx\n\nSheet: S2\ny,z\n\n"
	if got != want {
		t.Errorf("ExtractText() = %q, want %q", got, want)
	}
}

func TestExtractText_OOXMLNamedXLS(t *testing.T) {
	content := buildWorkbook(t, []Sheet{{Name: "Data", Rows: [][]string{{"k", "v"}}}})

	got, err := ExtractText(content, "legacy-name.xls")
	if err != nil {
		t.Fatalf("ExtractText() error = %v", err)
	}
	if got != "Sheet: Data\nk,v\n\n" {
		t.Errorf("got %q", got)
	}
}

func TestExtractText_BinaryXLS(t *testing.T) {
	// Two BIFF8 sheets; A holds a number cell and skips its third row.
	content, err := os.ReadFile(filepath.Join("testdata", "two_sheets.xls"))
	if err != nil {
		t.Fatal(err)
	}

	got, err := ExtractText(content, "grades.xls")
	if err != nil {
		t.Fatalf("ExtractText() error = %v", err)
	}
	want := "Sheet: A\nname,score\nAda,91\n,\nend,\n\nSheet: B\nx\n\n"
	if got != want {
		t.Errorf("ExtractText() = %q, want %q", got, want)
	}
}

func TestExtractText_CorruptSpreadsheet(t *testing.T) {
	for _, name := range []string{"broken.xlsx", "broken.xls"} {
		t.Run(name, func(t *testing.T) {
			_, err := ExtractText([]byte("definitely not a workbook"), name)
			if !errors.Is(err, ErrCorruptOrUnreadable) {
				t.Fatalf("expected ErrCorruptOrUnreadable, got %v", err)
			}
		})
	}
}

func TestRenderWorkbook(t *testing.T) {
	tests := []struct {
		name   string
		sheets []Sheet
		want   string
	}{
		{
			name: "ragged rows padded",
			sheets: []Sheet{
				{Name: "S", Rows: [][]string{{"a", "b", "c"}, {"1"}}},
			},
			want: "Sheet: S\na,b,c\n1,,\n\n",
		},
		{
			name: "fields needing quotes",
			sheets: []Sheet{
				{Name: "Q", Rows: [][]string{{"x,y", `say "hi"`}}},
			},
			want: "Sheet: Q\n\"x,y\",\"say \"\"hi\"\"\"\n\n",
		},
		{
			name:   "empty sheet",
			sheets: []Sheet{{Name: "Blank"}},
			want:   "Sheet: Blank\n\n\n",
		},
		{
			name: "two sheets in given order",
			sheets: []Sheet{
				{Name: "S2", Rows: [][]string{{"b"}}},
				{Name: "S1", Rows: [][]string{{"a"}}},
			},
			want: "Sheet: S2\nb\n\nSheet: S1\na\n\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := renderWorkbook(tt.sheets)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("renderWorkbook() = %q, want %q", got, tt.want)
			}
		})
	}
}
