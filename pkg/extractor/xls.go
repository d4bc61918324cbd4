// Copyright Doodle Gateway Authors
// SPDX-License-Identifier: Apache-2.0

package extractor

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/extrame/xls"
)

// readXLS loads a legacy BIFF workbook.
func readXLS(content []byte) ([]Sheet, error) {
	wb, err := xls.OpenReader(bytes.NewReader(content), "utf-8")
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	if wb == nil {
		return nil, errors.New("open workbook: no Workbook stream")
	}

	sheets := make([]Sheet, 0, wb.NumSheets())
	for i := 0; i < wb.NumSheets(); i++ {
		ws := wb.GetSheet(i)
		if ws == nil {
			continue
		}
		sheet := Sheet{Name: ws.Name}
		for r := 0; r <= int(ws.MaxRow); r++ {
			sheet.Rows = append(sheet.Rows, xlsRow(rowAt(ws, r)))
		}
		sheets = append(sheets, sheet)
	}
	return sheets, nil
}

// rowAt returns row r, or nil when the sheet stores no record for it.
// WorkSheet.Row dereferences missing rows.
func rowAt(ws *xls.WorkSheet, r int) (row *xls.Row) {
	defer func() {
		if recover() != nil {
			row = nil
		}
	}()
	return ws.Row(r)
}

func xlsRow(row *xls.Row) []string {
	if row == nil {
		return nil
	}
	cells := make([]string, 0, row.LastCol())
	for c := 0; c < row.LastCol(); c++ {
		cells = append(cells, row.Col(c))
	}
	return cells
}
