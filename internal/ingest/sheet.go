package ingest

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// ReadGrid decodes the first worksheet of a workbook into a grid of raw cell
// values. Dates and amounts come back unformatted, so date cells read as
// spreadsheet serial numbers.
func ReadGrid(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data), excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	return rows, nil
}
