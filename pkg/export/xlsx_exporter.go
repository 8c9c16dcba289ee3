package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

const xlsxSheet = "Roster"

// XLSXExporter renders tables as a single-sheet Excel workbook.
// Title and subtitle occupy the first two rows, headers start on row 4.
type XLSXExporter struct{}

// NewXLSXExporter builds an Excel exporter.
func NewXLSXExporter() *XLSXExporter {
	return &XLSXExporter{}
}

// ContentType returns the MIME type of the rendered document.
func (e *XLSXExporter) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

// Extension returns the file extension without the dot.
func (e *XLSXExporter) Extension() string {
	return "xlsx"
}

// Render produces the workbook bytes for the table.
func (e *XLSXExporter) Render(table Table) ([]byte, error) {
	if err := table.validate(); err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), xlsxSheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	row := 1
	for _, line := range []string{table.Title, table.Subtitle} {
		if line == "" {
			continue
		}
		if err := f.SetCellValue(xlsxSheet, cellName(1, row), line); err != nil {
			return nil, fmt.Errorf("write title: %w", err)
		}
		row++
	}
	if row > 1 {
		row++
	}

	if err := writeXLSXRow(f, row, table.Headers); err != nil {
		return nil, fmt.Errorf("write headers: %w", err)
	}
	for i, cells := range table.Rows {
		if err := writeXLSXRow(f, row+1+i, cells); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("encode workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeXLSXRow(f *excelize.File, row int, cells []string) error {
	for col, value := range cells {
		if err := f.SetCellValue(xlsxSheet, cellName(col+1, row), value); err != nil {
			return err
		}
	}
	return nil
}

func cellName(col, row int) string {
	name, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return fmt.Sprintf("A%d", row)
	}
	return name
}
