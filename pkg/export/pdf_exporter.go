package export

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

const (
	pageWidth  = 190.0
	rowHeight  = 7.0
	pageBottom = 280.0
)

// PDFExporter renders tables into an A4 portrait document.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// ContentType returns the MIME type of the rendered document.
func (e *PDFExporter) ContentType() string {
	return "application/pdf"
}

// Extension returns the file extension without the dot.
func (e *PDFExporter) Extension() string {
	return "pdf"
}

// Render lays out the title block followed by the table. The header row is
// repeated on every page.
func (e *PDFExporter) Render(table Table) ([]byte, error) {
	if err := table.validate(); err != nil {
		return nil, err
	}
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	pdf.SetAutoPageBreak(false, 10)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	if table.Title != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 10, tr(table.Title), "", 1, "C", false, 0, "")
	}
	if table.Subtitle != "" {
		pdf.SetFont("Arial", "", 10)
		pdf.CellFormat(0, 6, tr(table.Subtitle), "", 1, "C", false, 0, "")
	}
	pdf.Ln(4)

	widths := columnWidths(table)
	header := func() {
		pdf.SetFont("Arial", "B", 10)
		pdf.SetFillColor(230, 230, 230)
		for i, h := range table.Headers {
			pdf.CellFormat(widths[i], 8, tr(h), "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Arial", "", 9)
	}
	header()

	for _, row := range table.Rows {
		if pdf.GetY()+rowHeight > pageBottom {
			pdf.AddPage()
			header()
		}
		for i, cell := range row {
			pdf.CellFormat(widths[i], rowHeight, tr(cell), "1", 0, "", false, 0, "")
		}
		pdf.Ln(-1)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// columnWidths splits the page width in proportion to the longest cell of each column.
func columnWidths(table Table) []float64 {
	weights := make([]float64, len(table.Headers))
	for i, h := range table.Headers {
		weights[i] = float64(len(h))
	}
	for _, row := range table.Rows {
		for i, cell := range row {
			if l := float64(len(cell)); l > weights[i] {
				weights[i] = l
			}
		}
	}
	var total float64
	for i := range weights {
		if weights[i] < 4 {
			weights[i] = 4
		}
		total += weights[i]
	}
	widths := make([]float64, len(weights))
	for i, w := range weights {
		widths[i] = pageWidth * w / total
	}
	return widths
}
