package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleTable() Table {
	return Table{
		Title:    "Roster",
		Subtitle: "Math > Algebra > Fractions",
		Headers:  []string{"Name", "Email", "Attended"},
		Rows: [][]string{
			{"Ann", "ann@example.com", "yes"},
			{"Bob", "bob@example.com", "no"},
		},
	}
}

func TestCSVExporterRender(t *testing.T) {
	out, err := NewCSVExporter().Render(sampleTable())
	require.NoError(t, err)
	assert.Equal(t, "Name,Email,Attended\nAnn,ann@example.com,yes\nBob,bob@example.com,no\n", string(out))
}

func TestRenderRejectsRaggedRows(t *testing.T) {
	table := sampleTable()
	table.Rows = append(table.Rows, []string{"only one"})
	_, err := NewCSVExporter().Render(table)
	assert.Error(t, err)
	_, err = NewPDFExporter().Render(table)
	assert.Error(t, err)
}

func TestPDFExporterRenderPaginates(t *testing.T) {
	table := sampleTable()
	for i := 0; i < 80; i++ {
		table.Rows = append(table.Rows, []string{"Learner", "learner@example.com", "no"})
	}
	out, err := NewPDFExporter().Render(table)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestColumnWidthsFillPage(t *testing.T) {
	widths := columnWidths(sampleTable())
	var total float64
	for _, w := range widths {
		total += w
	}
	assert.InDelta(t, pageWidth, total, 0.001)
	assert.Greater(t, widths[1], widths[2])
}

func TestXLSXExporterRender(t *testing.T) {
	out, err := NewXLSXExporter().Render(sampleTable())
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer f.Close()

	title, err := f.GetCellValue(xlsxSheet, "A1")
	require.NoError(t, err)
	assert.Equal(t, "Roster", title)

	header, err := f.GetCellValue(xlsxSheet, "B4")
	require.NoError(t, err)
	assert.Equal(t, "Email", header)

	last, err := f.GetCellValue(xlsxSheet, "C6")
	require.NoError(t, err)
	assert.Equal(t, "no", last)
}
