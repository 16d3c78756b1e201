package export

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleDataset() Dataset {
	return Dataset{
		Title:   "Weekly grid 2024.1",
		Headers: []string{"Weekday", "Start", "End"},
		Rows: []map[string]string{
			{"Weekday": "MON", "Start": "09:00", "End": "10:30"},
			{"Weekday": "TUE", "Start": "13:00", "End": "14:00"},
		},
	}
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, f)

	f, err = ParseFormat(" XLSX ")
	require.NoError(t, err)
	assert.Equal(t, FormatXLSX, f)

	_, err = ParseFormat("docx")
	assert.Error(t, err)
}

func TestCSVExporterRender(t *testing.T) {
	out, err := NewCSVExporter().Render(sampleDataset())
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Weekday,Start,End", lines[0])
	assert.Equal(t, "MON,09:00,10:30", lines[1])
}

func TestCSVExporterNeutralizesFormulas(t *testing.T) {
	data := Dataset{
		Headers: []string{"Subject", "Room"},
		Rows:    []map[string]string{{"Subject": "=HYPERLINK(\"x\")", "Room": "-1"}},
	}
	out, err := (&CSVExporter{BOM: true}).Render(data)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("\xef\xbb\xbf")))
	assert.Contains(t, string(out), `"'=HYPERLINK(""x"")",'-1`)
}

func TestPDFExporterRender(t *testing.T) {
	out, err := NewPDFExporter().Render(sampleDataset())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestPDFExporterPaginatesLongGrids(t *testing.T) {
	data := Dataset{Title: "Grade semanal", Headers: []string{"Weekday", "Subject"}}
	for i := 0; i < 80; i++ {
		data.Rows = append(data.Rows, map[string]string{"Weekday": "MON", "Subject": fmt.Sprintf("Cálculo %d", i)})
	}
	out, err := NewPDFExporter().Render(data)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
	assert.GreaterOrEqual(t, bytes.Count(out, []byte("/Type /Page\n")), 2)
}

func TestXLSXExporterRender(t *testing.T) {
	out, err := NewXLSXExporter().Render(sampleDataset())
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer f.Close()

	title, err := f.GetCellValue(xlsxSheet, "A1")
	require.NoError(t, err)
	assert.Equal(t, "Weekly grid 2024.1", title)

	header, err := f.GetCellValue(xlsxSheet, "B3")
	require.NoError(t, err)
	assert.Equal(t, "Start", header)

	value, err := f.GetCellValue(xlsxSheet, "C5")
	require.NoError(t, err)
	assert.Equal(t, "14:00", value)
}

func TestRenderersRequireHeaders(t *testing.T) {
	for _, format := range []Format{FormatCSV, FormatPDF, FormatXLSX} {
		renderer, err := ForFormat(format)
		require.NoError(t, err)
		_, err = renderer.Render(Dataset{})
		assert.Error(t, err, string(format))
	}
}
