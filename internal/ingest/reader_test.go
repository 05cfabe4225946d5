package ingest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	apperrors "subtepulse/internal/errors"
)

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

func TestReadTableCSV(t *testing.T) {
	path := writeFile(t, "data.csv", []byte("periodo,linea,pasajeros\n2024-01,A,100\n2024-01,B,200\n"))

	table, err := ReadTable(path)
	require.NoError(t, err)

	assert.Equal(t, "data.csv", table.File)
	assert.Equal(t, []string{"periodo", "linea", "pasajeros"}, table.Headers)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, []string{"2024-01", "A", "100"}, table.Rows[0])
}

func TestReadTableCSVStripsBOM(t *testing.T) {
	data := append([]byte{0xEF, 0xBB, 0xBF}, []byte("linea,pax\nA,1\n")...)
	path := writeFile(t, "bom.csv", data)

	table, err := ReadTable(path)
	require.NoError(t, err)
	assert.Equal(t, "linea", table.Headers[0])
}

func TestReadTableCSVLatin1Fallback(t *testing.T) {
	// "Línea" and "Estación" encoded as ISO 8859-1.
	data := []byte("L\xednea,Estaci\xf3n\nA,Congreso\n")
	path := writeFile(t, "latin1.csv", data)

	table, err := ReadTable(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"Línea", "Estación"}, table.Headers)
}

func TestReadTableCSVRaggedRows(t *testing.T) {
	path := writeFile(t, "ragged.csv", []byte("a,b,c\n1,2\n1,2,3,4\n"))

	table, err := ReadTable(path)
	require.NoError(t, err)
	assert.Len(t, table.Rows, 2)
}

func TestReadTableEmptyCSV(t *testing.T) {
	path := writeFile(t, "empty.csv", nil)

	_, err := ReadTable(path)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeParsing))
}

func TestReadTableUnsupportedExtension(t *testing.T) {
	path := writeFile(t, "data.parquet", []byte("x"))

	_, err := ReadTable(path)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeParsing))
}

func TestReadTableExcel(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "molinetes_2024_01.xlsx")

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetCellValue(sheet, "A1", "linea"))
	require.NoError(t, f.SetCellValue(sheet, "B1", "pasajeros"))
	require.NoError(t, f.SetCellValue(sheet, "A2", "A"))
	require.NoError(t, f.SetCellValue(sheet, "B2", 1234))
	require.NoError(t, f.SaveAs(path))

	table, err := ReadTable(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"linea", "pasajeros"}, table.Headers)
	require.Len(t, table.Rows, 1)
	assert.Equal(t, "A", table.Rows[0][0])
}

func TestTableRawRecords(t *testing.T) {
	table := &Table{
		File:    "f.csv",
		Headers: []string{"a", "b"},
		Rows:    [][]string{{"1", "2"}, {"3"}},
	}

	records := table.RawRecords()
	require.Len(t, records, 2)
	assert.Equal(t, "f.csv", records[0].SourceFile)
	assert.Equal(t, map[string]string{"a": "1", "b": "2"}, records[0].Values)
	// Short rows only fill the columns they have.
	assert.Equal(t, map[string]string{"a": "3"}, records[1].Values)
}
