package ingest

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	apperrors "subtepulse/internal/errors"
	"subtepulse/pkg/contracts/domain"
)

// Table is one raw file read into memory: a header row plus data rows,
// untyped.
type Table struct {
	File    string
	Headers []string
	Rows    [][]string
}

// RawRecords converts the table rows into keyed raw records.
func (t *Table) RawRecords() []domain.RawRecord {
	records := make([]domain.RawRecord, 0, len(t.Rows))
	for _, row := range t.Rows {
		values := make(map[string]string, len(t.Headers))
		for i, h := range t.Headers {
			if i < len(row) {
				values[h] = row[i]
			}
		}
		records = append(records, domain.RawRecord{
			SourceFile: t.File,
			Values:     values,
		})
	}
	return records
}

// ReadTable reads a delimited or Excel file into a Table.
func ReadTable(path string) (*Table, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return readCSV(path)
	case ".xlsx":
		return readExcel(path)
	default:
		return nil, apperrors.NewParsingError(
			fmt.Sprintf("unsupported file type: %s", filepath.Base(path)), nil)
	}
}

// readCSV reads a CSV file, falling back to Latin-1 when the bytes are not
// valid UTF-8 (older municipal exports use it).
func readCSV(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.NewParsingError("failed to read file", err).
			WithContext("path", path)
	}

	if !utf8.Valid(data) {
		data = decodeLatin1(data)
	}
	// Strip a UTF-8 BOM if present.
	data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, apperrors.NewParsingError("failed to parse CSV", err).
			WithContext("path", path)
	}
	if len(rows) == 0 {
		return nil, apperrors.NewParsingError("file is empty", nil).
			WithContext("path", path)
	}

	return &Table{
		File:    filepath.Base(path),
		Headers: rows[0],
		Rows:    rows[1:],
	}, nil
}

// readExcel reads the first sheet containing tabular data.
func readExcel(path string) (*Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, apperrors.NewParsingError("failed to open Excel file", err).
			WithContext("path", path)
	}
	defer f.Close()

	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		if err != nil || len(rows) < 2 {
			continue
		}
		return &Table{
			File:    filepath.Base(path),
			Headers: rows[0],
			Rows:    rows[1:],
		}, nil
	}

	return nil, apperrors.NewParsingError("no data sheet found in Excel file", nil).
		WithContext("path", path)
}

// decodeLatin1 reinterprets the bytes as ISO 8859-1.
func decodeLatin1(data []byte) []byte {
	buf := make([]byte, 0, len(data)*2)
	for _, b := range data {
		buf = utf8.AppendRune(buf, rune(b))
	}
	return buf
}
