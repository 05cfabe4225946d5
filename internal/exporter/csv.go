// Package exporter writes the pipeline outputs to the processed-data
// directory in stable delimited and JSON formats.
package exporter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	apperrors "subtepulse/internal/errors"
)

// Writer writes output files under the processed-data directory.
type Writer struct {
	logger *slog.Logger
	dir    string
}

// NewWriter creates a writer rooted at the processed-data directory.
func NewWriter(logger *slog.Logger, dir string) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{logger: logger, dir: dir}
}

// WriteCSV writes a CSV file with a UTF-8 BOM so Excel opens it correctly.
// Returns the full output path.
func (w *Writer) WriteCSV(name string, headers []string, records [][]string) (string, error) {
	fullPath := filepath.Join(w.dir, name)

	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return "", apperrors.NewStorageError("failed to create output directory", err)
	}

	file, err := os.Create(fullPath)
	if err != nil {
		return "", apperrors.NewStorageError("failed to create output file", err).
			WithContext("path", fullPath)
	}
	defer file.Close()

	if _, err := file.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
		return "", apperrors.NewStorageError("failed to write BOM", err)
	}

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write(headers); err != nil {
		return "", apperrors.NewStorageError("failed to write CSV header", err)
	}
	for i, record := range records {
		if err := writer.Write(record); err != nil {
			return "", apperrors.NewStorageError(fmt.Sprintf("failed to write record %d", i), err)
		}
	}
	writer.Flush()

	w.logger.Info("wrote CSV file",
		slog.String("path", fullPath),
		slog.Int("records", len(records)))

	return fullPath, writer.Error()
}

// WriteJSON writes an indented JSON file. Returns the full output path.
func (w *Writer) WriteJSON(name string, v interface{}) (string, error) {
	fullPath := filepath.Join(w.dir, name)

	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return "", apperrors.NewStorageError("failed to create output directory", err)
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", apperrors.NewStorageError("failed to marshal JSON", err)
	}
	if err := os.WriteFile(fullPath, data, 0644); err != nil {
		return "", apperrors.NewStorageError("failed to write JSON file", err).
			WithContext("path", fullPath)
	}

	w.logger.Info("wrote JSON file", slog.String("path", fullPath))
	return fullPath, nil
}
