// Package ingest discovers raw municipal extracts and reads them into
// untyped tables for the cleaning pipeline.
package ingest

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"subtepulse/pkg/contracts/domain"
)

// FileKind classifies a raw file by the signal it carries.
type FileKind string

const (
	// KindRidership is a turnstile (molinetes) extract.
	KindRidership FileKind = "ridership"
	// KindDispatchMonthly is a monthly train-dispatch count extract.
	KindDispatchMonthly FileKind = "dispatch_monthly"
	// KindDispatchDaily is a daily train-dispatch log.
	KindDispatchDaily FileKind = "dispatch_daily"
)

// RawFile is one discovered source file.
type RawFile struct {
	Path   string
	Name   string
	Kind   FileKind
	Period domain.Period // zero when the filename carries no period
}

// Discovery finds raw data files under a base directory.
type Discovery struct {
	logger  *slog.Logger
	baseDir string
}

// NewDiscovery creates a discovery instance rooted at baseDir.
func NewDiscovery(logger *slog.Logger, baseDir string) *Discovery {
	if logger == nil {
		logger = slog.Default()
	}
	return &Discovery{logger: logger, baseDir: baseDir}
}

// FindRawFiles lists every .csv and .xlsx file in the raw directory,
// classified by naming convention and sorted by filename. The lexical sort
// pins the consolidation tie-break: discovery order never changes results.
func (d *Discovery) FindRawFiles() ([]RawFile, error) {
	entries, err := os.ReadDir(d.baseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read raw directory %s: %w", d.baseDir, err)
	}

	var files []RawFile
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		ext := strings.ToLower(filepath.Ext(name))
		if ext != ".csv" && ext != ".xlsx" {
			continue
		}
		files = append(files, RawFile{
			Path:   filepath.Join(d.baseDir, name),
			Name:   name,
			Kind:   Classify(name),
			Period: PeriodFromFilename(name),
		})
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].Name < files[j].Name
	})

	d.logger.Info("discovered raw files",
		slog.String("dir", d.baseDir),
		slog.Int("count", len(files)))

	return files, nil
}

// Classify infers the file kind from its name: frequency extracts carry the
// monthly dispatch signal, formaciones logs the daily one, everything else
// is treated as turnstile ridership.
func Classify(name string) FileKind {
	lower := strings.ToLower(name)
	switch {
	case strings.Contains(lower, "frec"), strings.Contains(lower, "freq"):
		return KindDispatchMonthly
	case strings.Contains(lower, "formacion"), strings.Contains(lower, "dispatch"):
		return KindDispatchDaily
	default:
		return KindRidership
	}
}

// periodPattern matches an embedded year-month such as 2024_03 or 2024-03.
var periodPattern = regexp.MustCompile(`(20\d{2})[-_](0[1-9]|1[0-2])`)

// PeriodFromFilename extracts the period embedded in the filename, or the
// zero Period when none is present.
func PeriodFromFilename(name string) domain.Period {
	m := periodPattern.FindStringSubmatch(name)
	if m == nil {
		return domain.Period{}
	}
	year, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	return domain.Period{Year: year, Month: time.Month(month)}
}
