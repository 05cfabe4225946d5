package domain

import "time"

// FileReport summarizes what the cleaner did with one source file.
type FileReport struct {
	File        string `json:"file"`
	RowsIn      int    `json:"rows_in"`
	RowsDropped int    `json:"rows_dropped"`
	RowsDeduped int    `json:"rows_deduped"`
	RowsOut     int    `json:"rows_out"`
	Skipped     bool   `json:"skipped"`
	SkipReason  string `json:"skip_reason,omitempty"`
}

// Conflict records a (period, line, station) key that appeared in more than
// one file with differing values. The first-seen value is kept; the rest
// are flagged rather than silently overwritten.
type Conflict struct {
	Key            RecordKey `json:"-"`
	Period         string    `json:"period"`
	Line           LineCode  `json:"line"`
	Station        string    `json:"station"`
	KeptFile       string    `json:"kept_file"`
	KeptCount      int64     `json:"kept_count"`
	DiscardedFile  string    `json:"discarded_file"`
	DiscardedCount int64     `json:"discarded_count"`
}

// RunSummary is the observability record of one pipeline run. Every
// per-row and per-file problem is recovered locally and counted here.
type RunSummary struct {
	RunID        string       `json:"run_id"`
	StartedAt    time.Time    `json:"started_at"`
	FinishedAt   time.Time    `json:"finished_at"`
	Files        []FileReport `json:"files"`
	Conflicts    []Conflict   `json:"conflicts,omitempty"`
	Warnings     []string     `json:"warnings,omitempty"`
	RecordCount  int          `json:"record_count"`
	Estimates    int          `json:"estimates"`
	Provenance   Provenance   `json:"provenance"`
	DatasetPath  string       `json:"dataset_path,omitempty"`
	HeadwayPath  string       `json:"headway_path,omitempty"`
	SummaryPath  string       `json:"summary_path,omitempty"`
	ForecastPath string       `json:"forecast_path,omitempty"`
}

// TotalDropped sums dropped rows across all file reports.
func (s RunSummary) TotalDropped() int {
	total := 0
	for _, f := range s.Files {
		total += f.RowsDropped
	}
	return total
}

// SkippedFiles returns the names of files excluded from consolidation.
func (s RunSummary) SkippedFiles() []string {
	var out []string
	for _, f := range s.Files {
		if f.Skipped {
			out = append(out, f.File)
		}
	}
	return out
}
