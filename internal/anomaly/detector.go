// Package anomaly flags passenger-count outliers in the consolidated
// dataset with rolling z-scores over each (line, station) series, so a
// sudden spike or drop in a station's monthly totals surfaces as a run
// warning instead of silently skewing summaries and forecasts.
package anomaly

import (
	"log/slog"
	"math"
	"sort"
	"strings"

	"subtepulse/pkg/contracts/domain"
)

// Config holds the detector tunables. Defaults are sized for monthly
// series, which run far shorter than daily ones.
type Config struct {
	// Window is the rolling window length in periods. The current
	// observation is included in its own window.
	Window int

	// ZThreshold is the absolute z-score at or above which an observation
	// is flagged.
	ZThreshold float64

	// MinPeriods is the minimum number of observations in a window before
	// any flagging happens.
	MinPeriods int
}

// Kind labels the direction of a flagged observation.
type Kind string

const (
	KindSpike Kind = "spike"
	KindDrop  Kind = "drop"
)

// Anomaly is one flagged observation.
type Anomaly struct {
	Period         domain.Period
	Line           domain.LineCode
	Station        string
	PassengerCount int64
	ZScore         float64
	Kind           Kind
}

// Detector scans consolidated datasets for outliers. Stateless apart from
// configuration.
type Detector struct {
	logger *slog.Logger
	cfg    Config
}

// NewDetector creates a detector.
func NewDetector(logger *slog.Logger, cfg Config) *Detector {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Window <= 0 {
		cfg.Window = 6
	}
	if cfg.ZThreshold <= 0 {
		cfg.ZThreshold = 2.0
	}
	if cfg.MinPeriods <= 0 {
		cfg.MinPeriods = 4
	}
	return &Detector{logger: logger, cfg: cfg}
}

// Detect walks every (line, station) series in period order and flags
// observations whose rolling z-score clears the threshold. Windows with
// zero variance flag nothing, and series shorter than MinPeriods are
// skipped entirely. Output ordering is (period, line, station) so runs
// stay reproducible.
func (d *Detector) Detect(ds domain.Dataset) []Anomaly {
	type seriesKey struct {
		Line    domain.LineCode
		Station string
	}

	series := make(map[seriesKey][]domain.CanonicalRecord)
	for _, rec := range ds.Records {
		// Station matching is case-insensitive, same as the dedup key.
		k := seriesKey{Line: rec.Line, Station: strings.ToLower(strings.TrimSpace(rec.Station))}
		series[k] = append(series[k], rec)
	}

	var out []Anomaly
	for _, recs := range series {
		sort.Slice(recs, func(i, j int) bool {
			return recs[i].Period.Before(recs[j].Period)
		})

		for i, rec := range recs {
			start := i - d.cfg.Window + 1
			if start < 0 {
				start = 0
			}
			window := recs[start : i+1]
			if len(window) < d.cfg.MinPeriods {
				continue
			}

			mean, std := windowStats(window)
			if std == 0 {
				continue
			}

			z := (float64(rec.PassengerCount) - mean) / std
			if math.Abs(z) < d.cfg.ZThreshold {
				continue
			}

			kind := KindSpike
			if z < 0 {
				kind = KindDrop
			}
			out = append(out, Anomaly{
				Period:         rec.Period,
				Line:           rec.Line,
				Station:        rec.Station,
				PassengerCount: rec.PassengerCount,
				ZScore:         z,
				Kind:           kind,
			})
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Period.Compare(out[j].Period); c != 0 {
			return c < 0
		}
		if out[i].Line != out[j].Line {
			return out[i].Line < out[j].Line
		}
		return out[i].Station < out[j].Station
	})

	if len(out) > 0 {
		d.logger.Warn("passenger count anomalies detected",
			slog.Int("anomalies", len(out)))
	}
	return out
}

// windowStats returns the population mean and standard deviation of the
// window's passenger counts.
func windowStats(window []domain.CanonicalRecord) (mean, std float64) {
	for _, rec := range window {
		mean += float64(rec.PassengerCount)
	}
	mean /= float64(len(window))

	var sumSq float64
	for _, rec := range window {
		dev := float64(rec.PassengerCount) - mean
		sumSq += dev * dev
	}
	return mean, math.Sqrt(sumSq / float64(len(window)))
}
