// Package headway derives the average train interval per (period, line)
// from dispatch counts, with a documented fallback chain between the
// monthly and daily source signals and a configured default when both are
// absent.
package headway

import (
	"fmt"
	"log/slog"
	"math"
	"sort"

	"subtepulse/pkg/contracts/domain"
)

// Config holds the estimator tunables.
type Config struct {
	// OperatingMinutesPerDay is the assumed daily service window.
	OperatingMinutesPerDay int

	// DefaultHeadwayMin is emitted when neither signal is usable.
	DefaultHeadwayMin float64

	// SignalTolerance is the relative disagreement between the monthly and
	// daily signals above which a conflict warning is surfaced.
	SignalTolerance float64
}

// Estimator computes headway estimates. Stateless apart from configuration;
// recomputation over the same inputs is idempotent.
type Estimator struct {
	logger *slog.Logger
	cfg    Config
}

// NewEstimator creates an estimator.
func NewEstimator(logger *slog.Logger, cfg Config) *Estimator {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.OperatingMinutesPerDay <= 0 {
		cfg.OperatingMinutesPerDay = 1080
	}
	if cfg.DefaultHeadwayMin <= 0 {
		cfg.DefaultHeadwayMin = 4.5
	}
	return &Estimator{logger: logger, cfg: cfg}
}

// Estimate produces exactly one estimate per (period, line) key present in
// either signal or in the required key set, evaluated in fallback order:
//
//  1. monthly dispatch count > 0  -> DERIVED_MONTHLY
//  2. daily counts summed over the month > 0 -> DERIVED_DAILY_AGGREGATED
//  3. configured default -> DEFAULT
//
// A non-positive count is a fallback trigger, not a division: the estimator
// never emits Inf or NaN. When both signals are usable but disagree beyond
// the tolerance, the monthly value wins and a warning is returned.
func (e *Estimator) Estimate(monthly []domain.DispatchMonthly, daily []domain.DispatchDaily, required []domain.PeriodLine) ([]domain.HeadwayEstimate, []string) {
	monthlyTrains := make(map[domain.PeriodLine]int64)
	for _, m := range monthly {
		monthlyTrains[domain.PeriodLine{Period: m.Period, Line: m.Line}] += m.DispatchedTrains
	}

	dailyTrains := make(map[domain.PeriodLine]int64)
	for _, d := range daily {
		dailyTrains[domain.PeriodLine{Period: d.Period(), Line: d.Line}] += d.Trains
	}

	keys := make(map[domain.PeriodLine]struct{}, len(monthlyTrains)+len(dailyTrains))
	for k := range monthlyTrains {
		keys[k] = struct{}{}
	}
	for k := range dailyTrains {
		keys[k] = struct{}{}
	}
	for _, k := range required {
		keys[k] = struct{}{}
	}

	estimates := make([]domain.HeadwayEstimate, 0, len(keys))
	var warnings []string

	for k := range keys {
		est := domain.HeadwayEstimate{Period: k.Period, Line: k.Line}

		fromMonthly, okMonthly := e.headwayFor(k.Period, monthlyTrains[k])
		fromDaily, okDaily := e.headwayFor(k.Period, dailyTrains[k])

		switch {
		case okMonthly:
			est.AvgHeadwayMin = fromMonthly
			est.Source = domain.HeadwayDerivedMonthly
			if okDaily && e.disagree(fromMonthly, fromDaily) {
				warnings = append(warnings, fmt.Sprintf(
					"conflicting dispatch signals for (%s, %s): monthly %.2f min vs daily %.2f min, keeping monthly",
					k.Period, k.Line, fromMonthly, fromDaily))
			}
		case okDaily:
			est.AvgHeadwayMin = fromDaily
			est.Source = domain.HeadwayDerivedDailyAggregated
		default:
			est.AvgHeadwayMin = e.cfg.DefaultHeadwayMin
			est.Source = domain.HeadwayDefault
		}

		estimates = append(estimates, est)
	}

	sort.Slice(estimates, func(i, j int) bool {
		if c := estimates[i].Period.Compare(estimates[j].Period); c != 0 {
			return c < 0
		}
		return estimates[i].Line < estimates[j].Line
	})

	e.logger.Info("headway estimation complete",
		slog.Int("estimates", len(estimates)),
		slog.Int("signal_conflicts", len(warnings)))

	return estimates, warnings
}

// headwayFor applies the formula; a non-positive count is unusable.
func (e *Estimator) headwayFor(period domain.Period, trains int64) (float64, bool) {
	if trains <= 0 {
		return 0, false
	}
	operating := float64(e.cfg.OperatingMinutesPerDay) * float64(period.DaysInMonth())
	return operating / float64(trains), true
}

func (e *Estimator) disagree(a, b float64) bool {
	if e.cfg.SignalTolerance <= 0 {
		return false
	}
	return math.Abs(a-b)/a > e.cfg.SignalTolerance
}

// CheckRanges returns a warning for every estimate outside the plausibility
// band. Default-sourced estimates are skipped: they are configured, not
// derived.
func CheckRanges(estimates []domain.HeadwayEstimate, min, max float64) []string {
	var warnings []string
	for _, est := range estimates {
		if est.Source == domain.HeadwayDefault {
			continue
		}
		if est.AvgHeadwayMin < min || est.AvgHeadwayMin > max {
			warnings = append(warnings, fmt.Sprintf(
				"headway %.2f min for (%s, %s) outside plausible range [%.1f, %.1f]",
				est.AvgHeadwayMin, est.Period, est.Line, min, max))
		}
	}
	return warnings
}
