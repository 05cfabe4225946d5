package domain

import "time"

// HeadwaySource tags how a headway estimate was obtained so consumers can
// tell data-derived values from configured defaults.
type HeadwaySource string

const (
	// HeadwayDerivedMonthly means the estimate came from a monthly
	// dispatch-count record.
	HeadwayDerivedMonthly HeadwaySource = "DERIVED_MONTHLY"

	// HeadwayDerivedDailyAggregated means daily dispatch records were
	// summed over the month before applying the formula.
	HeadwayDerivedDailyAggregated HeadwaySource = "DERIVED_DAILY_AGGREGATED"

	// HeadwayDefault means neither signal was usable and the configured
	// fallback constant was emitted.
	HeadwayDefault HeadwaySource = "DEFAULT"
)

// HeadwayEstimate is the average interval between train dispatches for one
// line over one period. Computed once per pipeline run and immutable after.
type HeadwayEstimate struct {
	Period        Period        `json:"period"`
	Line          LineCode      `json:"line"`
	AvgHeadwayMin float64       `json:"avg_headway_min"`
	Source        HeadwaySource `json:"source"`
}

// PeriodLine identifies one (period, line) pair, the key headway estimates
// are computed over.
type PeriodLine struct {
	Period Period
	Line   LineCode
}

// DispatchMonthly is one monthly dispatch-count observation, the primary
// signal for headway estimation.
type DispatchMonthly struct {
	Period           Period
	Line             LineCode
	DispatchedTrains int64
}

// DispatchDaily is one daily dispatch-count observation, the secondary
// signal aggregated per month when the monthly signal is missing.
type DispatchDaily struct {
	Date   time.Time
	Line   LineCode
	Trains int64
}

// Period returns the calendar month the daily observation falls in.
func (d DispatchDaily) Period() Period {
	return Period{Year: d.Date.Year(), Month: d.Date.Month()}
}
