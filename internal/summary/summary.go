// Package summary pre-aggregates the statistics handed to the narrative
// collaborator, so it never re-derives metrics from raw rows and cannot
// drift from the pipeline's numbers.
package summary

import (
	"sort"

	"subtepulse/pkg/contracts/domain"
)

// LineTotal aggregates one line over the whole dataset window.
type LineTotal struct {
	Line          domain.LineCode `json:"line"`
	Passengers    int64           `json:"passengers"`
	AvgHeadwayMin float64         `json:"avg_headway_min,omitempty"`

	// DataDerived is false when any contributing headway estimate was the
	// configured default rather than derived from dispatch counts.
	DataDerived bool `json:"data_derived"`
}

// StationTotal aggregates one station.
type StationTotal struct {
	Station    string          `json:"station"`
	Line       domain.LineCode `json:"line"`
	Passengers int64           `json:"passengers"`
}

// Summary is the pre-aggregated statistics snapshot.
type Summary struct {
	Provenance      domain.Provenance `json:"provenance"`
	PeriodStart     string            `json:"period_start"`
	PeriodEnd       string            `json:"period_end"`
	TotalPassengers int64             `json:"total_passengers"`
	ByLine          []LineTotal       `json:"by_line"`
	TopStations     []StationTotal    `json:"top_stations"`
}

// Build aggregates the dataset and headway estimates. Output ordering is
// deterministic: lines alphabetical, stations by descending passengers with
// name as tie-break.
func Build(ds domain.Dataset, estimates []domain.HeadwayEstimate, topN int) Summary {
	s := Summary{Provenance: ds.Provenance}
	if topN <= 0 {
		topN = 10
	}

	paxByLine := make(map[domain.LineCode]int64)
	paxByStation := make(map[StationTotal]int64)

	for i, rec := range ds.Records {
		if i == 0 || rec.Period.Before(domain.MustParsePeriod(s.PeriodStart)) {
			s.PeriodStart = rec.Period.String()
		}
		if i == 0 || domain.MustParsePeriod(s.PeriodEnd).Before(rec.Period) {
			s.PeriodEnd = rec.Period.String()
		}
		s.TotalPassengers += rec.PassengerCount
		paxByLine[rec.Line] += rec.PassengerCount
		key := StationTotal{Station: rec.Station, Line: rec.Line}
		paxByStation[key] += rec.PassengerCount
	}

	headwaySum := make(map[domain.LineCode]float64)
	headwayCount := make(map[domain.LineCode]int)
	defaulted := make(map[domain.LineCode]bool)
	for _, est := range estimates {
		headwaySum[est.Line] += est.AvgHeadwayMin
		headwayCount[est.Line]++
		if est.Source == domain.HeadwayDefault {
			defaulted[est.Line] = true
		}
	}

	for line, pax := range paxByLine {
		lt := LineTotal{Line: line, Passengers: pax, DataDerived: true}
		if n := headwayCount[line]; n > 0 {
			lt.AvgHeadwayMin = headwaySum[line] / float64(n)
			lt.DataDerived = !defaulted[line]
		}
		s.ByLine = append(s.ByLine, lt)
	}
	sort.Slice(s.ByLine, func(i, j int) bool {
		return s.ByLine[i].Line < s.ByLine[j].Line
	})

	for key, pax := range paxByStation {
		key.Passengers = pax
		s.TopStations = append(s.TopStations, key)
	}
	sort.Slice(s.TopStations, func(i, j int) bool {
		if s.TopStations[i].Passengers != s.TopStations[j].Passengers {
			return s.TopStations[i].Passengers > s.TopStations[j].Passengers
		}
		return s.TopStations[i].Station < s.TopStations[j].Station
	})
	if len(s.TopStations) > topN {
		s.TopStations = s.TopStations[:topN]
	}

	return s
}
