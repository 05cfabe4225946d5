package exporter

import (
	"fmt"

	"subtepulse/pkg/contracts/domain"
)

// DatasetHeaders is the column order of the consolidated dataset export.
var DatasetHeaders = []string{
	"period", "line", "station", "passenger_count", "dispatched_trains", "provenance",
}

// HeadwayHeaders is the column order of the headway-estimates export.
var HeadwayHeaders = []string{"period", "line", "avg_headway_min", "source"}

// WriteDataset writes the consolidated dataset in record order.
func (w *Writer) WriteDataset(name string, ds domain.Dataset) (string, error) {
	records := make([][]string, 0, len(ds.Records))
	for _, rec := range ds.Records {
		trains := ""
		if rec.DispatchedTrains != nil {
			trains = formatInt(*rec.DispatchedTrains)
		}
		records = append(records, []string{
			rec.Period.String(),
			string(rec.Line),
			rec.Station,
			formatInt(rec.PassengerCount),
			trains,
			string(rec.Provenance),
		})
	}
	return w.WriteCSV(name, DatasetHeaders, records)
}

// WriteHeadways writes the headway estimates in their sorted order.
func (w *Writer) WriteHeadways(name string, estimates []domain.HeadwayEstimate) (string, error) {
	records := make([][]string, 0, len(estimates))
	for _, est := range estimates {
		records = append(records, []string{
			est.Period.String(),
			string(est.Line),
			formatFloat(est.AvgHeadwayMin),
			string(est.Source),
		})
	}
	return w.WriteCSV(name, HeadwayHeaders, records)
}

// formatFloat formats a float for CSV output with two decimal places, so
// values like 3.5 always appear as 3.50.
func formatFloat(f float64) string {
	return fmt.Sprintf("%.2f", f)
}

func formatInt(i int64) string {
	return fmt.Sprintf("%d", i)
}
