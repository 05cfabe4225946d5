package exporter

import "subtepulse/internal/forecast"

// ForecastHeaders is the column order of the passenger-forecast export.
var ForecastHeaders = []string{"line", "period", "yhat", "yhat_low", "yhat_high"}

// WriteForecast writes the passenger trend forecast.
func (w *Writer) WriteForecast(name string, points []forecast.Point) (string, error) {
	records := make([][]string, 0, len(points))
	for _, p := range points {
		records = append(records, []string{
			string(p.Line),
			p.Period.String(),
			formatFloat(p.Yhat),
			formatFloat(p.Lo),
			formatFloat(p.Hi),
		})
	}
	return w.WriteCSV(name, ForecastHeaders, records)
}
