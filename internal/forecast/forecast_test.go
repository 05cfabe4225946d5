package forecast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"subtepulse/pkg/contracts/domain"
)

func monthlySeries(line domain.LineCode, start string, totals []int64) []domain.CanonicalRecord {
	period := domain.MustParsePeriod(start)
	var records []domain.CanonicalRecord
	for _, total := range totals {
		records = append(records, domain.CanonicalRecord{
			Period:         period,
			Line:           line,
			Station:        "Central",
			PassengerCount: total,
			Provenance:     domain.ProvenanceReal,
		})
		period = period.Next()
	}
	return records
}

func TestForecastLinearTrend(t *testing.T) {
	// Six exactly linear points: the fit has zero residual, so the band
	// collapses onto the projection.
	ds := domain.Dataset{Records: monthlySeries(domain.LineA, "2024-01",
		[]int64{100, 110, 120, 130, 140, 150})}

	points := Forecast(ds, Config{Horizon: 2, MinPoints: 6})
	require.Len(t, points, 2)

	assert.Equal(t, domain.MustParsePeriod("2024-07"), points[0].Period)
	assert.InDelta(t, 160, points[0].Yhat, 1e-9)
	assert.InDelta(t, 160, points[0].Lo, 1e-9)
	assert.InDelta(t, 160, points[0].Hi, 1e-9)
	assert.Equal(t, domain.MustParsePeriod("2024-08"), points[1].Period)
	assert.InDelta(t, 170, points[1].Yhat, 1e-9)
}

func TestForecastShortHistoryCarriesFlat(t *testing.T) {
	ds := domain.Dataset{Records: monthlySeries(domain.LineB, "2024-01",
		[]int64{100, 200, 300})}

	points := Forecast(ds, Config{Horizon: 3, MinPoints: 6})
	require.Len(t, points, 3)

	for i, p := range points {
		assert.InDelta(t, 300, p.Yhat, 1e-9, "point %d", i)
		assert.Equal(t, p.Yhat, p.Lo)
		assert.Equal(t, p.Yhat, p.Hi)
	}
	assert.Equal(t, domain.MustParsePeriod("2024-04"), points[0].Period)
}

func TestForecastNoisySeriesHasBand(t *testing.T) {
	ds := domain.Dataset{Records: monthlySeries(domain.LineC, "2024-01",
		[]int64{100, 130, 90, 140, 110, 150})}

	points := Forecast(ds, Config{Horizon: 1, MinPoints: 6})
	require.Len(t, points, 1)
	assert.Less(t, points[0].Lo, points[0].Yhat)
	assert.Greater(t, points[0].Hi, points[0].Yhat)
}

func TestForecastMultipleLinesSorted(t *testing.T) {
	records := append(
		monthlySeries(domain.LineB, "2024-01", []int64{10, 20}),
		monthlySeries(domain.LineA, "2024-01", []int64{30, 40})...)
	ds := domain.Dataset{Records: records}

	points := Forecast(ds, Config{Horizon: 1, MinPoints: 6})
	require.Len(t, points, 2)
	assert.Equal(t, domain.LineA, points[0].Line)
	assert.Equal(t, domain.LineB, points[1].Line)
}

func TestForecastZeroHorizon(t *testing.T) {
	ds := domain.Dataset{Records: monthlySeries(domain.LineA, "2024-01", []int64{10})}
	assert.Nil(t, Forecast(ds, Config{Horizon: 0}))
}

func TestLeastSquares(t *testing.T) {
	slope, intercept := leastSquares([]float64{1, 3, 5, 7})
	assert.InDelta(t, 2.0, slope, 1e-9)
	assert.InDelta(t, 1.0, intercept, 1e-9)

	// Constant series has zero slope.
	slope, intercept = leastSquares([]float64{4, 4, 4})
	assert.InDelta(t, 0.0, slope, 1e-9)
	assert.InDelta(t, 4.0, intercept, 1e-9)
}
