// Package forecast projects passenger volumes forward with a simple linear
// trend per line. Deliberately modest: a least-squares fit with a residual
// band, enough for the dashboard's outlook panel.
package forecast

import (
	"math"
	"sort"

	"subtepulse/pkg/contracts/domain"
)

// Config holds the forecaster tunables.
type Config struct {
	// Horizon is how many future months to project.
	Horizon int

	// MinPoints is the minimum history length for a trend fit; shorter
	// series carry the last observation forward flat.
	MinPoints int
}

// Point is one projected month for one line, with a 90% band.
type Point struct {
	Line   domain.LineCode `json:"line"`
	Period domain.Period   `json:"period"`
	Yhat   float64         `json:"yhat"`
	Lo     float64         `json:"yhat_low"`
	Hi     float64         `json:"yhat_high"`
}

// Forecast builds monthly passenger totals per line from the dataset and
// projects them Horizon months past the last observed period.
func Forecast(ds domain.Dataset, cfg Config) []Point {
	if cfg.Horizon <= 0 {
		return nil
	}
	if cfg.MinPoints <= 0 {
		cfg.MinPoints = 6
	}

	type series struct {
		periods []domain.Period
		totals  []float64
	}

	totals := make(map[domain.LineCode]map[domain.Period]int64)
	for _, rec := range ds.Records {
		if totals[rec.Line] == nil {
			totals[rec.Line] = make(map[domain.Period]int64)
		}
		totals[rec.Line][rec.Period] += rec.PassengerCount
	}

	lines := make([]domain.LineCode, 0, len(totals))
	for line := range totals {
		lines = append(lines, line)
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i] < lines[j] })

	var out []Point
	for _, line := range lines {
		var s series
		for period := range totals[line] {
			s.periods = append(s.periods, period)
		}
		sort.Slice(s.periods, func(i, j int) bool {
			return s.periods[i].Before(s.periods[j])
		})
		for _, period := range s.periods {
			s.totals = append(s.totals, float64(totals[line][period]))
		}

		out = append(out, project(line, s.periods, s.totals, cfg)...)
	}
	return out
}

// project fits y = a + b*x over the observation index and extends it.
// The band is ±1.64 standard deviations of the fit residuals.
func project(line domain.LineCode, periods []domain.Period, y []float64, cfg Config) []Point {
	n := len(y)
	if n == 0 {
		return nil
	}

	next := periods[n-1].Next()

	if n < cfg.MinPoints {
		// Too little history for a trend; carry the last value flat.
		last := y[n-1]
		points := make([]Point, 0, cfg.Horizon)
		for i := 0; i < cfg.Horizon; i++ {
			points = append(points, Point{Line: line, Period: next, Yhat: last, Lo: last, Hi: last})
			next = next.Next()
		}
		return points
	}

	slope, intercept := leastSquares(y)

	var sumSq float64
	for i, v := range y {
		resid := v - (intercept + slope*float64(i))
		sumSq += resid * resid
	}
	sigma := 0.0
	if n > 1 {
		sigma = math.Sqrt(sumSq / float64(n))
	}

	points := make([]Point, 0, cfg.Horizon)
	for i := 0; i < cfg.Horizon; i++ {
		x := float64(n + i)
		yhat := intercept + slope*x
		points = append(points, Point{
			Line:   line,
			Period: next,
			Yhat:   yhat,
			Lo:     yhat - 1.64*sigma,
			Hi:     yhat + 1.64*sigma,
		})
		next = next.Next()
	}
	return points
}

// leastSquares fits y over x = 0..n-1.
func leastSquares(y []float64) (slope, intercept float64) {
	n := float64(len(y))
	var sumX, sumY, sumXY, sumXX float64
	for i, v := range y {
		x := float64(i)
		sumX += x
		sumY += v
		sumXY += x * v
		sumXX += x * x
	}
	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0, sumY / n
	}
	slope = (n*sumXY - sumX*sumY) / denom
	intercept = (sumY - slope*sumX) / n
	return slope, intercept
}
