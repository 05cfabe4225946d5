// Package demo synthesizes a small, internally consistent dataset used when
// no real data survives validation, so downstream consumers always have
// something to render. Synthetic rows are tagged DEMO, never passed off as
// observations.
package demo

import (
	"log/slog"
	"math/rand"

	"subtepulse/pkg/contracts/domain"
)

// Config holds the generator tunables.
type Config struct {
	// Seed drives every random draw; identical seeds yield byte-identical
	// exports.
	Seed int64

	// Range bounds the periods the synthetic dataset covers.
	Range domain.PeriodRange

	// OperatingMinutesPerDay sizes the synthetic dispatch counts so demo
	// headways land in a plausible band.
	OperatingMinutesPerDay int
}

// Generator produces the synthetic fallback dataset.
type Generator struct {
	logger *slog.Logger
	cfg    Config
}

// NewGenerator creates a generator.
func NewGenerator(logger *slog.Logger, cfg Config) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.OperatingMinutesPerDay <= 0 {
		cfg.OperatingMinutesPerDay = 1080
	}
	return &Generator{logger: logger, cfg: cfg}
}

// Baseline demo figures per line: monthly passengers and a target headway.
// Kept deliberately small and stable so the demo dataset reads plausibly.
var demoLines = []struct {
	line       domain.LineCode
	monthlyPax int64
	headwayMin float64
	stations   []string
}{
	{domain.LineA, 120000, 3.5, []string{"Plaza de Mayo", "Peru", "Lima", "Congreso"}},
	{domain.LineB, 95000, 4.0, []string{"L.N. Alem", "Carlos Pellegrini", "Callao", "Federico Lacroze"}},
	{domain.LineC, 87000, 4.2, []string{"Constitucion", "Avenida de Mayo", "Retiro"}},
	{domain.LineD, 110000, 3.8, []string{"Catedral", "9 de Julio", "Palermo", "Congreso de Tucuman"}},
	{domain.LineE, 76000, 5.0, []string{"Bolivar", "San Jose", "Plaza de los Virreyes"}},
	{domain.LineH, 64000, 4.6, []string{"Facultad de Derecho", "Corrientes", "Hospitales"}},
	{domain.LinePremetro, 21000, 8.0, []string{"Intendente Saguier", "Ana Diaz", "General Savio"}},
}

// Dataset generates the synthetic dataset plus matching monthly dispatch
// counts. Iteration order is fixed (period, line, station) and all draws
// come from the seeded source, so output is fully deterministic.
func (g *Generator) Dataset() (domain.Dataset, []domain.DispatchMonthly) {
	rng := rand.New(rand.NewSource(g.cfg.Seed))

	periods := g.cfg.Range.Periods()
	if len(periods) > 3 {
		// A small demo window is enough for every consumer.
		periods = periods[:3]
	}

	var records []domain.CanonicalRecord
	var dispatch []domain.DispatchMonthly

	for _, period := range periods {
		for _, dl := range demoLines {
			perStation := dl.monthlyPax / int64(len(dl.stations))
			for _, station := range dl.stations {
				// Jitter within ±10% keeps totals close to the baseline.
				jitter := rng.Int63n(perStation/5+1) - perStation/10
				records = append(records, domain.CanonicalRecord{
					Period:         period,
					Line:           dl.line,
					Station:        station,
					PassengerCount: perStation + jitter,
					Provenance:     domain.ProvenanceDemo,
					SourceFile:     "demo",
				})
			}

			trains := int64(float64(g.cfg.OperatingMinutesPerDay) * float64(period.DaysInMonth()) / dl.headwayMin)
			dispatch = append(dispatch, domain.DispatchMonthly{
				Period:           period,
				Line:             dl.line,
				DispatchedTrains: trains,
			})
		}
	}

	g.logger.Info("generated demo dataset",
		slog.Int("records", len(records)),
		slog.Int("periods", len(periods)),
		slog.Int64("seed", g.cfg.Seed))

	return domain.Dataset{Records: records, Provenance: domain.ProvenanceDemo}, dispatch
}
