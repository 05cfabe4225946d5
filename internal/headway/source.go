package headway

import (
	"log/slog"
	"strings"
	"time"

	"subtepulse/internal/cleaning"
	"subtepulse/internal/schema"
	"subtepulse/pkg/contracts/domain"
)

// Dispatch extracts carry a small fixed schema; these alias sets cover the
// spellings seen in the source files.
var (
	periodAliases = []string{"year_month", "ym", "period", "periodo", "mes"}
	dateAliases   = []string{"date", "fecha", "dia", "día"}
	lineAliases   = []string{"line", "linea", "línea", "line_id"}
	trainsAliases = []string{"dispatched_trains", "trains", "formaciones", "despachos", "trenes"}
)

// ParseMonthly reads rows of a monthly dispatch extract
// (year_month, line, dispatched_trains). Rows that fail coercion are
// dropped and counted in the returned drop count.
func ParseMonthly(logger *slog.Logger, file string, headers []string, rows [][]string) ([]domain.DispatchMonthly, int) {
	periodIdx := findColumn(headers, periodAliases)
	lineIdx := findColumn(headers, lineAliases)
	trainsIdx := findColumn(headers, trainsAliases)
	if periodIdx < 0 || lineIdx < 0 || trainsIdx < 0 {
		logger.Warn("monthly dispatch file missing required columns",
			slog.String("file", file), slog.Any("headers", headers))
		return nil, len(rows)
	}

	var out []domain.DispatchMonthly
	dropped := 0
	for _, row := range rows {
		if len(row) <= maxIdx(periodIdx, lineIdx, trainsIdx) {
			dropped++
			continue
		}
		period, errP := domain.ParsePeriod(row[periodIdx])
		line, errL := domain.NormalizeLine(row[lineIdx])
		trains, errT := cleaning.ParseCount(row[trainsIdx])
		if errP != nil || errL != nil || errT != nil {
			dropped++
			continue
		}
		out = append(out, domain.DispatchMonthly{
			Period:           period,
			Line:             line,
			DispatchedTrains: trains,
		})
	}
	return out, dropped
}

// ParseDaily reads rows of a daily dispatch extract (date, line, trains).
func ParseDaily(logger *slog.Logger, file string, headers []string, rows [][]string) ([]domain.DispatchDaily, int) {
	dateIdx := findColumn(headers, dateAliases)
	lineIdx := findColumn(headers, lineAliases)
	trainsIdx := findColumn(headers, trainsAliases)
	if dateIdx < 0 || lineIdx < 0 || trainsIdx < 0 {
		logger.Warn("daily dispatch file missing required columns",
			slog.String("file", file), slog.Any("headers", headers))
		return nil, len(rows)
	}

	var out []domain.DispatchDaily
	dropped := 0
	for _, row := range rows {
		if len(row) <= maxIdx(dateIdx, lineIdx, trainsIdx) {
			dropped++
			continue
		}
		date, errD := parseDate(row[dateIdx])
		line, errL := domain.NormalizeLine(row[lineIdx])
		trains, errT := cleaning.ParseCount(row[trainsIdx])
		if errD != nil || errL != nil || errT != nil {
			dropped++
			continue
		}
		out = append(out, domain.DispatchDaily{Date: date, Line: line, Trains: trains})
	}
	return out, dropped
}

func findColumn(headers []string, aliases []string) int {
	for _, alias := range aliases {
		want := schema.NormalizeHeader(alias)
		for i, h := range headers {
			if schema.NormalizeHeader(h) == want {
				return i
			}
		}
	}
	return -1
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	// Day-first form.
	if t, err := time.Parse("2/1/2006", s); err == nil {
		return t, nil
	}
	return time.Parse("02/01/2006", s)
}

func maxIdx(idx ...int) int {
	max := idx[0]
	for _, i := range idx[1:] {
		if i > max {
			max = i
		}
	}
	return max
}
