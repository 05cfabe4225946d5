package config

import "subtepulse/pkg/contracts/domain"

// defaultAliases is the built-in alias table: canonical field -> raw column
// names accepted for it. Covers the Spanish column names the municipal
// extracts actually use plus common English variants.
var defaultAliases = map[string][]string{
	domain.FieldPeriod: {
		"period", "year_month", "ym", "periodo", "mes", "fecha", "date",
	},
	domain.FieldLine: {
		"line", "linea", "línea", "line_id", "linea_id", "line_name", "linea_nombre",
	},
	domain.FieldStation: {
		"station", "estacion", "estación", "station_name", "station_id",
	},
	domain.FieldPassengerCount: {
		"passenger_count", "passengers", "pasajeros", "pax_total", "total_pax",
		"pax", "total",
	},
	domain.FieldDispatchedTrains: {
		"dispatched_trains", "trains", "formaciones", "despachos", "trenes",
	},
}

// AliasTable returns the effective alias table: the built-in defaults with
// any configured extras appended. The receiver's map is never mutated.
func (c *Config) AliasTable() map[string][]string {
	table := make(map[string][]string, len(defaultAliases))
	for field, aliases := range defaultAliases {
		table[field] = append([]string(nil), aliases...)
	}
	for field, extra := range c.Aliases {
		table[field] = append(table[field], extra...)
	}
	return table
}
