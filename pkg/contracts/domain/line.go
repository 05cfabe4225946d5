package domain

import (
	"fmt"
	"strings"
)

// LineCode identifies a subway line. The network runs lines A through E
// and H, plus the Premetro light-rail branch coded P.
type LineCode string

const (
	LineA LineCode = "A"
	LineB LineCode = "B"
	LineC LineCode = "C"
	LineD LineCode = "D"
	LineE LineCode = "E"
	LineH LineCode = "H"

	// LinePremetro is the Premetro branch, reported separately from the
	// six subway lines in most source extracts.
	LinePremetro LineCode = "P"
)

// KnownLines returns every valid line code in display order.
func KnownLines() []LineCode {
	return []LineCode{LineA, LineB, LineC, LineD, LineE, LineH, LinePremetro}
}

// IsValid reports whether the code is one of the enumerated lines.
func (l LineCode) IsValid() bool {
	switch l {
	case LineA, LineB, LineC, LineD, LineE, LineH, LinePremetro:
		return true
	}
	return false
}

// NormalizeLine maps the raw spellings found in source files onto a
// LineCode: "Linea A", "Línea A", "LineaA", bare letters, and any value
// mentioning Premetro. Anything else is rejected; free text that merely
// contains a letter matching a line code must not normalize, or arbitrary
// columns would pass for line columns.
func NormalizeLine(raw string) (LineCode, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", fmt.Errorf("empty line value")
	}

	lower := strings.ToLower(s)
	if strings.Contains(lower, "premetro") {
		return LinePremetro, nil
	}

	// "Linea X" / "Línea X" prefixes, with or without the space.
	for _, prefix := range []string{"linea", "línea", "line"} {
		if strings.HasPrefix(lower, prefix) {
			rest := strings.TrimSpace(s[len(prefix):])
			if len(rest) >= 1 {
				if code := LineCode(strings.ToUpper(rest[:1])); code.IsValid() {
					return code, nil
				}
			}
		}
	}

	if len(s) == 1 {
		if code := LineCode(strings.ToUpper(s)); code.IsValid() {
			return code, nil
		}
	}

	return "", fmt.Errorf("unknown line code: %q", raw)
}
