package decoder

import (
	"strings"
)

// Dialect is the inferred regional formatting of a statement file.
type Dialect struct {
	EuropeanFormat bool    // decimal comma, dot as thousands separator
	DayFirst       bool    // DD/MM rather than MM/DD
	Confidence     float64 // 0..1, fraction of samples agreeing
}

// ProbeDialect inspects the mapped amount and date columns of the data
// rows and infers the regional dialect. Sampling is capped so cost stays
// independent of file size.
func ProbeDialect(rows [][]string, amountCol, dateCol int) Dialect {
	dialect := Dialect{DayFirst: true, Confidence: 0.5}

	sample := rows
	if len(sample) > 50 {
		sample = sample[:50]
	}

	europeanHints, usHints := 0, 0
	dayFirstProven, monthFirstProven := false, false

	for _, row := range sample {
		if amountCol >= 0 && amountCol < len(row) {
			switch amountFormatHint(row[amountCol]) {
			case 1:
				europeanHints++
			case -1:
				usHints++
			}
		}
		if dateCol >= 0 && dateCol < len(row) {
			first, second, ok := leadingDateParts(row[dateCol])
			switch {
			case !ok:
			case first > 12 && first <= 31:
				dayFirstProven = true
			case second > 12 && second <= 31 && first >= 1 && first <= 12:
				monthFirstProven = true
			}
		}
	}

	if europeanHints > usHints {
		dialect.EuropeanFormat = true
	}
	if total := europeanHints + usHints; total > 0 {
		winning := europeanHints
		if usHints > winning {
			winning = usHints
		}
		dialect.Confidence = float64(winning) / float64(total)
	}

	// Only a day value over 12 proves either order. A first part of 12 or
	// less is ambiguous, never evidence of MM-first, so the day-first
	// default survives unless some sample actually disproves it. Amount
	// formatting says nothing about date order.
	if !dayFirstProven && monthFirstProven {
		dialect.DayFirst = false
	}
	return dialect
}

// amountFormatHint returns 1 for European formatting, -1 for US, 0 when
// the value is ambiguous.
func amountFormatHint(val string) int {
	cleaned := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' || r == ',' || r == '.' {
			return r
		}
		return -1
	}, val)
	if cleaned == "" {
		return 0
	}

	hasComma := strings.Contains(cleaned, ",")
	hasDot := strings.Contains(cleaned, ".")

	switch {
	case hasComma && hasDot:
		if strings.LastIndex(cleaned, ",") > strings.LastIndex(cleaned, ".") {
			return 1
		}
		return -1
	case hasComma:
		if decimalSuffix(cleaned, ',') {
			return 1
		}
	case hasDot:
		if decimalSuffix(cleaned, '.') {
			return -1
		}
	}
	return 0
}

func decimalSuffix(value string, sep rune) bool {
	idx := strings.LastIndex(value, string(sep))
	if idx < 0 || idx == len(value)-1 {
		return false
	}
	return len(value)-idx-1 <= 2
}

// leadingDateParts returns the first two numeric components of a
// separated date value. Four-digit leading years (ISO dates) report the
// year as the first part, which matches neither proof rule.
func leadingDateParts(dateVal string) (first, second int, ok bool) {
	parts := strings.FieldsFunc(dateVal, func(r rune) bool {
		return r == '/' || r == '-' || r == '.'
	})
	if len(parts) < 2 {
		return 0, 0, false
	}
	first = numericPrefix(parts[0])
	second = numericPrefix(parts[1])
	return first, second, first > 0 && second > 0
}

func numericPrefix(s string) int {
	n := 0
	for _, c := range strings.TrimSpace(s) {
		if c < '0' || c > '9' {
			break
		}
		n = n*10 + int(c-'0')
	}
	return n
}
