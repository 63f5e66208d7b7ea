// Package normalizer applies a confirmed column mapping to every raw data
// row, producing typed candidate transactions or a structured per-row
// error. It emits exactly one preview row per data row; nothing is ever
// dropped silently.
package normalizer

import (
	"strings"
	"time"

	"github.com/FACorreiaa/statement-import/internal/domain/importer"
	"github.com/FACorreiaa/statement-import/internal/domain/importer/decoder"
	"github.com/FACorreiaa/statement-import/internal/domain/importer/mapping"
	"github.com/FACorreiaa/statement-import/pkg/money"
)

// Options carry the regional dialect and direction defaults, typically
// seeded from the detected bank profile and the probed dialect.
type Options struct {
	EuropeanFormat    bool
	DayFirst          bool
	UnsignedDirection importer.Direction
	Location          *time.Location
}

// debitMarkers and creditMarkers cover the direction-column vocabularies
// of the registered bank formats (en/fr/pt/es/nl).
var (
	debitMarkers = map[string]bool{
		"d": true, "dr": true, "db": true, "debit": true, "débit": true,
		"debito": true, "débito": true, "af": true, "out": true, "-": true,
	}
	creditMarkers = map[string]bool{
		"c": true, "cr": true, "credit": true, "crédit": true,
		"credito": true, "crédito": true, "bij": true, "in": true, "+": true,
	}
)

// Normalize converts the grid's data rows into preview rows under the
// given mapping. Direction resolution is grid-aware: when no direction
// column is mapped and no row in the file carries an explicit sign, the
// export is magnitude-only and unsigned amounts fall back to the
// configured default with low confidence.
func Normalize(grid *decoder.RawGrid, m mapping.ColumnMapping, opts Options) []importer.PreviewRow {
	rows := make([]importer.PreviewRow, 0, len(grid.Rows))

	signedConvention := gridHasExplicitSign(grid, m)

	for i, record := range grid.Rows {
		pr := importer.PreviewRow{RowIndex: i}
		normalized, rowErr := normalizeRow(record, m, opts, signedConvention)
		if rowErr != nil {
			pr.NormError = rowErr
		} else {
			pr.Normalized = normalized
		}
		rows = append(rows, pr)
	}
	return rows
}

func normalizeRow(record []string, m mapping.ColumnMapping, opts Options, signedConvention bool) (*importer.Normalized, *importer.RowError) {
	dateRaw := cell(record, m.Column(mapping.FieldDate))
	date, err := parseDate(dateRaw, opts.DayFirst, opts.Location)
	if err != nil {
		return nil, &importer.RowError{
			Kind:    importer.RowErrInvalidDate,
			Column:  string(mapping.FieldDate),
			Raw:     dateRaw,
			Message: err.Error(),
		}
	}

	// Empty descriptions normalize to "", never an error; the validator
	// decides whether to warn.
	description := cleanText(cell(record, m.Column(mapping.FieldDescription)))

	amountCol := m.Column(mapping.FieldAmount)
	if amountCol == mapping.Unset {
		// The completeness gate allows this only when a direction column
		// is mapped; without a value column every row still needs a
		// traceable fate.
		return nil, &importer.RowError{
			Kind:    importer.RowErrInvalidAmount,
			Column:  string(mapping.FieldAmount),
			Message: "no amount column mapped",
		}
	}
	amountRaw := cell(record, amountCol)
	amount, err := money.Parse(amountRaw, opts.EuropeanFormat)
	if err != nil {
		return nil, &importer.RowError{
			Kind:    importer.RowErrInvalidAmount,
			Column:  string(mapping.FieldAmount),
			Raw:     amountRaw,
			Message: err.Error(),
		}
	}

	n := &importer.Normalized{
		Date:         date,
		Description:  description,
		Amount:       amount,
		Reference:    cleanText(cell(record, m.Column(mapping.FieldReference))),
		Counterparty: cleanText(cell(record, m.Column(mapping.FieldCounterparty))),
		Status:       cleanText(cell(record, m.Column(mapping.FieldStatus))),
	}

	resolveDirection(n, cell(record, m.Column(mapping.FieldDirection)), amountRaw, opts, signedConvention)
	return n, nil
}

// resolveDirection signs the amount and records how confident the
// resolution is. Priority: explicit direction column, then the amount's
// own sign, then the configured unsigned default.
func resolveDirection(n *importer.Normalized, marker, amountRaw string, opts Options, signedConvention bool) {
	if marker != "" {
		normalized := strings.ToLower(strings.TrimSpace(marker))
		switch {
		case debitMarkers[normalized]:
			n.Direction = importer.DirectionDebit
			n.Amount = n.Amount.Abs().Neg()
			n.DirectionConfident = true
			return
		case creditMarkers[normalized]:
			n.Direction = importer.DirectionCredit
			n.Amount = n.Amount.Abs()
			n.DirectionConfident = true
			return
		}
		// Unrecognized marker: fall through to sign-based resolution.
	}

	switch {
	case n.Amount.IsNegative():
		n.Direction = importer.DirectionDebit
		n.DirectionConfident = true
	case money.Signed(amountRaw) || signedConvention:
		// A positive value in a file that uses explicit signs is a
		// deliberate credit.
		n.Direction = importer.DirectionCredit
		n.DirectionConfident = true
	default:
		// Magnitude-only export: apply the (profile-overridable) default
		// and let the validator surface a warning.
		n.Direction = opts.UnsignedDirection
		n.DirectionConfident = false
		if n.Direction == importer.DirectionDebit && n.Amount.IsPositive() {
			n.Amount = n.Amount.Neg()
		}
	}
}

// gridHasExplicitSign reports whether any amount cell in the grid carries
// an explicit sign marker, which establishes a signed convention for the
// whole file.
func gridHasExplicitSign(grid *decoder.RawGrid, m mapping.ColumnMapping) bool {
	if m.Mapped(mapping.FieldDirection) {
		return false
	}
	col := m.Column(mapping.FieldAmount)
	if col == mapping.Unset {
		return false
	}
	for _, record := range grid.Rows {
		if money.Signed(cell(record, col)) {
			return true
		}
	}
	return false
}

func cell(record []string, col int) string {
	if col < 0 || col >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[col])
}

// cleanText trims and collapses internal runs of whitespace.
func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
