package session

import (
	"strings"
	"time"
	"unicode"

	"github.com/FACorreiaa/statement-import/internal/domain/importer/decoder"
	"github.com/FACorreiaa/statement-import/internal/domain/importer/mapping"
	"github.com/FACorreiaa/statement-import/pkg/money"
)

// nowFunc is swapped in tests to pin the validation date window.
var nowFunc = time.Now

var symbolCurrencies = map[string]string{
	"€": "EUR",
	"£": "GBP",
	"$": "USD",
	"¥": "JPY",
	"₹": "INR",
}

// fileCurrencyHint extracts a currency hint from the amount column, first
// from its header ("Amount (EUR)" style exports) and then from symbols in
// a few sample cells. An empty result disables the mismatch warning.
func fileCurrencyHint(grid *decoder.RawGrid, m mapping.ColumnMapping) string {
	col := m.Column(mapping.FieldAmount)
	if col == mapping.Unset || col >= len(grid.Headers) {
		return ""
	}

	if code := currencyToken(grid.Headers[col]); code != "" {
		return code
	}

	sample := grid.Rows
	if len(sample) > 10 {
		sample = sample[:10]
	}
	for _, row := range sample {
		if col >= len(row) {
			continue
		}
		for sym, code := range symbolCurrencies {
			if strings.Contains(row[col], sym) {
				return code
			}
		}
	}
	return ""
}

// currencyToken scans a header for a recognized three-letter ISO code or
// a currency symbol.
func currencyToken(header string) string {
	for sym, code := range symbolCurrencies {
		if strings.Contains(header, sym) {
			return code
		}
	}
	tokens := strings.FieldsFunc(header, func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	for _, tok := range tokens {
		if len(tok) == 3 && tok == strings.ToUpper(tok) && money.KnownCurrency(tok) {
			return tok
		}
	}
	return ""
}
