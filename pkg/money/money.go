// Package money provides exact monetary parsing and minor-unit conversion
// for the import pipeline. Amounts are held as shopspring decimals for
// precision; ISO-4217 currency metadata comes from go-money.
package money

import (
	"errors"
	"fmt"
	"strings"

	gomoney "github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

var ErrNotNumeric = errors.New("value is not a numeric amount")

// currencySymbols are stripped anywhere before numeric parsing.
// Multi-rune symbols must come before their prefixes (R$ before $).
var currencySymbols = []string{"R$", "$", "€", "£", "¥", "₹", "₽"}

// currencyCodes are stripped only at the start or end of the cell; a
// letter code in the middle of the digits means the cell is malformed.
var currencyCodes = []string{"CHF", "EUR", "USD", "GBP"}

// Parse converts a raw amount cell into a signed decimal. It strips
// currency symbols, spaces and thousands separators, accepts a decimal
// comma or dot depending on the dialect, and treats a parenthesized or
// trailing-minus value as negative.
func Parse(raw string, european bool) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.Zero, fmt.Errorf("%w: empty", ErrNotNumeric)
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = strings.TrimSuffix(strings.TrimPrefix(s, "("), ")")
	}
	if strings.HasSuffix(s, "-") {
		negative = true
		s = strings.TrimSuffix(s, "-")
	}

	for _, sym := range currencySymbols {
		s = strings.ReplaceAll(s, sym, "")
	}
	for _, code := range currencyCodes {
		s = strings.TrimSpace(strings.TrimPrefix(s, code))
		s = strings.TrimSpace(strings.TrimSuffix(s, code))
	}
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, " ", "") // non-breaking space as thousands separator

	if strings.HasPrefix(s, "-") {
		negative = true
		s = strings.TrimPrefix(s, "-")
	}
	if strings.HasPrefix(s, "+") {
		s = strings.TrimPrefix(s, "+")
	}

	if european {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	} else {
		s = strings.ReplaceAll(s, ",", "")
	}

	if s == "" {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrNotNumeric, raw)
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrNotNumeric, raw)
	}
	if negative {
		d = d.Neg()
	}
	return d, nil
}

// Signed reports whether the raw cell carries an explicit sign marker
// (leading/trailing minus, plus, or accounting parentheses).
func Signed(raw string) bool {
	s := strings.TrimSpace(raw)
	return strings.HasPrefix(s, "-") || strings.HasPrefix(s, "+") ||
		strings.HasSuffix(s, "-") ||
		(strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")"))
}

// MinorUnits converts a decimal amount to the currency's minor units
// (cents for EUR/USD, whole yen for JPY). Unknown currencies default to
// two decimal places.
func MinorUnits(amount decimal.Decimal, currencyCode string) int64 {
	fraction := 2
	if c := gomoney.GetCurrency(strings.ToUpper(currencyCode)); c != nil {
		fraction = c.Fraction
	}
	return amount.Shift(int32(fraction)).Round(0).IntPart()
}

// FromMinorUnits converts stored minor units back to a decimal amount.
func FromMinorUnits(minor int64, currencyCode string) decimal.Decimal {
	fraction := 2
	if c := gomoney.GetCurrency(strings.ToUpper(currencyCode)); c != nil {
		fraction = c.Fraction
	}
	return decimal.New(minor, -int32(fraction))
}

// Display renders an amount with its currency symbol for logs and
// result summaries.
func Display(amount decimal.Decimal, currencyCode string) string {
	code := strings.ToUpper(currencyCode)
	if gomoney.GetCurrency(code) == nil {
		return amount.StringFixed(2) + " " + code
	}
	return gomoney.New(MinorUnits(amount, code), code).Display()
}

// KnownCurrency reports whether the ISO-4217 code is recognized.
func KnownCurrency(code string) bool {
	return gomoney.GetCurrency(strings.ToUpper(code)) != nil
}
