// Package validator classifies normalized preview rows as Valid, Warning
// or Rejected. Classification is pure: the same row and context always
// produce the same status and reasons.
package validator

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/statement-import/internal/domain/importer"
)

// Default date window around today for acceptable transaction dates.
const (
	DefaultPastYears   = 5
	DefaultFutureYears = 1
)

// Context carries the session-scoped inputs classification depends on.
type Context struct {
	Today   time.Time
	MinDate time.Time
	MaxDate time.Time

	// LargeAmountThreshold triggers a warning when an amount's magnitude
	// exceeds it; zero disables the check.
	LargeAmountThreshold decimal.Decimal

	// AccountCurrency is the selected account's currency; FileCurrency is
	// the currency hinted by the uploaded file, when detectable. A
	// mismatch warns but never converts.
	AccountCurrency string
	FileCurrency    string
}

// NewContext builds a context with the default date window around today.
func NewContext(today time.Time) Context {
	return Context{
		Today:   today,
		MinDate: today.AddDate(-DefaultPastYears, 0, 0),
		MaxDate: today.AddDate(DefaultFutureYears, 0, 0),
	}
}

// Classify returns the validation status and human-readable reasons for
// one preview row. Rejection rules are evaluated first; warnings
// accumulate.
func Classify(row *importer.PreviewRow, ctx Context) (importer.ValidationStatus, []string) {
	if row.NormError != nil {
		return importer.StatusRejected, []string{row.NormError.Error()}
	}

	n := row.Normalized

	if n.Date.Before(ctx.MinDate) || n.Date.After(ctx.MaxDate) {
		return importer.StatusRejected, []string{fmt.Sprintf(
			"date %s outside acceptable range %s to %s",
			n.Date.Format("2006-01-02"), ctx.MinDate.Format("2006-01-02"), ctx.MaxDate.Format("2006-01-02"),
		)}
	}

	if n.Amount.IsZero() {
		return importer.StatusRejected, []string{"amount is zero"}
	}

	var reasons []string
	if n.Description == "" {
		reasons = append(reasons, "description is empty")
	}
	if ctx.LargeAmountThreshold.IsPositive() && n.Amount.Abs().GreaterThan(ctx.LargeAmountThreshold) {
		reasons = append(reasons, fmt.Sprintf("amount %s exceeds the unusually-large threshold %s",
			n.Amount.String(), ctx.LargeAmountThreshold.String()))
	}
	if ctx.AccountCurrency != "" && ctx.FileCurrency != "" && ctx.AccountCurrency != ctx.FileCurrency {
		reasons = append(reasons, fmt.Sprintf("file currency %s differs from account currency %s",
			ctx.FileCurrency, ctx.AccountCurrency))
	}
	if !n.DirectionConfident {
		reasons = append(reasons, fmt.Sprintf("direction defaulted to %s for unsigned amount", n.Direction))
	}

	if len(reasons) > 0 {
		return importer.StatusWarning, reasons
	}
	return importer.StatusValid, nil
}

// Apply classifies every row in place and returns the slice for
// chaining. Row order and length are preserved.
func Apply(rows []importer.PreviewRow, ctx Context) []importer.PreviewRow {
	for i := range rows {
		status, reasons := Classify(&rows[i], ctx)
		rows[i].Status = status
		rows[i].Reasons = reasons
	}
	return rows
}
