// Package importer defines the shared vocabulary of the bank statement
// import pipeline: normalized candidate transactions, preview rows with
// their validation and duplicate status, and the final import result.
package importer

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Direction indicates whether a transaction moves money out of (debit)
// or into (credit) the account.
type Direction int

const (
	DirectionDebit Direction = iota
	DirectionCredit
)

func (d Direction) String() string {
	if d == DirectionCredit {
		return "credit"
	}
	return "debit"
}

// Normalized is a candidate transaction built from one raw row.
// Amount is signed: negative for debits, positive for credits.
type Normalized struct {
	Date               time.Time
	Description        string
	Amount             decimal.Decimal
	Direction          Direction
	DirectionConfident bool
	Reference          string
	Counterparty       string
	Status             string
}

// RowErrorKind classifies normalization failures.
type RowErrorKind string

const (
	RowErrInvalidDate   RowErrorKind = "invalid_date"
	RowErrInvalidAmount RowErrorKind = "invalid_amount"
)

// RowError is a normalization error scoped to a single row. The raw cell
// content is preserved for user-facing error reporting.
type RowError struct {
	Kind    RowErrorKind
	Column  string
	Raw     string
	Message string
}

func (e *RowError) Error() string {
	if e.Raw != "" {
		return fmt.Sprintf("%s (%s): %s: %q", e.Kind, e.Column, e.Message, e.Raw)
	}
	return fmt.Sprintf("%s (%s): %s", e.Kind, e.Column, e.Message)
}

// ValidationStatus classifies a preview row for commit eligibility.
type ValidationStatus int

const (
	StatusValid ValidationStatus = iota
	StatusWarning
	StatusRejected
)

func (s ValidationStatus) String() string {
	switch s {
	case StatusValid:
		return "valid"
	case StatusWarning:
		return "warning"
	default:
		return "rejected"
	}
}

// DuplicateRef points a candidate at an existing transaction it probably
// duplicates. Flagging is advisory: the user decides at commit time.
type DuplicateRef struct {
	ExistingID uuid.UUID
	Confidence float64
}

// PreviewRow is one candidate transaction derived from one raw data row.
// Exactly one of Normalized/NormError is set. A row with a NormError is
// always Rejected and never duplicate-checked.
type PreviewRow struct {
	RowIndex    int
	Normalized  *Normalized
	NormError   *RowError
	Status      ValidationStatus
	Reasons     []string
	DuplicateOf *DuplicateRef
}

// CommitEligible reports whether the row may be written at commit time.
func (r *PreviewRow) CommitEligible() bool {
	return r.NormError == nil && r.Status != StatusRejected
}

// ExistingTransaction is a transaction already present in the external
// store, consulted for duplicate detection.
type ExistingTransaction struct {
	ID          uuid.UUID
	AccountID   uuid.UUID
	Date        time.Time
	Amount      decimal.Decimal
	Description string
}

// NewTransaction is the shape of a committed row as written to the store.
type NewTransaction struct {
	AccountID      uuid.UUID
	Date           time.Time
	Amount         decimal.Decimal
	Direction      Direction
	Description    string
	Reference      string
	Counterparty   string
	Status         string
	CurrencyCode   string
	IdempotencyKey string
}

// OutcomeKind is the per-row result of a commit attempt.
type OutcomeKind int

const (
	OutcomeCreated OutcomeKind = iota
	OutcomeSkippedDuplicate
	OutcomeFailed
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeCreated:
		return "created"
	case OutcomeSkippedDuplicate:
		return "skipped_duplicate"
	default:
		return "failed"
	}
}

// RowOutcome records the fate of one accepted row. RowIndex correlates
// back to the preview table.
type RowOutcome struct {
	RowIndex      int
	Kind          OutcomeKind
	TransactionID uuid.UUID
	Err           string
}

// ImportResult is the terminal artifact of an import session.
// Created+SkippedDuplicates+Failed always equals len(Rows).
type ImportResult struct {
	Created           int
	SkippedDuplicates int
	Failed            int
	Rows              []RowOutcome
}

// IdempotencyKey derives a content hash for a committed row so a stricter
// store can de-duplicate retried commits after partial failure.
func IdempotencyKey(accountID uuid.UUID, date time.Time, amount decimal.Decimal, description string) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%s|%s", accountID, date.Format("2006-01-02"), amount.String(), description)
	return hex.EncodeToString(h.Sum(nil))
}
