// Package commitexec writes the user-approved subset of a validated
// preview as transactions in one logical batch. Per-row outcomes are
// independent: a rejected write downstream never aborts its siblings.
package commitexec

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/FACorreiaa/statement-import/internal/domain/importer"
)

// Writer is the transaction-creation side of the external store.
type Writer interface {
	CreateTransaction(ctx context.Context, tx *importer.NewTransaction) (uuid.UUID, error)
}

// Decision is the user's per-row choice made during the validation stage.
type Decision int

const (
	// DecisionDefault leaves the pipeline's judgment in place: eligible
	// rows commit, duplicate-flagged rows are skipped.
	DecisionDefault Decision = iota
	// DecisionInclude force-includes a duplicate-flagged row.
	DecisionInclude
	// DecisionExclude removes a row from the accepted set entirely.
	DecisionExclude
)

// Executor performs the batched write against the external store.
type Executor struct {
	writer Writer
	logger *slog.Logger
}

// New creates an executor over the given store writer.
func New(writer Writer, logger *slog.Logger) *Executor {
	return &Executor{writer: writer, logger: logger}
}

// Execute writes the accepted rows in preview order and returns a
// complete result even under partial failure. Rows still flagged as
// probable duplicates are written only with an explicit include
// decision; otherwise they are recorded as skipped, never silently
// omitted from the count.
func (e *Executor) Execute(ctx context.Context, rows []importer.PreviewRow, decisions map[int]Decision, accountID uuid.UUID, currencyCode string) *importer.ImportResult {
	result := &importer.ImportResult{}

	for i := range rows {
		row := &rows[i]
		if !row.CommitEligible() || decisions[row.RowIndex] == DecisionExclude {
			continue
		}

		if row.DuplicateOf != nil && decisions[row.RowIndex] != DecisionInclude {
			result.SkippedDuplicates++
			result.Rows = append(result.Rows, importer.RowOutcome{
				RowIndex: row.RowIndex,
				Kind:     importer.OutcomeSkippedDuplicate,
			})
			continue
		}

		outcome := e.writeRow(ctx, row, accountID, currencyCode)
		if outcome.Kind == importer.OutcomeCreated {
			result.Created++
		} else {
			result.Failed++
		}
		result.Rows = append(result.Rows, outcome)
	}

	return result
}

func (e *Executor) writeRow(ctx context.Context, row *importer.PreviewRow, accountID uuid.UUID, currencyCode string) importer.RowOutcome {
	n := row.Normalized
	tx := &importer.NewTransaction{
		AccountID:    accountID,
		Date:         n.Date,
		Amount:       n.Amount,
		Direction:    n.Direction,
		Description:  n.Description,
		Reference:    n.Reference,
		Counterparty: n.Counterparty,
		Status:       n.Status,
		CurrencyCode: currencyCode,
		IdempotencyKey: importer.IdempotencyKey(
			accountID, n.Date, n.Amount, n.Description,
		),
	}

	id, err := e.writer.CreateTransaction(ctx, tx)
	if err != nil {
		e.logger.Warn("transaction write failed",
			"rowIndex", row.RowIndex, "account", accountID, "error", err)
		return importer.RowOutcome{
			RowIndex: row.RowIndex,
			Kind:     importer.OutcomeFailed,
			Err:      err.Error(),
		}
	}
	return importer.RowOutcome{
		RowIndex:      row.RowIndex,
		Kind:          importer.OutcomeCreated,
		TransactionID: id,
	}
}
