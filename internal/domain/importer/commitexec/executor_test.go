package commitexec

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/statement-import/internal/domain/importer"
)

type fakeWriter struct {
	written []*importer.NewTransaction
	failOn  map[string]error
}

func (f *fakeWriter) CreateTransaction(_ context.Context, tx *importer.NewTransaction) (uuid.UUID, error) {
	if err, ok := f.failOn[tx.Description]; ok {
		return uuid.Nil, err
	}
	f.written = append(f.written, tx)
	return uuid.New(), nil
}

func previewRow(idx int, desc string, status importer.ValidationStatus) importer.PreviewRow {
	return importer.PreviewRow{
		RowIndex: idx,
		Status:   status,
		Normalized: &importer.Normalized{
			Date:               time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
			Description:        desc,
			Amount:             decimal.RequireFromString("-4.50"),
			Direction:          importer.DirectionDebit,
			DirectionConfident: true,
		},
	}
}

func TestExecutor_Execute(t *testing.T) {
	accountID := uuid.New()
	logger := slog.New(slog.DiscardHandler)

	t.Run("commits valid and warning rows, skips rejected", func(t *testing.T) {
		writer := &fakeWriter{}
		rows := []importer.PreviewRow{
			previewRow(0, "Coffee", importer.StatusValid),
			previewRow(1, "Salary", importer.StatusWarning),
			{RowIndex: 2, Status: importer.StatusRejected, NormError: &importer.RowError{Kind: importer.RowErrInvalidDate}},
		}

		result := New(writer, logger).Execute(context.Background(), rows, nil, accountID, "EUR")

		assert.Equal(t, 2, result.Created)
		assert.Zero(t, result.SkippedDuplicates)
		assert.Zero(t, result.Failed)
		assert.Len(t, writer.written, 2)
	})

	t.Run("duplicates skip by default and count as skipped", func(t *testing.T) {
		writer := &fakeWriter{}
		dup := previewRow(0, "Coffee", importer.StatusValid)
		dup.DuplicateOf = &importer.DuplicateRef{ExistingID: uuid.New(), Confidence: 1.0}

		result := New(writer, logger).Execute(context.Background(), []importer.PreviewRow{dup}, nil, accountID, "EUR")

		assert.Zero(t, result.Created)
		assert.Equal(t, 1, result.SkippedDuplicates)
		require.Len(t, result.Rows, 1)
		assert.Equal(t, importer.OutcomeSkippedDuplicate, result.Rows[0].Kind)
		assert.Empty(t, writer.written)
	})

	t.Run("explicit include overrides the duplicate flag", func(t *testing.T) {
		writer := &fakeWriter{}
		dup := previewRow(0, "Coffee", importer.StatusValid)
		dup.DuplicateOf = &importer.DuplicateRef{ExistingID: uuid.New(), Confidence: 1.0}
		decisions := map[int]Decision{0: DecisionInclude}

		result := New(writer, logger).Execute(context.Background(), []importer.PreviewRow{dup}, decisions, accountID, "EUR")

		assert.Equal(t, 1, result.Created)
		assert.Zero(t, result.SkippedDuplicates)
	})

	t.Run("excluded rows are not written and not counted", func(t *testing.T) {
		writer := &fakeWriter{}
		rows := []importer.PreviewRow{
			previewRow(0, "Coffee", importer.StatusValid),
			previewRow(1, "Salary", importer.StatusValid),
		}
		decisions := map[int]Decision{1: DecisionExclude}

		result := New(writer, logger).Execute(context.Background(), rows, decisions, accountID, "EUR")

		assert.Equal(t, 1, result.Created)
		assert.Len(t, result.Rows, 1)
	})

	t.Run("a failed write never aborts its siblings", func(t *testing.T) {
		writer := &fakeWriter{failOn: map[string]error{"Salary": errors.New("constraint violation")}}
		rows := []importer.PreviewRow{
			previewRow(0, "Coffee", importer.StatusValid),
			previewRow(1, "Salary", importer.StatusValid),
			previewRow(2, "Groceries", importer.StatusValid),
		}

		result := New(writer, logger).Execute(context.Background(), rows, nil, accountID, "EUR")

		assert.Equal(t, 2, result.Created)
		assert.Equal(t, 1, result.Failed)
		require.Len(t, result.Rows, 3)
		assert.Equal(t, importer.OutcomeFailed, result.Rows[1].Kind)
		assert.NotEmpty(t, result.Rows[1].Err)
	})

	t.Run("accounting identity holds", func(t *testing.T) {
		writer := &fakeWriter{failOn: map[string]error{"Salary": errors.New("boom")}}
		dup := previewRow(3, "Refund", importer.StatusValid)
		dup.DuplicateOf = &importer.DuplicateRef{ExistingID: uuid.New(), Confidence: 0.9}
		rows := []importer.PreviewRow{
			previewRow(0, "Coffee", importer.StatusValid),
			previewRow(1, "Salary", importer.StatusValid),
			{RowIndex: 2, Status: importer.StatusRejected, NormError: &importer.RowError{Kind: importer.RowErrInvalidAmount}},
			dup,
		}

		result := New(writer, logger).Execute(context.Background(), rows, nil, accountID, "EUR")

		assert.Equal(t, result.Created+result.SkippedDuplicates+result.Failed, len(result.Rows))
		assert.Equal(t, 1, result.Created)
		assert.Equal(t, 1, result.Failed)
		assert.Equal(t, 1, result.SkippedDuplicates)
	})

	t.Run("written rows carry currency and idempotency key", func(t *testing.T) {
		writer := &fakeWriter{}
		rows := []importer.PreviewRow{previewRow(0, "Coffee", importer.StatusValid)}

		New(writer, logger).Execute(context.Background(), rows, nil, accountID, "EUR")

		require.Len(t, writer.written, 1)
		tx := writer.written[0]
		assert.Equal(t, "EUR", tx.CurrencyCode)
		assert.Equal(t, accountID, tx.AccountID)
		want := importer.IdempotencyKey(accountID, tx.Date, tx.Amount, tx.Description)
		assert.Equal(t, want, tx.IdempotencyKey)
	})

	t.Run("outcomes preserve preview order", func(t *testing.T) {
		writer := &fakeWriter{}
		rows := []importer.PreviewRow{
			previewRow(0, "A", importer.StatusValid),
			previewRow(1, "B", importer.StatusValid),
			previewRow(2, "C", importer.StatusValid),
		}

		result := New(writer, logger).Execute(context.Background(), rows, nil, accountID, "EUR")

		for i, outcome := range result.Rows {
			assert.Equal(t, i, outcome.RowIndex)
		}
	})
}
