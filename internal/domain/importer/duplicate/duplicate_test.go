package duplicate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/statement-import/internal/domain/importer"
)

type fakeLookup struct {
	existing []importer.ExistingTransaction
	err      error
	calls    int
	from, to time.Time
}

func (f *fakeLookup) ListByAccountAndDateRange(_ context.Context, _ uuid.UUID, from, to time.Time) ([]importer.ExistingTransaction, error) {
	f.calls++
	f.from, f.to = from, to
	return f.existing, f.err
}

func candidate(date time.Time, desc, amount string) importer.PreviewRow {
	return importer.PreviewRow{
		Normalized: &importer.Normalized{
			Date:        date,
			Description: desc,
			Amount:      decimal.RequireFromString(amount),
		},
		Status: importer.StatusValid,
	}
}

func existing(date time.Time, desc, amount string) importer.ExistingTransaction {
	return importer.ExistingTransaction{
		ID:          uuid.New(),
		Date:        date,
		Amount:      decimal.RequireFromString(amount),
		Description: desc,
	}
}

func TestFlag(t *testing.T) {
	accountID := uuid.New()
	day := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

	t.Run("flags same amount and description within the window", func(t *testing.T) {
		lookup := &fakeLookup{existing: []importer.ExistingTransaction{
			existing(day.AddDate(0, 0, 1), "Coffee Shop", "-4.50"),
		}}
		rows := []importer.PreviewRow{candidate(day, "Coffee Shop", "-4.50")}

		out, err := Flag(context.Background(), rows, lookup, accountID, Options{})

		require.NoError(t, err)
		require.NotNil(t, out[0].DuplicateOf)
		assert.Equal(t, lookup.existing[0].ID, out[0].DuplicateOf.ExistingID)
		assert.Equal(t, 1.0, out[0].DuplicateOf.Confidence)
	})

	t.Run("outside the date window is not a duplicate", func(t *testing.T) {
		lookup := &fakeLookup{existing: []importer.ExistingTransaction{
			existing(day.AddDate(0, 0, 3), "Coffee Shop", "-4.50"),
		}}
		rows := []importer.PreviewRow{candidate(day, "Coffee Shop", "-4.50")}

		out, err := Flag(context.Background(), rows, lookup, accountID, Options{DateWindowDays: 2})

		require.NoError(t, err)
		assert.Nil(t, out[0].DuplicateOf)
	})

	t.Run("different amount never matches", func(t *testing.T) {
		lookup := &fakeLookup{existing: []importer.ExistingTransaction{
			existing(day, "Coffee Shop", "-4.51"),
		}}
		rows := []importer.PreviewRow{candidate(day, "Coffee Shop", "-4.50")}

		out, err := Flag(context.Background(), rows, lookup, accountID, Options{})

		require.NoError(t, err)
		assert.Nil(t, out[0].DuplicateOf)
	})

	t.Run("dissimilar descriptions stay below the threshold", func(t *testing.T) {
		gofakeit.Seed(11)
		lookup := &fakeLookup{existing: []importer.ExistingTransaction{
			existing(day, gofakeit.Company(), "-4.50"),
		}}
		rows := []importer.PreviewRow{candidate(day, "MB WAY TRANSFER 9912", "-4.50")}

		out, err := Flag(context.Background(), rows, lookup, accountID, Options{SimilarityThreshold: 0.9})

		require.NoError(t, err)
		assert.Nil(t, out[0].DuplicateOf)
	})

	t.Run("near-identical descriptions match below exact confidence", func(t *testing.T) {
		lookup := &fakeLookup{existing: []importer.ExistingTransaction{
			existing(day, "COMPRA CONTINENTE LISBOA 01", "-35.20"),
		}}
		rows := []importer.PreviewRow{candidate(day, "COMPRA CONTINENTE LISBOA 02", "-35.20")}

		out, err := Flag(context.Background(), rows, lookup, accountID, Options{})

		require.NoError(t, err)
		require.NotNil(t, out[0].DuplicateOf)
		assert.Greater(t, out[0].DuplicateOf.Confidence, 0.5)
		assert.Less(t, out[0].DuplicateOf.Confidence, 1.0)
	})

	t.Run("only valid rows are checked", func(t *testing.T) {
		lookup := &fakeLookup{existing: []importer.ExistingTransaction{
			existing(day, "Coffee Shop", "-4.50"),
		}}
		warning := candidate(day, "Coffee Shop", "-4.50")
		warning.Status = importer.StatusWarning
		rejected := importer.PreviewRow{
			NormError: &importer.RowError{Kind: importer.RowErrInvalidDate},
			Status:    importer.StatusRejected,
		}

		out, err := Flag(context.Background(), []importer.PreviewRow{warning, rejected}, lookup, accountID, Options{})

		require.NoError(t, err)
		assert.Nil(t, out[0].DuplicateOf)
		assert.Nil(t, out[1].DuplicateOf)
	})

	t.Run("no valid rows means no lookup at all", func(t *testing.T) {
		lookup := &fakeLookup{}
		rejected := importer.PreviewRow{Status: importer.StatusRejected}

		_, err := Flag(context.Background(), []importer.PreviewRow{rejected}, lookup, accountID, Options{})

		require.NoError(t, err)
		assert.Zero(t, lookup.calls)
	})

	t.Run("one widened lookup covers the whole batch", func(t *testing.T) {
		lookup := &fakeLookup{}
		rows := []importer.PreviewRow{
			candidate(day, "A", "-1.00"),
			candidate(day.AddDate(0, 0, 10), "B", "-2.00"),
		}

		_, err := Flag(context.Background(), rows, lookup, accountID, Options{DateWindowDays: 2})

		require.NoError(t, err)
		assert.Equal(t, 1, lookup.calls)
		assert.Equal(t, day.AddDate(0, 0, -2), lookup.from)
		assert.Equal(t, day.AddDate(0, 0, 12), lookup.to)
	})

	t.Run("best match wins over a weaker one", func(t *testing.T) {
		exact := existing(day.AddDate(0, 0, 1), "Coffee Shop", "-4.50")
		fuzzy := existing(day, "Coffee Shop Lisboa Center", "-4.50")
		lookup := &fakeLookup{existing: []importer.ExistingTransaction{fuzzy, exact}}
		rows := []importer.PreviewRow{candidate(day, "Coffee Shop", "-4.50")}

		out, err := Flag(context.Background(), rows, lookup, accountID, Options{})

		require.NoError(t, err)
		require.NotNil(t, out[0].DuplicateOf)
		assert.Equal(t, exact.ID, out[0].DuplicateOf.ExistingID)
	})

	t.Run("flagging is deterministic", func(t *testing.T) {
		lookup := &fakeLookup{existing: []importer.ExistingTransaction{
			existing(day, "Coffee Shop", "-4.50"),
			existing(day.AddDate(0, 0, 1), "Coffee Shop", "-4.50"),
		}}

		var first, second uuid.UUID
		for i := 0; i < 2; i++ {
			rows := []importer.PreviewRow{candidate(day, "Coffee Shop", "-4.50")}
			out, err := Flag(context.Background(), rows, lookup, accountID, Options{})
			require.NoError(t, err)
			require.NotNil(t, out[0].DuplicateOf)
			if i == 0 {
				first = out[0].DuplicateOf.ExistingID
			} else {
				second = out[0].DuplicateOf.ExistingID
			}
		}
		assert.Equal(t, first, second)
	})

	t.Run("lookup failure surfaces as an error", func(t *testing.T) {
		lookup := &fakeLookup{err: errors.New("connection refused")}
		rows := []importer.PreviewRow{candidate(day, "Coffee Shop", "-4.50")}

		_, err := Flag(context.Background(), rows, lookup, accountID, Options{})

		assert.Error(t, err)
	})
}

func TestDescribeSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, describeSimilarity("Coffee Shop", "  coffee   SHOP "))
	assert.Equal(t, 0.0, describeSimilarity("", "Coffee"))
	assert.LessOrEqual(t, describeSimilarity("Coffee Shop A", "Coffee Shop B"), 0.95)
	assert.Greater(t, describeSimilarity("COMPRA CONTINENTE", "COMPRA CONTINENTE LX"), 0.5)
}
