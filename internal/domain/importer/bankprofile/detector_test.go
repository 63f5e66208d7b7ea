package bankprofile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/statement-import/internal/domain/importer/decoder"
	"github.com/FACorreiaa/statement-import/internal/domain/importer/mapping"
)

func gridWithHeaders(headers ...string) *decoder.RawGrid {
	return &decoder.RawGrid{Headers: headers}
}

func TestDetector_Detect(t *testing.T) {
	d := NewDetector()

	t.Run("recognizes Revolut from its full header set", func(t *testing.T) {
		grid := gridWithHeaders(
			"Type", "Product", "Started Date", "Completed Date", "Description",
			"Amount", "Fee", "Currency", "State", "Balance",
		)

		det := d.Detect(grid)

		require.NotNil(t, det.Profile)
		assert.Equal(t, "Revolut", det.Profile.Name)
		assert.Equal(t, 1.0, det.Confidence)
		assert.Equal(t, 3, det.Suggested.Column(mapping.FieldDate))
		assert.Equal(t, 4, det.Suggested.Column(mapping.FieldDescription))
		assert.Equal(t, 5, det.Suggested.Column(mapping.FieldAmount))
		assert.Equal(t, 8, det.Suggested.Column(mapping.FieldStatus))
	})

	t.Run("matches Portuguese headers case and accent insensitively", func(t *testing.T) {
		grid := gridWithHeaders("data mov.", "DATA VALOR", "descricao", "montante", "saldo contabilistico", "situacao")

		det := d.Detect(grid)

		require.NotNil(t, det.Profile)
		assert.Equal(t, "Caixa Geral de Depósitos", det.Profile.Name)
		assert.Equal(t, 0, det.Suggested.Column(mapping.FieldDate))
		assert.Equal(t, 2, det.Suggested.Column(mapping.FieldDescription))
		assert.Equal(t, 3, det.Suggested.Column(mapping.FieldAmount))
	})

	t.Run("tolerates minor header spelling drift", func(t *testing.T) {
		grid := gridWithHeaders(
			"Type", "Product", "Started Date", "Completd Date", "Descripton",
			"Amount", "Fee", "Currency", "State", "Balance",
		)

		det := d.Detect(grid)

		require.NotNil(t, det.Profile)
		assert.Equal(t, "Revolut", det.Profile.Name)
	})

	t.Run("seeds the direction column for ING exports", func(t *testing.T) {
		grid := gridWithHeaders(
			"Date", "Name / Description", "Account", "Counterparty", "Code",
			"Debit/credit", "Amount (EUR)", "Transaction type", "Notifications",
		)

		det := d.Detect(grid)

		require.NotNil(t, det.Profile)
		assert.Equal(t, "ING", det.Profile.Name)
		assert.Equal(t, 5, det.Suggested.Column(mapping.FieldDirection))
		assert.Equal(t, 6, det.Suggested.Column(mapping.FieldAmount))
	})

	t.Run("falls back to keyword suggestions below the confidence floor", func(t *testing.T) {
		grid := gridWithHeaders("Fecha", "Concepto", "Importe", "Saldo")

		det := d.Detect(grid)

		assert.Nil(t, det.Profile)
		assert.Less(t, det.Confidence, MinConfidence)
		assert.Equal(t, 0, det.Suggested.Column(mapping.FieldDate))
		assert.Equal(t, 1, det.Suggested.Column(mapping.FieldDescription))
		assert.Equal(t, 2, det.Suggested.Column(mapping.FieldAmount))
	})

	t.Run("keyword fallback never maps two fields to one column", func(t *testing.T) {
		grid := gridWithHeaders("transaction date", "value date", "details", "value")

		det := d.Detect(grid)

		assert.Nil(t, det.Profile)
		seen := map[int]bool{}
		for _, f := range mapping.Fields() {
			col := det.Suggested.Column(f)
			if col == mapping.Unset {
				continue
			}
			assert.False(t, seen[col], "column %d claimed twice", col)
			seen[col] = true
		}
	})

	t.Run("unknown headers yield an empty suggestion", func(t *testing.T) {
		grid := gridWithHeaders("aaa", "bbb", "ccc")

		det := d.Detect(grid)

		assert.Nil(t, det.Profile)
		for _, f := range mapping.Fields() {
			assert.False(t, det.Suggested.Mapped(f))
		}
	})
}

func TestNormalizeHeader(t *testing.T) {
	assert.Equal(t, "descricao", normalizeHeader("  Descrição "))
	assert.Equal(t, "montante", normalizeHeader("MONTANTE"))
	assert.Equal(t, "credit", normalizeHeader("Crédit"))
}
