package decoder

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProbeDialect(t *testing.T) {
	t.Run("decimal comma implies European formatting", func(t *testing.T) {
		rows := [][]string{
			{"15/01/2024", "Café", "-4,50"},
			{"16/01/2024", "Salário", "1.250,00"},
		}

		d := ProbeDialect(rows, 2, 0)

		assert.True(t, d.EuropeanFormat)
		assert.True(t, d.DayFirst)
		assert.Equal(t, 1.0, d.Confidence)
	})

	t.Run("decimal dot implies US formatting", func(t *testing.T) {
		rows := [][]string{
			{"01/15/2024", "Coffee", "-4.50"},
			{"01/16/2024", "Salary", "1,250.00"},
		}

		d := ProbeDialect(rows, 2, 0)

		assert.False(t, d.EuropeanFormat)
		assert.False(t, d.DayFirst)
	})

	t.Run("a day over twelve proves day-first", func(t *testing.T) {
		rows := [][]string{
			{"25/01/2024", "Coffee", "-4.50"},
		}

		d := ProbeDialect(rows, 2, 0)

		assert.True(t, d.DayFirst)
	})

	t.Run("no usable samples keeps defaults", func(t *testing.T) {
		d := ProbeDialect(nil, 0, 1)

		assert.False(t, d.EuropeanFormat)
		assert.True(t, d.DayFirst)
		assert.Equal(t, 0.5, d.Confidence)
	})

	t.Run("ambiguous dates keep day-first despite US-style amounts", func(t *testing.T) {
		rows := [][]string{
			{"01/03/2024", "Virement salaire", "2500.00"},
			{"05/03/2024", "Carte restaurant", "-12.50"},
		}

		d := ProbeDialect(rows, 2, 0)

		assert.False(t, d.EuropeanFormat)
		assert.True(t, d.DayFirst)
	})

	t.Run("only a second part over twelve proves month-first", func(t *testing.T) {
		rows := [][]string{
			{"01/25/2024", "Coffee", "-4.50"},
		}

		d := ProbeDialect(rows, 2, 0)

		assert.False(t, d.DayFirst)
	})

	t.Run("ISO dates prove neither order", func(t *testing.T) {
		rows := [][]string{
			{"2024-01-15", "Coffee", "-4.50"},
		}

		d := ProbeDialect(rows, 2, 0)

		assert.True(t, d.DayFirst)
	})

	t.Run("majority wins on mixed amount formats", func(t *testing.T) {
		rows := [][]string{
			{"15/01/2024", "", "1,50"},
			{"16/01/2024", "", "2,75"},
			{"17/01/2024", "", "3.10"},
		}

		d := ProbeDialect(rows, 2, 0)

		assert.True(t, d.EuropeanFormat)
		assert.InDelta(t, 2.0/3.0, d.Confidence, 1e-9)
	})
}
