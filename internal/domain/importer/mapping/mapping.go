// Package mapping holds the authoritative assignment of canonical
// transaction fields to source column indices. It is seeded by the bank
// profile detector and edited by the user; the completeness check gates
// the transition from mapping to validation.
package mapping

import (
	"errors"
	"fmt"
)

// Field is one of the fixed canonical transaction attributes.
type Field string

const (
	FieldDate         Field = "date"
	FieldDescription  Field = "description"
	FieldAmount       Field = "amount"
	FieldDirection    Field = "direction"
	FieldReference    Field = "reference"
	FieldCounterparty Field = "counterparty"
	FieldStatus       Field = "status"
)

// Fields returns every canonical field in display order.
func Fields() []Field {
	return []Field{
		FieldDate, FieldDescription, FieldAmount, FieldDirection,
		FieldReference, FieldCounterparty, FieldStatus,
	}
}

// Unset marks a canonical field with no source column assigned.
const Unset = -1

var (
	ErrUnknownField  = errors.New("unknown canonical field")
	ErrColumnTaken   = errors.New("source column already mapped to another field")
	ErrInvalidColumn = errors.New("source column index out of range")
)

// ColumnMapping maps canonical fields to source column indices.
// Assignments are one-to-one: two fields may never share a column.
type ColumnMapping struct {
	cols map[Field]int
}

// New returns a mapping with every canonical field unset.
func New() ColumnMapping {
	cols := make(map[Field]int, len(Fields()))
	for _, f := range Fields() {
		cols[f] = Unset
	}
	return ColumnMapping{cols: cols}
}

// Clone returns an independent copy. Snapshots handed to other pipeline
// stages must not alias the session's live mapping.
func (m ColumnMapping) Clone() ColumnMapping {
	clone := New()
	for f, c := range m.cols {
		clone.cols[f] = c
	}
	return clone
}

// Set assigns a source column to a canonical field. Passing Unset clears
// the assignment.
func (m ColumnMapping) Set(field Field, col int) error {
	if _, ok := m.cols[field]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	if col < Unset {
		return fmt.Errorf("%w: %d", ErrInvalidColumn, col)
	}
	if col != Unset {
		for other, assigned := range m.cols {
			if other != field && assigned == col {
				return fmt.Errorf("%w: column %d is %s", ErrColumnTaken, col, other)
			}
		}
	}
	m.cols[field] = col
	return nil
}

// Column returns the source column for a field, or Unset.
func (m ColumnMapping) Column(field Field) int {
	if m.cols == nil {
		return Unset
	}
	col, ok := m.cols[field]
	if !ok {
		return Unset
	}
	return col
}

// Mapped reports whether the field has a source column assigned.
func (m ColumnMapping) Mapped(field Field) bool {
	return m.Column(field) != Unset
}

// Completeness is the result of the mandatory-field check.
type Completeness struct {
	Complete        bool
	MissingRequired []Field
}

// Completeness recomputes the mandatory-field check. Date and description
// are always required; amount is required unless a direction column is
// mapped. The check is pure and never cached.
func (m ColumnMapping) Completeness() Completeness {
	required := []Field{FieldDate, FieldDescription}
	if !m.Mapped(FieldDirection) {
		required = append(required, FieldAmount)
	}

	var missing []Field
	for _, f := range required {
		if !m.Mapped(f) {
			missing = append(missing, f)
		}
	}
	return Completeness{Complete: len(missing) == 0, MissingRequired: missing}
}
