// Package bankprofile recognizes known bank export formats from their
// header signatures and proposes a default column mapping. Its output is
// purely advisory: downstream stages treat it as a suggestion the user can
// override, never as a commitment.
package bankprofile

import (
	"github.com/FACorreiaa/statement-import/internal/domain/importer"
	"github.com/FACorreiaa/statement-import/internal/domain/importer/mapping"
)

// Profile describes one bank's export signature: the header names it
// emits and which canonical field each maps to.
type Profile struct {
	Name    string
	Country string

	// Signature maps canonical fields to the exact header name this bank
	// uses for them.
	Signature map[mapping.Field]string

	// ExtraHeaders are headers present in the export but not mapped to
	// any canonical field; they still count toward signature matching.
	ExtraHeaders []string

	// UnsignedAmountDirection overrides the global default applied when a
	// row's amount carries no sign and no direction column resolves it.
	UnsignedAmountDirection importer.Direction

	// Regional formatting defaults for this bank's exports.
	EuropeanFormat bool
	DayFirst       bool
}

// headerSet returns every header name in the signature.
func (p *Profile) headerSet() []string {
	headers := make([]string, 0, len(p.Signature)+len(p.ExtraHeaders))
	for _, f := range mapping.Fields() {
		if h, ok := p.Signature[f]; ok {
			headers = append(headers, h)
		}
	}
	headers = append(headers, p.ExtraHeaders...)
	return headers
}

// Registry returns the known bank export signatures. Order matters: when
// two profiles match a grid equally well, the earliest entry wins, which
// keeps detection deterministic.
func Registry() []*Profile {
	return []*Profile{
		{
			Name:    "Revolut",
			Country: "EU",
			Signature: map[mapping.Field]string{
				mapping.FieldDate:        "Completed Date",
				mapping.FieldDescription: "Description",
				mapping.FieldAmount:      "Amount",
				mapping.FieldStatus:      "State",
			},
			ExtraHeaders:            []string{"Type", "Product", "Started Date", "Fee", "Currency", "Balance"},
			UnsignedAmountDirection: importer.DirectionDebit,
			EuropeanFormat:          false,
			DayFirst:                false,
		},
		{
			Name:    "N26",
			Country: "DE",
			Signature: map[mapping.Field]string{
				mapping.FieldDate:         "Date",
				mapping.FieldCounterparty: "Payee",
				mapping.FieldDescription:  "Payment reference",
				mapping.FieldAmount:       "Amount (EUR)",
			},
			ExtraHeaders:            []string{"Account number", "Transaction type", "Amount (Foreign Currency)", "Type Foreign Currency"},
			UnsignedAmountDirection: importer.DirectionDebit,
			EuropeanFormat:          false,
			DayFirst:                false,
		},
		{
			Name:    "Boursorama",
			Country: "FR",
			Signature: map[mapping.Field]string{
				mapping.FieldDate:        "dateOp",
				mapping.FieldDescription: "label",
				mapping.FieldAmount:      "amount",
				mapping.FieldReference:   "comment",
			},
			ExtraHeaders:            []string{"dateVal", "category", "categoryParent", "supplierFound", "accountNum", "accountLabel", "accountbalance"},
			UnsignedAmountDirection: importer.DirectionDebit,
			EuropeanFormat:          true,
			DayFirst:                true,
		},
		{
			Name:    "ING",
			Country: "NL",
			Signature: map[mapping.Field]string{
				mapping.FieldDate:         "Date",
				mapping.FieldDescription:  "Name / Description",
				mapping.FieldCounterparty: "Counterparty",
				mapping.FieldAmount:       "Amount (EUR)",
				mapping.FieldDirection:    "Debit/credit",
			},
			ExtraHeaders: []string{"Account", "Code", "Transaction type", "Notifications"},
			// ING exports unsigned amounts; the Debit/credit column is
			// authoritative, so the unsigned default should never apply.
			UnsignedAmountDirection: importer.DirectionDebit,
			EuropeanFormat:          true,
			DayFirst:                false,
		},
		{
			Name:    "Millennium BCP",
			Country: "PT",
			Signature: map[mapping.Field]string{
				mapping.FieldDate:        "Data lançamento",
				mapping.FieldDescription: "Descrição",
				mapping.FieldAmount:      "Montante",
			},
			ExtraHeaders:            []string{"Data valor", "Moeda", "Saldo"},
			UnsignedAmountDirection: importer.DirectionDebit,
			EuropeanFormat:          true,
			DayFirst:                true,
		},
		{
			Name:    "Caixa Geral de Depósitos",
			Country: "PT",
			Signature: map[mapping.Field]string{
				mapping.FieldDate:        "Data mov.",
				mapping.FieldDescription: "Descrição",
				mapping.FieldAmount:      "Montante",
				mapping.FieldStatus:      "Situação",
			},
			ExtraHeaders:            []string{"Data valor", "Saldo contabilístico"},
			UnsignedAmountDirection: importer.DirectionDebit,
			EuropeanFormat:          true,
			DayFirst:                true,
		},
	}
}
