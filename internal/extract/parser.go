// Package extract turns raw model answers into typed invoice records and
// orchestrates the retried processing sequence.
package extract

import (
	"strings"

	"github.com/nettalco/invoice-extractor/internal/domain"
)

// fieldCount is the number of comma-separated values the prompt asks for.
const fieldCount = 9

// truthyTokens are the values accepted as "tax included". The model answers
// in Spanish or English depending on the document, hence the mixed set.
var truthyTokens = map[string]bool{
	"true":      true,
	"yes":       true,
	"si":        true,
	"s":         true,
	"1":         true,
	"verdadero": true,
}

// Parser decodes the delimited-text answer into an InvoiceRecord. The
// contract is enforced by prompt design only, so the decoder is tolerant:
// short answers degrade to partially-populated records, and nothing the model
// says can make Parse fail.
type Parser struct {
	ownTaxID string
}

// NewParser creates a parser that discards ownTaxID when the model reports it
// as the supplier's tax id.
func NewParser(ownTaxID string) *Parser {
	return &Parser{ownTaxID: ownTaxID}
}

// Parse decodes one raw answer. Always returns a record, never an error.
func (p *Parser) Parse(raw string) domain.InvoiceRecord {
	parts := strings.Split(strings.TrimSpace(raw), ",")
	fields := make([]*string, fieldCount)

	// Only the literal null token means absent. Empty fields stay as empty
	// strings; the model writing "SOLES,," is a present-but-empty answer,
	// not a missing one.
	for i := 0; i < fieldCount && i < len(parts); i++ {
		v := strings.TrimSpace(parts[i])
		if strings.EqualFold(v, "null") {
			continue
		}
		value := v
		fields[i] = &value
	}

	taxID := fields[1]
	if taxID != nil && *taxID == p.ownTaxID {
		// The operator's own tax id must never be reported as the
		// counterparty's.
		taxID = nil
	}

	taxIncluded := false
	if fields[6] != nil {
		taxIncluded = truthyTokens[strings.ToLower(*fields[6])]
	}

	subtotal := fields[7]
	total := fields[8]
	if !taxIncluded && subtotal != nil && *subtotal != "" && total == nil {
		total = subtotal
	}

	return domain.InvoiceRecord{
		Currency:     fields[0],
		TaxID:        taxID,
		Supplier:     fields[2],
		InvoiceCode:  fields[3],
		IssueDate:    fields[4],
		PaymentTerms: fields[5],
		TaxIncluded:  taxIncluded,
		Subtotal:     subtotal,
		Total:        total,
	}
}
