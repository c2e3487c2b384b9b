package domain

import "time"

// InvoiceRecord holds the structured fields extracted from one invoice or
// quotation PDF. Every field except TaxIncluded is optional: a nil pointer
// means the model reported the value as absent. JSON tags keep the wire names
// the downstream ERP integration already consumes.
type InvoiceRecord struct {
	Currency     *string `json:"moneda"`
	TaxID        *string `json:"ruc"`
	Supplier     *string `json:"proveedor"`
	InvoiceCode  *string `json:"codigo_factura"`
	IssueDate    *string `json:"fecha_emision"`
	PaymentTerms *string `json:"forma_pago"`
	TaxIncluded  bool    `json:"igv"`
	Subtotal     *string `json:"sub_total"`
	Total        *string `json:"total"`
}

// Outcome describes one completed processing request: the extracted record,
// total wall-clock time since the first attempt, and the 1-based attempt
// index that succeeded.
type Outcome struct {
	Record  InvoiceRecord
	Elapsed time.Duration
	Attempt int
}

// Cookie is one credential record as persisted by the login flow. The file
// format predates this service (it was originally written by a browser
// automation script) and must stay readable by it.
type Cookie struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Domain string `json:"domain"`
	Path   string `json:"path"`
	Secure bool   `json:"secure"`
	Expiry int64  `json:"expiry,omitempty"`
}

// Organization is one entry from the upstream organizations listing. Only the
// UUID matters; the name is logged for operators.
type Organization struct {
	UUID string `json:"uuid"`
	Name string `json:"name"`
}
