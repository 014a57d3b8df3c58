package port

import (
	"context"

	"claimintake/internal/domain"
)

// ExtractInput is one receipt file handed to extraction.
type ExtractInput struct {
	FileBytes   []byte
	ContentType string
	FileName    string
	// DocumentID identifies the upload; it becomes the id of the receipt's document entry.
	DocumentID string
}

// RawReceipt holds field values as read from the document, before
// normalisation. Empty strings mean "not found".
type RawReceipt struct {
	ReceiptNumber string            `json:"receipt_number"`
	ReceiptDate   string            `json:"receipt_date"`
	AdmissionDate string            `json:"admission_date"`
	DischargeDate string            `json:"discharge_date"`
	Hospital      string            `json:"hospital"`
	Currency      string            `json:"currency"`
	BillAmount    string            `json:"bill_amount"`
	GST           string            `json:"gst"`
	DocumentType  string            `json:"document_type"`
	BillItems     []domain.BillItem `json:"bill_items"`
}

// IsEmpty reports whether no field was found at all.
func (r RawReceipt) IsEmpty() bool {
	return r.ReceiptNumber == "" && r.ReceiptDate == "" && r.AdmissionDate == "" &&
		r.DischargeDate == "" && r.Hospital == "" && r.Currency == "" &&
		r.BillAmount == "" && r.GST == "" && len(r.BillItems) == 0
}

// ProviderOutput is what a single extraction provider returns.
type ProviderOutput struct {
	Fields          RawReceipt
	Confidence      map[string]float64 // keyed by RawReceipt JSON names
	Markdown        string
	ModelUsed       string
	FieldProvenance map[string]string
	SecondaryModel  string
}

// DocumentExtractor is implemented by each extraction provider (and by the
// fallback and merge combinators).
type DocumentExtractor interface {
	Extract(ctx context.Context, input ExtractInput) (*ProviderOutput, error)
}

// ReceiptExtraction is a normalised, invariant-checked extraction result.
type ReceiptExtraction struct {
	Record     domain.ReceiptRecord `json:"record"`
	Confidence map[string]float64   `json:"confidence"` // keyed by ReceiptRecord JSON names
	BillItems  []domain.BillItem    `json:"billItems,omitempty"`
	GST        *float64             `json:"gst,omitempty"`
	Markdown   string               `json:"-"`
	ModelUsed  string               `json:"modelUsed"`
	Provenance map[string]string    `json:"provenance,omitempty"`
	Warnings   []string             `json:"warnings,omitempty"`
}

// ReceiptExtractor is the document extraction client consumed by the intake
// pipeline. Failures are *domain.ExtractionFailure.
type ReceiptExtractor interface {
	Extract(ctx context.Context, input ExtractInput) (*ReceiptExtraction, error)
}
