package validator

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"claimintake/internal/domain"
)

// receiptRule mirrors domain.ReceiptRecord with the record invariants as tags.
type receiptRule struct {
	Number        *string        `validate:"omitempty,min=1"`
	ReceiptDate   *string        `validate:"omitempty,datetime=2006-01-02"`
	AdmissionDate *string        `validate:"omitempty,datetime=2006-01-02"`
	DischargeDate *string        `validate:"omitempty,datetime=2006-01-02"`
	HospitalName  *string        `validate:"omitempty,min=1"`
	Currency      *currencyRule
	Amount        *float64       `validate:"omitempty,gte=0"`
	Documents     []documentRule `validate:"dive"`
}

type currencyRule struct {
	Code   string `validate:"required"`
	Name   string `validate:"required"`
	Symbol string `validate:"required"`
}

type documentRule struct {
	Type string `validate:"doctype"`
	ID   string `validate:"required"`
}

// RecordChecker enforces ReceiptRecord invariants: non-negative amount,
// all-or-nothing currency, ISO dates, and closed document type tags.
type RecordChecker struct {
	v *validator.Validate
}

// NewRecordChecker creates a RecordChecker.
func NewRecordChecker() *RecordChecker {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("doctype", func(fl validator.FieldLevel) bool {
		_, err := domain.ParseDocumentType(fl.Field().String())
		return err == nil
	})
	return &RecordChecker{v: v}
}

// Check returns nil when the record satisfies every invariant. The error lists
// each failing field by its JSON name.
func (c *RecordChecker) Check(r domain.ReceiptRecord) error {
	rule := receiptRule{
		Number:        r.Number,
		ReceiptDate:   r.ReceiptDate,
		AdmissionDate: r.AdmissionDate,
		DischargeDate: r.DischargeDate,
		HospitalName:  r.HospitalName,
		Amount:        r.Amount,
	}
	if r.Currency != nil {
		rule.Currency = &currencyRule{Code: r.Currency.Code, Name: r.Currency.Name, Symbol: r.Currency.Symbol}
	}
	for _, d := range r.Documents {
		rule.Documents = append(rule.Documents, documentRule{Type: string(d.Type), ID: d.ID})
	}

	err := c.v.Struct(rule)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return fmt.Errorf("checking receipt record: %w", err)
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fmt.Sprintf("%s (%s)", recordFieldName(fe.Namespace()), fe.Tag()))
	}
	return fmt.Errorf("receipt record violates invariants: %s", strings.Join(fields, ", "))
}

var recordJSONNames = map[string]string{
	"Number":        "number",
	"ReceiptDate":   "receiptDate",
	"AdmissionDate": "admissionDate",
	"DischargeDate": "dischargeDate",
	"HospitalName":  "hospitalName",
	"Currency":      "currency",
	"Amount":        "amount",
	"Documents":     "documents",
	"Code":          "code",
	"Name":          "name",
	"Symbol":        "symbol",
	"Type":          "type",
	"ID":            "id",
}

// recordFieldName turns "receiptRule.Currency.Code" into "currency.code".
func recordFieldName(ns string) string {
	parts := strings.Split(ns, ".")
	if len(parts) > 1 {
		parts = parts[1:]
	}
	for i, p := range parts {
		idx := ""
		if j := strings.IndexByte(p, '['); j >= 0 {
			p, idx = p[:j], p[j:]
		}
		if n, ok := recordJSONNames[p]; ok {
			p = n
		}
		parts[i] = p + idx
	}
	return strings.Join(parts, ".")
}
