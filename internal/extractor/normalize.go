package extractor

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"claimintake/internal/domain"
	"claimintake/internal/port"
)

// ISODate is the date layout used on the wire.
const ISODate = "2006-01-02"

// dateLayouts are tried in order. Day-first layouts win for ambiguous
// numeric dates such as 03/04/2024.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02T15:04:05Z07:00",
	"2/1/2006",
	"2-1-2006",
	"2006/1/2",
	"2 Jan 2006",
	"2 January 2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"2-Jan-2006",
}

// ParseDate returns the ISO form of s, or false if no layout matches.
func ParseDate(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(ISODate), true
		}
	}
	return "", false
}

// ParseAmount strips currency markers and thousands separators and parses
// the remainder, e.g. "S$ 1,234.50" -> 1234.5.
func ParseAmount(s string) (float64, error) {
	var b strings.Builder
	var prev rune
	for _, r := range strings.TrimSpace(s) {
		switch {
		case r == '.' && unicode.IsLetter(prev):
			// abbreviation dot, e.g. "Rs. 500"
		case unicode.IsDigit(r), r == '.', r == '-':
			b.WriteRune(r)
		case r == ',', unicode.IsSpace(r), unicode.IsLetter(r), unicode.IsSymbol(r), r == '$':
		default:
			return 0, fmt.Errorf("unexpected character %q in amount %q", r, s)
		}
		prev = r
	}
	if b.Len() == 0 {
		return 0, errors.New("amount has no digits")
	}
	return strconv.ParseFloat(b.String(), 64)
}

// amountPrefix returns the non-numeric prefix of an amount, e.g. "S$" for "S$ 12.00".
func amountPrefix(s string) string {
	s = strings.TrimSpace(s)
	i := strings.IndexFunc(s, func(r rune) bool { return unicode.IsDigit(r) || r == '-' })
	if i <= 0 {
		return ""
	}
	return strings.TrimSpace(s[:i])
}

var rawToRecord = map[string]string{
	"receipt_number": "number",
	"receipt_date":   "receiptDate",
	"admission_date": "admissionDate",
	"discharge_date": "dischargeDate",
	"hospital":       "hospitalName",
	"currency":       "currency",
	"bill_amount":    "amount",
}

// Normalize converts provider fields into a ReceiptRecord. Values that cannot
// be interpreted are left nil and reported as warnings; nothing is invented.
func Normalize(raw port.RawReceipt, documentID string, catalog *CurrencyCatalog) (domain.ReceiptRecord, *float64, []string) {
	var rec domain.ReceiptRecord
	var warnings []string

	str := func(v string) *string {
		v = strings.TrimSpace(v)
		if v == "" {
			return nil
		}
		return &v
	}
	date := func(field, v string) *string {
		if strings.TrimSpace(v) == "" {
			return nil
		}
		iso, ok := ParseDate(v)
		if !ok {
			warnings = append(warnings, fmt.Sprintf("%s: unrecognised date %q", field, v))
			return nil
		}
		return &iso
	}

	rec.Number = str(raw.ReceiptNumber)
	rec.HospitalName = str(raw.Hospital)
	rec.ReceiptDate = date("receiptDate", raw.ReceiptDate)
	rec.AdmissionDate = date("admissionDate", raw.AdmissionDate)
	rec.DischargeDate = date("dischargeDate", raw.DischargeDate)

	if strings.TrimSpace(raw.BillAmount) != "" {
		amount, err := ParseAmount(raw.BillAmount)
		switch {
		case err != nil:
			warnings = append(warnings, fmt.Sprintf("amount: %v", err))
		case amount < 0:
			warnings = append(warnings, fmt.Sprintf("amount: negative value %v discarded", amount))
		default:
			rec.Amount = &amount
		}
	}

	currencyRaw := strings.TrimSpace(raw.Currency)
	if currencyRaw == "" {
		currencyRaw = amountPrefix(raw.BillAmount)
	}
	if currencyRaw != "" {
		if cur, ok := catalog.Lookup(currencyRaw); ok {
			rec.Currency = &cur
		} else {
			warnings = append(warnings, fmt.Sprintf("currency: %q not in catalogue", currencyRaw))
		}
	}

	var gst *float64
	if strings.TrimSpace(raw.GST) != "" {
		if v, err := ParseAmount(raw.GST); err == nil {
			gst = &v
		} else {
			warnings = append(warnings, fmt.Sprintf("gst: %v", err))
		}
	}

	docType := domain.DocumentTypeReceipt
	if raw.DocumentType != "" {
		dt, err := domain.ParseDocumentType(raw.DocumentType)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("documents: %v", err))
			docType = ""
		} else {
			docType = dt
		}
	}
	rec.Documents = []domain.ClaimDocument{}
	if docType != "" && documentID != "" {
		rec.Documents = append(rec.Documents, domain.ClaimDocument{Type: docType, ID: documentID})
	}

	return rec, gst, warnings
}

// RecordConfidence re-keys provider confidence to ReceiptRecord field names,
// keeping only fields that survived normalisation.
func RecordConfidence(rec domain.ReceiptRecord, conf map[string]float64) map[string]float64 {
	populated := make(map[string]bool)
	for _, f := range rec.PopulatedFields() {
		populated[f] = true
	}
	out := make(map[string]float64)
	for rawName, c := range conf {
		name, ok := rawToRecord[rawName]
		if !ok || !populated[name] {
			continue
		}
		out[name] = c
	}
	return out
}
