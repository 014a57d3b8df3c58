package domain

// Currency is all-or-nothing: code, name and symbol travel together.
type Currency struct {
	Code   string `json:"code"`
	Name   string `json:"name"`
	Symbol string `json:"symbol"`
}

// ClaimDocument is a supporting document reference tagged with its type.
type ClaimDocument struct {
	Type DocumentType `json:"type"`
	ID   string       `json:"id"`
}

// ReceiptRecord is one uploaded document's extracted data. Nil fields were
// not found by extraction and are never filled with placeholder values.
type ReceiptRecord struct {
	Number        *string         `json:"number,omitempty"`
	ReceiptDate   *string         `json:"receiptDate,omitempty"`
	AdmissionDate *string         `json:"admissionDate,omitempty"`
	DischargeDate *string         `json:"dischargeDate,omitempty"`
	HospitalName  *string         `json:"hospitalName,omitempty"`
	Currency      *Currency       `json:"currency,omitempty"`
	Amount        *float64        `json:"amount,omitempty"`
	Documents     []ClaimDocument `json:"documents"`
}

// HasHospitalStay reports whether the receipt describes an inpatient stay.
func (r ReceiptRecord) HasHospitalStay() bool {
	return r.AdmissionDate != nil && r.DischargeDate != nil && r.HospitalName != nil
}

// PopulatedFields lists the JSON names of the non-nil scalar fields.
func (r ReceiptRecord) PopulatedFields() []string {
	var out []string
	add := func(ok bool, name string) {
		if ok {
			out = append(out, name)
		}
	}
	add(r.Number != nil, "number")
	add(r.ReceiptDate != nil, "receiptDate")
	add(r.AdmissionDate != nil, "admissionDate")
	add(r.DischargeDate != nil, "dischargeDate")
	add(r.HospitalName != nil, "hospitalName")
	add(r.Currency != nil, "currency")
	add(r.Amount != nil, "amount")
	return out
}

// BillItem is a line on a hospital bill. Kept alongside the record for display.
type BillItem struct {
	Service string `json:"service"`
	Detail  string `json:"detail"`
	Amount  string `json:"amount"`
}

// ClaimDetails is the claim-type-specific payload.
type ClaimDetails struct {
	HospitalName              string  `json:"hospitalName"`
	ClaimingFromOtherInsurers bool    `json:"claimingFromOtherInsurers"`
	FinalAmount               float64 `json:"finalAmount"`
}

// BankAccount fields are mandatory together.
type BankAccount struct {
	Name       string `json:"name"`
	Holder     string `json:"holder"`
	BranchCode string `json:"branch_code"`
	AccountNo  string `json:"account_no"`
}

// PayoutInfo describes how an approved claim is paid.
type PayoutInfo struct {
	Mode     string      `json:"mode"`
	Currency Currency    `json:"currency"`
	Account  BankAccount `json:"account"`
}

// Claim is the top-level aggregate. Values of this type are only trusted once
// they come out of the validator.
type Claim struct {
	ClientID    string          `json:"clientId"`
	LifeAssured string          `json:"lifeAssured"`
	ClaimType   ClaimType       `json:"claimType"`
	PolicyID    string          `json:"policyId"`
	Details     ClaimDetails    `json:"details"`
	Receipts    []ReceiptRecord `json:"receipts"`
	Documents   []ClaimDocument `json:"documents"`
	Payout      PayoutInfo      `json:"payout"`
}

// TotalReceiptAmount sums the known receipt amounts.
func (c Claim) TotalReceiptAmount() float64 {
	var total float64
	for _, r := range c.Receipts {
		if r.Amount != nil {
			total += *r.Amount
		}
	}
	return total
}
