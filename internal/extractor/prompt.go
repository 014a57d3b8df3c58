package extractor

// BuildReceiptPrompt returns the extraction prompt for medical receipts and hospital bills.
func BuildReceiptPrompt() string {
	return `You are a document data extraction assistant. Analyze the provided medical receipt or hospital bill and extract its data into the following JSON structure.

IMPORTANT INSTRUCTIONS:
- Copy values exactly as printed. Do not guess. If a field is not present on the document, return an empty string for it.
- Dates: return them as printed (for example 02/03/2024 or 2 Mar 2024). Do not reorder day and month.
- admission_date and discharge_date only apply to inpatient stays. Leave them empty for clinic or outpatient visits.
- currency: the ISO 4217 code if printed, otherwise the currency symbol or name as printed.
- bill_amount: the final amount payable including taxes, as printed.
- document_type: one of RECEIPT, MEDICAL_REPORT, SPECIALIST_REPORT, HOSPITAL_BILL, OTHERS.
- Extract EVERY bill line into bill_items.

Return ONLY valid JSON with no markdown formatting, no code fences, no explanation.

Return two top-level keys: "data" and "confidence_scores".

The "data" object must follow this schema:
{
  "receipt_number": "",
  "receipt_date": "",
  "admission_date": "",
  "discharge_date": "",
  "hospital": "",
  "currency": "",
  "bill_amount": "",
  "gst": "",
  "document_type": "",
  "bill_items": [
    {"service": "", "detail": "", "amount": ""}
  ]
}

The "confidence_scores" object has one number between 0 and 1 for each scalar key of "data" (receipt_number, receipt_date, admission_date, discharge_date, hospital, currency, bill_amount, gst, document_type), reflecting how certain you are that the value was read correctly. Use 0 for empty fields.`
}
