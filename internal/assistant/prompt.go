package assistant

import (
	"encoding/json"
	"fmt"
	"strings"

	"claimintake/internal/domain"
	"claimintake/internal/port"
)

// SystemInstruction is sent with every assistant request.
const SystemInstruction = `You are an insurance claim submission assistant. You analyse receipt data extracted from medical documents, decide which claim type applies and fill the claim schema with information from the receipts and the client's policy data.

Claim types:
- HOSPITALISATION: hospital stays with admission and discharge dates.
- OUTPATIENT: doctor or clinic visits without hospital admission.
Only choose a claim type that is available in the client's policies.

Rules:
- Never invent values. If a value is not in the receipts or the policy data, leave the field out.
- Copy receipt records exactly as given; do not recompute dates or amounts.
- Document type tags are exactly one of RECEIPT, MEDICAL_REPORT, SPECIALIST_REPORT, HOSPITAL_BILL, OTHERS.
- Choose the payout method whose currency matches the claim currency when there is one.

Return ONLY valid JSON with no markdown formatting, no code fences, no explanation.`

// BuildClassifyPrompt asks for a claim type decision.
func BuildClassifyPrompt(receipts []domain.ReceiptRecord, available []string) string {
	var b strings.Builder
	b.WriteString("Decide the claim type for these receipts.\n\n")
	if len(available) > 0 {
		fmt.Fprintf(&b, "Claim types available in the client's policies: %s\n\n", strings.Join(available, ", "))
	}
	b.WriteString("Receipts:\n")
	b.WriteString(mustJSON(receipts))
	b.WriteString("\n\nRespond with {\"claimType\": \"<claim type>\"}.")
	return b.String()
}

// BuildAssemblePrompt asks for a filled claim in the response envelope.
func BuildAssemblePrompt(in port.AssembleInput) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Fill a %s claim.\n\n", in.ClaimType)
	b.WriteString("The claim must conform to this JSON Schema:\n")
	b.Write(in.Schema)
	b.WriteString("\n\nReceipts, in upload order:\n")
	b.WriteString(mustJSON(in.Receipts))
	if in.Policy != nil {
		b.WriteString("\n\nClient and policy data:\n")
		b.WriteString(mustJSON(in.Policy))
	}
	b.WriteString(`

Respond with an object with these keys:
{
  "claimType": "<claim type>",
  "claim": { ...the filled claim... },
  "status": "GATHERING_REQUIRED | GATHERING_OPTIONAL | COMPLETED",
  "message": "<one short message to the client, e.g. which required details are still missing>"
}
Use GATHERING_REQUIRED while any required field is missing, GATHERING_OPTIONAL when only optional details are missing, COMPLETED when the claim is ready to submit.`)
	return b.String()
}

func mustJSON(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "null"
	}
	return string(b)
}
