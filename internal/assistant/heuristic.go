package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"claimintake/internal/domain"
	"claimintake/internal/port"
)

// Heuristic classifies and fills claims with fixed rules. It needs no
// external service and is the default assistant.
type Heuristic struct{}

// NewHeuristic creates a rule-based assistant.
func NewHeuristic() *Heuristic { return &Heuristic{} }

func (h *Heuristic) Classify(_ context.Context, receipts []domain.ReceiptRecord, policy *domain.PolicyContext) (string, error) {
	return string(ClassifyReceipts(receipts, AvailableClaimTypes(policy))), nil
}

// ClassifyReceipts picks HOSPITALISATION when any receipt describes a hospital
// stay and OUTPATIENT otherwise, restricted to the available claim types. An
// empty available list means no restriction.
func ClassifyReceipts(receipts []domain.ReceiptRecord, available []string) domain.ClaimType {
	allowed := func(ct domain.ClaimType) bool {
		if len(available) == 0 {
			return true
		}
		for _, a := range available {
			if a == string(ct) {
				return true
			}
		}
		return false
	}

	hasStay := false
	for _, r := range receipts {
		if r.HasHospitalStay() {
			hasStay = true
			break
		}
	}

	if hasStay && allowed(domain.ClaimTypeHospitalisation) {
		return domain.ClaimTypeHospitalisation
	}
	if !hasStay && allowed(domain.ClaimTypeOutpatient) {
		return domain.ClaimTypeOutpatient
	}
	if allowed(domain.ClaimTypeHospitalisation) {
		return domain.ClaimTypeHospitalisation
	}
	return domain.ClaimType(available[0])
}

// AvailableClaimTypes returns the claim types the client's policies allow,
// in first-seen order.
func AvailableClaimTypes(policy *domain.PolicyContext) []string {
	if policy == nil {
		return nil
	}
	if len(policy.AvailableTypes) > 0 {
		return policy.AvailableTypes
	}
	seen := make(map[string]bool)
	var out []string
	for _, p := range policy.Policies {
		for _, ct := range p.ClaimTypes {
			if !seen[ct] {
				seen[ct] = true
				out = append(out, ct)
			}
		}
	}
	return out
}

func (h *Heuristic) Assemble(_ context.Context, in port.AssembleInput) (*port.AssembleOutput, error) {
	claim, missing := FillClaim(in.ClaimType, in.Receipts, in.Policy)

	raw, err := json.Marshal(claim)
	if err != nil {
		return nil, fmt.Errorf("assistant.Heuristic: marshaling claim: %w", err)
	}

	out := &port.AssembleOutput{
		Claim:     raw,
		Status:    domain.AssistantCompleted,
		Message:   "All claim details were filled from your receipts and policy.",
		ModelUsed: "heuristic",
	}
	if len(missing) > 0 {
		out.Status = domain.AssistantGatheringRequired
		out.Message = "Please provide: " + strings.Join(missing, ", ") + "."
	}
	return out, nil
}

// FillClaim builds a candidate claim from the receipts and policy context.
// Values that cannot be derived are left out and listed in missing; nothing
// is defaulted.
func FillClaim(claimType domain.ClaimType, receipts []domain.ReceiptRecord, policy *domain.PolicyContext) (map[string]any, []string) {
	claim := map[string]any{"claimType": claimType}
	var missing []string
	set := func(key, value string) {
		if value == "" {
			missing = append(missing, key)
			return
		}
		claim[key] = value
	}

	var clientID, policyID, lifeAssured string
	if policy != nil {
		clientID, policyID, lifeAssured = policy.ClientID, policy.PolicyID, policy.LifeAssuredID
		if sel := policy.SelectedPolicy(); sel != nil {
			if policyID == "" {
				policyID = sel.Policy.ID
			}
			if lifeAssured == "" && len(sel.Policy.LivesAssured) > 0 {
				lifeAssured = sel.Policy.LivesAssured[0].ID
			}
		}
	}
	set("clientId", clientID)
	set("policyId", policyID)
	set("lifeAssured", lifeAssured)

	details := map[string]any{"claimingFromOtherInsurers": false}
	var total float64
	var haveAmount bool
	documents := []domain.ClaimDocument{}
	for _, r := range receipts {
		if _, ok := details["hospitalName"]; !ok && r.HospitalName != nil {
			details["hospitalName"] = *r.HospitalName
		}
		if r.Amount != nil {
			total += *r.Amount
			haveAmount = true
		}
		documents = append(documents, r.Documents...)
	}
	if _, ok := details["hospitalName"]; !ok {
		missing = append(missing, "details.hospitalName")
	}
	if haveAmount {
		details["finalAmount"] = total
	} else {
		missing = append(missing, "details.finalAmount")
	}
	claim["details"] = details

	if receipts == nil {
		receipts = []domain.ReceiptRecord{}
	}
	claim["receipts"] = receipts
	claim["documents"] = documents

	if payout := payoutFromPolicy(policy, claimCurrency(receipts)); payout != nil {
		claim["payout"] = payout
	} else {
		missing = append(missing, "payout")
	}

	return claim, missing
}

func claimCurrency(receipts []domain.ReceiptRecord) string {
	for _, r := range receipts {
		if r.Currency != nil {
			return r.Currency.Code
		}
	}
	return ""
}

// payoutFromPolicy picks the first active payout method, preferring one in
// the claim currency. Account fields the method lacks are omitted.
func payoutFromPolicy(policy *domain.PolicyContext, currency string) map[string]any {
	if policy == nil {
		return nil
	}
	var chosen *domain.PayoutMethod
	for i := range policy.PayoutMethods {
		m := &policy.PayoutMethods[i]
		if !strings.EqualFold(m.Status, "ACTIVE") {
			continue
		}
		if chosen == nil {
			chosen = m
		}
		if currency != "" && m.Currency.Code == currency {
			chosen = m
			break
		}
	}
	if chosen == nil {
		return nil
	}

	account := map[string]any{
		"name":       chosen.Account.Name,
		"account_no": chosen.Account.AccountNo,
	}
	if chosen.Account.Holder != "" {
		account["holder"] = chosen.Account.Holder
	}
	if chosen.Account.BranchCode != nil {
		account["branch_code"] = *chosen.Account.BranchCode
	}

	return map[string]any{
		"mode":     chosen.Mode,
		"currency": chosen.Currency,
		"account":  account,
	}
}
