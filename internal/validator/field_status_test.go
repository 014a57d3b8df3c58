package validator_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"claimintake/internal/domain"
	"claimintake/internal/validator"
)

func TestComputeFieldStatuses(t *testing.T) {
	violations := []validator.Violation{
		{Path: "payout.currency.symbol", Constraint: validator.ConstraintRequired, Message: "symbol is required"},
		{Path: "payout.currency.symbol", Constraint: validator.ConstraintGrouping, Message: "has a dependency on symbol"},
		{Path: "receipts[0].amount", Constraint: validator.ConstraintType, Actual: json.RawMessage(`"x"`), Message: "Invalid type"},
	}
	confidence := map[string]float64{
		"receipts[0].amount":      0.9,
		"receipts[0].number":      0.95,
		"receipts[0].receiptDate": 0.4,
	}

	statuses := validator.ComputeFieldStatuses(violations, confidence)

	require.Len(t, statuses, 4)
	assert.Equal(t, domain.FieldStatusMissing, statuses["payout.currency.symbol"].Status)
	assert.Len(t, statuses["payout.currency.symbol"].Messages, 2)
	assert.Equal(t, domain.FieldStatusInvalid, statuses["receipts[0].amount"].Status)
	assert.Equal(t, domain.FieldStatusValid, statuses["receipts[0].number"].Status)
	assert.Equal(t, domain.FieldStatusUnsure, statuses["receipts[0].receiptDate"].Status)
	assert.Empty(t, statuses["receipts[0].number"].Messages)
}

func TestComputeFieldStatuses_Empty(t *testing.T) {
	assert.Empty(t, validator.ComputeFieldStatuses(nil, nil))
}
