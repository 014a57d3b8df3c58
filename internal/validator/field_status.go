package validator

import (
	"claimintake/internal/domain"
)

// FieldStatus represents the computed validation state for a single field path.
type FieldStatus struct {
	Status   domain.FieldValidationStatus `json:"status"`
	Messages []string                     `json:"messages"`
}

// UnsureConfidence is the confidence at or below which an extracted field is
// shown as unsure when no violation names it.
const UnsureConfidence = 0.5

// ComputeFieldStatuses derives per-field statuses from violations and extraction
// confidence. confidenceMap maps claim field paths (e.g. "receipts[0].amount")
// to confidence values.
func ComputeFieldStatuses(
	violations []Violation,
	confidenceMap map[string]float64,
) map[string]*FieldStatus {
	statuses := make(map[string]*FieldStatus)

	for _, v := range violations {
		fs, ok := statuses[v.Path]
		if !ok {
			fs = &FieldStatus{Status: domain.FieldStatusMissing, Messages: []string{}}
			statuses[v.Path] = fs
		}
		// Anything other than absence makes the field invalid.
		if v.Constraint != ConstraintRequired && v.Constraint != ConstraintGrouping {
			fs.Status = domain.FieldStatusInvalid
		}
		fs.Messages = append(fs.Messages, v.Message)
	}

	// For fields with confidence scores but no violations,
	// derive status from confidence alone.
	for fieldPath, confidence := range confidenceMap {
		if _, exists := statuses[fieldPath]; exists {
			continue
		}
		status := domain.FieldStatusValid
		if confidence <= UnsureConfidence {
			status = domain.FieldStatusUnsure
		}
		statuses[fieldPath] = &FieldStatus{Status: status, Messages: []string{}}
	}

	return statuses
}
