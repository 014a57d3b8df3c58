package domain

import (
	"fmt"
	"strings"
)

// FileType represents the allowed receipt file types for upload.
type FileType string

const (
	FileTypePDF  FileType = "pdf"
	FileTypeJPG  FileType = "jpg"
	FileTypePNG  FileType = "png"
	FileTypeTIFF FileType = "tiff"
)

// AllowedFileTypes maps FileType to its MIME content type.
var AllowedFileTypes = map[FileType]string{
	FileTypePDF:  "application/pdf",
	FileTypeJPG:  "image/jpeg",
	FileTypePNG:  "image/png",
	FileTypeTIFF: "image/tiff",
}

// AllowedContentTypes maps MIME content types back to FileType.
var AllowedContentTypes = map[string]FileType{
	"application/pdf": FileTypePDF,
	"image/jpeg":      FileTypeJPG,
	"image/png":       FileTypePNG,
	"image/tiff":      FileTypeTIFF,
}

// AllowedExtensions maps file extensions (without dot) to FileType.
var AllowedExtensions = map[string]FileType{
	"pdf":  FileTypePDF,
	"jpg":  FileTypeJPG,
	"jpeg": FileTypeJPG,
	"png":  FileTypePNG,
	"tif":  FileTypeTIFF,
	"tiff": FileTypeTIFF,
}

// ClaimType identifies which claim schema applies. The set of accepted values
// is owned by the schema registry; the constants below are the shipped ones.
type ClaimType string

const (
	ClaimTypeHospitalisation ClaimType = "HOSPITALISATION"
	ClaimTypeOutpatient      ClaimType = "OUTPATIENT"
)

// DocumentType tags a claim-supporting document. Closed set.
type DocumentType string

const (
	DocumentTypeReceipt          DocumentType = "RECEIPT"
	DocumentTypeMedicalReport    DocumentType = "MEDICAL_REPORT"
	DocumentTypeSpecialistReport DocumentType = "SPECIALIST_REPORT"
	DocumentTypeHospitalBill     DocumentType = "HOSPITAL_BILL"
	DocumentTypeOthers           DocumentType = "OTHERS"
)

var documentTypes = map[DocumentType]struct{}{
	DocumentTypeReceipt:          {},
	DocumentTypeMedicalReport:    {},
	DocumentTypeSpecialistReport: {},
	DocumentTypeHospitalBill:     {},
	DocumentTypeOthers:           {},
}

// AllDocumentTypes returns the closed set in declaration order.
func AllDocumentTypes() []DocumentType {
	return []DocumentType{
		DocumentTypeReceipt,
		DocumentTypeMedicalReport,
		DocumentTypeSpecialistReport,
		DocumentTypeHospitalBill,
		DocumentTypeOthers,
	}
}

// ParseDocumentType accepts only exact tag spellings. "HospitalBill" or
// "hospital_bill" are rejected rather than coerced.
func ParseDocumentType(s string) (DocumentType, error) {
	dt := DocumentType(s)
	if _, ok := documentTypes[dt]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownDocumentType, s)
	}
	return dt, nil
}

func (d DocumentType) Valid() bool {
	_, ok := documentTypes[d]
	return ok
}

// PayoutMode is free text on the wire; these are the values the policy service returns.
const (
	PayoutModeDirectCredit = "DIRECT_CREDIT"
	PayoutModeCheque       = "CHEQUE"
	PayoutModePayNow       = "PAYNOW"
)

// SessionStatus is the lifecycle of an intake session.
type SessionStatus string

const (
	SessionStatusDraft      SessionStatus = "draft"
	SessionStatusQueued     SessionStatus = "queued"
	SessionStatusProcessing SessionStatus = "processing"
	SessionStatusValidated  SessionStatus = "validated"
	SessionStatusInvalid    SessionStatus = "invalid"
	SessionStatusFailed     SessionStatus = "failed"
	SessionStatusCancelled  SessionStatus = "cancelled"
	SessionStatusSubmitted  SessionStatus = "submitted"
)

// CanProcess reports whether a batch run may be (re)started from this status.
func (s SessionStatus) CanProcess() bool {
	switch s {
	case SessionStatusDraft, SessionStatusValidated, SessionStatusInvalid,
		SessionStatusFailed, SessionStatusCancelled:
		return true
	}
	return false
}

// CanUpload reports whether receipts may still be added.
func (s SessionStatus) CanUpload() bool {
	switch s {
	case SessionStatusQueued, SessionStatusProcessing, SessionStatusSubmitted:
		return false
	}
	return true
}

// ReceiptStatus tracks extraction of a single uploaded receipt.
type ReceiptStatus string

const (
	ReceiptStatusPending   ReceiptStatus = "pending"
	ReceiptStatusExtracted ReceiptStatus = "extracted"
	ReceiptStatusFailed    ReceiptStatus = "failed"
)

// AssistantStatus is the conversational state reported by an LLM assistant.
type AssistantStatus string

const (
	AssistantGatheringRequired AssistantStatus = "GATHERING_REQUIRED"
	AssistantGatheringOptional AssistantStatus = "GATHERING_OPTIONAL"
	AssistantCompleted         AssistantStatus = "COMPLETED"
)

// NormalizeAssistantStatus maps unknown values to GATHERING_REQUIRED.
func NormalizeAssistantStatus(s string) AssistantStatus {
	switch AssistantStatus(strings.ToUpper(strings.TrimSpace(s))) {
	case AssistantGatheringOptional:
		return AssistantGatheringOptional
	case AssistantCompleted:
		return AssistantCompleted
	}
	return AssistantGatheringRequired
}

// AuditAction names an entry in the session audit log.
type AuditAction string

const (
	AuditSessionCreated   AuditAction = "session.created"
	AuditReceiptUploaded  AuditAction = "receipt.uploaded"
	AuditBatchQueued      AuditAction = "batch.queued"
	AuditReceiptExtracted AuditAction = "receipt.extracted"
	AuditReceiptFailed    AuditAction = "receipt.failed"
	AuditClaimClassified  AuditAction = "claim.classified"
	AuditClaimValidated   AuditAction = "claim.validated"
	AuditClaimInvalid     AuditAction = "claim.invalid"
	AuditAssemblyFailed   AuditAction = "claim.assembly_failed"
	AuditSessionCancelled AuditAction = "session.cancelled"
	AuditClaimSubmitted   AuditAction = "claim.submitted"
)

// FieldValidationStatus is the per-field state shown in the draft view.
type FieldValidationStatus string

const (
	FieldStatusValid   FieldValidationStatus = "valid"
	FieldStatusInvalid FieldValidationStatus = "invalid"
	FieldStatusMissing FieldValidationStatus = "missing"
	FieldStatusUnsure  FieldValidationStatus = "unsure"
)
