package domain

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrNotFound             = errors.New("resource not found")
	ErrForbidden            = errors.New("forbidden")
	ErrMissingClientID      = errors.New("client id is required")
	ErrUnsupportedFileType  = errors.New("unsupported file type")
	ErrFileTooLarge         = errors.New("file exceeds maximum allowed size")
	ErrUploadFailed         = errors.New("file upload to storage failed")
	ErrUnknownClaimType     = errors.New("unknown claim type")
	ErrUnknownDocumentType  = errors.New("unknown document type")
	ErrExtractionFailed     = errors.New("receipt extraction failed")
	ErrAssemblyFailed       = errors.New("claim assembly failed")
	ErrClaimInvalid         = errors.New("claim does not conform to its schema")
	ErrSessionNotFound      = errors.New("intake session not found")
	ErrSessionBusy          = errors.New("intake session is being processed")
	ErrSessionClosed        = errors.New("intake session is already submitted")
	ErrNoReceipts           = errors.New("intake session has no receipts")
	ErrNotValidated         = errors.New("claim has not passed validation")
	ErrInvalidTransition    = errors.New("invalid session status transition")
	ErrPolicyServiceFailure = errors.New("policy service request failed")
)

// ExtractionReason classifies why a single receipt could not be extracted.
type ExtractionReason string

const (
	ReasonUnreadable        ExtractionReason = "unreadable"
	ReasonUnsupportedFormat ExtractionReason = "unsupported_format"
	ReasonLowConfidence     ExtractionReason = "low_confidence"
	ReasonServiceError      ExtractionReason = "service_error"
)

// ExtractionFailure is a per-receipt failure. It never aborts the batch.
type ExtractionFailure struct {
	Reason ExtractionReason
	Err    error
}

func NewExtractionFailure(reason ExtractionReason, err error) *ExtractionFailure {
	return &ExtractionFailure{Reason: reason, Err: err}
}

func (e *ExtractionFailure) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("extraction failed: %s", e.Reason)
	}
	return fmt.Sprintf("extraction failed (%s): %v", e.Reason, e.Err)
}

func (e *ExtractionFailure) Unwrap() error { return e.Err }

func (e *ExtractionFailure) Is(target error) bool { return target == ErrExtractionFailed }

// MarshalJSON renders the failure as {reason, detail}.
func (e *ExtractionFailure) MarshalJSON() ([]byte, error) {
	return json.Marshal(failureJSON{Reason: string(e.Reason), Detail: errDetail(e.Err)})
}

// AsExtractionFailure converts any error into an ExtractionFailure, treating
// errors that are not already classified as service errors.
func AsExtractionFailure(err error) *ExtractionFailure {
	var ef *ExtractionFailure
	if errors.As(err, &ef) {
		return ef
	}
	return NewExtractionFailure(ReasonServiceError, err)
}

// AssemblyStage names the batch-level step that failed.
type AssemblyStage string

const (
	StageClassify AssemblyStage = "classify"
	StageAssemble AssemblyStage = "assemble"
)

// AssemblyFailure is a batch-level failure surfaced wholesale with a retry option.
type AssemblyFailure struct {
	Stage AssemblyStage
	Err   error
}

func NewAssemblyFailure(stage AssemblyStage, err error) *AssemblyFailure {
	return &AssemblyFailure{Stage: stage, Err: err}
}

func (e *AssemblyFailure) Error() string {
	return fmt.Sprintf("claim assembly failed at %s: %v", e.Stage, e.Err)
}

func (e *AssemblyFailure) Unwrap() error { return e.Err }

func (e *AssemblyFailure) Is(target error) bool { return target == ErrAssemblyFailed }

// MarshalJSON renders the failure as {stage, detail}.
func (e *AssemblyFailure) MarshalJSON() ([]byte, error) {
	return json.Marshal(failureJSON{Stage: string(e.Stage), Detail: errDetail(e.Err)})
}

type failureJSON struct {
	Reason string `json:"reason,omitempty"`
	Stage  string `json:"stage,omitempty"`
	Detail string `json:"detail,omitempty"`
}

func errDetail(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
