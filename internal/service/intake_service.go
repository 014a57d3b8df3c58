package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"claimintake/internal/config"
	"claimintake/internal/domain"
	"claimintake/internal/port"
	"claimintake/internal/schema"
)

// CreateSessionInput is the DTO for starting an intake session.
type CreateSessionInput struct {
	ClientID      string
	PolicyID      string
	LifeAssuredID string
	NotifyEmail   string
}

// UploadReceiptInput is the DTO for adding a receipt to a session.
type UploadReceiptInput struct {
	ClientID  string
	SessionID uuid.UUID
	FileName  string
	Size      int64
	Body      io.Reader
}

// SessionView is a session with its receipts in upload order.
type SessionView struct {
	Session  *domain.IntakeSession  `json:"session"`
	Receipts []domain.ReceiptUpload `json:"receipts"`
}

// IntakeService defines the intake session contract used by the presentation layer.
type IntakeService interface {
	CreateSession(ctx context.Context, input CreateSessionInput) (*domain.IntakeSession, error)
	GetSession(ctx context.Context, clientID string, id uuid.UUID) (*SessionView, error)
	ListSessions(ctx context.Context, clientID string, status *domain.SessionStatus, offset, limit int) ([]domain.IntakeSession, int, error)
	UploadReceipt(ctx context.Context, input UploadReceiptInput) (*domain.ReceiptUpload, error)
	ReceiptURL(ctx context.Context, clientID string, sessionID, receiptID uuid.UUID) (string, error)
	// Process starts a batch run. With wait the run happens inline and the
	// settled session is returned; otherwise the session is queued.
	Process(ctx context.Context, clientID string, id uuid.UUID, wait bool) (*domain.IntakeSession, error)
	// Retry re-runs the full batch of a session that has already run.
	Retry(ctx context.Context, clientID string, id uuid.UUID, wait bool) (*domain.IntakeSession, error)
	Cancel(ctx context.Context, clientID string, id uuid.UUID) (*domain.IntakeSession, error)
	// RunSession executes one batch run for a session already in processing.
	RunSession(ctx context.Context, sess *domain.IntakeSession) error
	ListAudit(ctx context.Context, clientID string, id uuid.UUID, offset, limit int) ([]domain.SessionAuditEntry, int, error)
	EligiblePolicies(ctx context.Context, clientID string) ([]domain.EligiblePolicy, error)
	DocumentChecklist(ctx context.Context, claimType string) ([]domain.DocumentChecklistItem, error)
}

var processableStatuses = []domain.SessionStatus{
	domain.SessionStatusDraft,
	domain.SessionStatusValidated,
	domain.SessionStatusInvalid,
	domain.SessionStatusFailed,
	domain.SessionStatusCancelled,
}

type intakeService struct {
	sessionRepo port.SessionRepository
	receiptRepo port.ReceiptRepository
	auditRepo   port.SessionAuditRepository
	storage     port.ReceiptFileStore
	policies    port.PolicyDirectory
	pipeline    *Pipeline
	registry    *schema.Registry
	s3Cfg       *config.S3Config
	maxBytes    int64
	logger      *zap.Logger

	mu   sync.Mutex
	runs map[uuid.UUID]context.CancelFunc
}

// NewIntakeService creates a new IntakeService. policies may be nil when no
// policy service is configured.
func NewIntakeService(
	sessionRepo port.SessionRepository,
	receiptRepo port.ReceiptRepository,
	auditRepo port.SessionAuditRepository,
	storage port.ReceiptFileStore,
	policies port.PolicyDirectory,
	pipeline *Pipeline,
	registry *schema.Registry,
	s3Cfg *config.S3Config,
	extractionCfg *config.ExtractionConfig,
	logger *zap.Logger,
) IntakeService {
	maxMB := extractionCfg.MaxFileSizeMB
	if maxMB <= 0 {
		maxMB = 10
	}
	return &intakeService{
		sessionRepo: sessionRepo,
		receiptRepo: receiptRepo,
		auditRepo:   auditRepo,
		storage:     storage,
		policies:    policies,
		pipeline:    pipeline,
		registry:    registry,
		s3Cfg:       s3Cfg,
		maxBytes:    maxMB * 1024 * 1024,
		logger:      logger,
		runs:        make(map[uuid.UUID]context.CancelFunc),
	}
}

func (s *intakeService) audit(ctx context.Context, sess *domain.IntakeSession, action domain.AuditAction, detail map[string]interface{}) {
	if s.auditRepo == nil {
		return
	}
	raw := json.RawMessage("{}")
	if detail != nil {
		if b, err := json.Marshal(detail); err == nil {
			raw = b
		}
	}
	entry := &domain.SessionAuditEntry{
		ID:        uuid.New(),
		SessionID: sess.ID,
		ClientID:  sess.ClientID,
		Action:    action,
		Detail:    raw,
	}
	if err := s.auditRepo.Create(ctx, entry); err != nil {
		s.logger.Warn("service.IntakeService: failed to write audit entry",
			zap.String("action", string(action)), zap.Stringer("session_id", sess.ID), zap.Error(err))
	}
}

func (s *intakeService) CreateSession(ctx context.Context, input CreateSessionInput) (*domain.IntakeSession, error) {
	if strings.TrimSpace(input.ClientID) == "" {
		return nil, domain.ErrMissingClientID
	}
	sess := &domain.IntakeSession{
		ID:            uuid.New(),
		ClientID:      input.ClientID,
		PolicyID:      input.PolicyID,
		LifeAssuredID: input.LifeAssuredID,
		NotifyEmail:   input.NotifyEmail,
		Status:        domain.SessionStatusDraft,
	}
	if err := s.sessionRepo.Create(ctx, sess); err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}
	s.audit(ctx, sess, domain.AuditSessionCreated, map[string]interface{}{"policy_id": sess.PolicyID})
	s.logger.Info("service.IntakeService: session created",
		zap.Stringer("session_id", sess.ID), zap.String("client_id", sess.ClientID))
	return sess, nil
}

func (s *intakeService) GetSession(ctx context.Context, clientID string, id uuid.UUID) (*SessionView, error) {
	sess, err := s.sessionRepo.GetByID(ctx, clientID, id)
	if err != nil {
		return nil, err
	}
	receipts, err := s.receiptRepo.ListBySession(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("listing receipts: %w", err)
	}
	return &SessionView{Session: sess, Receipts: receipts}, nil
}

func (s *intakeService) ListSessions(ctx context.Context, clientID string, status *domain.SessionStatus, offset, limit int) ([]domain.IntakeSession, int, error) {
	return s.sessionRepo.ListByClient(ctx, clientID, status, offset, limit)
}

func (s *intakeService) UploadReceipt(ctx context.Context, input UploadReceiptInput) (*domain.ReceiptUpload, error) {
	sess, err := s.sessionRepo.GetByID(ctx, input.ClientID, input.SessionID)
	if err != nil {
		return nil, err
	}
	if sess.Status == domain.SessionStatusSubmitted {
		return nil, domain.ErrSessionClosed
	}
	if !sess.Status.CanUpload() {
		return nil, domain.ErrSessionBusy
	}

	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(input.FileName), "."))
	if _, ok := domain.AllowedExtensions[ext]; !ok {
		return nil, domain.ErrUnsupportedFileType
	}
	if input.Size > s.maxBytes {
		return nil, domain.ErrFileTooLarge
	}

	data, err := io.ReadAll(io.LimitReader(input.Body, s.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading upload: %w", err)
	}
	if int64(len(data)) > s.maxBytes {
		return nil, domain.ErrFileTooLarge
	}

	// Trust the bytes, not the extension.
	contentType, ok := detectContentType(data)
	if !ok {
		return nil, domain.ErrUnsupportedFileType
	}

	receiptID := uuid.New()
	key := fmt.Sprintf("sessions/%s/receipts/%s/%s", sess.ID, receiptID, filepath.Base(input.FileName))
	if _, err := s.storage.Put(ctx, port.ReceiptFile{
		Bucket:      s.s3Cfg.Bucket,
		Key:         key,
		Body:        bytes.NewReader(data),
		ContentType: contentType,
		Size:        int64(len(data)),
		Metadata: map[string]string{
			"session-id": sess.ID.String(),
			"client-id":  sess.ClientID,
		},
	}); err != nil {
		s.logger.Error("service.IntakeService: storage upload failed", zap.String("key", key), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", domain.ErrUploadFailed, err)
	}

	receipt := &domain.ReceiptUpload{
		ID:          receiptID,
		SessionID:   sess.ID,
		FileName:    filepath.Base(input.FileName),
		ContentType: contentType,
		FileSize:    int64(len(data)),
		S3Bucket:    s.s3Cfg.Bucket,
		S3Key:       key,
		Status:      domain.ReceiptStatusPending,
	}
	// The position is allocated on insert so concurrent uploads keep distinct slots.
	if err := s.receiptRepo.Append(ctx, receipt); err != nil {
		if delErr := s.storage.Delete(ctx, s.s3Cfg.Bucket, key); delErr != nil {
			s.logger.Warn("service.IntakeService: orphaned receipt object", zap.String("key", key), zap.Error(delErr))
		}
		return nil, fmt.Errorf("creating receipt: %w", err)
	}

	s.audit(ctx, sess, domain.AuditReceiptUploaded, map[string]interface{}{
		"receipt_id": receipt.ID.String(), "file_name": receipt.FileName, "position": receipt.Position,
	})
	return receipt, nil
}

func detectContentType(data []byte) (string, bool) {
	m := mimetype.Detect(data)
	for ct := range domain.AllowedContentTypes {
		if m.Is(ct) {
			return ct, true
		}
	}
	return "", false
}

func (s *intakeService) ReceiptURL(ctx context.Context, clientID string, sessionID, receiptID uuid.UUID) (string, error) {
	view, err := s.GetSession(ctx, clientID, sessionID)
	if err != nil {
		return "", err
	}
	for _, r := range view.Receipts {
		if r.ID == receiptID {
			return s.storage.SignedURL(ctx, r.S3Bucket, r.S3Key, time.Duration(s.s3Cfg.PresignExpiry)*time.Second)
		}
	}
	return "", domain.ErrNotFound
}

func (s *intakeService) Process(ctx context.Context, clientID string, id uuid.UUID, wait bool) (*domain.IntakeSession, error) {
	sess, err := s.sessionRepo.GetByID(ctx, clientID, id)
	if err != nil {
		return nil, err
	}
	return s.start(ctx, sess, wait)
}

func (s *intakeService) Retry(ctx context.Context, clientID string, id uuid.UUID, wait bool) (*domain.IntakeSession, error) {
	sess, err := s.sessionRepo.GetByID(ctx, clientID, id)
	if err != nil {
		return nil, err
	}
	if sess.Attempt == 0 && sess.Status == domain.SessionStatusDraft {
		return nil, domain.ErrInvalidTransition
	}
	return s.start(ctx, sess, wait)
}

func (s *intakeService) start(ctx context.Context, sess *domain.IntakeSession, wait bool) (*domain.IntakeSession, error) {
	if sess.Status == domain.SessionStatusSubmitted {
		return nil, domain.ErrSessionClosed
	}
	if !sess.Status.CanProcess() {
		return nil, domain.ErrSessionBusy
	}
	receipts, err := s.receiptRepo.ListBySession(ctx, sess.ID)
	if err != nil {
		return nil, fmt.Errorf("listing receipts: %w", err)
	}
	if len(receipts) == 0 {
		return nil, domain.ErrNoReceipts
	}

	target := domain.SessionStatusQueued
	if wait {
		target = domain.SessionStatusProcessing
	}
	ok, err := s.sessionRepo.TransitionStatus(ctx, sess.ID, processableStatuses, target)
	if err != nil {
		return nil, fmt.Errorf("updating session status: %w", err)
	}
	if !ok {
		return nil, domain.ErrSessionBusy
	}
	sess.Status = target
	s.audit(ctx, sess, domain.AuditBatchQueued, map[string]interface{}{
		"receipts": len(receipts), "inline": wait, "attempt": sess.Attempt + 1,
	})

	if !wait {
		return sess, nil
	}
	if err := s.RunSession(ctx, sess); err != nil {
		return nil, err
	}
	return s.sessionRepo.GetByIDInternal(context.WithoutCancel(ctx), sess.ID)
}

func (s *intakeService) Cancel(ctx context.Context, clientID string, id uuid.UUID) (*domain.IntakeSession, error) {
	sess, err := s.sessionRepo.GetByID(ctx, clientID, id)
	if err != nil {
		return nil, err
	}
	switch sess.Status {
	case domain.SessionStatusSubmitted:
		return nil, domain.ErrSessionClosed
	case domain.SessionStatusQueued, domain.SessionStatusProcessing:
	default:
		return nil, domain.ErrInvalidTransition
	}

	ok, err := s.sessionRepo.TransitionStatus(ctx, id,
		[]domain.SessionStatus{domain.SessionStatusQueued, domain.SessionStatusProcessing},
		domain.SessionStatusCancelled)
	if err != nil {
		return nil, fmt.Errorf("updating session status: %w", err)
	}
	if !ok {
		return nil, domain.ErrInvalidTransition
	}

	inFlight := s.cancelRun(id)
	sess.Status = domain.SessionStatusCancelled
	s.audit(ctx, sess, domain.AuditSessionCancelled, map[string]interface{}{"in_flight": inFlight})
	s.logger.Info("service.IntakeService: session cancelled",
		zap.Stringer("session_id", id), zap.Bool("in_flight", inFlight))
	return sess, nil
}

func (s *intakeService) trackRun(id uuid.UUID, cancel context.CancelFunc) {
	s.mu.Lock()
	s.runs[id] = cancel
	s.mu.Unlock()
}

func (s *intakeService) untrackRun(id uuid.UUID) {
	s.mu.Lock()
	delete(s.runs, id)
	s.mu.Unlock()
}

func (s *intakeService) cancelRun(id uuid.UUID) bool {
	s.mu.Lock()
	cancel, ok := s.runs[id]
	s.mu.Unlock()
	if ok {
		cancel()
	}
	return ok
}

func (s *intakeService) RunSession(ctx context.Context, sess *domain.IntakeSession) error {
	runCtx, cancel := context.WithCancel(ctx)
	s.trackRun(sess.ID, cancel)
	defer func() {
		s.untrackRun(sess.ID)
		cancel()
	}()

	// Writes below must land even when the run itself was cancelled.
	saveCtx := context.WithoutCancel(ctx)

	if err := s.receiptRepo.ResetBySession(saveCtx, sess.ID); err != nil {
		return fmt.Errorf("resetting receipts: %w", err)
	}
	receipts, err := s.receiptRepo.ListBySession(saveCtx, sess.ID)
	if err != nil {
		return fmt.Errorf("listing receipts: %w", err)
	}

	inputs := make([]PipelineInput, len(receipts))
	for i := range receipts {
		r := receipts[i]
		inputs[i] = PipelineInput{
			ExtractInput: port.ExtractInput{
				ContentType: r.ContentType,
				FileName:    r.FileName,
				DocumentID:  r.ID.String(),
			},
			Fetch: func(ctx context.Context) ([]byte, error) {
				return s.storage.Fetch(ctx, r.S3Bucket, r.S3Key)
			},
		}
	}

	policy := s.policyContext(runCtx, sess)
	sess.Attempt++

	outcome, err := s.pipeline.RunWithProgress(runCtx, inputs, policy, func(res ReceiptResult) {
		s.saveReceiptResult(saveCtx, sess, receipts[res.Index], res)
	})
	if err != nil {
		// Cancel usually moved the session already; this covers a dropped
		// caller context or a run that ran out of time.
		to := domain.SessionStatusCancelled
		if errors.Is(err, context.DeadlineExceeded) {
			to = domain.SessionStatusFailed
		}
		if _, tErr := s.sessionRepo.TransitionStatus(saveCtx, sess.ID,
			[]domain.SessionStatus{domain.SessionStatusProcessing}, to); tErr != nil {
			s.logger.Warn("service.IntakeService: failed to settle aborted session",
				zap.Stringer("session_id", sess.ID), zap.Error(tErr))
		}
		s.logger.Info("service.IntakeService: run aborted",
			zap.Stringer("session_id", sess.ID), zap.Error(err))
		return nil
	}

	applyOutcome(sess, outcome)
	if err := s.sessionRepo.SaveOutcome(saveCtx, sess); err != nil {
		if errors.Is(err, domain.ErrInvalidTransition) {
			s.logger.Info("service.IntakeService: session left processing during run, outcome dropped",
				zap.Stringer("session_id", sess.ID))
			return nil
		}
		return fmt.Errorf("saving outcome: %w", err)
	}

	switch {
	case outcome.Failure != nil:
		s.audit(saveCtx, sess, domain.AuditAssemblyFailed, map[string]interface{}{
			"stage": string(outcome.Failure.Stage), "error": outcome.Failure.Error(),
		})
	case outcome.Valid():
		s.audit(saveCtx, sess, domain.AuditClaimClassified, map[string]interface{}{"claim_type": string(outcome.ClaimType)})
		s.audit(saveCtx, sess, domain.AuditClaimValidated, map[string]interface{}{"schema_id": outcome.Validation.SchemaID})
	default:
		s.audit(saveCtx, sess, domain.AuditClaimClassified, map[string]interface{}{"claim_type": string(outcome.ClaimType)})
		s.audit(saveCtx, sess, domain.AuditClaimInvalid, map[string]interface{}{"violations": len(outcome.Validation.Violations)})
	}
	return nil
}

// applyOutcome copies a settled run onto the session.
func applyOutcome(sess *domain.IntakeSession, o *Outcome) {
	sess.ClaimType = nil
	sess.Candidate = nil
	sess.Violations = nil
	sess.FailureStage = nil
	sess.FailureDetail = nil
	sess.AssistantNote = nil

	if raw, err := json.Marshal(o); err == nil {
		sess.Outcome = raw
	}

	if o.Failure != nil {
		stage := string(o.Failure.Stage)
		detail := o.Failure.Error()
		sess.Status = domain.SessionStatusFailed
		sess.FailureStage = &stage
		sess.FailureDetail = &detail
		return
	}

	ct := string(o.ClaimType)
	sess.ClaimType = &ct
	sess.Candidate = o.Candidate
	if o.AssistantMessage != "" {
		note := o.AssistantMessage
		sess.AssistantNote = &note
	}
	if raw, err := json.Marshal(o.Validation.Violations); err == nil {
		sess.Violations = raw
	}
	if o.Valid() {
		sess.Status = domain.SessionStatusValidated
	} else {
		sess.Status = domain.SessionStatusInvalid
	}
}

func (s *intakeService) saveReceiptResult(ctx context.Context, sess *domain.IntakeSession, r domain.ReceiptUpload, res ReceiptResult) {
	if res.Succeeded() {
		r.Status = domain.ReceiptStatusExtracted
		r.Record, _ = json.Marshal(res.Extraction.Record)
		r.Confidence, _ = json.Marshal(res.Extraction.Confidence)
		model := res.Extraction.ModelUsed
		r.ModelUsed = &model
		r.FailureReason = nil
		r.FailureDetail = nil
	} else {
		reason := string(res.Failure.Reason)
		detail := res.Failure.Error()
		r.Status = domain.ReceiptStatusFailed
		r.Record = nil
		r.Confidence = nil
		r.FailureReason = &reason
		r.FailureDetail = &detail
	}
	if err := s.receiptRepo.UpdateResult(ctx, &r); err != nil {
		s.logger.Error("service.IntakeService: failed to save receipt result",
			zap.Stringer("receipt_id", r.ID), zap.Error(err))
	}

	if res.Succeeded() {
		s.audit(ctx, sess, domain.AuditReceiptExtracted, map[string]interface{}{
			"receipt_id": r.ID.String(), "model": res.Extraction.ModelUsed,
		})
		return
	}
	s.audit(ctx, sess, domain.AuditReceiptFailed, map[string]interface{}{
		"receipt_id": r.ID.String(), "reason": string(res.Failure.Reason),
	})
}

// policyContext gathers what the assembly client may use. Policy service
// errors degrade the context rather than failing the run.
func (s *intakeService) policyContext(ctx context.Context, sess *domain.IntakeSession) *domain.PolicyContext {
	pc := &domain.PolicyContext{
		ClientID:      sess.ClientID,
		PolicyID:      sess.PolicyID,
		LifeAssuredID: sess.LifeAssuredID,
	}
	if s.policies != nil {
		policies, err := s.policies.EligiblePolicies(ctx, sess.ClientID)
		if err != nil {
			s.logger.Warn("service.IntakeService: eligible policies unavailable", zap.Error(err))
		}
		pc.Policies = policies

		if sel := pc.SelectedPolicy(); sel != nil {
			methods, err := s.policies.PayoutMethods(ctx, sel.Policy.ID)
			if err != nil {
				s.logger.Warn("service.IntakeService: payout methods unavailable", zap.Error(err))
			}
			pc.PayoutMethods = methods
		}

		currencies, err := s.policies.Currencies(ctx)
		if err != nil {
			s.logger.Warn("service.IntakeService: currencies unavailable", zap.Error(err))
		}
		pc.Currencies = currencies
	}
	pc.AvailableTypes = availableTypes(s.registry.ClaimTypes(), pc.Policies)
	return pc
}

// availableTypes restricts the registered claim types to those the client's
// policies allow. Without policies every registered type is available.
func availableTypes(registered []domain.ClaimType, policies []domain.EligiblePolicy) []string {
	allowed := make(map[string]bool)
	for _, p := range policies {
		for _, ct := range p.ClaimTypes {
			allowed[ct] = true
		}
	}
	out := make([]string, 0, len(registered))
	for _, ct := range registered {
		if len(allowed) == 0 || allowed[string(ct)] {
			out = append(out, string(ct))
		}
	}
	if len(out) == 0 {
		for _, ct := range registered {
			out = append(out, string(ct))
		}
	}
	return out
}

func (s *intakeService) ListAudit(ctx context.Context, clientID string, id uuid.UUID, offset, limit int) ([]domain.SessionAuditEntry, int, error) {
	if _, err := s.sessionRepo.GetByID(ctx, clientID, id); err != nil {
		return nil, 0, err
	}
	return s.auditRepo.ListBySession(ctx, id, offset, limit)
}

func (s *intakeService) EligiblePolicies(ctx context.Context, clientID string) ([]domain.EligiblePolicy, error) {
	if clientID == "" {
		return nil, domain.ErrMissingClientID
	}
	if s.policies == nil {
		return []domain.EligiblePolicy{}, nil
	}
	return s.policies.EligiblePolicies(ctx, clientID)
}

func (s *intakeService) DocumentChecklist(ctx context.Context, claimType string) ([]domain.DocumentChecklistItem, error) {
	ct, err := s.registry.Resolve(claimType)
	if err != nil {
		return nil, err
	}
	if s.policies == nil {
		return []domain.DocumentChecklistItem{}, nil
	}
	return s.policies.DocumentChecklist(ctx, ct)
}
