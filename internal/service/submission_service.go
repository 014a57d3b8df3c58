package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"claimintake/internal/domain"
	"claimintake/internal/port"
	"claimintake/internal/schema"
	"claimintake/internal/validator"
)

// TransactionTypeClaim is the transaction type reported for submitted claims.
const TransactionTypeClaim = "CLAIM"

// SubmissionService submits validated claims.
type SubmissionService interface {
	Submit(ctx context.Context, clientID string, id uuid.UUID) (*domain.ClaimSubmitResponse, error)
}

type submissionService struct {
	sessionRepo port.SessionRepository
	auditRepo   port.SessionAuditRepository
	registry    *schema.Registry
	email       port.EmailSender
	logger      *zap.Logger
	now         func() time.Time
}

// NewSubmissionService creates a new SubmissionService. email may be nil.
func NewSubmissionService(
	sessionRepo port.SessionRepository,
	auditRepo port.SessionAuditRepository,
	registry *schema.Registry,
	email port.EmailSender,
	logger *zap.Logger,
) SubmissionService {
	return &submissionService{
		sessionRepo: sessionRepo,
		auditRepo:   auditRepo,
		registry:    registry,
		email:       email,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Submit re-validates the stored candidate before submitting it: stored data
// is untrusted again once it leaves the validator.
func (s *submissionService) Submit(ctx context.Context, clientID string, id uuid.UUID) (*domain.ClaimSubmitResponse, error) {
	sess, err := s.sessionRepo.GetByID(ctx, clientID, id)
	if err != nil {
		return nil, err
	}
	if sess.Status == domain.SessionStatusSubmitted {
		return nil, domain.ErrSessionClosed
	}
	if sess.Status != domain.SessionStatusValidated || sess.ClaimType == nil {
		return nil, domain.ErrNotValidated
	}

	claimType, err := s.registry.Resolve(*sess.ClaimType)
	if err != nil {
		return nil, err
	}
	sc, err := s.registry.GetSchema(claimType)
	if err != nil {
		return nil, err
	}
	result := validator.Validate(validator.NewCandidate(sess.Candidate), sc)
	accepted, ok := result.Accepted()
	if !ok {
		return nil, fmt.Errorf("%w: %d violations", domain.ErrNotValidated, len(result.Violations))
	}

	claim := accepted.Claim()
	resp := &domain.ClaimSubmitResponse{
		ClaimID:         newClaimID(),
		ClaimType:       claim.ClaimType,
		TransactionType: TransactionTypeClaim,
		SubmissionDate:  s.now(),
		PolicyIDs:       []string{claim.PolicyID},
		LifeAssured:     claim.LifeAssured,
		FinalAmount:     claim.Details.FinalAmount,
	}

	sess.ClaimID = &resp.ClaimID
	sess.SubmittedAt = &resp.SubmissionDate
	if err := s.sessionRepo.MarkSubmitted(ctx, sess); err != nil {
		if errors.Is(err, domain.ErrInvalidTransition) {
			return nil, domain.ErrNotValidated
		}
		return nil, fmt.Errorf("marking session submitted: %w", err)
	}
	sess.Status = domain.SessionStatusSubmitted

	s.audit(ctx, sess, resp)
	s.logger.Info("service.SubmissionService: claim submitted",
		zap.Stringer("session_id", sess.ID), zap.String("claim_id", resp.ClaimID))

	if s.email != nil && sess.NotifyEmail != "" {
		if err := s.email.SendClaimSubmitted(ctx, sess.NotifyEmail, resp); err != nil {
			// The claim is already submitted; a lost confirmation is not fatal.
			s.logger.Warn("service.SubmissionService: confirmation email failed",
				zap.String("claim_id", resp.ClaimID), zap.Error(err))
		}
	}
	return resp, nil
}

func (s *submissionService) audit(ctx context.Context, sess *domain.IntakeSession, resp *domain.ClaimSubmitResponse) {
	if s.auditRepo == nil {
		return
	}
	detail, _ := json.Marshal(map[string]string{"claim_id": resp.ClaimID, "claim_type": string(resp.ClaimType)})
	entry := &domain.SessionAuditEntry{
		ID:        uuid.New(),
		SessionID: sess.ID,
		ClientID:  sess.ClientID,
		Action:    domain.AuditClaimSubmitted,
		Detail:    detail,
	}
	if err := s.auditRepo.Create(ctx, entry); err != nil {
		s.logger.Warn("service.SubmissionService: failed to write audit entry", zap.Error(err))
	}
}

func newClaimID() string {
	return "CLM-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:12])
}
