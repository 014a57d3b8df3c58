package port

import (
	"context"

	"github.com/google/uuid"

	"claimintake/internal/domain"
)

// SessionRepository defines the contract for intake session persistence.
type SessionRepository interface {
	Create(ctx context.Context, s *domain.IntakeSession) error
	GetByID(ctx context.Context, clientID string, id uuid.UUID) (*domain.IntakeSession, error)
	GetByIDInternal(ctx context.Context, id uuid.UUID) (*domain.IntakeSession, error)
	ListByClient(ctx context.Context, clientID string, status *domain.SessionStatus, offset, limit int) ([]domain.IntakeSession, int, error)
	// TransitionStatus moves a session to "to" only if it is currently in one of "from".
	// It returns false when the session was not in an allowed state.
	TransitionStatus(ctx context.Context, id uuid.UUID, from []domain.SessionStatus, to domain.SessionStatus) (bool, error)
	SaveOutcome(ctx context.Context, s *domain.IntakeSession) error
	MarkSubmitted(ctx context.Context, s *domain.IntakeSession) error
	// ClaimQueued atomically moves up to limit queued sessions to processing and returns them.
	ClaimQueued(ctx context.Context, limit int) ([]domain.IntakeSession, error)
}

// ReceiptRepository defines the contract for uploaded receipt persistence.
type ReceiptRepository interface {
	Create(ctx context.Context, r *domain.ReceiptUpload) error
	// Append stores r at the next free position of its session and sets r.Position.
	Append(ctx context.Context, r *domain.ReceiptUpload) error
	ListBySession(ctx context.Context, sessionID uuid.UUID) ([]domain.ReceiptUpload, error)
	UpdateResult(ctx context.Context, r *domain.ReceiptUpload) error
	ResetBySession(ctx context.Context, sessionID uuid.UUID) error
}

// SessionAuditRepository defines the contract for session audit log persistence.
type SessionAuditRepository interface {
	Create(ctx context.Context, entry *domain.SessionAuditEntry) error
	ListBySession(ctx context.Context, sessionID uuid.UUID, offset, limit int) ([]domain.SessionAuditEntry, int, error)
}
