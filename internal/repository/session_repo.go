package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"claimintake/internal/domain"
	"claimintake/internal/port"
)

var sessionColumns = []string{
	"id", "client_id", "policy_id", "life_assured_id", "notify_email",
	"status", "attempt", "claim_type", "candidate", "violations", "outcome",
	"failure_stage", "failure_detail", "assistant_note",
	"claim_id", "submitted_at", "created_at", "updated_at",
}

type sessionRepo struct {
	db *sqlx.DB
	sb sq.StatementBuilderType
}

// NewSessionRepo creates a new SQL-backed SessionRepository.
func NewSessionRepo(db *sqlx.DB) port.SessionRepository {
	return &sessionRepo{db: db, sb: builder(db)}
}

func (r *sessionRepo) Create(ctx context.Context, s *domain.IntakeSession) error {
	now := time.Now().UTC()
	s.CreatedAt = now
	s.UpdatedAt = now
	if s.Status == "" {
		s.Status = domain.SessionStatusDraft
	}

	query, args, err := r.sb.Insert("intake_sessions").
		Columns(sessionColumns...).
		Values(
			s.ID, s.ClientID, s.PolicyID, s.LifeAssuredID, s.NotifyEmail,
			s.Status, s.Attempt, s.ClaimType, nullJSON(s.Candidate), nullJSON(s.Violations), nullJSON(s.Outcome),
			s.FailureStage, s.FailureDetail, s.AssistantNote,
			s.ClaimID, s.SubmittedAt, s.CreatedAt, s.UpdatedAt,
		).ToSql()
	if err != nil {
		return fmt.Errorf("sessionRepo.Create build: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("sessionRepo.Create: %w", err)
	}
	return nil
}

func (r *sessionRepo) get(ctx context.Context, where sq.Eq) (*domain.IntakeSession, error) {
	query, args, err := r.sb.Select(sessionColumns...).From("intake_sessions").Where(where).ToSql()
	if err != nil {
		return nil, fmt.Errorf("sessionRepo.get build: %w", err)
	}
	var row sessionRow
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("sessionRepo.get: %w", err)
	}
	s := row.toDomain()
	return &s, nil
}

func (r *sessionRepo) GetByID(ctx context.Context, clientID string, id uuid.UUID) (*domain.IntakeSession, error) {
	return r.get(ctx, sq.Eq{"id": id, "client_id": clientID})
}

// GetByIDInternal fetches a session without client scoping (worker use only).
func (r *sessionRepo) GetByIDInternal(ctx context.Context, id uuid.UUID) (*domain.IntakeSession, error) {
	return r.get(ctx, sq.Eq{"id": id})
}

func (r *sessionRepo) ListByClient(ctx context.Context, clientID string, status *domain.SessionStatus, offset, limit int) ([]domain.IntakeSession, int, error) {
	where := sq.Eq{"client_id": clientID}
	if status != nil {
		where["status"] = *status
	}

	countQuery, countArgs, err := r.sb.Select("COUNT(*)").From("intake_sessions").Where(where).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("sessionRepo.ListByClient count build: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, countArgs...); err != nil {
		return nil, 0, fmt.Errorf("sessionRepo.ListByClient count: %w", err)
	}

	query, args, err := r.sb.Select(sessionColumns...).From("intake_sessions").
		Where(where).
		OrderBy("created_at DESC").
		Limit(uint64(limit)).
		Offset(uint64(offset)).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("sessionRepo.ListByClient build: %w", err)
	}
	var rows []sessionRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("sessionRepo.ListByClient: %w", err)
	}
	return sessionsFromRows(rows), total, nil
}

func (r *sessionRepo) TransitionStatus(ctx context.Context, id uuid.UUID, from []domain.SessionStatus, to domain.SessionStatus) (bool, error) {
	query, args, err := r.sb.Update("intake_sessions").
		Set("status", to).
		Set("updated_at", time.Now().UTC()).
		Where(sq.Eq{"id": id, "status": from}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("sessionRepo.TransitionStatus build: %w", err)
	}
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("sessionRepo.TransitionStatus: %w", err)
	}
	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

// SaveOutcome stores a finished run. It only applies while the session is
// still processing; a cancelled run gets ErrInvalidTransition.
func (r *sessionRepo) SaveOutcome(ctx context.Context, s *domain.IntakeSession) error {
	s.UpdatedAt = time.Now().UTC()
	query, args, err := r.sb.Update("intake_sessions").
		SetMap(map[string]interface{}{
			"status":         s.Status,
			"attempt":        s.Attempt,
			"claim_type":     s.ClaimType,
			"candidate":      nullJSON(s.Candidate),
			"violations":     nullJSON(s.Violations),
			"outcome":        nullJSON(s.Outcome),
			"failure_stage":  s.FailureStage,
			"failure_detail": s.FailureDetail,
			"assistant_note": s.AssistantNote,
			"updated_at":     s.UpdatedAt,
		}).
		Where(sq.Eq{"id": s.ID, "status": domain.SessionStatusProcessing}).
		ToSql()
	if err != nil {
		return fmt.Errorf("sessionRepo.SaveOutcome build: %w", err)
	}
	return r.execGuarded(ctx, s.ID, "SaveOutcome", query, args)
}

// MarkSubmitted records the claim id. Only a validated session can be submitted.
func (r *sessionRepo) MarkSubmitted(ctx context.Context, s *domain.IntakeSession) error {
	s.UpdatedAt = time.Now().UTC()
	query, args, err := r.sb.Update("intake_sessions").
		Set("status", domain.SessionStatusSubmitted).
		Set("claim_id", s.ClaimID).
		Set("submitted_at", s.SubmittedAt).
		Set("updated_at", s.UpdatedAt).
		Where(sq.Eq{"id": s.ID, "status": domain.SessionStatusValidated}).
		ToSql()
	if err != nil {
		return fmt.Errorf("sessionRepo.MarkSubmitted build: %w", err)
	}
	return r.execGuarded(ctx, s.ID, "MarkSubmitted", query, args)
}

func (r *sessionRepo) execGuarded(ctx context.Context, id uuid.UUID, op, query string, args []interface{}) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("sessionRepo.%s: %w", op, err)
	}
	rows, _ := result.RowsAffected()
	if rows > 0 {
		return nil
	}
	if _, err := r.GetByIDInternal(ctx, id); err != nil {
		return err
	}
	return domain.ErrInvalidTransition
}

// ClaimQueued moves up to limit queued sessions to processing, oldest first.
func (r *sessionRepo) ClaimQueued(ctx context.Context, limit int) ([]domain.IntakeSession, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("sessionRepo.ClaimQueued begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	pick := r.sb.Select("id").From("intake_sessions").
		Where(sq.Eq{"status": domain.SessionStatusQueued}).
		OrderBy("updated_at").
		Limit(uint64(limit))
	if r.db.DriverName() != driverSQLite {
		pick = pick.Suffix("FOR UPDATE SKIP LOCKED")
	}
	query, args, err := pick.ToSql()
	if err != nil {
		return nil, fmt.Errorf("sessionRepo.ClaimQueued build: %w", err)
	}
	var ids []uuid.UUID
	if err := tx.SelectContext(ctx, &ids, query, args...); err != nil {
		return nil, fmt.Errorf("sessionRepo.ClaimQueued select: %w", err)
	}
	if len(ids) == 0 {
		return []domain.IntakeSession{}, nil
	}

	query, args, err = r.sb.Update("intake_sessions").
		Set("status", domain.SessionStatusProcessing).
		Set("updated_at", time.Now().UTC()).
		Where(sq.Eq{"id": ids, "status": domain.SessionStatusQueued}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("sessionRepo.ClaimQueued update build: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return nil, fmt.Errorf("sessionRepo.ClaimQueued update: %w", err)
	}

	query, args, err = r.sb.Select(sessionColumns...).From("intake_sessions").
		Where(sq.Eq{"id": ids}).
		OrderBy("created_at").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("sessionRepo.ClaimQueued reload build: %w", err)
	}
	var rows []sessionRow
	if err := tx.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("sessionRepo.ClaimQueued reload: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("sessionRepo.ClaimQueued commit: %w", err)
	}
	return sessionsFromRows(rows), nil
}
