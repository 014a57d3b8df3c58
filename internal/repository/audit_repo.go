package repository

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"claimintake/internal/domain"
	"claimintake/internal/port"
)

type sessionAuditRepo struct {
	db *sqlx.DB
	sb sq.StatementBuilderType
}

// NewSessionAuditRepo creates a new SQL-backed SessionAuditRepository.
func NewSessionAuditRepo(db *sqlx.DB) port.SessionAuditRepository {
	return &sessionAuditRepo{db: db, sb: builder(db)}
}

func (r *sessionAuditRepo) Create(ctx context.Context, entry *domain.SessionAuditEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	query, args, err := r.sb.Insert("session_audit").
		Columns("id", "session_id", "client_id", "action", "detail", "created_at").
		Values(entry.ID, entry.SessionID, entry.ClientID, entry.Action, nullJSON(entry.Detail), entry.CreatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("sessionAuditRepo.Create build: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("sessionAuditRepo.Create: %w", err)
	}
	return nil
}

// ListBySession returns entries oldest first.
func (r *sessionAuditRepo) ListBySession(ctx context.Context, sessionID uuid.UUID, offset, limit int) ([]domain.SessionAuditEntry, int, error) {
	countQuery, countArgs, err := r.sb.Select("COUNT(*)").From("session_audit").
		Where(sq.Eq{"session_id": sessionID}).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("sessionAuditRepo.ListBySession count build: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, countArgs...); err != nil {
		return nil, 0, fmt.Errorf("sessionAuditRepo.ListBySession count: %w", err)
	}

	query, args, err := r.sb.Select("id", "session_id", "client_id", "action", "detail", "created_at").
		From("session_audit").
		Where(sq.Eq{"session_id": sessionID}).
		OrderBy("created_at", "id").
		Limit(uint64(limit)).
		Offset(uint64(offset)).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("sessionAuditRepo.ListBySession build: %w", err)
	}
	var rows []auditRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("sessionAuditRepo.ListBySession: %w", err)
	}
	entries := make([]domain.SessionAuditEntry, len(rows))
	for i := range rows {
		entries[i] = rows[i].SessionAuditEntry
		entries[i].Detail = rawJSON(rows[i].Detail)
	}
	return entries, total, nil
}
