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

var receiptColumns = []string{
	"id", "session_id", "position", "file_name", "content_type", "file_size",
	"s3_bucket", "s3_key", "status", "record", "confidence",
	"failure_reason", "failure_detail", "model_used", "created_at", "updated_at",
}

type receiptRepo struct {
	db *sqlx.DB
	sb sq.StatementBuilderType
}

// NewReceiptRepo creates a new SQL-backed ReceiptRepository.
func NewReceiptRepo(db *sqlx.DB) port.ReceiptRepository {
	return &receiptRepo{db: db, sb: builder(db)}
}

func (r *receiptRepo) Create(ctx context.Context, rec *domain.ReceiptUpload) error {
	now := time.Now().UTC()
	rec.CreatedAt = now
	rec.UpdatedAt = now
	if rec.Status == "" {
		rec.Status = domain.ReceiptStatusPending
	}

	query, args, err := r.sb.Insert("receipt_uploads").
		Columns(receiptColumns...).
		Values(
			rec.ID, rec.SessionID, rec.Position, rec.FileName, rec.ContentType, rec.FileSize,
			rec.S3Bucket, rec.S3Key, rec.Status, nullJSON(rec.Record), nullJSON(rec.Confidence),
			rec.FailureReason, rec.FailureDetail, rec.ModelUsed, rec.CreatedAt, rec.UpdatedAt,
		).ToSql()
	if err != nil {
		return fmt.Errorf("receiptRepo.Create build: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("receiptRepo.Create: %w", err)
	}
	return nil
}

// maxAppendAttempts bounds position retries. Each lost race means another
// upload took that position, so a session with fewer concurrent uploads than
// this always gets through.
const maxAppendAttempts = 8

// Append stores rec at the next free position of its session and sets
// rec.Position. Concurrent appends to one session race on the
// (session_id, position) key; the loser re-reads and tries again.
func (r *receiptRepo) Append(ctx context.Context, rec *domain.ReceiptUpload) error {
	for attempt := 1; ; attempt++ {
		next, err := r.nextPosition(ctx, rec.SessionID)
		if err != nil {
			return err
		}
		rec.Position = next
		err = r.Create(ctx, rec)
		if err == nil {
			return nil
		}
		if !isUniqueViolation(err) || attempt == maxAppendAttempts {
			return err
		}
	}
}

func (r *receiptRepo) nextPosition(ctx context.Context, sessionID uuid.UUID) (int, error) {
	query, args, err := r.sb.Select("COALESCE(MAX(position) + 1, 0)").
		From("receipt_uploads").
		Where(sq.Eq{"session_id": sessionID}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("receiptRepo.nextPosition build: %w", err)
	}
	var next int
	if err := r.db.GetContext(ctx, &next, query, args...); err != nil {
		return 0, fmt.Errorf("receiptRepo.nextPosition: %w", err)
	}
	return next, nil
}

// ListBySession returns receipts in upload order.
func (r *receiptRepo) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]domain.ReceiptUpload, error) {
	query, args, err := r.sb.Select(receiptColumns...).
		From("receipt_uploads").
		Where(sq.Eq{"session_id": sessionID}).
		OrderBy("position").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("receiptRepo.ListBySession build: %w", err)
	}
	var rows []receiptRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("receiptRepo.ListBySession: %w", err)
	}
	receipts := make([]domain.ReceiptUpload, len(rows))
	for i := range rows {
		receipts[i] = rows[i].toDomain()
	}
	return receipts, nil
}

func (r *receiptRepo) UpdateResult(ctx context.Context, rec *domain.ReceiptUpload) error {
	rec.UpdatedAt = time.Now().UTC()
	query, args, err := r.sb.Update("receipt_uploads").
		SetMap(map[string]interface{}{
			"status":         rec.Status,
			"record":         nullJSON(rec.Record),
			"confidence":     nullJSON(rec.Confidence),
			"failure_reason": rec.FailureReason,
			"failure_detail": rec.FailureDetail,
			"model_used":     rec.ModelUsed,
			"updated_at":     rec.UpdatedAt,
		}).
		Where(sq.Eq{"id": rec.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("receiptRepo.UpdateResult build: %w", err)
	}
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("receiptRepo.UpdateResult: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ResetBySession clears extraction results so a retry starts clean.
func (r *receiptRepo) ResetBySession(ctx context.Context, sessionID uuid.UUID) error {
	query, args, err := r.sb.Update("receipt_uploads").
		Set("status", domain.ReceiptStatusPending).
		Set("record", nil).
		Set("confidence", nil).
		Set("failure_reason", nil).
		Set("failure_detail", nil).
		Set("model_used", nil).
		Set("updated_at", time.Now().UTC()).
		Where(sq.Eq{"session_id": sessionID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("receiptRepo.ResetBySession build: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("receiptRepo.ResetBySession: %w", err)
	}
	return nil
}
