package repository

import (
	"encoding/json"

	"github.com/jmoiron/sqlx/types"

	"claimintake/internal/domain"
)

// The JSON columns stay NULL until a run writes them, so rows are scanned
// through NullJSONText and converted. The outer fields shadow the embedded
// domain fields of the same column name.

type sessionRow struct {
	domain.IntakeSession
	Candidate  types.NullJSONText `db:"candidate"`
	Violations types.NullJSONText `db:"violations"`
	Outcome    types.NullJSONText `db:"outcome"`
}

func (r *sessionRow) toDomain() domain.IntakeSession {
	s := r.IntakeSession
	s.Candidate = rawJSON(r.Candidate)
	s.Violations = rawJSON(r.Violations)
	s.Outcome = rawJSON(r.Outcome)
	return s
}

func sessionsFromRows(rows []sessionRow) []domain.IntakeSession {
	out := make([]domain.IntakeSession, len(rows))
	for i := range rows {
		out[i] = rows[i].toDomain()
	}
	return out
}

type receiptRow struct {
	domain.ReceiptUpload
	Record     types.NullJSONText `db:"record"`
	Confidence types.NullJSONText `db:"confidence"`
}

func (r *receiptRow) toDomain() domain.ReceiptUpload {
	rec := r.ReceiptUpload
	rec.Record = rawJSON(r.Record)
	rec.Confidence = rawJSON(r.Confidence)
	return rec
}

type auditRow struct {
	domain.SessionAuditEntry
	Detail types.NullJSONText `db:"detail"`
}

func rawJSON(n types.NullJSONText) json.RawMessage {
	if !n.Valid || len(n.JSONText) == 0 {
		return nil
	}
	out := make(json.RawMessage, len(n.JSONText))
	copy(out, n.JSONText)
	return out
}
