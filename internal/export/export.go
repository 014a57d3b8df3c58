// Package export renders an intake session as CSV or an XLSX workbook.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"claimintake/internal/domain"
	"claimintake/internal/validator"
)

// UTF-8 BOM bytes for Excel compatibility on Windows.
var BOM = []byte{0xEF, 0xBB, 0xBF}

// Format is an export file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ContentType returns the MIME type served for the format.
func (f Format) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

// ParseFormat accepts "csv" (the default for empty input) or "xlsx".
func ParseFormat(s string) (Format, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "csv":
		return FormatCSV, true
	case "xlsx":
		return FormatXLSX, true
	}
	return "", false
}

var receiptColumns = []string{
	"Position",
	"File Name",
	"Status",
	"Receipt Number",
	"Receipt Date",
	"Admission Date",
	"Discharge Date",
	"Hospital",
	"Currency",
	"Amount",
	"Documents",
	"Model",
	"Failure Reason",
	"Failure Detail",
}

// Write renders the session in the requested format.
func Write(w io.Writer, format Format, sess *domain.IntakeSession, receipts []domain.ReceiptUpload) error {
	if format == FormatXLSX {
		return WriteWorkbook(w, sess, receipts)
	}
	return WriteCSV(w, receipts)
}

// WriteCSV writes a BOM, the header row and one row per receipt.
func WriteCSV(w io.Writer, receipts []domain.ReceiptUpload) error {
	if _, err := w.Write(BOM); err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(receiptColumns); err != nil {
		return err
	}
	for i := range receipts {
		if err := cw.Write(receiptRow(&receipts[i])); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteWorkbook writes a workbook with a Claim summary sheet, a Receipts
// sheet and, when the claim did not validate, a Violations sheet.
func WriteWorkbook(w io.Writer, sess *domain.IntakeSession, receipts []domain.ReceiptUpload) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	const summary = "Claim"
	if err := f.SetSheetName("Sheet1", summary); err != nil {
		return err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}

	pairs := [][]interface{}{
		{"Session ID", sess.ID.String()},
		{"Client ID", sess.ClientID},
		{"Policy ID", sess.PolicyID},
		{"Life Assured", sess.LifeAssuredID},
		{"Status", string(sess.Status)},
		{"Attempt", sess.Attempt},
		{"Claim Type", deref(sess.ClaimType)},
		{"Claim ID", deref(sess.ClaimID)},
		{"Submitted At", formatTime(sess.SubmittedAt)},
		{"Failure Stage", deref(sess.FailureStage)},
		{"Failure Detail", deref(sess.FailureDetail)},
		{"Assistant Note", deref(sess.AssistantNote)},
	}
	for i, pair := range pairs {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(summary, cell, &pair); err != nil {
			return err
		}
	}
	if err := f.SetCellStyle(summary, "A1", fmt.Sprintf("A%d", len(pairs)), bold); err != nil {
		return err
	}
	_ = f.SetColWidth(summary, "A", "A", 18)
	_ = f.SetColWidth(summary, "B", "B", 48)

	if err := writeTable(f, "Receipts", receiptColumns, len(receipts), func(i int) []interface{} {
		r := receiptRow(&receipts[i])
		row := make([]interface{}, len(r))
		for j, v := range r {
			row[j] = v
		}
		row[0] = receipts[i].Position + 1
		if amount, err := strconv.ParseFloat(r[9], 64); err == nil {
			row[9] = amount
		}
		return row
	}, bold); err != nil {
		return err
	}

	var violations []validator.Violation
	if len(sess.Violations) > 0 {
		if err := json.Unmarshal(sess.Violations, &violations); err != nil {
			return fmt.Errorf("decoding violations: %w", err)
		}
	}
	if len(violations) > 0 {
		if err := writeTable(f, "Violations", []string{"Path", "Constraint", "Expected", "Message"}, len(violations), func(i int) []interface{} {
			v := violations[i]
			return []interface{}{v.Path, v.Constraint, v.Expected, v.Message}
		}, bold); err != nil {
			return err
		}
	}

	return f.Write(w)
}

func writeTable(f *excelize.File, sheet string, header []string, n int, row func(int) []interface{}, headerStyle int) error {
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	last, _ := excelize.CoordinatesToCellName(len(header), 1)
	if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		values := row(i)
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return err
		}
	}
	return f.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})
}

// receiptRow leaves the record columns empty unless extraction succeeded.
func receiptRow(r *domain.ReceiptUpload) []string {
	row := make([]string, len(receiptColumns))
	row[0] = strconv.Itoa(r.Position + 1)
	row[1] = r.FileName
	row[2] = string(r.Status)
	row[11] = deref(r.ModelUsed)
	row[12] = deref(r.FailureReason)
	row[13] = deref(r.FailureDetail)

	if r.Status != domain.ReceiptStatusExtracted || len(r.Record) == 0 {
		return row
	}
	var rec domain.ReceiptRecord
	if err := json.Unmarshal(r.Record, &rec); err != nil {
		return row
	}
	row[3] = deref(rec.Number)
	row[4] = deref(rec.ReceiptDate)
	row[5] = deref(rec.AdmissionDate)
	row[6] = deref(rec.DischargeDate)
	row[7] = deref(rec.HospitalName)
	if rec.Currency != nil {
		row[8] = rec.Currency.Code
	}
	if rec.Amount != nil {
		row[9] = strconv.FormatFloat(*rec.Amount, 'f', 2, 64)
	}
	docs := make([]string, 0, len(rec.Documents))
	for _, d := range rec.Documents {
		docs = append(docs, string(d.Type))
	}
	row[10] = strings.Join(docs, ";")
	return row
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}

var nonAlphanumeric = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// BuildFilename returns a Content-Disposition-safe file name:
// claim_{label}_{YYYY-MM-DD}.{format}.
func BuildFilename(label string, format Format, now time.Time) string {
	s := strings.Trim(nonAlphanumeric.ReplaceAllString(label, "_"), "_")
	if len(s) > 64 {
		s = s[:64]
	}
	return fmt.Sprintf("claim_%s_%s.%s", s, now.Format("2006-01-02"), format)
}
