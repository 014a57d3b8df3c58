package handler

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"claimintake/internal/domain"
	"claimintake/internal/export"
	"claimintake/internal/middleware"
	"claimintake/internal/service"
)

// SessionHandler handles intake session endpoints.
type SessionHandler struct {
	intakeService     service.IntakeService
	submissionService service.SubmissionService
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(intakeService service.IntakeService, submissionService service.SubmissionService) *SessionHandler {
	return &SessionHandler{intakeService: intakeService, submissionService: submissionService}
}

// Create handles POST /api/v1/sessions
// @Summary Start an intake session
// @Tags sessions
// @Accept json
// @Produce json
// @Param X-Client-ID header string true "Client identity"
// @Param request body CreateSessionRequest true "Session details"
// @Success 201 {object} Response{data=domain.IntakeSession}
// @Failure 400 {object} ErrorResponseBody "Invalid request"
// @Router /sessions [post]
func (h *SessionHandler) Create(c *gin.Context) {
	var req CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	sess, err := h.intakeService.CreateSession(c.Request.Context(), service.CreateSessionInput{
		ClientID:      middleware.GetClientID(c),
		PolicyID:      req.PolicyID,
		LifeAssuredID: req.LifeAssuredID,
		NotifyEmail:   req.NotifyEmail,
	})
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondCreated(c, sess)
}

// List handles GET /api/v1/sessions
// @Summary List the client's sessions
// @Tags sessions
// @Produce json
// @Param X-Client-ID header string true "Client identity"
// @Param status query string false "Filter by status"
// @Param offset query int false "Offset" default(0)
// @Param limit query int false "Limit" default(20)
// @Success 200 {object} Response{data=[]domain.IntakeSession,meta=PagMeta}
// @Router /sessions [get]
func (h *SessionHandler) List(c *gin.Context) {
	offset, limit := parsePagination(c)

	var status *domain.SessionStatus
	if s := c.Query("status"); s != "" {
		st := domain.SessionStatus(s)
		status = &st
	}

	sessions, total, err := h.intakeService.ListSessions(c.Request.Context(), middleware.GetClientID(c), status, offset, limit)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondPaginated(c, sessions, PagMeta{Total: total, Offset: offset, Limit: limit})
}

// Get handles GET /api/v1/sessions/:id
// @Summary Session with per-receipt progress and the last outcome
// @Tags sessions
// @Produce json
// @Param X-Client-ID header string true "Client identity"
// @Param id path string true "Session ID"
// @Success 200 {object} Response{data=service.SessionView}
// @Failure 404 {object} ErrorResponseBody "Session not found"
// @Router /sessions/{id} [get]
func (h *SessionHandler) Get(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	view, err := h.intakeService.GetSession(c.Request.Context(), middleware.GetClientID(c), id)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, view)
}

// UploadReceipt handles POST /api/v1/sessions/:id/receipts
// @Summary Upload one receipt
// @Description Receipts appear in the claim in upload order.
// @Tags sessions
// @Accept multipart/form-data
// @Produce json
// @Param X-Client-ID header string true "Client identity"
// @Param id path string true "Session ID"
// @Param file formData file true "Receipt (PDF, JPG or PNG)"
// @Success 201 {object} Response{data=domain.ReceiptUpload}
// @Failure 400 {object} ErrorResponseBody "Missing file or unsupported type"
// @Failure 409 {object} ErrorResponseBody "Session busy or submitted"
// @Failure 413 {object} ErrorResponseBody "File too large"
// @Router /sessions/{id}/receipts [post]
func (h *SessionHandler) UploadReceipt(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "MISSING_FILE", "file field is required")
		return
	}
	defer func() { _ = file.Close() }()

	receipt, err := h.intakeService.UploadReceipt(c.Request.Context(), service.UploadReceiptInput{
		ClientID:  middleware.GetClientID(c),
		SessionID: id,
		FileName:  header.Filename,
		Size:      header.Size,
		Body:      file,
	})
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondCreated(c, receipt)
}

// ReceiptURL handles GET /api/v1/sessions/:id/receipts/:receiptId/url
// @Summary Time-limited download link for an uploaded receipt
// @Tags sessions
// @Produce json
// @Param X-Client-ID header string true "Client identity"
// @Param id path string true "Session ID"
// @Param receiptId path string true "Receipt ID"
// @Success 200 {object} Response{data=ReceiptURLResponse}
// @Failure 404 {object} ErrorResponseBody "Not found"
// @Router /sessions/{id}/receipts/{receiptId}/url [get]
func (h *SessionHandler) ReceiptURL(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	receiptID, ok := parseUUIDParam(c, "receiptId")
	if !ok {
		return
	}
	url, err := h.intakeService.ReceiptURL(c.Request.Context(), middleware.GetClientID(c), id, receiptID)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, ReceiptURLResponse{URL: url})
}

// Process handles POST /api/v1/sessions/:id/process
// @Summary Run the batch: extraction, classification, assembly, validation
// @Description Queues the batch (202) or, with wait=true, runs it inline and returns the settled session.
// @Tags sessions
// @Produce json
// @Param X-Client-ID header string true "Client identity"
// @Param id path string true "Session ID"
// @Param wait query bool false "Run inline"
// @Success 200 {object} Response{data=domain.IntakeSession} "Settled session (wait=true)"
// @Success 202 {object} Response{data=domain.IntakeSession} "Queued"
// @Failure 400 {object} ErrorResponseBody "No receipts"
// @Failure 409 {object} ErrorResponseBody "Session busy or submitted"
// @Router /sessions/{id}/process [post]
func (h *SessionHandler) Process(c *gin.Context) {
	h.start(c, h.intakeService.Process)
}

// Retry handles POST /api/v1/sessions/:id/retry
// @Summary Re-run the full batch from the same uploads
// @Tags sessions
// @Produce json
// @Param X-Client-ID header string true "Client identity"
// @Param id path string true "Session ID"
// @Param wait query bool false "Run inline"
// @Success 200 {object} Response{data=domain.IntakeSession} "Settled session (wait=true)"
// @Success 202 {object} Response{data=domain.IntakeSession} "Queued"
// @Failure 409 {object} ErrorResponseBody "Nothing to retry or session busy"
// @Router /sessions/{id}/retry [post]
func (h *SessionHandler) Retry(c *gin.Context) {
	h.start(c, h.intakeService.Retry)
}

type startFunc func(ctx context.Context, clientID string, id uuid.UUID, wait bool) (*domain.IntakeSession, error)

func (h *SessionHandler) start(c *gin.Context, run startFunc) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	wait, _ := strconv.ParseBool(c.DefaultQuery("wait", "false"))

	sess, err := run(c.Request.Context(), middleware.GetClientID(c), id, wait)
	if err != nil {
		HandleError(c, err)
		return
	}
	if wait {
		RespondOK(c, sess)
		return
	}
	RespondAccepted(c, sess)
}

// Cancel handles POST /api/v1/sessions/:id/cancel
// @Summary Abort a queued or running batch
// @Description In-flight extraction calls are cancelled best-effort.
// @Tags sessions
// @Produce json
// @Param X-Client-ID header string true "Client identity"
// @Param id path string true "Session ID"
// @Success 200 {object} Response{data=domain.IntakeSession}
// @Failure 409 {object} ErrorResponseBody "Nothing to cancel"
// @Router /sessions/{id}/cancel [post]
func (h *SessionHandler) Cancel(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	sess, err := h.intakeService.Cancel(c.Request.Context(), middleware.GetClientID(c), id)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, sess)
}

// Submit handles POST /api/v1/sessions/:id/submit
// @Summary Submit a validated claim
// @Tags sessions
// @Produce json
// @Param X-Client-ID header string true "Client identity"
// @Param id path string true "Session ID"
// @Success 200 {object} Response{data=domain.ClaimSubmitResponse}
// @Failure 409 {object} ErrorResponseBody "Claim not validated or already submitted"
// @Router /sessions/{id}/submit [post]
func (h *SessionHandler) Submit(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	resp, err := h.submissionService.Submit(c.Request.Context(), middleware.GetClientID(c), id)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, resp)
}

// Export handles GET /api/v1/sessions/:id/export
// @Summary Export receipts and outcome
// @Tags sessions
// @Produce text/csv
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param X-Client-ID header string true "Client identity"
// @Param id path string true "Session ID"
// @Param format query string false "csv or xlsx" default(csv)
// @Success 200 {file} file
// @Failure 400 {object} ErrorResponseBody "Unknown format"
// @Router /sessions/{id}/export [get]
func (h *SessionHandler) Export(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	format, ok := export.ParseFormat(c.Query("format"))
	if !ok {
		RespondError(c, http.StatusBadRequest, "INVALID_FORMAT", "format must be csv or xlsx")
		return
	}

	view, err := h.intakeService.GetSession(c.Request.Context(), middleware.GetClientID(c), id)
	if err != nil {
		HandleError(c, err)
		return
	}

	var buf bytes.Buffer
	if err := export.Write(&buf, format, view.Session, view.Receipts); err != nil {
		HandleError(c, err)
		return
	}

	label := view.Session.ID.String()
	if view.Session.ClaimID != nil {
		label = *view.Session.ClaimID
	}
	filename := export.BuildFilename(label, format, time.Now())
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, format.ContentType(), buf.Bytes())
}

// Audit handles GET /api/v1/sessions/:id/audit
// @Summary Session audit trail, oldest first
// @Tags sessions
// @Produce json
// @Param X-Client-ID header string true "Client identity"
// @Param id path string true "Session ID"
// @Param offset query int false "Offset" default(0)
// @Param limit query int false "Limit" default(20)
// @Success 200 {object} Response{data=[]domain.SessionAuditEntry,meta=PagMeta}
// @Router /sessions/{id}/audit [get]
func (h *SessionHandler) Audit(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	offset, limit := parsePagination(c)
	entries, total, err := h.intakeService.ListAudit(c.Request.Context(), middleware.GetClientID(c), id, offset, limit)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondPaginated(c, entries, PagMeta{Total: total, Offset: offset, Limit: limit})
}
