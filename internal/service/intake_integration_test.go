package service_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"claimintake/internal/assistant"
	"claimintake/internal/config"
	"claimintake/internal/domain"
	"claimintake/internal/extractor"
	"claimintake/internal/port"
	"claimintake/internal/repository"
	"claimintake/internal/service"
	"claimintake/mocks"
)

// memStore keeps receipt files in memory.
type memStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemStore() *memStore { return &memStore{objects: map[string][]byte{}} }

func (m *memStore) Put(_ context.Context, f port.ReceiptFile) (*port.StoredFile, error) {
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(f.Body); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[f.Bucket+"/"+f.Key] = buf.Bytes()
	return &port.StoredFile{Location: "mem://" + f.Bucket + "/" + f.Key}, nil
}

func (m *memStore) Fetch(_ context.Context, bucket, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[bucket+"/"+key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return data, nil
}

func (m *memStore) Delete(_ context.Context, bucket, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, bucket+"/"+key)
	return nil
}

func (m *memStore) SignedURL(_ context.Context, bucket, key string, _ time.Duration) (string, error) {
	return "https://signed.example/" + bucket + "/" + key, nil
}

type sqliteStack struct {
	intake     service.IntakeService
	submission service.SubmissionService
	provider   *mocks.MockDocumentExtractor
}

func newSQLiteStack(t *testing.T) *sqliteStack {
	t.Helper()
	conn, err := repository.Open(&config.DBConfig{
		Driver: "sqlite",
		Path:   filepath.Join(t.TempDir(), "intake.db"),
	})
	require.NoError(t, err)
	require.NoError(t, repository.Migrate(conn))
	t.Cleanup(func() { conn.Close() })

	sessions := repository.NewSessionRepo(conn)
	receipts := repository.NewReceiptRepo(conn)
	audit := repository.NewSessionAuditRepo(conn)

	pc := policy()
	policies := new(mocks.MockPolicyDirectory)
	policies.On("EligiblePolicies", mock.Anything, clientID).Return(pc.Policies, nil)
	policies.On("PayoutMethods", mock.Anything, "POL-1").Return(pc.PayoutMethods, nil)
	policies.On("Currencies", mock.Anything).Return([]domain.Currency{}, nil)

	provider := new(mocks.MockDocumentExtractor)
	client := extractor.NewClient(provider, nil, 0, zap.NewNop())

	reg := registry(t)
	pipeline := service.NewPipeline(client, assistant.NewHeuristic(), reg, service.PipelineConfig{Concurrency: 2}, zap.NewNop())
	return &sqliteStack{
		intake: service.NewIntakeService(
			sessions, receipts, audit, newMemStore(), policies, pipeline, reg,
			&config.S3Config{Bucket: "receipts", PresignExpiry: 600},
			&config.ExtractionConfig{MaxFileSizeMB: 1},
			zap.NewNop(),
		),
		submission: service.NewSubmissionService(sessions, audit, reg, nil, zap.NewNop()),
		provider:   provider,
	}
}

func TestIntakeService_SQLiteEndToEnd(t *testing.T) {
	st := newSQLiteStack(t)
	ctx := context.Background()

	st.provider.On("Extract", mock.Anything, byFile("bill.pdf")).Return(&port.ProviderOutput{
		Fields: port.RawReceipt{
			ReceiptNumber: "INV-7",
			ReceiptDate:   "2024-04-02",
			Hospital:      "Raffles Medical",
			Currency:      "SGD",
			BillAmount:    "1080.50",
		},
		Confidence: map[string]float64{"receipt_number": 0.9, "bill_amount": 0.95},
		ModelUsed:  "prebuilt-receipt",
	}, nil)
	st.provider.On("Extract", mock.Anything, byFile("blank.pdf")).
		Return(nil, domain.NewExtractionFailure(domain.ReasonUnreadable, errors.New("no text layer")))

	sess, err := st.intake.CreateSession(ctx, service.CreateSessionInput{
		ClientID: clientID, PolicyID: "POL-1", LifeAssuredID: "LA-1",
	})
	require.NoError(t, err)

	// A fresh draft reads back with no stored run.
	view, err := st.intake.GetSession(ctx, clientID, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionStatusDraft, view.Session.Status)
	assert.Nil(t, view.Session.Candidate)
	assert.Empty(t, view.Receipts)

	for i, name := range []string{"bill.pdf", "blank.pdf"} {
		r, err := st.intake.UploadReceipt(ctx, service.UploadReceiptInput{
			ClientID: clientID, SessionID: sess.ID, FileName: name,
			Size: int64(len(pdfBytes)), Body: bytes.NewReader(pdfBytes),
		})
		require.NoError(t, err)
		assert.Equal(t, i, r.Position)
	}

	settled, err := st.intake.Process(ctx, clientID, sess.ID, true)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionStatusValidated, settled.Status)
	require.NotNil(t, settled.ClaimType)
	assert.Equal(t, "OUTPATIENT", *settled.ClaimType)

	var outcome struct {
		Receipts []struct {
			Failure *struct {
				Reason string `json:"reason"`
				Detail string `json:"detail"`
			} `json:"failure"`
		} `json:"receipts"`
		Summary service.Summary `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(settled.Outcome, &outcome))
	require.Len(t, outcome.Receipts, 2)
	assert.Nil(t, outcome.Receipts[0].Failure)
	require.NotNil(t, outcome.Receipts[1].Failure)
	assert.Equal(t, "unreadable", outcome.Receipts[1].Failure.Reason)
	assert.Contains(t, outcome.Receipts[1].Failure.Detail, "no text layer")
	assert.Equal(t, 1, outcome.Summary.Successes)
	assert.InDelta(t, 1080.5, outcome.Summary.TotalAmount, 0.001)

	view, err = st.intake.GetSession(ctx, clientID, sess.ID)
	require.NoError(t, err)
	require.Len(t, view.Receipts, 2)
	assert.Equal(t, domain.ReceiptStatusExtracted, view.Receipts[0].Status)
	assert.JSONEq(t, `"2024-04-02"`, string(mustField(t, view.Receipts[0].Record, "receiptDate")))
	assert.Equal(t, domain.ReceiptStatusFailed, view.Receipts[1].Status)
	require.NotNil(t, view.Receipts[1].FailureReason)
	assert.Equal(t, "unreadable", *view.Receipts[1].FailureReason)

	resp, err := st.submission.Submit(ctx, clientID, sess.ID)
	require.NoError(t, err)
	assert.Regexp(t, `^CLM-[0-9A-F]{12}$`, resp.ClaimID)
	assert.InDelta(t, 1080.5, resp.FinalAmount, 0.001)

	sessions, total, err := st.intake.ListSessions(ctx, clientID, nil, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, domain.SessionStatusSubmitted, sessions[0].Status)

	entries, _, err := st.intake.ListAudit(ctx, clientID, sess.ID, 0, 50)
	require.NoError(t, err)
	actions := make([]domain.AuditAction, len(entries))
	for i, e := range entries {
		actions[i] = e.Action
	}
	assert.Contains(t, actions, domain.AuditReceiptFailed)
	assert.Contains(t, actions, domain.AuditClaimValidated)
	assert.Contains(t, actions, domain.AuditClaimSubmitted)
}

func TestIntakeService_SQLiteConcurrentUploads(t *testing.T) {
	st := newSQLiteStack(t)
	ctx := context.Background()

	sess, err := st.intake.CreateSession(ctx, service.CreateSessionInput{ClientID: clientID, PolicyID: "POL-1"})
	require.NoError(t, err)

	const uploads = 4
	var wg sync.WaitGroup
	errs := make([]error, uploads)
	for i := 0; i < uploads; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = st.intake.UploadReceipt(ctx, service.UploadReceiptInput{
				ClientID: clientID, SessionID: sess.ID, FileName: "r.pdf",
				Size: int64(len(pdfBytes)), Body: bytes.NewReader(pdfBytes),
			})
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		require.NoError(t, err)
	}

	view, err := st.intake.GetSession(ctx, clientID, sess.ID)
	require.NoError(t, err)
	require.Len(t, view.Receipts, uploads)
	for i, r := range view.Receipts {
		assert.Equal(t, i, r.Position)
	}
}

func mustField(t *testing.T, raw json.RawMessage, name string) json.RawMessage {
	t.Helper()
	var fields map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &fields))
	v, ok := fields[name]
	require.True(t, ok, "field %s missing", name)
	return v
}
