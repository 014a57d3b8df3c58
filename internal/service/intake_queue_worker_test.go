package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"claimintake/internal/domain"
	"claimintake/internal/service"
	"claimintake/mocks"
)

func runWorker(t *testing.T, worker *service.IntakeQueueWorker, d time.Duration) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		worker.Start(ctx)
		close(done)
	}()

	time.Sleep(d)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after context cancellation")
	}
}

func TestIntakeQueueWorker_PollsAndRunsSessions(t *testing.T) {
	sessions := new(mocks.MockSessionRepository)
	intake := new(mocks.MockIntakeService)

	sess := *session(domain.SessionStatusProcessing)

	// First poll returns one session, subsequent polls return empty
	sessions.On("ClaimQueued", mock.Anything, mock.AnythingOfType("int")).
		Return([]domain.IntakeSession{sess}, nil).Once()
	sessions.On("ClaimQueued", mock.Anything, mock.AnythingOfType("int")).
		Return([]domain.IntakeSession{}, nil).Maybe()
	intake.On("RunSession", mock.Anything, mock.MatchedBy(func(s *domain.IntakeSession) bool {
		return s.ID == sess.ID
	})).Return(nil).Once()

	worker := service.NewIntakeQueueWorker(sessions, intake, service.IntakeQueueConfig{
		PollInterval: 50 * time.Millisecond,
		Concurrency:  2,
	}, zap.NewNop())

	runWorker(t, worker, 200*time.Millisecond)

	intake.AssertExpectations(t)
}

func TestIntakeQueueWorker_RespectsConcurrencyCap(t *testing.T) {
	sessions := new(mocks.MockSessionRepository)
	intake := new(mocks.MockIntakeService)

	sessions.On("ClaimQueued", mock.Anything, mock.AnythingOfType("int")).
		Return([]domain.IntakeSession{}, nil).Maybe()

	cfg := service.IntakeQueueConfig{PollInterval: 50 * time.Millisecond, Concurrency: 2}
	worker := service.NewIntakeQueueWorker(sessions, intake, cfg, zap.NewNop())

	runWorker(t, worker, 150*time.Millisecond)

	for _, call := range sessions.Calls {
		if call.Method == "ClaimQueued" {
			assert.LessOrEqual(t, call.Arguments.Get(1).(int), cfg.Concurrency)
		}
	}
	intake.AssertNotCalled(t, "RunSession", mock.Anything, mock.Anything)
}

func TestIntakeQueueWorker_RunErrorDoesNotStopPolling(t *testing.T) {
	sessions := new(mocks.MockSessionRepository)
	intake := new(mocks.MockIntakeService)

	sessions.On("ClaimQueued", mock.Anything, mock.AnythingOfType("int")).
		Return([]domain.IntakeSession{*session(domain.SessionStatusProcessing)}, nil).Once()
	sessions.On("ClaimQueued", mock.Anything, mock.AnythingOfType("int")).
		Return(nil, errors.New("db connection error")).Maybe()
	intake.On("RunSession", mock.Anything, mock.Anything).Return(errors.New("storage unavailable")).Once()

	worker := service.NewIntakeQueueWorker(sessions, intake, service.IntakeQueueConfig{
		PollInterval: 50 * time.Millisecond,
		Concurrency:  1,
	}, zap.NewNop())

	runWorker(t, worker, 250*time.Millisecond)

	intake.AssertExpectations(t)
	callCount := 0
	for _, call := range sessions.Calls {
		if call.Method == "ClaimQueued" {
			callCount++
		}
	}
	assert.Greater(t, callCount, 1)
}

func TestIntakeQueueWorker_WaitsForInFlightRuns(t *testing.T) {
	sessions := new(mocks.MockSessionRepository)
	intake := new(mocks.MockIntakeService)

	finished := make(chan struct{})
	sessions.On("ClaimQueued", mock.Anything, mock.AnythingOfType("int")).
		Return([]domain.IntakeSession{*session(domain.SessionStatusProcessing)}, nil).Once()
	sessions.On("ClaimQueued", mock.Anything, mock.AnythingOfType("int")).
		Return([]domain.IntakeSession{}, nil).Maybe()
	intake.On("RunSession", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) {
			time.Sleep(150 * time.Millisecond)
			close(finished)
		}).
		Return(nil)

	worker := service.NewIntakeQueueWorker(sessions, intake, service.IntakeQueueConfig{
		PollInterval: 20 * time.Millisecond,
		Concurrency:  1,
	}, zap.NewNop())

	runWorker(t, worker, 60*time.Millisecond)

	select {
	case <-finished:
	default:
		t.Fatal("Start returned before the in-flight run finished")
	}
}
