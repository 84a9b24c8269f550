package services

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/osvaldoandrade/osintq/internal/metrics"
	"github.com/osvaldoandrade/osintq/internal/tracing"
	"github.com/osvaldoandrade/osintq/pkg/domain"
	"github.com/osvaldoandrade/osintq/pkg/store"
)

// Runner executes one investigation to a terminal state.
type Runner interface {
	Run(ctx context.Context, taskID string, payload domain.QueryPayload)
}

// AgentService accepts investigations and exposes their state for polling.
type AgentService interface {
	// StartInvestigation registers a new PENDING task and launches the
	// pipeline without waiting for it. The returned snapshot is already
	// visible in the store when this returns.
	StartInvestigation(ctx context.Context, payload domain.QueryPayload, webhook string) (*domain.Task, error)

	// GetInvestigation returns the current task snapshot, or
	// store.ErrNotFound.
	GetInvestigation(ctx context.Context, id string) (*domain.Task, error)
}

type agentService struct {
	store  store.TaskStore
	runner Runner
	logger *slog.Logger
}

func NewAgentService(st store.TaskStore, runner Runner, logger *slog.Logger) AgentService {
	if logger == nil {
		logger = slog.Default()
	}
	return &agentService{store: st, runner: runner, logger: logger}
}

func (s *agentService) StartInvestigation(ctx context.Context, payload domain.QueryPayload, webhook string) (*domain.Task, error) {
	if webhook != "" {
		u, err := url.Parse(webhook)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return nil, errors.New("invalid webhook url")
		}
	}

	taskID := uuid.NewString()
	task, err := s.store.Create(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(webhook) != "" {
		task, err = s.store.Update(ctx, taskID, store.TaskUpdate{Webhook: webhook})
		if err != nil {
			return nil, err
		}
	}

	metrics.InvestigationStartedTotal.Inc()
	s.logger.Info("investigation accepted", "taskId", taskID)

	// The pipeline outlives the submit request, so it runs on a detached
	// context that resumes the submit trace as a remote parent.
	traceParent, traceState := tracing.TraceContextStrings(ctx)
	go func() {
		runCtx := tracing.ContextWithRemoteParent(context.Background(), traceParent, traceState)
		s.runner.Run(runCtx, taskID, payload)
	}()

	return task, nil
}

func (s *agentService) GetInvestigation(ctx context.Context, id string) (*domain.Task, error) {
	return s.store.Get(ctx, id)
}
