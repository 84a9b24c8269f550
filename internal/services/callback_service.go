package services

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/osvaldoandrade/osintq/internal/backoff"
	"github.com/osvaldoandrade/osintq/internal/metrics"
	"github.com/osvaldoandrade/osintq/internal/tracing"
	"github.com/osvaldoandrade/osintq/pkg/domain"
)

// CallbackService delivers the terminal task snapshot to the webhook the
// caller registered at submit time. Delivery is best-effort with bounded
// retries; it never affects the task's own state.
type CallbackService interface {
	Notify(ctx context.Context, task *domain.Task)
}

type callbackService struct {
	logger      *slog.Logger
	secret      string
	maxAttempts int
	baseSeconds int
	maxSeconds  int
	policy      string
	rng         *rand.Rand
	client      *http.Client
}

func NewCallbackService(logger *slog.Logger, secret string, maxAttempts, baseBackoffSeconds, maxBackoffSeconds int, policy string) CallbackService {
	if logger == nil {
		logger = slog.Default()
	}
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	if baseBackoffSeconds <= 0 {
		baseBackoffSeconds = 2
	}
	if maxBackoffSeconds <= 0 {
		maxBackoffSeconds = 60
	}
	if policy == "" {
		policy = "exponential"
	}
	return &callbackService{
		logger:      logger,
		secret:      secret,
		maxAttempts: maxAttempts,
		baseSeconds: baseBackoffSeconds,
		maxSeconds:  maxBackoffSeconds,
		policy:      policy,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
		client:      &http.Client{Timeout: 15 * time.Second},
	}
}

func (s *callbackService) Notify(ctx context.Context, task *domain.Task) {
	if task == nil || strings.TrimSpace(task.Webhook) == "" {
		return
	}
	payload := map[string]any{
		"taskId":       task.ID,
		"state":        task.State,
		"findings":     task.Findings,
		"errorMessage": task.ErrorMessage,
		"completedAt":  task.UpdatedAt,
	}

	b, _ := json.Marshal(payload)
	go s.sendWithRetry(ctx, task.ID, task.Webhook, b)
}

func (s *callbackService) sendWithRetry(ctx context.Context, taskID string, url string, body []byte) {
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		req, _ := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")
		s.addSignature(req, body)
		tracing.InjectHeaders(ctx, req.Header)

		resp, err := s.client.Do(req)
		if err == nil && resp != nil && resp.StatusCode >= 200 && resp.StatusCode < 300 {
			_ = resp.Body.Close()
			metrics.WebhookDeliveriesTotal.WithLabelValues("success").Inc()
			return
		}
		if resp != nil {
			_ = resp.Body.Close()
		}
		if attempt == s.maxAttempts {
			break
		}

		delaySeconds := backoff.Compute(s.policy, s.baseSeconds, s.maxSeconds, attempt-1, s.rng)
		if sleepOrDone(ctx, time.Duration(delaySeconds)*time.Second) != nil {
			return
		}
	}
	metrics.WebhookDeliveriesTotal.WithLabelValues("failure").Inc()
	s.logger.Warn("completion webhook failed", "taskId", taskID, "url", url)
}

func (s *callbackService) addSignature(req *http.Request, body []byte) {
	if strings.TrimSpace(s.secret) == "" {
		return
	}
	ts := time.Now().UTC().Unix()
	mac := hmac.New(sha256.New, []byte(s.secret))
	_, _ = mac.Write([]byte(fmt.Sprintf("%d.", ts)))
	_, _ = mac.Write(body)
	sig := hex.EncodeToString(mac.Sum(nil))
	req.Header.Set("X-Osintq-Timestamp", fmt.Sprintf("%d", ts))
	req.Header.Set("X-Osintq-Signature", sig)
}

func sleepOrDone(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
