package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/osvaldoandrade/osintq/internal/metrics"
	"github.com/osvaldoandrade/osintq/internal/toolclient"
	"github.com/osvaldoandrade/osintq/pkg/domain"
	"github.com/osvaldoandrade/osintq/pkg/store"
)

// PipelineRunner drives one investigation end to end: build the query, search,
// then scrape and extract each result in order, dedup, and land the task in a
// terminal state. Results are processed strictly sequentially, and a failure
// on any single result fails the whole task; partial findings are never
// recorded.
type PipelineRunner struct {
	store            store.TaskStore
	tools            toolclient.Client
	callback         CallbackService
	logger           *slog.Logger
	searchMaxResults int
	scrapeMaxChars   int
	now              func() time.Time
}

func NewPipelineRunner(st store.TaskStore, tools toolclient.Client, callback CallbackService, logger *slog.Logger, searchMaxResults, scrapeMaxChars int) *PipelineRunner {
	if logger == nil {
		logger = slog.Default()
	}
	if searchMaxResults <= 0 {
		searchMaxResults = 5
	}
	if scrapeMaxChars <= 0 {
		scrapeMaxChars = 6000
	}
	return &PipelineRunner{
		store:            st,
		tools:            tools,
		callback:         callback,
		logger:           logger,
		searchMaxResults: searchMaxResults,
		scrapeMaxChars:   scrapeMaxChars,
		now:              time.Now,
	}
}

// Run executes the pipeline for one task. It never returns an error: every
// failure is converted into a FAILED terminal state on the task record.
func (r *PipelineRunner) Run(ctx context.Context, taskID string, payload domain.QueryPayload) {
	tracer := otel.Tracer("osintq/pipeline")
	ctx, span := tracer.Start(ctx, "pipeline.run")
	span.SetAttributes(attribute.String("task.id", taskID))
	defer span.End()

	start := r.now()
	findings, err := r.investigate(ctx, taskID, payload)

	var final *domain.Task
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		final = r.fail(ctx, taskID, err)
	} else {
		final = r.complete(ctx, taskID, findings)
	}
	if final == nil {
		return
	}

	state := string(final.State)
	metrics.InvestigationCompletedTotal.WithLabelValues(state).Inc()
	metrics.InvestigationDurationSeconds.WithLabelValues(state).Observe(r.now().Sub(start).Seconds())

	if final.State == domain.StateFailed {
		r.logger.Warn("investigation failed", "taskId", taskID, "err", final.ErrorMessage)
	} else {
		r.logger.Info("investigation completed", "taskId", taskID, "findings", len(final.Findings))
	}

	if r.callback != nil {
		r.callback.Notify(ctx, final)
	}
}

func (r *PipelineRunner) investigate(ctx context.Context, taskID string, payload domain.QueryPayload) ([]domain.Finding, error) {
	running := domain.StateRunning
	if _, err := r.store.Update(ctx, taskID, store.TaskUpdate{
		State:          &running,
		ProgressAppend: []string{r.entry("Preparing query from input fields.")},
	}); err != nil {
		return nil, fmt.Errorf("start run: %w", err)
	}

	query := payload.BuildQuery()
	r.progress(ctx, taskID, fmt.Sprintf("Query constructed: %q", query))

	r.progress(ctx, taskID, "Contacting search tool.")
	results, err := r.tools.Search(ctx, query, r.searchMaxResults)
	if err != nil {
		return nil, err
	}
	r.progress(ctx, taskID, fmt.Sprintf("Search returned %d candidate results.", len(results)))

	var all []domain.Finding
	for idx, item := range results {
		r.progress(ctx, taskID, fmt.Sprintf("[%d/%d] Scraping %s", idx+1, len(results), item.URL))
		scraped, err := r.tools.Scrape(ctx, item.URL, r.scrapeMaxChars)
		if err != nil {
			return nil, err
		}

		r.progress(ctx, taskID, fmt.Sprintf("[%d/%d] Extracting relevant info via extract tool.", idx+1, len(results)))
		extracted, err := r.tools.Extract(ctx, query, scraped.Text, item.URL)
		if err != nil {
			return nil, err
		}
		metrics.FindingsExtractedTotal.Add(float64(len(extracted)))
		all = append(all, extracted...)
	}

	return domain.DeduplicateFindings(all), nil
}

// complete appends the dedup log entry and writes findings together with the
// COMPLETED transition in a single store update, so a poller can never see
// COMPLETED with stale findings.
func (r *PipelineRunner) complete(ctx context.Context, taskID string, findings []domain.Finding) *domain.Task {
	completed := domain.StateCompleted
	final, err := r.store.Update(ctx, taskID, store.TaskUpdate{
		State:          &completed,
		ProgressAppend: []string{r.entry(fmt.Sprintf("Deduplicated to %d unique findings.", len(findings)))},
		Findings:       findings,
	})
	if err != nil {
		r.logger.Error("terminal update failed", "taskId", taskID, "err", err)
		return nil
	}
	return final
}

func (r *PipelineRunner) fail(ctx context.Context, taskID string, cause error) *domain.Task {
	failed := domain.StateFailed
	msg := cause.Error()
	final, err := r.store.Update(ctx, taskID, store.TaskUpdate{
		State:        &failed,
		ErrorMessage: &msg,
	})
	if err != nil {
		r.logger.Error("terminal update failed", "taskId", taskID, "err", err)
		return nil
	}
	return final
}

// progress appends one timestamped entry to the task's log. Append failures
// are not fatal to the pipeline; they can only happen when the record is gone
// or already terminal.
func (r *PipelineRunner) progress(ctx context.Context, taskID string, msg string) {
	if _, err := r.store.Update(ctx, taskID, store.TaskUpdate{ProgressAppend: []string{r.entry(msg)}}); err != nil {
		r.logger.Warn("progress append failed", "taskId", taskID, "err", err)
	}
}

func (r *PipelineRunner) entry(msg string) string {
	return r.now().UTC().Format(time.RFC3339) + " " + msg
}
