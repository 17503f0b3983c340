// internal/workers/matching/rank-candidates/handler.go
package rankcandidates

import (
	"context"
	"encoding/json"
	"time"

	"cleanmatch-workers/internal/common/errors"
	"cleanmatch-workers/internal/common/logger"
	"cleanmatch-workers/internal/common/metrics"
	"cleanmatch-workers/internal/common/observability"
	"cleanmatch-workers/internal/directory"
	"cleanmatch-workers/internal/matching"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"go.opentelemetry.io/otel/attribute"
)

const (
	TaskType = "rank-candidates"
)

type Handler struct {
	config *Config
	engine *matching.Engine
	errors *errors.ErrorHandler
	logger logger.Logger
}

func NewHandler(config *Config, engine *matching.Engine, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config: config,
		engine: engine,
		errors: errors.NewErrorHandler(l),
		logger: l,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	start := time.Now()
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.fail(ctx, client, job, errors.NewInputValidationFailedError(err.Error()))
		return
	}

	ctx, span := observability.StartSpan(ctx, TaskType,
		attribute.Int64("jobKey", job.Key),
		attribute.String("requestId", input.BookingRequest.RequestID),
		attribute.Int("poolSize", len(input.Candidates)),
	)
	output, err := h.Execute(ctx, &input)
	observability.EndSpan(span, err)
	if err != nil {
		h.fail(ctx, client, job, err)
		return
	}

	h.completeJob(ctx, client, job, output)
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
}

// Execute ranks the pool. No available provider is a normal outcome
// reported through hasMatches, not an error.
func (h *Handler) Execute(_ context.Context, input *Input) (*Output, error) {
	request := input.BookingRequest.ToDomain()
	result, err := h.engine.Match(request, input.Candidates)
	if err != nil {
		return nil, err
	}
	h.record(request.ServiceType, result)

	output := &Output{
		Matches:       result.Matches,
		HasMatches:    result.HasMatches(),
		ExcludedCount: result.ExcludedCount,
		Exclusions:    result.Exclusions,
		Diagnostics:   result.Diagnostics,
	}
	if top, ok := result.TopPick(); ok {
		output.TopPick = &top
	} else if h.config.BroadenScope {
		output.SuggestedScope = suggestScope(input.SearchScope)
	}

	for _, d := range result.Diagnostics {
		h.logger.Warn("candidate skipped", map[string]interface{}{
			"requestId":  request.RequestID,
			"providerId": d.ProviderID,
			"code":       d.Code,
			"reason":     d.Reason,
		})
	}
	h.logger.Info("candidates ranked", map[string]interface{}{
		"requestId":     request.RequestID,
		"matches":       len(result.Matches),
		"excludedCount": result.ExcludedCount,
	})
	return output, nil
}

func suggestScope(current string) string {
	scope, err := directory.ParseScope(current)
	if err != nil {
		return ""
	}
	if next, ok := scope.Broaden(); ok {
		return string(next)
	}
	return ""
}

func (h *Handler) record(serviceType string, result matching.RankedMatchResult) {
	metrics.CandidatesEvaluated.WithLabelValues("ranked").Add(float64(len(result.Matches)))
	metrics.CandidatesEvaluated.WithLabelValues("inactive").Add(float64(result.Exclusions.Inactive))
	metrics.CandidatesEvaluated.WithLabelValues("service_mismatch").Add(float64(result.Exclusions.ServiceMismatch))
	metrics.CandidatesEvaluated.WithLabelValues("malformed").Add(float64(result.Exclusions.Malformed))
	metrics.CandidatesEvaluated.WithLabelValues("unavailable").Add(float64(result.Exclusions.Unavailable))

	if top, ok := result.TopPick(); ok {
		metrics.TopMatchScore.WithLabelValues(serviceType).Observe(top.TotalScore)
	} else {
		metrics.EmptyMatchResults.WithLabelValues(serviceType).Inc()
	}
}

func (h *Handler) fail(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(errors.FromError(err).Code)).Inc()
	h.errors.HandleJobError(ctx, client, job, err)
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err,
		})
	}
}
