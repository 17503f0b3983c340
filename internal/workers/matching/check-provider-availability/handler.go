// internal/workers/matching/check-provider-availability/handler.go
package checkprovideravailability

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"cleanmatch-workers/internal/common/errors"
	"cleanmatch-workers/internal/common/logger"
	"cleanmatch-workers/internal/common/metrics"
	"cleanmatch-workers/internal/common/observability"
	"cleanmatch-workers/internal/matching"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"go.opentelemetry.io/otel/attribute"
)

const (
	TaskType = "check-provider-availability"
)

type ProviderReader interface {
	GetProvider(ctx context.Context, id string) (matching.CandidateProvider, error)
}

type Handler struct {
	config    *Config
	directory ProviderReader
	errors    *errors.ErrorHandler
	logger    logger.Logger
}

func NewHandler(config *Config, dir ProviderReader, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:    config,
		directory: dir,
		errors:    errors.NewErrorHandler(l),
		logger:    l,
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
		metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(errors.ErrCodeInputValidationFailed)).Inc()
		h.errors.HandleJobError(ctx, client, job, errors.NewInputValidationFailedError(err.Error()))
		return
	}

	ctx, span := observability.StartSpan(ctx, TaskType, attribute.String("providerId", input.ProviderID))
	output, err := h.Execute(ctx, &input)
	observability.EndSpan(span, err)
	if err != nil {
		metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(errors.FromError(err).Code)).Inc()
		h.errors.HandleJobError(ctx, client, job, err)
		return
	}

	h.completeJob(ctx, client, job, output)
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
}

// Execute answers whether one provider could take the window right now,
// using the same rules the ranker applies.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if strings.TrimSpace(input.ProviderID) == "" {
		return nil, errors.NewInputValidationFailedError("providerId is required")
	}
	if input.TimeWindow.DurationMinutes <= 0 {
		return nil, errors.NewInvalidTimeWindowError("durationMinutes must be positive")
	}

	provider, err := h.directory.GetProvider(ctx, input.ProviderID)
	if err != nil {
		return nil, err
	}

	window := matching.TimeWindow{
		Start:    input.TimeWindow.Start,
		Duration: time.Duration(input.TimeWindow.DurationMinutes) * time.Minute,
	}
	output := &Output{ProviderID: provider.ProviderID}
	switch {
	case !provider.Active:
		output.Reason = ReasonInactive
	case !matching.IsAvailable(provider, window):
		output.Reason = ReasonUnavailable
	default:
		output.Available = true
	}
	return output, nil
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
