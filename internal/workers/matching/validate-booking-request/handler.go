// internal/workers/matching/validate-booking-request/handler.go
package validatebookingrequest

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"cleanmatch-workers/internal/common/errors"
	"cleanmatch-workers/internal/common/logger"
	"cleanmatch-workers/internal/common/metrics"
	"cleanmatch-workers/internal/common/observability"
	"cleanmatch-workers/internal/common/validation"
	"cleanmatch-workers/internal/matching"
	"cleanmatch-workers/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"go.opentelemetry.io/otel/attribute"
)

const (
	TaskType = "validate-booking-request"
)

type Handler struct {
	config    *Config
	schema    *validation.Schema
	validator *matching.Validator
	errors    *errors.ErrorHandler
	logger    logger.Logger
}

// NewHandler takes the registry input schema; a nil schema skips structural
// checks and leaves only the booking rules.
func NewHandler(config *Config, schema *validation.Schema, validator *matching.Validator, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:    config,
		schema:    schema,
		validator: validator,
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
	ctx, span := observability.StartSpan(ctx, TaskType, attribute.Int64("jobKey", job.Key))

	output, err := h.handle(ctx, job)
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

func (h *Handler) handle(ctx context.Context, job entities.Job) (*Output, error) {
	input, err := h.parseInput(job.Variables)
	if err != nil {
		return nil, err
	}
	return h.Execute(ctx, input)
}

func (h *Handler) parseInput(variables string) (*Input, error) {
	if h.schema != nil {
		result, err := h.schema.ValidateJSON([]byte(variables))
		if err != nil {
			return nil, errors.NewInputValidationFailedError(err.Error())
		}
		if !result.Valid {
			return nil, errors.NewInputValidationFailedError(strings.Join(result.Messages(), "; "))
		}
	}

	var input Input
	if err := json.Unmarshal([]byte(variables), &input); err != nil {
		return nil, errors.NewInputValidationFailedError(err.Error())
	}
	return &input, nil
}

// Execute applies the booking rules and returns the normalized request that
// downstream tasks read from the bookingRequest variable.
func (h *Handler) Execute(_ context.Context, input *Input) (*Output, error) {
	request, err := h.validator.ValidateRequest(input.ToDomain())
	if err != nil {
		h.logger.Warn("booking request rejected", map[string]interface{}{
			"requestId": input.RequestID,
			"error":     err.Error(),
		})
		return nil, err
	}

	h.logger.Info("booking request valid", map[string]interface{}{
		"requestId":   request.RequestID,
		"serviceType": request.ServiceType,
	})
	return &Output{
		BookingRequest: models.BookingRequestFromDomain(request),
		RequestValid:   true,
	}, nil
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
