// internal/workers/matching/fetch-candidate-pool/handler.go
package fetchcandidatepool

import (
	"context"
	"encoding/json"
	"time"

	"cleanmatch-workers/internal/common/errors"
	"cleanmatch-workers/internal/common/logger"
	"cleanmatch-workers/internal/common/metrics"
	"cleanmatch-workers/internal/common/observability"
	"cleanmatch-workers/internal/directory"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"go.opentelemetry.io/otel/attribute"
)

const (
	TaskType = "fetch-candidate-pool"
)

type PoolFetcher interface {
	FetchPool(ctx context.Context, q directory.PoolQuery) (*directory.Pool, error)
}

type Handler struct {
	config    *Config
	directory PoolFetcher
	errors    *errors.ErrorHandler
	logger    logger.Logger
}

func NewHandler(config *Config, dir PoolFetcher, log logger.Logger) *Handler {
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
	ctx, span := observability.StartSpan(ctx, TaskType, attribute.Int64("jobKey", job.Key))

	var (
		output *Output
		input  Input
		err    error
	)
	if err = json.Unmarshal([]byte(job.Variables), &input); err != nil {
		err = errors.NewInputValidationFailedError(err.Error())
	} else {
		output, err = h.Execute(ctx, &input)
	}
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

// Execute reads the pool snapshot for the booking's service type and area.
// An empty pool is a valid result; the ranker reports it as no match.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	scope, err := directory.ParseScope(input.SearchScope)
	if err != nil {
		return nil, errors.NewInputValidationFailedError(err.Error())
	}

	request := input.BookingRequest
	pool, err := h.directory.FetchPool(ctx, directory.PoolQuery{
		ServiceType: request.ServiceType,
		PostalCode:  request.Location.PostalCode,
		Coordinates: request.Location.Coordinates,
		Scope:       scope,
	})
	if err != nil {
		h.logger.Error("candidate pool lookup failed", map[string]interface{}{
			"requestId": request.RequestID,
			"scope":     string(scope),
			"error":     err.Error(),
		})
		return nil, errors.NewCandidatePoolUnavailableError(err)
	}

	h.logger.Info("candidate pool fetched", map[string]interface{}{
		"requestId": request.RequestID,
		"scope":     string(scope),
		"source":    pool.Source,
		"count":     len(pool.Candidates),
	})
	return &Output{
		Candidates:     pool.Candidates,
		CandidateCount: len(pool.Candidates),
		Source:         pool.Source,
		SearchScope:    string(scope),
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
