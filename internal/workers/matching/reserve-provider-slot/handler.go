// internal/workers/matching/reserve-provider-slot/handler.go
package reserveproviderslot

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"time"

	"cleanmatch-workers/internal/common/database"
	"cleanmatch-workers/internal/common/errors"
	"cleanmatch-workers/internal/common/logger"
	"cleanmatch-workers/internal/common/metrics"
	"cleanmatch-workers/internal/common/observability"
	"cleanmatch-workers/internal/directory"
	"cleanmatch-workers/internal/matching"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
)

const (
	TaskType = "reserve-provider-slot"
)

// errSlotTaken means this provider can no longer take the booking and the
// next match should be tried.
var errSlotTaken = stderrors.New("SLOT_CONFLICT")

type Handler struct {
	config    *Config
	directory *directory.Directory
	locks     *redis.Client
	errors    *errors.ErrorHandler
	logger    logger.Logger
	newID     func() string
}

// NewHandler takes an optional redis client for advisory locks. The row lock
// taken inside the transaction is what guarantees no double booking.
func NewHandler(config *Config, dir *directory.Directory, locks *redis.Client, log logger.Logger) *Handler {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 5
	}
	if config.LockTTL <= 0 {
		config.LockTTL = 10 * time.Second
	}
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:    config,
		directory: dir,
		locks:     locks,
		errors:    errors.NewErrorHandler(l),
		logger:    l,
		newID:     uuid.NewString,
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

// Execute walks the ranked matches and books the first provider that is
// still free once its row is locked. Running out of candidates is reported
// as reserved=false so the process can re-rank or notify.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	request := input.BookingRequest.ToDomain()
	if request.TimeWindow.Duration <= 0 {
		return nil, errors.NewInvalidTimeWindowError("duration must be positive")
	}

	output := &Output{}
	for _, match := range input.Matches {
		if output.Attempts >= h.config.MaxAttempts {
			break
		}
		output.Attempts++

		reservationID, err := h.tryReserve(ctx, request, match.ProviderID)
		switch {
		case err == nil:
			metrics.ReservationAttempts.WithLabelValues("reserved").Inc()
			output.Reserved = true
			output.ProviderID = match.ProviderID
			output.ReservationID = reservationID

			h.logger.Info("provider slot reserved", map[string]interface{}{
				"requestId":     request.RequestID,
				"providerId":    match.ProviderID,
				"reservationId": reservationID,
				"attempts":      output.Attempts,
			})
			return output, nil

		case stderrors.Is(err, errSlotTaken):
			metrics.ReservationAttempts.WithLabelValues("conflict").Inc()
			output.Conflicts++
			h.logger.Info("provider no longer available", map[string]interface{}{
				"requestId":  request.RequestID,
				"providerId": match.ProviderID,
			})

		default:
			metrics.ReservationAttempts.WithLabelValues("error").Inc()
			return nil, errors.NewReservationFailedError(err)
		}
	}

	h.logger.Warn("no provider could be reserved", map[string]interface{}{
		"requestId": request.RequestID,
		"attempts":  output.Attempts,
		"conflicts": output.Conflicts,
	})
	return output, nil
}

func (h *Handler) tryReserve(ctx context.Context, request matching.BookingRequest, providerID string) (string, error) {
	if h.locks != nil {
		key := "lock:provider:" + providerID
		token := h.newID()

		acquired, err := database.AcquireLock(ctx, h.locks, key, token, h.config.LockTTL)
		switch {
		case err != nil:
			h.logger.Warn("advisory lock unavailable, relying on row lock", map[string]interface{}{
				"providerId": providerID,
				"error":      err.Error(),
			})
		case !acquired:
			return "", errSlotTaken
		default:
			defer func() {
				if err := database.ReleaseLock(context.Background(), h.locks, key, token); err != nil {
					h.logger.Warn("failed to release advisory lock", map[string]interface{}{
						"providerId": providerID,
						"error":      err.Error(),
					})
				}
			}()
		}
	}

	reservationID := h.newID()
	err := database.WithTx(ctx, h.directory.DB(), &sql.TxOptions{Isolation: sql.LevelSerializable}, func(tx *sql.Tx) error {
		provider, err := h.directory.LockProvider(ctx, tx, providerID)
		if err != nil {
			return err
		}
		if !provider.Active || !matching.IsAvailable(provider, request.TimeWindow) {
			return errSlotTaken
		}
		return h.directory.InsertSlot(ctx, tx, directory.Slot{
			ID:         reservationID,
			ProviderID: providerID,
			RequestID:  request.RequestID,
			Interval:   request.TimeWindow.Interval(),
		})
	})

	switch {
	case err == nil:
		return reservationID, nil
	case directory.IsSerializationFailure(err):
		return "", errSlotTaken
	case errors.FromError(err).Code == errors.ErrCodeProviderNotFound:
		return "", errSlotTaken
	}
	return "", err
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
