// internal/workers/matching/notify-no-match/handler.go
package notifynomatch

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"cleanmatch-workers/internal/common/errors"
	"cleanmatch-workers/internal/common/logger"
	"cleanmatch-workers/internal/common/metrics"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"
)

const (
	TaskType = "notify-no-match"
)

// Emailer is satisfied by aws.SESClient.
type Emailer interface {
	SendTextEmail(ctx context.Context, from string, to []string, subject, body string) (string, error)
}

// Publisher is satisfied by aws.SNSClient.
type Publisher interface {
	Publish(ctx context.Context, topicARN, subject, message string, attrs map[string]string) (string, error)
}

type Handler struct {
	config    *Config
	emailer   Emailer
	publisher Publisher
	errors    *errors.ErrorHandler
	logger    logger.Logger
	newID     func() string
}

// NewHandler accepts nil for either channel; a nil channel is treated as
// disabled regardless of config.
func NewHandler(config *Config, emailer Emailer, publisher Publisher, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:    config,
		emailer:   emailer,
		publisher: publisher,
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
		metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(errors.ErrCodeInputValidationFailed)).Inc()
		h.errors.HandleJobError(ctx, client, job, errors.NewInputValidationFailedError(err.Error()))
		return
	}

	output, err := h.Execute(ctx, &input)
	if err != nil {
		metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(errors.FromError(err).Code)).Inc()
		h.errors.HandleJobError(ctx, client, job, err)
		return
	}

	h.completeJob(ctx, client, job, output)
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
}

type delivery struct {
	channel string
	send    func(ctx context.Context) (string, error)
}

// Execute tells operations, and optionally the customer, that a booking
// found no provider. It fails only when every enabled channel fails.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	notificationID := h.newID()
	request := input.BookingRequest
	subject := fmt.Sprintf("No provider available for %s request %s", request.ServiceType, request.RequestID)
	body := h.buildMessage(notificationID, input)

	var deliveries []delivery
	if h.publisher != nil && h.config.SNSEnabled {
		attrs := map[string]string{
			"serviceType":    request.ServiceType,
			"notificationId": notificationID,
		}
		deliveries = append(deliveries, delivery{ChannelSNS, func(ctx context.Context) (string, error) {
			return h.publisher.Publish(ctx, h.config.OpsTopicARN, subject, body, attrs)
		}})
	}
	if h.emailer != nil && h.config.EmailEnabled {
		if h.config.OpsEmail != "" {
			deliveries = append(deliveries, delivery{ChannelOpsEmail, func(ctx context.Context) (string, error) {
				return h.emailer.SendTextEmail(ctx, h.config.FromEmail, []string{h.config.OpsEmail}, subject, body)
			}})
		}
		if email := strings.TrimSpace(input.CustomerEmail); email != "" {
			customerBody := h.buildCustomerMessage(input)
			deliveries = append(deliveries, delivery{ChannelCustomerEmail, func(ctx context.Context) (string, error) {
				return h.emailer.SendTextEmail(ctx, h.config.FromEmail, []string{email}, "We could not find a cleaner for your booking", customerBody)
			}})
		}
	}

	output := &Output{NotificationID: notificationID, Channels: []string{}}
	if len(deliveries) == 0 {
		h.logger.Warn("no notification channel enabled", map[string]interface{}{
			"requestId": request.RequestID,
		})
		return output, nil
	}

	var failures []error
	for _, d := range deliveries {
		messageID, err := d.send(ctx)
		if err != nil {
			metrics.NotificationsSent.WithLabelValues(d.channel, "failed").Inc()
			h.logger.Warn("notification channel failed", map[string]interface{}{
				"channel":   d.channel,
				"requestId": request.RequestID,
				"error":     err.Error(),
			})
			failures = append(failures, fmt.Errorf("%s: %w", d.channel, err))
			continue
		}
		metrics.NotificationsSent.WithLabelValues(d.channel, "sent").Inc()
		output.Channels = append(output.Channels, d.channel)
		h.logger.Debug("notification sent", map[string]interface{}{
			"channel":   d.channel,
			"messageId": messageID,
		})
	}

	if len(output.Channels) == 0 {
		return nil, errors.NewNotificationSendFailedError(strings.Join(channelNames(deliveries), ","), stderrors.Join(failures...))
	}

	h.logger.Info("no-match notification sent", map[string]interface{}{
		"requestId":      request.RequestID,
		"notificationId": notificationID,
		"channels":       output.Channels,
	})
	return output, nil
}

func (h *Handler) buildMessage(notificationID string, input *Input) string {
	var builder strings.Builder
	request := input.BookingRequest

	builder.WriteString(fmt.Sprintf("Notification: %s\n", notificationID))
	builder.WriteString(fmt.Sprintf("Request: %s\n", request.RequestID))
	builder.WriteString(fmt.Sprintf("Service type: %s\n", request.ServiceType))
	builder.WriteString(fmt.Sprintf("Postal code: %s\n", request.Location.PostalCode))
	builder.WriteString(fmt.Sprintf("Window: %s for %d minutes\n",
		request.TimeWindow.Start.UTC().Format(time.RFC3339), request.TimeWindow.DurationMinutes))
	if input.SearchScope != "" {
		builder.WriteString(fmt.Sprintf("Search scope: %s\n", input.SearchScope))
	}
	if request.BudgetCeiling != nil {
		builder.WriteString(fmt.Sprintf("Budget ceiling: %.2f/h\n", *request.BudgetCeiling))
	}

	e := input.Exclusions
	builder.WriteString(fmt.Sprintf("\nExcluded candidates: %d\n", input.ExcludedCount))
	builder.WriteString(fmt.Sprintf("  inactive: %d\n", e.Inactive))
	builder.WriteString(fmt.Sprintf("  service mismatch: %d\n", e.ServiceMismatch))
	builder.WriteString(fmt.Sprintf("  malformed: %d\n", e.Malformed))
	builder.WriteString(fmt.Sprintf("  unavailable: %d\n", e.Unavailable))

	return builder.String()
}

func (h *Handler) buildCustomerMessage(input *Input) string {
	request := input.BookingRequest
	return fmt.Sprintf(
		"We could not find an available %s provider for %s. Our team has been notified and will contact you about alternative times.\n\nReference: %s\n",
		request.ServiceType,
		request.TimeWindow.Start.UTC().Format("Mon, 02 Jan 2006 15:04 MST"),
		request.RequestID,
	)
}

func channelNames(deliveries []delivery) []string {
	names := make([]string, 0, len(deliveries))
	for _, d := range deliveries {
		names = append(names, d.channel)
	}
	return names
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
