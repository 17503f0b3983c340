package notifynomatch

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"cleanmatch-workers/internal/common/aws"
	"cleanmatch-workers/internal/common/errors"
	"cleanmatch-workers/internal/common/logger"
	"cleanmatch-workers/internal/matching"
	"cleanmatch-workers/internal/models"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

type sentEmail struct {
	from    string
	to      []string
	subject string
	body    string
}

type fakeEmailer struct {
	sent []sentEmail
	fail map[string]error
}

func (f *fakeEmailer) SendTextEmail(_ context.Context, from string, to []string, subject, body string) (string, error) {
	if err, ok := f.fail[to[0]]; ok {
		return "", err
	}
	f.sent = append(f.sent, sentEmail{from, to, subject, body})
	return "email-1", nil
}

type fakePublisher struct {
	topic   string
	message string
	attrs   map[string]string
	err     error
}

func (f *fakePublisher) Publish(_ context.Context, topicARN, _, message string, attrs map[string]string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.topic, f.message, f.attrs = topicARN, message, attrs
	return "sns-1", nil
}

func testConfig() *Config {
	return &Config{
		Timeout:      5 * time.Second,
		EmailEnabled: true,
		FromEmail:    "noreply@cleanmatch.test",
		OpsEmail:     "ops@cleanmatch.test",
		SNSEnabled:   true,
		OpsTopicARN:  "arn:aws:sns:us-east-1:000000000000:no-match",
	}
}

func testInput() *Input {
	budget := 35.0
	return &Input{
		BookingRequest: models.BookingRequest{
			RequestID:     "req-42",
			ServiceType:   "deep-cleaning",
			Location:      matching.Location{PostalCode: "94107"},
			TimeWindow:    models.TimeWindow{Start: time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC), DurationMinutes: 180},
			BudgetCeiling: &budget,
		},
		ExcludedCount: 3,
		Exclusions:    matching.ExclusionCounts{Inactive: 1, Unavailable: 2},
		SearchScope:   "national",
		CustomerEmail: "customer@example.com",
	}
}

func createTestHandler(t *testing.T, cfg *Config, emailer Emailer, publisher Publisher) *Handler {
	h := NewHandler(cfg, emailer, publisher, logger.NewTestLogger(t))
	h.newID = func() string { return "notif-1" }
	return h
}

// ==========================
// Execute
// ==========================

func TestExecute_AllChannels(t *testing.T) {
	emailer := &fakeEmailer{}
	publisher := &fakePublisher{}
	h := createTestHandler(t, testConfig(), emailer, publisher)

	output, err := h.Execute(context.Background(), testInput())
	require.NoError(t, err)

	assert.Equal(t, "notif-1", output.NotificationID)
	assert.Equal(t, []string{ChannelSNS, ChannelOpsEmail, ChannelCustomerEmail}, output.Channels)

	assert.Equal(t, "arn:aws:sns:us-east-1:000000000000:no-match", publisher.topic)
	assert.Equal(t, "deep-cleaning", publisher.attrs["serviceType"])
	assert.Contains(t, publisher.message, "Request: req-42")
	assert.Contains(t, publisher.message, "Excluded candidates: 3")
	assert.Contains(t, publisher.message, "unavailable: 2")
	assert.Contains(t, publisher.message, "Search scope: national")

	require.Len(t, emailer.sent, 2)
	assert.Equal(t, []string{"ops@cleanmatch.test"}, emailer.sent[0].to)
	assert.Equal(t, "noreply@cleanmatch.test", emailer.sent[0].from)
	assert.Contains(t, emailer.sent[0].subject, "req-42")
	assert.Equal(t, []string{"customer@example.com"}, emailer.sent[1].to)
	assert.Contains(t, emailer.sent[1].body, "Reference: req-42")
	assert.NotContains(t, emailer.sent[1].body, "Excluded candidates")
}

func TestExecute_PartialFailure(t *testing.T) {
	emailer := &fakeEmailer{}
	publisher := &fakePublisher{err: stderrors.New("topic not found")}
	h := createTestHandler(t, testConfig(), emailer, publisher)

	output, err := h.Execute(context.Background(), testInput())
	require.NoError(t, err)
	assert.Equal(t, []string{ChannelOpsEmail, ChannelCustomerEmail}, output.Channels)
}

func TestExecute_AllChannelsFail(t *testing.T) {
	emailer := &fakeEmailer{fail: map[string]error{
		"ops@cleanmatch.test":  stderrors.New("throttled"),
		"customer@example.com": stderrors.New("throttled"),
	}}
	publisher := &fakePublisher{err: stderrors.New("topic not found")}
	h := createTestHandler(t, testConfig(), emailer, publisher)

	_, err := h.Execute(context.Background(), testInput())
	require.Error(t, err)

	stdErr := errors.FromError(err)
	assert.Equal(t, errors.ErrCodeNotificationSendFailed, stdErr.Code)
	assert.True(t, stdErr.Retryable)
	assert.Contains(t, stdErr.Details, "topic not found")
	assert.Contains(t, stdErr.Details, "throttled")
}

func TestExecute_ChannelsDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.EmailEnabled = false
	publisher := &fakePublisher{}
	emailer := &fakeEmailer{}
	h := createTestHandler(t, cfg, emailer, publisher)

	output, err := h.Execute(context.Background(), testInput())
	require.NoError(t, err)
	assert.Equal(t, []string{ChannelSNS}, output.Channels)
	assert.Empty(t, emailer.sent)

	cfg.SNSEnabled = false
	output, err = h.Execute(context.Background(), testInput())
	require.NoError(t, err)
	assert.Empty(t, output.Channels)
	assert.Equal(t, "notif-1", output.NotificationID)
}

func TestExecute_NoCustomerEmail(t *testing.T) {
	emailer := &fakeEmailer{}
	h := createTestHandler(t, testConfig(), emailer, nil)

	input := testInput()
	input.CustomerEmail = "  "
	output, err := h.Execute(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, []string{ChannelOpsEmail}, output.Channels)
	require.Len(t, emailer.sent, 1)
}

// ==========================
// AWS clients
// ==========================

type recordingSES struct{ inputs []*ses.SendEmailInput }

func (r *recordingSES) SendEmail(_ context.Context, params *ses.SendEmailInput, _ ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	r.inputs = append(r.inputs, params)
	return &ses.SendEmailOutput{MessageId: sdkaws.String("ses-1")}, nil
}

type recordingSNS struct{ inputs []*sns.PublishInput }

func (r *recordingSNS) Publish(_ context.Context, params *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	r.inputs = append(r.inputs, params)
	return &sns.PublishOutput{MessageId: sdkaws.String("sns-1")}, nil
}

func TestExecute_WithAWSClients(t *testing.T) {
	sesAPI := &recordingSES{}
	snsAPI := &recordingSNS{}
	h := createTestHandler(t, testConfig(), aws.NewSESClientWithAPI(sesAPI), aws.NewSNSClientWithAPI(snsAPI))

	output, err := h.Execute(context.Background(), testInput())
	require.NoError(t, err)
	assert.Len(t, output.Channels, 3)

	require.Len(t, snsAPI.inputs, 1)
	attr := snsAPI.inputs[0].MessageAttributes["serviceType"]
	assert.Equal(t, "deep-cleaning", sdkaws.ToString(attr.StringValue))

	require.Len(t, sesAPI.inputs, 2)
	assert.Equal(t, []string{"customer@example.com"}, sesAPI.inputs[1].Destination.ToAddresses)
}
