package sns

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockPublisher struct{ mock.Mock }

func (m *mockPublisher) Publish(ctx context.Context, in *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	args := m.Called(ctx, in)
	return &sns.PublishOutput{}, args.Error(0)
}

func TestSendSMS_PublishesToPhone(t *testing.T) {
	pub := &mockPublisher{}
	pub.On("Publish", mock.Anything, mock.MatchedBy(func(in *sns.PublishInput) bool {
		_, hasSender := in.MessageAttributes["AWS.SNS.SMS.SenderID"]
		return *in.PhoneNumber == "+15551230000" && *in.Message == "hello" && hasSender
	})).Return(nil)

	err := NewSenderWithClient(pub, "MEDPLUS").SendSMS(context.Background(), "+15551230000", "hello")
	require.NoError(t, err)
	pub.AssertExpectations(t)
}

func TestSendSMS_NoSenderID(t *testing.T) {
	pub := &mockPublisher{}
	pub.On("Publish", mock.Anything, mock.MatchedBy(func(in *sns.PublishInput) bool {
		_, hasSender := in.MessageAttributes["AWS.SNS.SMS.SenderID"]
		return !hasSender
	})).Return(nil)

	require.NoError(t, NewSenderWithClient(pub, "").SendSMS(context.Background(), "+15551230000", "hi"))
	pub.AssertExpectations(t)
}

func TestSendSMS_Failure(t *testing.T) {
	pub := &mockPublisher{}
	pub.On("Publish", mock.Anything, mock.Anything).Return(errors.New("throttled"))

	err := NewSenderWithClient(pub, "").SendSMS(context.Background(), "+15551230000", "hi")
	assert.ErrorContains(t, err, "publish sms")
}

func TestLogSender_NeverFails(t *testing.T) {
	assert.NoError(t, LogSender{Reveal: true}.SendSMS(context.Background(), "+15551230000", "code 123456"))
	assert.NoError(t, LogSender{}.SendSMS(context.Background(), "+15551230000", "code 123456"))
}
