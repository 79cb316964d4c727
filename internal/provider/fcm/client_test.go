package fcm_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"firebase.google.com/go/v4/messaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tinywideclouds/go-push-dispatch/internal/provider/fcm"
	"github.com/tinywideclouds/go-push-dispatch/pkg/notify"
)

// MockClient satisfies the MessagingClient interface.
type MockClient struct {
	mock.Mock
}

func (m *MockClient) Send(ctx context.Context, msg *messaging.Message) (string, error) {
	args := m.Called(ctx, msg)
	return args.String(0), args.Error(1)
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestFCMSend(t *testing.T) {
	ctx := context.Background()
	payload := notify.NotificationPayload{
		Title:    "Hello",
		Body:     "World",
		Priority: notify.PriorityHigh,
		Data:     map[string]string{"id": "1"},
	}

	t.Run("Happy path maps payload and returns receipt", func(t *testing.T) {
		mockClient := new(MockClient)
		client := fcm.NewClient(mockClient, newTestLogger())

		mockClient.On("Send", ctx, mock.MatchedBy(func(msg *messaging.Message) bool {
			return msg.Token == "token-1" &&
				msg.Notification.Title == "Hello" &&
				msg.Android.Priority == "high" &&
				msg.Data["id"] == "1"
		})).Return("projects/p/messages/msg-1", nil)

		receipt, err := client.Send(ctx, "token-1", payload)

		require.NoError(t, err)
		assert.Equal(t, "projects/p/messages/msg-1", receipt.MessageID)
		mockClient.AssertExpectations(t)
	})

	t.Run("Transport failure is classified transient", func(t *testing.T) {
		mockClient := new(MockClient)
		client := fcm.NewClient(mockClient, newTestLogger())

		mockClient.On("Send", ctx, mock.Anything).Return("", errors.New("network down"))

		_, err := client.Send(ctx, "token-1", payload)

		var provErr *notify.ProviderError
		require.ErrorAs(t, err, &provErr)
		assert.Equal(t, notify.TransientFailure, provErr.Kind)
	})

	// The SDK's IsRegistrationTokenNotRegistered / IsInvalidArgument
	// classification is exercised by the integration test; mocking the
	// Firebase SDK's internal error types is brittle.
}
