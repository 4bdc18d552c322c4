package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus"

	"example.com/warehouse/config"
)

// Client defines the interface for message bus operations
type Client interface {
	PublishMessage(ctx context.Context, message interface{}, queueName string) error
	ReceiveMessages(ctx context.Context, queueName string, count int) ([]Message, error)
	Close(ctx context.Context) error
}

// Message represents a message from the message bus
type Message interface {
	Body() ([]byte, error)
	Complete(ctx context.Context) error
	Reject(ctx context.Context) error
}

// AzureServiceBusClient implements Client using Azure Service Bus
type AzureServiceBusClient struct {
	client *azservicebus.Client
}

// serviceBusMessage implements Message
type serviceBusMessage struct {
	message  *azservicebus.ReceivedMessage
	receiver *azservicebus.Receiver
}

// NewClient creates a new message bus client
func NewClient(cfg config.AzureConfig) (Client, error) {
	client, err := azservicebus.NewClientFromConnectionString(cfg.ConnectionString, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create service bus client: %w", err)
	}

	return &AzureServiceBusClient{client: client}, nil
}

// PublishMessage publishes a message to a queue
func (c *AzureServiceBusClient) PublishMessage(ctx context.Context, message interface{}, queueName string) error {
	sender, err := c.client.NewSender(queueName, nil)
	if err != nil {
		return fmt.Errorf("failed to create sender for queue %s: %w", queueName, err)
	}
	defer sender.Close(ctx)

	messageBytes, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	sbMessage := &azservicebus.Message{
		Body: messageBytes,
		ApplicationProperties: map[string]interface{}{
			"source": "warehouse",
			"time":   time.Now().UTC().Format(time.RFC3339),
		},
	}

	if err := sender.SendMessage(ctx, sbMessage, nil); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}

	return nil
}

// ReceiveMessages receives messages from a queue in peek-lock mode
func (c *AzureServiceBusClient) ReceiveMessages(ctx context.Context, queueName string, count int) ([]Message, error) {
	receiver, err := c.client.NewReceiverForQueue(
		queueName,
		&azservicebus.ReceiverOptions{
			ReceiveMode: azservicebus.ReceiveModePeekLock,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create receiver for queue %s: %w", queueName, err)
	}

	receiveCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	sbMessages, err := receiver.ReceiveMessages(receiveCtx, count, nil)
	if err != nil {
		_ = receiver.Close(ctx)
		return nil, fmt.Errorf("failed to receive messages: %w", err)
	}

	messages := make([]Message, len(sbMessages))
	for i, sbMessage := range sbMessages {
		messages[i] = &serviceBusMessage{
			message:  sbMessage,
			receiver: receiver,
		}
	}

	if len(messages) == 0 {
		_ = receiver.Close(ctx)
	}

	return messages, nil
}

// Close closes the client
func (c *AzureServiceBusClient) Close(ctx context.Context) error {
	return c.client.Close(ctx)
}

// Body returns the raw message body
func (m *serviceBusMessage) Body() ([]byte, error) {
	if m.message.Body == nil {
		return nil, fmt.Errorf("message has no body")
	}
	return m.message.Body, nil
}

// Complete marks the message as complete
func (m *serviceBusMessage) Complete(ctx context.Context) error {
	if err := m.receiver.CompleteMessage(ctx, m.message, nil); err != nil {
		return fmt.Errorf("failed to complete message: %w", err)
	}
	return nil
}

// Reject abandons the message so it can be redelivered
func (m *serviceBusMessage) Reject(ctx context.Context) error {
	if err := m.receiver.AbandonMessage(ctx, m.message, nil); err != nil {
		return fmt.Errorf("failed to abandon message: %w", err)
	}
	return nil
}

// IsDisconnectionError checks if an error is a disconnection error
func IsDisconnectionError(err error) bool {
	if err == nil {
		return false
	}

	errMsg := err.Error()
	return strings.Contains(errMsg, "amqp: link detached") ||
		strings.Contains(errMsg, "awaiting send: context deadline exceeded")
}

// RetryWithBackoff retries an operation with exponential backoff
func RetryWithBackoff(ctx context.Context, fn func() error, maxRetries int) error {
	var err error

	for retry := 0; retry < maxRetries; retry++ {
		err = fn()
		if err == nil {
			return nil
		}

		if !IsDisconnectionError(err) {
			return err
		}

		backoff := time.Duration(1<<uint(retry)) * time.Second
		if backoff > 30*time.Second {
			backoff = 30 * time.Second
		}

		select {
		case <-time.After(backoff):
			continue
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return err
}
