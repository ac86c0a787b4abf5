// Package consumer drains queued notifications from SQS into the
// dispatcher.
package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"storefront-service/notifier"
	aws_pkg "storefront-service/pkg/aws"

	"go.uber.org/zap"
)

// Receiver is the part of an SQS queue the consumer needs.
type Receiver interface {
	Receive(ctx context.Context, max int32, waitSeconds int32) ([]aws_pkg.Message, error)
	Delete(ctx context.Context, receiptHandle string) error
}

type SQSConsumer struct {
	queue        Receiver
	handler      notifier.Handler
	metrics      aws_pkg.Metrics
	logger       *zap.Logger
	errorBackoff time.Duration
}

func NewSQSConsumer(queue Receiver, handler notifier.Handler, metrics aws_pkg.Metrics, logger *zap.Logger) *SQSConsumer {
	if metrics == nil {
		metrics = aws_pkg.NopMetrics{}
	}
	return &SQSConsumer{
		queue:        queue,
		handler:      handler,
		metrics:      metrics,
		logger:       logger,
		errorBackoff: 5 * time.Second,
	}
}

// Start polls until ctx is cancelled.
func (c *SQSConsumer) Start(ctx context.Context) {
	c.logger.Info("SQS consumer started")
	for {
		select {
		case <-ctx.Done():
			c.logger.Info("SQS consumer shutting down")
			return
		default:
			c.poll(ctx)
		}
	}
}

func (c *SQSConsumer) poll(ctx context.Context) {
	msgs, err := c.queue.Receive(ctx, 10, 5)
	if err != nil {
		if errors.Is(err, context.Canceled) || ctx.Err() != nil {
			return
		}
		c.logger.Error("SQS receive error", zap.Error(err))
		select {
		case <-ctx.Done():
		case <-time.After(c.errorBackoff):
		}
		return
	}
	for _, m := range msgs {
		c.processMessage(ctx, m)
	}
}

// snsEnvelope unwraps messages that reached the queue through an SNS
// subscription without raw delivery.
type snsEnvelope struct {
	Type    string `json:"Type"`
	Message string `json:"Message"`
}

func decode(body string) (notifier.Message, error) {
	raw := []byte(body)
	var env snsEnvelope
	if err := json.Unmarshal(raw, &env); err == nil && env.Type == "Notification" && env.Message != "" {
		raw = []byte(env.Message)
	}

	var msg notifier.Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		return msg, err
	}
	if msg.Destination == "" || msg.Template == "" {
		return msg, errors.New("message missing destination or template")
	}
	return msg, nil
}

// processMessage hands one message to the dispatcher and deletes it. The
// dispatcher owns retries.
func (c *SQSConsumer) processMessage(ctx context.Context, m aws_pkg.Message) {
	msg, err := decode(m.Body)
	if err != nil {
		c.logger.Error("dropping unparseable notification message", zap.Error(err))
		c.delete(ctx, m.ReceiptHandle)
		return
	}

	attempt := c.handler.Notify(ctx, msg)
	c.delete(ctx, m.ReceiptHandle)
	_ = c.metrics.RecordCount(ctx, aws_pkg.MetricSQSMessages, map[string]string{"Status": attempt.Status})
}

func (c *SQSConsumer) delete(ctx context.Context, receiptHandle string) {
	if err := c.queue.Delete(ctx, receiptHandle); err != nil {
		c.logger.Error("failed to delete SQS message", zap.Error(err))
	}
}
