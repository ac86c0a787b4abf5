// Package events publishes committed order events to SNS.
package events

import (
	"context"
	"encoding/json"

	"storefront-service/logger"
	"storefront-service/models"
	aws_pkg "storefront-service/pkg/aws"

	"go.uber.org/zap"
)

// SNSPublisher publishes order events to one topic. Failures are logged and
// never returned; the order has already committed.
type SNSPublisher struct {
	client   aws_pkg.SNSPublisher
	topicARN string
	logger   *zap.Logger
}

func NewSNSPublisher(client aws_pkg.SNSPublisher, topicARN string, logger *zap.Logger) *SNSPublisher {
	return &SNSPublisher{client: client, topicARN: topicARN, logger: logger}
}

func (p *SNSPublisher) Publish(ctx context.Context, event models.OrderEvent) {
	log := logger.For(ctx, p.logger).With(
		zap.String("event_type", event.EventType),
		zap.String("order_number", event.OrderNumber),
	)

	body, err := json.Marshal(event)
	if err != nil {
		log.Error("failed to marshal order event", zap.Error(err))
		return
	}

	attrs := map[string]string{
		"event_type": event.EventType,
		"status":     string(event.ToStatus),
	}
	if err := p.client.Publish(ctx, p.topicARN, body, attrs); err != nil {
		log.Warn("failed to publish order event", zap.Error(err))
		return
	}
	log.Debug("order event published")
}

// NopPublisher drops events; used when no topic is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, models.OrderEvent) {}
