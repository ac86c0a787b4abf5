package sender

import (
	"context"

	"storefront-service/notifier"
	aws_pkg "storefront-service/pkg/aws"

	"github.com/google/uuid"
)

// SNSSender sends transactional SMS through Amazon SNS.
type SNSSender struct {
	client   aws_pkg.SMSPublisher
	senderID string
}

func NewSNSSender(client aws_pkg.SMSPublisher, senderID string) *SNSSender {
	return &SNSSender{client: client, senderID: senderID}
}

func (s *SNSSender) Name() string { return NameSNS }

func (s *SNSSender) Accepts(destination string) bool { return !notifier.IsEmail(destination) }

func (s *SNSSender) Send(ctx context.Context, destination, body string, _ *uuid.UUID) (string, error) {
	to, err := notifier.ToE164(destination)
	if err != nil {
		return "", err
	}
	return s.client.PublishSMS(ctx, to, body, s.senderID)
}
