// Package sender holds the notification providers the dispatcher can fall
// back between.
package sender

import (
	"fmt"

	"storefront-service/notifier"
	aws_pkg "storefront-service/pkg/aws"

	"go.uber.org/zap"
)

// Provider names accepted in NOTIFY_PROVIDERS.
const (
	NameTwilio = "twilio"
	NameSNS    = "sns"
	NameSMTP   = "smtp"
	NameLog    = "log"
)

// Options carries what each provider needs. Only the providers named in
// New are validated.
type Options struct {
	Twilio      TwilioConfig
	SMTP        SMTPConfig
	SMS         aws_pkg.SMSPublisher
	SNSSenderID string
	Logger      *zap.Logger
}

// New builds the provider chain in the given order.
func New(names []string, opts Options) ([]notifier.Provider, error) {
	providers := make([]notifier.Provider, 0, len(names))
	for _, name := range names {
		switch name {
		case NameTwilio:
			p, err := NewTwilioSender(opts.Twilio)
			if err != nil {
				return nil, err
			}
			providers = append(providers, p)
		case NameSNS:
			if opts.SMS == nil {
				return nil, fmt.Errorf("sns provider requires an SNS client")
			}
			providers = append(providers, NewSNSSender(opts.SMS, opts.SNSSenderID))
		case NameSMTP:
			p, err := NewSMTPSender(opts.SMTP)
			if err != nil {
				return nil, err
			}
			providers = append(providers, p)
		case NameLog:
			providers = append(providers, NewLogSender(opts.Logger))
		default:
			return nil, fmt.Errorf("unknown notification provider %q", name)
		}
	}
	if len(providers) == 0 {
		return nil, fmt.Errorf("no notification providers configured")
	}
	return providers, nil
}
