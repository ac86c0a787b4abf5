package notifier

import (
	"context"
	"errors"
	"strings"
	"time"

	"storefront-service/logger"
	"storefront-service/models"
	aws_pkg "storefront-service/pkg/aws"
	"storefront-service/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Message is one logical outbound notification.
type Message struct {
	OrderID     *uuid.UUID `json:"order_id,omitempty"`
	Destination string     `json:"destination"`
	Template    string     `json:"template"`
	Params      Params     `json:"params"`
	RequestID   string     `json:"request_id,omitempty"`
}

// Provider is one notification backend in the fallback chain.
type Provider interface {
	Name() string
	// Accepts reports whether the provider can deliver to destination.
	Accepts(destination string) bool
	// Send delivers body and returns the provider's response or message id.
	Send(ctx context.Context, destination, body string, orderID *uuid.UUID) (string, error)
}

// Handler delivers a message and reports how it went.
type Handler interface {
	Notify(ctx context.Context, msg Message) *models.NotificationAttempt
}

var errNoProvider = errors.New("no provider accepts destination")

type DispatcherConfig struct {
	// MaxRounds is how many times the whole provider chain is tried.
	MaxRounds int
	// Backoff is multiplied by the round number between rounds.
	Backoff time.Duration
}

// Dispatcher renders messages and walks the provider chain until one
// provider succeeds. Each message gets exactly one attempt row that moves
// from pending to sent or failed.
type Dispatcher struct {
	providers []Provider
	repo      repository.NotificationRepository
	templates *Templates
	cfg       DispatcherConfig
	metrics   aws_pkg.Metrics
	logger    *zap.Logger
	sleep     func(ctx context.Context, d time.Duration) error
}

func NewDispatcher(
	repo repository.NotificationRepository,
	templates *Templates,
	providers []Provider,
	cfg DispatcherConfig,
	metrics aws_pkg.Metrics,
	logger *zap.Logger,
) *Dispatcher {
	if cfg.MaxRounds < 1 {
		cfg.MaxRounds = 1
	}
	if metrics == nil {
		metrics = aws_pkg.NopMetrics{}
	}
	return &Dispatcher{
		providers: providers,
		repo:      repo,
		templates: templates,
		cfg:       cfg,
		metrics:   metrics,
		logger:    logger,
		sleep:     sleepCtx,
	}
}

// Notify never returns an error; the outcome lives on the returned attempt
// and in the attempt log.
func (d *Dispatcher) Notify(ctx context.Context, msg Message) *models.NotificationAttempt {
	if msg.RequestID != "" {
		ctx = logger.WithRequestID(ctx, msg.RequestID)
	}
	log := logger.For(ctx, d.logger).With(
		zap.String("template", msg.Template),
		zap.Stringp("order_id", orderIDString(msg.OrderID)),
	)

	attempt := &models.NotificationAttempt{
		OrderID:     msg.OrderID,
		Destination: strings.TrimSpace(msg.Destination),
		Template:    msg.Template,
		Status:      models.AttemptStatusPending,
	}

	dest, err := NormalizeDestination(msg.Destination)
	if err != nil {
		return d.failEarly(ctx, log, attempt, err)
	}
	attempt.Destination = dest

	body, err := d.templates.Render(msg.Template, msg.Params)
	if err != nil {
		return d.failEarly(ctx, log, attempt, err)
	}
	attempt.Message = body

	persisted := true
	if err := d.repo.Create(ctx, attempt); err != nil {
		persisted = false
		log.Error("failed to save notification attempt", zap.Error(err))
	}

	d.deliver(ctx, log, attempt, msg.OrderID)

	if persisted {
		if err := d.repo.UpdateOutcome(ctx, attempt); err != nil {
			log.Error("failed to update notification attempt", zap.Error(err))
		}
	}
	d.record(ctx, log, attempt)
	return attempt
}

func (d *Dispatcher) deliver(ctx context.Context, log *zap.Logger, attempt *models.NotificationAttempt, orderID *uuid.UUID) {
	var lastErr error
	for round := 0; round < d.cfg.MaxRounds; round++ {
		if round > 0 {
			if err := d.sleep(ctx, time.Duration(round)*d.cfg.Backoff); err != nil {
				lastErr = err
				break
			}
		}

		tried := false
		for _, p := range d.providers {
			if !p.Accepts(attempt.Destination) {
				continue
			}
			tried = true
			attempt.Attempts++

			resp, err := p.Send(ctx, attempt.Destination, attempt.Message, orderID)
			if err == nil {
				attempt.Status = models.AttemptStatusSent
				attempt.Provider = p.Name()
				attempt.ProviderResponse = resp
				attempt.Error = ""
				return
			}
			lastErr = err
			attempt.Provider = p.Name()
			log.Warn("send attempt failed",
				zap.String("provider", p.Name()),
				zap.Int("round", round+1),
				zap.Error(err),
			)
		}
		if !tried {
			lastErr = errNoProvider
			break
		}
	}

	attempt.Status = models.AttemptStatusFailed
	if lastErr != nil {
		attempt.Error = lastErr.Error()
	}
}

// failEarly logs a message that never reached a provider.
func (d *Dispatcher) failEarly(ctx context.Context, log *zap.Logger, attempt *models.NotificationAttempt, err error) *models.NotificationAttempt {
	attempt.Status = models.AttemptStatusFailed
	attempt.Error = err.Error()
	if saveErr := d.repo.Create(ctx, attempt); saveErr != nil {
		log.Error("failed to save notification attempt", zap.Error(saveErr))
	}
	d.record(ctx, log, attempt)
	return attempt
}

func (d *Dispatcher) record(ctx context.Context, log *zap.Logger, attempt *models.NotificationAttempt) {
	if attempt.Status == models.AttemptStatusSent {
		log.Info("notification sent",
			zap.String("provider", attempt.Provider),
			zap.Int("attempts", attempt.Attempts),
		)
		_ = d.metrics.RecordCount(ctx, aws_pkg.MetricNotificationsSent, map[string]string{"Provider": attempt.Provider})
		return
	}
	log.Warn("notification failed",
		zap.Int("attempts", attempt.Attempts),
		zap.String("error", attempt.Error),
	)
	_ = d.metrics.RecordCount(ctx, aws_pkg.MetricNotificationsFailed, nil)
}

func orderIDString(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
