package sender

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// LogSender only logs the message. It accepts every destination and is the
// default in development.
type LogSender struct {
	logger *zap.Logger
}

func NewLogSender(logger *zap.Logger) *LogSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSender{logger: logger}
}

func (l *LogSender) Name() string { return NameLog }

func (l *LogSender) Accepts(string) bool { return true }

func (l *LogSender) Send(_ context.Context, destination, body string, orderID *uuid.UUID) (string, error) {
	id := uuid.NewString()
	fields := []zap.Field{
		zap.String("message_id", id),
		zap.String("destination", destination),
		zap.String("body", body),
	}
	if orderID != nil {
		fields = append(fields, zap.String("order_id", orderID.String()))
	}
	l.logger.Info("notification logged", fields...)
	return "log-" + id, nil
}
