package notify

import (
	"context"

	"go.uber.org/zap"
)

// LogNotifier пишет письма в лог; используется без Kafka (dev-режим)
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

var _ Notifier = (*LogNotifier)(nil)

func (n *LogNotifier) Send(ctx context.Context, msg Message) error {
	n.logger.Info("mail (log transport)",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.String("template", msg.Template),
		zap.Any("context", msg.Context))
	return nil
}
