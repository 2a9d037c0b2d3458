package notify

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Message почтовое задание: шаблон и его данные, рендер происходит у воркера
type Message struct {
	To       string         `json:"to"`
	From     string         `json:"from"`
	Subject  string         `json:"subject"`
	Template string         `json:"template"`
	Context  map[string]any `json:"context"`
}

// Notifier транспорт уведомлений
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

// Dispatcher отправляет уведомления в фоне. Ошибки доставки логируются и
// никогда не доходят до вызвавшей бизнес-операции.
type Dispatcher struct {
	notifier Notifier
	logger   *zap.Logger
}

func NewDispatcher(notifier Notifier, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{notifier: notifier, logger: logger}
}

// Dispatch fire-and-forget
func (d *Dispatcher) Dispatch(msg Message) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := d.notifier.Send(ctx, msg); err != nil {
			d.logger.Warn("notification delivery failed",
				zap.String("to", msg.To),
				zap.String("template", msg.Template),
				zap.Error(err))
			return
		}
		d.logger.Info("notification dispatched",
			zap.String("to", msg.To),
			zap.String("template", msg.Template))
	}()
}
