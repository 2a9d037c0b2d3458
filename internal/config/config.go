package config

import (
	"os"
	"strconv"
	"strings"
)

// Config параметры процесса; читаются из окружения один раз на старте
type Config struct {
	HTTPAddr string

	// DSN вида user:pass@tcp(host:port)/db?parseTime=true; пусто — in-memory хранилище
	DatabaseDSN string

	LowStockThreshold int64

	// брокеры Kafka для почтовых событий; пусто — уведомления пишутся только в лог
	KafkaBrokers []string
	MailTopic    string
	MailFrom     string
	AdminEmail   string
}

func Load() Config {
	cfg := Config{
		HTTPAddr:          getEnv("HTTP_ADDR", ":9091"),
		DatabaseDSN:       os.Getenv("DB_DSN"),
		LowStockThreshold: getEnvInt64("LOW_STOCK_THRESHOLD", 5),
		MailTopic:         getEnv("KAFKA_MAIL_TOPIC", "shopie.mail"),
		MailFrom:          getEnv("MAIL_FROM", "Shopie <no-reply@shopie.com>"),
		AdminEmail:        getEnv("ADMIN_EMAIL", "admin@example.com"),
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		cfg.KafkaBrokers = strings.Split(v, ",")
	}
	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt64(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		if x, err := strconv.ParseInt(v, 10, 64); err == nil {
			return x
		}
	}
	return def
}
