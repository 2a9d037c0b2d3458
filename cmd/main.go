package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"shopie/internal/config"
	httpapi "shopie/internal/http"
	"shopie/internal/notify"
	"shopie/internal/repository"
	"shopie/internal/service"

	_ "shopie/docs"
)

func main() {
	cfg := config.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("logger init: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	var (
		productsRepo repository.ProductRepository
		cartsRepo    repository.CartRepository
		ordersRepo   repository.OrderRepository
		usersRepo    repository.UserRepository
		tx           repository.TxManager
	)
	if cfg.DatabaseDSN != "" {
		store, err := repository.OpenMySQL(cfg.DatabaseDSN)
		if err != nil {
			logger.Fatal("mysql connect failed", zap.Error(err))
		}
		defer func() { _ = store.Close() }()
		if err := store.InitSchema(context.Background()); err != nil {
			logger.Fatal("schema init failed", zap.Error(err))
		}
		productsRepo = repository.NewMySQLProducts(store)
		cartsRepo = repository.NewMySQLCarts(store)
		ordersRepo = repository.NewMySQLOrders(store)
		usersRepo = repository.NewMySQLUsers(store)
		tx = repository.NewMySQLTx(store)
		logger.Info("using mysql store")
	} else {
		store := repository.NewMemoryStore()
		productsRepo = store
		cartsRepo = repository.NewMemoryCarts(store)
		ordersRepo = repository.NewMemoryOrders(store)
		usersRepo = repository.NewMemoryUsers(store)
		tx = repository.NewMemoryTx(store)
		logger.Info("using in-memory store")
	}

	var notifier notify.Notifier
	if len(cfg.KafkaBrokers) > 0 {
		kn := notify.NewKafkaNotifier(cfg.KafkaBrokers, cfg.MailTopic)
		defer func() { _ = kn.Close() }()
		notifier = kn
		logger.Info("mail events go to kafka", zap.Strings("brokers", cfg.KafkaBrokers), zap.String("topic", cfg.MailTopic))
	} else {
		notifier = notify.NewLogNotifier(logger)
		logger.Info("mail events go to log only")
	}
	dispatcher := notify.NewDispatcher(notifier, logger)

	productsSvc := service.NewProductService(productsRepo)
	inventorySvc := service.NewInventoryService(productsRepo, dispatcher, logger, cfg.LowStockThreshold, cfg.AdminEmail, cfg.MailFrom)
	cartsSvc := service.NewCartService(cartsRepo, productsRepo, logger)
	ordersSvc := service.NewOrderService(cartsSvc, inventorySvc, ordersRepo, usersRepo, tx, dispatcher, logger, cfg.MailFrom)

	srv := httpapi.NewServer(productsSvc, cartsSvc, ordersSvc, logger)

	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: srv.Engine(),
	}

	go func() {
		logger.Info("HTTP server listening", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", zap.Error(err))
	}
}
