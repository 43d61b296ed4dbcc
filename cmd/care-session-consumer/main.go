package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"care-session-service/internal/config"
	"care-session-service/internal/messaging"
	"care-session-service/internal/repository"
	"care-session-service/pkg/broker"
	"care-session-service/pkg/database"
	"care-session-service/pkg/logger"
)

// Runs the cache sync consumer standalone: applies upstream patient/user
// events into the per-tenant read caches.
func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "care-session-consumer")
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	patientsRepo := repository.NewPostgresPatientsRepository(db)
	usersRepo := repository.NewPostgresUsersRepository(db)

	// Manual acks: a message is acknowledged only after its write commits, so
	// apply failures are redelivered.
	client, err := broker.NewClient(&broker.Config{
		URL:        cfg.Broker.URL,
		ClientID:   cfg.Broker.ClientID + "-consumer",
		Username:   cfg.Broker.Username,
		Password:   cfg.Broker.Password,
		ManualAcks: true,
	}, log)
	if err != nil {
		log.Fatal("failed to connect to broker", zap.Error(err))
	}
	defer client.Disconnect()

	consumer := messaging.NewCacheSyncConsumer(patientsRepo, usersRepo, client, cfg.Broker.TopicPrefix, log)
	if err := consumer.Start(); err != nil {
		log.Fatal("failed to start consumer", zap.Error(err))
	}
	log.Info("cache sync consumer running")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Info("shutting down", zap.String("signal", sig.String()))

	if err := consumer.Stop(); err != nil {
		log.Warn("unsubscribe failed", zap.Error(err))
	}
}
