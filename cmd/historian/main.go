// cmd/historian is the asynchronous historian: it pops game actions from the Redis queue
// and persists them to Postgres.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jason-s-yu/literature/internal/cache"
	"github.com/jason-s-yu/literature/internal/database"
	"github.com/jason-s-yu/literature/internal/historian"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
)

func main() {
	logger := logrus.New()
	logger.SetLevel(logrus.InfoLevel)

	if err := database.ConnectDB(); err != nil {
		logger.Fatalf("database: %v", err)
	}
	defer database.Close()
	if err := cache.ConnectRedis(); err != nil {
		logger.Fatalf("redis: %v", err)
	}
	defer cache.Rdb.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc := historian.NewService(cache.Rdb, historian.PostgresSink{}, historian.ConfigFromEnv(), logger)
	logger.Infof("historian listening on %s", cache.QueueName())
	svc.Run(ctx)
	logger.Info("historian stopped")
}
