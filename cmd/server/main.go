package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/wurt83ow/guestbook/internal/apiservice"
	"github.com/wurt83ow/guestbook/internal/auth"
	"github.com/wurt83ow/guestbook/internal/bdkeeper"
	"github.com/wurt83ow/guestbook/internal/config"
	"github.com/wurt83ow/guestbook/internal/controllers"
	"github.com/wurt83ow/guestbook/internal/kafka"
	"github.com/wurt83ow/guestbook/internal/logger"
	"github.com/wurt83ow/guestbook/internal/mgkeeper"
	"github.com/wurt83ow/guestbook/internal/ratelimit"
	"github.com/wurt83ow/guestbook/internal/sqlkeeper"
	"github.com/wurt83ow/guestbook/internal/storage"
	"go.uber.org/zap"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Println("error loading .env file:", err)
	}

	option := config.NewOptions()
	option.ParseFlags()

	nLogger, err := logger.NewLogger(option.LogLevel())
	if err != nil {
		log.Fatalln(err)
	}

	// A failed keeper constructor leaves the interface nil; the storage
	// layer then answers every request with unavailability instead of
	// taking the process down.
	var keeper storage.Keeper
	switch option.StorageBackend() {
	case "postgres":
		if kp := bdkeeper.NewBDKeeper(option.DatabaseURI, nLogger); kp != nil {
			keeper = kp
		}
	case "mongo":
		if kp := mgkeeper.NewMGKeeper(option.MongoURI, nLogger); kp != nil {
			keeper = kp
		}
	default:
		if kp := sqlkeeper.NewSQLKeeper(option.SQLitePath, nLogger); kp != nil {
			keeper = kp
		}
	}

	messageStorage := storage.NewMessageStorage(keeper, nLogger)
	limiter := ratelimit.NewLimiter(messageStorage, ratelimit.DefaultLimit, ratelimit.DefaultWindow)
	gate := auth.NewGate(option.AdminPassword)

	var external apiservice.External
	producer := kafka.NewKafkaProducer(option.KafkaBrokers)
	if producer != nil {
		external = controllers.NewExtController(producer, nLogger)
		nLogger.Info("kafka publishing enabled", zap.String("brokers", option.KafkaBrokers()))
	}

	service := apiservice.NewSubmissionService(messageStorage, limiter, external, nLogger)
	controller := controllers.NewBaseController(messageStorage, service, gate, option.FrontendURL, nLogger)

	server := &http.Server{
		Addr:    option.RunAddr(),
		Handler: controller.Route(),
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			nLogger.Error("server error", zap.Error(err))
		}
	}()

	nLogger.Info("running server", zap.String("address", option.RunAddr()),
		zap.String("backend", option.StorageBackend()))

	sigint := make(chan os.Signal, 1)
	signal.Notify(sigint, syscall.SIGINT, syscall.SIGTERM)
	<-sigint

	nLogger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		nLogger.Error("server shutdown error", zap.Error(err))
	}

	if producer != nil {
		if err := producer.Close(); err != nil {
			nLogger.Error("kafka producer close error", zap.Error(err))
		}
	}

	if err := messageStorage.Close(); err != nil {
		nLogger.Error("storage close error", zap.Error(err))
	}

	_ = nLogger.Sync()
}
