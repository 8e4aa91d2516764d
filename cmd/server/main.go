package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"swiftDropWs/internal/config"
	"swiftDropWs/internal/modules/relay/application/handler"
	"swiftDropWs/internal/modules/relay/application/usecase"
	"swiftDropWs/internal/modules/relay/infrastructure"
	transport "swiftDropWs/internal/modules/relay/interface"
	"swiftDropWs/internal/platform/broker"
	"swiftDropWs/internal/shared/auth"
	"swiftDropWs/internal/shared/logging"
)

func main() {
	// Load .env so local runs honour configuration tweaks.
	if err := godotenv.Overload(); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, ".env load warning: %v\n", err)
		}
	}
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load error: %v\n", err)
		os.Exit(1)
	}

	logger, logCloser, err := logging.NewRotating(logging.Config{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		AddSource:  true,
		Directory:  cfg.Logging.Directory,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging setup error: %v\n", err)
		os.Exit(1)
	}
	if logCloser != nil {
		defer logCloser.Close()
	}
	slog.SetDefault(logger)
	slog.Info("logging initialized", slog.String("level", cfg.Logging.Level), slog.String("format", cfg.Logging.Format))
	slog.Info("kafka config resolved", slog.Any("brokers", cfg.Kafka.Brokers), slog.String("group", cfg.Kafka.GroupID))

	hub := infrastructure.NewHub()

	validator := auth.NewJWTValidatorWithPublicKey(cfg.Security.JWTSecret, cfg.Security.JWTPublicKey)
	ownership := infrastructure.NewOwnershipHTTPClient(cfg.REST.BaseURL, cfg.REST.Timeout, cfg.Security.ServiceToken, cfg.REST.OwnershipCacheTTL, nil)
	commands := infrastructure.NewCommandProcessor(hub, validator, ownership)
	notifier := usecase.NewNotifier(hub)

	// Kafka ingress: one handler per committed-change stream.
	registry := infrastructure.NewHandlerRegistry()
	registry.Register(handler.NewOrderEventsHandler(cfg.Kafka.OrderTopic, notifier))
	registry.Register(handler.NewInventoryEventsHandler(cfg.Kafka.InventoryTopic, notifier, hub))
	registry.Register(handler.NewSystemEventsHandler(cfg.Kafka.SystemTopic, notifier))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	broker.StartKafkaConsumers(ctx, registry, cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.Topics())

	e := echo.New()
	e.HideBanner = true
	e.Logger.SetOutput(log.Writer())

	wsHandler := transport.NewWebsocketHandler(hub, commands, transport.Options{
		SendBuffer:         cfg.Websocket.SendBuffer,
		LocationRatePerSec: cfg.Websocket.LocationRatePerSec,
		LocationBurst:      cfg.Websocket.LocationBurst,
	})
	e.GET("/ws", wsHandler)
	e.POST("/internal/notify", transport.NewNotifyHandler(notifier, cfg.Security.ServiceToken))
	e.GET("/stats", transport.NewStatsHandler(hub))

	go func() {
		if err := e.Start(":" + cfg.Server.Port); err != nil {
			slog.Error("http server stopped", slog.Any("error", err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	slog.Info("shutting down")
	e.Close()
}
