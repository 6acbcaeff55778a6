package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/VaibhavvvMehta/sweet-shop-management/internal/domain"
	"github.com/VaibhavvvMehta/sweet-shop-management/internal/messaging"
	"github.com/VaibhavvvMehta/sweet-shop-management/internal/notify"
	"github.com/VaibhavvvMehta/sweet-shop-management/internal/telemetry"
)

const consumerGroup = "sweetshop-notifications"

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	kafkaBrokers := os.Getenv("KAFKA_BROKERS")
	if kafkaBrokers == "" {
		logger.Error("KAFKA_BROKERS environment variable is required")
		os.Exit(1)
	}

	emailServiceURL := os.Getenv("EMAIL_SERVICE_URL")
	if emailServiceURL == "" {
		logger.Error("EMAIL_SERVICE_URL environment variable is required")
		os.Exit(1)
	}

	adminEmail := os.Getenv("ADMIN_EMAIL")
	if adminEmail == "" {
		adminEmail = "admin@sweetshop.local"
	}

	otlpEndpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if otlpEndpoint == "" {
		otlpEndpoint = "localhost:4317"
	}

	shutdownTracer, err := telemetry.InitTracerProvider(ctx, "sweetshop-worker", "0.1.0", otlpEndpoint)
	if err != nil {
		logger.Error("failed to initialize tracer", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownTracer(context.Background()) }()

	httpClient := &http.Client{
		Timeout:   10 * time.Second,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}

	handler := notify.NewHandler(emailServiceURL, adminEmail, httpClient, logger)
	brokers := strings.Split(kafkaBrokers, ",")

	bindings := []struct {
		topic   string
		handler messaging.Handler
	}{
		{domain.TopicOrderCreated, handler.HandleOrderCreated},
		{domain.TopicOrderCancelled, handler.HandleOrderCancelled},
		{domain.TopicStockLow, handler.HandleStockLow},
	}

	go func() {
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
		<-stop
		logger.Info("shutting down")
		cancel()
	}()

	logger.Info("starting notification worker", "brokers", brokers)

	var wg sync.WaitGroup
	for _, b := range bindings {
		consumer := messaging.NewConsumer(brokers, b.topic, consumerGroup)

		wg.Add(1)
		go func(topic string, fn messaging.Handler) {
			defer wg.Done()
			defer func() { _ = consumer.Close() }()

			if err := consumer.Run(ctx, fn); err != nil && ctx.Err() == nil {
				logger.Error("consumer error", "error", err, "topic", topic)
				cancel()
			}
		}(b.topic, b.handler)
	}

	wg.Wait()
	logger.Info("all consumers stopped")
}
