package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/Sanjarbek17/MedAI/internal/billing"
	"github.com/Sanjarbek17/MedAI/internal/classify"
	"github.com/Sanjarbek17/MedAI/internal/config"
	"github.com/Sanjarbek17/MedAI/internal/dispatch"
	"github.com/Sanjarbek17/MedAI/internal/gateway"
	"github.com/Sanjarbek17/MedAI/internal/geo"
	"github.com/Sanjarbek17/MedAI/internal/httpapi"
	"github.com/Sanjarbek17/MedAI/internal/ingest"
	"github.com/Sanjarbek17/MedAI/internal/logging"
	"github.com/Sanjarbek17/MedAI/internal/storage"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadServerConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.NewLogger(cfg.LogLevel)

	var opts []dispatch.Option
	if len(cfg.KafkaBrokers) > 0 {
		producer := ingest.NewKafkaProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer producer.Close()
		opts = append(opts, dispatch.WithPublisher(producer))
		logger.Info("location publishing enabled", "topic", cfg.KafkaTopic)
	}
	if cfg.PGDSN != "" {
		if pg, err := storage.NewPostgresLog(cfg.PGDSN); err != nil {
			logger.Warn("audit log unavailable, continuing without", "error", err)
		} else {
			defer pg.Close()
			opts = append(opts, dispatch.WithAuditLog(pg))
			logger.Info("request audit log enabled")
		}
	}
	if cfg.StripeAPIKey != "" {
		opts = append(opts, dispatch.WithBilling(
			billing.NewStripeClient(cfg.StripeAPIKey, cfg.StripeAmountCents, cfg.StripeCurrency)))
		logger.Info("transport billing enabled", "currency", cfg.StripeCurrency)
	}

	dispatcher := dispatch.New(logger, opts...)
	gw := gateway.New(dispatcher, logger)

	var classifier classify.Classifier
	if cfg.ClassifierEndpoint != "" {
		classifier = classify.NewHTTPClient(cfg.ClassifierEndpoint, cfg.ClassifierTimeout)
		logger.Info("x-ray classification enabled", "endpoint", cfg.ClassifierEndpoint)
	}

	var fleet *geo.FleetIndex
	if cfg.RedisAddr != "" {
		fleet = geo.NewFleetIndex(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisGeoKey)
		defer fleet.Close()
	}

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      httpapi.NewServer(cfg, logger, dispatcher, gw, classifier, fleet),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	go func() {
		logger.Info("dispatch server listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server stopped", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
	logger.Info("server stopped")
}
