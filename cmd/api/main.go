package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/punchamoorthee/tuitionledger/internal/api"
	"github.com/punchamoorthee/tuitionledger/internal/audit"
	"github.com/punchamoorthee/tuitionledger/internal/auth"
	"github.com/punchamoorthee/tuitionledger/internal/config"
	"github.com/punchamoorthee/tuitionledger/internal/domain"
	"github.com/punchamoorthee/tuitionledger/internal/service"
	"github.com/punchamoorthee/tuitionledger/internal/store"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func newLogger(level string) (*zap.Logger, error) {
	zapConfig := zap.NewProductionConfig()
	zapConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zapConfig.EncoderConfig.TimeKey = "timestamp"
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	zapConfig.Level = zap.NewAtomicLevelAt(lvl)
	return zapConfig.Build()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	logger.Info("Tuition ledger starting", zap.String("env", cfg.Env))

	if cfg.MigrateOnStart {
		version, err := store.Migrate(cfg.DBSource)
		if err != nil {
			logger.Fatal("Failed to run database migrations", zap.Error(err))
		}
		logger.Info("Database schema up to date", zap.Uint("version", version))
	}

	ctx := context.Background()
	pool, err := store.NewPool(ctx, cfg.DBSource)
	if err != nil {
		logger.Fatal("Unable to connect to database", zap.Error(err))
	}
	defer pool.Close()
	ledger := store.NewLedgerStore(pool)

	recorder := audit.Recorder(audit.NewLogRecorder(logger))
	if len(cfg.KafkaBrokers) > 0 {
		ensureCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		if err := audit.EnsureTopic(ensureCtx, cfg.KafkaBrokers, cfg.AuditTopic, logger); err != nil {
			logger.Warn("Could not ensure audit topic", zap.Error(err))
		}
		cancel()

		producer := audit.NewKafkaProducer(cfg.KafkaBrokers, cfg.AuditTopic,
			logger.With(zap.String("component", "kafka_producer")))
		defer func() {
			if err := producer.Close(); err != nil {
				logger.Error("Error closing Kafka producer", zap.Error(err))
			}
		}()
		recorder = audit.Multi{recorder, audit.NewStreamRecorder(producer, cfg.AuditTopic, logger)}
	}

	fees := domain.FeeSchedule{TrancheFee: cfg.TrancheFee}
	gate := auth.NewGate(cfg.JWTSecret, cfg.TokenTTL, auth.AdminIdentity{
		ID:       cfg.Admin.ID,
		Username: cfg.Admin.Username,
		Password: cfg.Admin.Password,
	})

	handler := api.NewHandler(api.Deps{
		Gate:     gate,
		Auth:     auth.NewAuthenticator(gate, ledger),
		Payments: service.NewPaymentService(ledger, fees, cfg.DefaultAcademicYear, recorder, logger),
		Reports:  service.NewReports(ledger, fees, cfg.DefaultAcademicYear, cfg.Timezone),
		Registry: service.NewRegistryService(ledger, cfg.DefaultAcademicYear, recorder, logger),
		DB:       ledger,
		Location: cfg.Timezone,
		Logger:   logger,
	})

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("Starting HTTP server", zap.String("address", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server graceful shutdown failed", zap.Error(err))
	}
}
