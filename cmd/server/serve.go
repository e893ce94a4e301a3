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

	"udm-tms-service/internal/api"
	"udm-tms-service/internal/broker"
	"udm-tms-service/internal/service"
	"udm-tms-service/internal/util"
	"udm-tms-service/internal/worker"

	figure "github.com/common-nighthawk/go-figure"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func serve(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	figure.NewFigure("UDM-TMS", "", true).Print()

	logger := util.GetLogger()
	logger.Info("Starting UDM-TMS service", zap.String("env", cfg.Server.Env))

	if cfg.Observ.TracingEnabled {
		tp, err := util.InitTracer(util.ServiceName, cfg.Server.Version, cfg.Server.Env, cfg.Observ.JaegerEndpoint)
		if err != nil {
			return fmt.Errorf("failed to initialize tracer: %w", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tp.Shutdown(shutdownCtx); err != nil {
				logger.Error("Error shutting down tracer", zap.Error(err))
			}
		}()
	}

	db, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer db.Close()
	logger.Info("Database connected", zap.String("driver", cfg.Database.Driver))

	cache, locker, closeRedis := connectRedis()
	defer closeRedis()

	var publisher service.EventPublisher = service.NoopPublisher{}
	var inspectionWorker *worker.InspectionWorker

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	if cfg.Kafka.Enabled {
		producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicEvents)
		defer producer.Close()
		publisher = broker.NewEventPublisher(producer)
		logger.Info("Kafka producer initialized", zap.Strings("brokers", cfg.Kafka.Brokers))

		consumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicEvents, cfg.Kafka.ConsumerGroup)
		inspectionWorker = worker.NewInspectionWorker(consumer, service.NewDefectMonitor(db, cache))
		go func() {
			if err := inspectionWorker.Start(workerCtx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Inspection worker error", zap.Error(err))
			}
		}()
	}

	udmService := service.NewUDMService(db, cache, publisher, cfg.Business.InspectionHistoryLimit, cfg.Business.DefaultDepot)
	tmsService := service.NewTMSService(db, cache, publisher)
	seedService := service.NewSeedService(db, cache, locker)

	if cfg.Database.SeedOnStart {
		summary, err := seedService.Run(ctx)
		if err != nil {
			logger.Error("Failed to seed database on start", zap.Error(err))
		} else {
			logger.Info("Database seeded on start", zap.Int("components", summary.Components))
		}
	}

	scheduler, err := worker.NewScheduler(cfg.Business.BatchStatsSchedule, udmService)
	if err != nil {
		return err
	}
	scheduler.Start()
	defer scheduler.Stop()

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handler := api.NewHandler(udmService, tmsService, seedService, db, api.Options{
		Version:   cfg.Server.Version,
		PageLimit: cfg.Business.InspectionPageLimit,
	})
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
	case err := <-serverErr:
		return fmt.Errorf("failed to start server: %w", err)
	}

	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	workerCancel()
	if inspectionWorker != nil {
		if err := inspectionWorker.Stop(); err != nil {
			logger.Error("Failed to stop inspection worker", zap.Error(err))
		}
	}

	logger.Info("Server exited")
	return nil
}
