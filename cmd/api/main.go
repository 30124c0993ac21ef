package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/xela07ax/ragbase/internal/api/handler"
	"github.com/xela07ax/ragbase/internal/api/server"
	"github.com/xela07ax/ragbase/internal/api/service"
	"github.com/xela07ax/ragbase/internal/infra"
	"github.com/xela07ax/ragbase/internal/infra/auth"
	"github.com/xela07ax/ragbase/internal/ingest"
	"github.com/xela07ax/ragbase/internal/lifecycle"
	"github.com/xela07ax/ragbase/internal/repository/postgres"
	"github.com/xela07ax/ragbase/internal/storage"
)

func main() {
	// 1. Конфигурация и логгер
	cfg, err := infra.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger, err := infra.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer logger.Sync()

	// Контекст для управления жизненным циклом фоновых горутин
	appCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 2. Инфраструктура и ресурсы
	pingCtx, pingCancel := context.WithTimeout(appCtx, 5*time.Second)
	repo, err := postgres.New(pingCtx, cfg.Database.URL, cfg.Database.MaxConns, cfg.Database.MinConns)
	if err != nil {
		logger.Fatal("database unreachable", zap.Error(err))
	}
	if err := repo.EnsureSchema(pingCtx); err != nil {
		logger.Fatal("failed to ensure schema", zap.Error(err))
	}
	pingCancel()
	defer repo.Close()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	store, err := storage.NewGCSStore(appCtx, cfg.Storage.Bucket, logger)
	if err != nil {
		logger.Fatal("failed to init object store", zap.Error(err))
	}
	defer store.Close()

	pubKey, err := auth.ParseRSAPublicKey(cfg.Auth.PublicKey)
	if err != nil {
		logger.Fatal("failed to parse auth public key", zap.Error(err))
	}
	validator := auth.NewBaseValidator(pubKey)

	// Метрики
	reg := prometheus.NewRegistry()
	metrics := infra.NewMetrics(reg)

	// 3. Фоновые конвейеры: след жизненного цикла и ingest-триггеры
	recorder := lifecycle.NewRecorder(repo, logger)
	recorder.Start()

	ingestClient := ingest.NewClient(cfg.Ingest, metrics, logger)
	dispatcher := ingest.NewDispatcher(ingestClient, rdb, recorder, metrics, logger,
		cfg.Ingest.TriggerBuffer, cfg.Ingest.TriggerTimeout)
	dispatcher.Start()

	// 4. Слои (Dependency Injection)
	commitSvc := service.NewCommitService(repo, ingestClient, recorder, metrics, logger)
	uploadSvc := service.NewUploadService(repo, store, dispatcher, recorder, metrics, logger)
	sourceSvc := service.NewSourceService(repo, store, recorder, logger)
	agentSvc := service.NewAgentService(repo, logger)
	querySvc := service.NewQueryService(repo, ingestClient, logger)

	srv := server.NewServer(cfg, logger, validator, metrics, reg,
		handler.NewAgentHandler(agentSvc, commitSvc, logger),
		handler.NewSourceHandler(sourceSvc, logger),
		handler.NewUploadHandler(uploadSvc, logger),
		handler.NewQueryHandler(querySvc, logger),
	)

	httpSrv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      srv,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// 5. Запуск и Graceful Shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("API started", zap.String("addr", httpSrv.Addr))
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen failed", zap.Error(err))
		}
	}()

	<-stop
	logger.Info("API stopping...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", zap.Error(err))
	}

	// Дренируем очереди: сперва триггеры, затем след жизненного цикла
	dispatcher.Stop()
	recorder.Stop()
	cancel()

	logger.Info("API exited properly")
}
