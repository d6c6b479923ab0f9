package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"

	"github.com/caputdraconis050630/feishu-invitor/internal/api"
	"github.com/caputdraconis050630/feishu-invitor/internal/biz/usecase"
	"github.com/caputdraconis050630/feishu-invitor/internal/conf"
	"github.com/caputdraconis050630/feishu-invitor/internal/data"
	"github.com/caputdraconis050630/feishu-invitor/internal/infra/feishu"
	"github.com/caputdraconis050630/feishu-invitor/internal/infra/llm"
	"github.com/caputdraconis050630/feishu-invitor/internal/server"
	"github.com/caputdraconis050630/feishu-invitor/internal/service"
)

func main() {
	logger := log.WithPrefix("Invitor")

	// Load .env file
	if err := godotenv.Load(); err != nil {
		logger.Debug("No .env file found, using environment variables")
	}

	// Load configuration
	cfg, err := conf.Load()
	if err != nil {
		logger.Fatal("Failed to load config", "err", err)
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal("Invalid config", "err", err)
	}
	log.SetLevel(cfg.Level())

	// Initialize clients
	feishuClient := feishu.NewClient(cfg.Feishu.AppID, cfg.Feishu.AppSecret)
	llmClient := llm.NewClient(cfg.LLM.APIKey, cfg.LLM.Model, cfg.LLM.BaseURL)
	if llmClient != nil {
		logger.Info("Convention recommender enabled", "model", llmClient.Model())
	}

	// Initialize repository layer
	repos, err := data.NewRepositories(feishuClient, llmClient, cfg.ToDataOptions())
	if err != nil {
		logger.Fatal("Failed to create repositories", "err", err)
	}
	defer repos.Close()
	logger.Info("Convention store ready", "path", cfg.Store.DBPath)

	// Initialize usecase layer
	reconcileUC := usecase.NewReconcileUsecase(repos.Convention, repos.Membership, cfg.ToReconcileConfig())
	eventUC := usecase.NewConventionEventUsecase(repos.Convention, repos.Membership, cfg.Membership.SystemAccountID)
	recommendUC := usecase.NewRecommendUsecase(repos.ChatInfo, repos.Convention, repos.Recommend)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize service layer
	dispatcher := service.NewReconcileDispatcher(reconcileUC, cfg.ToDispatcherConfig())
	dispatcher.Start(ctx)

	adminUC := usecase.NewConventionAdminUsecase(repos.Convention, dispatcher, cfg.Messages.ToAdminMessages())

	sweeper := service.NewSweepScheduler(adminUC, dispatcher, cfg.Reconcile.SweepInterval)
	sweeper.Start(ctx)

	// Admin HTTP API
	apiServer := api.NewServer(adminUC, reconcileUC, eventUC, recommendUC, cfg.API.Addr)
	go func() {
		if err := apiServer.Start(); err != nil {
			logger.Error("API server error", "err", err)
		}
	}()

	srv := server.NewFeishuServer(feishuClient, feishuClient, eventUC, adminUC, recommendUC, dispatcher, cfg.Messages.ToCommandMessages())

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting Feishu invitor...")
		errCh <- srv.Start(ctx)
	}()

	select {
	case sig := <-sigCh:
		logger.Info("Shutting down...", "signal", sig)
	case err := <-errCh:
		if err != nil {
			logger.Error("Server error", "err", err)
		}
	}

	srv.Stop()
	sweeper.Stop()
	dispatcher.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := apiServer.Stop(shutdownCtx); err != nil {
		logger.Warn("API server shutdown", "err", err)
	}
}
