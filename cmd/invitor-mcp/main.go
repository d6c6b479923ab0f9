package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"

	"github.com/caputdraconis050630/feishu-invitor/internal/conf"
	"github.com/caputdraconis050630/feishu-invitor/internal/mcp"
)

var version = "dev"

// stdout carries the MCP protocol, so all logging stays on stderr.
// Tool calls are relayed to a running cmd/invitor, which owns the
// store and the reconcile workers.
func main() {
	log.SetOutput(os.Stderr)
	logger := log.WithPrefix("MCP")

	if err := godotenv.Load(); err != nil {
		logger.Debug("No .env file found, using environment variables")
	}

	cfg, err := conf.Load()
	if err != nil {
		logger.Fatal("Failed to load config", "err", err)
	}
	log.SetLevel(cfg.Level())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	relay := mcp.NewClient(cfg.API.BaseURL())
	srv := mcp.NewServer(relay, relay, relay, version)

	logger.Info("Serving on stdio", "version", version, "api", cfg.API.BaseURL())
	if err := srv.Run(ctx); err != nil && ctx.Err() == nil {
		logger.Error("MCP server error", "err", err)
	}
}
