package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	flag "github.com/spf13/pflag"

	"github.com/caputdraconis050630/feishu-invitor/internal/biz/usecase"
	"github.com/caputdraconis050630/feishu-invitor/internal/conf"
	"github.com/caputdraconis050630/feishu-invitor/internal/data"
	"github.com/caputdraconis050630/feishu-invitor/internal/infra/feishu"
)

func main() {
	var (
		channelID string
		all       bool
		asJSON    bool
	)
	flag.StringVarP(&channelID, "channel", "c", "", "chat_id of the group chat to reconcile")
	flag.BoolVarP(&all, "all", "a", false, "reconcile every channel with a convention")
	flag.BoolVar(&asJSON, "json", false, "print results as JSON lines")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s (--channel <chat_id> | --all) [--json]\n\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if (channelID == "") == !all {
		flag.Usage()
		os.Exit(2)
	}

	logger := log.WithPrefix("Reconcile")

	if err := godotenv.Load(); err != nil {
		logger.Debug("No .env file found, using environment variables")
	}
	cfg, err := conf.Load()
	if err != nil {
		logger.Fatal("Failed to load config", "err", err)
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal("Invalid config", "err", err)
	}
	log.SetLevel(cfg.Level())

	feishuClient := feishu.NewClient(cfg.Feishu.AppID, cfg.Feishu.AppSecret)
	repos, err := data.NewRepositories(feishuClient, nil, cfg.ToDataOptions())
	if err != nil {
		logger.Fatal("Failed to create repositories", "err", err)
	}
	defer repos.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reconcileUC := usecase.NewReconcileUsecase(repos.Convention, repos.Membership, cfg.ToReconcileConfig())

	channels := []string{channelID}
	if all {
		convs, err := repos.Convention.ListAll(ctx)
		if err != nil {
			logger.Fatal("Failed to list conventions", "err", err)
		}
		channels = channels[:0]
		for _, c := range convs {
			channels = append(channels, c.ChannelID)
		}
	}

	var errs []error
	enc := json.NewEncoder(os.Stdout)
	for _, ch := range channels {
		result, err := reconcileUC.ReconcileChannel(ctx, ch)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", ch, err))
		}
		if result != nil {
			if asJSON {
				_ = enc.Encode(result)
			} else {
				fmt.Printf("%s\t%s\tmatched=%d invited=%d failed=%d\n", result.ChannelID, result.Pattern, result.Matched, result.InvitedCount, result.Failed)
			}
		}
		if ctx.Err() != nil {
			break
		}
	}

	if err := errors.Join(errs...); err != nil {
		logger.Error("Reconciliation finished with errors", "err", err)
		os.Exit(1)
	}
}
