package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xaenox/askbot/internal/auth"
	"github.com/xaenox/askbot/internal/bot"
	"github.com/xaenox/askbot/internal/chat"
	"github.com/xaenox/askbot/internal/classifier"
	"github.com/xaenox/askbot/internal/generator"
	"github.com/xaenox/askbot/internal/server"
	"github.com/xaenox/askbot/pkg/config"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and, when a token is configured, the Telegram bot",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup(true)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStorage(cfg.Database, logger)
	if err != nil {
		logger.Error("Failed to initialize storage", zap.Error(err))
		return err
	}
	defer store.Close()

	model, err := generator.NewModel(ctx, modelConfig(cfg.LLM))
	if err != nil {
		logger.Error("Failed to initialize model", zap.Error(err))
		return err
	}
	logger.Info("Using language model", zap.String("model", model.Name()))

	tokens := auth.NewTokens(cfg.Auth.Secret, cfg.Auth.TokenTTL)
	accounts := auth.NewAccounts(store, tokens, logger)
	chats := chat.NewService(store,
		classifier.NewKeywordClassifier(),
		generator.New(model, cfg.LLM.Timeout, logger),
		logger)

	if cfg.Auth.Secret == config.DevelopmentSecret {
		logger.Warn("Signing sessions with the development secret, set SECRET_KEY in production")
	}

	srv := server.New(server.Config{
		Addr:              cfg.Server.Addr,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		ShutdownTimeout:   cfg.Server.ShutdownTimeout,
		CORSOrigins:       cfg.Server.CORSOrigins,
		CookieName:        cfg.Auth.CookieName,
	}, chats, accounts, tokens, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(gctx)
	})

	if cfg.Telegram.Token != "" {
		b, err := bot.New(cfg.Telegram.Token, chats, accounts, logger)
		if err != nil {
			stop()
			_ = g.Wait()
			return err
		}
		g.Go(func() error {
			return b.Start(gctx)
		})
	} else {
		logger.Info("Telegram token not set, bot disabled")
	}

	if err := g.Wait(); err != nil {
		logger.Error("Server stopped with error", zap.Error(err))
		return fmt.Errorf("serve: %w", err)
	}
	logger.Info("Shutdown complete")
	return nil
}

func modelConfig(cfg config.LLMConfig) generator.ModelConfig {
	return generator.ModelConfig{
		Provider:    cfg.Provider,
		APIKey:      cfg.APIKey,
		BaseURL:     cfg.BaseURL,
		Model:       cfg.Model,
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
		TopP:        cfg.TopP,
		TopK:        cfg.TopK,
	}
}
