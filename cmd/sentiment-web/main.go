package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ali-crawler/config"
	"ali-crawler/health"
	"ali-crawler/sentiment"
	"ali-crawler/utils"
	"ali-crawler/web"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadWeb()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := utils.NewServiceLogger("sentiment-web", cfg.LogLevel, cfg.LogFormat)
	logger.Info("[main] Starting sentiment web app on port %d", cfg.HTTPPort)

	analyzer := sentiment.NewAnalyzer(sentiment.NewVaderScorer())
	handler, err := web.NewHandler(analyzer, logger)
	if err != nil {
		return fmt.Errorf("initialize handler: %w", err)
	}

	router := web.NewRouter(handler, health.NewHandler(5*time.Second), logger)
	srv := web.NewServer(fmt.Sprintf(":%d", cfg.HTTPPort), router, logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := srv.Run(ctx); err != nil {
		return fmt.Errorf("run server: %w", err)
	}
	logger.Info("[main] Sentiment web app stopped")
	return nil
}
