package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ali-crawler/config"
	"ali-crawler/health"
	"ali-crawler/objectstore"
	"ali-crawler/objectstore/memory"
	"ali-crawler/objectstore/s3store"
	"ali-crawler/pipeline"
	"ali-crawler/runstore"
	"ali-crawler/scheduler"
	"ali-crawler/scraper"
	"ali-crawler/scraper/aliexpress"
	"ali-crawler/scraper/browser"
	"ali-crawler/scraper/oxylabs"
	"ali-crawler/services"
	"ali-crawler/storage"
	"ali-crawler/utils"
	"ali-crawler/web"
	"ali-crawler/xcom"
	xcomredis "ali-crawler/xcom/redis"
)

func main() {
	once := flag.Bool("once", false, "run the DAG a single time and exit")
	date := flag.String("date", "", "logical date of a -once run (YYYY-MM-DD, default today)")
	flag.Parse()

	cfg, err := config.LoadCrawler()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger := utils.NewServiceLogger("ali-crawler", cfg.LogLevel, cfg.LogFormat)

	if err := run(cfg, logger, *once, *date); err != nil {
		logger.Error("%v", err)
		os.Exit(1)
	}
}

func run(cfg *config.Crawler, logger *utils.Logger, once bool, date string) error {
	logger.Info("=== AliExpress crawler starting ===")
	logger.Info("Config: backend=%s | data=%s | max reviews=%d | policy=%s | retries=%d",
		cfg.Backend, cfg.DataDir, cfg.MaxReviews, cfg.FailurePolicy, cfg.TaskRetries)

	logicalDate := time.Now()
	if date != "" {
		d, err := time.Parse("2006-01-02", date)
		if err != nil {
			return fmt.Errorf("parse -date: %w", err)
		}
		logicalDate = d
	}

	policy, err := aliexpress.ParsePolicy(cfg.FailurePolicy)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	hc := health.NewHandler(5 * time.Second)

	backend, closeBackend := newBackend(cfg, logger)
	defer closeBackend()

	store, err := newObjectStore(ctx, cfg)
	if err != nil {
		return err
	}
	hc.Register("objectstore", store.Ping)

	xc, closeXCom, err := newXCom(ctx, cfg, hc)
	if err != nil {
		return err
	}
	defer closeXCom()

	opts := scheduler.Options{
		Retries:    cfg.TaskRetries,
		RetryDelay: cfg.RetryDelay,
		XCom:       xc,
		Logger:     logger,
	}

	if cfg.RunStorePath != "" {
		runs, err := runstore.Open(ctx, cfg.RunStorePath)
		if err != nil {
			return err
		}
		defer runs.Close()
		hc.Register("runstore", runs.Ping)
		opts.Recorder = runs
		logger.Info("[main] Recording run history in %s", cfg.RunStorePath)
	}

	cleaner := services.NewCleaner(logger)
	deps := pipeline.Deps{
		Backend:    backend,
		Layout:     storage.Layout{Root: cfg.DataDir},
		Policy:     policy,
		MaxReviews: cfg.MaxReviews,
		Uploader:   objectstore.NewUploader(store, logger),
		KeyPrefix:  cfg.KeyPrefix,
		Cleaner:    cleaner,
		Insights:   services.NewInsightService(logger, cleaner),
		Logger:     logger,
	}

	if cfg.PostgresEnabled {
		pg, err := storage.NewPostgresWriter(ctx, cfg.DSN(), cleaner)
		if err != nil {
			logger.Error("[main] Failed to connect to PostgreSQL: %v", err)
			logger.Error("[main] Make sure Docker is running: docker compose up -d")
			return err
		}
		defer pg.Close()
		hc.Register("postgres", pg.Ping)
		deps.Sink = pg
		deps.Reader = pg
	}

	if cfg.MetricsAddr != "" {
		srv := web.NewServer(cfg.MetricsAddr, web.NewOpsRouter(hc, logger), logger)
		go func() {
			if err := srv.Run(ctx); err != nil {
				logger.Error("[main] Metrics server: %v", err)
			}
		}()
	}

	sched := scheduler.New(pipeline.NewDAG(deps), opts)

	if once {
		dagRun, err := sched.RunOnce(ctx, logicalDate)
		if err != nil {
			return fmt.Errorf("run %s: %w", dagRun.ID, err)
		}
		logger.Info("=== Run %s finished in %s ===", dagRun.ID, dagRun.EndedAt.Sub(dagRun.StartedAt).Round(time.Millisecond))
		return nil
	}

	logger.Info("[main] Scheduling %s every %s", pipeline.DAGID, cfg.ScheduleInterval)
	if err := sched.RunEvery(ctx, cfg.ScheduleInterval); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("=== AliExpress crawler stopped ===")
	return nil
}

func newBackend(cfg *config.Crawler, logger *utils.Logger) (scraper.Backend, func()) {
	if cfg.Backend == "chrome" {
		b := browser.New(browser.Config{ChromeBin: cfg.ChromeBin, PageTimeout: cfg.HTTPTimeout}, logger)
		return b, func() { _ = b.Close() }
	}
	return oxylabs.New(oxylabs.Config{
		URL:      cfg.APIURL,
		Username: cfg.APIUser,
		Password: cfg.APIPassword,
		Timeout:  cfg.HTTPTimeout,
		Interval: cfg.Interval,
	}, logger), func() {}
}

func newObjectStore(ctx context.Context, cfg *config.Crawler) (objectstore.Store, error) {
	if cfg.StorageBackend == "memory" {
		return memory.New(cfg.S3Bucket), nil
	}
	return s3store.New(ctx, s3store.Config{
		Bucket:    cfg.S3Bucket,
		Region:    cfg.S3Region,
		Endpoint:  cfg.S3Endpoint,
		PathStyle: cfg.S3PathStyle,
	})
}

func newXCom(ctx context.Context, cfg *config.Crawler, hc *health.Handler) (xcom.Store, func(), error) {
	if cfg.XComBackend != "redis" {
		return xcom.NewMemoryStore(), func() {}, nil
	}
	client, err := xcomredis.NewClient(ctx, cfg.RedisAddr, cfg.RedisDB)
	if err != nil {
		return nil, nil, err
	}
	store := xcomredis.NewStore(client, cfg.XComTTL)
	hc.Register("redis", store.Ping)
	return store, func() { _ = client.Close() }, nil
}
