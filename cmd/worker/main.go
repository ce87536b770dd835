package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"lingocap/internal/cache"
	"lingocap/internal/captions/repository"
	"lingocap/internal/config"
	"lingocap/internal/pipeline"
	"lingocap/internal/transcribe"
	"lingocap/internal/translate"
	"lingocap/internal/worker"
	redisClient "lingocap/pkg/db/redis"
	sqliteClient "lingocap/pkg/db/sqlite"
	"lingocap/pkg/logger"
)

// Standalone worker pool. Runs the caption pipeline against the shared
// redis queue without serving HTTP, so extra capacity can be added
// next to an already running server process.
func main() {
	configFile := flag.String("config", "config.yml", "path to the config file")
	cacheDir := flag.String("cache-dir", "", "artifact cache directory override")
	apiKeyFile := flag.String("api-key", "", "API credential file override")
	flag.Parse()

	cfgFile, err := config.LoadConfig(*configFile)
	if err != nil {
		log.Fatalf("loadConfig: %v", err)
	}
	cfg, err := config.ParseConfig(cfgFile)
	if err != nil {
		log.Fatalf("parseConfig: %v", err)
	}
	if *cacheDir != "" {
		cfg.Pipeline.CacheDir = *cacheDir
	}
	if *apiKeyFile != "" {
		cfg.Services.APIKeyFile = *apiKeyFile
	}

	appLogger := logger.NewApiLogger(cfg)
	appLogger.InitLogger()
	appLogger.Infof("worker pool starting, AppVersion: %s, workers: %d", cfg.Server.AppVersion, cfg.Worker.WorkerCount)

	apiKey, err := readCredential(cfg.Services.APIKeyFile)
	if err != nil {
		appLogger.Fatalf("could not load API credential: %s", err)
	}

	sqliteDB, err := sqliteClient.NewSqliteDB(cfg)
	if err != nil {
		appLogger.Fatalf("could not open catalog db: %s", err)
	}
	defer sqliteDB.Close()

	rdb, err := redisClient.NewRedisClient(cfg)
	if err != nil {
		appLogger.Fatalf("could not connect to redis: %s", err)
	}
	defer rdb.Close()

	artifactCache, err := cache.New(cfg.Pipeline.CacheDir, cfg.Pipeline.MaxCacheBytes, appLogger)
	if err != nil {
		appLogger.Fatalf("could not initialise artifact cache: %s", err)
	}

	cRepo, err := repository.NewCaptionsRepo(sqliteDB)
	if err != nil {
		appLogger.Fatalf("could not initialise catalog: %s", err)
	}
	cRedisRepo := repository.NewCaptionsRedisRepo(rdb, cfg.Redis.JobKeyPrefix)

	runner := pipeline.NewExecRunner()
	fetcher := pipeline.NewFetcher(cfg, runner, artifactCache, appLogger)
	extractor := pipeline.NewExtractor(cfg, runner, artifactCache, appLogger)
	transcriber := transcribe.NewClient(cfg, apiKey, extractor, appLogger)
	translator := translate.NewClient(cfg, apiKey, appLogger)
	assembler := pipeline.NewAssembler(artifactCache)
	pipe := pipeline.NewPipeline(cfg, fetcher, extractor, transcriber, translator, assembler, artifactCache, cRepo, cRedisRepo, appLogger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool := worker.NewWorker(cfg, appLogger, cRedisRepo, pipe)
	pool.Start(ctx)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	sig := <-quit
	appLogger.Infof("received signal %v, draining workers", sig)
	cancel()
	pool.Wait()
	appLogger.Info("worker pool stopped")
}

func readCredential(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
