package main

import (
	"context"
	"flag"
	"log"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/s3"

	"lingocap/internal/cache"
	"lingocap/internal/captions/repository"
	"lingocap/internal/config"
	"lingocap/internal/pipeline"
	"lingocap/internal/server"
	"lingocap/internal/transcribe"
	"lingocap/internal/translate"
	"lingocap/internal/worker"
	awsClient "lingocap/pkg/db/aws"
	redisClient "lingocap/pkg/db/redis"
	sqliteClient "lingocap/pkg/db/sqlite"
	"lingocap/pkg/logger"
)

func main() {
	configFile := flag.String("config", "config.yml", "path to the config file")
	port := flag.String("p", "", "listen port override, e.g. 8080")
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
	applyOverrides(cfg, *port, *cacheDir, *apiKeyFile)

	appLogger := logger.NewApiLogger(cfg)
	appLogger.InitLogger()
	appLogger.Infof("AppVersion: %s, LogLevel: %s, Mode: %s", cfg.Server.AppVersion, cfg.Logger.Level, cfg.Server.Mode)

	apiKey, err := readCredential(cfg.Services.APIKeyFile)
	if err != nil {
		appLogger.Fatalf("could not load API credential: %s", err)
	}

	sqliteDB, err := sqliteClient.NewSqliteDB(cfg)
	if err != nil {
		appLogger.Fatalf("could not open catalog db: %s", err)
	}
	defer sqliteDB.Close()
	appLogger.Infof("catalog db ready at %s", cfg.SQLite.Path)

	rdb, err := redisClient.NewRedisClient(cfg)
	if err != nil {
		appLogger.Fatalf("could not connect to redis: %s", err)
	}
	defer rdb.Close()
	appLogger.Infof("redis connected")

	s3Client, presignClient := buildS3(cfg, appLogger)

	artifactCache, err := cache.New(cfg.Pipeline.CacheDir, cfg.Pipeline.MaxCacheBytes, appLogger)
	if err != nil {
		appLogger.Fatalf("could not initialise artifact cache: %s", err)
	}
	runner := pipeline.NewExecRunner()

	// Embedded worker pool: the server process runs the pipeline itself.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cRepo, err := repository.NewCaptionsRepo(sqliteDB)
	if err != nil {
		appLogger.Fatalf("could not initialise catalog: %s", err)
	}
	cRedisRepo := repository.NewCaptionsRedisRepo(rdb, cfg.Redis.JobKeyPrefix)

	fetcher := pipeline.NewFetcher(cfg, runner, artifactCache, appLogger)
	extractor := pipeline.NewExtractor(cfg, runner, artifactCache, appLogger)
	transcriber := transcribe.NewClient(cfg, apiKey, extractor, appLogger)
	translator := translate.NewClient(cfg, apiKey, appLogger)
	assembler := pipeline.NewAssembler(artifactCache)
	pipe := pipeline.NewPipeline(cfg, fetcher, extractor, transcriber, translator, assembler, artifactCache, cRepo, cRedisRepo, appLogger)

	pool := worker.NewWorker(cfg, appLogger, cRedisRepo, pipe)
	pool.Start(ctx)

	s := server.NewServer(cfg, sqliteDB, rdb, s3Client, presignClient, translator, artifactCache, appLogger)
	if err = s.Run(); err != nil {
		appLogger.Errorf("could not start server: %s", err)
	}
	cancel()
	pool.Wait()
}

func applyOverrides(cfg *config.Config, port, cacheDir, apiKeyFile string) {
	if port != "" {
		if !strings.HasPrefix(port, ":") {
			port = ":" + port
		}
		cfg.Server.Port = port
	}
	if cacheDir != "" {
		cfg.Pipeline.CacheDir = cacheDir
	}
	if apiKeyFile != "" {
		cfg.Services.APIKeyFile = apiKeyFile
	}
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

func buildS3(cfg *config.Config, appLogger logger.Logger) (*s3.Client, *s3.PresignClient) {
	if !cfg.S3.Enabled {
		return nil, nil
	}
	s3Client, presignClient, err := awsClient.NewAWSClient(cfg.S3.Endpoint, cfg.S3.Region, cfg.S3.AccessKey, cfg.S3.SecretKey)
	if err != nil {
		appLogger.Fatalf("could not create S3 client: %s", err)
	}
	appLogger.Infof("track mirror enabled, bucket %s", cfg.S3.TrackBucket)
	return s3Client, presignClient
}
