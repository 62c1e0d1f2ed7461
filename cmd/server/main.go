//go:build !js && !wasm
// +build !js,!wasm

package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/himanishpuri/AutoChord/internal/config"
	"github.com/himanishpuri/AutoChord/pkg/autochord"
	"github.com/himanishpuri/AutoChord/pkg/autochord/chords"
	"github.com/himanishpuri/AutoChord/pkg/autochord/jobs"
	"github.com/himanishpuri/AutoChord/pkg/logger"
	"github.com/himanishpuri/AutoChord/pkg/utils"
)

var (
	configPath string
	port       string
)

func init() {
	flag.StringVar(&configPath, "config", "", "Path to a YAML config file")
	flag.StringVar(&port, "port", "", "HTTP server port (overrides config)")
}

func main() {
	flag.Parse()
	log := logger.GetLogger()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if port != "" {
		cfg.Server.Port = port
	}
	if level, ok := logger.ParseLevel(cfg.Server.LogLevel); ok {
		log.SetLevel(level)
	}
	if cfg.Auth.APIKey == "" && cfg.Auth.JWTSecret == "" {
		log.Warnf("AUTOCHORD_API_KEY is not set; analysis endpoints will answer 500")
	}
	if err := utils.MakeDir(cfg.Analysis.TempDir); err != nil {
		log.Fatalf("Failed to create temp dir: %v", err)
	}

	var recognizer chords.Recognizer = chords.NopRecognizer{}
	if cfg.Analysis.RecognizerCommand != "" {
		recognizer = chords.NewCommandRecognizer(cfg.Analysis.RecognizerCommand, cfg.Analysis.RecognizerArgs...)
	} else {
		log.Warnf("No chord recognizer configured; chord timelines will be empty")
	}

	service, err := autochord.NewService(
		autochord.WithDBPath(cfg.Analysis.DBPath),
		autochord.WithTempDir(cfg.Analysis.TempDir),
		autochord.WithSampleRate(cfg.Analysis.SampleRate),
		autochord.WithFFmpegPath(cfg.Analysis.FFmpegPath),
		autochord.WithRecognizer(recognizer),
		autochord.WithStyle(cfg.Analysis.Style),
		autochord.WithNotes(cfg.Analysis.Notes),
		autochord.WithLogger(log.With("[analysis]")),
	)
	if err != nil {
		log.Fatalf("Failed to create service: %v", err)
	}
	defer service.Close()

	serverCfg := &ServerConfig{
		Port:            cfg.Server.Port,
		DBPath:          cfg.Analysis.DBPath,
		TempDir:         cfg.Analysis.TempDir,
		SampleRate:      cfg.Analysis.SampleRate,
		AllowedOrigins:  cfg.Server.CORSOrigins,
		APIKey:          cfg.Auth.APIKey,
		JWTSecret:       cfg.Auth.JWTSecret,
		MaxUploadMB:     cfg.Server.MaxUploadMB,
		RateLimitPerMin: cfg.RateLimit.AnalysisPerMin,
		AccessLog:       os.Stdout,
		Debug:           cfg.Server.LogLevel == "debug",
	}

	var (
		queue   *jobs.Queue
		limiter *RateLimiter
		worker  *asynq.Server
	)
	if cfg.RedisEnabled() {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Warnf("Redis not available: %v", err)
		}
		cancel()

		redisOpt := asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}
		asynqClient := asynq.NewClient(redisOpt)
		defer asynqClient.Close()

		store := jobs.NewRedisStore(redisClient)
		queue = jobs.NewQueue(store, asynqClient)
		limiter = NewRateLimiter(redisClient, log.With("[ratelimit]"))
		worker, err = startWorkerServer(cfg, redisOpt, jobs.NewWorker(service, store, log.With("[jobs]")))
		if err != nil {
			log.Errorf("Asynq worker failed to start, background jobs disabled: %v", err)
		}
	} else {
		log.Infof("Redis not configured; background jobs and rate limiting disabled")
	}

	server := NewServer(service, activeQueue(queue, worker), limiter, serverCfg, log.With("[http]"))
	app := server.App()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	stopWorker := func() {}
	if worker != nil {
		stopWorker = worker.Shutdown
	}

	// Deferred closes run only after in-flight requests and jobs have drained.
	if err := serve(app, server.Start, quit, stopWorker, log); err != nil {
		log.Errorf("Server failed: %v", err)
	}
}

// activeQueue exposes the queue to handlers only while a worker consumes it;
// otherwise job submission answers 503.
func activeQueue(queue *jobs.Queue, worker *asynq.Server) JobQueue {
	if queue == nil || worker == nil {
		return nil
	}
	return queue
}

func startWorkerServer(cfg *config.Config, redisOpt asynq.RedisClientOpt, w *jobs.Worker) (*asynq.Server, error) {
	logLevel := asynq.InfoLevel
	switch cfg.Server.LogLevel {
	case "debug":
		logLevel = asynq.DebugLevel
	case "warn", "warning":
		logLevel = asynq.WarnLevel
	case "error":
		logLevel = asynq.ErrorLevel
	}

	srv := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: cfg.Worker.Concurrency,
		Queues:      map[string]int{jobs.QueueName: 1},
		LogLevel:    logLevel,
	})

	mux := asynq.NewServeMux()
	w.Register(mux)

	if err := srv.Start(mux); err != nil {
		return nil, err
	}
	return srv, nil
}
