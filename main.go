package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"loandesk/config"
	"loandesk/dataset"
	"loandesk/db"
	qhttp "loandesk/http"
	"loandesk/logger"
	"loandesk/ml"
	"loandesk/monitoring"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config")
	flag.Parse()

	// 1. Load config
	cfg, err := config.Load(*configPath)
	if errors.Is(err, os.ErrNotExist) {
		log.Printf("config %s not found, using defaults", *configPath)
		cfg = config.Default()
	} else if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 2. Logger
	zlog, err := logger.New(logger.Config{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
		Compress:   cfg.Log.Compress,
	})
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer zlog.Sync()

	// 3. Audit database
	if err := db.InitDB(cfg.Database.Path); err != nil {
		zlog.Fatal("failed to initialize database", zap.Error(err))
	}
	defer db.Close()
	zlog.Info("database initialized", zap.String("path", cfg.Database.Path))

	// 4. Classifier, loaded once. The service still starts without one.
	classifier := ml.LoadClassifier(cfg.ML.ModelType, cfg.ML.ModelPath, cfg.ML.CacheSize)
	if classifier.Available() {
		zlog.Info("model loaded", zap.String("type", cfg.ML.ModelType), zap.Strings("features", classifier.Features()))
	} else {
		zlog.Warn("model unavailable, prediction requests will fail", zap.Error(classifier.Reason()))
	}

	// 5. Event hub and dataset store
	metrics := monitoring.NewMetrics()
	hub := monitoring.NewHub(zlog.Named("hub"), metrics, cfg.Http.AllowedOrigins)
	go hub.Run()
	defer hub.Stop()

	defs, err := cfg.DatasetDefinitions()
	if err != nil {
		zlog.Fatal("invalid dataset configuration", zap.Error(err))
	}
	store, err := dataset.NewStore(defs,
		dataset.WithLogger(zlog.Named("dataset")),
		dataset.WithOnChange(hub.DatasetEvent),
	)
	if err != nil {
		zlog.Fatal("failed to build dataset store", zap.Error(err))
	}
	if cfg.Datasets.CreateMissing {
		if err := os.MkdirAll(cfg.Datasets.Dir, 0o755); err != nil {
			zlog.Fatal("failed to create dataset dir", zap.Error(err))
		}
		for _, name := range store.Names() {
			if err := store.CreateIfMissing(name); err != nil {
				zlog.Fatal("failed to create dataset", zap.String("dataset", name), zap.Error(err))
			}
		}
	}
	if cfg.Datasets.Watch {
		watcher, err := dataset.NewWatcher(store, zlog.Named("watcher"))
		if err != nil {
			zlog.Fatal("failed to watch dataset files", zap.Error(err))
		}
		watcher.Start()
		defer watcher.Close()
	}

	// 6. Start HTTP server
	api := qhttp.NewAPI(store, classifier, hub, metrics, zlog.Named("http"))
	server := qhttp.NewServer(qhttp.ServerConfig{
		Port:           cfg.Http.Port,
		Timeout:        cfg.Http.Timeout,
		AllowedOrigins: cfg.Http.AllowedOrigins,
		MaxUploadBytes: cfg.Http.MaxUploadBytes,
	}, api)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	// 7. Handle graceful shutdown
	select {
	case <-ctx.Done():
		zlog.Info("shutting down")
	case err := <-errCh:
		if err != nil {
			zlog.Error("http server failed", zap.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Stop(shutdownCtx); err != nil {
		zlog.Error("server forced to shutdown", zap.Error(err))
	}
	zlog.Info("exiting")
}
