package main

import (
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"irisserve/config"
	"irisserve/db"
	qhttp "irisserve/http"
	"irisserve/logging"
	"irisserve/ml"
	"irisserve/monitoring"
)

func main() {
	configPath := "config.yaml"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	// 1. Load config
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 2. Logger
	logger, level, err := logging.New(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	stopWatch, err := config.Watch(configPath, level, logger)
	if err != nil {
		logger.Warn("config watch disabled", zap.Error(err))
	} else {
		defer stopWatch()
	}

	// 3. Audit database
	if cfg.Database.Path != "" {
		if err := db.InitDB(cfg.Database.Path); err != nil {
			logger.Fatal("failed to initialize database", zap.Error(err))
		}
		defer db.Close()
		logger.Info("database initialized", zap.String("path", cfg.Database.Path))
	}

	// 4. Model: load before accepting traffic; failure is fatal.
	wrapper := ml.NewWrapper(ml.WrapperConfig{
		Type:      cfg.Model.Type,
		Path:      cfg.Model.Path,
		Trees:     cfg.Model.Trees,
		MaxDepth:  cfg.Model.MaxDepth,
		Seed:      cfg.Model.Seed,
		CacheSize: cfg.Model.CacheSize,
	})
	logger.Info("loading model", zap.String("type", cfg.Model.Type))
	if err := wrapper.Load(); err != nil {
		logger.Fatal("failed to load model", zap.Error(err))
	}
	info := wrapper.Info()
	logger.Info("model loaded",
		zap.String("kind", info.Kind),
		zap.Strings("classes", info.Classes),
		zap.Int("trees", info.Trees))

	// 5. Event hub and metrics
	metrics := monitoring.NewRequestMetrics()
	hub := monitoring.NewHub(metrics, logger)
	go hub.Run()

	qhttp.SetLogger(logger)
	qhttp.SetModel(wrapper)
	qhttp.SetHub(hub)
	qhttp.SetServiceInfo(qhttp.ServiceInfo{Name: cfg.Service.Name, Version: cfg.Service.Version})

	// 6. HTTP server
	server := qhttp.NewServer(qhttp.ServerConfig{
		Port:           cfg.HTTP.Port,
		Timeout:        cfg.HTTP.Timeout,
		MaxBodyBytes:   cfg.HTTP.MaxBodyBytes,
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
	}, logger, metrics)

	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("http server failed", zap.Error(err))
		}
	}()

	// 7. Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	if err := server.Stop(); err != nil {
		logger.Warn("server forced to shutdown", zap.Error(err))
	}
	hub.Stop()

	logger.Info("exiting")
}
