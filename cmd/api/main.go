//	@title			Media Gateway API
//	@version		1.0
//	@description	Authenticated media uploads to object storage and a cached media proxy.
//
//	@host		localhost:3001
//	@BasePath	/
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Firebase ID token. Format: **Bearer {token}**

package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mediagate/service/internal/auth"
	"github.com/mediagate/service/internal/config"
	"github.com/mediagate/service/internal/logging"
	"github.com/mediagate/service/internal/media"
	"github.com/mediagate/service/internal/metrics"
	"github.com/mediagate/service/internal/proxy"
	"github.com/mediagate/service/internal/server"
	"github.com/mediagate/service/internal/storage"
	"github.com/mediagate/service/internal/upload"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger := logging.New(os.Stdout, cfg.AppEnv, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := storage.New(ctx, cfg.Storage, logger)
	if err != nil {
		logger.Error("object storage init failed", "provider", cfg.Storage.Provider, "error", err)
		os.Exit(1)
	}

	// Wire dependencies: verifier, storage → service → handler
	m := metrics.New()
	verifier := auth.NewFirebaseVerifier(cfg.Firebase)
	uploadSvc := upload.NewService(store, media.NewKeyDeriver(), cfg.Storage.Timeout, m, logger)
	uploadHandler := upload.NewHandler(uploadSvc, cfg.Upload.MaxFileSize, cfg.IsDevelopment(), logger)
	proxyHandler := proxy.NewHandler(cfg.Proxy, m, logger)

	router := server.NewRouter(server.Deps{
		Logger:       logger,
		Verifier:     verifier,
		Uploads:      uploadHandler,
		Proxy:        proxyHandler,
		Metrics:      m,
		CORSOrigins:  cfg.CORSOrigins,
		ExposeErrors: cfg.IsDevelopment(),
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info("server listening",
			"port", cfg.Port,
			"env", cfg.AppEnv,
			"storage", cfg.Storage.Provider,
			"firebase_project", cfg.Firebase.ProjectID,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("forced shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
