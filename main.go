package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	intconfig "hkiapp/internal/config"
	intdb "hkiapp/internal/db"
	router "hkiapp/internal/http"
	"hkiapp/internal/http/handlers"
	"hkiapp/internal/realtime"
	"hkiapp/internal/storage"

	"github.com/gin-gonic/gin"
)

func main() {
	env := intconfig.LoadEnv()
	if env.GinMode != "" {
		gin.SetMode(env.GinMode)
	}

	logger, err := intconfig.NewLogger(env.Log)
	if err != nil {
		slog.Error("Konfigurasi log tidak valid", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db := intconfig.ConnectDB(env.DB)
	defer intconfig.CloseDB()

	if env.DB.AutoMigrate {
		if err := intdb.Migrate(db, logger); err != nil {
			logger.Error("Migrasi database gagal", "error", err)
			os.Exit(1)
		}
	}

	api := &handlers.API{
		DB:             db,
		Secret:         []byte(env.Auth.JWTSecret),
		TokenTTL:       env.Auth.TokenTTL,
		SignedURLTTL:   env.Storage.SignedURLTTL,
		MaxUploadBytes: env.Storage.MaxUploadBytes(),
		Logger:         logger,
	}

	switch env.Storage.Backend {
	case "s3":
		store, err := storage.NewS3Store(ctx, storage.S3Config{
			Bucket:   env.Storage.Bucket,
			Region:   env.Storage.Region,
			Endpoint: env.Storage.Endpoint,
		})
		if err != nil {
			logger.Error("Gagal menyiapkan penyimpanan S3", "error", err)
			os.Exit(1)
		}
		api.Files = store
	default:
		publicURL := strings.TrimSpace(env.Storage.PublicBaseURL)
		if publicURL == "" {
			publicURL = "/api/files"
		}
		fs, err := storage.NewFileSystem(env.Storage.BasePath, publicURL, api.Secret, logger)
		if err != nil {
			logger.Error("Gagal menyiapkan penyimpanan file", "error", err)
			os.Exit(1)
		}
		api.Files = fs
		api.FileSystem = fs
	}

	hub := realtime.NewHub()
	api.Hub = hub
	api.Events = hub
	if env.Redis.Enabled() {
		client, err := realtime.NewRedisClient(ctx, env.Redis.Addr, env.Redis.Password, env.Redis.DB)
		if err != nil {
			logger.Error("Gagal konek ke Redis", "error", err)
			os.Exit(1)
		}
		defer client.Close()

		relay := realtime.NewRedisRelay(client, hub, logger)
		if err := relay.Start(ctx); err != nil {
			logger.Error("Gagal berlangganan kanal Redis", "error", err)
			os.Exit(1)
		}
		api.Events = relay
	}

	r := router.NewRouter(env, api, logger)

	srv := &http.Server{
		Addr:              env.AppAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		// no write timeout: /api/hki/changes streams for the life of the session
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		logger.Info("Server berjalan", "addr", env.AppAddr, "storage", env.Storage.Backend, "redis", env.Redis.Enabled())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Gagal menjalankan server", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("Mematikan server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Shutdown does not wait for hijacked websocket connections
	hub.Close()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown server gagal", "error", err)
		return
	}

	logger.Info("Server berhenti dengan aman.")
}
