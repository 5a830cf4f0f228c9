package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/arjunmehra/streamfetch/internal/auth"
	"github.com/arjunmehra/streamfetch/internal/config"
	"github.com/arjunmehra/streamfetch/internal/extract"
	"github.com/arjunmehra/streamfetch/internal/musiclookup"
	"github.com/arjunmehra/streamfetch/internal/profile"
	"github.com/arjunmehra/streamfetch/internal/registry"
	"github.com/arjunmehra/streamfetch/internal/server"
	"github.com/arjunmehra/streamfetch/internal/storage"
	"github.com/arjunmehra/streamfetch/internal/worker"
	"github.com/arjunmehra/streamfetch/pkg/telemetry"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the download orchestration server",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().String("http-port", "8080", "HTTP server port")
	serveCmd.Flags().String("metrics-addr", ":9095", "Prometheus metrics server address")
	serveCmd.Flags().String("data-dir", "./data", "directory for artifacts, cookies and the auth database")
	serveCmd.Flags().String("ytdlp-path", "yt-dlp", "path to the yt-dlp binary")
	serveCmd.Flags().String("lookup-endpoint", "https://spotify-athrix.up.railway.app/sp/dl", "music lookup API endpoint")
	serveCmd.Flags().String("master-key", "admin-secret-123", "key for the /admin API")
	serveCmd.Flags().Int("max-concurrent", 8, "max simultaneous downloads, 0 for unbounded")

	bindFlag("http_port", serveCmd.Flags(), "http-port")
	bindFlag("metrics_addr", serveCmd.Flags(), "metrics-addr")
	bindFlag("data_dir", serveCmd.Flags(), "data-dir")
	bindFlag("ytdlp_path", serveCmd.Flags(), "ytdlp-path")
	bindFlag("lookup_endpoint", serveCmd.Flags(), "lookup-endpoint")
	bindFlag("master_key", serveCmd.Flags(), "master-key")
	bindFlag("max_concurrent", serveCmd.Flags(), "max-concurrent")
	_ = viper.BindEnv("master_key", "MASTER_KEY")
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg := config.Load(viper.GetViper())
	logger := buildLogger(cfg.LogLevel)

	stagingDir := filepath.Join(cfg.DataDir, "temp", "transient")
	publicDir := filepath.Join(cfg.DataDir, "downloads")
	cookiesDir := filepath.Join(cfg.DataDir, "cookies")

	store, err := storage.New(stagingDir, publicDir)
	if err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	if err := profile.SetupCookies(cookiesDir, cfg.Cookies, logger); err != nil {
		return fmt.Errorf("cookies: %w", err)
	}

	authStore, err := auth.Open(cfg.DataDir, logger)
	if err != nil {
		return fmt.Errorf("auth store: %w", err)
	}
	defer func() { _ = authStore.Close() }()

	runCtx, runCancel := context.WithCancel(context.Background())
	defer runCancel()

	reg := registry.New(logger)
	reg.StartReaper(runCtx)

	cache := musiclookup.NewCache()
	cache.StartEviction(runCtx)
	lookup := musiclookup.NewClient(cfg.LookupEndpoint, cache)

	gateway := extract.NewYTDLP(cfg.YTDLPPath)
	pool := worker.NewPool(reg, gateway, lookup, store, cookiesDir, cfg.MaxConcurrent, logger)

	go storage.NewSweeper(store, logger).Run(runCtx)

	srv := server.New(reg, pool, gateway, lookup, store, authStore, cookiesDir, cfg.MasterKey, logger)

	httpSrv := &http.Server{
		Addr:        ":" + cfg.HTTPPort,
		Handler:     srv.Router(),
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	telemetry.StartMetricsServer(runCtx, cfg.MetricsAddr, logger)

	go func() {
		logger.Info("streamfetch HTTP starting", slog.String("addr", httpSrv.Addr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	<-quit
	logger.Info("shutting down...")
	runCancel()

	shutCtx, shutCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutCancel()
	if err := httpSrv.Shutdown(shutCtx); err != nil {
		logger.Error("HTTP shutdown error", slog.String("error", err.Error()))
	}
	logger.Info("stopped")
	return nil
}
