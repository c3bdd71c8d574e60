package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/benbjohnson/clock"
	"github.com/joho/godotenv"
	"golang.org/x/sync/semaphore"

	"enhancebatch/internal/batch"
	"enhancebatch/internal/http/handlers"
	httpapi "enhancebatch/internal/http/httpapi"
	"enhancebatch/internal/infra"
	"enhancebatch/internal/jobstore"
	"enhancebatch/internal/stats"
	"enhancebatch/internal/upstream"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	if cfg.AdminTokenGenerated {
		tail := cfg.AdminToken
		if len(tail) > 8 {
			tail = tail[len(tail)-8:]
		}
		logger.Warn().Str("token_suffix", tail).Msg("ADMIN_TOKEN not set, generated one for this run")
	}

	client, err := upstream.NewClient(upstream.Options{
		APIKey:         cfg.APIKey,
		BaseURL:        cfg.APIBaseURL,
		HTTPClient:     &http.Client{Timeout: cfg.UpstreamTimeout},
		Logger:         &logger,
		RequestTimeout: cfg.UpstreamTimeout,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build upstream client")
	}

	// One semaphore for the whole process keeps concurrent downloads bounded
	// across every request and job.
	sem := semaphore.NewWeighted(cfg.MaxConcurrentDownloads)
	downloader := batch.NewDownloader(client, sem, cfg.DownloadRetryDelay, logger)

	recorder := stats.NewRecorder()
	jobs := jobstore.New(cfg.JobTTL, cfg.CacheEnabled, clock.New())
	orch := batch.NewOrchestrator(client, downloader, recorder, cfg.MaxImagesPerOrder, logger)

	app := handlers.NewApp(cfg, logger, client, orch, jobs, recorder)
	router := httpapi.NewRouter(app, cfg, logger)
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
