package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/signupassist/provider-pipeline/internal/api"
	"github.com/signupassist/provider-pipeline/internal/cdp"
	"github.com/signupassist/provider-pipeline/internal/config"
	"github.com/signupassist/provider-pipeline/internal/extractcache"
	"github.com/signupassist/provider-pipeline/internal/extractor"
	"github.com/signupassist/provider-pipeline/internal/feedstore"
	"github.com/signupassist/provider-pipeline/internal/pipeline"
	"github.com/signupassist/provider-pipeline/internal/stealth"
)

func main() {
	cfg := config.Load()
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	logger := log.Default()

	browser, err := cdp.DialBrowser(ctx, cfg.CDPBaseURL)
	if err != nil {
		log.Fatalf("dial browser at %s: %v", cfg.CDPBaseURL, err)
	}
	defer browser.Close()

	factory := stealth.NewFactory(browser, browser.CreatePage, stealth.Config{
		Enabled:        cfg.AntibotEnabled,
		ViewportWidth:  cfg.StealthViewport.Width,
		ViewportHeight: cfg.StealthViewport.Height,
		Locale:         cfg.StealthLocale,
		Timezone:       cfg.StealthTimezone,
		StateTTL:       cfg.SessionStateTTL,
	}, cfg.HumanizeSeed, logger)

	cache := buildExtractionCache(cfg)
	feeds := buildFeedStore(ctx, cfg)

	extract, err := extractor.NewClient(extractor.Config{
		EndpointURL: cfg.ExtractorEndpoint,
		AuthToken:   cfg.ExtractorToken,
		Model:       cfg.ExtractorModel,
		Timeout:     cfg.ExtractorTimeout,
	})
	if err != nil {
		log.Fatalf("build extractor client: %v", err)
	}

	service, err := pipeline.NewService(pipeline.Options{
		Config:    cfg,
		Sessions:  pipeline.NewStealthSessions(factory),
		Cache:     cache,
		Feeds:     feeds,
		Extractor: extract,
		Logger:    logger,
	})
	if err != nil {
		log.Fatalf("build pipeline service: %v", err)
	}

	server := api.NewServer(service, api.Options{
		APIKey:         cfg.APIKey,
		DiscoverPerMin: cfg.DiscoverPerMin,
		Logger:         logger,
	})

	httpServer := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      server.Routes(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	go func() {
		log.Printf("pipeline listening on %s (cache=%s feeds=%s antibot=%v)", cfg.HTTPAddr, cfg.CacheBackend, cfg.FeedBackend, cfg.AntibotEnabled)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("pipeline server failed: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownHTTP(httpServer)
}

func shutdownHTTP(server *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("pipeline shutdown error: %v", err)
	}
}

func buildExtractionCache(cfg config.Config) extractcache.Store {
	if strings.EqualFold(cfg.CacheBackend, "redis") {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		log.Printf("extraction cache backed by redis at %s", cfg.RedisAddr)
		return extractcache.NewRedisStore(client, "")
	}
	return extractcache.NewInMemoryStore()
}

func buildFeedStore(ctx context.Context, cfg config.Config) feedstore.Store {
	if strings.EqualFold(cfg.FeedBackend, "postgres") {
		store, err := feedstore.NewPostgresStore(ctx, cfg.PostgresDSN)
		if err != nil {
			log.Fatalf("connect feed store: %v", err)
		}
		log.Printf("feed store backed by postgres")
		return store
	}
	return feedstore.NewInMemoryStore()
}
