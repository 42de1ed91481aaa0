// README: Entry point; loads config, wires services, starts the HTTP server.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"berline/internal/ai"
	"berline/internal/config"
	httptransport "berline/internal/http"
	"berline/internal/infra"
	"berline/internal/maps"
	"berline/internal/modules/chat"
	"berline/internal/modules/tariff"
	"berline/internal/ratelimit"
	"berline/internal/search"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tenantStore, err := buildTenantStore(ctx, cfg)
	if err != nil {
		logger.Fatal("tenant store init", zap.Error(err))
	}
	tariffSvc := tariff.NewService(tenantStore)

	limiter := buildLimiter(cfg)

	provider, closeProvider, err := buildProvider(ctx, cfg.AI)
	if err != nil {
		logger.Fatal("ai provider init", zap.Error(err))
	}
	defer closeProvider()
	gateway := ai.NewGateway(provider, cfg.AI.Model, cfg.AI.FallbackModel, logger)

	var router chat.Router
	if cfg.Maps.APIKey != "" {
		rs, err := maps.NewRouteService(cfg.Maps.APIKey)
		if err != nil {
			logger.Fatal("maps init", zap.Error(err))
		}
		router = rs
	} else {
		logger.Warn("GOOGLE_MAPS_API_KEY not set; distances must come from the client")
	}

	var searcher chat.Searcher
	if cfg.Search.APIKey != "" {
		searcher = search.NewClient(cfg.Search.Endpoint, cfg.Search.APIKey, cfg.Search.Blocklist)
	}

	orch := chat.NewOrchestrator(gateway, router, searcher, logger)

	handler := httptransport.NewRouter(httptransport.RouterDeps{
		Orchestrator:     orch,
		Tariffs:          tariffSvc,
		Limiter:          limiter,
		DefaultTenantKey: cfg.Tenant.DefaultKey,
		Log:              logger,
	})

	server := &http.Server{Addr: cfg.HTTP.Addr, Handler: handler}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	logger.Info("listening", zap.String("addr", cfg.HTTP.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("serve", zap.Error(err))
	}
}

func buildTenantStore(ctx context.Context, cfg config.Config) (tariff.Store, error) {
	if cfg.DB.DSN != "" {
		pool, err := infra.NewDB(ctx, cfg.DB.DSN)
		if err != nil {
			return nil, err
		}
		return tariff.NewPGStore(pool), nil
	}

	static := tariff.StaticStore{}
	if cfg.Tenant.ConfigFile != "" {
		raw, err := os.ReadFile(cfg.Tenant.ConfigFile)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(raw, &static.Config); err != nil {
			return nil, err
		}
	}
	return static, nil
}

func buildLimiter(cfg config.Config) ratelimit.Limiter {
	window := time.Duration(cfg.RateLimit.WindowSeconds) * time.Second
	retryAfter := time.Duration(cfg.RateLimit.RetryAfterSeconds) * time.Second
	if cfg.Redis.Addr != "" {
		return ratelimit.NewRedisLimiter(infra.NewRedis(cfg.Redis.Addr), cfg.RateLimit.Requests, window, retryAfter)
	}
	return ratelimit.NewMemoryLimiter(cfg.RateLimit.Requests, window, retryAfter)
}

func buildProvider(ctx context.Context, cfg config.AIConfig) (ai.Completer, func(), error) {
	switch cfg.Provider {
	case "gemini":
		p, err := ai.NewGeminiProvider(ctx, cfg.GeminiKey)
		if err != nil {
			return nil, nil, err
		}
		return p, p.Close, nil
	default:
		return ai.NewOpenAIProvider(cfg.OpenAIKey), func() {}, nil
	}
}
