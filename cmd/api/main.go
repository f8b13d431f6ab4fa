package main

import (
	"os"
	"strings"
	"time"

	"github.com/nimasrn/billing-console/internal/config"
	gateway "github.com/nimasrn/billing-console/internal/gateways"
	"github.com/nimasrn/billing-console/internal/handlers"
	"github.com/nimasrn/billing-console/internal/idempotency"
	"github.com/nimasrn/billing-console/internal/services"
	"github.com/nimasrn/billing-console/internal/session"
	xhttp "github.com/nimasrn/billing-console/pkg/http"
	"github.com/nimasrn/billing-console/pkg/logger"
	"github.com/nimasrn/billing-console/pkg/prom"
	"github.com/nimasrn/billing-console/pkg/redis"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {

	err := config.Load(argContainsEnvPath())
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return
	}
	cfg := config.Get()
	if !logger.SetLevel(cfg.LogLevel) {
		logger.Warn("unknown log level, keeping default", "level", cfg.LogLevel)
	}
	logger.Info("starting billing console", "version", version, "commit", commit, "date", date, "env", cfg.AppEnv)

	if cfg.AppDebugMetricsAddr != "" {
		host, _ := os.Hostname()
		if err := prom.Create(host, cfg.AppEnv, cfg.PromNamespace); err != nil {
			logger.Error("failed creating metrics", "error", err)
			return
		}
		uri := cfg.AppDebugMetricsURI
		if uri == "" {
			uri = "/metrics"
		}
		go prom.ListenAndServer(cfg.AppDebugMetricsAddr, uri)
	}

	// transport
	option := xhttp.DefaultServerOption
	option.RequestTimeout = cfg.HttpRequestTimeout
	option.WriteTimeout = cfg.HttpRequestTimeout + 5*time.Second
	option.ReadBufferSize = 1024 * 16
	option.WriteBufferSize = 1024 * 16
	option.Logger = logger.GetLogger()
	s := xhttp.NewServer(option)
	s.Use(xhttp.RecoverMiddleware)
	s.Use(xhttp.RequestIDMiddleware)
	s.Use(xhttp.RequestLoggerMiddleware)
	s.Use(xhttp.CompressMiddleware(6))
	s.Router = xhttp.CreateDefaultRouter()

	redisAdap, err := redis.NewRedisAdapter("default", "", &redis.Options{
		Addrs:      []string{cfg.RedisAddr},
		ClientName: "default",
		DB:         cfg.RedisDatabase,
		Username:   cfg.RedisUsername,
		Password:   cfg.RedisPassword,
	})
	if err != nil {
		logger.Error("failed connecting to redis", "error", err)
		return
	}
	defer redisAdap.Close()

	billing, err := gateway.NewClient(&gateway.Config{
		BaseURL:           cfg.BillingURL(),
		Timeout:           cfg.BillingTimeout,
		MaxConns:          cfg.BillingMaxConns,
		ReadBufferSize:    1024 * 16,
		WriteBufferSize:   1024 * 16,
		EnrichConcurrency: cfg.BillingEnrichConcurrency,
		Capabilities: gateway.Capabilities{
			IncludeDateOnValueUpdate: cfg.IncludeDateOnValueUpdate(),
		},
	})
	if err != nil {
		logger.Error("failed creating billing client", "error", err)
		return
	}
	defer billing.Close()

	sessions := session.NewStore(redisAdap.Scope(cfg.SessionKeyPrefix), cfg.SessionTTL)
	idem := idempotency.DefaultConfig()
	idem.LockTTL = cfg.IdempotencyLockTTL
	idem.DoneTTL = cfg.IdempotencyTTL
	guard := idempotency.NewService(redisAdap.Scope(cfg.IdempotencyKeyPrefix), idem)

	// services
	consoleService := services.NewConsoleService(billing)
	healthService := services.NewHealthService(redisAdap)

	// v1 handlers
	consoleHandler := handlers.NewConsoleHandler(consoleService)
	sessionHandler := handlers.NewSessionHandler(sessions, cfg.SessionCookieSecure)
	healthHandler := handlers.NewHealthHandler(healthService)

	g := s.Router.Group("/api/v1")
	handlers.RegisterHealthRoutes(g, healthHandler)
	handlers.RegisterSessionRoutes(g, sessionHandler)
	handlers.RegisterConsoleRoutes(g, consoleHandler, sessions.RequireSession, guard.Middleware)

	s.CloseOnSignal()
	if err := s.ListenAndServe(cfg.HttpListenAddr); err != nil {
		logger.Error("error in running http-server", "error", err)
	}
	logger.Info("billing console stopped")
}

func argContainsEnvPath() string {
	for _, v := range os.Args {
		if strings.HasPrefix(v, "--env=") {
			path := strings.TrimPrefix(v, "--env=")
			if _, err := os.Stat(path); err != nil {
				logger.Error("failed to open the passed env file, got error" + err.Error())
				return ""
			}
			return path
		}
	}
	return ""
}
