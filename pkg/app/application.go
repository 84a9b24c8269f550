package app

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/osvaldoandrade/osintq/internal/middleware"
	"github.com/osvaldoandrade/osintq/internal/providers"
	"github.com/osvaldoandrade/osintq/internal/ratelimit"
	"github.com/osvaldoandrade/osintq/internal/services"
	"github.com/osvaldoandrade/osintq/internal/toolclient"
	"github.com/osvaldoandrade/osintq/internal/tools"
	"github.com/osvaldoandrade/osintq/internal/tracing"
	"github.com/osvaldoandrade/osintq/pkg/auth"
	"github.com/osvaldoandrade/osintq/pkg/config"
	"github.com/osvaldoandrade/osintq/pkg/store"
	_ "github.com/osvaldoandrade/osintq/pkg/store/memory"
)

type Application struct {
	Config          *config.Config
	Engine          *gin.Engine
	Store           store.TaskStore
	Agent           services.AgentService
	Tools           *tools.Service
	Logger          *slog.Logger
	Validator       auth.Validator
	RateLimiter     ratelimit.Limiter
	TracingShutdown func(context.Context) error
}

// ApplicationOption configures the Application
type ApplicationOption func(*Application) error

// WithValidator sets a custom submit validator
func WithValidator(validator auth.Validator) ApplicationOption {
	return func(app *Application) error {
		app.Validator = validator
		return nil
	}
}

func NewApplication(cfg *config.Config, opts ...ApplicationOption) (*Application, error) {
	level := new(slog.LevelVar)
	switch cfg.LogLevel {
	case "debug":
		level.Set(slog.LevelDebug)
	case "warn":
		level.Set(slog.LevelWarn)
	case "error":
		level.Set(slog.LevelError)
	default:
		level.Set(slog.LevelInfo)
	}
	var handler slog.Handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	if cfg.LogFormat == "text" {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	}
	logger := slog.New(handler).With("service", "osintq", "env", cfg.Env)
	slog.SetDefault(logger)

	tracingShutdown, err := tracing.Setup(context.Background(), tracing.Config{
		Enabled:      cfg.Tracing.Enabled,
		ServiceName:  cfg.Tracing.ServiceName,
		OTLPEndpoint: cfg.Tracing.OTLPEndpoint,
		OTLPInsecure: cfg.Tracing.OTLPInsecure,
		SampleRatio:  cfg.Tracing.SampleRatio,
	}, logger)
	if err != nil {
		return nil, err
	}

	taskStore, err := store.NewStore(cfg.StoreProvider)
	if err != nil {
		return nil, err
	}

	toolClient := toolclient.NewHTTPClient(cfg.ToolBaseURL, time.Duration(cfg.ToolTimeoutSeconds)*time.Second)
	callback := services.NewCallbackService(
		logger,
		cfg.Webhook.HmacSecret,
		cfg.Webhook.MaxAttempts,
		cfg.Webhook.BaseBackoffSeconds,
		cfg.Webhook.MaxBackoffSeconds,
		cfg.Webhook.BackoffPolicy,
	)
	runner := services.NewPipelineRunner(taskStore, toolClient, callback, logger, cfg.SearchMaxResults, cfg.ScrapeMaxChars)
	agent := services.NewAgentService(taskStore, runner, logger)

	engine := gin.New()
	engine.Use(gin.Recovery(), middleware.RequestIDMiddleware(), middleware.LoggerMiddleware(logger))
	if cfg.Tracing.Enabled {
		engine.Use(middleware.TracingMiddleware(cfg.Tracing.ServiceName))
	}

	app := &Application{
		Config:          cfg,
		Engine:          engine,
		Store:           taskStore,
		Agent:           agent,
		Logger:          logger,
		TracingShutdown: tracingShutdown,
	}

	if cfg.Tools.Enabled {
		app.Tools = tools.NewService(cfg.Tools, logger)
	}

	// Rate limiting is redis-backed and optional; without a redis address the
	// limiter stays nil and the middleware passes everything through.
	if cfg.RedisAddr != "" {
		app.RateLimiter = ratelimit.NewTokenBucketLimiter(providers.NewRedisProvider(cfg.RedisAddr, cfg.RedisPassword))
	}

	// Apply options
	for _, opt := range opts {
		if err := opt(app); err != nil {
			return nil, err
		}
	}

	// Create a default validator from config if not provided
	if app.Validator == nil && cfg.Auth.Provider != "" {
		validator, err := auth.NewValidator(cfg.Auth.Provider, auth.Config{
			Token:    cfg.Auth.Token,
			Secret:   cfg.Auth.Secret,
			Issuer:   cfg.Auth.Issuer,
			Audience: cfg.Auth.Audience,
		})
		if err != nil {
			return nil, err
		}
		app.Validator = validator
	}

	return app, nil
}
