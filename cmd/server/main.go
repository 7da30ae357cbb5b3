package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/housika/receipts/internal/bootstrap"
	"github.com/housika/receipts/internal/infrastructure/config"
	"github.com/housika/receipts/internal/infrastructure/delivery"
	"github.com/housika/receipts/internal/infrastructure/logger"
	"github.com/housika/receipts/internal/infrastructure/scheduler"
	"github.com/housika/receipts/internal/infrastructure/telemetry"
	"github.com/housika/receipts/internal/interfaces/http/handler"
	"github.com/housika/receipts/internal/interfaces/http/middleware"
	"github.com/housika/receipts/internal/interfaces/http/router"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

const retentionInterval = time.Hour

//	@title			Housika Receipts API
//	@version		1.0
//	@description	Generates booking receipt PDFs and hands them out through short-lived handles.
//	@BasePath		/api/v1

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: logger.DefaultTimeFormat,
		Service:    cfg.App.Name,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting receipt service",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tel, err := telemetry.Setup(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		Insecure:          cfg.Telemetry.Insecure,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    version,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		MetricsInterval:   cfg.Telemetry.MetricsExportInterval,
		LogsEnabled:       cfg.Telemetry.LogsEnabled,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	log = tel.Bridge(log, logger.ParseLevel(cfg.Log.Level))

	profiler, err := telemetry.StartProfiler(telemetry.ProfilerConfig{
		Enabled:         cfg.Profiling.Enabled,
		ServerAddress:   cfg.Profiling.ServerAddress,
		ApplicationName: cfg.Profiling.ApplicationName,
		Tags:            map[string]string{"env": cfg.App.Env, "version": version},
	}, log)
	if err != nil {
		log.Warn("Profiler unavailable", zap.Error(err))
	} else if profiler.Running() && cfg.Profiling.SpanProfiles {
		tel.EnableSpanProfiles()
	}

	receiptMetrics, err := telemetry.NewReceiptMetrics(tel.Meter("housika-receipts"))
	if err != nil {
		log.Warn("Receipt metrics unavailable", zap.Error(err))
	}

	pipeline, err := bootstrap.Build(ctx, cfg, log, bootstrap.WithMetrics(receiptMetrics))
	if err != nil {
		log.Fatal("Failed to assemble receipt pipeline", zap.Error(err))
	}

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// RequestID must run first so the logger, tracing and error responses
	// all see the same id.
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.TracingWithConfig(middleware.TracingConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Enabled:     cfg.Telemetry.Enabled,
	}))
	engine.Use(middleware.SpanAttributes(), middleware.SpanErrorMarker())
	engine.Use(middleware.Secure())

	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	corsConfig.AllowMethods = cfg.HTTP.CORSAllowMethods
	corsConfig.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	engine.Use(middleware.CORSWithConfig(corsConfig))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	var limiter *middleware.RateLimiter
	if cfg.HTTP.RateLimitEnabled {
		limiter = middleware.NewRateLimiter(cfg.HTTP.RateLimitRPS, cfg.HTTP.RateLimitBurst)
		log.Info("Rate limiting enabled",
			zap.Float64("rps", cfg.HTTP.RateLimitRPS),
			zap.Int("burst", cfg.HTTP.RateLimitBurst))
	}

	apiMiddleware := []gin.HandlerFunc{middleware.Timeout(cfg.HTTP.RequestTimeout)}
	if limiter != nil {
		apiMiddleware = append(apiMiddleware, middleware.RateLimit(limiter))
	}

	systemHandler := handler.NewSystemHandler(cfg.App.Name, version, pipeline.Registry.Live)
	if pinger, ok := pipeline.SharedStore.(interface{ Ping(context.Context) error }); ok {
		systemHandler.AddCheck("redis", pinger.Ping)
	}

	routes := router.NewRouter(engine, router.WithAPIMiddleware(apiMiddleware...)).
		Mount(
			handler.NewReceiptHandler(pipeline.Service).Routes(),
			systemHandler.Routes(),
		).
		Setup()
	log.Debug("Routes mounted", zap.Strings("routes", routes))

	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "time": time.Now().Format(time.RFC3339)})
	})

	srv := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      engine,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	jobs := scheduler.NewScheduler(log)
	if err := registerMaintenance(jobs, log, cfg.Delivery, pipeline, limiter); err != nil {
		log.Fatal("Failed to register maintenance jobs", zap.Error(err))
	}
	if err := jobs.Start(ctx); err != nil {
		log.Fatal("Failed to start scheduler", zap.Error(err))
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := jobs.Stop(shutdownCtx); err != nil {
		log.Warn("Scheduler stop failed", zap.Error(err))
	}
	if n := pipeline.Service.Sweep(shutdownCtx, 0); n > 0 {
		log.Info("Released outstanding receipt handles", zap.Int("count", n))
	}
	if err := profiler.Stop(); err != nil {
		log.Warn("Profiler stop failed", zap.Error(err))
	}
	if err := tel.Shutdown(shutdownCtx); err != nil {
		log.Warn("Telemetry shutdown failed", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// registerMaintenance schedules the handle sweep and, when rate limiting is
// on, eviction of idle limiter buckets.
func registerMaintenance(s *scheduler.Scheduler, log *zap.Logger, cfg config.DeliveryConfig, p *bootstrap.Pipeline, limiter *middleware.RateLimiter) error {
	jobs := []scheduler.Job{{
		Name:     "handle-sweep",
		Interval: cfg.SweepInterval,
		Run: func(ctx context.Context) error {
			if n := p.Service.Sweep(ctx, cfg.HandleTTL); n > 0 {
				log.Info("Released abandoned receipt handles",
					zap.Int("count", n),
					zap.Duration("ttl", cfg.HandleTTL))
			}
			return nil
		},
	}}

	if limiter != nil {
		jobs = append(jobs, scheduler.Job{
			Name:     "limiter-cleanup",
			Interval: cfg.SweepInterval,
			Run: func(context.Context) error {
				limiter.Cleanup()
				return nil
			},
		})
	}

	// Saved receipts only expire on local disk; object storage lifecycle
	// rules own the bucket.
	if fs, ok := p.DefaultSink.(*delivery.FileSystemSink); ok && cfg.Retention > 0 {
		jobs = append(jobs, scheduler.Job{
			Name:     "output-retention",
			Interval: retentionInterval,
			Timeout:  time.Minute,
			Run: func(ctx context.Context) error {
				_, err := fs.CleanupOlderThan(ctx, cfg.Retention)
				return err
			},
		})
	}

	for _, job := range jobs {
		if err := s.Register(job); err != nil {
			return err
		}
	}
	return nil
}
