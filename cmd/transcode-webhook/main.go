package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/vodpipeline/mediaconvert-trigger/internal/app"
	"github.com/vodpipeline/mediaconvert-trigger/internal/config"
	"github.com/vodpipeline/mediaconvert-trigger/internal/events"
	"github.com/vodpipeline/mediaconvert-trigger/internal/http/handlers/notifications"
	"github.com/vodpipeline/mediaconvert-trigger/internal/http/handlers/submissions"
	feed "github.com/vodpipeline/mediaconvert-trigger/internal/http/handlers/websocket"
	"github.com/vodpipeline/mediaconvert-trigger/internal/http/middleware"
	"github.com/vodpipeline/mediaconvert-trigger/internal/logger"
	"github.com/vodpipeline/mediaconvert-trigger/internal/metrics"
	"github.com/vodpipeline/mediaconvert-trigger/internal/ratelimit"
	"github.com/vodpipeline/mediaconvert-trigger/internal/websocket"
)

func main() {
	_ = godotenv.Load()

	cfg := config.MustLoad()
	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET is required for the webhook service")
	}

	l := logger.New(cfg.Log, "transcode-webhook")
	slog.SetDefault(l)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	hub := websocket.NewHub()
	go hub.Run(ctx)

	a, err := app.New(ctx, cfg, l,
		app.WithPublisher(events.NewEventPublisher(hub)),
		app.WithMetrics(metrics.New(registry)),
	)
	if err != nil {
		log.Fatalf("failed to initialize: %s", err)
	}
	defer a.Close()

	auth := middleware.AuthMiddleware(cfg.JWTSecret)

	var receive http.Handler = notifications.Receive(a.Orchestrator)
	if a.Redis != nil && cfg.Redis.NotificationsPerMinute > 0 {
		limiter := ratelimit.NewTokenBucket(a.Redis, ratelimit.PrefixNotificationRate,
			cfg.Redis.NotificationsPerMinute, cfg.Redis.NotificationsPerMinute)
		receive = middleware.RateLimitMiddleware(limiter)(receive)
	}

	router := http.NewServeMux()
	router.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	router.Handle("GET /metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	router.Handle("POST /v1/notifications", auth(receive))
	router.HandleFunc("GET /v1/feed", feed.FeedHandler(hub, cfg.JWTSecret))
	if a.Store != nil {
		router.Handle("GET /v1/submissions", auth(submissions.List(a.Store)))
	}

	server := http.Server{
		Addr:              cfg.HTTPServer.Address,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	l.Info("Webhook server started", slog.String("address", cfg.HTTPServer.Address), slog.String("env", cfg.Env))

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("failed to start server: %s", err)
		}
	}()

	<-done

	l.Info("Shutting down server...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		l.Error("failed to gracefully shutdown server", slog.String("error", err.Error()))
		return
	}

	l.Info("Server stopped")
}
