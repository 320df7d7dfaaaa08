package main

import (
	"context"
	"log"
	"log/slog"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/joho/godotenv"
	"github.com/vodpipeline/mediaconvert-trigger/internal/app"
	"github.com/vodpipeline/mediaconvert-trigger/internal/config"
	"github.com/vodpipeline/mediaconvert-trigger/internal/logger"
	"github.com/vodpipeline/mediaconvert-trigger/internal/trigger"
)

func main() {
	// Load .env file if it exists (local runs only)
	_ = godotenv.Load()

	cfg := config.MustLoad()

	l := logger.New(cfg.Log, "transcode-trigger")
	slog.SetDefault(l)

	a, err := app.New(context.Background(), cfg, l)
	if err != nil {
		log.Fatalf("failed to initialize: %s", err)
	}
	defer a.Close()

	l.Info("Transcode trigger ready",
		slog.String("region", cfg.Transcode.Region),
		slog.String("destination_bucket", cfg.Transcode.DestinationBucket),
		slog.Int("renditions", len(cfg.Transcode.Renditions)),
		slog.Int("max_concurrent_submissions", cfg.Transcode.MaxConcurrentSubmissions))

	lambda.Start(trigger.NewLambdaHandler(a.Orchestrator, logger.WithComponent(l, "trigger")))
}
