package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/carlmjohnson/versioninfo"
	_ "github.com/joho/godotenv/autoload"
	cli "github.com/urfave/cli/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	tracesdk "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
)

func main() {
	if err := run(os.Args); err != nil {
		slog.Error("exiting", "err", err)
		os.Exit(-1)
	}
}

func run(args []string) error {

	app := cli.App{
		Name:    "warden",
		Usage:   "guild moderation automation daemon",
		Version: versioninfo.Short(),
	}

	app.Commands = []*cli.Command{
		runCmd,
	}

	return app.Run(args)
}

var runCmd = &cli.Command{
	Name:  "run",
	Usage: "run the service",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "gateway-host",
			Usage:   "scheme, hostname, and port of the platform gateway websocket",
			Value:   "wss://gateway.example.com",
			EnvVars: []string{"WARDEN_GATEWAY_HOST"},
		},
		&cli.StringFlag{
			Name:    "platform-host",
			Usage:   "scheme, hostname, and port of the platform REST API",
			Value:   "https://api.example.com",
			EnvVars: []string{"WARDEN_PLATFORM_HOST"},
		},
		&cli.StringFlag{
			Name:    "bot-token",
			Usage:   "platform bot token used for enforcement calls",
			EnvVars: []string{"WARDEN_BOT_TOKEN"},
		},
		&cli.StringFlag{
			Name:    "redis-url",
			Usage:   "redis connection URL for durable state; in-memory stores when empty",
			EnvVars: []string{"WARDEN_REDIS_URL"},
		},
		&cli.StringFlag{
			Name:    "sets-json-path",
			Usage:   "file path of JSON wordlist sets to load",
			EnvVars: []string{"WARDEN_SETS_JSON_PATH"},
		},
		&cli.StringFlag{
			Name:    "bind",
			Usage:   "IP or address, and port, to listen on for the admin API",
			Value:   ":3999",
			EnvVars: []string{"WARDEN_BIND"},
		},
		&cli.StringFlag{
			Name:    "metrics-listen",
			Usage:   "IP or address, and port, to listen on for metrics APIs",
			Value:   ":3998",
			EnvVars: []string{"WARDEN_METRICS_LISTEN"},
		},
		&cli.StringFlag{
			Name:    "admin-token",
			Usage:   "bearer token protecting the admin API",
			EnvVars: []string{"WARDEN_ADMIN_TOKEN"},
		},
		&cli.StringFlag{
			Name:    "slack-webhook-url",
			Usage:   "webhook URL for enforcement outcome notifications",
			EnvVars: []string{"WARDEN_SLACK_WEBHOOK_URL"},
		},
		&cli.StringFlag{
			Name:    "scamcheck-host",
			Usage:   "endpoint of the URL threat-intel lookup API",
			Value:   "https://safebrowsing.googleapis.com/v4/threatMatches:find",
			EnvVars: []string{"WARDEN_SCAMCHECK_HOST"},
		},
		&cli.StringFlag{
			Name:    "scamcheck-api-key",
			Usage:   "API key for the threat-intel service; link scanning disabled when empty",
			EnvVars: []string{"WARDEN_SCAMCHECK_API_KEY"},
		},
		&cli.IntFlag{
			Name:    "ingest-parallelism",
			Usage:   "number of concurrent event ingestion workers",
			Value:   16,
			EnvVars: []string{"WARDEN_INGEST_PARALLELISM"},
		},
		&cli.IntFlag{
			Name:    "action-rate-limit",
			Usage:   "max platform action calls per second",
			Value:   8,
			EnvVars: []string{"WARDEN_ACTION_RATE_LIMIT"},
		},
		&cli.IntFlag{
			Name:    "max-tracked-users",
			Usage:   "cap on per-user recent message windows held in memory",
			Value:   10_000,
			EnvVars: []string{"WARDEN_MAX_TRACKED_USERS"},
		},
	},
	Action: func(cctx *cli.Context) error {
		ctx := context.Background()
		logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
		slog.SetDefault(logger)

		// Enable OTLP HTTP exporter
		// For relevant environment variables:
		// https://pkg.go.dev/go.opentelemetry.io/otel/exporters/otlp/otlptrace#readme-environment-variables
		// At a minimum, you need to set
		// OTEL_EXPORTER_OTLP_ENDPOINT=http://localhost:4318
		if ep := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); ep != "" {
			slog.Info("setting up trace exporter", "endpoint", ep)
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			exp, err := otlptracehttp.New(ctx)
			if err != nil {
				log.Fatal("failed to create trace exporter", "error", err)
			}
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), time.Second)
				defer cancel()
				if err := exp.Shutdown(ctx); err != nil {
					slog.Error("failed to shutdown trace exporter", "error", err)
				}
			}()

			tp := tracesdk.NewTracerProvider(
				tracesdk.WithBatcher(exp),
				tracesdk.WithResource(resource.NewWithAttributes(
					semconv.SchemaURL,
					semconv.ServiceNameKey.String("warden"),
					attribute.String("env", os.Getenv("ENVIRONMENT")),         // DataDog
					attribute.String("environment", os.Getenv("ENVIRONMENT")), // Others
					attribute.Int64("ID", 1),
				)),
			)
			otel.SetTracerProvider(tp)
		}

		srv, err := NewServer(Config{
			GatewayHost:       cctx.String("gateway-host"),
			PlatformHost:      cctx.String("platform-host"),
			BotToken:          cctx.String("bot-token"),
			RedisURL:          cctx.String("redis-url"),
			SetsFileJSON:      cctx.String("sets-json-path"),
			Bind:              cctx.String("bind"),
			AdminToken:        cctx.String("admin-token"),
			SlackWebhookURL:   cctx.String("slack-webhook-url"),
			ScamcheckHost:     cctx.String("scamcheck-host"),
			ScamcheckAPIKey:   cctx.String("scamcheck-api-key"),
			IngestParallelism: cctx.Int("ingest-parallelism"),
			ActionRateLimit:   cctx.Int("action-rate-limit"),
			MaxTrackedUsers:   cctx.Int("max-tracked-users"),
			Logger:            logger,
		})
		if err != nil {
			return err
		}

		go func() {
			if err := srv.RunMetrics(cctx.String("metrics-listen")); err != nil {
				slog.Error("failed to start metrics endpoint", "error", err)
				panic(fmt.Errorf("failed to start metrics endpoint: %w", err))
			}
		}()

		if err := srv.Run(ctx); err != nil {
			return fmt.Errorf("failed to run moderation service: %w", err)
		}
		return nil
	},
}
