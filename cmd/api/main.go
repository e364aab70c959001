// Package main is the entry point for the AI functions server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/capitalize-ai/ai-functions/internal/config"
	"github.com/capitalize-ai/ai-functions/internal/handler"
	"github.com/capitalize-ai/ai-functions/internal/llm"
	natsclient "github.com/capitalize-ai/ai-functions/internal/nats"
	"github.com/capitalize-ai/ai-functions/internal/server"
	"github.com/capitalize-ai/ai-functions/internal/service"
	"github.com/capitalize-ai/ai-functions/pkg/logger"
	"github.com/capitalize-ai/ai-functions/pkg/tracing"
)

const serviceName = "ai-functions"

var (
	flagPort     string
	flagLogLevel string
	flagEnvFile  string
)

var rootCmd = &cobra.Command{
	Use:   "ai-functions",
	Short: "Serve the AI support, content and chat functions",
	Long: `ai-functions serves the dashboard's AI endpoints under /functions/v1:

  analyze-support            structured analysis of a customer message
  generate-support-reply     reply draft plus quick actions
  generate-content-script    social media script
  whatsapp-ai-chat           inbox assistant reply plus quick actions

Configuration comes from the environment (optionally a .env file).`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd.Context())
	},
}

func init() {
	rootCmd.Flags().StringVar(&flagPort, "port", "", "Listen port (overrides PORT)")
	rootCmd.Flags().StringVar(&flagLogLevel, "log-level", "", "Log level (overrides LOG_LEVEL)")
	rootCmd.Flags().StringVar(&flagEnvFile, "env-file", ".env", "Optional dotenv file to load before reading the environment")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	if flagEnvFile != "" {
		if err := godotenv.Load(flagEnvFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", flagEnvFile, err)
		}
	}

	cfg := config.Load()
	if flagPort != "" {
		cfg.ServerPort = flagPort
	}
	if flagLogLevel != "" {
		cfg.LogLevel = flagLogLevel
	}

	log, err := logger.New(logger.Options{
		Level:       cfg.LogLevel,
		Service:     serviceName,
		Development: cfg.Environment == "development",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		return err
	}
	defer log.Sync()

	log.Info("starting AI functions server")

	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, serviceName, cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(context.Background(), tp)
		}
	}

	gateway := llm.NewGatewayClient(llm.GatewayConfig{
		BaseURL:     cfg.GatewayURL,
		APIKey:      cfg.GatewayAPIKey,
		Timeout:     cfg.GatewayTimeout,
		MaxAttempts: cfg.GatewayMaxAttempts,
		RetryDelay:  cfg.GatewayRetryDelay,
		MaxRPS:      cfg.GatewayMaxRPS,
	}, log)
	if !gateway.Configured() {
		log.Warn("AI_GATEWAY_API_KEY is not set; function calls will fail until it is configured")
	}

	// Event feed is optional
	var (
		publisher service.EventPublisher = service.NopPublisher{}
		feed      handler.EventFeed
		conn      handler.Connection
	)
	if cfg.EventsEnabled() {
		natsClient, err := natsclient.Connect(ctx, natsclient.Config{
			URL:            cfg.NATSURL,
			CAFile:         cfg.NATSCAFile,
			CertFile:       cfg.NATSCertFile,
			KeyFile:        cfg.NATSKeyFile,
			Token:          cfg.NATSToken,
			ConnectTimeout: 5 * time.Second,
		}, log)
		if err != nil {
			log.Error("failed to connect to NATS", zap.Error(err))
			return err
		}
		defer natsClient.Close()

		events := natsclient.NewEventStream(natsClient)
		if err := events.EnsureStream(ctx); err != nil {
			log.Error("failed to ensure stream", zap.Error(err))
			return err
		}

		publisher, feed, conn = events, events, natsClient
	} else {
		log.Info("NATS_URL not set; event feed disabled")
	}

	opts := service.Options{
		Client:       gateway,
		Model:        cfg.Model,
		ActionsModel: cfg.ActionsModel,
		Publisher:    publisher,
		Logger:       log,
		Timeout:      cfg.FunctionTimeout,
	}
	if cfg.FunctionTimeout <= 0 || cfg.FunctionTimeout >= cfg.ServerWriteTimeout {
		log.Warn("FUNCTION_TIMEOUT should be below SERVER_WRITE_TIMEOUT; slow upstream calls may drop the connection",
			zap.Duration("function_timeout", cfg.FunctionTimeout),
			zap.Duration("write_timeout", cfg.ServerWriteTimeout),
		)
	}

	router := server.NewRouter(server.Options{
		Functions: handler.NewFunctionHandler(
			service.NewSupportService(opts),
			service.NewContentService(opts),
			service.NewChatService(opts),
		),
		Events:            handler.NewEventsHandler(feed, 0, log),
		Health:            handler.NewHealthHandler(gateway, conn),
		Logger:            log,
		JWTSecret:         cfg.JWTSecret,
		RateLimitRequests: cfg.RateLimitRequests,
		RateLimitWindow:   cfg.RateLimitWindow,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("port", cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			log.Error("server error", zap.Error(err))
			return err
		}
	case <-ctx.Done():
	}

	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
		return err
	}

	log.Info("server stopped")
	return nil
}
