package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/morriswong/datachat/internal/api"
	"github.com/morriswong/datachat/internal/assistant"
	"github.com/morriswong/datachat/internal/chat"
	"github.com/morriswong/datachat/internal/config"
	"github.com/morriswong/datachat/internal/repository/redis"
	"github.com/morriswong/datachat/internal/session"
	"github.com/morriswong/datachat/internal/tools"
)

func main() {
	// Load .env file - try multiple locations
	envPaths := []string{".env", ".env.local", "../.env"}
	for _, p := range envPaths {
		if err := godotenv.Load(p); err == nil {
			fmt.Printf("Loaded env from: %s\n", p)
			break
		}
	}

	// Setup logger
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if os.Getenv("ENV") != "production" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if level, err := zerolog.ParseLevel(cfg.Logging.Level); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	// Missing credentials halt startup; everything else degrades at runtime
	if err := cfg.Azure.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Remote service credentials missing")
	}

	log.Info().
		Str("endpoint", cfg.Azure.Endpoint).
		Str("deployment", cfg.Azure.Deployment).
		Msg("Starting data analysis assistant server")

	// Initialize Redis
	redisClient, err := redis.NewClient(cfg.Redis)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer redisClient.Close()

	// Tool registry: analyze_data is the one registered function
	registry := tools.NewRegistry()
	if err := registry.Register(tools.AnalyzeData(tools.DefaultAnalyzeDelay)); err != nil {
		log.Fatal().Err(err).Msg("Failed to register tools")
	}

	// Remote service client and assistant bootstrap
	client := assistant.NewClient(cfg.Azure)
	asst, err := client.EnsureAssistant(context.Background(), cfg.Azure.AssistantID, assistant.AssistantRequest{
		Name:         chat.AssistantName,
		Instructions: chat.AssistantInstructions,
		Model:        cfg.Azure.Deployment,
		Functions:    registry.Definitions(),
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize assistant")
	}

	// Session store and orchestrator
	store := session.NewStore(cfg.Session.TTL, cfg.Session.CleanupInterval)
	defer store.Stop()

	chatService := chat.NewService(client, tools.NewDispatcher(registry), asst.ID)

	router := api.NewRouter(cfg, store, chatService, redisClient)

	// WriteTimeout stays zero: chat responses stream for the length of a run
	server := &http.Server{
		Addr:        fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:     router,
		ReadTimeout: cfg.Server.ReadTimeout,
		IdleTimeout: cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info().Msgf("Server listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
