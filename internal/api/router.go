package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/morriswong/datachat/internal/api/handler"
	customMiddleware "github.com/morriswong/datachat/internal/api/middleware"
	"github.com/morriswong/datachat/internal/chat"
	"github.com/morriswong/datachat/internal/config"
	"github.com/morriswong/datachat/internal/repository/redis"
	"github.com/morriswong/datachat/internal/session"
)

// NewRouter creates and configures the HTTP router
func NewRouter(cfg *config.Config, store *session.Store, chatService *chat.Service, redisClient *redis.Client) http.Handler {
	r := chi.NewRouter()

	// Global middleware. No request timeout: the chat endpoint streams for
	// as long as the remote run takes.
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(customMiddleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Rate limiting keyed by session
	rateLimiter := redis.NewRateLimiter(
		redisClient,
		cfg.Security.RateLimit.RequestsPerMinute,
		cfg.Security.RateLimit.Burst,
	)

	// Initialize handlers
	sessionHandler := handler.NewSessionHandler(store, chatService)
	uploadHandler := handler.NewUploadHandler(chatService, cfg.Upload.MaxSizeMB)
	chatHandler := handler.NewChatHandler(chatService)
	filesHandler := handler.NewFilesHandler(chatService)

	sessionMiddleware := customMiddleware.NewSessionMiddleware(store)
	rateLimitMiddleware := customMiddleware.NewRateLimitMiddleware(rateLimiter)

	r.Route("/api/v1", func(r chi.Router) {
		// Health check
		r.Get("/health", handler.HealthCheck)
		r.Get("/ready", handler.ReadyCheck(redisClient))

		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", sessionHandler.Create)

			r.Route("/{sessionID}", func(r chi.Router) {
				r.Use(sessionMiddleware.Resolve)
				r.Use(rateLimitMiddleware.Limit)

				r.Get("/", sessionHandler.Get)
				r.Post("/reset", sessionHandler.Reset)
				r.Post("/upload", uploadHandler.Upload)
				r.Post("/chat", chatHandler.Ask)

				r.Route("/files", func(r chi.Router) {
					r.Get("/", filesHandler.List)
					r.Get("/{fileID}", filesHandler.Download)
				})
			})
		})
	})

	return r
}
