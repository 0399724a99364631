package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/mhartmann/optima-api/internal/api/handler"
	custommiddleware "github.com/mhartmann/optima-api/internal/api/middleware"
	"github.com/mhartmann/optima-api/internal/config"
	"github.com/mhartmann/optima-api/internal/llm"
	"github.com/mhartmann/optima-api/internal/llm/gemini"
	"github.com/mhartmann/optima-api/internal/llm/ollama"
	"github.com/mhartmann/optima-api/internal/llm/openai"
	"github.com/mhartmann/optima-api/internal/ratelimit"
	"github.com/mhartmann/optima-api/internal/repository/postgres"
	"github.com/mhartmann/optima-api/internal/repository/redis"
	"github.com/mhartmann/optima-api/internal/security"
	"github.com/mhartmann/optima-api/internal/service"
	"github.com/rs/zerolog/log"
)

// NewRouter creates and configures the HTTP router
func NewRouter(cfg *config.Config, db *postgres.DB, redisClient *redis.Client) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(custommiddleware.Logger)
	r.Use(chimiddleware.Recoverer)

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	jwtManager := security.NewJWTManager(
		cfg.Auth.JWTSecret,
		cfg.Auth.AccessTokenTTL,
		cfg.Auth.RefreshTokenTTL,
	)

	// Repositories
	userRepo := postgres.NewUserRepository(db)
	categoryRepo := postgres.NewCategoryRepository(db)
	sessionRepo := postgres.NewSessionRepository(db)
	messageRepo := postgres.NewMessageRepository(db)

	var categoryCache *redis.CategoryCache
	if redisClient != nil {
		categoryCache = redis.NewCategoryCache(redisClient)
	}

	// Admission gates: a coarse one on all chat routes, a strict one checked
	// inside the message flow before any state change
	chatGate := ratelimit.New(cfg.RateLimit.Requests, cfg.RateLimit.Window)
	genGate := ratelimit.New(cfg.RateLimit.GenerationRequests, cfg.RateLimit.GenerationWindow)

	// Generation providers
	llmRouter := llm.NewRouter(cfg.LLM.DefaultProvider)

	log.Info().Msgf("Initializing generation providers. Default: %s", cfg.LLM.DefaultProvider)

	if cfg.LLM.OpenAI.APIKey != "" {
		llmRouter.RegisterProvider(openai.NewProvider(cfg.LLM.OpenAI.APIKey, cfg.LLM.OpenAI.Model))
	}
	if cfg.LLM.Gemini.APIKey != "" {
		llmRouter.RegisterProvider(gemini.NewProvider(cfg.LLM.Gemini.APIKey, cfg.LLM.Gemini.Model))
	}
	if cfg.LLM.Ollama.Host != "" {
		log.Info().Str("host", cfg.LLM.Ollama.Host).Msg("Registering Ollama provider")
		llmRouter.RegisterProvider(ollama.NewProvider(cfg.LLM.Ollama.Host, cfg.LLM.Ollama.DefaultModel))
	}

	// Services
	authService := service.NewAuthService(userRepo, jwtManager)
	categoryService := service.NewCategoryService(categoryRepo, categoryCache)
	chatService := service.NewChatService(
		sessionRepo,
		messageRepo,
		userRepo,
		categoryService,
		authService,
		llmRouter,
		genGate,
		cfg.Chat,
	)

	// Handlers
	authHandler := handler.NewAuthHandler(authService)
	categoryHandler := handler.NewCategoryHandler(categoryService)
	chatHandler := handler.NewChatHandler(chatService)

	authMiddleware := custommiddleware.NewAuthMiddleware(jwtManager)
	rateLimitMiddleware := custommiddleware.NewRateLimitMiddleware(chatGate)

	r.Route("/api/v1", func(r chi.Router) {
		// Health check
		r.Get("/health", handler.HealthCheck)
		r.Get("/ready", handler.ReadyCheck(db))

		// Auth routes (public)
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.Post("/refresh", authHandler.Refresh)

			r.Group(func(r chi.Router) {
				r.Use(authMiddleware.Authenticate)
				r.Get("/profile", authHandler.Profile)
				r.Put("/profile", authHandler.UpdateProfile)
			})
		})

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)
			r.Use(rateLimitMiddleware.Limit)

			r.Get("/providers", handler.ListProviders(llmRouter))

			r.Route("/categories", func(r chi.Router) {
				r.Get("/", categoryHandler.List)
				r.Get("/{slug}", categoryHandler.Get)
			})

			r.Route("/chat", func(r chi.Router) {
				r.Route("/sessions", func(r chi.Router) {
					r.Get("/", chatHandler.ListSessions)
					r.Post("/", chatHandler.CreateSession)

					r.Route("/{sessionID}", func(r chi.Router) {
						r.Get("/", chatHandler.GetSession)
						r.Delete("/", chatHandler.DeleteSession)
					})
				})

				r.Post("/message", chatHandler.SendMessage)
			})
		})
	})

	return r
}
