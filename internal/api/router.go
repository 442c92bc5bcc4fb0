package api

import (
	"context"
	"net/http"

	"sparkfx/internal/chat"
	"sparkfx/internal/effects"
	"sparkfx/internal/engine"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// EngineInterface defines the engine methods used by the API.
// This interface enables mocking for tests without spinning up the loop.
// Keep this minimal - only include methods the API layer actually calls.
type EngineInterface interface {
	// Config returns the canvas size and tick rate
	Config() engine.Config
	// Stats returns the live particle counters
	Stats() effects.Stats
	// EffectNames lists the spawnable effects
	EffectNames() []string
	// Emitters lists the running emitters
	Emitters() []effects.Emitter
	// Latest returns a copy of the last composed frame (nil before the first tick)
	Latest() *engine.Frame
	// Enqueue queues a command without waiting
	Enqueue(cmd engine.Command) error
	// Do queues a command and waits for the tick that applies it
	Do(ctx context.Context, cmd engine.Command) (engine.Result, error)
}

// RouterConfig contains all dependencies needed to construct the HTTP router.
// This struct is designed for dependency injection and testability.
//
// Example usage in tests:
//
//	cfg := api.RouterConfig{
//	    Engine: mockEngine,
//	    RateLimitConfig: &api.RateLimitConfig{
//	        RequestsPerSecond: 1000, // High limit for tests
//	        Burst:             1000,
//	    },
//	}
//	router := api.NewRouter(cfg)
//	ts := httptest.NewServer(router)
type RouterConfig struct {
	// Engine is the particle engine (required)
	Engine EngineInterface

	// RateLimiter is an optional pre-configured rate limiter for spawn routes.
	// If nil, a new one will be created using RateLimitConfig.
	RateLimiter *IPRateLimiter

	// RateLimitConfig is optional configuration for the rate limiter.
	// Only used if RateLimiter is nil. If both are nil, uses DefaultRateLimitConfig.
	RateLimitConfig *RateLimitConfig

	// CORSOrigins is an optional list of allowed CORS origins.
	// If nil, only localhost origins are allowed.
	CORSOrigins []string

	// Token guards the mutating routes. Empty disables the check.
	Token string

	// Chat handles POST /api/chat. If nil, one with
	// chat.DefaultRateLimitConfig is created.
	Chat *chat.Handler

	// DisableLogging disables the request logger middleware (useful for benchmarks).
	DisableLogging bool
}

// routerHandlers holds the handler functions for the router.
type routerHandlers struct {
	engine EngineInterface
	chat   *chat.Handler
}

// NewRouter constructs the HTTP router with all middleware and routes.
//
// IMPORTANT: This function is PURE - it has no side effects beyond the rate
// limiter's cleanup goroutine when none is supplied:
//   - No network listeners are opened
//   - The engine loop is not started
//
// This makes it safe to use in tests with httptest.NewServer.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Middleware - Order matters!
	if !cfg.DisableLogging {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)
	r.Use(metricsMiddleware)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins(cfg.CORSOrigins),
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: false,
	}))

	rateLimiter := cfg.RateLimiter
	if rateLimiter == nil {
		rateLimitCfg := DefaultRateLimitConfig
		if cfg.RateLimitConfig != nil {
			rateLimitCfg = *cfg.RateLimitConfig
		}
		rateLimiter = NewIPRateLimiter(rateLimitCfg)
	}

	chatHandler := cfg.Chat
	if chatHandler == nil {
		chatHandler = chat.NewHandler(cfg.Engine, chat.DefaultRateLimitConfig)
	}

	h := &routerHandlers{engine: cfg.Engine, chat: chatHandler}

	r.Route("/api", func(r chi.Router) {
		// Read-only
		r.Get("/stats", h.handleGetStats)
		r.Get("/effects", h.handleGetEffects)
		r.Get("/emitters", h.handleGetEmitters)
		r.Get("/frame.png", h.handleGetFrame)

		// Mutating routes are rate limited and optionally token guarded
		r.Group(func(r chi.Router) {
			r.Use(rateLimiter.Middleware)
			r.Use(TokenMiddleware(cfg.Token))

			r.Post("/effects/{name}", h.handleSpawnEffect)
			r.Post("/emitters/{name}", h.handleStartEmitter)
			r.Delete("/emitters/{id}", h.handleStopEmitter)
			r.Post("/chat", h.handleChat)
		})
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]string{"status": "ok"})
	})

	return r
}

func corsOrigins(origins []string) []string {
	if origins != nil {
		return origins
	}
	return []string{
		"http://localhost:*",
		"http://127.0.0.1:*",
	}
}
