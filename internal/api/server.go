package api

import (
	"context"
	"log"
	"net/http"
	"time"

	"sparkfx/internal/chat"
	"sparkfx/internal/config"

	"github.com/go-chi/chi/v5"
)

// Server is the HTTP API server with WebSocket support.
// It combines the HTTP router with the WebSocket hub for live stats.
type Server struct {
	engine      EngineInterface
	router      *chi.Mux
	wsHub       *WebSocketHub
	rateLimiter *IPRateLimiter
	httpServer  *http.Server
}

// NewServer creates a new API server from the server configuration.
//
// IMPORTANT: Background workers do NOT start until Start() is called.
// This enables testing by allowing the server to be constructed without
// starting goroutines or opening network listeners.
func NewServer(e EngineInterface, cfg config.ServerConfig) *Server {
	chatHandler := chat.NewHandler(e, chat.DefaultRateLimitConfig)
	s := &Server{
		engine:      e,
		wsHub:       NewWebSocketHub(e, NewOriginChecker(cfg.AllowedOrigins), chatHandler),
		rateLimiter: NewIPRateLimiter(RateLimitConfigFrom(cfg)),
	}

	s.router = NewRouter(RouterConfig{
		Engine:      e,
		RateLimiter: s.rateLimiter,
		CORSOrigins: cfg.AllowedOrigins,
		Token:       cfg.APIToken,
		Chat:        chatHandler,
	})

	// WebSocket route needs the hub instance, so it can't be part of the
	// generic NewRouter factory.
	s.router.Get("/ws", s.wsHub.HandleWebSocket)

	return s
}

// Start begins the HTTP server AND starts background workers.
// It blocks until the server stops; http.ErrServerClosed means Shutdown.
func (s *Server) Start(addr string) error {
	go s.wsHub.Run()
	s.wsHub.StartBroadcastLoop()

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	log.Printf("🌐 API server starting on %s", addr)
	log.Printf("🎆 Spawn: curl -X POST http://localhost%s/api/effects/explosion", addr)

	return s.httpServer.ListenAndServe()
}

// Router returns the HTTP handler for use with httptest.
func (s *Server) Router() http.Handler {
	return s.router
}

// Hub returns the WebSocket hub.
func (s *Server) Hub() *WebSocketHub {
	return s.wsHub
}

// Stop performs graceful shutdown of the listener and background workers.
func (s *Server) Stop(ctx context.Context) error {
	s.wsHub.Stop()
	s.rateLimiter.Stop()
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
