package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/nats-io/nats.go"

	"wanna/internal/config"
	"wanna/internal/domain/geo"
	"wanna/internal/domain/intent"
	"wanna/internal/domain/pod"
	"wanna/internal/server/handlers"
	"wanna/internal/service/matching"
)

// Server represents the HTTP server
type Server struct {
	server *http.Server
	router *chi.Mux
}

// NewServer creates a new HTTP server
func NewServer(
	cfg config.ServerConfig,
	intents intent.Store,
	pods pod.Store,
	geoIndex geo.Index,
	scheduler *matching.Scheduler,
	natsConn *nats.Conn,
	intentExpiry time.Duration,
) *Server {
	router := chi.NewRouter()

	// Middleware
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	// CORS configuration
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CorsOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Create handler dependencies
	intentHandler := handlers.NewIntentHandler(intents, geoIndex, scheduler, intentExpiry)
	podHandler := handlers.NewPodHandler(pods)

	// Routes
	router.Route("/api", func(r chi.Router) {
		// Health check
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("OK"))
		})

		// API version
		r.Route("/v1", func(r chi.Router) {
			// Intents API
			r.Route("/intents", func(r chi.Router) {
				r.Post("/", intentHandler.CreateIntent)
				r.Get("/{id}", intentHandler.GetIntent)
				r.Post("/{id}/cancel", intentHandler.CancelIntent)
			})

			// Pods API
			r.Route("/pods", func(r chi.Router) {
				r.Get("/{id}", podHandler.GetPod)
				r.Post("/{id}/arrive", podHandler.ConfirmArrival)
			})
		})
	})

	// WebSocket endpoint for real-time pod notifications
	router.Get("/ws/users/{id}", handlers.UserPodStreamHandler(natsConn))

	// Create HTTP server
	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return &Server{
		server: httpServer,
		router: router,
	}
}

// ListenAndServe starts the HTTP server
func (s *Server) ListenAndServe() error {
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
