package gateway

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
)

// Service is the raffle gateway: the operator API plus the WebSocket event stream.
type Service struct {
	connectionManager *ConnectionManager
	wsHandler         *WebSocketHandler
	apiHandler        *APIHandler
	corsOrigins       []string
}

// Config holds configuration for the gateway service
type Config struct {
	ConnectionConfig ConnectionConfig
	DefaultInterval  time.Duration
	AllowedOrigins   []string
}

// DefaultConfig returns default configuration for the gateway
func DefaultConfig() Config {
	return Config{
		ConnectionConfig: DefaultConnectionConfig(),
		DefaultInterval:  8 * time.Second,
		AllowedOrigins:   []string{"*"},
	}
}

// NewService creates a new gateway service
func NewService(config Config, app Controller) *Service {
	connectionManager := NewConnectionManager(config.ConnectionConfig)
	return &Service{
		connectionManager: connectionManager,
		wsHandler:         NewWebSocketHandler(connectionManager),
		apiHandler:        NewAPIHandler(app, config.DefaultInterval),
		corsOrigins:       config.AllowedOrigins,
	}
}

// Sink returns the event sink that feeds WebSocket clients.
func (s *Service) Sink() *ConnectionManager {
	return s.connectionManager
}

// Start runs the connection manager until ctx is cancelled.
func (s *Service) Start(ctx context.Context) error {
	log.Info().Msg("starting raffle gateway service")
	s.connectionManager.Start(ctx)
	log.Info().Msg("raffle gateway service stopped")
	return nil
}

// RegisterRoutes registers the API, WebSocket and health routes
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	s.apiHandler.RegisterRoutes(mux)
	s.wsHandler.RegisterRoutes(mux)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	log.Info().Msg("raffle gateway routes registered")
}

// Handler returns the routes wrapped in CORS handling.
func (s *Service) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)

	c := cors.New(cors.Options{
		AllowedOrigins: s.corsOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization", "X-Requested-With"},
		MaxAge:         86400,
	})
	return c.Handler(mux)
}
