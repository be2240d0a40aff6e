package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-redis/redis/v8"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/gravitas-games/hexrange/internal/config"
	"github.com/gravitas-games/hexrange/internal/store"
	"github.com/gravitas-games/hexrange/pkg/hex"
	"github.com/gravitas-games/hexrange/pkg/logger"
)

// Server serves renders and hex queries over HTTP and websocket
type Server struct {
	config   *config.Config
	geom     hex.Geometry
	router   chi.Router
	upgrader websocket.Upgrader
	httpSrv  *http.Server

	jwtValidator *JWTValidator // nil when auth is disabled
	cache        Cache         // nil when caching is disabled
	history      *store.Store  // nil when history is disabled

	// Connection tracking
	connections map[*Connection]bool
	connMu      sync.RWMutex

	// Shutdown
	ctx    context.Context
	cancel context.CancelFunc
}

// Option customises a Server
type Option func(*Server)

// WithCache replaces the cache built from configuration
func WithCache(c Cache) Option {
	return func(s *Server) { s.cache = c }
}

// WithHistory replaces the history store opened from configuration
func WithHistory(h *store.Store) Option {
	return func(s *Server) { s.history = h }
}

// New creates a server. Redis and the history database are connected only
// when configured and not supplied through options.
func New(cfg *config.Config, opts ...Option) (*Server, error) {
	logger.Log.Info("Initializing server...")

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	geom, err := cfg.Geometry()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	srv := &Server{
		config:      cfg,
		geom:        geom,
		connections: make(map[*Connection]bool),
		ctx:         ctx,
		cancel:      cancel,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Echoed back when a browser passes its token as "access_token, <t>"
			Subprotocols: []string{"access_token"},
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
	for _, opt := range opts {
		opt(srv)
	}

	if srv.cache == nil && cfg.Redis.Address != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			cancel()
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		srv.cache = NewRedisCache(redisClient, cfg.Redis.Prefix, time.Duration(cfg.Redis.TTLSeconds)*time.Second)
		logger.Log.WithField("address", cfg.Redis.Address).Info("Connected to Redis")
	}

	if srv.history == nil && cfg.Database.Path != "" {
		history, err := store.Open(cfg.Database.Path)
		if err != nil {
			cancel()
			return nil, fmt.Errorf("failed to open render history: %w", err)
		}
		srv.history = history
	}

	if cfg.JWT.Secret != "" {
		srv.jwtValidator = NewJWTValidator(cfg.JWT.Secret, cfg.JWT.Issuer)
	}

	srv.router = srv.routes()
	logger.Log.Info("Server initialized successfully")
	return srv, nil
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Get("/ws", s.handleWebSocket)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(time.Duration(s.config.Server.TimeoutSeconds) * time.Second))
		r.Use(s.requireAuth)
		r.Get("/render", s.handleRender)
		r.Get("/hexes", s.handleHexes)
		r.Get("/ring", s.handleRing)
		r.Get("/history", s.handleHistory)
		r.Get("/history/{id}", s.handleHistoryRecord)
	})
	return r
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler { return s.router }

// Start begins listening for connections
func (s *Server) Start(addr string) error {
	s.httpSrv = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	logger.Log.Infof("Render endpoint: http://%s/render", addr)
	logger.Log.Infof("WebSocket endpoint: ws://%s/ws", addr)

	if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown() error {
	logger.Log.Info("Shutting down server...")

	// Cancel context to signal shutdown
	s.cancel()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if s.httpSrv != nil {
		if err := s.httpSrv.Shutdown(ctx); err != nil {
			logger.Log.WithError(err).Warn("HTTP server shutdown error")
		}
	}

	// Close all WebSocket connections
	s.connMu.Lock()
	for conn := range s.connections {
		conn.Close()
	}
	s.connMu.Unlock()

	if s.cache != nil {
		if err := s.cache.Close(); err != nil {
			logger.Log.WithError(err).Warn("Cache close error")
		}
	}
	if s.history != nil {
		if err := s.history.Close(); err != nil {
			logger.Log.WithError(err).Warn("History close error")
		}
	}

	logger.Log.Info("Server shutdown complete")
	return nil
}

// handleWebSocket upgrades authenticated requests to a query stream
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	client, err := s.authenticate(r)
	if err != nil {
		logger.Log.WithError(err).WithField("remote", r.RemoteAddr).Warn("WebSocket auth failed")
		writeError(w, http.StatusUnauthorized, "unauthorized", err.Error())
		return
	}

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.WithError(err).Warn("WebSocket upgrade failed")
		return
	}

	conn := NewConnection(ws, s, client)

	s.connMu.Lock()
	s.connections[conn] = true
	s.connMu.Unlock()

	logger.Log.WithFields(logrus.Fields{
		"client":        client.Username,
		"authenticated": !client.IsAnonymous(),
		"remote":        r.RemoteAddr,
	}).Info("WebSocket connection established")

	// Handle connection (blocking)
	conn.Handle()

	s.connMu.Lock()
	delete(s.connections, conn)
	s.connMu.Unlock()

	logger.Log.WithFields(logrus.Fields{
		"client":   client.Username,
		"duration": time.Since(client.ConnectedAt).Round(time.Second),
	}).Info("WebSocket connection closed")
}

// ConnectionCount returns the number of open websocket connections
func (s *Server) ConnectionCount() int {
	s.connMu.RLock()
	defer s.connMu.RUnlock()
	return len(s.connections)
}
