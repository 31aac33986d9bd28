package session

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/spigell/hh-interviewer/internal/logger"
)

const (
	DefaultListen          = ":8080"
	DefaultReadLimit       = 1 << 20
	DefaultShutdownTimeout = 10 * time.Second
)

type ServerConfig struct {
	Listen          string        `mapstructure:"listen"`
	ReadLimit       int64         `mapstructure:"read-limit"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown-timeout"`
}

func (c ServerConfig) WithDefaults() ServerConfig {
	if c.Listen == "" {
		c.Listen = DefaultListen
	}
	if c.ReadLimit <= 0 {
		c.ReadLimit = DefaultReadLimit
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = DefaultShutdownTimeout
	}
	return c
}

// Server exposes interview sessions over websocket.
type Server struct {
	cfg         ServerConfig
	coordinator *Coordinator
	router      *mux.Router
	upgrader    websocket.Upgrader
	logger      *zap.Logger
}

func NewServer(cfg ServerConfig, coordinator *Coordinator, log *zap.Logger) *Server {
	s := &Server{
		cfg:         cfg.WithDefaults(),
		coordinator: coordinator,
		router:      mux.NewRouter(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		logger: logger.WithFields(log),
	}

	s.router.Use(s.logRequests)
	s.router.HandleFunc("/ws/interview/{user}", s.handleInterview).Methods(http.MethodGet)
	s.router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)

	return s
}

func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe serves until ctx is done and then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server is listening", zap.String("listen", s.cfg.Listen))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	s.logger.Info("shutting down server")
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) handleInterview(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["user"]
	connID := uuid.NewString()
	gate := s.coordinator.Gate()
	log := s.logger.With(logger.SessionFields(userID, connID)...)

	if err := gate.Admit(connID, userID); err != nil {
		log.Info("connection rejected", zap.Error(err))
		status := http.StatusConflict
		if errors.Is(err, ErrValidation) {
			status = http.StatusBadRequest
		}
		http.Error(w, err.Error(), status)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		gate.Disconnect(connID, userID)
		log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	conn.SetReadLimit(s.cfg.ReadLimit)

	if err := s.coordinator.Serve(r.Context(), conn, connID, userID); err != nil {
		log.Info("connection closed", zap.Error(err))
		return
	}
	log.Info("connection closed")
}

type healthResponse struct {
	Status        string `json:"status"`
	ActiveSession bool   `json:"active_session"`
	Connections   int    `json:"connections"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	gate := s.coordinator.Gate()
	_, active := gate.ActiveUser()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(healthResponse{
		Status:        "ok",
		ActiveSession: active,
		Connections:   gate.Connections(),
	})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("elapsed", time.Since(start)),
		)
	})
}
