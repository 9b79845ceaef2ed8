package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/FACorreiaa/go-travel-planner/internal/pkg/config"
	"github.com/FACorreiaa/go-travel-planner/internal/pkg/llm"
)

// Server holds the dependencies for the HTTP server
type Server struct {
	cfg    *config.Config
	logger *zap.Logger
	model  llm.Model
	router http.Handler
}

// New creates a new Server instance with all dependencies
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Server, error) {
	s := &Server{
		cfg:    cfg,
		logger: logger,
	}

	model, err := llm.New(ctx, llm.Config{
		Provider:     cfg.LLM.Provider,
		OpenAIAPIKey: cfg.LLM.OpenAIAPIKey,
		OpenAIModel:  cfg.LLM.OpenAIModel,
		GeminiAPIKey: cfg.LLM.GeminiAPIKey,
		GeminiModel:  cfg.LLM.GeminiModel,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to setup language model: %w", err)
	}
	s.model = model

	logger.Info("Language model configured",
		zap.String("provider", model.Provider()),
		zap.String("model", model.ModelName()))
	return s, nil
}

// HTTPServer creates and configures the HTTP server. The write timeout
// leaves room for a full orchestration.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:              ":" + s.cfg.ServerPort,
		Handler:           s.router,
		IdleTimeout:       time.Minute,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      s.cfg.Orchestrator.Timeout + 30*time.Second,
	}
}

// SetRouter sets the HTTP router/handler
func (s *Server) SetRouter(router http.Handler) {
	s.router = router
}

// Model returns the configured language model
func (s *Server) Model() llm.Model {
	return s.model
}

// GetLogger returns the logger instance
func (s *Server) GetLogger() *zap.Logger {
	return s.logger
}

// GetConfig returns the configuration
func (s *Server) GetConfig() *config.Config {
	return s.cfg
}
