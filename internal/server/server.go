// Package server exposes the review operations over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/markerlab/markerlab/internal/derive"
	"github.com/markerlab/markerlab/internal/dispatcher"
	"github.com/markerlab/markerlab/internal/review"
	"github.com/markerlab/markerlab/internal/worker"
	"github.com/markerlab/markerlab/pkg/core"
)

// Service is the part of worker.Manager the HTTP API calls.
type Service interface {
	SceneSwimlanes(ctx context.Context, sceneID string, view *worker.View) (worker.Swimlanes, error)
	ShotBoundaries(ctx context.Context, sceneID string) ([]core.ShotBoundary, error)
	AddShotBoundary(ctx context.Context, sceneID string, t float64, duration *float64) (worker.ShotResult, error)
	RemoveShotBoundary(ctx context.Context, sceneID string, t float64, duration *float64) (worker.ShotResult, error)
	AnalyzeScene(ctx context.Context, sceneID string) (derive.Analysis, error)
	MaterializeScene(ctx context.Context, sceneID string) (worker.MaterializeResult, error)
	SuggestSlots(ctx context.Context, sceneID, markerID string) (worker.SlotSuggestions, error)
	AssignSlots(ctx context.Context, sceneID, markerID string, assignments []core.SlotAssignment) error
	ApplyReview(ctx context.Context, sceneID, selectedID string, cmd review.Command) (worker.ReviewResult, error)
	DerivationRules(ctx context.Context) ([]core.DerivedMarkerConfig, error)
	SaveDerivationRule(ctx context.Context, rule *core.DerivedMarkerConfig) error
	DeleteDerivationRule(ctx context.Context, id string) error
	SlotDefinitionSet(ctx context.Context, tagID string) (core.SlotDefinitionSet, error)
	SaveSlotDefinitionSet(ctx context.Context, set *core.SlotDefinitionSet) error
}

type Config struct {
	Addr    string
	Service Service
	// Dispatcher and Keys serve the keyboard endpoint; both are optional.
	Dispatcher *dispatcher.Dispatcher
	Keys       dispatcher.KeyBindings
	// Health checks upstream dependencies such as Stash.
	Health    func(ctx context.Context) error
	Logger    *slog.Logger
	StartTime time.Time
}

type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

func New(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.StartTime.IsZero() {
		cfg.StartTime = time.Now()
	}
	return &Server{
		httpServer: &http.Server{
			Addr:              cfg.Addr,
			Handler:           NewRouter(cfg),
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      60 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		logger: cfg.Logger,
	}
}

// Start blocks until the server stops. A graceful Shutdown is not an error.
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", "addr", s.httpServer.Addr)
	err := s.httpServer.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) Addr() string {
	return s.httpServer.Addr
}
