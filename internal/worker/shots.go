package worker

import (
	"context"
	"fmt"
	"math"

	"github.com/markerlab/markerlab/internal/influx"
	"github.com/markerlab/markerlab/internal/shotboundary"
	"github.com/markerlab/markerlab/pkg/core"
)

// ShotResult is a plan together with the state it produced.
type ShotResult struct {
	Plan       shotboundary.Plan   `json:"plan"`
	CreatedIDs []string            `json:"createdIds"`
	Boundaries []core.ShotBoundary `json:"boundaries"`
}

func (m *Manager) ShotBoundaries(ctx context.Context, sceneID string) ([]core.ShotBoundary, error) {
	return m.deps.Backend.ShotBoundaries(ctx, sceneID)
}

// AddShotBoundary plans and applies a cut at t. When duration is nil the scene
// duration is read from Stash.
func (m *Manager) AddShotBoundary(ctx context.Context, sceneID string, t float64, duration *float64) (ShotResult, error) {
	return m.applyShotPlan(ctx, sceneID, t, duration, "shot_add", m.planner.Add)
}

// RemoveShotBoundary plans and applies removal of the boundary at t.
func (m *Manager) RemoveShotBoundary(ctx context.Context, sceneID string, t float64, duration *float64) (ShotResult, error) {
	return m.applyShotPlan(ctx, sceneID, t, duration, "shot_remove", m.planner.Remove)
}

type planFunc func(boundaries []core.ShotBoundary, t float64, videoDuration *float64) (shotboundary.Plan, error)

func (m *Manager) applyShotPlan(ctx context.Context, sceneID string, t float64, duration *float64, kind string, plan planFunc) (ShotResult, error) {
	if err := validPlayhead(t, duration); err != nil {
		return ShotResult{}, err
	}
	boundaries, err := m.deps.Backend.ShotBoundaries(ctx, sceneID)
	if err != nil {
		return ShotResult{}, err
	}
	if duration == nil {
		duration = m.sceneDuration(ctx, sceneID)
	}

	p, err := plan(boundaries, t, duration)
	if err != nil {
		return ShotResult{}, err
	}
	for _, line := range p.Log {
		m.logger().DebugContext(ctx, line, "scene", sceneID, "outcome", p.Outcome)
	}

	ids, err := m.deps.Backend.ApplyShotBoundaryActions(ctx, sceneID, p.Actions)
	if err != nil {
		return ShotResult{}, fmt.Errorf("failed to apply %s plan: %w", p.Outcome, err)
	}
	after, err := m.deps.Backend.ShotBoundaries(ctx, sceneID)
	if err != nil {
		return ShotResult{}, err
	}

	m.record(ctx, influx.Activity{
		Kind:    kind,
		SceneID: sceneID,
		Tags:    map[string]string{"outcome": string(p.Outcome)},
		Fields:  map[string]any{"actions": len(p.Actions), "time": t},
	})
	return ShotResult{Plan: p, CreatedIDs: ids, Boundaries: after}, nil
}

// validPlayhead keeps boundaries inside [0, duration).
func validPlayhead(t float64, duration *float64) error {
	if t < 0 || math.IsNaN(t) || math.IsInf(t, 0) {
		return fmt.Errorf("playhead %v: %w", t, ErrInvalidArgument)
	}
	if duration != nil && (*duration <= 0 || math.IsNaN(*duration) || math.IsInf(*duration, 0)) {
		return fmt.Errorf("video duration %v: %w", *duration, ErrInvalidArgument)
	}
	return nil
}

// sceneDuration returns nil when Stash is unavailable or has no duration; the
// planner then falls back to its default window.
func (m *Manager) sceneDuration(ctx context.Context, sceneID string) *float64 {
	if m.deps.Stash == nil {
		return nil
	}
	scene, err := m.deps.Stash.FindScene(ctx, sceneID)
	if err != nil {
		m.logger().WarnContext(ctx, "scene duration unavailable", "scene", sceneID, "error", err)
		return nil
	}
	return scene.Duration
}
