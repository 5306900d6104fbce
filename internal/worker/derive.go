package worker

import (
	"context"
	"fmt"

	"github.com/markerlab/markerlab/internal/derive"
	"github.com/markerlab/markerlab/internal/influx"
	"github.com/markerlab/markerlab/internal/stash"
	"github.com/markerlab/markerlab/pkg/core"
)

// MaterializeResult lists the markers written by MaterializeScene.
type MaterializeResult struct {
	Analysis derive.Analysis `json:"analysis"`
	Created  []core.Marker   `json:"created"`
}

// AnalyzeScene reports which markers of the scene have derivations left to write.
// Markers that were themselves produced by materialization are not sources.
func (m *Manager) AnalyzeScene(ctx context.Context, sceneID string) (derive.Analysis, error) {
	scene, err := m.loadScene(ctx, sceneID)
	if err != nil {
		return derive.Analysis{}, err
	}
	return m.analyze(ctx, scene.Markers)
}

func (m *Manager) analyze(ctx context.Context, markers []core.Marker) (derive.Analysis, error) {
	rules, err := m.deps.Backend.DerivationRules(ctx)
	if err != nil {
		return derive.Analysis{}, err
	}

	ids := make([]string, len(markers))
	for i, mk := range markers {
		ids[i] = mk.ID
	}
	derived, err := m.deps.Backend.DerivedMarkerIDs(ctx, ids)
	if err != nil {
		return derive.Analysis{}, err
	}
	sources := make([]core.Marker, 0, len(markers))
	for _, mk := range markers {
		if !derived[mk.ID] {
			sources = append(sources, mk)
		}
	}

	existing, err := m.deps.Backend.MaterializedRuleIDs(ctx, ids)
	if err != nil {
		return derive.Analysis{}, err
	}
	return derive.AnalyzeMaterializableMarkers(sources, rules, m.deps.Config.DeriveMaxDepth, existing, m.deps.Tags.Names()), nil
}

// MaterializeScene writes every pending derivation to Stash and records it, so a
// second run finds nothing left to do. It stops at the first failure; markers
// written before it stay recorded.
func (m *Manager) MaterializeScene(ctx context.Context, sceneID string) (MaterializeResult, error) {
	scene, err := m.loadScene(ctx, sceneID)
	if err != nil {
		return MaterializeResult{}, err
	}
	analysis, err := m.analyze(ctx, scene.Markers)
	if err != nil {
		return MaterializeResult{}, err
	}

	res := MaterializeResult{Analysis: analysis}
	names := m.deps.Tags.Names()
	defer func() {
		m.record(ctx, influx.Activity{
			Kind:    "materialize",
			SceneID: sceneID,
			Fields:  map[string]any{"created": len(res.Created), "skipped": len(analysis.Skipped)},
		})
	}()

	for _, mm := range analysis.Materializable {
		for _, d := range mm.NewDerivations {
			created, err := m.deps.Stash.CreateSceneMarker(ctx, stash.MarkerInput{
				SceneID:      sceneID,
				Title:        derive.TagName(names, d.TagID),
				Seconds:      mm.Marker.Seconds,
				EndSeconds:   mm.Marker.EndSeconds,
				PrimaryTagID: d.TagID,
			})
			if err != nil {
				return res, fmt.Errorf("failed to materialize %s for marker %s: %w", d.RuleID, mm.Marker.ID, err)
			}
			if len(d.Slots) > 0 {
				if err := m.deps.Backend.SetMarkerSlots(ctx, created.ID, d.Slots); err != nil {
					return res, err
				}
				created.Slots = d.Slots
			}
			if err := m.deps.Backend.RecordMaterialization(ctx, &core.MaterializedDerivation{
				SourceMarkerID:  d.SourceMarkerID,
				DerivedMarkerID: created.ID,
				RuleID:          d.RuleID,
				Depth:           d.Depth,
			}); err != nil {
				return res, err
			}
			res.Created = append(res.Created, created)
			m.logger().InfoContext(ctx, "materialized derived marker",
				"scene", sceneID, "source", mm.Marker.ID, "derived", created.ID, "rule", d.RuleID)
		}
	}
	return res, nil
}

func (m *Manager) DerivationRules(ctx context.Context) ([]core.DerivedMarkerConfig, error) {
	return m.deps.Backend.DerivationRules(ctx)
}

func (m *Manager) SaveDerivationRule(ctx context.Context, rule *core.DerivedMarkerConfig) error {
	if rule.SourceTagID == "" || rule.DerivedTagID == "" {
		return fmt.Errorf("derivation rule needs both tags: %w", ErrInvalidArgument)
	}
	if rule.SourceTagID == rule.DerivedTagID {
		return fmt.Errorf("derivation rule cannot derive a tag from itself: %w", ErrInvalidArgument)
	}
	return m.deps.Backend.SaveDerivationRule(ctx, rule)
}

func (m *Manager) DeleteDerivationRule(ctx context.Context, id string) error {
	return m.deps.Backend.DeleteDerivationRule(ctx, id)
}
