package worker

import (
	"context"
	"fmt"

	"github.com/markerlab/markerlab/internal/influx"
	"github.com/markerlab/markerlab/internal/review"
	"github.com/markerlab/markerlab/internal/stash"
)

// ReviewResult is the outcome of one review command.
type ReviewResult struct {
	SelectedID string          `json:"selectedId"`
	Effects    []review.Effect `json:"effects"`
}

// ApplyReview runs cmd against the scene and writes the resulting effects to
// Stash in order. Created markers come back with their Stash ids.
func (m *Manager) ApplyReview(ctx context.Context, sceneID, selectedID string, cmd review.Command) (ReviewResult, error) {
	scene, err := m.loadScene(ctx, sceneID)
	if err != nil {
		return ReviewResult{}, err
	}

	state := review.State{
		Markers:             scene.Markers,
		SelectedID:          selectedID,
		Status:              m.status(),
		MarkerGroupParentID: m.deps.Config.Tags.MarkerGroupParent,
		Grouping:            m.groupingOptions(),
	}
	next, effects, err := review.Apply(state, cmd)
	if err != nil {
		return ReviewResult{}, err
	}

	for i, e := range effects {
		switch e.Kind {
		case review.EffectUpdate:
			if _, err := m.deps.Stash.UpdateSceneMarker(ctx, e.Marker.ID, stash.InputFromMarker(e.Marker)); err != nil {
				return ReviewResult{}, err
			}
		case review.EffectCreate:
			created, err := m.deps.Stash.CreateSceneMarker(ctx, stash.InputFromMarker(e.Marker))
			if err != nil {
				return ReviewResult{}, err
			}
			if len(e.Marker.Slots) > 0 {
				if err := m.deps.Backend.SetMarkerSlots(ctx, created.ID, e.Marker.Slots); err != nil {
					return ReviewResult{}, err
				}
			}
			effects[i].Marker.ID = created.ID
		case review.EffectDelete:
			if err := m.deps.Stash.DestroySceneMarker(ctx, e.Marker.ID); err != nil {
				return ReviewResult{}, err
			}
			if err := m.deps.Backend.SetMarkerSlots(ctx, e.Marker.ID, nil); err != nil {
				return ReviewResult{}, err
			}
		default:
			return ReviewResult{}, fmt.Errorf("unknown effect kind: %s", e.Kind)
		}
	}

	if len(effects) > 0 {
		m.record(ctx, influx.Activity{
			Kind:    "review",
			SceneID: sceneID,
			Tags:    map[string]string{"command": string(cmd.Kind)},
			Fields:  map[string]any{"effects": len(effects)},
		})
	}
	return ReviewResult{SelectedID: next.SelectedID, Effects: effects}, nil
}
