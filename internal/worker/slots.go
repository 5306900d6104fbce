package worker

import (
	"context"
	"errors"
	"fmt"

	"github.com/markerlab/markerlab/internal/slot"
	"github.com/markerlab/markerlab/pkg/core"
)

// SlotSuggestions are the assignments offered for one marker.
type SlotSuggestions struct {
	MarkerID     string                       `json:"markerId"`
	Slots        []core.SlotDefinition        `json:"slots"`
	Current      []core.SlotAssignment        `json:"current"`
	Combinations []slot.AssignmentCombination `json:"combinations"`
}

// SuggestSlots enumerates performer assignments for the marker's primary tag.
// A tag without slot definitions yields no combinations.
func (m *Manager) SuggestSlots(ctx context.Context, sceneID, markerID string) (SlotSuggestions, error) {
	scene, err := m.loadScene(ctx, sceneID)
	if err != nil {
		return SlotSuggestions{}, err
	}
	marker, err := findMarker(scene.Markers, markerID)
	if err != nil {
		return SlotSuggestions{}, err
	}

	out := SlotSuggestions{MarkerID: markerID, Current: marker.Slots}
	set, err := m.deps.Backend.SlotDefinitionSet(ctx, marker.PrimaryTag.ID)
	if errors.Is(err, core.ErrNotFound) {
		return out, nil
	}
	if err != nil {
		return SlotSuggestions{}, err
	}

	performers, _ := m.deps.Performers.Get(sceneID)
	limit := m.deps.Config.MaxCombinations
	if limit == 0 {
		limit = slot.DefaultMaxCombinations
	}
	out.Slots = set.Slots
	out.Combinations = slot.GenerateAssignmentCombinations(
		set.Slots, performers, marker.Slots, set.AllowSamePerformerInMultipleSlots, slot.WithLimit(limit))
	return out, nil
}

// AssignSlots stores a marker's slot assignments. Every slot must belong to the
// set of the marker's primary tag.
func (m *Manager) AssignSlots(ctx context.Context, sceneID, markerID string, assignments []core.SlotAssignment) error {
	scene, err := m.loadScene(ctx, sceneID)
	if err != nil {
		return err
	}
	marker, err := findMarker(scene.Markers, markerID)
	if err != nil {
		return err
	}
	set, err := m.deps.Backend.SlotDefinitionSet(ctx, marker.PrimaryTag.ID)
	if err != nil {
		return err
	}
	known := make(map[string]bool, len(set.Slots))
	for _, s := range set.Slots {
		known[s.ID] = true
	}
	for _, a := range assignments {
		if !known[a.SlotDefinitionID] {
			return fmt.Errorf("slot %s is not defined for tag %s: %w", a.SlotDefinitionID, marker.PrimaryTag.ID, ErrInvalidArgument)
		}
	}
	return m.deps.Backend.SetMarkerSlots(ctx, markerID, assignments)
}

func (m *Manager) SlotDefinitionSet(ctx context.Context, tagID string) (core.SlotDefinitionSet, error) {
	return m.deps.Backend.SlotDefinitionSet(ctx, tagID)
}

func (m *Manager) SaveSlotDefinitionSet(ctx context.Context, set *core.SlotDefinitionSet) error {
	if set.TagID == "" {
		return fmt.Errorf("slot definition set needs a tag: %w", ErrInvalidArgument)
	}
	return m.deps.Backend.SaveSlotDefinitionSet(ctx, set)
}
