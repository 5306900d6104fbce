package convert

import (
	"encoding/json"

	"gorm.io/datatypes"

	"github.com/markerlab/markerlab/internal/model"
	"github.com/markerlab/markerlab/pkg/core"
)

// toJSON marshals v, falling back to an empty JSON array.
func toJSON(v any) datatypes.JSON {
	data, err := json.Marshal(v)
	if err != nil || string(data) == "null" {
		return datatypes.JSON("[]")
	}
	return datatypes.JSON(data)
}

// CoreToShotBoundary converts a core.ShotBoundary to a GORM model.ShotBoundary.
func CoreToShotBoundary(b core.ShotBoundary) model.ShotBoundary {
	out := model.ShotBoundary{
		ID:        b.ID,
		SceneID:   b.SceneID,
		StartTime: b.StartTime,
		Source:    string(b.Source),
	}
	if out.Source == "" {
		out.Source = string(core.SourceManual)
	}
	if b.EndTime != nil {
		out.EndTime = core.Float(*b.EndTime)
	}
	return out
}

// CoreToDerivedMarkerConfig converts a rule, storing slot mappings as JSON.
func CoreToDerivedMarkerConfig(c core.DerivedMarkerConfig) model.DerivedMarkerConfig {
	rel := c.RelationshipType
	if rel == "" {
		rel = core.RelationshipImplies
	}
	return model.DerivedMarkerConfig{
		ID:               c.ID,
		SourceTagID:      c.SourceTagID,
		DerivedTagID:     c.DerivedTagID,
		RelationshipType: rel,
		SlotMappings:     toJSON(c.SlotMappings),
	}
}

// CoreToMarkerDerivation converts a materialization record.
func CoreToMarkerDerivation(d core.MaterializedDerivation) model.MarkerDerivation {
	return model.MarkerDerivation{
		ID:              d.ID,
		SourceMarkerID:  d.SourceMarkerID,
		DerivedMarkerID: d.DerivedMarkerID,
		RuleID:          d.RuleID,
		Depth:           d.Depth,
	}
}

// CoreToSlotDefinitionSet converts a set and its slots. Each slot gets the
// set's id and tag id, and its position as DisplayOrder when Order is unset.
func CoreToSlotDefinitionSet(s core.SlotDefinitionSet) model.SlotDefinitionSet {
	out := model.SlotDefinitionSet{
		ID:                                s.ID,
		TagID:                             s.TagID,
		AllowSamePerformerInMultipleSlots: s.AllowSamePerformerInMultipleSlots,
		Slots:                             make([]model.SlotDefinition, len(s.Slots)),
	}
	for i, d := range s.Slots {
		hints := make([]string, len(d.GenderHints))
		for j, g := range d.GenderHints {
			hints[j] = string(g)
		}
		order := d.Order
		if order == 0 {
			order = i
		}
		out.Slots[i] = model.SlotDefinition{
			ID:           d.ID,
			SetID:        s.ID,
			TagID:        s.TagID,
			Label:        d.Label,
			GenderHints:  toJSON(hints),
			DisplayOrder: order,
		}
	}
	return out
}

// CoreToMarkerSlots converts a marker's slot list to rows in list order.
func CoreToMarkerSlots(markerID string, slots []core.SlotAssignment) []model.MarkerSlot {
	out := make([]model.MarkerSlot, len(slots))
	for i, s := range slots {
		out[i] = model.MarkerSlot{
			MarkerID:         markerID,
			SlotDefinitionID: s.SlotDefinitionID,
			PerformerID:      s.PerformerID,
			Position:         i,
		}
	}
	return out
}
