// Package convert provides functions to convert GORM models to core models
package convert

import (
	"encoding/json"
	"sort"

	"github.com/markerlab/markerlab/internal/model"
	"github.com/markerlab/markerlab/pkg/core"
)

// ShotBoundaryToCore converts a GORM ShotBoundary to a core.ShotBoundary.
func ShotBoundaryToCore(b model.ShotBoundary) core.ShotBoundary {
	out := core.ShotBoundary{
		ID:        b.ID,
		SceneID:   b.SceneID,
		StartTime: b.StartTime,
		Source:    core.BoundarySource(b.Source),
	}
	if b.EndTime != nil {
		out.EndTime = core.Float(*b.EndTime)
	}
	return out
}

// DerivedMarkerConfigToCore converts a GORM rule. Malformed slot mapping JSON
// yields a rule without mappings.
func DerivedMarkerConfigToCore(c model.DerivedMarkerConfig) core.DerivedMarkerConfig {
	var mappings []core.SlotMapping
	if len(c.SlotMappings) > 0 {
		_ = json.Unmarshal(c.SlotMappings, &mappings)
	}
	return core.DerivedMarkerConfig{
		ID:               c.ID,
		SourceTagID:      c.SourceTagID,
		DerivedTagID:     c.DerivedTagID,
		RelationshipType: c.RelationshipType,
		SlotMappings:     mappings,
	}
}

// MarkerDerivationToCore converts a GORM materialization record.
func MarkerDerivationToCore(d model.MarkerDerivation) core.MaterializedDerivation {
	return core.MaterializedDerivation{
		ID:              d.ID,
		SourceMarkerID:  d.SourceMarkerID,
		DerivedMarkerID: d.DerivedMarkerID,
		RuleID:          d.RuleID,
		Depth:           d.Depth,
	}
}

// SlotDefinitionToCore converts a GORM SlotDefinition. Unknown genders are dropped.
func SlotDefinitionToCore(d model.SlotDefinition) core.SlotDefinition {
	var raw []string
	if len(d.GenderHints) > 0 {
		_ = json.Unmarshal(d.GenderHints, &raw)
	}
	var hints []core.Gender
	for _, g := range raw {
		if parsed := core.ParseGender(g); parsed != "" {
			hints = append(hints, parsed)
		}
	}
	return core.SlotDefinition{
		ID:          d.ID,
		TagID:       d.TagID,
		Label:       d.Label,
		GenderHints: hints,
		Order:       d.DisplayOrder,
	}
}

// SlotDefinitionSetToCore converts a set and orders its slots by DisplayOrder.
func SlotDefinitionSetToCore(s model.SlotDefinitionSet) core.SlotDefinitionSet {
	out := core.SlotDefinitionSet{
		ID:                                s.ID,
		TagID:                             s.TagID,
		AllowSamePerformerInMultipleSlots: s.AllowSamePerformerInMultipleSlots,
		Slots:                             make([]core.SlotDefinition, len(s.Slots)),
	}
	for i, d := range s.Slots {
		out.Slots[i] = SlotDefinitionToCore(d)
	}
	sort.SliceStable(out.Slots, func(i, j int) bool { return out.Slots[i].Order < out.Slots[j].Order })
	return out
}

// MarkerSlotsToCore groups slot rows by marker, ordered by Position.
func MarkerSlotsToCore(rows []model.MarkerSlot) map[string][]core.SlotAssignment {
	sorted := append([]model.MarkerSlot(nil), rows...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Position < sorted[j].Position })

	out := make(map[string][]core.SlotAssignment)
	for _, r := range sorted {
		out[r.MarkerID] = append(out[r.MarkerID], core.SlotAssignment{
			SlotDefinitionID: r.SlotDefinitionID,
			PerformerID:      r.PerformerID,
		})
	}
	return out
}
