// Package derive computes the markers implied by tag derivation rules and
// decides which of them still need to be written.
package derive

import "github.com/markerlab/markerlab/pkg/core"

// DerivedMarker is one marker implied by a rule chain.
type DerivedMarker struct {
	TagID          string                `json:"tagId"`
	Slots          []core.SlotAssignment `json:"slots,omitempty"`
	Depth          int                   `json:"depth"`
	RuleID         string                `json:"ruleId"`
	SourceMarkerID string                `json:"sourceMarkerId,omitempty"`
}

// ComputeDerivedMarkers applies every "implies" rule whose source is the marker's
// primary tag. Slot assignments are carried over through the rule's slot mappings;
// one source slot may map onto several derived slots.
func ComputeDerivedMarkers(m core.Marker, rules []core.DerivedMarkerConfig, depth int, sourceMarkerID string) []DerivedMarker {
	var out []DerivedMarker
	for _, rule := range rules {
		if rule.SourceTagID != m.PrimaryTag.ID || rule.RelationshipType != core.RelationshipImplies {
			continue
		}
		out = append(out, DerivedMarker{
			TagID:          rule.DerivedTagID,
			Slots:          mapSlots(m.Slots, rule.SlotMappings),
			Depth:          depth,
			RuleID:         rule.RuleID(),
			SourceMarkerID: sourceMarkerID,
		})
	}
	return out
}

func mapSlots(slots []core.SlotAssignment, mappings []core.SlotMapping) []core.SlotAssignment {
	if len(slots) == 0 || len(mappings) == 0 {
		return nil
	}
	var out []core.SlotAssignment
	for _, s := range slots {
		for _, mp := range mappings {
			if mp.FromSlotID == s.SlotDefinitionID {
				out = append(out, core.SlotAssignment{
					SlotDefinitionID: mp.ToSlotID,
					PerformerID:      s.PerformerID,
				})
			}
		}
	}
	return out
}

// ComputeAllDerivedMarkers follows rule chains depth-first from the marker's primary
// tag, down to maxDepth (depth 0 is the direct derivations). Each tag is reached at
// most once per traversal, the root's own tag included, so cyclic rule sets terminate
// and diamonds do not duplicate. A chain that leads back to the root's tag, such as
// A -> B -> A, therefore never yields a marker with the root's tag.
func ComputeAllDerivedMarkers(m core.Marker, rules []core.DerivedMarkerConfig, maxDepth int) []DerivedMarker {
	var out []DerivedMarker
	visited := map[string]bool{m.PrimaryTag.ID: true}

	var walk func(current core.Marker, depth int)
	walk = func(current core.Marker, depth int) {
		if depth > maxDepth {
			return
		}
		for _, d := range ComputeDerivedMarkers(current, rules, depth, m.ID) {
			if visited[d.TagID] {
				continue
			}
			visited[d.TagID] = true
			out = append(out, d)

			next := core.Marker{
				ID:         m.ID,
				SceneID:    m.SceneID,
				Seconds:    m.Seconds,
				EndSeconds: m.EndSeconds,
				PrimaryTag: core.Tag{ID: d.TagID},
				Slots:      d.Slots,
			}
			walk(next, depth+1)
		}
	}
	walk(m, 0)

	return out
}
