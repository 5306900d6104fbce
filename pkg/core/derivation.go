// pkg/core/derivation.go
package core

// RelationshipImplies is the only relationship type that produces derived markers.
const RelationshipImplies = "implies"

// SlotMapping remaps a slot of the source tag onto a slot of the derived tag.
type SlotMapping struct {
	FromSlotID string `json:"fromSlotId"`
	ToSlotID   string `json:"toSlotId"`
}

// DerivedMarkerConfig is a directed derivation rule between two tags.
type DerivedMarkerConfig struct {
	ID               string
	SourceTagID      string
	DerivedTagID     string
	RelationshipType string
	SlotMappings     []SlotMapping
}

// RuleID is the stable identifier used to detect already materialized derivations.
func (c DerivedMarkerConfig) RuleID() string {
	return c.SourceTagID + "->" + c.DerivedTagID
}

// MaterializedDerivation records a derived marker that was written to Stash.
type MaterializedDerivation struct {
	ID              string
	SourceMarkerID  string
	DerivedMarkerID string
	RuleID          string
	Depth           int
}
