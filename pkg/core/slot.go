// pkg/core/slot.go
package core

// SlotAssignment binds a performer to a slot definition on a marker.
type SlotAssignment struct {
	SlotDefinitionID string
	PerformerID      string
}

// SlotDefinition is a performer role scoped to a tag. An empty GenderHints
// slice accepts any performer.
type SlotDefinition struct {
	ID          string
	TagID       string
	Label       string
	GenderHints []Gender
	Order       int
}

// Accepts reports whether a performer of gender g may fill the slot.
func (d SlotDefinition) Accepts(g Gender) bool {
	if len(d.GenderHints) == 0 {
		return true
	}
	for _, h := range d.GenderHints {
		if h == g {
			return true
		}
	}
	return false
}

// SlotDefinitionSet groups the slot definitions of one tag.
type SlotDefinitionSet struct {
	ID                                string
	TagID                             string
	AllowSamePerformerInMultipleSlots bool
	Slots                             []SlotDefinition
}
