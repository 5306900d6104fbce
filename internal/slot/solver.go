// Package slot suggests performer-to-slot assignments for a marker.
package slot

import (
	"sort"
	"strings"

	"github.com/markerlab/markerlab/pkg/core"
)

// DefaultMaxCombinations matches the number keys 1-9 in the picker.
const DefaultMaxCombinations = 9

// AssignmentCombination is one full assignment of performers to slots.
type AssignmentCombination struct {
	Assignments []core.SlotAssignment `json:"assignments"`
	Description string                `json:"description"`
}

type options struct {
	limit int
}

// Option configures GenerateAssignmentCombinations.
type Option func(*options)

// WithLimit caps the number of returned combinations. Values below 1 disable the cap.
func WithLimit(n int) Option {
	return func(o *options) {
		o.limit = n
	}
}

// GenerateAssignmentCombinations enumerates every way to fill all slots, in slot
// order, with performers whose gender the slot accepts. Partial assignments are
// never returned. When every slot is unlabeled, combinations using the same set of
// performers are collapsed. current is accepted for callers that display it but
// does not restrict the search.
func GenerateAssignmentCombinations(
	slots []core.SlotDefinition,
	performers []core.Performer,
	current []core.SlotAssignment,
	allowSamePerformerInMultipleSlots bool,
	opts ...Option,
) []AssignmentCombination {
	o := &options{limit: DefaultMaxCombinations}
	for _, opt := range opts {
		opt(o)
	}

	if len(slots) == 0 {
		return nil
	}

	eligible := make([][]core.Performer, len(slots))
	for i, s := range slots {
		for _, p := range performers {
			if s.Accepts(p.Gender) {
				eligible[i] = append(eligible[i], p)
			}
		}
		if len(eligible[i]) == 0 {
			return nil
		}
	}

	unlabeled := true
	for _, s := range slots {
		if s.Label != "" {
			unlabeled = false
			break
		}
	}

	// Every result fills all slots, so results keep discovery order and the
	// search stops once the limit is reached.
	var out []AssignmentCombination
	seen := make(map[string]bool)
	picked := make([]core.Performer, 0, len(slots))
	used := make(map[string]bool)

	var fill func(i int) bool
	fill = func(i int) bool {
		if i == len(slots) {
			if unlabeled {
				key := performerSetKey(picked)
				if seen[key] {
					return false
				}
				seen[key] = true
			}
			out = append(out, buildCombination(slots, picked))
			return o.limit > 0 && len(out) >= o.limit
		}
		for _, p := range eligible[i] {
			if used[p.ID] {
				continue
			}
			if !allowSamePerformerInMultipleSlots {
				used[p.ID] = true
			}
			picked = append(picked, p)
			done := fill(i + 1)
			picked = picked[:len(picked)-1]
			delete(used, p.ID)
			if done {
				return true
			}
		}
		return false
	}
	fill(0)
	return out
}

func performerSetKey(combo []core.Performer) string {
	ids := make([]string, len(combo))
	for i, p := range combo {
		ids[i] = p.ID
	}
	sort.Strings(ids)
	return strings.Join(ids, "\x00")
}

func buildCombination(slots []core.SlotDefinition, combo []core.Performer) AssignmentCombination {
	c := AssignmentCombination{Assignments: make([]core.SlotAssignment, len(combo))}
	parts := make([]string, len(combo))
	for i, p := range combo {
		c.Assignments[i] = core.SlotAssignment{SlotDefinitionID: slots[i].ID, PerformerID: p.ID}
		if slots[i].Label != "" {
			parts[i] = slots[i].Label + ": " + p.Name
		} else {
			parts[i] = p.Name
		}
	}
	c.Description = strings.Join(parts, ", ")
	return c
}
