// Package shotboundary plans edits to the contiguous shot intervals of a scene.
//
// The planner never touches storage. It returns the ordered create/update/delete
// actions that a caller applies, usually in one transaction.
package shotboundary

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/markerlab/markerlab/pkg/core"
)

// Outcome names the branch a plan took.
type Outcome string

const (
	OutcomeSplitExisting     Outcome = "split-existing"
	OutcomeFillGap           Outcome = "fill-gap"
	OutcomeCreateFromStart   Outcome = "create-from-start"
	OutcomeExtendPrevious    Outcome = "extend-previous"
	OutcomeCreateInEmpty     Outcome = "create-in-empty"
	OutcomeRemoveFirst       Outcome = "remove-first"
	OutcomeMergeWithPrevious Outcome = "merge-with-previous"
)

// These messages are shown to the user verbatim.
var (
	ErrSplitWithoutEnd = errors.New("Cannot split shot boundary without end time")
	ErrNoBoundaries    = errors.New("No shot boundaries found")
	ErrNoneAtPlayhead  = errors.New("No shot boundary marker found at current playhead position")
	ErrOnlyBoundary    = errors.New("Cannot remove the only shot boundary")
)

// IsPlanError reports whether err is one of the planner's user-facing errors.
func IsPlanError(err error) bool {
	return errors.Is(err, ErrSplitWithoutEnd) ||
		errors.Is(err, ErrNoBoundaries) ||
		errors.Is(err, ErrNoneAtPlayhead) ||
		errors.Is(err, ErrOnlyBoundary)
}

// Plan is the result of a successful planning call.
type Plan struct {
	Outcome Outcome                   `json:"outcome"`
	Actions []core.ShotBoundaryAction `json:"actions"`
	Log     []string                  `json:"log,omitempty"`
}

// Planner holds the tunables for planning.
type Planner struct {
	// DefaultWindow is the length of a new trailing boundary when neither a next
	// boundary nor the video duration bounds it.
	DefaultWindow float64
	// RemoveTolerance is how far, in seconds, a boundary start may sit from the
	// playhead and still be removed.
	RemoveTolerance float64
}

// DefaultPlanner returns a Planner with a 20 second window and a 0.5 second tolerance.
func DefaultPlanner() Planner {
	return Planner{DefaultWindow: 20, RemoveTolerance: 0.5}
}

// PlanAddShotBoundaryAtPlayhead uses DefaultPlanner.
func PlanAddShotBoundaryAtPlayhead(boundaries []core.ShotBoundary, t float64, videoDuration *float64) (Plan, error) {
	return DefaultPlanner().Add(boundaries, t, videoDuration)
}

// PlanRemoveShotBoundaryMarker uses DefaultPlanner.
func PlanRemoveShotBoundaryMarker(boundaries []core.ShotBoundary, t float64, videoDuration *float64) (Plan, error) {
	return DefaultPlanner().Remove(boundaries, t, videoDuration)
}

func sorted(boundaries []core.ShotBoundary) []core.ShotBoundary {
	out := append([]core.ShotBoundary(nil), boundaries...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartTime < out[j].StartTime })
	return out
}

func create(start, end float64) core.ShotBoundaryAction {
	return core.ShotBoundaryAction{Type: core.ActionCreate, StartTime: start, EndTime: core.Float(end)}
}

func update(id string, start, end float64) core.ShotBoundaryAction {
	return core.ShotBoundaryAction{Type: core.ActionUpdate, ID: id, StartTime: start, EndTime: core.Float(end)}
}

func remove(b core.ShotBoundary) core.ShotBoundaryAction {
	return core.ShotBoundaryAction{Type: core.ActionDelete, ID: b.ID, StartTime: b.StartTime, EndTime: b.EndTime}
}

// endAfter resolves the end of a boundary starting at t.
func (p Planner) endAfter(bs []core.ShotBoundary, t float64, videoDuration *float64) (float64, string) {
	for _, b := range bs {
		if b.StartTime > t {
			return b.StartTime, fmt.Sprintf("end at next boundary %s (%.3f)", b.ID, b.StartTime)
		}
	}
	if videoDuration != nil && *videoDuration > t {
		return *videoDuration, fmt.Sprintf("end at video duration (%.3f)", *videoDuration)
	}
	return t + p.DefaultWindow, fmt.Sprintf("end at default window (%.3f)", t+p.DefaultWindow)
}

// Add plans a new boundary starting at t.
func (p Planner) Add(boundaries []core.ShotBoundary, t float64, videoDuration *float64) (Plan, error) {
	bs := sorted(boundaries)
	plan := Plan{Log: []string{fmt.Sprintf("add at %.3f with %d boundaries", t, len(bs))}}

	var cur, prev *core.ShotBoundary
	for i := range bs {
		if bs[i].StartTime <= t {
			cur = &bs[i]
		}
		if bs[i].StartTime < t {
			prev = &bs[i]
		}
	}

	if cur != nil {
		if cur.EndTime == nil {
			return Plan{}, ErrSplitWithoutEnd
		}
		if t < *cur.EndTime {
			plan.Outcome = OutcomeSplitExisting
			plan.Actions = []core.ShotBoundaryAction{
				update(cur.ID, cur.StartTime, t),
				create(t, *cur.EndTime),
			}
			plan.Log = append(plan.Log, fmt.Sprintf("split %s [%.3f, %.3f)", cur.ID, cur.StartTime, *cur.EndTime))
			return plan, nil
		}
	}

	end, why := p.endAfter(bs, t, videoDuration)
	plan.Log = append(plan.Log, why)

	switch {
	case prev != nil && prev.EndTime != nil && *prev.EndTime < t:
		plan.Outcome = OutcomeFillGap
		plan.Actions = []core.ShotBoundaryAction{create(*prev.EndTime, t), create(t, end)}
	case prev == nil && t > 0:
		plan.Outcome = OutcomeCreateFromStart
		plan.Actions = []core.ShotBoundaryAction{create(0, t), create(t, end)}
	case len(bs) == 0:
		plan.Outcome = OutcomeCreateInEmpty
		plan.Actions = []core.ShotBoundaryAction{create(t, end)}
	default:
		plan.Outcome = OutcomeExtendPrevious
		plan.Actions = []core.ShotBoundaryAction{create(t, end)}
	}
	return plan, nil
}

// Remove plans the removal of the boundary starting nearest to t, merging its
// interval into a neighbour so the set stays contiguous.
func (p Planner) Remove(boundaries []core.ShotBoundary, t float64, videoDuration *float64) (Plan, error) {
	bs := sorted(boundaries)
	if len(bs) == 0 {
		return Plan{}, ErrNoBoundaries
	}

	idx := -1
	best := math.Inf(1)
	for i, b := range bs {
		d := math.Abs(b.StartTime - t)
		if d <= p.RemoveTolerance && d < best {
			idx, best = i, d
		}
	}
	if idx < 0 {
		return Plan{}, ErrNoneAtPlayhead
	}

	matched := bs[idx]
	plan := Plan{Log: []string{fmt.Sprintf("remove %s at %.3f (distance %.3f)", matched.ID, matched.StartTime, best)}}

	if idx == 0 {
		if len(bs) == 1 {
			return Plan{}, ErrOnlyBoundary
		}
		next := bs[1]
		nextEnd := next.EndTime
		plan.Outcome = OutcomeRemoveFirst
		plan.Actions = []core.ShotBoundaryAction{
			{Type: core.ActionUpdate, ID: next.ID, StartTime: 0, EndTime: nextEnd},
			remove(matched),
		}
		plan.Log = append(plan.Log, fmt.Sprintf("pull %s back to 0", next.ID))
		return plan, nil
	}

	prev := bs[idx-1]
	var end float64
	switch {
	case matched.EndTime != nil:
		end = *matched.EndTime
	case videoDuration != nil && *videoDuration > t:
		end = *videoDuration
		plan.Log = append(plan.Log, "removed boundary was open, using video duration")
	default:
		end = t + p.DefaultWindow
		plan.Log = append(plan.Log, "removed boundary was open, using default window")
	}
	plan.Outcome = OutcomeMergeWithPrevious
	plan.Actions = []core.ShotBoundaryAction{
		update(prev.ID, prev.StartTime, end),
		remove(matched),
	}
	return plan, nil
}
