// Package review is the marker review state machine. Every command is a pure
// transition from one State to the next plus the persistence effects the caller
// must carry out against Stash.
package review

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"sort"
	"strings"

	"github.com/markerlab/markerlab/internal/timeline"
	"github.com/markerlab/markerlab/pkg/core"
)

// Kind identifies a review command.
type Kind string

const (
	NextMarker       Kind = "NEXT_MARKER"
	PreviousMarker   Kind = "PREVIOUS_MARKER"
	NextSwimlane     Kind = "NEXT_SWIMLANE"
	PreviousSwimlane Kind = "PREVIOUS_SWIMLANE"
	Confirm          Kind = "CONFIRM"
	Reject           Kind = "REJECT"
	ResetStatus      Kind = "RESET_STATUS"
	SetStart         Kind = "SET_START"
	SetEnd           Kind = "SET_END"
	Split            Kind = "SPLIT"
	Duplicate        Kind = "DUPLICATE"
	Delete           Kind = "DELETE"
	DeleteRejected   Kind = "DELETE_REJECTED"
)

// Kinds lists every command in a stable order.
var Kinds = []Kind{
	NextMarker, PreviousMarker, NextSwimlane, PreviousSwimlane,
	Confirm, Reject, ResetStatus,
	SetStart, SetEnd, Split, Duplicate, Delete, DeleteRejected,
}

// ParseKind accepts a command name in any case, with dashes or underscores.
func ParseKind(s string) (Kind, bool) {
	k := Kind(strings.ReplaceAll(strings.ToUpper(strings.TrimSpace(s)), "-", "_"))
	for _, known := range Kinds {
		if k == known {
			return k, true
		}
	}
	return "", false
}

var (
	ErrNoSelection = errors.New("no marker selected")
	ErrInvalidTime = errors.New("invalid time for marker")
	ErrUnknownKind = errors.New("unknown review command")
)

// Command is one review action. Time is the playhead position for commands that use it.
type Command struct {
	Kind Kind    `json:"command"`
	Time float64 `json:"time"`
}

// State is the review view of one scene.
type State struct {
	Markers             []core.Marker
	SelectedID          string
	Status              core.StatusTags
	MarkerGroupParentID string
	// Grouping is passed to timeline.GroupMarkersByTags to order swimlanes.
	Grouping []timeline.GroupOption
}

// EffectKind is the persistence operation an Effect asks for.
type EffectKind string

const (
	EffectUpdate EffectKind = "update"
	EffectCreate EffectKind = "create"
	EffectDelete EffectKind = "delete"
)

// Effect is a write the caller performs. Created markers have an empty ID and
// are not part of the returned State; they appear once the caller reloads.
type Effect struct {
	Kind   EffectKind  `json:"kind"`
	Marker core.Marker `json:"marker"`
}

// Apply runs cmd against s. s is never modified.
func Apply(s State, cmd Command) (State, []Effect, error) {
	next := s.clone()
	switch cmd.Kind {
	case NextMarker:
		return next.step(1), nil, nil
	case PreviousMarker:
		return next.step(-1), nil, nil
	case NextSwimlane:
		return next.lane(1), nil, nil
	case PreviousSwimlane:
		return next.lane(-1), nil, nil
	case DeleteRejected:
		return next.deleteRejected()
	case Confirm, Reject, ResetStatus, SetStart, SetEnd, Split, Duplicate, Delete:
	default:
		return s, nil, fmt.Errorf("%w: %q", ErrUnknownKind, cmd.Kind)
	}

	i := next.selectedIndex()
	if i < 0 {
		return s, nil, ErrNoSelection
	}
	m := next.Markers[i]

	switch cmd.Kind {
	case Confirm:
		m = withStatus(m, next.Status.ConfirmedTagID, next.Status.RejectedTagID)
	case Reject:
		m = withStatus(m, next.Status.RejectedTagID, next.Status.ConfirmedTagID)
	case ResetStatus:
		m = withStatus(m, "", next.Status.ConfirmedTagID, next.Status.RejectedTagID)
	case SetStart:
		if end, ok := m.End(); cmd.Time < 0 || (ok && cmd.Time > end) {
			return s, nil, fmt.Errorf("%w: start %.3f", ErrInvalidTime, cmd.Time)
		}
		m.Seconds = cmd.Time
	case SetEnd:
		if cmd.Time < m.Seconds {
			return s, nil, fmt.Errorf("%w: end %.3f before start %.3f", ErrInvalidTime, cmd.Time, m.Seconds)
		}
		m.EndSeconds = core.Float(cmd.Time)
	case Split:
		end, ok := m.End()
		if !ok || cmd.Time <= m.Seconds || cmd.Time >= end {
			return s, nil, fmt.Errorf("%w: split at %.3f outside marker", ErrInvalidTime, cmd.Time)
		}
		tail := m.Clone()
		tail.ID = ""
		tail.Seconds = cmd.Time
		m.EndSeconds = core.Float(cmd.Time)
		next.Markers[i] = m
		return next, []Effect{{Kind: EffectUpdate, Marker: m}, {Kind: EffectCreate, Marker: tail}}, nil
	case Duplicate:
		dup := m.Clone()
		dup.ID = ""
		return next, []Effect{{Kind: EffectCreate, Marker: dup}}, nil
	case Delete:
		order := next.chronological()
		pos := indexOf(order, m.ID)
		next.Markers = append(next.Markers[:i], next.Markers[i+1:]...)
		next.SelectedID = ""
		switch {
		case pos+1 < len(order):
			next.SelectedID = order[pos+1].ID
		case pos > 0:
			next.SelectedID = order[pos-1].ID
		}
		return next, []Effect{{Kind: EffectDelete, Marker: m}}, nil
	}

	next.Markers[i] = m
	return next, []Effect{{Kind: EffectUpdate, Marker: m}}, nil
}

func (s State) clone() State {
	out := s
	out.Markers = make([]core.Marker, len(s.Markers))
	for i, m := range s.Markers {
		out.Markers[i] = m.Clone()
	}
	return out
}

func (s State) selectedIndex() int {
	if s.SelectedID == "" {
		return -1
	}
	for i, m := range s.Markers {
		if m.ID == s.SelectedID {
			return i
		}
	}
	return -1
}

// withStatus strips the ids in drop from m's tags and then appends add, if set.
func withStatus(m core.Marker, add string, drop ...string) core.Marker {
	status := core.Tag{ID: add}
	tags := m.Tags[:0:0]
	for _, t := range m.Tags {
		if t.ID == add {
			status = t
			continue
		}
		if slices.Contains(drop, t.ID) {
			continue
		}
		tags = append(tags, t)
	}
	if add != "" {
		tags = append(tags, status)
	}
	m.Tags = tags
	return m
}

func (s State) chronological() []core.Marker {
	out := append([]core.Marker(nil), s.Markers...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Seconds != out[j].Seconds {
			return out[i].Seconds < out[j].Seconds
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func indexOf(ms []core.Marker, id string) int {
	for i, m := range ms {
		if m.ID == id {
			return i
		}
	}
	return -1
}

// step moves the selection dir markers along the timeline.
func (s State) step(dir int) State {
	order := s.chronological()
	if len(order) == 0 {
		return s
	}
	pos := indexOf(order, s.SelectedID)
	switch {
	case pos < 0 && dir > 0:
		pos = 0
	case pos < 0:
		pos = len(order) - 1
	default:
		pos = min(max(pos+dir, 0), len(order)-1)
	}
	s.SelectedID = order[pos].ID
	return s
}

// lane moves the selection to the adjacent swimlane, picking the marker there
// that starts closest to the current one.
func (s State) lane(dir int) State {
	opts := append([]timeline.GroupOption{timeline.WithStatusTags(s.Status)}, s.Grouping...)
	groups := timeline.GroupMarkersByTags(s.Markers, s.MarkerGroupParentID, opts...)
	if len(groups) == 0 {
		return s
	}
	cur, at := -1, 0.0
	for gi, g := range groups {
		for _, m := range g.Markers {
			if m.ID == s.SelectedID {
				cur, at = gi, m.Seconds
			}
		}
	}
	target := 0
	if cur >= 0 {
		target = cur + dir
		if target < 0 || target >= len(groups) {
			return s
		}
	} else if dir < 0 {
		target = len(groups) - 1
	}

	best, bestDist := "", math.Inf(1)
	for _, m := range groups[target].Markers {
		if d := math.Abs(m.Seconds - at); d < bestDist {
			best, bestDist = m.ID, d
		}
	}
	s.SelectedID = best
	return s
}

func (s State) deleteRejected() (State, []Effect, error) {
	var effects []Effect
	kept := s.Markers[:0:0]
	for _, m := range s.Markers {
		if s.Status.Status(m) == core.StatusRejected {
			effects = append(effects, Effect{Kind: EffectDelete, Marker: m})
			continue
		}
		kept = append(kept, m)
	}
	s.Markers = kept
	if s.selectedIndex() < 0 {
		s.SelectedID = ""
	}
	return s, effects, nil
}
