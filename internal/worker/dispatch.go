package worker

import (
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/markerlab/markerlab/internal/dispatcher"
	"github.com/markerlab/markerlab/internal/review"
)

// ErrInvalidArgument marks malformed input from a command or request.
var ErrInvalidArgument = errors.New("invalid argument")

// RegisterHandlers registers all commands with the dispatcher.
//
// Argument layout:
//
//	:SHOT:ADD: / :SHOT:REMOVE:   sceneID, seconds[, duration]
//	:DERIVE:ANALYZE: / :DERIVE:MATERIALIZE:   sceneID
//	:SLOTS:SUGGEST:              sceneID, markerID
//	:MARKER:<KIND>:              sceneID, selectedID[, seconds]
//	:TAGS:REFRESH:               (none)
func (m *Manager) RegisterHandlers(d *dispatcher.Dispatcher) {
	d.Register(":SHOT:ADD:", m.handleShotAdd, dispatcher.Logged())
	d.Register(":SHOT:REMOVE:", m.handleShotRemove, dispatcher.Logged())

	d.Register(":DERIVE:ANALYZE:", m.handleDeriveAnalyze)
	d.Register(":DERIVE:MATERIALIZE:", m.handleDeriveMaterialize, dispatcher.Logged())

	d.Register(":SLOTS:SUGGEST:", m.handleSlotsSuggest)

	for _, kind := range review.Kinds {
		d.Register(":MARKER:"+string(kind)+":", m.reviewHandler(kind), dispatcher.Logged())
	}

	// Refreshes coalesce: a request arriving while one is queued is dropped.
	d.Register(":TAGS:REFRESH:", m.handleTagsRefresh, dispatcher.Buffered(1))
}

func arg(e dispatcher.Event, i int, name string) (string, error) {
	if i >= len(e.Args) || e.Args[i] == "" {
		return "", fmt.Errorf("%s: missing %s: %w", e.Command, name, ErrInvalidArgument)
	}
	return e.Args[i], nil
}

func floatArg(e dispatcher.Event, i int, name string) (float64, error) {
	s, err := arg(e, i, name)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%s: bad %s %q: %w", e.Command, name, s, ErrInvalidArgument)
	}
	return v, nil
}

// optionalFloatArg returns nil when the argument is absent.
func optionalFloatArg(e dispatcher.Event, i int, name string) (*float64, error) {
	if i >= len(e.Args) || e.Args[i] == "" {
		return nil, nil
	}
	v, err := floatArg(e, i, name)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (m *Manager) shotArgs(e dispatcher.Event) (string, float64, *float64, error) {
	sceneID, err := arg(e, 0, "scene id")
	if err != nil {
		return "", 0, nil, err
	}
	t, err := floatArg(e, 1, "time")
	if err != nil {
		return "", 0, nil, err
	}
	duration, err := optionalFloatArg(e, 2, "duration")
	if err != nil {
		return "", 0, nil, err
	}
	return sceneID, t, duration, nil
}

func (m *Manager) handleShotAdd(e dispatcher.Event) (any, error) {
	sceneID, t, duration, err := m.shotArgs(e)
	if err != nil {
		return nil, err
	}
	return m.AddShotBoundary(e.Ctx(), sceneID, t, duration)
}

func (m *Manager) handleShotRemove(e dispatcher.Event) (any, error) {
	sceneID, t, duration, err := m.shotArgs(e)
	if err != nil {
		return nil, err
	}
	return m.RemoveShotBoundary(e.Ctx(), sceneID, t, duration)
}

func (m *Manager) handleDeriveAnalyze(e dispatcher.Event) (any, error) {
	sceneID, err := arg(e, 0, "scene id")
	if err != nil {
		return nil, err
	}
	return m.AnalyzeScene(e.Ctx(), sceneID)
}

func (m *Manager) handleDeriveMaterialize(e dispatcher.Event) (any, error) {
	sceneID, err := arg(e, 0, "scene id")
	if err != nil {
		return nil, err
	}
	return m.MaterializeScene(e.Ctx(), sceneID)
}

func (m *Manager) handleSlotsSuggest(e dispatcher.Event) (any, error) {
	sceneID, err := arg(e, 0, "scene id")
	if err != nil {
		return nil, err
	}
	markerID, err := arg(e, 1, "marker id")
	if err != nil {
		return nil, err
	}
	return m.SuggestSlots(e.Ctx(), sceneID, markerID)
}

func (m *Manager) reviewHandler(kind review.Kind) dispatcher.HandlerFunc {
	return func(e dispatcher.Event) (any, error) {
		sceneID, err := arg(e, 0, "scene id")
		if err != nil {
			return nil, err
		}
		// An empty selection is valid for navigation.
		var selectedID string
		if len(e.Args) > 1 {
			selectedID = e.Args[1]
		}
		t, err := optionalFloatArg(e, 2, "time")
		if err != nil {
			return nil, err
		}
		cmd := review.Command{Kind: kind}
		if t != nil {
			cmd.Time = *t
		}
		return m.ApplyReview(e.Ctx(), sceneID, selectedID, cmd)
	}
}

func (m *Manager) handleTagsRefresh(e dispatcher.Event) (any, error) {
	return nil, m.RefreshTags(e.Ctx())
}
