package worker

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markerlab/markerlab/internal/derive"
	"github.com/markerlab/markerlab/internal/dispatcher"
	"github.com/markerlab/markerlab/internal/review"
)

func newDispatcher(t *testing.T, f *fixture) *dispatcher.Dispatcher {
	t.Helper()
	d, err := dispatcher.New(slog.Default())
	require.NoError(t, err)
	f.manager.RegisterHandlers(d)
	return d
}

func TestRegisterHandlers(t *testing.T) {
	f := newFixture(t)
	d := newDispatcher(t, f)

	for _, cmd := range []string{":SHOT:ADD:", ":SHOT:REMOVE:", ":DERIVE:ANALYZE:", ":DERIVE:MATERIALIZE:", ":SLOTS:SUGGEST:", ":TAGS:REFRESH:"} {
		assert.True(t, d.HasHandler(cmd), cmd)
	}
	for _, k := range review.Kinds {
		assert.True(t, d.HasHandler(":MARKER:"+string(k)+":"), k)
	}
}

func TestDispatch_ShotAdd(t *testing.T) {
	f := newFixture(t)
	d := newDispatcher(t, f)

	out, err := d.Dispatch(dispatcher.Event{Command: ":SHOT:ADD:", Args: []string{"s1", "30", "80"}, Context: context.Background()})
	require.NoError(t, err)
	res, ok := out.(ShotResult)
	require.True(t, ok)
	assert.Equal(t, 80.0, *res.Boundaries[1].EndTime)
}

func TestDispatch_BadArguments(t *testing.T) {
	f := newFixture(t)
	d := newDispatcher(t, f)

	tests := []struct {
		name string
		cmd  string
		args []string
	}{
		{"missing scene", ":SHOT:ADD:", nil},
		{"missing time", ":SHOT:REMOVE:", []string{"s1"}},
		{"bad time", ":SHOT:ADD:", []string{"s1", "soon"}},
		{"bad duration", ":SHOT:ADD:", []string{"s1", "3", "long"}},
		{"nan time", ":SHOT:ADD:", []string{"s1", "NaN"}},
		{"infinite time", ":SHOT:REMOVE:", []string{"s1", "+Inf"}},
		{"negative time", ":SHOT:ADD:", []string{"s1", "-5"}},
		{"missing marker", ":SLOTS:SUGGEST:", []string{"s1"}},
		{"bad review time", ":MARKER:SET_START:", []string{"s1", "m1", "x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := d.Dispatch(dispatcher.Event{Command: tt.cmd, Args: tt.args})
			assert.ErrorIs(t, err, ErrInvalidArgument)
		})
	}
}

func TestDispatch_DeriveAnalyze(t *testing.T) {
	f := newFixture(t)
	saveRules(t, f)
	d := newDispatcher(t, f)

	out, err := d.Dispatch(dispatcher.Event{Command: ":DERIVE:ANALYZE:", Args: []string{"s1"}})
	require.NoError(t, err)
	a, ok := out.(derive.Analysis)
	require.True(t, ok)
	assert.Len(t, a.Materializable, 2)
}

func TestDispatch_ReviewThroughKeyBinding(t *testing.T) {
	f := newFixture(t)
	d := newDispatcher(t, f)

	out, err := d.DispatchKey(dispatcher.DefaultKeyBindings(), "ArrowRight", dispatcher.Event{Args: []string{"s1", ""}})
	require.NoError(t, err)
	res, ok := out.(ReviewResult)
	require.True(t, ok)
	assert.Equal(t, "m1", res.SelectedID, "next with no selection starts at the first marker")

	out, err = d.DispatchKey(dispatcher.DefaultKeyBindings(), "q", dispatcher.Event{Args: []string{"s1", "m1", "8"}})
	require.NoError(t, err)
	assert.Equal(t, 8.0, f.stash.updated["m1"].Seconds)
	_ = out
}

func TestDispatch_TagsRefreshIsQueued(t *testing.T) {
	f := newFixture(t)
	d := newDispatcher(t, f)

	out, err := d.Dispatch(dispatcher.Event{Command: ":TAGS:REFRESH:"})
	require.NoError(t, err)
	assert.Equal(t, dispatcher.Queued{Command: ":TAGS:REFRESH:"}, out)
}
