package worker

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/markerlab/markerlab/internal/config"
	"github.com/markerlab/markerlab/internal/influx"
	"github.com/markerlab/markerlab/internal/stash"
	"github.com/markerlab/markerlab/internal/storage/memory"
	"github.com/markerlab/markerlab/pkg/core"
)

const (
	confirmedTag = "90"
	rejectedTag  = "91"
)

var (
	kissTag    = core.Tag{ID: "2", Name: "Kiss"}
	danceTag   = core.Tag{ID: "3", Name: "Dance"}
	kissingTag = core.Tag{ID: "5", Name: "Kissing"}
	touchTag   = core.Tag{ID: "6", Name: "Touch"}
)

// fakeStash keeps scenes in memory and logs every write.
type fakeStash struct {
	mu        sync.Mutex
	scenes    map[string]*stash.Scene
	tags      []core.Tag
	nextID    int
	created   []stash.MarkerInput
	updated   map[string]stash.MarkerInput
	destroyed []string
	tagLoads  int
}

func newFakeStash() *fakeStash {
	return &fakeStash{
		scenes:  make(map[string]*stash.Scene),
		tags:    []core.Tag{kissTag, danceTag, kissingTag, touchTag},
		updated: make(map[string]stash.MarkerInput),
		nextID:  100,
	}
}

func (f *fakeStash) addScene(s stash.Scene) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scenes[s.ID] = &s
}

func (f *fakeStash) FindScene(_ context.Context, sceneID string) (stash.Scene, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.scenes[sceneID]
	if !ok {
		return stash.Scene{}, fmt.Errorf("scene %s: %w", sceneID, stash.ErrSceneNotFound)
	}
	out := *s
	out.Markers = make([]core.Marker, len(s.Markers))
	for i, m := range s.Markers {
		out.Markers[i] = m.Clone()
	}
	return out, nil
}

func (f *fakeStash) FindTags(context.Context) ([]core.Tag, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tagLoads++
	return f.tags, nil
}

func (f *fakeStash) tagByID(id string) core.Tag {
	for _, t := range f.tags {
		if t.ID == id {
			return t
		}
	}
	return core.Tag{ID: id}
}

func (f *fakeStash) toMarker(id string, in stash.MarkerInput) core.Marker {
	m := core.Marker{
		ID:         id,
		SceneID:    in.SceneID,
		Title:      in.Title,
		Seconds:    in.Seconds,
		EndSeconds: in.EndSeconds,
		PrimaryTag: f.tagByID(in.PrimaryTagID),
	}
	for _, t := range in.TagIDs {
		m.Tags = append(m.Tags, f.tagByID(t))
	}
	return m
}

func (f *fakeStash) CreateSceneMarker(_ context.Context, in stash.MarkerInput) (core.Marker, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	m := f.toMarker(fmt.Sprintf("m%d", f.nextID), in)
	f.created = append(f.created, in)
	if s, ok := f.scenes[in.SceneID]; ok {
		s.Markers = append(s.Markers, m)
	}
	return m, nil
}

func (f *fakeStash) UpdateSceneMarker(_ context.Context, id string, in stash.MarkerInput) (core.Marker, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updated[id] = in
	m := f.toMarker(id, in)
	if s, ok := f.scenes[in.SceneID]; ok {
		for i := range s.Markers {
			if s.Markers[i].ID == id {
				s.Markers[i] = m
			}
		}
	}
	return m, nil
}

func (f *fakeStash) DestroySceneMarker(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.destroyed = append(f.destroyed, id)
	for _, s := range f.scenes {
		kept := s.Markers[:0]
		for _, m := range s.Markers {
			if m.ID != id {
				kept = append(kept, m)
			}
		}
		s.Markers = kept
	}
	return nil
}

// recorder captures activity.
type recorder struct {
	mu    sync.Mutex
	items []influx.Activity
}

func (r *recorder) Record(_ context.Context, a influx.Activity) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, a)
	return nil
}

func (r *recorder) kinds() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, a := range r.items {
		out = append(out, a.Kind)
	}
	return out
}

type fixture struct {
	stash    *fakeStash
	backend  *memory.Backend
	activity *recorder
	manager  *Manager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		stash:    newFakeStash(),
		backend:  memory.New(""),
		activity: &recorder{},
	}
	require.NoError(t, f.backend.Init())

	f.stash.addScene(stash.Scene{
		ID:       "s1",
		Duration: core.Float(100),
		Markers: []core.Marker{
			{ID: "m1", SceneID: "s1", Title: "Kiss", Seconds: 10, EndSeconds: core.Float(20), PrimaryTag: kissTag},
			{ID: "m2", SceneID: "s1", Title: "Kiss", Seconds: 15, EndSeconds: core.Float(25), PrimaryTag: kissTag},
			{ID: "m3", SceneID: "s1", Title: "Dance", Seconds: 40, PrimaryTag: danceTag},
		},
		Performers: []core.Performer{
			{ID: "p1", Name: "Alice", Gender: core.GenderFemale},
			{ID: "p2", Name: "Bob", Gender: core.GenderMale},
		},
	})

	f.manager = NewManager(Dependencies{
		Stash:    f.stash,
		Backend:  f.backend,
		Activity: f.activity,
		Config: config.Settings{
			Tags:            config.TagConfig{Confirmed: confirmedTag, Rejected: rejectedTag},
			DeriveMaxDepth:  3,
			MaxCombinations: 9,
			Shots:           config.ShotConfig{DefaultWindow: 20, RemoveTolerance: 0.5},
		},
	})
	return f
}
