package stash

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markerlab/markerlab/pkg/core"
)

// fakeStash answers by matching a substring of the GraphQL document and
// records the last variables it received.
type fakeStash struct {
	t         *testing.T
	responses map[string]string
	lastVars  map[string]any
	lastKey   string
}

func (f *fakeStash) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/graphql" || r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	f.lastKey = r.Header.Get("ApiKey")
	var req gqlRequest
	require.NoError(f.t, json.NewDecoder(r.Body).Decode(&req))
	f.lastVars = req.Variables
	for needle, body := range f.responses {
		if strings.Contains(req.Query, needle) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(body))
			return
		}
	}
	http.Error(w, "unexpected query", http.StatusBadRequest)
}

func newFake(t *testing.T, responses map[string]string) (*fakeStash, *Client) {
	t.Helper()
	f := &fakeStash{t: t, responses: responses}
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return f, New(srv.URL+"/", "secret")
}

const sceneResponse = `{"data":{"findScene":{
  "id":"12","title":"Scene",
  "files":[{"duration":612.5}],
  "scene_markers":[{
    "id":"m1","title":"Kiss","seconds":10,"end_seconds":25.5,
    "primary_tag":{"id":"2","name":"Kiss","description":"Corresponding Tag: Kissing","parents":[
      {"id":"1","name":"Marker Group: 1. Intimacy","description":"","parents":[]}]},
    "tags":[{"id":"90","name":"Confirmed","description":"","parents":[]}]
  },{
    "id":"m2","title":"","seconds":40,"end_seconds":null,
    "primary_tag":{"id":"3","name":"Dance","description":"","parents":[]},
    "tags":[]
  }],
  "performers":[{"id":"p1","name":"Alice","gender":"FEMALE"},{"id":"p2","name":"Bob","gender":"NON_BINARY"}]
}}}`

func TestNew_TrimsTrailingSlash(t *testing.T) {
	c := New("http://localhost:9999/", "secret")
	assert.Equal(t, "http://localhost:9999", c.baseURL)
	assert.Equal(t, "secret", c.apiKey)
	assert.NotNil(t, c.httpClient)
}

func TestFindScene(t *testing.T) {
	f, c := newFake(t, map[string]string{"findScene": sceneResponse})

	s, err := c.FindScene(context.Background(), "12")
	require.NoError(t, err)

	assert.Equal(t, "secret", f.lastKey)
	assert.Equal(t, float64(12), f.lastVars["id"], "numeric ids are sent as numbers")

	require.NotNil(t, s.Duration)
	assert.Equal(t, 612.5, *s.Duration)

	require.Len(t, s.Markers, 2)
	m1 := s.Markers[0]
	assert.Equal(t, "12", m1.SceneID)
	assert.Equal(t, 25.5, *m1.EndSeconds)
	assert.Equal(t, "Kissing", m1.PrimaryTag.CorrespondingTagName)
	require.Len(t, m1.PrimaryTag.Parents, 1)
	assert.Equal(t, "1", m1.PrimaryTag.Parents[0].ID)
	assert.True(t, m1.HasTag("90"))
	assert.Nil(t, s.Markers[1].EndSeconds)

	assert.Equal(t, []core.Performer{
		{ID: "p1", Name: "Alice", Gender: core.GenderFemale},
		{ID: "p2", Name: "Bob", Gender: ""},
	}, s.Performers)
}

func TestFindScene_NotFound(t *testing.T) {
	_, c := newFake(t, map[string]string{"findScene": `{"data":{"findScene":null}}`})

	_, err := c.FindScene(context.Background(), "99")
	assert.ErrorIs(t, err, ErrSceneNotFound)
}

func TestFindSceneMarkersAndPerformers(t *testing.T) {
	_, c := newFake(t, map[string]string{"findScene": sceneResponse})

	markers, err := c.FindSceneMarkers(context.Background(), "12")
	require.NoError(t, err)
	assert.Len(t, markers, 2)

	performers, err := c.FindScenePerformers(context.Background(), "12")
	require.NoError(t, err)
	assert.Len(t, performers, 2)
}

func TestFindTags(t *testing.T) {
	_, c := newFake(t, map[string]string{"findTags": `{"data":{"findTags":{"tags":[
		{"id":"1","name":"Marker Group: 1. Intimacy","description":"Sort Order: 3, 2","parents":[]},
		{"id":"2","name":"Kiss","description":"","parents":[{"id":"1","name":"Marker Group: 1. Intimacy","description":"Sort Order: 3, 2","parents":[]}]}
	]}}}`})

	tags, err := c.FindTags(context.Background())
	require.NoError(t, err)
	require.Len(t, tags, 2)
	assert.Equal(t, []string{"3", "2"}, tags[0].SortOrder)
	assert.Equal(t, []string{"3", "2"}, tags[1].Parents[0].SortOrder)
}

func TestCreateSceneMarker(t *testing.T) {
	f, c := newFake(t, map[string]string{"sceneMarkerCreate": `{"data":{"sceneMarkerCreate":{
		"id":"m9","title":"Kissing","seconds":10,"end_seconds":20,
		"primary_tag":{"id":"5","name":"Kissing","description":"","parents":[]},"tags":[]}}}`})

	in := MarkerInput{SceneID: "12", Title: "Kissing", Seconds: 10, EndSeconds: core.Float(20), PrimaryTagID: "5"}
	m, err := c.CreateSceneMarker(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, "m9", m.ID)
	assert.Equal(t, "12", m.SceneID)

	input, ok := f.lastVars["input"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "5", input["primary_tag_id"])
	assert.Equal(t, float64(20), input["end_seconds"])
	assert.Equal(t, []any{}, input["tag_ids"])
	_, hasID := input["id"]
	assert.False(t, hasID)
}

func TestUpdateSceneMarker(t *testing.T) {
	f, c := newFake(t, map[string]string{"sceneMarkerUpdate": `{"data":{"sceneMarkerUpdate":{
		"id":"m1","title":"Kiss","seconds":12,"end_seconds":null,
		"primary_tag":{"id":"2","name":"Kiss","description":"","parents":[]},"tags":[]}}}`})

	m := core.Marker{ID: "m1", SceneID: "12", Title: "Kiss", Seconds: 12,
		PrimaryTag: core.Tag{ID: "2"}, Tags: []core.Tag{{ID: "90"}}}
	got, err := c.UpdateSceneMarker(context.Background(), m.ID, InputFromMarker(m))
	require.NoError(t, err)
	assert.Equal(t, 12.0, got.Seconds)

	input := f.lastVars["input"].(map[string]any)
	assert.Equal(t, "m1", input["id"])
	assert.Nil(t, input["end_seconds"])
	assert.Equal(t, []any{"90"}, input["tag_ids"])
}

func TestDestroySceneMarker(t *testing.T) {
	_, c := newFake(t, map[string]string{"sceneMarkerDestroy": `{"data":{"sceneMarkerDestroy":true}}`})
	require.NoError(t, c.DestroySceneMarker(context.Background(), "m1"))

	_, c = newFake(t, map[string]string{"sceneMarkerDestroy": `{"data":{"sceneMarkerDestroy":false}}`})
	assert.Error(t, c.DestroySceneMarker(context.Background(), "m1"))
}

func TestGraphQLErrors(t *testing.T) {
	_, c := newFake(t, map[string]string{"findTags": `{"data":null,"errors":[{"message":"boom"},{"message":"bang"}]}`})

	_, err := c.FindTags(context.Background())
	var ge *GraphQLError
	require.True(t, errors.As(err, &ge))
	assert.Equal(t, []string{"boom", "bang"}, ge.Messages)
	assert.Contains(t, err.Error(), "boom; bang")
}

func TestHealthcheck(t *testing.T) {
	_, c := newFake(t, map[string]string{"version": `{"data":{"version":{"version":"v0.27.2"}}}`})
	assert.NoError(t, c.Healthcheck(context.Background()))
}

func TestHealthcheck_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	err := New(srv.URL, "").Healthcheck(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
}

func TestHealthcheck_ServerDown(t *testing.T) {
	c := New("http://localhost:59999", "")
	assert.Error(t, c.Healthcheck(context.Background()))
}

func TestHealthcheck_ContextCanceled(t *testing.T) {
	_, c := newFake(t, map[string]string{"version": `{"data":{"version":{"version":"v0.27.2"}}}`})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, c.Healthcheck(ctx), context.Canceled)
}
