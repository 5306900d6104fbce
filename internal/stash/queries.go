package stash

import (
	"context"
	"fmt"

	"github.com/markerlab/markerlab/internal/tagmeta"
	"github.com/markerlab/markerlab/pkg/core"
)

const tagFields = `id name description parents { id name description parents { id name description } }`

const markerFields = `id title seconds end_seconds primary_tag { ` + tagFields + ` } tags { ` + tagFields + ` }`

const findSceneQuery = `query FindScene($id: ID!) {
  findScene(id: $id) {
    id title
    files { duration }
    scene_markers { ` + markerFields + ` }
    performers { id name gender }
  }
}`

const findTagsQuery = `query FindTags {
  findTags(filter: { per_page: -1 }) { tags { ` + tagFields + ` } }
}`

const createMarkerMutation = `mutation SceneMarkerCreate($input: SceneMarkerCreateInput!) {
  sceneMarkerCreate(input: $input) { ` + markerFields + ` }
}`

const updateMarkerMutation = `mutation SceneMarkerUpdate($input: SceneMarkerUpdateInput!) {
  sceneMarkerUpdate(input: $input) { ` + markerFields + ` }
}`

const destroyMarkerMutation = `mutation SceneMarkerDestroy($id: ID!) { sceneMarkerDestroy(id: $id) }`

// FindScene loads a scene with its markers, performers and primary file duration.
func (c *Client) FindScene(ctx context.Context, sceneID string) (Scene, error) {
	var out struct {
		FindScene *sceneJSON `json:"findScene"`
	}
	if err := c.do(ctx, findSceneQuery, map[string]any{"id": sceneIDVar(sceneID)}, &out); err != nil {
		return Scene{}, fmt.Errorf("failed to find scene %s: %w", sceneID, err)
	}
	if out.FindScene == nil {
		return Scene{}, fmt.Errorf("scene %s: %w", sceneID, ErrSceneNotFound)
	}
	return out.FindScene.toCore(), nil
}

// FindSceneMarkers returns the markers of one scene.
func (c *Client) FindSceneMarkers(ctx context.Context, sceneID string) ([]core.Marker, error) {
	s, err := c.FindScene(ctx, sceneID)
	if err != nil {
		return nil, err
	}
	return s.Markers, nil
}

// FindScenePerformers returns the performers credited on one scene.
func (c *Client) FindScenePerformers(ctx context.Context, sceneID string) ([]core.Performer, error) {
	s, err := c.FindScene(ctx, sceneID)
	if err != nil {
		return nil, err
	}
	return s.Performers, nil
}

// FindTags returns every tag, normalized.
func (c *Client) FindTags(ctx context.Context) ([]core.Tag, error) {
	var out struct {
		FindTags struct {
			Tags []tagJSON `json:"tags"`
		} `json:"findTags"`
	}
	if err := c.do(ctx, findTagsQuery, nil, &out); err != nil {
		return nil, fmt.Errorf("failed to find tags: %w", err)
	}
	tags := make([]core.Tag, len(out.FindTags.Tags))
	for i, t := range out.FindTags.Tags {
		tags[i] = t.toCore()
	}
	return tagmeta.NormalizeAll(tags), nil
}

// CreateSceneMarker creates a marker and returns it as Stash stored it.
func (c *Client) CreateSceneMarker(ctx context.Context, in MarkerInput) (core.Marker, error) {
	var out struct {
		Marker markerJSON `json:"sceneMarkerCreate"`
	}
	if err := c.do(ctx, createMarkerMutation, map[string]any{"input": in.vars("")}, &out); err != nil {
		return core.Marker{}, fmt.Errorf("failed to create scene marker: %w", err)
	}
	return out.Marker.toCore(in.SceneID), nil
}

func (c *Client) UpdateSceneMarker(ctx context.Context, id string, in MarkerInput) (core.Marker, error) {
	var out struct {
		Marker markerJSON `json:"sceneMarkerUpdate"`
	}
	if err := c.do(ctx, updateMarkerMutation, map[string]any{"input": in.vars(id)}, &out); err != nil {
		return core.Marker{}, fmt.Errorf("failed to update scene marker %s: %w", id, err)
	}
	return out.Marker.toCore(in.SceneID), nil
}

func (c *Client) DestroySceneMarker(ctx context.Context, id string) error {
	var out struct {
		OK bool `json:"sceneMarkerDestroy"`
	}
	if err := c.do(ctx, destroyMarkerMutation, map[string]any{"id": id}, &out); err != nil {
		return fmt.Errorf("failed to destroy scene marker %s: %w", id, err)
	}
	if !out.OK {
		return fmt.Errorf("stash refused to destroy scene marker %s", id)
	}
	return nil
}
