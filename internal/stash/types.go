package stash

import (
	"strconv"

	"github.com/markerlab/markerlab/internal/tagmeta"
	"github.com/markerlab/markerlab/pkg/core"
)

// Scene is what the worker needs to know about one Stash scene.
type Scene struct {
	ID         string
	Title      string
	Duration   *float64
	Markers    []core.Marker
	Performers []core.Performer
}

// MarkerInput is the writable part of a scene marker.
type MarkerInput struct {
	SceneID      string
	Title        string
	Seconds      float64
	EndSeconds   *float64
	PrimaryTagID string
	TagIDs       []string
}

// InputFromMarker converts a marker into the fields Stash accepts on write.
func InputFromMarker(m core.Marker) MarkerInput {
	in := MarkerInput{
		SceneID:      m.SceneID,
		Title:        m.Title,
		Seconds:      m.Seconds,
		EndSeconds:   m.EndSeconds,
		PrimaryTagID: m.PrimaryTag.ID,
	}
	for _, t := range m.Tags {
		in.TagIDs = append(in.TagIDs, t.ID)
	}
	return in
}

func (in MarkerInput) vars(id string) map[string]any {
	tagIDs := in.TagIDs
	if tagIDs == nil {
		tagIDs = []string{}
	}
	v := map[string]any{
		"scene_id":       in.SceneID,
		"title":          in.Title,
		"seconds":        in.Seconds,
		"end_seconds":    in.EndSeconds,
		"primary_tag_id": in.PrimaryTagID,
		"tag_ids":        tagIDs,
	}
	if id != "" {
		v["id"] = id
	}
	return v
}

type tagJSON struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Parents     []tagJSON `json:"parents"`
}

func (t tagJSON) toCore() core.Tag {
	out := core.Tag{ID: t.ID, Name: t.Name, Description: t.Description}
	for _, p := range t.Parents {
		out.Parents = append(out.Parents, p.toCore())
	}
	return out
}

type markerJSON struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Seconds    float64   `json:"seconds"`
	EndSeconds *float64  `json:"end_seconds"`
	PrimaryTag tagJSON   `json:"primary_tag"`
	Tags       []tagJSON `json:"tags"`
}

func (m markerJSON) toCore(sceneID string) core.Marker {
	out := core.Marker{
		ID:         m.ID,
		SceneID:    sceneID,
		Title:      m.Title,
		Seconds:    m.Seconds,
		EndSeconds: m.EndSeconds,
		PrimaryTag: m.PrimaryTag.toCore(),
	}
	for _, t := range m.Tags {
		out.Tags = append(out.Tags, t.toCore())
	}
	return tagmeta.NormalizeMarker(out)
}

type performerJSON struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Gender string `json:"gender"`
}

type sceneJSON struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Files []struct {
		Duration float64 `json:"duration"`
	} `json:"files"`
	SceneMarkers []markerJSON    `json:"scene_markers"`
	Performers   []performerJSON `json:"performers"`
}

func (s sceneJSON) toCore() Scene {
	out := Scene{ID: s.ID, Title: s.Title}
	if len(s.Files) > 0 && s.Files[0].Duration > 0 {
		d := s.Files[0].Duration
		out.Duration = &d
	}
	for _, m := range s.SceneMarkers {
		out.Markers = append(out.Markers, m.toCore(s.ID))
	}
	for _, p := range s.Performers {
		out.Performers = append(out.Performers, core.Performer{
			ID:     p.ID,
			Name:   p.Name,
			Gender: core.ParseGender(p.Gender),
		})
	}
	return out
}

// sceneIDVar passes numeric ids as numbers, which older Stash versions require.
func sceneIDVar(id string) any {
	if n, err := strconv.Atoi(id); err == nil {
		return n
	}
	return id
}
