package worker

import (
	"context"

	"github.com/markerlab/markerlab/internal/timeline"
)

// View is the viewport the caller renders into. A nil View skips geometry.
type View struct {
	Zoom           float64 `json:"zoom"`
	ContainerWidth float64 `json:"containerWidth"`
	LabelWidth     float64 `json:"labelWidth"`
}

// LaneMarker is one marker as drawn in a swimlane.
type LaneMarker struct {
	ID         string              `json:"id"`
	Title      string              `json:"title"`
	TagID      string              `json:"tagId"`
	Seconds    float64             `json:"seconds"`
	EndSeconds *float64            `json:"endSeconds,omitempty"`
	Track      int                 `json:"track"`
	Status     string              `json:"status"`
	Box        *timeline.MarkerBox `json:"box,omitempty"`
}

type Swimlane struct {
	Name        string                `json:"name"`
	MarkerGroup *timeline.MarkerGroup `json:"markerGroup,omitempty"`
	IsRejected  bool                  `json:"isRejected"`
	TrackCount  int                   `json:"trackCount"`
	Markers     []LaneMarker          `json:"markers"`
}

// Swimlanes is the full timeline of one scene.
type Swimlanes struct {
	SceneID  string          `json:"sceneId"`
	Duration *float64        `json:"duration,omitempty"`
	Width    *timeline.Width `json:"width,omitempty"`
	Lanes    []Swimlane      `json:"lanes"`
}

// SceneSwimlanes groups the scene's markers into swimlanes and assigns tracks.
func (m *Manager) SceneSwimlanes(ctx context.Context, sceneID string, view *View) (Swimlanes, error) {
	scene, err := m.loadScene(ctx, sceneID)
	if err != nil {
		return Swimlanes{}, err
	}

	groups := timeline.GroupMarkersByTags(scene.Markers, m.deps.Config.Tags.MarkerGroupParent, m.groupingOptions()...)
	tracked := timeline.CreateSwimlanes(groups)
	counts := timeline.GetTrackCountsByGroup(groups, tracked)

	out := Swimlanes{SceneID: sceneID, Duration: scene.Duration, Lanes: make([]Swimlane, len(groups))}
	if view != nil && scene.Duration != nil {
		w := m.layout.CalculateTimelineWidth(*scene.Duration, view.Zoom, view.ContainerWidth, view.LabelWidth)
		out.Width = &w
	}

	for i, g := range groups {
		out.Lanes[i] = Swimlane{
			Name:        g.Name,
			MarkerGroup: g.MarkerGroup,
			IsRejected:  g.IsRejected,
			TrackCount:  counts[i],
			Markers:     []LaneMarker{},
		}
	}

	status := m.status()
	for _, t := range tracked {
		lm := LaneMarker{
			ID:         t.ID,
			Title:      t.Title,
			TagID:      t.PrimaryTag.ID,
			Seconds:    t.Seconds,
			EndSeconds: t.EndSeconds,
			Track:      t.Track,
			Status:     status.Status(t.Marker).String(),
		}
		if out.Width != nil {
			box := m.layout.CalculateMarkerPosition(t.Marker, out.Width.PixelsPerSecond)
			lm.Box = &box
		}
		lane := &out.Lanes[t.SwimlaneIndex]
		lane.Markers = append(lane.Markers, lm)
	}
	return out, nil
}
