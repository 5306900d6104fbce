package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/markerlab/markerlab/internal/cache"
	"github.com/markerlab/markerlab/internal/config"
	"github.com/markerlab/markerlab/internal/influx"
	"github.com/markerlab/markerlab/internal/logging"
	"github.com/markerlab/markerlab/internal/shotboundary"
	"github.com/markerlab/markerlab/internal/stash"
	"github.com/markerlab/markerlab/internal/storage"
	"github.com/markerlab/markerlab/internal/tagmeta"
	"github.com/markerlab/markerlab/internal/timeline"
	"github.com/markerlab/markerlab/pkg/core"
)

// ErrMarkerNotFound is returned when a marker id is not part of the scene.
var ErrMarkerNotFound = errors.New("marker not found in scene")

// StashClient is the part of the Stash API the worker uses.
type StashClient interface {
	FindScene(ctx context.Context, sceneID string) (stash.Scene, error)
	FindTags(ctx context.Context) ([]core.Tag, error)
	CreateSceneMarker(ctx context.Context, in stash.MarkerInput) (core.Marker, error)
	UpdateSceneMarker(ctx context.Context, id string, in stash.MarkerInput) (core.Marker, error)
	DestroySceneMarker(ctx context.Context, id string) error
}

// Dependencies holds all dependencies for the worker manager
type Dependencies struct {
	Stash      StashClient
	Backend    storage.Backend
	Tags       *cache.TagCache
	Performers *cache.PerformerCache
	LogManager *logging.SlogManager
	Activity   influx.Recorder
	Config     config.Settings
}

// Manager runs the review operations of one markerlab instance. It combines
// Stash data with local storage and hands both to the pure engines.
type Manager struct {
	deps    Dependencies
	planner shotboundary.Planner
	layout  timeline.Layout
}

// NewManager creates a new worker manager
func NewManager(deps Dependencies) *Manager {
	if deps.Tags == nil {
		deps.Tags = cache.NewTagCache()
	}
	if deps.Performers == nil {
		deps.Performers = cache.NewPerformerCache()
	}
	if deps.LogManager == nil {
		deps.LogManager = logging.NewSlogManager()
	}
	if deps.Activity == nil {
		deps.Activity = influx.Nop{}
	}

	planner := shotboundary.DefaultPlanner()
	if deps.Config.Shots.DefaultWindow > 0 {
		planner.DefaultWindow = deps.Config.Shots.DefaultWindow
	}
	if deps.Config.Shots.RemoveTolerance > 0 {
		planner.RemoveTolerance = deps.Config.Shots.RemoveTolerance
	}

	layout := timeline.DefaultLayout()
	tl := deps.Config.Timeline
	if tl.PixelsPerMinute > 0 {
		layout.FallbackPixelsPerMinute = tl.PixelsPerMinute
	}
	if tl.FitTolerance > 0 {
		layout.FitTolerance = tl.FitTolerance
	}
	if tl.MinMarkerWidth > 0 {
		layout.MinMarkerWidth = tl.MinMarkerWidth
	}
	if tl.PointMarkerDuration > 0 {
		layout.PointMarkerDuration = tl.PointMarkerDuration
	}

	return &Manager{deps: deps, planner: planner, layout: layout}
}

func (m *Manager) logger() *slog.Logger {
	return m.deps.LogManager.Logger()
}

func (m *Manager) status() core.StatusTags {
	return core.StatusTags{
		ConfirmedTagID: m.deps.Config.Tags.Confirmed,
		RejectedTagID:  m.deps.Config.Tags.Rejected,
	}
}

func (m *Manager) record(ctx context.Context, a influx.Activity) {
	if err := m.deps.Activity.Record(ctx, a); err != nil {
		m.logger().WarnContext(ctx, "failed to record activity", "kind", a.Kind, "error", err)
	}
}

// RefreshTags reloads the tag catalogue from Stash.
func (m *Manager) RefreshTags(ctx context.Context) error {
	tags, err := m.deps.Stash.FindTags(ctx)
	if err != nil {
		return err
	}
	m.deps.Tags.Load(tags)
	m.logger().DebugContext(ctx, "tag catalogue loaded", "tags", len(tags))
	return nil
}

// loadScene fetches the scene, and the tag catalogue when it is not cached yet,
// and attaches locally stored slot assignments to its markers.
func (m *Manager) loadScene(ctx context.Context, sceneID string) (stash.Scene, error) {
	var scene stash.Scene

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		scene, err = m.deps.Stash.FindScene(gctx, sceneID)
		return err
	})
	if !m.deps.Tags.Loaded() {
		g.Go(func() error { return m.RefreshTags(gctx) })
	}
	if err := g.Wait(); err != nil {
		return stash.Scene{}, err
	}

	m.deps.Performers.Set(sceneID, scene.Performers)

	ids := make([]string, len(scene.Markers))
	for i, mk := range scene.Markers {
		ids[i] = mk.ID
	}
	slots, err := m.deps.Backend.MarkerSlots(ctx, ids)
	if err != nil {
		return stash.Scene{}, err
	}
	for i := range scene.Markers {
		scene.Markers[i].Slots = slots[scene.Markers[i].ID]
	}
	return scene, nil
}

func findMarker(markers []core.Marker, id string) (core.Marker, error) {
	for _, mk := range markers {
		if mk.ID == id {
			return mk, nil
		}
	}
	return core.Marker{}, fmt.Errorf("%s: %w", id, ErrMarkerNotFound)
}

// groupingOptions orders swimlanes with the configured marker groups.
func (m *Manager) groupingOptions() []timeline.GroupOption {
	groups := m.deps.Tags.Children(m.deps.Config.Tags.MarkerGroupParent)
	return []timeline.GroupOption{
		timeline.WithMarkerGroups(groups),
		timeline.WithTagSorting(tagmeta.TagSorting(groups)),
		timeline.WithStatusTags(m.status()),
		timeline.WithLogger(m.logger()),
	}
}
