package timeline

import (
	"log/slog"
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/markerlab/markerlab/pkg/core"
)

// MarkerGroupPrefix starts the name of every marker-group tag.
const MarkerGroupPrefix = "Marker Group: "

// MarkerGroup is the coarse category a swimlane belongs to.
type MarkerGroup struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
}

// TagGroup is one swimlane: markers sharing a (possibly redirected) tag name.
type TagGroup struct {
	Name        string
	Tags        []core.Tag
	Markers     []core.Marker
	IsRejected  bool
	MarkerGroup *MarkerGroup
}

type groupConfig struct {
	markerGroups map[string]core.Tag
	tagSorting   map[string][]string
	status       core.StatusTags
	logger       *slog.Logger
}

// GroupOption configures GroupMarkersByTags.
type GroupOption func(*groupConfig)

// WithMarkerGroups supplies the known marker-group tags; their names take
// precedence over the copies embedded in marker parent chains.
func WithMarkerGroups(tags []core.Tag) GroupOption {
	return func(c *groupConfig) {
		for _, t := range tags {
			c.markerGroups[t.ID] = t
		}
	}
}

// WithTagSorting supplies manual tag orders keyed by marker-group tag id.
func WithTagSorting(sorting map[string][]string) GroupOption {
	return func(c *groupConfig) {
		c.tagSorting = sorting
	}
}

// WithStatusTags sets the tags used to detect rejected markers.
func WithStatusTags(s core.StatusTags) GroupOption {
	return func(c *groupConfig) {
		c.status = s
	}
}

// WithLogger enables debug logging of the grouping result.
func WithLogger(l *slog.Logger) GroupOption {
	return func(c *groupConfig) {
		c.logger = l
	}
}

// SwimlaneName is the name a marker groups under: the corresponding tag if its
// primary tag redirects, otherwise the primary tag's own name.
func SwimlaneName(m core.Marker) string {
	if m.PrimaryTag.CorrespondingTagName != "" {
		return m.PrimaryTag.CorrespondingTagName
	}
	return m.PrimaryTag.Name
}

// ResolveMarkerGroup walks the parent chain of tag looking for a marker-group tag,
// i.e. a parent named with MarkerGroupPrefix whose own parent is markerGroupParentID.
func ResolveMarkerGroup(tag core.Tag, markerGroupParentID string) (core.Tag, bool) {
	if markerGroupParentID == "" {
		return core.Tag{}, false
	}

	queue := append([]core.Tag(nil), tag.Parents...)
	seen := make(map[string]bool)
	for len(queue) > 0 {
		p := queue[0]
		queue = queue[1:]
		if seen[p.ID] {
			continue
		}
		seen[p.ID] = true

		if strings.HasPrefix(p.Name, MarkerGroupPrefix) {
			for _, gp := range p.Parents {
				if gp.ID == markerGroupParentID {
					return p, true
				}
			}
		}
		queue = append(queue, p.Parents...)
	}
	return core.Tag{}, false
}

// GroupMarkersByTags buckets markers into swimlanes and orders them: swimlanes with
// a marker group first (by group name, then manual tag order, then name), the rest
// by name. Name comparisons use natural ordering ("2." before "10.").
func GroupMarkersByTags(markers []core.Marker, markerGroupParentID string, opts ...GroupOption) []TagGroup {
	cfg := &groupConfig{markerGroups: make(map[string]core.Tag)}
	for _, opt := range opts {
		opt(cfg)
	}

	var groups []*TagGroup
	byName := make(map[string]*TagGroup)
	tagSeen := make(map[*TagGroup]map[string]bool)

	for _, m := range markers {
		name := SwimlaneName(m)
		g, ok := byName[name]
		if !ok {
			g = &TagGroup{Name: name}
			byName[name] = g
			tagSeen[g] = make(map[string]bool)
			groups = append(groups, g)
		}
		g.Markers = append(g.Markers, m)
		if !tagSeen[g][m.PrimaryTag.ID] {
			tagSeen[g][m.PrimaryTag.ID] = true
			g.Tags = append(g.Tags, m.PrimaryTag)
		}
	}

	for _, g := range groups {
		g.IsRejected = true
		for _, m := range g.Markers {
			if cfg.status.Status(m) != core.StatusRejected {
				g.IsRejected = false
				break
			}
		}
		sort.SliceStable(g.Markers, func(i, j int) bool {
			return g.Markers[i].Seconds < g.Markers[j].Seconds
		})
		g.MarkerGroup = cfg.markerGroupFor(g, markerGroupParentID)
	}

	coll := collate.New(language.English, collate.Numeric)
	compare := func(a, b string) int {
		if c := coll.CompareString(a, b); c != 0 {
			return c
		}
		return strings.Compare(a, b)
	}

	sort.SliceStable(groups, func(i, j int) bool {
		return cfg.less(groups[i], groups[j], compare)
	})

	out := make([]TagGroup, len(groups))
	for i, g := range groups {
		out[i] = *g
	}

	if cfg.logger != nil {
		cfg.logger.Debug("grouped markers into swimlanes", "markers", len(markers), "swimlanes", len(out))
	}
	return out
}

func (c *groupConfig) markerGroupFor(g *TagGroup, parentID string) *MarkerGroup {
	if len(g.Markers) == 0 {
		return nil
	}
	// the earliest marker decides
	tag, ok := ResolveMarkerGroup(g.Markers[0].PrimaryTag, parentID)
	if !ok {
		return nil
	}
	if known, ok := c.markerGroups[tag.ID]; ok && known.Name != "" {
		tag = known
	}
	return &MarkerGroup{
		ID:          tag.ID,
		Name:        tag.Name,
		DisplayName: strings.TrimPrefix(tag.Name, MarkerGroupPrefix),
	}
}

func (c *groupConfig) less(a, b *TagGroup, compare func(string, string) int) bool {
	ga, gb := a.MarkerGroup, b.MarkerGroup
	switch {
	case ga != nil && gb == nil:
		return true
	case ga == nil && gb != nil:
		return false
	case ga == nil && gb == nil:
		return compare(a.Name, b.Name) < 0
	}

	if ga.ID != gb.ID {
		if cmp := compare(ga.Name, gb.Name); cmp != 0 {
			return cmp < 0
		}
		return ga.ID < gb.ID
	}

	if order := c.tagSorting[ga.ID]; len(order) > 0 {
		pa, pb := sortPosition(a, order), sortPosition(b, order)
		switch {
		case pa >= 0 && pb < 0:
			return true
		case pa < 0 && pb >= 0:
			return false
		case pa != pb:
			return pa < pb
		}
	}

	return compare(a.Name, b.Name) < 0
}

// sortPosition is the lowest index in order of any tag in the group, or -1.
func sortPosition(g *TagGroup, order []string) int {
	best := -1
	for _, t := range g.Tags {
		for i, id := range order {
			if id == t.ID && (best < 0 || i < best) {
				best = i
			}
		}
	}
	return best
}
