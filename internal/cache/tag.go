package cache

import (
	"sort"
	"strings"
	"sync"

	"github.com/markerlab/markerlab/internal/tagmeta"
	"github.com/markerlab/markerlab/pkg/core"
)

// TagCache holds the Stash tag catalogue so swimlane and derivation requests
// don't round-trip to Stash for every marker. Tags are normalized on the way in.
type TagCache struct {
	mu     sync.RWMutex
	byID   map[string]core.Tag
	byName map[string]string
	loaded bool
}

func NewTagCache() *TagCache {
	return &TagCache{
		byID:   make(map[string]core.Tag),
		byName: make(map[string]string),
	}
}

// Load replaces the cached catalogue.
func (c *TagCache) Load(tags []core.Tag) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byID = make(map[string]core.Tag, len(tags))
	c.byName = make(map[string]string, len(tags))
	for _, t := range tagmeta.NormalizeAll(tags) {
		c.byID[t.ID] = t
		c.byName[strings.ToLower(t.Name)] = t.ID
	}
	c.loaded = true
}

// Loaded reports whether Load has been called since the last Reset.
func (c *TagCache) Loaded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loaded
}

func (c *TagCache) Get(id string) (core.Tag, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.byID[id]
	return t, ok
}

// ByName looks a tag up case-insensitively.
func (c *TagCache) ByName(name string) (core.Tag, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	id, ok := c.byName[strings.ToLower(name)]
	if !ok {
		return core.Tag{}, false
	}
	return c.byID[id], true
}

// Names maps every cached tag id to its name.
func (c *TagCache) Names() map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]string, len(c.byID))
	for id, t := range c.byID {
		out[id] = t.Name
	}
	return out
}

// Children returns the tags with parentID among their direct parents, ordered by name.
func (c *TagCache) Children(parentID string) []core.Tag {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []core.Tag
	for _, t := range c.byID {
		for _, p := range t.Parents {
			if p.ID == parentID {
				out = append(out, t)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (c *TagCache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byID = make(map[string]core.Tag)
	c.byName = make(map[string]string)
	c.loaded = false
}
