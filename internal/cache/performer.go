package cache

import (
	"sync"

	"github.com/markerlab/markerlab/pkg/core"
)

// PerformerCache maps scene IDs to the performers credited on that scene.
type PerformerCache struct {
	mu      sync.RWMutex
	byScene map[string][]core.Performer
}

func NewPerformerCache() *PerformerCache {
	return &PerformerCache{
		byScene: make(map[string][]core.Performer),
	}
}

// Get retrieves a copy of the scene's performers.
func (c *PerformerCache) Get(sceneID string) ([]core.Performer, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.byScene[sceneID]
	if !ok {
		return nil, false
	}
	return append([]core.Performer(nil), p...), true
}

func (c *PerformerCache) Set(sceneID string, performers []core.Performer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byScene[sceneID] = append([]core.Performer(nil), performers...)
}

// Delete drops one scene, e.g. after its performers were edited in Stash.
func (c *PerformerCache) Delete(sceneID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.byScene, sceneID)
}

func (c *PerformerCache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byScene = make(map[string][]core.Performer)
}
