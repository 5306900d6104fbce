// internal/storage/memory/memory.go
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/markerlab/markerlab/pkg/core"
)

// Backend keeps everything in maps. When a snapshot path is set, state is
// loaded from it on Init and written back on Close.
type Backend struct {
	snapshotPath string

	boundaries  map[string]core.ShotBoundary        // keyed by boundary id
	rules       map[string]core.DerivedMarkerConfig // keyed by rule id
	derivations []core.MaterializedDerivation
	slotSets    map[string]core.SlotDefinitionSet // keyed by tag id
	markerSlots map[string][]core.SlotAssignment  // keyed by marker id

	mu sync.RWMutex
}

// New creates a memory backend. snapshotPath may be empty.
func New(snapshotPath string) *Backend {
	return &Backend{
		snapshotPath: snapshotPath,
		boundaries:   make(map[string]core.ShotBoundary),
		rules:        make(map[string]core.DerivedMarkerConfig),
		slotSets:     make(map[string]core.SlotDefinitionSet),
		markerSlots:  make(map[string][]core.SlotAssignment),
	}
}

// Init loads the snapshot, if configured and present.
func (b *Backend) Init() error {
	if b.snapshotPath == "" {
		return nil
	}
	return b.load()
}

// Close writes the snapshot, if configured.
func (b *Backend) Close() error {
	if b.snapshotPath == "" {
		return nil
	}
	return b.save()
}

func cloneBoundary(s core.ShotBoundary) core.ShotBoundary {
	if s.EndTime != nil {
		s.EndTime = core.Float(*s.EndTime)
	}
	return s
}

func (b *Backend) ShotBoundaries(_ context.Context, sceneID string) ([]core.ShotBoundary, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var out []core.ShotBoundary
	for _, s := range b.boundaries {
		if s.SceneID == sceneID {
			out = append(out, cloneBoundary(s))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime < out[j].StartTime })
	return out, nil
}

// ApplyShotBoundaryActions validates every action before touching state, so a
// failing plan leaves the store unchanged.
func (b *Backend) ApplyShotBoundaryActions(_ context.Context, sceneID string, actions []core.ShotBoundaryAction) ([]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, a := range actions {
		switch a.Type {
		case core.ActionCreate:
		case core.ActionUpdate, core.ActionDelete:
			if s, ok := b.boundaries[a.ID]; !ok || s.SceneID != sceneID {
				return nil, fmt.Errorf("shot boundary %s: %w", a.ID, core.ErrNotFound)
			}
		default:
			return nil, fmt.Errorf("unknown action type: %s", a.Type)
		}
	}

	var created []string
	for _, a := range actions {
		switch a.Type {
		case core.ActionCreate:
			id := uuid.NewString()
			b.boundaries[id] = cloneBoundary(core.ShotBoundary{
				ID:        id,
				SceneID:   sceneID,
				StartTime: a.StartTime,
				EndTime:   a.EndTime,
				Source:    core.SourceManual,
			})
			created = append(created, id)
		case core.ActionUpdate:
			s := b.boundaries[a.ID]
			s.StartTime = a.StartTime
			s.EndTime = a.EndTime
			b.boundaries[a.ID] = cloneBoundary(s)
		case core.ActionDelete:
			delete(b.boundaries, a.ID)
		}
	}
	return created, nil
}

func (b *Backend) DerivationRules(_ context.Context) ([]core.DerivedMarkerConfig, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]core.DerivedMarkerConfig, 0, len(b.rules))
	for _, r := range b.rules {
		r.SlotMappings = append([]core.SlotMapping(nil), r.SlotMappings...)
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RuleID() < out[j].RuleID() })
	return out, nil
}

// SaveDerivationRule inserts or updates a rule. A rule for an existing
// source/derived pair replaces it.
func (b *Backend) SaveDerivationRule(_ context.Context, rule *core.DerivedMarkerConfig) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if rule.RelationshipType == "" {
		rule.RelationshipType = core.RelationshipImplies
	}
	for id, r := range b.rules {
		if r.RuleID() == rule.RuleID() && id != rule.ID {
			if rule.ID == "" {
				rule.ID = id
			} else {
				delete(b.rules, id)
			}
		}
	}
	if rule.ID == "" {
		rule.ID = uuid.NewString()
	}
	stored := *rule
	stored.SlotMappings = append([]core.SlotMapping(nil), rule.SlotMappings...)
	b.rules[rule.ID] = stored
	return nil
}

func (b *Backend) DeleteDerivationRule(_ context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.rules[id]; !ok {
		return fmt.Errorf("derivation rule %s: %w", id, core.ErrNotFound)
	}
	delete(b.rules, id)
	return nil
}

func (b *Backend) MaterializedRuleIDs(_ context.Context, markerIDs []string) (map[string]map[string]bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	wanted := make(map[string]bool, len(markerIDs))
	for _, id := range markerIDs {
		wanted[id] = true
	}
	out := make(map[string]map[string]bool)
	for _, d := range b.derivations {
		if !wanted[d.SourceMarkerID] {
			continue
		}
		if out[d.SourceMarkerID] == nil {
			out[d.SourceMarkerID] = make(map[string]bool)
		}
		out[d.SourceMarkerID][d.RuleID] = true
	}
	return out, nil
}

func (b *Backend) RecordMaterialization(_ context.Context, d *core.MaterializedDerivation) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	b.derivations = append(b.derivations, *d)
	return nil
}

func (b *Backend) DerivedMarkerIDs(_ context.Context, markerIDs []string) (map[string]bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	wanted := make(map[string]bool, len(markerIDs))
	for _, id := range markerIDs {
		wanted[id] = true
	}
	out := make(map[string]bool)
	for _, d := range b.derivations {
		if wanted[d.DerivedMarkerID] {
			out[d.DerivedMarkerID] = true
		}
	}
	return out, nil
}

func (b *Backend) SlotDefinitionSet(_ context.Context, tagID string) (core.SlotDefinitionSet, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	s, ok := b.slotSets[tagID]
	if !ok {
		return core.SlotDefinitionSet{}, fmt.Errorf("slot definition set for tag %s: %w", tagID, core.ErrNotFound)
	}
	s.Slots = append([]core.SlotDefinition(nil), s.Slots...)
	return s, nil
}

// SaveSlotDefinitionSet replaces the set for set.TagID, assigning ids to the
// set and any slot without one.
func (b *Backend) SaveSlotDefinitionSet(_ context.Context, set *core.SlotDefinitionSet) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if existing, ok := b.slotSets[set.TagID]; ok && set.ID == "" {
		set.ID = existing.ID
	}
	if set.ID == "" {
		set.ID = uuid.NewString()
	}
	for i := range set.Slots {
		if set.Slots[i].ID == "" {
			set.Slots[i].ID = uuid.NewString()
		}
		set.Slots[i].TagID = set.TagID
		set.Slots[i].Order = i
	}
	stored := *set
	stored.Slots = append([]core.SlotDefinition(nil), set.Slots...)
	b.slotSets[set.TagID] = stored
	return nil
}

func (b *Backend) MarkerSlots(_ context.Context, markerIDs []string) (map[string][]core.SlotAssignment, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make(map[string][]core.SlotAssignment)
	for _, id := range markerIDs {
		if s, ok := b.markerSlots[id]; ok {
			out[id] = append([]core.SlotAssignment(nil), s...)
		}
	}
	return out, nil
}

func (b *Backend) SetMarkerSlots(_ context.Context, markerID string, slots []core.SlotAssignment) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(slots) == 0 {
		delete(b.markerSlots, markerID)
		return nil
	}
	b.markerSlots[markerID] = append([]core.SlotAssignment(nil), slots...)
	return nil
}
