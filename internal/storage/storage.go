// internal/storage/storage.go
package storage

import (
	"context"

	"github.com/markerlab/markerlab/pkg/core"
)

// Backend is the interface all storage implementations must satisfy.
// Stash owns markers, tags and performers; a Backend holds everything else.
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Shot boundaries
	ShotBoundaries(ctx context.Context, sceneID string) ([]core.ShotBoundary, error)
	// ApplyShotBoundaryActions applies a plan atomically. Creates get fresh ids,
	// which are returned in action order.
	ApplyShotBoundaryActions(ctx context.Context, sceneID string, actions []core.ShotBoundaryAction) ([]string, error)

	// Derivation rules
	DerivationRules(ctx context.Context) ([]core.DerivedMarkerConfig, error)
	SaveDerivationRule(ctx context.Context, rule *core.DerivedMarkerConfig) error
	DeleteDerivationRule(ctx context.Context, id string) error

	// Materialization records
	MaterializedRuleIDs(ctx context.Context, markerIDs []string) (map[string]map[string]bool, error)
	RecordMaterialization(ctx context.Context, d *core.MaterializedDerivation) error
	// DerivedMarkerIDs reports which of markerIDs were created by materialization.
	DerivedMarkerIDs(ctx context.Context, markerIDs []string) (map[string]bool, error)

	// Slots
	// SlotDefinitionSet returns core.ErrNotFound when the tag has no set.
	SlotDefinitionSet(ctx context.Context, tagID string) (core.SlotDefinitionSet, error)
	SaveSlotDefinitionSet(ctx context.Context, set *core.SlotDefinitionSet) error
	MarkerSlots(ctx context.Context, markerIDs []string) (map[string][]core.SlotAssignment, error)
	SetMarkerSlots(ctx context.Context, markerID string, slots []core.SlotAssignment) error
}
