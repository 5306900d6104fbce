// internal/storage/storage_test.go
package storage_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markerlab/markerlab/internal/config"
	"github.com/markerlab/markerlab/internal/shotboundary"
	"github.com/markerlab/markerlab/internal/storage"
	"github.com/markerlab/markerlab/pkg/core"
)

// backends returns one initialized instance of every backend the factory can
// build without a Postgres server.
func backends(t *testing.T) map[string]storage.Backend {
	t.Helper()
	out := make(map[string]storage.Backend)
	for _, cfg := range []config.StorageConfig{
		{Type: "memory"},
		{Type: "sqlite", SQLitePath: filepath.Join(t.TempDir(), "markerlab.db")},
	} {
		b, err := storage.NewBackend(cfg, storage.Dependencies{})
		require.NoError(t, err)
		require.NoError(t, b.Init())
		t.Cleanup(func() { b.Close() })
		out[cfg.Type] = b
	}
	return out
}

func TestNewBackend_UnknownType(t *testing.T) {
	_, err := storage.NewBackend(config.StorageConfig{Type: "tape"}, storage.Dependencies{})
	assert.Error(t, err)
}

func TestShotBoundaryPlans(t *testing.T) {
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			plan, err := shotboundary.PlanAddShotBoundaryAtPlayhead(nil, 30, nil)
			require.NoError(t, err)
			ids, err := b.ApplyShotBoundaryActions(ctx, "scene-1", plan.Actions)
			require.NoError(t, err)
			assert.Len(t, ids, 2)

			got, err := b.ShotBoundaries(ctx, "scene-1")
			require.NoError(t, err)
			require.Len(t, got, 2)
			assert.Equal(t, 0.0, got[0].StartTime)
			assert.Equal(t, 30.0, *got[0].EndTime)
			assert.Equal(t, 30.0, got[1].StartTime)
			assert.Equal(t, 50.0, *got[1].EndTime)

			plan, err = shotboundary.PlanAddShotBoundaryAtPlayhead(got, 40, nil)
			require.NoError(t, err)
			require.Equal(t, shotboundary.OutcomeSplitExisting, plan.Outcome)
			_, err = b.ApplyShotBoundaryActions(ctx, "scene-1", plan.Actions)
			require.NoError(t, err)

			got, _ = b.ShotBoundaries(ctx, "scene-1")
			require.Len(t, got, 3)

			plan, err = shotboundary.PlanRemoveShotBoundaryMarker(got, 40, nil)
			require.NoError(t, err)
			require.Equal(t, shotboundary.OutcomeMergeWithPrevious, plan.Outcome)
			_, err = b.ApplyShotBoundaryActions(ctx, "scene-1", plan.Actions)
			require.NoError(t, err)

			got, _ = b.ShotBoundaries(ctx, "scene-1")
			require.Len(t, got, 2)
			assert.Equal(t, 50.0, *got[1].EndTime)

			other, _ := b.ShotBoundaries(ctx, "scene-2")
			assert.Empty(t, other)
		})
	}
}

func TestApplyShotBoundaryActions_MissingID(t *testing.T) {
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			_, err := b.ApplyShotBoundaryActions(ctx, "scene-1", []core.ShotBoundaryAction{
				{Type: core.ActionCreate, StartTime: 0, EndTime: core.Float(5)},
				{Type: core.ActionUpdate, ID: "nope", StartTime: 0, EndTime: core.Float(1)},
			})
			require.ErrorIs(t, err, core.ErrNotFound)

			got, _ := b.ShotBoundaries(ctx, "scene-1")
			assert.Empty(t, got, "the create is rolled back")
		})
	}
}

func TestDerivationRules(t *testing.T) {
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			r1 := &core.DerivedMarkerConfig{SourceTagID: "10", DerivedTagID: "20",
				SlotMappings: []core.SlotMapping{{FromSlotID: "a", ToSlotID: "b"}}}
			require.NoError(t, b.SaveDerivationRule(ctx, r1))
			assert.NotEmpty(t, r1.ID)
			assert.Equal(t, core.RelationshipImplies, r1.RelationshipType)

			r2 := &core.DerivedMarkerConfig{SourceTagID: "20", DerivedTagID: "30"}
			require.NoError(t, b.SaveDerivationRule(ctx, r2))

			again := &core.DerivedMarkerConfig{SourceTagID: "10", DerivedTagID: "20"}
			require.NoError(t, b.SaveDerivationRule(ctx, again))
			assert.Equal(t, r1.ID, again.ID, "same pair updates in place")

			rules, err := b.DerivationRules(ctx)
			require.NoError(t, err)
			require.Len(t, rules, 2)
			assert.Equal(t, "10->20", rules[0].RuleID())
			assert.Empty(t, rules[0].SlotMappings)
			assert.Equal(t, "20->30", rules[1].RuleID())

			require.NoError(t, b.DeleteDerivationRule(ctx, r2.ID))
			assert.ErrorIs(t, b.DeleteDerivationRule(ctx, r2.ID), core.ErrNotFound)

			rules, _ = b.DerivationRules(ctx)
			assert.Len(t, rules, 1)
		})
	}
}

func TestMaterializations(t *testing.T) {
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			require.NoError(t, b.RecordMaterialization(ctx, &core.MaterializedDerivation{SourceMarkerID: "m1", DerivedMarkerID: "m9", RuleID: "1->2"}))
			require.NoError(t, b.RecordMaterialization(ctx, &core.MaterializedDerivation{SourceMarkerID: "m1", DerivedMarkerID: "m10", RuleID: "2->3", Depth: 1}))
			require.NoError(t, b.RecordMaterialization(ctx, &core.MaterializedDerivation{SourceMarkerID: "m2", DerivedMarkerID: "m11", RuleID: "1->2"}))

			got, err := b.MaterializedRuleIDs(ctx, []string{"m1", "m3"})
			require.NoError(t, err)
			assert.Equal(t, map[string]map[string]bool{"m1": {"1->2": true, "2->3": true}}, got)

			derived, err := b.DerivedMarkerIDs(ctx, []string{"m1", "m9", "m10", "m11"})
			require.NoError(t, err)
			assert.Equal(t, map[string]bool{"m9": true, "m10": true, "m11": true}, derived)

			empty, err := b.MaterializedRuleIDs(ctx, nil)
			require.NoError(t, err)
			assert.Empty(t, empty)
		})
	}
}

func TestSlotDefinitionSets(t *testing.T) {
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, err := b.SlotDefinitionSet(ctx, "7")
			require.ErrorIs(t, err, core.ErrNotFound)

			set := &core.SlotDefinitionSet{TagID: "7", Slots: []core.SlotDefinition{
				{Label: "Giver", GenderHints: []core.Gender{core.GenderFemale}},
				{Label: "Receiver"},
			}}
			require.NoError(t, b.SaveSlotDefinitionSet(ctx, set))
			assert.NotEmpty(t, set.ID)
			require.NotEmpty(t, set.Slots[0].ID)

			got, err := b.SlotDefinitionSet(ctx, "7")
			require.NoError(t, err)
			require.Len(t, got.Slots, 2)
			assert.Equal(t, "Giver", got.Slots[0].Label)
			assert.Equal(t, []core.Gender{core.GenderFemale}, got.Slots[0].GenderHints)
			assert.Equal(t, "7", got.Slots[1].TagID)

			replacement := &core.SlotDefinitionSet{TagID: "7", AllowSamePerformerInMultipleSlots: true,
				Slots: []core.SlotDefinition{{Label: "Solo"}}}
			require.NoError(t, b.SaveSlotDefinitionSet(ctx, replacement))
			assert.Equal(t, set.ID, replacement.ID)

			got, _ = b.SlotDefinitionSet(ctx, "7")
			assert.True(t, got.AllowSamePerformerInMultipleSlots)
			require.Len(t, got.Slots, 1)
			assert.Equal(t, "Solo", got.Slots[0].Label)
		})
	}
}

func TestMarkerSlots(t *testing.T) {
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			slots := []core.SlotAssignment{{SlotDefinitionID: "a", PerformerID: "p1"}, {SlotDefinitionID: "b", PerformerID: "p2"}}
			require.NoError(t, b.SetMarkerSlots(ctx, "m1", slots))

			got, err := b.MarkerSlots(ctx, []string{"m1", "m2"})
			require.NoError(t, err)
			assert.Equal(t, map[string][]core.SlotAssignment{"m1": slots}, got)

			require.NoError(t, b.SetMarkerSlots(ctx, "m1", slots[1:]))
			got, _ = b.MarkerSlots(ctx, []string{"m1"})
			assert.Equal(t, slots[1:], got["m1"])

			require.NoError(t, b.SetMarkerSlots(ctx, "m1", nil))
			got, _ = b.MarkerSlots(ctx, []string{"m1"})
			assert.Empty(t, got)
		})
	}
}
