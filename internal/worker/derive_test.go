package worker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markerlab/markerlab/pkg/core"
)

func saveRules(t *testing.T, f *fixture) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, f.manager.SaveDerivationRule(ctx, &core.DerivedMarkerConfig{
		SourceTagID: kissTag.ID, DerivedTagID: kissingTag.ID,
		SlotMappings: []core.SlotMapping{{FromSlotID: "giver", ToSlotID: "kisser"}},
	}))
	require.NoError(t, f.manager.SaveDerivationRule(ctx, &core.DerivedMarkerConfig{
		SourceTagID: kissingTag.ID, DerivedTagID: touchTag.ID,
	}))
}

func TestAnalyzeScene(t *testing.T) {
	f := newFixture(t)
	saveRules(t, f)

	a, err := f.manager.AnalyzeScene(context.Background(), "s1")
	require.NoError(t, err)

	require.Len(t, a.Materializable, 2)
	assert.Equal(t, "m1", a.Materializable[0].Marker.ID)
	assert.Equal(t, 2, a.Materializable[0].NewDerivationsCount)
	assert.Equal(t, []string{"Kissing", "Touch"}, a.Materializable[0].DerivedTagNames)

	require.Len(t, a.Skipped, 1)
	assert.Equal(t, "m3", a.Skipped[0].Marker.ID)
}

func TestMaterializeScene_Idempotent(t *testing.T) {
	f := newFixture(t)
	saveRules(t, f)
	ctx := context.Background()
	require.NoError(t, f.backend.SetMarkerSlots(ctx, "m1", []core.SlotAssignment{{SlotDefinitionID: "giver", PerformerID: "p1"}}))

	res, err := f.manager.MaterializeScene(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, res.Created, 4)

	first := f.stash.created[0]
	assert.Equal(t, kissingTag.ID, first.PrimaryTagID)
	assert.Equal(t, "Kissing", first.Title)
	assert.Equal(t, 10.0, first.Seconds)
	assert.Equal(t, 20.0, *first.EndSeconds)

	slots, err := f.backend.MarkerSlots(ctx, []string{res.Created[0].ID})
	require.NoError(t, err)
	assert.Equal(t, []core.SlotAssignment{{SlotDefinitionID: "kisser", PerformerID: "p1"}}, slots[res.Created[0].ID])

	again, err := f.manager.MaterializeScene(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, again.Created)
	assert.Len(t, again.Analysis.AlreadyMaterialized, 2)
	assert.Len(t, again.Analysis.Skipped, 1, "derived markers are not analyzed as sources")
	assert.Len(t, f.stash.created, 4)

	assert.Equal(t, []string{"materialize", "materialize"}, f.activity.kinds())
}

func TestSaveDerivationRule_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := f.manager.SaveDerivationRule(ctx, &core.DerivedMarkerConfig{SourceTagID: "2"})
	assert.ErrorIs(t, err, ErrInvalidArgument)

	err = f.manager.SaveDerivationRule(ctx, &core.DerivedMarkerConfig{SourceTagID: "2", DerivedTagID: "2"})
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestDeleteDerivationRule(t *testing.T) {
	f := newFixture(t)
	saveRules(t, f)
	ctx := context.Background()

	rules, err := f.manager.DerivationRules(ctx)
	require.NoError(t, err)
	require.Len(t, rules, 2)

	require.NoError(t, f.manager.DeleteDerivationRule(ctx, rules[0].ID))
	assert.ErrorIs(t, f.manager.DeleteDerivationRule(ctx, rules[0].ID), core.ErrNotFound)
}
