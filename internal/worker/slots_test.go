package worker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markerlab/markerlab/pkg/core"
)

func saveKissSlots(t *testing.T, f *fixture) core.SlotDefinitionSet {
	t.Helper()
	set := &core.SlotDefinitionSet{TagID: kissTag.ID, Slots: []core.SlotDefinition{
		{Label: "Giver", GenderHints: []core.Gender{core.GenderFemale}},
		{Label: "Receiver"},
	}}
	require.NoError(t, f.manager.SaveSlotDefinitionSet(context.Background(), set))
	return *set
}

func TestSuggestSlots(t *testing.T) {
	f := newFixture(t)
	set := saveKissSlots(t, f)

	got, err := f.manager.SuggestSlots(context.Background(), "s1", "m1")
	require.NoError(t, err)
	assert.Len(t, got.Slots, 2)
	require.Len(t, got.Combinations, 1)
	assert.Equal(t, "Giver: Alice, Receiver: Bob", got.Combinations[0].Description)
	assert.Equal(t, []core.SlotAssignment{
		{SlotDefinitionID: set.Slots[0].ID, PerformerID: "p1"},
		{SlotDefinitionID: set.Slots[1].ID, PerformerID: "p2"},
	}, got.Combinations[0].Assignments)
}

func TestSuggestSlots_NoDefinitions(t *testing.T) {
	f := newFixture(t)

	got, err := f.manager.SuggestSlots(context.Background(), "s1", "m3")
	require.NoError(t, err)
	assert.Empty(t, got.Combinations)
}

func TestSuggestSlots_UnknownMarker(t *testing.T) {
	f := newFixture(t)

	_, err := f.manager.SuggestSlots(context.Background(), "s1", "missing")
	assert.ErrorIs(t, err, ErrMarkerNotFound)
}

func TestAssignSlots(t *testing.T) {
	f := newFixture(t)
	set := saveKissSlots(t, f)
	ctx := context.Background()

	err := f.manager.AssignSlots(ctx, "s1", "m1", []core.SlotAssignment{{SlotDefinitionID: "bogus", PerformerID: "p1"}})
	assert.ErrorIs(t, err, ErrInvalidArgument)

	want := []core.SlotAssignment{{SlotDefinitionID: set.Slots[0].ID, PerformerID: "p1"}}
	require.NoError(t, f.manager.AssignSlots(ctx, "s1", "m1", want))

	got, err := f.manager.SuggestSlots(ctx, "s1", "m1")
	require.NoError(t, err)
	assert.Equal(t, want, got.Current)
}

func TestSaveSlotDefinitionSet_NeedsTag(t *testing.T) {
	f := newFixture(t)
	err := f.manager.SaveSlotDefinitionSet(context.Background(), &core.SlotDefinitionSet{})
	assert.ErrorIs(t, err, ErrInvalidArgument)
}
