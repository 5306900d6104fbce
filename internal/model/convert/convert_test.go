package convert

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/markerlab/markerlab/internal/model"
	"github.com/markerlab/markerlab/pkg/core"
)

func TestShotBoundaryToCore(t *testing.T) {
	end := 40.0
	b := ShotBoundaryToCore(model.ShotBoundary{ID: "b1", SceneID: "s1", StartTime: 10, EndTime: &end, Source: "detected"})

	assert.Equal(t, "b1", b.ID)
	assert.Equal(t, "s1", b.SceneID)
	assert.Equal(t, 10.0, b.StartTime)
	require.NotNil(t, b.EndTime)
	assert.Equal(t, 40.0, *b.EndTime)
	assert.NotSame(t, &end, b.EndTime)
	assert.Equal(t, core.SourceDetected, b.Source)
}

func TestShotBoundaryToCore_Open(t *testing.T) {
	b := ShotBoundaryToCore(model.ShotBoundary{ID: "b1", StartTime: 10})
	assert.Nil(t, b.EndTime)
}

func TestDerivedMarkerConfigToCore(t *testing.T) {
	c := DerivedMarkerConfigToCore(model.DerivedMarkerConfig{
		ID:               "r1",
		SourceTagID:      "1",
		DerivedTagID:     "2",
		RelationshipType: "implies",
		SlotMappings:     datatypes.JSON(`[{"fromSlotId":"a","toSlotId":"b"}]`),
	})

	assert.Equal(t, "1->2", c.RuleID())
	assert.Equal(t, []core.SlotMapping{{FromSlotID: "a", ToSlotID: "b"}}, c.SlotMappings)
}

func TestDerivedMarkerConfigToCore_BadJSON(t *testing.T) {
	c := DerivedMarkerConfigToCore(model.DerivedMarkerConfig{ID: "r1", SlotMappings: datatypes.JSON(`{oops`)})
	assert.Empty(t, c.SlotMappings)
}

func TestSlotDefinitionSetToCore(t *testing.T) {
	s := SlotDefinitionSetToCore(model.SlotDefinitionSet{
		ID:    "set",
		TagID: "7",
		Slots: []model.SlotDefinition{
			{ID: "b", Label: "Bottom", GenderHints: datatypes.JSON(`["MALE","ALIEN"]`), DisplayOrder: 1},
			{ID: "a", Label: "Top", DisplayOrder: 0},
		},
	})

	require.Len(t, s.Slots, 2)
	assert.Equal(t, "a", s.Slots[0].ID)
	assert.Equal(t, "b", s.Slots[1].ID)
	assert.Equal(t, []core.Gender{core.GenderMale}, s.Slots[1].GenderHints)
	assert.Empty(t, s.Slots[0].GenderHints)
}

func TestMarkerSlotsToCore(t *testing.T) {
	got := MarkerSlotsToCore([]model.MarkerSlot{
		{MarkerID: "m1", SlotDefinitionID: "b", PerformerID: "p2", Position: 1},
		{MarkerID: "m2", SlotDefinitionID: "a", PerformerID: "p3", Position: 0},
		{MarkerID: "m1", SlotDefinitionID: "a", PerformerID: "p1", Position: 0},
	})

	assert.Equal(t, []core.SlotAssignment{
		{SlotDefinitionID: "a", PerformerID: "p1"},
		{SlotDefinitionID: "b", PerformerID: "p2"},
	}, got["m1"])
	assert.Len(t, got["m2"], 1)
}

func TestMarkerDerivationToCore(t *testing.T) {
	d := MarkerDerivationToCore(model.MarkerDerivation{ID: "x", SourceMarkerID: "m1", DerivedMarkerID: "m9", RuleID: "1->2", Depth: 1})
	assert.Equal(t, core.MaterializedDerivation{ID: "x", SourceMarkerID: "m1", DerivedMarkerID: "m9", RuleID: "1->2", Depth: 1}, d)
}
