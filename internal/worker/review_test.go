package worker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markerlab/markerlab/internal/review"
)

func TestApplyReview_Navigation(t *testing.T) {
	f := newFixture(t)

	res, err := f.manager.ApplyReview(context.Background(), "s1", "m1", review.Command{Kind: review.NextMarker})
	require.NoError(t, err)
	assert.Equal(t, "m2", res.SelectedID)
	assert.Empty(t, res.Effects)
	assert.Empty(t, f.stash.updated)
	assert.Empty(t, f.activity.kinds())
}

func TestApplyReview_Confirm(t *testing.T) {
	f := newFixture(t)

	res, err := f.manager.ApplyReview(context.Background(), "s1", "m1", review.Command{Kind: review.Confirm})
	require.NoError(t, err)
	require.Len(t, res.Effects, 1)

	in, ok := f.stash.updated["m1"]
	require.True(t, ok)
	assert.Equal(t, []string{confirmedTag}, in.TagIDs)
	assert.Equal(t, []string{"review"}, f.activity.kinds())
}

func TestApplyReview_SplitCreatesMarker(t *testing.T) {
	f := newFixture(t)

	res, err := f.manager.ApplyReview(context.Background(), "s1", "m1", review.Command{Kind: review.Split, Time: 12})
	require.NoError(t, err)
	require.Len(t, res.Effects, 2)

	assert.Equal(t, 12.0, *f.stash.updated["m1"].EndSeconds)
	require.Len(t, f.stash.created, 1)
	assert.Equal(t, 12.0, f.stash.created[0].Seconds)
	assert.Equal(t, 20.0, *f.stash.created[0].EndSeconds)
	assert.NotEmpty(t, res.Effects[1].Marker.ID, "created marker carries its new id")
}

func TestApplyReview_Delete(t *testing.T) {
	f := newFixture(t)

	res, err := f.manager.ApplyReview(context.Background(), "s1", "m2", review.Command{Kind: review.Delete})
	require.NoError(t, err)
	assert.Equal(t, []string{"m2"}, f.stash.destroyed)
	assert.Equal(t, "m3", res.SelectedID)
}

func TestApplyReview_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.manager.ApplyReview(ctx, "s1", "", review.Command{Kind: review.Confirm})
	assert.ErrorIs(t, err, review.ErrNoSelection)

	_, err = f.manager.ApplyReview(ctx, "s1", "m1", review.Command{Kind: review.SetEnd, Time: 5})
	assert.ErrorIs(t, err, review.ErrInvalidTime)
	assert.Empty(t, f.stash.updated)
}
