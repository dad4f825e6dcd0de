package geo

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoundingBox(t *testing.T) {
	track := NewTrack(
		NewPoint(50.74723, 7.16682),
		NewPoint(50.74718, 7.16776),
		NewPoint(50.74709, 7.16977),
	)

	box, err := track.BoundingBox()
	require.NoError(t, err)
	assert.Equal(t, 50.74709, box.BottomLeft.Lat)
	assert.Equal(t, 7.16682, box.BottomLeft.Lon)
	assert.Equal(t, 50.74723, box.TopRight.Lat)
	assert.Equal(t, 7.16977, box.TopRight.Lon)

	_, err = NewTrack().BoundingBox()
	assert.ErrorIs(t, err, ErrEmptyTrack)
}

func TestInterpolate(t *testing.T) {
	track := NewTrack(NewPoint(0, 0), NewPoint(1, 1), NewPoint(2, 4))

	for _, factor := range []int{1, 2, 3, 10} {
		t.Run(fmt.Sprintf("factor_%d", factor), func(t *testing.T) {
			out := track.Interpolate(factor)
			assert.Len(t, out.Points, (track.Len()-1)*factor)
			assert.True(t, out.Points[0].Equal(track.Points[0]))
			assert.True(t, out.Points[factor].Equal(track.Points[1]))
		})
	}

	t.Run("factor zero", func(t *testing.T) {
		assert.Empty(t, track.Interpolate(0).Points)
	})

	t.Run("single point", func(t *testing.T) {
		assert.Empty(t, NewTrack(NewPoint(1, 1)).Interpolate(3).Points)
	})

	t.Run("evenly spaced", func(t *testing.T) {
		out := NewTrack(NewPoint(0, 0), NewPoint(0, 1)).Interpolate(4)
		want := []float64{0, 0.25, 0.5, 0.75}
		for i, p := range out.Points {
			assert.InDelta(t, want[i], p.Lon, 1e-12)
		}
	})
}

func TestInterpolateOptionalFields(t *testing.T) {
	t0 := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	track := NewTrack(
		NewPoint(0, 0).WithTime(t0).WithElevation(10),
		NewPoint(0, 1).WithTime(t0.Add(4*time.Second)),
		NewPoint(0, 2),
	)

	out := track.Interpolate(2)
	require.Len(t, out.Points, 4)

	assert.Equal(t, t0.Add(2*time.Second), out.Points[1].Time)
	assert.False(t, out.Points[1].HasElevation, "elevation needs both endpoints")
	assert.False(t, out.Points[3].HasTime(), "time needs both endpoints")
}

func TestDensify(t *testing.T) {
	track := NewTrack(NewPoint(0, 0), NewPoint(1, 1), NewPoint(2, 2))

	out := track.Densify(3)
	assert.Len(t, out.Points, (track.Len()-1)*3+1)
	assert.True(t, out.Points[0].Equal(track.Points[0]))
	assert.True(t, out.Points[len(out.Points)-1].Equal(track.Points[2]))

	assert.Equal(t, track.Points, track.Densify(0).Points)

	single := NewTrack(NewPoint(3, 3))
	assert.Equal(t, single.Points, single.Densify(5).Points)

	out.Points[0] = NewPoint(9, 9)
	assert.True(t, track.Points[0].Equal(NewPoint(0, 0)), "densify must not alias the input")
}

func TestSmooth(t *testing.T) {
	t0 := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	track := NewTrack(NewPoint(0, 0), NewPoint(3, 3).WithTime(t0), NewPoint(0, 6))

	out := track.Smooth()
	require.Len(t, out.Points, 3)
	assert.Equal(t, track.Points[0], out.Points[0])
	assert.Equal(t, track.Points[2], out.Points[2])
	assert.InDelta(t, 1.0, out.Points[1].Lat, 1e-12)
	assert.InDelta(t, 3.0, out.Points[1].Lon, 1e-12)
	assert.Equal(t, t0, out.Points[1].Time)
}

func TestLength(t *testing.T) {
	track := NewTrack(NewPoint(0, 0), NewPoint(0, 1), NewPoint(0, 2))
	assert.InDelta(t, 2*NewPoint(0, 0).DistanceTo(NewPoint(0, 1)), track.Length(), 1e-9)
	assert.Equal(t, 0.0, NewTrack().Length())
}
