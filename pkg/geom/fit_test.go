package geom

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFitAffineRecoversPlacement(t *testing.T) {
	want := Placement(Pt(12.5, -3), 135, true)
	src := []Point{Pt(0, 0), Pt(1, 0), Pt(0, 2), Pt(-1.5, 0.7)}
	dst := make([]Point, len(src))
	for i, p := range src {
		dst[i] = want.Apply(p)
	}

	got, err := FitAffine(src, dst)
	require.NoError(t, err)
	assert.True(t, got.Equal(want, 1e-9))
	assert.True(t, got.Mirrored())
	assert.InDelta(t, 135, got.Rotation(), 1e-9)
}

func TestFitAffineErrors(t *testing.T) {
	_, err := FitAffine([]Point{Pt(0, 0)}, []Point{Pt(0, 0), Pt(1, 1)})
	assert.Error(t, err)

	_, err = FitAffine([]Point{Pt(0, 0), Pt(1, 1)}, []Point{Pt(0, 0), Pt(1, 1)})
	assert.Error(t, err)
}
