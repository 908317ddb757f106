package geom

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const eps = 1e-9

func TestComposeIdentity(t *testing.T) {
	tr := Rotate(30).Then(Translate(4, -2))
	assert.True(t, Compose(Identity(), tr).Equal(tr, eps))
	assert.True(t, Compose(tr, Identity()).Equal(tr, eps))
}

func TestComposeAssociative(t *testing.T) {
	a := Rotate(37)
	b := MirrorX().Then(Translate(1, 2))
	c := Scale(2, 2).Then(Rotate(-110))

	left := Compose(Compose(a, b), c)
	right := Compose(a, Compose(b, c))
	assert.True(t, left.Equal(right, eps))
}

func TestComposeOrder(t *testing.T) {
	// translate then rotate differs from rotate then translate
	p := Pt(1, 0)
	got := Compose(Translate(1, 0), Rotate(90)).Apply(p)
	assert.InDelta(t, 0, got.X, eps)
	assert.InDelta(t, 2, got.Y, eps)

	got = Compose(Rotate(90), Translate(1, 0)).Apply(p)
	assert.InDelta(t, 1, got.X, eps)
	assert.InDelta(t, 1, got.Y, eps)
}

func TestPlacementMirrorThenRotate(t *testing.T) {
	pos := Pt(10, 20)
	tr := Placement(pos, 90, true)

	got := tr.Apply(Pt(1, 0))
	assert.InDelta(t, 10, got.X, eps)
	assert.InDelta(t, 19, got.Y, eps)

	// rotating first and mirroring afterwards lands elsewhere
	reversed := Compose(Compose(Rotate(90), MirrorX()), Translate(pos.X, pos.Y)).Apply(Pt(1, 0))
	assert.False(t, got.Near(reversed, 1e-6))
}

func TestRotationDecomposition(t *testing.T) {
	tests := []struct {
		name     string
		tr       Transform
		rotation float64
		mirrored bool
	}{
		{"identity", Identity(), 0, false},
		{"rotate 90", Rotate(90), 90, false},
		{"rotate -45", Rotate(-45), 315, false},
		{"mirror", MirrorX(), 0, true},
		{"mirror rotate 90", Placement(Pt(3, 3), 90, true), 90, true},
		{"mirror rotate 270", Placement(Pt(0, 0), 270, true), 270, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.mirrored, tt.tr.Mirrored())
			assert.True(t, AnglesEqual(tt.rotation, tt.tr.Rotation(), 1e-9), "got %v", tt.tr.Rotation())
		})
	}
}

func TestInverse(t *testing.T) {
	tr := Placement(Pt(5, -7), 33, true)
	inv, ok := tr.Inverse()
	require.True(t, ok)
	assert.True(t, Compose(tr, inv).Equal(Identity(), 1e-9))

	_, ok = Scale(0, 1).Inverse()
	assert.False(t, ok)
}

func TestNormalizeDegrees(t *testing.T) {
	assert.Equal(t, 0.0, NormalizeDegrees(360))
	assert.Equal(t, 270.0, NormalizeDegrees(-90))
	assert.Equal(t, 90.0, NormalizeDegrees(450))
	assert.InDelta(t, 0.0, NormalizeDegrees(-1e-18), eps)
	assert.True(t, AnglesEqual(359.9999999999, 0, 1e-6))
}
