package geom

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// FitAffine recovers the affine transform that best maps src onto dst in the
// least-squares sense. It needs at least three non-collinear pairs.
func FitAffine(src, dst []Point) (Transform, error) {
	if len(src) != len(dst) {
		return Transform{}, fmt.Errorf("point count mismatch: %d vs %d", len(src), len(dst))
	}
	n := len(src)
	if n < 3 {
		return Transform{}, fmt.Errorf("need at least 3 points, got %d", n)
	}

	a := mat.NewDense(n*2, 6, nil)
	b := mat.NewVecDense(n*2, nil)
	for i := 0; i < n; i++ {
		x, y := src[i].X, src[i].Y
		a.Set(i*2, 0, x)
		a.Set(i*2, 1, y)
		a.Set(i*2, 2, 1)
		b.SetVec(i*2, dst[i].X)

		a.Set(i*2+1, 3, x)
		a.Set(i*2+1, 4, y)
		a.Set(i*2+1, 5, 1)
		b.SetVec(i*2+1, dst[i].Y)
	}

	var qr mat.QR
	qr.Factorize(a)

	var params mat.VecDense
	if err := qr.SolveVecTo(&params, false, b); err != nil {
		return Transform{}, fmt.Errorf("solve affine: %w", err)
	}

	t := Transform{
		A:  params.AtVec(0),
		B:  params.AtVec(1),
		TX: params.AtVec(2),
		C:  params.AtVec(3),
		D:  params.AtVec(4),
		TY: params.AtVec(5),
	}
	if _, ok := t.Inverse(); !ok {
		return Transform{}, fmt.Errorf("degenerate point set")
	}
	return t, nil
}
