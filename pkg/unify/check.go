package unify

import (
	"errors"
	"fmt"

	"github.com/OpenTraceLab/OpenTraceBoard/pkg/geom"
	"github.com/OpenTraceLab/OpenTraceBoard/pkg/model"
	"github.com/OpenTraceLab/OpenTraceBoard/pkg/records"
)

// ErrTooFewAnchors is reported for components whose geometry cannot pin
// down an affine transform.
var ErrTooFewAnchors = errors.New("too few anchor points")

// PlacementCheck compares a component's recorded placement with the
// transform recovered from where its template geometry ended up.
type PlacementCheck struct {
	Ref       string
	Placement model.Placement
	Fitted    geom.Transform
	// Residual is the largest distance between a fitted anchor and the
	// board anchor it was fitted to.
	Residual float64
	Anchors  int
	Err      error
}

// OK reports whether the fit succeeded and agrees with the placement.
func (c PlacementCheck) OK(eps float64) bool {
	if c.Err != nil {
		return false
	}
	return c.Residual <= eps &&
		c.Fitted.Mirrored() == c.Placement.Mirrored &&
		geom.AnglesEqual(c.Fitted.Rotation(), c.Placement.Rotation, 0.01) &&
		c.Fitted.Translation().Near(c.Placement.Position, eps)
}

// CheckPlacements fits, per component, the affine transform that maps its
// package template onto the unified board geometry. b must have been built
// from recs.
func CheckPlacements(recs *records.RawBoardRecords, b *model.Board) []PlacementCheck {
	comps := b.Components()
	var out []PlacementCheck
	j := 0
	for i := range recs.Placements {
		pl := &recs.Placements[i]
		if j >= len(comps) || comps[j].Ref != pl.Ref {
			continue
		}
		c := comps[j]
		j++
		out = append(out, checkPlacement(recs, pl, c, b.ShapesForComponent(c.ID)))
	}
	return out
}

func checkPlacement(recs *records.RawBoardRecords, pl *records.Placement, c model.Component, shapes []model.Shape) PlacementCheck {
	chk := PlacementCheck{Ref: c.Ref, Placement: c.Placement}

	pkg, ok := recs.Package(pl.Package)
	if !ok {
		chk.Err = fmt.Errorf("package %q not found", pl.Package)
		return chk
	}
	var items []records.Item
	for _, it := range pkg.Items {
		if text, ok := it.Shape.(geom.Text); ok && pl.Smashed && isPlaceholder(text.Content) {
			continue
		}
		items = append(items, it)
	}
	if len(shapes) != len(items)+len(pl.Texts) {
		chk.Err = fmt.Errorf("%d template items but %d placed shapes", len(items), len(shapes)-len(pl.Texts))
		return chk
	}

	var src, dst []geom.Point
	for k, it := range items {
		local, placed := anchors(it.Shape), anchors(shapes[k].Primitive)
		if len(local) != len(placed) {
			continue
		}
		src = append(src, local...)
		dst = append(dst, placed...)
	}
	chk.Anchors = len(src)
	if len(src) < 3 {
		chk.Err = ErrTooFewAnchors
		return chk
	}

	t, err := geom.FitAffine(src, dst)
	if err != nil {
		chk.Err = fmt.Errorf("%w: %v", ErrTooFewAnchors, err)
		return chk
	}
	chk.Fitted = t
	for k := range src {
		if d := t.Apply(src[k]).Distance(dst[k]); d > chk.Residual {
			chk.Residual = d
		}
	}
	return chk
}

// anchors lists the points of a primitive that a placement transform maps
// one to one, in a stable order.
func anchors(p geom.Primitive) []geom.Point {
	switch s := p.(type) {
	case geom.Segment:
		return []geom.Point{s.Start, s.End}
	case geom.Circle:
		return []geom.Point{s.Center}
	case geom.Rect:
		return []geom.Point{s.Center}
	case geom.Polygon:
		return s.Points
	case geom.Pad:
		return []geom.Point{s.Center}
	case geom.Via:
		return []geom.Point{s.Center}
	case geom.Text:
		return []geom.Point{s.Origin}
	}
	return nil
}
