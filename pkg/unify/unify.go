// Package unify turns the raw records of either board parser into a
// model.Board: layers are resolved through the registry, package templates
// are instantiated under their placement transforms and shapes are grouped
// into nets.
package unify

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/OpenTraceLab/OpenTraceBoard/pkg/geom"
	"github.com/OpenTraceLab/OpenTraceBoard/pkg/layers"
	"github.com/OpenTraceLab/OpenTraceBoard/pkg/model"
	"github.com/OpenTraceLab/OpenTraceBoard/pkg/records"
)

// componentNamespace seeds the ids of components whose source carries no
// usable uuid.
var componentNamespace = uuid.MustParse("6f0c2a55-3b1e-4f55-9a37-0e5cf3c8d0b1")

// Option configures Build.
type Option func(*unifier)

// WithLogger sets the logger used for debug output.
func WithLogger(l *zap.Logger) Option {
	return func(u *unifier) {
		if l != nil {
			u.log = l
		}
	}
}

type unifier struct {
	recs *records.RawBoardRecords
	reg  *layers.Registry
	log  *zap.Logger
	bl   *model.Builder

	declared map[string]records.Layer
	resolved map[string]string
}

// Build unifies raw records into an immutable board. A nil registry uses
// layers.Default. Build does not fail: problems are recorded as warnings on
// the board.
func Build(recs *records.RawBoardRecords, reg *layers.Registry, opts ...Option) *model.Board {
	if reg == nil {
		reg = layers.Default()
	}
	u := &unifier{
		recs:     recs,
		reg:      reg,
		log:      zap.NewNop(),
		bl:       model.NewBuilder(recs.Format, recs.Unit, recs.YDown, recs.Metadata),
		declared: make(map[string]records.Layer, len(recs.Layers)),
		resolved: make(map[string]string),
	}
	for _, opt := range opts {
		opt(u)
	}

	for _, w := range recs.Warnings {
		u.bl.Warn(w)
	}
	u.layers()
	for _, n := range recs.Nets {
		u.bl.AddNet(n.Name)
	}
	ids := make(map[string]bool, len(recs.Placements))
	for i := range recs.Placements {
		u.placement(i, &recs.Placements[i], ids)
	}
	for _, group := range [][]records.Item{recs.Signals, recs.Graphics, recs.Texts} {
		for _, it := range group {
			u.shape(it, u.layer(it.Layer, it.Location), "", it.Net, it.Shape)
		}
	}

	b := u.bl.Build()
	u.log.Debug("board unified",
		zap.String("format", string(recs.Format)),
		zap.Int("layers", len(b.Layers())),
		zap.Int("shapes", len(b.Shapes())),
		zap.Int("components", len(b.Components())),
		zap.Int("nets", len(b.Nets())),
		zap.Int("warnings", len(b.Warnings())))
	return b
}

func (u *unifier) warn(kind records.WarningKind, location, format string, args ...any) {
	w := records.NewWarning(kind, records.StageUnify, location, format, args...)
	u.log.Debug("unify warning", zap.String("kind", string(kind)), zap.String("location", location), zap.String("message", w.Message))
	u.bl.Warn(w)
}

// layers resolves every declared layer.
func (u *unifier) layers() {
	for _, decl := range u.recs.Layers {
		if _, dup := u.declared[decl.NativeID]; dup {
			continue
		}
		u.declared[decl.NativeID] = decl
		u.layer(decl.NativeID, decl.Location)
	}
}

// layer maps a native id to a canonical id, adding the layer to the board on
// first use. Unknown ids get a synthesized layer and one warning.
func (u *unifier) layer(native, location string) string {
	if native == "" {
		return ""
	}
	if id, ok := u.resolved[native]; ok {
		return id
	}

	var l layers.Layer
	var known bool
	if decl, ok := u.declared[native]; ok {
		l, known = u.reg.ResolveDeclared(decl, u.recs.Format)
		l.Visible = l.Visible && decl.Visible
	} else {
		l, known = u.reg.Resolve(native, u.recs.Format)
	}
	if !known {
		u.warn(records.UnresolvedReference, location,
			"unknown %s layer %q shown as synthesized layer %s", u.recs.Format, native, l.ID)
	}
	u.bl.AddLayer(l)
	u.resolved[native] = l.ID
	return l.ID
}

func (u *unifier) shape(it records.Item, layer, component, net string, prim geom.Primitive) (model.ShapeID, bool) {
	id, err := u.bl.AddShape(model.Shape{Layer: layer, Component: component, Net: net, Primitive: prim})
	if err != nil {
		u.warn(records.UnsupportedConstruct, it.Location, "shape skipped: %v", err)
		return 0, false
	}
	return id, true
}

// componentID prefers the source uuid; otherwise the id is derived from the
// document position so that reparsing yields the same ids.
func (u *unifier) componentID(index int, pl *records.Placement, seen map[string]bool) string {
	if pl.UUID != "" {
		if parsed, err := uuid.Parse(pl.UUID); err == nil && !seen[parsed.String()] {
			return parsed.String()
		}
	}
	name := string(u.recs.Format) + "/" + strconv.Itoa(index) + "/" + pl.Ref
	return uuid.NewSHA1(componentNamespace, []byte(name)).String()
}

// placement instantiates the placement's package template.
func (u *unifier) placement(index int, pl *records.Placement, seen map[string]bool) {
	id := u.componentID(index, pl, seen)
	seen[id] = true
	comp := model.Component{
		ID:      id,
		Ref:     pl.Ref,
		Value:   pl.Value,
		Package: pl.Package,
		Placement: model.Placement{
			Position: pl.Position,
			Rotation: geom.NormalizeDegrees(pl.Rotation),
			Mirrored: pl.Mirrored,
			Side:     pl.Side,
		},
		Bounds: geom.EmptyBox(),
	}

	add := func(it records.Item, layer, net string, prim geom.Primitive) {
		if sid, ok := u.shape(it, layer, id, net, prim); ok {
			comp.Shapes = append(comp.Shapes, sid)
			comp.Bounds = comp.Bounds.Union(prim.Bounds())
		}
	}

	pkg, ok := u.recs.Package(pl.Package)
	if !ok {
		u.warn(records.UnresolvedReference, pl.Location,
			"component %s references missing package %q", pl.Ref, pl.Package)
	} else {
		t := comp.Placement.Transform()
		subst := placeholders(pl)
		for _, it := range pkg.Items {
			if text, ok := it.Shape.(geom.Text); ok {
				if pl.Smashed && isPlaceholder(text.Content) {
					continue
				}
				text.Content = subst.Replace(text.Content)
				it.Shape = text
			}
			add(it, u.layer(u.templateLayer(it, pl), it.Location), u.netOf(it, pl), it.Shape.Transform(t))
		}
	}
	for _, it := range pl.Texts {
		add(it, u.layer(it.Layer, it.Location), it.Net, it.Shape)
	}

	if comp.Bounds.IsEmpty() {
		comp.Bounds = geom.BoxOf(pl.Position)
	}
	if err := u.bl.AddComponent(comp); err != nil {
		u.warn(records.UnresolvedReference, pl.Location, "component %s skipped: %v", pl.Ref, err)
	}
}

// templateLayer picks the native layer of an instantiated template item.
// An item's own layer wins over the placement's; mirrored placements move
// sided layers to the opposite face.
func (u *unifier) templateLayer(it records.Item, pl *records.Placement) string {
	if it.Layer == "" {
		return pl.Layer
	}
	if pl.Mirrored {
		return u.reg.Flip(it.Layer, u.recs.Format)
	}
	return it.Layer
}

func (u *unifier) netOf(it records.Item, pl *records.Placement) string {
	if pad, ok := it.Shape.(geom.Pad); ok && pad.Number != "" {
		if net, ok := pl.PadNets[pad.Number]; ok {
			return net
		}
	}
	return it.Net
}

var placeholderTokens = []string{">NAME", ">VALUE", "${REFERENCE}", "${VALUE}"}

func isPlaceholder(s string) bool {
	for _, tok := range placeholderTokens {
		if strings.EqualFold(strings.TrimSpace(s), tok) {
			return true
		}
	}
	return false
}

func placeholders(pl *records.Placement) *strings.Replacer {
	return strings.NewReplacer(
		">NAME", pl.Ref,
		">VALUE", pl.Value,
		"${REFERENCE}", pl.Ref,
		"${VALUE}", pl.Value,
	)
}

// Summary describes a board in one line for logs.
func Summary(b *model.Board) string {
	return fmt.Sprintf("%d layers, %d shapes, %d components, %d nets, %d warnings",
		len(b.Layers()), len(b.Shapes()), len(b.Components()), len(b.Nets()), len(b.Warnings()))
}
