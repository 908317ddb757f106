package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/OpenTraceBoard/pkg/geom"
	"github.com/OpenTraceLab/OpenTraceBoard/pkg/model"
)

var netsCmd = &cobra.Command{
	Use:   "nets <board_file> [net_name]",
	Short: "Show board net information",
	Long: `Display information about nets in a board file.

Without net_name: Lists all nets with pad/track/via counts
With net_name: Shows detailed information for that specific net`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runNets,
}

func init() {
	rootCmd.AddCommand(netsCmd)
}

func runNets(cmd *cobra.Command, args []string) error {
	res, err := load(args[0])
	if err != nil {
		return err
	}
	if len(args) == 2 {
		return showNetDetails(cmd.OutOrStdout(), res.Board, args[1])
	}
	listAllNets(cmd.OutOrStdout(), res.Board)
	return nil
}

// netShapes splits a net's shapes by what they are on the board.
type netShapes struct {
	pads, tracks, vias, other []model.Shape
}

func splitNet(b *model.Board, name string) netShapes {
	var ns netShapes
	for _, s := range b.ShapesForNet(name) {
		switch s.Kind() {
		case geom.KindPad:
			ns.pads = append(ns.pads, s)
		case geom.KindSegment, geom.KindArc:
			ns.tracks = append(ns.tracks, s)
		case geom.KindVia:
			ns.vias = append(ns.vias, s)
		default:
			ns.other = append(ns.other, s)
		}
	}
	return ns
}

func listAllNets(out io.Writer, b *model.Board) {
	names := b.NetNames()

	fmt.Fprintf(out, "Board: %d nets\n\n", len(names))
	fmt.Fprintf(out, "%-30s %6s %6s %6s %6s\n", "Net Name", "Pads", "Tracks", "Vias", "Other")
	fmt.Fprintln(out, "────────────────────────────────────────────────────────────────")
	for _, name := range names {
		ns := splitNet(b, name)
		fmt.Fprintf(out, "%-30s %6d %6d %6d %6d\n",
			name, len(ns.pads), len(ns.tracks), len(ns.vias), len(ns.other))
	}
}

func showNetDetails(out io.Writer, b *model.Board, name string) error {
	found := false
	for _, n := range b.NetNames() {
		if n == name {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("net '%s' not found", name)
	}

	refs := map[string]string{}
	for _, c := range b.Components() {
		refs[c.ID] = c.Ref
	}
	ns := splitNet(b, name)
	unit := b.Unit()

	fmt.Fprintf(out, "Net: %s\n\n", name)

	fmt.Fprintf(out, "Pads (%d):\n", len(ns.pads))
	for _, s := range ns.pads {
		p := s.Primitive.(geom.Pad)
		fmt.Fprintf(out, "  %s.%-4s: %s %.2f×%.2f %s at (%.2f, %.2f) on %s\n",
			refs[s.Component], p.Number, p.Shape,
			p.Size.W, p.Size.H, unit,
			p.Center.X, p.Center.Y, s.Layer)
	}

	fmt.Fprintf(out, "\nTracks (%d):\n", len(ns.tracks))
	for i, s := range ns.tracks {
		switch t := s.Primitive.(type) {
		case geom.Segment:
			fmt.Fprintf(out, "  Track %d: %.2f %s wide on %s from (%.2f, %.2f) to (%.2f, %.2f)\n",
				i+1, t.Width, unit, s.Layer,
				t.Start.X, t.Start.Y,
				t.End.X, t.End.Y)
		case geom.Arc:
			fmt.Fprintf(out, "  Track %d: %.2f %s wide arc on %s around (%.2f, %.2f) r=%.2f sweep %.1f°\n",
				i+1, t.Width, unit, s.Layer,
				t.Center.X, t.Center.Y, t.Radius, t.Sweep)
		}
	}

	fmt.Fprintf(out, "\nVias (%d):\n", len(ns.vias))
	for i, s := range ns.vias {
		v := s.Primitive.(geom.Via)
		fmt.Fprintf(out, "  Via %d: %.2f %s diameter, %.2f %s drill at (%.2f, %.2f)\n",
			i+1, v.Diameter, unit, v.Drill, unit,
			v.Center.X, v.Center.Y)
	}

	if len(ns.other) > 0 {
		fmt.Fprintf(out, "\nOther (%d):\n", len(ns.other))
		for _, s := range ns.other {
			box := s.Bounds()
			fmt.Fprintf(out, "  %s on %s spanning (%.2f, %.2f)-(%.2f, %.2f)\n",
				s.Kind(), s.Layer, box.Min.X, box.Min.Y, box.Max.X, box.Max.Y)
		}
	}
	return nil
}
