package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var layersCmd = &cobra.Command{
	Use:   "layers <board_file>",
	Short: "List resolved layers",
	Long: `Lists the canonical layers of a board in draw order with their native
ids, colors and shape counts. Layers the registry did not know are marked
as synthesized.`,
	Args: cobra.ExactArgs(1),
	RunE: runLayers,
}

func init() {
	rootCmd.AddCommand(layersCmd)
}

func runLayers(cmd *cobra.Command, args []string) error {
	res, err := load(args[0])
	if err != nil {
		return err
	}
	b := res.Board
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "Board: %d layers\n\n", len(b.Layers()))
	fmt.Fprintf(out, "%-20s %-8s %-20s %-8s %6s %s\n", "Layer", "Native", "Name", "Color", "Shapes", "")
	fmt.Fprintln(out, "─────────────────────────────────────────────────────────────────────────")
	for _, l := range b.Layers() {
		var flags string
		if !l.Visible {
			flags += " hidden"
		}
		if l.Synthesized {
			flags += " synthesized"
		}
		fmt.Fprintf(out, "%-20s %-8s %-20s %-8s %6d%s\n",
			l.ID, l.NativeID, l.Name, l.Color, len(b.ShapesOnLayer(l.ID)), flags)
	}
	return nil
}
