package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/OpenTraceBoard/pkg/records"
)

var componentsCmd = &cobra.Command{
	Use:   "components <board_file> [query]",
	Short: "List or search components",
	Long: `Lists placed components. With a query, only components whose
reference, value or package contains it (case-insensitive) are shown.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runComponents,
}

func init() {
	rootCmd.AddCommand(componentsCmd)
}

func runComponents(cmd *cobra.Command, args []string) error {
	res, err := load(args[0])
	if err != nil {
		return err
	}
	var query string
	if len(args) > 1 {
		query = args[1]
	}
	comps := res.Board.FindComponents(query)
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "Components: %d\n\n", len(comps))
	fmt.Fprintf(out, "%-10s %-14s %-24s %18s %7s %-6s %6s\n", "Ref", "Value", "Package", "Position", "Rot", "Side", "Shapes")
	fmt.Fprintln(out, "──────────────────────────────────────────────────────────────────────────────────────────")
	for _, c := range comps {
		side := string(c.Placement.Side)
		if side == "" {
			side = string(records.SideTop)
		}
		if c.Placement.Mirrored {
			side += "*"
		}
		pos := fmt.Sprintf("(%.2f, %.2f)", c.Placement.Position.X, c.Placement.Position.Y)
		fmt.Fprintf(out, "%-10s %-14s %-24s %18s %7.1f %-6s %6d\n",
			c.Ref, c.Value, c.Package, pos, c.Placement.Rotation, side, len(c.Shapes))
	}
	return nil
}
