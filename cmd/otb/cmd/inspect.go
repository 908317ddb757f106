package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/chewxy/sexp"
	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/OpenTraceBoard/pkg/kicad/sexp/kicadsexp"
	"github.com/OpenTraceLab/OpenTraceBoard/pkg/loader"
	"github.com/OpenTraceLab/OpenTraceBoard/pkg/unify"
)

// placementTolerance is the fit residual, in board units, below which a
// placement is accepted.
const placementTolerance = 1e-4

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Parser and geometry diagnostics",
}

var inspectSexpCmd = &cobra.Command{
	Use:   "sexp <file>",
	Short: "Cross-check the s-expression reader",
	Long: `Reads a KiCad file with the board reader and with a generic
s-expression parser and compares the top-level structure of both trees.`,
	Args: cobra.ExactArgs(1),
	RunE: runInspectSexp,
}

var inspectPlacementsCmd = &cobra.Command{
	Use:   "placements <board_file>",
	Short: "Verify component placements against their geometry",
	Long: `For every component, fits the affine transform that maps its package
template onto the placed geometry and compares it with the recorded
rotation, mirroring and position.`,
	Args: cobra.ExactArgs(1),
	RunE: runInspectPlacements,
}

func init() {
	rootCmd.AddCommand(inspectCmd)
	inspectCmd.AddCommand(inspectSexpCmd)
	inspectCmd.AddCommand(inspectPlacementsCmd)
}

func runInspectSexp(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("error reading file: %w", err)
	}
	mismatches, err := compareSexp(cmd.OutOrStdout(), string(data))
	if err != nil {
		return err
	}
	if mismatches > 0 {
		return fmt.Errorf("%d structural mismatches", mismatches)
	}
	return nil
}

// compareSexp prints both readers' view of content and returns how many
// top-level expressions disagree.
func compareSexp(out io.Writer, content string) (int, error) {
	ours, err := kicadsexp.ParseString(content)
	if err != nil {
		return 0, fmt.Errorf("board reader: %w", err)
	}
	fmt.Fprintf(out, "Board reader: %d top-level expressions\n", len(ours))
	for i, s := range ours {
		lists, atoms := kicadsexp.Census(s)
		fmt.Fprintf(out, "  #%d: leaf=%v elements=%d lists=%d atoms=%d\n", i, s.IsLeaf(), s.LeafCount(), lists, atoms)
	}

	theirs, err := sexp.ParseString(content)
	if err != nil {
		fmt.Fprintf(out, "Generic parser: failed: %v\n", err)
		return 0, nil
	}
	fmt.Fprintf(out, "Generic parser: %d top-level expressions\n", len(theirs))

	mismatches := 0
	if len(theirs) != len(ours) {
		fmt.Fprintf(out, "  ✗ top-level count %d vs %d\n", len(ours), len(theirs))
		mismatches++
	}
	for i := 0; i < min(len(ours), len(theirs)); i++ {
		a, b := ours[i], theirs[i]
		if a.IsLeaf() != b.IsLeaf() || a.LeafCount() != b.LeafCount() {
			fmt.Fprintf(out, "  ✗ #%d: leaf=%v elements=%d vs leaf=%v elements=%d\n",
				i, a.IsLeaf(), a.LeafCount(), b.IsLeaf(), b.LeafCount())
			mismatches++
		}
	}
	if mismatches == 0 {
		fmt.Fprintln(out, "✓ Structures agree")
	}
	return mismatches, nil
}

func runInspectPlacements(cmd *cobra.Command, args []string) error {
	format, err := loader.DetectFormat(args[0])
	if err != nil {
		return err
	}
	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("error opening board: %w", err)
	}
	defer f.Close()

	recs, err := loader.Parse(format, f)
	if err != nil {
		return fmt.Errorf("error parsing board: %w", err)
	}
	b := unify.Build(recs, reg, unify.WithLogger(logger))

	bad := printPlacementChecks(cmd.OutOrStdout(), unify.CheckPlacements(recs, b))
	if bad > 0 {
		return fmt.Errorf("%d placements disagree with their geometry", bad)
	}
	return nil
}

// printPlacementChecks prints one line per component and returns how many
// fitted transforms contradict the recorded placement. Components that
// could not be fitted are listed but not counted.
func printPlacementChecks(out io.Writer, checks []unify.PlacementCheck) int {
	fmt.Fprintf(out, "%-10s %8s %6s %8s %6s %10s  %s\n", "Ref", "Rot", "Mirror", "Fit rot", "Mirror", "Residual", "")
	fmt.Fprintln(out, "────────────────────────────────────────────────────────────────────")

	bad := 0
	for _, c := range checks {
		if c.Err != nil {
			fmt.Fprintf(out, "%-10s %8.2f %6v %8s %6s %10s  - %v\n",
				c.Ref, c.Placement.Rotation, c.Placement.Mirrored, "", "", "", c.Err)
			continue
		}
		mark := "✓"
		if !c.OK(placementTolerance) {
			mark = "✗"
			bad++
		}
		fmt.Fprintf(out, "%-10s %8.2f %6v %8.2f %6v %10.2g  %s\n",
			c.Ref, c.Placement.Rotation, c.Placement.Mirrored,
			c.Fitted.Rotation(), c.Fitted.Mirrored(), c.Residual, mark)
	}
	return bad
}
