package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/OpenTraceBoard/pkg/loader"
)

var infoCmd = &cobra.Command{
	Use:   "info <board_file>",
	Short: "Show board summary",
	Long: `Prints the format, metadata, element counts and bounds of a board,
followed by every warning raised while loading it.`,
	Args: cobra.ExactArgs(1),
	RunE: runInfo,
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

func runInfo(cmd *cobra.Command, args []string) error {
	res, err := load(args[0])
	if err != nil {
		return err
	}
	printInfo(cmd.OutOrStdout(), res)
	return nil
}

func printInfo(out io.Writer, res *loader.Result) {
	b := res.Board
	orientation := "y-up"
	if b.YDown() {
		orientation = "y-down"
	}

	fmt.Fprintf(out, "Board: %s\n", res.Path)
	fmt.Fprintf(out, "  Format: %s (%s, %s)\n", b.Format(), b.Unit(), orientation)
	md := b.Metadata()
	for _, f := range []struct{ name, value string }{
		{"Title", md.Title},
		{"Revision", md.Revision},
		{"Company", md.Company},
		{"Date", md.Date},
		{"Version", md.Version},
		{"Generator", md.Generator},
	} {
		if f.value != "" {
			fmt.Fprintf(out, "  %s: %s\n", f.name, f.value)
		}
	}
	fmt.Fprintf(out, "  Layers: %d\n", len(b.Layers()))
	fmt.Fprintf(out, "  Shapes: %d\n", len(b.Shapes()))
	fmt.Fprintf(out, "  Components: %d\n", len(b.Components()))
	fmt.Fprintf(out, "  Nets: %d\n", len(b.Nets()))

	box := b.Bounds()
	fmt.Fprintf(out, "  Board size: %.2f x %.2f %s\n", box.Width(), box.Height(), b.Unit())
	fmt.Fprintf(out, "  Board center: (%.2f, %.2f)\n", box.Center().X, box.Center().Y)
	fmt.Fprintf(out, "  Loaded in: %s\n", res.Duration)

	ws := b.Warnings()
	if len(ws) == 0 {
		return
	}
	fmt.Fprintf(out, "\nWarnings (%d):\n", len(ws))
	for _, w := range ws {
		fmt.Fprintf(out, "  %s\n", w)
	}
}
