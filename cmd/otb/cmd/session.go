package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/OpenTraceLab/OpenTraceBoard/internal/session"
	"github.com/OpenTraceLab/OpenTraceBoard/pkg/export"
	"github.com/OpenTraceLab/OpenTraceBoard/pkg/unify"
)

var (
	sessionSearch    string
	sessionNetSearch string
	sessionShow      []string
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Save and restore board sessions",
	Long:  `Commands for working with session files (` + session.Ext + `)`,
}

var sessionSaveCmd = &cobra.Command{
	Use:   "save <board_file> <session_file>",
	Short: "Save a session for a board",
	Long: `Records the board path, a view fitted to the export canvas, the layer
visibility and the search strings. The ` + session.Ext + ` extension is added
when missing.`,
	Args: cobra.ExactArgs(2),
	RunE: runSessionSave,
}

var sessionOpenCmd = &cobra.Command{
	Use:   "open <session_file>",
	Short: "Reopen a saved session",
	Long: `Parses the session's board again, reapplies the stored layer
visibility and reruns the stored searches.`,
	Args: cobra.ExactArgs(1),
	RunE: runSessionOpen,
}

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionSaveCmd)
	sessionCmd.AddCommand(sessionOpenCmd)

	sessionSaveCmd.Flags().StringVar(&sessionSearch, "search", "", "component search to store")
	sessionSaveCmd.Flags().StringVar(&sessionNetSearch, "net-search", "", "net search to store")
	sessionSaveCmd.Flags().StringSliceVar(&sessionShow, "show", nil, "only these layer ids are visible")
}

func runSessionSave(cmd *cobra.Command, args []string) error {
	res, err := load(args[0])
	if err != nil {
		return err
	}
	b := res.Board

	lc := export.LayerConfigFor(b)
	if len(sessionShow) > 0 {
		lc.ShowOnly(sessionShow...)
	}
	opts := cfg.ExportOptions()
	cam := export.NewCamera(opts.Width, opts.Height, b.YDown())
	cam.Fit(lc.VisibleBounds(b), opts.Margin)

	board, err := filepath.Abs(res.Path)
	if err != nil {
		return fmt.Errorf("failed to resolve board path: %w", err)
	}
	path := args[1]
	if !strings.EqualFold(filepath.Ext(path), session.Ext) {
		path += session.Ext
	}

	s := session.Capture(board, b, cam, lc, sessionSearch, sessionNetSearch)
	if err := s.Save(path); err != nil {
		return err
	}
	logger.Debug("session saved", zap.String("path", path), zap.String("board", board))
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Saved session %s\n", path)
	return nil
}

func runSessionOpen(cmd *cobra.Command, args []string) error {
	s, err := session.Load(args[0])
	if err != nil {
		return err
	}
	r, err := s.Open(ldr)
	if err != nil {
		return fmt.Errorf("error opening session: %w", err)
	}
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "Session: %s\n", args[0])
	fmt.Fprintf(out, "  Board: %s\n", s.File)
	fmt.Fprintf(out, "  Contents: %s\n", unify.Summary(r.Board))
	fmt.Fprintf(out, "  View: zoom %.3f, offset (%.1f, %.1f)\n", s.Scale, s.OffsetX, s.OffsetY)

	var visible []string
	for _, l := range r.Layers.VisibleLayers(r.Board) {
		visible = append(visible, l.ID)
	}
	fmt.Fprintf(out, "  Visible layers (%d): %s\n", len(visible), strings.Join(visible, ", "))

	if s.Search != "" {
		fmt.Fprintf(out, "\nComponents matching %q (%d):\n", s.Search, len(r.Components))
		for _, c := range r.Components {
			fmt.Fprintf(out, "  %-10s %-14s %s\n", c.Ref, c.Value, c.Package)
		}
	}
	if s.NetSearch != "" {
		fmt.Fprintf(out, "\nNets matching %q (%d):\n", s.NetSearch, len(r.Nets))
		for _, n := range r.Nets {
			fmt.Fprintf(out, "  %-30s %6d shapes\n", n.Name, len(n.Shapes))
		}
	}
	return nil
}
