package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/OpenTraceLab/OpenTraceBoard/internal/server"
	"github.com/OpenTraceLab/OpenTraceBoard/internal/watch"
	"github.com/OpenTraceLab/OpenTraceBoard/pkg/loader"
	"github.com/OpenTraceLab/OpenTraceBoard/pkg/unify"
)

var (
	serveAddr    string
	serveNoWatch bool
)

var serveCmd = &cobra.Command{
	Use:   "serve <board_file>",
	Short: "Serve a board over a read-only HTTP API",
	Long: `Starts an HTTP server exposing the board as JSON and SVG. The board
file is watched and reloaded when it changes; a failed reload keeps the
last good board.

Endpoints:
  /health                       - Liveness and whether a board is loaded
  /metrics                      - Prometheus metrics
  /api/board                    - Summary and metadata
  /api/bounds?layers=a,b        - Bounding box of the given layers
  /api/warnings                 - Load warnings
  /api/layers                   - Resolved layers
  /api/layers/{id}/shapes       - Shapes on one layer
  /api/shapes/{id}              - One shape
  /api/components?q=            - Component search
  /api/components/{id}          - One component with its geometry
  /api/nets?q=                  - Net search
  /api/nets/{name}              - Shapes of one net
  /api/export.svg               - Rendered board`,
	Args: cobra.ExactArgs(1),
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")
	serveCmd.Flags().BoolVar(&serveNoWatch, "no-watch", false, "do not reload the board when it changes")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics := server.NewMetrics("otb")

	var src server.Source
	if serveNoWatch {
		res, err := load(args[0])
		if err != nil {
			metrics.ObserveLoadError(args[0])
			return err
		}
		metrics.ObserveLoad(res)
		src = server.Static{B: res.Board}
	} else {
		w, err := watch.New(args[0],
			watch.WithLoader(ldr),
			watch.WithLogger(logger),
			watch.WithDebounce(cfg.Watch.Debounce),
			watch.OnReload(func(res *loader.Result) {
				metrics.ObserveLoad(res)
				logger.Info("board reloaded", zap.String("path", res.Path), zap.String("contents", unify.Summary(res.Board)))
			}),
			watch.OnError(func(error) { metrics.ObserveLoadError(args[0]) }),
		)
		if err != nil {
			metrics.ObserveLoadError(args[0])
			return err
		}
		metrics.ObserveBoard(w.Board())
		w.Start()
		defer w.Stop()
		src = w
	}

	addr := cfg.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}
	srv := server.New(src,
		server.WithLogger(logger),
		server.WithMetrics(metrics),
		server.WithAllowedOrigins(cfg.Server.AllowedOrigins...))
	return srv.ListenAndServe(ctx, addr)
}
