package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/OpenTraceBoard/internal/watch"
	"github.com/OpenTraceLab/OpenTraceBoard/pkg/loader"
	"github.com/OpenTraceLab/OpenTraceBoard/pkg/unify"
)

var watchCmd = &cobra.Command{
	Use:   "watch <board_file>",
	Short: "Reload a board whenever it changes",
	Long: `Loads a board and prints a summary line every time the file is saved,
or the error when the new contents fail to load. Stop with Ctrl+C.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	w, err := watch.New(args[0],
		watch.WithLoader(ldr),
		watch.WithLogger(logger),
		watch.WithDebounce(cfg.Watch.Debounce),
		watch.OnReload(func(res *loader.Result) {
			fmt.Fprintf(out, "%s reloaded in %s: %s\n",
				time.Now().Format(time.TimeOnly), res.Duration.Round(time.Microsecond), unify.Summary(res.Board))
		}),
		watch.OnError(func(err error) {
			fmt.Fprintf(out, "%s reload failed, keeping previous board: %v\n", time.Now().Format(time.TimeOnly), err)
		}),
	)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Watching %s: %s\n", w.Path(), unify.Summary(w.Board()))

	w.Start()
	defer w.Stop()
	<-ctx.Done()
	return nil
}
