package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/maxwell903/sdr-lead-rotation/internal/engine"
	"github.com/maxwell903/sdr-lead-rotation/internal/query"
	"github.com/maxwell903/sdr-lead-rotation/internal/storage/sqlite"
)

var watchFlags struct {
	lane string
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print the next rep for a lane every time the log changes",
	Long: `watch is the interactive analogue of the persistence port's
subscribe(on_change): it tails the event log's JSONL mirror with fsnotify
and reprints --lane's next rep whenever another process appends an event,
so an operator can leave it running in a terminal instead of re-polling.

Requires a SQLite-backed store; --no-db has no mirror file to watch.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if store.Path() == "" {
			return fmt.Errorf("watch requires a SQLite-backed store (--db), not --no-db")
		}
		lane, err := parseLaneArg(watchFlags.lane)
		if err != nil {
			return err
		}

		mirrorPath := sqlite.MirrorPath(store.Path())
		print := func() {
			rows, err := eng.QueryRotation(rootCtx, lane, query.WindowAllTime, engine.ViewCollapsed)
			if err != nil {
				fmt.Fprintf(os.Stderr, "watch: query_rotation: %v\n", err)
				return
			}
			for _, row := range rows {
				if row.IsNext {
					fmt.Printf("next for %s: %s\n", lane, row.RepID)
					return
				}
			}
			fmt.Printf("next for %s: (no eligible rep)\n", lane)
		}

		fw, err := NewFileWatcher(mirrorPath, print)
		if err != nil {
			return fmt.Errorf("watch: %w", err)
		}
		defer fw.Close()

		print()
		fw.Start(rootCtx, stderrLogger{})

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		<-sigCh
		return nil
	},
}

func init() {
	watchCmd.Flags().StringVar(&watchFlags.lane, "lane", "sub1k", "lane to watch: sub1k or 1kplus")
	rootCmd.AddCommand(watchCmd)
}
