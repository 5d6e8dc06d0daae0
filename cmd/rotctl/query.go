package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/maxwell903/sdr-lead-rotation/internal/engine"
	"github.com/maxwell903/sdr-lead-rotation/internal/query"
	"github.com/maxwell903/sdr-lead-rotation/internal/types"
	"github.com/maxwell903/sdr-lead-rotation/internal/ui"
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Inspect a lane's current rotation, queue, or statistics",
}

var queryFlags struct {
	lane   string
	window string
	view   string
}

func init() {
	queryCmd.PersistentFlags().StringVar(&queryFlags.lane, "lane", "sub1k", "lane to query: sub1k or 1kplus")
	queryCmd.PersistentFlags().StringVar(&queryFlags.window, "window", "alltime", "statistics window: day, week, month, ytd, alltime")
	rootCmd.AddCommand(queryCmd)

	rotationCmd.Flags().StringVar(&queryFlags.view, "view", "collapsed", "overlay view: collapsed or expanded")
	queryCmd.AddCommand(rotationCmd)
	queryCmd.AddCommand(queueCmd)
	queryCmd.AddCommand(statsCmd)
}

func resolveLane() (types.Lane, error) {
	switch queryFlags.lane {
	case "sub1k":
		return types.LaneSub1k, nil
	case "1kplus":
		return types.Lane1kPlus, nil
	default:
		return "", fmt.Errorf("--lane must be sub1k or 1kplus, got %q", queryFlags.lane)
	}
}

func resolveWindow() (query.Window, error) {
	switch queryFlags.window {
	case "day":
		return query.WindowDay, nil
	case "week":
		return query.WindowWeek, nil
	case "month":
		return query.WindowMonth, nil
	case "ytd":
		return query.WindowYTD, nil
	case "alltime":
		return query.WindowAllTime, nil
	default:
		return "", fmt.Errorf("--window must be one of day, week, month, ytd, alltime, got %q", queryFlags.window)
	}
}

var rotationCmd = &cobra.Command{
	Use:   "rotation",
	Short: "Show a lane's rotation sequence",
	RunE: func(cmd *cobra.Command, args []string) error {
		lane, err := resolveLane()
		if err != nil {
			return err
		}
		window, err := resolveWindow()
		if err != nil {
			return err
		}
		view := engine.ViewCollapsed
		if queryFlags.view == "expanded" {
			view = engine.ViewExpanded
		}

		rows, err := eng.QueryRotation(rootCtx, lane, window, view)
		if err != nil {
			return err
		}

		if jsonOutput {
			return printJSON(rows)
		}

		panelRows := make([]ui.RotationRow, 0, len(rows))
		for _, r := range rows {
			panelRows = append(panelRows, ui.RotationRow{
				RepID:           r.RepID,
				DisplayPosition: r.DisplayPosition,
				Hits:            r.Hits,
				IsNext:          r.IsNext,
				HasOpenMark:     r.HasOpenMark,
			})
		}
		fmt.Println(ui.RenderRotationPanel(ui.RotationPanel{
			Lane:   queryFlags.lane,
			Window: queryFlags.window,
			Rows:   panelRows,
		}))
		return nil
	},
}

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Show a lane's open replacement queue",
	RunE: func(cmd *cobra.Command, args []string) error {
		lane, err := resolveLane()
		if err != nil {
			return err
		}
		rows := eng.QueryReplacementQueue(lane)

		if jsonOutput {
			return printJSON(rows)
		}

		panelRows := make([]ui.QueueRow, 0, len(rows))
		for _, r := range rows {
			panelRows = append(panelRows, ui.QueueRow{
				RepID:          r.RepID,
				OriginalLeadID: r.OriginalLeadID,
				AccountNumber:  r.AccountNumber,
				MarkedAt:       r.MarkedAt.Format("2006-01-02 15:04"),
			})
		}
		fmt.Println(ui.RenderReplacementQueuePanel(ui.ReplacementQueuePanel{
			Lane: queryFlags.lane,
			Rows: panelRows,
		}))
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show a window's leaderboard and replacement statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		window, err := resolveWindow()
		if err != nil {
			return err
		}
		stats, err := eng.Stats(rootCtx, window)
		if err != nil {
			return err
		}

		if jsonOutput {
			return printJSON(stats)
		}

		toRepCounts := func(in []query.RepCount) []ui.RepCount {
			out := make([]ui.RepCount, 0, len(in))
			for _, rc := range in {
				out = append(out, ui.RepCount{RepID: rc.RepID, Count: rc.Count})
			}
			return out
		}
		fmt.Println(ui.RenderStatsPanel(ui.StatsPanel{
			Window:                  queryFlags.window,
			TotalLeads:              stats.TotalLeads,
			LeadsNeedingReplacement: stats.LeadsNeedingReplacement,
			MostAssigned:            toRepCounts(stats.MostAssigned),
			LeastAssigned:           toRepCounts(stats.LeastAssigned),
		}))
		return nil
	},
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
