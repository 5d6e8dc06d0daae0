package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/maxwell903/sdr-lead-rotation/internal/types"
)

var skipFlags struct {
	repID  string
	target string
	day    string
}

var skipCmd = &cobra.Command{
	Use:   "skip",
	Short: "Credit a rep a hit without an associated lead",
	Long: `skip appends a hit for --rep against --target's lane(s) (sub1k, 1kplus,
or both) without a lead ever being placed, for manual corrections to the
rotation (e.g. a rep took a lead outside the system).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if skipFlags.repID == "" {
			return fmt.Errorf("--rep is required")
		}
		var target types.SkipTarget
		switch skipFlags.target {
		case "sub1k":
			target = types.SkipTargetSub1k
		case "1kplus":
			target = types.SkipTarget1kPlus
		case "both":
			target = types.SkipTargetBoth
		default:
			return fmt.Errorf("--target must be one of sub1k, 1kplus, both, got %q", skipFlags.target)
		}
		day, month, year, err := parseDay(skipFlags.day, time.Now())
		if err != nil {
			return err
		}
		if err := eng.Skip(rootCtx, skipFlags.repID, target, day, month, year); err != nil {
			return err
		}
		fmt.Printf("skipped %s for %s\n", skipFlags.repID, skipFlags.target)
		return nil
	},
}

func init() {
	skipCmd.Flags().StringVar(&skipFlags.repID, "rep", "", "rep to credit (required)")
	skipCmd.Flags().StringVar(&skipFlags.target, "target", "both", "lane(s) to credit: sub1k, 1kplus, or both")
	skipCmd.Flags().StringVar(&skipFlags.day, "day", "", "calendar day of the skip (default: today)")
	rootCmd.AddCommand(skipCmd)
}
